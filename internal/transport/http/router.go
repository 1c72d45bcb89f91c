package http

import (
	"github.com/botfleet/backend/internal/config"
	"github.com/botfleet/backend/internal/core/services"
	"github.com/botfleet/backend/internal/infrastructure/db"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	"github.com/botfleet/backend/internal/transport/http/handlers"
	httpmw "github.com/botfleet/backend/internal/transport/http/middleware"
	"github.com/botfleet/backend/internal/transport/ws"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type RouterConfig struct {
	DB     *gorm.DB
	Logger *logger.Logger
	Config *config.Config
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) {
	// Repositories
	accountRepo := db.NewAccountRepository(cfg.DB, cfg.Logger)
	agentRepo := db.NewAgentRepository(cfg.DB, cfg.Logger)
	agentLogRepo := db.NewAgentLogRepository(cfg.DB, cfg.Logger)
	taskRepo := db.NewTaskRepository(cfg.DB, cfg.Logger)
	linkRepo := db.NewLinkRepository(cfg.DB, cfg.Logger)
	credentialRepo := db.NewCredentialRepository(cfg.DB, cfg.Logger)

	// Services
	registry := services.NewRegistry(cfg.Logger)

	tokenService := services.NewTokenService(services.TokenServiceConfig{
		AgentRepo:       agentRepo,
		Logger:          cfg.Logger,
		Secret:          cfg.Config.Auth.JWTSecret,
		RegistrationTTL: cfg.Config.Auth.RegistrationTokenTTL,
	})

	agentService := services.NewAgentService(services.AgentServiceConfig{
		Repository: agentRepo,
		Accounts:   accountRepo,
		LogRepo:    agentLogRepo,
		Tokens:     tokenService,
		Logger:     cfg.Logger,
	})

	taskService := services.NewTaskService(services.TaskServiceConfig{
		Repository: taskRepo,
		Logger:     cfg.Logger,
	})

	dispatchService := services.NewDispatchService(services.DispatchServiceConfig{
		TaskRepo:       taskRepo,
		CredentialRepo: credentialRepo,
		Registry:       registry,
		Logger:         cfg.Logger,
	})

	ingestService := services.NewIngestService(services.IngestServiceConfig{
		LinkRepo: linkRepo,
		Logger:   cfg.Logger,
	})

	credentialService := services.NewCredentialService(services.CredentialServiceConfig{
		Repository:    credentialRepo,
		Logger:        cfg.Logger,
		EncryptionKey: cfg.Config.Security.EncryptionKey,
	})

	// Realtime channels
	relay := ws.NewEventRelay(registry)

	agentChannel := ws.NewAgentChannel(ws.AgentChannelConfig{
		Registry: registry,
		Verifier: tokenService,
		Agents:   agentService,
		Tasks:    taskService,
		Dispatch: dispatchService,
		Ingest:   ingestService,
		Relay:    relay,
		Logger:   cfg.Logger,
	})

	dashboardChannel := ws.NewDashboardChannel(ws.DashboardChannelConfig{
		Registry: registry,
		Verifier: tokenService,
		Tasks:    taskService,
		Logger:   cfg.Logger,
	})

	// Handlers
	agentHandler := handlers.NewAgentHandler(agentService, tokenService, agentLogRepo, cfg.Logger)
	taskHandler := handlers.NewTaskHandler(taskService, dispatchService, cfg.Logger)
	linkHandler := handlers.NewLinkHandler(ingestService, linkRepo, cfg.Logger)
	credentialHandler := handlers.NewCredentialHandler(credentialService, cfg.Logger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Websocket upgrade gate
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws/agent", websocket.New(agentChannel.Handle))
	app.Get("/ws/dashboard", websocket.New(dashboardChannel.Handle))

	api := app.Group("/api/v1")

	// Agent enrollment runs under a registration token; everything else
	// under the account token.
	api.Post("/agents/register", httpmw.RegistrationAuth(tokenService), agentHandler.RegisterAgent)

	agents := api.Group("/agents", httpmw.AccountAuth(tokenService))
	agents.Post("/registration-token", agentHandler.IssueRegistrationToken)
	agents.Get("/", agentHandler.GetAgents)
	agents.Get("/:id", agentHandler.GetAgent)
	agents.Get("/:id/logs", agentHandler.GetAgentLogs)
	agents.Delete("/:id", agentHandler.DeleteAgent)

	tasks := api.Group("/tasks", httpmw.AccountAuth(tokenService))
	tasks.Post("/", taskHandler.CreateTask)
	tasks.Get("/", taskHandler.GetTasks)
	tasks.Get("/:id", taskHandler.GetTask)
	tasks.Post("/:id/cancel", taskHandler.CancelTask)

	links := api.Group("/links", httpmw.AccountAuth(tokenService))
	links.Post("/bulk", linkHandler.BulkCreateLinks)
	links.Get("/", linkHandler.GetLinks)
	links.Delete("/:id", linkHandler.DeleteLink)

	credentials := api.Group("/credentials", httpmw.AccountAuth(tokenService))
	credentials.Post("/", credentialHandler.CreateCredential)
	credentials.Get("/", credentialHandler.GetCredentials)
	credentials.Put("/:id", credentialHandler.UpdateCredential)
	credentials.Delete("/:id", credentialHandler.DeleteCredential)
}
