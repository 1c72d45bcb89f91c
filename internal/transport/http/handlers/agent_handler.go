package handlers

import (
	"errors"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/core/services"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	httpmw "github.com/botfleet/backend/internal/transport/http/middleware"
	"github.com/gofiber/fiber/v2"
)

type AgentHandler struct {
	agents ports.AgentService
	tokens ports.TokenService
	logs   ports.AgentLogRepository
	logger *logger.Logger
}

func NewAgentHandler(agents ports.AgentService, tokens ports.TokenService, logs ports.AgentLogRepository, logger *logger.Logger) *AgentHandler {
	return &AgentHandler{agents: agents, tokens: tokens, logs: logs, logger: logger}
}

type RegisterAgentRequest struct {
	Label       string       `json:"label"`
	Fingerprint string       `json:"fingerprint"`
	Metadata    domain.JSONB `json:"metadata,omitempty"`
}

// RegisterAgent enrolls an agent under a short-lived registration token.
// The same fingerprint always lands on the same row; the durable bearer
// token in the response is shown exactly once.
func (h *AgentHandler) RegisterAgent(c *fiber.Ctx) error {
	var req RegisterAgentRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("register_agent_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Fingerprint == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Fingerprint is required"})
	}

	accountID := httpmw.AccountID(c)
	agent, token, err := h.agents.Register(c.Context(), ports.RegisterAgentInput{
		AccountID:   accountID,
		Label:       req.Label,
		Fingerprint: req.Fingerprint,
		Address:     c.IP(),
		Metadata:    req.Metadata,
	})
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Account not found"})
		}
		h.logger.Errorw("register_agent_failed", "account_id", accountID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to register agent"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"agent": agent,
		"token": token,
	})
}

// IssueRegistrationToken hands the dashboard a short-lived token to embed
// in an agent install command.
func (h *AgentHandler) IssueRegistrationToken(c *fiber.Ctx) error {
	accountID := httpmw.AccountID(c)
	token, err := h.tokens.IssueRegistrationToken(accountID)
	if err != nil {
		h.logger.Errorw("issue_registration_token_failed", "account_id", accountID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to issue token"})
	}
	return c.JSON(fiber.Map{"token": token})
}

func (h *AgentHandler) GetAgents(c *fiber.Ctx) error {
	accountID := httpmw.AccountID(c)
	agents, err := h.agents.GetAgents(c.Context(), accountID)
	if err != nil {
		h.logger.Errorw("list_agents_failed", "account_id", accountID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list agents"})
	}
	return c.JSON(fiber.Map{"agents": agents})
}

func (h *AgentHandler) GetAgent(c *fiber.Ctx) error {
	agent, err := h.agents.GetAgentByID(c.Context(), c.Params("id"))
	if err != nil || agent.AccountID != httpmw.AccountID(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Agent not found"})
	}
	return c.JSON(agent)
}

func (h *AgentHandler) DeleteAgent(c *fiber.Ctx) error {
	id := c.Params("id")
	agent, err := h.agents.GetAgentByID(c.Context(), id)
	if err != nil || agent.AccountID != httpmw.AccountID(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Agent not found"})
	}
	if err := h.agents.DeleteAgent(c.Context(), id); err != nil {
		h.logger.Errorw("delete_agent_failed", "agent_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete agent"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AgentHandler) GetAgentLogs(c *fiber.Ctx) error {
	id := c.Params("id")
	agent, err := h.agents.GetAgentByID(c.Context(), id)
	if err != nil || agent.AccountID != httpmw.AccountID(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Agent not found"})
	}

	limit := c.QueryInt("limit", 200)
	logs, err := h.logs.GetByAgent(c.Context(), id, limit)
	if err != nil {
		h.logger.Errorw("list_agent_logs_failed", "agent_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list agent logs"})
	}
	return c.JSON(fiber.Map{"logs": logs})
}
