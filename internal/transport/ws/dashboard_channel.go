package ws

import (
	"context"
	"errors"
	"fmt"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/core/services"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	"github.com/gofiber/contrib/websocket"
)

type DashboardChannelConfig struct {
	Registry *services.Registry
	Verifier ports.TokenVerifier
	Tasks    ports.TaskService
	Logger   *logger.Logger
}

// DashboardChannel serves browser sessions: it authenticates them into the
// account's broadcast group and handles operator commands, routing them to
// connected agents through the registry.
type DashboardChannel struct {
	registry *services.Registry
	verifier ports.TokenVerifier
	tasks    ports.TaskService
	log      *logger.Logger
}

func NewDashboardChannel(cfg DashboardChannelConfig) *DashboardChannel {
	return &DashboardChannel{
		registry: cfg.Registry,
		verifier: cfg.Verifier,
		tasks:    cfg.Tasks,
		log:      cfg.Logger,
	}
}

type dashboardSession struct {
	state     sessionState
	conn      services.Conn
	accountID string
}

func (h *DashboardChannel) Handle(c *websocket.Conn) {
	ctx := context.Background()
	session := &dashboardSession{state: stateConnecting, conn: newWSConn(c)}

	// Dashboards are interactive: unlike agents they get told why the
	// handshake failed before the close.
	subject, err := h.verifier.Verify(ctx, bearerToken(c))
	if err != nil || subject.Kind != ports.SubjectAccount {
		h.log.Warnw("dashboard_channel_auth_failed", "remote", c.RemoteAddr().String())
		session.conn.WriteJSON(services.Event{Event: EventError, Data: ErrorPayload{Message: "authentication failed"}})
		session.state = stateClosed
		c.Close()
		return
	}
	session.state = stateAuthenticated
	session.accountID = subject.ID

	h.registry.RegisterDashboard(session.accountID, session.conn)
	session.state = stateActive
	session.conn.WriteJSON(services.Event{Event: EventConnected, Data: map[string]string{"accountId": session.accountID}})
	h.log.Infow("dashboard_channel_active", "account_id", session.accountID)

	defer func() {
		session.state = stateClosed
		// Membership only; nothing persisted changes when a browser leaves.
		h.registry.UnregisterDashboard(session.accountID, session.conn)
		h.log.Infow("dashboard_channel_closed", "account_id", session.accountID)
	}()

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			return
		}
		h.handleMessage(ctx, session, raw)
	}
}

func (h *DashboardChannel) handleMessage(ctx context.Context, s *dashboardSession, raw []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Errorw("dashboard_channel_handler_panic", "account_id", s.accountID, "panic", rec)
		}
	}()

	env, err := decodeEnvelope(raw)
	if err != nil {
		h.log.Warnw("dashboard_channel_malformed_message", "account_id", s.accountID, "error", err)
		s.conn.WriteJSON(services.Event{Event: EventError, Data: ErrorPayload{Message: "malformed message"}})
		return
	}

	switch env.Event {
	case EventTaskStop, EventTaskCancel:
		var p TaskCommandPayload
		if err := decodePayload(env, &p); err != nil {
			h.log.Warnw("dashboard_channel_invalid_payload", "account_id", s.accountID, "event", env.Event, "error", err)
			s.conn.WriteJSON(services.Event{Event: EventError, Data: ErrorPayload{Message: "invalid payload for " + env.Event}})
			return
		}
		h.handleTaskCommand(ctx, s, env.Event, p)
	default:
		h.log.Debugw("dashboard_channel_unknown_event", "account_id", s.accountID, "event", env.Event)
	}
}

// handleTaskCommand routes a stop/cancel to the named agent, or to every
// connected agent of the account when the dashboard does not know which
// one holds the task. The ack is synchronous and definitive: with zero
// agents connected nothing is queued.
func (h *DashboardChannel) handleTaskCommand(ctx context.Context, s *dashboardSession, event string, p TaskCommandPayload) {
	cmdType := domain.CmdStopTask
	if event == EventTaskCancel {
		cmdType = domain.CmdCancelTask
		// Cancellation also rewrites persisted status; the forward below
		// remains advisory.
		if _, err := h.tasks.CancelTask(ctx, p.TaskID); err != nil && !errors.Is(err, services.ErrTaskNotCancellable) {
			h.log.Warnw("dashboard_channel_cancel_persist_failed", "task_id", p.TaskID, "error", err)
		}
	}

	var targets []string
	if p.AgentID != "" {
		targets = []string{p.AgentID}
	} else {
		targets = h.registry.ConnectedAgents(s.accountID)
	}

	result := CommandResultPayload{Command: event, TaskID: p.TaskID}
	if len(targets) == 0 {
		result.Message = "No agents connected"
		s.conn.WriteJSON(services.Event{Event: EventCommandResult, Data: result})
		return
	}

	sent := 0
	for _, agentID := range targets {
		if h.registry.Send(agentID, services.Event{
			Event: EventCommand,
			Data:  domain.Command{Type: cmdType, TaskID: p.TaskID},
		}) {
			sent++
		}
	}

	if sent > 0 {
		result.Success = true
		result.Message = fmt.Sprintf("Command sent to %d agent(s)", sent)
	} else {
		result.Message = "Agent not connected"
	}
	h.log.Infow("dashboard_channel_command_routed", "account_id", s.accountID, "event", event, "task_id", p.TaskID, "sent", sent)
	s.conn.WriteJSON(services.Event{Event: EventCommandResult, Data: result})
}
