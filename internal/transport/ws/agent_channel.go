package ws

import (
	"context"
	"fmt"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/core/services"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	"github.com/gofiber/contrib/websocket"
)

type sessionState int

const (
	stateConnecting sessionState = iota
	stateAuthenticated
	stateActive
	stateClosed
)

type AgentChannelConfig struct {
	Registry *services.Registry
	Verifier ports.TokenVerifier
	Agents   ports.AgentService
	Tasks    ports.TaskService
	Dispatch ports.DispatchService
	Ingest   ports.IngestService
	Relay    *EventRelay
	Logger   *logger.Logger
}

// AgentChannel owns the agent side of the realtime plane: it
// authenticates agent connections, keeps presence in step with the
// registry, handles agent-originated events and forwards them to the
// owning account's dashboards.
type AgentChannel struct {
	registry *services.Registry
	verifier ports.TokenVerifier
	agents   ports.AgentService
	tasks    ports.TaskService
	dispatch ports.DispatchService
	ingest   ports.IngestService
	relay    *EventRelay
	log      *logger.Logger
}

func NewAgentChannel(cfg AgentChannelConfig) *AgentChannel {
	return &AgentChannel{
		registry: cfg.Registry,
		verifier: cfg.Verifier,
		agents:   cfg.Agents,
		tasks:    cfg.Tasks,
		dispatch: cfg.Dispatch,
		ingest:   cfg.Ingest,
		relay:    cfg.Relay,
		log:      cfg.Logger,
	}
}

// agentSession is the per-connection state machine:
// connecting → authenticated → active → closed.
type agentSession struct {
	state     sessionState
	conn      services.Conn
	agentID   string
	accountID string
	label     string
}

func (h *AgentChannel) Handle(c *websocket.Conn) {
	ctx := context.Background()
	session := &agentSession{state: stateConnecting, conn: newWSConn(c)}

	// Agents are non-interactive: a failed handshake closes silently.
	subject, err := h.verifier.Verify(ctx, bearerToken(c))
	if err != nil || subject.Kind != ports.SubjectAgent {
		h.log.Warnw("agent_channel_auth_failed", "remote", c.RemoteAddr().String())
		session.state = stateClosed
		c.Close()
		return
	}
	session.state = stateAuthenticated

	agent, err := h.agents.GetAgentByID(ctx, subject.ID)
	if err != nil {
		h.log.Warnw("agent_channel_unknown_agent", "agent_id", subject.ID)
		session.state = stateClosed
		c.Close()
		return
	}
	session.agentID = agent.ID
	session.accountID = agent.AccountID
	session.label = agent.Label

	h.activate(ctx, session, c.RemoteAddr().String())
	defer h.teardown(ctx, session)

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			return
		}
		h.handleMessage(ctx, session, raw)
	}
}

func (h *AgentChannel) activate(ctx context.Context, s *agentSession, remoteAddr string) {
	h.registry.RegisterAgent(s.accountID, s.agentID, s.conn)
	s.state = stateActive

	if err := h.agents.MarkOnline(ctx, s.agentID, remoteAddr); err != nil {
		h.log.Errorw("agent_channel_mark_online_failed", "agent_id", s.agentID, "error", err)
	}
	h.relay.AgentStatus(s.accountID, AgentStatusPayload{
		AgentID: s.agentID,
		Label:   s.label,
		Status:  domain.AgentStatusOnline,
	})
	s.conn.WriteJSON(services.Event{Event: EventConnected, Data: map[string]string{"agentId": s.agentID}})
	h.log.Infow("agent_channel_active", "agent_id", s.agentID, "account_id", s.accountID, "remote", remoteAddr)
}

func (h *AgentChannel) teardown(ctx context.Context, s *agentSession) {
	s.state = stateClosed
	h.registry.UnregisterAgent(s.agentID, s.conn)
	// The task the agent may have been running keeps its last reported
	// status; only presence is rewritten.
	if err := h.agents.MarkOffline(ctx, s.agentID); err != nil {
		h.log.Errorw("agent_channel_mark_offline_failed", "agent_id", s.agentID, "error", err)
	}
	h.relay.AgentStatus(s.accountID, AgentStatusPayload{
		AgentID: s.agentID,
		Label:   s.label,
		Status:  domain.AgentStatusOffline,
	})
	h.log.Infow("agent_channel_closed", "agent_id", s.agentID)
}

func (h *AgentChannel) handleMessage(ctx context.Context, s *agentSession, raw []byte) {
	// A panicking handler must not take down the process or any other
	// connection's session.
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Errorw("agent_channel_handler_panic", "agent_id", s.agentID, "panic", rec)
		}
	}()

	env, err := decodeEnvelope(raw)
	if err != nil {
		h.log.Warnw("agent_channel_malformed_message", "agent_id", s.agentID, "error", err)
		s.conn.WriteJSON(services.Event{Event: EventError, Data: ErrorPayload{Message: "malformed message"}})
		return
	}

	switch env.Event {
	case EventHeartbeat:
		h.handleHeartbeat(ctx, s, env)
	case EventLog:
		h.handleLog(ctx, s, env)
	case EventTaskStarted:
		h.handleTaskStarted(ctx, s, env)
	case EventTaskProgress:
		h.handleTaskProgress(s, env)
	case EventTaskCompleted:
		h.handleTaskCompleted(ctx, s, env)
	case EventScrapeResults:
		h.handleScrapeResults(ctx, s, env)
	case EventRequestTask:
		h.handleRequestTask(ctx, s)
	default:
		h.log.Debugw("agent_channel_unknown_event", "agent_id", s.agentID, "event", env.Event)
	}
}

func (h *AgentChannel) rejectPayload(s *agentSession, event string, err error) {
	h.log.Warnw("agent_channel_invalid_payload", "agent_id", s.agentID, "event", event, "error", err)
	s.conn.WriteJSON(services.Event{Event: EventError, Data: ErrorPayload{Message: "invalid payload for " + event}})
}

func (h *AgentChannel) handleHeartbeat(ctx context.Context, s *agentSession, env *Envelope) {
	var p HeartbeatPayload
	if err := decodePayload(env, &p); err != nil {
		h.rejectPayload(s, env.Event, err)
		return
	}

	status := domain.AgentStatusOnline
	if p.Status == string(domain.AgentStatusBusy) {
		status = domain.AgentStatusBusy
	}
	if p.TaskID != "" {
		h.registry.SetAgentTask(s.agentID, p.TaskID)
	}
	if err := h.agents.Heartbeat(ctx, s.agentID, status); err != nil {
		h.log.Errorw("agent_channel_heartbeat_persist_failed", "agent_id", s.agentID, "error", err)
	}
	h.relay.AgentStatus(s.accountID, AgentStatusPayload{AgentID: s.agentID, Label: s.label, Status: status})
	s.conn.WriteJSON(services.Event{Event: EventHeartbeatAck})
}

func (h *AgentChannel) handleLog(ctx context.Context, s *agentSession, env *Envelope) {
	var p LogPayload
	if err := decodePayload(env, &p); err != nil {
		h.rejectPayload(s, env.Event, err)
		return
	}

	taskID, ok := h.registry.AgentTask(s.agentID)
	var taskRef *string
	if ok {
		taskRef = &taskID
	} else {
		taskID = "unknown"
	}

	if err := h.agents.AppendLog(ctx, ports.AppendLogInput{
		AgentID:  s.agentID,
		TaskID:   taskRef,
		Level:    domain.LogLevel(p.Level),
		Message:  p.Message,
		Metadata: p.Metadata,
	}); err != nil {
		h.log.Errorw("agent_channel_log_persist_failed", "agent_id", s.agentID, "error", err)
	}
	h.relay.TaskLog(s.accountID, TaskLogPayload{
		TaskID:  taskID,
		AgentID: s.agentID,
		Level:   p.Level,
		Message: p.Message,
	})
}

func (h *AgentChannel) handleTaskStarted(ctx context.Context, s *agentSession, env *Envelope) {
	var p TaskStartedPayload
	if err := decodePayload(env, &p); err != nil {
		h.rejectPayload(s, env.Event, err)
		return
	}

	h.registry.SetAgentTask(s.agentID, p.TaskID)
	if err := h.tasks.MarkRunning(ctx, p.TaskID, s.agentID); err != nil {
		h.log.Errorw("agent_channel_task_started_persist_failed", "task_id", p.TaskID, "error", err)
	}
	if err := h.agents.Heartbeat(ctx, s.agentID, domain.AgentStatusBusy); err != nil {
		h.log.Errorw("agent_channel_busy_persist_failed", "agent_id", s.agentID, "error", err)
	}
	h.relay.TaskStarted(s.accountID, TaskEventPayload{
		TaskID:   p.TaskID,
		AgentID:  s.agentID,
		Type:     p.Type,
		URL:      p.URL,
		Keywords: p.Keywords,
	})
}

// handleTaskProgress relays only. Progress updates arrive at high
// frequency and are not worth a write per message.
func (h *AgentChannel) handleTaskProgress(s *agentSession, env *Envelope) {
	var p TaskProgressPayload
	if err := decodePayload(env, &p); err != nil {
		h.rejectPayload(s, env.Event, err)
		return
	}
	h.relay.TaskProgress(s.accountID, p)
}

func (h *AgentChannel) handleTaskCompleted(ctx context.Context, s *agentSession, env *Envelope) {
	var p TaskCompletedPayload
	if err := decodePayload(env, &p); err != nil {
		h.rejectPayload(s, env.Event, err)
		return
	}

	success := p.Succeeded()
	if err := h.tasks.CompleteTask(ctx, p.TaskID, success, p.Result, p.Error); err != nil {
		h.log.Errorw("agent_channel_task_completed_persist_failed", "task_id", p.TaskID, "error", err)
	}
	h.registry.ClearAgentTask(s.agentID)
	if err := h.agents.Heartbeat(ctx, s.agentID, domain.AgentStatusOnline); err != nil {
		h.log.Errorw("agent_channel_idle_persist_failed", "agent_id", s.agentID, "error", err)
	}
	h.relay.TaskCompleted(s.accountID, TaskEventPayload{
		TaskID:  p.TaskID,
		AgentID: s.agentID,
		Success: &success,
		Result:  p.Result,
		Error:   p.Error,
	})
}

func (h *AgentChannel) handleScrapeResults(ctx context.Context, s *agentSession, env *Envelope) {
	var p ScrapeResultsPayload
	if err := decodePayload(env, &p); err != nil {
		h.rejectPayload(s, env.Event, err)
		return
	}

	result, err := h.ingest.Ingest(ctx, s.accountID, p.Links)
	if err != nil {
		// The connection survives a failed ingest; the dashboards just
		// hear about it.
		h.log.Errorw("agent_channel_ingest_failed", "agent_id", s.agentID, "count", len(p.Links), "error", err)
		h.relay.TaskLog(s.accountID, TaskLogPayload{
			TaskID:  p.TaskID,
			AgentID: s.agentID,
			Level:   string(domain.LogLevelError),
			Message: "Failed to store scraped links",
		})
		return
	}

	h.relay.TaskLog(s.accountID, TaskLogPayload{
		TaskID:  p.TaskID,
		AgentID: s.agentID,
		Level:   string(domain.LogLevelInfo),
		Message: scrapeSummary(result),
	})
	h.relay.ScrapeComplete(s.accountID, ScrapeCompletePayload{
		TaskID:     p.TaskID,
		AgentID:    s.agentID,
		Count:      len(p.Links),
		Created:    result.Created,
		Duplicates: result.Duplicates,
	})
}

func scrapeSummary(result *ports.IngestResult) string {
	return fmt.Sprintf("Stored scraped links: %d new, %d duplicates", result.Created, result.Duplicates)
}

func (h *AgentChannel) handleRequestTask(ctx context.Context, s *agentSession) {
	assignment, err := h.dispatch.NextTask(ctx, s.accountID, s.agentID)
	if err != nil {
		h.log.Errorw("agent_channel_pull_failed", "agent_id", s.agentID, "error", err)
		s.conn.WriteJSON(services.Event{Event: EventError, Data: ErrorPayload{Message: "failed to fetch next task"}})
		return
	}
	// An explicit no_tasks reply, never silence.
	if assignment == nil {
		s.conn.WriteJSON(services.Event{Event: EventNoTasks})
		return
	}
	s.conn.WriteJSON(services.Event{Event: EventTaskExecute, Data: assignment})
}
