package services

import (
	"sync"

	"github.com/botfleet/backend/internal/infrastructure/logger"
)

// Conn is a live connection handle. Both channel kinds wrap their websocket
// in something satisfying this so the registry can be tested with doubles.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Event is the envelope every server-originated websocket message uses.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type agentEntry struct {
	conn      Conn
	accountID string
	taskID    string
}

// Registry tracks live agent and dashboard connections for a single
// process. Constructed once in main and injected into both channels.
// All operations are synchronous and non-blocking; sends are best-effort
// with no retry queue.
type Registry struct {
	mu         sync.RWMutex
	agents     map[string]*agentEntry
	dashboards map[string]map[Conn]struct{}
	log        *logger.Logger
}

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		agents:     make(map[string]*agentEntry),
		dashboards: make(map[string]map[Conn]struct{}),
		log:        log,
	}
}

// RegisterAgent records the live connection for an agent, closing any
// previous one first. At most one live connection per agent exists at any
// time, which prevents duplicate task delivery.
func (r *Registry) RegisterAgent(accountID, agentID string, conn Conn) {
	r.mu.Lock()
	var stale Conn
	if existing, ok := r.agents[agentID]; ok {
		stale = existing.conn
	}
	r.agents[agentID] = &agentEntry{conn: conn, accountID: accountID}
	r.mu.Unlock()

	if stale != nil {
		r.log.Warnw("registry_agent_replaced", "agent_id", agentID)
		stale.Close()
	}
	r.log.Infow("registry_agent_registered", "agent_id", agentID, "account_id", accountID)
}

// UnregisterAgent removes the agent's entry. Idempotent. The conn argument
// guards the replacement race: a session torn down after being displaced by
// a newer connection must not remove the newer entry.
func (r *Registry) UnregisterAgent(agentID string, conn Conn) {
	r.mu.Lock()
	if existing, ok := r.agents[agentID]; ok && (conn == nil || existing.conn == conn) {
		delete(r.agents, agentID)
		r.mu.Unlock()
		r.log.Infow("registry_agent_unregistered", "agent_id", agentID)
		return
	}
	r.mu.Unlock()
}

func (r *Registry) RegisterDashboard(accountID string, conn Conn) {
	r.mu.Lock()
	set, ok := r.dashboards[accountID]
	if !ok {
		set = make(map[Conn]struct{})
		r.dashboards[accountID] = set
	}
	set[conn] = struct{}{}
	count := len(set)
	r.mu.Unlock()
	r.log.Infow("registry_dashboard_registered", "account_id", accountID, "count", count)
}

func (r *Registry) UnregisterDashboard(accountID string, conn Conn) {
	r.mu.Lock()
	if set, ok := r.dashboards[accountID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(r.dashboards, accountID)
		}
	}
	r.mu.Unlock()
}

// Send delivers one message to a connected agent. False means the agent is
// not currently connected (or the write failed); it is never an error.
func (r *Registry) Send(agentID string, v interface{}) bool {
	r.mu.RLock()
	entry, ok := r.agents[agentID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if err := entry.conn.WriteJSON(v); err != nil {
		r.log.Warnw("registry_agent_send_failed", "agent_id", agentID, "error", err)
		return false
	}
	return true
}

// BroadcastToAccount fans an event out to every live dashboard connection
// of the account. No-op when none are connected; there is no queuing, so a
// dashboard that connects later sees only persisted state.
func (r *Registry) BroadcastToAccount(accountID, event string, payload interface{}) {
	r.mu.RLock()
	conns := make([]Conn, 0, len(r.dashboards[accountID]))
	for conn := range r.dashboards[accountID] {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	msg := Event{Event: event, Data: payload}
	for _, conn := range conns {
		if err := conn.WriteJSON(msg); err != nil {
			r.log.Warnw("registry_broadcast_write_failed", "account_id", accountID, "event", event, "error", err)
		}
	}
}

// SetAgentTask records the agent's in-flight task id.
func (r *Registry) SetAgentTask(agentID, taskID string) {
	r.mu.Lock()
	if entry, ok := r.agents[agentID]; ok {
		entry.taskID = taskID
	}
	r.mu.Unlock()
}

func (r *Registry) ClearAgentTask(agentID string) {
	r.SetAgentTask(agentID, "")
}

// AgentTask returns the agent's in-flight task id, if any.
func (r *Registry) AgentTask(agentID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.agents[agentID]
	if !ok || entry.taskID == "" {
		return "", false
	}
	return entry.taskID, true
}

// PickAgent returns the first idle connected agent of the account, else the
// first connected one, else "". A placement heuristic, not a fair
// scheduler.
func (r *Registry) PickAgent(accountID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fallback := ""
	for id, entry := range r.agents {
		if entry.accountID != accountID {
			continue
		}
		if entry.taskID == "" {
			return id
		}
		if fallback == "" {
			fallback = id
		}
	}
	return fallback
}

// ConnectedAgents lists the account's currently connected agent ids.
func (r *Registry) ConnectedAgents(accountID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, entry := range r.agents {
		if entry.accountID == accountID {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *Registry) IsAgentConnected(agentID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[agentID]
	return ok
}
