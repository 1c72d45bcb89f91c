package ws

import (
	"fmt"

	"github.com/botfleet/backend/internal/core/services"
)

// EventRelay is the one-way publish path from the agent channel to every
// dashboard session of the owning account. Delivery is explicitly
// best-effort: no queuing, no backpressure, no replay for dashboards that
// connect later.
type EventRelay struct {
	registry *services.Registry
}

func NewEventRelay(registry *services.Registry) *EventRelay {
	return &EventRelay{registry: registry}
}

func (r *EventRelay) AgentStatus(accountID string, payload AgentStatusPayload) {
	r.registry.BroadcastToAccount(accountID, EventAgentStatus, payload)
}

func (r *EventRelay) TaskLog(accountID string, payload TaskLogPayload) {
	r.registry.BroadcastToAccount(accountID, EventTaskLog, payload)
}

func (r *EventRelay) TaskStarted(accountID string, payload TaskEventPayload) {
	r.registry.BroadcastToAccount(accountID, EventTaskStarted, payload)
}

// TaskProgress emits the event twice: once under the canonical kind and
// once under the legacy per-account kind older dashboard builds subscribe
// to. Both must go out until those builds are retired.
func (r *EventRelay) TaskProgress(accountID string, payload TaskProgressPayload) {
	r.registry.BroadcastToAccount(accountID, EventTaskProgress, payload)
	r.registry.BroadcastToAccount(accountID, legacyEventKind(accountID, EventTaskProgress), payload)
}

// TaskCompleted carries the same legacy duplication as TaskProgress.
func (r *EventRelay) TaskCompleted(accountID string, payload TaskEventPayload) {
	r.registry.BroadcastToAccount(accountID, EventTaskCompleted, payload)
	r.registry.BroadcastToAccount(accountID, legacyEventKind(accountID, EventTaskCompleted), payload)
}

func (r *EventRelay) ScrapeComplete(accountID string, payload ScrapeCompletePayload) {
	r.registry.BroadcastToAccount(accountID, EventScrapeComplete, payload)
}

func legacyEventKind(accountID, kind string) string {
	return fmt.Sprintf("account:%s:%s", accountID, kind)
}
