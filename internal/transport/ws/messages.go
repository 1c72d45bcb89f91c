package ws

import (
	"encoding/json"
	"errors"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/domain"
)

// Agent → server events
const (
	EventHeartbeat     = "heartbeat"
	EventLog           = "log"
	EventTaskStarted   = "task:started"
	EventTaskProgress  = "task:progress"
	EventTaskCompleted = "task:completed"
	EventScrapeResults = "scrape:results"
	EventRequestTask   = "request_task"
)

// Dashboard → server commands
const (
	EventTaskStop   = "task:stop"
	EventTaskCancel = "task:cancel"
)

// Server → client events
const (
	EventConnected      = "connected"
	EventError          = "error"
	EventHeartbeatAck   = "heartbeat_ack"
	EventNoTasks        = "no_tasks"
	EventTaskExecute    = "task:execute"
	EventCommand        = "command"
	EventCommandResult  = "command:result"
	EventAgentStatus    = "agent:status"
	EventTaskLog        = "task:log"
	EventScrapeComplete = "scrape:complete"
)

var (
	errEmptyEvent   = errors.New("ws: empty event")
	errMissingField = errors.New("ws: missing required field")
)

// Envelope is the tagged union every inbound message must fit. Payloads are
// decoded and validated per event before any handler runs.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func decodeEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Event == "" {
		return nil, errEmptyEvent
	}
	return &env, nil
}

// decodePayload unmarshals the envelope data into v and validates it.
func decodePayload(env *Envelope, v validatable) error {
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, v); err != nil {
			return err
		}
	}
	return v.Validate()
}

type validatable interface {
	Validate() error
}

// ==================== Agent payloads ====================

type HeartbeatPayload struct {
	Status string `json:"status,omitempty"`
	TaskID string `json:"taskId,omitempty"`
}

func (p *HeartbeatPayload) Validate() error { return nil }

type LogPayload struct {
	Level    string       `json:"level,omitempty"`
	Message  string       `json:"message"`
	Metadata domain.JSONB `json:"metadata,omitempty"`
}

func (p *LogPayload) Validate() error {
	if p.Message == "" {
		return errMissingField
	}
	return nil
}

type TaskStartedPayload struct {
	TaskID   string   `json:"taskId"`
	Type     string   `json:"type,omitempty"`
	URL      string   `json:"url,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

func (p *TaskStartedPayload) Validate() error {
	if p.TaskID == "" {
		return errMissingField
	}
	return nil
}

type TaskProgressPayload struct {
	TaskID      string `json:"taskId"`
	Progress    int    `json:"progress"`
	Status      string `json:"status,omitempty"`
	CurrentStep string `json:"currentStep,omitempty"`
}

func (p *TaskProgressPayload) Validate() error {
	if p.TaskID == "" {
		return errMissingField
	}
	return nil
}

type TaskCompletedPayload struct {
	TaskID  string       `json:"taskId"`
	Success *bool        `json:"success,omitempty"`
	Result  domain.JSONB `json:"result,omitempty"`
	Error   string       `json:"error,omitempty"`
}

func (p *TaskCompletedPayload) Validate() error {
	if p.TaskID == "" {
		return errMissingField
	}
	return nil
}

// Succeeded applies the two-condition completion rule: failure when an
// error is present or success is explicitly false, success otherwise.
// Agents predating the success flag omit it entirely.
func (p *TaskCompletedPayload) Succeeded() bool {
	if p.Error != "" {
		return false
	}
	if p.Success != nil && !*p.Success {
		return false
	}
	return true
}

type ScrapeResultsPayload struct {
	Links  []ports.LinkCandidate `json:"links"`
	Count  int                   `json:"count"`
	TaskID string                `json:"taskId,omitempty"`
}

func (p *ScrapeResultsPayload) Validate() error {
	if len(p.Links) == 0 {
		return errMissingField
	}
	return nil
}

// ==================== Dashboard payloads ====================

type TaskCommandPayload struct {
	TaskID  string `json:"taskId"`
	AgentID string `json:"agentId,omitempty"`
}

func (p *TaskCommandPayload) Validate() error {
	if p.TaskID == "" {
		return errMissingField
	}
	return nil
}

// ==================== Server-originated payloads ====================

type AgentStatusPayload struct {
	AgentID string             `json:"agentId"`
	Label   string             `json:"label,omitempty"`
	Status  domain.AgentStatus `json:"status"`
}

type TaskLogPayload struct {
	TaskID  string `json:"taskId"`
	AgentID string `json:"agentId"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type TaskEventPayload struct {
	TaskID   string       `json:"taskId"`
	AgentID  string       `json:"agentId"`
	Type     string       `json:"type,omitempty"`
	URL      string       `json:"url,omitempty"`
	Keywords []string     `json:"keywords,omitempty"`
	Success  *bool        `json:"success,omitempty"`
	Result   domain.JSONB `json:"result,omitempty"`
	Error    string       `json:"error,omitempty"`
}

type ScrapeCompletePayload struct {
	TaskID     string `json:"taskId,omitempty"`
	AgentID    string `json:"agentId"`
	Count      int    `json:"count"`
	Created    int    `json:"created"`
	Duplicates int    `json:"duplicates"`
}

type CommandResultPayload struct {
	Command string `json:"command"`
	TaskID  string `json:"taskId"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
