package domain

// CommandType represents a control command pushed to a connected agent.
type CommandType string

const (
	CmdStopTask   CommandType = "stop_task"
	CmdCancelTask CommandType = "cancel_task"
)

// Command is the payload of a server→agent "command" message. Delivery is
// best-effort; the agent may already have finished or never receive it.
type Command struct {
	Type   CommandType `json:"type"`
	TaskID string      `json:"taskId"`
}

// CommandResult is the synchronous acknowledgement returned to the
// dashboard that issued a stop/cancel command.
type CommandResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
