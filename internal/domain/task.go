package domain

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// taskTransitions encodes the monotone task lifecycle. Cancellation from
// any non-terminal state is handled separately in CanTransition.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending: {TaskStatusQueued, TaskStatusRunning},
	TaskStatusQueued:  {TaskStatusRunning, TaskStatusFailed},
	TaskStatusRunning: {TaskStatusCompleted, TaskStatusFailed},
}

// IsTerminal reports whether no further status changes are allowed.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a task may move from s to next. Every
// non-terminal status may move to cancelled.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	if s == next {
		return false
	}
	if next == TaskStatusCancelled {
		return !s.IsTerminal()
	}
	for _, allowed := range taskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
