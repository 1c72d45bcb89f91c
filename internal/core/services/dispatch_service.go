package services

import (
	"context"
	"time"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
)

type DispatchServiceConfig struct {
	TaskRepo       ports.TaskRepository
	CredentialRepo ports.CredentialRepository
	Registry       *Registry
	Logger         *logger.Logger
}

// DispatchSvc implements both dispatch modes: push on task creation and
// pull on agent request. The claim is a conditional update, so two
// concurrent pulls race cleanly; the loser moves to the next candidate.
type DispatchSvc struct {
	taskRepo ports.TaskRepository
	credRepo ports.CredentialRepository
	registry *Registry
	log      *logger.Logger
}

func NewDispatchService(cfg DispatchServiceConfig) *DispatchSvc {
	return &DispatchSvc{
		taskRepo: cfg.TaskRepo,
		credRepo: cfg.CredentialRepo,
		registry: cfg.Registry,
		log:      cfg.Logger,
	}
}

// PushTask attempts server-initiated delivery to a connected agent. A false
// result leaves the task pending for a later pull; it is not an error.
func (s *DispatchSvc) PushTask(ctx context.Context, task *domain.Task, agentID string) (bool, error) {
	if agentID == "" {
		agentID = s.registry.PickAgent(task.AccountID)
	}
	if agentID == "" {
		s.log.Infow("dispatch_push_no_agent", "task_id", task.ID, "account_id", task.AccountID)
		return false, nil
	}

	assignment, err := s.assignment(ctx, task)
	if err != nil {
		return false, err
	}
	if !s.registry.Send(agentID, Event{Event: "task:execute", Data: assignment}) {
		s.log.Infow("dispatch_push_send_failed", "task_id", task.ID, "agent_id", agentID)
		return false, nil
	}

	claimed, err := s.taskRepo.Claim(ctx, task.ID, agentID, time.Now())
	if err != nil {
		return false, err
	}
	if !claimed {
		// Already delivered; the agent side treats re-delivery as idempotent.
		s.log.Warnw("dispatch_push_claim_lost", "task_id", task.ID, "agent_id", agentID)
		return false, nil
	}
	s.log.Infow("dispatch_push_ok", "task_id", task.ID, "agent_id", agentID)
	return true, nil
}

// NextTask claims the highest-priority, oldest pending task for a pulling
// agent. A zero-row claim means another pull won the race; the next
// candidate is tried. (nil, nil) means no work is available and the caller
// must reply no_tasks, never stay silent.
func (s *DispatchSvc) NextTask(ctx context.Context, accountID, agentID string) (*ports.TaskAssignment, error) {
	candidates, err := s.taskRepo.ListPending(ctx, accountID, agentID)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		task := &candidates[i]
		claimed, err := s.taskRepo.Claim(ctx, task.ID, agentID, time.Now())
		if err != nil {
			return nil, err
		}
		if !claimed {
			continue
		}
		s.log.Infow("dispatch_pull_ok", "task_id", task.ID, "agent_id", agentID, "priority", task.Priority)
		return s.assignment(ctx, task)
	}
	return nil, nil
}

// CancelTask rewrites persisted status if the task is still cancellable and
// best-effort forwards a stop command to the assigned agent. The forward is
// fire-and-forget; it cannot force the agent to halt.
func (s *DispatchSvc) CancelTask(ctx context.Context, taskID, agentID string) (*domain.Task, bool, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, false, ErrTaskNotFound
	}
	if task.Status.CanTransition(domain.TaskStatusCancelled) {
		if err := s.taskRepo.UpdateStatus(ctx, taskID, domain.TaskStatusCancelled); err != nil {
			return nil, false, err
		}
		task.Status = domain.TaskStatusCancelled
	}

	if agentID == "" && task.AgentID != nil {
		agentID = *task.AgentID
	}
	forwarded := false
	if agentID != "" {
		forwarded = s.registry.Send(agentID, Event{
			Event: "command",
			Data:  domain.Command{Type: domain.CmdCancelTask, TaskID: taskID},
		})
	}
	s.log.Infow("dispatch_cancel", "task_id", taskID, "agent_id", agentID, "forwarded", forwarded)
	return task, forwarded, nil
}

// assignment flattens the linked credential's fields into the payload sent
// to the agent. The stored password never leaves the server.
func (s *DispatchSvc) assignment(ctx context.Context, task *domain.Task) (*ports.TaskAssignment, error) {
	a := &ports.TaskAssignment{
		TaskID:    task.ID,
		Type:      task.Type,
		TargetURL: task.TargetURL,
		Params:    task.Params,
		Priority:  task.Priority,
	}
	if task.CredentialID != nil {
		cred, err := s.credRepo.GetByID(ctx, *task.CredentialID)
		if err != nil {
			s.log.Warnw("dispatch_credential_lookup_failed", "task_id", task.ID, "credential_id", *task.CredentialID, "error", err)
		} else if cred != nil {
			a.CredentialEmail = cred.Email
			a.CredentialUsername = cred.Username
			a.CredentialMetadata = cred.Metadata
		}
	}
	return a, nil
}
