package services

import (
	"context"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	"github.com/botfleet/backend/pkg/utils/keygen"
)

type TaskServiceConfig struct {
	Repository ports.TaskRepository
	Logger     *logger.Logger
}

type TaskSvc struct {
	repo ports.TaskRepository
	log  *logger.Logger
}

func NewTaskService(cfg TaskServiceConfig) *TaskSvc {
	return &TaskSvc{repo: cfg.Repository, log: cfg.Logger}
}

func (s *TaskSvc) CreateTask(ctx context.Context, input ports.CreateTaskInput) (*domain.Task, error) {
	switch input.Type {
	case domain.TaskTypeSignup, domain.TaskTypeScrape, domain.TaskTypeCustom:
	default:
		return nil, ErrTaskInvalidInput
	}
	if input.AccountID == "" {
		return nil, ErrTaskInvalidInput
	}

	task := &domain.Task{
		ID:           keygen.GenerateUUID(),
		AccountID:    input.AccountID,
		AgentID:      input.AgentID,
		CredentialID: input.CredentialID,
		Type:         input.Type,
		Status:       domain.TaskStatusPending,
		TargetURL:    input.TargetURL,
		Params:       input.Params,
		Priority:     input.Priority,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}
	s.log.Infow("task_created", "task_id", task.ID, "account_id", task.AccountID, "type", task.Type, "priority", task.Priority)
	return task, nil
}

func (s *TaskSvc) GetTasks(ctx context.Context, accountID string, status domain.TaskStatus, limit int) ([]domain.Task, error) {
	return s.repo.GetByAccount(ctx, accountID, status, limit)
}

func (s *TaskSvc) GetTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// CancelTask rewrites persisted status only. It cannot force a running
// agent to halt; forwarding the advisory stop command is the dispatcher's
// and the dashboard channel's job.
func (s *TaskSvc) CancelTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrTaskNotFound
	}
	if !task.Status.CanTransition(domain.TaskStatusCancelled) {
		return nil, ErrTaskNotCancellable
	}
	if err := s.repo.UpdateStatus(ctx, id, domain.TaskStatusCancelled); err != nil {
		return nil, err
	}
	task.Status = domain.TaskStatusCancelled
	s.log.Infow("task_cancelled", "task_id", id)
	return task, nil
}

func (s *TaskSvc) MarkRunning(ctx context.Context, taskID, agentID string) error {
	if err := s.repo.MarkRunning(ctx, taskID, agentID); err != nil {
		return err
	}
	s.log.Infow("task_running", "task_id", taskID, "agent_id", agentID)
	return nil
}

func (s *TaskSvc) CompleteTask(ctx context.Context, taskID string, success bool, result domain.JSONB, errMsg string) error {
	status := domain.TaskStatusCompleted
	if !success {
		status = domain.TaskStatusFailed
	}
	if err := s.repo.Complete(ctx, taskID, status, result, errMsg); err != nil {
		return err
	}
	s.log.Infow("task_completed", "task_id", taskID, "status", status)
	return nil
}
