package db

import (
	"context"
	"time"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type taskRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepository(db *gorm.DB, log *logger.Logger) ports.TaskRepository {
	return &taskRepository{db: db, log: log}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		r.log.Errorw("task_repo_create_failed", "account_id", task.AccountID, "type", task.Type, "error", err)
		return err
	}
	r.log.Infow("task_repo_create_ok", "id", task.ID, "type", task.Type)
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		r.log.Errorw("task_repo_get_failed", "id", id, "error", err)
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) GetByAccount(ctx context.Context, accountID string, status domain.TaskStatus, limit int) ([]domain.Task, error) {
	query := r.db.WithContext(ctx).Where("account_id = ?", accountID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var tasks []domain.Task
	if err := query.Order("created_at desc").Find(&tasks).Error; err != nil {
		r.log.Errorw("task_repo_list_failed", "account_id", accountID, "error", err)
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) ListPending(ctx context.Context, accountID, agentID string) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND status = ?", accountID, domain.TaskStatusPending).
		Where("agent_id IS NULL OR agent_id = ?", agentID).
		Order("priority desc, created_at asc").
		Find(&tasks).Error
	if err != nil {
		r.log.Errorw("task_repo_list_pending_failed", "account_id", accountID, "error", err)
		return nil, err
	}
	return tasks, nil
}

// Claim is the conditional assignment write: it only succeeds while the
// task is still pending, so concurrent pulls get exactly one winner.
func (r *taskRepository) Claim(ctx context.Context, taskID, agentID string, startedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("id = ? AND status = ?", taskID, domain.TaskStatusPending).
		Updates(map[string]interface{}{
			"status":     domain.TaskStatusQueued,
			"agent_id":   agentID,
			"started_at": startedAt,
		})
	if res.Error != nil {
		r.log.Errorw("task_repo_claim_failed", "id", taskID, "agent_id", agentID, "error", res.Error)
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		r.log.Errorw("task_repo_update_failed", "id", task.ID, "error", err)
		return err
	}
	return nil
}

func (r *taskRepository) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	if err := r.db.WithContext(ctx).Model(&domain.Task{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		r.log.Errorw("task_repo_update_status_failed", "id", id, "status", status, "error", err)
		return err
	}
	r.log.Infow("task_repo_update_status_ok", "id", id, "status", status)
	return nil
}

func (r *taskRepository) MarkRunning(ctx context.Context, id, agentID string) error {
	err := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     domain.TaskStatusRunning,
			"agent_id":   agentID,
			"started_at": gorm.Expr("COALESCE(started_at, ?)", time.Now()),
		}).Error
	if err != nil {
		r.log.Errorw("task_repo_mark_running_failed", "id", id, "agent_id", agentID, "error", err)
		return err
	}
	return nil
}

func (r *taskRepository) Complete(ctx context.Context, id string, status domain.TaskStatus, result domain.JSONB, errMsg string) error {
	updates := map[string]interface{}{
		"status":       status,
		"completed_at": time.Now(),
		"error":        errMsg,
	}
	if status == domain.TaskStatusCompleted {
		updates["progress"] = 100
	}
	if result != nil {
		updates["result"] = result
	}
	if err := r.db.WithContext(ctx).Model(&domain.Task{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		r.log.Errorw("task_repo_complete_failed", "id", id, "status", status, "error", err)
		return err
	}
	r.log.Infow("task_repo_complete_ok", "id", id, "status", status)
	return nil
}
