package db

import (
	"context"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type agentLogRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgentLogRepository(db *gorm.DB, log *logger.Logger) ports.AgentLogRepository {
	return &agentLogRepository{db: db, log: log}
}

func (r *agentLogRepository) Create(ctx context.Context, entry *domain.AgentLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.log.Errorw("agent_log_repo_create_failed", "agent_id", entry.AgentID, "error", err)
		return err
	}
	return nil
}

func (r *agentLogRepository) GetByAgent(ctx context.Context, agentID string, limit int) ([]domain.AgentLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []domain.AgentLog
	err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		r.log.Errorw("agent_log_repo_list_failed", "agent_id", agentID, "error", err)
		return nil, err
	}
	return entries, nil
}
