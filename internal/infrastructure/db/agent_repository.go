package db

import (
	"context"
	"errors"
	"time"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type agentRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgentRepository(db *gorm.DB, log *logger.Logger) ports.AgentRepository {
	return &agentRepository{db: db, log: log}
}

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	if err := r.db.WithContext(ctx).Create(agent).Error; err != nil {
		r.log.Errorw("agent_repo_create_failed", "account_id", agent.AccountID, "fingerprint", agent.Fingerprint, "error", err)
		return err
	}
	r.log.Infow("agent_repo_create_ok", "id", agent.ID, "account_id", agent.AccountID)
	return nil
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	var agent domain.Agent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&agent).Error; err != nil {
		r.log.Errorw("agent_repo_get_failed", "id", id, "error", err)
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) GetByFingerprint(ctx context.Context, accountID, fingerprint string) (*domain.Agent, error) {
	var agent domain.Agent
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND fingerprint = ?", accountID, fingerprint).
		First(&agent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorw("agent_repo_get_by_fingerprint_failed", "account_id", accountID, "error", err)
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) GetByAccount(ctx context.Context, accountID string) ([]domain.Agent, error) {
	var agents []domain.Agent
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Find(&agents).Error; err != nil {
		r.log.Errorw("agent_repo_list_failed", "account_id", accountID, "error", err)
		return nil, err
	}
	return agents, nil
}

func (r *agentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	if err := r.db.WithContext(ctx).Save(agent).Error; err != nil {
		r.log.Errorw("agent_repo_update_failed", "id", agent.ID, "error", err)
		return err
	}
	return nil
}

func (r *agentRepository) UpdateStatus(ctx context.Context, id string, status domain.AgentStatus) error {
	if err := r.db.WithContext(ctx).Model(&domain.Agent{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		r.log.Errorw("agent_repo_update_status_failed", "id", id, "status", status, "error", err)
		return err
	}
	r.log.Infow("agent_repo_update_status_ok", "id", id, "status", status)
	return nil
}

func (r *agentRepository) UpdatePresence(ctx context.Context, id string, status domain.AgentStatus, seenAt time.Time, address string) error {
	updates := map[string]interface{}{
		"status":       status,
		"last_seen_at": seenAt,
	}
	if address != "" {
		updates["last_address"] = address
	}
	if err := r.db.WithContext(ctx).Model(&domain.Agent{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		r.log.Errorw("agent_repo_update_presence_failed", "id", id, "status", status, "error", err)
		return err
	}
	return nil
}

func (r *agentRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Agent{}).Error; err != nil {
		r.log.Errorw("agent_repo_delete_failed", "id", id, "error", err)
		return err
	}
	r.log.Infow("agent_repo_delete_ok", "id", id)
	return nil
}
