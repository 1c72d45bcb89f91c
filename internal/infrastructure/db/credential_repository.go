package db

import (
	"context"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type credentialRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCredentialRepository(db *gorm.DB, log *logger.Logger) ports.CredentialRepository {
	return &credentialRepository{db: db, log: log}
}

func (r *credentialRepository) Create(ctx context.Context, credential *domain.Credential) error {
	if err := r.db.WithContext(ctx).Create(credential).Error; err != nil {
		r.log.Errorw("credential_repo_create_failed", "account_id", credential.AccountID, "error", err)
		return err
	}
	return nil
}

func (r *credentialRepository) GetByID(ctx context.Context, id string) (*domain.Credential, error) {
	var credential domain.Credential
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&credential).Error; err != nil {
		r.log.Errorw("credential_repo_get_failed", "id", id, "error", err)
		return nil, err
	}
	return &credential, nil
}

func (r *credentialRepository) GetByAccount(ctx context.Context, accountID string) ([]domain.Credential, error) {
	var credentials []domain.Credential
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Find(&credentials).Error; err != nil {
		r.log.Errorw("credential_repo_list_failed", "account_id", accountID, "error", err)
		return nil, err
	}
	return credentials, nil
}

func (r *credentialRepository) Update(ctx context.Context, credential *domain.Credential) error {
	if err := r.db.WithContext(ctx).Save(credential).Error; err != nil {
		r.log.Errorw("credential_repo_update_failed", "id", credential.ID, "error", err)
		return err
	}
	return nil
}

func (r *credentialRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Credential{}).Error; err != nil {
		r.log.Errorw("credential_repo_delete_failed", "id", id, "error", err)
		return err
	}
	return nil
}
