package db

import (
	"context"
	"errors"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type accountRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccountRepository(db *gorm.DB, log *logger.Logger) ports.AccountRepository {
	return &accountRepository{db: db, log: log}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		r.log.Errorw("account_repo_create_failed", "name", account.Name, "error", err)
		return err
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	var account domain.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorw("account_repo_get_failed", "id", id, "error", err)
		return nil, err
	}
	return &account, nil
}
