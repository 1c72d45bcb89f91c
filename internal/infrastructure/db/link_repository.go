package db

import (
	"context"
	"errors"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type linkRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLinkRepository(db *gorm.DB, log *logger.Logger) ports.LinkRepository {
	return &linkRepository{db: db, log: log}
}

func (r *linkRepository) Create(ctx context.Context, link *domain.ScrapedLink) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		r.log.Errorw("link_repo_create_failed", "account_id", link.AccountID, "url", link.URL, "error", err)
		return err
	}
	return nil
}

func (r *linkRepository) GetByID(ctx context.Context, id string) (*domain.ScrapedLink, error) {
	var link domain.ScrapedLink
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&link).Error; err != nil {
		r.log.Errorw("link_repo_get_failed", "id", id, "error", err)
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) GetByURL(ctx context.Context, accountID, url string) (*domain.ScrapedLink, error) {
	var link domain.ScrapedLink
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND url = ?", accountID, url).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorw("link_repo_get_by_url_failed", "account_id", accountID, "error", err)
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) GetByAccount(ctx context.Context, accountID string, status domain.LinkStatus, limit int) ([]domain.ScrapedLink, error) {
	query := r.db.WithContext(ctx).Where("account_id = ?", accountID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var links []domain.ScrapedLink
	if err := query.Order("created_at desc").Find(&links).Error; err != nil {
		r.log.Errorw("link_repo_list_failed", "account_id", accountID, "error", err)
		return nil, err
	}
	return links, nil
}

func (r *linkRepository) Update(ctx context.Context, link *domain.ScrapedLink) error {
	if err := r.db.WithContext(ctx).Save(link).Error; err != nil {
		r.log.Errorw("link_repo_update_failed", "id", link.ID, "error", err)
		return err
	}
	return nil
}

func (r *linkRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.ScrapedLink{}).Error; err != nil {
		r.log.Errorw("link_repo_delete_failed", "id", id, "error", err)
		return err
	}
	return nil
}
