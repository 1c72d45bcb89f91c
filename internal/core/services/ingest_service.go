package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	"github.com/botfleet/backend/pkg/utils/keygen"
)

type IngestServiceConfig struct {
	LinkRepo ports.LinkRepository
	Logger   *logger.Logger
}

// IngestSvc bulk-inserts scraped links with per-account URL uniqueness.
type IngestSvc struct {
	repo ports.LinkRepository
	log  *logger.Logger
}

func NewIngestService(cfg IngestServiceConfig) *IngestSvc {
	return &IngestSvc{repo: cfg.LinkRepo, log: cfg.Logger}
}

// Ingest processes the whole batch: existing (account, url) rows get
// non-empty fields merged and metadata shallow-merged without ever touching
// status; new URLs are inserted as pending. Unparseable URLs get an empty
// derived domain and do not stop the batch.
func (s *IngestSvc) Ingest(ctx context.Context, accountID string, candidates []ports.LinkCandidate) (*ports.IngestResult, error) {
	result := &ports.IngestResult{}

	for _, cand := range candidates {
		if cand.URL == "" {
			s.log.Warnw("ingest_empty_url_skipped", "account_id", accountID)
			continue
		}

		existing, err := s.repo.GetByURL(ctx, accountID, cand.URL)
		if err != nil {
			return nil, err
		}

		if existing != nil {
			mergeCandidate(existing, cand)
			if err := s.repo.Update(ctx, existing); err != nil {
				return nil, err
			}
			result.Duplicates++
			continue
		}

		link := &domain.ScrapedLink{
			ID:         keygen.GenerateUUID(),
			AccountID:  accountID,
			URL:        cand.URL,
			Domain:     deriveDomain(cand.URL),
			Source:     cand.Source,
			Keyword:    cand.Keyword,
			Title:      cand.Title,
			Advertiser: cand.Advertiser,
			Status:     domain.LinkStatusPending,
			Metadata:   cand.Metadata,
		}
		if err := s.repo.Create(ctx, link); err != nil {
			return nil, err
		}
		result.Created++
	}

	s.log.Infow("ingest_batch_done", "account_id", accountID, "created", result.Created, "duplicates", result.Duplicates)
	return result, nil
}

// mergeCandidate copies provided non-empty fields onto the stored row.
// Status is never rewritten, so failed or signed_up links stay that way.
func mergeCandidate(link *domain.ScrapedLink, cand ports.LinkCandidate) {
	if cand.Title != "" {
		link.Title = cand.Title
	}
	if cand.Advertiser != "" {
		link.Advertiser = cand.Advertiser
	}
	if cand.Keyword != "" {
		link.Keyword = cand.Keyword
	}
	if cand.Source != "" {
		link.Source = cand.Source
	}
	link.Metadata = link.Metadata.Merge(cand.Metadata)
}

func deriveDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
