package db

import (
	"github.com/botfleet/backend/internal/domain"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Account{},
		&domain.Agent{},
		&domain.Task{},
		&domain.ScrapedLink{},
		&domain.AgentLog{},
		&domain.Credential{},
	)
	if err != nil {
		return err
	}

	return createCustomIndexes(db)
}

func createCustomIndexes(db *gorm.DB) error {
	// One agent row per machine fingerprint per account
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_agents_account_fingerprint
		ON agents (account_id, fingerprint)
	`).Error; err != nil {
		return err
	}

	// One scraped link row per URL per account
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_scraped_links_account_url
		ON scraped_links (account_id, url)
	`).Error; err != nil {
		return err
	}

	// Pull-dispatch candidate scan: pending tasks by priority then age
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tasks_pending_pick
		ON tasks (account_id, priority DESC, created_at ASC)
		WHERE status = 'pending'
	`).Error; err != nil {
		return err
	}

	return nil
}
