package ports

import (
	"context"
	"time"

	"github.com/botfleet/backend/internal/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	// GetByID returns (nil, nil) when no such account exists.
	GetByID(ctx context.Context, id string) (*domain.Account, error)
}

type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetByFingerprint(ctx context.Context, accountID, fingerprint string) (*domain.Agent, error)
	GetByAccount(ctx context.Context, accountID string) ([]domain.Agent, error)
	Update(ctx context.Context, agent *domain.Agent) error
	UpdateStatus(ctx context.Context, id string, status domain.AgentStatus) error
	UpdatePresence(ctx context.Context, id string, status domain.AgentStatus, seenAt time.Time, address string) error
	Delete(ctx context.Context, id string) error
}

type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	GetByAccount(ctx context.Context, accountID string, status domain.TaskStatus, limit int) ([]domain.Task, error)
	// ListPending returns pending tasks for the account that are unassigned
	// or already assigned to agentID, highest priority first, oldest first.
	ListPending(ctx context.Context, accountID, agentID string) ([]domain.Task, error)
	// Claim conditionally moves a pending task to queued and assigns it to
	// agentID. Returns false when another caller claimed it first.
	Claim(ctx context.Context, taskID, agentID string, startedAt time.Time) (bool, error)
	Update(ctx context.Context, task *domain.Task) error
	UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) error
	MarkRunning(ctx context.Context, id, agentID string) error
	Complete(ctx context.Context, id string, status domain.TaskStatus, result domain.JSONB, errMsg string) error
}

type LinkRepository interface {
	Create(ctx context.Context, link *domain.ScrapedLink) error
	GetByID(ctx context.Context, id string) (*domain.ScrapedLink, error)
	// GetByURL returns (nil, nil) when no row exists for (accountID, url).
	GetByURL(ctx context.Context, accountID, url string) (*domain.ScrapedLink, error)
	GetByAccount(ctx context.Context, accountID string, status domain.LinkStatus, limit int) ([]domain.ScrapedLink, error)
	Update(ctx context.Context, link *domain.ScrapedLink) error
	Delete(ctx context.Context, id string) error
}

type AgentLogRepository interface {
	Create(ctx context.Context, log *domain.AgentLog) error
	GetByAgent(ctx context.Context, agentID string, limit int) ([]domain.AgentLog, error)
}

type CredentialRepository interface {
	Create(ctx context.Context, credential *domain.Credential) error
	GetByID(ctx context.Context, id string) (*domain.Credential, error)
	GetByAccount(ctx context.Context, accountID string) ([]domain.Credential, error)
	Update(ctx context.Context, credential *domain.Credential) error
	Delete(ctx context.Context, id string) error
}
