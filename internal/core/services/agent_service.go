package services

import (
	"context"
	"time"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	"github.com/botfleet/backend/pkg/utils/keygen"
)

type AgentServiceConfig struct {
	Repository ports.AgentRepository
	Accounts   ports.AccountRepository
	LogRepo    ports.AgentLogRepository
	Tokens     ports.TokenService
	Logger     *logger.Logger
}

type AgentSvc struct {
	repo     ports.AgentRepository
	accounts ports.AccountRepository
	logRepo  ports.AgentLogRepository
	tokens   ports.TokenService
	log      *logger.Logger
}

func NewAgentService(cfg AgentServiceConfig) *AgentSvc {
	return &AgentSvc{
		repo:     cfg.Repository,
		accounts: cfg.Accounts,
		logRepo:  cfg.LogRepo,
		tokens:   cfg.Tokens,
		log:      cfg.Logger,
	}
}

// Register creates the agent on first sight of (account, fingerprint) and
// updates the existing row on every later registration; the fingerprint is
// the identity, so re-installs never duplicate agents. A fresh bearer token
// is issued either way.
func (s *AgentSvc) Register(ctx context.Context, input ports.RegisterAgentInput) (*domain.Agent, string, error) {
	if input.AccountID == "" || input.Fingerprint == "" {
		return nil, "", ErrAgentInvalidInput
	}

	// A registration token proves the account existed when it was issued;
	// the account may have been deleted since.
	account, err := s.accounts.GetByID(ctx, input.AccountID)
	if err != nil {
		return nil, "", err
	}
	if account == nil {
		return nil, "", ErrAccountNotFound
	}

	agent, err := s.repo.GetByFingerprint(ctx, input.AccountID, input.Fingerprint)
	if err != nil {
		return nil, "", err
	}

	if agent == nil {
		agent = &domain.Agent{
			ID:          keygen.GenerateUUID(),
			AccountID:   input.AccountID,
			Label:       input.Label,
			Fingerprint: input.Fingerprint,
			Status:      domain.AgentStatusOffline,
			LastAddress: input.Address,
			Metadata:    input.Metadata,
		}
		if err := s.repo.Create(ctx, agent); err != nil {
			return nil, "", err
		}
		s.log.Infow("agent_registered", "agent_id", agent.ID, "account_id", input.AccountID, "fingerprint", input.Fingerprint)
	} else {
		if input.Label != "" {
			agent.Label = input.Label
		}
		if input.Address != "" {
			agent.LastAddress = input.Address
		}
		agent.Metadata = agent.Metadata.Merge(input.Metadata)
		if err := s.repo.Update(ctx, agent); err != nil {
			return nil, "", err
		}
		s.log.Infow("agent_reregistered", "agent_id", agent.ID, "account_id", input.AccountID)
	}

	token, err := s.tokens.IssueAgentToken(ctx, agent.ID)
	if err != nil {
		return nil, "", err
	}
	return agent, token, nil
}

func (s *AgentSvc) GetAgents(ctx context.Context, accountID string) ([]domain.Agent, error) {
	return s.repo.GetByAccount(ctx, accountID)
}

func (s *AgentSvc) GetAgentByID(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrAgentNotFound
	}
	return agent, nil
}

func (s *AgentSvc) DeleteAgent(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Infow("agent_deleted", "agent_id", id)
	return nil
}

// MarkOnline records the connect presence transition.
func (s *AgentSvc) MarkOnline(ctx context.Context, id, address string) error {
	return s.repo.UpdatePresence(ctx, id, domain.AgentStatusOnline, time.Now(), address)
}

// MarkOffline records the disconnect presence transition. The task the
// agent may have been running keeps its last reported status.
func (s *AgentSvc) MarkOffline(ctx context.Context, id string) error {
	return s.repo.UpdatePresence(ctx, id, domain.AgentStatusOffline, time.Now(), "")
}

// Heartbeat refreshes last-seen and applies the reported status.
func (s *AgentSvc) Heartbeat(ctx context.Context, id string, status domain.AgentStatus) error {
	if status == "" {
		status = domain.AgentStatusOnline
	}
	return s.repo.UpdatePresence(ctx, id, status, time.Now(), "")
}

func (s *AgentSvc) AppendLog(ctx context.Context, input ports.AppendLogInput) error {
	level := input.Level
	switch level {
	case domain.LogLevelInfo, domain.LogLevelWarn, domain.LogLevelError, domain.LogLevelDebug:
	default:
		level = domain.LogLevelInfo
	}
	return s.logRepo.Create(ctx, &domain.AgentLog{
		AgentID:  input.AgentID,
		TaskID:   input.TaskID,
		Level:    level,
		Message:  input.Message,
		Metadata: input.Metadata,
	})
}
