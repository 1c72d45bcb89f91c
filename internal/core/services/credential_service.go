package services

import (
	"context"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	"github.com/botfleet/backend/pkg/utils/crypto"
	"github.com/botfleet/backend/pkg/utils/keygen"
)

type CredentialServiceConfig struct {
	Repository    ports.CredentialRepository
	Logger        *logger.Logger
	EncryptionKey string
}

// CredentialSvc stores signup credentials. Passwords are AES-GCM encrypted
// at rest and only ever decrypted server-side.
type CredentialSvc struct {
	repo          ports.CredentialRepository
	log           *logger.Logger
	encryptionKey string
}

func NewCredentialService(cfg CredentialServiceConfig) *CredentialSvc {
	return &CredentialSvc{
		repo:          cfg.Repository,
		log:           cfg.Logger,
		encryptionKey: cfg.EncryptionKey,
	}
}

func (s *CredentialSvc) CreateCredential(ctx context.Context, input ports.CredentialInput) (*domain.Credential, error) {
	if input.AccountID == "" || (input.Email == "" && input.Username == "") {
		return nil, ErrCredentialInvalidInput
	}

	cred := &domain.Credential{
		ID:        keygen.GenerateUUID(),
		AccountID: input.AccountID,
		Label:     input.Label,
		Email:     input.Email,
		Username:  input.Username,
		Metadata:  input.Metadata,
	}
	if input.Password != "" {
		encrypted, err := crypto.Encrypt(input.Password, s.encryptionKey)
		if err != nil {
			return nil, err
		}
		cred.Password = encrypted
	}

	if err := s.repo.Create(ctx, cred); err != nil {
		return nil, err
	}
	s.log.Infow("credential_created", "credential_id", cred.ID, "account_id", cred.AccountID)
	return cred, nil
}

func (s *CredentialSvc) GetCredentials(ctx context.Context, accountID string) ([]domain.Credential, error) {
	return s.repo.GetByAccount(ctx, accountID)
}

func (s *CredentialSvc) GetCredentialByID(ctx context.Context, id string) (*domain.Credential, error) {
	cred, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrCredentialNotFound
	}
	return cred, nil
}

func (s *CredentialSvc) UpdateCredential(ctx context.Context, id string, input ports.CredentialInput) (*domain.Credential, error) {
	cred, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrCredentialNotFound
	}

	if input.Label != "" {
		cred.Label = input.Label
	}
	if input.Email != "" {
		cred.Email = input.Email
	}
	if input.Username != "" {
		cred.Username = input.Username
	}
	if input.Password != "" {
		encrypted, err := crypto.Encrypt(input.Password, s.encryptionKey)
		if err != nil {
			return nil, err
		}
		cred.Password = encrypted
	}
	cred.Metadata = cred.Metadata.Merge(input.Metadata)

	if err := s.repo.Update(ctx, cred); err != nil {
		return nil, err
	}
	s.log.Infow("credential_updated", "credential_id", id)
	return cred, nil
}

func (s *CredentialSvc) DeleteCredential(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Infow("credential_deleted", "credential_id", id)
	return nil
}
