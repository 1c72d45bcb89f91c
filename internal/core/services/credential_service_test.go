package services

import (
	"context"
	"testing"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	"github.com/botfleet/backend/pkg/utils/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEncryptionKey = "unit-test-encryption-key"

func newCredentialFixture() (*CredentialSvc, *fakeCredentialRepo) {
	repo := newFakeCredentialRepo()
	svc := NewCredentialService(CredentialServiceConfig{
		Repository:    repo,
		Logger:        logger.NewNop(),
		EncryptionKey: testEncryptionKey,
	})
	return svc, repo
}

func TestCreateCredentialEncryptsPassword(t *testing.T) {
	svc, repo := newCredentialFixture()
	ctx := context.Background()

	cred, err := svc.CreateCredential(ctx, ports.CredentialInput{
		AccountID: "acc-1",
		Label:     "signup pool",
		Email:     "bot@example.com",
		Password:  "hunter2",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", cred.Password, "password is never stored in plaintext")

	stored, err := repo.GetByID(ctx, cred.ID)
	require.NoError(t, err)
	plain, err := crypto.Decrypt(stored.Password, testEncryptionKey)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)
}

func TestCreateCredentialRequiresIdentity(t *testing.T) {
	svc, _ := newCredentialFixture()

	_, err := svc.CreateCredential(context.Background(), ports.CredentialInput{AccountID: "acc-1"})
	assert.ErrorIs(t, err, ErrCredentialInvalidInput)

	_, err = svc.CreateCredential(context.Background(), ports.CredentialInput{Email: "x@example.com"})
	assert.ErrorIs(t, err, ErrCredentialInvalidInput)
}

func TestUpdateCredentialKeepsPasswordWhenOmitted(t *testing.T) {
	svc, repo := newCredentialFixture()
	ctx := context.Background()

	cred, err := svc.CreateCredential(ctx, ports.CredentialInput{
		AccountID: "acc-1",
		Username:  "bot",
		Password:  "hunter2",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateCredential(ctx, cred.ID, ports.CredentialInput{Label: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Label)
	assert.Equal(t, cred.Password, updated.Password, "omitted password leaves the ciphertext untouched")

	_, err = svc.GetCredentialByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrCredentialNotFound)

	require.NoError(t, svc.DeleteCredential(ctx, cred.ID))
	_, err = repo.GetByID(ctx, cred.ID)
	assert.Error(t, err)
}
