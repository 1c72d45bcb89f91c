package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenFixture(repo *fakeAgentRepo) *TokenSvc {
	return NewTokenService(TokenServiceConfig{
		AgentRepo:       repo,
		Logger:          logger.NewNop(),
		Secret:          "test-secret",
		RegistrationTTL: time.Minute,
	})
}

func TestAccountTokenRoundTrip(t *testing.T) {
	svc := newTokenFixture(newFakeAgentRepo())

	token, err := svc.IssueAccountToken("acc-1")
	require.NoError(t, err)

	subject, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, ports.SubjectAccount, subject.Kind)
	assert.Equal(t, "acc-1", subject.ID)
}

func TestRegistrationTokenKindIsDistinct(t *testing.T) {
	svc := newTokenFixture(newFakeAgentRepo())

	token, err := svc.IssueRegistrationToken("acc-1")
	require.NoError(t, err)

	subject, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, ports.SubjectRegistration, subject.Kind)
	assert.NotEqual(t, ports.SubjectAccount, subject.Kind)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := newTokenFixture(newFakeAgentRepo())

	for _, token := range []string{"", "not-a-jwt", "agt_", "agt_only-id", "agt_.secret"} {
		_, err := svc.Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrTokenInvalid, "token %q", token)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenService(TokenServiceConfig{
		AgentRepo: newFakeAgentRepo(),
		Logger:    logger.NewNop(),
		Secret:    "other-secret",
	})
	verifier := newTokenFixture(newFakeAgentRepo())

	token, err := issuer.IssueAccountToken("acc-1")
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAgentTokenIssueAndVerify(t *testing.T) {
	repo := newFakeAgentRepo()
	repo.Create(context.Background(), &domain.Agent{ID: "agent-1", AccountID: "acc-1"})
	svc := newTokenFixture(repo)

	token, err := svc.IssueAgentToken(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "agt_agent-1."))

	subject, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, ports.SubjectAgent, subject.Kind)
	assert.Equal(t, "agent-1", subject.ID)

	stored, err := repo.GetByID(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.TokenHash)
	assert.NotContains(t, token, stored.TokenHash, "plaintext secret is never the stored hash")
}

func TestAgentTokenRotationInvalidatesOld(t *testing.T) {
	repo := newFakeAgentRepo()
	repo.Create(context.Background(), &domain.Agent{ID: "agent-1", AccountID: "acc-1"})
	svc := newTokenFixture(repo)

	old, err := svc.IssueAgentToken(context.Background(), "agent-1")
	require.NoError(t, err)
	fresh, err := svc.IssueAgentToken(context.Background(), "agent-1")
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), old)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	subject, err := svc.Verify(context.Background(), fresh)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", subject.ID)
}

func TestAgentTokenUnknownAgent(t *testing.T) {
	svc := newTokenFixture(newFakeAgentRepo())

	_, err := svc.Verify(context.Background(), "agt_ghost.somesecret")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.IssueAgentToken(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := NewTokenService(TokenServiceConfig{
		AgentRepo:       newFakeAgentRepo(),
		Logger:          logger.NewNop(),
		Secret:          "test-secret",
		RegistrationTTL: -time.Minute,
	})

	// A negative TTL would be clamped by the constructor, so sign directly.
	token, err := svc.signJWT("acc-1", ports.SubjectRegistration, -time.Minute)
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
