package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	"github.com/botfleet/backend/pkg/utils/keygen"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	agentTokenPrefix = "agt_"
	agentSecretLen   = 40
	accountTokenTTL  = 30 * 24 * time.Hour
)

type TokenServiceConfig struct {
	AgentRepo       ports.AgentRepository
	Logger          *logger.Logger
	Secret          string
	RegistrationTTL time.Duration
}

// TokenSvc verifies the two bearer token shapes the platform accepts:
// HS256 JWTs for accounts and short-lived registration tokens, and opaque
// "agt_" tokens for agents, checked against the bcrypt hash on the row.
type TokenSvc struct {
	agentRepo       ports.AgentRepository
	log             *logger.Logger
	secret          []byte
	registrationTTL time.Duration
}

func NewTokenService(cfg TokenServiceConfig) *TokenSvc {
	ttl := cfg.RegistrationTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TokenSvc{
		agentRepo:       cfg.AgentRepo,
		log:             cfg.Logger,
		secret:          []byte(cfg.Secret),
		registrationTTL: ttl,
	}
}

type subjectClaims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

func (s *TokenSvc) Verify(ctx context.Context, token string) (*ports.Subject, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}
	if strings.HasPrefix(token, agentTokenPrefix) {
		return s.verifyAgentToken(ctx, token)
	}
	return s.verifyJWT(token)
}

func (s *TokenSvc) verifyJWT(token string) (*ports.Subject, error) {
	claims := &subjectClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	var kind ports.SubjectKind
	switch claims.Kind {
	case string(ports.SubjectAccount):
		kind = ports.SubjectAccount
	case string(ports.SubjectRegistration):
		kind = ports.SubjectRegistration
	default:
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return &ports.Subject{Kind: kind, ID: claims.Subject}, nil
}

func (s *TokenSvc) verifyAgentToken(ctx context.Context, token string) (*ports.Subject, error) {
	rest := strings.TrimPrefix(token, agentTokenPrefix)
	parts := strings.SplitN(rest, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, ErrTokenInvalid
	}
	agentID, secret := parts[0], parts[1]

	agent, err := s.agentRepo.GetByID(ctx, agentID)
	if err != nil || agent == nil || agent.TokenHash == "" {
		return nil, ErrTokenInvalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(agent.TokenHash), []byte(secret)); err != nil {
		s.log.Warnw("token_agent_secret_mismatch", "agent_id", agentID)
		return nil, ErrTokenInvalid
	}
	return &ports.Subject{Kind: ports.SubjectAgent, ID: agentID}, nil
}

func (s *TokenSvc) IssueAccountToken(accountID string) (string, error) {
	return s.signJWT(accountID, ports.SubjectAccount, accountTokenTTL)
}

func (s *TokenSvc) IssueRegistrationToken(accountID string) (string, error) {
	return s.signJWT(accountID, ports.SubjectRegistration, s.registrationTTL)
}

func (s *TokenSvc) signJWT(subject string, kind ports.SubjectKind, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := subjectClaims{
		Kind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// IssueAgentToken rotates the agent's durable bearer token. The plaintext
// is returned exactly once; only the bcrypt hash is persisted.
func (s *TokenSvc) IssueAgentToken(ctx context.Context, agentID string) (string, error) {
	agent, err := s.agentRepo.GetByID(ctx, agentID)
	if err != nil {
		return "", ErrAgentNotFound
	}

	secret := keygen.GenerateRandomSecret(agentSecretLen)
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	agent.TokenHash = string(hash)
	if err := s.agentRepo.Update(ctx, agent); err != nil {
		return "", err
	}

	s.log.Infow("token_agent_issued", "agent_id", agentID)
	return agentTokenPrefix + agentID + "." + secret, nil
}
