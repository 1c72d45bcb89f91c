package ports

import (
	"context"

	"github.com/botfleet/backend/internal/domain"
)

// ==================== Identity ====================

type SubjectKind string

const (
	SubjectAccount      SubjectKind = "account"
	SubjectAgent        SubjectKind = "agent"
	SubjectRegistration SubjectKind = "registration"
)

// Subject identifies who a verified bearer token belongs to.
type Subject struct {
	Kind SubjectKind
	ID   string
}

// TokenVerifier validates a bearer token presented during a connection
// handshake. No message is processed before verification succeeds.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Subject, error)
}

type TokenService interface {
	TokenVerifier
	IssueAccountToken(accountID string) (string, error)
	IssueRegistrationToken(accountID string) (string, error)
	// IssueAgentToken returns the plaintext token exactly once; only its
	// bcrypt hash is persisted on the agent row.
	IssueAgentToken(ctx context.Context, agentID string) (string, error)
}

// ==================== Agents ====================

type RegisterAgentInput struct {
	AccountID   string
	Label       string
	Fingerprint string
	Address     string
	Metadata    domain.JSONB
}

type AppendLogInput struct {
	AgentID  string
	TaskID   *string
	Level    domain.LogLevel
	Message  string
	Metadata domain.JSONB
}

type AgentService interface {
	// Register creates the agent on first sight of the fingerprint and
	// updates it on every re-registration. The returned token is the
	// agent's durable bearer token, re-issued on each registration.
	Register(ctx context.Context, input RegisterAgentInput) (*domain.Agent, string, error)
	GetAgents(ctx context.Context, accountID string) ([]domain.Agent, error)
	GetAgentByID(ctx context.Context, id string) (*domain.Agent, error)
	DeleteAgent(ctx context.Context, id string) error
	MarkOnline(ctx context.Context, id, address string) error
	MarkOffline(ctx context.Context, id string) error
	Heartbeat(ctx context.Context, id string, status domain.AgentStatus) error
	AppendLog(ctx context.Context, input AppendLogInput) error
}

// ==================== Tasks ====================

type CreateTaskInput struct {
	AccountID    string
	Type         domain.TaskType
	TargetURL    string
	Params       domain.JSONB
	Priority     int
	CredentialID *string
	AgentID      *string
}

type TaskService interface {
	CreateTask(ctx context.Context, input CreateTaskInput) (*domain.Task, error)
	GetTasks(ctx context.Context, accountID string, status domain.TaskStatus, limit int) ([]domain.Task, error)
	GetTaskByID(ctx context.Context, id string) (*domain.Task, error)
	// CancelTask rewrites persisted status only; forwarding the stop
	// command to a connected agent is the dispatcher's job.
	CancelTask(ctx context.Context, id string) (*domain.Task, error)
	MarkRunning(ctx context.Context, taskID, agentID string) error
	CompleteTask(ctx context.Context, taskID string, success bool, result domain.JSONB, errMsg string) error
}

// ==================== Dispatch ====================

// TaskAssignment is a task as delivered to an agent, with any linked
// credential's fields flattened in. Raw secrets are never included.
type TaskAssignment struct {
	TaskID             string          `json:"taskId"`
	Type               domain.TaskType `json:"type"`
	TargetURL          string          `json:"url,omitempty"`
	Params             domain.JSONB    `json:"params,omitempty"`
	Priority           int             `json:"priority"`
	CredentialEmail    string          `json:"credentialEmail,omitempty"`
	CredentialUsername string          `json:"credentialUsername,omitempty"`
	CredentialMetadata domain.JSONB    `json:"credentialMetadata,omitempty"`
}

type DispatchService interface {
	// PushTask attempts server-initiated delivery. agentID may be empty, in
	// which case the registry picks a connected agent. False means no
	// delivery happened and the task stays pending.
	PushTask(ctx context.Context, task *domain.Task, agentID string) (bool, error)
	// NextTask claims the best pending task for a pulling agent.
	// (nil, nil) means no work is available.
	NextTask(ctx context.Context, accountID, agentID string) (*TaskAssignment, error)
	// CancelTask rewrites status and best-effort forwards a stop command.
	CancelTask(ctx context.Context, taskID, agentID string) (*domain.Task, bool, error)
}

// ==================== Ingestion ====================

type LinkCandidate struct {
	URL        string       `json:"url"`
	Title      string       `json:"title,omitempty"`
	Advertiser string       `json:"advertiser,omitempty"`
	Keyword    string       `json:"keyword,omitempty"`
	Source     string       `json:"source,omitempty"`
	Metadata   domain.JSONB `json:"metadata,omitempty"`
}

type IngestResult struct {
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
}

type IngestService interface {
	Ingest(ctx context.Context, accountID string, candidates []LinkCandidate) (*IngestResult, error)
}

// ==================== Credentials ====================

type CredentialInput struct {
	AccountID string
	Label     string
	Email     string
	Username  string
	Password  string
	Metadata  domain.JSONB
}

type CredentialService interface {
	CreateCredential(ctx context.Context, input CredentialInput) (*domain.Credential, error)
	GetCredentials(ctx context.Context, accountID string) ([]domain.Credential, error)
	GetCredentialByID(ctx context.Context, id string) (*domain.Credential, error)
	UpdateCredential(ctx context.Context, id string, input CredentialInput) (*domain.Credential, error)
	DeleteCredential(ctx context.Context, id string) error
}
