package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ==================== ENUMS ====================

type AgentStatus string

const (
	AgentStatusOffline AgentStatus = "offline"
	AgentStatusOnline  AgentStatus = "online"
	AgentStatusBusy    AgentStatus = "busy"
	AgentStatusError   AgentStatus = "error"
)

type TaskType string

const (
	TaskTypeSignup TaskType = "signup"
	TaskTypeScrape TaskType = "scrape"
	TaskTypeCustom TaskType = "custom"
)

type LinkStatus string

const (
	LinkStatusPending  LinkStatus = "pending"
	LinkStatusSignedUp LinkStatus = "signed_up"
	LinkStatusFailed   LinkStatus = "failed"
	LinkStatusSkipped  LinkStatus = "skipped"
)

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelDebug LogLevel = "debug"
)

// ==================== JSONB TYPES ====================

type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan JSONB: invalid type")
	}
	return json.Unmarshal(bytes, j)
}

// Merge shallow-merges other into a copy of j. Keys in other win.
func (j JSONB) Merge(other JSONB) JSONB {
	if len(other) == 0 {
		return j
	}
	merged := make(JSONB, len(j)+len(other))
	for k, v := range j {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// ==================== ENTITIES ====================

// Account is the identity anchor for agents, tasks and dashboards.
// Full user management lives outside this service.
type Account struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name string `gorm:"size:255;not null" json:"name"`
}

// Agent is a remote, user-operated worker process. One row per machine
// fingerprint per account; re-registration updates, never duplicates.
type Agent struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AccountID   string      `gorm:"type:uuid;not null;index" json:"account_id"`
	Label       string      `gorm:"size:255" json:"label"`
	Fingerprint string      `gorm:"size:255;not null" json:"fingerprint"`
	Status      AgentStatus `gorm:"size:20;not null;default:'offline'" json:"status"`
	LastSeenAt  *time.Time  `json:"last_seen_at,omitempty"`
	LastAddress string      `gorm:"size:255" json:"last_address,omitempty"`
	TokenHash   string      `gorm:"type:text" json:"-"`
	Metadata    JSONB       `gorm:"type:jsonb" json:"metadata"`
}

// Task is a unit of automation work tracked through the status lifecycle
// defined in task.go.
type Task struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AccountID    string     `gorm:"type:uuid;not null;index" json:"account_id"`
	AgentID      *string    `gorm:"type:uuid;index" json:"agent_id,omitempty"`
	CredentialID *string    `gorm:"type:uuid" json:"credential_id,omitempty"`
	Type         TaskType   `gorm:"size:20;not null" json:"type"`
	Status       TaskStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	TargetURL    string     `gorm:"type:text" json:"target_url,omitempty"`
	Params       JSONB      `gorm:"type:jsonb" json:"params,omitempty"`
	Priority     int        `gorm:"default:0;index" json:"priority"`
	Progress     int        `gorm:"default:0" json:"progress"`
	Result       JSONB      `gorm:"type:jsonb" json:"result,omitempty"`
	Error        string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// ScrapedLink is a candidate target URL discovered by scraping,
// deduplicated per account on URL.
type ScrapedLink struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AccountID  string     `gorm:"type:uuid;not null;index" json:"account_id"`
	URL        string     `gorm:"type:text;not null" json:"url"`
	Domain     string     `gorm:"size:255;index" json:"domain"`
	Source     string     `gorm:"size:255" json:"source,omitempty"`
	Keyword    string     `gorm:"size:255" json:"keyword,omitempty"`
	Title      string     `gorm:"type:text" json:"title,omitempty"`
	Advertiser string     `gorm:"size:255" json:"advertiser,omitempty"`
	Status     LinkStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	LastError  string     `gorm:"type:text" json:"last_error,omitempty"`
	SignedUpAt *time.Time `json:"signed_up_at,omitempty"`
	Metadata   JSONB      `gorm:"type:jsonb" json:"metadata,omitempty"`
}

// AgentLog is an append-only log line reported by an agent.
type AgentLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	AgentID  string   `gorm:"type:uuid;not null;index" json:"agent_id"`
	TaskID   *string  `gorm:"type:uuid;index" json:"task_id,omitempty"`
	Level    LogLevel `gorm:"size:10;not null;default:'info'" json:"level"`
	Message  string   `gorm:"type:text" json:"message"`
	Metadata JSONB    `gorm:"type:jsonb" json:"metadata,omitempty"`
}

// Credential holds signup material handed to agents with pulled tasks.
// The password is AES-GCM encrypted at rest and never serialized.
type Credential struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AccountID string `gorm:"type:uuid;not null;index" json:"account_id"`
	Label     string `gorm:"size:255" json:"label"`
	Email     string `gorm:"size:255" json:"email,omitempty"`
	Username  string `gorm:"size:255" json:"username,omitempty"`
	Password  string `gorm:"type:text" json:"-"`
	Metadata  JSONB  `gorm:"type:jsonb" json:"metadata,omitempty"`
}
