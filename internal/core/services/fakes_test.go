package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/botfleet/backend/internal/domain"
)

type fakeConn struct {
	mu       sync.Mutex
	messages []interface{}
	closed   bool
	writeErr error
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.messages = append(c.messages, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) sent() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]interface{}, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newFakeAccountRepo(ids ...string) *fakeAccountRepo {
	repo := &fakeAccountRepo{accounts: make(map[string]*domain.Account)}
	for _, id := range ids {
		repo.accounts[id] = &domain.Account{ID: id}
	}
	return repo
}

func (r *fakeAccountRepo) Create(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *account
	r.accounts[account.ID] = &cp
	return nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *account
	return &cp, nil
}

type fakeAgentRepo struct {
	mu     sync.Mutex
	agents map[string]*domain.Agent
}

func newFakeAgentRepo() *fakeAgentRepo {
	return &fakeAgentRepo{agents: make(map[string]*domain.Agent)}
}

func (r *fakeAgentRepo) Create(ctx context.Context, agent *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *agent
	r.agents[agent.ID] = &cp
	return nil
}

func (r *fakeAgentRepo) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[id]
	if !ok {
		return nil, errors.New("agent not found")
	}
	cp := *agent
	return &cp, nil
}

func (r *fakeAgentRepo) GetByFingerprint(ctx context.Context, accountID, fingerprint string) (*domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, agent := range r.agents {
		if agent.AccountID == accountID && agent.Fingerprint == fingerprint {
			cp := *agent
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeAgentRepo) GetByAccount(ctx context.Context, accountID string) ([]domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Agent
	for _, agent := range r.agents {
		if agent.AccountID == accountID {
			out = append(out, *agent)
		}
	}
	return out, nil
}

func (r *fakeAgentRepo) Update(ctx context.Context, agent *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *agent
	r.agents[agent.ID] = &cp
	return nil
}

func (r *fakeAgentRepo) UpdateStatus(ctx context.Context, id string, status domain.AgentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if agent, ok := r.agents[id]; ok {
		agent.Status = status
	}
	return nil
}

func (r *fakeAgentRepo) UpdatePresence(ctx context.Context, id string, status domain.AgentStatus, seenAt time.Time, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[id]
	if !ok {
		return errors.New("agent not found")
	}
	agent.Status = status
	agent.LastSeenAt = &seenAt
	if address != "" {
		agent.LastAddress = address
	}
	return nil
}

func (r *fakeAgentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, id)
	return nil
}

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
	// pendingOrder fixes the order ListPending returns candidates in.
	pendingOrder []string
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*domain.Task)}
}

func (r *fakeTaskRepo) put(task *domain.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *task
	r.tasks[task.ID] = &cp
	if cp.Status == domain.TaskStatusPending {
		r.pendingOrder = append(r.pendingOrder, cp.ID)
	}
}

func (r *fakeTaskRepo) Create(ctx context.Context, task *domain.Task) error {
	r.put(task)
	return nil
}

func (r *fakeTaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, errors.New("task not found")
	}
	cp := *task
	return &cp, nil
}

func (r *fakeTaskRepo) GetByAccount(ctx context.Context, accountID string, status domain.TaskStatus, limit int) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Task
	for _, task := range r.tasks {
		if task.AccountID != accountID {
			continue
		}
		if status != "" && task.Status != status {
			continue
		}
		out = append(out, *task)
	}
	return out, nil
}

func (r *fakeTaskRepo) ListPending(ctx context.Context, accountID, agentID string) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Task
	for _, id := range r.pendingOrder {
		task, ok := r.tasks[id]
		if !ok || task.Status != domain.TaskStatusPending || task.AccountID != accountID {
			continue
		}
		if task.AgentID != nil && *task.AgentID != agentID {
			continue
		}
		out = append(out, *task)
	}
	return out, nil
}

func (r *fakeTaskRepo) Claim(ctx context.Context, taskID, agentID string, startedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok || task.Status != domain.TaskStatusPending {
		return false, nil
	}
	task.Status = domain.TaskStatusQueued
	task.AgentID = &agentID
	return true, nil
}

func (r *fakeTaskRepo) Update(ctx context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

func (r *fakeTaskRepo) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return errors.New("task not found")
	}
	task.Status = status
	return nil
}

func (r *fakeTaskRepo) MarkRunning(ctx context.Context, id, agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return errors.New("task not found")
	}
	task.Status = domain.TaskStatusRunning
	task.AgentID = &agentID
	now := time.Now()
	if task.StartedAt == nil {
		task.StartedAt = &now
	}
	return nil
}

func (r *fakeTaskRepo) Complete(ctx context.Context, id string, status domain.TaskStatus, result domain.JSONB, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return errors.New("task not found")
	}
	task.Status = status
	task.Result = result
	task.Error = errMsg
	now := time.Now()
	task.CompletedAt = &now
	return nil
}

type fakeLinkRepo struct {
	mu    sync.Mutex
	links map[string]*domain.ScrapedLink
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{links: make(map[string]*domain.ScrapedLink)}
}

func (r *fakeLinkRepo) Create(ctx context.Context, link *domain.ScrapedLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *link
	r.links[link.ID] = &cp
	return nil
}

func (r *fakeLinkRepo) GetByID(ctx context.Context, id string) (*domain.ScrapedLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.links[id]
	if !ok {
		return nil, errors.New("link not found")
	}
	cp := *link
	return &cp, nil
}

func (r *fakeLinkRepo) GetByURL(ctx context.Context, accountID, url string) (*domain.ScrapedLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, link := range r.links {
		if link.AccountID == accountID && link.URL == url {
			cp := *link
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeLinkRepo) GetByAccount(ctx context.Context, accountID string, status domain.LinkStatus, limit int) ([]domain.ScrapedLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ScrapedLink
	for _, link := range r.links {
		if link.AccountID != accountID {
			continue
		}
		if status != "" && link.Status != status {
			continue
		}
		out = append(out, *link)
	}
	return out, nil
}

func (r *fakeLinkRepo) Update(ctx context.Context, link *domain.ScrapedLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *link
	r.links[link.ID] = &cp
	return nil
}

func (r *fakeLinkRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.links, id)
	return nil
}

type fakeCredentialRepo struct {
	mu    sync.Mutex
	creds map[string]*domain.Credential
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{creds: make(map[string]*domain.Credential)}
}

func (r *fakeCredentialRepo) Create(ctx context.Context, credential *domain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *credential
	r.creds[credential.ID] = &cp
	return nil
}

func (r *fakeCredentialRepo) GetByID(ctx context.Context, id string) (*domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.creds[id]
	if !ok {
		return nil, errors.New("credential not found")
	}
	cp := *cred
	return &cp, nil
}

func (r *fakeCredentialRepo) GetByAccount(ctx context.Context, accountID string) ([]domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Credential
	for _, cred := range r.creds {
		if cred.AccountID == accountID {
			out = append(out, *cred)
		}
	}
	return out, nil
}

func (r *fakeCredentialRepo) Update(ctx context.Context, credential *domain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *credential
	r.creds[credential.ID] = &cp
	return nil
}

func (r *fakeCredentialRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.creds, id)
	return nil
}

type fakeAgentLogRepo struct {
	mu   sync.Mutex
	logs []domain.AgentLog
}

func (r *fakeAgentLogRepo) Create(ctx context.Context, log *domain.AgentLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return nil
}

func (r *fakeAgentLogRepo) GetByAgent(ctx context.Context, agentID string, limit int) ([]domain.AgentLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AgentLog
	for _, entry := range r.logs {
		if entry.AgentID == agentID {
			out = append(out, entry)
		}
	}
	return out, nil
}
