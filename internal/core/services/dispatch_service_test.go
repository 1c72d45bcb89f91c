package services

import (
	"context"
	"testing"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatchFixture() (*DispatchSvc, *fakeTaskRepo, *fakeCredentialRepo, *Registry) {
	taskRepo := newFakeTaskRepo()
	credRepo := newFakeCredentialRepo()
	registry := NewRegistry(logger.NewNop())
	svc := NewDispatchService(DispatchServiceConfig{
		TaskRepo:       taskRepo,
		CredentialRepo: credRepo,
		Registry:       registry,
		Logger:         logger.NewNop(),
	})
	return svc, taskRepo, credRepo, registry
}

func pendingTask(id, accountID string, priority int) *domain.Task {
	return &domain.Task{
		ID:        id,
		AccountID: accountID,
		Type:      domain.TaskTypeScrape,
		Status:    domain.TaskStatusPending,
		Priority:  priority,
	}
}

func TestPushTaskNoAgentConnected(t *testing.T) {
	svc, repo, _, _ := newDispatchFixture()
	task := pendingTask("t1", "acc-a", 0)
	repo.put(task)

	dispatched, err := svc.PushTask(context.Background(), task, "")
	require.NoError(t, err)
	assert.False(t, dispatched)

	stored, err := repo.GetByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, stored.Status, "undelivered task stays pending")
}

func TestPushTaskDeliversAndClaims(t *testing.T) {
	svc, repo, _, registry := newDispatchFixture()
	task := pendingTask("t1", "acc-a", 0)
	repo.put(task)

	conn := &fakeConn{}
	registry.RegisterAgent("acc-a", "agent-1", conn)

	dispatched, err := svc.PushTask(context.Background(), task, "")
	require.NoError(t, err)
	assert.True(t, dispatched)

	msgs := conn.sent()
	require.Len(t, msgs, 1)
	ev := msgs[0].(Event)
	assert.Equal(t, "task:execute", ev.Event)
	assignment := ev.Data.(*ports.TaskAssignment)
	assert.Equal(t, "t1", assignment.TaskID)

	stored, err := repo.GetByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusQueued, stored.Status)
	require.NotNil(t, stored.AgentID)
	assert.Equal(t, "agent-1", *stored.AgentID)
}

func TestPushTaskAlreadyClaimed(t *testing.T) {
	svc, repo, _, registry := newDispatchFixture()
	task := pendingTask("t1", "acc-a", 0)
	task.Status = domain.TaskStatusQueued
	repo.put(task)
	registry.RegisterAgent("acc-a", "agent-1", &fakeConn{})

	dispatched, err := svc.PushTask(context.Background(), task, "")
	require.NoError(t, err)
	assert.False(t, dispatched, "a lost claim reports not dispatched")
}

func TestNextTaskOrdersAndClaims(t *testing.T) {
	svc, repo, _, _ := newDispatchFixture()

	// pendingOrder mirrors the repository's priority-desc, oldest-first sort.
	repo.put(pendingTask("high", "acc-a", 10))
	repo.put(pendingTask("old-low", "acc-a", 1))
	repo.put(pendingTask("new-low", "acc-a", 1))

	first, err := svc.NextTask(context.Background(), "acc-a", "agent-1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "high", first.TaskID)

	second, err := svc.NextTask(context.Background(), "acc-a", "agent-1")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "old-low", second.TaskID)

	third, err := svc.NextTask(context.Background(), "acc-a", "agent-1")
	require.NoError(t, err)
	require.NotNil(t, third)
	assert.Equal(t, "new-low", third.TaskID)

	none, err := svc.NextTask(context.Background(), "acc-a", "agent-1")
	require.NoError(t, err)
	assert.Nil(t, none, "empty queue yields (nil, nil)")
}

func TestNextTaskSkipsTasksAssignedToOthers(t *testing.T) {
	svc, repo, _, _ := newDispatchFixture()

	other := "agent-other"
	assigned := pendingTask("assigned", "acc-a", 5)
	assigned.AgentID = &other
	repo.put(assigned)
	repo.put(pendingTask("free", "acc-a", 1))

	got, err := svc.NextTask(context.Background(), "acc-a", "agent-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "free", got.TaskID)
}

func TestNextTaskFlattensCredential(t *testing.T) {
	svc, repo, creds, _ := newDispatchFixture()

	creds.Create(context.Background(), &domain.Credential{
		ID:        "cred-1",
		AccountID: "acc-a",
		Email:     "bot@example.com",
		Username:  "bot",
		Password:  "ciphertext",
	})
	credID := "cred-1"
	task := pendingTask("t1", "acc-a", 0)
	task.CredentialID = &credID
	repo.put(task)

	got, err := svc.NextTask(context.Background(), "acc-a", "agent-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "bot@example.com", got.CredentialEmail)
	assert.Equal(t, "bot", got.CredentialUsername)
}

func TestCancelTaskForwardsToAssignedAgent(t *testing.T) {
	svc, repo, _, registry := newDispatchFixture()

	agentID := "agent-1"
	task := pendingTask("t1", "acc-a", 0)
	task.Status = domain.TaskStatusRunning
	task.AgentID = &agentID
	repo.put(task)

	conn := &fakeConn{}
	registry.RegisterAgent("acc-a", agentID, conn)

	got, forwarded, err := svc.CancelTask(context.Background(), "t1", "")
	require.NoError(t, err)
	assert.True(t, forwarded)
	assert.Equal(t, domain.TaskStatusCancelled, got.Status)

	msgs := conn.sent()
	require.Len(t, msgs, 1)
	ev := msgs[0].(Event)
	assert.Equal(t, "command", ev.Event)
	cmd := ev.Data.(domain.Command)
	assert.Equal(t, domain.CmdCancelTask, cmd.Type)
	assert.Equal(t, "t1", cmd.TaskID)
}

func TestCancelTaskAgentOffline(t *testing.T) {
	svc, repo, _, _ := newDispatchFixture()

	agentID := "agent-1"
	task := pendingTask("t1", "acc-a", 0)
	task.AgentID = &agentID
	repo.put(task)

	got, forwarded, err := svc.CancelTask(context.Background(), "t1", "")
	require.NoError(t, err)
	assert.False(t, forwarded, "forward is best-effort only")
	assert.Equal(t, domain.TaskStatusCancelled, got.Status)
}

func TestCancelTaskTerminalStatusUntouched(t *testing.T) {
	svc, repo, _, _ := newDispatchFixture()

	task := pendingTask("t1", "acc-a", 0)
	task.Status = domain.TaskStatusCompleted
	repo.put(task)

	got, forwarded, err := svc.CancelTask(context.Background(), "t1", "")
	require.NoError(t, err)
	assert.False(t, forwarded)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status, "terminal status is never rewritten")
}
