package ws

import (
	"context"
	"testing"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/core/services"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTaskService records lifecycle calls without a database.
type fakeTaskService struct {
	cancelled []string
	running   map[string]string
	completed map[string]bool
}

func newFakeTaskService() *fakeTaskService {
	return &fakeTaskService{
		running:   make(map[string]string),
		completed: make(map[string]bool),
	}
}

func (f *fakeTaskService) CreateTask(ctx context.Context, input ports.CreateTaskInput) (*domain.Task, error) {
	return nil, nil
}

func (f *fakeTaskService) GetTasks(ctx context.Context, accountID string, status domain.TaskStatus, limit int) ([]domain.Task, error) {
	return nil, nil
}

func (f *fakeTaskService) GetTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	return &domain.Task{ID: id}, nil
}

func (f *fakeTaskService) CancelTask(ctx context.Context, id string) (*domain.Task, error) {
	f.cancelled = append(f.cancelled, id)
	return &domain.Task{ID: id, Status: domain.TaskStatusCancelled}, nil
}

func (f *fakeTaskService) MarkRunning(ctx context.Context, taskID, agentID string) error {
	f.running[taskID] = agentID
	return nil
}

func (f *fakeTaskService) CompleteTask(ctx context.Context, taskID string, success bool, result domain.JSONB, errMsg string) error {
	f.completed[taskID] = success
	return nil
}

func newDashboardChannelFixture() (*DashboardChannel, *services.Registry, *fakeTaskService) {
	registry := services.NewRegistry(logger.NewNop())
	tasks := newFakeTaskService()
	channel := &DashboardChannel{
		registry: registry,
		tasks:    tasks,
		log:      logger.NewNop(),
	}
	return channel, registry, tasks
}

func commandResult(t *testing.T, conn *recordingConn) CommandResultPayload {
	t.Helper()
	require.NotEmpty(t, conn.messages)
	last := conn.messages[len(conn.messages)-1]
	require.Equal(t, EventCommandResult, last.Event)
	result, ok := last.Data.(CommandResultPayload)
	require.True(t, ok)
	return result
}

func TestCancelWithNoAgentsConnected(t *testing.T) {
	channel, _, tasks := newDashboardChannelFixture()

	dash := &recordingConn{}
	session := &dashboardSession{state: stateActive, conn: dash, accountID: "acc-1"}

	channel.handleTaskCommand(context.Background(), session, EventTaskCancel, TaskCommandPayload{TaskID: "task-1"})

	result := commandResult(t, dash)
	assert.False(t, result.Success)
	assert.Equal(t, "No agents connected", result.Message)
	assert.Equal(t, EventTaskCancel, result.Command)
	assert.Equal(t, "task-1", result.TaskID)

	// Status is rewritten even when no agent can receive the command.
	assert.Equal(t, []string{"task-1"}, tasks.cancelled)
}

func TestCancelForwardsToConnectedAgents(t *testing.T) {
	channel, registry, tasks := newDashboardChannelFixture()

	agent := &recordingConn{}
	registry.RegisterAgent("acc-1", "agent-1", agent)

	dash := &recordingConn{}
	session := &dashboardSession{state: stateActive, conn: dash, accountID: "acc-1"}

	channel.handleTaskCommand(context.Background(), session, EventTaskCancel, TaskCommandPayload{TaskID: "task-1"})

	result := commandResult(t, dash)
	assert.True(t, result.Success)
	assert.Equal(t, "Command sent to 1 agent(s)", result.Message)
	assert.Equal(t, []string{"task-1"}, tasks.cancelled)

	require.Len(t, agent.messages, 1)
	assert.Equal(t, EventCommand, agent.messages[0].Event)
	cmd, ok := agent.messages[0].Data.(domain.Command)
	require.True(t, ok)
	assert.Equal(t, domain.CmdCancelTask, cmd.Type)
	assert.Equal(t, "task-1", cmd.TaskID)
}

func TestStopTargetsNamedAgentOnly(t *testing.T) {
	channel, registry, tasks := newDashboardChannelFixture()

	target := &recordingConn{}
	other := &recordingConn{}
	registry.RegisterAgent("acc-1", "agent-1", target)
	registry.RegisterAgent("acc-1", "agent-2", other)

	dash := &recordingConn{}
	session := &dashboardSession{state: stateActive, conn: dash, accountID: "acc-1"}

	channel.handleTaskCommand(context.Background(), session, EventTaskStop, TaskCommandPayload{TaskID: "task-1", AgentID: "agent-1"})

	result := commandResult(t, dash)
	assert.True(t, result.Success)
	require.Len(t, target.messages, 1)
	cmd, ok := target.messages[0].Data.(domain.Command)
	require.True(t, ok)
	assert.Equal(t, domain.CmdStopTask, cmd.Type)
	assert.Empty(t, other.messages)

	// A stop is advisory only; persisted status is untouched.
	assert.Empty(t, tasks.cancelled)
}

func TestCommandToNamedDisconnectedAgent(t *testing.T) {
	channel, _, _ := newDashboardChannelFixture()

	dash := &recordingConn{}
	session := &dashboardSession{state: stateActive, conn: dash, accountID: "acc-1"}

	channel.handleTaskCommand(context.Background(), session, EventTaskStop, TaskCommandPayload{TaskID: "task-1", AgentID: "agent-gone"})

	result := commandResult(t, dash)
	assert.False(t, result.Success)
	assert.Equal(t, "Agent not connected", result.Message)
}
