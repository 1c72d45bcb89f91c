package handlers

import (
	"errors"

	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/core/services"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	httpmw "github.com/botfleet/backend/internal/transport/http/middleware"
	"github.com/gofiber/fiber/v2"
)

type TaskHandler struct {
	tasks    ports.TaskService
	dispatch ports.DispatchService
	logger   *logger.Logger
}

func NewTaskHandler(tasks ports.TaskService, dispatch ports.DispatchService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, dispatch: dispatch, logger: logger}
}

type CreateTaskRequest struct {
	Type         string       `json:"type"`
	TargetURL    string       `json:"url,omitempty"`
	Params       domain.JSONB `json:"params,omitempty"`
	Priority     int          `json:"priority"`
	CredentialID *string      `json:"credential_id,omitempty"`
	AgentID      *string      `json:"agent_id,omitempty"`
}

// CreateTask persists the task and immediately attempts push dispatch. A
// failed push is not an error; the task stays pending for a later pull.
func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("create_task_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	accountID := httpmw.AccountID(c)
	task, err := h.tasks.CreateTask(c.Context(), ports.CreateTaskInput{
		AccountID:    accountID,
		Type:         domain.TaskType(req.Type),
		TargetURL:    req.TargetURL,
		Params:       req.Params,
		Priority:     req.Priority,
		CredentialID: req.CredentialID,
		AgentID:      req.AgentID,
	})
	if err != nil {
		if errors.Is(err, services.ErrTaskInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task input"})
		}
		h.logger.Errorw("create_task_failed", "account_id", accountID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create task"})
	}

	agentID := ""
	if req.AgentID != nil {
		agentID = *req.AgentID
	}
	dispatched, err := h.dispatch.PushTask(c.Context(), task, agentID)
	if err != nil {
		h.logger.Errorw("create_task_push_failed", "task_id", task.ID, "error", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"task":       task,
		"dispatched": dispatched,
	})
}

func (h *TaskHandler) GetTasks(c *fiber.Ctx) error {
	accountID := httpmw.AccountID(c)
	status := domain.TaskStatus(c.Query("status"))
	limit := c.QueryInt("limit", 100)

	tasks, err := h.tasks.GetTasks(c.Context(), accountID, status, limit)
	if err != nil {
		h.logger.Errorw("list_tasks_failed", "account_id", accountID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list tasks"})
	}
	return c.JSON(fiber.Map{"tasks": tasks})
}

func (h *TaskHandler) GetTask(c *fiber.Ctx) error {
	task, err := h.tasks.GetTaskByID(c.Context(), c.Params("id"))
	if err != nil || task.AccountID != httpmw.AccountID(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
	}
	return c.JSON(task)
}

// CancelTask rewrites persisted status and best-effort forwards a stop
// command to the assigned agent.
func (h *TaskHandler) CancelTask(c *fiber.Ctx) error {
	id := c.Params("id")
	existing, err := h.tasks.GetTaskByID(c.Context(), id)
	if err != nil || existing.AccountID != httpmw.AccountID(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
	}

	task, forwarded, err := h.dispatch.CancelTask(c.Context(), id, "")
	if err != nil {
		h.logger.Errorw("cancel_task_failed", "task_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to cancel task"})
	}
	return c.JSON(fiber.Map{
		"task":      task,
		"forwarded": forwarded,
	})
}
