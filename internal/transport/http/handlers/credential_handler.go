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

type CredentialHandler struct {
	credentials ports.CredentialService
	logger      *logger.Logger
}

func NewCredentialHandler(credentials ports.CredentialService, logger *logger.Logger) *CredentialHandler {
	return &CredentialHandler{credentials: credentials, logger: logger}
}

type CredentialRequest struct {
	Label    string       `json:"label"`
	Email    string       `json:"email,omitempty"`
	Username string       `json:"username,omitempty"`
	Password string       `json:"password,omitempty"`
	Metadata domain.JSONB `json:"metadata,omitempty"`
}

func (h *CredentialHandler) CreateCredential(c *fiber.Ctx) error {
	var req CredentialRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("create_credential_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	accountID := httpmw.AccountID(c)
	cred, err := h.credentials.CreateCredential(c.Context(), ports.CredentialInput{
		AccountID: accountID,
		Label:     req.Label,
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		Metadata:  req.Metadata,
	})
	if err != nil {
		if errors.Is(err, services.ErrCredentialInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email or username is required"})
		}
		h.logger.Errorw("create_credential_failed", "account_id", accountID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create credential"})
	}
	return c.Status(fiber.StatusCreated).JSON(cred)
}

func (h *CredentialHandler) GetCredentials(c *fiber.Ctx) error {
	accountID := httpmw.AccountID(c)
	creds, err := h.credentials.GetCredentials(c.Context(), accountID)
	if err != nil {
		h.logger.Errorw("list_credentials_failed", "account_id", accountID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list credentials"})
	}
	return c.JSON(fiber.Map{"credentials": creds})
}

func (h *CredentialHandler) UpdateCredential(c *fiber.Ctx) error {
	id := c.Params("id")
	existing, err := h.credentials.GetCredentialByID(c.Context(), id)
	if err != nil || existing.AccountID != httpmw.AccountID(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Credential not found"})
	}

	var req CredentialRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	cred, err := h.credentials.UpdateCredential(c.Context(), id, ports.CredentialInput{
		Label:    req.Label,
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Metadata: req.Metadata,
	})
	if err != nil {
		h.logger.Errorw("update_credential_failed", "credential_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update credential"})
	}
	return c.JSON(cred)
}

func (h *CredentialHandler) DeleteCredential(c *fiber.Ctx) error {
	id := c.Params("id")
	existing, err := h.credentials.GetCredentialByID(c.Context(), id)
	if err != nil || existing.AccountID != httpmw.AccountID(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Credential not found"})
	}
	if err := h.credentials.DeleteCredential(c.Context(), id); err != nil {
		h.logger.Errorw("delete_credential_failed", "credential_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete credential"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
