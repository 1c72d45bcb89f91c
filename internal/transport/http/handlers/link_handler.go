package handlers

import (
	"github.com/botfleet/backend/internal/core/ports"
	"github.com/botfleet/backend/internal/domain"
	"github.com/botfleet/backend/internal/infrastructure/logger"
	httpmw "github.com/botfleet/backend/internal/transport/http/middleware"
	"github.com/gofiber/fiber/v2"
)

type LinkHandler struct {
	ingest ports.IngestService
	links  ports.LinkRepository
	logger *logger.Logger
}

func NewLinkHandler(ingest ports.IngestService, links ports.LinkRepository, logger *logger.Logger) *LinkHandler {
	return &LinkHandler{ingest: ingest, links: links, logger: logger}
}

type BulkCreateLinksRequest struct {
	Links []ports.LinkCandidate `json:"links"`
}

// BulkCreateLinks runs the same ingestion dedup path the scrape:results
// websocket event uses.
func (h *LinkHandler) BulkCreateLinks(c *fiber.Ctx) error {
	var req BulkCreateLinksRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("bulk_create_links_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if len(req.Links) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No links provided"})
	}

	accountID := httpmw.AccountID(c)
	result, err := h.ingest.Ingest(c.Context(), accountID, req.Links)
	if err != nil {
		h.logger.Errorw("bulk_create_links_failed", "account_id", accountID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store links"})
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *LinkHandler) GetLinks(c *fiber.Ctx) error {
	accountID := httpmw.AccountID(c)
	status := domain.LinkStatus(c.Query("status"))
	limit := c.QueryInt("limit", 200)

	links, err := h.links.GetByAccount(c.Context(), accountID, status, limit)
	if err != nil {
		h.logger.Errorw("list_links_failed", "account_id", accountID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list links"})
	}
	return c.JSON(fiber.Map{"links": links})
}

func (h *LinkHandler) DeleteLink(c *fiber.Ctx) error {
	id := c.Params("id")
	link, err := h.links.GetByID(c.Context(), id)
	if err != nil || link.AccountID != httpmw.AccountID(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Link not found"})
	}
	if err := h.links.Delete(c.Context(), id); err != nil {
		h.logger.Errorw("delete_link_failed", "link_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete link"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
