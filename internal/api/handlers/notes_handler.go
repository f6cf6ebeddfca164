package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/influencer-scout/backend/internal/notes"
	"github.com/influencer-scout/backend/pkg/logger"
)

type NotesHandler struct {
	service *notes.Service
}

func NewNotesHandler(service *notes.Service) *NotesHandler {
	return &NotesHandler{service: service}
}

// GetSummary returns the single summary blob for a creator. A creator with
// no summary yet gets null, not 404.
func (h *NotesHandler) GetSummary(c *fiber.Ctx) error {
	summary, err := h.service.GetSummary(c.Context(), c.Params("uniqueId"))
	if err != nil {
		logger.Error("Failed to load summary notes", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to load notes",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"summaryNotes": summary},
	})
}

func (h *NotesHandler) PutSummary(c *fiber.Ctx) error {
	var req struct {
		SummaryNotes *string `json:"summaryNotes"`
	}

	if err := c.BodyParser(&req); err != nil || req.SummaryNotes == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Missing required field: summaryNotes",
		})
	}

	if err := h.service.UpsertSummary(c.Context(), c.Params("uniqueId"), *req.SummaryNotes); err != nil {
		logger.Error("Failed to save summary notes", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to save notes",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *NotesHandler) ListTimeline(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)

	entries, err := h.service.ListTimeline(c.Context(), c.Params("uniqueId"), limit)
	if err != nil {
		logger.Error("Failed to list timeline notes", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to load notes",
		})
	}
	return c.JSON(fiber.Map{"success": true, "data": entries})
}

func (h *NotesHandler) AddTimeline(c *fiber.Ctx) error {
	var req struct {
		Content string `json:"content"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	note, err := h.service.AddTimeline(c.Context(), c.Params("uniqueId"), req.Content)
	if errors.Is(err, notes.ErrEmptyContent) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Note content must not be empty",
		})
	}
	if err != nil {
		logger.Error("Failed to add timeline note", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to save note",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": note})
}

func (h *NotesHandler) DeleteTimeline(c *fiber.Ctx) error {
	if err := h.service.DeleteTimeline(c.Context(), c.Params("uniqueId"), c.Params("noteId")); err != nil {
		logger.Error("Failed to delete timeline note", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to delete note",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// GetProfile bundles summary and timeline notes in one round trip. Each
// half carries its own error so one failing store does not blank the other.
func (h *NotesHandler) GetProfile(c *fiber.Ctx) error {
	profile := h.service.FetchProfile(c.Context(), c.Params("uniqueId"), c.QueryInt("limit", 0))

	data := fiber.Map{
		"summaryNotes": profile.SummaryNotes,
		"timeline":     profile.Timeline,
	}
	if profile.SummaryErr != nil {
		logger.Error("Profile summary load failed", zap.Error(profile.SummaryErr))
		data["summaryError"] = "Failed to load summary notes"
	}
	if profile.TimelineErr != nil {
		logger.Error("Profile timeline load failed", zap.Error(profile.TimelineErr))
		data["timelineError"] = "Failed to load timeline notes"
	}

	return c.JSON(fiber.Map{"success": true, "data": data})
}
