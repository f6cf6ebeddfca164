package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/influencer-scout/backend/internal/history"
	"github.com/influencer-scout/backend/internal/storage/models"
	"github.com/influencer-scout/backend/pkg/logger"
)

type HistoryHandler struct {
	service *history.Service
}

func NewHistoryHandler(service *history.Service) *HistoryHandler {
	return &HistoryHandler{service: service}
}

func (h *HistoryHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)

	records, err := h.service.List(c.Context(), limit)
	if err != nil {
		logger.Error("Failed to list search history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to load search history",
		})
	}
	if records == nil {
		records = []models.SearchRecord{}
	}
	return c.JSON(fiber.Map{"success": true, "data": records})
}

func (h *HistoryHandler) Get(c *fiber.Ctx) error {
	record, err := h.service.Get(c.Context(), c.Params("id"))
	if errors.Is(err, history.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Search not found",
		})
	}
	if err != nil {
		logger.Error("Failed to load search record", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to load search",
		})
	}
	return c.JSON(fiber.Map{"success": true, "data": record})
}

func (h *HistoryHandler) Add(c *fiber.Ctx) error {
	var req struct {
		ID        string          `json:"id"`
		Keyword   string          `json:"keyword"`
		Results   []models.Video  `json:"results"`
		Timestamp json.RawMessage `json:"timestamp"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	if req.ID == "" || req.Keyword == "" || req.Results == nil || len(req.Timestamp) == 0 || string(req.Timestamp) == "null" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Missing required fields: id, keyword, results, timestamp",
		})
	}

	timestamp, err := parseTimestamp(req.Timestamp)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Timestamp must be epoch milliseconds or an RFC3339 string",
		})
	}

	rec := &models.SearchRecord{
		ID:          req.ID,
		Keyword:     req.Keyword,
		Results:     req.Results,
		Timestamp:   timestamp,
		ResultCount: len(req.Results),
	}
	if err := h.service.Add(c.Context(), rec); err != nil {
		logger.Error("Failed to save search record", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to save search",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": rec})
}

// parseTimestamp accepts the epoch-millisecond number clients send as well
// as an RFC3339 string.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil {
		return time.UnixMilli(millis), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("timestamp is neither a number nor a string")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp string: %w", err)
	}
	return t, nil
}

func (h *HistoryHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("id")); err != nil {
		logger.Error("Failed to delete search record", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to delete search",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *HistoryHandler) Clear(c *fiber.Ctx) error {
	if err := h.service.Clear(c.Context()); err != nil {
		logger.Error("Failed to clear search history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to clear search history",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}
