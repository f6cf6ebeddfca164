package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/influencer-scout/backend/internal/leads"
	"github.com/influencer-scout/backend/internal/storage/models"
	"github.com/influencer-scout/backend/internal/storage/sqlite"
	"github.com/influencer-scout/backend/pkg/logger"
)

type LeadsHandler struct {
	store *leads.Store
}

func NewLeadsHandler(store *leads.Store) *LeadsHandler {
	return &LeadsHandler{store: store}
}

func (h *LeadsHandler) List(c *fiber.Ctx) error {
	state := models.LeadState(c.Query("state"))
	if state != "" && !state.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid state filter",
		})
	}

	all, err := h.store.List(c.Context(), state)
	if err != nil {
		logger.Error("Failed to list leads", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to list leads",
		})
	}
	if all == nil {
		all = []models.Lead{}
	}

	return c.JSON(fiber.Map{"success": true, "data": all})
}

func (h *LeadsHandler) Add(c *fiber.Ctx) error {
	var req struct {
		Video models.Video     `json:"video"`
		State models.LeadState `json:"state"`
		Notes string           `json:"notes"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	if req.Video.Author.UniqueID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Video with author uniqueId is required",
		})
	}

	lead, err := h.store.Add(c.Context(), req.Video, req.State, req.Notes)
	if errors.Is(err, leads.ErrDuplicateLead) {
		// Expected, recoverable: point the caller at the existing lead.
		existing, lookupErr := h.store.GetByAuthor(c.Context(), req.Video.Author.UniqueID)
		resp := fiber.Map{
			"success":   false,
			"duplicate": true,
			"error":     "A lead already exists for this creator",
		}
		if lookupErr == nil {
			resp["existing"] = existing
		}
		return c.Status(fiber.StatusConflict).JSON(resp)
	}
	if err != nil {
		logger.Error("Failed to add lead", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to add lead",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": lead})
}

func (h *LeadsHandler) Remove(c *fiber.Ctx) error {
	if err := h.store.Remove(c.Context(), c.Params("id")); err != nil {
		logger.Error("Failed to remove lead", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to remove lead",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *LeadsHandler) SetState(c *fiber.Ctx) error {
	var req struct {
		State models.LeadState `json:"state"`
	}

	if err := c.BodyParser(&req); err != nil || !req.State.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "State must be one of: to reach out, in progress, done",
		})
	}

	err := h.store.SetState(c.Context(), c.Params("id"), req.State)
	if errors.Is(err, sqlite.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Lead not found",
		})
	}
	if err != nil {
		logger.Error("Failed to update lead state", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to update lead state",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *LeadsHandler) SetNotes(c *fiber.Ctx) error {
	var req struct {
		Notes *string `json:"notes"`
	}

	if err := c.BodyParser(&req); err != nil || req.Notes == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Missing required field: notes",
		})
	}

	err := h.store.SetNotes(c.Context(), c.Params("id"), *req.Notes)
	if errors.Is(err, sqlite.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Lead not found",
		})
	}
	if err != nil {
		logger.Error("Failed to update lead notes", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to update lead notes",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *LeadsHandler) Export(c *fiber.Ctx) error {
	format := c.Query("format", "json")

	out, err := h.store.Export(c.Context(), format)
	if err != nil {
		if format != "json" && format != "csv" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "Format must be json or csv",
			})
		}
		logger.Error("Failed to export leads", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to export leads",
		})
	}

	if format == "csv" {
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="leads.csv"`)
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="leads.json"`)
	}
	return c.Send(out)
}

// HandleEvents streams lead-set change events over a websocket so pipeline
// views refresh without polling.
func (h *LeadsHandler) HandleEvents(c *websocket.Conn) {
	events, cancel := h.store.Notifier().Subscribe()
	defer cancel()
	defer c.Close()

	logger.Info("Lead events subscriber connected")

	// Reads are only used to detect the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := c.WriteJSON(ev); err != nil {
				logger.Debug("Lead events subscriber write failed", zap.Error(err))
				return
			}
		case <-done:
			logger.Info("Lead events subscriber disconnected")
			return
		}
	}
}
