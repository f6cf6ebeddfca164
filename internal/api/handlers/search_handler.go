package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/influencer-scout/backend/internal/history"
	"github.com/influencer-scout/backend/internal/metrics"
	"github.com/influencer-scout/backend/internal/scoring"
	"github.com/influencer-scout/backend/internal/search"
	"github.com/influencer-scout/backend/internal/search/tiktok"
	"github.com/influencer-scout/backend/internal/storage/models"
	"github.com/influencer-scout/backend/pkg/circuitbreaker"
	"github.com/influencer-scout/backend/pkg/logger"
)

// ScoredVideo pairs a result with its derived quality so the UI never has
// to recompute the heuristic.
type ScoredVideo struct {
	Video   models.Video    `json:"video"`
	Quality scoring.Quality `json:"quality"`
}

type SearchHandler struct {
	aggregator      *search.Aggregator
	client          *tiktok.Client
	historyService  *history.Service
	defaultMaxPages int

	// A new search supersedes the previous in-flight aggregation
	// explicitly, cancelling its context instead of relying on
	// last-write-wins in the UI.
	mu         sync.Mutex
	generation int
	cancel     context.CancelFunc
}

func NewSearchHandler(aggregator *search.Aggregator, client *tiktok.Client, historyService *history.Service, defaultMaxPages int) *SearchHandler {
	if defaultMaxPages <= 0 {
		defaultMaxPages = 3
	}
	return &SearchHandler{
		aggregator:      aggregator,
		client:          client,
		historyService:  historyService,
		defaultMaxPages: defaultMaxPages,
	}
}

// HandleSearch runs an aggregated search. A fresh search resets cursor
// state and records a history entry; a load-more continuation resumes from
// the supplied cursor state and records nothing.
func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	var req struct {
		Keyword  string `json:"keyword"`
		MaxPages int    `json:"maxPages"`
		LoadMore bool   `json:"loadMore"`
		Cursor   int64  `json:"cursor"`
		SearchID string `json:"searchId"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	if req.Keyword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Keyword is required",
		})
	}

	maxPages := req.MaxPages
	if maxPages <= 0 {
		if req.LoadMore {
			maxPages = 1
		} else {
			maxPages = h.defaultMaxPages
		}
	}

	aggReq := search.Request{Keyword: req.Keyword, MaxPages: maxPages}
	kind := "fresh"
	if req.LoadMore {
		kind = "load_more"
		aggReq.Resume = &search.CursorState{Cursor: req.Cursor, SearchID: req.SearchID}
	}

	ctx, release := h.supersede(c.Context())
	defer release()

	start := time.Now()
	result, err := h.aggregator.Run(ctx, aggReq)
	metrics.SearchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SearchTotal.WithLabelValues("error").Inc()
		return h.searchError(c, err)
	}
	metrics.SearchTotal.WithLabelValues("ok").Inc()

	scored := make([]ScoredVideo, len(result.Videos))
	for i, v := range result.Videos {
		scored[i] = ScoredVideo{Video: v, Quality: scoring.Score(v)}
	}

	historySaved := false
	if !req.LoadMore {
		rec := &models.SearchRecord{
			ID:          "search-" + uuid.New().String(),
			Keyword:     req.Keyword,
			Results:     result.Videos,
			Timestamp:   time.Now(),
			ResultCount: len(result.Videos),
		}
		if err := h.historyService.Add(c.Context(), rec); err != nil {
			logger.Error("Failed to record search history", zap.Error(err))
		} else {
			historySaved = true
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"videos":       scored,
			"cursor":       result.Cursor,
			"searchId":     result.SearchID,
			"hasMore":      result.HasMore,
			"historySaved": historySaved,
		},
	})
}

// HandleProxySearch fetches a single upstream page, mirroring the raw
// search endpoint shape.
func (h *SearchHandler) HandleProxySearch(c *fiber.Ctx) error {
	keyword := c.Query("keyword")
	if keyword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Keyword is required",
		})
	}
	cursor := int64(c.QueryInt("cursor", 0))
	searchID := c.Query("search_id", "0")

	page, err := h.client.FetchPage(c.Context(), keyword, cursor, searchID)
	if err != nil {
		return h.searchError(c, err)
	}

	return c.JSON(fiber.Map{
		"item_list": page.Items,
		"has_more":  page.HasMore,
		"cursor":    page.Cursor,
		"extra":     fiber.Map{"logid": page.SearchID},
	})
}

func (h *SearchHandler) searchError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		metrics.UpstreamErrors.WithLabelValues("superseded").Inc()
		// 499-style: the client started a newer search.
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   "Search superseded by a newer request",
		})
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		metrics.UpstreamErrors.WithLabelValues("circuit_open").Inc()
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"error":   "Search API temporarily unavailable",
		})
	case errors.Is(err, tiktok.ErrUpstreamStatus),
		errors.Is(err, tiktok.ErrEmptyBody),
		errors.Is(err, tiktok.ErrMalformedBody):
		metrics.UpstreamErrors.WithLabelValues("upstream").Inc()
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"error":   "Search API error",
		})
	default:
		logger.Error("Search failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Search failed",
		})
	}
}

// supersede cancels any in-flight aggregation and installs a fresh
// cancellable context derived from the request. The returned release only
// clears its own registration, so a newer search is never cancelled by an
// older one finishing.
func (h *SearchHandler) supersede(parent context.Context) (context.Context, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	h.generation++
	gen := h.generation
	h.cancel = cancel

	release := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		cancel()
		if h.generation == gen {
			h.cancel = nil
		}
	}
	return ctx, release
}
