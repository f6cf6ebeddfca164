package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/influencer-scout/backend/internal/metrics"
	"github.com/influencer-scout/backend/internal/search/tiktok"
	"github.com/influencer-scout/backend/internal/storage/models"
	"github.com/influencer-scout/backend/pkg/logger"
)

// PageFetcher is the upstream search collaborator. Satisfied by
// *tiktok.Client.
type PageFetcher interface {
	FetchPage(ctx context.Context, keyword string, cursor int64, searchID string) (*tiktok.Page, error)
}

// CursorState is the continuation state of a prior aggregation, used to
// resume a "load more" operation.
type CursorState struct {
	Cursor   int64
	SearchID string
}

// Request describes one aggregation call: either a fresh search (Resume nil,
// cursor state reset) or a load-more continuation (Resume set).
type Request struct {
	Keyword  string
	MaxPages int
	Resume   *CursorState
}

// Result is the concatenated outcome of an aggregation call.
type Result struct {
	Videos   []models.Video
	Cursor   int64
	SearchID string
	HasMore  bool
}

// Aggregator drives sequential multi-page fetches against the search API.
// Pages must be fetched in order because each continuation depends on the
// previous page's cursor.
type Aggregator struct {
	fetcher   PageFetcher
	pageDelay time.Duration

	// sleep is swapped out in tests to observe the inter-page delay.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewAggregator(fetcher PageFetcher, pageDelay time.Duration) *Aggregator {
	if pageDelay == 0 {
		pageDelay = 500 * time.Millisecond
	}
	return &Aggregator{
		fetcher:   fetcher,
		pageDelay: pageDelay,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Run fetches up to MaxPages pages sequentially, concatenating item lists in
// fetch order without dedup. It stops early when the upstream reports no
// more pages, waits the inter-page delay between successive fetches only,
// and aborts on the first page failure; a partial result is never returned
// as success.
func (a *Aggregator) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Keyword == "" {
		return nil, fmt.Errorf("keyword is required")
	}
	if req.MaxPages <= 0 {
		req.MaxPages = 1
	}

	var cursor int64
	searchID := "0"
	if req.Resume != nil {
		cursor = req.Resume.Cursor
		searchID = req.Resume.SearchID
	}

	var videos []models.Video
	hasMore := true
	pagesFetched := 0

	for hasMore && pagesFetched < req.MaxPages {
		if pagesFetched > 0 {
			if err := a.sleep(ctx, a.pageDelay); err != nil {
				return nil, err
			}
		}

		page, err := a.fetcher.FetchPage(ctx, req.Keyword, cursor, searchID)
		if err != nil {
			logger.Error("Page fetch failed, aborting aggregation",
				zap.String("keyword", req.Keyword),
				zap.Int("pages_fetched", pagesFetched),
				zap.Error(err),
			)
			return nil, fmt.Errorf("page %d fetch failed: %w", pagesFetched+1, err)
		}

		videos = append(videos, page.Items...)
		hasMore = page.HasMore
		cursor = page.Cursor
		if page.SearchID != "" {
			searchID = page.SearchID
		}
		pagesFetched++
	}

	metrics.PagesFetched.Observe(float64(pagesFetched))
	logger.Info("Aggregation completed",
		zap.String("keyword", req.Keyword),
		zap.Int("pages", pagesFetched),
		zap.Int("videos", len(videos)),
		zap.Bool("has_more", hasMore),
	)

	return &Result{
		Videos:   videos,
		Cursor:   cursor,
		SearchID: searchID,
		HasMore:  hasMore,
	}, nil
}
