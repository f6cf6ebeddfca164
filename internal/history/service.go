package history

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/influencer-scout/backend/internal/metrics"
	"github.com/influencer-scout/backend/internal/storage/models"
	"github.com/influencer-scout/backend/internal/storage/sqlite"
	"github.com/influencer-scout/backend/pkg/logger"
)

var ErrNotFound = sqlite.ErrNotFound

const defaultListLimit = 20

// Cache is the optional read-fallback snapshot store. Satisfied by the
// redis client; may be nil.
type Cache interface {
	SetHistorySnapshot(ctx context.Context, records []models.SearchRecord) error
	GetHistorySnapshot(ctx context.Context) ([]models.SearchRecord, bool, error)
}

// Service records completed searches. The relational store is the source of
// truth; the cache is a read-fallback mirror only, consulted when the store
// itself errors. It never masks a valid empty result and never takes writes.
type Service struct {
	db    *sqlite.Client
	cache Cache
}

func NewService(db *sqlite.Client, cache Cache) *Service {
	return &Service{db: db, cache: cache}
}

// Add records one completed search. All of id, keyword, results and
// timestamp are required; a write failure propagates loudly with no cache
// fallback.
func (s *Service) Add(ctx context.Context, rec *models.SearchRecord) error {
	if rec.ID == "" || rec.Keyword == "" || rec.Results == nil || rec.Timestamp.IsZero() {
		return fmt.Errorf("id, keyword, results and timestamp are required")
	}

	if err := s.db.InsertSearchRecord(rec); err != nil {
		return err
	}

	metrics.SearchesRecorded.Inc()
	s.refreshSnapshot(ctx)
	return nil
}

// List returns recent searches, newest first. When the primary store errors
// the last cached snapshot is served instead.
func (s *Service) List(ctx context.Context, limit int) ([]models.SearchRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	records, err := s.db.ListSearchRecords(limit)
	if err != nil {
		logger.Warn("History read failed, trying cache snapshot", zap.Error(err))
		if cached, ok := s.snapshot(ctx); ok {
			if len(cached) > limit {
				cached = cached[:limit]
			}
			return cached, nil
		}
		return nil, err
	}

	s.refreshWith(ctx, records)
	return records, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.SearchRecord, error) {
	rec, err := s.db.GetSearchRecord(id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		logger.Warn("History read failed, trying cache snapshot", zap.Error(err))
		if cached, ok := s.snapshot(ctx); ok {
			for i := range cached {
				if cached[i].ID == id {
					return &cached[i], nil
				}
			}
		}
	}
	return rec, err
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.db.DeleteSearchRecord(id); err != nil {
		return err
	}
	s.refreshSnapshot(ctx)
	return nil
}

func (s *Service) Clear(ctx context.Context) error {
	if err := s.db.ClearSearchRecords(); err != nil {
		return err
	}
	s.refreshSnapshot(ctx)
	return nil
}

func (s *Service) snapshot(ctx context.Context) ([]models.SearchRecord, bool) {
	if s.cache == nil {
		return nil, false
	}
	cached, ok, err := s.cache.GetHistorySnapshot(ctx)
	if err != nil {
		logger.Warn("History snapshot read failed", zap.Error(err))
		metrics.CacheMisses.WithLabelValues("history").Inc()
		return nil, false
	}
	if !ok {
		metrics.CacheMisses.WithLabelValues("history").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("history").Inc()
	return cached, true
}

func (s *Service) refreshSnapshot(ctx context.Context) {
	if s.cache == nil {
		return
	}
	records, err := s.db.ListSearchRecords(defaultListLimit)
	if err != nil {
		logger.Warn("Failed to read history for cache refresh", zap.Error(err))
		return
	}
	s.refreshWith(ctx, records)
}

func (s *Service) refreshWith(ctx context.Context, records []models.SearchRecord) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetHistorySnapshot(ctx, records); err != nil {
		logger.Warn("Failed to refresh history snapshot", zap.Error(err))
	}
}
