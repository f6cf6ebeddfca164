package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/influencer-scout/backend/internal/metrics"
	"github.com/influencer-scout/backend/internal/storage/models"
	"github.com/influencer-scout/backend/internal/storage/sqlite"
	"github.com/influencer-scout/backend/pkg/logger"
)

// ErrEmptyContent rejects timeline notes that are empty after trimming.
var ErrEmptyContent = errors.New("note content must not be empty")

const defaultTimelineLimit = 50

// Service owns the two durable note stores, both keyed by influencer
// unique-id rather than lead id: leads can be deleted and recreated while
// notes persist.
type Service struct {
	db *sqlite.Client
}

func NewService(db *sqlite.Client) *Service {
	return &Service{db: db}
}

// GetSummary returns the influencer's summary note text, or nil when none
// has been written.
func (s *Service) GetSummary(ctx context.Context, influencerUniqueID string) (*string, error) {
	note, err := s.db.GetSummaryNote(influencerUniqueID)
	if errors.Is(err, sqlite.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &note.Text, nil
}

// UpsertSummary fully overwrites the single summary note per influencer.
func (s *Service) UpsertSummary(ctx context.Context, influencerUniqueID, text string) error {
	if err := s.db.UpsertSummaryNote(influencerUniqueID, text); err != nil {
		return err
	}
	metrics.NoteWrites.WithLabelValues("summary").Inc()
	return nil
}

// ListTimeline returns the influencer's dated notes, newest first.
func (s *Service) ListTimeline(ctx context.Context, influencerUniqueID string, limit int) ([]models.TimelineNote, error) {
	if limit <= 0 {
		limit = defaultTimelineLimit
	}
	return s.db.ListTimelineNotes(influencerUniqueID, limit)
}

// AddTimeline appends a dated note. Content that is empty after trimming is
// rejected with ErrEmptyContent.
func (s *Service) AddTimeline(ctx context.Context, influencerUniqueID, content string) (*models.TimelineNote, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrEmptyContent
	}

	note := &models.TimelineNote{
		ID:                 fmt.Sprintf("%s-%s", influencerUniqueID, uuid.New().String()),
		InfluencerUniqueID: influencerUniqueID,
		Content:            trimmed,
		CreatedAt:          time.Now(),
	}

	if err := s.db.InsertTimelineNote(note); err != nil {
		return nil, err
	}

	logger.Debug("Timeline note added",
		zap.String("influencer", influencerUniqueID),
		zap.String("note_id", note.ID),
	)
	metrics.NoteWrites.WithLabelValues("timeline").Inc()
	return note, nil
}

// DeleteTimeline deletes a note, scoped by both the influencer and note
// ids. A note id belonging to another influencer is a no-op.
func (s *Service) DeleteTimeline(ctx context.Context, influencerUniqueID, noteID string) error {
	return s.db.DeleteTimelineNote(influencerUniqueID, noteID)
}

// Profile joins the summary note and timeline for one influencer. Each side
// carries its own error so one store failing never blocks the other.
type Profile struct {
	SummaryNotes *string
	SummaryErr   error
	Timeline     []models.TimelineNote
	TimelineErr  error
}

// FetchProfile issues the summary and timeline reads in parallel and joins
// them. Callers handle each result independently.
func (s *Service) FetchProfile(ctx context.Context, influencerUniqueID string, timelineLimit int) Profile {
	var p Profile
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		p.SummaryNotes, p.SummaryErr = s.GetSummary(ctx, influencerUniqueID)
	}()
	go func() {
		defer wg.Done()
		p.Timeline, p.TimelineErr = s.ListTimeline(ctx, influencerUniqueID, timelineLimit)
	}()

	wg.Wait()
	return p
}
