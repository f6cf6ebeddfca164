package leads

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/influencer-scout/backend/internal/metrics"
	"github.com/influencer-scout/backend/internal/storage/models"
	"github.com/influencer-scout/backend/internal/storage/sqlite"
	"github.com/influencer-scout/backend/pkg/logger"
)

// ErrDuplicateLead signals that a lead already tracks the author. It is a
// recoverable condition, distinct from a hard storage error, so the UI can
// offer "view existing" instead of an error toast.
var ErrDuplicateLead = sqlite.ErrDuplicateLead

// Mirror is the optional cache that keeps a read-fallback snapshot of the
// lead set. Satisfied by the redis client; may be nil.
type Mirror interface {
	SetLeadsSnapshot(ctx context.Context, leads []models.Lead) error
	GetLeadsSnapshot(ctx context.Context) ([]models.Lead, bool, error)
}

// Store manages the outreach pipeline. All mutations are single-writer per
// deployment, so no locking beyond the row-level atomicity of the store is
// required.
type Store struct {
	db       *sqlite.Client
	mirror   Mirror
	notifier *Notifier
}

func NewStore(db *sqlite.Client, mirror Mirror) *Store {
	return &Store{
		db:       db,
		mirror:   mirror,
		notifier: NewNotifier(),
	}
}

// Notifier exposes the change feed for push consumers.
func (s *Store) Notifier() *Notifier {
	return s.notifier
}

// Add inserts a lead for the video's author. The initial state defaults to
// "to reach out". A second lead for the same author unique-id returns
// ErrDuplicateLead and leaves the existing lead untouched.
func (s *Store) Add(ctx context.Context, video models.Video, state models.LeadState, notes string) (*models.Lead, error) {
	if state == "" {
		state = models.LeadStateToReachOut
	}
	if !state.Valid() {
		return nil, fmt.Errorf("invalid lead state %q", state)
	}

	lead := &models.Lead{
		ID:      uuid.New().String(),
		Video:   video,
		State:   state,
		Notes:   notes,
		AddedAt: time.Now(),
	}

	if err := s.db.InsertLead(lead); err != nil {
		return nil, err
	}

	logger.Info("Lead added",
		zap.String("lead_id", lead.ID),
		zap.String("author", video.Author.UniqueID),
	)
	metrics.LeadMutations.WithLabelValues("add").Inc()

	s.afterMutation(ctx, Event{Type: EventAdded, LeadID: lead.ID})
	return lead, nil
}

// Remove deletes a lead unconditionally; a nonexistent id is a no-op.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.db.DeleteLead(id); err != nil {
		return err
	}

	metrics.LeadMutations.WithLabelValues("remove").Inc()
	s.afterMutation(ctx, Event{Type: EventRemoved, LeadID: id})
	return nil
}

// SetState overwrites the pipeline state. Any of the three states may
// follow any other; "done" leads can be reopened.
func (s *Store) SetState(ctx context.Context, id string, state models.LeadState) error {
	if !state.Valid() {
		return fmt.Errorf("invalid lead state %q", state)
	}

	if err := s.db.UpdateLeadState(id, state); err != nil {
		return err
	}

	metrics.LeadMutations.WithLabelValues("set_state").Inc()
	metrics.LeadTransitions.WithLabelValues(string(state)).Inc()
	s.afterMutation(ctx, Event{Type: EventStateChanged, LeadID: id})
	return nil
}

// SetNotes overwrites the lead's quick-notes field only. The durable
// summary-note store is untouched.
func (s *Store) SetNotes(ctx context.Context, id string, notes string) error {
	if err := s.db.UpdateLeadNotes(id, notes); err != nil {
		return err
	}

	metrics.LeadMutations.WithLabelValues("set_notes").Inc()
	s.afterMutation(ctx, Event{Type: EventNotesChanged, LeadID: id})
	return nil
}

// List returns leads newest-first, optionally filtered by state. When the
// primary store errors the last cached snapshot is served instead, filtered
// the same way; the snapshot never masks a valid empty result.
func (s *Store) List(ctx context.Context, state models.LeadState) ([]models.Lead, error) {
	leads, err := s.db.ListLeads(state)
	if err != nil {
		logger.Warn("Leads read failed, trying cache snapshot", zap.Error(err))
		if cached, ok := s.snapshot(ctx); ok {
			if state == "" {
				return cached, nil
			}
			filtered := make([]models.Lead, 0, len(cached))
			for _, l := range cached {
				if l.State == state {
					filtered = append(filtered, l)
				}
			}
			return filtered, nil
		}
		return nil, err
	}
	return leads, nil
}

func (s *Store) snapshot(ctx context.Context) ([]models.Lead, bool) {
	if s.mirror == nil {
		return nil, false
	}
	cached, ok, err := s.mirror.GetLeadsSnapshot(ctx)
	if err != nil {
		logger.Warn("Leads snapshot read failed", zap.Error(err))
		metrics.CacheMisses.WithLabelValues("leads").Inc()
		return nil, false
	}
	if !ok {
		metrics.CacheMisses.WithLabelValues("leads").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("leads").Inc()
	return cached, true
}

// GetByAuthor returns the existing lead for an author, for duplicate-add
// recovery flows.
func (s *Store) GetByAuthor(ctx context.Context, authorUniqueID string) (*models.Lead, error) {
	return s.db.GetLeadByAuthor(authorUniqueID)
}

// afterMutation publishes the change event and refreshes the cache mirror.
// The mirror write is best effort: the durable row is already committed.
func (s *Store) afterMutation(ctx context.Context, ev Event) {
	s.notifier.Publish(ev)

	if s.mirror == nil {
		return
	}
	leads, err := s.db.ListLeads("")
	if err != nil {
		logger.Warn("Failed to read leads for cache refresh", zap.Error(err))
		return
	}
	if err := s.mirror.SetLeadsSnapshot(ctx, leads); err != nil {
		logger.Warn("Failed to refresh leads snapshot", zap.Error(err))
	}
}
