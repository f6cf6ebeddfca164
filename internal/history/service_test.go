package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/influencer-scout/backend/internal/storage/models"
	"github.com/influencer-scout/backend/internal/storage/sqlite"
)

type fakeCache struct {
	snapshot []models.SearchRecord
	has      bool
	sets     int
}

func (f *fakeCache) SetHistorySnapshot(ctx context.Context, records []models.SearchRecord) error {
	f.snapshot = records
	f.has = true
	f.sets++
	return nil
}

func (f *fakeCache) GetHistorySnapshot(ctx context.Context) ([]models.SearchRecord, bool, error) {
	return f.snapshot, f.has, nil
}

func newTestService(t *testing.T, cache Cache) *Service {
	t.Helper()
	db, err := sqlite.NewClient(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return NewService(db, cache)
}

func record(id, keyword string) *models.SearchRecord {
	return &models.SearchRecord{
		ID:          id,
		Keyword:     keyword,
		Results:     []models.Video{{ID: "v1"}},
		Timestamp:   time.Now(),
		ResultCount: 1,
	}
}

func TestAddRequiresAllFields(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	missing := []*models.SearchRecord{
		{Keyword: "cats", Results: []models.Video{}, Timestamp: time.Now()},
		{ID: "s1", Results: []models.Video{}, Timestamp: time.Now()},
		{ID: "s1", Keyword: "cats", Timestamp: time.Now()},
		{ID: "s1", Keyword: "cats", Results: []models.Video{}},
	}

	for _, rec := range missing {
		if err := svc.Add(ctx, rec); err == nil {
			t.Errorf("Add(%+v) succeeded, want validation error", rec)
		}
	}

	records, err := svc.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d rows after rejected writes, want 0", len(records))
	}
}

func TestAddAndGetRoundTrip(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	if err := svc.Add(ctx, record("s1", "dance")); err != nil {
		t.Fatalf("add: %v", err)
	}

	got, err := svc.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Keyword != "dance" || got.ResultCount != 1 || len(got.Results) != 1 {
		t.Errorf("got %+v", got)
	}

	if _, err := svc.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get missing err = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirstAndDelete(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	older := record("s1", "dogs")
	older.Timestamp = time.Now().Add(-time.Hour)
	if err := svc.Add(ctx, older); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Add(ctx, record("s2", "cats")); err != nil {
		t.Fatalf("add: %v", err)
	}

	records, err := svc.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 || records[0].ID != "s2" {
		t.Fatalf("list order = %+v", records)
	}

	if err := svc.Delete(ctx, "s2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	records, _ = svc.List(ctx, 10)
	if len(records) != 1 || records[0].ID != "s1" {
		t.Errorf("after delete: %+v", records)
	}

	if err := svc.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	records, _ = svc.List(ctx, 10)
	if len(records) != 0 {
		t.Errorf("after clear: %+v", records)
	}
}

func TestSuccessfulReadsRefreshSnapshot(t *testing.T) {
	cache := &fakeCache{}
	svc := newTestService(t, cache)
	ctx := context.Background()

	if err := svc.Add(ctx, record("s1", "dance")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.List(ctx, 10); err != nil {
		t.Fatalf("list: %v", err)
	}

	if cache.sets == 0 {
		t.Fatal("snapshot never refreshed")
	}
	if len(cache.snapshot) != 1 || cache.snapshot[0].ID != "s1" {
		t.Errorf("snapshot = %+v", cache.snapshot)
	}
}

func TestListFallsBackToSnapshotWhenStoreErrors(t *testing.T) {
	cache := &fakeCache{}
	svc := newTestService(t, cache)
	ctx := context.Background()

	if err := svc.Add(ctx, record("s1", "dance")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.List(ctx, 10); err != nil {
		t.Fatalf("warm list: %v", err)
	}

	// Closing the database makes every subsequent read fail, which is the
	// only condition under which the snapshot may serve reads.
	svc.db.Close()

	records, err := svc.List(ctx, 10)
	if err != nil {
		t.Fatalf("list after store failure: %v", err)
	}
	if len(records) != 1 || records[0].ID != "s1" {
		t.Errorf("fallback records = %+v", records)
	}

	// Writes must fail loudly, never degrade to the cache.
	if err := svc.Add(ctx, record("s2", "cats")); err == nil {
		t.Error("write after store failure succeeded, want loud failure")
	}
}
