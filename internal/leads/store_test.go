package leads

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/influencer-scout/backend/internal/storage/models"
	"github.com/influencer-scout/backend/internal/storage/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlite.NewClient(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return NewStore(db, nil)
}

func creatorVideo(uniqueID string) models.Video {
	return models.Video{
		ID: "vid-" + uniqueID,
		Author: models.Author{
			UniqueID: uniqueID,
			Nickname: "Creator " + uniqueID,
		},
		AuthorStats: models.AuthorStats{FollowerCount: 12345},
		Stats:       models.VideoStats{DiggCount: 678},
	}
}

func TestAddDuplicateAuthorSignals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Add(ctx, creatorVideo("alice"), "", "")
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if first.State != models.LeadStateToReachOut {
		t.Errorf("default state = %s, want %s", first.State, models.LeadStateToReachOut)
	}

	_, err = store.Add(ctx, creatorVideo("alice"), "", "")
	if !errors.Is(err, ErrDuplicateLead) {
		t.Fatalf("second add err = %v, want ErrDuplicateLead", err)
	}

	leads, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(leads) != 1 {
		t.Errorf("got %d leads after duplicate add, want 1", len(leads))
	}

	existing, err := store.GetByAuthor(ctx, "alice")
	if err != nil {
		t.Fatalf("get by author: %v", err)
	}
	if existing.ID != first.ID {
		t.Errorf("existing lead id = %s, want %s", existing.ID, first.ID)
	}
}

func TestRemoveMissingIsNoOp(t *testing.T) {
	store := newTestStore(t)
	if err := store.Remove(context.Background(), "does-not-exist"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
}

func TestStateTransitionsAreFree(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	lead, err := store.Add(ctx, creatorVideo("bob"), "", "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	// All transitions are legal, including reopening done.
	sequence := []models.LeadState{
		models.LeadStateDone,
		models.LeadStateToReachOut,
		models.LeadStateInProgress,
		models.LeadStateDone,
		models.LeadStateInProgress,
	}
	for _, st := range sequence {
		if err := store.SetState(ctx, lead.ID, st); err != nil {
			t.Fatalf("set state %s: %v", st, err)
		}
	}

	leads, _ := store.List(ctx, models.LeadStateInProgress)
	if len(leads) != 1 || leads[0].ID != lead.ID {
		t.Fatalf("list by state = %+v, want the single lead", leads)
	}

	if err := store.SetState(ctx, lead.ID, "archived"); err == nil {
		t.Error("set invalid state succeeded, want error")
	}
}

func TestSetNotesOnlyTouchesQuickNotes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	lead, err := store.Add(ctx, creatorVideo("carol"), models.LeadStateInProgress, "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := store.SetNotes(ctx, lead.ID, "left a DM"); err != nil {
		t.Fatalf("set notes: %v", err)
	}

	leads, _ := store.List(ctx, "")
	if leads[0].Notes != "left a DM" {
		t.Errorf("notes = %q, want %q", leads[0].Notes, "left a DM")
	}
	if leads[0].State != models.LeadStateInProgress {
		t.Errorf("state changed to %s by notes write", leads[0].State)
	}
}

func TestMutationsNotifySubscribers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	events, cancel := store.Notifier().Subscribe()
	defer cancel()

	lead, err := store.Add(ctx, creatorVideo("dave"), "", "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.SetState(ctx, lead.ID, models.LeadStateDone); err != nil {
		t.Fatalf("set state: %v", err)
	}
	if err := store.Remove(ctx, lead.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	want := []EventType{EventAdded, EventStateChanged, EventRemoved}
	for i, wantType := range want {
		ev := <-events
		if ev.Type != wantType {
			t.Errorf("event[%d].Type = %s, want %s", i, ev.Type, wantType)
		}
	}
}

type fakeMirror struct {
	leads []models.Lead
	set   bool
}

func (m *fakeMirror) SetLeadsSnapshot(ctx context.Context, leads []models.Lead) error {
	m.leads = leads
	m.set = true
	return nil
}

func (m *fakeMirror) GetLeadsSnapshot(ctx context.Context) ([]models.Lead, bool, error) {
	return m.leads, m.set, nil
}

func TestListFallsBackToSnapshotWhenStoreErrors(t *testing.T) {
	db, err := sqlite.NewClient(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	mirror := &fakeMirror{}
	store := NewStore(db, mirror)
	ctx := context.Background()

	if _, err := store.Add(ctx, creatorVideo("gina"), "", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	lead, err := store.Add(ctx, creatorVideo("hank"), models.LeadStateDone, "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	db.Close()

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("list after store failure: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("snapshot served %d leads, want 2", len(all))
	}

	done, err := store.List(ctx, models.LeadStateDone)
	if err != nil {
		t.Fatalf("filtered list after store failure: %v", err)
	}
	if len(done) != 1 || done[0].ID != lead.ID {
		t.Errorf("filtered snapshot = %+v, want only the done lead", done)
	}
}

func TestExportCSVQuotedFieldRoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	lead, err := store.Add(ctx, creatorVideo("erin"), "", "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.SetNotes(ctx, lead.ID, `wants "exclusive" deal, follow up friday`); err != nil {
		t.Fatalf("set notes: %v", err)
	}

	out, err := store.Export(ctx, "csv")
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	if err != nil {
		t.Fatalf("parse exported csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(records))
	}

	header := strings.Join(records[0], ",")
	if header != "Name,Username,State,Notes,Added Date,Followers,Video Likes" {
		t.Errorf("header = %q", header)
	}

	row := records[1]
	if row[1] != "erin" {
		t.Errorf("username = %q, want erin", row[1])
	}
	if row[3] != `wants "exclusive" deal, follow up friday` {
		t.Errorf("notes did not round-trip: %q", row[3])
	}
	if row[5] != "12345" || row[6] != "678" {
		t.Errorf("numeric fields = %q/%q, want raw numbers", row[5], row[6])
	}
}

func TestExportJSON(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, creatorVideo("frank"), "", ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err := store.Export(ctx, "json")
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var leads []models.Lead
	if err := json.Unmarshal(out, &leads); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if len(leads) != 1 || leads[0].Video.Author.UniqueID != "frank" {
		t.Errorf("exported leads = %+v", leads)
	}

	if _, err := store.Export(ctx, "xml"); err == nil {
		t.Error("unsupported format succeeded, want error")
	}
}
