package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/influencer-scout/backend/internal/history"
	"github.com/influencer-scout/backend/internal/storage/sqlite"
)

func newHistoryApp(t *testing.T) (*fiber.App, *history.Service) {
	t.Helper()

	db, err := sqlite.NewClient(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	svc := history.NewService(db, nil)
	h := NewHistoryHandler(svc)

	app := fiber.New()
	app.Get("/search-history", h.List)
	app.Post("/search-history", h.Add)
	app.Delete("/search-history", h.Clear)
	app.Get("/search-history/:id", h.Get)
	app.Delete("/search-history/:id", h.Delete)
	return app, svc
}

func TestHistoryAddRejectsIncompleteRecords(t *testing.T) {
	app, svc := newHistoryApp(t)

	bodies := []string{
		`{"keyword":"skincare","results":[],"timestamp":"2024-03-01T10:00:00Z"}`,
		`{"id":"search-1","results":[],"timestamp":"2024-03-01T10:00:00Z"}`,
		`{"id":"search-1","keyword":"skincare","timestamp":"2024-03-01T10:00:00Z"}`,
		`{"id":"search-1","keyword":"skincare","results":[]}`,
		`{"id":"search-1","keyword":"skincare","results":[],"timestamp":null}`,
		`{"id":"search-1","keyword":"skincare","results":[],"timestamp":"not a date"}`,
	}

	for _, body := range bodies {
		req := httptest.NewRequest("POST", "/search-history", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Errorf("body %s: status %d, want 400", body, resp.StatusCode)
		}
	}

	records, err := svc.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("rejected posts created %d records, want 0", len(records))
	}
}

func TestHistoryAddAcceptsEpochMillisTimestamp(t *testing.T) {
	app, svc := newHistoryApp(t)

	body := `{"id":"search-2","keyword":"fitness","results":[],"timestamp":1709287200000}`
	req := httptest.NewRequest("POST", "/search-history", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status %d, want 201", resp.StatusCode)
	}

	rec, err := svc.Get(context.Background(), "search-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := rec.Timestamp.UnixMilli(); got != 1709287200000 {
		t.Errorf("stored timestamp %d, want 1709287200000", got)
	}
}

func TestHistoryAddAndFetch(t *testing.T) {
	app, _ := newHistoryApp(t)

	body := `{"id":"search-1","keyword":"skincare","results":[],"timestamp":"2024-03-01T10:00:00Z"}`
	req := httptest.NewRequest("POST", "/search-history", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status %d, want 201", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/search-history/search-1", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("get status %d, want 200", resp.StatusCode)
	}

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Keyword string `json:"keyword"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Success || envelope.Data.Keyword != "skincare" {
		t.Errorf("got success=%v keyword=%q", envelope.Success, envelope.Data.Keyword)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/search-history/search-missing", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("missing id status %d, want 404", resp.StatusCode)
	}
}
