package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/influencer-scout/backend/internal/search/tiktok"
	"github.com/influencer-scout/backend/internal/storage/models"
)

type fakeFetcher struct {
	pages []*tiktok.Page
	errAt int // 1-based page index that fails; 0 means never
	calls []call
}

type call struct {
	cursor   int64
	searchID string
}

func (f *fakeFetcher) FetchPage(ctx context.Context, keyword string, cursor int64, searchID string) (*tiktok.Page, error) {
	f.calls = append(f.calls, call{cursor: cursor, searchID: searchID})
	n := len(f.calls)
	if f.errAt != 0 && n == f.errAt {
		return nil, errors.New("upstream down")
	}
	if n > len(f.pages) {
		return nil, fmt.Errorf("unexpected call %d", n)
	}
	return f.pages[n-1], nil
}

func page(ids []string, hasMore bool, cursor int64, searchID string) *tiktok.Page {
	items := make([]models.Video, len(ids))
	for i, id := range ids {
		items[i] = models.Video{ID: id}
	}
	return &tiktok.Page{Items: items, HasMore: hasMore, Cursor: cursor, SearchID: searchID}
}

func newTestAggregator(f *fakeFetcher) (*Aggregator, *int) {
	a := NewAggregator(f, 500*time.Millisecond)
	delays := 0
	a.sleep = func(ctx context.Context, d time.Duration) error {
		delays++
		return nil
	}
	return a, &delays
}

func TestRunConcatenatesPagesInOrder(t *testing.T) {
	f := &fakeFetcher{pages: []*tiktok.Page{
		page([]string{"a", "b"}, true, 10, "log-1"),
		page([]string{"c"}, true, 20, "log-2"),
		page([]string{"d", "e"}, false, 30, "log-3"),
	}}
	a, delays := newTestAggregator(f)

	res, err := a.Run(context.Background(), Request{Keyword: "cats", MaxPages: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"a", "b", "c", "d", "e"}
	if len(res.Videos) != len(want) {
		t.Fatalf("got %d videos, want %d", len(res.Videos), len(want))
	}
	for i, id := range want {
		if res.Videos[i].ID != id {
			t.Errorf("videos[%d] = %s, want %s", i, res.Videos[i].ID, id)
		}
	}

	if *delays != 2 {
		t.Errorf("delay invoked %d times, want 2", *delays)
	}
	if res.HasMore {
		t.Error("HasMore = true, want false")
	}
	if res.Cursor != 30 || res.SearchID != "log-3" {
		t.Errorf("cursor state = (%d, %s), want (30, log-3)", res.Cursor, res.SearchID)
	}
}

func TestRunStartsFromZeroState(t *testing.T) {
	f := &fakeFetcher{pages: []*tiktok.Page{
		page([]string{"a"}, false, 5, "log-1"),
	}}
	a, delays := newTestAggregator(f)

	if _, err := a.Run(context.Background(), Request{Keyword: "cats", MaxPages: 3}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if f.calls[0].cursor != 0 || f.calls[0].searchID != "0" {
		t.Errorf("first call = %+v, want cursor 0 search_id 0", f.calls[0])
	}
	// has_more false after page 1: stop early, no delay.
	if len(f.calls) != 1 {
		t.Errorf("fetched %d pages, want 1", len(f.calls))
	}
	if *delays != 0 {
		t.Errorf("delay invoked %d times, want 0", *delays)
	}
}

func TestRunResumesFromPriorState(t *testing.T) {
	f := &fakeFetcher{pages: []*tiktok.Page{
		page([]string{"x"}, true, 40, "log-9"),
	}}
	a, _ := newTestAggregator(f)

	res, err := a.Run(context.Background(), Request{
		Keyword:  "cats",
		MaxPages: 1,
		Resume:   &CursorState{Cursor: 30, SearchID: "log-8"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if f.calls[0].cursor != 30 || f.calls[0].searchID != "log-8" {
		t.Errorf("resume call = %+v, want cursor 30 search_id log-8", f.calls[0])
	}
	if !res.HasMore {
		t.Error("HasMore = false, want true")
	}
}

func TestRunAbortsOnPageFailure(t *testing.T) {
	f := &fakeFetcher{
		pages: []*tiktok.Page{
			page([]string{"a"}, true, 10, "log-1"),
		},
		errAt: 2,
	}
	a, _ := newTestAggregator(f)

	res, err := a.Run(context.Background(), Request{Keyword: "cats", MaxPages: 3})
	if err == nil {
		t.Fatal("Run succeeded, want failure propagated")
	}
	if res != nil {
		t.Errorf("got partial result %+v, want nil", res)
	}
	if len(f.calls) != 2 {
		t.Errorf("fetched %d pages after failure, want 2", len(f.calls))
	}
}

func TestRunKeepsSearchIDWhenPageOmitsIt(t *testing.T) {
	f := &fakeFetcher{pages: []*tiktok.Page{
		page([]string{"a"}, true, 10, "log-1"),
		page([]string{"b"}, false, 20, ""),
	}}
	a, _ := newTestAggregator(f)

	res, err := a.Run(context.Background(), Request{Keyword: "cats", MaxPages: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.SearchID != "log-1" {
		t.Errorf("search id = %s, want log-1 carried forward", res.SearchID)
	}
	if f.calls[1].searchID != "log-1" {
		t.Errorf("second call search id = %s, want log-1", f.calls[1].searchID)
	}
}

func TestRunCancelledDuringDelay(t *testing.T) {
	f := &fakeFetcher{pages: []*tiktok.Page{
		page([]string{"a"}, true, 10, "log-1"),
		page([]string{"b"}, false, 20, "log-2"),
	}}
	a := NewAggregator(f, 500*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	a.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := a.Run(ctx, Request{Keyword: "cats", MaxPages: 2})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(f.calls) != 1 {
		t.Errorf("fetched %d pages after cancellation, want 1", len(f.calls))
	}
}

func TestRunRequiresKeyword(t *testing.T) {
	a, _ := newTestAggregator(&fakeFetcher{})
	if _, err := a.Run(context.Background(), Request{MaxPages: 1}); err == nil {
		t.Fatal("Run with empty keyword succeeded, want error")
	}
}
