package timeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"feed-agent/internal/feed"
	"feed-agent/internal/state"
)

type fakeFetcher struct {
	posts []feed.Post
	err   error
	calls int
}

func (f *fakeFetcher) HomeTimeline(ctx context.Context, limit int) ([]feed.Post, error) {
	f.calls++
	return f.posts, f.err
}

func TestTextFetchesOnceWithinTTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.json")
	fetcher := &fakeFetcher{posts: []feed.Post{{ID: 1, AuthorHandle: "alice", Text: "news"}}}
	c := NewCache(fetcher, path, time.Hour, 10)

	first := c.Text(context.Background())
	if first != "@alice: news" {
		t.Fatalf("expected formatted timeline, got %q", first)
	}
	second := c.Text(context.Background())
	if second != first {
		t.Fatalf("expected cached text, got %q", second)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected a single fetch within the TTL, got %d", fetcher.calls)
	}
}

func TestTextRefreshesAfterTTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.json")
	stale := snapshot{FetchedAt: time.Now().Add(-2 * time.Hour), Text: "@old: stale"}
	if err := state.SaveJSONFile(path, stale); err != nil {
		t.Fatalf("expected seed snapshot, got %v", err)
	}

	fetcher := &fakeFetcher{posts: []feed.Post{{ID: 2, AuthorHandle: "bob", Text: "fresh"}}}
	c := NewCache(fetcher, path, time.Hour, 10)

	got := c.Text(context.Background())
	if got != "@bob: fresh" {
		t.Fatalf("expected refreshed text, got %q", got)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected one fetch, got %d", fetcher.calls)
	}
}

func TestTextServesStaleOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.json")
	stale := snapshot{FetchedAt: time.Now().Add(-2 * time.Hour), Text: "@old: stale"}
	if err := state.SaveJSONFile(path, stale); err != nil {
		t.Fatalf("expected seed snapshot, got %v", err)
	}

	fetcher := &fakeFetcher{err: errors.New("feed down")}
	c := NewCache(fetcher, path, time.Hour, 10)

	got := c.Text(context.Background())
	if got != "@old: stale" {
		t.Fatalf("expected stale text on refresh failure, got %q", got)
	}
}

func TestTextEmptyWhenNothingAvailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.json")
	fetcher := &fakeFetcher{err: errors.New("feed down")}
	c := NewCache(fetcher, path, time.Hour, 10)

	if got := c.Text(context.Background()); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}
