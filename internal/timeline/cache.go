package timeline

import (
	"context"
	"log"
	"sync"
	"time"

	"feed-agent/internal/config"
	"feed-agent/internal/feed"
	"feed-agent/internal/genctx"
	"feed-agent/internal/state"
)

type snapshot struct {
	FetchedAt time.Time `json:"fetched_at"`
	Text      string    `json:"text"`
}

// Fetcher pulls the live home timeline.
type Fetcher interface {
	HomeTimeline(ctx context.Context, limit int) ([]feed.Post, error)
}

// Cache serves a formatted home-timeline snapshot, refreshing from the feed
// when the persisted copy is older than the TTL. Purely an optimization:
// failures degrade to the stale text or an empty string, never an error.
// Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	fetcher Fetcher
	path    string
	ttl     time.Duration
	limit   int
}

func NewCache(fetcher Fetcher, path string, ttl time.Duration, limit int) *Cache {
	if ttl <= 0 {
		ttl = config.TimelineCacheTTL
	}
	if limit <= 0 {
		limit = config.TimelinePostCount
	}
	return &Cache{fetcher: fetcher, path: path, ttl: ttl, limit: limit}
}

// Text returns the formatted timeline, fetching and persisting a fresh
// snapshot when the stored one has expired.
func (c *Cache) Text(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := state.LoadJSONFile[snapshot](c.path)
	if err == nil && snap.Text != "" && time.Since(snap.FetchedAt) < c.ttl {
		return snap.Text
	}

	posts, err := c.fetcher.HomeTimeline(ctx, c.limit)
	if err != nil {
		log.Printf("%s timeline refresh failed: err=%v", config.LogPrefix, err)
		// Stale beats empty.
		return snap.Text
	}

	text := genctx.FormatPosts(posts)
	if err := state.SaveJSONFile(c.path, snapshot{FetchedAt: time.Now(), Text: text}); err != nil {
		log.Printf("%s timeline snapshot save failed: err=%v", config.LogPrefix, err)
	}
	return text
}
