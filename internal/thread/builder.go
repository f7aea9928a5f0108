package thread

import (
	"context"
	"log"

	"feed-agent/internal/config"
	"feed-agent/internal/feed"
)

// ParentLookup resolves a post by id.
type ParentLookup interface {
	LookupPost(ctx context.Context, id int64) (*feed.Post, error)
}

// Builder reconstructs a conversation by walking reply-parent links.
type Builder struct {
	lookup   ParentLookup
	maxDepth int
}

// NewBuilder returns a Builder resolving at most maxDepth ancestors per
// thread. maxDepth <= 0 selects the default bound.
func NewBuilder(lookup ParentLookup, maxDepth int) *Builder {
	if maxDepth <= 0 {
		maxDepth = config.ThreadMaxDepth
	}
	return &Builder{lookup: lookup, maxDepth: maxDepth}
}

// Build walks parent links from leaf and returns the thread root-first, leaf
// included. The walk stops at a post with no parent, at the depth bound, or
// at an already-seen id. A missing or unfetchable parent truncates the
// thread at that point; Build never fails.
//
// The result holds at most maxDepth+1 posts. A result longer than maxDepth
// means the walk hit the bound without reaching the thread root.
func (b *Builder) Build(ctx context.Context, leaf feed.Post) []feed.Post {
	posts := []feed.Post{leaf}
	seen := map[int64]bool{leaf.ID: true}

	cur := leaf
	for cur.IsReply() && len(posts) <= b.maxDepth {
		if seen[cur.ParentID] {
			break
		}
		parent, err := b.lookup.LookupPost(ctx, cur.ParentID)
		if err != nil || parent == nil {
			if err != nil && !feed.IsPostNotFound(err) {
				log.Printf("%s thread parent lookup failed: id=%d err=%v", config.LogPrefix, cur.ParentID, err)
			}
			break
		}
		seen[parent.ID] = true
		posts = append(posts, *parent)
		cur = *parent
	}

	for i, j := 0, len(posts)-1; i < j; i, j = i+1, j-1 {
		posts[i], posts[j] = posts[j], posts[i]
	}
	return posts
}
