package thread

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"feed-agent/internal/feed"
)

type fakeLookup struct {
	posts map[int64]feed.Post
	errs  map[int64]error
	calls int
}

func (f *fakeLookup) LookupPost(ctx context.Context, id int64) (*feed.Post, error) {
	f.calls++
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	p, ok := f.posts[id]
	if !ok {
		return nil, &feed.APIError{StatusCode: http.StatusNotFound, Code: feed.ErrCodePostNotFound, Message: "no such post"}
	}
	return &p, nil
}

func chain(ids ...int64) map[int64]feed.Post {
	posts := make(map[int64]feed.Post, len(ids))
	for i, id := range ids {
		p := feed.Post{ID: id, AuthorID: 1, AuthorHandle: "a", Text: "t"}
		if i > 0 {
			p.ParentID = ids[i-1]
		}
		posts[id] = p
	}
	return posts
}

func TestBuildRootFirst(t *testing.T) {
	lookup := &fakeLookup{posts: chain(1, 2, 3)}
	b := NewBuilder(lookup, 9)

	got := b.Build(context.Background(), lookup.posts[3])
	if len(got) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(got))
	}
	for i, want := range []int64{1, 2, 3} {
		if got[i].ID != want {
			t.Fatalf("expected id %d at index %d, got %d", want, i, got[i].ID)
		}
	}
}

func TestBuildStandalonePost(t *testing.T) {
	lookup := &fakeLookup{}
	b := NewBuilder(lookup, 9)

	got := b.Build(context.Background(), feed.Post{ID: 7, AuthorID: 1, Text: "solo"})
	if len(got) != 1 || got[0].ID != 7 {
		t.Fatalf("expected single post 7, got %v", got)
	}
	if lookup.calls != 0 {
		t.Fatalf("expected no lookups, got %d", lookup.calls)
	}
}

func TestBuildMissingParentTruncates(t *testing.T) {
	posts := chain(1, 2, 3)
	delete(posts, 1)
	lookup := &fakeLookup{posts: posts}
	b := NewBuilder(lookup, 9)

	got := b.Build(context.Background(), posts[3])
	if len(got) != 2 {
		t.Fatalf("expected truncated thread of 2, got %d", len(got))
	}
	if got[0].ID != 2 || got[1].ID != 3 {
		t.Fatalf("expected [2 3], got [%d %d]", got[0].ID, got[1].ID)
	}
}

func TestBuildLookupErrorTruncates(t *testing.T) {
	posts := chain(1, 2, 3)
	lookup := &fakeLookup{posts: posts, errs: map[int64]error{1: errors.New("transport down")}}
	b := NewBuilder(lookup, 9)

	got := b.Build(context.Background(), posts[3])
	if len(got) != 2 {
		t.Fatalf("expected truncated thread of 2, got %d", len(got))
	}
}

func TestBuildCycleGuard(t *testing.T) {
	posts := map[int64]feed.Post{
		1: {ID: 1, ParentID: 2, AuthorID: 1, Text: "a"},
		2: {ID: 2, ParentID: 1, AuthorID: 1, Text: "b"},
	}
	lookup := &fakeLookup{posts: posts}
	b := NewBuilder(lookup, 9)

	got := b.Build(context.Background(), posts[2])
	if len(got) != 2 {
		t.Fatalf("expected cycle to stop at 2 posts, got %d", len(got))
	}
	if lookup.calls != 1 {
		t.Fatalf("expected a single lookup before the guard fired, got %d", lookup.calls)
	}
}

func TestBuildDepthBound(t *testing.T) {
	ids := make([]int64, 15)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	lookup := &fakeLookup{posts: chain(ids...)}
	b := NewBuilder(lookup, 4)

	got := b.Build(context.Background(), lookup.posts[15])
	if len(got) != 5 {
		t.Fatalf("expected bound+1 posts, got %d", len(got))
	}
	if lookup.calls != 4 {
		t.Fatalf("expected 4 lookups, got %d", lookup.calls)
	}
	if got[len(got)-1].ID != 15 {
		t.Fatalf("expected leaf last, got %d", got[len(got)-1].ID)
	}
}
