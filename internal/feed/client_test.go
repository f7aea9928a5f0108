package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(ClientConfig{BaseURL: srv.URL, BearerToken: "token-1"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestClient_SearchMentions_DecodesAndSkipsMalformed(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-1" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/search/recent" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("q"); got != "@art_bot" {
			http.Error(w, "bad query "+got, http.StatusBadRequest)
			return
		}
		if got := r.URL.Query().Get("count"); got != "5" {
			http.Error(w, "bad count "+got, http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"posts": []map[string]any{
				{
					"id":              "1002",
					"text":            "hey &amp; hello @art_bot",
					"conversation_id": "900",
					"in_reply_to_id":  "1000",
					"created_at":      "2026-08-25T10:00:00Z",
					"author":          map[string]any{"id": "7", "handle": "alice", "name": "Alice"},
				},
				{
					// Malformed id: dropped during conversion.
					"id":     "not-a-number",
					"text":   "junk",
					"author": map[string]any{"id": "8", "handle": "bob"},
				},
			},
		})
	})

	posts, err := c.SearchMentions(context.Background(), "@art_bot", 5)
	if err != nil {
		t.Fatalf("SearchMentions: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	p := posts[0]
	if p.ID != 1002 || p.AuthorID != 7 || p.ParentID != 1000 || p.ConversationID != 900 {
		t.Fatalf("unexpected post: %+v", p)
	}
	if p.Text != "hey & hello @art_bot" {
		t.Fatalf("expected entities unescaped, got %q", p.Text)
	}
}

func TestClient_LookupPost_NotFound(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"code": 144, "message": "No post found with that ID."}},
		})
	})

	_, err := c.LookupPost(context.Background(), 31337)
	if err == nil {
		t.Fatalf("expected error for missing post")
	}
	if !IsPostNotFound(err) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
	if IsDuplicatePost(err) {
		t.Fatalf("not-found must not classify as duplicate")
	}
}

func TestClient_PublishPost_DuplicateSubmission(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/posts" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"code": 187, "message": "Post is a duplicate."}},
		})
	})

	_, err := c.PublishPost(context.Background(), "hello again", 0)
	if err == nil {
		t.Fatalf("expected duplicate rejection error")
	}
	if !IsDuplicatePost(err) {
		t.Fatalf("expected duplicate classification, got %v", err)
	}
}

func TestClient_PublishPost_Success(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body publishJSON
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		if body.Text != "a fine reply" || body.InReplyToID != "1002" {
			http.Error(w, "unexpected payload", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":              "1005",
			"text":            "a fine reply",
			"conversation_id": "900",
			"in_reply_to_id":  "1002",
			"created_at":      "2026-08-25T10:01:00Z",
			"author":          map[string]any{"id": "42", "handle": "art_bot", "name": "Art Bot"},
		})
	})

	p, err := c.PublishPost(context.Background(), "a fine reply", 1002)
	if err != nil {
		t.Fatalf("PublishPost: %v", err)
	}
	if p.ID != 1005 || p.ParentID != 1002 || p.AuthorID != 42 {
		t.Fatalf("unexpected created post: %+v", p)
	}
}

func TestClient_PlainTextErrorBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "over capacity", http.StatusServiceUnavailable)
	})

	_, err := c.HomeTimeline(context.Background(), 10)
	if err == nil {
		t.Fatalf("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable || apiErr.Code != 0 {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}
