package inspire

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"feed-agent/internal/state"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Test Feed</title>
<item><title>First story</title><description><![CDATA[<p>Body <b>one</b> here</p>]]></description></item>
<item><title>Second story</title><description>plain two</description></item>
<item><title>Third story</title><description>plain three</description></item>
</channel>
</rss>`

func TestHeadlinesParsesAndStripsHTML(t *testing.T) {
	t.Setenv(state.EnvStateDir, t.TempDir())

	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssBody)
	}))
	t.Cleanup(srv.Close)

	s := NewSource(srv.Client(), []string{srv.URL})

	lines := s.Headlines(context.Background(), 2)
	if len(lines) != 2 {
		t.Fatalf("expected 2 headlines, got %d: %v", len(lines), lines)
	}
	if lines[0] != "First story: Body one here" {
		t.Fatalf("expected stripped first headline, got %q", lines[0])
	}
	if strings.Contains(lines[0], "<") {
		t.Fatalf("expected no markup, got %q", lines[0])
	}

	// Second call revalidates and serves the stored headlines.
	again := s.Headlines(context.Background(), 2)
	if len(again) != 2 || again[0] != lines[0] {
		t.Fatalf("expected cached headlines on 304, got %v", again)
	}
	if requests != 2 {
		t.Fatalf("expected 2 requests, got %d", requests)
	}
}

func TestHeadlinesLimit(t *testing.T) {
	t.Setenv(state.EnvStateDir, t.TempDir())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssBody)
	}))
	t.Cleanup(srv.Close)

	s := NewSource(srv.Client(), []string{srv.URL})
	if got := s.Headlines(context.Background(), 1); len(got) != 1 {
		t.Fatalf("expected 1 headline, got %d", len(got))
	}
	if got := s.Headlines(context.Background(), 0); got != nil {
		t.Fatalf("expected nil for zero limit, got %v", got)
	}
}

func TestHeadlinesSkipsBrokenSource(t *testing.T) {
	t.Setenv(state.EnvStateDir, t.TempDir())

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssBody)
	}))
	t.Cleanup(good.Close)

	s := NewSource(nil, []string{broken.URL, good.URL})
	lines := s.Headlines(context.Background(), 2)
	if len(lines) != 2 {
		t.Fatalf("expected headlines from the healthy source, got %v", lines)
	}
}

func TestHeadlinesNoSources(t *testing.T) {
	s := NewSource(nil, nil)
	if got := s.Headlines(context.Background(), 3); got != nil {
		t.Fatalf("expected nil for no sources, got %v", got)
	}
}
