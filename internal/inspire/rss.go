package inspire

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"feed-agent/internal/config"
	"feed-agent/internal/state"
	"feed-agent/internal/x/textx"
)

const (
	maxFeedBytes      = 5 * 1024 * 1024
	maxStoredLines    = 10
	summaryPreviewLen = 120
)

// sourceState carries the conditional-fetch validators and the last parsed
// headlines per feed URL.
type sourceState struct {
	ETag         string   `json:"etag,omitempty"`
	LastModified string   `json:"last_modified,omitempty"`
	Headlines    []string `json:"headlines,omitempty"`
}

// Source polls RSS/Atom feeds for a few recent headlines used as extra
// generation context. Best-effort throughout: a broken feed contributes
// nothing.
type Source struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	urls       []string
}

func NewSource(httpClient *http.Client, urls []string) *Source {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Source{httpClient: httpClient, parser: gofeed.NewParser(), urls: urls}
}

// Headlines returns up to n recent headline lines across the configured
// sources, in configuration order.
func (s *Source) Headlines(ctx context.Context, n int) []string {
	if n <= 0 || len(s.urls) == 0 {
		return nil
	}
	var out []string
	for _, url := range s.urls {
		if len(out) >= n {
			break
		}
		lines, err := s.fetch(ctx, url, n-len(out))
		if err != nil {
			log.Printf("%s inspire fetch failed: url=%s err=%v", config.LogPrefix, url, err)
			continue
		}
		out = append(out, lines...)
	}
	return out
}

func (s *Source) fetch(ctx context.Context, feedURL string, limit int) ([]string, error) {
	statePath := state.SourceFile("inspire", feedURL)
	st, err := state.LoadJSONFile[sourceState](statePath)
	if err != nil {
		st = sourceState{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "feed-agent/1.0 (+rss)")
	if st.ETag != "" {
		req.Header.Set("If-None-Match", st.ETag)
	}
	if st.LastModified != "" {
		req.Header.Set("If-Modified-Since", st.LastModified)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return capLines(st.Headlines, limit), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(b))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, err
	}
	parsed, err := s.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, item := range parsed.Items {
		if item == nil || len(lines) >= maxStoredLines {
			continue
		}
		if line := headline(item); line != "" {
			lines = append(lines, line)
		}
	}

	st.ETag = strings.TrimSpace(resp.Header.Get("ETag"))
	st.LastModified = strings.TrimSpace(resp.Header.Get("Last-Modified"))
	st.Headlines = lines
	if err := state.SaveJSONFile(statePath, st); err != nil {
		log.Printf("%s inspire state save failed: url=%s err=%v", config.LogPrefix, feedURL, err)
	}

	return capLines(lines, limit), nil
}

// headline renders one item as "title: summary".
func headline(item *gofeed.Item) string {
	title := strings.TrimSpace(item.Title)
	summary := htmlText(item.Description)
	if summary == "" {
		summary = htmlText(item.Content)
	}
	summary = textx.PreviewString(summary, summaryPreviewLen)

	switch {
	case title == "" && summary == "":
		return ""
	case title == "":
		return summary
	case summary == "":
		return title
	default:
		return title + ": " + summary
	}
}

// htmlText strips markup from an RSS item body.
func htmlText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return textx.CleanText(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func capLines(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[:n]
}
