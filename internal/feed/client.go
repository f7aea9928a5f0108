package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxResponseBytes = 1 << 20

type ClientConfig struct {
	BaseURL     string
	BearerToken string

	// HTTPClient is used for every request. When nil, a default client with a
	// 25s timeout is used.
	HTTPClient *http.Client
}

func (c ClientConfig) withDefaults() ClientConfig {
	out := c
	out.BaseURL = strings.TrimRight(strings.TrimSpace(out.BaseURL), "/")
	if out.HTTPClient == nil {
		out.HTTPClient = &http.Client{Timeout: 25 * time.Second}
	}
	return out
}

// Client is the feed transport. It is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(cfg ClientConfig) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("feed base url is required")
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      strings.TrimSpace(cfg.BearerToken),
		httpClient: cfg.HTTPClient,
	}, nil
}

// SearchMentions returns up to limit recent posts matching query
// (typically "@handle"), newest first as delivered by the platform.
func (c *Client) SearchMentions(ctx context.Context, query string, limit int) ([]Post, error) {
	q := url.Values{}
	q.Set("q", query)
	if limit > 0 {
		q.Set("count", strconv.Itoa(limit))
	}

	var out postListJSON
	if err := c.getJSON(ctx, "/search/recent", q, &out); err != nil {
		return nil, fmt.Errorf("search mentions: %w", err)
	}
	return toPosts(out.Posts), nil
}

// LookupPost fetches a single post by id. A missing post surfaces as an
// *APIError satisfying IsPostNotFound.
func (c *Client) LookupPost(ctx context.Context, id int64) (*Post, error) {
	var out postJSON
	if err := c.getJSON(ctx, "/posts/"+FormatID(id), nil, &out); err != nil {
		return nil, err
	}
	p, err := out.toPost()
	if err != nil {
		return nil, fmt.Errorf("lookup post %d: %w", id, err)
	}
	return &p, nil
}

// HomeTimeline returns up to limit recent posts from the owned identity's
// home timeline.
func (c *Client) HomeTimeline(ctx context.Context, limit int) ([]Post, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("count", strconv.Itoa(limit))
	}

	var out postListJSON
	if err := c.getJSON(ctx, "/timeline/home", q, &out); err != nil {
		return nil, fmt.Errorf("home timeline: %w", err)
	}
	return toPosts(out.Posts), nil
}

// PublishPost submits text as a new post, optionally as a reply to replyTo
// (0 = top-level). Platform rejections come back as *APIError; duplicate
// submissions satisfy IsDuplicatePost and carry no created post.
func (c *Client) PublishPost(ctx context.Context, text string, replyTo int64) (*Post, error) {
	payload := publishJSON{Text: text}
	if replyTo > 0 {
		payload.InReplyToID = FormatID(replyTo)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode publish payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/posts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out postJSON
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	p, err := out.toPost()
	if err != nil {
		return nil, fmt.Errorf("decode published post: %w", err)
	}
	return &p, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read feed response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode feed response: %w", err)
	}
	return nil
}

type errorListJSON struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func decodeAPIError(status int, body []byte) error {
	var payload errorListJSON
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Errors) > 0 {
		return &APIError{
			StatusCode: status,
			Code:       payload.Errors[0].Code,
			Message:    strings.TrimSpace(payload.Errors[0].Message),
		}
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
}
