package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"feed-agent/internal/x/loopx"
)

const (
	DefaultBaseURL           = "https://api.openai.com/v1"
	DefaultModel             = "gpt-4o-mini"
	DefaultSDKMaxRetries     = 5
	DefaultRequestTimeout    = 75 * time.Second
	DefaultHTTPClientTimeout = 75 * time.Second
)

// ErrOverloaded marks capacity exhaustion reported by the generation service.
// Callers abandon the current work item and let a later tick retry it.
var ErrOverloaded = errors.New("generation service overloaded")

type ChatConfig struct {
	BaseURL string
	APIKey  string
	Model   string

	// SDK client options.
	MaxRetries     int
	RequestTimeout time.Duration
}

func (c ChatConfig) withDefaults() ChatConfig {
	out := c
	if strings.TrimSpace(out.BaseURL) == "" {
		out.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(out.Model) == "" {
		out.Model = DefaultModel
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = DefaultSDKMaxRetries
	}
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = DefaultRequestTimeout
	}
	return out
}

func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultHTTPClientTimeout}
}

type ClientOptions struct {
	Config     ChatConfig
	HTTPClient *http.Client

	// Outer retry loop around the SDK call.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	LogPrefix string
}

// Client calls an OpenAI-compatible chat-completion endpoint.
// It is safe for concurrent use.
type Client struct {
	cfg        ChatConfig
	httpClient *http.Client

	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	logPrefix string
}

func NewClient(opts ClientOptions) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = NewHTTPClient()
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 250 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 5 * time.Second
	}
	return &Client{
		cfg:            opts.Config.withDefaults(),
		httpClient:     opts.HTTPClient,
		maxRetries:     opts.MaxRetries,
		initialBackoff: opts.InitialBackoff,
		maxBackoff:     opts.MaxBackoff,
		logPrefix:      opts.LogPrefix,
	}
}

// Model returns the resolved model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete sends one system+user exchange and returns the model's trimmed
// text. Transient failures retry with jittered exponential backoff; when the
// retries are exhausted on a capacity rejection the returned error satisfies
// errors.Is(err, ErrOverloaded).
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", fmt.Errorf("api key is required")
	}

	messages := []openaigo.ChatCompletionMessageParamUnion{
		openaigo.SystemMessage(system),
		openaigo.UserMessage(user),
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		resp, err := c.call(ctx, messages)
		if err == nil && resp != nil && len(resp.Choices) > 0 {
			return strings.TrimSpace(resp.Choices[0].Message.Content), nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("llm returned empty choices")
		}

		if attempt >= c.maxRetries-1 {
			break
		}

		backoff := WithJitter(ExpBackoff(attempt, c.initialBackoff, c.maxBackoff))
		if c.logPrefix != "" {
			log.Printf("%s llm transient failure: retry=%d/%d err=%v backoff=%s",
				c.logPrefix, attempt+1, c.maxRetries, lastErr, backoff,
			)
		}
		if !loopx.SleepWithContext(ctx, backoff) {
			return "", ctx.Err()
		}
	}

	if isCapacityError(lastErr) {
		return "", fmt.Errorf("%w: %v", ErrOverloaded, lastErr)
	}
	return "", lastErr
}

func (c *Client) call(ctx context.Context, messages []openaigo.ChatCompletionMessageParamUnion) (*openaigo.ChatCompletion, error) {
	client := openaigo.NewClient(
		option.WithBaseURL(strings.TrimRight(strings.TrimSpace(c.cfg.BaseURL), "/")),
		option.WithAPIKey(strings.TrimSpace(c.cfg.APIKey)),
		option.WithHTTPClient(c.httpClient),
		option.WithMaxRetries(c.cfg.MaxRetries),
		option.WithRequestTimeout(c.cfg.RequestTimeout),
	)

	params := openaigo.ChatCompletionNewParams{
		Model:    openaigo.ChatModel(strings.TrimSpace(c.cfg.Model)),
		Messages: messages,
	}

	return client.Chat.Completions.New(ctx, params)
}

// isCapacityError reports whether err is a rate-limit or server-capacity
// rejection from the generation service.
func isCapacityError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openaigo.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
}
