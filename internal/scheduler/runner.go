package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"feed-agent/internal/config"
	"feed-agent/internal/genctx"
	"feed-agent/internal/memory"
	"feed-agent/internal/x/loopx"
	"feed-agent/internal/x/textx"
)

// Generator produces original content from a rendered context.
type Generator interface {
	Generate(ctx context.Context, rc genctx.Context) (string, error)
}

// OwnPosts supplies the agent's recent standalone posts for style grounding.
type OwnPosts interface {
	RecentOwnPosts(ctx context.Context, n int) ([]memory.PostRecord, error)
}

// Publisher submits the finished post.
type Publisher interface {
	Publish(ctx context.Context, text string, conversationID, replyTo int64) ([]memory.PostRecord, error)
}

// TimelineSource provides the formatted home timeline, "" when unavailable.
type TimelineSource interface {
	Text(ctx context.Context) string
}

// InspirationSource provides a few recent headlines, nil when unavailable.
type InspirationSource interface {
	Headlines(ctx context.Context, n int) []string
}

type Options struct {
	Generator Generator
	OwnPosts  OwnPosts
	Publisher Publisher
	Timeline  TimelineSource
	Inspire   InspirationSource

	Persona string
	Styles  []string
	Themes  []string

	MinInterval time.Duration
	MaxInterval time.Duration
}

// Runner is the Content Scheduler loop: on a jittered interval it samples a
// style and theme, generates one original post and publishes it top-level.
type Runner struct {
	gen      Generator
	posts    OwnPosts
	pub      Publisher
	timeline TimelineSource
	inspire  InspirationSource

	persona string
	styles  []string
	themes  []string

	minInterval time.Duration
	maxInterval time.Duration
}

func NewRunner(opts Options) (*Runner, error) {
	if opts.Generator == nil || opts.OwnPosts == nil || opts.Publisher == nil {
		return nil, errors.New("generator, own posts and publisher are required")
	}
	if strings.TrimSpace(opts.Persona) == "" {
		return nil, errors.New("persona text is required")
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = config.DefaultComposeMinInterval
	}
	if opts.MaxInterval < opts.MinInterval {
		opts.MaxInterval = opts.MinInterval
	}
	return &Runner{
		gen:         opts.Generator,
		posts:       opts.OwnPosts,
		pub:         opts.Publisher,
		timeline:    opts.Timeline,
		inspire:     opts.Inspire,
		persona:     opts.Persona,
		styles:      opts.Styles,
		themes:      opts.Themes,
		minInterval: opts.MinInterval,
		maxInterval: opts.MaxInterval,
	}, nil
}

// Run blocks until ctx ends. The first post waits a full jittered interval;
// only the mention poller runs immediately at startup.
func (r *Runner) Run(ctx context.Context) {
	log.Printf("%s compose loop started: interval=[%s, %s]", config.LogPrefix, r.minInterval, r.maxInterval)
	loopx.RunJittered(ctx, r.minInterval, r.maxInterval, false, func(ctx context.Context) {
		if err := r.Tick(ctx); err != nil {
			log.Printf("%s compose tick failed: err=%v", config.LogPrefix, err)
		}
	})
}

// Tick generates and publishes one original post.
func (r *Runner) Tick(ctx context.Context) error {
	style := genctx.Sample(r.styles)
	theme := genctx.Sample(r.themes)

	ownText := ""
	if recs, err := r.posts.RecentOwnPosts(ctx, config.RecentOwnPostCount); err != nil {
		log.Printf("%s own posts unavailable: err=%v", config.LogPrefix, err)
	} else {
		ownText = formatOwnPosts(recs)
	}

	timelineText := ""
	if r.timeline != nil {
		timelineText = r.timeline.Text(ctx)
	}
	inspiration := ""
	if r.inspire != nil {
		inspiration = strings.Join(r.inspire.Headlines(ctx, config.InspireHeadlineCount), "\n")
	}

	rc, err := genctx.New(genctx.Context{
		Persona:         r.persona,
		Style:           style,
		Theme:           theme,
		OwnPostsText:    ownText,
		TimelineText:    timelineText,
		InspirationText: inspiration,
	})
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}

	text, err := r.gen.Generate(ctx, rc)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	text = textx.TruncatePost(text, config.PostBudgetRunes, config.PostCeilingRunes)
	if text == "" {
		log.Printf("%s compose produced empty text: theme=%s", config.LogPrefix, theme)
		return nil
	}

	recs, err := r.pub.Publish(ctx, text, 0, 0)
	if err != nil {
		return fmt.Errorf("publish original post: %w", err)
	}
	if len(recs) == 0 {
		// Duplicate absorbed upstream; nothing new this round.
		return nil
	}
	log.Printf("%s original post published: id=%d style=%s theme=%s", config.LogPrefix, recs[0].ID, style, theme)
	return nil
}

func formatOwnPosts(recs []memory.PostRecord) string {
	lines := make([]string, 0, len(recs))
	for _, rec := range recs {
		if body := strings.TrimSpace(rec.Body); body != "" {
			lines = append(lines, body)
		}
	}
	return strings.Join(lines, "\n")
}
