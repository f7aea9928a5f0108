package poller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"feed-agent/internal/audit"
	"feed-agent/internal/checkpoint"
	"feed-agent/internal/config"
	"feed-agent/internal/feed"
	"feed-agent/internal/gate"
	"feed-agent/internal/genctx"
	"feed-agent/internal/llm"
	"feed-agent/internal/memory"
	"feed-agent/internal/x/loopx"
	"feed-agent/internal/x/textx"
)

// MentionSource fetches mention candidates for the owned handle.
type MentionSource interface {
	SearchMentions(ctx context.Context, query string, limit int) ([]feed.Post, error)
}

// ThreadBuilder reconstructs the conversation a mention belongs to.
type ThreadBuilder interface {
	Build(ctx context.Context, leaf feed.Post) []feed.Post
}

// DecisionGate is the two-stage respond/ignore/stop oracle.
type DecisionGate interface {
	Decide(ctx context.Context, rc genctx.Context) (gate.Verdict, error)
	Compose(ctx context.Context, rc genctx.Context) (string, error)
}

// Memory is the conversation/post store surface the poller needs.
type Memory interface {
	EnsureConversation(ctx context.Context, id int64) error
	RecordPost(ctx context.Context, rec memory.PostRecord) error
	RecentInteractions(ctx context.Context, conversationID int64, n int) ([]memory.PostRecord, error)
	MarkConversationStopped(ctx context.Context, id int64) error
	ConversationStopped(ctx context.Context, id int64) (bool, error)
}

// Publisher submits replies and absorbs platform duplicates.
type Publisher interface {
	Publish(ctx context.Context, text string, conversationID, replyTo int64) ([]memory.PostRecord, error)
}

// TimelineSource provides the formatted home timeline, "" when unavailable.
type TimelineSource interface {
	Text(ctx context.Context) string
}

// Auditor persists one artifact per successful reply.
type Auditor interface {
	WriteReply(e audit.Entry) (string, error)
}

type Options struct {
	Feed       MentionSource
	Threads    ThreadBuilder
	Gate       DecisionGate
	Memory     Memory
	Publisher  Publisher
	Checkpoint *checkpoint.Store
	Timeline   TimelineSource
	Audit      Auditor

	Handle  string
	SelfID  int64
	Persona string
	Styles  []string

	Fanout      int
	MinInterval time.Duration
	MaxInterval time.Duration
	Cooldown    time.Duration
}

// Runner is the Interaction Poller loop: fetch mentions, filter by the
// checkpoint watermark, rebuild threads, gate, generate, publish, advance.
type Runner struct {
	feed     MentionSource
	threads  ThreadBuilder
	gate     DecisionGate
	memory   Memory
	pub      Publisher
	cp       *checkpoint.Store
	timeline TimelineSource
	audit    Auditor

	handle  string
	selfID  int64
	persona string
	styles  []string

	fanout      int
	minInterval time.Duration
	maxInterval time.Duration
	cooldown    time.Duration
}

func NewRunner(opts Options) (*Runner, error) {
	switch {
	case opts.Feed == nil, opts.Threads == nil, opts.Gate == nil,
		opts.Memory == nil, opts.Publisher == nil, opts.Checkpoint == nil:
		return nil, errors.New("feed, threads, gate, memory, publisher and checkpoint are required")
	case strings.TrimSpace(opts.Handle) == "":
		return nil, errors.New("handle is required")
	case opts.SelfID <= 0:
		return nil, errors.New("self id is required")
	case strings.TrimSpace(opts.Persona) == "":
		return nil, errors.New("persona text is required")
	}
	if opts.Fanout <= 0 {
		opts.Fanout = config.DefaultMentionFanout
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = config.DefaultPollMinInterval
	}
	if opts.MaxInterval < opts.MinInterval {
		opts.MaxInterval = opts.MinInterval
	}
	if opts.Cooldown == 0 {
		opts.Cooldown = config.PublishCooldown
	}
	if opts.Cooldown < 0 {
		opts.Cooldown = 0
	}
	return &Runner{
		feed:        opts.Feed,
		threads:     opts.Threads,
		gate:        opts.Gate,
		memory:      opts.Memory,
		pub:         opts.Publisher,
		cp:          opts.Checkpoint,
		timeline:    opts.Timeline,
		audit:       opts.Audit,
		handle:      strings.TrimPrefix(strings.TrimSpace(opts.Handle), "@"),
		selfID:      opts.SelfID,
		persona:     opts.Persona,
		styles:      opts.Styles,
		fanout:      opts.Fanout,
		minInterval: opts.MinInterval,
		maxInterval: opts.MaxInterval,
		cooldown:    opts.Cooldown,
	}, nil
}

// Run blocks until ctx ends. The first tick fires immediately; every later
// tick waits a fresh jittered delay.
func (r *Runner) Run(ctx context.Context) {
	log.Printf("%s poll loop started: handle=@%s interval=[%s, %s] checkpoint=%d",
		config.LogPrefix, r.handle, r.minInterval, r.maxInterval, r.cp.Last(),
	)
	loopx.RunJittered(ctx, r.minInterval, r.maxInterval, true, func(ctx context.Context) {
		if err := r.Tick(ctx); err != nil {
			log.Printf("%s poll tick failed: err=%v", config.LogPrefix, err)
		}
	})
}

// Tick processes one poll round. Mentions run strictly ascending by id; a
// failed mention ends the round so that no later advance can bury it, and
// the untouched watermark retries it next tick.
func (r *Runner) Tick(ctx context.Context) error {
	mentions, err := r.feed.SearchMentions(ctx, "@"+r.handle, r.fanout)
	if err != nil {
		return fmt.Errorf("search mentions: %w", err)
	}

	candidates := r.filter(mentions)
	if len(candidates) == 0 {
		return nil
	}
	log.Printf("%s poll tick: candidates=%d checkpoint=%d", config.LogPrefix, len(candidates), r.cp.Last())

	for i, m := range candidates {
		published, err := r.processMention(ctx, m)
		if err != nil {
			deferred := len(candidates) - i - 1
			if errors.Is(err, llm.ErrOverloaded) {
				log.Printf("%s generation overloaded, mention held back: id=%d deferred=%d",
					config.LogPrefix, m.ID, deferred,
				)
				return nil
			}
			return fmt.Errorf("mention %d (%d deferred): %w", m.ID, deferred, err)
		}
		if published && i < len(candidates)-1 {
			loopx.SleepWithContext(ctx, r.cooldown)
		}
	}
	return nil
}

// filter drops malformed, duplicate, self-authored and already-processed
// mentions and orders the rest ascending by id.
func (r *Runner) filter(mentions []feed.Post) []feed.Post {
	seen := make(map[int64]bool, len(mentions))
	out := make([]feed.Post, 0, len(mentions))
	for _, m := range mentions {
		if m.ID == 0 || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		if m.AuthorID == r.selfID {
			continue
		}
		if m.ID <= r.cp.Last() {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// processMention runs the full pipeline for one mention. It reports whether
// a new post was published. A nil error means the checkpoint now covers the
// mention; memory and audit writes stay best-effort throughout.
func (r *Runner) processMention(ctx context.Context, m feed.Post) (bool, error) {
	conv := m.ConversationID
	if conv == 0 {
		conv = m.ID
	}

	if err := r.memory.EnsureConversation(ctx, conv); err != nil {
		log.Printf("%s ensure conversation failed: conv=%d err=%v", config.LogPrefix, conv, err)
	}
	// A stop verdict never blocks later mentions; the gate re-decides each one.
	if stopped, err := r.memory.ConversationStopped(ctx, conv); err == nil && stopped {
		log.Printf("%s conversation previously stopped: conv=%d mention=%d", config.LogPrefix, conv, m.ID)
	}
	if err := r.memory.RecordPost(ctx, memory.PostRecord{
		ID:             m.ID,
		ConversationID: conv,
		AuthorID:       m.AuthorID,
		AuthorHandle:   m.AuthorHandle,
		Body:           m.Text,
		ParentID:       m.ParentID,
		CreatedAt:      m.CreatedAt,
	}); err != nil {
		log.Printf("%s record mention failed: id=%d err=%v", config.LogPrefix, m.ID, err)
	}

	th := r.threads.Build(ctx, m)
	if len(th) > config.ThreadMaxDepth {
		log.Printf("%s thread too long, skipping: id=%d len=%d", config.LogPrefix, m.ID, len(th))
		return false, r.advance(m.ID)
	}

	recentText := ""
	if recs, err := r.memory.RecentInteractions(ctx, conv, config.RecentInteractionCount); err != nil {
		log.Printf("%s recent interactions unavailable: conv=%d err=%v", config.LogPrefix, conv, err)
	} else {
		recentText = formatInteractions(recs)
	}

	timelineText := ""
	if r.timeline != nil {
		timelineText = r.timeline.Text(ctx)
	}

	rc, err := genctx.New(genctx.Context{
		Persona:      r.persona,
		Style:        genctx.Sample(r.styles),
		AuthorHandle: m.AuthorHandle,
		MentionText:  m.Text,
		ThreadText:   genctx.FormatPosts(th),
		RecentText:   recentText,
		TimelineText: timelineText,
	})
	if err != nil {
		return false, fmt.Errorf("build context: %w", err)
	}

	verdict, err := r.gate.Decide(ctx, rc)
	if err != nil {
		return false, err
	}

	switch verdict {
	case gate.Stop:
		if err := r.memory.MarkConversationStopped(ctx, conv); err != nil {
			log.Printf("%s mark stopped failed: conv=%d err=%v", config.LogPrefix, conv, err)
		}
		log.Printf("%s conversation stopped: id=%d conv=%d", config.LogPrefix, m.ID, conv)
		return false, r.advance(m.ID)
	case gate.Ignore:
		log.Printf("%s mention ignored: id=%d author=@%s", config.LogPrefix, m.ID, m.AuthorHandle)
		return false, r.advance(m.ID)
	}

	text, err := r.gate.Compose(ctx, rc)
	if err != nil {
		return false, err
	}
	text = textx.TruncatePost(text, config.PostBudgetRunes, config.PostCeilingRunes)
	if text == "" {
		log.Printf("%s empty reply, treating as ignore: id=%d", config.LogPrefix, m.ID)
		return false, r.advance(m.ID)
	}

	recs, err := r.pub.Publish(ctx, text, conv, m.ID)
	if err != nil {
		return false, fmt.Errorf("publish reply: %w", err)
	}

	if r.audit != nil && len(recs) > 0 {
		entry := audit.Entry{
			MentionID: m.ID,
			PostID:    recs[0].ID,
			Author:    m.AuthorHandle,
			Mention:   m.Text,
			Context:   rc.RenderReply(),
			Reply:     text,
		}
		if _, err := r.audit.WriteReply(entry); err != nil {
			log.Printf("%s audit write failed: id=%d err=%v", config.LogPrefix, m.ID, err)
		}
	}

	return len(recs) > 0, r.advance(m.ID)
}

func (r *Runner) advance(id int64) error {
	if err := r.cp.Advance(id); err != nil {
		return fmt.Errorf("advance checkpoint to %d: %w", id, err)
	}
	return nil
}

func formatInteractions(recs []memory.PostRecord) string {
	lines := make([]string, 0, len(recs))
	for _, rec := range recs {
		lines = append(lines, genctx.Line(rec.AuthorHandle, rec.Body))
	}
	return strings.Join(lines, "\n")
}
