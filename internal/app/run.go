package app

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"feed-agent/internal/audit"
	"feed-agent/internal/checkpoint"
	"feed-agent/internal/config"
	"feed-agent/internal/feed"
	"feed-agent/internal/gate"
	"feed-agent/internal/httpx"
	"feed-agent/internal/inspire"
	"feed-agent/internal/llm"
	"feed-agent/internal/maintenance"
	"feed-agent/internal/memory"
	"feed-agent/internal/poller"
	"feed-agent/internal/publisher"
	"feed-agent/internal/scheduler"
	"feed-agent/internal/state"
	"feed-agent/internal/thread"
	"feed-agent/internal/timeline"
	"feed-agent/internal/x/syncx"
)

// Run wires the agent together and blocks until SIGINT or SIGTERM.
func Run() error {
	// A missing .env is fine; the environment may already carry everything.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feedHTTP, err := httpx.NewClient(httpx.ClientOptions{
		Timeout: 25 * time.Second,
		Proxy:   cfg.Feed.Proxy,
	})
	if err != nil {
		return fmt.Errorf("feed http client: %w", err)
	}
	feedClient, err := feed.NewClient(feed.ClientConfig{
		BaseURL:     cfg.Feed.BaseURL,
		BearerToken: cfg.Feed.BearerToken,
		HTTPClient:  feedHTTP,
	})
	if err != nil {
		return fmt.Errorf("feed client: %w", err)
	}

	llmClient := llm.NewClient(llm.ClientOptions{
		Config: llm.ChatConfig{
			BaseURL: cfg.Model.BaseURL,
			APIKey:  cfg.Model.APIKey,
			Model:   cfg.Model.Model,
		},
		MaxRetries:     config.LLMMaxRetries,
		InitialBackoff: config.LLMRetryInitialBackoff,
		MaxBackoff:     config.LLMRetryMaxBackoff,
		LogPrefix:      config.LogPrefix,
	})

	store, err := memory.Open(state.FilePath(config.MemoryDBFileName))
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer store.Close()

	cp, err := checkpoint.Open(state.FilePath(config.CheckpointFileName))
	if err != nil {
		return fmt.Errorf("open checkpoint: %w", err)
	}

	cache := timeline.NewCache(feedClient, state.FilePath(config.TimelineFileName),
		config.TimelineCacheTTL, config.TimelinePostCount)
	auditor := audit.NewWriter(filepath.Join(state.BaseDir(), config.AuditDirName))
	decider := gate.New(llmClient)
	pub := publisher.New(feedClient, store, cfg.Feed.SelfID, cfg.Feed.Handle)

	pollMin, pollMax := cfg.PollInterval()
	pollRunner, err := poller.NewRunner(poller.Options{
		Feed:        feedClient,
		Threads:     thread.NewBuilder(feedClient, config.ThreadMaxDepth),
		Gate:        decider,
		Memory:      store,
		Publisher:   pub,
		Checkpoint:  cp,
		Timeline:    cache,
		Audit:       auditor,
		Handle:      cfg.Feed.Handle,
		SelfID:      cfg.Feed.SelfID,
		Persona:     cfg.Persona.Prompt,
		Styles:      cfg.Persona.Styles,
		Fanout:      cfg.Poll.Fanout,
		MinInterval: pollMin,
		MaxInterval: pollMax,
	})
	if err != nil {
		return fmt.Errorf("poll runner: %w", err)
	}

	var inspireSrc scheduler.InspirationSource
	if len(cfg.Compose.InspireFeeds) > 0 {
		inspireSrc = inspire.NewSource(nil, cfg.Compose.InspireFeeds)
	}

	composeMin, composeMax := cfg.ComposeInterval()
	composeRunner, err := scheduler.NewRunner(scheduler.Options{
		Generator:   decider,
		OwnPosts:    store,
		Publisher:   pub,
		Timeline:    cache,
		Inspire:     inspireSrc,
		Persona:     cfg.Persona.Prompt,
		Styles:      cfg.Persona.Styles,
		Themes:      cfg.Persona.Themes,
		MinInterval: composeMin,
		MaxInterval: composeMax,
	})
	if err != nil {
		return fmt.Errorf("compose runner: %w", err)
	}

	janitor := maintenance.NewJanitor(auditor, store)
	if err := janitor.Start(ctx); err != nil {
		return fmt.Errorf("start janitor: %w", err)
	}
	defer janitor.Stop()

	log.Printf("%s starting: persona=%s handle=@%s self_id=%d feed=%s model=%s state_dir=%s",
		config.LogPrefix, cfg.Persona.Name, cfg.Feed.Handle, cfg.Feed.SelfID,
		cfg.Feed.BaseURL, llmClient.Model(), state.BaseDir(),
	)

	group := syncx.NewGroup(ctx)
	group.Go(pollRunner.Run)
	group.Go(composeRunner.Run)
	group.Wait()

	log.Printf("%s stopped", config.LogPrefix)
	return nil
}
