package maintenance

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"feed-agent/internal/config"
)

// AuditSweeper removes reply artifacts older than the retention window.
type AuditSweeper interface {
	Sweep(maxAge time.Duration) (int, error)
}

// MemoryPruner removes stored posts older than the retention window.
type MemoryPruner interface {
	PruneOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// Janitor runs daily retention sweeps over the audit directory and the
// memory store. Nil collaborators are skipped.
type Janitor struct {
	cron   *cron.Cron
	audit  AuditSweeper
	memory MemoryPruner
}

func NewJanitor(audit AuditSweeper, memory MemoryPruner) *Janitor {
	return &Janitor{cron: cron.New(), audit: audit, memory: memory}
}

// Start registers the daily job and launches the scheduler. One sweep runs
// inline so an agent that was down past its retention window catches up
// without waiting a day.
func (j *Janitor) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc("@daily", func() { j.sweep(ctx) }); err != nil {
		return err
	}
	j.sweep(ctx)
	j.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Janitor) sweep(ctx context.Context) {
	if j.audit != nil {
		n, err := j.audit.Sweep(config.AuditRetention)
		if err != nil {
			log.Printf("%s audit sweep failed: err=%v", config.LogPrefix, err)
		} else if n > 0 {
			log.Printf("%s audit sweep: removed=%d", config.LogPrefix, n)
		}
	}
	if j.memory != nil {
		n, err := j.memory.PruneOlderThan(ctx, config.MemoryRetention)
		if err != nil {
			log.Printf("%s memory prune failed: err=%v", config.LogPrefix, err)
		} else if n > 0 {
			log.Printf("%s memory prune: removed=%d", config.LogPrefix, n)
		}
	}
}
