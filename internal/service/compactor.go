package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"pagebuilder/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Compactor — prunes old revisions on a cron schedule
// ─────────────────────────────────────────────────────────────

const compactKey = "compact"

// Compactor keeps at most keep revisions per page.
type Compactor struct {
	revisions domain.RevisionStore
	keep      int
	emitter   EventEmitter

	running keyGuard

	mu        sync.Mutex
	cronSched *cron.Cron
}

func NewCompactor(revisions domain.RevisionStore, keep int, emitter EventEmitter) *Compactor {
	if emitter == nil {
		emitter = LogEmitter{}
	}
	return &Compactor{revisions: revisions, keep: keep, emitter: emitter}
}

// RunOnce prunes every page and returns the number of revisions removed.
// A run that overlaps another one is skipped.
func (c *Compactor) RunOnce(ctx context.Context) (int, error) {
	if c.keep <= 0 {
		return 0, nil
	}
	if !c.running.TryLock(compactKey) {
		log.Printf("[compactor] previous run still active, skipping")
		return 0, nil
	}
	defer c.running.Unlock(compactKey)

	ids, err := c.revisions.PageIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list revision pages: %w", err)
	}
	total := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := c.revisions.Prune(ctx, id, c.keep)
		if err != nil {
			return total, fmt.Errorf("prune %s: %w", id, err)
		}
		total += n
	}
	if total > 0 {
		log.Printf("[compactor] removed %d revision(s) across %d page(s)", total, len(ids))
		c.emitter.Emit(ctx, EventRevisionsCompacted, total)
	}
	return total, nil
}

// Start schedules RunOnce with a cron expression (standard five fields or
// descriptors such as @hourly). ctx is passed to every run.
func (c *Compactor) Start(ctx context.Context, schedule string) error {
	c.Stop()

	sched := cron.New()
	if _, err := sched.AddFunc(schedule, func() {
		if _, err := c.RunOnce(ctx); err != nil {
			log.Printf("[compactor] run failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("compactor schedule %q: %w", schedule, err)
	}
	sched.Start()

	c.mu.Lock()
	c.cronSched = sched
	c.mu.Unlock()
	log.Printf("[compactor] scheduled %q (keep %d)", schedule, c.keep)
	return nil
}

// Stop halts the schedule and waits for a running prune to finish.
func (c *Compactor) Stop() {
	c.mu.Lock()
	sched := c.cronSched
	c.cronSched = nil
	c.mu.Unlock()
	if sched != nil {
		<-sched.Stop().Done()
	}
}
