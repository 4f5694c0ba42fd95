// Package scheduler wires up the cron job that periodically enqueues listing
// crawls for every source whose next crawl time has elapsed.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Masud-Ndatsu/ambitful-api/internal/model"
	"github.com/Masud-Ndatsu/ambitful-api/internal/queue"
)

// maxJitter spreads scheduled crawls over half a minute so a sweep does not
// hammer the external fetch service all at once.
const maxJitter = 30 * time.Second

// DueSourceStore lists due sources and advances their schedule.
type DueSourceStore interface {
	ListDue(ctx context.Context, now time.Time) ([]model.CrawlSource, error)
	AdvanceNextCrawl(ctx context.Context, id string, next time.Time) error
}

// Trigger enqueues a listing crawl.
type Trigger interface {
	TriggerListingCrawl(ctx context.Context, sourceID string, priority queue.Priority, delay time.Duration) (string, error)
}

// Scheduler wraps robfig/cron and manages the recurring sweep.
type Scheduler struct {
	cron    *cron.Cron
	sources DueSourceStore
	trigger Trigger
	spec    string // cron spec, e.g. "@every 1h"
}

// New creates a Scheduler firing on spec.
func New(sources DueSourceStore, trigger Trigger, spec string) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cron.DefaultLogger)),
		sources: sources,
		trigger: trigger,
		spec:    spec,
	}
}

// Start registers the sweep and starts the scheduler. Also runs one sweep
// immediately so due sources are not left waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.ScheduleDueSources(ctx); err != nil {
			log.Printf("[scheduler] sweep error: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started with spec: %s", s.spec)

	go func() {
		if _, err := s.ScheduleDueSources(ctx); err != nil {
			log.Printf("[scheduler] initial sweep error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] Cron stopped")
}

// ScheduleDueSources enqueues a listing job for every due source with a
// random start delay, advancing next_crawl_at immediately so a slow run
// cannot be scheduled twice. Returns the number of jobs queued.
func (s *Scheduler) ScheduleDueSources(ctx context.Context) (int, error) {
	now := time.Now()
	due, err := s.sources.ListDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due sources: %w", err)
	}
	if len(due) == 0 {
		log.Println("[scheduler] No due sources, nothing to schedule")
		return 0, nil
	}

	queued := 0
	for _, src := range due {
		delay := time.Duration(rand.Int63n(int64(maxJitter)))
		if _, err := s.trigger.TriggerListingCrawl(ctx, src.ID, queue.PriorityScheduled, delay); err != nil {
			log.Printf("[scheduler] could not queue source %s: %v, continuing", src.ID, err)
			continue
		}
		if err := s.sources.AdvanceNextCrawl(ctx, src.ID, now.Add(src.Frequency.Interval())); err != nil {
			log.Printf("[scheduler] could not advance source %s: %v", src.ID, err)
		}
		queued++
	}

	log.Printf("[scheduler] Sweep complete: %d/%d source(s) queued", queued, len(due))
	return queued, nil
}
