package queue

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

const pollInterval = 500 * time.Millisecond

// Handler processes one job. A returned error triggers queue-level retry
// until the job's attempt budget is spent.
type Handler func(ctx context.Context, job *Job) error

// Workers runs a bounded pool of goroutines draining one queue.
type Workers struct {
	queue       *Queue
	concurrency int
	handler     Handler

	active atomic.Int64
	wg     sync.WaitGroup
}

// NewWorkers constructs a pool of the given concurrency over q.
func NewWorkers(q *Queue, concurrency int, handler Handler) *Workers {
	return &Workers{queue: q, concurrency: concurrency, handler: handler}
}

// Start launches the workers. They poll until ctx is cancelled; Wait blocks
// until all of them have drained their in-flight job.
func (w *Workers) Start(ctx context.Context) {
	log.Printf("[queue:%s] starting %d workers", w.queue.Name(), w.concurrency)
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.loop(ctx, i)
	}
}

// Wait blocks until every worker has exited.
func (w *Workers) Wait() { w.wg.Wait() }

// Active returns the number of jobs currently executing.
func (w *Workers) Active() int64 { return w.active.Load() }

// Stats combines the queue counters with the pool's in-flight gauge.
func (w *Workers) Stats(ctx context.Context) (Stats, error) {
	return w.queue.Stats(ctx, w.active.Load())
}

func (w *Workers) loop(ctx context.Context, id int) {
	defer w.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := w.queue.claim(ctx, time.Now())
		if err != nil {
			log.Printf("[queue:%s] worker %d claim error: %v", w.queue.Name(), id, err)
			w.sleep(ctx)
			continue
		}
		if job == nil {
			w.sleep(ctx)
			continue
		}

		w.run(ctx, id, job)
	}
}

func (w *Workers) run(ctx context.Context, id int, job *Job) {
	w.active.Add(1)
	defer w.active.Add(-1)

	err := w.safeHandle(ctx, job)

	// Bookkeeping must survive shutdown: losing the retry push or the
	// completed count because the poll context was cancelled mid-job would
	// silently drop work.
	bookkeeping := context.WithoutCancel(ctx)

	if err == nil {
		w.queue.markCompleted(bookkeeping)
		return
	}

	requeued, rerr := w.queue.retry(bookkeeping, job, err)
	if rerr != nil {
		log.Printf("[queue:%s] worker %d could not requeue job %s: %v", w.queue.Name(), id, job.ID, rerr)
		return
	}
	if requeued {
		log.Printf("[queue:%s] job %s failed (attempt %d/%d): %v, backing off",
			w.queue.Name(), job.ID, job.Attempts, job.MaxAttempts, err)
	} else {
		log.Printf("[queue:%s] job %s failed terminally after %d attempts: %v",
			w.queue.Name(), job.ID, job.Attempts, err)
	}
}

// safeHandle keeps a panicking handler from taking the worker down with it.
func (w *Workers) safeHandle(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return w.handler(ctx, job)
}

// sleep waits one poll interval with a little jitter, returning early on
// cancellation.
func (w *Workers) sleep(ctx context.Context) {
	jitter := time.Duration(rand.Int63n(int64(pollInterval / 2)))
	select {
	case <-time.After(pollInterval + jitter):
	case <-ctx.Done():
	}
}

// PanicError wraps a recovered handler panic so it flows through the normal
// retry path.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return "handler panic: " + formatPanic(e.Value)
}

func formatPanic(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", v)
}
