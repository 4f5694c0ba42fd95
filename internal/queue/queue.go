// Package queue implements the durable work queues behind the crawl
// pipeline: priority ordering, delayed execution, per-job retry with
// exponential backoff, and completed/failed counters for observability.
//
// Storage model (redis):
//
//	crawlq:{name}:pending    ZSET; member is the serialized job, score is
//	                         its ready-at time skewed by priority
//	crawlq:{name}:completed  counter
//	crawlq:{name}:failed     counter
//	crawlq:{name}:dead       LIST; terminally failed jobs kept for inspection
//
// A job is claimed by ZREM: whichever worker removes the member owns it, so
// a job runs at most once per attempt even with many workers polling.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Priority orders due jobs. Manual triggers beat bulk, bulk beats scheduled.
type Priority int

const (
	PriorityScheduled Priority = 0
	PriorityBulk      Priority = 5
	PriorityManual    Priority = 10
)

const (
	DefaultMaxAttempts = 3
	deadListMax        = 200
	claimBatch         = 16
)

// ErrTerminal marks a job failure that must not be retried (configuration
// errors, not-implemented scrapers, expired batch context). Handlers wrap
// their error with it; the worker records the failure immediately.
var ErrTerminal = errors.New("terminal job failure")

// Job is one unit of work. Payload is interpreted by the handler.
type Job struct {
	ID          string          `json:"id"`
	Payload     json.RawMessage `json:"payload"`
	Priority    Priority        `json:"priority"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	EnqueuedAt  time.Time       `json:"enqueuedAt"`
	LastError   string          `json:"lastError,omitempty"`
}

// Options control enqueue behaviour.
type Options struct {
	Priority    Priority
	Delay       time.Duration // start delay, used to jitter load
	MaxAttempts int           // 0 means DefaultMaxAttempts
}

// Stats is the queue health snapshot exposed to operators.
type Stats struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Queue is one named durable queue.
type Queue struct {
	rdb  *redis.Client
	name string
}

// New constructs a Queue. Name must be stable across restarts, it keys the
// redis structures.
func New(rdb *redis.Client, name string) *Queue {
	return &Queue{rdb: rdb, name: name}
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

func (q *Queue) pendingKey() string   { return "crawlq:" + q.name + ":pending" }
func (q *Queue) completedKey() string { return "crawlq:" + q.name + ":completed" }
func (q *Queue) failedKey() string    { return "crawlq:" + q.name + ":failed" }
func (q *Queue) deadKey() string      { return "crawlq:" + q.name + ":dead" }

// Enqueue schedules payload for execution after opts.Delay. Returns the job
// ID for log correlation.
func (q *Queue) Enqueue(ctx context.Context, payload any, opts Options) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	job := Job{
		ID:          uuid.NewString(),
		Payload:     raw,
		Priority:    opts.Priority,
		MaxAttempts: maxAttempts,
		EnqueuedAt:  time.Now(),
	}

	if err := q.push(ctx, &job, time.Now().Add(opts.Delay)); err != nil {
		return "", err
	}
	return job.ID, nil
}

// push serializes the job into the pending ZSET, scored by its ready-at
// time minus a priority skew so higher-priority jobs sort first among due
// members.
func (q *Queue) push(ctx context.Context, job *Job, readyAt time.Time) error {
	member, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	score := float64(readyAt.UnixMilli()) - float64(job.Priority)
	if err := q.rdb.ZAdd(ctx, q.pendingKey(), redis.Z{Score: score, Member: string(member)}).Err(); err != nil {
		return fmt.Errorf("zadd %s: %w", q.pendingKey(), err)
	}
	return nil
}

// claim pops the highest-priority due job, or nil when nothing is due. The
// ZREM result decides ownership, so concurrent claimers never double-run a
// job.
func (q *Queue) claim(ctx context.Context, now time.Time) (*Job, error) {
	members, err := q.rdb.ZRangeByScore(ctx, q.pendingKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.UnixMilli()),
		Count: claimBatch,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("zrangebyscore %s: %w", q.pendingKey(), err)
	}

	// Among due members, prefer higher declared priority. The score skew
	// already biases ordering; this pass makes it exact within the batch.
	best := -1
	var bestJob Job
	jobs := make([]Job, len(members))
	for i, m := range members {
		if err := json.Unmarshal([]byte(m), &jobs[i]); err != nil {
			// poison member, drop it rather than wedge the queue
			q.rdb.ZRem(ctx, q.pendingKey(), m)
			continue
		}
		if best == -1 || jobs[i].Priority > bestJob.Priority {
			best = i
			bestJob = jobs[i]
		}
	}

	for best >= 0 {
		removed, err := q.rdb.ZRem(ctx, q.pendingKey(), members[best]).Result()
		if err != nil {
			return nil, fmt.Errorf("zrem %s: %w", q.pendingKey(), err)
		}
		if removed == 1 {
			job := jobs[best]
			return &job, nil
		}
		// another worker got it; fall back to any other due member
		members = append(members[:best], members[best+1:]...)
		jobs = append(jobs[:best], jobs[best+1:]...)
		best = -1
		for i := range jobs {
			if best == -1 || jobs[i].Priority > jobs[best].Priority {
				best = i
			}
		}
	}

	return nil, nil
}

// retry re-schedules a failed job with exponential backoff, or moves it to
// the dead list once its attempt budget is spent. Returns true when the job
// was requeued.
func (q *Queue) retry(ctx context.Context, job *Job, cause error) (bool, error) {
	job.Attempts++
	job.LastError = cause.Error()

	if errors.Is(cause, ErrTerminal) || job.Attempts >= job.MaxAttempts {
		member, _ := json.Marshal(job)
		pipe := q.rdb.TxPipeline()
		pipe.Incr(ctx, q.failedKey())
		pipe.LPush(ctx, q.deadKey(), string(member))
		pipe.LTrim(ctx, q.deadKey(), 0, deadListMax-1)
		if _, err := pipe.Exec(ctx); err != nil {
			return false, fmt.Errorf("record failure: %w", err)
		}
		return false, nil
	}

	delay := Backoff(job.Attempts)
	if err := q.push(ctx, job, time.Now().Add(delay)); err != nil {
		return false, err
	}
	return true, nil
}

func (q *Queue) markCompleted(ctx context.Context) {
	if err := q.rdb.Incr(ctx, q.completedKey()).Err(); err != nil {
		// counter drift only; the job itself is done
		return
	}
}

// Stats reads the queue health counters. Active is supplied by the worker
// pool, which owns the in-flight gauge.
func (q *Queue) Stats(ctx context.Context, active int64) (Stats, error) {
	waiting, err := q.rdb.ZCard(ctx, q.pendingKey()).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("zcard: %w", err)
	}
	completed, err := q.rdb.Get(ctx, q.completedKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Stats{}, fmt.Errorf("get completed: %w", err)
	}
	failed, err := q.rdb.Get(ctx, q.failedKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Stats{}, fmt.Errorf("get failed: %w", err)
	}

	return Stats{Waiting: waiting, Active: active, Completed: completed, Failed: failed}, nil
}

// Backoff returns the delay before retry attempt n (1-based): 2s, 4s, 8s,
// capped at 60s.
func Backoff(attempt int) time.Duration {
	d := time.Second << uint(attempt) // 2s after first failure
	if d > time.Minute {
		return time.Minute
	}
	return d
}
