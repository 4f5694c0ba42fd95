package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Masud-Ndatsu/ambitful-api/internal/model"
	"github.com/Masud-Ndatsu/ambitful-api/internal/queue"
)

type fakeDueStore struct {
	due      []model.CrawlSource
	listErr  error
	advanced map[string]time.Time
}

func (f *fakeDueStore) ListDue(_ context.Context, _ time.Time) ([]model.CrawlSource, error) {
	return f.due, f.listErr
}

func (f *fakeDueStore) AdvanceNextCrawl(_ context.Context, id string, next time.Time) error {
	if f.advanced == nil {
		f.advanced = make(map[string]time.Time)
	}
	f.advanced[id] = next
	return nil
}

type fakeTrigger struct {
	calls  []string
	delays []time.Duration
	failOn string
}

func (f *fakeTrigger) TriggerListingCrawl(_ context.Context, sourceID string, _ queue.Priority, delay time.Duration) (string, error) {
	if sourceID == f.failOn {
		return "", errors.New("queue unavailable")
	}
	f.calls = append(f.calls, sourceID)
	f.delays = append(f.delays, delay)
	return "job-" + sourceID, nil
}

func TestScheduleDueSources_QueuesAndAdvances(t *testing.T) {
	store := &fakeDueStore{due: []model.CrawlSource{
		{ID: "src-1", Frequency: model.FrequencyDaily},
		{ID: "src-2", Frequency: model.FrequencyWeekly},
	}}
	trigger := &fakeTrigger{}
	s := New(store, trigger, "@every 1h")

	before := time.Now()
	queued, err := s.ScheduleDueSources(context.Background())
	if err != nil {
		t.Fatalf("ScheduleDueSources: %v", err)
	}
	if queued != 2 {
		t.Errorf("queued = %d, want 2", queued)
	}
	if len(trigger.calls) != 2 {
		t.Fatalf("trigger called %d times", len(trigger.calls))
	}
	for _, d := range trigger.delays {
		if d < 0 || d >= maxJitter {
			t.Errorf("jitter %v out of [0, %v)", d, maxJitter)
		}
	}

	// next_crawl_at advances at schedule time, before the job runs
	next1, ok := store.advanced["src-1"]
	if !ok {
		t.Fatal("src-1 schedule not advanced")
	}
	if next1.Before(before.Add(24*time.Hour)) || next1.After(before.Add(24*time.Hour+time.Minute)) {
		t.Errorf("src-1 next crawl = %v, want about a day out", next1)
	}
	if next2 := store.advanced["src-2"]; next2.Before(before.Add(7 * 24 * time.Hour)) {
		t.Errorf("src-2 next crawl = %v, want a week out", next2)
	}
}

func TestScheduleDueSources_ContinuesPastEnqueueFailure(t *testing.T) {
	store := &fakeDueStore{due: []model.CrawlSource{
		{ID: "src-1", Frequency: model.FrequencyDaily},
		{ID: "src-bad", Frequency: model.FrequencyDaily},
		{ID: "src-3", Frequency: model.FrequencyDaily},
	}}
	trigger := &fakeTrigger{failOn: "src-bad"}
	s := New(store, trigger, "@every 1h")

	queued, err := s.ScheduleDueSources(context.Background())
	if err != nil {
		t.Fatalf("ScheduleDueSources: %v", err)
	}
	if queued != 2 {
		t.Errorf("queued = %d, want 2 (failure skipped, not fatal)", queued)
	}
	if _, ok := store.advanced["src-bad"]; ok {
		t.Error("a source that failed to queue must stay due")
	}
}

func TestScheduleDueSources_NothingDue(t *testing.T) {
	s := New(&fakeDueStore{}, &fakeTrigger{}, "@every 1h")

	queued, err := s.ScheduleDueSources(context.Background())
	if err != nil || queued != 0 {
		t.Errorf("empty sweep = (%d, %v), want (0, nil)", queued, err)
	}
}

func TestScheduleDueSources_ListFailure(t *testing.T) {
	s := New(&fakeDueStore{listErr: errors.New("connection refused")}, &fakeTrigger{}, "@every 1h")

	if _, err := s.ScheduleDueSources(context.Background()); err == nil {
		t.Error("store failures should surface to the cron error log")
	}
}
