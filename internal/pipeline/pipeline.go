// Package pipeline orchestrates the two-stage crawl state machine: listing
// jobs fetch and extract index pages, detail jobs fetch one opportunity each,
// and both funnel normalized records into the moderation queue.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Masud-Ndatsu/ambitful-api/internal/draft"
	"github.com/Masud-Ndatsu/ambitful-api/internal/model"
	"github.com/Masud-Ndatsu/ambitful-api/internal/queue"
	"github.com/Masud-Ndatsu/ambitful-api/internal/scrape"
)

// SourceStore is the CrawlSource persistence surface the pipeline mutates.
type SourceStore interface {
	GetByID(ctx context.Context, id string) (*model.CrawlSource, error)
	MarkActive(ctx context.Context, id string, at time.Time) error
	MarkInactive(ctx context.Context, id string, nextCrawlAt time.Time, entriesFound int) error
	MarkError(ctx context.Context, id, message string) error
}

// ScraperResolver resolves the scraper implementation for a source.
type ScraperResolver interface {
	Resolve(scraperType, url string) (scrape.Scraper, error)
}

// Materializer is the draft-writing surface.
type Materializer interface {
	Materialize(ctx context.Context, in draft.Input) (bool, error)
	MaterializeBatch(ctx context.Context, entries []model.ListingEntry, sourceID string) (int, []error)
}

// KV is the slice of the cache store the pipeline needs for listing-batch
// handoff.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Enqueuer is the enqueue-only face of a queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload any, opts queue.Options) (string, error)
}

// ListingJob is the payload of one listing-queue job.
type ListingJob struct {
	SourceID string `json:"sourceId"`
}

// DetailJob is the payload of one detail-queue job. It references its
// listing batch by cache key instead of carrying the entries itself.
type DetailJob struct {
	SourceID      string `json:"sourceId"`
	CacheKey      string `json:"cacheKey"`
	OpportunityID string `json:"opportunityId"`
}

// Stats groups both queues' health counters.
type Stats struct {
	Listing queue.Stats `json:"listing"`
	Details queue.Stats `json:"details"`
}

// Pipeline wires the queues, scrapers, cache and stores together.
type Pipeline struct {
	sources  SourceStore
	scrapers ScraperResolver
	drafts   Materializer
	store    KV

	listingQueue Enqueuer
	detailQueue  Enqueuer

	listingWorkers *queue.Workers
	detailWorkers  *queue.Workers
}

// Config sizes the worker pools.
type Config struct {
	ListingConcurrency int
	DetailConcurrency  int
}

// New constructs the pipeline and its worker pools. Call Start to begin
// draining the queues.
func New(sources SourceStore, scrapers ScraperResolver, drafts Materializer, store KV,
	listingQueue, detailQueue *queue.Queue, cfg Config) *Pipeline {

	p := &Pipeline{
		sources:      sources,
		scrapers:     scrapers,
		drafts:       drafts,
		store:        store,
		listingQueue: listingQueue,
		detailQueue:  detailQueue,
	}
	p.listingWorkers = queue.NewWorkers(listingQueue, cfg.ListingConcurrency, p.handleListing)
	p.detailWorkers = queue.NewWorkers(detailQueue, cfg.DetailConcurrency, p.handleDetail)
	return p
}

// Start launches both worker pools.
func (p *Pipeline) Start(ctx context.Context) {
	p.listingWorkers.Start(ctx)
	p.detailWorkers.Start(ctx)
}

// Wait blocks until all workers have exited after cancellation.
func (p *Pipeline) Wait() {
	p.listingWorkers.Wait()
	p.detailWorkers.Wait()
}

// TriggerListingCrawl enqueues one listing job for sourceID.
func (p *Pipeline) TriggerListingCrawl(ctx context.Context, sourceID string, priority queue.Priority, delay time.Duration) (string, error) {
	jobID, err := p.listingQueue.Enqueue(ctx, ListingJob{SourceID: sourceID}, queue.Options{
		Priority: priority,
		Delay:    delay,
	})
	if err != nil {
		return "", fmt.Errorf("enqueue listing job for %s: %w", sourceID, err)
	}
	log.Printf("[pipeline] listing job %s queued for source %s (priority %d, delay %s)",
		jobID, sourceID, priority, delay)
	return jobID, nil
}

// TriggerBulkCrawl enqueues a listing job per source at bulk priority.
// Returns the number queued; enqueue failures are accumulated, not aborting.
func (p *Pipeline) TriggerBulkCrawl(ctx context.Context, sourceIDs []string) (int, []error) {
	queued := 0
	var errs []error
	for _, id := range sourceIDs {
		if _, err := p.TriggerListingCrawl(ctx, id, queue.PriorityBulk, 0); err != nil {
			errs = append(errs, err)
			continue
		}
		queued++
	}
	return queued, errs
}

// QueueStats snapshots both queues for the operator-facing stats endpoint.
func (p *Pipeline) QueueStats(ctx context.Context) (Stats, error) {
	listing, err := p.listingWorkers.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("listing stats: %w", err)
	}
	details, err := p.detailWorkers.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("detail stats: %w", err)
	}
	return Stats{Listing: listing, Details: details}, nil
}
