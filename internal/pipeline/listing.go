package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Masud-Ndatsu/ambitful-api/internal/cache"
	"github.com/Masud-Ndatsu/ambitful-api/internal/model"
	"github.com/Masud-Ndatsu/ambitful-api/internal/queue"
	"github.com/Masud-Ndatsu/ambitful-api/internal/scrape"
)

// handleListing runs one listing crawl. State machine per source:
//
//	INACTIVE/ERROR → ACTIVE on job start (error cleared, lastCrawledAt stamped)
//	ACTIVE → INACTIVE on success: entries cached, detail jobs enqueued or
//	         drafts synthesized, nextCrawlAt advanced, counter incremented
//	ACTIVE → ERROR on fetch/extract failure or zero entries
//
// Failures update the source and are returned so queue retry applies.
func (p *Pipeline) handleListing(ctx context.Context, job *queue.Job) error {
	var payload ListingJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("%w: bad listing payload: %v", queue.ErrTerminal, err)
	}

	src, err := p.sources.GetByID(ctx, payload.SourceID)
	if err != nil {
		return fmt.Errorf("%w: %v", queue.ErrTerminal, err)
	}

	// ACTIVE means another listing job is in flight for this source.
	// Mutual exclusion is by convention, not lock; skip rather than race.
	if !model.IsSourceTransitionAllowed(src.Status, model.SourceActive) {
		log.Printf("[pipeline] source %s is %s, skipping listing job %s", src.ID, src.Status, job.ID)
		return nil
	}

	if err := p.sources.MarkActive(ctx, src.ID, time.Now()); err != nil {
		return fmt.Errorf("transition to ACTIVE: %w", err)
	}

	// The closing transition must land even when the job context was
	// cancelled mid-crawl, or the source is stranded in ACTIVE and every
	// later job skips it.
	cleanup := context.WithoutCancel(ctx)

	entries, err := p.crawlListing(ctx, src, job.Priority)
	if err != nil {
		if markErr := p.sources.MarkError(cleanup, src.ID, err.Error()); markErr != nil {
			log.Printf("[pipeline] could not record error on source %s: %v", src.ID, markErr)
		}
		return err
	}

	next := time.Now().Add(src.Frequency.Interval())
	if err := p.sources.MarkInactive(cleanup, src.ID, next, len(entries)); err != nil {
		return fmt.Errorf("transition to INACTIVE: %w", err)
	}

	log.Printf("[pipeline] source %s crawled: %d entries found, next crawl %s",
		src.ID, len(entries), next.Format(time.RFC3339))
	return nil
}

// crawlListing does the fetch+extract+branch work and returns the entries
// found. The caller owns the status transitions around it.
func (p *Pipeline) crawlListing(ctx context.Context, src *model.CrawlSource, priority queue.Priority) ([]model.ListingEntry, error) {
	scraper, err := p.scrapers.Resolve(src.ScraperType, src.URL)
	if err != nil {
		// unknown scraper is a configuration error, never retried
		return nil, fmt.Errorf("%w: %v", queue.ErrTerminal, err)
	}

	result, err := scraper.ListingPage(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("listing scrape: %w", err)
	}
	for _, msg := range result.Errors {
		log.Printf("[pipeline] source %s listing warning: %s", src.ID, msg)
	}
	if len(result.Entries) == 0 {
		return nil, fmt.Errorf("listing scrape found no entries at %s", src.URL)
	}

	// Cache the batch before any detail job exists: the cache write must
	// happen-before dependent cache reads.
	key := cache.Key(src.ID, src.URL)
	batch := model.ListingBatch{
		Listings:      result.Entries,
		Timestamp:     time.Now(),
		CrawlSourceID: src.ID,
		URL:           src.URL,
		Source:        src,
	}
	raw, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("marshal listing batch: %w", err)
	}
	if err := p.store.Set(ctx, key, string(raw), cache.DefaultTTL); err != nil {
		return nil, fmt.Errorf("cache listing batch: %w", err)
	}

	if src.IsDetailsCrawled {
		if err := p.enqueueDetailJobs(ctx, src, key, result.Entries, priority); err != nil {
			return nil, err
		}
	} else {
		created, errs := p.drafts.MaterializeBatch(ctx, result.Entries, src.ID)
		for _, e := range errs {
			log.Printf("[pipeline] source %s draft error: %v", src.ID, e)
		}
		log.Printf("[pipeline] source %s: %d drafts created from %d listings (%d errors)",
			src.ID, created, len(result.Entries), len(errs))
	}

	return result.Entries, nil
}

// enqueueDetailJobs spawns one detail job per entry. Enqueue failures fail
// the listing job so the whole batch is retried coherently.
func (p *Pipeline) enqueueDetailJobs(ctx context.Context, src *model.CrawlSource, cacheKey string, entries []model.ListingEntry, priority queue.Priority) error {
	for _, entry := range entries {
		id := entry.OpportunityID
		if id == "" {
			id = entry.URL
		}
		_, err := p.detailQueue.Enqueue(ctx, DetailJob{
			SourceID:      src.ID,
			CacheKey:      cacheKey,
			OpportunityID: id,
		}, queue.Options{Priority: priority})
		if err != nil {
			return fmt.Errorf("enqueue detail job for %q: %w", entry.Title, err)
		}
	}
	log.Printf("[pipeline] source %s: %d detail jobs queued", src.ID, len(entries))
	return nil
}

// resolveScraperForBatch picks the scraper for a detail job from the cached
// source snapshot, falling back to a fresh load when the snapshot is absent.
func (p *Pipeline) resolveScraperForBatch(ctx context.Context, batch *model.ListingBatch) (scrape.Scraper, error) {
	src := batch.Source
	if src == nil {
		loaded, err := p.sources.GetByID(ctx, batch.CrawlSourceID)
		if err != nil {
			return nil, err
		}
		src = loaded
	}

	scraper, err := p.scrapers.Resolve(src.ScraperType, src.URL)
	if err != nil && errors.Is(err, scrape.ErrUnknownType) {
		return nil, fmt.Errorf("%w: %v", queue.ErrTerminal, err)
	}
	return scraper, err
}
