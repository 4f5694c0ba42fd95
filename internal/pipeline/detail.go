package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Masud-Ndatsu/ambitful-api/internal/cache"
	"github.com/Masud-Ndatsu/ambitful-api/internal/draft"
	"github.com/Masud-Ndatsu/ambitful-api/internal/model"
	"github.com/Masud-Ndatsu/ambitful-api/internal/queue"
	"github.com/Masud-Ndatsu/ambitful-api/internal/scrape"
)

// handleDetail crawls one opportunity's detail page and materializes a
// draft. Detail jobs never touch CrawlSource state; each one fails or
// succeeds independently of its siblings.
func (p *Pipeline) handleDetail(ctx context.Context, job *queue.Job) error {
	var payload DetailJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("%w: bad detail payload: %v", queue.ErrTerminal, err)
	}

	batch, err := p.loadBatch(ctx, payload.CacheKey)
	if err != nil {
		return err
	}

	entry := findEntry(batch.Listings, payload.OpportunityID)
	if entry == nil {
		return fmt.Errorf("%w: entry %q not in cached batch", queue.ErrTerminal, payload.OpportunityID)
	}

	scraper, err := p.resolveScraperForBatch(ctx, batch)
	if err != nil {
		return err
	}

	details, err := scraper.DetailPage(ctx, payload.OpportunityID)
	if err != nil {
		if errors.Is(err, scrape.ErrNotImplemented) {
			return fmt.Errorf("%w: %v", queue.ErrTerminal, err)
		}
		return fmt.Errorf("detail crawl for %q: %w", payload.OpportunityID, err)
	}

	sourceURL := entry.URL
	if sourceURL == "" {
		sourceURL = scraper.DetailPageURL(payload.OpportunityID)
	}

	created, err := p.drafts.Materialize(ctx, draft.Input{
		Entry:            entry,
		Details:          details,
		CrawlSourceID:    batch.CrawlSourceID,
		SourceURL:        sourceURL,
		IsDetailsCrawled: true,
	})
	if err != nil {
		return fmt.Errorf("materialize %q: %w", sourceURL, err)
	}

	if created {
		log.Printf("[pipeline] draft created for %s (source %s)", sourceURL, batch.CrawlSourceID)
	} else {
		log.Printf("[pipeline] draft already exists for %s (source %s)", sourceURL, batch.CrawlSourceID)
	}
	return nil
}

// loadBatch reads the listing batch this detail job depends on. A missing
// entry means the cache expired before the job ran: permanent failure, the
// TTL is deliberately longer than any sane queue drain.
func (p *Pipeline) loadBatch(ctx context.Context, key string) (*model.ListingBatch, error) {
	raw, ok, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("batch cache read: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: listing batch %s expired before detail crawl", queue.ErrTerminal, key)
	}

	var batch model.ListingBatch
	if err := json.Unmarshal([]byte(raw), &batch); err != nil {
		return nil, fmt.Errorf("%w: corrupt listing batch %s: %v", queue.ErrTerminal, key, err)
	}

	if cache.IsStale(batch.Timestamp, time.Now()) {
		log.Printf("[pipeline] listing batch %s is stale (written %s), still using it",
			key, batch.Timestamp.Format(time.RFC3339))
	}
	return &batch, nil
}

func findEntry(entries []model.ListingEntry, opportunityID string) *model.ListingEntry {
	for i := range entries {
		if entries[i].OpportunityID == opportunityID || entries[i].URL == opportunityID {
			return &entries[i]
		}
	}
	return nil
}
