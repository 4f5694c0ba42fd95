// Package store implements persistence over PostgreSQL for crawl sources
// and drafts.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Masud-Ndatsu/ambitful-api/internal/model"
)

// errorMessageLimit caps stored crawl errors so one huge stack trace does
// not bloat the row. Operators read these in the admin UI.
const errorMessageLimit = 500

// SourceStore persists CrawlSource rows.
type SourceStore struct {
	pool *pgxpool.Pool
}

// NewSourceStore constructs a SourceStore.
func NewSourceStore(pool *pgxpool.Pool) *SourceStore {
	return &SourceStore{pool: pool}
}

const sourceColumns = `id, name, url, frequency, scraper_type, status, is_active,
	is_details_crawled, last_crawled_at, next_crawl_at, opportunities_found,
	COALESCE(error_message, '')`

// GetByID loads one source.
func (s *SourceStore) GetByID(ctx context.Context, id string) (*model.CrawlSource, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM crawl_sources WHERE id = $1`, id)
	src, err := scanSource(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("crawl source %s not found", id)
	}
	return src, err
}

// ListDue returns every active source whose next_crawl_at has elapsed (or
// was never set).
func (s *SourceStore) ListDue(ctx context.Context, now time.Time) ([]model.CrawlSource, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+sourceColumns+`
		 FROM crawl_sources
		 WHERE is_active = true
		   AND (next_crawl_at IS NULL OR next_crawl_at <= $1)`,
		now)
	if err != nil {
		return nil, fmt.Errorf("query due sources: %w", err)
	}
	defer rows.Close()

	var sources []model.CrawlSource
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, *src)
	}
	return sources, rows.Err()
}

// MarkActive transitions a source into ACTIVE: error message cleared,
// last_crawled_at stamped.
func (s *SourceStore) MarkActive(ctx context.Context, id string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE crawl_sources
		 SET status = $2, error_message = NULL, last_crawled_at = $3
		 WHERE id = $1`,
		id, model.SourceActive, at)
	if err != nil {
		return fmt.Errorf("mark active: %w", err)
	}
	return nil
}

// MarkInactive records a successful crawl: status back to INACTIVE,
// next_crawl_at advanced, opportunities_found incremented atomically by the
// number of entries found.
func (s *SourceStore) MarkInactive(ctx context.Context, id string, nextCrawlAt time.Time, entriesFound int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE crawl_sources
		 SET status = $2, next_crawl_at = $3,
		     opportunities_found = opportunities_found + $4
		 WHERE id = $1`,
		id, model.SourceInactive, nextCrawlAt, entriesFound)
	if err != nil {
		return fmt.Errorf("mark inactive: %w", err)
	}
	return nil
}

// MarkError records a failed crawl with its truncated message. ERROR sources
// stay eligible for the next scheduled or manual trigger.
func (s *SourceStore) MarkError(ctx context.Context, id, message string) error {
	if len(message) > errorMessageLimit {
		message = message[:errorMessageLimit]
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE crawl_sources SET status = $2, error_message = $3 WHERE id = $1`,
		id, model.SourceError, message)
	if err != nil {
		return fmt.Errorf("mark error: %w", err)
	}
	return nil
}

// ResetStaleActive flips sources stranded in ACTIVE back to ERROR. A crash
// or hard shutdown mid-crawl leaves the row ACTIVE with no worker behind it,
// and later jobs would skip it forever. At startup no crawl is in flight, so
// every ACTIVE row at or before cutoff is an interrupted run. Returns the
// number of sources reset.
func (s *SourceStore) ResetStaleActive(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE crawl_sources
		 SET status = $1, error_message = 'crawl interrupted before completion'
		 WHERE status = $2
		   AND (last_crawled_at IS NULL OR last_crawled_at <= $3)`,
		model.SourceError, model.SourceActive, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reset stale active sources: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// AdvanceNextCrawl moves next_crawl_at forward immediately so a slow run
// cannot be scheduled twice.
func (s *SourceStore) AdvanceNextCrawl(ctx context.Context, id string, next time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE crawl_sources SET next_crawl_at = $2 WHERE id = $1`, id, next)
	if err != nil {
		return fmt.Errorf("advance next_crawl_at: %w", err)
	}
	return nil
}

// UpsertSeed provisions a bootstrap source, keyed by URL. Existing rows keep
// their crawl state; only the declared configuration is refreshed.
func (s *SourceStore) UpsertSeed(ctx context.Context, name, url string, freq model.CrawlFrequency, scraperType string, detailsCrawled bool) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO crawl_sources
		   (name, url, frequency, scraper_type, status, is_active, is_details_crawled, next_crawl_at)
		 VALUES ($1, $2, $3, $4, $5, true, $6, now())
		 ON CONFLICT (url) DO UPDATE
		 SET name = EXCLUDED.name,
		     frequency = EXCLUDED.frequency,
		     scraper_type = EXCLUDED.scraper_type,
		     is_details_crawled = EXCLUDED.is_details_crawled`,
		name, url, freq, scraperType, model.SourceInactive, detailsCrawled)
	if err != nil {
		return fmt.Errorf("upsert seed source %q: %w", url, err)
	}
	return nil
}

func scanSource(row pgx.Row) (*model.CrawlSource, error) {
	var src model.CrawlSource
	var status, frequency string
	if err := row.Scan(
		&src.ID, &src.Name, &src.URL, &frequency, &src.ScraperType, &status,
		&src.IsActive, &src.IsDetailsCrawled, &src.LastCrawledAt,
		&src.NextCrawlAt, &src.OpportunitiesFound, &src.ErrorMessage,
	); err != nil {
		return nil, err
	}

	parsed, err := model.ParseSourceStatus(status)
	if err != nil {
		return nil, err
	}
	src.Status = parsed
	src.Frequency = model.CrawlFrequency(frequency)
	return &src, nil
}
