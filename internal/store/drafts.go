package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Masud-Ndatsu/ambitful-api/internal/model"
)

// DraftStore persists opportunity drafts.
type DraftStore struct {
	pool *pgxpool.Pool
}

// NewDraftStore constructs a DraftStore.
func NewDraftStore(pool *pgxpool.Pool) *DraftStore {
	return &DraftStore{pool: pool}
}

// FindByNaturalKey looks up a draft by (source_url, crawl_source_id).
// Returns nil when no draft exists.
func (s *DraftStore) FindByNaturalKey(ctx context.Context, sourceURL, crawlSourceID string) (*model.Draft, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, title, source_url, crawl_source_id, status
		 FROM opportunity_drafts
		 WHERE source_url = $1 AND crawl_source_id = $2`,
		sourceURL, crawlSourceID)

	var d model.Draft
	var status string
	err := row.Scan(&d.ID, &d.Title, &d.SourceURL, &d.CrawlSourceID, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find draft: %w", err)
	}
	d.Status = model.DraftStatus(status)
	return &d, nil
}

// Insert persists a draft, skipping silently when a draft with the same
// natural key already exists. The WHERE NOT EXISTS guard closes the
// check-then-insert race between concurrent detail workers; returns false
// when the guard fired.
func (s *DraftStore) Insert(ctx context.Context, d *model.Draft) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO opportunity_drafts
		   (title, organization, description, requirements, benefits,
		    compensation, compensation_type, locations, is_remote, deadline,
		    application_url, contact_email, experience_level, duration,
		    eligibility, category_id, crawl_source_id, source_url, status,
		    is_details_crawled, raw_scraped_data, created_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, NULLIF($16, ''), $17, $18, $19, $20, NULLIF($21, '')::jsonb, $22
		 WHERE NOT EXISTS (
		   SELECT 1 FROM opportunity_drafts
		   WHERE source_url = $18 AND crawl_source_id = $17
		 )`,
		d.Title, d.Organization, d.Description, d.Requirements, d.Benefits,
		d.Compensation, d.CompensationType, d.Locations, d.IsRemote, d.Deadline,
		d.ApplicationURL, d.ContactEmail, d.ExperienceLevel, d.Duration,
		d.Eligibility, d.CategoryID, d.CrawlSourceID, d.SourceURL, d.Status,
		d.IsDetailsCrawled, string(d.RawScrapedData), d.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert draft: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CategoryIDByName resolves a category/type identifier from the lookup
// table, used when an approved draft is published as an opportunity.
// Returns "" when the category is unknown.
func (s *DraftStore) CategoryIDByName(ctx context.Context, name string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM opportunity_categories WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("category lookup: %w", err)
	}
	return id, nil
}
