// Package draft materializes normalized opportunity candidates into the
// moderation queue, deduplicating against existing drafts.
package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Masud-Ndatsu/ambitful-api/internal/model"
)

// Store is the persistence surface the materializer needs.
type Store interface {
	// FindByNaturalKey returns the draft for (sourceURL, crawlSourceID),
	// or nil when none exists.
	FindByNaturalKey(ctx context.Context, sourceURL, crawlSourceID string) (*model.Draft, error)
	// Insert persists a draft. Returns false when a concurrent writer got
	// there first (the DB-level dedup backstop fired).
	Insert(ctx context.Context, d *model.Draft) (bool, error)
}

// Input carries one scraped item into materialization. Details is optional:
// when present its fields take precedence over the listing entry's.
type Input struct {
	Entry            *model.ListingEntry
	Details          *model.OpportunityDetails
	CrawlSourceID    string
	SourceURL        string
	IsDetailsCrawled bool
}

// CategoryLookup resolves category/type identifiers from the persistence
// lookup table.
type CategoryLookup interface {
	CategoryIDByName(ctx context.Context, name string) (string, error)
}

// defaultCategory is where unreviewed scraped drafts land until a moderator
// recategorizes them.
const defaultCategory = "General"

// Materializer writes deduplicated PENDING drafts.
type Materializer struct {
	store      Store
	categories CategoryLookup
	now        func() time.Time

	categoryOnce sync.Once
	categoryID   string
}

// NewMaterializer constructs a Materializer. categories may be nil, in which
// case drafts are created uncategorized.
func NewMaterializer(store Store, categories CategoryLookup) *Materializer {
	return &Materializer{store: store, categories: categories, now: time.Now}
}

// defaultCategoryID resolves the default category once; lookup failures just
// leave drafts uncategorized.
func (m *Materializer) defaultCategoryID(ctx context.Context) string {
	m.categoryOnce.Do(func() {
		if m.categories == nil {
			return
		}
		id, err := m.categories.CategoryIDByName(ctx, defaultCategory)
		if err != nil {
			log.Printf("[materializer] category lookup failed: %v", err)
			return
		}
		m.categoryID = id
	})
	return m.categoryID
}

// Materialize persists one draft unless a draft with the same
// (sourceUrl, crawlSourceId) already exists. First write wins; existing
// drafts are never updated. Returns whether a draft was created.
func (m *Materializer) Materialize(ctx context.Context, in Input) (bool, error) {
	if in.SourceURL == "" {
		return false, fmt.Errorf("materialize: source URL is required")
	}

	existing, err := m.store.FindByNaturalKey(ctx, in.SourceURL, in.CrawlSourceID)
	if err != nil {
		return false, fmt.Errorf("draft lookup: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	d := m.build(in)
	d.CategoryID = m.defaultCategoryID(ctx)
	created, err := m.store.Insert(ctx, d)
	if err != nil {
		return false, fmt.Errorf("draft insert: %w", err)
	}
	return created, nil
}

// MaterializeBatch runs Materialize over a set of listing entries,
// accumulating a created count and per-item errors so one bad item does not
// stop sibling processing.
func (m *Materializer) MaterializeBatch(ctx context.Context, entries []model.ListingEntry, sourceID string) (created int, errs []error) {
	for i := range entries {
		entry := &entries[i]
		sourceURL := entry.URL
		if sourceURL == "" {
			sourceURL = fmt.Sprintf("%s:%s", sourceID, entry.OpportunityID)
		}

		ok, err := m.Materialize(ctx, Input{
			Entry:         entry,
			CrawlSourceID: sourceID,
			SourceURL:     sourceURL,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %q: %w", entry.Title, err))
			continue
		}
		if ok {
			created++
		} else {
			log.Printf("[materializer] duplicate skipped: %s (source %s)", sourceURL, sourceID)
		}
	}
	return created, errs
}

// build merges detail fields over listing fields and normalizes the result.
func (m *Materializer) build(in Input) *model.Draft {
	d := &model.Draft{
		CrawlSourceID:    in.CrawlSourceID,
		SourceURL:        in.SourceURL,
		Status:           model.DraftPending,
		IsDetailsCrawled: in.IsDetailsCrawled,
		CreatedAt:        m.now(),
	}

	deadline := ""
	if in.Entry != nil {
		d.Title = in.Entry.Title
		d.Organization = in.Entry.Organization
		if in.Entry.Location != "" {
			d.Locations = []string{in.Entry.Location}
		}
		deadline = in.Entry.Deadline
	}

	if det := in.Details; det != nil {
		FillFromDetails(d, det)
		if det.Deadline != "" {
			deadline = det.Deadline
		}
		if raw, err := json.Marshal(det); err == nil {
			d.RawScrapedData = raw
		}
	} else if in.Entry != nil {
		if raw, err := json.Marshal(in.Entry); err == nil {
			d.RawScrapedData = raw
		}
	}

	d.Deadline = ParseDeadline(deadline, m.now())
	return d
}

// FillFromDetails copies every non-empty detail field onto d. Detail values
// take precedence over whatever the listing already provided.
func FillFromDetails(d *model.Draft, det *model.OpportunityDetails) {
	if det.Title != "" {
		d.Title = det.Title
	}
	if det.Organization != "" {
		d.Organization = det.Organization
	}
	d.Description = det.Description
	d.Requirements = det.Requirements
	d.Benefits = det.Benefits
	d.Compensation = det.Compensation
	d.CompensationType = det.CompensationType
	if len(det.Locations) > 0 {
		d.Locations = det.Locations
	}
	d.IsRemote = det.IsRemote
	d.ApplicationURL = det.ApplicationURL
	d.ContactEmail = det.ContactEmail
	d.ExperienceLevel = det.ExperienceLevel
	d.Duration = det.Duration
	d.Eligibility = det.Eligibility
}
