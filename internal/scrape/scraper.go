// Package scrape defines the per-site scraper contract and its registry.
// One implementation exists per source site; all of them share the same
// fetch → normalize → extract flow and differ in URL handling.
package scrape

import (
	"context"
	"errors"

	"github.com/Masud-Ndatsu/ambitful-api/internal/model"
)

var (
	// ErrNotImplemented marks a scraper stub for a source without a
	// working detail implementation. Fatal immediately, never retried.
	ErrNotImplemented = errors.New("scrape: detail page not implemented for this source")

	// ErrUnknownType marks a configuration error: no scraper is
	// registered for the requested type or URL. Fatal immediately.
	ErrUnknownType = errors.New("scrape: no scraper registered for source")
)

// Result is the outcome of a listing-page scrape.
type Result struct {
	Success    bool
	Entries    []model.ListingEntry
	TotalFound int
	Errors     []string
}

// Scraper is the per-site contract.
type Scraper interface {
	// Type is the declared scraper type this implementation serves.
	Type() string
	// CompatibleWith reports whether this scraper can handle url. Used
	// only on the factory's fallback path when no type is declared.
	CompatibleWith(url string) bool
	// ListingPage fetches and extracts all entries from a listing page.
	ListingPage(ctx context.Context, url string) (*Result, error)
	// DetailPage fetches and extracts one opportunity's full record.
	DetailPage(ctx context.Context, id string) (*model.OpportunityDetails, error)
	// DetailPageURL constructs the canonical detail-page URL for an item.
	DetailPageURL(id string) string
	// ToDraft converts extracted details into a normalized draft record.
	ToDraft(details *model.OpportunityDetails, typeID string) *model.Draft
}
