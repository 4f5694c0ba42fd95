package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masud-Ndatsu/ambitful-api/internal/draft"
	"github.com/Masud-Ndatsu/ambitful-api/internal/extract"
	"github.com/Masud-Ndatsu/ambitful-api/internal/fetch"
	"github.com/Masud-Ndatsu/ambitful-api/internal/model"
)

// Deps bundles the shared fetch → normalize → extract machinery every site
// scraper runs on.
type Deps struct {
	Fetcher    *fetch.Fetcher
	Normalizer *fetch.Normalizer
	Engine     *extract.Engine
}

// siteScraper implements the common flow; concrete sites embed it and supply
// URL handling.
type siteScraper struct {
	deps Deps
}

func (s *siteScraper) scrapeListing(ctx context.Context, url string) (*Result, error) {
	res := s.deps.Fetcher.Fetch(ctx, url)
	if res.Err != nil {
		return nil, fmt.Errorf("listing fetch: %w", res.Err)
	}

	text := s.deps.Normalizer.ToPlainText(res.Content)
	entries, err := s.deps.Engine.ExtractListing(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("listing extract: %w", err)
	}

	out := &Result{Success: true, TotalFound: len(entries)}
	for _, e := range entries {
		if e.OpportunityID == "" && e.URL == "" {
			out.Errors = append(out.Errors, fmt.Sprintf("entry %q has neither id nor url", e.Title))
			continue
		}
		out.Entries = append(out.Entries, e)
	}
	return out, nil
}

func (s *siteScraper) scrapeDetails(ctx context.Context, url string) (*model.OpportunityDetails, error) {
	res := s.deps.Fetcher.Fetch(ctx, url)
	if res.Err != nil {
		return nil, fmt.Errorf("detail fetch: %w", res.Err)
	}

	text := s.deps.Normalizer.ToPlainText(res.Content)
	details, err := s.deps.Engine.ExtractDetails(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("detail extract: %w", err)
	}
	return details, nil
}

// toDraft is the shared format conversion behind every site's ToDraft.
func toDraft(details *model.OpportunityDetails, typeID string) *model.Draft {
	d := &model.Draft{
		CategoryID: typeID,
		Status:     model.DraftPending,
		CreatedAt:  time.Now(),
	}
	draft.FillFromDetails(d, details)
	d.Deadline = draft.ParseDeadline(details.Deadline, time.Now())
	if raw, err := json.Marshal(details); err == nil {
		d.RawScrapedData = raw
	}
	return d
}
