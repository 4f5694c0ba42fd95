package scrape

import (
	"context"
	"strings"

	"github.com/Masud-Ndatsu/ambitful-api/internal/model"
)

// TypeOpportunityDesk is the declared scraper type for opportunitydesk.org.
const TypeOpportunityDesk = "OPPORTUNITY_DESK"

const opportunityDeskBase = "https://opportunitydesk.org"

// OpportunityDeskScraper handles opportunitydesk.org, the one source with a
// working detail-page implementation.
type OpportunityDeskScraper struct {
	siteScraper
}

// NewOpportunityDeskScraper constructs the scraper.
func NewOpportunityDeskScraper(deps Deps) *OpportunityDeskScraper {
	return &OpportunityDeskScraper{siteScraper{deps: deps}}
}

func (s *OpportunityDeskScraper) Type() string { return TypeOpportunityDesk }

func (s *OpportunityDeskScraper) CompatibleWith(url string) bool {
	return strings.Contains(url, "opportunitydesk.org")
}

func (s *OpportunityDeskScraper) ListingPage(ctx context.Context, url string) (*Result, error) {
	return s.scrapeListing(ctx, url)
}

func (s *OpportunityDeskScraper) DetailPage(ctx context.Context, id string) (*model.OpportunityDetails, error) {
	return s.scrapeDetails(ctx, s.DetailPageURL(id))
}

// DetailPageURL maps an opportunity slug to its canonical page. IDs that are
// already absolute URLs pass through untouched.
func (s *OpportunityDeskScraper) DetailPageURL(id string) string {
	if strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
		return id
	}
	return opportunityDeskBase + "/" + strings.TrimPrefix(id, "/")
}

func (s *OpportunityDeskScraper) ToDraft(details *model.OpportunityDetails, typeID string) *model.Draft {
	return toDraft(details, typeID)
}
