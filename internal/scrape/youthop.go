package scrape

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masud-Ndatsu/ambitful-api/internal/model"
)

// TypeYouthOpportunities is the declared scraper type for youthop.com.
const TypeYouthOpportunities = "YOUTH_OPPORTUNITIES"

const youthOpBase = "https://www.youthop.com"

// YouthOpportunitiesScraper handles youthop.com listing pages. Detail pages
// are not yet supported for this source; sources using it run with
// isDetailsCrawled=false and synthesize drafts straight from listings.
type YouthOpportunitiesScraper struct {
	siteScraper
}

// NewYouthOpportunitiesScraper constructs the scraper.
func NewYouthOpportunitiesScraper(deps Deps) *YouthOpportunitiesScraper {
	return &YouthOpportunitiesScraper{siteScraper{deps: deps}}
}

func (s *YouthOpportunitiesScraper) Type() string { return TypeYouthOpportunities }

func (s *YouthOpportunitiesScraper) CompatibleWith(url string) bool {
	return strings.Contains(url, "youthop.com")
}

func (s *YouthOpportunitiesScraper) ListingPage(ctx context.Context, url string) (*Result, error) {
	return s.scrapeListing(ctx, url)
}

func (s *YouthOpportunitiesScraper) DetailPage(ctx context.Context, id string) (*model.OpportunityDetails, error) {
	return nil, fmt.Errorf("%w: %s", ErrNotImplemented, TypeYouthOpportunities)
}

func (s *YouthOpportunitiesScraper) DetailPageURL(id string) string {
	if strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
		return id
	}
	return youthOpBase + "/" + strings.TrimPrefix(id, "/")
}

func (s *YouthOpportunitiesScraper) ToDraft(details *model.OpportunityDetails, typeID string) *model.Draft {
	return toDraft(details, typeID)
}
