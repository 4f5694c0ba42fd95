// Package model defines shared data structures for the crawler service.
package model

import "time"

// CrawlFrequency controls how often a source is re-crawled.
type CrawlFrequency string

const (
	FrequencyDaily   CrawlFrequency = "DAILY"
	FrequencyWeekly  CrawlFrequency = "WEEKLY"
	FrequencyMonthly CrawlFrequency = "MONTHLY"
)

// Interval returns the duration until the next crawl for this frequency.
func (f CrawlFrequency) Interval() time.Duration {
	switch f {
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	case FrequencyMonthly:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// CrawlSource mirrors the crawl_sources table. It is owned by the pipeline
// during crawl execution; status is mutated only through pipeline transitions.
type CrawlSource struct {
	ID                 string
	Name               string
	URL                string
	Frequency          CrawlFrequency
	ScraperType        string
	Status             SourceStatus
	IsActive           bool
	IsDetailsCrawled   bool
	LastCrawledAt      *time.Time
	NextCrawlAt        *time.Time
	OpportunitiesFound int
	ErrorMessage       string
}

// ListingEntry is one item extracted from a listing page. Ephemeral: it lives
// in the batch cache until the detail jobs spawned from it have drained.
type ListingEntry struct {
	OpportunityID string `json:"opportunity_id"`
	Title         string `json:"title"`
	Organization  string `json:"organization,omitempty"`
	Location      string `json:"location,omitempty"`
	Deadline      string `json:"deadline,omitempty"`
	URL           string `json:"url,omitempty"`
}

// OpportunityDetails is the full structured record extracted from a detail
// page. Fields absent from the source text stay zero-valued, never inferred.
type OpportunityDetails struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Organization     string         `json:"organization"`
	Description      string         `json:"description"`
	Requirements     []string       `json:"requirements"`
	Benefits         []string       `json:"benefits"`
	Compensation     string         `json:"compensation,omitempty"`
	CompensationType string         `json:"compensationType,omitempty"`
	Locations        []string       `json:"locations"`
	IsRemote         bool           `json:"isRemote"`
	Deadline         string         `json:"deadline"`
	ApplicationURL   string         `json:"applicationUrl,omitempty"`
	ContactEmail     string         `json:"contactEmail,omitempty"`
	ExperienceLevel  string         `json:"experienceLevel,omitempty"`
	Duration         string         `json:"duration,omitempty"`
	Eligibility      []string       `json:"eligibility"`
	RawData          map[string]any `json:"rawData,omitempty"`
}

// DraftStatus mirrors the draft_status enum in PostgreSQL.
type DraftStatus string

const (
	DraftPending   DraftStatus = "PENDING"
	DraftApproved  DraftStatus = "APPROVED"
	DraftRejected  DraftStatus = "REJECTED"
	DraftPublished DraftStatus = "PUBLISHED"
)

// Draft is a persisted candidate opportunity awaiting moderation.
// (source_url, crawl_source_id) is its natural key across retries.
type Draft struct {
	ID               string
	Title            string
	Organization     string
	Description      string
	Requirements     []string
	Benefits         []string
	Compensation     string
	CompensationType string
	Locations        []string
	IsRemote         bool
	Deadline         time.Time
	ApplicationURL   string
	ContactEmail     string
	ExperienceLevel  string
	Duration         string
	Eligibility      []string
	CategoryID       string
	CrawlSourceID    string
	SourceURL        string
	Status           DraftStatus
	IsDetailsCrawled bool
	RawScrapedData   []byte
	CreatedAt        time.Time
}

// ListingBatch is the cached payload a listing job leaves behind for its
// detail jobs. Keyed in redis by a hash of (source ID, listing URL).
type ListingBatch struct {
	Listings      []ListingEntry `json:"listings"`
	Timestamp     time.Time      `json:"timestamp"`
	CrawlSourceID string         `json:"crawlSourceId"`
	URL           string         `json:"url"`
	Source        *CrawlSource   `json:"crawlSource,omitempty"`
}
