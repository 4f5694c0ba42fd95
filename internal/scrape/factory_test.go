package scrape

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Masud-Ndatsu/ambitful-api/internal/model"
)

// ── factory resolution ──

func TestForType(t *testing.T) {
	f := NewFactory(Deps{})

	s, err := f.ForType(TypeOpportunityDesk)
	if err != nil {
		t.Fatalf("ForType: %v", err)
	}
	if s.Type() != TypeOpportunityDesk {
		t.Errorf("Type() = %q", s.Type())
	}

	if _, err := f.ForType("LINKEDIN"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("unknown type error = %v, want ErrUnknownType", err)
	}
}

func TestForURL(t *testing.T) {
	f := NewFactory(Deps{})

	cases := []struct {
		url      string
		wantType string
	}{
		{"https://opportunitydesk.org/category/scholarships/", TypeOpportunityDesk},
		{"https://www.youthop.com/scholarships", TypeYouthOpportunities},
	}
	for _, c := range cases {
		s, err := f.ForURL(c.url)
		if err != nil {
			t.Fatalf("ForURL(%q): %v", c.url, err)
		}
		if s.Type() != c.wantType {
			t.Errorf("ForURL(%q) resolved %q, want %q", c.url, s.Type(), c.wantType)
		}
	}

	if _, err := f.ForURL("https://example.com/jobs"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("unmatched url error = %v, want ErrUnknownType", err)
	}
}

func TestResolve_PrefersDeclaredType(t *testing.T) {
	f := NewFactory(Deps{})

	// Declared type wins even when the URL would match a different site.
	s, err := f.Resolve(TypeYouthOpportunities, "https://opportunitydesk.org/")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Type() != TypeYouthOpportunities {
		t.Errorf("Resolve picked %q, want declared type", s.Type())
	}

	// Empty type falls back to URL matching.
	s, err = f.Resolve("", "https://www.youthop.com/fellowships")
	if err != nil {
		t.Fatalf("Resolve fallback: %v", err)
	}
	if s.Type() != TypeYouthOpportunities {
		t.Errorf("Resolve fallback picked %q", s.Type())
	}
}

// ── per-site behavior ──

func TestDetailPageURL(t *testing.T) {
	od := NewOpportunityDeskScraper(Deps{})

	if got := od.DetailPageURL("rhodes-scholarship-2026"); got != "https://opportunitydesk.org/rhodes-scholarship-2026" {
		t.Errorf("slug DetailPageURL = %q", got)
	}
	if got := od.DetailPageURL("/rhodes-scholarship-2026"); got != "https://opportunitydesk.org/rhodes-scholarship-2026" {
		t.Errorf("leading-slash DetailPageURL = %q", got)
	}
	if got := od.DetailPageURL("https://opportunitydesk.org/2026/01/rhodes/"); got != "https://opportunitydesk.org/2026/01/rhodes/" {
		t.Errorf("absolute URL should pass through, got %q", got)
	}
}

func TestYouthOpportunities_DetailPageNotImplemented(t *testing.T) {
	yo := NewYouthOpportunitiesScraper(Deps{})

	_, err := yo.DetailPage(context.Background(), "some-fellowship")
	if !errors.Is(err, ErrNotImplemented) {
		t.Errorf("DetailPage error = %v, want ErrNotImplemented", err)
	}
}

func TestToDraft_MapsDetails(t *testing.T) {
	od := NewOpportunityDeskScraper(Deps{})

	details := &model.OpportunityDetails{
		Title:        "Rhodes Scholarship",
		Organization: "Rhodes Trust",
		Description:  "Postgraduate study at Oxford.",
		Requirements: []string{"Bachelor's degree"},
		Benefits:     []string{"Full tuition", "Stipend"},
		Locations:    []string{"Oxford, UK"},
		IsRemote:     false,
		Deadline:     "1 October 2026",
		Eligibility:  []string{"Under 27"},
	}

	d := od.ToDraft(details, "cat-scholarships")

	if d.Title != "Rhodes Scholarship" || d.Organization != "Rhodes Trust" {
		t.Errorf("identity fields: %q / %q", d.Title, d.Organization)
	}
	if d.CategoryID != "cat-scholarships" {
		t.Errorf("CategoryID = %q", d.CategoryID)
	}
	if d.Status != model.DraftPending {
		t.Errorf("Status = %q, want PENDING", d.Status)
	}
	want := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	if !d.Deadline.Equal(want) {
		t.Errorf("Deadline = %v, want %v", d.Deadline, want)
	}
	if len(d.RawScrapedData) == 0 || !strings.Contains(string(d.RawScrapedData), "Rhodes Trust") {
		t.Errorf("RawScrapedData should hold the serialized details: %s", d.RawScrapedData)
	}
}
