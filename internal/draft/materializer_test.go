package draft

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Masud-Ndatsu/ambitful-api/internal/model"
)

// fakeStore keeps drafts in memory, keyed by the natural key.
type fakeStore struct {
	drafts  map[string]*model.Draft
	lookups int
	failOn  string // sourceURL whose insert fails
}

func newFakeStore() *fakeStore {
	return &fakeStore{drafts: make(map[string]*model.Draft)}
}

func key(sourceURL, sourceID string) string { return sourceURL + "|" + sourceID }

func (s *fakeStore) FindByNaturalKey(_ context.Context, sourceURL, crawlSourceID string) (*model.Draft, error) {
	s.lookups++
	return s.drafts[key(sourceURL, crawlSourceID)], nil
}

func (s *fakeStore) Insert(_ context.Context, d *model.Draft) (bool, error) {
	if d.SourceURL == s.failOn {
		return false, fmt.Errorf("simulated insert failure")
	}
	k := key(d.SourceURL, d.CrawlSourceID)
	if _, exists := s.drafts[k]; exists {
		return false, nil
	}
	s.drafts[k] = d
	return true, nil
}

type fakeCategories struct{ id string }

func (c *fakeCategories) CategoryIDByName(context.Context, string) (string, error) {
	return c.id, nil
}

func newTestMaterializer(store Store) *Materializer {
	m := NewMaterializer(store, &fakeCategories{id: "cat-general"})
	m.now = func() time.Time { return time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC) }
	return m
}

// ── Materialize: first write wins ─────────────────────────────────────────

func TestMaterialize_CreatesThenDeduplicates(t *testing.T) {
	store := newFakeStore()
	m := newTestMaterializer(store)

	in := Input{
		Entry:         &model.ListingEntry{Title: "Research Grant", URL: "https://x.org/grant"},
		CrawlSourceID: "src-1",
		SourceURL:     "https://x.org/grant",
	}

	created, err := m.Materialize(context.Background(), in)
	if err != nil {
		t.Fatalf("first Materialize: %v", err)
	}
	if !created {
		t.Fatal("first Materialize should create a draft")
	}

	created, err = m.Materialize(context.Background(), in)
	if err != nil {
		t.Fatalf("second Materialize: %v", err)
	}
	if created {
		t.Error("second Materialize should return created=false (first write wins)")
	}
	if len(store.drafts) != 1 {
		t.Errorf("store holds %d drafts, want 1", len(store.drafts))
	}
}

func TestMaterialize_RequiresSourceURL(t *testing.T) {
	m := newTestMaterializer(newFakeStore())
	_, err := m.Materialize(context.Background(), Input{CrawlSourceID: "src-1"})
	if err == nil {
		t.Error("Materialize without a source URL should fail")
	}
}

// ── Materialize: detail fields take precedence over listing fields ───────

func TestMaterialize_DetailOverListingMerge(t *testing.T) {
	store := newFakeStore()
	m := newTestMaterializer(store)

	_, err := m.Materialize(context.Background(), Input{
		Entry: &model.ListingEntry{
			Title:        "Listing Title",
			Organization: "Listing Org",
			Location:     "Lagos",
			Deadline:     "30 January 2026",
		},
		Details: &model.OpportunityDetails{
			Title:       "Detail Title",
			Description: "Full description",
			Locations:   []string{"Remote", "Abuja"},
			IsRemote:    true,
			Deadline:    "2026-02-14",
		},
		CrawlSourceID:    "src-1",
		SourceURL:        "https://x.org/item",
		IsDetailsCrawled: true,
	})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	d := store.drafts[key("https://x.org/item", "src-1")]
	if d == nil {
		t.Fatal("draft was not stored")
	}
	if d.Title != "Detail Title" {
		t.Errorf("Title = %q, want detail value", d.Title)
	}
	if d.Organization != "Listing Org" {
		t.Errorf("Organization = %q, want listing value to survive an empty detail field", d.Organization)
	}
	if len(d.Locations) != 2 || d.Locations[0] != "Remote" {
		t.Errorf("Locations = %v, want detail locations", d.Locations)
	}
	if d.Deadline.Month() != time.February || d.Deadline.Day() != 14 {
		t.Errorf("Deadline = %s, want detail deadline 2026-02-14", d.Deadline.Format("2006-01-02"))
	}
	if d.Status != model.DraftPending {
		t.Errorf("Status = %s, want PENDING", d.Status)
	}
	if !d.IsDetailsCrawled {
		t.Error("IsDetailsCrawled should be true")
	}
	if d.CategoryID != "cat-general" {
		t.Errorf("CategoryID = %q, want resolved default category", d.CategoryID)
	}
	if len(d.RawScrapedData) == 0 {
		t.Error("RawScrapedData should carry the extracted details")
	}
}

// ── MaterializeBatch: per-item isolation ──────────────────────────────────

func TestMaterializeBatch_AccumulatesCreatedAndErrors(t *testing.T) {
	store := newFakeStore()
	store.failOn = "https://x.org/bad"
	m := newTestMaterializer(store)

	entries := []model.ListingEntry{
		{Title: "A", URL: "https://x.org/a"},
		{Title: "Bad", URL: "https://x.org/bad"},
		{Title: "B", URL: "https://x.org/b"},
		{Title: "A again", URL: "https://x.org/a"}, // duplicate
	}

	created, errs := m.MaterializeBatch(context.Background(), entries, "src-1")
	if created != 2 {
		t.Errorf("created = %d, want 2", created)
	}
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want exactly one error", errs)
	}
}

func TestMaterializeBatch_SynthesizesSourceURL(t *testing.T) {
	store := newFakeStore()
	m := newTestMaterializer(store)

	created, errs := m.MaterializeBatch(context.Background(),
		[]model.ListingEntry{{Title: "No URL", OpportunityID: "op-7"}}, "src-9")
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
	if _, ok := store.drafts[key("src-9:op-7", "src-9")]; !ok {
		t.Error("entry without a URL should dedup on a synthesized source/id key")
	}
}
