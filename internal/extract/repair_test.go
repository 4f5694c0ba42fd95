package extract

import (
	"errors"
	"strings"
	"testing"
)

// ── StripFences ────────────────────────────────────────────────────────────

func TestStripFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  ```json\n[1,2]\n```  ", `[1,2]`},
	}
	for _, c := range cases {
		if got := StripFences(c.in); got != c.want {
			t.Errorf("%s: StripFences(%q) = %q, want %q", c.name, c.in, got, c.want)
		}
	}
}

// ── RepairJSON ─────────────────────────────────────────────────────────────

func TestRepairJSON_EscapesInnerQuotes(t *testing.T) {
	in := `{"title": "The "Best" Grant", "org": "X"}`
	want := `{"title": "The \"Best\" Grant", "org": "X"}`
	if got := RepairJSON(in); got != want {
		t.Errorf("RepairJSON = %q, want %q", got, want)
	}
}

func TestRepairJSON_LeavesValidJSONAlone(t *testing.T) {
	cases := []string{
		`{"a": "plain", "b": [1, 2], "c": {"d": null}}`,
		`{"escaped": "already \"quoted\" here"}`,
		`[{"title": "A"}, {"title": "B"}]`,
	}
	for _, in := range cases {
		if got := RepairJSON(in); got != in {
			t.Errorf("RepairJSON(%q) = %q, want unchanged", in, got)
		}
	}
}

// ── parseListing ───────────────────────────────────────────────────────────

func TestParseListing_RecoversUnescapedQuote(t *testing.T) {
	raw := "```json\n" + `[{"opportunity_id": "g1", "title": "The "Big" Fellowship"}]` + "\n```"
	entries, err := parseListing(raw)
	if err != nil {
		t.Fatalf("parseListing: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if !strings.Contains(entries[0].Title, `"Big"`) {
		t.Errorf("Title = %q, want the inner quotes preserved", entries[0].Title)
	}
}

func TestParseListing_RejectsWhenEveryElementIncomplete(t *testing.T) {
	raw := `[{"opportunity_id": "a"}, {"organization": "Org"}]` // no titles anywhere
	_, err := parseListing(raw)
	if !errors.Is(err, ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestParseListing_KeepsValidElementsDropsIncomplete(t *testing.T) {
	raw := `[{"title": "Good"}, {"organization": "no title"}]`
	entries, err := parseListing(raw)
	if err != nil {
		t.Fatalf("parseListing: %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "Good" {
		t.Errorf("entries = %+v, want just the complete element", entries)
	}
}

func TestParseListing_UnparseableAfterRepair(t *testing.T) {
	_, err := parseListing("I could not find any opportunities on this page.")
	if !errors.Is(err, ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

// ── parseDetails ───────────────────────────────────────────────────────────

func TestParseDetails_Complete(t *testing.T) {
	raw := `{"title": "Grant", "description": "Funding for researchers", "isRemote": true}`
	details, err := parseDetails(raw)
	if err != nil {
		t.Fatalf("parseDetails: %v", err)
	}
	if details.Title != "Grant" || !details.IsRemote {
		t.Errorf("details = %+v", details)
	}
}

func TestParseDetails_MissingRequiredField(t *testing.T) {
	raw := `{"title": "Grant"}` // no description
	_, err := parseDetails(raw)
	if !errors.Is(err, ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}
