package draft

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// fallbackWindow is applied when no parse strategy yields a valid date:
// drafts always carry a deadline, defaulting to 30 days out.
const fallbackWindow = 30 * 24 * time.Hour

var ordinalRe = regexp.MustCompile(`(\d+)(st|nd|rd|th)`)

var slashRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)

// ParseDeadline parses a scraped deadline string through a permissive
// multi-format parser. It never fails: unparseable, empty or invalid input
// yields now + 30 days.
func ParseDeadline(raw string, now time.Time) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return now.Add(fallbackWindow)
	}

	// "January 30th, 2026" → "January 30, 2026"
	s = ordinalRe.ReplaceAllString(s, "$1")

	layouts := []string{
		"2 January 2006",  // 30 January 2026
		"January 2, 2006", // January 30, 2026
		"2006-1-2",        // 2026-01-30, 2026-1-30
		time.RFC3339,
		"2006-01-02T15:04:05",
		time.RFC1123,
		"Jan 2, 2006",
		"2 Jan 2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil && valid(t) {
			return t
		}
	}

	// D/M/YYYY, swapping to M/D when the first pair cannot be day/month.
	if m := slashRe.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])

		day, month := a, b
		if month > 12 && day <= 12 {
			day, month = b, a
		}
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			// reject rollover like 31/02/2026 → March 3rd
			if t.Day() == day && valid(t) {
				return t
			}
		}
	}

	return now.Add(fallbackWindow)
}

func valid(t time.Time) bool {
	return t.Year() >= 1971 && t.Year() <= 2200
}
