// Source status state machine:
//
//	INACTIVE ──► ACTIVE ──► INACTIVE   (crawl succeeded)
//	                 │
//	                 └─────► ERROR     (fetch/extract failed, zero entries)
//
// ERROR sources are not auto-retried; the next scheduled or manual trigger
// moves them back through ACTIVE.
package model

import "fmt"

// SourceStatus mirrors the source_status enum in PostgreSQL.
type SourceStatus string

const (
	SourceActive   SourceStatus = "ACTIVE"
	SourceInactive SourceStatus = "INACTIVE"
	SourceError    SourceStatus = "ERROR"
)

// validSourceTransitions lists every allowed (from → to) pair.
var validSourceTransitions = map[SourceStatus][]SourceStatus{
	SourceInactive: {SourceActive},
	SourceError:    {SourceActive},
	SourceActive:   {SourceInactive, SourceError},
}

// ParseSourceStatus converts a raw string to a SourceStatus, returning an
// error for unknown values.
func ParseSourceStatus(s string) (SourceStatus, error) {
	st := SourceStatus(s)
	switch st {
	case SourceActive, SourceInactive, SourceError:
		return st, nil
	}
	return "", fmt.Errorf("unknown source status %q", s)
}

// IsSourceTransitionAllowed returns true when moving from → to is permitted
// by the state machine.
func IsSourceTransitionAllowed(from, to SourceStatus) bool {
	for _, s := range validSourceTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
