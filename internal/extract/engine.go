// Package extract turns normalized page text into structured opportunity
// records through a language-model backend with a fixed prompt contract.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Masud-Ndatsu/ambitful-api/internal/model"
)

const (
	extractAttempts  = 3
	baseBackoff      = 1 * time.Second
	maxBackoff       = 5 * time.Second
	extractionTemp   = 0.0
	contentCharLimit = 48000 // ~12k tokens of source text per call
)

// Completer is the slice of llm.Router the engine needs.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

// Engine builds prompts, calls the LLM backend and post-processes the
// returned JSON.
type Engine struct {
	llm Completer
}

// NewEngine constructs an Engine over an LLM completer.
func NewEngine(llm Completer) *Engine {
	return &Engine{llm: llm}
}

const listingPrompt = `You are a data extraction system. Extract every opportunity listed on the page below.

Return ONLY a JSON array. Each element must have this shape:
{
  "opportunity_id": "stable identifier or slug from the page",
  "title": "opportunity title",
  "organization": "organization name or null",
  "location": "location or null",
  "deadline": "application deadline as written or null",
  "url": "absolute link to the opportunity page or null"
}

Rules:
- Include an element for every distinct opportunity on the page.
- A field not explicitly present in the text must be null. Never infer or invent values.
- No prose, no markdown, no code fences. JSON only.

Page content:
%s`

const detailsPrompt = `You are a data extraction system. Extract the single opportunity described on the page below.

Return ONLY a JSON object with this shape:
{
  "id": "stable identifier or slug",
  "title": "opportunity title",
  "organization": "organization name",
  "description": "full description text",
  "requirements": ["requirement", ...],
  "benefits": ["benefit", ...],
  "compensation": "amount as written or null",
  "compensationType": "SALARY | STIPEND | GRANT | UNPAID or null",
  "locations": ["location", ...],
  "isRemote": true or false,
  "deadline": "application deadline as written or null",
  "applicationUrl": "application link or null",
  "contactEmail": "contact email or null",
  "experienceLevel": "entry | mid | senior or null",
  "duration": "duration as written or null",
  "eligibility": ["eligibility criterion", ...]
}

Rules:
- A field not explicitly present in the text must be null (or an empty array). Never infer or invent values.
- No prose, no markdown, no code fences. JSON only.

Page content:
%s`

// ExtractListing extracts listing entries from normalized page text.
// The call is retried up to 3 times with bounded backoff on transport or
// parse failure; a repair pass runs once per attempt before counting it
// as failed.
func (e *Engine) ExtractListing(ctx context.Context, text string) ([]model.ListingEntry, error) {
	prompt := fmt.Sprintf(listingPrompt, clip(text, contentCharLimit))

	var entries []model.ListingEntry
	err := e.withRetry(ctx, "listing extraction", func() error {
		raw, err := e.llm.Complete(ctx, prompt, extractionTemp)
		if err != nil {
			return err
		}
		parsed, err := parseListing(raw)
		if err != nil {
			return err
		}
		entries = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ExtractDetails extracts a full opportunity record from normalized detail
// page text. Same retry/repair policy as ExtractListing.
func (e *Engine) ExtractDetails(ctx context.Context, text string) (*model.OpportunityDetails, error) {
	prompt := fmt.Sprintf(detailsPrompt, clip(text, contentCharLimit))

	var details *model.OpportunityDetails
	err := e.withRetry(ctx, "details extraction", func() error {
		raw, err := e.llm.Complete(ctx, prompt, extractionTemp)
		if err != nil {
			return err
		}
		parsed, err := parseDetails(raw)
		if err != nil {
			return err
		}
		details = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (e *Engine) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	delay := baseBackoff

	for attempt := 1; attempt <= extractAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < extractAttempts {
			log.Printf("[extract] %s failed (attempt %d/%d): %v, retrying in %v",
				op, attempt, extractAttempts, lastErr, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
			if delay > maxBackoff {
				delay = maxBackoff
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, extractAttempts, lastErr)
}

// parseListing parses an array response. Strict parse first, one repair pass
// on failure. The result is rejected when every element is missing a
// required field.
func parseListing(raw string) ([]model.ListingEntry, error) {
	body := StripFences(raw)

	var entries []model.ListingEntry
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		repaired := RepairJSON(body)
		if err := json.Unmarshal([]byte(repaired), &entries); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
	}

	valid := entries[:0]
	for _, e := range entries {
		if e.Title != "" {
			valid = append(valid, e)
		}
	}
	if len(entries) > 0 && len(valid) == 0 {
		return nil, fmt.Errorf("%w: every element is missing required fields", ErrParse)
	}

	return valid, nil
}

// parseDetails parses an object response with the same strict-then-repair
// policy, rejecting records missing required fields.
func parseDetails(raw string) (*model.OpportunityDetails, error) {
	body := StripFences(raw)

	var details model.OpportunityDetails
	if err := json.Unmarshal([]byte(body), &details); err != nil {
		repaired := RepairJSON(body)
		if err := json.Unmarshal([]byte(repaired), &details); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
	}

	if details.Title == "" || details.Description == "" {
		return nil, fmt.Errorf("%w: missing required fields title/description", ErrParse)
	}

	return &details, nil
}

// clip truncates content to at most max characters.
func clip(content string, max int) string {
	if len(content) <= max {
		return content
	}
	return content[:max] + "…"
}
