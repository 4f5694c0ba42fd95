// Package llm abstracts the language-model backends behind a single
// Complete call with provider and API-key rotation.
package llm

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Provider is one (backend, API key) pair.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

// Router walks an ordered list of providers. After a failure it advances to
// the next untried pair, exhausting all of them before giving up. The cursor
// is explicit state so tests can inject deterministic ordering.
type Router struct {
	mu        sync.Mutex
	providers []Provider
	cursor    int // index of the pair to try first on the next call
}

// NewRouter constructs a Router over providers in priority order.
func NewRouter(providers ...Provider) (*Router, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("llm: no providers configured")
	}
	return &Router{providers: providers}, nil
}

// Complete sends prompt to the current provider, rotating through the
// remaining pairs on failure. The cursor sticks to whichever pair succeeded
// so a healthy provider keeps serving subsequent calls.
func (r *Router) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	r.mu.Lock()
	start := r.cursor
	providers := r.providers
	r.mu.Unlock()

	var lastErr error
	for i := 0; i < len(providers); i++ {
		idx := (start + i) % len(providers)
		p := providers[idx]

		text, err := p.Complete(ctx, prompt, temperature)
		if err == nil {
			r.mu.Lock()
			r.cursor = idx
			r.mu.Unlock()
			return text, nil
		}

		lastErr = err
		log.Printf("[llm] provider %s failed: %v, rotating", p.Name(), err)

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("all %d llm providers failed: %w", len(providers), lastErr)
}
