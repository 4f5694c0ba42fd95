// Package fetch retrieves raw page content through the external fetch/proxy
// service, with response caching and bounded retries.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/Masud-Ndatsu/ambitful-api/internal/cache"
)

const (
	httpTimeout   = 30 * time.Second
	maxBodyBytes  = 4 << 20 // proxy responses beyond 4 MiB are truncated
	fetchAttempts = 3
)

// Result is what Fetch hands back. Err is set (and Content empty) when the
// retry budget is exhausted; nothing is thrown past this boundary.
type Result struct {
	Content string
	Err     error
}

// KV is the slice of the cache store the fetcher needs.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Fetcher calls the rate-limited proxy service and caches successful
// responses for the cache default TTL.
type Fetcher struct {
	baseURL string
	apiKey  string
	store   KV
	client  *http.Client
	retry   RetryConfig
}

// NewFetcher constructs a Fetcher with a shared HTTP client.
func NewFetcher(baseURL, apiKey string, store KV) *Fetcher {
	return &Fetcher{
		baseURL: baseURL,
		apiKey:  apiKey,
		store:   store,
		client:  &http.Client{Timeout: httpTimeout},
		retry:   RetryConfig{MaxAttempts: fetchAttempts, BaseDelay: time.Second, MaxDelay: 8 * time.Second},
	}
}

// Fetch returns page content for target, cache-first. On a miss it goes
// through the proxy with up to 3 attempts and caches the successful body.
func (f *Fetcher) Fetch(ctx context.Context, target string) Result {
	key := cache.Key("fetch", target)

	if cached, ok, err := f.store.Get(ctx, key); err != nil {
		log.Printf("[fetcher] cache read error for %s: %v, fetching fresh", target, err)
	} else if ok {
		return Result{Content: cached}
	}

	var content string
	err := f.retry.Do(ctx, fmt.Sprintf("fetch %s", target), func() error {
		body, err := f.fetchOnce(ctx, target)
		if err != nil {
			return err
		}
		content = body
		return nil
	})
	if err != nil {
		return Result{Err: err}
	}

	if err := f.store.Set(ctx, key, content, cache.DefaultTTL); err != nil {
		log.Printf("[fetcher] cache write error for %s: %v", target, err)
	}

	return Result{Content: content}
}

func (f *Fetcher) fetchOnce(ctx context.Context, target string) (string, error) {
	params := url.Values{}
	params.Set("url", target)
	if f.apiKey != "" {
		params.Set("api_key", f.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html, application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("proxy returned %d for %s", resp.StatusCode, target)
	}

	return string(body), nil
}
