// Package cache wraps redis as the shared KV store for page-fetch caching
// and listing-batch handoff between listing and detail jobs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long cached payloads live. Intentionally longer
	// than the expected queue drain time so detail jobs always find their
	// listing batch.
	DefaultTTL = 24 * time.Hour

	// StaleAfter is the soft freshness threshold. Entries past it are
	// still served, with a warning logged by the caller.
	StaleAfter = 23 * time.Hour
)

// Store is a thin TTL'd KV layer. Writes are idempotent (same key → same
// payload shape), so concurrent writers from overlapping triggers can race
// safely, last-write-wins.
type Store struct {
	rdb *redis.Client
}

// New constructs a Store.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Key derives a stable cache key from a scope (source ID, queue name …) and
// a URL by hashing the pair.
func Key(scope, url string) string {
	hash := sha256.Sum256([]byte(scope + "|" + url))
	return "crawl:cache:" + hex.EncodeToString(hash[:])[:16]
}

// Get returns the cached value and true on a hit. A miss is (_, false, nil);
// only transport failures produce an error.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores value under key for ttl. Zero ttl means DefaultTTL.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

// IsStale reports whether a payload written at writtenAt has crossed the
// soft freshness threshold.
func IsStale(writtenAt, now time.Time) bool {
	return now.Sub(writtenAt) > StaleAfter
}
