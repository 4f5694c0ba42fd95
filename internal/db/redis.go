package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisPingTimeout  = 5 * time.Second
	redisMinPoolSize  = 20 // listing + detail workers all poll this client
	redisMinIdleConns = 2
)

// NewRedisClient parses redisURL and verifies connectivity. The queue
// workers poll redis constantly with small commands, so the pool is sized
// for steady concurrency rather than bursts.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}
	if opts.PoolSize < redisMinPoolSize {
		opts.PoolSize = redisMinPoolSize
	}
	opts.MinIdleConns = redisMinIdleConns
	opts.DialTimeout = redisPingTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}
