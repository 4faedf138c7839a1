// Package cache connects to the optional Redis instance and implements the
// fixed-window request counters the API rate limiter stores there.
package cache

import (
	"context"
	"fmt"
	"time"

	"invoice-generator/internal/config"

	"github.com/redis/go-redis/v9"
)

// Client is the subset of *redis.Client used by WindowCounter.
type Client interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
}

// NewRedisClient dials Redis and verifies it answers PING.
func NewRedisClient(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: cfg.DialTimeout,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// WindowCounter counts hits per key in fixed windows using INCR and EXPIRE.
type WindowCounter struct {
	client Client
	prefix string
	window time.Duration
}

func NewWindowCounter(client Client, prefix string, window time.Duration) *WindowCounter {
	return &WindowCounter{client: client, prefix: prefix, window: window}
}

// Hit increments key's counter and returns the new count and the time left in
// the current window. The first hit of a window sets the expiry.
func (c *WindowCounter) Hit(ctx context.Context, key string) (int64, time.Duration, error) {
	k := c.prefix + key

	count, err := c.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("incr %s: %w", k, err)
	}
	if count == 1 {
		if err := c.client.Expire(ctx, k, c.window).Err(); err != nil {
			return count, c.window, fmt.Errorf("expire %s: %w", k, err)
		}
		return count, c.window, nil
	}

	ttl, err := c.client.PTTL(ctx, k).Result()
	if err != nil {
		return count, c.window, fmt.Errorf("pttl %s: %w", k, err)
	}
	// A key left without expiry by a failed EXPIRE would count forever.
	if ttl < 0 {
		if err := c.client.Expire(ctx, k, c.window).Err(); err != nil {
			return count, c.window, fmt.Errorf("expire %s: %w", k, err)
		}
		ttl = c.window
	}
	return count, ttl, nil
}
