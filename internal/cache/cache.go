// Package cache wraps a Redis connection with the narrow set of operations
// the room reservation and rate-limiter subsystems need.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is the single opaque error kind surfaced for any
// transport-level cache failure. Callers decide their own fail-open or
// fail-closed policy; the cache package does not.
var ErrUnavailable = errors.New("cache unavailable")

// Client is a thin typed wrapper over a multiplexed Redis connection pool.
type Client struct {
	rdb *redis.Client
}

// New builds a Client from a Redis DSN (REDIS_URL).
func New(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return &Client{rdb: redis.NewClient(opts)}, nil
}

// Ping verifies connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Get returns the value for k. ok is false when the key is absent; err is
// non-nil only for transport failures, wrapped in ErrUnavailable.
func (c *Client) Get(ctx context.Context, k string) (value string, ok bool, err error) {
	v, err := c.rdb.Get(ctx, k).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("%w: get %q: %w", ErrUnavailable, k, err)
	default:
		return v, true, nil
	}
}

// SetWithTTL sets k to v with the given expiry.
func (c *Client) SetWithTTL(ctx context.Context, k, v string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, k, v, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %q: %w", ErrUnavailable, k, err)
	}

	return nil
}

// Delete removes k. Deleting an absent key is not an error.
func (c *Client) Delete(ctx context.Context, k string) error {
	if err := c.rdb.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("%w: del %q: %w", ErrUnavailable, k, err)
	}

	return nil
}

// Exists reports whether k is present.
func (c *Client) Exists(ctx context.Context, k string) (bool, error) {
	n, err := c.rdb.Exists(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("%w: exists %q: %w", ErrUnavailable, k, err)
	}

	return n > 0, nil
}

// Decrement decrements k by 1 and returns the resulting value.
func (c *Client) Decrement(ctx context.Context, k string) (int64, error) {
	n, err := c.rdb.Decr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: decr %q: %w", ErrUnavailable, k, err)
	}

	return n, nil
}
