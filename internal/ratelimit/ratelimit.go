// Package ratelimit implements the fixed-window, cache-backed request
// limiter shared by the HTTP and streaming paths.
//
// It is grounded directly on the original implementation's
// rate_limiter.rs: read, branch on absent/zero/positive, decrement on the
// happy path, and fail open on any cache error because the limiter is
// protective, not authoritative.
package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Cache is the subset of the cache client the limiter depends on.
type Cache interface {
	Get(ctx context.Context, k string) (string, bool, error)
	SetWithTTL(ctx context.Context, k, v string, ttl time.Duration) error
	Decrement(ctx context.Context, k string) (int64, error)
}

const keyPrefix = "rate_limiter:"

// Allow checks and applies the fixed-window counter for ip, returning true
// when the request is admitted. Any cache-layer failure fails open.
func Allow(ctx context.Context, c Cache, ip string, limit int, window time.Duration) bool {
	key := keyPrefix + ip

	current, ok, err := c.Get(ctx, key)
	if err != nil {
		slog.Debug("rate limiter: cache read failed, failing open", "ip", ip, "error", err)

		return true
	}

	if !ok {
		if err := c.SetWithTTL(ctx, key, strconv.Itoa(limit), window); err != nil {
			slog.Debug("rate limiter: cache write failed, failing open", "ip", ip, "error", err)
		}

		return true
	}

	remaining, err := strconv.Atoi(current)
	if err != nil {
		slog.Debug("rate limiter: corrupted counter, failing open", "ip", ip, "value", current)

		return true
	}

	if remaining <= 0 {
		return false
	}

	if _, err := c.Decrement(ctx, key); err != nil {
		slog.Debug("rate limiter: cache decrement failed, failing open", "ip", ip, "error", err)
	}

	return true
}

// ExtractIP reads x-forwarded-for, taking the last comma-separated element
// trimmed of whitespace; it falls back to 127.0.0.1 when the header is
// absent or empty.
func ExtractIP(r *http.Request) string {
	header := r.Header.Get("x-forwarded-for")
	if header == "" {
		return "127.0.0.1"
	}

	parts := strings.Split(header, ",")
	last := strings.TrimSpace(parts[len(parts)-1])
	if last == "" {
		return "127.0.0.1"
	}

	return last
}
