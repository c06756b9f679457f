package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// Result describes the outcome of one rate-limit check, with enough
// detail to populate the X-RateLimit-* response headers.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// ResetAt returns the unix timestamp at which the current window closes.
func (r Result) ResetAt(now time.Time) int64 {
	return now.Add(r.ResetIn).Unix()
}

// Limiter implements a fixed-window counter per caller identity on top of
// Redis. Correctness under concurrent requests relies on INCR being
// atomic; no client-side locking is involved. Windows are approximate:
// bursts straddling a window boundary can exceed the nominal rate, which
// is acceptable for abuse mitigation.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewLimiter(client *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, limit: limit, window: window}
}

// Allow counts a request for the given identity and reports whether it is
// within the window's budget. Every call increments the counter, including
// rejected ones, matching the original fixed-window behavior.
func (l *Limiter) Allow(ctx context.Context, identity string) (Result, error) {
	key := keyPrefix + identity

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: incr %s: %w", identity, err)
	}

	// First request in a window starts the clock.
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("ratelimit: expire %s: %w", identity, err)
		}
	}

	ttl, err := l.client.TTL(ctx, key).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: ttl %s: %w", identity, err)
	}
	if ttl < 0 {
		// Counter lost its expiry (crash between INCR and EXPIRE); restart
		// the window rather than blocking the caller forever.
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("ratelimit: expire %s: %w", identity, err)
		}
		ttl = l.window
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: remaining,
		ResetIn:   ttl,
	}, nil
}
