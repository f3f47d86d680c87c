// Package ratelimit implements fixed-window quotas shared across instances
// through Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed bool
	Count   int64
	Limit   int
	ResetIn time.Duration
}

// Limiter counts calls per key inside a fixed window.
type Limiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
}

// New constructs a Limiter allowing limit calls per window and key.
func New(client redis.Cmdable, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{client: client, limit: limit, window: window}
}

// Key builds the counter key for an actor performing operation.
func Key(actor uuid.UUID, operation string) string {
	return "ratelimit:" + operation + ":" + actor.String()
}

// Allow consumes one unit of the quota for key. Calls over the limit still
// count, so a caller hammering the endpoint stays blocked until the window ends.
// INCR and TTL share one round trip; a second one sets the expiry when the
// window opens or the counter lost it.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: incr: %w", err)
	}
	count := incr.Val()
	resetIn := ttl.Val()
	if resetIn < 0 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("ratelimit: expire: %w", err)
		}
		resetIn = l.window
	}
	return Decision{
		Allowed: count <= int64(l.limit),
		Count:   count,
		Limit:   l.limit,
		ResetIn: resetIn,
	}, nil
}
