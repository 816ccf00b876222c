package ratelimit

import "context"

// RateLimiter controls outbound message throughput per channel. Wait blocks
// until a permit is available or the context expires; bound the wait by
// passing a context with a deadline.
type RateLimiter interface {
	Allow(ctx context.Context, channel string) (bool, error)
	Wait(ctx context.Context, channel string) error
}
