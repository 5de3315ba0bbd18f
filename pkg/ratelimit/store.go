// Package ratelimit enforces a minimum interval between accepted requests per key.
package ratelimit

import (
	"context"
	"time"
)

// Store records keys for a bounded time. SetIfAbsent must be atomic per key:
// of two concurrent callers for the same live key, at most one gets true.
type Store interface {
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
