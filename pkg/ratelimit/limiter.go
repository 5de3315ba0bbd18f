package ratelimit

import (
	"context"
	"time"
)

// Limiter accepts at most one request per (token, route) within interval.
// A rejected request does not extend the window.
type Limiter struct {
	store    Store
	interval time.Duration
}

func NewLimiter(store Store, interval time.Duration) *Limiter {
	return &Limiter{store: store, interval: interval}
}

func Key(token, route string) string {
	return token + "|" + route
}

// Allow records the attempt when it is accepted.
func (l *Limiter) Allow(ctx context.Context, token, route string) (bool, error) {
	return l.store.SetIfAbsent(ctx, Key(token, route), l.interval)
}
