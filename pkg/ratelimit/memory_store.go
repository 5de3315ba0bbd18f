package ratelimit

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is a process-local Store. Expired keys are evicted by the
// go-cache janitor, so the key set stays bounded by recent traffic.
type MemoryStore struct {
	cache *cache.Cache
}

var _ Store = &MemoryStore{}

func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (s *MemoryStore) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	// Add fails while an unexpired item exists and leaves it untouched.
	if err := s.cache.Add(key, time.Now(), ttl); err != nil {
		return false, nil
	}
	return true, nil
}
