package ratelimit

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Allow(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		calls  [][2]string
		expect []bool
	}{
		{
			name:   "second call on same key is rejected",
			calls:  [][2]string{{"tok", "/api/chat"}, {"tok", "/api/chat"}},
			expect: []bool{true, false},
		},
		{
			name:   "different routes are independent",
			calls:  [][2]string{{"tok", "/api/chat"}, {"tok", "/api/chats"}},
			expect: []bool{true, true},
		},
		{
			name:   "different tokens are independent",
			calls:  [][2]string{{"a", "/api/chat"}, {"b", "/api/chat"}},
			expect: []bool{true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLimiter(NewMemoryStore(time.Minute), time.Second)
			for i, c := range tt.calls {
				ok, err := l.Allow(ctx, c[0], c[1])
				require.NoError(t, err)
				assert.Equal(t, tt.expect[i], ok, "call %d", i)
			}
		})
	}
}

func TestLimiter_RejectionDoesNotExtendWindow(t *testing.T) {
	ctx := context.Background()
	interval := 100 * time.Millisecond
	l := NewLimiter(NewMemoryStore(time.Minute), interval)

	ok, err := l.Allow(ctx, "tok", "/r")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	ok, _ = l.Allow(ctx, "tok", "/r")
	assert.False(t, ok)

	// 60ms after the rejection but more than interval after the accepted call.
	time.Sleep(60 * time.Millisecond)
	ok, _ = l.Allow(ctx, "tok", "/r")
	assert.True(t, ok)
}

func TestMemoryStore_ConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	l := NewLimiter(NewMemoryStore(time.Minute), time.Second)

	var accepted int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow(ctx, "tok", "/api/chat"); ok {
				atomic.AddInt32(&accepted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted)
}

func TestRedisStore_SetIfAbsent(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	defer client.Close()

	ctx := context.Background()
	store := NewRedisStore(client, "test:ratelimit:")
	key := "tok|" + time.Now().Format(time.RFC3339Nano)

	ok, err := store.SetIfAbsent(ctx, key, 200*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetIfAbsent(ctx, key, 200*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}
