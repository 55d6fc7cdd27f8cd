package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCacheFetch(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cache := newCache(rdb, "search")
	ctx := context.Background()

	var loads atomic.Int32
	load := func(context.Context) (any, error) {
		loads.Add(1)
		return []string{"a", "b"}, nil
	}

	val, err := cache.Fetch(ctx, "web:1", time.Minute, load)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(val))

	stored, err := mr.Get("search:web:1")
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, stored)
	assert.Equal(t, time.Minute, mr.TTL("search:web:1"))

	_, err = cache.Fetch(ctx, "web:1", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), loads.Load())
}

func TestCacheFetchDoesNotStoreErrors(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cache := newCache(rdb, "search")

	_, err := cache.Fetch(context.Background(), "web:2", time.Minute, func(context.Context) (any, error) {
		return nil, errors.New("upstream failed")
	})
	assert.EqualError(t, err, "upstream failed")
	assert.False(t, mr.Exists("search:web:2"))
}

func TestCacheFetchCoalescesConcurrentLoads(t *testing.T) {
	_, rdb := newTestRedis(t)
	cache := newCache(rdb, "search")

	release := make(chan struct{})
	var loads atomic.Int32
	load := func(context.Context) (any, error) {
		loads.Add(1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cache.Fetch(context.Background(), "k", time.Minute, load)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, loads.Load(), int32(2))
}

func TestCacheGetMiss(t *testing.T) {
	_, rdb := newTestRedis(t)
	cache := newCache(rdb, "")

	val, ok, err := cache.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, val)
	assert.Equal(t, "cache:missing", cache.key("missing"))
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	_, rdb := newTestRedis(t)
	limiter := newRateLimiter(rdb)
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()
	key := BuildRateLimitKey("agent-smith:ratelimit", "10.0.0.1", "/api/v1/ask")
	assert.Equal(t, "agent-smith:ratelimit:10.0.0.1:/api/v1/ask", key)

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, key, 3, time.Second)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, err := limiter.Allow(ctx, key, 3, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(2 * time.Second)
	ok, err = limiter.Allow(ctx, key, 3, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
