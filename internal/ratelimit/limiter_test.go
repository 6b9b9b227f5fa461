package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careers-gateway/internal/config"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRedisLimiter(t *testing.T) (*RedisLimiter, *fakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	clk := newFakeClock()
	l := NewRedisLimiter(client, time.Minute, "test")
	l.now = clk.Now
	return l, clk
}

func TestKey(t *testing.T) {
	assert.Equal(t, "apply:1.2.3.4", Key("apply", "1.2.3.4"))
	assert.Equal(t, "inquiry:unknown", Key("inquiry", ""))
}

func TestMemoryLimiter_AllowsExactlyLimit(t *testing.T) {
	l := NewMemoryLimiter(10, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Check(ctx, 5, "apply:1.1.1.1"), "request %d", i+1)
	}
	assert.ErrorIs(t, l.Check(ctx, 5, "apply:1.1.1.1"), ErrLimitExceeded)
	assert.ErrorIs(t, l.Check(ctx, 5, "apply:1.1.1.1"), ErrLimitExceeded)

	// other keys are independent
	assert.NoError(t, l.Check(ctx, 5, "apply:2.2.2.2"))
	assert.NoError(t, l.Check(ctx, 5, "inquiry:1.1.1.1"))
}

func TestMemoryLimiter_WindowResets(t *testing.T) {
	clk := newFakeClock()
	l := NewMemoryLimiter(10, time.Minute)
	l.now = clk.Now
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, l.Check(ctx, 2, "k"))
	}
	require.ErrorIs(t, l.Check(ctx, 2, "k"), ErrLimitExceeded)

	clk.Advance(30 * time.Second)
	require.ErrorIs(t, l.Check(ctx, 2, "k"), ErrLimitExceeded, "window is fixed from the first request")

	clk.Advance(31 * time.Second)
	assert.NoError(t, l.Check(ctx, 2, "k"))
}

func TestMemoryLimiter_EvictsLeastRecentlyUsed(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	ctx := context.Background()

	require.NoError(t, l.Check(ctx, 1, "a"))
	require.NoError(t, l.Check(ctx, 1, "b"))
	require.NoError(t, l.Check(ctx, 1, "c"))
	assert.Equal(t, 2, l.Len())

	// "a" was evicted so it starts a fresh window
	assert.NoError(t, l.Check(ctx, 1, "a"))
}

func TestMemoryLimiter_Concurrent(t *testing.T) {
	l := NewMemoryLimiter(10, time.Minute)
	ctx := context.Background()

	var allowed int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check(ctx, 5, "apply:9.9.9.9") == nil {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 5, allowed)
}

func TestMemoryLimiter_CancelledContext(t *testing.T) {
	l := NewMemoryLimiter(10, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, l.Check(ctx, 5, "k"), context.Canceled)
}

func TestRedisLimiter_AllowsExactlyLimit(t *testing.T) {
	l, _ := newTestRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Check(ctx, 5, "apply:1.1.1.1"), "request %d", i+1)
	}
	assert.ErrorIs(t, l.Check(ctx, 5, "apply:1.1.1.1"), ErrLimitExceeded)
	assert.NoError(t, l.Check(ctx, 5, "apply:3.3.3.3"))
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	l, clk := newTestRedisLimiter(t)
	ctx := context.Background()

	require.NoError(t, l.Check(ctx, 2, "k"))
	clk.Advance(40 * time.Second)
	require.NoError(t, l.Check(ctx, 2, "k"))
	require.ErrorIs(t, l.Check(ctx, 2, "k"), ErrLimitExceeded)

	// the first request slides out of the window, the second does not
	clk.Advance(21 * time.Second)
	require.NoError(t, l.Check(ctx, 2, "k"))
	assert.ErrorIs(t, l.Check(ctx, 2, "k"), ErrLimitExceeded)
}

func TestRedisLimiter_SameInstantRequestsCountSeparately(t *testing.T) {
	l, _ := newTestRedisLimiter(t)
	ctx := context.Background()

	// the fake clock never moves, so members must still be unique
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Check(ctx, 3, "k"))
	}
	assert.ErrorIs(t, l.Check(ctx, 3, "k"), ErrLimitExceeded)
}

func TestRedisLimiter_BackendDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	l := NewRedisLimiter(client, time.Minute, "")
	mr.Close()

	err := l.Check(context.Background(), 5, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLimitExceeded)
}

func TestNew_SelectsBackend(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "memory", New(cfg, nil).Name())

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	assert.Equal(t, "redis", New(cfg, client).Name())
}
