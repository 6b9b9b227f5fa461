package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// window tracks the requests made by one key
type window struct {
	count int
	start time.Time
}

// MemoryLimiter counts requests per key in a bounded LRU. Entries expire a
// window after they were created; the least recently used key is evicted
// once maxKeys is reached.
type MemoryLimiter struct {
	entries *expirable.LRU[string, *window]
	window  time.Duration
	now     clock
	mu      sync.Mutex
}

// NewMemoryLimiter creates an in-process limiter
func NewMemoryLimiter(maxKeys int, win time.Duration) *MemoryLimiter {
	if maxKeys <= 0 {
		maxKeys = 500
	}
	if win <= 0 {
		win = time.Minute
	}

	return &MemoryLimiter{
		entries: expirable.NewLRU[string, *window](maxKeys, nil, win),
		window:  win,
		now:     time.Now,
	}
}

// Check implements Limiter
func (l *MemoryLimiter) Check(ctx context.Context, limit int, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	w, ok := l.entries.Get(key)
	if !ok || now.Sub(w.start) >= l.window {
		// First request of a new window; Add resets the entry TTL
		l.entries.Add(key, &window{count: 1, start: now})
		return nil
	}

	if w.count >= limit {
		return ErrLimitExceeded
	}

	// Mutate in place so the entry keeps its original expiry
	w.count++
	return nil
}

// Len returns the number of tracked keys
func (l *MemoryLimiter) Len() int {
	return l.entries.Len()
}

// Name implements Limiter
func (l *MemoryLimiter) Name() string {
	return "memory"
}
