package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims a sorted set to the current window and admits the
// request only while fewer than limit members remain.
//
// KEYS[1] key, ARGV[1] now (ms), ARGV[2] window (ms), ARGV[3] limit, ARGV[4] member
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)

if redis.call("ZCARD", key) >= limit then
	return 0
end

redis.call("ZADD", key, now, ARGV[4])
redis.call("PEXPIRE", key, window)
return 1
`)

// RedisLimiter shares a sliding window across every instance using Redis
type RedisLimiter struct {
	client *redis.Client
	window time.Duration
	prefix string
	now    clock
}

// NewRedisLimiter creates a Redis-backed limiter
func NewRedisLimiter(client *redis.Client, win time.Duration, prefix string) *RedisLimiter {
	if win <= 0 {
		win = time.Minute
	}
	if prefix == "" {
		prefix = "ratelimit"
	}

	return &RedisLimiter{
		client: client,
		window: win,
		prefix: prefix,
		now:    time.Now,
	}
}

// Check implements Limiter. Redis errors are returned as-is so the caller
// decides whether to fail open.
func (l *RedisLimiter) Check(ctx context.Context, limit int, key string) error {
	now := l.now().UnixMilli()
	member := strconv.FormatInt(l.now().UnixNano(), 10) + "-" + uuid.NewString()

	allowed, err := slidingWindow.Run(ctx, l.client,
		[]string{l.prefix + ":" + key},
		now, l.window.Milliseconds(), limit, member,
	).Int()
	if err != nil {
		return fmt.Errorf("rate limit script failed: %w", err)
	}

	if allowed == 0 {
		return ErrLimitExceeded
	}
	return nil
}

// Name implements Limiter
func (l *RedisLimiter) Name() string {
	return "redis"
}
