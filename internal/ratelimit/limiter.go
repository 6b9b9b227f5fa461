package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"careers-gateway/internal/config"
	"careers-gateway/internal/logging"
)

// ErrLimitExceeded is returned by Check once a key has used up its window
var ErrLimitExceeded = errors.New("rate limit exceeded")

// Limiter enforces a fixed number of requests per key per window
type Limiter interface {
	// Check records one request for key and returns ErrLimitExceeded when
	// the key already made limit requests in the current window. Rejected
	// checks are not counted.
	Check(ctx context.Context, limit int, key string) error
	// Name identifies the backing store in logs and health checks
	Name() string
}

// Key builds the limiter key for a route and client address
func Key(route, ip string) string {
	if ip == "" {
		ip = "unknown"
	}
	return fmt.Sprintf("%s:%s", route, ip)
}

// New returns a Redis-backed limiter when Redis is configured, otherwise an
// in-process one. The Redis client may be nil.
func New(cfg *config.Config, client *redis.Client) Limiter {
	logger := logging.GetGlobalLogger().WithField("component", "rate_limiter")

	if client != nil {
		logger.Info("Using redis rate limiter", map[string]interface{}{
			"window":     cfg.RateLimit.Window.String(),
			"key_prefix": cfg.RateLimit.KeyPrefix,
		})
		return NewRedisLimiter(client, cfg.RateLimit.Window, cfg.RateLimit.KeyPrefix)
	}

	if cfg.IsProduction() {
		logger.Warn("Redis not configured, rate limits are per instance", map[string]interface{}{
			"max_keys": cfg.RateLimit.MaxKeys,
		})
	}
	return NewMemoryLimiter(cfg.RateLimit.MaxKeys, cfg.RateLimit.Window)
}

// clock is swapped in tests
type clock func() time.Time
