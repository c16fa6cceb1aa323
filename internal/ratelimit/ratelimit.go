// Package ratelimit throttles credential endpoints per client.
package ratelimit

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/abduss/gotodo/internal/apierr"
	"github.com/abduss/gotodo/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "gotodo:ratelimit"

// ErrTooManyRequests is written when a client exceeds its budget.
var ErrTooManyRequests = apierr.TooManyRequests("Too many requests, please try again later")

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether the request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// New picks the Redis-backed limiter when a client is available and the
// in-process one otherwise. It returns nil when rate limiting is disabled.
func New(cfg config.RateLimitConfig, rdb *redis.Client) Limiter {
	if !cfg.Enabled || cfg.Burst <= 0 || cfg.PerMinute <= 0 {
		return nil
	}
	if rdb != nil {
		return NewRedisLimiter(rdb, cfg.Burst, cfg.PerMinute)
	}
	return NewLocalLimiter(cfg.Burst, cfg.PerMinute)
}

// Middleware enforces limiter per client IP within scope. Limiter errors let the
// request through; a nil limiter disables the check.
func Middleware(limiter Limiter, scope string, log *zap.Logger) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := keyPrefix + ":" + scope + ":" + clientKey(c)

		decision, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			secs := int(math.Ceil(decision.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			log.Info("rate limit exceeded", zap.String("key", key), zap.Int("retry_after", secs))
			apierr.Respond(c, log, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

func clientKey(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func refillInterval(perMinute int) time.Duration {
	return time.Minute / time.Duration(perMinute)
}
