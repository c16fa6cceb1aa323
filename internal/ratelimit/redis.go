package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills and consumes atomically.
// Returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
  tokens = math.min(capacity, tokens + intervals)
  last_refill = last_refill + (intervals * interval_ms)
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// RedisLimiter shares token buckets across API replicas.
type RedisLimiter struct {
	rdb      redis.Scripter
	capacity int
	interval time.Duration
	ttl      time.Duration
	nowFunc  func() time.Time
}

// NewRedisLimiter builds a limiter over rdb with the same semantics as LocalLimiter.
func NewRedisLimiter(rdb redis.Scripter, burst, perMinute int) *RedisLimiter {
	interval := refillInterval(perMinute)
	ttl := interval * time.Duration(burst)
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return &RedisLimiter{
		rdb:      rdb,
		capacity: burst,
		interval: interval,
		ttl:      ttl,
		nowFunc:  time.Now,
	}
}

// Allow consumes one token for key if available.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	intervalMs := l.interval.Milliseconds()
	if intervalMs < 1 {
		intervalMs = 1
	}
	args := []any{
		l.nowFunc().UnixMilli(),
		l.capacity,
		intervalMs,
		int64(l.ttl / time.Second),
	}

	vals, err := tokenBucketScript.Run(ctx, l.rdb, []string{key}, args...).Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("run rate limit script: %w", err)
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit script result: %v", vals)
	}

	return Decision{
		Allowed:    asInt64(vals[0]) == 1,
		Limit:      l.capacity,
		Remaining:  int(asInt64(vals[1])),
		RetryAfter: time.Duration(asInt64(vals[2])) * time.Millisecond,
	}, nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
