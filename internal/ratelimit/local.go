package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const staleAfter = 10 * time.Minute

type localBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter is an in-process token bucket per key.
type LocalLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*localBucket
	burst     int
	every     rate.Limit
	lastSweep time.Time
	nowFunc   func() time.Time
}

// NewLocalLimiter allows burst requests at once and refills perMinute tokens each minute.
func NewLocalLimiter(burst, perMinute int) *LocalLimiter {
	return &LocalLimiter{
		buckets: make(map[string]*localBucket),
		burst:   burst,
		every:   rate.Every(refillInterval(perMinute)),
		nowFunc: time.Now,
	}
}

// Allow consumes one token for key if available.
func (l *LocalLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{lim: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	decision := Decision{Limit: l.burst}
	r := b.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		decision.RetryAfter = delay
	} else {
		decision.Allowed = true
	}
	if remaining := int(b.lim.TokensAt(now)); remaining > 0 {
		decision.Remaining = remaining
	}
	return decision, nil
}

func (l *LocalLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < time.Minute {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > staleAfter {
			delete(l.buckets, key)
		}
	}
}
