// Package ratelimit paces outbound calls to the filing authority with a token
// bucket per filer subject.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter implements token bucket rate limiting per key. All keys share the
// same rate; each key has its own bucket.
type Limiter struct {
	mu      sync.Mutex
	rate    float64 // tokens per second
	burst   float64
	now     func() time.Time
	buckets map[string]*bucket
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

// New creates a limiter admitting perSecond calls per key with the given
// burst. A perSecond of 0 means unlimited. A burst below 1 defaults to
// perSecond rounded up.
func New(perSecond float64, burst int) *Limiter {
	b := float64(burst)
	if b < 1 {
		b = perSecond
		if b < 1 {
			b = 1
		}
	}
	return &Limiter{
		rate:    perSecond,
		burst:   b,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Unlimited reports whether the limiter admits every call.
func (l *Limiter) Unlimited() bool { return l == nil || l.rate <= 0 }

// Allow takes a token for key if one is available.
func (l *Limiter) Allow(key string) bool {
	_, ok := l.reserve(key)
	return ok
}

// Wait blocks until a token for key is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	for {
		wait, ok := l.reserve(key)
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Reset clears the bucket of key.
func (l *Limiter) Reset(key string) {
	if l.Unlimited() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// reserve takes a token, or reports how long until the next one refills.
func (l *Limiter) reserve(key string) (time.Duration, bool) {
	if l.Unlimited() {
		return 0, true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, lastFill: now}
		l.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastFill).Seconds() * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.lastFill = now

	if b.tokens >= 1 {
		b.tokens--
		return 0, true
	}
	deficit := 1 - b.tokens
	return time.Duration(deficit / l.rate * float64(time.Second)), false
}
