package tiktok

import (
	"context"
	"sync"
	"time"
)

// Limiter is a blocking token bucket for calls toward the upstream API.
// Unlike the inbound rate-limit middleware it never rejects: when the bucket
// is empty, Wait sleeps until a token refills or the context is cancelled.
type Limiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
}

func NewLimiter(maxCalls int, window time.Duration) *Limiter {
	if maxCalls <= 0 {
		maxCalls = 1
	}
	return &Limiter{
		tokens:     maxCalls,
		maxTokens:  maxCalls,
		refillRate: window / time.Duration(maxCalls),
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if l.take() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.refillRate):
		}
	}
}

func (l *Limiter) take() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	refilled := int(now.Sub(l.lastRefill) / l.refillRate)
	if refilled > 0 {
		l.tokens += refilled
		if l.tokens > l.maxTokens {
			l.tokens = l.maxTokens
		}
		// Advance by whole tokens only, keeping the fractional remainder
		// so the effective rate matches the configured one.
		l.lastRefill = l.lastRefill.Add(time.Duration(refilled) * l.refillRate)
	}

	if l.tokens > 0 {
		l.tokens--
		return true
	}
	return false
}
