package ingest

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// JitterFunc returns a random duration in [0, limit). Tests inject a
// deterministic implementation.
type JitterFunc func(limit time.Duration) time.Duration

// RetryPolicy is a value object controlling per-page retry behavior.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      JitterFunc
}

// DefaultRetryPolicy returns the policy used when a source configures
// nothing: three attempts, 250ms base, capped at 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Jitter:      CryptoJitter,
	}
}

// Backoff returns the wait before retry number attempt (0-based):
// half of the capped exponential delay plus jitter over the other half.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	half := time.Duration(delay / 2)
	jitter := p.Jitter
	if jitter == nil {
		jitter = CryptoJitter
	}
	return half + jitter(half)
}

// Do runs fn, retrying transient failures up to MaxAttempts total
// attempts. Fatal errors and context cancellation return immediately.
// The returned retry count is the number of re-attempts performed.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) (int, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	retries := 0
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			retries++
			select {
			case <-ctx.Done():
				return retries, ctx.Err()
			case <-time.After(p.Backoff(attempt - 1)):
			}
		}
		err = fn()
		if err == nil {
			return retries, nil
		}
		if !IsTransient(err) {
			return retries, err
		}
		if ctx.Err() != nil {
			return retries, ctx.Err()
		}
	}
	return retries, err
}

// CryptoJitter draws a uniform duration in [0, limit) from crypto/rand.
func CryptoJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

// ZeroJitter returns 0 regardless of limit. Used in tests to make
// backoff sequences deterministic.
func ZeroJitter(time.Duration) time.Duration { return 0 }
