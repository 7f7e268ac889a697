package ingest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minsukl/toondex-ingest/internal/ingest"
)

func testPolicy(maxAttempts int) ingest.RetryPolicy {
	return ingest.RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    4 * time.Millisecond,
		Jitter:      ingest.ZeroJitter,
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	t.Parallel()

	p := ingest.RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    400 * time.Millisecond,
		Jitter:      ingest.ZeroJitter,
	}

	// With zero jitter the wait is half the capped exponential delay.
	assert.Equal(t, 50*time.Millisecond, p.Backoff(0))
	assert.Equal(t, 100*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(3), "capped at half of MaxDelay")
}

func TestBackoffJitterAddsOnTopOfHalf(t *testing.T) {
	t.Parallel()

	p := ingest.RetryPolicy{
		BaseDelay: 100 * time.Millisecond,
		Jitter:    func(limit time.Duration) time.Duration { return limit },
	}
	assert.Equal(t, 100*time.Millisecond, p.Backoff(0))
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	retries, err := testPolicy(3).Do(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, retries)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	retries, err := testPolicy(3).Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return ingest.Transient(errors.New("connection reset"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, retries)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	retries, err := testPolicy(3).Do(context.Background(), func() error {
		calls++
		return ingest.Transient(errors.New("still down"))
	})
	require.Error(t, err)
	assert.True(t, ingest.IsTransient(err))
	assert.Equal(t, 2, retries)
	assert.Equal(t, 3, calls)
}

func TestDoDoesNotRetryFatal(t *testing.T) {
	t.Parallel()

	calls := 0
	retries, err := testPolicy(3).Do(context.Background(), func() error {
		calls++
		return ingest.Fatal(errors.New("invalid api key"))
	})
	require.Error(t, err)
	assert.True(t, ingest.IsFatal(err))
	assert.Zero(t, retries)
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := testPolicy(5).Do(ctx, func() error {
		calls++
		cancel()
		return ingest.Transient(errors.New("timeout"))
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoZeroAttemptsStillRunsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	retries, err := ingest.RetryPolicy{Jitter: ingest.ZeroJitter}.Do(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, retries)
	assert.Equal(t, 1, calls)
}

func TestDefaultRetryPolicy(t *testing.T) {
	t.Parallel()

	p := ingest.DefaultRetryPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, p.BaseDelay)
	assert.Equal(t, 5*time.Second, p.MaxDelay)
	assert.NotNil(t, p.Jitter)
}
