package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0

	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return errors.New(errors.ErrCodeDataFetchFailed, "transient")
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryReturnsLastError(t *testing.T) {
	attempts := 0

	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		attempts++

		return errors.Newf(errors.ErrCodeDataFetchFailed, "attempt %d", attempts)
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "attempt 3")
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0

	err := Retry(ctx, 5, time.Millisecond, func() error {
		attempts++
		cancel()

		return errors.New(errors.ErrCodeDataFetchFailed, "transient")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRateLimiterFirstTokenImmediate(t *testing.T) {
	limiter := NewRateLimiter(60)

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRateLimiterHonorsCancellation(t *testing.T) {
	limiter := NewRateLimiter(1)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
