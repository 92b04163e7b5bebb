package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient failure")

func fastRetrier(opts ...Option) *Retrier {
	base := []Option{
		WithMaxAttempts(3),
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(2 * time.Millisecond),
		WithJitter(0),
	}
	return New(append(base, opts...)...)
}

func TestRetrier_SucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := fastRetrier().Do(context.Background(), func(_ context.Context) error {
		attempts++
		if attempts < 3 {
			return Retryable(errTransient)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetrier_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := fastRetrier().Do(context.Background(), func(_ context.Context) error {
		attempts++
		return Retryable(errTransient)
	})

	// The original error comes back unwrapped after the last attempt.
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, attempts)
}

func TestRetrier_NonRetryableFailsImmediately(t *testing.T) {
	attempts := 0
	err := fastRetrier().Do(context.Background(), func(_ context.Context) error {
		attempts++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, attempts)
}

func TestRetrier_PermanentStopsRetries(t *testing.T) {
	attempts := 0
	err := fastRetrier().Do(context.Background(), func(_ context.Context) error {
		attempts++
		return Permanent(errTransient)
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, attempts)
}

func TestRetrier_RetryIfOverridesDefault(t *testing.T) {
	attempts := 0
	r := fastRetrier(WithRetryIf(func(err error) bool {
		return errors.Is(err, errTransient)
	}))

	err := r.Do(context.Background(), func(_ context.Context) error {
		attempts++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, attempts)
}

func TestRetrier_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	r := New(
		WithMaxAttempts(10),
		WithInitialDelay(50*time.Millisecond),
		WithJitter(0),
	)
	err := r.Do(ctx, func(_ context.Context) error {
		attempts++
		cancel()
		return Retryable(errTransient)
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, attempts)
}

func TestRetrier_OnRetryCallback(t *testing.T) {
	var retries []int
	r := fastRetrier(WithOnRetry(func(attempt int, _ error, _ time.Duration) {
		retries = append(retries, attempt)
	}))

	_ = r.Do(context.Background(), func(_ context.Context) error {
		return Retryable(errTransient)
	})

	// Callback fires before each retry, not after the final failure.
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDoWithData(t *testing.T) {
	attempts := 0
	got, err := DoWithData(context.Background(), func(_ context.Context) (int, error) {
		attempts++
		if attempts < 2 {
			return 0, Retryable(errTransient)
		}
		return 42, nil
	}, WithInitialDelay(time.Millisecond), WithJitter(0))

	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestCalculateDelay_Backoff(t *testing.T) {
	r := New(
		WithInitialDelay(100*time.Millisecond),
		WithMaxDelay(300*time.Millisecond),
		WithMultiplier(2.0),
		WithJitter(0),
	)

	assert.Equal(t, 100*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 200*time.Millisecond, r.calculateDelay(2))
	// Capped at MaxDelay.
	assert.Equal(t, 300*time.Millisecond, r.calculateDelay(3))
	assert.Equal(t, 300*time.Millisecond, r.calculateDelay(10))
}

func TestErrorWrappers(t *testing.T) {
	assert.True(t, IsRetryable(Retryable(errTransient)))
	assert.False(t, IsRetryable(errTransient))
	assert.True(t, IsPermanent(Permanent(errTransient)))
	assert.False(t, IsPermanent(errTransient))

	assert.Nil(t, Retryable(nil))
	assert.Nil(t, Permanent(nil))

	assert.ErrorIs(t, Retryable(errTransient), errTransient)
	assert.ErrorIs(t, Permanent(errTransient), errTransient)
}
