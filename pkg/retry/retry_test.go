package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidashi/courier-ledger/pkg/logger"
)

func testRetryConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts:     maxAttempts,
		BackoffStrategy: &ConstantBackoff{Interval: time.Millisecond},
		Logger:          logger.NewNopLogger(),
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		return nil
	}, testRetryConfig(3))

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryEventuallySucceeds(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++

		if calls < 3 {
			return errors.New("transient")
		}

		return nil
	}, testRetryConfig(5))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("still broken")
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		return sentinel
	}, testRetryConfig(3))

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, errors.Is(err, sentinel))
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	retryable := errors.New("retryable")
	fatal := errors.New("fatal")
	calls := 0

	cfg := testRetryConfig(5)
	cfg.RetryableErrors = []error{retryable}

	err := Retry(context.Background(), func() error {
		calls++
		return fatal
	}, cfg)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, fatal))
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0

	err := Retry(ctx, func() error {
		calls++
		return errors.New("never reached")
	}, testRetryConfig(3))

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, calls)
}

func TestExponentialBackoffGrowsAndCaps(t *testing.T) {
	b := &ExponentialBackoff{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     300 * time.Millisecond,
		Multiplier:      2,
	}

	assert.Equal(t, 100*time.Millisecond, b.NextBackoff(1))
	assert.Equal(t, 200*time.Millisecond, b.NextBackoff(2))
	assert.Equal(t, 300*time.Millisecond, b.NextBackoff(3))
	assert.Equal(t, 300*time.Millisecond, b.NextBackoff(10))
}

func TestExponentialBackoffJitterStaysBounded(t *testing.T) {
	b := NewDefaultExponentialBackoff()

	for attempt := 1; attempt <= 10; attempt++ {
		d := b.NextBackoff(attempt)
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, 60*time.Second)
	}
}
