package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		return errors.New("still broken")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
}

func TestDoWithLogReportsEachAttempt(t *testing.T) {
	logged := 0
	err := DoWithLog(context.Background(), fastConfig(3), "postgres", func() error {
		return errors.New("down")
	}, func(attempt int, err error, nextDelay time.Duration) {
		logged++
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres:")
	// The final attempt fails without a backoff log.
	assert.Equal(t, 2, logged)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastConfig(5), func() error {
		return errors.New("never reached on cancelled context")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
