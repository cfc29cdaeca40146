package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}
}

func limitedThen(limits int, result string) (func() (string, error), *int) {
	calls := 0
	return func() (string, error) {
		calls++
		if calls <= limits {
			return "", ErrRateLimited
		}
		return result, nil
	}, &calls
}

func TestRetry_SucceedsAfterThreeLimits(t *testing.T) {
	fn, calls := limitedThen(3, "ok")

	v, err := Retry(context.Background(), fastPolicy(), nil, fn)
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, 4, *calls)
}

func TestRetry_FourLimitsExceeds(t *testing.T) {
	fn, calls := limitedThen(4, "ok")

	_, err := Retry(context.Background(), fastPolicy(), nil, fn)
	require.ErrorIs(t, err, ErrRateLimitExceeded)
	require.Equal(t, 4, *calls)
}

func TestRetry_OtherErrorsAreNotRetried(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	_, err := Retry(context.Background(), fastPolicy(), nil, func() (int, error) {
		calls++
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestRetry_CancelDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	policy := RetryPolicy{MaxRetries: 3, BaseDelay: time.Hour}

	done := make(chan error, 1)
	go func() {
		_, err := Retry(ctx, policy, nil, func() (int, error) {
			calls++
			return 0, ErrRateLimited
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrCancelled)
		require.NotErrorIs(t, err, ErrRateLimitExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
	require.Equal(t, 1, calls)
}
