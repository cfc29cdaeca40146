package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RetryPolicy bounds retries of rate-limited calls.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy retries three times with a 2s linear backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: 2 * time.Second}
}

// Retry runs fn, retrying while it signals ErrRateLimited. The n-th retry
// waits n × BaseDelay. A cancelled wait returns ErrCancelled without using
// up a retry.
func Retry[T any](ctx context.Context, policy RetryPolicy, logger *slog.Logger, fn func() (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn()
		if !errors.Is(err, ErrRateLimited) {
			return v, err
		}
		if attempt >= policy.MaxRetries {
			return zero, fmt.Errorf("%w after %d attempts", ErrRateLimitExceeded, attempt+1)
		}

		wait := time.Duration(attempt+1) * policy.BaseDelay
		if logger != nil {
			logger.WarnContext(ctx, "catalog rate limited, backing off",
				slog.Int("attempt", attempt+1),
				slog.Duration("wait", wait),
			)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return Checkpoint(ctx)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return cancelled(ctx.Err())
	case <-timer.C:
		return nil
	}
}
