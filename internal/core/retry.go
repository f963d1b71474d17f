package core

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds a fixed-delay retry loop.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// Retry runs op up to policy.MaxAttempts times, sleeping policy.Interval
// between attempts. It returns the first successful result, or the last
// error once attempts are exhausted. The inter-attempt wait honors
// context cancellation, so a shutdown can interrupt a pending retry.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	if policy.MaxAttempts < 1 {
		return zero, fmt.Errorf("retry policy requires at least one attempt, got %d", policy.MaxAttempts)
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == policy.MaxAttempts {
			break
		}
		if err := sleepContext(ctx, policy.Interval); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// sleepContext blocks for d or until ctx is cancelled, whichever comes
// first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
