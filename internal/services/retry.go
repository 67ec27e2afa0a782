package services

import (
	"context"
	"time"
)

// RetryPolicy bounds automatic retries for transient failures.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy matches the pipeline's stage retry behaviour: three
// attempts with doubling backoff starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:     3,
		InitialDelay: time.Second,
		MaxDelay:     8 * time.Second,
		Multiplier:   2,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = time.Second
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	return p
}

// Retry runs op up to policy.Attempts times, sleeping with exponential
// backoff between attempts. Only errors for which retryable returns true are
// retried; the last error is returned once attempts are exhausted. The sleep
// is context-aware, so cancellation interrupts the backoff immediately.
func Retry(ctx context.Context, policy RetryPolicy, retryable func(error) bool, op func(context.Context) error) error {
	policy = policy.normalized()
	if retryable == nil {
		retryable = IsRetryable
	}

	delay := policy.InitialDelay
	var lastErr error
	for attempt := 0; attempt < policy.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == policy.Attempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		next := time.Duration(float64(delay) * policy.Multiplier)
		if next > policy.MaxDelay {
			next = policy.MaxDelay
		}
		delay = next
	}
	return lastErr
}
