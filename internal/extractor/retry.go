package extractor

import (
	"context"
	"time"
)

// RetryPolicy describes a bounded retry loop with a fixed delay sequence.
// Both extractors share this; the HTML fetcher is the primary user.
type RetryPolicy struct {
	// MaxRetries is the number of retries beyond the first attempt.
	MaxRetries int
	// Delays holds the wait before each retry. Delays[i] precedes retry i+1.
	Delays []time.Duration
}

// DefaultRetryPolicy matches the extraction contract: one initial attempt
// plus three retries with 1s/2s/3s waits.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		Delays:     []time.Duration{time.Second, 2 * time.Second, 3 * time.Second},
	}
}

// Retry runs fn up to MaxRetries+1 times, sleeping per the delay sequence
// between attempts while isRetryable keeps approving the error. The last
// error propagates unchanged.
func Retry(ctx context.Context, policy RetryPolicy, isRetryable func(error) bool, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == policy.MaxRetries {
			break
		}
		if isRetryable != nil && !isRetryable(lastErr) {
			break
		}

		var delay time.Duration
		if attempt < len(policy.Delays) {
			delay = policy.Delays[attempt]
		}
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return lastErr
}
