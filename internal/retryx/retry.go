// Package retryx implements the shared retry loop used by remote reads and
// publish/save write paths. The policy is parameterized by a maximum attempt
// count and a delay strategy so call sites do not re-implement the loop.
package retryx

import (
	"context"
	"time"
)

// DelayStrategy returns the pause before the given retry attempt.
// Attempt numbering starts at 1 for the first retry (i.e. after the first
// failure).
type DelayStrategy func(attempt int) time.Duration

// Fixed returns the same delay for every attempt.
func Fixed(d time.Duration) DelayStrategy {
	return func(int) time.Duration { return d }
}

// Exponential doubles the base delay on every attempt: base, 2*base, 4*base...
func Exponential(base time.Duration) DelayStrategy {
	return func(attempt int) time.Duration {
		return base << (attempt - 1)
	}
}

// Do runs fn up to maxAttempts times, sleeping per the delay strategy between
// attempts. It returns nil on the first success, the last error when all
// attempts fail, and ctx.Err() if the context is cancelled while waiting.
func Do(ctx context.Context, maxAttempts int, delay DelayStrategy, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-time.After(delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
