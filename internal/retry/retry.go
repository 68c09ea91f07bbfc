// Package retry provides the one retry policy shared by every stage
// that talks to the network: bounded attempts, exponential backoff with
// jitter, and escalation to a terminal error when attempts run out.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Retryable lets errors opt out of (or into) retries.
type Retryable interface {
	IsRetryable() bool
}

// Policy describes backoff behavior. The zero value is not usable;
// construct with Default or from config.
type Policy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay before the second attempt
	MaxDelay    time.Duration // backoff ceiling
}

// Default returns the policy used when config provides nothing.
func Default() Policy {
	return Policy{MaxAttempts: 4, BaseDelay: time.Second, MaxDelay: time.Minute}
}

// Do runs fn until it succeeds, a non-retryable error occurs, the
// context ends, or attempts are exhausted.
func (p Policy) Do(ctx context.Context, logger *slog.Logger, op string, fn func() error) error {
	if logger == nil {
		logger = slog.Default()
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	backoff := p.BaseDelay
	if backoff <= 0 {
		// The jitter draw needs a positive interval.
		backoff = time.Millisecond
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			logger.Debug("retrying",
				"op", op,
				"attempt", attempt,
				"backoff", jitter,
				"error", lastErr,
			)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
			if p.MaxDelay > 0 && backoff > p.MaxDelay {
				backoff = p.MaxDelay
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return err
		}
	}

	return fmt.Errorf("%s: max retries exceeded: %w", op, lastErr)
}

// shouldRetry treats errors as transient unless they say otherwise.
// Context cancellation is never retried.
func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var r Retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return true
}
