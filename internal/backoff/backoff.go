// package backoff implements deterministic exponential retry for asynchronous operations.
//
// A Policy is validated once at construction and never silently corrected.
// Execute retries a failing operation with a doubling, clamped delay and
// propagates the final error unmodified, so callers can still branch on its
// identity with errors.Is and errors.As.
package backoff

import (
	"context"
	"fmt"
	"time"
)

// ErrInvalidPolicy reports retry parameters that fail validation.
var ErrInvalidPolicy = fmt.Errorf("invalid retry policy")

// Operation is a cancellable unit of work producing a value or an error.
type Operation[T any] func(ctx context.Context) (T, error)

// Policy describes a retry schedule. Construct with NewPolicy; a zero Policy
// is invalid.
type Policy struct {
	MaxRetries   int           // retries after the first attempt, zero disables retrying
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // clamp applied to the doubling delay
}

// NewPolicy validates the parameters and returns an immutable Policy.
func NewPolicy(maxRetries int, initialDelay, maxDelay time.Duration) (Policy, error) {
	p := Policy{
		MaxRetries:   maxRetries,
		InitialDelay: initialDelay,
		MaxDelay:     maxDelay,
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate checks the policy invariants.
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must be >= 0, got %d", ErrInvalidPolicy, p.MaxRetries)
	}
	if p.InitialDelay <= 0 {
		return fmt.Errorf("%w: initial delay must be > 0, got %s", ErrInvalidPolicy, p.InitialDelay)
	}
	if p.MaxDelay < p.InitialDelay {
		return fmt.Errorf("%w: max delay %s is below initial delay %s", ErrInvalidPolicy, p.MaxDelay, p.InitialDelay)
	}
	return nil
}

// Delay returns the wait before retry number attempt (zero-based): the
// initial delay doubled per attempt, clamped to the maximum.
func (p Policy) Delay(attempt int) time.Duration {
	delay := p.InitialDelay
	for ; attempt > 0; attempt-- {
		delay *= 2
		if delay <= 0 || delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Execute runs op, retrying per the policy. Every failure is retried
// identically; the policy never inspects the error. When attempts are
// exhausted the most recent error is returned as-is, without wrapping.
//
// A context cancelled during a delay aborts the wait and returns ctx.Err()
// without consuming an attempt.
func Execute[T any](ctx context.Context, p Policy, op Operation[T]) (T, error) {
	var zero T
	if err := p.Validate(); err != nil {
		return zero, err
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt >= p.MaxRetries {
			return zero, lastErr
		}

		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return zero, ctx.Err()
		}
	}
}

// Retry decorates op so each invocation runs under the policy's schedule.
// The decorated operation composes directly with scheduler submission.
func Retry[T any](p Policy, op Operation[T]) Operation[T] {
	return func(ctx context.Context) (T, error) {
		return Execute(ctx, p, op)
	}
}
