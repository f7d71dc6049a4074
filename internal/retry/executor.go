package retry

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/ohmyjons/simple-elt/pkg/elt"
)

// Executor orchestrates retry attempts with backoff and error classification.
//
// The Executor is safe for concurrent use when calling Execute().
// WithOnRetry() returns a NEW instance with the callback configured;
// the original Executor remains unchanged.
type Executor struct {
	classifier elt.ErrorClassifier
	strategy   elt.BackoffStrategy
	clock      clockwork.Clock
	onRetry    func(attempt int, err error, delay time.Duration)
}

// NewExecutor creates a new retry executor with the given configuration.
// A nil clock means the real wall clock.
// Panics if classifier or strategy is nil.
func NewExecutor(
	classifier elt.ErrorClassifier,
	strategy elt.BackoffStrategy,
	clock clockwork.Clock,
) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Executor{
		classifier: classifier,
		strategy:   strategy,
		clock:      clock,
	}
}

// WithOnRetry returns a new Executor with the specified retry callback.
// The callback runs before each backoff wait; attempt is zero-indexed.
func (e *Executor) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// Execute runs the operation with retry logic.
// Returns the result of the last attempt (success or fatal error), or the
// context error if the context ends while waiting.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	maxAttempts := e.strategy.MaxAttempts()

	lastErr := operation(ctx)
	if lastErr == nil {
		return nil
	}

	if !e.classifier.IsTransient(lastErr) {
		return lastErr
	}

	// Negative maxAttempts retries until success, a fatal error or cancellation.
	for attempt := 0; maxAttempts < 0 || attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		delay := e.strategy.NextDelay(attempt)

		if e.onRetry != nil {
			e.onRetry(attempt, lastErr, delay)
		}

		timer := e.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.Chan():
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}

		if !e.classifier.IsTransient(lastErr) {
			return lastErr
		}
	}

	return lastErr
}
