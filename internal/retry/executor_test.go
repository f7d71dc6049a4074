package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"
)

// mockOperation tracks invocation count and simulates transient failures
type mockOperation struct {
	invocations  int
	failUntil    int // Fail for invocations < failUntil
	transientErr error
	fatalErr     error
}

func (m *mockOperation) execute(ctx context.Context) error {
	m.invocations++

	if m.invocations < m.failUntil {
		if m.transientErr != nil {
			return m.transientErr
		}
		return &pgconn.PgError{Code: "08006", Message: "connection failure"}
	}

	if m.invocations == m.failUntil && m.fatalErr != nil {
		return m.fatalErr
	}

	return nil
}

func fastBackoff(maxAttempts int) *ExponentialBackoff {
	return NewExponentialBackoff(maxAttempts,
		WithInitialDelay(1*time.Millisecond),
		WithMaxDelay(5*time.Millisecond),
		WithJitter(0),
	)
}

func TestExecutor_Execute_SuccessOnFirstAttempt(t *testing.T) {
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastBackoff(3), nil)
	op := &mockOperation{failUntil: 1}

	if err := executor.Execute(context.Background(), op.execute); err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if op.invocations != 1 {
		t.Errorf("Expected 1 invocation, got %d", op.invocations)
	}
}

func TestExecutor_Execute_SuccessAfterRetries(t *testing.T) {
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastBackoff(5), nil)
	op := &mockOperation{failUntil: 3}

	if err := executor.Execute(context.Background(), op.execute); err != nil {
		t.Errorf("Expected success after retries, got error: %v", err)
	}
	if op.invocations != 3 {
		t.Errorf("Expected 3 invocations, got %d", op.invocations)
	}
}

func TestExecutor_Execute_FatalErrorNoRetry(t *testing.T) {
	fatal := &pgconn.PgError{Code: "42601", Message: "syntax error"}
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastBackoff(5), nil)
	op := &mockOperation{failUntil: 1, fatalErr: fatal}

	err := executor.Execute(context.Background(), op.execute)
	if !errors.Is(err, fatal) {
		t.Errorf("Expected fatal error, got %v", err)
	}
	if op.invocations != 1 {
		t.Errorf("Expected 1 invocation for fatal error, got %d", op.invocations)
	}
}

func TestExecutor_Execute_ExhaustedRetries(t *testing.T) {
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastBackoff(2), nil)
	op := &mockOperation{failUntil: 100}

	err := executor.Execute(context.Background(), op.execute)
	if err == nil {
		t.Fatal("Expected error after exhausted retries")
	}
	// One initial attempt plus two retries.
	if op.invocations != 3 {
		t.Errorf("Expected 3 invocations, got %d", op.invocations)
	}
}

func TestExecutor_Execute_ContextCancellationDuringWait(t *testing.T) {
	clock := clockwork.NewFakeClock()
	executor := NewExecutor(AlwaysRetry{}, NewConstantBackoff(1, time.Minute), clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	calls := 0
	go func() {
		done <- executor.Execute(ctx, func(context.Context) error {
			calls++
			return errors.New("boom")
		})
	}()

	if err := clock.BlockUntilContext(context.Background(), 1); err != nil {
		t.Fatalf("waiting for timer: %v", err)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Execute did not return after cancellation")
	}
	if calls != 1 {
		t.Errorf("Expected 1 invocation before cancellation, got %d", calls)
	}
}

func TestExecutor_Execute_ConstantBackoffWaitsOnClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	executor := NewExecutor(AlwaysRetry{}, NewConstantBackoff(1, time.Minute), clock)

	done := make(chan error, 1)
	calls := 0
	go func() {
		done <- executor.Execute(context.Background(), func(context.Context) error {
			calls++
			if calls == 1 {
				return errors.New("first attempt fails")
			}
			return nil
		})
	}()

	if err := clock.BlockUntilContext(context.Background(), 1); err != nil {
		t.Fatalf("waiting for timer: %v", err)
	}
	select {
	case <-done:
		t.Fatal("Execute returned before the retry delay elapsed")
	default:
	}

	clock.Advance(time.Minute)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected success on retry, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Execute did not resume after the delay")
	}
	if calls != 2 {
		t.Errorf("Expected 2 invocations, got %d", calls)
	}
}

func TestExecutor_Execute_TransientThenFatal(t *testing.T) {
	fatal := &pgconn.PgError{Code: "42P01", Message: "undefined table"}
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastBackoff(5), nil)
	op := &mockOperation{failUntil: 3, fatalErr: fatal}

	err := executor.Execute(context.Background(), op.execute)
	if !errors.Is(err, fatal) {
		t.Errorf("Expected fatal error, got %v", err)
	}
	if op.invocations != 3 {
		t.Errorf("Expected 3 invocations, got %d", op.invocations)
	}
}

func TestExecutor_Execute_OnRetryCallback(t *testing.T) {
	var attempts []int
	var delays []time.Duration

	base := NewExecutor(NewPostgreSQLErrorClassifier(), fastBackoff(5), nil)
	executor := base.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
		delays = append(delays, delay)
	})
	if base.onRetry != nil {
		t.Error("WithOnRetry must not modify the original executor")
	}

	op := &mockOperation{failUntil: 4}
	if err := executor.Execute(context.Background(), op.execute); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	if len(attempts) != 3 {
		t.Fatalf("Expected 3 callbacks, got %d", len(attempts))
	}
	for i, a := range attempts {
		if a != i {
			t.Errorf("callback %d: attempt = %d, want %d", i, a, i)
		}
	}
	wantDelays := []time.Duration{1 * time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}
	for i, d := range delays {
		if d != wantDelays[i] {
			t.Errorf("callback %d: delay = %v, want %v", i, d, wantDelays[i])
		}
	}
}

func TestExecutor_Execute_NoRetriesStrategy(t *testing.T) {
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastBackoff(0), nil)
	op := &mockOperation{failUntil: 100}

	if err := executor.Execute(context.Background(), op.execute); err == nil {
		t.Error("Expected error with zero retries")
	}
	if op.invocations != 1 {
		t.Errorf("Expected 1 invocation, got %d", op.invocations)
	}
}

func TestExecutor_Execute_AlwaysRetryRetriesFatalErrors(t *testing.T) {
	fatal := &pgconn.PgError{Code: "42601", Message: "syntax error"}
	executor := NewExecutor(AlwaysRetry{}, fastBackoff(1), nil)
	op := &mockOperation{failUntil: 100, transientErr: fatal}

	err := executor.Execute(context.Background(), op.execute)
	if !errors.Is(err, fatal) {
		t.Errorf("Expected last error to be returned, got %v", err)
	}
	if op.invocations != 2 {
		t.Errorf("Expected 2 invocations, got %d", op.invocations)
	}
}

func TestNewExecutor_PanicsOnNilDependencies(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for nil classifier")
		}
	}()
	NewExecutor(nil, fastBackoff(1), nil)
}
