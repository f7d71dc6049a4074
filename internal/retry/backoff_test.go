package retry

import (
	"testing"
	"time"
)

func TestExponentialBackoff_DefaultValues(t *testing.T) {
	strategy := NewExponentialBackoff(3)

	if strategy.InitialDelay() != 100*time.Millisecond {
		t.Errorf("Expected InitialDelay=100ms, got %v", strategy.InitialDelay())
	}
	if strategy.MaxDelay() != 30*time.Second {
		t.Errorf("Expected MaxDelay=30s, got %v", strategy.MaxDelay())
	}
	if strategy.Multiplier() != 2.0 {
		t.Errorf("Expected Multiplier=2.0, got %v", strategy.Multiplier())
	}
	if strategy.Jitter() != 0.1 {
		t.Errorf("Expected Jitter=0.1, got %v", strategy.Jitter())
	}
	if strategy.MaxAttempts() != 3 {
		t.Errorf("Expected MaxAttempts=3, got %v", strategy.MaxAttempts())
	}
}

func TestExponentialBackoff_NextDelay_WithoutJitter(t *testing.T) {
	strategy := NewExponentialBackoff(5,
		WithInitialDelay(100*time.Millisecond),
		WithMultiplier(2.0),
		WithJitter(0),
	)

	tests := []struct {
		attempt       int
		expectedDelay time.Duration
	}{
		{attempt: 0, expectedDelay: 100 * time.Millisecond},
		{attempt: 1, expectedDelay: 200 * time.Millisecond},
		{attempt: 2, expectedDelay: 400 * time.Millisecond},
		{attempt: 3, expectedDelay: 800 * time.Millisecond},
	}

	for _, tt := range tests {
		if delay := strategy.NextDelay(tt.attempt); delay != tt.expectedDelay {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, delay, tt.expectedDelay)
		}
	}
}

func TestExponentialBackoff_NextDelay_MaxDelayCap(t *testing.T) {
	strategy := NewExponentialBackoff(50,
		WithInitialDelay(1*time.Second),
		WithMultiplier(3.0),
		WithMaxDelay(1*time.Minute),
		WithJitter(0),
	)

	for attempt := 5; attempt <= 50; attempt++ {
		if delay := strategy.NextDelay(attempt); delay != time.Minute {
			t.Errorf("NextDelay(%d) = %v, want capped 1m", attempt, delay)
		}
	}
}

func TestExponentialBackoff_NextDelay_WithJitter(t *testing.T) {
	tests := []struct {
		jitterValue float64
		want        time.Duration
	}{
		{0.0, 90 * time.Millisecond},
		{0.5, 100 * time.Millisecond},
		{1.0, 110 * time.Millisecond},
	}

	for _, tt := range tests {
		jv := tt.jitterValue
		strategy := NewExponentialBackoff(3,
			WithInitialDelay(100*time.Millisecond),
			WithJitter(0.1),
			WithJitterFunc(func() float64 { return jv }),
		)
		if got := strategy.NextDelay(0); got != tt.want {
			t.Errorf("NextDelay with jitter value %v = %v, want %v", jv, got, tt.want)
		}
	}
}

func TestConstantBackoff(t *testing.T) {
	strategy := NewConstantBackoff(1, time.Minute)

	if strategy.MaxAttempts() != 1 {
		t.Errorf("MaxAttempts() = %d, want 1", strategy.MaxAttempts())
	}
	for attempt := 0; attempt < 5; attempt++ {
		if d := strategy.NextDelay(attempt); d != time.Minute {
			t.Errorf("NextDelay(%d) = %v, want 1m", attempt, d)
		}
	}
}
