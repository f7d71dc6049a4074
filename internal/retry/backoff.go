package retry

import (
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoff grows the delay geometrically from an initial delay up to a cap,
// with optional symmetric jitter. It is used for connection-level retries.
type ExponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	maxAttempts  int

	// jitter is the fraction (0..1) by which a delay may deviate either way.
	jitter     float64
	jitterFunc func() float64
}

// BackoffOption configures an ExponentialBackoff.
type BackoffOption func(*ExponentialBackoff)

func WithInitialDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) {
		b.initialDelay = d
	}
}

func WithMaxDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) {
		b.maxDelay = d
	}
}

func WithMultiplier(m float64) BackoffOption {
	return func(b *ExponentialBackoff) {
		b.multiplier = m
	}
}

func WithJitter(j float64) BackoffOption {
	return func(b *ExponentialBackoff) {
		b.jitter = j
	}
}

// WithJitterFunc replaces the random source used for jitter; it must return values in [0,1).
func WithJitterFunc(f func() float64) BackoffOption {
	return func(b *ExponentialBackoff) {
		b.jitterFunc = f
	}
}

// NewExponentialBackoff creates a strategy with defaults of 100ms initial delay,
// 30s cap, multiplier 2 and 10% jitter.
func NewExponentialBackoff(maxAttempts int, opts ...BackoffOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		initialDelay: 100 * time.Millisecond,
		maxDelay:     30 * time.Second,
		multiplier:   2.0,
		maxAttempts:  maxAttempts,
		jitter:       0.1,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// NextDelay returns initialDelay * multiplier^attempt, capped at maxDelay, then jittered.
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delayMs := float64(b.initialDelay.Milliseconds()) * math.Pow(b.multiplier, float64(attempt))

	if delayMs > float64(b.maxDelay.Milliseconds()) {
		delayMs = float64(b.maxDelay.Milliseconds())
	}

	if b.jitter > 0 {
		jitterFunc := b.jitterFunc
		if jitterFunc == nil {
			jitterFunc = rand.Float64
		}

		randomOffset := (jitterFunc() - 0.5) * 2.0 // [0,1) -> [-1,1)
		delayMs *= 1.0 + (b.jitter * randomOffset)
	}

	return time.Duration(delayMs) * time.Millisecond
}

func (b *ExponentialBackoff) MaxAttempts() int {
	return b.maxAttempts
}

func (b *ExponentialBackoff) InitialDelay() time.Duration {
	return b.initialDelay
}

func (b *ExponentialBackoff) MaxDelay() time.Duration {
	return b.maxDelay
}

func (b *ExponentialBackoff) Multiplier() float64 {
	return b.multiplier
}

func (b *ExponentialBackoff) Jitter() float64 {
	return b.jitter
}

// ConstantBackoff waits the same delay before every retry.
// It is the stage-level policy: a fixed retry count with a fixed wait.
type ConstantBackoff struct {
	delay       time.Duration
	maxAttempts int
}

// NewConstantBackoff creates a strategy that retries maxAttempts times, waiting delay each time.
func NewConstantBackoff(maxAttempts int, delay time.Duration) *ConstantBackoff {
	return &ConstantBackoff{delay: delay, maxAttempts: maxAttempts}
}

func (b *ConstantBackoff) NextDelay(int) time.Duration {
	return b.delay
}

func (b *ConstantBackoff) MaxAttempts() int {
	return b.maxAttempts
}
