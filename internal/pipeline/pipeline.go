package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/ohmyjons/simple-elt/internal/retry"
	"github.com/ohmyjons/simple-elt/pkg/elt"
)

// Pipeline runs its stages strictly in order.
// Thread-Safety: NOT safe for concurrent Run() calls on the same instance.
type Pipeline struct {
	runID      string
	stages     []Stage
	retries    int
	retryDelay time.Duration
	clock      clockwork.Clock
	logger     elt.Logger
	observers  []Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRetryPolicy sets how many times a failed stage is retried and the fixed
// wait between attempts.
func WithRetryPolicy(retries int, delay time.Duration) Option {
	return func(p *Pipeline) {
		p.retries = retries
		p.retryDelay = delay
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = clock }
}

func WithObservers(observers ...Observer) Option {
	return func(p *Pipeline) { p.observers = append(p.observers, observers...) }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

// New creates a pipeline over stages. The stages' phases must follow the run's
// state machine from PENDING, otherwise New returns ErrIllegalTransition.
// Panics if logger is nil.
func New(stages []Stage, logger elt.Logger, opts ...Option) (*Pipeline, error) {
	if logger == nil {
		panic("logger cannot be nil")
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("pipeline has no stages: %w", elt.ErrConfiguration)
	}

	state := StatePending
	for _, s := range stages {
		if !state.CanTransition(s.Phase()) {
			return nil, fmt.Errorf("stage %s: %w: %s -> %s", s.Name(), ErrIllegalTransition, state, s.Phase())
		}
		state = s.Phase()
	}
	if !state.CanTransition(StateSucceeded) {
		return nil, fmt.Errorf("last stage %s cannot finish a run: %w", stages[len(stages)-1].Name(), ErrIllegalTransition)
	}

	p := &Pipeline{
		runID:      uuid.NewString(),
		stages:     stages,
		retries:    elt.DefaultStageRetries,
		retryDelay: elt.DefaultStageRetryDelay,
		clock:      clockwork.NewRealClock(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.retries < 0 || p.retryDelay < 0 {
		return nil, fmt.Errorf("retry policy %d x %s: %w", p.retries, p.retryDelay, elt.ErrConfiguration)
	}
	return p, nil
}

func (p *Pipeline) RunID() string {
	return p.runID
}

// Run executes every stage once its predecessor succeeded. Each stage is retried
// up to the configured count with a fixed delay, whatever the error kind. The
// returned report is never nil; the error is a *StageError when a stage failed.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	machine := NewMachine()
	report := &Report{RunID: p.runID, State: StatePending, StartedAt: p.clock.Now()}
	p.logger.Info("run %s started (%d stages)", p.runID, len(p.stages))

	var runErr error
	for _, stage := range p.stages {
		if err := machine.Transition(stage.Phase()); err != nil {
			runErr = err
			break
		}
		report.State = machine.State()

		sr := p.runStage(ctx, stage)
		report.Stages = append(report.Stages, sr)
		if sr.Err != nil {
			runErr = &StageError{Stage: sr.Name, Attempts: sr.Attempts, Err: sr.Err}
			break
		}
	}

	final := StateSucceeded
	if runErr != nil {
		final = StateFailed
	}
	if err := machine.Transition(final); err != nil && runErr == nil {
		runErr = err
	}
	report.State = machine.State()
	report.FinishedAt = p.clock.Now()

	if runErr != nil {
		p.logger.Error("run %s failed after %s: %v", p.runID, report.Duration(), runErr)
	} else {
		p.logger.Info("run %s succeeded in %s", p.runID, report.Duration())
	}
	for _, o := range p.observers {
		o.RunFinished(report)
	}
	return report, runErr
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage) StageReport {
	name := stage.Name()
	for _, o := range p.observers {
		o.StageStarted(p.runID, name)
	}

	executor := retry.NewExecutor(
		retry.AlwaysRetry{},
		retry.NewConstantBackoff(p.retries, p.retryDelay),
		p.clock,
	).WithOnRetry(func(attempt int, err error, delay time.Duration) {
		p.logger.Error("run %s: stage %s attempt %d failed: %v (retrying in %s)", p.runID, name, attempt+1, err, delay)
	})

	start := p.clock.Now()
	attempts := 0
	var artifact Artifact
	var lastErr error

	p.logger.Verbose("run %s: stage %s started", p.runID, name)
	err := executor.Execute(ctx, func(ctx context.Context) error {
		attempts++
		a, err := stage.Run(ctx)
		if err != nil {
			lastErr = err
			return err
		}
		artifact = a
		return nil
	})
	// A cancelled wait reports the context error; keep the stage's own error
	// so the failure kind survives.
	if err != nil && lastErr != nil && !errors.Is(lastErr, err) {
		err = fmt.Errorf("%w (stopped: %w)", lastErr, err)
	}

	sr := StageReport{
		Name:     name,
		Phase:    stage.Phase(),
		State:    StateSucceeded,
		Attempts: attempts,
		Duration: p.clock.Since(start),
		Artifact: artifact,
		Err:      err,
	}
	if err != nil {
		sr.State = StateFailed
		p.logger.Error("run %s: stage %s failed after %d attempt(s): %v", p.runID, name, attempts, err)
	} else {
		p.logger.Verbose("run %s: stage %s finished in %s: %s", p.runID, name, sr.Duration, artifact)
	}

	for _, o := range p.observers {
		o.StageFinished(p.runID, sr)
	}
	return sr
}
