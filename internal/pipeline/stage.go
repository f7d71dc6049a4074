package pipeline

import (
	"context"
	"fmt"
	"time"
)

// Artifact is what a stage hands to the next one.
type Artifact struct {
	// Location is the staged object URI, loaded table or view.
	Location string
	Rows     int64
	// Action describes a view stage outcome: created, replaced or unchanged.
	Action string
}

func (a Artifact) String() string {
	switch {
	case a.Action != "":
		return fmt.Sprintf("%s (%s)", a.Location, a.Action)
	case a.Location != "":
		return fmt.Sprintf("%s (%d rows)", a.Location, a.Rows)
	default:
		return ""
	}
}

// Stage is one step of a run. Run is called once per attempt and must
// overwrite, not append to, whatever a previous attempt produced.
type Stage interface {
	Name() string
	// Phase is the state the run is in while the stage executes.
	Phase() State
	Run(ctx context.Context) (Artifact, error)
}

// StageReport describes one stage of a finished run.
type StageReport struct {
	Name     string
	Phase    State
	State    State
	Attempts int
	Duration time.Duration
	Artifact Artifact
	Err      error
}

// Report describes a finished run.
type Report struct {
	RunID      string
	State      State
	StartedAt  time.Time
	FinishedAt time.Time
	Stages     []StageReport
}

func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Stage returns the report of the named stage.
func (r *Report) Stage(name string) (StageReport, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageReport{}, false
}

// StageError is returned by Run when a stage fails after its last attempt.
type StageError struct {
	Stage    string
	Attempts int
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed after %d attempt(s): %v", e.Stage, e.Attempts, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Observer receives run progress. Calls happen on the run's goroutine.
type Observer interface {
	StageStarted(runID, stage string)
	StageFinished(runID string, report StageReport)
	RunFinished(report *Report)
}
