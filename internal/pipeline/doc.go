// Package pipeline runs the extract, load and transform stages of one ELT run.
//
// A Pipeline is an explicit ordered slice of Stages. Each stage moves the run's
// state machine forward (PENDING -> EXTRACTING -> LOADING -> TRANSFORMING ->
// SUCCEEDED) and runs inside a retry.Executor with a constant backoff. The first
// stage that exhausts its retries moves the run to FAILED and is returned as a
// *StageError.
//
// Usage:
//
//	p, cleanup, err := pipeline.Build(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
//	report, err := p.Run(ctx)
package pipeline
