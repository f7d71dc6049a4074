// Package retry provides retry logic with pluggable backoff and error classification.
//
// Two policies are used in this module:
//
//   - connection-level: database connectors retry transient PostgreSQL failures with
//     exponential backoff (PostgreSQLErrorClassifier + ExponentialBackoff);
//   - stage-level: every pipeline stage is retried a fixed number of times with a fixed
//     wait regardless of the error kind (AlwaysRetry + ConstantBackoff).
//
// # Example Usage
//
//	executor := retry.NewExecutor(retry.AlwaysRetry{}, retry.NewConstantBackoff(1, time.Minute), nil)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return stage.Run(ctx)
//	})
//
// Waiting is driven by a clockwork.Clock so tests can advance time with a fake clock.
//
// # Thread Safety
//
// Executor instances are safe for concurrent use. Use WithOnRetry() to create
// independent configurations per goroutine.
package retry
