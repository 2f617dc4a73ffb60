// Package retry retries connection establishment on transient PostgreSQL
// and network failures using exponential backoff with jitter.
//
// Batch writes never go through this package: a failed append ends the run.
//
//	executor := retry.NewExecutor(retry.NewPostgreSQLErrorClassifier(), retry.NewExponentialBackoff(3))
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return pool.Ping(ctx)
//	})
package retry
