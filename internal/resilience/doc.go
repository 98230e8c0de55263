// Package resilience groups the fault-tolerance building blocks used around every
// call to an external job source or dependency.
//
// The subpackages are:
//   - failure: error taxonomy (timeout, rate limited, ...) and retryability
//   - backoff: pure delay calculation for retry policies
//   - circuitbreaker: per-dependency breakers and their registry
//   - retry: the executor that composes the three above
//
// Usage Example:
//
//	breakers := circuitbreaker.NewRegistry(circuitbreaker.ExternalAPIConfig, logger)
//	exec := retry.NewExecutor(reporter, retry.WithLogger(logger))
//	err := exec.Run(ctx, retry.Call{Component: "remotive", Operation: "search"},
//	    backoff.SourcePolicy(), breakers.Get("remotive"), func(ctx context.Context) error {
//	        return callExternalService(ctx)
//	    })
package resilience
