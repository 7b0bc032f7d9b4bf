// Package engine is the parallel aggregation core: it fans one operation out
// across many independent, unreliable, rate-limited subscriptions and merges
// the per-subscription outcomes into a single ordered report.
//
// # Pipeline
//
// Each subscription becomes one task on a worker pool bounded by MaxWorkers.
// A task runs through, in order:
//
//  1. the circuit breaker for the operation's upstream class (fail fast when
//     the upstream is presumed down, before any cache lookup)
//  2. the TTL cache with single-flight de-duplication, when the operation is
//     cacheable
//  3. the per-subscription rate limiter and the retry executor around the
//     underlying call
//
// # Guarantees
//
//   - every submitted subscription yields exactly one Outcome; none are
//     dropped or duplicated
//   - at most MaxWorkers operations execute simultaneously
//   - the report preserves input order regardless of completion order
//   - one subscription's failure never cancels or blocks another's task
//   - a strict subset of failures never fails the run; only precondition
//     violations (empty subscription list, nil operation, bad config) do
//
// # Timeouts
//
// The whole run carries one deadline (OverallTimeout). When it expires the
// run returns immediately with whatever outcomes exist; still-pending
// subscriptions are reported as timeout failures and in-flight work is
// abandoned cooperatively. Per-attempt timeouts inside the retry executor
// are independent and finer-grained.
//
// # Basic usage
//
//	eng, err := engine.New(engine.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//
//	report, err := eng.Run(ctx, subscriptions, engine.Operation{
//	    Name:          "audit_vms",
//	    UpstreamClass: "compute",
//	    Cacheable:     true,
//	    Do: func(ctx context.Context, sub string) (interface{}, error) {
//	        return client.StoppedVMs(ctx, sub)
//	    },
//	})
//	if err != nil {
//	    return err // precondition violation, nothing ran
//	}
//
//	for _, o := range report.Outcomes {
//	    ...
//	}
package engine
