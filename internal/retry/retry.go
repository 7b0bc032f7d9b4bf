// Package retry wraps a single upstream invocation with bounded retry,
// exponential backoff with jitter, and a per-attempt timeout.
//
// Error classification is the operation's responsibility: transient errors
// (timeouts, throttling, connection resets) are retried until the policy is
// exhausted, permanent errors (auth, not-found, bad arguments) short-circuit
// immediately. Attempts that exceed the per-attempt timeout count as
// transient.
package retry

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/aryankumar/costfleet/internal/util"
)

// Policy configures retry behavior. The zero value is not usable; call
// DefaultPolicy or fill every field.
type Policy struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// Multiplier grows the delay between consecutive retries.
	Multiplier float64

	// JitterFraction randomizes each delay by +/- this fraction of it.
	JitterFraction float64

	// PerAttemptTimeout bounds each individual attempt. Zero disables the
	// per-attempt deadline (the overall run deadline still applies).
	PerAttemptTimeout time.Duration
}

// DefaultPolicy returns the standard retry policy: 3 attempts, 200ms base
// delay doubling each retry, 20% jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelay:      200 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0.2,
	}
}

// Validate reports the first problem with the policy, or nil.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return util.NewPreconditionError("retry.maxAttempts", p.MaxAttempts, "must be at least 1")
	}
	if p.BaseDelay < 0 {
		return util.NewPreconditionError("retry.baseDelay", p.BaseDelay, "cannot be negative")
	}
	if p.Multiplier < 1 {
		return util.NewPreconditionError("retry.multiplier", p.Multiplier, "must be at least 1")
	}
	if p.JitterFraction < 0 || p.JitterFraction > 1 {
		return util.NewPreconditionError("retry.jitterFraction", p.JitterFraction, "must be within [0, 1]")
	}
	return nil
}

// Executor runs operations under a retry policy
type Executor struct {
	policy Policy
	logger *slog.Logger

	// sleep is swappable for tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates a retry executor for the given policy
func NewExecutor(policy Policy, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		policy: policy,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Policy returns the executor's policy
func (e *Executor) Policy() Policy {
	return e.policy
}

// Execute runs op under the policy and returns its result, or the last error
// after policy exhaustion. Permanent errors and context cancellation return
// immediately.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) (interface{}, error)) (interface{}, error) {
	var lastErr error

	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		value, err := e.attempt(ctx, op)
		if err == nil {
			return value, nil
		}
		lastErr = err

		// Permanent errors short-circuit: retrying cannot help.
		if util.IsPermanent(err) {
			e.logger.Debug("permanent error, not retrying", "attempt", attempt, "error", err)
			return nil, err
		}

		if attempt >= e.policy.MaxAttempts {
			break
		}

		delay := e.backoff(attempt)
		e.logger.Debug("transient error, backing off",
			"attempt", attempt,
			"max_attempts", e.policy.MaxAttempts,
			"delay", delay,
			"error", err)

		if err := e.sleep(ctx, delay); err != nil {
			return nil, lastErr
		}
	}

	e.logger.Debug("retry budget exhausted", "attempts", e.policy.MaxAttempts, "error", lastErr)
	return nil, lastErr
}

// attempt runs one invocation bounded by the per-attempt timeout. A deadline
// expiry is reported as a transient timeout error.
func (e *Executor) attempt(ctx context.Context, op func(context.Context) (interface{}, error)) (interface{}, error) {
	if e.policy.PerAttemptTimeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, e.policy.PerAttemptTimeout)
	defer cancel()

	value, err := op(attemptCtx)
	if err != nil && attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return nil, util.Transient(util.ErrAttemptTimeout)
	}
	return value, err
}

// backoff computes the delay before the next attempt:
// baseDelay * multiplier^(attempt-1), randomized by +/- jitterFraction.
func (e *Executor) backoff(attempt int) time.Duration {
	delay := float64(e.policy.BaseDelay) * math.Pow(e.policy.Multiplier, float64(attempt-1))

	if e.policy.JitterFraction > 0 {
		// Spread retries across +/- jitterFraction of the delay so
		// concurrent tasks do not resynchronize on the upstream.
		span := delay * e.policy.JitterFraction
		delay = delay - span + rand.Float64()*2*span
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
