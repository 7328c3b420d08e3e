// Package retry implements the bounded exponential-backoff envelope that
// wraps a single prober attempt.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/healthwatch/daemon/internal/domain/healthcheck"
)

// minDelay is the floor applied to a jittered delay.
const minDelay = 100 * time.Millisecond

// jitterBand is the full-jitter band applied to the computed delay, ±25%.
const jitterBand = 0.25

// Attempt is one probe attempt, bound to its target and context by the caller.
type Attempt func(ctx context.Context) healthcheck.Result

// OnRetry is invoked once per retry (i.e. once per failed-but-retried attempt),
// used by the caller to increment a self-metrics counter.
type OnRetry func()

// Run executes attempt under the given retry policy. It returns the result
// of the first successful attempt, or the last failure once attempts are
// exhausted or the failure is classified as non-retryable. Only the final
// result is returned; intermediate attempts never escape the envelope.
//
// Params:
//   - ctx: governs cancellation; checked between attempts.
//   - policy: the retry parameters.
//   - attempt: the probe attempt to run, possibly more than once.
//   - onRetry: called once per retry; may be nil.
//
// Returns:
//   - healthcheck.Result: the final classified result.
func Run(ctx context.Context, policy healthcheck.RetryPolicy, attempt Attempt, onRetry OnRetry) healthcheck.Result {
	var result healthcheck.Result

	for n := 0; n < policy.MaxAttempts; n++ {
		result = attempt(ctx)

		if result.IsSuccess() || !result.IsRetryable() {
			return result
		}

		// Exhausted attempts: propagate the last failure without sleeping.
		if n == policy.MaxAttempts-1 {
			return result
		}

		if onRetry != nil {
			onRetry()
		}

		select {
		case <-ctx.Done():
			return result
		case <-time.After(delayFor(policy, n)):
		}
	}

	return result
}

// delayFor computes the jittered backoff delay before attempt n+1 (0-indexed),
// i.e. the delay preceding the (n+2)th attempt.
func delayFor(policy healthcheck.RetryPolicy, n int) time.Duration {
	base := float64(policy.BaseDelay) * pow(policy.Multiplier, n)
	capped := base
	if maxD := float64(policy.MaxDelay); capped > maxD {
		capped = maxD
	}

	// Full jitter: uniform in [capped*(1-band), capped*(1+band)].
	jittered := capped * (1 - jitterBand + rand.Float64()*2*jitterBand) //nolint:gosec // not security sensitive

	d := time.Duration(jittered)
	if d < minDelay {
		return minDelay
	}
	return d
}

// pow computes mult^n for non-negative integer n without importing math for a float base.
func pow(mult float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= mult
	}
	return result
}
