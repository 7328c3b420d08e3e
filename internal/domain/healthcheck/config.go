package healthcheck

import "time"

// RetryPolicy configures the bounded exponential-backoff envelope around a
// single prober call.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration
	// Multiplier scales the delay for each subsequent attempt.
	Multiplier float64
	// MaxDelay caps the computed delay before jitter is applied.
	MaxDelay time.Duration
}

// DefaultHTTPRetryPolicy returns the retry defaults for HTTP targets.
func DefaultHTTPRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		Multiplier:  2.0,
		MaxDelay:    10 * time.Second,
	}
}

// DefaultDatabaseRetryPolicy returns the retry defaults for database targets.
func DefaultDatabaseRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		Multiplier:  2.0,
		MaxDelay:    15 * time.Second,
	}
}

// Validate checks the policy for internal consistency.
//
// Returns:
//   - error: nil if valid, otherwise a sentinel describing the problem.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if p.BaseDelay <= 0 {
		return ErrInvalidBaseDelay
	}
	if p.Multiplier <= 1.0 {
		return ErrInvalidMultiplier
	}
	if p.MaxDelay < p.BaseDelay {
		return ErrInvalidMaxDelay
	}
	return nil
}

// BreakerPolicy configures the per-target circuit breaker.
type BreakerPolicy struct {
	// FailureThreshold is the number of tracked-kind failures that trips the breaker.
	FailureThreshold int
	// RecoveryTimeout is how long an open breaker waits before allowing a probe attempt.
	RecoveryTimeout time.Duration
	// TrackFatal widens the tracked failure kinds to include non-retryable
	// failures. Database probes track driver-class faults even when they are
	// not retryable (authentication, protocol errors); HTTP probes track only
	// transport-class failures, so an unexpected 4xx neither trips nor resets
	// the breaker.
	TrackFatal bool
}

// DefaultHTTPBreakerPolicy returns the breaker defaults for HTTP targets.
func DefaultHTTPBreakerPolicy() BreakerPolicy {
	return BreakerPolicy{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
	}
}

// DefaultDatabaseBreakerPolicy returns the breaker defaults for database targets.
func DefaultDatabaseBreakerPolicy() BreakerPolicy {
	return BreakerPolicy{
		FailureThreshold: 3,
		RecoveryTimeout:  120 * time.Second,
		TrackFatal:       true,
	}
}

// Validate checks the policy for internal consistency.
//
// Returns:
//   - error: nil if valid, otherwise a sentinel describing the problem.
func (p BreakerPolicy) Validate() error {
	if p.FailureThreshold <= 0 {
		return ErrInvalidFailureThreshold
	}
	if p.RecoveryTimeout <= 0 {
		return ErrInvalidRecoveryTimeout
	}
	return nil
}

// Policy bundles the retry and breaker parameters that apply to a target.
type Policy struct {
	Retry   RetryPolicy
	Breaker BreakerPolicy
}

// DefaultPolicyFor returns the default policy for the given target kind.
//
// Params:
//   - kind: the target kind.
//
// Returns:
//   - Policy: the kind-appropriate default retry and breaker parameters.
func DefaultPolicyFor(kind Kind) Policy {
	switch kind {
	case KindDatabase:
		return Policy{Retry: DefaultDatabaseRetryPolicy(), Breaker: DefaultDatabaseBreakerPolicy()}
	default:
		return Policy{Retry: DefaultHTTPRetryPolicy(), Breaker: DefaultHTTPBreakerPolicy()}
	}
}
