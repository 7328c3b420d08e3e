package breaker_test

import (
	"context"
	"testing"
	"time"

	"github.com/healthwatch/daemon/internal/application/breaker"
	"github.com/healthwatch/daemon/internal/domain/circuitbreaker"
	"github.com/healthwatch/daemon/internal/domain/healthcheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func policyWithThreshold(n int) healthcheck.Policy {
	return healthcheck.Policy{
		Retry: healthcheck.RetryPolicy{
			MaxAttempts: 1,
			BaseDelay:   time.Millisecond,
			Multiplier:  2.0,
			MaxDelay:    time.Millisecond,
		},
		Breaker: healthcheck.BreakerPolicy{
			FailureThreshold: n,
			RecoveryTimeout:  time.Hour,
		},
	}
}

func TestRegistry_OpensAfterThresholdFailures(t *testing.T) {
	r := breaker.NewRegistry()
	policy := policyWithThreshold(5)

	probeCalls := 0
	attempt := func(ctx context.Context) healthcheck.Result {
		probeCalls++
		return healthcheck.NewRetryableResult(0, "refused", healthcheck.ErrConnectionRefused)
	}

	for i := 0; i < 5; i++ {
		r.Call(context.Background(), "A", policy, attempt, nil)
	}
	assert.Equal(t, circuitbreaker.Open, r.State("A"))
	assert.Equal(t, 5, probeCalls)

	result := r.Call(context.Background(), "A", policy, attempt, nil)
	assert.False(t, result.IsSuccess())
	assert.ErrorIs(t, result.Err, healthcheck.ErrCircuitOpen)
	assert.Equal(t, 5, probeCalls, "prober must not be invoked while breaker is open")
}

func TestRegistry_RetriesCountAsOneFailure(t *testing.T) {
	r := breaker.NewRegistry()
	policy := healthcheck.Policy{
		Retry: healthcheck.RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			Multiplier:  2.0,
			MaxDelay:    2 * time.Millisecond,
		},
		Breaker: healthcheck.BreakerPolicy{
			FailureThreshold: 2,
			RecoveryTimeout:  time.Hour,
		},
	}

	attempt := func(ctx context.Context) healthcheck.Result {
		return healthcheck.NewRetryableResult(0, "refused", healthcheck.ErrConnectionRefused)
	}

	r.Call(context.Background(), "A", policy, attempt, nil)
	require.Equal(t, circuitbreaker.Closed, r.State("A"))

	r.Call(context.Background(), "A", policy, attempt, nil)
	assert.Equal(t, circuitbreaker.Open, r.State("A"))
}

func TestRegistry_FatalFailuresDoNotTripUntrackedBreaker(t *testing.T) {
	r := breaker.NewRegistry()
	policy := policyWithThreshold(2)

	fatal := func(ctx context.Context) healthcheck.Result {
		return healthcheck.NewFatalResult(0, "unexpected status 404", nil)
	}
	for i := 0; i < 5; i++ {
		r.Call(context.Background(), "A", policy, fatal, nil)
	}
	assert.Equal(t, circuitbreaker.Closed, r.State("A"), "non-transport failures must not trip an HTTP-style breaker")
}

func TestRegistry_FatalFailuresTripTrackFatalBreaker(t *testing.T) {
	r := breaker.NewRegistry()
	policy := policyWithThreshold(2)
	policy.Breaker.TrackFatal = true

	fatal := func(ctx context.Context) healthcheck.Result {
		return healthcheck.NewFatalResult(0, "password authentication failed", nil)
	}
	r.Call(context.Background(), "db", policy, fatal, nil)
	require.Equal(t, circuitbreaker.Closed, r.State("db"))
	r.Call(context.Background(), "db", policy, fatal, nil)
	assert.Equal(t, circuitbreaker.Open, r.State("db"))
}

func TestRegistry_Prune(t *testing.T) {
	r := breaker.NewRegistry()
	policy := policyWithThreshold(1)
	attempt := func(ctx context.Context) healthcheck.Result {
		return healthcheck.NewRetryableResult(0, "refused", healthcheck.ErrConnectionRefused)
	}

	r.Call(context.Background(), "A", policy, attempt, nil)
	require.Equal(t, circuitbreaker.Open, r.State("A"))

	r.Prune(map[string]struct{}{})
	assert.Equal(t, circuitbreaker.Closed, r.State("A"), "pruned target reverts to the zero-value closed state")
}
