// Package breaker composes the circuit breaker with the retry envelope so
// that a single tracked failure represents one full retry sequence, not one
// attempt.
package breaker

import (
	"context"
	"sync"

	"github.com/healthwatch/daemon/internal/application/retry"
	"github.com/healthwatch/daemon/internal/domain/circuitbreaker"
	"github.com/healthwatch/daemon/internal/domain/healthcheck"
)

// Registry owns one circuit breaker per target name and dispatches calls
// through breaker(envelope(prober)).
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*circuitbreaker.Breaker
}

// NewRegistry creates an empty breaker registry.
//
// Returns:
//   - *Registry: an empty registry.
func NewRegistry() *Registry {
	return &Registry{breakers: make(map[string]*circuitbreaker.Breaker)}
}

// Call runs attempt wrapped in the target's retry envelope, guarded by its
// circuit breaker. If the breaker is open, the prober is never invoked and
// a Result carrying ErrCircuitOpen is returned immediately. N retries within
// the envelope count as exactly one breaker outcome.
//
// Params:
//   - ctx: governs cancellation of the whole call, including retries.
//   - targetName: the breaker key.
//   - policy: retry and breaker parameters for this target.
//   - attempt: the probe attempt, possibly invoked more than once by the envelope.
//   - onRetry: forwarded to the retry envelope for self-metrics accounting.
//
// Returns:
//   - healthcheck.Result: the outcome, or a circuit-open result if short-circuited.
func (r *Registry) Call(ctx context.Context, targetName string, policy healthcheck.Policy, attempt retry.Attempt, onRetry retry.OnRetry) healthcheck.Result {
	b := r.breakerFor(targetName, policy.Breaker)

	if !b.Allow() {
		return healthcheck.NewFatalResult(0, "circuit breaker open", healthcheck.ErrCircuitOpen)
	}

	result := retry.Run(ctx, policy.Retry, attempt, onRetry)

	switch {
	case result.IsSuccess():
		b.RecordSuccess()
	case result.IsRetryable() || policy.Breaker.TrackFatal:
		// Transport-class failures always count; fatal failures count only
		// for families whose policy tracks driver-class faults.
		b.RecordFailure()
	default:
		b.RecordUntracked()
	}
	return result
}

// State returns the current breaker state for a target, or circuitbreaker.Closed
// if no breaker has been created for it yet.
//
// Params:
//   - targetName: the breaker key.
//
// Returns:
//   - circuitbreaker.State: the current state.
func (r *Registry) State(targetName string) circuitbreaker.State {
	r.mu.Lock()
	b, ok := r.breakers[targetName]
	r.mu.Unlock()
	if !ok {
		return circuitbreaker.Closed
	}
	return b.State()
}

// OpenCount returns the number of targets whose breaker is currently open.
//
// Returns:
//   - int: the count of open breakers.
func (r *Registry) OpenCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, b := range r.breakers {
		if b.State() == circuitbreaker.Open {
			count++
		}
	}
	return count
}

// Prune discards breaker state for any target name not present in keep.
// Called on config reload so removed targets lose their breaker history.
//
// Params:
//   - keep: the set of target names present after reload.
func (r *Registry) Prune(keep map[string]struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name := range r.breakers {
		if _, ok := keep[name]; !ok {
			delete(r.breakers, name)
		}
	}
}

func (r *Registry) breakerFor(targetName string, policy healthcheck.BreakerPolicy) *circuitbreaker.Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[targetName]; ok {
		return b
	}
	b := circuitbreaker.New(policy.FailureThreshold, policy.RecoveryTimeout)
	r.breakers[targetName] = b
	return b
}
