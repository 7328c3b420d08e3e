// Package healthcheck provides domain abstractions for endpoint and
// database availability probing.
package healthcheck

import "context"

// Prober executes a single synchronous probe against a target.
// Infrastructure adapters (HTTP, database) implement this port; the
// application layer wraps it in a retry envelope and circuit breaker.
type Prober interface {
	// Probe executes one probe attempt against the target, bounded by the
	// target's own timeout. It never panics or returns past its own
	// recovery boundary: any unexpected failure is reported as a Result
	// with OutcomeFatal or OutcomeRetryable rather than an error return.
	//
	// Params:
	//   - ctx: the context for cancellation and timeout control.
	//   - target: the target to probe.
	//
	// Returns:
	//   - Result: the classified outcome of the attempt.
	Probe(ctx context.Context, target Target) Result

	// Kind returns the target kind this prober handles.
	//
	// Returns:
	//   - Kind: KindHTTP or KindDatabase.
	Kind() Kind
}
