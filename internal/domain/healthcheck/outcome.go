package healthcheck

import "time"

// ProbeOutcome is the final, tick-level outcome for one target: the result
// of circuit_breaker(envelope(prober(target))), reduced to the shape the
// state tracker and journal consume.
type ProbeOutcome struct {
	// TargetName identifies the target.
	TargetName string
	// Healthy is true iff the probe succeeded.
	Healthy bool
	// Latency is measured from probe start to completion on both success and failure paths.
	Latency time.Duration
	// Error holds the failure detail; absent when Healthy is true.
	Error string
	// ObservedAt is when the outcome was produced.
	ObservedAt time.Time
}

// FromResult builds a ProbeOutcome from the final Result returned by the
// breaker/envelope stack.
//
// Params:
//   - targetName: the target's name.
//   - result: the final classified result.
//
// Returns:
//   - ProbeOutcome: the tick-level outcome.
func FromResult(targetName string, result Result) ProbeOutcome {
	outcome := ProbeOutcome{
		TargetName: targetName,
		Healthy:    result.IsSuccess(),
		Latency:    result.Latency,
		ObservedAt: time.Now(),
	}

	if !outcome.Healthy {
		if result.Err != nil {
			outcome.Error = result.Err.Error()
		} else {
			outcome.Error = result.Detail
		}
	}

	return outcome
}
