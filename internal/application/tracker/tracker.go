// Package tracker holds the process-wide map from target name to last known
// health and detects state transitions between ticks.
package tracker

import (
	"fmt"
	"sync"

	"github.com/healthwatch/daemon/internal/domain/healthcheck"
	"github.com/healthwatch/daemon/internal/domain/journal"
)

// TargetTyper resolves the journal target type for a target name, needed
// because the tracker itself is agnostic to target kind.
type TargetTyper func(targetName string) journal.TargetType

// Tracker is the single writer of current and previous_healthy; readers
// obtain consistent point-in-time copies via Snapshot.
type Tracker struct {
	mu sync.Mutex

	current         map[string]healthcheck.ProbeOutcome
	previousHealthy map[string]bool
}

// New creates an empty Tracker.
//
// Returns:
//   - *Tracker: a tracker with no recorded targets.
func New() *Tracker {
	return &Tracker{
		current:         make(map[string]healthcheck.ProbeOutcome),
		previousHealthy: make(map[string]bool),
	}
}

// Apply folds one tick's aggregated outcomes into the tracker, returning the
// TransitionEvents to be journaled: one per target whose state changed or is
// being observed for the first time, plus (if logAllChecks) one non-transition
// record per probe. current and previousHealthy are updated wholesale only
// after every outcome has been diffed against the prior snapshot.
//
// Params:
//   - outcomes: this tick's aggregated outcomes, keyed by target name.
//   - typeOf: resolves each target name to its journal target type.
//   - logAllChecks: when true, also emit a non-transition record per probe.
//
// Returns:
//   - []journal.TransitionEvent: the events to append to the journal, in the
//     order their target names appear in outcomes' iteration (non-deterministic
//     map order; callers that need stable output should sort the result).
func (t *Tracker) Apply(outcomes map[string]healthcheck.ProbeOutcome, typeOf TargetTyper, logAllChecks bool) []journal.TransitionEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	events := make([]journal.TransitionEvent, 0, len(outcomes))

	for name, outcome := range outcomes {
		toState := stateOf(outcome.Healthy)
		fromState := journal.StateUnknown
		hadPrior := false

		if prevHealthy, ok := t.previousHealthy[name]; ok {
			fromState = stateOf(prevHealthy)
			hadPrior = true
		}

		detail := detailFor(outcome)
		targetType := typeOf(name)

		switch {
		case !hadPrior:
			events = append(events, journal.NewTransitionEvent(name, targetType, journal.StateUnknown, toState, detail))
		case fromState != toState:
			events = append(events, journal.NewTransitionEvent(name, targetType, fromState, toState, detail))
		case logAllChecks:
			events = append(events, journal.NewTransitionEvent(name, targetType, toState, toState, detail))
		}
	}

	for name, outcome := range outcomes {
		t.current[name] = outcome
		t.previousHealthy[name] = outcome.Healthy
	}

	return events
}

// Snapshot returns a defensive copy of the current per-target outcomes.
//
// Returns:
//   - map[string]healthcheck.ProbeOutcome: a copy safe for the caller to retain or mutate.
func (t *Tracker) Snapshot() map[string]healthcheck.ProbeOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]healthcheck.ProbeOutcome, len(t.current))
	for k, v := range t.current {
		out[k] = v
	}
	return out
}

// Forget discards tracker state for any target name not present in keep.
// Called on config reload so a removed-then-reintroduced target is treated
// as never having been seen, per the reload semantics: a name that survives
// a reload keeps its previousHealthy memory; a name that is removed and
// later reintroduced starts again from unknown.
//
// Params:
//   - keep: the set of target names present after reload.
func (t *Tracker) Forget(keep map[string]struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for name := range t.current {
		if _, ok := keep[name]; !ok {
			delete(t.current, name)
			delete(t.previousHealthy, name)
		}
	}
}

func stateOf(healthy bool) journal.State {
	if healthy {
		return journal.StateUp
	}
	return journal.StateDown
}

func detailFor(outcome healthcheck.ProbeOutcome) string {
	if outcome.Healthy {
		return fmt.Sprintf("Response time: %.2fs", outcome.Latency.Seconds())
	}
	return fmt.Sprintf("Error: %s", outcome.Error)
}
