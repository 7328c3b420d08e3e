// Package circuitbreaker provides the per-target three-state gate that
// protects a probe target from storms of retries during sustained failure.
package circuitbreaker

import (
	"sync"
	"time"
)

// State is one of the three circuit breaker states.
type State int

const (
	// Closed allows every call through.
	Closed State = iota
	// Open fails every call fast until the recovery timeout elapses.
	Open
	// HalfOpen allows exactly one probing call before deciding the next state.
	HalfOpen
)

// String returns the lowercase name of the state.
//
// Returns:
//   - string: "closed", "open", "half_open", or "unknown" for an unrecognized value.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker is a single per-target circuit breaker. It is safe for concurrent use.
type Breaker struct {
	mu sync.Mutex

	failureThreshold int
	recoveryTimeout  time.Duration
	now              func() time.Time

	state               State
	consecutiveFailures int
	lastFailureAt       time.Time
	halfOpenInFlight    bool
}

// New creates a Breaker with the given threshold and recovery timeout.
//
// Params:
//   - failureThreshold: the number of tracked-kind failures that trips the breaker.
//   - recoveryTimeout: how long an open breaker waits before allowing a probe attempt.
//
// Returns:
//   - *Breaker: a breaker starting in the closed state.
func New(failureThreshold int, recoveryTimeout time.Duration) *Breaker {
	return &Breaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		now:              time.Now,
		state:            Closed,
	}
}

// State returns the current breaker state.
//
// Returns:
//   - State: the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed. When the breaker is open and the
// recovery timeout has elapsed, it transitions to half-open and allows
// exactly one in-flight probe; subsequent calls are rejected until that
// probe reports its outcome via RecordSuccess, RecordFailure, or
// RecordUntracked.
//
// Returns:
//   - bool: true if the call may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case HalfOpen:
		if b.halfOpenInFlight {
			return false
		}
		b.halfOpenInFlight = true
		return true
	case Open:
		if b.now().Sub(b.lastFailureAt) >= b.recoveryTimeout {
			b.state = HalfOpen
			b.halfOpenInFlight = true
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess reports that the permitted call succeeded.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	b.halfOpenInFlight = false
	b.state = Closed
}

// RecordUntracked reports that the permitted call concluded on a non-tracked
// error kind. It neither trips nor resets the breaker; it only releases the
// half-open probe slot so the next call may proceed.
func (b *Breaker) RecordUntracked() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.halfOpenInFlight = false
}

// RecordFailure reports that the permitted call failed on a tracked-kind error.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.halfOpenInFlight = false
	b.lastFailureAt = b.now()

	if b.state == HalfOpen {
		b.state = Open
		return
	}

	b.consecutiveFailures++
	if b.consecutiveFailures >= b.failureThreshold {
		b.state = Open
	}
}
