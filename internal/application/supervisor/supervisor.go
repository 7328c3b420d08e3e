package supervisor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/healthwatch/daemon/internal/application/breaker"
	appconfig "github.com/healthwatch/daemon/internal/application/config"
	appjournal "github.com/healthwatch/daemon/internal/application/journal"
	"github.com/healthwatch/daemon/internal/application/scheduler"
	"github.com/healthwatch/daemon/internal/application/selfmetrics"
	"github.com/healthwatch/daemon/internal/application/tracker"
	"github.com/healthwatch/daemon/internal/domain/healthcheck"
	domainjournal "github.com/healthwatch/daemon/internal/domain/journal"
	domainlogging "github.com/healthwatch/daemon/internal/domain/logging"
)

// Exit codes for the process, per the command-line contract.
const (
	ExitOK           = 0
	ExitInitFailure  = 1
	ExitRuntimeError = 2
)

// reloadPollInterval bounds how promptly a pending shutdown interrupts the
// wait between config-reload checks.
const reloadPollInterval = 1 * time.Second

// Supervisor owns component wiring and the lifecycle state machine. It
// drives the tick loop, checks for config changes at each tick boundary,
// and performs graceful shutdown on signal.
type Supervisor struct {
	mu    sync.Mutex
	state State

	source   *appconfig.Source
	sched    *scheduler.Scheduler
	breakers *breaker.Registry
	tracker  *tracker.Tracker
	sink     appjournal.Sink
	metrics  *selfmetrics.Metrics

	interval time.Duration
	logger   domainlogging.Logger

	shutdown chan struct{}
	once     sync.Once
}

// New wires a Supervisor from its already-constructed components.
//
// Params:
//   - source: the configuration source.
//   - sched: the tick-loop scheduler.
//   - breakers: the circuit breaker registry, pruned on reload.
//   - tr: the state tracker, pruned on reload.
//   - sink: the journal sink, for lifecycle records.
//   - metrics: the self-metrics collector.
//   - interval: the tick interval, used to pace the reload-check loop.
//
// Returns:
//   - *Supervisor: the wired, not-yet-started supervisor, in state init.
func New(source *appconfig.Source, sched *scheduler.Scheduler, breakers *breaker.Registry, tr *tracker.Tracker, sink appjournal.Sink, metrics *selfmetrics.Metrics, interval time.Duration) *Supervisor {
	return &Supervisor{
		state:    StateInit,
		source:   source,
		sched:    sched,
		breakers: breakers,
		tracker:  tr,
		sink:     sink,
		metrics:  metrics,
		interval: interval,
		shutdown: make(chan struct{}),
	}
}

// SetLogger attaches the structured operational logger. When unset,
// diagnostics fall back to the standard library logger. Must be called
// before Run.
//
// Params:
//   - logger: the operational logger, or nil to keep the fallback.
func (s *Supervisor) SetLogger(logger domainlogging.Logger) {
	s.logger = logger
}

// logError records an ERROR diagnostic in the self-metrics and writes it to
// the operational log.
func (s *Supervisor) logError(eventType, message string) {
	s.metrics.RecordDiagnostic("error")
	if s.logger != nil {
		s.logger.Log(domainlogging.LevelError, "", eventType, message, nil)
		return
	}
	log.Printf("%s: %s", eventType, message)
}

// State returns the current lifecycle state.
//
// Returns:
//   - State: the current state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// setState transitions the state and appends a TransitionEvent for the
// process itself.
func (s *Supervisor) setState(next State, detail string) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()

	event := domainjournal.NewTransitionEvent("", domainjournal.TargetApplication, journalStateOf(prev), journalStateOf(next), detail)
	if err := s.sink.Append(event); err != nil {
		s.logError("journal_write", fmt.Sprintf("failed to write lifecycle record: %v", err))
	}
}

func journalStateOf(s State) domainjournal.State {
	switch s {
	case StateRunning:
		return domainjournal.StateRunning
	case StateConfigReloaded:
		return domainjournal.StateConfigReloaded
	case StateShuttingDown:
		return domainjournal.StateShuttingDown
	case StateShutdownComplete:
		return domainjournal.StateShutdownComplete
	case StateShutdownError:
		return domainjournal.StateShutdownError
	default:
		return domainjournal.StateUnknown
	}
}

// Run drives the supervisor's main loop: initialized -> running, checking
// for config changes at every tick boundary and running one scheduler tick
// per iteration, until ctx is cancelled or Shutdown is called, or
// once is true and a single tick has run. It performs graceful shutdown
// before returning.
//
// Params:
//   - ctx: bounds probe attempts; cancellation also initiates shutdown.
//   - once: when true, run exactly one tick then shut down immediately.
//
// Returns:
//   - int: the process exit code (ExitOK or ExitRuntimeError).
func (s *Supervisor) Run(ctx context.Context, once bool) int {
	s.mu.Lock()
	s.state = StateInitialized
	s.mu.Unlock()

	s.setState(StateRunning, "supervisor started")

	for {
		s.checkReload()
		s.sched.RunTick(ctx)

		if once {
			break
		}

		if !s.sleepInterruptible(ctx) {
			break
		}
	}

	return s.gracefulShutdown()
}

// Shutdown signals Run to stop after the current tick completes.
func (s *Supervisor) Shutdown() {
	s.once.Do(func() { close(s.shutdown) })
}

// checkReload reloads the target set if either config file has changed
// since the last reload, pruning breaker and tracker state for any target
// name that no longer appears, and recording the outcome in the journal.
func (s *Supervisor) checkReload() {
	if !s.source.Changed() {
		return
	}

	gen, pre, post, err := s.source.Reload()

	keep := make(map[string]struct{}, len(gen.Targets()))
	for _, t := range gen.Targets() {
		keep[t.Name] = struct{}{}
	}
	s.breakers.Prune(keep)
	s.tracker.Forget(keep)

	if err != nil {
		detail := fmt.Sprintf("config reload failed: %v (pre=%d post=%d)", err, pre, post)
		event := domainjournal.NewTransitionEvent("", domainjournal.TargetApplication, domainjournal.StateRunning, domainjournal.StateConfigReloadError, detail)
		if appendErr := s.sink.Append(event); appendErr != nil {
			s.logError("journal_write", fmt.Sprintf("failed to write config_reload_error record: %v", appendErr))
		}
		return
	}

	detail := fmt.Sprintf("targets %d -> %d", pre, post)
	event := domainjournal.NewTransitionEvent("", domainjournal.TargetApplication, domainjournal.StateRunning, domainjournal.StateConfigReloaded, detail)
	if appendErr := s.sink.Append(event); appendErr != nil {
		s.logError("journal_write", fmt.Sprintf("failed to write config_reloaded record: %v", appendErr))
	}
}

// sleepInterruptible waits up to the tick interval, polling for shutdown
// (via ctx cancellation or an explicit Shutdown call) every second.
//
// Returns:
//   - bool: true if the full interval elapsed, false if interrupted.
func (s *Supervisor) sleepInterruptible(ctx context.Context) bool {
	remaining := s.interval
	for remaining > 0 {
		wait := reloadPollInterval
		if remaining < wait {
			wait = remaining
		}
		select {
		case <-s.shutdown:
			return false
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
		remaining -= wait
	}
	return true
}

// gracefulShutdown writes a closing shutdown record per known target and a
// shutdown_complete record for the process, then closes the sink.
//
// Returns:
//   - int: ExitOK on success, ExitRuntimeError if the sink failed to close.
func (s *Supervisor) gracefulShutdown() int {
	s.setState(StateShuttingDown, "termination requested")

	for _, target := range s.source.Current().Targets() {
		event := domainjournal.NewTransitionEvent(target.Name, targetTypeOf(target.Kind), domainjournal.StateUp, domainjournal.StateShutdown, "supervisor shutting down")
		if err := s.sink.Append(event); err != nil {
			s.logError("journal_write", fmt.Sprintf("failed to write shutdown record for %s: %v", target.Name, err))
		}
	}

	s.setState(StateShutdownComplete, "shutdown complete")

	if err := s.sink.Close(); err != nil {
		s.logError("journal_close", fmt.Sprintf("failed to close sink: %v", err))
		s.setState(StateShutdownError, fmt.Sprintf("sink close failed: %v", err))
		return ExitRuntimeError
	}

	return ExitOK
}

func targetTypeOf(kind healthcheck.Kind) domainjournal.TargetType {
	if kind == healthcheck.KindDatabase {
		return domainjournal.TargetDatabase
	}
	return domainjournal.TargetWebsite
}

// WriteInitFailure appends a single "error" journal record describing an
// unrecoverable initialization failure, best-effort. Used by the process
// entry point before a Supervisor exists (e.g. when the config source
// itself fails to construct).
//
// Params:
//   - sink: the journal sink, if one was successfully created; may be nil.
//   - detail: a human-readable description of the failure.
func WriteInitFailure(sink appjournal.Sink, detail string) {
	if sink == nil {
		return
	}
	event := domainjournal.NewTransitionEvent("", domainjournal.TargetApplication, domainjournal.StateUnknown, domainjournal.StateError, detail)
	if err := sink.Append(event); err != nil {
		log.Printf("journal: failed to write init-failure record: %v", err)
	}
	_ = sink.Close()
}
