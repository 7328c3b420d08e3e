// Package scheduler drives the periodic tick loop: each tick snapshots the
// current target set, fans probes out to a bounded worker pool, aggregates
// the tick's outcomes, and hands them to the state tracker.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/healthwatch/daemon/internal/application/breaker"
	appjournal "github.com/healthwatch/daemon/internal/application/journal"
	"github.com/healthwatch/daemon/internal/application/retry"
	"github.com/healthwatch/daemon/internal/application/selfmetrics"
	"github.com/healthwatch/daemon/internal/application/tracker"
	"github.com/healthwatch/daemon/internal/domain/healthcheck"
	"github.com/healthwatch/daemon/internal/domain/journal"
	domainlogging "github.com/healthwatch/daemon/internal/domain/logging"
)

// pollInterval bounds shutdown interruption latency during the inter-tick sleep.
const pollInterval = 1 * time.Second

// Probers resolves the concrete prober for each target kind.
type Probers struct {
	HTTP     healthcheck.Prober
	Database healthcheck.Prober
}

func (p Probers) forKind(kind healthcheck.Kind) healthcheck.Prober {
	if kind == healthcheck.KindDatabase {
		return p.Database
	}
	return p.HTTP
}

// TargetSetFunc returns the immutable target set to probe this tick.
type TargetSetFunc func() []healthcheck.Target

// PolicyFunc resolves the retry/breaker policy for a target kind.
type PolicyFunc func(healthcheck.Kind) healthcheck.Policy

// SnapshotRenderer receives the full, internally consistent snapshot produced
// by each tick. Implementations are never called concurrently by the
// scheduler and must not retain the map beyond the call.
type SnapshotRenderer interface {
	Render(snapshot map[string]healthcheck.ProbeOutcome)
}

// Scheduler owns the tick loop and the bounded worker pool.
type Scheduler struct {
	probers      Probers
	breakers     *breaker.Registry
	tracker      *tracker.Tracker
	sink         appjournal.Sink
	metrics      *selfmetrics.Metrics
	view         SnapshotRenderer
	logger       domainlogging.Logger
	targetSet    TargetSetFunc
	policyFor    PolicyFunc
	poolSize     int
	interval     time.Duration
	logAllChecks bool

	shutdown chan struct{}
}

// New creates a Scheduler.
//
// Params:
//   - probers: the concrete HTTP and database probers.
//   - breakers: the per-target circuit breaker registry.
//   - tr: the state tracker.
//   - sink: the journal sink.
//   - metrics: the self-metrics collector.
//   - targetSet: returns the current immutable target set.
//   - poolSize: the worker pool size.
//   - interval: the tick period.
//   - logAllChecks: whether to emit a non-transition record per probe.
//
// Returns:
//   - *Scheduler: the created scheduler.
func New(probers Probers, breakers *breaker.Registry, tr *tracker.Tracker, sink appjournal.Sink, metrics *selfmetrics.Metrics, targetSet TargetSetFunc, poolSize int, interval time.Duration, logAllChecks bool) *Scheduler {
	return &Scheduler{
		probers:      probers,
		breakers:     breakers,
		tracker:      tr,
		sink:         sink,
		metrics:      metrics,
		targetSet:    targetSet,
		policyFor:    healthcheck.DefaultPolicyFor,
		poolSize:     poolSize,
		interval:     interval,
		logAllChecks: logAllChecks,
		shutdown:     make(chan struct{}),
	}
}

// SetLogAllChecks updates the "log all checks" flag, applied starting with
// the next tick. The flag is not synchronized: calling this while Run or
// RunTick is executing is a data race.
//
// Params:
//   - v: the new value.
func (s *Scheduler) SetLogAllChecks(v bool) {
	s.logAllChecks = v
}

// SetLogger attaches the operational diagnostics logger. When unset,
// diagnostics fall back to the standard library logger. Must be called
// before Run.
//
// Params:
//   - logger: the diagnostics logger, or nil to keep the fallback.
func (s *Scheduler) SetLogger(logger domainlogging.Logger) {
	s.logger = logger
}

// logError records an ERROR diagnostic in the self-metrics and writes it to
// the operational log.
func (s *Scheduler) logError(target, code, message string) {
	s.metrics.RecordDiagnostic("error")
	if s.logger != nil {
		s.logger.Log(domainlogging.LevelError, target, code, message, nil)
		return
	}
	log.Printf("%s: %s", code, message)
}

// SetPolicyResolver replaces the default per-kind retry/breaker policy
// resolver, letting ambient settings override the built-in defaults. Must be
// called before Run.
//
// Params:
//   - policyFor: the resolver; nil restores the defaults.
func (s *Scheduler) SetPolicyResolver(policyFor PolicyFunc) {
	if policyFor == nil {
		policyFor = healthcheck.DefaultPolicyFor
	}
	s.policyFor = policyFor
}

// SetView attaches a snapshot renderer. When set, every tick pushes the
// tracker's post-apply snapshot to it after the journal writes for that tick
// complete. Must be called before Run; the scheduler never calls the view
// concurrently with itself.
//
// Params:
//   - view: the renderer to push snapshots to, or nil to disable.
func (s *Scheduler) SetView(view SnapshotRenderer) {
	s.view = view
}

// Shutdown signals the tick loop to stop after the current tick completes.
func (s *Scheduler) Shutdown() {
	close(s.shutdown)
}

// Run drives the tick loop. If once is true, it runs exactly one tick and
// returns (cron-style single-shot mode). Otherwise it loops until Shutdown
// is called, sleeping between ticks in short polls so shutdown latency is
// bounded by one second. Ticks never overlap: if a tick runs longer than
// the interval, the next tick starts immediately.
//
// Params:
//   - ctx: bounds each probe attempt; cancellation does not itself stop the loop.
//   - once: when true, run exactly one tick and return.
func (s *Scheduler) Run(ctx context.Context, once bool) {
	for {
		s.RunTick(ctx)

		if once {
			return
		}

		if !s.sleepInterruptible() {
			return
		}
	}
}

// RunTick executes exactly one tick: snapshot, fan-out, aggregate, and hand
// off to the tracker and journal.
//
// Params:
//   - ctx: bounds each probe attempt.
func (s *Scheduler) RunTick(ctx context.Context) {
	targets := s.targetSet()

	outcomes := s.probeAll(ctx, targets)

	typeOf := func(name string) journal.TargetType {
		for _, t := range targets {
			if t.Name == name {
				return targetTypeOf(t.Kind)
			}
		}
		return journal.TargetApplication
	}

	events := s.tracker.Apply(outcomes, typeOf, s.logAllChecks)
	sort.SliceStable(events, func(i, j int) bool { return events[i].TargetName < events[j].TargetName })

	for _, event := range events {
		if err := s.sink.Append(event); err != nil {
			s.logError(event.TargetName, "journal_write", fmt.Sprintf("failed to write record: %v", err))
		}
	}

	s.metrics.SetActiveTargets(len(targets))
	s.metrics.SetOpenBreakers(s.breakers.OpenCount())

	if s.view != nil {
		s.view.Render(s.tracker.Snapshot())
	}
}

// probeAll submits one task per target to a bounded worker pool and waits
// for all of this tick's tasks to complete before returning.
func (s *Scheduler) probeAll(ctx context.Context, targets []healthcheck.Target) map[string]healthcheck.ProbeOutcome {
	type keyed struct {
		name    string
		outcome healthcheck.ProbeOutcome
	}

	jobs := make(chan healthcheck.Target)
	results := make(chan keyed, len(targets))

	var wg sync.WaitGroup
	workers := s.poolSize
	if workers <= 0 {
		workers = 1
	}
	if workers > len(targets) && len(targets) > 0 {
		workers = len(targets)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range jobs {
				outcome := s.probeOne(ctx, target)
				results <- keyed{name: target.Name, outcome: outcome}
			}
		}()
	}

	go func() {
		for _, t := range targets {
			jobs <- t
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	aggregate := make(map[string]healthcheck.ProbeOutcome, len(targets))
	for r := range results {
		aggregate[r.name] = r.outcome
	}
	return aggregate
}

// probeOne runs breaker(envelope(prober(target))) for a single target,
// recovering from any unexpected panic by converting it into an unhealthy
// outcome, mirroring the "unexpected task faults are caught" contract.
func (s *Scheduler) probeOne(ctx context.Context, target healthcheck.Target) (outcome healthcheck.ProbeOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = healthcheck.ProbeOutcome{
				TargetName: target.Name,
				Healthy:    false,
				Error:      "internal: recovered panic in probe worker",
				ObservedAt: timeNow(),
			}
		}
	}()

	policy := s.policyFor(target.Kind)
	prober := s.probers.forKind(target.Kind)

	attempt := func(ctx context.Context) healthcheck.Result {
		return prober.Probe(ctx, target)
	}

	result := s.breakers.Call(ctx, target.Name, policy, attempt, s.metrics.RecordRetry)
	s.metrics.RecordProbe(result.IsSuccess(), result.Latency)

	return healthcheck.FromResult(target.Name, result)
}

func (s *Scheduler) sleepInterruptible() bool {
	remaining := s.interval
	for remaining > 0 {
		wait := pollInterval
		if remaining < wait {
			wait = remaining
		}
		select {
		case <-s.shutdown:
			return false
		case <-time.After(wait):
		}
		remaining -= wait
	}
	return true
}

func targetTypeOf(kind healthcheck.Kind) journal.TargetType {
	if kind == healthcheck.KindDatabase {
		return journal.TargetDatabase
	}
	return journal.TargetWebsite
}

var timeNow = time.Now

// Attempt re-exports retry.Attempt for callers that need the type without
// importing the retry package directly.
type Attempt = retry.Attempt
