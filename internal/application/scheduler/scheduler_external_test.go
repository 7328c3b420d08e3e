package scheduler_test

import (
	"context"
	"testing"
	"time"

	appjournal "github.com/healthwatch/daemon/internal/application/journal"
	"github.com/healthwatch/daemon/internal/application/breaker"
	"github.com/healthwatch/daemon/internal/application/scheduler"
	"github.com/healthwatch/daemon/internal/application/selfmetrics"
	"github.com/healthwatch/daemon/internal/application/tracker"
	"github.com/healthwatch/daemon/internal/domain/healthcheck"
	domainjournal "github.com/healthwatch/daemon/internal/domain/journal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProber struct {
	kind    healthcheck.Kind
	results []healthcheck.Result
	calls   int
}

func (p *stubProber) Probe(ctx context.Context, target healthcheck.Target) healthcheck.Result {
	r := p.results[p.calls%len(p.results)]
	p.calls++
	return r
}

func (p *stubProber) Kind() healthcheck.Kind { return p.kind }

type recordingSink struct {
	events []domainjournal.TransitionEvent
}

func (s *recordingSink) Append(e domainjournal.TransitionEvent) error {
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Close() error { return nil }

var _ appjournal.Sink = (*recordingSink)(nil)

func newTestTarget(t *testing.T, name string) healthcheck.Target {
	t.Helper()
	return healthcheck.NewHTTPTarget(name, "https://"+name+".test", 5*time.Second, 200)
}

func TestScheduler_RunTick_FirstObservationEmitsUnknownTransition(t *testing.T) {
	target := newTestTarget(t, "a")
	prober := &stubProber{kind: healthcheck.KindHTTP, results: []healthcheck.Result{healthcheck.NewSuccessResult(10 * time.Millisecond, "ok")}}
	sink := &recordingSink{}
	metrics := selfmetrics.New(prometheus.NewRegistry())

	s := scheduler.New(
		scheduler.Probers{HTTP: prober, Database: prober},
		breaker.NewRegistry(),
		tracker.New(),
		sink,
		metrics,
		func() []healthcheck.Target { return []healthcheck.Target{target} },
		2,
		time.Second,
		false,
	)

	s.RunTick(context.Background())

	require.Len(t, sink.events, 1)
	assert.Equal(t, "a", sink.events[0].TargetName)
	assert.Equal(t, domainjournal.StateUnknown, sink.events[0].FromState)
	assert.Equal(t, domainjournal.StateUp, sink.events[0].ToState)
}

func TestScheduler_RunTick_NoTransitionProducesNoEventByDefault(t *testing.T) {
	target := newTestTarget(t, "a")
	prober := &stubProber{kind: healthcheck.KindHTTP, results: []healthcheck.Result{healthcheck.NewSuccessResult(10 * time.Millisecond, "ok")}}
	sink := &recordingSink{}
	metrics := selfmetrics.New(prometheus.NewRegistry())

	s := scheduler.New(
		scheduler.Probers{HTTP: prober, Database: prober},
		breaker.NewRegistry(),
		tracker.New(),
		sink,
		metrics,
		func() []healthcheck.Target { return []healthcheck.Target{target} },
		2,
		time.Second,
		false,
	)

	s.RunTick(context.Background())
	s.RunTick(context.Background())

	assert.Len(t, sink.events, 1, "second tick with unchanged state should not re-emit")
}

func TestScheduler_RunTick_LogAllChecksEmitsEveryTick(t *testing.T) {
	target := newTestTarget(t, "a")
	prober := &stubProber{kind: healthcheck.KindHTTP, results: []healthcheck.Result{healthcheck.NewSuccessResult(10 * time.Millisecond, "ok")}}
	sink := &recordingSink{}
	metrics := selfmetrics.New(prometheus.NewRegistry())

	s := scheduler.New(
		scheduler.Probers{HTTP: prober, Database: prober},
		breaker.NewRegistry(),
		tracker.New(),
		sink,
		metrics,
		func() []healthcheck.Target { return []healthcheck.Target{target} },
		2,
		time.Second,
		true,
	)

	s.RunTick(context.Background())
	s.RunTick(context.Background())

	assert.Len(t, sink.events, 2)
}

func TestScheduler_RunTick_UpdatesActiveTargetsAndOpenBreakers(t *testing.T) {
	a := newTestTarget(t, "a")
	b := newTestTarget(t, "b")
	prober := &stubProber{kind: healthcheck.KindHTTP, results: []healthcheck.Result{healthcheck.NewSuccessResult(5 * time.Millisecond, "ok")}}
	sink := &recordingSink{}
	metrics := selfmetrics.New(prometheus.NewRegistry())

	s := scheduler.New(
		scheduler.Probers{HTTP: prober, Database: prober},
		breaker.NewRegistry(),
		tracker.New(),
		sink,
		metrics,
		func() []healthcheck.Target { return []healthcheck.Target{a, b} },
		4,
		time.Second,
		false,
	)

	s.RunTick(context.Background())

	assert.Equal(t, 2, metrics.Snapshot().ActiveTargets)
	assert.Equal(t, 0, metrics.Snapshot().OpenBreakers)
}

func TestScheduler_Run_OnceRunsExactlyOneTick(t *testing.T) {
	target := newTestTarget(t, "a")
	prober := &stubProber{kind: healthcheck.KindHTTP, results: []healthcheck.Result{healthcheck.NewSuccessResult(5 * time.Millisecond, "ok")}}
	sink := &recordingSink{}
	metrics := selfmetrics.New(prometheus.NewRegistry())

	s := scheduler.New(
		scheduler.Probers{HTTP: prober, Database: prober},
		breaker.NewRegistry(),
		tracker.New(),
		sink,
		metrics,
		func() []healthcheck.Target { return []healthcheck.Target{target} },
		2,
		time.Hour,
		false,
	)

	done := make(chan struct{})
	go func() {
		s.Run(context.Background(), true)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run(once=true) did not return promptly")
	}

	assert.Len(t, sink.events, 1)
}

type recordingView struct {
	calls int
}

func (v *recordingView) Render(snapshot map[string]healthcheck.ProbeOutcome) {
	v.calls++
}

func TestScheduler_RunTick_PushesSnapshotToView(t *testing.T) {
	target := newTestTarget(t, "a")
	prober := &stubProber{kind: healthcheck.KindHTTP, results: []healthcheck.Result{healthcheck.NewSuccessResult(10 * time.Millisecond, "ok")}}
	sink := &recordingSink{}
	metrics := selfmetrics.New(prometheus.NewRegistry())

	s := scheduler.New(
		scheduler.Probers{HTTP: prober, Database: prober},
		breaker.NewRegistry(),
		tracker.New(),
		sink,
		metrics,
		func() []healthcheck.Target { return []healthcheck.Target{target} },
		2,
		time.Second,
		false,
	)

	view := &recordingView{}
	s.SetView(view)

	s.RunTick(context.Background())
	s.RunTick(context.Background())

	assert.Equal(t, 2, view.calls)
}

func TestScheduler_Shutdown_StopsLoopBetweenTicks(t *testing.T) {
	target := newTestTarget(t, "a")
	prober := &stubProber{kind: healthcheck.KindHTTP, results: []healthcheck.Result{healthcheck.NewSuccessResult(5 * time.Millisecond, "ok")}}
	sink := &recordingSink{}
	metrics := selfmetrics.New(prometheus.NewRegistry())

	s := scheduler.New(
		scheduler.Probers{HTTP: prober, Database: prober},
		breaker.NewRegistry(),
		tracker.New(),
		sink,
		metrics,
		func() []healthcheck.Target { return []healthcheck.Target{target} },
		2,
		2*time.Second,
		false,
	)

	done := make(chan struct{})
	go func() {
		s.Run(context.Background(), false)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	s.Shutdown()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop promptly after Shutdown")
	}
}
