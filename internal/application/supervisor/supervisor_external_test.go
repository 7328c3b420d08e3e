package supervisor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/healthwatch/daemon/internal/application/breaker"
	appconfig "github.com/healthwatch/daemon/internal/application/config"
	appjournal "github.com/healthwatch/daemon/internal/application/journal"
	"github.com/healthwatch/daemon/internal/application/scheduler"
	"github.com/healthwatch/daemon/internal/application/selfmetrics"
	"github.com/healthwatch/daemon/internal/application/supervisor"
	"github.com/healthwatch/daemon/internal/application/tracker"
	"github.com/healthwatch/daemon/internal/domain/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alwaysUpProber struct{ kind healthcheck.Kind }

func (p alwaysUpProber) Probe(ctx context.Context, target healthcheck.Target) healthcheck.Result {
	return healthcheck.NewSuccessResult(time.Millisecond, "ok")
}

func (p alwaysUpProber) Kind() healthcheck.Kind { return p.kind }

func writeConfigFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func newHarness(t *testing.T, configDir, journalDir string) (*supervisor.Supervisor, appjournal.Sink) {
	t.Helper()

	source, err := appconfig.NewSource(configDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = source.Close() })

	sink, err := appjournal.NewFileSink(journalDir)
	require.NoError(t, err)

	metrics := selfmetrics.New(prometheus.NewRegistry())
	breakers := breaker.NewRegistry()
	tr := tracker.New()

	probers := scheduler.Probers{HTTP: alwaysUpProber{kind: healthcheck.KindHTTP}, Database: alwaysUpProber{kind: healthcheck.KindDatabase}}
	sched := scheduler.New(probers, breakers, tr, sink, metrics, func() []healthcheck.Target { return source.Current().Targets() }, 2, 50*time.Millisecond, false)

	sup := supervisor.New(source, sched, breakers, tr, sink, metrics, 50*time.Millisecond)
	return sup, sink
}

func TestSupervisor_Run_OnceWritesRunningAndShutdownRecords(t *testing.T) {
	configDir := t.TempDir()
	journalDir := t.TempDir()
	writeConfigFile(t, configDir, "websites.json", `{"websites":[{"name":"A","url":"https://a.test"}]}`)

	sup, sink := newHarness(t, configDir, journalDir)

	code := sup.Run(context.Background(), true)
	assert.Equal(t, supervisor.ExitOK, code)
	assert.Equal(t, supervisor.StateShutdownComplete, sup.State())

	_ = sink

	fileSink, ok := sink.(*appjournal.FileSink)
	require.True(t, ok)
	records, err := fileSink.EntriesForLastDays(1)
	require.NoError(t, err)

	var sawRunning, sawShutdownComplete, sawShutdownForA bool
	for _, r := range records {
		switch r.StatusChange {
		case "unknown->running":
			sawRunning = true
		case "shutting_down->shutdown_complete":
			sawShutdownComplete = true
		}
		if r.TargetName == "A" && r.StatusChange == "up->shutdown" {
			sawShutdownForA = true
		}
	}
	assert.True(t, sawRunning, "expected a running lifecycle record")
	assert.True(t, sawShutdownComplete, "expected a shutdown_complete lifecycle record")
	assert.True(t, sawShutdownForA, "expected a shutdown record for target A")
}

func TestSupervisor_Shutdown_StopsLoopBetweenTicks(t *testing.T) {
	configDir := t.TempDir()
	journalDir := t.TempDir()
	writeConfigFile(t, configDir, "websites.json", `{"websites":[{"name":"A","url":"https://a.test"}]}`)

	sup, _ := newHarness(t, configDir, journalDir)

	done := make(chan int, 1)
	go func() {
		done <- sup.Run(context.Background(), false)
	}()

	time.Sleep(30 * time.Millisecond)
	sup.Shutdown()

	select {
	case code := <-done:
		assert.Equal(t, supervisor.ExitOK, code)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop promptly after Shutdown")
	}
}

func TestSupervisor_Run_ContextCancellationTriggersShutdown(t *testing.T) {
	configDir := t.TempDir()
	journalDir := t.TempDir()
	writeConfigFile(t, configDir, "websites.json", `{"websites":[{"name":"A","url":"https://a.test"}]}`)

	sup, _ := newHarness(t, configDir, journalDir)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		done <- sup.Run(ctx, false)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case code := <-done:
		assert.Equal(t, supervisor.ExitOK, code)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop promptly after context cancellation")
	}
}

func TestWriteInitFailure_WritesErrorRecordAndClosesSink(t *testing.T) {
	journalDir := t.TempDir()
	sink, err := appjournal.NewFileSink(journalDir)
	require.NoError(t, err)

	supervisor.WriteInitFailure(sink, "no targets configured")

	records, err := sink.EntriesForLastDays(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "unknown->error", records[0].StatusChange)
}
