// Package bootstrap wires the monitor's dependency graph using Google Wire.
// It isolates dependency construction from the process entry point.
package bootstrap

import (
	"fmt"
	"os"
	"time"

	appbreaker "github.com/healthwatch/daemon/internal/application/breaker"
	appconfig "github.com/healthwatch/daemon/internal/application/config"
	appjournal "github.com/healthwatch/daemon/internal/application/journal"
	appscheduler "github.com/healthwatch/daemon/internal/application/scheduler"
	"github.com/healthwatch/daemon/internal/application/selfmetrics"
	appsupervisor "github.com/healthwatch/daemon/internal/application/supervisor"
	"github.com/healthwatch/daemon/internal/application/tracker"
	"github.com/healthwatch/daemon/internal/domain/healthcheck"
	domainlogging "github.com/healthwatch/daemon/internal/domain/logging"
	"github.com/healthwatch/daemon/internal/infrastructure/oplog"
	probedb "github.com/healthwatch/daemon/internal/infrastructure/probe/db"
	probehttp "github.com/healthwatch/daemon/internal/infrastructure/probe/http"
	"github.com/healthwatch/daemon/internal/infrastructure/view/console"
	"github.com/prometheus/client_golang/prometheus"
)

// ConfigDir, LogDir, TickInterval, LogAllChecks, and WorkerPool are distinct
// wire-injectable types wrapping the command-line parameters and the
// settings-derived pool size; plain
// strings/bools/durations/ints would be indistinguishable to Wire's
// type-keyed provider graph.
type (
	ConfigDir    string
	LogDir       string
	TickInterval time.Duration
	LogAllChecks bool
	WorkerPool   int
)

// App holds the fully wired application, ready to run.
type App struct {
	Supervisor      *appsupervisor.Supervisor
	Logger          domainlogging.Logger
	Settings        appconfig.Settings
	Metrics         *selfmetrics.Metrics
	MetricsRegistry *prometheus.Registry
	Cleanup         func()
}

// ProvideSettings loads the ambient settings document from <configDir>/settings.yaml.
//
// Params:
//   - dir: the configuration directory.
//
// Returns:
//   - appconfig.Settings: the loaded (or defaulted) settings.
//   - error: nil on success, error on malformed YAML.
func ProvideSettings(dir ConfigDir) (appconfig.Settings, error) {
	return appconfig.LoadSettings(string(dir) + "/settings.yaml")
}

// ProvideSource constructs the target-set Source rooted at the configuration directory.
//
// Params:
//   - dir: the configuration directory.
//
// Returns:
//   - *appconfig.Source: the created, already-loaded source.
//   - error: ErrNoTargetsConfigured, or any validation/read error from the initial load.
func ProvideSource(dir ConfigDir) (*appconfig.Source, error) {
	return appconfig.NewSource(string(dir))
}

// ProvideProbers wires the concrete HTTP and database probers.
//
// Returns:
//   - appscheduler.Probers: the family-to-prober mapping.
func ProvideProbers() appscheduler.Probers {
	return appscheduler.Probers{
		HTTP:     probehttp.New(),
		Database: probedb.New(),
	}
}

// ProvideBreakerRegistry creates an empty circuit breaker registry.
//
// Returns:
//   - *appbreaker.Registry: the created registry.
func ProvideBreakerRegistry() *appbreaker.Registry {
	return appbreaker.NewRegistry()
}

// ProvideTracker creates an empty state tracker.
//
// Returns:
//   - *tracker.Tracker: the created tracker.
func ProvideTracker() *tracker.Tracker {
	return tracker.New()
}

// ProvideSink creates the file-backed journal sink rooted at the log directory.
//
// Params:
//   - dir: the journal/log directory.
//
// Returns:
//   - appjournal.Sink: the created sink.
//   - error: nil on success, error if the directory could not be created.
func ProvideSink(dir LogDir) (appjournal.Sink, error) {
	sink, err := appjournal.NewFileSink(string(dir))
	if err != nil {
		return nil, err
	}
	return sink, nil
}

// ProvideMetricsRegistry creates a fresh Prometheus registry for this process.
//
// Returns:
//   - *prometheus.Registry: the created registry.
func ProvideMetricsRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// ProvideMetrics creates the self-metrics collector, registering its
// collectors on reg.
//
// Params:
//   - reg: the Prometheus registry.
//
// Returns:
//   - *selfmetrics.Metrics: the created collector.
func ProvideMetrics(reg *prometheus.Registry) *selfmetrics.Metrics {
	return selfmetrics.New(reg)
}

// ProvideView creates the console snapshot renderer, writing to stdout.
//
// Returns:
//   - *console.View: the created view.
func ProvideView() *console.View {
	return console.New(os.Stdout)
}

// ProvideWorkerPool resolves the worker pool size from the ambient settings.
//
// Params:
//   - settings: the loaded ambient settings.
//
// Returns:
//   - WorkerPool: the resolved pool size.
func ProvideWorkerPool(settings appconfig.Settings) WorkerPool {
	return WorkerPool(settings.WorkerPoolSize)
}

// ProvideLogger builds the operational diagnostics logger from the ambient
// settings' writer configuration.
//
// Params:
//   - settings: the loaded ambient settings.
//   - dir: the log directory, used as the base for relative writer paths.
//
// Returns:
//   - domainlogging.Logger: the configured logger.
//   - error: nil on success, error if a configured writer could not be built.
func ProvideLogger(settings appconfig.Settings, dir LogDir) (domainlogging.Logger, error) {
	cfg := oplog.Config{Writers: convertWriters(settings.Logging.Writers)}
	logger, err := oplog.Build(cfg, string(dir))
	if err != nil {
		return nil, fmt.Errorf("building diagnostics logger: %w", err)
	}
	return logger, nil
}

func convertWriters(writers []appconfig.WriterSettings) []oplog.WriterConfig {
	out := make([]oplog.WriterConfig, 0, len(writers))
	for _, w := range writers {
		out = append(out, oplog.WriterConfig{
			Type:  w.Type,
			Level: w.Level,
			Path:  w.File.Path,
		})
	}
	return out
}

// ProvideScheduler wires the tick-loop scheduler, reading the live target
// set from source on every tick via Source.Current.
//
// Returns:
//   - *appscheduler.Scheduler: the wired scheduler.
func ProvideScheduler(
	probers appscheduler.Probers,
	breakers *appbreaker.Registry,
	tr *tracker.Tracker,
	sink appjournal.Sink,
	metrics *selfmetrics.Metrics,
	source *appconfig.Source,
	settings appconfig.Settings,
	pool WorkerPool,
	interval TickInterval,
	logAllChecks LogAllChecks,
	view *console.View,
	logger domainlogging.Logger,
) *appscheduler.Scheduler {
	targetSet := func() []healthcheck.Target {
		return source.Current().Targets()
	}

	sched := appscheduler.New(probers, breakers, tr, sink, metrics, targetSet, int(pool), time.Duration(interval), bool(logAllChecks))
	sched.SetPolicyResolver(settings.PolicyFor)
	sched.SetView(view)
	sched.SetLogger(logger)
	return sched
}

// ProvideSupervisor wires the Supervisor from its components.
//
// Returns:
//   - *appsupervisor.Supervisor: the wired, not-yet-started supervisor.
func ProvideSupervisor(
	source *appconfig.Source,
	sched *appscheduler.Scheduler,
	breakers *appbreaker.Registry,
	tr *tracker.Tracker,
	sink appjournal.Sink,
	metrics *selfmetrics.Metrics,
	interval TickInterval,
	logger domainlogging.Logger,
) *appsupervisor.Supervisor {
	sup := appsupervisor.New(source, sched, breakers, tr, sink, metrics, time.Duration(interval))
	sup.SetLogger(logger)
	return sup
}

// NewApp assembles the final App from the supervisor and logger, wiring a
// Cleanup that closes the config source's file watcher and the logger.
//
// Returns:
//   - *App: the fully wired application.
func NewApp(sup *appsupervisor.Supervisor, logger domainlogging.Logger, source *appconfig.Source, settings appconfig.Settings, metrics *selfmetrics.Metrics, reg *prometheus.Registry) *App {
	return &App{
		Supervisor:      sup,
		Logger:          logger,
		Settings:        settings,
		Metrics:         metrics,
		MetricsRegistry: reg,
		Cleanup: func() {
			_ = source.Close()
			_ = logger.Close()
		},
	}
}
