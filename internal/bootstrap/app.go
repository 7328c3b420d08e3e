package bootstrap

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appconfig "github.com/healthwatch/daemon/internal/application/config"
	appjournal "github.com/healthwatch/daemon/internal/application/journal"
	appsupervisor "github.com/healthwatch/daemon/internal/application/supervisor"
	domainlogging "github.com/healthwatch/daemon/internal/domain/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// version is the application version, set at build time via ldflags.
var version string = "dev"

// Flag defaults per the command-line contract.
const (
	defaultConfigDir       string = "config"
	defaultLogDir          string = "logs"
	defaultIntervalSeconds int    = 300
)

// Options holds the parsed command-line surface of the supervisor.
type Options struct {
	// ConfigDir is the directory containing websites.json, databases.json,
	// and the optional settings.yaml.
	ConfigDir string
	// LogDir is the journal directory.
	LogDir string
	// Interval is the tick period.
	Interval time.Duration
	// IntervalSet records whether --interval was given explicitly, so the
	// flag can take precedence over settings.yaml.
	IntervalSet bool
	// LogAllChecks emits a journal record on every probe, not just transitions.
	LogAllChecks bool
	// LogAllChecksSet records whether --log-all-checks was given explicitly.
	LogAllChecksSet bool
	// Once runs exactly one tick and exits (cron-style single-shot mode).
	Once bool
}

// Run is the main entry point called from cmd/healthwatch/main.go. It parses
// flags, initializes the application via Wire, installs signal handling, and
// drives the supervisor until shutdown.
//
// Returns:
//   - int: the process exit code (0 normal shutdown, 1 initialization
//     failure, 2 unrecoverable runtime error).
func Run() int {
	opts := parseFlags(os.Args[1:])
	return RunWithOptions(opts)
}

// parseFlags parses the supervisor's command-line surface from args.
//
// Params:
//   - args: the raw arguments, without the program name.
//
// Returns:
//   - Options: the parsed options.
func parseFlags(args []string) Options {
	fs := flag.NewFlagSet("healthwatch", flag.ExitOnError)

	configDir := fs.String("config-dir", defaultConfigDir, "directory containing websites.json and databases.json")
	logDir := fs.String("log-dir", defaultLogDir, "directory for journal files")
	interval := fs.Int("interval", defaultIntervalSeconds, "seconds between ticks")
	logAllChecks := fs.Bool("log-all-checks", false, "journal every probe, not just transitions")
	once := fs.Bool("once", false, "run exactly one tick and exit")
	showVersion := fs.Bool("version", false, "show version and exit")
	_ = fs.Parse(args)

	if *showVersion {
		fmt.Printf("healthwatch %s\n", version)
		os.Exit(0)
	}

	opts := Options{
		ConfigDir:    *configDir,
		LogDir:       *logDir,
		Interval:     time.Duration(*interval) * time.Second,
		LogAllChecks: *logAllChecks,
		Once:         *once,
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "interval":
			opts.IntervalSet = true
		case "log-all-checks":
			opts.LogAllChecksSet = true
		}
	})
	return opts
}

// RunWithOptions executes the main application logic. Exported for testing.
//
// Params:
//   - opts: the parsed command-line options.
//
// Returns:
//   - int: the process exit code.
func RunWithOptions(opts Options) int {
	// Settings are loaded once here (and again inside the injector) so flag
	// precedence over settings.yaml can be resolved before wiring.
	settings, err := appconfig.LoadSettings(opts.ConfigDir + "/settings.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return appsupervisor.ExitInitFailure
	}

	interval := settings.Interval
	if opts.IntervalSet {
		interval = opts.Interval
	}
	logAllChecks := settings.LogAllChecks
	if opts.LogAllChecksSet {
		logAllChecks = opts.LogAllChecks
	}

	app, err := InitializeApp(ConfigDir(opts.ConfigDir), LogDir(opts.LogDir), TickInterval(interval), LogAllChecks(logAllChecks))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize: %v\n", err)
		writeInitFailureRecord(opts.LogDir, err)
		return appsupervisor.ExitInitFailure
	}
	defer app.Cleanup()

	app.Logger.Log(domainlogging.LevelInfo, "", "daemon_started", "health monitor started", map[string]any{
		"version":  version,
		"interval": interval.String(),
	})

	compactJournal(app, opts.LogDir)

	if srv := startMetricsServer(app); srv != nil {
		defer func() { _ = srv.Close() }()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	go handleSignals(sigCh, app)

	return app.Supervisor.Run(ctx, opts.Once)
}

// handleSignals services the signal channel: SIGTERM and SIGINT initiate
// graceful shutdown (in-flight probes finish up to their own timeouts);
// SIGHUP writes the self-metrics JSON report when a report path is configured.
func handleSignals(sigCh <-chan os.Signal, app *App) {
	for sig := range sigCh {
		switch sig {
		case syscall.SIGHUP:
			writeMetricsReport(app)
		default:
			app.Supervisor.Shutdown()
			return
		}
	}
}

// startMetricsServer exposes the self-metrics collectors on /metrics when a
// listen address is configured. The scrape endpoint is best-effort: a bind
// failure is logged and the monitor keeps running.
//
// Returns:
//   - *http.Server: the running server, or nil when exposition is disabled.
func startMetricsServer(app *App) *http.Server {
	addr := app.Settings.Metrics.ListenAddress
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(app.MetricsRegistry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Log(domainlogging.LevelError, "", "metrics_listener", fmt.Sprintf("metrics endpoint failed: %v", err), map[string]any{"addr": addr})
		}
	}()

	app.Logger.Log(domainlogging.LevelInfo, "", "metrics_listener", "metrics endpoint listening", map[string]any{"addr": addr})
	return srv
}

// writeMetricsReport exports the current self-metrics snapshot to the
// configured report path, if any.
func writeMetricsReport(app *App) {
	path := app.Settings.Metrics.ReportPath
	if path == "" {
		return
	}
	if err := app.Metrics.WriteReport(path); err != nil {
		app.Logger.Log(domainlogging.LevelError, "", "metrics_report", fmt.Sprintf("failed to write metrics report: %v", err), nil)
		return
	}
	app.Logger.Log(domainlogging.LevelInfo, "", "metrics_report", "metrics report written", map[string]any{"path": path})
}

// compactJournal removes journal files older than the configured retention
// window. Compaction failures are reported but never abort startup.
func compactJournal(app *App, logDir string) {
	removed, err := appjournal.Compact(logDir, app.Settings.Journal.RetentionDays, time.Now())
	if err != nil {
		app.Metrics.RecordDiagnostic("warn")
		app.Logger.Log(domainlogging.LevelWarn, "", "journal_compact", fmt.Sprintf("retention compaction failed: %v", err), nil)
		return
	}
	if removed > 0 {
		app.Logger.Log(domainlogging.LevelInfo, "", "journal_compact", "expired journal files removed", map[string]any{"removed": removed})
	}
}

// writeInitFailureRecord appends a single "error" journal record describing
// an unrecoverable initialization failure, best-effort: if the journal
// directory itself cannot be opened, the failure is reported on stderr only.
func writeInitFailureRecord(logDir string, initErr error) {
	sink, err := appjournal.NewFileSink(logDir)
	if err != nil {
		return
	}
	appsupervisor.WriteInitFailure(sink, fmt.Sprintf("initialization failed: %v", initErr))
}
