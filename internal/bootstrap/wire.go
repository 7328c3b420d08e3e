//go:build wireinject

package bootstrap

import (
	"github.com/google/wire"
)

// InitializeApp creates the application with all dependencies wired. This
// function is the injector that Wire generates wire_gen.go from; it is
// never compiled directly (see the wireinject build tag above).
//
// Params:
//   - configDir: the directory containing websites.json, databases.json, and settings.yaml.
//   - logDir: the directory for the journal and operational log writers.
//   - interval: the tick period.
//   - logAllChecks: whether to emit a journal record on every probe, not just transitions.
//
// Returns:
//   - *App: the fully wired application.
//   - error: any error during dependency construction.
func InitializeApp(configDir ConfigDir, logDir LogDir, interval TickInterval, logAllChecks LogAllChecks) (*App, error) {
	wire.Build(
		ProvideSettings,
		ProvideSource,
		ProvideProbers,
		ProvideBreakerRegistry,
		ProvideTracker,
		ProvideSink,
		ProvideMetricsRegistry,
		ProvideMetrics,
		ProvideView,
		ProvideWorkerPool,
		ProvideLogger,
		ProvideScheduler,
		ProvideSupervisor,
		NewApp,
	)
	return nil, nil
}
