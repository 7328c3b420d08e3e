// Package selfmetrics tracks the monitor's own operational counters and
// exposes them both as a JSON report and as live Prometheus collectors.
package selfmetrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// latencyWindowSize is the size of the sliding window used for the average-latency statistic.
const latencyWindowSize = 100

// SelfStatus is the monitor's own derived health status.
type SelfStatus int

const (
	// StatusHealthy means no open breakers, success rate >= 95%, no recent ERROR diagnostics.
	StatusHealthy SelfStatus = iota
	// StatusDegraded means a reduced success rate or elevated WARN volume, but no open breakers.
	StatusDegraded
	// StatusUnhealthy means at least one open breaker or a recent ERROR diagnostic.
	StatusUnhealthy
)

// String returns the lowercase name of the status.
//
// Returns:
//   - string: "healthy", "degraded", "unhealthy", or "unknown" for an unrecognized value.
func (s SelfStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Metrics accumulates operational counters under a single mutex and mirrors
// them onto Prometheus collectors for live scraping.
type Metrics struct {
	mu sync.Mutex

	totalProbes      int64
	successfulProbes int64
	failedProbes     int64
	retryAttempts    int64
	activeTargets    int
	openBreakers     int

	latencies    [latencyWindowSize]time.Duration
	latencyCount int
	latencyNext  int

	recentErrors int
	recentWarns  int

	now func() time.Time

	probesTotal   *prometheus.CounterVec
	retriesTotal  prometheus.Counter
	latencySecs   prometheus.Histogram
	activeGauge   prometheus.Gauge
	openBreakersG prometheus.Gauge
}

// New creates a Metrics collector and registers its Prometheus instruments
// on reg. Passing a dedicated registry (rather than the global default)
// keeps repeated test construction collision-free.
//
// Params:
//   - reg: the Prometheus registerer to attach collectors to.
//
// Returns:
//   - *Metrics: the created collector.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		now: time.Now,
		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthwatch",
			Name:      "probes_total",
			Help:      "Total number of completed probe attempts by outcome.",
		}, []string{"outcome"}),
		retriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "healthwatch",
			Name:      "retry_attempts_total",
			Help:      "Total number of retry attempts issued by the retry envelope.",
		}),
		latencySecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "healthwatch",
			Name:      "probe_latency_seconds",
			Help:      "Observed probe latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		activeGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "healthwatch",
			Name:      "active_targets",
			Help:      "Number of targets in the current configuration generation.",
		}),
		openBreakersG: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "healthwatch",
			Name:      "open_breakers",
			Help:      "Number of targets whose circuit breaker is currently open.",
		}),
	}

	reg.MustRegister(m.probesTotal, m.retriesTotal, m.latencySecs, m.activeGauge, m.openBreakersG)
	return m
}

// RecordProbe records the outcome and latency of one completed (post-retry,
// post-breaker) probe.
//
// Params:
//   - success: whether the probe ultimately succeeded.
//   - latency: the probe's latency.
func (m *Metrics) RecordProbe(success bool, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalProbes++
	if success {
		m.successfulProbes++
		m.probesTotal.WithLabelValues("success").Inc()
	} else {
		m.failedProbes++
		m.probesTotal.WithLabelValues("failure").Inc()
	}

	m.latencies[m.latencyNext] = latency
	m.latencyNext = (m.latencyNext + 1) % latencyWindowSize
	if m.latencyCount < latencyWindowSize {
		m.latencyCount++
	}
	m.latencySecs.Observe(latency.Seconds())
}

// RecordRetry increments the retry-attempt counter.
func (m *Metrics) RecordRetry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retryAttempts++
	m.retriesTotal.Inc()
}

// SetActiveTargets sets the current target-set size, called by the
// scheduler at the end of every tick.
//
// Params:
//   - n: the number of targets in the current configuration generation.
func (m *Metrics) SetActiveTargets(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeTargets = n
	m.activeGauge.Set(float64(n))
}

// SetOpenBreakers sets the current count of open circuit breakers.
//
// Params:
//   - n: the number of targets whose breaker is open.
func (m *Metrics) SetOpenBreakers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openBreakers = n
	m.openBreakersG.Set(float64(n))
}

// RecordDiagnostic counts an ERROR or WARN diagnostic for the self-status
// derivation; callers call it once per diagnostic as it is logged. The
// counts cover the whole process lifetime and never decay: they are not
// limited to the last hour, so a single ERROR keeps the status unhealthy and
// more than five WARNs keep it at least degraded until the process restarts.
//
// Params:
//   - level: "error" or "warn"; other values are ignored.
func (m *Metrics) RecordDiagnostic(level string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch level {
	case "error":
		m.recentErrors++
	case "warn":
		m.recentWarns++
	}
}

// Report is the JSON-serializable snapshot of the monitor's self-metrics.
type Report struct {
	TotalProbes      int64     `json:"total_probes"`
	SuccessfulProbes int64     `json:"successful_probes"`
	FailedProbes     int64     `json:"failed_probes"`
	RetryAttempts    int64     `json:"retry_attempts"`
	ActiveTargets    int       `json:"active_targets"`
	OpenBreakers     int       `json:"open_breakers"`
	AverageLatencyMs float64   `json:"average_latency_ms"`
	Status           string    `json:"status"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// Snapshot computes the current Report.
//
// Returns:
//   - Report: a point-in-time snapshot of every counter and the derived status.
func (m *Metrics) Snapshot() Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Report{
		TotalProbes:      m.totalProbes,
		SuccessfulProbes: m.successfulProbes,
		FailedProbes:     m.failedProbes,
		RetryAttempts:    m.retryAttempts,
		ActiveTargets:    m.activeTargets,
		OpenBreakers:     m.openBreakers,
		AverageLatencyMs: m.averageLatencyMsLocked(),
		Status:           m.statusLocked().String(),
		GeneratedAt:      m.now(),
	}
}

// WriteReport serializes the current Report as JSON to path.
//
// Params:
//   - path: the destination file path.
//
// Returns:
//   - error: nil on success, error on marshal or write failure.
func (m *Metrics) WriteReport(path string) error {
	report := m.Snapshot()
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling self-metrics report: %w", err)
	}
	// nosemgrep: go.lang.correctness.permissions.file_permission.incorrect-default-permission
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing self-metrics report: %w", err)
	}
	return nil
}

func (m *Metrics) averageLatencyMsLocked() float64 {
	if m.latencyCount == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < m.latencyCount; i++ {
		sum += m.latencies[i]
	}
	return float64(sum.Milliseconds()) / float64(m.latencyCount)
}

func (m *Metrics) statusLocked() SelfStatus {
	if m.openBreakers > 0 || m.recentErrors > 0 {
		return StatusUnhealthy
	}

	successRate := 1.0
	if m.totalProbes > 0 {
		successRate = float64(m.successfulProbes) / float64(m.totalProbes)
	}

	if successRate < 0.95 || m.recentWarns > 5 {
		return StatusDegraded
	}
	return StatusHealthy
}
