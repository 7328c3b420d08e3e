package selfmetrics_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/healthwatch/daemon/internal/application/selfmetrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_HealthyByDefault(t *testing.T) {
	m := selfmetrics.New(prometheus.NewRegistry())
	report := m.Snapshot()
	assert.Equal(t, "healthy", report.Status)
}

func TestMetrics_DegradedOnLowSuccessRate(t *testing.T) {
	m := selfmetrics.New(prometheus.NewRegistry())
	for i := 0; i < 10; i++ {
		m.RecordProbe(i < 5, 10*time.Millisecond)
	}

	report := m.Snapshot()
	assert.Equal(t, "degraded", report.Status)
	assert.Equal(t, int64(10), report.TotalProbes)
	assert.Equal(t, int64(5), report.SuccessfulProbes)
}

func TestMetrics_UnhealthyWithOpenBreaker(t *testing.T) {
	m := selfmetrics.New(prometheus.NewRegistry())
	for i := 0; i < 10; i++ {
		m.RecordProbe(true, 10*time.Millisecond)
	}
	m.SetOpenBreakers(1)

	assert.Equal(t, "unhealthy", m.Snapshot().Status)
}

func TestMetrics_AverageLatencyWindow(t *testing.T) {
	m := selfmetrics.New(prometheus.NewRegistry())
	for i := 0; i < 150; i++ {
		m.RecordProbe(true, 100*time.Millisecond)
	}
	report := m.Snapshot()
	assert.InDelta(t, 100.0, report.AverageLatencyMs, 0.001)
}

func TestMetrics_WriteReport(t *testing.T) {
	m := selfmetrics.New(prometheus.NewRegistry())
	m.RecordProbe(true, 5*time.Millisecond)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, m.WriteReport(path))
}
