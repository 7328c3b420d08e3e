package console_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/healthwatch/daemon/internal/domain/healthcheck"
	"github.com/healthwatch/daemon/internal/infrastructure/view/console"
	"github.com/stretchr/testify/assert"
)

func TestView_Render_SortsTargetsByName(t *testing.T) {
	var buf bytes.Buffer
	view := console.New(&buf)

	snapshot := map[string]healthcheck.ProbeOutcome{
		"zeta":  {Healthy: true, Latency: 10 * time.Millisecond},
		"alpha": {Healthy: true, Latency: 5 * time.Millisecond},
	}

	view.Render(snapshot)

	out := buf.String()
	assert.Less(t, indexOf(out, "alpha"), indexOf(out, "zeta"))
}

func TestView_Render_FormatsUpAndDownLines(t *testing.T) {
	var buf bytes.Buffer
	view := console.New(&buf)

	snapshot := map[string]healthcheck.ProbeOutcome{
		"healthy-svc": {Healthy: true, Latency: 42 * time.Millisecond},
		"broken-svc":  {Healthy: false, Error: errors.New("connect failed").Error()},
	}

	view.Render(snapshot)

	out := buf.String()
	assert.Contains(t, out, "UP")
	assert.Contains(t, out, "healthy-svc")
	assert.Contains(t, out, "DOWN")
	assert.Contains(t, out, "broken-svc")
	assert.Contains(t, out, "connect failed")
}

func TestView_Render_EmptySnapshotPrintsHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	view := console.New(&buf)

	view.Render(map[string]healthcheck.ProbeOutcome{})

	assert.Contains(t, buf.String(), "0 targets")
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
