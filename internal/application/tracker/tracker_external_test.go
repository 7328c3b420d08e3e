package tracker_test

import (
	"testing"
	"time"

	"github.com/healthwatch/daemon/internal/application/tracker"
	"github.com/healthwatch/daemon/internal/domain/healthcheck"
	"github.com/healthwatch/daemon/internal/domain/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func websiteType(string) journal.TargetType { return journal.TargetWebsite }

func TestTracker_FirstObservationEmitsUnknownTransition(t *testing.T) {
	tr := tracker.New()

	events := tr.Apply(map[string]healthcheck.ProbeOutcome{
		"A": {TargetName: "A", Healthy: true, Latency: 420 * time.Millisecond},
	}, websiteType, false)

	require.Len(t, events, 1)
	assert.Equal(t, "unknown->up", events[0].StatusChange())
	assert.Equal(t, "Response time: 0.42s", events[0].Detail)
}

func TestTracker_UpToDownTransition(t *testing.T) {
	tr := tracker.New()
	tr.Apply(map[string]healthcheck.ProbeOutcome{"A": {TargetName: "A", Healthy: true}}, websiteType, false)

	events := tr.Apply(map[string]healthcheck.ProbeOutcome{
		"A": {TargetName: "A", Healthy: false, Error: "Connection error: refused"},
	}, websiteType, false)

	require.Len(t, events, 1)
	assert.Equal(t, "up->down", events[0].StatusChange())
	assert.Equal(t, "Error: Connection error: refused", events[0].Detail)
}

func TestTracker_NoChangeEmitsNothingUnlessLogAllChecks(t *testing.T) {
	tr := tracker.New()
	tr.Apply(map[string]healthcheck.ProbeOutcome{"A": {TargetName: "A", Healthy: true}}, websiteType, false)

	events := tr.Apply(map[string]healthcheck.ProbeOutcome{"A": {TargetName: "A", Healthy: true}}, websiteType, false)
	assert.Empty(t, events)

	events = tr.Apply(map[string]healthcheck.ProbeOutcome{"A": {TargetName: "A", Healthy: true}}, websiteType, true)
	require.Len(t, events, 1)
	assert.Equal(t, "up", events[0].StatusChange())
}

func TestTracker_Snapshot_IsDefensiveCopy(t *testing.T) {
	tr := tracker.New()
	tr.Apply(map[string]healthcheck.ProbeOutcome{"A": {TargetName: "A", Healthy: true}}, websiteType, false)

	snap := tr.Snapshot()
	snap["A"] = healthcheck.ProbeOutcome{TargetName: "A", Healthy: false}

	snap2 := tr.Snapshot()
	assert.True(t, snap2["A"].Healthy, "mutating a returned snapshot must not affect tracker state")
}

func TestTracker_Forget_RemovesPriorMemory(t *testing.T) {
	tr := tracker.New()
	tr.Apply(map[string]healthcheck.ProbeOutcome{"A": {TargetName: "A", Healthy: true}}, websiteType, false)

	tr.Forget(map[string]struct{}{})

	events := tr.Apply(map[string]healthcheck.ProbeOutcome{"A": {TargetName: "A", Healthy: true}}, websiteType, false)
	require.Len(t, events, 1)
	assert.Equal(t, "unknown->up", events[0].StatusChange(), "a forgotten target re-observes from unknown")
}
