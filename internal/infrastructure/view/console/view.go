// Package console is the reference Snapshot View implementation: a
// plain-text renderer that prints the tracker's per-tick snapshot to an
// io.Writer. The core never calls it concurrently and every push is
// internally consistent, so the view itself needs no locking.
package console

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/healthwatch/daemon/internal/domain/healthcheck"
)

// View renders successive tracker snapshots as a simple status table.
type View struct {
	out io.Writer
	now func() time.Time
}

// New creates a View that writes to out.
//
// Params:
//   - out: the destination writer (typically os.Stdout).
//
// Returns:
//   - *View: the created view.
func New(out io.Writer) *View {
	return &View{out: out, now: time.Now}
}

// Render prints one snapshot: a header line with the render time and
// target count, followed by one line per target sorted by name for stable
// output across calls.
//
// Params:
//   - snapshot: the tracker's defensive-copy snapshot for this tick.
func (v *View) Render(snapshot map[string]healthcheck.ProbeOutcome) {
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(v.out, "--- %s (%d targets) ---\n", v.now().Format(time.RFC3339), len(names))

	for _, name := range names {
		outcome := snapshot[name]
		status := "UP"
		detail := fmt.Sprintf("%.0fms", float64(outcome.Latency.Microseconds())/1000)
		if !outcome.Healthy {
			status = "DOWN"
			detail = outcome.Error
		}
		fmt.Fprintf(v.out, "%-8s %-32s %s\n", status, name, detail)
	}
}
