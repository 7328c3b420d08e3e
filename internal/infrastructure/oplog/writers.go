package oplog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/healthwatch/daemon/internal/domain/logging"
	"golang.org/x/term"
)

// ANSI color codes per severity for terminal output.
var levelColors = map[logging.Level]string{
	logging.LevelDebug: "90",
	logging.LevelInfo:  "36",
	logging.LevelWarn:  "33",
	logging.LevelError: "31",
}

// consoleWriter renders one human-readable line per event, colored by
// severity when the destination is a terminal.
type consoleWriter struct {
	mu    sync.Mutex
	out   io.Writer
	color bool
}

func newConsoleWriter(f *os.File) *consoleWriter {
	return &consoleWriter{out: f, color: term.IsTerminal(int(f.Fd()))}
}

// Write implements logging.Writer.
func (w *consoleWriter) Write(e logging.Event) error {
	line := plainLine(e)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.color {
		_, err := fmt.Fprintf(w.out, "\x1b[%sm%s\x1b[0m\n", levelColors[e.Level], line)
		return err
	}
	_, err := fmt.Fprintln(w.out, line)
	return err
}

// Close implements logging.Writer. The console stream is not the writer's
// to close.
func (w *consoleWriter) Close() error {
	return nil
}

// renderFunc turns an event into one line, newline excluded.
type renderFunc func(e logging.Event) ([]byte, error)

// appendWriter appends one rendered line per event to a file, flushing per
// line. It backs both the plain-text and the JSON writer types.
type appendWriter struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	render renderFunc
}

func openAppendWriter(path string, render renderFunc) (*appendWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	// nosemgrep: go.lang.correctness.permissions.file_permission.incorrect-default-permission
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304 -- operator-configured log path
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return &appendWriter{file: f, buf: bufio.NewWriter(f), render: render}, nil
}

// Write implements logging.Writer.
func (w *appendWriter) Write(e logging.Event) error {
	line, err := w.render(e)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.buf.Write(line); err != nil {
		return err
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	return w.buf.Flush()
}

// Close implements logging.Writer.
func (w *appendWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}

// plainLine renders an event as
//
//	2026-08-02T10:15:04Z INFO  daemon_started health monitor started interval=5m0s
//
// with a target=<name> field inserted when the event concerns one target
// and meta keys appended in sorted order for stable output.
func plainLine(e logging.Event) string {
	var b strings.Builder
	b.WriteString(e.At.Format(time.RFC3339))
	fmt.Fprintf(&b, " %-5s %s", e.Level, e.Code)
	if e.Target != "" {
		b.WriteString(" target=")
		b.WriteString(e.Target)
	}
	if e.Message != "" {
		b.WriteByte(' ')
		b.WriteString(e.Message)
	}
	for _, k := range sortedKeys(e.Meta) {
		fmt.Fprintf(&b, " %s=%v", k, e.Meta[k])
	}
	return b.String()
}

func renderPlain(e logging.Event) ([]byte, error) {
	return []byte(plainLine(e)), nil
}

func renderJSON(e logging.Event) ([]byte, error) {
	entry := struct {
		TS      string         `json:"ts"`
		Level   string         `json:"level"`
		Target  string         `json:"target,omitempty"`
		Code    string         `json:"code"`
		Message string         `json:"message,omitempty"`
		Meta    map[string]any `json:"meta,omitempty"`
	}{
		TS:      e.At.Format(time.RFC3339),
		Level:   e.Level.String(),
		Target:  e.Target,
		Code:    e.Code,
		Message: e.Message,
		Meta:    e.Meta,
	}
	return json.Marshal(entry)
}

func sortedKeys(m map[string]any) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
