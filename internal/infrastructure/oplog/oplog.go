// Package oplog implements the operational-diagnostics port over a set of
// leveled writers declared in settings.yaml. One logger fans each event out
// to every writer whose minimum level admits it; the monitor runs with a
// bare console writer when nothing is configured.
package oplog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/healthwatch/daemon/internal/domain/logging"
)

// Writer type names accepted in settings.yaml.
const (
	writerConsole = "console"
	writerFile    = "file"
	writerJSON    = "json"
)

// WriterConfig declares one diagnostic destination.
type WriterConfig struct {
	// Type is "console", "file", or "json".
	Type string
	// Level is the minimum severity this writer receives; empty means info.
	Level string
	// Path is the output file for file and json writers, resolved against
	// the monitor's log directory when relative.
	Path string
}

// Config is the full writer declaration from settings.yaml.
type Config struct {
	Writers []WriterConfig
}

// sink pairs a writer with its minimum level.
type sink struct {
	min logging.Level
	w   logging.Writer
}

// fanout is the logging.Logger implementation: it stamps each event and
// hands it to every sink that admits the event's level.
type fanout struct {
	sinks []sink
	now   func() time.Time
}

// Build constructs the diagnostics logger from cfg. With no writers
// configured it falls back to an info-level console writer, so the monitor
// always has somewhere to report problems.
//
// Params:
//   - cfg: the writer declarations.
//   - baseDir: the directory relative writer paths resolve against.
//
// Returns:
//   - logging.Logger: the ready logger.
//   - error: non-nil when a writer declaration is invalid or its file
//     cannot be opened; writers opened before the failure are closed.
func Build(cfg Config, baseDir string) (logging.Logger, error) {
	writers := cfg.Writers
	if len(writers) == 0 {
		writers = []WriterConfig{{Type: writerConsole}}
	}

	sinks := make([]sink, 0, len(writers))
	fail := func(err error) (logging.Logger, error) {
		for _, s := range sinks {
			_ = s.w.Close()
		}
		return nil, err
	}

	for _, wc := range writers {
		min, err := logging.ParseLevel(wc.Level)
		if err != nil {
			return fail(fmt.Errorf("writer %q: %w", wc.Type, err))
		}
		w, err := openWriter(wc, baseDir)
		if err != nil {
			return fail(fmt.Errorf("writer %q: %w", wc.Type, err))
		}
		sinks = append(sinks, sink{min: min, w: w})
	}

	return &fanout{sinks: sinks, now: time.Now}, nil
}

func openWriter(wc WriterConfig, baseDir string) (logging.Writer, error) {
	switch wc.Type {
	case writerConsole, "":
		return newConsoleWriter(os.Stderr), nil
	case writerFile:
		path, err := resolvePath(wc.Path, baseDir)
		if err != nil {
			return nil, err
		}
		return openAppendWriter(path, renderPlain)
	case writerJSON:
		path, err := resolvePath(wc.Path, baseDir)
		if err != nil {
			return nil, err
		}
		return openAppendWriter(path, renderJSON)
	default:
		return nil, fmt.Errorf("unknown writer type %q", wc.Type)
	}
}

func resolvePath(path, baseDir string) (string, error) {
	if path == "" {
		return "", errors.New("writer requires a path")
	}
	if filepath.IsAbs(path) || baseDir == "" {
		return path, nil
	}
	return filepath.Join(baseDir, path), nil
}

// Log implements logging.Logger.
func (f *fanout) Log(level logging.Level, target, code, message string, meta map[string]any) {
	e := logging.Event{
		At:      f.now(),
		Level:   level,
		Target:  target,
		Code:    code,
		Message: message,
		Meta:    meta,
	}
	for _, s := range f.sinks {
		if e.Level < s.min {
			continue
		}
		if err := s.w.Write(e); err != nil {
			fmt.Fprintf(os.Stderr, "oplog: %s write failed: %v\n", e.Code, err)
		}
	}
}

// Close implements logging.Logger.
func (f *fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ logging.Logger = (*fanout)(nil)
