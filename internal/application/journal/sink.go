// Package journal provides the file-backed Sink that appends
// newline-delimited JSON status-change records with daily rotation.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	domainjournal "github.com/healthwatch/daemon/internal/domain/journal"
)

// filePrefix and fileDateLayout define the journal file naming scheme:
// health_monitor_YYYYMMDD.log.
const (
	filePrefix     = "health_monitor_"
	fileExtension  = ".log"
	fileDateLayout = "20060102"
)

// dirPermissions and filePermissions mirror the restrictive modes used
// elsewhere in this daemon's file-backed writers.
const (
	dirPermissions  os.FileMode = 0o750
	filePermissions os.FileMode = 0o600
)

// Sink is the domain port a journal writer implements.
type Sink interface {
	// Append writes one transition event as a journal record.
	//
	// Returns:
	//   - error: nil on success, error on failure. Sink errors are logged and
	//     counted by the caller; they never abort the process.
	Append(event domainjournal.TransitionEvent) error
	// Close flushes and releases the sink's resources.
	Close() error
}

// FileSink is the file-backed Sink implementation: one file per calendar
// date, opened lazily and rotated automatically when the date changes.
type FileSink struct {
	mu  sync.Mutex
	dir string

	currentDate string
	file        *os.File
	writer      *bufio.Writer

	now func() time.Time
}

// NewFileSink creates a FileSink rooted at dir, creating the directory if
// it does not exist.
//
// Params:
//   - dir: the journal directory.
//
// Returns:
//   - *FileSink: the created sink.
//   - error: nil on success, error if the directory could not be created.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}
	return &FileSink{dir: dir, now: time.Now}, nil
}

// Append writes one record to today's journal file, rotating to a new file
// if the calendar date has advanced since the last write.
//
// Params:
//   - event: the transition event to persist.
//
// Returns:
//   - error: nil on success, error on I/O failure.
func (s *FileSink) Append(event domainjournal.TransitionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := event.ObservedAt.In(time.UTC).Format(fileDateLayout)
	if date != s.currentDate {
		if err := s.rotate(date); err != nil {
			return err
		}
	}

	line, err := json.Marshal(event.ToRecord())
	if err != nil {
		return fmt.Errorf("marshaling journal record: %w", err)
	}

	if _, err := s.writer.Write(line); err != nil {
		return fmt.Errorf("writing journal record: %w", err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("writing journal record: %w", err)
	}
	// Flush every line so a crash leaves at most one partial trailing line.
	return s.writer.Flush()
}

func (s *FileSink) rotate(date string) error {
	if s.file != nil {
		if err := s.writer.Flush(); err != nil {
			return fmt.Errorf("flushing prior journal file: %w", err)
		}
		if err := s.file.Close(); err != nil {
			return fmt.Errorf("closing prior journal file: %w", err)
		}
	}

	path := filepath.Join(s.dir, filePrefix+date+fileExtension)
	// nosemgrep: go.lang.correctness.permissions.file_permission.incorrect-default-permission
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePermissions)
	if err != nil {
		return fmt.Errorf("opening journal file: %w", err)
	}

	s.file = file
	s.writer = bufio.NewWriter(file)
	s.currentDate = date
	return nil
}

// Close flushes and closes the currently open journal file, if any.
//
// Returns:
//   - error: nil on success, error on failure.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("flushing journal file: %w", err)
	}
	return s.file.Close()
}

// Ensure FileSink implements Sink.
var _ Sink = (*FileSink)(nil)

// EntriesForDate reads and parses every well-formed record in the journal
// file for calendar date d. Malformed lines are skipped.
//
// Params:
//   - d: the calendar date, UTC.
//
// Returns:
//   - []domainjournal.Record: the parsed records, in file order.
//   - error: nil on success (including "file does not exist", which yields
//     an empty slice), error on unexpected I/O failure.
func (s *FileSink) EntriesForDate(d time.Time) ([]domainjournal.Record, error) {
	path := filepath.Join(s.dir, filePrefix+d.Format(fileDateLayout)+fileExtension)
	return readRecords(path)
}

// EntriesForLastDays reads entries for the last k calendar days (inclusive
// of today) and returns them sorted in reverse-chronological order of
// timestamp.
//
// Params:
//   - k: the number of calendar days to include.
//
// Returns:
//   - []domainjournal.Record: the parsed records, newest first.
//   - error: nil on success, error on unexpected I/O failure.
func (s *FileSink) EntriesForLastDays(k int) ([]domainjournal.Record, error) {
	today := s.now().In(time.UTC)
	all := make([]domainjournal.Record, 0)

	for i := 0; i < k; i++ {
		day := today.AddDate(0, 0, -i)
		records, err := s.EntriesForDate(day)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	return all, nil
}

func readRecords(path string) ([]domainjournal.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening journal file: %w", err)
	}
	defer f.Close()

	var records []domainjournal.Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec domainjournal.Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// Malformed line: skip it, per the tolerate-and-skip read contract.
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading journal file: %w", err)
	}
	return records, nil
}

// Compact removes journal files whose date-from-filename is older than
// retentionDays relative to now. Files whose names do not parse as
// health_monitor_YYYYMMDD.log are left alone.
//
// Params:
//   - dir: the journal directory.
//   - retentionDays: the number of days of history to keep.
//   - now: the reference time for age computation.
//
// Returns:
//   - int: the number of files removed.
//   - error: nil on success, error if the directory could not be read.
func Compact(dir string, retentionDays int, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading journal directory: %w", err)
	}

	cutoff := now.In(time.UTC).AddDate(0, 0, -retentionDays)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		date, ok := parseFileDate(entry.Name())
		if !ok {
			continue
		}
		if date.Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				return removed, fmt.Errorf("removing expired journal file %s: %w", entry.Name(), err)
			}
			removed++
		}
	}

	return removed, nil
}

func parseFileDate(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExtension) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileExtension)
	t, err := time.ParseInLocation(fileDateLayout, stamp, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
