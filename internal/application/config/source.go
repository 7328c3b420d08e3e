package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/healthwatch/daemon/internal/domain/healthcheck"
)

// Generation is an immutable snapshot of the target set, published wholesale
// by Source on each successful reload. The scheduler holds one Generation
// at a time and never mutates it in place.
type Generation struct {
	Websites  []healthcheck.Target
	Databases []healthcheck.Target
}

// Targets returns every target across both families.
//
// Returns:
//   - []healthcheck.Target: the combined target set.
func (g Generation) Targets() []healthcheck.Target {
	out := make([]healthcheck.Target, 0, len(g.Websites)+len(g.Databases))
	out = append(out, g.Websites...)
	out = append(out, g.Databases...)
	return out
}

// Source watches <dir>/websites.json and <dir>/databases.json for changes
// and exposes the current Generation. Reload is only ever invoked by the
// caller at a tick boundary (per the scheduler's invariant that a mid-tick
// reload never mutates the live target set); Source itself performs no
// background mutation.
type Source struct {
	dir string

	mu              sync.Mutex
	current         Generation
	websiteModTime  time.Time
	databaseModTime time.Time

	watcher *fsnotify.Watcher
	dirty   chan struct{}
}

// NewSource creates a Source rooted at dir and performs the initial load.
// If both families resolve to zero targets, it returns ErrNoTargetsConfigured.
//
// Params:
//   - dir: the configuration directory containing websites.json / databases.json.
//
// Returns:
//   - *Source: the created, already-loaded source.
//   - error: ErrNoTargetsConfigured, or any validation/read error from the initial load.
func NewSource(dir string) (*Source, error) {
	s := &Source{dir: dir, dirty: make(chan struct{}, 1)}

	websites, err := LoadWebsites(dir)
	if err != nil {
		return nil, err
	}
	databases, err := LoadDatabases(dir)
	if err != nil {
		return nil, err
	}
	if len(websites) == 0 && len(databases) == 0 {
		return nil, ErrNoTargetsConfigured
	}

	s.current = Generation{Websites: websites, Databases: databases}
	s.websiteModTime = modTime(filepath.Join(dir, "websites.json"))
	s.databaseModTime = modTime(filepath.Join(dir, "databases.json"))

	if watcher, err := fsnotify.NewWatcher(); err == nil {
		_ = watcher.Add(dir)
		s.watcher = watcher
		go s.watchLoop()
	}

	return s, nil
}

// Current returns the active Generation.
//
// Returns:
//   - Generation: the currently live, immutable target set.
func (s *Source) Current() Generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Changed reports whether a reload should be attempted: either the fsnotify
// watcher has signalled a write in the config directory since the last call
// (the signal is consumed), or either config file's modification time
// differs from the one recorded at the last successful load. The mtime stat
// always runs, so a missed or coalesced fsnotify event never stalls a reload.
//
// Returns:
//   - bool: true if a reload should be attempted.
func (s *Source) Changed() bool {
	signalled := false
	select {
	case <-s.dirty:
		signalled = true
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return signalled ||
		modTime(filepath.Join(s.dir, "websites.json")) != s.websiteModTime ||
		modTime(filepath.Join(s.dir, "databases.json")) != s.databaseModTime
}

// Reload re-reads both config files, validating each family independently:
// a validation failure in one family leaves that family's targets unchanged
// while the other family may still update. It returns the new Generation,
// the pre- and post-target counts, and whether the reload succeeded cleanly.
//
// Returns:
//   - Generation: the (possibly partially) updated generation.
//   - preCount: the target count before this reload.
//   - postCount: the target count after this reload.
//   - err: non-nil if at least one family failed validation; the other
//     family's update, if any, is still applied.
func (s *Source) Reload() (gen Generation, preCount int, postCount int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	preCount = len(s.current.Websites) + len(s.current.Databases)

	var errs []error

	websitePath := filepath.Join(s.dir, "websites.json")
	if websites, werr := LoadWebsites(s.dir); werr != nil {
		errs = append(errs, fmt.Errorf("websites: %w", werr))
	} else {
		s.current.Websites = websites
		s.websiteModTime = modTime(websitePath)
	}

	databasePath := filepath.Join(s.dir, "databases.json")
	if databases, derr := LoadDatabases(s.dir); derr != nil {
		errs = append(errs, fmt.Errorf("databases: %w", derr))
	} else {
		s.current.Databases = databases
		s.databaseModTime = modTime(databasePath)
	}

	postCount = len(s.current.Websites) + len(s.current.Databases)

	if len(errs) > 0 {
		err = fmt.Errorf("config reload: %v", errs)
	}
	return s.current, preCount, postCount, err
}

// Close stops the fsnotify watcher, if one is running.
//
// Returns:
//   - error: nil on success, error if the watcher failed to close.
func (s *Source) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}

func (s *Source) watchLoop() {
	for {
		select {
		case _, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			select {
			case s.dirty <- struct{}{}:
			default:
			}
		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
