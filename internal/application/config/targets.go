package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/healthwatch/daemon/internal/domain/healthcheck"
)

// ErrNoTargetsConfigured indicates both families resolved to zero targets at startup.
var ErrNoTargetsConfigured error = errors.New("config: no websites or databases configured")

// websiteDTO is the on-disk form of one websites.json entry.
type websiteDTO struct {
	Name           string `json:"name"`
	URL            string `json:"url"`
	Timeout        *int   `json:"timeout,omitempty"`
	ExpectedStatus *int   `json:"expected_status,omitempty"`
}

type websitesDocument struct {
	Websites []websiteDTO `json:"websites"`
}

// databaseDTO is the on-disk form of one databases.json entry.
type databaseDTO struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
	SSLMode  string `json:"sslmode,omitempty"`
}

type databasesDocument struct {
	Databases []databaseDTO `json:"databases"`
}

// LoadWebsites reads and validates <dir>/websites.json. A missing file
// yields an empty, non-error target list.
//
// Params:
//   - dir: the configuration directory.
//
// Returns:
//   - []healthcheck.Target: the validated HTTP targets.
//   - error: nil on success, error if the file exists but is malformed or
//     any entry fails validation (the whole document is rejected together).
func LoadWebsites(dir string) ([]healthcheck.Target, error) {
	path := filepath.Join(dir, "websites.json")
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config dir
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading websites.json: %w", err)
	}

	var doc websitesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing websites.json: %w", err)
	}

	targets := make([]healthcheck.Target, 0, len(doc.Websites))
	seen := make(map[string]struct{}, len(doc.Websites))

	for _, w := range doc.Websites {
		timeout := 10 * time.Second
		if w.Timeout != nil {
			timeout = time.Duration(*w.Timeout) * time.Second
		}
		expectedStatus := 200
		if w.ExpectedStatus != nil {
			expectedStatus = *w.ExpectedStatus
		}

		target := healthcheck.NewHTTPTarget(w.Name, w.URL, timeout, expectedStatus)
		if err := target.Validate(); err != nil {
			return nil, fmt.Errorf("websites.json: target %q: %w", w.Name, err)
		}
		if err := validateHTTPURL(w.URL); err != nil {
			return nil, fmt.Errorf("websites.json: target %q: %w", w.Name, err)
		}
		if _, dup := seen[w.Name]; dup {
			return nil, fmt.Errorf("websites.json: duplicate target name %q", w.Name)
		}
		seen[w.Name] = struct{}{}
		targets = append(targets, target)
	}

	return targets, nil
}

// LoadDatabases reads and validates <dir>/databases.json. A missing file
// yields an empty, non-error target list.
//
// Params:
//   - dir: the configuration directory.
//
// Returns:
//   - []healthcheck.Target: the validated database targets.
//   - error: nil on success, error if the file exists but is malformed or
//     any entry fails validation (the whole document is rejected together).
func LoadDatabases(dir string) ([]healthcheck.Target, error) {
	path := filepath.Join(dir, "databases.json")
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config dir
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading databases.json: %w", err)
	}

	var doc databasesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing databases.json: %w", err)
	}

	targets := make([]healthcheck.Target, 0, len(doc.Databases))
	seen := make(map[string]struct{}, len(doc.Databases))

	for _, d := range doc.Databases {
		sslMode := healthcheck.SSLModePrefer
		if d.SSLMode != "" {
			parsed, err := healthcheck.ParseSSLMode(d.SSLMode)
			if err != nil {
				return nil, fmt.Errorf("databases.json: target %q: %w", d.Name, err)
			}
			sslMode = parsed
		}

		spec := healthcheck.DatabaseSpec{
			Host:     d.Host,
			Port:     d.Port,
			Database: d.Database,
			Username: d.Username,
			Password: d.Password,
			SSLMode:  sslMode,
			Timeout:  5 * time.Second,
		}
		target := healthcheck.NewDatabaseTarget(d.Name, spec)
		if err := target.Validate(); err != nil {
			return nil, fmt.Errorf("databases.json: target %q: %w", d.Name, err)
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("databases.json: duplicate target name %q", d.Name)
		}
		seen[d.Name] = struct{}{}
		targets = append(targets, target)
	}

	return targets, nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must use http or https scheme: %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url must include a host: %q", raw)
	}
	return nil
}
