// Package config loads the monitor's configuration: the two target
// declaration documents (websites.json, databases.json) and the optional
// ambient settings document (settings.yaml), plus the hot-reload machinery
// that keeps the scheduler's target set current.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/healthwatch/daemon/internal/domain/healthcheck"
	"gopkg.in/yaml.v3"
)

// Default ambient settings, applied when settings.yaml is absent or a field is unset.
const (
	defaultIntervalSeconds int  = 300
	defaultWorkerPoolSize  int  = 10
	defaultLogAllChecks    bool = false
	defaultRetentionDays   int  = 30
)

// WriterSettings describes one operational log writer.
type WriterSettings struct {
	Type  string `yaml:"type"`
	Level string `yaml:"level"`
	File  struct {
		Path string `yaml:"path"`
	} `yaml:"file,omitempty"`
}

// RetryOverride lets settings.yaml override the per-family retry defaults
// declared in healthcheck.DefaultHTTPRetryPolicy / DefaultDatabaseRetryPolicy.
type RetryOverride struct {
	MaxAttempts      int     `yaml:"max_attempts"`
	BaseDelaySeconds float64 `yaml:"base_delay_seconds"`
	Multiplier       float64 `yaml:"multiplier"`
	MaxDelaySeconds  float64 `yaml:"max_delay_seconds"`
}

// BreakerOverride lets settings.yaml override the per-family breaker defaults.
type BreakerOverride struct {
	FailureThreshold       int     `yaml:"failure_threshold"`
	RecoveryTimeoutSeconds float64 `yaml:"recovery_timeout_seconds"`
}

// Settings is the ambient daemon-level configuration, distinct from the
// spec-mandated target declaration files.
type Settings struct {
	Version         string        `yaml:"version"`
	Interval        time.Duration `yaml:"-"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	WorkerPoolSize  int           `yaml:"worker_pool_size"`
	LogAllChecks    bool          `yaml:"log_all_checks"`
	Journal         struct {
		RetentionDays int `yaml:"retention_days"`
	} `yaml:"journal"`
	Logging struct {
		Writers []WriterSettings `yaml:"writers"`
	} `yaml:"logging"`
	Retry struct {
		HTTP     RetryOverride `yaml:"http"`
		Database RetryOverride `yaml:"database"`
	} `yaml:"retry"`
	Breaker struct {
		HTTP     BreakerOverride `yaml:"http"`
		Database BreakerOverride `yaml:"database"`
	} `yaml:"breaker"`
	Metrics struct {
		ReportPath    string `yaml:"report_path"`
		ListenAddress string `yaml:"listen_address"`
	} `yaml:"metrics"`
}

// DefaultSettings returns the settings every field defaults to when
// settings.yaml is absent.
//
// Returns:
//   - Settings: the default ambient settings.
func DefaultSettings() Settings {
	s := Settings{
		Version:         "1",
		IntervalSeconds: defaultIntervalSeconds,
		WorkerPoolSize:  defaultWorkerPoolSize,
		LogAllChecks:    defaultLogAllChecks,
	}
	s.Journal.RetentionDays = defaultRetentionDays
	s.Interval = time.Duration(s.IntervalSeconds) * time.Second
	return s
}

// LoadSettings reads and parses the optional settings.yaml document at path.
// A missing file is not an error: the defaults are returned unchanged.
//
// Params:
//   - path: the settings.yaml path.
//
// Returns:
//   - Settings: the parsed settings, with unset fields defaulted.
//   - error: nil on success (including "file absent"), error on malformed YAML.
func LoadSettings(path string) (Settings, error) {
	defaults := DefaultSettings()

	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return defaults, nil
		}
		return defaults, fmt.Errorf("reading settings file: %w", err)
	}

	settings := defaults
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return defaults, fmt.Errorf("parsing settings yaml: %w", err)
	}

	applyDefaults(&settings, &defaults)
	settings.Interval = time.Duration(settings.IntervalSeconds) * time.Second
	return settings, nil
}

// PolicyFor resolves the effective retry and breaker policy for a target
// kind: the kind defaults with any settings.yaml overrides applied on top.
//
// Params:
//   - kind: the target kind.
//
// Returns:
//   - healthcheck.Policy: the effective policy.
func (s Settings) PolicyFor(kind healthcheck.Kind) healthcheck.Policy {
	policy := healthcheck.DefaultPolicyFor(kind)

	retryOv := s.Retry.HTTP
	breakerOv := s.Breaker.HTTP
	if kind == healthcheck.KindDatabase {
		retryOv = s.Retry.Database
		breakerOv = s.Breaker.Database
	}

	if retryOv.MaxAttempts > 0 {
		policy.Retry.MaxAttempts = retryOv.MaxAttempts
	}
	if retryOv.BaseDelaySeconds > 0 {
		policy.Retry.BaseDelay = secondsToDuration(retryOv.BaseDelaySeconds)
	}
	if retryOv.Multiplier > 1.0 {
		policy.Retry.Multiplier = retryOv.Multiplier
	}
	if retryOv.MaxDelaySeconds > 0 {
		policy.Retry.MaxDelay = secondsToDuration(retryOv.MaxDelaySeconds)
	}
	if breakerOv.FailureThreshold > 0 {
		policy.Breaker.FailureThreshold = breakerOv.FailureThreshold
	}
	if breakerOv.RecoveryTimeoutSeconds > 0 {
		policy.Breaker.RecoveryTimeout = secondsToDuration(breakerOv.RecoveryTimeoutSeconds)
	}
	return policy
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func applyDefaults(s, defaults *Settings) {
	if s.Version == "" {
		s.Version = defaults.Version
	}
	if s.IntervalSeconds == 0 {
		s.IntervalSeconds = defaults.IntervalSeconds
	}
	if s.WorkerPoolSize == 0 {
		s.WorkerPoolSize = defaults.WorkerPoolSize
	}
	if s.Journal.RetentionDays == 0 {
		s.Journal.RetentionDays = defaults.Journal.RetentionDays
	}
}
