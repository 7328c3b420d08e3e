// Package healthcheck provides domain abstractions for endpoint and
// database availability probing.
package healthcheck

import "time"

// Kind distinguishes the two target families this daemon monitors.
type Kind int

const (
	// KindHTTP identifies an HTTP endpoint target.
	KindHTTP Kind = iota
	// KindDatabase identifies a database instance target.
	KindDatabase
)

// String returns the lowercase name of the kind.
//
// Returns:
//   - string: "http", "database", or "unknown" for an unrecognized value.
func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindDatabase:
		return "database"
	default:
		return "unknown"
	}
}

// SSLMode enumerates the TLS negotiation modes accepted for database targets,
// matching the libpq/pgx sslmode vocabulary.
type SSLMode int

const (
	// SSLModeDisable never attempts TLS.
	SSLModeDisable SSLMode = iota
	// SSLModeAllow tries plaintext first, then TLS.
	SSLModeAllow
	// SSLModePrefer tries TLS first, then plaintext.
	SSLModePrefer
	// SSLModeRequire requires TLS without certificate verification.
	SSLModeRequire
	// SSLModeVerifyCA requires TLS and verifies the server certificate against a CA.
	SSLModeVerifyCA
	// SSLModeVerifyFull requires TLS, verifies the CA, and checks the server hostname.
	SSLModeVerifyFull
)

// String returns the libpq-style name of the SSL mode.
//
// Returns:
//   - string: the sslmode string, or "" for an unrecognized value.
func (m SSLMode) String() string {
	switch m {
	case SSLModeDisable:
		return "disable"
	case SSLModeAllow:
		return "allow"
	case SSLModePrefer:
		return "prefer"
	case SSLModeRequire:
		return "require"
	case SSLModeVerifyCA:
		return "verify-ca"
	case SSLModeVerifyFull:
		return "verify-full"
	default:
		return ""
	}
}

// ParseSSLMode parses a libpq-style sslmode string.
//
// Params:
//   - s: the sslmode string as read from a config file.
//
// Returns:
//   - SSLMode: the parsed mode.
//   - error: ErrInvalidSSLMode if s is not a recognized mode.
func ParseSSLMode(s string) (SSLMode, error) {
	switch s {
	case "disable":
		return SSLModeDisable, nil
	case "allow":
		return SSLModeAllow, nil
	case "prefer":
		return SSLModePrefer, nil
	case "require":
		return SSLModeRequire, nil
	case "verify-ca":
		return SSLModeVerifyCA, nil
	case "verify-full":
		return SSLModeVerifyFull, nil
	default:
		return 0, ErrInvalidSSLMode
	}
}

// HTTPSpec carries the fields specific to an HTTP endpoint target.
type HTTPSpec struct {
	// URL is the fully qualified endpoint to GET.
	URL string
	// Timeout bounds a single probe attempt, independent of retry delay.
	Timeout time.Duration
	// ExpectedStatus is the HTTP status code that counts as a successful probe.
	ExpectedStatus int
}

// DatabaseSpec carries the fields specific to a database instance target.
type DatabaseSpec struct {
	// Host is the database server hostname or IP address.
	Host string
	// Port is the database server TCP port.
	Port int
	// Database is the database/schema name to connect to.
	Database string
	// Username authenticates the connection.
	Username string
	// Password authenticates the connection.
	Password string
	// SSLMode selects the TLS negotiation behavior.
	SSLMode SSLMode
	// Timeout bounds the connect-and-query attempt.
	Timeout time.Duration
}

// Target is a closed sum type over the two kinds of monitored endpoints.
// Exactly one of HTTP or Database is populated, selected by Kind.
type Target struct {
	// Name uniquely identifies the target within its config file and
	// is the key used to correlate state and circuit-breaker data across reloads.
	Name string
	// Kind selects which spec field is populated.
	Kind Kind
	// HTTP holds the HTTP-specific fields when Kind is KindHTTP.
	HTTP HTTPSpec
	// Database holds the database-specific fields when Kind is KindDatabase.
	Database DatabaseSpec
}

// NewHTTPTarget creates a Target for HTTP endpoint monitoring.
//
// Params:
//   - name: the unique target name.
//   - url: the fully qualified endpoint URL.
//   - timeout: the per-attempt probe timeout.
//   - expectedStatus: the status code that counts as healthy.
//
// Returns:
//   - Target: a target configured for HTTP probing.
func NewHTTPTarget(name, url string, timeout time.Duration, expectedStatus int) Target {
	return Target{
		Name: name,
		Kind: KindHTTP,
		HTTP: HTTPSpec{
			URL:            url,
			Timeout:        timeout,
			ExpectedStatus: expectedStatus,
		},
	}
}

// NewDatabaseTarget creates a Target for database instance monitoring.
//
// Params:
//   - name: the unique target name.
//   - spec: the connection parameters.
//
// Returns:
//   - Target: a target configured for database probing.
func NewDatabaseTarget(name string, spec DatabaseSpec) Target {
	return Target{
		Name:     name,
		Kind:     KindDatabase,
		Database: spec,
	}
}

// Validate checks that the target's populated spec is internally consistent.
//
// Returns:
//   - error: nil if valid, otherwise a sentinel describing the problem.
func (t Target) Validate() error {
	if t.Name == "" {
		return ErrMissingName
	}

	switch t.Kind {
	case KindHTTP:
		if t.HTTP.URL == "" {
			return ErrMissingURL
		}
		if t.HTTP.Timeout <= 0 {
			return ErrInvalidTimeout
		}
		if t.HTTP.ExpectedStatus < 100 || t.HTTP.ExpectedStatus > 599 {
			return ErrInvalidStatusCode
		}
		return nil
	case KindDatabase:
		if t.Database.Host == "" {
			return ErrMissingHost
		}
		if t.Database.Port <= 0 || t.Database.Port > 65535 {
			return ErrInvalidPort
		}
		if t.Database.Database == "" {
			return ErrMissingDatabaseName
		}
		if t.Database.Timeout <= 0 {
			return ErrInvalidTimeout
		}
		return nil
	default:
		return ErrUnknownTargetKind
	}
}
