package healthcheck

import "errors"

var (
	// ErrMissingName indicates a target was declared without a name.
	ErrMissingName error = errors.New("target: name must not be empty")

	// ErrMissingURL indicates an HTTP target was declared without a URL.
	ErrMissingURL error = errors.New("target: url must not be empty")

	// ErrInvalidStatusCode indicates the expected status code is out of the valid HTTP range.
	ErrInvalidStatusCode error = errors.New("target: expected_status must be in [100,599]")

	// ErrMissingHost indicates a database target was declared without a host.
	ErrMissingHost error = errors.New("target: host must not be empty")

	// ErrInvalidPort indicates the database port is out of range.
	ErrInvalidPort error = errors.New("target: port must be in [1,65535]")

	// ErrMissingDatabaseName indicates a database target was declared without a database name.
	ErrMissingDatabaseName error = errors.New("target: database must not be empty")

	// ErrInvalidSSLMode indicates an unrecognized sslmode string.
	ErrInvalidSSLMode error = errors.New("target: sslmode must be one of disable|allow|prefer|require|verify-ca|verify-full")

	// ErrUnknownTargetKind indicates a Target was constructed with neither HTTP nor Database populated.
	ErrUnknownTargetKind error = errors.New("target: unknown kind")

	// ErrInvalidTimeout indicates a non-positive timeout.
	ErrInvalidTimeout error = errors.New("policy: timeout must be positive")

	// ErrInvalidMaxAttempts indicates a non-positive retry attempt count.
	ErrInvalidMaxAttempts error = errors.New("policy: max attempts must be positive")

	// ErrInvalidBaseDelay indicates a non-positive retry base delay.
	ErrInvalidBaseDelay error = errors.New("policy: base delay must be positive")

	// ErrInvalidMultiplier indicates a retry multiplier that would not grow the delay.
	ErrInvalidMultiplier error = errors.New("policy: multiplier must be greater than 1.0")

	// ErrInvalidMaxDelay indicates a retry delay cap smaller than the base delay.
	ErrInvalidMaxDelay error = errors.New("policy: max delay must not be less than base delay")

	// ErrInvalidFailureThreshold indicates a non-positive breaker failure threshold.
	ErrInvalidFailureThreshold error = errors.New("policy: failure threshold must be positive")

	// ErrInvalidRecoveryTimeout indicates a non-positive breaker recovery timeout.
	ErrInvalidRecoveryTimeout error = errors.New("policy: recovery timeout must be positive")

	// ErrProbeTimeout indicates the probe exceeded its wall-clock budget.
	ErrProbeTimeout error = errors.New("probe: timeout exceeded")

	// ErrConnectionRefused indicates the target actively refused the connection attempt.
	ErrConnectionRefused error = errors.New("probe: connection refused")

	// ErrCircuitOpen indicates the call was short-circuited by an open breaker.
	ErrCircuitOpen error = errors.New("probe: circuit breaker open")
)
