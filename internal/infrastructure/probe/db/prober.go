// Package db implements the database instance prober: open a connection per
// the target's sslmode, run the constant query SELECT 1, and classify
// failures into the retryable/fatal vocabulary the envelope expects.
package db

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"

	"github.com/healthwatch/daemon/internal/domain/healthcheck"
)

// connectTimeout is the fixed connect timeout mandated independent of the
// overall probe deadline.
const connectTimeout = 5 * time.Second

// ErrUnexpectedResult indicates the SELECT 1 probe query returned something
// other than the scalar 1.
var ErrUnexpectedResult = errors.New("db: unexpected probe query result")

// Prober performs TCP+TLS connect, authenticate, SELECT 1, close for
// database targets. Unlike the HTTP prober, no connection is shared across
// probes: each call opens, uses, and closes its own connection.
type Prober struct{}

// New creates a database Prober.
//
// Returns:
//   - *Prober: a stateless prober ready to use.
func New() *Prober {
	return &Prober{}
}

// Kind identifies this prober as the database family.
//
// Returns:
//   - healthcheck.Kind: always KindDatabase.
func (p *Prober) Kind() healthcheck.Kind {
	return healthcheck.KindDatabase
}

// Probe connects to target.Database, runs SELECT 1, and closes the
// connection. The connect phase is bounded by connectTimeout regardless of
// the caller's own deadline; the overall call is also bounded by ctx.
//
// Params:
//   - ctx: the caller's context; combined with connectTimeout for the dial phase.
//   - target: the database target to probe.
//
// Returns:
//   - healthcheck.Result: OK if SELECT 1 returns the scalar 1; Retryable for
//     connection/transport failures and I/O timeout; Fatal for authentication
//     failure and protocol/query errors.
func (p *Prober) Probe(ctx context.Context, target healthcheck.Target) healthcheck.Result {
	start := time.Now()

	probeCtx, cancel := context.WithTimeout(ctx, target.Database.Timeout)
	defer cancel()

	dialCtx, dialCancel := context.WithTimeout(probeCtx, connectTimeout)
	defer dialCancel()

	dsn := dsnFor(target.Database)

	conn, err := sqlx.ConnectContext(dialCtx, "pgx", dsn)
	if err != nil {
		return classifyConnectError(time.Since(start), err)
	}
	defer func() { _ = conn.Close() }()

	var scalar int
	if err := conn.GetContext(probeCtx, &scalar, "SELECT 1"); err != nil {
		return classifyQueryError(time.Since(start), err)
	}

	latency := time.Since(start)
	if scalar != 1 {
		return healthcheck.NewFatalResult(latency, "probe query returned unexpected result", ErrUnexpectedResult)
	}

	return healthcheck.NewSuccessResult(latency, "SELECT 1 succeeded")
}

// dsnFor builds a libpq-style connection URL. sslmode is passed through
// verbatim; pgx's own config parser resolves it to the corresponding TLS
// negotiation behavior.
func dsnFor(spec healthcheck.DatabaseSpec) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(spec.Username, spec.Password),
		Host:     net.JoinHostPort(spec.Host, strconv.Itoa(spec.Port)),
		Path:     spec.Database,
		RawQuery: "sslmode=" + spec.SSLMode.String(),
	}
	return u.String()
}

func classifyConnectError(latency time.Duration, err error) healthcheck.Result {
	detail := fmt.Sprintf("connect failed: %v", err)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "28P01" {
		// invalid_password
		return healthcheck.NewFatalResult(latency, detail, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return healthcheck.NewRetryableResult(latency, detail, err)
	}

	// Anything else during connect (refused, reset, DNS, handshake) is
	// transport-class and retryable per the prober contract.
	return healthcheck.NewRetryableResult(latency, detail, err)
}

func classifyQueryError(latency time.Duration, err error) healthcheck.Result {
	detail := fmt.Sprintf("query failed: %v", err)

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return healthcheck.NewRetryableResult(latency, detail, err)
	}

	// Protocol/query errors (syntax, permission, PgError other than auth) are
	// non-retryable: the query itself will not succeed on a bare retry.
	return healthcheck.NewFatalResult(latency, detail, err)
}

// Ensure Prober implements the domain port.
var _ healthcheck.Prober = (*Prober)(nil)
