// Package http implements the HTTP endpoint prober: GET the target URL with
// redirects followed, classify the outcome against the target's expected
// status code, and surface transport-class failures as retryable.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/healthwatch/daemon/internal/domain/healthcheck"
)

// ErrStatusMismatch indicates the response status did not equal the target's expected status.
var ErrStatusMismatch = errors.New("http: unexpected status code")

// Prober performs GET-based HTTP endpoint probes. A single *http.Client (and
// its pooled transport) is shared across every concurrent Probe call.
type Prober struct {
	client *http.Client
}

// New creates an HTTP Prober. The client's own Timeout is left unset;
// each Probe call derives its deadline from the target's configured timeout.
//
// Returns:
//   - *Prober: a prober sharing one transport across all targets.
func New() *Prober {
	return &Prober{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return nil
			},
		},
	}
}

// Kind identifies this prober as the HTTP family.
//
// Returns:
//   - healthcheck.Kind: always KindHTTP.
func (p *Prober) Kind() healthcheck.Kind {
	return healthcheck.KindHTTP
}

// Probe issues one GET request to target.HTTP.URL, bounded by target.HTTP.Timeout.
//
// Params:
//   - ctx: the caller's context; combined with the target's own timeout.
//   - target: the HTTP target to probe.
//
// Returns:
//   - healthcheck.Result: OK if the response status equals ExpectedStatus;
//     Retryable for 5xx responses and transport-class failures (timeout,
//     connection refused, DNS failure, TLS handshake failure); Fatal for any
//     other status mismatch.
func (p *Prober) Probe(ctx context.Context, target healthcheck.Target) healthcheck.Result {
	reqCtx, cancel := context.WithTimeout(ctx, target.HTTP.Timeout)
	defer cancel()

	start := time.Now()
	status, err := p.do(reqCtx, target.HTTP.URL)
	latency := time.Since(start)

	if err != nil {
		return classifyTransportError(latency, err)
	}

	if status == target.HTTP.ExpectedStatus {
		return healthcheck.NewSuccessResult(latency, fmt.Sprintf("HTTP %d", status))
	}

	detail := fmt.Sprintf("unexpected status code: %d (expected %d)", status, target.HTTP.ExpectedStatus)
	if status >= 500 && status < 600 {
		return healthcheck.NewRetryableResult(latency, detail, ErrStatusMismatch)
	}
	return healthcheck.NewFatalResult(latency, detail, ErrStatusMismatch)
}

func (p *Prober) do(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode, nil
}

// classifyTransportError distinguishes retryable transport-class failures
// (timeout, connection refused, DNS failure, TLS handshake failure) from
// everything else, which is treated as fatal.
func classifyTransportError(latency time.Duration, err error) healthcheck.Result {
	detail := fmt.Sprintf("request failed: %v", err)

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return healthcheck.NewRetryableResult(latency, detail, err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return healthcheck.NewRetryableResult(latency, detail, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		// Connection refused, TLS handshake failures, and similar dial/IO
		// failures surface as *net.OpError; all are transient transport issues.
		return healthcheck.NewRetryableResult(latency, detail, err)
	}

	return healthcheck.NewFatalResult(latency, detail, err)
}

// Ensure Prober implements the domain port.
var _ healthcheck.Prober = (*Prober)(nil)
