package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/url"
	"time"
)

// Stage identifies the step of an exchange at which a transport failure occurred.
type Stage string

const (
	StageResolve   Stage = "resolve"
	StageConnect   Stage = "connect"
	StageHandshake Stage = "handshake"
	StageWrite     Stage = "write"
	StageRead      Stage = "read"
	StageShutdown  Stage = "shutdown"
)

// Error reports a transport failure tagged with the stage it occurred at.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is the raw outcome of one HTTP exchange: the numeric status code and
// the full response body. Produced fresh per call, never cached.
type Result struct {
	Status int
	Body   []byte
}

// Transport executes one complete request/response cycle against a target URL.
// Implementations decide whether connections are reused between calls; the
// per-call contract is identical either way.
type Transport interface {
	Exchange(ctx context.Context, verb string, target *url.URL, body []byte) (Result, error)
	Close() error
}

// Options configures a transport.
type Options struct {
	// Timeout bounds each exchange end to end, covering resolve, connect,
	// handshake, write and read. Zero means no deadline.
	Timeout time.Duration

	// Insecure disables server certificate verification. This reproduces the
	// historical behavior of the management API clients (the server presents a
	// self-signed certificate); prefer TrustAnchorPEM where possible.
	Insecure bool

	// TrustAnchorPEM holds PEM-encoded certificate(s) that replace the system
	// roots for server verification. Ignored when Insecure is set.
	TrustAnchorPEM []byte

	// UserAgent is sent as the client identifier header on every request.
	UserAgent string
}

const defaultUserAgent = "outline-admin"

// newTLSConfig builds the client TLS configuration shared by all transports.
func newTLSConfig(opts Options) (*tls.Config, error) {
	conf := &tls.Config{MinVersion: tls.VersionTLS12}

	if opts.Insecure {
		conf.InsecureSkipVerify = true
		return conf, nil
	}

	if len(opts.TrustAnchorPEM) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(opts.TrustAnchorPEM) {
			return nil, fmt.Errorf("no certificates parsed from trust anchor PEM")
		}
		conf.RootCAs = pool
	}

	return conf, nil
}

func userAgentOrDefault(opts Options) string {
	if opts.UserAgent != "" {
		return opts.UserAgent
	}
	return defaultUserAgent
}
