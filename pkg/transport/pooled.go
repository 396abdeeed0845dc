package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/url"

	"github.com/go-resty/resty/v2"
)

// Pooled executes exchanges over a shared keep-alive connection pool. It
// honors the same per-call contract as Session — one Exchange, one (status,
// body) result or a stage-tagged *Error — trading the fresh-connection
// guarantee for throughput. Safe for concurrent use.
type Pooled struct {
	client *resty.Client
}

// NewPooled builds a pooled transport from opts.
func NewPooled(opts Options) (*Pooled, error) {
	conf, err := newTLSConfig(opts)
	if err != nil {
		return nil, err
	}

	c := resty.New()
	c.SetTimeout(opts.Timeout)
	c.SetTLSClientConfig(conf)
	c.SetHeader("User-Agent", userAgentOrDefault(opts))
	c.SetRedirectPolicy(resty.NoRedirectPolicy())

	return &Pooled{client: c}, nil
}

// Exchange performs one request/response cycle through the pool.
func (p *Pooled) Exchange(ctx context.Context, verb string, target *url.URL, body []byte) (Result, error) {
	req := p.client.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(body)
	}

	resp, err := req.Execute(verb, target.String())
	if err != nil {
		return Result{}, &Error{Stage: classifyStage(err), Err: err}
	}
	return Result{Status: resp.StatusCode(), Body: resp.Body()}, nil
}

// Close releases idle pooled connections.
func (p *Pooled) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	p.client.GetClient().CloseIdleConnections()
	return nil
}

// classifyStage maps a pooled-client error onto the nearest exchange stage.
// The pool hides the discrete steps, so this is a best-effort mapping based on
// the error's type.
func classifyStage(err error) Stage {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return StageResolve
	}

	var certErr *tls.CertificateVerificationError
	var recErr tls.RecordHeaderError
	var unkAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &recErr) ||
		errors.As(err, &unkAuth) || errors.As(err, &hostErr) {
		return StageHandshake
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return StageConnect
	}

	return StageRead
}
