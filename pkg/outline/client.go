// Package outline is a client for the Outline proxy-server management API.
// Every operation runs one HTTP exchange against the server's HTTPS endpoint
// and returns either the canonicalized JSON response or a typed failure:
// *UrlError, *TransportError, *ServerError or *ParseError.
package outline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/outline-tools/outline-admin/pkg/transport"
	"go.uber.org/zap"
)

// Options configures a Client.
type Options struct {
	// Timeout bounds each call end to end. Zero means no deadline.
	Timeout time.Duration

	// Insecure disables server certificate verification, reproducing the
	// self-signed-certificate setup most Outline servers run with. Explicit
	// opt-in; the default verifies.
	Insecure bool

	// TrustAnchorPEM pins verification to the given PEM certificate(s)
	// instead of the system roots. Ignored when Insecure is set.
	TrustAnchorPEM []byte

	// Transport overrides the default single-connection session, e.g. with
	// transport.NewPooled when connection reuse matters.
	Transport transport.Transport

	// Logger receives best-effort shutdown diagnostics from the default
	// session; those failures are logged, never escalated. Optional.
	Logger *zap.SugaredLogger
}

// Client is a single-session management API client. The base URL is parsed
// once at construction and held immutable; every call composes a fresh target
// from it. A Client owns its transport session and is not safe for concurrent
// use without external synchronization.
type Client struct {
	base *url.URL
	tr   transport.Transport
}

const clientUserAgent = "outline-admin/1.0"

// New parses and validates apiURL and builds a client around it. The URL must
// be https with a host; a missing port defaults to 443.
func New(apiURL string, opts Options) (*Client, error) {
	base, err := url.Parse(apiURL)
	if err != nil {
		return nil, &UrlError{Reason: fmt.Sprintf("parse API URL %q", apiURL), Err: err}
	}
	if base.Scheme != "https" {
		return nil, &UrlError{Reason: fmt.Sprintf("API URL %q must use https, got %q", apiURL, base.Scheme)}
	}
	if base.Hostname() == "" {
		return nil, &UrlError{Reason: fmt.Sprintf("API URL %q has no host", apiURL)}
	}
	if base.Port() == "" {
		base.Host = net.JoinHostPort(base.Hostname(), "443")
	}

	tr := opts.Transport
	if tr == nil {
		tr, err = transport.NewSession(transport.Options{
			Timeout:        opts.Timeout,
			Insecure:       opts.Insecure,
			TrustAnchorPEM: opts.TrustAnchorPEM,
			UserAgent:      clientUserAgent,
		}, opts.Logger)
		if err != nil {
			return nil, fmt.Errorf("build transport: %w", err)
		}
	}

	return &Client{base: base, tr: tr}, nil
}

// BaseURL returns the immutable base the client was built from.
func (c *Client) BaseURL() string { return c.base.String() }

// Close releases the underlying transport.
func (c *Client) Close() error { return c.tr.Close() }

// AccessKeys lists all access keys. Returns the canonicalized JSON collection.
func (c *Client) AccessKeys(ctx context.Context) ([]byte, error) {
	res, err := c.exchange(ctx, http.MethodGet, epAccessKeys, nil, nil)
	if err != nil {
		return nil, err
	}
	return classify("getAccessKeys", res, http.StatusOK)
}

// AccessKey fetches one access key by id.
func (c *Client) AccessKey(ctx context.Context, id string) ([]byte, error) {
	res, err := c.exchange(ctx, http.MethodGet, epAccessKeyByID, Placeholders{placeholderKeyID: id}, nil)
	if err != nil {
		return nil, err
	}
	return classify("getAccessKey", res, http.StatusOK)
}

// CreateAccessKey creates a key with the given optional attributes and
// returns the canonicalized JSON record the server created.
func (c *Client) CreateAccessKey(ctx context.Context, params KeyParams) ([]byte, error) {
	body, err := params.body()
	if err != nil {
		return nil, fmt.Errorf("encode key params: %w", err)
	}
	res, err := c.exchange(ctx, http.MethodPost, epAccessKeys, nil, body)
	if err != nil {
		return nil, err
	}
	return classify("createAccessKey", res, http.StatusCreated)
}

// UpdateAccessKey replaces the attributes of the key identified by id.
func (c *Client) UpdateAccessKey(ctx context.Context, id string, params KeyParams) ([]byte, error) {
	body, err := params.body()
	if err != nil {
		return nil, fmt.Errorf("encode key params: %w", err)
	}
	res, err := c.exchange(ctx, http.MethodPut, epAccessKeyByID, Placeholders{placeholderKeyID: id}, body)
	if err != nil {
		return nil, err
	}
	return classify("updateAccessKey", res, http.StatusCreated)
}

// DeleteAccessKey removes the key identified by id. Success is judged by
// status code alone; no body is expected.
func (c *Client) DeleteAccessKey(ctx context.Context, id string) error {
	res, err := c.exchange(ctx, http.MethodDelete, epAccessKeyByID, Placeholders{placeholderKeyID: id}, nil)
	if err != nil {
		return err
	}
	return classifyNoBody("deleteAccessKey", res, http.StatusNoContent)
}

// SetDataLimit caps the key's transfer volume at the given number of bytes.
func (c *Client) SetDataLimit(ctx context.Context, id string, limitBytes int64) error {
	body, err := json.Marshal(map[string]DataLimit{"limit": {Bytes: limitBytes}})
	if err != nil {
		return fmt.Errorf("encode data limit: %w", err)
	}
	res, err := c.exchange(ctx, http.MethodPut, epDataLimitByID, Placeholders{placeholderKeyID: id}, body)
	if err != nil {
		return err
	}
	return classifyNoBody("setDataLimit", res, http.StatusNoContent)
}

// RemoveDataLimit lifts the key's transfer cap.
func (c *Client) RemoveDataLimit(ctx context.Context, id string) error {
	res, err := c.exchange(ctx, http.MethodDelete, epDataLimitByID, Placeholders{placeholderKeyID: id}, nil)
	if err != nil {
		return err
	}
	return classifyNoBody("removeDataLimit", res, http.StatusNoContent)
}

// Server fetches the server information record.
func (c *Client) Server(ctx context.Context) ([]byte, error) {
	res, err := c.exchange(ctx, http.MethodGet, epServer, nil, nil)
	if err != nil {
		return nil, err
	}
	return classify("getServer", res, http.StatusOK)
}

// RenameServer sets the server's display name.
func (c *Client) RenameServer(ctx context.Context, name string) error {
	body, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return fmt.Errorf("encode server name: %w", err)
	}
	res, err := c.exchange(ctx, http.MethodPut, epServerName, nil, body)
	if err != nil {
		return err
	}
	return classifyNoBody("renameServer", res, http.StatusNoContent)
}

// TransferMetrics fetches the per-key transferred-bytes counters.
func (c *Client) TransferMetrics(ctx context.Context) ([]byte, error) {
	res, err := c.exchange(ctx, http.MethodGet, epMetricsTransfer, nil, nil)
	if err != nil {
		return nil, err
	}
	return classify("getTransferMetrics", res, http.StatusOK)
}

// exchange composes the target URL and runs one transport exchange.
func (c *Client) exchange(ctx context.Context, verb, template string, ph Placeholders, body []byte) (transport.Result, error) {
	target, err := resolveEndpoint(c.base, template, ph)
	if err != nil {
		return transport.Result{}, err
	}
	return c.tr.Exchange(ctx, verb, target, body)
}

// classify checks the status against the operation's single expected success
// code and canonicalizes the JSON body. A wrong status short-circuits before
// any parsing.
func classify(op string, res transport.Result, expected int) ([]byte, error) {
	if res.Status != expected {
		return nil, &ServerError{Op: op, Status: res.Status}
	}
	canonical, err := canonicalJSON(res.Body)
	if err != nil {
		return nil, &ParseError{Op: op, Err: err}
	}
	return canonical, nil
}

// classifyNoBody checks the status for operations with no body expectation.
func classifyNoBody(op string, res transport.Result, expected int) error {
	if res.Status != expected {
		return &ServerError{Op: op, Status: res.Status}
	}
	return nil
}

// canonicalJSON re-serializes raw through a neutral decode, normalizing
// whitespace and object key order. Numbers pass through undisturbed.
func canonicalJSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
