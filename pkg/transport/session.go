package transport

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Session is the single-connection transport: every Exchange resolves the
// target host, dials a fresh TCP connection, performs a TLS handshake, runs
// exactly one request/response cycle and shuts the connection down. Nothing is
// kept alive between calls.
//
// A Session is exclusively owned by one client instance and is not safe for
// concurrent use.
type Session struct {
	tlsConf   *tls.Config
	timeout   time.Duration
	userAgent string
	resolver  *net.Resolver
	dialer    *net.Dialer
	log       *zap.SugaredLogger

	// conn tracks the connection of the in-flight exchange so Close can do a
	// best-effort shutdown if a failed call left it open.
	conn net.Conn
}

// NewSession builds a single-connection transport from opts. The optional
// logger receives best-effort shutdown diagnostics from Close; pass nil to
// discard them.
func NewSession(opts Options, log *zap.SugaredLogger) (*Session, error) {
	conf, err := newTLSConfig(opts)
	if err != nil {
		return nil, err
	}

	return &Session{
		tlsConf:   conf,
		timeout:   opts.Timeout,
		userAgent: userAgentOrDefault(opts),
		resolver:  net.DefaultResolver,
		dialer:    &net.Dialer{},
		log:       log,
	}, nil
}

// Exchange performs one complete HTTP/1.1 request/response cycle over a fresh
// TLS connection. Every failure is returned as *Error tagged with the stage it
// occurred at. A stream left open by a previous failed call is released first.
func (s *Session) Exchange(ctx context.Context, verb string, target *url.URL, body []byte) (Result, error) {
	s.release()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	host := target.Hostname()
	port := target.Port()
	if port == "" {
		port = "443"
	}

	addrs, err := s.resolver.LookupHost(ctx, host)
	if err != nil {
		return Result{}, &Error{Stage: StageResolve, Err: err}
	}
	if len(addrs) == 0 {
		return Result{}, &Error{Stage: StageResolve, Err: fmt.Errorf("no addresses for host %q", host)}
	}

	raw, err := s.dialer.DialContext(ctx, "tcp", net.JoinHostPort(addrs[0], port))
	if err != nil {
		return Result{}, &Error{Stage: StageConnect, Err: err}
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = raw.SetDeadline(deadline)
	}

	conf := s.tlsConf.Clone()
	conf.ServerName = host
	conn := tls.Client(raw, conf)
	s.conn = conn

	if err := conn.HandshakeContext(ctx); err != nil {
		return Result{}, &Error{Stage: StageHandshake, Err: err}
	}

	req, err := buildRequest(verb, target, s.userAgent, body)
	if err != nil {
		return Result{}, &Error{Stage: StageWrite, Err: err}
	}
	if err := req.Write(conn); err != nil {
		return Result{}, &Error{Stage: StageWrite, Err: err}
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		return Result{}, &Error{Stage: StageRead, Err: err}
	}
	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return Result{}, &Error{Stage: StageRead, Err: err}
	}

	s.conn = nil
	if err := shutdown(conn); err != nil {
		return Result{}, &Error{Stage: StageShutdown, Err: err}
	}

	return Result{Status: resp.StatusCode, Body: respBody}, nil
}

// Close shuts down any connection a failed exchange left open. Errors here are
// logged and swallowed: close happens outside any call a caller is waiting on.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.release()
	return nil
}

// release performs the tolerated shutdown on a leftover connection.
func (s *Session) release() {
	if s.conn == nil {
		return
	}
	conn := s.conn
	s.conn = nil
	if err := shutdown(conn); err != nil && s.log != nil {
		s.log.Warnw("session shutdown failed", "error", err)
	}
}

// buildRequest assembles the HTTP/1.1 request: verb + path[?query] request
// line, Host header from the target, the client identifier header, and for
// bodies the JSON content type with an automatic Content-Length.
func buildRequest(verb string, target *url.URL, userAgent string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(verb, target.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// shutdown closes the TLS layer and the socket. A peer that already tore the
// connection down is not an error; anything else is surfaced.
func shutdown(conn net.Conn) error {
	tlsConn, ok := conn.(*tls.Conn)
	if ok {
		if err := tlsConn.CloseWrite(); err != nil && !isDisconnected(err) {
			_ = conn.Close()
			return err
		}
	}
	if err := conn.Close(); err != nil && !isDisconnected(err) {
		return err
	}
	return nil
}

// isDisconnected reports whether err is the "peer already closed" family of
// shutdown errors that the exchange tolerates.
func isDisconnected(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENOTCONN) ||
		errors.Is(err, syscall.EPIPE)
}
