package outline

import (
	"fmt"

	"github.com/outline-tools/outline-admin/pkg/transport"
)

// UrlError reports a malformed base URL or a failed endpoint composition.
type UrlError struct {
	Reason string
	Err    error
}

func (e *UrlError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("url: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("url: %s", e.Reason)
}

func (e *UrlError) Unwrap() error { return e.Err }

// TransportError is a stage-tagged failure from the exchange layer
// (resolve, connect, handshake, write, read or shutdown).
type TransportError = transport.Error

// ServerError reports a status code other than the one the operation expects.
// No body parsing is attempted when the status is wrong.
type ServerError struct {
	Op     string
	Status int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
}

// ParseError reports a response body that was not valid JSON when JSON was
// expected. Distinct from ServerError so callers can tell "the server rejected
// the request" from "the server's response was unreadable".
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse response body: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
