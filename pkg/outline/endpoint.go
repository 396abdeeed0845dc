package outline

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoint templates of the Outline management API. Placeholders are literal
// markers substituted per call.
const (
	epAccessKeys      = "/access-keys"
	epAccessKeyByID   = "/access-keys/{keyId}"
	epDataLimitByID   = "/access-keys/{keyId}/data-limit"
	epServer          = "/server"
	epServerName      = "/name"
	epMetricsTransfer = "/metrics/transfer"
)

const placeholderKeyID = "{keyId}"

// Placeholders maps template markers to their per-call values. Values are
// expected to already be percent-encoded where needed.
type Placeholders map[string]string

// resolveEndpoint substitutes every placeholder occurrence in template and
// appends the result onto base, producing a fresh target URL. The base is
// never modified; each call composes from the original.
//
// The endpoint's path is concatenated onto the base path. If the endpoint
// carries its own query it is appended after any base query. A template with a
// marker left unresolved fails with *UrlError rather than letting the literal
// marker text reach the wire.
func resolveEndpoint(base *url.URL, template string, ph Placeholders) (*url.URL, error) {
	resolved := template
	for marker, value := range ph {
		resolved = strings.ReplaceAll(resolved, marker, value)
	}
	if leftover := unresolvedMarkers(resolved); len(leftover) > 0 {
		return nil, &UrlError{Reason: fmt.Sprintf("unresolved endpoint placeholders %v in %q", leftover, template)}
	}

	pathPart := resolved
	queryPart := ""
	if i := strings.IndexByte(resolved, '?'); i >= 0 {
		pathPart = resolved[:i]
		queryPart = resolved[i+1:]
	}

	target := *base
	joined := base.EscapedPath() + pathPart
	unescaped, err := url.PathUnescape(joined)
	if err != nil {
		return nil, &UrlError{Reason: fmt.Sprintf("compose endpoint path %q", joined), Err: err}
	}
	target.Path = unescaped
	target.RawPath = joined

	if queryPart != "" {
		if target.RawQuery != "" {
			target.RawQuery = target.RawQuery + "&" + queryPart
		} else {
			target.RawQuery = queryPart
		}
	}

	return &target, nil
}

// unresolvedMarkers returns the placeholder markers still present in s.
func unresolvedMarkers(s string) []string {
	var markers []string
	for {
		open := strings.IndexByte(s, '{')
		if open < 0 {
			return markers
		}
		end := strings.IndexByte(s[open:], '}')
		if end < 0 {
			return append(markers, s[open:])
		}
		markers = append(markers, s[open:open+end+1])
		s = s[open+end+1:]
	}
}
