package tripo

import (
	"fmt"
	"net/http"

	"github.com/mberenty7/tripo-tools/core"
	"github.com/mberenty7/tripo-tools/providers/internal/normalize"
)

// normalizeError converts an HTTP error response to an APIError with the appropriate sentinel.
func normalizeError(status int, body []byte, header http.Header) error {
	return normalize.HTTPError(providerID, status, body, header)
}

// newNetworkError creates an APIError for network-related failures.
func newNetworkError(err error) error {
	return normalize.NetworkError(providerID, err)
}

// newDecodeError creates an APIError for undecodable responses.
func newDecodeError(status int, err error) error {
	return normalize.DecodeError(providerID, status, err)
}

// newProtocolError reports a well-formed response with unexpected content.
func newProtocolError(format string, args ...any) error {
	return &core.APIError{
		Provider: providerID,
		Message:  fmt.Sprintf(format, args...),
		Err:      core.ErrProtocol,
	}
}

// envelopeError reports a 2xx response carrying a non-zero service code.
func envelopeError(resp *http.Response, code int, message, suggestion string) error {
	return normalize.EnvelopeError(providerID, resp.StatusCode, code, message, suggestion, normalize.RequestID(resp.Header))
}
