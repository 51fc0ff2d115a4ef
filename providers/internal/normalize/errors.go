// Package normalize provides shared provider error normalization helpers.
package normalize

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mberenty7/tripo-tools/core"
)

// envelopeErrorResponse represents services that return:
// {"code":2002,"message":"...","suggestion":"..."}
type envelopeErrorResponse struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// HTTPError normalizes a non-2xx response into an *core.APIError.
// The body is parsed as a code/message envelope when possible.
func HTTPError(provider string, status int, body []byte, header http.Header) error {
	var errResp envelopeErrorResponse
	message := ""
	if err := json.Unmarshal(body, &errResp); err == nil {
		message = errResp.Message
	} else {
		message = strings.TrimSpace(truncate(string(body), 200))
	}

	err := APIError(provider, status, RequestID(header), errResp.Code, message, SentinelForStatus(status))
	apiErr := err.(*core.APIError)
	apiErr.Suggestion = errResp.Suggestion
	if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
		apiErr.RetryAfter = ParseRetryAfter(header.Get("Retry-After"), time.Now())
	}
	return apiErr
}

// EnvelopeError reports a 2xx response whose envelope carries a non-zero code.
// The request was understood but refused, so it maps to ErrRequest.
func EnvelopeError(provider string, status, code int, message, suggestion, requestID string) error {
	if message == "" {
		message = "service returned code " + strconv.Itoa(code)
	}
	return &core.APIError{
		Provider:   provider,
		Status:     status,
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		RequestID:  requestID,
		Err:        core.ErrRequest,
	}
}

// NetworkError wraps transport failures as provider-specific transport errors.
func NetworkError(provider string, err error) error {
	return &core.APIError{
		Provider: provider,
		Message:  err.Error(),
		Err:      core.ErrTransport,
	}
}

// DecodeError wraps decode/parsing failures as provider-specific protocol errors.
func DecodeError(provider string, status int, err error) error {
	return &core.APIError{
		Provider: provider,
		Status:   status,
		Message:  err.Error(),
		Err:      core.ErrProtocol,
	}
}

// APIError constructs a normalized APIError.
// If message is empty, HTTP status text is used.
// If sentinel is nil, default status-based mapping is applied.
func APIError(provider string, status int, requestID string, code int, message string, sentinel error) error {
	if message == "" {
		message = http.StatusText(status)
	}
	if sentinel == nil {
		sentinel = SentinelForStatus(status)
	}
	return &core.APIError{
		Provider:  provider,
		Status:    status,
		RequestID: requestID,
		Code:      code,
		Message:   message,
		Err:       sentinel,
	}
}

// SentinelForStatus maps an HTTP status code to a core sentinel error.
func SentinelForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.ErrAuth
	case status == http.StatusTooManyRequests:
		return core.ErrRateLimited
	case status >= 500:
		return core.ErrServer
	case status >= 400:
		return core.ErrRequest
	default:
		return core.ErrProtocol
	}
}

// ParseRetryAfter parses a Retry-After header given either as delay seconds
// or as an HTTP date. It returns zero when the header is absent or invalid.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// RequestID extracts the server request id from common response headers.
func RequestID(h http.Header) string {
	for _, k := range []string{"X-Request-Id", "X-Tripo-Trace-Id", "X-Trace-Id"} {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
