package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{
		Provider:   "tripo",
		Status:     401,
		Code:       1002,
		Message:    "invalid api key",
		Suggestion: "check TRIPO_API_KEY",
		RequestID:  "req-1",
		Err:        ErrAuth,
	}

	assert.Equal(t, "tripo: invalid api key (status=401, code=1002, request_id=req-1): check TRIPO_API_KEY", err.Error())
	assert.ErrorIs(t, err, ErrAuth)
	assert.NotErrorIs(t, err, ErrRequest)
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&ValidationError{Field: "api_key", Reason: "missing", Err: ErrConfig}, "ConfigError"},
		{inputError("views", "too few"), "InputError"},
		{&APIError{Status: 403, Err: ErrAuth}, "AuthError"},
		{&APIError{Status: 429, Err: ErrRateLimited}, "RateLimitError"},
		{&APIError{Status: 400, Err: ErrRequest}, "RequestError"},
		{&APIError{Status: 502, Err: ErrServer}, "ServerError"},
		{fmt.Errorf("reset: %w", ErrTransport), "TransportError"},
		{fmt.Errorf("%w: bad json", ErrProtocol), "ProtocolError"},
		{&PollError{TaskID: "t", Attempts: 4, Err: ErrTransport}, "PollError"},
		{fmt.Errorf("%w: waited 10m", ErrTimeout), "TimeoutError"},
		{&GenerationFailedError{TaskID: "t", Status: StatusFailed}, "GenerationFailedError"},
		{fmt.Errorf("%w: not finished", ErrInvalidState), "InvalidStateError"},
		{fmt.Errorf("%w: disk full", ErrIO), "IOError"},
		{&UploadError{Index: 2, Path: "c.png", Err: inputError("path", "missing")}, "InputError"},
		{fmt.Errorf("wait: %w", context.Canceled), "Canceled"},
		{errors.New("mystery"), "Error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ErrTransport))
	assert.True(t, IsTransient(&APIError{Status: 503, Err: ErrServer}))
	assert.True(t, IsTransient(&APIError{Status: 429, Err: ErrRateLimited, RetryAfter: time.Second}))

	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(&APIError{Status: 401, Err: ErrAuth}))
	assert.False(t, IsTransient(&APIError{Status: 400, Err: ErrRequest}))
	assert.False(t, IsTransient(fmt.Errorf("%w: truncated", ErrProtocol)))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(fmt.Errorf("%w: %w", ErrTransport, context.Canceled)))
}

func TestGenerationFailedErrorMessage(t *testing.T) {
	err := &GenerationFailedError{TaskID: "abc", Status: StatusCancelled}
	assert.Equal(t, "generation failed: task abc cancelled: no details", err.Error())
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestUploadErrorUnwraps(t *testing.T) {
	cause := &APIError{Status: 500, Err: ErrServer}
	err := &UploadError{Index: 1, Path: "back.png", Err: cause}

	assert.Contains(t, err.Error(), "upload 1 (back.png)")
	assert.ErrorIs(t, err, ErrServer)
}
