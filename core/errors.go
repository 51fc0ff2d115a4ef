package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for classification. Every error returned by this module
// wraps exactly one of them, so errors.Is is enough to tell kinds apart.
var (
	ErrConfig           = errors.New("config error")
	ErrInput            = errors.New("input error")
	ErrAuth             = errors.New("auth error")
	ErrRateLimited      = errors.New("rate limited")
	ErrRequest          = errors.New("request error")
	ErrServer           = errors.New("server error")
	ErrTransport        = errors.New("transport error")
	ErrProtocol         = errors.New("protocol error")
	ErrPoll             = errors.New("poll error")
	ErrTimeout          = errors.New("timeout")
	ErrGenerationFailed = errors.New("generation failed")
	ErrInvalidState     = errors.New("invalid state")
	ErrIO               = errors.New("io error")
)

// APIError represents an error returned by the generation service with full context.
type APIError struct {
	Provider   string
	Status     int
	Code       int
	Message    string
	Suggestion string
	RequestID  string
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %s (status=%d, code=%d", e.Provider, e.Message, e.Status, e.Code)
	if e.RequestID != "" {
		msg += ", request_id=" + e.RequestID
	}
	msg += ")"
	if e.Suggestion != "" {
		msg += ": " + e.Suggestion
	}
	return msg
}

// Unwrap returns the classification sentinel.
func (e *APIError) Unwrap() error {
	return e.Err
}

// ValidationError reports a bad local argument. It unwraps to ErrInput, or
// to ErrConfig for credential and configuration problems.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", e.Err, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func inputError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...), Err: ErrInput}
}

// UploadError identifies which file of a batch upload failed.
type UploadError struct {
	Index int
	Path  string
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %d (%s): %v", e.Index, e.Path, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// PollError is returned when the poller exhausts its budget of consecutive
// transient failures. It matches both ErrPoll and the last underlying cause.
type PollError struct {
	TaskID   string
	Attempts int
	Err      error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll error: task %s: %d consecutive failures: %v", e.TaskID, e.Attempts, e.Err)
}

func (e *PollError) Unwrap() []error {
	return []error{ErrPoll, e.Err}
}

// GenerationFailedError carries the server-reported reason for a task that
// ended in failed or cancelled.
type GenerationFailedError struct {
	TaskID string
	Status TaskStatus
	Reason string
}

func (e *GenerationFailedError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "no details"
	}
	return fmt.Sprintf("generation failed: task %s %s: %s", e.TaskID, e.Status, reason)
}

func (e *GenerationFailedError) Unwrap() error {
	return ErrGenerationFailed
}

// IsTransient reports whether err is likely to succeed on retry: network
// failures, 5xx responses and rate limiting.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrServer) || errors.Is(err, ErrRateLimited)
}

var kinds = []struct {
	err  error
	name string
}{
	{ErrConfig, "ConfigError"},
	{ErrInput, "InputError"},
	{ErrPoll, "PollError"},
	{ErrTimeout, "TimeoutError"},
	{ErrGenerationFailed, "GenerationFailedError"},
	{ErrInvalidState, "InvalidStateError"},
	{ErrIO, "IOError"},
	{ErrAuth, "AuthError"},
	{ErrRateLimited, "RateLimitError"},
	{ErrRequest, "RequestError"},
	{ErrServer, "ServerError"},
	{ErrTransport, "TransportError"},
	{ErrProtocol, "ProtocolError"},
}

// Kind returns the error kind name for err (e.g. "InputError"), "Canceled"
// for local abandonment, or "Error" when err is unclassified.
// PollError takes precedence over the transient cause it wraps.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	if errors.Is(err, context.Canceled) {
		return "Canceled"
	}
	return "Error"
}
