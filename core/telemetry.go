package core

import "time"

// Operation names reported to telemetry hooks.
const (
	OpUpload   = "upload"
	OpSubmit   = "submit"
	OpStatus   = "status"
	OpConvert  = "convert"
	OpDownload = "download"
	OpBalance  = "balance"
)

// TelemetryHook receives notifications about provider call lifecycle events.
// Implementations can use this for logging, metrics, tracing, etc.
//
// Events never carry the API key, prompts, file tokens or asset URLs; only
// operational metadata (provider, operation, task id, timing, outcome).
type TelemetryHook interface {
	// OnRequestStart is called when a provider call begins.
	OnRequestStart(e RequestStartEvent)

	// OnRequestEnd is called when a provider call completes.
	OnRequestEnd(e RequestEndEvent)
}

// RequestStartEvent contains metadata about a starting call.
type RequestStartEvent struct {
	CallID    string    // Correlates start and end events
	Provider  string    // Provider identifier (e.g., "tripo")
	Operation string    // One of the Op* constants
	TaskID    string    // Task being acted on, if any
	Start     time.Time // When the call started
}

// RequestEndEvent contains metadata about a completed call.
// Err is nil on success.
type RequestEndEvent struct {
	CallID    string
	Provider  string
	Operation string
	TaskID    string
	Start     time.Time
	End       time.Time
	Err       error
}

// Duration returns the elapsed time for the call.
func (e RequestEndEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// NoopTelemetryHook is a no-op implementation of TelemetryHook.
type NoopTelemetryHook struct{}

// OnRequestStart does nothing.
func (NoopTelemetryHook) OnRequestStart(RequestStartEvent) {}

// OnRequestEnd does nothing.
func (NoopTelemetryHook) OnRequestEnd(RequestEndEvent) {}

// MultiTelemetryHook fans events out to several hooks in order.
type MultiTelemetryHook []TelemetryHook

// OnRequestStart forwards the event to every hook.
func (m MultiTelemetryHook) OnRequestStart(e RequestStartEvent) {
	for _, h := range m {
		h.OnRequestStart(e)
	}
}

// OnRequestEnd forwards the event to every hook.
func (m MultiTelemetryHook) OnRequestEnd(e RequestEndEvent) {
	for _, h := range m {
		h.OnRequestEnd(e)
	}
}

var (
	_ TelemetryHook = NoopTelemetryHook{}
	_ TelemetryHook = MultiTelemetryHook{}
)
