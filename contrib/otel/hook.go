// Package otel traces provider calls with OpenTelemetry through a core.TelemetryHook.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mberenty7/tripo-tools/core"
)

// TracerName is the instrumentation scope name.
const TracerName = "github.com/mberenty7/tripo-tools"

// Hook opens one span per provider call. Spans are matched to their end
// event by CallID. Hook is safe for concurrent use.
type Hook struct {
	tracer trace.Tracer
	spans  sync.Map // CallID -> trace.Span
}

// Option configures a Hook.
type Option func(*hookConfig)

type hookConfig struct {
	provider trace.TracerProvider
}

// WithTracerProvider sets the tracer provider. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *hookConfig) {
		c.provider = tp
	}
}

// NewHook creates a tracing hook.
func NewHook(opts ...Option) *Hook {
	cfg := hookConfig{provider: otel.GetTracerProvider()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Hook{tracer: cfg.provider.Tracer(TracerName)}
}

// OnRequestStart implements core.TelemetryHook.
func (h *Hook) OnRequestStart(e core.RequestStartEvent) {
	attrs := []attribute.KeyValue{
		attribute.String("tripo.provider", e.Provider),
		attribute.String("tripo.operation", e.Operation),
	}
	if e.TaskID != "" {
		attrs = append(attrs, attribute.String("tripo.task_id", e.TaskID))
	}
	_, span := h.tracer.Start(context.Background(), e.Provider+"."+e.Operation,
		trace.WithTimestamp(e.Start),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	h.spans.Store(e.CallID, span)
}

// OnRequestEnd implements core.TelemetryHook.
func (h *Hook) OnRequestEnd(e core.RequestEndEvent) {
	v, ok := h.spans.LoadAndDelete(e.CallID)
	if !ok {
		return
	}
	span := v.(trace.Span)
	if e.Err != nil {
		span.SetAttributes(attribute.String("error.kind", core.Kind(e.Err)))
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, core.Kind(e.Err))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(e.End))
}

var _ core.TelemetryHook = (*Hook)(nil)
