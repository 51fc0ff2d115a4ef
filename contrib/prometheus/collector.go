// Package prometheus exports provider call metrics through a core.TelemetryHook.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/mberenty7/tripo-tools/core"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "tripo"

// Collector records call counts, durations and in-flight calls per
// provider and operation.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector registers the collector's metrics with reg. A nil reg uses
// prometheus.DefaultRegisterer; an empty namespace uses DefaultNamespace.
func NewCollector(reg prometheus.Registerer, namespace string, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	return &Collector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of provider calls by outcome",
			},
			[]string{"provider", "operation", "outcome"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Provider call duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "operation"},
		),
		inFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Provider calls currently in progress",
			},
			[]string{"provider", "operation"},
		),
		logger: logger.With(zap.String("component", "metrics")),
	}
}

// OnRequestStart implements core.TelemetryHook.
func (c *Collector) OnRequestStart(e core.RequestStartEvent) {
	c.inFlight.WithLabelValues(e.Provider, e.Operation).Inc()
}

// OnRequestEnd implements core.TelemetryHook.
func (c *Collector) OnRequestEnd(e core.RequestEndEvent) {
	c.inFlight.WithLabelValues(e.Provider, e.Operation).Dec()
	c.requestsTotal.WithLabelValues(e.Provider, e.Operation, Outcome(e.Err)).Inc()
	c.requestDuration.WithLabelValues(e.Provider, e.Operation).Observe(e.Duration().Seconds())

	if e.Err != nil {
		c.logger.Debug("provider call failed",
			zap.String("operation", e.Operation),
			zap.String("kind", core.Kind(e.Err)))
	}
}

// Outcome returns the metric label for a call result: "success" or the error kind.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	return core.Kind(err)
}

var _ core.TelemetryHook = (*Collector)(nil)
