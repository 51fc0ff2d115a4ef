package commands

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	promcontrib "github.com/mberenty7/tripo-tools/contrib/prometheus"
	"github.com/mberenty7/tripo-tools/core"
)

// newMetrics returns a telemetry hook backed by a private registry and a
// func that writes the registry to path in the text exposition format, for
// node_exporter's textfile collector.
func newMetrics(path string, logger *zap.Logger) (core.TelemetryHook, func()) {
	reg := prometheus.NewRegistry()
	collector := promcontrib.NewCollector(reg, "", logger)

	write := func() {
		if err := prometheus.WriteToTextfile(path, reg); err != nil {
			logger.Warn("writing metrics file failed", zap.String("path", path), zap.Error(err))
		}
	}
	return collector, write
}
