package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fyrsmithlabs/beacond/internal/logging"
)

// newMetricsHandler builds the /metrics handler. A dedicated registry keeps
// repeated server construction (tests, restarts) from tripping duplicate
// registration on the global default.
func newMetricsHandler(logger *logging.Logger) http.Handler {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "beacond",
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Number of connected client sessions.",
		},
		func() float64 {
			return float64(logger.Sessions().Count())
		},
	))

	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "beacond",
			Subsystem: "traces",
			Name:      "active",
			Help:      "Number of operations currently in flight.",
		},
		func() float64 {
			return float64(logger.Correlator().ActiveSpans())
		},
	))

	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
