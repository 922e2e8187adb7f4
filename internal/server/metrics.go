package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	sessions prometheus.Gauge
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	factory := promauto.With(registerer)
	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "copilot_http_requests_total",
			Help: "HTTP API requests by route and status code",
		}, []string{"route", "code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "copilot_http_request_duration_seconds",
			Help:    "HTTP API latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "copilot_sessions_active",
			Help: "Open dispatcher sessions",
		}),
	}
}

// instrument wraps h with per-route counters
func (m *metrics) instrument(route string, h http.HandlerFunc) http.Handler {
	labels := prometheus.Labels{"route": route}
	return promhttp.InstrumentHandlerDuration(
		m.duration.MustCurryWith(labels),
		promhttp.InstrumentHandlerCounter(m.requests.MustCurryWith(labels), h),
	)
}
