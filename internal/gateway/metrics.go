package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
)

// Metrics records gateway outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	invocations *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	sources     *prometheus.CounterVec
	tokens      *prometheus.CounterVec
}

// NewMetrics registers the gateway collectors on registerer
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		return nil
	}
	factory := promauto.With(registerer)

	return &Metrics{
		invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_gateway_invocations_total",
				Help: "Total number of model invocations by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copilot_gateway_latency_seconds",
				Help:    "Latency of model invocations in seconds",
				Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"tool", "provider"},
		),
		sources: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_gateway_grounding_sources_total",
				Help: "Total number of grounding sources returned to users",
			},
			[]string{"tool"},
		),
		tokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_gateway_tokens_total",
				Help: "Total number of tokens consumed by model invocations",
			},
			[]string{"provider", "direction"},
		),
	}
}

func (m *Metrics) observe(tool catalog.Tool, provider string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if kind := KindOf(err); kind != KindNone {
		outcome = string(kind)
	} else if err != nil {
		outcome = "error"
	}
	m.invocations.WithLabelValues(string(tool), outcome).Inc()
	m.latency.WithLabelValues(string(tool), provider).Observe(duration.Seconds())
}

func (m *Metrics) addSources(tool catalog.Tool, n int) {
	if m == nil || n == 0 {
		return
	}
	m.sources.WithLabelValues(string(tool)).Add(float64(n))
}

func (m *Metrics) addTokens(provider string, in, out int) {
	if m == nil {
		return
	}
	m.tokens.WithLabelValues(provider, "input").Add(float64(in))
	m.tokens.WithLabelValues(provider, "output").Add(float64(out))
}
