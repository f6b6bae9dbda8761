// Package observability exposes Prometheus metrics for the reply pipeline.
//
// All methods are safe to call on a nil *Metrics, so components can be
// constructed without metrics in tests.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered by NewMetrics.
type Metrics struct {
	// RepliesTotal counts finished replies.
	// Labels: mode, outcome (ok|error)
	RepliesTotal *prometheus.CounterVec

	// PipelineDuration measures the end-to-end reply latency in seconds.
	PipelineDuration prometheus.Histogram

	// LLMRequestDuration measures outbound model calls in seconds.
	// Labels: operation (chat|embedding), status (success|error)
	LLMRequestDuration *prometheus.HistogramVec

	// DegradedReads counts reads that failed and were replaced by an empty result.
	// Labels: source (history|semantic|embedding|personality)
	DegradedReads *prometheus.CounterVec

	// SafetyReplacements counts model replies swapped for the safe message.
	SafetyReplacements prometheus.Counter
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RepliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "piskoqo_replies_total",
				Help: "Total number of chat replies by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),

		PipelineDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "piskoqo_reply_duration_seconds",
				Help:    "End-to-end duration of the reply pipeline in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),

		LLMRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "piskoqo_llm_request_duration_seconds",
				Help:    "Duration of outbound model requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"operation", "status"},
		),

		DegradedReads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "piskoqo_degraded_reads_total",
				Help: "Reads that failed and degraded to an empty result",
			},
			[]string{"source"},
		),

		SafetyReplacements: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "piskoqo_safety_replacements_total",
				Help: "Model replies replaced by the safe redirect message",
			},
		),
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ObserveReply records a finished reply.
func (m *Metrics) ObserveReply(mode string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RepliesTotal.WithLabelValues(mode, outcome).Inc()
	m.PipelineDuration.Observe(elapsed.Seconds())
}

// ObserveLLM records one outbound model request.
func (m *Metrics) ObserveLLM(operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.LLMRequestDuration.WithLabelValues(operation, status).Observe(elapsed.Seconds())
}

// DegradedRead records a swallowed read failure.
func (m *Metrics) DegradedRead(source string) {
	if m == nil {
		return
	}
	m.DegradedReads.WithLabelValues(source).Inc()
}

// SafetyReplaced records a blocked reply.
func (m *Metrics) SafetyReplaced() {
	if m == nil {
		return
	}
	m.SafetyReplacements.Inc()
}
