// Package metrics exports benchmark telemetry through Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/litcast/infrastructure/llm"
	"github.com/ahrav/litcast/internal/ports"
)

const namespace = "litcast"

// PrometheusMetrics implements ports.MetricsCollector on a dedicated
// registry. Metric names emitted by the llm middleware, the batch runner
// and the scorer map onto typed vectors; anything else lands in the
// generic events and values vectors.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	llmLatency  *prometheus.HistogramVec
	llmRequests *prometheus.CounterVec
	llmTokens   *prometheus.CounterVec

	predictions   *prometheus.CounterVec
	opLatency     *prometheus.HistogramVec
	fieldAccuracy *prometheus.GaugeVec
	overallScore  *prometheus.GaugeVec
	scoredCases   *prometheus.GaugeVec

	breakerState   *prometheus.GaugeVec
	breakerTrips   *prometheus.CounterVec
	breakerResults *prometheus.CounterVec

	events *prometheus.CounterVec
	values *prometheus.GaugeVec
}

// NewPrometheusMetrics registers every litcast metric on a fresh registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		registry: reg,

		llmLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "Latency of LLM provider requests.",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
			},
			[]string{"provider", "model", "status"},
		),
		llmRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "LLM provider requests by outcome.",
			},
			[]string{"provider", "model", "status"},
		),
		llmTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_tokens_total",
				Help:      "Tokens consumed by LLM requests.",
			},
			[]string{"provider", "model", "token_type"},
		),

		predictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Cases processed by the batch runner.",
			},
			[]string{"model", "status"},
		),
		opLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of runner and builder operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		fieldAccuracy: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "field_accuracy",
				Help:      "Per-field accuracy of the last scoring pass.",
			},
			[]string{"model", "field"},
		),
		overallScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "overall_score",
				Help:      "Mean per-case score of the last scoring pass.",
			},
			[]string{"model"},
		),
		scoredCases: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scored_cases",
				Help:      "Cases that contributed to the last scoring pass.",
			},
			[]string{"model"},
		),

		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Current breaker state (0 closed, 1 open, 2 half-open).",
			},
			[]string{"provider"},
		),
		breakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_trips_total",
				Help:      "Times the breaker opened.",
			},
			[]string{"provider"},
		),
		breakerResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_results_total",
				Help:      "Calls observed by the breaker.",
			},
			[]string{"provider", "result"},
		),

		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Counters without a dedicated vector.",
			},
			[]string{"metric"},
		),
		values: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "values",
				Help:      "Gauges and histogram samples without a dedicated vector.",
			},
			[]string{"metric"},
		),
	}
}

// Registry returns the registry holding every litcast metric.
func (pm *PrometheusMetrics) Registry() *prometheus.Registry { return pm.registry }

// WriteTextfile writes the current metric values in the text exposition
// format, for node_exporter's textfile collector.
func (pm *PrometheusMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, pm.registry)
}

// RecordLatency observes an operation duration.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, _ map[string]string) {
	pm.opLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter adds value to the counter named metric.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "llm_requests_total":
		pm.llmRequests.WithLabelValues(labels["provider"], labels["model"], labels["status"]).Add(value)
	case "llm_tokens_total":
		pm.llmTokens.WithLabelValues(labels["provider"], labels["model"], labels["token_type"]).Add(value)
	case "predictions_total":
		pm.predictions.WithLabelValues(labels["model"], labels["status"]).Add(value)
	default:
		pm.events.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge sets the gauge named metric.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	switch metric {
	case "field_accuracy":
		pm.fieldAccuracy.WithLabelValues(labels["model"], labels["field"]).Set(value)
	case "overall_score":
		pm.overallScore.WithLabelValues(labels["model"]).Set(value)
	case "scored_cases":
		pm.scoredCases.WithLabelValues(labels["model"]).Set(value)
	default:
		pm.values.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram observes value in the histogram named metric.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case "llm_latency_seconds":
		pm.llmLatency.WithLabelValues(labels["provider"], labels["model"], labels["status"]).Observe(value)
	default:
		pm.values.WithLabelValues(metric).Set(value)
	}
}

// CircuitBreaker returns an llm.CircuitBreakerMetrics that reports into pm
// under the given provider label.
func (pm *PrometheusMetrics) CircuitBreaker(provider string) llm.CircuitBreakerMetrics {
	return &breakerMetrics{pm: pm, provider: provider}
}

type breakerMetrics struct {
	pm       *PrometheusMetrics
	provider string
}

func (b *breakerMetrics) RecordState(state llm.CircuitBreakerState) {
	b.pm.breakerState.WithLabelValues(b.provider).Set(float64(state))
}

func (b *breakerMetrics) RecordTrip() { b.pm.breakerTrips.WithLabelValues(b.provider).Inc() }

func (b *breakerMetrics) RecordSuccess() {
	b.pm.breakerResults.WithLabelValues(b.provider, "success").Inc()
}

func (b *breakerMetrics) RecordFailure() {
	b.pm.breakerResults.WithLabelValues(b.provider, "failure").Inc()
}

var (
	_ ports.MetricsCollector    = (*PrometheusMetrics)(nil)
	_ llm.CircuitBreakerMetrics = (*breakerMetrics)(nil)
)
