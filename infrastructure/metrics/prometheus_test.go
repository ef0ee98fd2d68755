package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/litcast/infrastructure/llm"
)

func TestPrometheusMetrics_LLMRequests(t *testing.T) {
	pm := NewPrometheusMetrics()
	labels := map[string]string{"provider": "openai", "model": "gpt-4.1", "status": "success"}

	pm.RecordCounter("llm_requests_total", 1, labels)
	pm.RecordCounter("llm_requests_total", 1, labels)
	pm.RecordCounter("llm_tokens_total", 1200, map[string]string{"provider": "openai", "model": "gpt-4.1", "token_type": "input"})
	pm.RecordHistogram("llm_latency_seconds", 1.5, labels)

	assert.InDelta(t, 2, testutil.ToFloat64(pm.llmRequests.WithLabelValues("openai", "gpt-4.1", "success")), 0)
	assert.InDelta(t, 1200, testutil.ToFloat64(pm.llmTokens.WithLabelValues("openai", "gpt-4.1", "input")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(pm.llmLatency, "litcast_llm_request_duration_seconds"))
}

func TestPrometheusMetrics_PredictionsAndScores(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.RecordCounter("predictions_total", 1, map[string]string{"model": "openai/gpt-4.1", "status": "success"})
	pm.RecordCounter("predictions_total", 1, map[string]string{"model": "openai/gpt-4.1", "status": "failed"})
	pm.RecordGauge("overall_score", 0.62, map[string]string{"model": "openai/gpt-4.1"})
	pm.RecordGauge("field_accuracy", 0.8, map[string]string{"model": "openai/gpt-4.1", "field": "resolution_type"})
	pm.RecordLatency("predict_case", 250*time.Millisecond, nil)

	expected := `
# HELP litcast_predictions_total Cases processed by the batch runner.
# TYPE litcast_predictions_total counter
litcast_predictions_total{model="openai/gpt-4.1",status="failed"} 1
litcast_predictions_total{model="openai/gpt-4.1",status="success"} 1
`
	require.NoError(t, testutil.CollectAndCompare(pm.predictions, strings.NewReader(expected), "litcast_predictions_total"))
	assert.InDelta(t, 0.62, testutil.ToFloat64(pm.overallScore.WithLabelValues("openai/gpt-4.1")), 1e-9)
	assert.InDelta(t, 0.8, testutil.ToFloat64(pm.fieldAccuracy.WithLabelValues("openai/gpt-4.1", "resolution_type")), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(pm.opLatency))
}

func TestPrometheusMetrics_Fallbacks(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.RecordCounter("cases_skipped", 3, nil)
	pm.RecordGauge("queue_depth", 7, nil)
	pm.RecordHistogram("prompt_chars", 4096, nil)

	assert.InDelta(t, 3, testutil.ToFloat64(pm.events.WithLabelValues("cases_skipped")), 0)
	assert.InDelta(t, 7, testutil.ToFloat64(pm.values.WithLabelValues("queue_depth")), 0)
	assert.InDelta(t, 4096, testutil.ToFloat64(pm.values.WithLabelValues("prompt_chars")), 0)
}

func TestPrometheusMetrics_IndependentRegistries(t *testing.T) {
	a, b := NewPrometheusMetrics(), NewPrometheusMetrics()
	a.RecordCounter("predictions_total", 1, map[string]string{"model": "m", "status": "success"})

	assert.Equal(t, 1, testutil.CollectAndCount(a.predictions))
	assert.Equal(t, 0, testutil.CollectAndCount(b.predictions))
}

func TestPrometheusMetrics_CircuitBreaker(t *testing.T) {
	pm := NewPrometheusMetrics()
	cb := pm.CircuitBreaker("anthropic")

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordTrip()
	cb.RecordState(llm.StateOpen)
	cb.RecordSuccess()

	assert.InDelta(t, 2, testutil.ToFloat64(pm.breakerResults.WithLabelValues("anthropic", "failure")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pm.breakerResults.WithLabelValues("anthropic", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pm.breakerTrips.WithLabelValues("anthropic")), 0)
	assert.InDelta(t, float64(llm.StateOpen), testutil.ToFloat64(pm.breakerState.WithLabelValues("anthropic")), 0)
}

func TestPrometheusMetrics_WriteTextfile(t *testing.T) {
	pm := NewPrometheusMetrics()
	pm.RecordGauge("overall_score", 0.5, map[string]string{"model": "google/gemini-2.5-flash"})

	path := filepath.Join(t.TempDir(), "litcast.prom")
	require.NoError(t, pm.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `litcast_overall_score{model="google/gemini-2.5-flash"} 0.5`)
}
