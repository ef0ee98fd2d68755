package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/time/rate"
)

type sample struct {
	name   string
	value  float64
	labels map[string]string
}

type recordingCollector struct {
	mu         sync.Mutex
	counters   []sample
	histograms []sample
}

func (c *recordingCollector) RecordLatency(string, time.Duration, map[string]string) {}
func (c *recordingCollector) RecordGauge(string, float64, map[string]string)         {}

func (c *recordingCollector) RecordCounter(name string, v float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters = append(c.counters, sample{name, v, labels})
}

func (c *recordingCollector) RecordHistogram(name string, v float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.histograms = append(c.histograms, sample{name, v, labels})
}

func TestMetricsMiddleware_Success(t *testing.T) {
	// Given a successful provider
	collector := &recordingCollector{}
	wrapped := MetricsMiddleware(collector, "openai")(NewMockCoreLLM())

	// When a request completes
	_, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)
	require.NoError(t, err)

	// Then latency, request and token metrics carry provider labels
	require.Len(t, collector.histograms, 1)
	assert.Equal(t, "llm_latency_seconds", collector.histograms[0].name)
	assert.Equal(t, map[string]string{"provider": "openai", "model": "test-model", "status": "success"},
		collector.histograms[0].labels)

	require.Len(t, collector.counters, 3)
	assert.Equal(t, "llm_requests_total", collector.counters[0].name)
	assert.Equal(t, 10.0, collector.counters[1].value)
	assert.Equal(t, "input", collector.counters[1].labels["token_type"])
	assert.Equal(t, 20.0, collector.counters[2].value)
	assert.Equal(t, "output", collector.counters[2].labels["token_type"])
	_, leaked := collector.counters[0].labels["token_type"]
	assert.False(t, leaked, "request counter labels must not be mutated")
}

func TestMetricsMiddleware_Status(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"circuit_open", ErrCircuitOpen, "circuit_open"},
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"provider_timeout", NewProviderError("x", ErrorTypeTimeout, 408, "", nil), "timeout"},
		{"rate_limited", retryable("slow"), "rate_limited"},
		{"other", errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockCoreLLM()
			mock.Error = tt.err
			collector := &recordingCollector{}

			_, _, _, _ = MetricsMiddleware(collector, "google")(mock).DoRequest(context.Background(), "p", nil)

			require.Len(t, collector.counters, 1, "no token counters on failure")
			assert.Equal(t, tt.want, collector.counters[0].labels["status"])
		})
	}
}

func TestMetricsMiddleware_NilCollector(t *testing.T) {
	resp, _, _, err := MetricsMiddleware(nil, "openai")(NewMockCoreLLM()).DoRequest(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, "test response", resp)
}

func TestTimeoutMiddleware(t *testing.T) {
	// Given a provider slower than the timeout
	mock := NewMockCoreLLM()
	mock.ResponseDelay = time.Second
	wrapped := TimeoutMiddleware(20 * time.Millisecond)(mock)

	// When a request is made
	_, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)

	// Then it fails with a deadline error
	require.ErrorIs(t, err, context.DeadlineExceeded)
	_, hasDeadline := mock.LastContext.Deadline()
	assert.True(t, hasDeadline)
}

func TestTimeoutMiddleware_ZeroDisables(t *testing.T) {
	mock := NewMockCoreLLM()
	_, _, _, err := TimeoutMiddleware(0)(mock).DoRequest(context.Background(), "prompt", nil)
	require.NoError(t, err)
	_, hasDeadline := mock.LastContext.Deadline()
	assert.False(t, hasDeadline)
}

func TestRateLimitMiddleware_PacesRequests(t *testing.T) {
	// Given a limit of 20 rps with no burst
	mock := NewMockCoreLLM()
	wrapped := RateLimitMiddleware(rate.Limit(20), 1)(mock)
	ctx := context.Background()

	// When three requests are made back to back
	for range 3 {
		_, _, _, err := wrapped.DoRequest(ctx, "prompt", nil)
		require.NoError(t, err)
	}

	// Then they are spaced by roughly 50ms
	gap := mock.GetTimeBetweenCalls(0, 2)
	require.NotNil(t, gap)
	assert.GreaterOrEqual(t, *gap, 80*time.Millisecond)
}

func TestRateLimitMiddleware_ContextCanceled(t *testing.T) {
	mock := NewMockCoreLLM()
	wrapped := RateLimitMiddleware(rate.Every(time.Hour), 1)(mock)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, _, err := wrapped.DoRequest(ctx, "prompt", nil)
	require.NoError(t, err, "burst allows the first request")

	_, _, _, err = wrapped.DoRequest(ctx, "prompt", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
	assert.Equal(t, 1, mock.GetCallCount())
}

func TestTracingMiddleware(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	t.Run("success records token attributes", func(t *testing.T) {
		wrapped := TracingMiddlewareWithTracer(tracer, "anthropic")(NewMockCoreLLM())
		_, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)
		require.NoError(t, err)

		spans := recorder.Ended()
		require.NotEmpty(t, spans)
		span := spans[len(spans)-1]
		assert.Equal(t, "llm.request", span.Name())
		attrs := map[string]any{}
		for _, kv := range span.Attributes() {
			attrs[string(kv.Key)] = kv.Value.AsInterface()
		}
		assert.Equal(t, "anthropic", attrs["llm.provider"])
		assert.Equal(t, "test-model", attrs["llm.model"])
		assert.Equal(t, int64(10), attrs["llm.tokens.input"])
		assert.Equal(t, int64(20), attrs["llm.tokens.output"])
	})

	t.Run("failure marks span as error", func(t *testing.T) {
		mock := NewMockCoreLLM()
		mock.Error = errors.New("boom")
		wrapped := TracingMiddlewareWithTracer(tracer, "anthropic")(mock)
		_, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)
		require.Error(t, err)

		spans := recorder.Ended()
		span := spans[len(spans)-1]
		assert.Equal(t, codes.Error, span.Status().Code)
		assert.Equal(t, "boom", span.Status().Description)
	})
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next CoreLLM) CoreLLM {
			return &orderLLM{CoreLLM: next, name: name, order: &order}
		}
	}

	core := Chain(NewMockCoreLLM(), tag("outer"), tag("inner"))
	_, _, _, err := core.DoRequest(context.Background(), "prompt", nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type orderLLM struct {
	CoreLLM
	name  string
	order *[]string
}

func (o *orderLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	*o.order = append(*o.order, o.name)
	return o.CoreLLM.DoRequest(ctx, prompt, opts)
}
