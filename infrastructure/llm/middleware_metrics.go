package llm

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/litcast/internal/ports"
)

type metricsLLM struct {
	next      CoreLLM
	collector ports.MetricsCollector
	provider  string
}

// MetricsMiddleware records llm_latency_seconds, llm_requests_total and
// llm_tokens_total for every request, labeled by provider, model, and
// status.
func MetricsMiddleware(collector ports.MetricsCollector, provider string) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &metricsLLM{next: next, collector: collector, provider: provider}
	}
}

func (m *metricsLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	response, tokensIn, tokensOut, err := m.next.DoRequest(ctx, prompt, opts)
	if m.collector == nil {
		return response, tokensIn, tokensOut, err
	}

	labels := map[string]string{
		"provider": m.provider,
		"model":    m.next.GetModel(),
		"status":   requestStatus(err),
	}
	m.collector.RecordHistogram("llm_latency_seconds", time.Since(start).Seconds(), labels)
	m.collector.RecordCounter("llm_requests_total", 1, labels)

	if err == nil {
		m.collector.RecordCounter("llm_tokens_total", float64(tokensIn), withLabel(labels, "token_type", "input"))
		m.collector.RecordCounter("llm_tokens_total", float64(tokensOut), withLabel(labels, "token_type", "output"))
	}
	return response, tokensIn, tokensOut, err
}

func requestStatus(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, ErrCircuitOpen) {
		return "circuit_open"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Type {
		case ErrorTypeTimeout:
			return "timeout"
		case ErrorTypeRateLimit:
			return "rate_limited"
		}
	}
	return "error"
}

func withLabel(labels map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		out[k] = v
	}
	out[key] = value
	return out
}

func (m *metricsLLM) GetModel() string      { return m.next.GetModel() }
func (m *metricsLLM) SetModel(model string) { m.next.SetModel(model) }
