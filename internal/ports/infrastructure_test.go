package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/litcast/internal/domain"
)

// Test that our interfaces can be implemented correctly

type mockLLMClient struct{ model string }

func (m *mockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	return "mock response", nil
}

func (m *mockLLMClient) GetModel() string { return m.model }

type mockMetricsCollector struct {
	counters map[string]float64
}

func (m *mockMetricsCollector) RecordLatency(string, time.Duration, map[string]string) {}

func (m *mockMetricsCollector) RecordCounter(metric string, value float64, _ map[string]string) {
	m.counters[metric] += value
}

func (m *mockMetricsCollector) RecordGauge(string, float64, map[string]string) {}

func (m *mockMetricsCollector) RecordHistogram(string, float64, map[string]string) {}

type memoryResultStore struct{ sets map[string]*domain.ResultSet }

func (m *memoryResultStore) Load(_ context.Context, model string) (*domain.ResultSet, error) {
	rs, ok := m.sets[model]
	if !ok {
		return nil, domain.ErrResultsNotFound
	}
	return rs, nil
}

func (m *memoryResultStore) Merge(_ context.Context, model string, records ...domain.PredictionRecord) error {
	rs, ok := m.sets[model]
	if !ok {
		rs = domain.NewResultSet(model)
		m.sets[model] = rs
	}
	rs.Merge(records...)
	return nil
}

func (m *memoryResultStore) Reset(_ context.Context, model string) error {
	delete(m.sets, model)
	return nil
}

var (
	_ LLMClient        = (*mockLLMClient)(nil)
	_ MetricsCollector = (*mockMetricsCollector)(nil)
	_ ResultStore      = (*memoryResultStore)(nil)
)

func TestLLMClientContract(t *testing.T) {
	var client LLMClient = &mockLLMClient{model: "test-model"}

	resp, err := client.Complete(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "mock response", resp)
	assert.Equal(t, "test-model", client.GetModel())
}

func TestMetricsCollectorContract(t *testing.T) {
	collector := &mockMetricsCollector{counters: make(map[string]float64)}

	var mc MetricsCollector = collector
	mc.RecordCounter("predictions_total", 1, nil)
	mc.RecordCounter("predictions_total", 2, nil)

	assert.Equal(t, 3.0, collector.counters["predictions_total"])
}

func TestResultStoreContract(t *testing.T) {
	ctx := context.Background()
	var store ResultStore = &memoryResultStore{sets: make(map[string]*domain.ResultSet)}

	_, err := store.Load(ctx, "m")
	assert.ErrorIs(t, err, domain.ErrResultsNotFound)

	require.NoError(t, store.Merge(ctx, "m", domain.PredictionRecord{CaseID: "LR-1", Success: true}))
	rs, err := store.Load(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Len())

	require.NoError(t, store.Reset(ctx, "m"))
	_, err = store.Load(ctx, "m")
	assert.ErrorIs(t, err, domain.ErrResultsNotFound)
}
