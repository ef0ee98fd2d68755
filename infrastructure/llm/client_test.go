package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerMock(t *testing.T, name string, mock *MockCoreLLM) {
	t.Helper()
	RegisterProviderFactory(name, func(config ClientConfig) (CoreLLM, error) {
		mock.SetModel(config.Model)
		return mock, nil
	})
	t.Cleanup(func() {
		factoriesMu.Lock()
		defer factoriesMu.Unlock()
		delete(providerFactories, name)
	})
}

func TestNewClient(t *testing.T) {
	mock := NewMockCoreLLM()
	registerMock(t, "mock-client", mock)

	t.Run("wraps provider in middleware", func(t *testing.T) {
		var wrapped int
		count := func(next CoreLLM) CoreLLM {
			wrapped++
			return next
		}

		client, err := NewClient("mock-client", ClientConfig{
			APIKey:     "key",
			Model:      "m-1",
			Middleware: []Middleware{count, count},
		})

		require.NoError(t, err)
		assert.Equal(t, 2, wrapped)
		assert.Equal(t, "m-1", client.GetModel())
		assert.Equal(t, "mock-client", client.Provider())
	})

	t.Run("complete passes options through", func(t *testing.T) {
		client, err := NewClient("mock-client", ClientConfig{APIKey: "key", Model: "m-1"})
		require.NoError(t, err)

		reply, in, out, err := client.CompleteWithUsage(context.Background(), "hello", map[string]any{"system": "s"})

		require.NoError(t, err)
		assert.Equal(t, "test response", reply)
		assert.Equal(t, 10, in)
		assert.Equal(t, 20, out)
		assert.Equal(t, "hello", mock.LastPrompt)
		assert.Equal(t, "s", mock.LastOpts["system"])
	})

	t.Run("validation", func(t *testing.T) {
		_, err := NewClient("mock-client", ClientConfig{Model: "m"})
		require.ErrorIs(t, err, ErrEmptyAPIKey)

		_, err = NewClient("mock-client", ClientConfig{APIKey: "k"})
		require.Error(t, err)

		_, err = NewClient("nope", ClientConfig{APIKey: "k", Model: "m"})
		require.ErrorIs(t, err, ErrUnknownProvider)
	})
}

func TestRegisteredProviders(t *testing.T) {
	providers := RegisteredProviders()
	assert.Subset(t, providers, []string{ProviderAnthropic, ProviderGoogle, ProviderOpenAI})
	assert.IsNonDecreasing(t, providers)
}
