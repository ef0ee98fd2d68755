package llm

import (
	"context"
	"sync"
	"time"
)

// MockCoreLLM is a scriptable CoreLLM for middleware and client tests.
type MockCoreLLM struct {
	mu sync.Mutex

	Response      string
	TokensIn      int
	TokensOut     int
	Error         error
	Model         string
	ResponseDelay time.Duration

	// FailUntilAttempt fails the first N calls. Without Error set the
	// failure is a retryable server error.
	FailUntilAttempt int
	AlternateErrors  bool

	CallCount      int
	LastPrompt     string
	LastOpts       map[string]any
	LastContext    context.Context
	Contexts       []context.Context
	CallTimestamps []time.Time
}

func NewMockCoreLLM() *MockCoreLLM {
	return &MockCoreLLM{
		Response:  "test response",
		TokensIn:  10,
		TokensOut: 20,
		Model:     "test-model",
	}
}

func (m *MockCoreLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	m.mu.Lock()
	m.CallCount++
	call := m.CallCount
	m.LastPrompt = prompt
	m.LastOpts = opts
	m.LastContext = ctx
	m.Contexts = append(m.Contexts, ctx)
	m.CallTimestamps = append(m.CallTimestamps, time.Now())
	delay := m.ResponseDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailUntilAttempt > 0 && call <= m.FailUntilAttempt {
		return "", 0, 0, m.failure("simulated failure")
	}
	if m.AlternateErrors && call%2 == 0 {
		return "", 0, 0, m.failure("alternating failure")
	}
	if m.Error != nil {
		return "", 0, 0, m.Error
	}
	return m.Response, m.TokensIn, m.TokensOut, nil
}

func (m *MockCoreLLM) failure(msg string) error {
	if m.Error != nil {
		return m.Error
	}
	return NewProviderError("mock", ErrorTypeServerError, 503, msg, &testError{message: msg})
}

func (m *MockCoreLLM) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Model
}

func (m *MockCoreLLM) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Model = model
}

func (m *MockCoreLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount = 0
	m.LastPrompt = ""
	m.LastOpts = nil
	m.LastContext = nil
	m.Contexts = nil
	m.CallTimestamps = nil
}

func (m *MockCoreLLM) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// GetTimeBetweenCalls returns the gap between two recorded calls, or nil
// if either index is out of range.
func (m *MockCoreLLM) GetTimeBetweenCalls(call1, call2 int) *time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if call1 < 0 || call2 < 0 || call1 >= len(m.CallTimestamps) || call2 >= len(m.CallTimestamps) {
		return nil
	}
	d := m.CallTimestamps[call2].Sub(m.CallTimestamps[call1])
	return &d
}

type testError struct {
	message string
}

func (e *testError) Error() string { return e.message }

func retryable(msg string) error {
	return NewProviderError("mock", ErrorTypeRateLimit, 429, msg, nil)
}
