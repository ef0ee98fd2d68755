// Package testutils holds test doubles shared across packages.
package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/ahrav/litcast/internal/domain"
	"github.com/ahrav/litcast/internal/ports"
)

var _ ports.LLMClient = (*MockLLMClient)(nil)

// MockResponse scripts the reply to prompts containing Pattern. An empty
// Pattern matches every prompt.
type MockResponse struct {
	Pattern  string
	Response string
	Err      error
}

// MockLLMClient returns scripted replies chosen by substring match on the
// prompt. Patterns are tried in the order they were added. It records every
// call and is safe for concurrent use.
type MockLLMClient struct {
	model string

	mu        sync.Mutex
	responses []MockResponse
	fallback  MockResponse
	calls     []MockCall
}

// MockCall is one recorded Complete invocation.
type MockCall struct {
	Prompt  string
	Options map[string]any
}

// NewMockLLMClient returns a client that answers every prompt with an
// empty JSON object until responses are added.
func NewMockLLMClient(model string) *MockLLMClient {
	return &MockLLMClient{
		model:    model,
		fallback: MockResponse{Response: "{}"},
	}
}

// AddResponse scripts a reply. Later patterns are consulted only when no
// earlier pattern matched.
func (m *MockLLMClient) AddResponse(r MockResponse) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.Pattern == "" {
		m.fallback = r
		return m
	}
	m.responses = append(m.responses, r)
	return m
}

// Complete implements ports.LLMClient.
func (m *MockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Prompt: prompt, Options: options})

	r := m.fallback
	for _, candidate := range m.responses {
		if strings.Contains(prompt, candidate.Pattern) {
			r = candidate
			break
		}
	}
	if r.Err != nil {
		return "", r.Err
	}
	return r.Response, nil
}

// GetModel implements ports.LLMClient.
func (m *MockLLMClient) GetModel() string { return m.model }

// Calls returns a copy of the recorded calls.
func (m *MockLLMClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallCount returns how many times Complete was called.
func (m *MockLLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// AnswerJSON renders gt as the JSON object a perfect model would return.
// Unknown ground-truth fields are answered "unknown".
func AnswerJSON(gt domain.GroundTruth) string {
	answer := map[string]any{"resolution_type": string(gt.ResolutionType)}
	for _, f := range domain.MonetaryFields() {
		if v := gt.Amount(f); v != nil {
			answer[string(f)] = *v
		} else {
			answer[string(f)] = "unknown"
		}
	}
	for _, f := range domain.FlagFields() {
		if v := gt.Flag(f); v != nil {
			answer[string(f)] = *v
		} else {
			answer[string(f)] = "unknown"
		}
	}
	b, err := json.Marshal(answer)
	if err != nil {
		panic(err)
	}
	return "```json\n" + string(b) + "\n```"
}
