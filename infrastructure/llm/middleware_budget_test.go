package llm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetMiddleware_Calls(t *testing.T) {
	// Given a budget of two calls
	mock := NewMockCoreLLM()
	budget := &Budget{MaxCalls: 2}
	wrapped := BudgetMiddleware(budget)(mock)

	// When three requests are made
	for range 2 {
		_, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)
		require.NoError(t, err)
	}
	_, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)

	// Then the third is rejected without reaching the provider
	var be *BudgetExceededError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "calls", be.Resource)
	assert.Equal(t, int64(2), be.Used)
	assert.Equal(t, 2, mock.CallCount)
	assert.False(t, IsRetryable(err))

	tokens, calls := budget.Usage()
	assert.Equal(t, int64(60), tokens)
	assert.Equal(t, int64(2), calls)
}

func TestBudgetMiddleware_Tokens(t *testing.T) {
	// Given a 50 token budget and 30 tokens per request
	mock := NewMockCoreLLM()
	wrapped := BudgetMiddleware(&Budget{MaxTokens: 50})(mock)

	// When requests are made until the budget is spent
	for range 2 {
		_, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)
		require.NoError(t, err)
	}
	_, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)

	// Then the request that crossed the limit completed and the next fails
	var be *BudgetExceededError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "tokens", be.Resource)
	assert.Equal(t, int64(60), be.Used)
	assert.Equal(t, 2, mock.CallCount)
}

func TestBudgetMiddleware_Unlimited(t *testing.T) {
	mock := NewMockCoreLLM()
	wrapped := BudgetMiddleware(&Budget{})(mock)
	for range 10 {
		_, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 10, mock.CallCount)
}

func TestBudgetMiddleware_ChargesFailedCalls(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.Error = errors.New("boom")
	budget := &Budget{MaxCalls: 1}
	wrapped := BudgetMiddleware(budget)(mock)

	_, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)
	require.EqualError(t, err, "boom")
	_, _, _, err = wrapped.DoRequest(context.Background(), "prompt", nil)
	assert.ErrorContains(t, err, "calls budget exceeded")
}

func TestBudgetMiddleware_Concurrent(t *testing.T) {
	// Given a shared budget and many workers
	mock := NewMockCoreLLM()
	wrapped := BudgetMiddleware(&Budget{MaxCalls: 25})(mock)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		rejected int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil); err != nil {
				mu.Lock()
				rejected++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Then exactly the budgeted number of calls got through
	assert.Equal(t, 25, mock.GetCallCount())
	assert.Equal(t, 25, rejected)
}
