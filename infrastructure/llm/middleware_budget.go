package llm

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Budget caps what a run may spend across every client it wraps. Zero
// limits are unlimited.
type Budget struct {
	MaxTokens int64
	MaxCalls  int64

	tokens atomic.Int64
	calls  atomic.Int64
}

// BudgetExceededError reports which limit stopped a request.
type BudgetExceededError struct {
	Resource string
	Limit    int64
	Used     int64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("%s budget exceeded: used %d of %d", e.Resource, e.Used, e.Limit)
}

// Usage returns the tokens and calls charged so far.
func (b *Budget) Usage() (tokens, calls int64) {
	return b.tokens.Load(), b.calls.Load()
}

// reserve charges one call, or reports the limit already reached.
func (b *Budget) reserve() error {
	if b.MaxTokens > 0 {
		if used := b.tokens.Load(); used >= b.MaxTokens {
			return &BudgetExceededError{Resource: "tokens", Limit: b.MaxTokens, Used: used}
		}
	}
	calls := b.calls.Add(1)
	if b.MaxCalls > 0 && calls > b.MaxCalls {
		b.calls.Add(-1)
		return &BudgetExceededError{Resource: "calls", Limit: b.MaxCalls, Used: calls - 1}
	}
	return nil
}

type budgetLLM struct {
	next   CoreLLM
	budget *Budget
}

// BudgetMiddleware rejects requests once budget is spent. Token usage is
// charged after each response, so the request that crosses MaxTokens still
// completes.
func BudgetMiddleware(budget *Budget) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &budgetLLM{next: next, budget: budget}
	}
}

func (b *budgetLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if err := b.budget.reserve(); err != nil {
		return "", 0, 0, err
	}
	response, tokensIn, tokensOut, err := b.next.DoRequest(ctx, prompt, opts)
	b.budget.tokens.Add(int64(tokensIn + tokensOut))
	return response, tokensIn, tokensOut, err
}

func (b *budgetLLM) GetModel() string  { return b.next.GetModel() }
func (b *budgetLLM) SetModel(m string) { b.next.SetModel(m) }
