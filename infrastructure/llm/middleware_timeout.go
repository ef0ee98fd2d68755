package llm

import (
	"context"
	"time"
)

type timeoutLLM struct {
	next    CoreLLM
	timeout time.Duration
}

// TimeoutMiddleware bounds each attempt. Placed inside RetryMiddleware it
// limits a single call; placed outside it limits the whole retry loop.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &timeoutLLM{next: next, timeout: timeout}
	}
}

func (t *timeoutLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if t.timeout <= 0 {
		return t.next.DoRequest(ctx, prompt, opts)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.DoRequest(ctx, prompt, opts)
}

func (t *timeoutLLM) GetModel() string  { return t.next.GetModel() }
func (t *timeoutLLM) SetModel(m string) { t.next.SetModel(m) }
