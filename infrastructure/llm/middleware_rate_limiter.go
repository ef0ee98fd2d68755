package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type rateLimitedLLM struct {
	next    CoreLLM
	limiter *rate.Limiter
}

// RateLimitMiddleware paces requests with a token bucket of limit requests
// per second and the given burst. The bucket is shared by every client the
// middleware wraps, so one limiter can cover all workers of a run.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, max(1, burst))
	return func(next CoreLLM) CoreLLM {
		return &rateLimitedLLM{next: next, limiter: limiter}
	}
}

func (r *rateLimitedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", 0, 0, fmt.Errorf("rate limit wait: %w", err)
	}
	return r.next.DoRequest(ctx, prompt, opts)
}

func (r *rateLimitedLLM) GetModel() string  { return r.next.GetModel() }
func (r *rateLimitedLLM) SetModel(m string) { r.next.SetModel(m) }
