package llm

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/chainguard-dev/clog"
)

type retryLLM struct {
	next       CoreLLM
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	sleep      func(context.Context, time.Duration) error
}

// RetryMiddleware retries retryable provider errors (rate limits, 5xx,
// network, timeouts) with exponential backoff and ±25% jitter. Anything
// else, including ErrCircuitOpen, is returned after the first attempt.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &retryLLM{
			next:       next,
			maxRetries: max(0, maxRetries),
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
			sleep:      sleepContext,
		}
	}
}

func (r *retryLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		attempts++
		response, tokensIn, tokensOut, err := r.next.DoRequest(ctx, prompt, opts)
		if err == nil {
			return response, tokensIn, tokensOut, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsRetryable(err) || attempt == r.maxRetries {
			break
		}

		delay := r.backoff(attempt)
		clog.FromContext(ctx).With(
			"model", r.next.GetModel(),
			"attempt", attempt+1,
			"delay", delay,
		).Warnf("retrying LLM request: %v", err)

		if err := r.sleep(ctx, delay); err != nil {
			return "", 0, 0, err
		}
	}

	if attempts == 1 {
		return "", 0, 0, lastErr
	}
	return "", 0, 0, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

func (r *retryLLM) backoff(attempt int) time.Duration {
	attempt = min(max(attempt, 0), 30)
	delay := r.baseDelay * time.Duration(1<<attempt)

	// #nosec G404 -- jitter does not need a cryptographic source.
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.5)
	delay = delay + jitter - delay/4

	if r.maxDelay > 0 && delay > r.maxDelay {
		delay = r.maxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *retryLLM) GetModel() string  { return r.next.GetModel() }
func (r *retryLLM) SetModel(m string) { r.next.SetModel(m) }
