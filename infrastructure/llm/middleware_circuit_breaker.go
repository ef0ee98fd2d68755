package llm

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without contacting the provider while the
// breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState is the breaker's position.
type CircuitBreakerState int

// Breaker states.
const (
	// StateClosed passes every request through.
	StateClosed CircuitBreakerState = iota
	// StateOpen rejects requests until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets a single probe through.
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	}
	return "closed"
}

// CircuitBreakerMetrics observes breaker transitions.
type CircuitBreakerMetrics interface {
	RecordState(state CircuitBreakerState)
	RecordTrip()
	RecordSuccess()
	RecordFailure()
}

// CircuitBreaker opens after maxFailures consecutive provider failures and
// admits one probe once cooldown has passed. Errors that describe the
// request rather than the provider (bad request, content policy, caller
// cancellation) do not count toward tripping.
type CircuitBreaker struct {
	mu            sync.Mutex
	state         CircuitBreakerState
	failures      int
	maxFailures   int
	cooldown      time.Duration
	openedAt      time.Time
	probeInFlight bool
	now           func() time.Time
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:       StateClosed,
		maxFailures: max(1, maxFailures),
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// State returns the current state, reporting StateHalfOpen once an open
// breaker's cooldown has elapsed.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cooldown {
		return StateHalfOpen
	}
	return cb.state
}

// Call runs fn unless the breaker is open.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probeInFlight = true
	case StateHalfOpen:
		if cb.probeInFlight {
			return ErrCircuitOpen
		}
		cb.probeInFlight = true
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	wasProbe := cb.state == StateHalfOpen
	cb.probeInFlight = false

	if err == nil || !tripsBreaker(err) {
		if wasProbe && err != nil {
			// Inconclusive probe; allow another.
			return
		}
		cb.failures = 0
		cb.state = StateClosed
		return
	}

	cb.failures++
	if wasProbe || cb.failures >= cb.maxFailures {
		cb.state = StateOpen
		cb.openedAt = cb.now()
	}
}

func tripsBreaker(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Type {
		case ErrorTypeBadRequest, ErrorTypeContentPolicy, ErrorTypeNotFound, ErrorTypeCanceled:
			return false
		}
	}
	return true
}

type circuitBreakerLLM struct {
	next    CoreLLM
	cb      *CircuitBreaker
	metrics CircuitBreakerMetrics
}

// CircuitBreakerMiddleware shares one breaker across every client it wraps.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration) Middleware {
	return CircuitBreakerMiddlewareWithMetrics(maxFailures, cooldown, nil)
}

// CircuitBreakerMiddlewareWithMetrics is CircuitBreakerMiddleware reporting
// to metrics. A nil metrics is allowed.
func CircuitBreakerMiddlewareWithMetrics(maxFailures int, cooldown time.Duration, metrics CircuitBreakerMetrics) Middleware {
	cb := NewCircuitBreaker(maxFailures, cooldown)
	return func(next CoreLLM) CoreLLM {
		return &circuitBreakerLLM{next: next, cb: cb, metrics: metrics}
	}
}

func (c *circuitBreakerLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	var (
		response            string
		tokensIn, tokensOut int
	)
	before := c.cb.State()

	err := c.cb.Call(func() error {
		var err error
		response, tokensIn, tokensOut, err = c.next.DoRequest(ctx, prompt, opts)
		return err
	})

	if c.metrics != nil {
		after := c.cb.State()
		switch {
		case err == nil:
			c.metrics.RecordSuccess()
		case errors.Is(err, ErrCircuitOpen):
		default:
			c.metrics.RecordFailure()
		}
		if after == StateOpen && before != StateOpen {
			c.metrics.RecordTrip()
		}
		c.metrics.RecordState(after)
	}

	return response, tokensIn, tokensOut, err
}

func (c *circuitBreakerLLM) GetModel() string  { return c.next.GetModel() }
func (c *circuitBreakerLLM) SetModel(m string) { c.next.SetModel(m) }
