// Package llm talks to hosted language models on behalf of the forecasting
// benchmark. Each backend (OpenAI, Anthropic, Google) implements CoreLLM and
// is wrapped by a middleware chain for rate limiting, retries, timeouts,
// circuit breaking, metrics and tracing.
//
// Basic usage:
//
//	ref, _ := llm.ParseModelRef("anthropic/claude-sonnet-4-5")
//	client, err := llm.NewClientFromRef(ref, llm.RefConfig{APIKey: key})
//	reply, err := client.Complete(ctx, prompt, map[string]any{"system": instr})
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ahrav/litcast/internal/ports"
)

// CoreLLM is the minimal surface a provider implements. Middleware wraps
// CoreLLM values, so every cross-cutting concern composes the same way.
type CoreLLM interface {
	// DoRequest sends prompt and returns the response text with input and
	// output token counts.
	DoRequest(
		ctx context.Context,
		prompt string,
		opts map[string]any,
	) (
		response string,
		tokensIn, tokensOut int,
		err error,
	)

	GetModel() string
	SetModel(model string)
}

// Middleware wraps a CoreLLM with additional behavior.
type Middleware func(CoreLLM) CoreLLM

// ClientConfig configures a single provider client.
type ClientConfig struct {
	APIKey string
	Model  string

	// BaseURL overrides the provider endpoint. Tests point it at an
	// httptest server.
	BaseURL string

	// Timeout bounds the underlying HTTP client. Zero keeps the SDK default.
	Timeout time.Duration

	// Middleware is applied in order; the first entry is outermost.
	Middleware []Middleware
}

// Client adapts a CoreLLM chain to ports.LLMClient.
type Client struct {
	provider string
	core     CoreLLM
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient builds the named provider and wraps it in config.Middleware.
func NewClient(provider string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required for provider %q", provider)
	}

	factory, ok := lookupProviderFactory(provider)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", provider, err)
	}

	return &Client{provider: provider, core: Chain(core, config.Middleware...)}, nil
}

// Chain wraps core so that middleware[0] is the outermost layer.
func Chain(core CoreLLM, middleware ...Middleware) CoreLLM {
	for i := len(middleware) - 1; i >= 0; i-- {
		core = middleware[i](core)
	}
	return core
}

// Complete sends prompt and returns the response text.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.CompleteWithUsage(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage is Complete with token counts.
func (c *Client) CompleteWithUsage(
	ctx context.Context,
	prompt string,
	options map[string]any,
) (string, int, int, error) {
	return c.core.DoRequest(ctx, prompt, options)
}

// GetModel returns the model currently used by the provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// Provider returns the provider name the client was built for.
func (c *Client) Provider() string { return c.provider }

// ProviderFactory builds a provider from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var (
	factoriesMu       sync.RWMutex
	providerFactories = map[string]ProviderFactory{}
)

// RegisterProviderFactory makes a provider available to NewClient.
func RegisterProviderFactory(provider string, factory ProviderFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	providerFactories[provider] = factory
}

func lookupProviderFactory(provider string) (ProviderFactory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := providerFactories[provider]
	return f, ok
}

// RegisteredProviders lists registered provider names in sorted order.
func RegisteredProviders() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(providerFactories))
	for name := range providerFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
