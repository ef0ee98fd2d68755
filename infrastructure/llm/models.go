package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/ahrav/litcast/internal/domain"
)

// ProviderInfo describes a supported backend.
type ProviderInfo struct {
	Name         string
	EnvVar       string
	DefaultModel string
}

var knownProviders = map[string]ProviderInfo{
	ProviderOpenAI:    {Name: ProviderOpenAI, EnvVar: "OPENAI_API_KEY", DefaultModel: "gpt-4.1"},
	ProviderAnthropic: {Name: ProviderAnthropic, EnvVar: "ANTHROPIC_API_KEY", DefaultModel: "claude-sonnet-4-5"},
	ProviderGoogle:    {Name: ProviderGoogle, EnvVar: "GOOGLE_API_KEY", DefaultModel: "gemini-2.5-flash"},
}

// LookupProvider returns metadata for a supported provider.
func LookupProvider(name string) (ProviderInfo, bool) {
	info, ok := knownProviders[strings.ToLower(name)]
	return info, ok
}

// APIKeyEnv returns the environment variable holding the provider's key,
// or "" for unknown providers.
func APIKeyEnv(provider string) string {
	info, _ := LookupProvider(provider)
	return info.EnvVar
}

// ModelRef names a model on a provider, written "provider/model".
type ModelRef struct {
	Provider string
	Model    string
}

// ParseModelRef parses "provider/model". A bare provider name selects the
// provider's default model. The model part may itself contain slashes.
func ParseModelRef(s string) (ModelRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ModelRef{}, fmt.Errorf("%w: empty", ErrInvalidModelRef)
	}

	provider, model, found := strings.Cut(s, "/")
	provider = strings.ToLower(strings.TrimSpace(provider))
	model = strings.TrimSpace(model)

	info, ok := LookupProvider(provider)
	if !ok {
		return ModelRef{}, fmt.Errorf("%w: unknown provider %q in %q", ErrInvalidModelRef, provider, s)
	}
	if !found {
		model = info.DefaultModel
	}
	if model == "" {
		return ModelRef{}, fmt.Errorf("%w: missing model in %q", ErrInvalidModelRef, s)
	}
	return ModelRef{Provider: provider, Model: model}, nil
}

// String returns "provider/model".
func (r ModelRef) String() string { return r.Provider + "/" + r.Model }

// Slug returns a filesystem-safe name such as "openai_gpt-4.1".
func (r ModelRef) Slug() string { return domain.ModelSlug(r.String()) }

// RefConfig carries everything NewClientFromRef needs besides the ref.
type RefConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	Middleware []Middleware
}

// NewClientFromRef builds a client for ref.
func NewClientFromRef(ref ModelRef, config RefConfig) (*Client, error) {
	if config.APIKey == "" {
		if env := APIKeyEnv(ref.Provider); env != "" {
			return nil, fmt.Errorf("%w: set %s", ErrEmptyAPIKey, env)
		}
		return nil, ErrEmptyAPIKey
	}
	return NewClient(ref.Provider, ClientConfig{
		APIKey:     config.APIKey,
		Model:      ref.Model,
		BaseURL:    config.BaseURL,
		Timeout:    config.Timeout,
		Middleware: config.Middleware,
	})
}
