// Package predictor adapts a language model into a ports.Predictor: it
// renders a complaint into a prompt, sends it to the model, and parses the
// reply into a structured prediction.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/litcast/infrastructure/prompt"
	"github.com/ahrav/litcast/internal/domain"
	"github.com/ahrav/litcast/internal/ports"
)

var _ ports.Predictor = (*LLMPredictor)(nil)

var predictorValidator = validator.New()

// Defaults for LLMPredictor.
const (
	DefaultTemperature = 0.0
	DefaultMaxTokens   = 1024
	DefaultTimeout     = 2 * time.Minute
)

var (
	ErrNameEmpty        = errors.New("predictor name cannot be empty")
	ErrLLMClientNil     = errors.New("LLM client cannot be nil")
	ErrConfigValidation = errors.New("configuration validation failed")
	ErrLLMCallFailed    = errors.New("LLM call failed")
)

// Config tunes the request sent for every case.
type Config struct {
	Temperature float64       `yaml:"temperature" json:"temperature" validate:"min=0,max=2"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens" validate:"required,min=64,max=16000"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" validate:"required,min=1s,max=10m"`
	// JSONMode asks providers that support it for a JSON-only response.
	JSONMode bool `yaml:"json_mode" json:"json_mode"`

	Prompt prompt.FormatterConfig `yaml:"prompt" json:"prompt"`
}

// DefaultConfig returns deterministic sampling with the full prompt.
func DefaultConfig() Config {
	return Config{
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Timeout:     DefaultTimeout,
		Prompt:      prompt.FormatterConfig{Style: prompt.StyleFull},
	}
}

// LLMPredictor is stateless and safe for concurrent use.
type LLMPredictor struct {
	name      string
	config    Config
	client    ports.LLMClient
	formatter *prompt.Formatter
	parser    *prompt.Parser
}

// New returns a predictor named name (normally "provider/model").
func New(name string, client ports.LLMClient, config Config) (*LLMPredictor, error) {
	if name == "" {
		return nil, ErrNameEmpty
	}
	if client == nil {
		return nil, ErrLLMClientNil
	}
	if err := predictorValidator.Struct(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}

	formatter, err := prompt.NewFormatter(config.Prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}

	return &LLMPredictor{
		name:      name,
		config:    config,
		client:    client,
		formatter: formatter,
		parser:    prompt.NewParser(),
	}, nil
}

func (p *LLMPredictor) Name() string { return p.name }

// RenderPrompt builds the prompt from the complaint text only.
func (p *LLMPredictor) RenderPrompt(rec domain.EvaluationRecord) (string, error) {
	return p.formatter.Render(rec)
}

// Invoke sends the prompt with the fixed system instruction.
func (p *LLMPredictor) Invoke(ctx context.Context, promptText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	options := map[string]any{
		"system":      prompt.SystemInstruction,
		"temperature": p.config.Temperature,
		"max_tokens":  p.config.MaxTokens,
	}
	if p.config.JSONMode {
		options["json_mode"] = true
	}

	response, err := p.client.Complete(ctx, promptText, options)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrLLMCallFailed, p.name, err)
	}
	return response, nil
}

func (p *LLMPredictor) ParseResponse(raw string) (domain.Prediction, []string, error) {
	return p.parser.Parse(raw)
}
