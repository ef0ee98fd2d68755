// Package application wires the benchmark pipeline: building datasets,
// running models over them, and the configuration that drives both.
package application

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/litcast/infrastructure/llm"
	"github.com/ahrav/litcast/infrastructure/predictor"
	"github.com/ahrav/litcast/infrastructure/scoring"
	"github.com/ahrav/litcast/internal/domain"
	"github.com/ahrav/litcast/internal/ports"
)

// ConfigVersion is the run-config schema version written by DefaultRunConfig.
const ConfigVersion = "1.0.0"

// RunConfig is the YAML document that drives every litcast command.
// Secrets never live here; they come from Env.
type RunConfig struct {
	// Version is the schema version of this document.
	Version string `yaml:"version" validate:"required,semver"`
	// Models lists "provider/model" references evaluated by default.
	Models     []string         `yaml:"models" validate:"omitempty,dive,modelformat"`
	Dataset    DatasetConfig    `yaml:"dataset" validate:"required"`
	Predictor  predictor.Config `yaml:"predictor" validate:"required"`
	Runner     RunnerConfig     `yaml:"runner" validate:"required"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Budget     BudgetConfig     `yaml:"budget"`
	Results    ResultsConfig    `yaml:"results" validate:"required"`
	Scoring    scoring.Config   `yaml:"scoring" validate:"required"`
}

// DatasetConfig controls dataset building.
type DatasetConfig struct {
	// Corpus is the path of the JSON case corpus.
	Corpus string `yaml:"corpus"`
	// Dir holds the evaluation, prediction and skip files.
	Dir string `yaml:"dir" validate:"required"`
	// RulesFile optionally replaces the built-in extraction rules.
	RulesFile string `yaml:"rules_file"`
	// MinTextLength is the shortest complaint text, after cleaning, that
	// yields a record.
	MinTextLength int `yaml:"min_text_length" validate:"gte=0"`
	// MaxCases caps how many corpus cases are processed. Zero means all.
	MaxCases     int           `yaml:"max_cases" validate:"gte=0"`
	Concurrency  int           `yaml:"concurrency" validate:"min=1,max=64"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" validate:"required,min=1s,max=10m"`
	// MaxDocumentBytes caps a downloaded complaint. Zero keeps the fetcher
	// default.
	MaxDocumentBytes int64 `yaml:"max_document_bytes" validate:"gte=0"`
}

// RunnerConfig controls the batch runner.
type RunnerConfig struct {
	Concurrency int `yaml:"concurrency" validate:"min=1,max=64"`
}

// ResilienceConfig configures the middleware placed in front of every
// provider.
type ResilienceConfig struct {
	// RequestsPerSecond of zero disables rate limiting.
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int           `yaml:"burst" validate:"gte=0"`
	MaxRetries        int           `yaml:"max_retries" validate:"min=0,max=10"`
	BaseDelay         time.Duration `yaml:"base_delay" validate:"gte=0"`
	MaxDelay          time.Duration `yaml:"max_delay" validate:"gte=0"`
	// BreakerFailures of zero disables the circuit breaker.
	BreakerFailures int           `yaml:"breaker_failures" validate:"gte=0"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" validate:"gte=0"`
	// AttemptTimeout bounds a single provider call. predictor.timeout bounds
	// the call including retries. Zero disables it.
	AttemptTimeout time.Duration `yaml:"attempt_timeout" validate:"gte=0"`
}

// BudgetConfig caps the spend of one model's run. Zero is unlimited.
type BudgetConfig struct {
	MaxTokens int64 `yaml:"max_tokens" validate:"gte=0"`
	MaxCalls  int64 `yaml:"max_calls" validate:"gte=0"`
}

// Result store backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// ResultsConfig selects where predictions are checkpointed.
type ResultsConfig struct {
	Backend    string `yaml:"backend" validate:"required,oneof=json sqlite"`
	Dir        string `yaml:"dir" validate:"required_if=Backend json"`
	SQLitePath string `yaml:"sqlite_path" validate:"required_if=Backend sqlite"`
}

// DefaultRunConfig mirrors the settings the benchmark was published with.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Version: ConfigVersion,
		Dataset: DatasetConfig{
			Corpus:        "data/sec-cases.json",
			Dir:           "data/dataset",
			MinTextLength: DefaultMinTextLength,
			Concurrency:   4,
			FetchTimeout:  60 * time.Second,
		},
		Predictor: predictor.DefaultConfig(),
		Runner:    RunnerConfig{Concurrency: 1},
		Resilience: ResilienceConfig{
			RequestsPerSecond: 1,
			Burst:             1,
			MaxRetries:        3,
			BaseDelay:         2 * time.Second,
			MaxDelay:          time.Minute,
			BreakerFailures:   5,
			BreakerCooldown:   time.Minute,
			AttemptTimeout:    45 * time.Second,
		},
		Results: ResultsConfig{
			Backend:    BackendJSON,
			Dir:        "data/results",
			SQLitePath: "data/results.db",
		},
		Scoring: scoring.DefaultConfig(),
	}
}

// ConfigLoader parses and validates run configs.
type ConfigLoader struct {
	validator *validator.Validate
}

// NewConfigLoader returns a loader with the semver and modelformat
// validators registered.
func NewConfigLoader() (*ConfigLoader, error) {
	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &ConfigLoader{validator: v}, nil
}

// Parse decodes data over DefaultRunConfig, so a document only has to name
// the settings it changes. Unknown keys are rejected.
func (cl *ConfigLoader) Parse(data []byte) (RunConfig, error) {
	cfg := DefaultRunConfig()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return RunConfig{}, fmt.Errorf("YAML decode failed: %w", err)
		}
	}
	if err := cl.Validate(cfg); err != nil {
		return RunConfig{}, err
	}
	return cfg, nil
}

// LoadFile reads and parses the config at path.
func (cl *ConfigLoader) LoadFile(path string) (RunConfig, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return RunConfig{}, fmt.Errorf("failed to read config: %w", err)
	}
	return cl.Parse(data)
}

// Validate checks struct tags and the rules tags cannot express.
func (cl *ConfigLoader) Validate(cfg RunConfig) error {
	if err := cl.validator.Struct(cfg); err != nil {
		return fmt.Errorf("%w: struct validation failed: %v", domain.ErrInvalidConfiguration, err)
	}

	verr := domain.NewValidationError("run config")
	if cfg.Resilience.MaxDelay > 0 && cfg.Resilience.MaxDelay < cfg.Resilience.BaseDelay {
		verr.AddError("resilience.max_delay must not be shorter than resilience.base_delay")
	}
	seen := make(map[string]struct{}, len(cfg.Models))
	for _, m := range cfg.Models {
		ref, err := llm.ParseModelRef(m)
		if err != nil {
			verr.AddError(err.Error())
			continue
		}
		if _, dup := seen[ref.String()]; dup {
			verr.AddError(fmt.Sprintf("model %q listed twice", ref.String()))
		}
		seen[ref.String()] = struct{}{}
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// LoadRunConfig loads path, or returns DefaultRunConfig when path is empty.
func LoadRunConfig(path string) (RunConfig, error) {
	cl, err := NewConfigLoader()
	if err != nil {
		return RunConfig{}, err
	}
	if path == "" {
		cfg := DefaultRunConfig()
		return cfg, cl.Validate(cfg)
	}
	return cl.LoadFile(path)
}

// Env holds settings read from the process environment.
type Env struct {
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GoogleAPIKey    string `env:"GOOGLE_API_KEY"`

	// ConfigPath is used when no -config flag is given.
	ConfigPath string `env:"LITCAST_CONFIG"`
	LogLevel   string `env:"LOG_LEVEL,default=info"`
	// MetricsFile, when set, receives a Prometheus textfile dump on exit.
	MetricsFile string `env:"LITCAST_METRICS_FILE"`
	// BaseURL overrides the provider endpoint, for proxies and gateways.
	BaseURL string `env:"LITCAST_LLM_BASE_URL"`
}

// LoadEnv reads Env from the process environment.
func LoadEnv(ctx context.Context) (Env, error) {
	return loadEnv(ctx, envconfig.OsLookuper())
}

func loadEnv(ctx context.Context, lookuper envconfig.Lookuper) (Env, error) {
	var env Env
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &env,
		Lookuper: lookuper,
	}); err != nil {
		return Env{}, fmt.Errorf("processing environment: %w", err)
	}
	return env, nil
}

// APIKey returns the key configured for provider, or "".
func (e Env) APIKey(provider string) string {
	switch provider {
	case llm.ProviderOpenAI:
		return e.OpenAIAPIKey
	case llm.ProviderAnthropic:
		return e.AnthropicAPIKey
	case llm.ProviderGoogle:
		return e.GoogleAPIKey
	}
	return ""
}

// RequireAPIKey returns the key for provider or a *ports.ConfigError naming
// the variable to set.
func (e Env) RequireAPIKey(provider string) (string, error) {
	if key := e.APIKey(provider); key != "" {
		return key, nil
	}
	name := llm.APIKeyEnv(provider)
	if name == "" {
		name = provider + " API key"
	}
	return "", ports.NewConfigError(name, ports.ErrConfigNotFound)
}
