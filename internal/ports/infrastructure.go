// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"
	"time"

	"github.com/ahrav/litcast/internal/domain"
)

// LLMClient defines the interface for interacting with Large Language
// Model providers.
// Implementations should handle provider-specific details like authentication,
// request formatting, and response parsing.
type LLMClient interface {
	// Complete sends a completion request to the LLM provider.
	// It returns the generated text and any error encountered.
	//
	// The options map allows flexibility for different providers without
	// changing the interface. Common options include:
	//   - "temperature": float64
	//   - "max_tokens": int
	//   - "system": string (system instruction)
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// GetModel returns the model identifier being used by this client.
	GetModel() string
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// CorpusStore provides read access to litigation releases.
type CorpusStore interface {
	// List returns every case in corpus order.
	List(ctx context.Context) ([]domain.CaseRecord, error)

	// Get looks up a case by release id. Lookup is case-insensitive and the
	// "LR-" prefix is optional. Returns domain.ErrCaseNotFound when absent.
	Get(ctx context.Context, releaseID string) (domain.CaseRecord, error)
}

// Document is a fetched supporting document.
type Document struct {
	URL         string
	ContentType string
	Body        []byte
}

// DocumentFetcher retrieves supporting documents by URL.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (Document, error)
}

// TextExtractor flattens a fetched document into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, doc Document) (string, error)
}

// GroundTruthExtractor derives a structured outcome from release text.
// Extraction is total: ambiguous text degrades to defaults, never errors.
type GroundTruthExtractor interface {
	Extract(ctx context.Context, text string) domain.GroundTruth
}

// ResultStore persists per-model result sets.
type ResultStore interface {
	// Load returns the stored result set for model. It returns
	// domain.ErrResultsNotFound when nothing has been stored and an error
	// wrapping domain.ErrCorruptResults when stored data cannot be decoded.
	Load(ctx context.Context, model string) (*domain.ResultSet, error)

	// Merge unions records into the stored result set under
	// domain.ResultSet.Merge semantics and persists the result before
	// returning.
	Merge(ctx context.Context, model string, records ...domain.PredictionRecord) error

	// Reset discards any stored results for model.
	Reset(ctx context.Context, model string) error
}

// Predictor is the capability interface a model backend exposes to the batch
// runner: render a prompt for a case, invoke the model, and parse its reply.
type Predictor interface {
	// Name identifies the backend, typically "provider/model".
	Name() string

	// RenderPrompt builds the prompt for a case from its complaint text only.
	RenderPrompt(rec domain.EvaluationRecord) (string, error)

	// Invoke sends the prompt to the model and returns its raw response.
	Invoke(ctx context.Context, prompt string) (string, error)

	// ParseResponse turns a raw response into a prediction. Recoverable
	// problems with individual fields are returned as warnings; an error
	// means no usable prediction could be recovered.
	ParseResponse(raw string) (domain.Prediction, []string, error)
}
