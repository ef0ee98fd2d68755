package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that can occur during external service
// interactions.
var (
	// ErrFetchFailed indicates that a supporting document could not be
	// retrieved.
	ErrFetchFailed = errors.New("document fetch failed")

	// ErrDocumentTooLarge indicates that a document exceeded the configured
	// size limit.
	ErrDocumentTooLarge = errors.New("document too large")

	// ErrExtractFailed indicates that text could not be extracted from a
	// fetched document.
	ErrExtractFailed = errors.New("text extraction failed")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// DocumentError describes a failure to acquire or flatten a document.
type DocumentError struct {
	// URL is the location of the document.
	URL string

	// StatusCode is the HTTP status returned by the server, if any.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for DocumentError.
func (e *DocumentError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("document error: url=%s, status=%d, err=%v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("document error: url=%s, err=%v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *DocumentError) Unwrap() error { return e.Err }

// NewDocumentError creates a new DocumentError with the given details.
func NewDocumentError(url string, statusCode int, err error) *DocumentError {
	return &DocumentError{
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
