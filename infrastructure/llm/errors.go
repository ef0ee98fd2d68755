package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors returned by clients and providers.
var (
	ErrEmptyAPIKey      = errors.New("API key cannot be empty")
	ErrEmptyResponse    = errors.New("empty response from API")
	ErrNoResponseChoice = errors.New("no response choices returned")
	ErrUnknownProvider  = errors.New("unknown provider")
	ErrInvalidModelRef  = errors.New("invalid model reference")
)

// ErrorType classifies provider failures.
type ErrorType int

// Error categories.
const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeAuthentication
	ErrorTypeRateLimit
	ErrorTypeBadRequest
	ErrorTypeNotFound
	ErrorTypeServerError
	ErrorTypeContentPolicy
	ErrorTypeNetwork
	ErrorTypeTimeout
	ErrorTypeCanceled
)

// String returns the snake_case name of t, or "" for ErrorTypeUnknown.
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeAuthentication:
		return "authentication"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeBadRequest:
		return "bad_request"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeServerError:
		return "server_error"
	case ErrorTypeContentPolicy:
		return "content_policy"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeCanceled:
		return "canceled"
	}
	return ""
}

// ProviderError is a provider failure normalized across SDKs.
type ProviderError struct {
	Type       ErrorType
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Provider + " error"
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if s := e.Type.String(); s != "" {
		msg += " [" + s + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsRetryable reports whether the failure is transient.
func (e *ProviderError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	}
	return false
}

// NewProviderError builds a ProviderError.
func NewProviderError(provider string, errType ErrorType, statusCode int, message string, err error) *ProviderError {
	return &ProviderError{
		Type:       errType,
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// IsRetryable reports whether err should be retried. Only ProviderErrors
// can be retryable; circuit-open and unclassified errors are not.
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.IsRetryable()
}

// ErrorClassifier maps SDK errors to ProviderErrors for one provider.
type ErrorClassifier struct {
	Provider string
}

// ClassifyHTTPError classifies by HTTP status code.
func (ec *ErrorClassifier) ClassifyHTTPError(statusCode int, message string, err error) *ProviderError {
	var errType ErrorType
	switch {
	case statusCode == 401 || statusCode == 403:
		errType = ErrorTypeAuthentication
		message = ec.Provider + " authentication failed"
	case statusCode == 429:
		errType = ErrorTypeRateLimit
		message = ec.Provider + " rate limit exceeded"
	case statusCode == 404:
		errType = ErrorTypeNotFound
	case statusCode == 408:
		errType = ErrorTypeTimeout
	case statusCode >= 500:
		errType = ErrorTypeServerError
	case statusCode >= 400:
		errType = ErrorTypeBadRequest
	default:
		errType = ErrorTypeUnknown
	}
	return NewProviderError(ec.Provider, errType, statusCode, message, err)
}

// ClassifyContextError classifies deadline and cancellation errors.
func (ec *ErrorClassifier) ClassifyContextError(err error) *ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(ec.Provider, ErrorTypeTimeout, 0, "context deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return NewProviderError(ec.Provider, ErrorTypeCanceled, 0, "request canceled", err)
	}
	return NewProviderError(ec.Provider, ErrorTypeUnknown, 0, "", err)
}

// ClassifyTransportError classifies errors that never produced an HTTP
// response. Network errors are retryable; anything else is unknown.
func (ec *ErrorClassifier) ClassifyTransportError(err error) *ProviderError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ec.ClassifyContextError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NewProviderError(ec.Provider, ErrorTypeTimeout, 0, "network timeout", err)
		}
		return NewProviderError(ec.Provider, ErrorTypeNetwork, 0, "network error", err)
	}
	return NewProviderError(ec.Provider, ErrorTypeUnknown, 0, "request failed", err)
}
