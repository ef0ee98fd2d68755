package llm

import (
	"fmt"
	"net/url"
	"time"
)

// Request parameter bounds shared by all providers.
const (
	MinTemperature = 0.0
	// MaxTemperature is 2.0 to accommodate Gemini and OpenAI.
	MaxTemperature = 2.0
	MinTopP        = 0.0
	MaxTopP        = 1.0

	MinTimeout = 1 * time.Second
	MaxTimeout = 10 * time.Minute

	// DefaultMaxTokens leaves room for the JSON answer plus a short
	// reasoning paragraph.
	DefaultMaxTokens = 1024
)

// RequestOptions is the provider-neutral view of a request's option map.
type RequestOptions struct {
	MaxTokens int
	Model     string
	// Temperature and TopP are nil when the provider default applies.
	Temperature *float64
	TopP        *float64
	System      string
	// Extra holds provider-specific keys that were not recognized.
	Extra map[string]any
}

// ParseRequestOptions reads the common keys ("max_tokens", "model",
// "temperature", "top_p", "system") from opts. Missing or out-of-range values
// fall back to defaults.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		MaxTokens: ExtractOptionalInt(opts, "max_tokens", DefaultMaxTokens, IsPositiveInt),
		Model:     ExtractOptionalString(opts, "model", defaultModel, IsNonEmptyString),
		System:    ExtractOptionalString(opts, "system", "", nil),
		Extra:     make(map[string]any),
	}

	if temp, ok := extractFloat(opts, "temperature"); ok && IsValidTemperature(temp) {
		options.Temperature = &temp
	}
	if topP, ok := extractFloat(opts, "top_p"); ok && IsValidTopP(topP) {
		options.TopP = &topP
	}

	for k, v := range opts {
		switch k {
		case "max_tokens", "model", "system", "temperature", "top_p":
		default:
			options.Extra[k] = v
		}
	}
	return options
}

// ExtractOptionalInt returns opts[key] when it is an int accepted by
// validator, and defaultVal otherwise.
func ExtractOptionalInt(opts map[string]any, key string, defaultVal int, validator func(int) bool) int {
	v, ok := opts[key]
	if !ok {
		return defaultVal
	}
	i, ok := SafeInt(v)
	if !ok || (validator != nil && !validator(i)) {
		return defaultVal
	}
	return i
}

// ExtractOptionalString returns opts[key] when it is a string accepted by
// validator, and defaultVal otherwise.
func ExtractOptionalString(opts map[string]any, key string, defaultVal string, validator func(string) bool) string {
	s, ok := opts[key].(string)
	if !ok || (validator != nil && !validator(s)) {
		return defaultVal
	}
	return s
}

func extractFloat(opts map[string]any, key string) (float64, bool) {
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// IsPositiveInt reports whether val > 0.
func IsPositiveInt(val int) bool { return val > 0 }

// IsNonEmptyString reports whether val is non-empty.
func IsNonEmptyString(val string) bool { return val != "" }

// IsValidTemperature reports whether val is within [MinTemperature, MaxTemperature].
func IsValidTemperature(val float64) bool { return val >= MinTemperature && val <= MaxTemperature }

// IsValidTopP reports whether val is within [MinTopP, MaxTopP].
func IsValidTopP(val float64) bool { return val >= MinTopP && val <= MaxTopP }

// ValidateBaseURL checks that baseURL is an absolute http(s) URL. An empty
// string is valid and selects the provider default.
func ValidateBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL must include a host")
	}
	return u.String(), nil
}

// ValidateTimeout clamps timeout to [MinTimeout, MaxTimeout]. Non-positive
// values return zero, meaning "use the default".
func ValidateTimeout(timeout time.Duration) time.Duration {
	switch {
	case timeout <= 0:
		return 0
	case timeout < MinTimeout:
		return MinTimeout
	case timeout > MaxTimeout:
		return MaxTimeout
	}
	return timeout
}

// SafeInt converts numeric option values to int. NaN and out-of-range
// floats are rejected.
func SafeInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		if int64(int(v)) != v {
			return 0, false
		}
		return int(v), true
	case float64:
		const maxInt = int(^uint(0) >> 1)
		if v != v || v > float64(maxInt) || v < float64(-maxInt-1) {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}

// ClampFloat64 restricts val to [lo, hi].
func ClampFloat64(val, lo, hi float64) float64 {
	return max(lo, min(val, hi))
}

// estimateTokens approximates a token count at four characters per token
// for providers that omit usage data.
func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}

func tokenCount(reported int64, text string) int {
	if reported > 0 {
		return int(reported)
	}
	return estimateTokens(text)
}
