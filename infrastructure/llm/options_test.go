package llm

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts := ParseRequestOptions(nil, "gpt-4.1")
		assert.Equal(t, DefaultMaxTokens, opts.MaxTokens)
		assert.Equal(t, "gpt-4.1", opts.Model)
		assert.Nil(t, opts.Temperature)
		assert.Nil(t, opts.TopP)
		assert.Empty(t, opts.System)
		assert.Empty(t, opts.Extra)
	})

	t.Run("recognized and extra keys", func(t *testing.T) {
		opts := ParseRequestOptions(map[string]any{
			"max_tokens":  int64(300),
			"model":       "override",
			"temperature": float32(0.5),
			"top_p":       1,
			"system":      "be brief",
			"json_mode":   true,
		}, "default")

		assert.Equal(t, 300, opts.MaxTokens)
		assert.Equal(t, "override", opts.Model)
		require.NotNil(t, opts.Temperature)
		assert.InDelta(t, 0.5, *opts.Temperature, 1e-6)
		require.NotNil(t, opts.TopP)
		assert.Equal(t, 1.0, *opts.TopP)
		assert.Equal(t, "be brief", opts.System)
		assert.Equal(t, map[string]any{"json_mode": true}, opts.Extra)
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		opts := ParseRequestOptions(map[string]any{
			"max_tokens":  -5,
			"model":       "",
			"temperature": -1.0,
			"top_p":       "high",
		}, "default")

		assert.Equal(t, DefaultMaxTokens, opts.MaxTokens)
		assert.Equal(t, "default", opts.Model)
		assert.Nil(t, opts.Temperature)
		assert.Nil(t, opts.TopP)
	})
}

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"http://localhost:8080/v1", "http://localhost:8080/v1", false},
		{"https://api.example.com", "https://api.example.com", false},
		{"ftp://example.com", "", true},
		{"http://", "", true},
		{"://nope", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ValidateBaseURL(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateTimeout(t *testing.T) {
	assert.Equal(t, time.Duration(0), ValidateTimeout(0))
	assert.Equal(t, time.Duration(0), ValidateTimeout(-time.Second))
	assert.Equal(t, MinTimeout, ValidateTimeout(time.Millisecond))
	assert.Equal(t, MaxTimeout, ValidateTimeout(time.Hour))
	assert.Equal(t, 30*time.Second, ValidateTimeout(30*time.Second))
}

func TestSafeInt(t *testing.T) {
	v, ok := SafeInt(42.9)
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = SafeInt(math.NaN())
	assert.False(t, ok)
	_, ok = SafeInt(math.Inf(1))
	assert.False(t, ok)
	_, ok = SafeInt("7")
	assert.False(t, ok)
}

func TestTokenCount(t *testing.T) {
	assert.Equal(t, 7, tokenCount(7, "ignored"))
	assert.Equal(t, 0, tokenCount(0, ""))
	assert.Equal(t, 3, tokenCount(0, "123456789"))
}
