package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelRef(t *testing.T) {
	tests := []struct {
		in      string
		want    ModelRef
		wantErr bool
	}{
		{in: "openai/gpt-4.1", want: ModelRef{Provider: "openai", Model: "gpt-4.1"}},
		{in: " Anthropic/claude-sonnet-4-5 ", want: ModelRef{Provider: "anthropic", Model: "claude-sonnet-4-5"}},
		{in: "google", want: ModelRef{Provider: "google", Model: "gemini-2.5-flash"}},
		{in: "openai/ft:gpt-4.1/org", want: ModelRef{Provider: "openai", Model: "ft:gpt-4.1/org"}},
		{in: "", wantErr: true},
		{in: "mistral/large", wantErr: true},
		{in: "openai/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseModelRef(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidModelRef)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModelRef_Slug(t *testing.T) {
	ref := ModelRef{Provider: "openai", Model: "gpt-4.1"}
	assert.Equal(t, "openai/gpt-4.1", ref.String())
	assert.Equal(t, "openai_gpt-4.1", ref.Slug())
}

func TestAPIKeyEnv(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", APIKeyEnv("openai"))
	assert.Equal(t, "ANTHROPIC_API_KEY", APIKeyEnv("anthropic"))
	assert.Equal(t, "GOOGLE_API_KEY", APIKeyEnv("google"))
	assert.Empty(t, APIKeyEnv("unknown"))
}

func TestNewClientFromRef(t *testing.T) {
	ref := ModelRef{Provider: "anthropic", Model: "claude-sonnet-4-5"}

	_, err := NewClientFromRef(ref, RefConfig{})
	require.ErrorIs(t, err, ErrEmptyAPIKey)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")

	client, err := NewClientFromRef(ref, RefConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", client.GetModel())
	assert.Equal(t, "anthropic", client.Provider())
}
