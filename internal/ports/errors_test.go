package ports

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDocumentError tests message formatting and unwrapping of DocumentError.
func TestDocumentError(t *testing.T) {
	t.Run("with status code", func(t *testing.T) {
		err := NewDocumentError("https://www.sec.gov/comp.pdf", 404, ErrFetchFailed)

		assert.Equal(t, "document error: url=https://www.sec.gov/comp.pdf, status=404, err=document fetch failed", err.Error())
		assert.True(t, errors.Is(err, ErrFetchFailed))
	})

	t.Run("without status code", func(t *testing.T) {
		err := NewDocumentError("https://www.sec.gov/comp.pdf", 0, ErrExtractFailed)

		assert.Equal(t, "document error: url=https://www.sec.gov/comp.pdf, err=text extraction failed", err.Error())
		assert.True(t, errors.Is(err, ErrExtractFailed))
		assert.False(t, errors.Is(err, ErrFetchFailed))
	})
}

// TestConfigError tests the functionality of the ConfigError error type.
func TestConfigError(t *testing.T) {
	err := NewConfigError("OPENAI_API_KEY", ErrConfigNotFound)

	assert.Equal(t, "config error: key=OPENAI_API_KEY, err=configuration not found", err.Error())
	assert.Equal(t, "OPENAI_API_KEY", err.ConfigKey)
	assert.True(t, errors.Is(err, ErrConfigNotFound))
}
