package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ProviderAnthropic is the registered name of the Anthropic backend.
const ProviderAnthropic = "anthropic"

func init() {
	RegisterProviderFactory(ProviderAnthropic, newAnthropicProvider)
}

type anthropicProvider struct {
	BaseProvider
	client     anthropic.Client
	classifier *ErrorClassifier
}

func newAnthropicProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	// Retries belong to RetryMiddleware so that they are logged and counted.
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		baseURL, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout := ValidateTimeout(config.Timeout); timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: timeout}))
	}

	return &anthropicProvider{
		BaseProvider: BaseProvider{model: config.Model},
		client:       anthropic.NewClient(opts...),
		classifier:   &ErrorClassifier{Provider: ProviderAnthropic},
	}, nil
}

func (p *anthropicProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := ParseRequestOptions(opts, p.GetModel())

	message, err := p.client.Messages.New(ctx, p.buildParams(prompt, options))
	if err != nil {
		return "", 0, 0, p.handleError(err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(b.Text)
		}
	}
	content := text.String()
	if content == "" {
		return "", 0, 0, NewProviderError(ProviderAnthropic, ErrorTypeUnknown, 0, "", ErrEmptyResponse)
	}

	return content,
		tokenCount(message.Usage.InputTokens, prompt),
		tokenCount(message.Usage.OutputTokens, content),
		nil
}

func (p *anthropicProvider) buildParams(prompt string, options RequestOptions) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(options.Model),
		MaxTokens: int64(options.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if options.Temperature != nil {
		// Anthropic accepts [0, 1].
		params.Temperature = anthropic.Float(ClampFloat64(*options.Temperature, 0, 1))
	}
	if options.TopP != nil {
		params.TopP = anthropic.Float(*options.TopP)
	}
	if options.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: options.System}}
	}
	return params
}

func (p *anthropicProvider) handleError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return p.classifier.ClassifyHTTPError(apiErr.StatusCode, fmt.Sprintf("status %d", apiErr.StatusCode), err)
	}
	return p.classifier.ClassifyTransportError(err)
}
