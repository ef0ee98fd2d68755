package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// ProviderOpenAI is the registered name of the OpenAI backend.
const ProviderOpenAI = "openai"

func init() {
	RegisterProviderFactory(ProviderOpenAI, newOpenAIProvider)
}

type openAIProvider struct {
	BaseProvider
	client     *openai.Client
	classifier *ErrorClassifier
}

func newOpenAIProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		baseURL, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		clientConfig.BaseURL = baseURL
	}
	if timeout := ValidateTimeout(config.Timeout); timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: timeout}
	}

	return &openAIProvider{
		BaseProvider: BaseProvider{model: config.Model},
		client:       openai.NewClientWithConfig(clientConfig),
		classifier:   &ErrorClassifier{Provider: ProviderOpenAI},
	}, nil
}

func (p *openAIProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := ParseRequestOptions(opts, p.GetModel())

	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(prompt, options))
	if err != nil {
		return "", 0, 0, p.handleError(err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, 0, NewProviderError(ProviderOpenAI, ErrorTypeServerError, 0, "", ErrNoResponseChoice)
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", 0, 0, NewProviderError(ProviderOpenAI, ErrorTypeUnknown, 0, "", ErrEmptyResponse)
	}

	return content,
		tokenCount(int64(resp.Usage.PromptTokens), prompt),
		tokenCount(int64(resp.Usage.CompletionTokens), content),
		nil
}

func (p *openAIProvider) buildRequest(prompt string, options RequestOptions) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if options.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: options.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:     options.Model,
		Messages:  messages,
		MaxTokens: options.MaxTokens,
	}
	if options.Temperature != nil {
		req.Temperature = float32(ClampFloat64(*options.Temperature, MinTemperature, MaxTemperature))
	}
	if options.TopP != nil {
		req.TopP = float32(ClampFloat64(*options.TopP, MinTopP, MaxTopP))
	}
	if json, ok := options.Extra["json_mode"].(bool); ok && json {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return req
}

func (p *openAIProvider) handleError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = "unknown error"
		}
		return p.classifier.ClassifyHTTPError(apiErr.HTTPStatusCode, message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return p.classifier.ClassifyHTTPError(reqErr.HTTPStatusCode, "request error", err)
	}

	return p.classifier.ClassifyTransportError(err)
}
