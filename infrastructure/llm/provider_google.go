package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// ProviderGoogle is the registered name of the Gemini backend.
const ProviderGoogle = "google"

func init() {
	RegisterProviderFactory(ProviderGoogle, newGoogleProvider)
}

type googleProvider struct {
	BaseProvider
	client     *genai.Client
	classifier *ErrorClassifier
}

func newGoogleProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		baseURL, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	return &googleProvider{
		BaseProvider: BaseProvider{model: config.Model},
		client:       client,
		classifier:   &ErrorClassifier{Provider: ProviderGoogle},
	}, nil
}

func (p *googleProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := ParseRequestOptions(opts, p.GetModel())

	resp, err := p.client.Models.GenerateContent(ctx, options.Model, buildContents(prompt), buildGenerationConfig(options))
	if err != nil {
		return "", 0, 0, p.handleError(err)
	}

	content := resp.Text()
	if content == "" {
		return "", 0, 0, NewProviderError(ProviderGoogle, ErrorTypeUnknown, 0, "", ErrEmptyResponse)
	}

	var in, out int64
	if u := resp.UsageMetadata; u != nil {
		in, out = int64(u.PromptTokenCount), int64(u.CandidatesTokenCount)
	}
	return content, tokenCount(in, prompt), tokenCount(out, content), nil
}

func buildContents(prompt string) []*genai.Content {
	return []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
}

func buildGenerationConfig(options RequestOptions) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if options.System != "" {
		config.SystemInstruction = genai.NewContentFromText(options.System, genai.RoleUser)
	}
	if options.Temperature != nil {
		config.Temperature = genai.Ptr(float32(ClampFloat64(*options.Temperature, MinTemperature, MaxTemperature)))
	}
	if options.TopP != nil {
		config.TopP = genai.Ptr(float32(ClampFloat64(*options.TopP, MinTopP, MaxTopP)))
	}
	if options.MaxTokens > 0 {
		config.MaxOutputTokens = int32(min(options.MaxTokens, math.MaxInt32))
	}
	if json, ok := options.Extra["json_mode"].(bool); ok && json {
		config.ResponseMIMEType = "application/json"
	}
	return config
}

func (p *googleProvider) handleError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" && len(apiErr.Errors) > 0 {
			message = apiErr.Errors[0].Message
		}
		if isContentPolicyError(apiErr) {
			return NewProviderError(ProviderGoogle, ErrorTypeContentPolicy, apiErr.Code,
				"request blocked by safety filters", err)
		}
		return p.classifier.ClassifyHTTPError(apiErr.Code, message, err)
	}

	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return p.classifier.ClassifyHTTPError(genaiErr.Code, genaiErr.Message, err)
	}

	return p.classifier.ClassifyTransportError(err)
}

func isContentPolicyError(apiErr *googleapi.Error) bool {
	lower := strings.ToLower(apiErr.Message)
	if strings.Contains(lower, "safety") || strings.Contains(lower, "blocked") {
		return true
	}
	for _, e := range apiErr.Errors {
		if e.Reason == "SAFETY" || e.Reason == "BLOCKED" {
			return true
		}
	}
	return false
}
