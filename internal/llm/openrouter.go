package llm

import (
	"context"
	"fmt"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider implements the Provider interface for OpenRouter
// OpenRouter uses an OpenAI-compatible API and provides access to many models
type OpenRouterProvider struct {
	*OpenAIProvider
	apiKey string
}

// OpenRouterModels lists popular OpenRouter models
var OpenRouterModels = []Model{
	{
		ID:               "google/gemini-2.5-flash",
		Name:             "Gemini 2.5 Flash",
		ContextWindow:    1048576,
		InputCost:        0.30,
		OutputCost:       2.50,
		StructuredOutput: true,
	},
	{
		ID:               "openai/gpt-4o",
		Name:             "GPT-4o",
		ContextWindow:    128000,
		InputCost:        2.50,
		OutputCost:       10.0,
		StructuredOutput: true,
	},
	{
		ID:               "anthropic/claude-3.7-sonnet",
		Name:             "Claude 3.7 Sonnet",
		ContextWindow:    200000,
		InputCost:        3.0,
		OutputCost:       15.0,
		StructuredOutput: false,
	},
	{
		ID:               "meta-llama/llama-4-maverick",
		Name:             "Llama 4 Maverick",
		ContextWindow:    1000000,
		InputCost:        0.25,
		OutputCost:       1.0,
		StructuredOutput: true,
	},
}

// NewOpenRouterProvider creates a new OpenRouter provider
func NewOpenRouterProvider(apiKey string, model string) (*OpenRouterProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if model == "" {
		model = "google/gemini-2.5-flash"
	}

	base, err := NewOpenAIProvider(apiKey, model, openRouterBaseURL)
	if err != nil {
		return nil, err
	}

	p := &OpenRouterProvider{
		OpenAIProvider: base,
		apiKey:         apiKey,
	}
	base.structured = func(ctx context.Context, model string) bool {
		supports, _ := StructuredOutputForModel(ctx, p, model, apiKey)
		return supports
	}
	return p, nil
}

// ID returns the provider identifier
func (p *OpenRouterProvider) ID() ProviderID {
	return ProviderOpenRouter
}

// Name returns the human-readable provider name
func (p *OpenRouterProvider) Name() string {
	return "OpenRouter"
}

// Models returns available models
func (p *OpenRouterProvider) Models() []Model {
	return OpenRouterModels
}

// SetModel switches the active model after validating against OpenRouter's model list
func (p *OpenRouterProvider) SetModel(modelID string) error {
	if err := ValidateModelID(modelID, p.Models()); err != nil {
		return err
	}
	p.model = modelID
	return nil
}

// Generate delegates to OpenAIProvider
func (p *OpenRouterProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	return p.OpenAIProvider.Generate(ctx, req)
}
