package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	baseURL string
	// structured reports whether the active model accepts response_format json_schema
	structured func(ctx context.Context, model string) bool
}

// OpenAIModels lists available OpenAI models
var OpenAIModels = []Model{
	{
		ID:               "gpt-4o",
		Name:             "GPT-4o",
		ContextWindow:    128000,
		InputCost:        2.50,
		OutputCost:       10.0,
		StructuredOutput: true,
	},
	{
		ID:               "gpt-4o-mini",
		Name:             "GPT-4o Mini",
		ContextWindow:    128000,
		InputCost:        0.15,
		OutputCost:       0.60,
		StructuredOutput: true,
	},
	{
		ID:               "gpt-4.1",
		Name:             "GPT-4.1",
		ContextWindow:    1047576,
		InputCost:        2.0,
		OutputCost:       8.0,
		StructuredOutput: true,
	},
	{
		ID:               "gpt-3.5-turbo",
		Name:             "GPT-3.5 Turbo",
		ContextWindow:    16385,
		InputCost:        0.50,
		OutputCost:       1.50,
		StructuredOutput: false,
	},
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, model string, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	client := openai.NewClientWithConfig(config)

	if model == "" {
		model = "gpt-4o"
	}

	p := &OpenAIProvider{
		client:  client,
		model:   model,
		baseURL: baseURL,
	}
	p.structured = func(_ context.Context, model string) bool {
		if m, ok := findModel(model, OpenAIModels); ok {
			return m.StructuredOutput
		}
		return true
	}
	return p, nil
}

// ID returns the provider identifier
func (p *OpenAIProvider) ID() ProviderID {
	return ProviderOpenAI
}

// Name returns the human-readable provider name
func (p *OpenAIProvider) Name() string {
	return "OpenAI"
}

// Capabilities reports JSON schema support; web search grounding is not wired for chat completions
func (p *OpenAIProvider) Capabilities() Capabilities {
	return Capabilities{StructuredOutput: p.structured(context.Background(), p.model)}
}

// Models returns available models
func (p *OpenAIProvider) Models() []Model {
	return OpenAIModels
}

// DefaultModel returns the default model
func (p *OpenAIProvider) DefaultModel() string {
	return p.model
}

// SetModel switches the active model after validating the ID
func (p *OpenAIProvider) SetModel(modelID string) error {
	if err := ValidateModelID(modelID, p.Models()); err != nil {
		return err
	}
	p.model = modelID
	return nil
}

// Generate sends a single prompt and returns the response
func (p *OpenAIProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	openaiReq := openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  messages,
	}

	if req.Schema != nil {
		openaiReq.ResponseFormat = p.responseFormat(ctx, model, req)
	}

	resp, err := p.client.CreateChatCompletion(ctx, openaiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	return &GenerateResponse{
		Text:       choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Model:      model,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// responseFormat picks json_schema when the model supports it, otherwise plain JSON mode
func (p *OpenAIProvider) responseFormat(ctx context.Context, model string, req *GenerateRequest) *openai.ChatCompletionResponseFormat {
	if !p.structured(ctx, model) {
		return &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	name := req.SchemaName
	if name == "" {
		name = "response"
	}
	return &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:        name,
			Description: req.Schema.Description,
			Schema:      req.Schema,
			// strict mode requires additionalProperties:false on every object
			Strict: false,
		},
	}
}
