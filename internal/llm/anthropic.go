package llm

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// AnthropicModels lists available Anthropic models.
// Structured output is emulated with a forced tool call.
var AnthropicModels = []Model{
	{
		ID:               "claude-sonnet-4-20250514",
		Name:             "Claude Sonnet 4",
		ContextWindow:    200000,
		InputCost:        3.0,
		OutputCost:       15.0,
		StructuredOutput: true,
	},
	{
		ID:               "claude-3-5-sonnet-20241022",
		Name:             "Claude 3.5 Sonnet",
		ContextWindow:    200000,
		InputCost:        3.0,
		OutputCost:       15.0,
		StructuredOutput: true,
	},
	{
		ID:               "claude-3-5-haiku-20241022",
		Name:             "Claude 3.5 Haiku",
		ContextWindow:    200000,
		InputCost:        0.80,
		OutputCost:       4.0,
		StructuredOutput: true,
	},
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey string, model string, opts ...anthropic.ClientOption) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := anthropic.NewClient(apiKey, opts...)

	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	return &AnthropicProvider{
		client: client,
		model:  model,
	}, nil
}

// ID returns the provider identifier
func (p *AnthropicProvider) ID() ProviderID {
	return ProviderAnthropic
}

// Name returns the human-readable provider name
func (p *AnthropicProvider) Name() string {
	return "Anthropic"
}

// Capabilities reports structured output through tool use; no web grounding
func (p *AnthropicProvider) Capabilities() Capabilities {
	return Capabilities{StructuredOutput: true}
}

// Models returns available models
func (p *AnthropicProvider) Models() []Model {
	return AnthropicModels
}

// DefaultModel returns the default model
func (p *AnthropicProvider) DefaultModel() string {
	return p.model
}

// SetModel switches the active model after validating the ID
func (p *AnthropicProvider) SetModel(modelID string) error {
	if err := ValidateModelID(modelID, p.Models()); err != nil {
		return err
	}
	p.model = modelID
	return nil
}

// Generate sends a single prompt and returns the response. When a schema is
// supplied the model is forced to call a tool whose input schema is that
// schema, and the tool input becomes the response text.
func (p *AnthropicProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	anthropicReq := anthropic.MessagesRequest{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		System:    req.SystemPrompt,
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewTextMessageContent(req.Prompt),
				},
			},
		},
	}

	toolName := req.SchemaName
	if toolName == "" {
		toolName = "respond"
	}
	if req.Schema != nil {
		anthropicReq.Tools = []anthropic.ToolDefinition{{
			Name:        toolName,
			Description: "Return the answer as structured data.",
			InputSchema: req.Schema,
		}}
		anthropicReq.ToolChoice = &anthropic.ToolChoice{Type: "tool", Name: toolName}
	}

	resp, err := p.client.CreateMessages(ctx, anthropicReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	response := &GenerateResponse{
		StopReason: string(resp.StopReason),
		Model:      model,
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}

	for _, content := range resp.Content {
		switch content.Type {
		case anthropic.MessagesContentTypeText:
			if content.Text != nil && req.Schema == nil {
				response.Text += *content.Text
			}
		case anthropic.MessagesContentTypeToolUse:
			if req.Schema != nil && content.MessageContentToolUse != nil && content.Name == toolName {
				response.Text = string(content.Input)
			}
		}
	}

	return response, nil
}
