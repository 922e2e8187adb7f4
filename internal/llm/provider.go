package llm

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// ProviderID represents a unique provider identifier
type ProviderID string

const (
	ProviderGemini     ProviderID = "gemini"
	ProviderOpenAI     ProviderID = "openai"
	ProviderOpenRouter ProviderID = "openrouter"
	ProviderAnthropic  ProviderID = "anthropic"
)

// Provider is the interface all generative-language backends implement
type Provider interface {
	// ID returns the unique provider identifier
	ID() ProviderID

	// Name returns the human-readable provider name
	Name() string

	// Generate performs exactly one generation call
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Capabilities reports what the active model can do
	Capabilities() Capabilities

	// Models returns available models for this provider
	Models() []Model

	// DefaultModel returns the default model for this provider
	DefaultModel() string

	// SetModel switches the active model. Returns error if model ID is not
	// in the provider's supported model list.
	SetModel(modelID string) error
}

// Capabilities describes the response controls a provider honours
type Capabilities struct {
	// StructuredOutput is true when the provider constrains output to a JSON schema
	StructuredOutput bool `json:"structured_output"`
	// WebSearch is true when the provider can ground answers in web search results
	WebSearch bool `json:"web_search"`
}

// Model represents an available model
type Model struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	ContextWindow    int     `json:"context_window"`
	InputCost        float64 `json:"input_cost"`  // per 1M tokens
	OutputCost       float64 `json:"output_cost"` // per 1M tokens
	StructuredOutput bool    `json:"structured_output"`
	WebSearch        bool    `json:"web_search"`
}

// GenerateRequest is a provider-agnostic single-turn generation request
type GenerateRequest struct {
	Model        string `json:"model,omitempty"` // Uses default if empty
	SystemPrompt string `json:"system_prompt,omitempty"`
	Prompt       string `json:"prompt"`
	// Schema constrains the response to JSON matching it; nil means free text
	Schema *jsonschema.Schema `json:"schema,omitempty"`
	// SchemaName labels the schema for providers that require a name
	SchemaName string `json:"schema_name,omitempty"`
	WebSearch  bool   `json:"web_search,omitempty"`
	MaxTokens  int    `json:"max_tokens,omitempty"`
}

// Citation is a web source the provider grounded its answer on.
// URI may be empty when the provider returned a chunk without a link.
type Citation struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// GenerateResponse is a provider-agnostic generation result
type GenerateResponse struct {
	Text       string     `json:"text"`
	Citations  []Citation `json:"citations,omitempty"`
	StopReason string     `json:"stop_reason"`
	Usage      Usage      `json:"usage"`
	Model      string     `json:"model"`
}

// Usage tracks token usage
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// EnvVarsForProvider returns the environment variables checked for a provider's API key, in order
func EnvVarsForProvider(id ProviderID) []string {
	switch id {
	case ProviderGemini:
		return []string{"GEMINI_API_KEY", "API_KEY", "GOOGLE_API_KEY"}
	case ProviderOpenAI:
		return []string{"OPENAI_API_KEY"}
	case ProviderOpenRouter:
		return []string{"OPENROUTER_API_KEY"}
	case ProviderAnthropic:
		return []string{"ANTHROPIC_API_KEY"}
	default:
		return nil
	}
}

// EnvVarForProvider returns the primary environment variable name for a provider's API key
func EnvVarForProvider(id ProviderID) string {
	vars := EnvVarsForProvider(id)
	if len(vars) == 0 {
		return ""
	}
	return vars[0]
}

// AllProviderIDs returns all known provider IDs in priority order
func AllProviderIDs() []ProviderID {
	return []ProviderID{
		ProviderGemini,
		ProviderOpenAI,
		ProviderOpenRouter,
		ProviderAnthropic,
	}
}

// ParseProviderID resolves a provider identifier
func ParseProviderID(s string) (ProviderID, error) {
	for _, id := range AllProviderIDs() {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// ValidateModelID checks whether modelID exists in the given model list.
func ValidateModelID(modelID string, models []Model) error {
	for _, m := range models {
		if m.ID == modelID {
			return nil
		}
	}
	return fmt.Errorf("unknown model %q for this provider", modelID)
}

func findModel(modelID string, models []Model) (Model, bool) {
	for _, m := range models {
		if m.ID == modelID {
			return m, true
		}
	}
	return Model{}, false
}

// New creates the provider for id with the given key and model.
// An empty model selects the provider default.
func New(ctx context.Context, id ProviderID, apiKey, model string) (Provider, error) {
	switch id {
	case ProviderGemini:
		return NewGeminiProvider(ctx, apiKey, model)
	case ProviderOpenAI:
		return NewOpenAIProvider(apiKey, model, "")
	case ProviderOpenRouter:
		return NewOpenRouterProvider(apiKey, model)
	case ProviderAnthropic:
		return NewAnthropicProvider(apiKey, model)
	default:
		return nil, fmt.Errorf("unknown provider %q", id)
	}
}
