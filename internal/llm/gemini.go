package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider implements the Provider interface for Google Gemini
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// GeminiModels lists available Gemini models
var GeminiModels = []Model{
	{
		ID:               "gemini-2.5-flash",
		Name:             "Gemini 2.5 Flash",
		ContextWindow:    1048576,
		InputCost:        0.30,
		OutputCost:       2.50,
		StructuredOutput: true,
		WebSearch:        true,
	},
	{
		ID:               "gemini-2.5-pro",
		Name:             "Gemini 2.5 Pro",
		ContextWindow:    1048576,
		InputCost:        1.25,
		OutputCost:       10.0,
		StructuredOutput: true,
		WebSearch:        true,
	},
	{
		ID:               "gemini-2.0-flash",
		Name:             "Gemini 2.0 Flash",
		ContextWindow:    1048576,
		InputCost:        0.10,
		OutputCost:       0.40,
		StructuredOutput: true,
		WebSearch:        true,
	},
}

// GeminiOption customises the Gemini client
type GeminiOption func(*genai.ClientConfig)

// WithGeminiBaseURL points the client at a different API endpoint
func WithGeminiBaseURL(baseURL string) GeminiOption {
	return func(cc *genai.ClientConfig) {
		cc.HTTPOptions.BaseURL = baseURL
	}
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey string, model string, opts ...GeminiOption) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if model == "" {
		model = defaultGeminiModel
	}

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

// ID returns the provider identifier
func (p *GeminiProvider) ID() ProviderID {
	return ProviderGemini
}

// Name returns the human-readable provider name
func (p *GeminiProvider) Name() string {
	return "Google Gemini"
}

// Capabilities reports schema-constrained output and Google Search grounding
func (p *GeminiProvider) Capabilities() Capabilities {
	if m, ok := findModel(p.model, p.Models()); ok {
		return Capabilities{StructuredOutput: m.StructuredOutput, WebSearch: m.WebSearch}
	}
	return Capabilities{StructuredOutput: true, WebSearch: true}
}

// Models returns available models
func (p *GeminiProvider) Models() []Model {
	return GeminiModels
}

// DefaultModel returns the default model
func (p *GeminiProvider) DefaultModel() string {
	return p.model
}

// SetModel switches the active model after validating the ID
func (p *GeminiProvider) SetModel(modelID string) error {
	if err := ValidateModelID(modelID, p.Models()); err != nil {
		return err
	}
	p.model = modelID
	return nil
}

// Generate sends a single prompt and returns the response
func (p *GeminiProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	config := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = convertToSchema(req.Schema)
	}
	if req.WebSearch {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	out, err := parseGeminiResponse(resp)
	if err != nil {
		return nil, err
	}
	out.Model = model
	return out, nil
}

func parseGeminiResponse(resp *genai.GenerateContentResponse) (*GenerateResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	response := &GenerateResponse{
		Text:       resp.Text(),
		StopReason: string(candidate.FinishReason),
	}

	if resp.UsageMetadata != nil {
		response.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	// Chunks without a web entry still produce a citation so callers see the raw count
	if gm := candidate.GroundingMetadata; gm != nil {
		for _, chunk := range gm.GroundingChunks {
			if chunk == nil {
				continue
			}
			var c Citation
			if chunk.Web != nil {
				c.URI = chunk.Web.URI
				c.Title = chunk.Web.Title
			}
			response.Citations = append(response.Citations, c)
		}
	}

	return response, nil
}

// convertToSchema translates a JSON Schema into Gemini's OpenAPI subset.
// Property ordering follows the required list so output field order is stable.
func convertToSchema(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{
		Type:        schemaType(s),
		Description: s.Description,
		Required:    append([]string(nil), s.Required...),
	}

	for _, e := range s.Enum {
		if v, ok := e.(string); ok {
			out.Enum = append(out.Enum, v)
		}
	}

	if s.Items != nil {
		out.Items = convertToSchema(s.Items)
	}

	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = convertToSchema(prop)
		}
		out.PropertyOrdering = append([]string(nil), s.Required...)
	}

	return out
}

func schemaType(s *jsonschema.Schema) genai.Type {
	t := s.Type
	if t == "" && len(s.Types) > 0 {
		t = s.Types[0]
	}
	switch strings.ToLower(t) {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}
