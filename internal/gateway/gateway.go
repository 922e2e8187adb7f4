// Package gateway performs one model invocation per request and turns the raw
// response into a typed tool output.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
	"github.com/ashalaginvimeo/AS-test/internal/llm"
	"github.com/ashalaginvimeo/AS-test/internal/prompt"
)

// UnknownSourceTitle is used for grounding sources the provider returned without a title
const UnknownSourceTitle = "Unknown Source"

// maxLoggedRaw bounds how much of an unparseable response is written to the log
const maxLoggedRaw = 2000

// Gateway invokes a provider for composed tool requests
type Gateway struct {
	provider   llm.Provider
	logger     *zap.Logger
	metrics    *Metrics
	maxTokens  int
	validators map[catalog.Tool]*gojsonschema.Schema
}

// Option configures a Gateway
type Option func(*Gateway)

// WithLogger sets the logger used for diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithRegisterer registers gateway metrics on registerer
func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(g *Gateway) {
		g.metrics = NewMetrics(registerer)
	}
}

// WithMaxTokens caps the response length requested from the provider
func WithMaxTokens(n int) Option {
	return func(g *Gateway) {
		g.maxTokens = n
	}
}

// New creates a gateway over provider and compiles the output schema of every structured tool
func New(provider llm.Provider, opts ...Option) (*Gateway, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}

	g := &Gateway{
		provider:   provider,
		logger:     zap.NewNop(),
		validators: make(map[catalog.Tool]*gojsonschema.Schema),
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, spec := range catalog.Specs() {
		if !spec.Output.Structured {
			continue
		}
		raw, err := json.Marshal(spec.Output.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s output schema: %w", spec.Tool, err)
		}
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s output schema: %w", spec.Tool, err)
		}
		g.validators[spec.Tool] = compiled
	}

	return g, nil
}

// Provider returns the underlying provider
func (g *Gateway) Provider() llm.Provider {
	return g.provider
}

// Invoke sends exactly one request to the provider and parses the response.
// Failures are *TransportError or *InvalidResponseError; nothing is retried.
func (g *Gateway) Invoke(ctx context.Context, req prompt.Request) (catalog.Output, error) {
	if !req.Tool.Valid() {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownTool, req.Tool)
	}

	log := g.logger.With(
		zap.String("tool", string(req.Tool)),
		zap.String("provider", string(g.provider.ID())),
	)

	genReq := g.buildRequest(req, log)

	start := time.Now()
	resp, err := g.provider.Generate(ctx, genReq)
	if err != nil {
		err = &TransportError{Tool: req.Tool, Err: err}
		g.metrics.observe(req.Tool, string(g.provider.ID()), time.Since(start), err)
		log.Warn("model request failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return nil, err
	}
	g.metrics.addTokens(string(g.provider.ID()), resp.Usage.InputTokens, resp.Usage.OutputTokens)

	out, err := g.parse(req, resp)
	duration := time.Since(start)
	g.metrics.observe(req.Tool, string(g.provider.ID()), duration, err)
	if err != nil {
		log.Error("model response rejected",
			zap.Error(err),
			zap.String("raw", truncate(resp.Text, maxLoggedRaw)),
			zap.String("stop_reason", resp.StopReason),
		)
		return nil, err
	}

	log.Debug("model request completed",
		zap.Duration("duration", duration),
		zap.String("model", resp.Model),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
	)
	return out, nil
}

func (g *Gateway) buildRequest(req prompt.Request, log *zap.Logger) *llm.GenerateRequest {
	caps := g.provider.Capabilities()

	genReq := &llm.GenerateRequest{
		SystemPrompt: req.SystemPreamble,
		Prompt:       req.UserPrompt,
		Schema:       req.OutputSchema,
		SchemaName:   strings.ReplaceAll(string(req.Tool), "-", "_"),
		WebSearch:    req.UseWebGrounding,
		MaxTokens:    g.maxTokens,
	}

	if req.UseWebGrounding && !caps.WebSearch {
		log.Warn("provider cannot ground answers in web search; sources will be empty")
	}

	// Without native constrained decoding the schema travels in the prompt
	if req.OutputSchema != nil && !caps.StructuredOutput {
		if raw, err := json.MarshalIndent(req.OutputSchema, "", "  "); err == nil {
			genReq.Prompt += "\n\nRespond with a single JSON object, without markdown, that conforms to this JSON Schema:\n" + string(raw)
		}
	}

	return genReq
}

func (g *Gateway) parse(req prompt.Request, resp *llm.GenerateResponse) (catalog.Output, error) {
	if req.OutputSchema == nil {
		sources := ExtractSources(resp.Citations)
		g.metrics.addSources(req.Tool, len(sources))
		return catalog.QAResponse{Answer: resp.Text, Sources: sources}, nil
	}

	raw := resp.Text
	text := stripCodeFence(raw)
	if text == "" {
		return nil, &InvalidResponseError{Tool: req.Tool, Raw: raw, Reason: reasonEmpty, Err: fmt.Errorf("empty response")}
	}
	if !json.Valid([]byte(text)) {
		return nil, &InvalidResponseError{Tool: req.Tool, Raw: raw, Reason: reasonSyntax, Err: fmt.Errorf("malformed JSON")}
	}

	if validator, ok := g.validators[req.Tool]; ok {
		result, err := validator.Validate(gojsonschema.NewStringLoader(text))
		if err != nil {
			return nil, &InvalidResponseError{Tool: req.Tool, Raw: raw, Reason: reasonSyntax, Err: err}
		}
		if !result.Valid() {
			errs := make([]string, len(result.Errors()))
			for i, desc := range result.Errors() {
				errs[i] = desc.String()
			}
			return nil, &InvalidResponseError{
				Tool:   req.Tool,
				Raw:    raw,
				Reason: reasonSchema,
				Err:    fmt.Errorf("schema validation failed: %s", strings.Join(errs, "; ")),
			}
		}
	}

	out, err := catalog.DecodeOutput(req.Tool, []byte(text))
	if err != nil {
		return nil, &InvalidResponseError{Tool: req.Tool, Raw: raw, Reason: reasonDecode, Err: err}
	}
	return out, nil
}

// ExtractSources converts provider citations into grounding sources, keeping
// only entries with a URI, in provider order. Missing titles become UnknownSourceTitle.
func ExtractSources(citations []llm.Citation) []catalog.GroundingSource {
	sources := make([]catalog.GroundingSource, 0, len(citations))
	for _, c := range citations {
		uri := strings.TrimSpace(c.URI)
		if uri == "" {
			continue
		}
		title := strings.TrimSpace(c.Title)
		if title == "" {
			title = UnknownSourceTitle
		}
		sources = append(sources, catalog.GroundingSource{URI: uri, Title: title})
	}
	return sources
}

// stripCodeFence removes a surrounding ```json fence some models add in JSON mode
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
