package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
	"github.com/ashalaginvimeo/AS-test/internal/llm"
	"github.com/ashalaginvimeo/AS-test/internal/prompt"
	"github.com/ashalaginvimeo/AS-test/internal/testutil"
)

func newGateway(t *testing.T, fake *testutil.FakeProvider, opts ...Option) *Gateway {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	g, err := New(fake, opts...)
	require.NoError(t, err)
	return g
}

func compose(t *testing.T, in catalog.Input) prompt.Request {
	t.Helper()
	req, err := prompt.Compose(in)
	require.NoError(t, err)
	return req
}

var validResponses = map[catalog.Tool]string{
	catalog.ToolProspect: `{"summary":"s","vimeo_relevance":"v","icebreakers":["a"],"key_talking_points":["k"],
		"suggested_outreach_email":{"subject":"Hi","body":"Body"}}`,
	catalog.ToolCallCoach: `{"overall_feedback":"o","key_moments_analysis":[{"transcript_snippet":"t","tactic_used":"Labeling","feedback":"f"}],
		"actionable_improvements":["x"]}`,
	catalog.ToolOutreach:  `{"sequence":[{"type":"LinkedIn","title":"Connect","instructions":"i","content":"c"}]}`,
	catalog.ToolObjection: `{"talking_points":["p"],"suggested_response":"r"}`,
	catalog.ToolDiscovery: `{"research_summary":"r","key_questions":["What"],"potential_pain_points":["p"]}`,
}

var structuredInputs = []catalog.Input{
	catalog.ProspectInput{ProfileText: "profile"},
	catalog.CallCoachInput{Transcript: "transcript"},
	catalog.OutreachInput{Role: "r", Company: "c", Product: "p", PainPoint: "pp", ValueProp: "vp"},
	catalog.ObjectionInput{Objection: "o", Context: "c"},
	catalog.DiscoveryInput{Company: "c", Role: "r", Goals: "g"},
}

func TestInvokeStructuredRoundTrip(t *testing.T) {
	for _, in := range structuredInputs {
		t.Run(string(in.Tool()), func(t *testing.T) {
			raw := validResponses[in.Tool()]
			fake := testutil.NewFakeProvider(testutil.TextReply(raw))
			g := newGateway(t, fake)

			out, err := g.Invoke(context.Background(), compose(t, in))
			require.NoError(t, err)
			assert.Equal(t, in.Tool(), out.Tool())

			want, err := catalog.DecodeOutput(in.Tool(), []byte(raw))
			require.NoError(t, err)
			assert.Equal(t, want, out)
			assert.Equal(t, 1, fake.Calls())
			assert.NotContains(t, fake.Requests()[0].SchemaName, "-")
		})
	}
}

func TestInvokePassesRequestThrough(t *testing.T) {
	fake := testutil.NewFakeProvider(testutil.TextReply(validResponses[catalog.ToolObjection]))
	g := newGateway(t, fake, WithMaxTokens(2048))

	req := compose(t, catalog.ObjectionInput{Objection: "too pricey", Context: "renewal"})
	_, err := g.Invoke(context.Background(), req)
	require.NoError(t, err)

	sent := fake.Requests()
	require.Len(t, sent, 1)
	assert.Equal(t, prompt.Preamble, sent[0].SystemPrompt)
	assert.Equal(t, req.UserPrompt, sent[0].Prompt)
	assert.Same(t, req.OutputSchema, sent[0].Schema)
	assert.Equal(t, "objection", sent[0].SchemaName)
	assert.False(t, sent[0].WebSearch)
	assert.Equal(t, 2048, sent[0].MaxTokens)
}

func TestInvokeEmbedsSchemaWhenProviderCannotConstrain(t *testing.T) {
	fake := testutil.NewFakeProvider(testutil.TextReply(validResponses[catalog.ToolDiscovery]))
	fake.SetCapabilities(llm.Capabilities{})
	g := newGateway(t, fake)

	req := compose(t, catalog.DiscoveryInput{Company: "c", Role: "r", Goals: "g"})
	_, err := g.Invoke(context.Background(), req)
	require.NoError(t, err)

	sent := fake.Requests()[0]
	assert.Contains(t, sent.Prompt, req.UserPrompt)
	assert.Contains(t, sent.Prompt, "JSON Schema")
	assert.Contains(t, sent.Prompt, "potential_pain_points")
}

func TestInvokeAcceptsFencedJSON(t *testing.T) {
	fence := "```json\n" + validResponses[catalog.ToolObjection] + "\n```"
	fake := testutil.NewFakeProvider(testutil.TextReply(fence))
	g := newGateway(t, fake)

	out, err := g.Invoke(context.Background(), compose(t, catalog.ObjectionInput{Objection: "o", Context: "c"}))
	require.NoError(t, err)
	assert.Equal(t, "r", out.(catalog.ObjectionResponse).SuggestedResponse)
}

func TestInvokeInvalidResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		message string
	}{
		{"malformed", `{"talking_points": ["p"`, "The response from the AI was not valid JSON."},
		{"empty", "   ", "The response from the AI was not valid JSON."},
		{"missing required field", `{"talking_points":["p"]}`, "The response from the AI did not match the expected format."},
		{"wrong type", `{"talking_points":"p","suggested_response":"r"}`, "The response from the AI did not match the expected format."},
		{"unknown field", `{"talking_points":["p"],"suggested_response":"r","extra":1}`, "The response from the AI did not match the expected format."},
		{"prose", `Sure! Here is your answer.`, "The response from the AI was not valid JSON."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeProvider(testutil.TextReply(tt.raw))
			g := newGateway(t, fake)

			out, err := g.Invoke(context.Background(), compose(t, catalog.ObjectionInput{Objection: "o", Context: "c"}))
			assert.Nil(t, out)
			require.Error(t, err)
			assert.Equal(t, KindInvalidResponse, KindOf(err))
			assert.Equal(t, tt.message, err.Error())

			var iErr *InvalidResponseError
			require.ErrorAs(t, err, &iErr)
			assert.Equal(t, tt.raw, iErr.Raw)
			assert.Equal(t, catalog.ToolObjection, iErr.Tool)
			assert.Equal(t, 1, fake.Calls(), "never retried")
		})
	}
}

func TestInvokeTransportError(t *testing.T) {
	boom := errors.New("connection reset")
	fake := testutil.NewFakeProvider(testutil.ErrorReply(boom))
	g := newGateway(t, fake)

	out, err := g.Invoke(context.Background(), compose(t, catalog.QAInput{Question: "q"}))
	assert.Nil(t, out)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 1, fake.Calls())
}

func TestInvokeQAGrounding(t *testing.T) {
	fake := testutil.NewFakeProvider(testutil.TextReply("Up to 20 Mbps.",
		llm.Citation{URI: "https://help.vimeo.com/ott", Title: "OTT specs"},
		llm.Citation{URI: "", Title: "dropped"},
	))
	g := newGateway(t, fake)

	req := compose(t, catalog.QAInput{Question: "bitrate?"})
	out, err := g.Invoke(context.Background(), req)
	require.NoError(t, err)

	sent := fake.Requests()[0]
	assert.True(t, sent.WebSearch)
	assert.Nil(t, sent.Schema)
	assert.Empty(t, sent.SystemPrompt)

	assert.Equal(t, catalog.QAResponse{
		Answer:  "Up to 20 Mbps.",
		Sources: []catalog.GroundingSource{{URI: "https://help.vimeo.com/ott", Title: "OTT specs"}},
	}, out)
}

func TestInvokeQAWithoutGrounding(t *testing.T) {
	fake := testutil.NewFakeProvider(testutil.TextReply("I could not find that."))
	fake.SetCapabilities(llm.Capabilities{StructuredOutput: true})
	g := newGateway(t, fake)

	out, err := g.Invoke(context.Background(), compose(t, catalog.QAInput{Question: "q"}))
	require.NoError(t, err)
	qa := out.(catalog.QAResponse)
	assert.Equal(t, "I could not find that.", qa.Answer)
	assert.NotNil(t, qa.Sources)
	assert.Empty(t, qa.Sources)
}

func TestInvokeUnknownTool(t *testing.T) {
	fake := testutil.NewFakeProvider()
	g := newGateway(t, fake)

	_, err := g.Invoke(context.Background(), prompt.Request{Tool: "pitch"})
	assert.ErrorIs(t, err, catalog.ErrUnknownTool)
	assert.Zero(t, fake.Calls())
}

func TestExtractSources(t *testing.T) {
	got := ExtractSources([]llm.Citation{
		{URI: "https://a.example", Title: "A"},
		{URI: "", Title: "no uri"},
		{URI: "https://b.example"},
		{URI: "   ", Title: "blank"},
		{URI: "https://c.example", Title: "C"},
	})
	assert.Equal(t, []catalog.GroundingSource{
		{URI: "https://a.example", Title: "A"},
		{URI: "https://b.example", Title: UnknownSourceTitle},
		{URI: "https://c.example", Title: "C"},
	}, got)

	assert.Empty(t, ExtractSources(nil))
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`  {"a":1} `))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	fake := testutil.NewFakeProvider(
		testutil.TextReply(validResponses[catalog.ToolObjection]),
		testutil.TextReply("not json"),
		testutil.TextReply("answer", llm.Citation{URI: "https://a.example"}, llm.Citation{URI: "https://b.example"}),
	)
	g := newGateway(t, fake, WithRegisterer(reg))
	ctx := context.Background()

	_, err := g.Invoke(ctx, compose(t, catalog.ObjectionInput{Objection: "o", Context: "c"}))
	require.NoError(t, err)
	_, err = g.Invoke(ctx, compose(t, catalog.ObjectionInput{Objection: "o", Context: "c"}))
	require.Error(t, err)
	_, err = g.Invoke(ctx, compose(t, catalog.QAInput{Question: "q"}))
	require.NoError(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(g.metrics.invocations.WithLabelValues("objection", "success")))
	assert.Equal(t, 1.0, promtest.ToFloat64(g.metrics.invocations.WithLabelValues("objection", "invalid_response")))
	assert.Equal(t, 2.0, promtest.ToFloat64(g.metrics.sources.WithLabelValues("qa")))
}

func TestNewRequiresProvider(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
