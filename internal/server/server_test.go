package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
	"github.com/ashalaginvimeo/AS-test/internal/dispatch"
	"github.com/ashalaginvimeo/AS-test/internal/gateway"
	"github.com/ashalaginvimeo/AS-test/internal/llm"
	"github.com/ashalaginvimeo/AS-test/internal/testutil"
)

const objectionJSON = `{"talking_points":["Acknowledge","Differentiate"],"suggested_response":"Totally fair."}`

func newTestServer(t *testing.T, fake *testutil.FakeProvider, opts Options) *httptest.Server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	reg := prometheus.NewRegistry()
	g, err := gateway.New(fake, gateway.WithLogger(logger), gateway.WithRegisterer(reg))
	require.NoError(t, err)

	opts.Registerer = reg
	opts.Gatherer = reg
	s := New(g, logger, opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return ts
}

func do(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func objectionBody() map[string]any {
	return map[string]any{"input": map[string]string{
		"objection": "We already use another video platform.",
		"context":   "initial discovery call",
	}}
}

func TestListTools(t *testing.T) {
	ts := newTestServer(t, testutil.NewFakeProvider(), Options{})

	resp, data := do(t, http.MethodGet, ts.URL+"/api/tools", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var specs []struct {
		Tool   string `json:"tool"`
		Title  string `json:"title"`
		Output struct {
			Structured bool            `json:"structured"`
			Schema     json.RawMessage `json:"schema"`
		} `json:"output"`
	}
	require.NoError(t, json.Unmarshal(data, &specs))
	require.Len(t, specs, len(catalog.All()))
	for i, tool := range catalog.All() {
		assert.Equal(t, string(tool), specs[i].Tool)
		assert.Equal(t, tool.Structured(), specs[i].Output.Structured)
		assert.Equal(t, tool.Structured(), len(specs[i].Output.Schema) > 0)
	}
}

func TestRunTool(t *testing.T) {
	fake := testutil.NewFakeProvider(testutil.TextReply(objectionJSON))
	ts := newTestServer(t, fake, Options{})

	resp, data := do(t, http.MethodPost, ts.URL+"/api/tools/objection", objectionBody())
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var got struct {
		Tool   string                    `json:"tool"`
		Output catalog.ObjectionResponse `json:"output"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "objection", got.Tool)
	assert.Equal(t, "Totally fair.", got.Output.SuggestedResponse)
	assert.Contains(t, fake.Requests()[0].Prompt, "We already use another video platform.")
}

func TestRunToolErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   any
		reply  testutil.Reply
		status int
		kind   string
	}{
		{"unknown tool", "/api/tools/pitch", objectionBody(), testutil.TextReply(objectionJSON), http.StatusNotFound, "unknown_tool"},
		{"missing field", "/api/tools/objection", map[string]any{"input": map[string]string{"objection": "x"}}, testutil.TextReply(objectionJSON), http.StatusBadRequest, "validation"},
		{"unknown field", "/api/tools/qa", map[string]any{"input": map[string]string{"question": "q", "extra": "x"}}, testutil.TextReply("a"), http.StatusBadRequest, "bad_request"},
		{"invalid response", "/api/tools/objection", objectionBody(), testutil.TextReply("not json"), http.StatusBadGateway, "invalid_response"},
		{"transport", "/api/tools/objection", objectionBody(), testutil.ErrorReply(errors.New("dial tcp: refused")), http.StatusBadGateway, "transport"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, testutil.NewFakeProvider(tt.reply), Options{})
			resp, data := do(t, http.MethodPost, ts.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(data))

			var body errorResponse
			require.NoError(t, json.Unmarshal(data, &body))
			assert.Equal(t, tt.kind, body.Kind)
			if tt.status == http.StatusBadGateway {
				assert.True(t, strings.HasPrefix(body.Error, dispatch.FailurePrefix))
			}
		})
	}
}

func TestRunQAReturnsSources(t *testing.T) {
	fake := testutil.NewFakeProvider(testutil.TextReply("20 Mbps",
		llm.Citation{URI: "https://help.vimeo.com/a", Title: "A"},
		llm.Citation{Title: "no uri"},
	))
	ts := newTestServer(t, fake, Options{})

	resp, data := do(t, http.MethodPost, ts.URL+"/api/tools/qa", map[string]any{"input": map[string]string{"question": "bitrate?"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Output catalog.QAResponse `json:"output"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, []catalog.GroundingSource{{URI: "https://help.vimeo.com/a", Title: "A"}}, got.Output.Sources)
}

type sessionBody struct {
	ID    string `json:"id"`
	State struct {
		Phase      string          `json:"phase"`
		Tool       string          `json:"tool"`
		Generation uint64          `json:"generation"`
		Output     json.RawMessage `json:"output"`
		Error      string          `json:"error"`
	} `json:"state"`
}

func TestSessionLifecycle(t *testing.T) {
	fake := testutil.NewFakeProvider(testutil.TextReply(objectionJSON))
	ts := newTestServer(t, fake, Options{})

	resp, data := do(t, http.MethodPost, ts.URL+"/api/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created sessionBody
	require.NoError(t, json.Unmarshal(data, &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "prospect", created.State.Tool)
	assert.Equal(t, "idle", created.State.Phase)
	base := ts.URL + "/api/sessions/" + created.ID

	// input is decoded against the active tool
	resp, _ = do(t, http.MethodPost, base+"/submit", objectionBody())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = do(t, http.MethodPut, base+"/tool", map[string]string{"tool": "objection"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	resp, data = do(t, http.MethodPost, base+"/submit", objectionBody())
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(data))
	var submitted submitResponse
	require.NoError(t, json.Unmarshal(data, &submitted))
	assert.NotZero(t, submitted.Generation)

	resp, data = do(t, http.MethodGet, fmt.Sprintf("%s?wait=%d", base, submitted.Generation), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state sessionBody
	require.NoError(t, json.Unmarshal(data, &state))
	assert.Equal(t, "succeeded", state.State.Phase)
	assert.Equal(t, submitted.Generation, state.State.Generation)
	assert.JSONEq(t, objectionJSON, string(state.State.Output))

	resp, _ = do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionFailureState(t *testing.T) {
	fake := testutil.NewFakeProvider(testutil.TextReply("{broken"))
	ts := newTestServer(t, fake, Options{})

	_, data := do(t, http.MethodPost, ts.URL+"/api/sessions", map[string]string{"tool": "objection"})
	var created sessionBody
	require.NoError(t, json.Unmarshal(data, &created))
	base := ts.URL + "/api/sessions/" + created.ID

	_, data = do(t, http.MethodPost, base+"/submit", objectionBody())
	var submitted submitResponse
	require.NoError(t, json.Unmarshal(data, &submitted))

	_, data = do(t, http.MethodGet, fmt.Sprintf("%s?wait=%d", base, submitted.Generation), nil)
	var state sessionBody
	require.NoError(t, json.Unmarshal(data, &state))
	assert.Equal(t, "failed", state.State.Phase)
	assert.Equal(t, "Failed to generate content. The response from the AI was not valid JSON.", state.State.Error)
	assert.Empty(t, state.State.Output)
}

func TestSessionCancel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	fake := testutil.NewFakeProvider(testutil.BlockingReply(objectionJSON, release))
	ts := newTestServer(t, fake, Options{})

	_, data := do(t, http.MethodPost, ts.URL+"/api/sessions", map[string]string{"tool": "objection"})
	var created sessionBody
	require.NoError(t, json.Unmarshal(data, &created))
	base := ts.URL + "/api/sessions/" + created.ID

	resp, _ := do(t, http.MethodPost, base+"/submit", objectionBody())
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	select {
	case <-fake.Started():
	case <-time.After(2 * time.Second):
		t.Fatal("provider never called")
	}

	resp, data = do(t, http.MethodPost, base+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state sessionBody
	require.NoError(t, json.Unmarshal(data, &state))
	assert.Equal(t, "idle", state.State.Phase)
}

func TestSessionLimit(t *testing.T) {
	ts := newTestServer(t, testutil.NewFakeProvider(), Options{MaxSessions: 1})

	resp, _ := do(t, http.MethodPost, ts.URL+"/api/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, data := do(t, http.MethodPost, ts.URL+"/api/sessions", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, string(data))
}

func TestZeroSessionLimitIsUnlimited(t *testing.T) {
	ts := newTestServer(t, testutil.NewFakeProvider(), Options{})

	for i := 0; i < 5; i++ {
		resp, data := do(t, http.MethodPost, ts.URL+"/api/sessions", nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, testutil.NewFakeProvider(testutil.TextReply(objectionJSON)), Options{})

	resp, data := do(t, http.MethodGet, ts.URL+"/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))

	do(t, http.MethodPost, ts.URL+"/api/tools/objection", objectionBody())

	resp, data = do(t, http.MethodGet, ts.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `copilot_http_requests_total{code="200",route="POST /api/tools/{tool}"} 1`)
	assert.Contains(t, string(data), `copilot_gateway_invocations_total{outcome="success",tool="objection"} 1`)
}

func TestListenAndServeShutsDown(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := New(nil, zaptest.NewLogger(t), Options{Addr: "127.0.0.1:0", Registerer: reg, Gatherer: reg})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
