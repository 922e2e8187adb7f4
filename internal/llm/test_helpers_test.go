package llm

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/require"
)

func objectionSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"talking_points":     {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"suggested_response": {Type: "string", Description: "A polished response."},
		},
		Required: []string{"talking_points", "suggested_response"},
	}
}

// recordingServer serves a canned JSON body and keeps the last decoded request
type recordingServer struct {
	*httptest.Server
	mu   sync.Mutex
	body map[string]any
	path string
	hits int
}

func newRecordingServer(t *testing.T, status int, response string) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var decoded map[string]any
		_ = json.Unmarshal(raw, &decoded)

		rs.mu.Lock()
		rs.body = decoded
		rs.path = r.URL.Path
		rs.hits++
		rs.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *recordingServer) lastBody(t *testing.T) map[string]any {
	t.Helper()
	rs.mu.Lock()
	defer rs.mu.Unlock()
	require.NotNil(t, rs.body, "server received no request")
	return rs.body
}

func (rs *recordingServer) lastPath() string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.path
}

func (rs *recordingServer) requests() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.hits
}
