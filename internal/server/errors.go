package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
	"github.com/ashalaginvimeo/AS-test/internal/dispatch"
	"github.com/ashalaginvimeo/AS-test/internal/gateway"
)

var (
	errSessionNotFound = errors.New("session not found")
	errSessionLimit    = errors.New("session limit reached")
)

type errorResponse struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind"`
	Missing []string `json:"missing,omitempty"`
}

// classify maps an error to a status code and response body
func classify(err error) (int, errorResponse) {
	var vErr *catalog.ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "validation", Missing: vErr.Missing}
	case errors.Is(err, catalog.ErrUnknownField):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "bad_request"}
	case errors.Is(err, catalog.ErrUnknownTool):
		return http.StatusNotFound, errorResponse{Error: err.Error(), Kind: "unknown_tool"}
	case errors.Is(err, errSessionNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error(), Kind: "not_found"}
	case errors.Is(err, catalog.ErrToolMismatch):
		return http.StatusConflict, errorResponse{Error: err.Error(), Kind: "tool_mismatch"}
	case errors.Is(err, dispatch.ErrClosed):
		return http.StatusGone, errorResponse{Error: err.Error(), Kind: "closed"}
	case errors.Is(err, errSessionLimit):
		return http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Kind: "session_limit"}
	}
	if kind := gateway.KindOf(err); kind != gateway.KindNone {
		return http.StatusBadGateway, errorResponse{Error: dispatch.FailurePrefix + err.Error(), Kind: string(kind)}
	}
	return http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "bad_request"}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	writeJSON(w, status, body)
}
