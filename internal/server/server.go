// Package server exposes the tools over a JSON HTTP API, both as one-shot
// calls and as long-lived sessions each owning a dispatcher.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
	"github.com/ashalaginvimeo/AS-test/internal/dispatch"
	"github.com/ashalaginvimeo/AS-test/internal/prompt"
)

const maxBodyBytes = 1 << 20

// Options configures a Server. A zero MaxSessions or RequestTimeout disables that limit.
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
	MaxSessions     int
	RequestTimeout  time.Duration
	Registerer      prometheus.Registerer
	Gatherer        prometheus.Gatherer
}

// Server serves the tool API
type Server struct {
	invoker dispatch.Invoker
	logger  *zap.Logger
	opts    Options
	metrics *metrics
	newID   func() string

	mu       sync.Mutex
	sessions map[string]*dispatch.Dispatcher
}

// New creates a server that runs every tool through invoker
func New(invoker dispatch.Invoker, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:8080"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		invoker:  invoker,
		logger:   logger,
		opts:     opts,
		metrics:  newMetrics(opts.Registerer),
		newID:    uuid.NewString,
		sessions: make(map[string]*dispatch.Dispatcher),
	}
}

// Handler returns the routed API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.metrics.instrument(pattern, h))
	}

	route("GET /api/tools", s.handleListTools)
	route("POST /api/tools/{tool}", s.handleRunTool)
	route("POST /api/sessions", s.handleCreateSession)
	route("GET /api/sessions/{id}", s.handleGetSession)
	route("DELETE /api/sessions/{id}", s.handleDeleteSession)
	route("PUT /api/sessions/{id}/tool", s.handleSelectTool)
	route("POST /api/sessions/{id}/submit", s.handleSubmit)
	route("POST /api/sessions/{id}/cancel", s.handleCancel)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))

	return s.logRequests(mux)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully and
// closes every session.
func (s *Server) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		s.Close()
		return fmt.Errorf("api server failed to start: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		s.Close()
		if err != nil {
			s.logger.Error("api server shutdown error", zap.Error(err))
			return err
		}
		s.logger.Info("api server stopped")
		return nil
	}
}

// Close closes every open session
func (s *Server) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*dispatch.Dispatcher)
	s.mu.Unlock()

	for _, d := range sessions {
		d.Close()
	}
	s.metrics.sessions.Set(0)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Specs())
}

type inputRequest struct {
	Input map[string]string `json:"input"`
}

type runResponse struct {
	Tool   catalog.Tool   `json:"tool"`
	Output catalog.Output `json:"output"`
}

func decodeInput(r *http.Request, tool catalog.Tool) (catalog.Input, error) {
	var body inputRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	in, err := catalog.DecodeInput(tool, body.Input)
	if err != nil {
		return nil, err
	}
	if err := catalog.Validate(in); err != nil {
		return nil, err
	}
	return in, nil
}

// handleRunTool runs one tool synchronously, bound to the request's context
func (s *Server) handleRunTool(w http.ResponseWriter, r *http.Request) {
	tool, err := catalog.Parse(r.PathValue("tool"))
	if err != nil {
		writeError(w, err)
		return
	}
	in, err := decodeInput(r, tool)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := prompt.Compose(in)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	out, err := s.invoker.Invoke(ctx, req)
	if err != nil {
		s.logger.Warn("tool run failed", zap.String("tool", string(tool)), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Tool: tool, Output: out})
}

type createSessionRequest struct {
	Tool catalog.Tool `json:"tool"`
}

type sessionResponse struct {
	ID    string         `json:"id"`
	State dispatch.State `json:"state"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var body createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}
	tool := catalog.DefaultTool
	if body.Tool != "" {
		parsed, err := catalog.Parse(string(body.Tool))
		if err != nil {
			writeError(w, err)
			return
		}
		tool = parsed
	}

	id := s.newID()
	d := dispatch.New(s.invoker,
		dispatch.WithLogger(s.logger.With(zap.String("session_id", id))),
		dispatch.WithTimeout(s.opts.RequestTimeout),
		dispatch.WithInitialTool(tool),
	)

	s.mu.Lock()
	if s.opts.MaxSessions > 0 && len(s.sessions) >= s.opts.MaxSessions {
		s.mu.Unlock()
		writeError(w, errSessionLimit)
		return
	}
	s.sessions[id] = d
	count := len(s.sessions)
	s.mu.Unlock()

	s.metrics.sessions.Set(float64(count))
	s.logger.Info("session created", zap.String("session_id", id), zap.String("tool", string(tool)))
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id, State: d.State()})
}

func (s *Server) session(r *http.Request) (*dispatch.Dispatcher, error) {
	id := r.PathValue("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errSessionNotFound, id)
	}
	return d, nil
}

// handleGetSession returns the session state. With ?wait=<generation> it
// blocks until that generation settles or the client goes away.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	d, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	state := d.State()
	if raw := r.URL.Query().Get("wait"); raw != "" {
		gen, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, fmt.Errorf("invalid wait generation %q", raw))
			return
		}
		state, err = d.Wait(r.Context(), gen)
		if err != nil {
			return
		}
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: r.PathValue("id"), State: state})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	d, ok := s.sessions[id]
	delete(s.sessions, id)
	count := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		writeError(w, fmt.Errorf("%w: %s", errSessionNotFound, id))
		return
	}
	d.Close()
	s.metrics.sessions.Set(float64(count))
	s.logger.Info("session closed", zap.String("session_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectTool(w http.ResponseWriter, r *http.Request) {
	d, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body createSessionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	tool, err := catalog.Parse(string(body.Tool))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := d.SelectTool(tool); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: r.PathValue("id"), State: d.State()})
}

type submitResponse struct {
	Generation uint64 `json:"generation"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	d, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	in, err := decodeInput(r, d.ActiveTool())
	if err != nil {
		writeError(w, err)
		return
	}
	gen, err := d.Submit(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{Generation: gen})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	d, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	d.Cancel()
	writeJSON(w, http.StatusOK, sessionResponse{ID: r.PathValue("id"), State: d.State()})
}
