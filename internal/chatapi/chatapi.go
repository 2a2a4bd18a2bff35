// Package chatapi serves agents over a small JSON HTTP API:
//
//	GET    /v1/agents                list agents
//	POST   /v1/agents/{name}/runs    run a task: {"task": "..."}
//	DELETE /v1/agents/{name}/history forget the agent's conversation
//
// Errors are returned as {"error": "..."}.
package chatapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ltejedor/building-ai-agents/internal/agent"
	"github.com/ltejedor/building-ai-agents/internal/observe"
)

// maxBodyBytes bounds run request bodies.
const maxBodyBytes = 1 << 20

// Directory looks up agents. *app.App satisfies it.
type Directory interface {
	Agent(name string) (agent.Agent, error)
	Agents() []agent.Agent
}

// AgentInfo describes one agent in the list response.
type AgentInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// RunRequest is the body of POST /v1/agents/{name}/runs.
type RunRequest struct {
	Task string `json:"task"`
}

// RunResponse is returned by a successful run.
type RunResponse struct {
	ID         string `json:"id"`
	Agent      string `json:"agent"`
	Output     string `json:"output"`
	DurationMs int64  `json:"duration_ms"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server handles the chat API routes.
type Server struct {
	agents     Directory
	runTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithRunTimeout bounds every run. Zero means no limit beyond the request
// context.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Server) { s.runTimeout = d }
}

// New returns a Server backed by agents.
func New(agents Directory, opts ...Option) *Server {
	s := &Server{agents: agents}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register adds the API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/agents", s.handleList)
	mux.HandleFunc("POST /v1/agents/{name}/runs", s.handleRun)
	mux.HandleFunc("DELETE /v1/agents/{name}/history", s.handleReset)
}

// Handler returns the routes wrapped in the observe middleware.
func (s *Server) Handler(m *observe.Metrics) http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return observe.Middleware(m)(mux)
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	agents := s.agents.Agents()
	out := make([]AgentInfo, 0, len(agents))
	for _, a := range agents {
		out = append(out, AgentInfo{Name: a.Name(), Description: a.Description()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": out})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Task) == "" {
		writeError(w, http.StatusBadRequest, "task must not be empty")
		return
	}

	ctx := r.Context()
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	id := uuid.NewString()
	log := observe.Logger(ctx).With("request_id", id, "agent", a.Name())
	start := time.Now()
	out, err := a.Run(ctx, req.Task)
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("run failed", "err", err, "duration", elapsed)
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		writeError(w, status, err.Error())
		return
	}
	log.Info("run finished", "duration", elapsed)

	writeJSON(w, http.StatusOK, RunResponse{
		ID:         id,
		Agent:      a.Name(),
		Output:     out,
		DurationMs: elapsed.Milliseconds(),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookup(w, r)
	if !ok {
		return
	}
	a.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (agent.Agent, bool) {
	name := r.PathValue("name")
	a, err := s.agents.Agent(name)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown agent %q", name))
		return nil, false
	}
	return a, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
