// Package httpapi exposes the digest and tutoring operations over HTTP.
// The handlers are thin glue over the domain services.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/studyloop/tutor-backend/internal/digest"
	"github.com/studyloop/tutor-backend/internal/homework"
	"github.com/studyloop/tutor-backend/internal/tutor"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ServerConfig holds dependencies for the HTTP server.
type ServerConfig struct {
	Builder *digest.Builder
	Digests digest.Store
	Tutor   *tutor.Service
	Ready   map[string]HealthChecker // name -> readiness check
	Logger  *slog.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	builder *digest.Builder
	digests digest.Store
	tutor   *tutor.Service
	ready   map[string]HealthChecker
	logger  *slog.Logger
}

// NewServer creates the HTTP server glue.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		builder: cfg.Builder,
		digests: cfg.Digests,
		tutor:   cfg.Tutor,
		ready:   cfg.Ready,
		logger:  logger,
	}
}

// Mux builds the route table.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("POST /api/assignments/{id}/digest", s.handleGenerateDigest)
	mux.HandleFunc("GET /api/assignments/{id}/digest", s.handleGetDigest)
	mux.HandleFunc("POST /api/assignments/{id}/digest/confirm", s.handleConfirmDigest)
	mux.HandleFunc("POST /api/tutor/ask", s.handleTutorAsk)
	mux.HandleFunc("GET /api/tutor/stream", s.handleTutorStream)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	for name, check := range s.ready {
		if err := check.HealthCheck(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "dependency", name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"failed": name,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleGenerateDigest(w http.ResponseWriter, r *http.Request) {
	d, err := s.builder.Build(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleGetDigest(w http.ResponseWriter, r *http.Request) {
	d, err := s.digests.GetDigest(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleConfirmDigest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProblemIDs []string `json:"problem_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	d, err := s.builder.Confirm(r.Context(), r.PathValue("id"), body.ProblemIDs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleTutorAsk(w http.ResponseWriter, r *http.Request) {
	var req tutor.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	resp, err := s.tutor.Ask(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeError maps domain errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, homework.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, digest.ErrValidation), errors.Is(err, tutor.ErrEmptyQuestion):
		status = http.StatusBadRequest
	case errors.Is(err, tutor.ErrBudgetExhausted):
		status = http.StatusTooManyRequests
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
