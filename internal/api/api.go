// Package api provides the HTTP surface of MomentoBot.
//
// It exposes RESTful endpoints over the assessment engine for the operations
// consumed by operator tooling and the messaging webhook, wrapping results in
// the shared JSON envelope.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/momentohub/MomentoBot/internal/assessment"
	"github.com/momentohub/MomentoBot/internal/models"
)

// Server wires HTTP routes to the assessment engine.
type Server struct {
	engine *assessment.Engine
	mux    *http.ServeMux
}

// NewServer creates the API server over the given engine.
func NewServer(engine *assessment.Engine) *Server {
	s := &Server{engine: engine, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /assessments", s.handleList)
	s.mux.HandleFunc("POST /assessments/{name}/start", s.handleStart)
	s.mux.HandleFunc("POST /assessments/{name}/answer", s.handleAnswer)
	s.mux.HandleFunc("GET /assessments/{name}/status", s.handleStatus)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.Success(s.engine.List()))
}

type startRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, models.Error("user_id is required"))
		return
	}

	result, err := s.engine.Start(r.Context(), r.PathValue("name"), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Success(result))
}

type answerRequest struct {
	UserID  string `json:"user_id"`
	Answer  string `json:"answer"`
	StepKey string `json:"step_key,omitempty"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, models.Error("user_id is required"))
		return
	}
	if req.Answer == "" {
		writeJSON(w, http.StatusBadRequest, models.Error("answer is required"))
		return
	}

	result, err := s.engine.Answer(r.Context(), r.PathValue("name"), req.UserID, req.Answer, req.StepKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Success(result))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, models.Error("user_id is required"))
		return
	}

	result, err := s.engine.Status(r.Context(), r.PathValue("name"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Success(result))
}

// writeError maps the error taxonomy to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrUnknownAssessment):
		writeJSON(w, http.StatusNotFound, models.Error(err.Error()))
	case models.IsValidationError(err):
		writeJSON(w, http.StatusBadRequest, models.Error(err.Error()))
	case errors.Is(err, models.ErrServiceUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, models.Error(err.Error()))
	default:
		slog.Error("api: request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.Error("internal error"))
	}
}

func writeJSON(w http.ResponseWriter, status int, body models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("api: failed to encode response", "error", err)
	}
}
