// Package server hosts the dialogue engine behind HTTP: a plain process-turn
// endpoint for any integration, plus a Slack events webhook.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ryotagoto/mokuhyo/internal/dialogue"
	"github.com/ryotagoto/mokuhyo/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Engine is the single contract a host needs from the dialogue subsystem.
type Engine interface {
	ProcessTurn(ctx context.Context, req dialogue.TurnRequest) (*dialogue.TurnResult, error)
}

type Server struct {
	engine Engine
	router chi.Router
}

func New(engine Engine) *Server {
	s := &Server{engine: engine}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/turns", s.handleTurn)

	s.router = r
	return s
}

// Handler returns the HTTP handler, also used directly in tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Mount attaches extra routes (e.g. the Slack webhook) onto the router.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req dialogue.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ConversationID == "" || req.AccountID == "" {
		http.Error(w, "conversation_id and account_id are required", http.StatusBadRequest)
		return
	}

	ctx := logger.WithConversationID(r.Context(), req.ConversationID)
	result, err := s.engine.ProcessTurn(ctx, req)
	if err != nil {
		slog.Error("Turn processing failed", "conversation", req.ConversationID, "error", err)
		http.Error(w, "turn processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("Response encoding failed", "error", err)
	}
}
