// Package server exposes the conversation store over HTTP.
//
// Endpoints:
//   - POST   /conversations               - save a conversation with its messages
//   - GET    /conversations               - list; ?q= text search; ?start=/?end= time range
//   - GET    /conversations/{id}          - load one conversation with messages
//   - GET    /conversations/{id}/resume   - conversation plus its last message
//   - DELETE /conversations/{id}          - delete with cascade
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quantyverse/qv-session-manager/internal/logger"
	"github.com/quantyverse/qv-session-manager/internal/model"
	"github.com/quantyverse/qv-session-manager/internal/store"
)

// Server routes HTTP requests to store operations.
type Server struct {
	store *store.Store
	mux   *http.ServeMux
}

// New builds a Server around an initialized store.
func New(st *store.Store) *Server {
	s := &Server{store: st, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /conversations", s.handleSave)
	s.mux.HandleFunc("GET /conversations", s.handleList)
	s.mux.HandleFunc("GET /conversations/{id}", s.handleLoad)
	s.mux.HandleFunc("GET /conversations/{id}/resume", s.handleResume)
	s.mux.HandleFunc("DELETE /conversations/{id}", s.handleDelete)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type saveRequest struct {
	Conversation model.Conversation `json:"conversation"`
	Messages     []model.Message    `json:"messages"`
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Conversation.ID == "" {
		http.Error(w, "conversation id is required", http.StatusBadRequest)
		return
	}
	if err := s.store.SaveConversation(r.Context(), &req.Conversation, req.Messages); err != nil {
		logger.L.Error("save conversation failed", "id", req.Conversation.ID, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrMetadataEncoding) {
			status = http.StatusBadRequest
		}
		http.Error(w, "failed to save conversation", status)
		return
	}
	writeJSON(w, http.StatusOK, req.Conversation)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		summaries []store.ConversationSummary
		err       error
	)
	switch {
	case q.Get("q") != "":
		summaries, err = s.store.SearchConversations(r.Context(), q.Get("q"))
	case q.Get("start") != "" || q.Get("end") != "":
		summaries, err = s.store.SearchByTime(r.Context(), q.Get("start"), q.Get("end"))
	default:
		summaries, err = s.store.ListConversations(r.Context())
	}
	if err != nil {
		logger.L.Error("list conversations failed", "error", err)
		http.Error(w, "failed to list conversations", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	conv, ok, err := s.store.LoadConversation(r.Context(), id)
	if err != nil {
		logger.L.Error("load conversation failed", "id", id, "error", err)
		http.Error(w, "failed to load conversation", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	resumed, ok, err := s.store.ResumeConversation(r.Context(), id)
	if err != nil {
		logger.L.Error("resume conversation failed", "id", id, "error", err)
		http.Error(w, "failed to resume conversation", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, resumed)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteConversation(r.Context(), id); err != nil {
		logger.L.Error("delete conversation failed", "id", id, "error", err)
		http.Error(w, "failed to delete conversation", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Error("encode response failed", "error", err)
	}
}
