package server

import (
	"encoding/json"
	"net/http"

	chatuc "github.com/m-mizutani/cygnet/pkg/usecase/chat"
	documentuc "github.com/m-mizutani/cygnet/pkg/usecase/document"
	"github.com/m-mizutani/cygnet/pkg/utils/logging"
)

// Config wires the server's collaborators and the names reported by /health
type Config struct {
	Chat      *chatuc.UseCase
	Documents *documentuc.UseCase

	LLMName        string
	EmbeddingName  string
	VectorStoreTag string
}

// Server exposes the chat and document API over HTTP
type Server struct {
	cfg Config
	mux *http.ServeMux
}

func New(cfg Config) *Server {
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /v1/chat", s.handleChat)
	s.mux.HandleFunc("POST /v1/chat/init", s.handleInitChat)
	s.mux.HandleFunc("DELETE /v1/conversations/{conversationID}", s.handleClearConversation)
	s.mux.HandleFunc("POST /v1/concepts/{conceptID}/documents", s.handleUploadDocuments)
	s.mux.HandleFunc("GET /v1/concepts/{conceptID}/documents", s.handleListDocuments)
	s.mux.HandleFunc("DELETE /v1/documents/{documentID}", s.handleDeleteDocument)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	withRequestLogger(s.mux).ServeHTTP(w, r)
}

func respondJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Default().Error("failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, &errorBody{Error: message})
}
