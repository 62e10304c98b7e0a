package server

import (
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/cygnet/pkg/model"
	"github.com/m-mizutani/cygnet/pkg/utils/logging"
)

// handleChat serves POST /v1/chat. The chat path always answers 200 with a
// well-formed body: internal failures are already absorbed by the orchestrator
// and only malformed input is rejected.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := s.cfg.Chat.Chat(r.Context(), &req)
	if err != nil {
		// Orchestrator errors are validation failures; anything else was
		// already converted to the apology response
		logging.From(r.Context()).Error("chat request rejected", "error", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

type initChatRequest struct {
	UserID       string `json:"userId"`
	ConceptTitle string `json:"conceptTitle"`
}

// handleInitChat serves POST /v1/chat/init
func (s *Server) handleInitChat(w http.ResponseWriter, r *http.Request) {
	var req initChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.cfg.Chat.Init(r.Context(), req.UserID, req.ConceptTitle)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

type clearConversationResponse struct {
	Cleared bool `json:"cleared"`
}

// handleClearConversation serves DELETE /v1/conversations/{conversationID}
func (s *Server) handleClearConversation(w http.ResponseWriter, r *http.Request) {
	id := model.ConversationID(r.PathValue("conversationID"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "conversation ID is required")
		return
	}

	cleared := s.cfg.Chat.Clear(id)
	if !cleared {
		respondError(w, http.StatusNotFound, "conversation not found")
		return
	}

	respondJSON(w, http.StatusOK, &clearConversationResponse{Cleared: true})
}
