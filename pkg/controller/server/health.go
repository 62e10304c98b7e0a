package server

import "net/http"

type healthModels struct {
	LLM       string `json:"llm"`
	Embedding string `json:"embedding"`
}

type healthVectorStore struct {
	Status string `json:"status"`
	Name   string `json:"name"`
}

type healthResponse struct {
	Status      string            `json:"status"`
	Service     string            `json:"service"`
	Models      healthModels      `json:"models"`
	VectorStore healthVectorStore `json:"vectorStore"`
}

// handleHealth serves GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &healthResponse{
		Status:  "UP",
		Service: "cygnet",
		Models: healthModels{
			LLM:       s.cfg.LLMName,
			Embedding: s.cfg.EmbeddingName,
		},
		VectorStore: healthVectorStore{
			Status: "connected",
			Name:   s.cfg.VectorStoreTag,
		},
	})
}
