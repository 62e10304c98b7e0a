package server

import (
	"net/http"

	"github.com/m-mizutani/cygnet/pkg/model"
	"github.com/m-mizutani/cygnet/pkg/utils/logging"
)

// maxUploadSize bounds the multipart form held in memory per request
const maxUploadSize = 32 << 20

type uploadResponse struct {
	ProcessedDocuments []*model.Document `json:"processedDocuments"`
}

// handleUploadDocuments serves POST /v1/concepts/{conceptID}/documents.
// Document endpoints propagate failures as non-2xx, unlike the chat path.
func (s *Server) handleUploadDocuments(w http.ResponseWriter, r *http.Request) {
	conceptID := model.ConceptID(r.PathValue("conceptID"))

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no files provided")
		return
	}

	var processed []*model.Document
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to open uploaded file")
			return
		}

		doc, err := s.cfg.Documents.Upload(r.Context(), conceptID, header.Filename, file)
		_ = file.Close()
		if err != nil {
			logging.From(r.Context()).Error("document upload failed",
				"error", err, "filename", header.Filename)
			respondError(w, http.StatusInternalServerError, "failed to process document")
			return
		}

		processed = append(processed, doc)
	}

	respondJSON(w, http.StatusOK, &uploadResponse{ProcessedDocuments: processed})
}

type listResponse struct {
	Documents  []*model.Document `json:"documents"`
	TotalCount int               `json:"totalCount"`
}

// handleListDocuments serves GET /v1/concepts/{conceptID}/documents
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	conceptID := model.ConceptID(r.PathValue("conceptID"))

	documents, count, err := s.cfg.Documents.List(r.Context(), conceptID)
	if err != nil {
		logging.From(r.Context()).Error("document listing failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if documents == nil {
		documents = []*model.Document{}
	}

	respondJSON(w, http.StatusOK, &listResponse{Documents: documents, TotalCount: count})
}

// handleDeleteDocument serves DELETE /v1/documents/{documentID}
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := model.DocumentID(r.PathValue("documentID"))

	if err := s.cfg.Documents.Delete(r.Context(), documentID); err != nil {
		logging.From(r.Context()).Error("document deletion failed",
			"error", err, "document_id", documentID)
		respondError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
