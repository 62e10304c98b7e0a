package model

import (
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
)

type DocumentID string

// NewDocumentID generates a new unique DocumentID
func NewDocumentID() DocumentID {
	return DocumentID(uuid.New().String())
}

type DocumentStatus string

const (
	DocumentStatusProcessed DocumentStatus = "PROCESSED"
	DocumentStatusFailed    DocumentStatus = "FAILED"
)

// Document describes an ingested file: the raw bytes live in blob storage,
// the chunked text in the chunk repository.
type Document struct {
	ID         DocumentID     `json:"id"`
	ConceptID  ConceptID      `json:"conceptId"`
	Filename   string         `json:"filename"`
	Size       int64          `json:"size"`
	Status     DocumentStatus `json:"status"`
	ChunkCount int            `json:"chunkCount"`
	UploadedAt time.Time      `json:"uploadedAt"`
}

// Chunk is a bounded-length substring of ingested document text stored as a
// retrievable unit with its embedding vector.
type Chunk struct {
	DocumentID DocumentID         `firestore:"document_id"`
	ConceptID  ConceptID          `firestore:"concept_id"`
	Filename   string             `firestore:"filename"`
	Seq        int                `firestore:"seq"`
	Content    string             `firestore:"content"`
	Embedding  firestore.Vector32 `firestore:"embedding"`
}
