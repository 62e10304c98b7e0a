package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/cygnet/pkg/model"
)

// Repository defines the interface for document chunk persistence and retrieval
type Repository interface {
	// PutChunks saves document chunks with their embeddings
	PutChunks(ctx context.Context, chunks []*model.Chunk) error

	// SearchChunks performs vector search for chunks similar to the embedding,
	// optionally restricted to one concept (empty conceptID searches all)
	SearchChunks(ctx context.Context, conceptID model.ConceptID, embedding firestore.Vector32, limit int) ([]*model.Chunk, error)

	// DeleteChunksByDocument removes all chunks of a document and reports how many
	DeleteChunksByDocument(ctx context.Context, documentID model.DocumentID) (int, error)

	// CountChunks returns the number of chunks stored for a concept
	CountChunks(ctx context.Context, conceptID model.ConceptID) (int, error)
}
