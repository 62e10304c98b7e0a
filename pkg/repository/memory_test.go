package repository_test

import (
	"context"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/cygnet/pkg/model"
	"github.com/m-mizutani/cygnet/pkg/repository"
	"github.com/m-mizutani/gt"
)

func testChunk(conceptID model.ConceptID, documentID model.DocumentID, seq int, content string, embedding firestore.Vector32) *model.Chunk {
	return &model.Chunk{
		DocumentID: documentID,
		ConceptID:  conceptID,
		Filename:   "test.txt",
		Seq:        seq,
		Content:    content,
		Embedding:  embedding,
	}
}

func TestMemorySearchChunks(t *testing.T) {
	repo := repository.NewMemory()
	ctx := context.Background()

	conceptID := model.NewConceptID()
	docID := model.NewDocumentID()

	gt.NoError(t, repo.PutChunks(ctx, []*model.Chunk{
		testChunk(conceptID, docID, 0, "about cats", firestore.Vector32{1, 0, 0}),
		testChunk(conceptID, docID, 1, "about dogs", firestore.Vector32{0, 1, 0}),
		testChunk(conceptID, docID, 2, "about birds", firestore.Vector32{0, 0, 1}),
	}))

	// query closest to the "dogs" vector
	chunks, err := repo.SearchChunks(ctx, conceptID, firestore.Vector32{0.1, 0.9, 0.1}, 2)
	gt.NoError(t, err)
	gt.A(t, chunks).Length(2)
	gt.V(t, chunks[0].Content).Equal("about dogs")
}

func TestMemorySearchFiltersByConcept(t *testing.T) {
	repo := repository.NewMemory()
	ctx := context.Background()

	conceptA := model.NewConceptID()
	conceptB := model.NewConceptID()

	gt.NoError(t, repo.PutChunks(ctx, []*model.Chunk{
		testChunk(conceptA, model.NewDocumentID(), 0, "concept A chunk", firestore.Vector32{1, 0, 0}),
		testChunk(conceptB, model.NewDocumentID(), 0, "concept B chunk", firestore.Vector32{1, 0, 0}),
	}))

	chunks, err := repo.SearchChunks(ctx, conceptA, firestore.Vector32{1, 0, 0}, 10)
	gt.NoError(t, err)
	gt.A(t, chunks).Length(1)
	gt.V(t, chunks[0].Content).Equal("concept A chunk")

	// empty concept ID searches everything
	all, err := repo.SearchChunks(ctx, "", firestore.Vector32{1, 0, 0}, 10)
	gt.NoError(t, err)
	gt.A(t, all).Length(2)
}

func TestMemoryDeleteChunksByDocument(t *testing.T) {
	repo := repository.NewMemory()
	ctx := context.Background()

	conceptID := model.NewConceptID()
	keepDoc := model.NewDocumentID()
	dropDoc := model.NewDocumentID()

	gt.NoError(t, repo.PutChunks(ctx, []*model.Chunk{
		testChunk(conceptID, keepDoc, 0, "keep", firestore.Vector32{1, 0, 0}),
		testChunk(conceptID, dropDoc, 0, "drop", firestore.Vector32{0, 1, 0}),
		testChunk(conceptID, dropDoc, 1, "drop too", firestore.Vector32{0, 0, 1}),
	}))

	deleted, err := repo.DeleteChunksByDocument(ctx, dropDoc)
	gt.NoError(t, err)
	gt.V(t, deleted).Equal(2)

	count, err := repo.CountChunks(ctx, conceptID)
	gt.NoError(t, err)
	gt.V(t, count).Equal(1)

	// deleting again removes nothing
	deleted, err = repo.DeleteChunksByDocument(ctx, dropDoc)
	gt.NoError(t, err)
	gt.V(t, deleted).Equal(0)
}

func TestMemoryCountChunks(t *testing.T) {
	repo := repository.NewMemory()
	ctx := context.Background()

	conceptA := model.NewConceptID()
	conceptB := model.NewConceptID()

	gt.NoError(t, repo.PutChunks(ctx, []*model.Chunk{
		testChunk(conceptA, model.NewDocumentID(), 0, "a0", firestore.Vector32{1, 0, 0}),
		testChunk(conceptA, model.NewDocumentID(), 0, "a1", firestore.Vector32{0, 1, 0}),
		testChunk(conceptB, model.NewDocumentID(), 0, "b0", firestore.Vector32{0, 0, 1}),
	}))

	count, err := repo.CountChunks(ctx, conceptA)
	gt.NoError(t, err)
	gt.V(t, count).Equal(2)

	total, err := repo.CountChunks(ctx, "")
	gt.NoError(t, err)
	gt.V(t, total).Equal(3)
}
