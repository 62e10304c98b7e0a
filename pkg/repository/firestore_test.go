package repository_test

import (
	"context"
	"math/rand"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/cygnet/pkg/model"
	"github.com/m-mizutani/cygnet/pkg/repository"
	"github.com/m-mizutani/gt"
)

func setupFirestore(t *testing.T) *repository.Firestore {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	repo, err := repository.New(context.Background(), projectID, databaseID)
	gt.NoError(t, err)

	return repo
}

func randomEmbedding(dims int) firestore.Vector32 {
	embedding := make(firestore.Vector32, dims)
	for i := range embedding {
		embedding[i] = rand.Float32()
	}
	return embedding
}

func TestFirestorePutAndSearchChunks(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	conceptID := model.NewConceptID()
	docID := model.NewDocumentID()

	chunks := []*model.Chunk{
		{
			DocumentID: docID,
			ConceptID:  conceptID,
			Filename:   "venue.txt",
			Seq:        0,
			Content:    "The venue holds up to 500 attendees.",
			Embedding:  randomEmbedding(768),
		},
		{
			DocumentID: docID,
			ConceptID:  conceptID,
			Filename:   "venue.txt",
			Seq:        1,
			Content:    "Catering is available for full-day events.",
			Embedding:  randomEmbedding(768),
		},
	}

	gt.NoError(t, repo.PutChunks(ctx, chunks))

	found, err := repo.SearchChunks(ctx, conceptID, chunks[0].Embedding, 5)
	gt.NoError(t, err)
	gt.A(t, found).Longer(0)
	gt.V(t, found[0].ConceptID).Equal(conceptID)
}

func TestFirestoreCountAndDeleteChunks(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	conceptID := model.NewConceptID()
	docID := model.NewDocumentID()

	var chunks []*model.Chunk
	for i := 0; i < 3; i++ {
		chunks = append(chunks, &model.Chunk{
			DocumentID: docID,
			ConceptID:  conceptID,
			Filename:   "agenda.txt",
			Seq:        i,
			Content:    "chunk content",
			Embedding:  randomEmbedding(768),
		})
	}
	gt.NoError(t, repo.PutChunks(ctx, chunks))

	count, err := repo.CountChunks(ctx, conceptID)
	gt.NoError(t, err)
	gt.V(t, count).Equal(3)

	deleted, err := repo.DeleteChunksByDocument(ctx, docID)
	gt.NoError(t, err)
	gt.V(t, deleted).Equal(3)

	count, err = repo.CountChunks(ctx, conceptID)
	gt.NoError(t, err)
	gt.V(t, count).Equal(0)
}
