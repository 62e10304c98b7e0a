package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/m-mizutani/cygnet/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const chunkCollection = "chunks"

// Firestore implements Repository using Firestore vector search
type Firestore struct {
	client *firestore.Client
}

// New creates a new Firestore repository
func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}

	return &Firestore{client: client}, nil
}

// Close releases the underlying client
func (r *Firestore) Close() error {
	return r.client.Close()
}

func chunkDocID(c *model.Chunk) string {
	return fmt.Sprintf("%s_%06d", c.DocumentID, c.Seq)
}

func (r *Firestore) PutChunks(ctx context.Context, chunks []*model.Chunk) error {
	bw := r.client.BulkWriter(ctx)

	for _, chunk := range chunks {
		ref := r.client.Collection(chunkCollection).Doc(chunkDocID(chunk))
		if _, err := bw.Set(ref, chunk); err != nil {
			return goerr.Wrap(err, "failed to enqueue chunk write",
				goerr.V("document_id", chunk.DocumentID), goerr.V("seq", chunk.Seq))
		}
	}

	bw.End()
	return nil
}

func (r *Firestore) SearchChunks(ctx context.Context, conceptID model.ConceptID, embedding firestore.Vector32, limit int) ([]*model.Chunk, error) {
	query := r.client.Collection(chunkCollection).Query
	if conceptID != "" {
		query = query.Where("concept_id", "==", string(conceptID))
	}

	vq := query.FindNearest("embedding", embedding, limit, firestore.DistanceMeasureCosine, nil)

	iter := vq.Documents(ctx)
	defer iter.Stop()

	var chunks []*model.Chunk
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			// A missing vector index surfaces as FailedPrecondition; make that
			// actionable instead of opaque
			if status.Code(err) == codes.FailedPrecondition {
				return nil, goerr.Wrap(err, "vector index for chunks is not ready",
					goerr.V("collection", chunkCollection))
			}
			return nil, goerr.Wrap(err, "failed to search chunks")
		}

		var chunk model.Chunk
		if err := doc.DataTo(&chunk); err != nil {
			return nil, goerr.Wrap(err, "failed to decode chunk", goerr.V("doc", doc.Ref.ID))
		}
		chunks = append(chunks, &chunk)
	}

	return chunks, nil
}

func (r *Firestore) DeleteChunksByDocument(ctx context.Context, documentID model.DocumentID) (int, error) {
	iter := r.client.Collection(chunkCollection).
		Where("document_id", "==", string(documentID)).
		Documents(ctx)
	defer iter.Stop()

	bw := r.client.BulkWriter(ctx)
	deleted := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return deleted, goerr.Wrap(err, "failed to list chunks for deletion",
				goerr.V("document_id", documentID))
		}

		if _, err := bw.Delete(doc.Ref); err != nil {
			return deleted, goerr.Wrap(err, "failed to enqueue chunk deletion",
				goerr.V("doc", doc.Ref.ID))
		}
		deleted++
	}

	bw.End()
	return deleted, nil
}

func (r *Firestore) CountChunks(ctx context.Context, conceptID model.ConceptID) (int, error) {
	query := r.client.Collection(chunkCollection).Query
	if conceptID != "" {
		query = query.Where("concept_id", "==", string(conceptID))
	}

	result, err := query.NewAggregationQuery().WithCount("count").Get(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count chunks", goerr.V("concept_id", conceptID))
	}

	value, ok := result["count"].(*firestorepb.Value)
	if !ok {
		return 0, goerr.New("count aggregation missing from result")
	}

	return int(value.GetIntegerValue()), nil
}
