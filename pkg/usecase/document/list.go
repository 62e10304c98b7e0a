package document

import (
	"context"
	"sort"
	"strings"

	"github.com/m-mizutani/cygnet/pkg/model"
	"github.com/m-mizutani/cygnet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// parseObjectKey splits concepts/<conceptID>/<documentID>/<filename> into its
// parts; ok is false for keys outside that layout
func parseObjectKey(key string) (conceptID model.ConceptID, documentID model.DocumentID, filename string, ok bool) {
	if !strings.HasPrefix(key, objectPrefix) {
		return "", "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(key, objectPrefix), "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return model.ConceptID(parts[0]), model.DocumentID(parts[1]), parts[2], true
}

// List returns the documents stored for a concept, grouped from the blob
// listing, together with the concept's chunk count.
func (u *UseCase) List(ctx context.Context, conceptID model.ConceptID) ([]*model.Document, int, error) {
	if conceptID == "" {
		return nil, 0, goerr.New("concept ID is required")
	}

	objects, err := u.storage.List(ctx, objectPrefix+string(conceptID)+"/")
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to list documents", goerr.V("concept_id", conceptID))
	}

	byID := make(map[model.DocumentID]*model.Document)
	for _, obj := range objects {
		_, documentID, filename, ok := parseObjectKey(obj.Key)
		if !ok {
			continue
		}
		if _, exists := byID[documentID]; exists {
			continue
		}
		byID[documentID] = &model.Document{
			ID:         documentID,
			ConceptID:  conceptID,
			Filename:   filename,
			Size:       obj.Size,
			Status:     model.DocumentStatusProcessed,
			UploadedAt: obj.Updated,
		}
	}

	documents := make([]*model.Document, 0, len(byID))
	for _, doc := range byID {
		documents = append(documents, doc)
	}
	sort.Slice(documents, func(i, j int) bool {
		return documents[i].UploadedAt.After(documents[j].UploadedAt)
	})

	count, err := u.repo.CountChunks(ctx, conceptID)
	if err != nil {
		logging.From(ctx).Warn("failed to count chunks, falling back to document count",
			"error", err, "concept_id", conceptID)
		count = len(documents)
	}
	if count == 0 && len(documents) > 0 {
		count = len(documents)
	}

	return documents, count, nil
}

// Delete removes a document's chunks from the repository and its blobs from
// storage. The concept is unknown at this point, so the blob scan covers the
// whole prefix.
func (u *UseCase) Delete(ctx context.Context, documentID model.DocumentID) error {
	logger := logging.From(ctx)

	if documentID == "" {
		return goerr.New("document ID is required")
	}

	deleted, err := u.repo.DeleteChunksByDocument(ctx, documentID)
	if err != nil {
		return goerr.Wrap(err, "failed to delete chunks", goerr.V("document_id", documentID))
	}

	objects, err := u.storage.List(ctx, objectPrefix)
	if err != nil {
		return goerr.Wrap(err, "failed to list objects for deletion", goerr.V("document_id", documentID))
	}

	removed := 0
	for _, obj := range objects {
		_, objDocumentID, _, ok := parseObjectKey(obj.Key)
		if !ok || objDocumentID != documentID {
			continue
		}
		if err := u.storage.Delete(ctx, obj.Key); err != nil {
			return goerr.Wrap(err, "failed to delete object", goerr.V("key", obj.Key))
		}
		removed++
	}

	logger.Info("document deleted",
		"document_id", documentID,
		"chunks", deleted,
		"objects", removed)

	return nil
}
