package document

import (
	"context"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/m-mizutani/cygnet/pkg/model"
	"github.com/m-mizutani/cygnet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

var unsafeFilenamePtn = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeFilename strips path components and characters unsafe for an object key
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenamePtn.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = "document"
	}
	return name
}

func objectKey(conceptID model.ConceptID, documentID model.DocumentID, filename string) string {
	return objectPrefix + string(conceptID) + "/" + string(documentID) + "/" + filename
}

// Upload ingests one file: extracts its text, chunks and embeds it into the
// chunk repository, and stores the raw bytes in blob storage. Unlike the chat
// path, failures here propagate to the caller.
func (u *UseCase) Upload(ctx context.Context, conceptID model.ConceptID, filename string, r io.Reader) (*model.Document, error) {
	logger := logging.From(ctx)

	if conceptID == "" {
		return nil, goerr.New("concept ID is required")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read uploaded file")
	}

	documentID := model.NewDocumentID()
	filename = sanitizeFilename(filename)

	text, err := extractText(filename, data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract text", goerr.V("filename", filename))
	}

	if err := u.putBlob(ctx, objectKey(conceptID, documentID, filename), data); err != nil {
		return nil, err
	}

	chunks := splitText(text, u.chunkSize, u.chunkOverlap)

	records := make([]*model.Chunk, 0, len(chunks))
	for seq, content := range chunks {
		embedding, err := u.embed(ctx, content)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to embed chunk",
				goerr.V("document_id", documentID), goerr.V("seq", seq))
		}
		records = append(records, &model.Chunk{
			DocumentID: documentID,
			ConceptID:  conceptID,
			Filename:   filename,
			Seq:        seq,
			Content:    content,
			Embedding:  embedding,
		})
	}

	if len(records) > 0 {
		if err := u.repo.PutChunks(ctx, records); err != nil {
			return nil, goerr.Wrap(err, "failed to store chunks", goerr.V("document_id", documentID))
		}
	}

	logger.Info("document ingested",
		"document_id", documentID,
		"concept_id", conceptID,
		"filename", filename,
		"chunks", len(records),
		"bytes", len(data))

	return &model.Document{
		ID:         documentID,
		ConceptID:  conceptID,
		Filename:   filename,
		Size:       int64(len(data)),
		Status:     model.DocumentStatusProcessed,
		ChunkCount: len(records),
		UploadedAt: time.Now(),
	}, nil
}

func (u *UseCase) putBlob(ctx context.Context, key string, data []byte) error {
	writer, err := u.storage.Put(ctx, key)
	if err != nil {
		return goerr.Wrap(err, "failed to create storage writer", goerr.V("key", key))
	}

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return goerr.Wrap(err, "failed to write blob", goerr.V("key", key))
	}

	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to close storage writer", goerr.V("key", key))
	}
	return nil
}
