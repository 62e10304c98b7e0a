package document

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/cygnet/pkg/adapter"
	"github.com/m-mizutani/cygnet/pkg/model"
	"github.com/m-mizutani/cygnet/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultTimeout      = 60 * time.Second

	// objectPrefix is the blob key layout root: concepts/<conceptID>/<documentID>/<filename>
	objectPrefix = "concepts/"
)

// UseCase handles document ingestion: text extraction, chunking, embedding,
// and persistence of chunks (repository) and raw bytes (blob storage).
type UseCase struct {
	gemini  adapter.Gemini
	repo    repository.Repository
	storage adapter.Storage

	chunkSize    int
	chunkOverlap int
	timeout      time.Duration
}

type Option func(*UseCase)

func WithChunking(size, overlap int) Option {
	return func(u *UseCase) {
		if size > 0 && overlap >= 0 && overlap < size {
			u.chunkSize = size
			u.chunkOverlap = overlap
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(u *UseCase) {
		if d > 0 {
			u.timeout = d
		}
	}
}

func New(gemini adapter.Gemini, repo repository.Repository, storage adapter.Storage, opts ...Option) *UseCase {
	u := &UseCase{
		gemini:       gemini,
		repo:         repo,
		storage:      storage,
		chunkSize:    defaultChunkSize,
		chunkOverlap: defaultChunkOverlap,
		timeout:      defaultTimeout,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// embed computes a chunk embedding under the per-call deadline
func (u *UseCase) embed(ctx context.Context, text string) (firestore.Vector32, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	resp, err := u.gemini.Embedding(ctx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, goerr.Wrap(model.ErrDeadline, "embedding call exceeded deadline",
				goerr.V("timeout", u.timeout), goerr.V("cause", err))
		}
		return nil, err
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, goerr.New("embedding response is empty")
	}
	return firestore.Vector32(resp.Embeddings[0].Values), nil
}
