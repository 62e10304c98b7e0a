package repository

import (
	"context"
	"math"
	"sort"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/cygnet/pkg/model"
)

// Memory implements Repository in process memory. It backs the --mock serve
// mode and tests; ranking uses cosine distance like the Firestore search.
type Memory struct {
	mu     sync.Mutex
	chunks []*model.Chunk
}

func NewMemory() *Memory {
	return &Memory{}
}

func (r *Memory) PutChunks(ctx context.Context, chunks []*model.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, chunks...)
	return nil
}

func cosineDistance(a, b firestore.Vector32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2.0
	}
	return 1.0 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

func (r *Memory) SearchChunks(ctx context.Context, conceptID model.ConceptID, embedding firestore.Vector32, limit int) ([]*model.Chunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*model.Chunk
	for _, chunk := range r.chunks {
		if conceptID != "" && chunk.ConceptID != conceptID {
			continue
		}
		matched = append(matched, chunk)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return cosineDistance(matched[i].Embedding, embedding) < cosineDistance(matched[j].Embedding, embedding)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *Memory) DeleteChunksByDocument(ctx context.Context, documentID model.DocumentID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.chunks[:0]
	deleted := 0
	for _, chunk := range r.chunks {
		if chunk.DocumentID == documentID {
			deleted++
			continue
		}
		kept = append(kept, chunk)
	}
	r.chunks = kept
	return deleted, nil
}

func (r *Memory) CountChunks(ctx context.Context, conceptID model.ConceptID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, chunk := range r.chunks {
		if conceptID == "" || chunk.ConceptID == conceptID {
			count++
		}
	}
	return count, nil
}
