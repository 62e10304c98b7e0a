package adapter

import (
	"bytes"
	"context"
	"hash/fnv"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// MockGemini returns canned responses in order, cycling when exhausted. It
// backs the --mock serve mode so the service can run without a Vertex AI
// project, and doubles as the LLM stub in tests.
type MockGemini struct {
	mu        sync.Mutex
	responses []string
	calls     int

	// Err, if set, is returned by every GenerateContent call
	Err error
}

// NewMockGemini creates a mock LLM. With no responses given, a single
// placeholder response is used.
func NewMockGemini(responses ...string) *MockGemini {
	if len(responses) == 0 {
		responses = []string{"This is a placeholder response from the mock model."}
	}
	return &MockGemini{responses: responses}
}

func (m *MockGemini) ModelName() string {
	return "mock"
}

// Calls returns how many times GenerateContent has been invoked
func (m *MockGemini) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	text := m.responses[m.calls%len(m.responses)]
	m.calls++

	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(text, genai.RoleModel)},
		},
	}, nil
}

// Embedding returns a deterministic vector derived from the input text so
// that identical texts always land on identical vectors.
func (m *MockGemini) Embedding(ctx context.Context, text string) (*genai.EmbedContentResponse, error) {
	values := make([]float32, 8)
	for i, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		values[(i+int(h.Sum32()))%len(values)] += float32(h.Sum32()%997) / 997.0
	}

	return &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{
			{Values: values},
		},
	}, nil
}

// MemoryStorage is an in-memory Storage for --mock mode and tests
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

type memoryWriter struct {
	buf     bytes.Buffer
	store   *MemoryStorage
	key     string
	closed  bool
	written bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	w.written = true
	return w.buf.Write(p)
}

func (w *memoryWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.data[w.key] = w.buf.Bytes()
	return nil
}

func (s *MemoryStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	return &memoryWriter{store: s, key: key}, nil
}

func (s *MemoryStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[key]
	if !ok {
		return nil, goerr.New("object not found", goerr.V("key", key))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStorage) List(ctx context.Context, prefix string) ([]*Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var objects []*Object
	for key, data := range s.data {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, &Object{
				Key:     key,
				Size:    int64(len(data)),
				Updated: time.Now(),
			})
		}
	}
	return objects, nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return goerr.New("object not found", goerr.V("key", key))
	}
	delete(s.data, key)
	return nil
}
