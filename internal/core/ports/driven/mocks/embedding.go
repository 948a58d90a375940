package mocks

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

// MockEmbeddingService is a mock implementation of EmbeddingService for testing
type MockEmbeddingService struct {
	dimensions int
	model      string
	failNext   bool
	healthErr  error
	closed     bool
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{
		dimensions: 64,
		model:      "mock-embedding-v1",
	}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.failNext {
		m.failNext = false
		return nil, domain.ErrEmbeddingUnavailable
	}

	result := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, domain.ErrEmptyText
		}
		result[i] = m.generateEmbedding(text)
	}
	return result, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if m.failNext {
		m.failNext = false
		return nil, domain.ErrEmbeddingUnavailable
	}
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyText
	}
	return m.generateEmbedding(query), nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbeddingService) ModelVersion() string {
	return m.model
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	return m.healthErr
}

func (m *MockEmbeddingService) Close() error {
	m.closed = true
	return nil
}

// generateEmbedding hashes each token into a feature bucket so that texts
// sharing words end up with overlapping vectors, which makes similarity
// assertions in tests meaningful.
func (m *MockEmbeddingService) generateEmbedding(text string) []float32 {
	embedding := make([]float32, m.dimensions)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		embedding[h.Sum32()%uint32(m.dimensions)] += 1.0
	}

	var norm float64
	for _, v := range embedding {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1.0 / math.Sqrt(norm))
		for i := range embedding {
			embedding[i] *= scale
		}
	}
	return embedding
}

// Helper methods for testing

func (m *MockEmbeddingService) SetFailNext(fail bool) {
	m.failNext = fail
}

func (m *MockEmbeddingService) SetModelVersion(v string) {
	m.model = v
}

func (m *MockEmbeddingService) SetHealthErr(err error) {
	m.healthErr = err
}

func (m *MockEmbeddingService) Closed() bool {
	return m.closed
}
