package mocks

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

// MockVectorIndex is a mock implementation of VectorIndex for testing
type MockVectorIndex struct {
	mu       sync.RWMutex
	entries  map[string]*domain.IndexEntry
	bySource map[string]map[string]struct{}
	failNext error
}

// NewMockVectorIndex creates a new MockVectorIndex
func NewMockVectorIndex() *MockVectorIndex {
	return &MockVectorIndex{
		entries:  make(map[string]*domain.IndexEntry),
		bySource: make(map[string]map[string]struct{}),
	}
}

func (m *MockVectorIndex) Upsert(ctx context.Context, entry *domain.IndexEntry) error {
	return m.UpsertBatch(ctx, []*domain.IndexEntry{entry})
}

func (m *MockVectorIndex) UpsertBatch(ctx context.Context, entries []*domain.IndexEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	for _, entry := range entries {
		m.entries[entry.ChunkID] = entry
		if m.bySource[entry.SourceID] == nil {
			m.bySource[entry.SourceID] = make(map[string]struct{})
		}
		m.bySource[entry.SourceID][entry.ChunkID] = struct{}{}
	}
	return nil
}

func (m *MockVectorIndex) DeleteByChunkIDs(ctx context.Context, chunkIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	for _, id := range chunkIDs {
		if entry, ok := m.entries[id]; ok {
			delete(m.bySource[entry.SourceID], id)
			delete(m.entries, id)
		}
	}
	return nil
}

func (m *MockVectorIndex) DeleteBySourceID(ctx context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	for id := range m.bySource[sourceID] {
		delete(m.entries, id)
	}
	delete(m.bySource, sourceID)
	return nil
}

func (m *MockVectorIndex) Query(ctx context.Context, vector []float32, topK int, filters domain.Filters) ([]*domain.RetrievalResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []*domain.RetrievalResult
	for _, entry := range m.entries {
		if !filters.Match(entry) {
			continue
		}
		results = append(results, &domain.RetrievalResult{
			ChunkID:      entry.ChunkID,
			SourceID:     entry.SourceID,
			Kind:         entry.Kind,
			ParentTaskID: entry.ParentTaskID,
			Text:         entry.Text,
			Score:        cosine(vector, entry.Embedding),
			Metadata:     entry.Metadata,
			UpdatedAt:    entry.Metadata.UpdatedAt,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (m *MockVectorIndex) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.entries)), nil
}

func (m *MockVectorIndex) Ping(ctx context.Context) error {
	return nil
}

func (m *MockVectorIndex) Close() error {
	return nil
}

func (m *MockVectorIndex) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Helper methods for testing

func (m *MockVectorIndex) SetFailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MockVectorIndex) Get(chunkID string) *domain.IndexEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[chunkID]
}

func (m *MockVectorIndex) ChunkIDs(sourceID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.bySource[sourceID]))
	for id := range m.bySource[sourceID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
