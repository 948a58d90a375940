package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

// MockSourceStore is a mock implementation of SourceStore for testing
type MockSourceStore struct {
	mu   sync.RWMutex
	docs map[string]*domain.SourceDocument
}

// NewMockSourceStore creates a new MockSourceStore
func NewMockSourceStore() *MockSourceStore {
	return &MockSourceStore{
		docs: make(map[string]*domain.SourceDocument),
	}
}

func (m *MockSourceStore) Get(ctx context.Context, sourceID string) (*domain.SourceDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[sourceID]
	if !ok {
		return nil, domain.ErrSourceNotFound
	}
	return doc, nil
}

func (m *MockSourceStore) ListIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Save creates or replaces a snapshot
func (m *MockSourceStore) Save(ctx context.Context, doc *domain.SourceDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.SourceID] = doc
	return nil
}

// Delete removes a snapshot. Missing is not an error.
func (m *MockSourceStore) Delete(ctx context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, sourceID)
	return nil
}

// Helper methods for testing

func (m *MockSourceStore) Put(doc *domain.SourceDocument) {
	_ = m.Save(context.Background(), doc)
}

func (m *MockSourceStore) Remove(sourceID string) {
	_ = m.Delete(context.Background(), sourceID)
}
