package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

// MockIndexStateStore is a mock implementation of IndexStateStore for testing
type MockIndexStateStore struct {
	mu     sync.RWMutex
	states map[string]*domain.IndexState
}

// NewMockIndexStateStore creates a new MockIndexStateStore
func NewMockIndexStateStore() *MockIndexStateStore {
	return &MockIndexStateStore{
		states: make(map[string]*domain.IndexState),
	}
}

func (m *MockIndexStateStore) Get(ctx context.Context, sourceID string) (*domain.IndexState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[sourceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *state
	copied.ChunkIDs = append([]string(nil), state.ChunkIDs...)
	return &copied, nil
}

func (m *MockIndexStateStore) Save(ctx context.Context, state *domain.IndexState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *state
	copied.ChunkIDs = append([]string(nil), state.ChunkIDs...)
	m.states[state.SourceID] = &copied
	return nil
}

func (m *MockIndexStateStore) Delete(ctx context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, sourceID)
	return nil
}

func (m *MockIndexStateStore) ListByStatus(ctx context.Context, status domain.IndexStatus) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, state := range m.states {
		if state.Status == status {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
