// Package memstore provides in-memory snapshot and index-state stores for
// running without PostgreSQL. State is lost on restart; the index is
// rebuilt from lifecycle events or a reindex.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.SourceStore     = (*SourceStore)(nil)
	_ driven.SourceWriter    = (*SourceStore)(nil)
	_ driven.IndexStateStore = (*IndexStateStore)(nil)
)

// SourceStore holds cached snapshots in memory.
type SourceStore struct {
	mu   sync.RWMutex
	docs map[string]*domain.SourceDocument
}

// NewSourceStore creates a new in-memory SourceStore.
func NewSourceStore() *SourceStore {
	return &SourceStore{docs: make(map[string]*domain.SourceDocument)}
}

func (s *SourceStore) Get(ctx context.Context, sourceID string) (*domain.SourceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[sourceID]
	if !ok {
		return nil, domain.ErrSourceNotFound
	}
	copied := *doc
	return &copied, nil
}

func (s *SourceStore) ListIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *SourceStore) Save(ctx context.Context, doc *domain.SourceDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *doc
	s.docs[doc.SourceID] = &copied
	return nil
}

func (s *SourceStore) Delete(ctx context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, sourceID)
	return nil
}

// IndexStateStore holds the side table in memory.
type IndexStateStore struct {
	mu     sync.RWMutex
	states map[string]*domain.IndexState
}

// NewIndexStateStore creates a new in-memory IndexStateStore.
func NewIndexStateStore() *IndexStateStore {
	return &IndexStateStore{states: make(map[string]*domain.IndexState)}
}

func (s *IndexStateStore) Get(ctx context.Context, sourceID string) (*domain.IndexState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[sourceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *state
	copied.ChunkIDs = append([]string(nil), state.ChunkIDs...)
	return &copied, nil
}

func (s *IndexStateStore) Save(ctx context.Context, state *domain.IndexState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *state
	copied.ChunkIDs = append([]string(nil), state.ChunkIDs...)
	s.states[state.SourceID] = &copied
	return nil
}

func (s *IndexStateStore) Delete(ctx context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sourceID)
	return nil
}

func (s *IndexStateStore) ListByStatus(ctx context.Context, status domain.IndexStatus) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, state := range s.states {
		if state.Status == status {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
