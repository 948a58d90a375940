package memindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven"
)

// Ensure Index implements VectorIndex
var _ driven.VectorIndex = (*Index)(nil)

// Index is an in-memory, brute-force cosine similarity index.
//
// All writes serialise on the write lock, so concurrent upserts of the same
// chunk id resolve last-write-wins and a batch is applied atomically: a query
// never observes half of a source's chunk set. Readers share the read lock
// and can run concurrently with each other.
//
// Brute force is deliberate: a personal task corpus is thousands of chunks,
// not millions, and exact scan beats approximate-index complexity at that
// scale.
type Index struct {
	mu      sync.RWMutex
	entries map[string]*domain.IndexEntry
}

// New creates a new in-memory vector index.
func New() *Index {
	return &Index{
		entries: make(map[string]*domain.IndexEntry),
	}
}

// Upsert inserts or replaces an entry by chunk_id.
func (idx *Index) Upsert(ctx context.Context, entry *domain.IndexEntry) error {
	return idx.UpsertBatch(ctx, []*domain.IndexEntry{entry})
}

// UpsertBatch upserts multiple entries under one write lock.
func (idx *Index) UpsertBatch(ctx context.Context, entries []*domain.IndexEntry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, entry := range entries {
		idx.entries[entry.ChunkID] = entry
	}
	return nil
}

// DeleteByChunkIDs removes entries by id. Missing ids are not an error.
func (idx *Index) DeleteByChunkIDs(ctx context.Context, chunkIDs []string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, id := range chunkIDs {
		delete(idx.entries, id)
	}
	return nil
}

// DeleteBySourceID removes every chunk belonging to a source document.
func (idx *Index) DeleteBySourceID(ctx context.Context, sourceID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for id, entry := range idx.entries {
		if entry.SourceID == sourceID {
			delete(idx.entries, id)
		}
	}
	return nil
}

// Query returns up to topK entries nearest to the vector, restricted to
// entries matching all filters.
func (idx *Index) Query(ctx context.Context, vector []float32, topK int, filters domain.Filters) ([]*domain.RetrievalResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var results []*domain.RetrievalResult
	for _, entry := range idx.entries {
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

	// Deterministic order: score desc, then chunk id for exact ties
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

// Count returns the number of entries in the index.
func (idx *Index) Count(ctx context.Context) (int64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return int64(len(idx.entries)), nil
}

// Ping always succeeds for the in-memory backend.
func (idx *Index) Ping(ctx context.Context) error {
	return nil
}

// Close releases resources.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = make(map[string]*domain.IndexEntry)
	return nil
}

// cosine computes cosine similarity between two vectors. Mismatched or zero
// vectors score 0 rather than erroring; they simply never rank.
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
