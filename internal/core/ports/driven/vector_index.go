package driven

import (
	"context"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

// VectorIndex is the persistent vector collection, keyed by chunk_id.
//
// It is a dumb, consistent key/vector store: it guarantees last-write-wins
// per chunk_id (via an internal write sequence) and never exposes a
// half-written entry to readers, but it does not know whether an entry is
// stale relative to the source of truth - that is the indexing pipeline's
// job.
type VectorIndex interface {
	// Upsert inserts or replaces an entry by chunk_id.
	// Safe for concurrent use; same-id races resolve last-write-wins.
	Upsert(ctx context.Context, entry *domain.IndexEntry) error

	// UpsertBatch upserts multiple entries
	UpsertBatch(ctx context.Context, entries []*domain.IndexEntry) error

	// DeleteByChunkIDs removes entries by id. Missing ids are not an error.
	DeleteByChunkIDs(ctx context.Context, chunkIDs []string) error

	// DeleteBySourceID removes every chunk belonging to a source document.
	// Primary consistency guard against orphaned vectors on deletion.
	DeleteBySourceID(ctx context.Context, sourceID string) error

	// Query returns up to topK entries nearest to the vector, restricted to
	// entries matching all filters. Returns fewer than topK when the
	// filtered population is smaller; an empty result is not an error.
	Query(ctx context.Context, vector []float32, topK int, filters domain.Filters) ([]*domain.RetrievalResult, error)

	// Count returns the number of entries in the collection
	Count(ctx context.Context) (int64, error)

	// Ping checks the index backend is healthy
	Ping(ctx context.Context) error

	// Close releases resources
	Close() error
}
