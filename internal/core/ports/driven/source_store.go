package driven

import (
	"context"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

// SourceStore is the read-only view over the external task store. The
// retrieval engine fetches snapshots through it; it never writes back.
type SourceStore interface {
	// Get returns the current snapshot for a source id.
	// Returns domain.ErrSourceNotFound if the record no longer exists,
	// which the pipeline treats as an implicit delete.
	Get(ctx context.Context, sourceID string) (*domain.SourceDocument, error)

	// ListIDs returns every indexable source id, used for backfill and
	// full reindex.
	ListIDs(ctx context.Context) ([]string, error)
}

// SourceWriter ingests snapshots into the cached source store. Used by the
// ingestion surface; the retrieval pipeline itself only reads.
type SourceWriter interface {
	// Save creates or replaces a snapshot
	Save(ctx context.Context, doc *domain.SourceDocument) error

	// Delete removes a snapshot. Missing is not an error.
	Delete(ctx context.Context, sourceID string) error
}

// IndexStateStore persists the side table mapping each source to its
// recorded chunk id set and indexing status. Update diffs in the pipeline
// are computed against this table.
type IndexStateStore interface {
	// Get returns the state for a source, or domain.ErrNotFound
	Get(ctx context.Context, sourceID string) (*domain.IndexState, error)

	// Save creates or replaces the state for a source
	Save(ctx context.Context, state *domain.IndexState) error

	// Delete removes the state for a source. Missing is not an error.
	Delete(ctx context.Context, sourceID string) error

	// ListByStatus returns the source ids currently in the given status,
	// used to retry failures without a full rescan.
	ListByStatus(ctx context.Context, status domain.IndexStatus) ([]string, error)
}
