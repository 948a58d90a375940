package driving

import (
	"context"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

// IndexingService handles index lifecycle operations
type IndexingService interface {
	// HandleEvent processes one lifecycle event from the queue.
	// Idempotent: replaying an already-applied event is a no-op.
	HandleEvent(ctx context.Context, event *domain.LifecycleEvent) error

	// ReindexAll rebuilds every source from the store, e.g. after an
	// embedding model version change
	ReindexAll(ctx context.Context) (*domain.ReindexStats, error)

	// RetryFailed re-runs indexing for sources currently marked failed
	RetryFailed(ctx context.Context) (*domain.ReindexStats, error)

	// IndexStatus returns the per-source indexing state, or
	// domain.ErrNotFound if the source was never indexed
	IndexStatus(ctx context.Context, sourceID string) (*domain.IndexState, error)
}
