package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driving"
	"github.com/taskgenie-labs/recall-core/internal/runtime"
)

// Ensure indexerService implements IndexingService
var _ driving.IndexingService = (*indexerService)(nil)

// embedTimeout bounds one batch-embed call against the backend. A timeout
// marks the source failed, which is retryable, not fatal.
const embedTimeout = 30 * time.Second

// indexerService implements the IndexingService interface.
//
// Consistency model: new chunk entries are staged into the index before stale
// ones are removed, so a query running concurrently with an update sees the
// old version, the new version, or briefly both, but never a gap. The side
// table recording each source's chunk set is what makes the stale-set diff
// possible.
type indexerService struct {
	sources  driven.SourceStore
	states   driven.IndexStateStore
	index    driven.VectorIndex
	registry driven.NormaliserRegistry
	services *runtime.Services // Dynamic embedding service
	logger   *slog.Logger

	reindexing atomic.Bool
}

// NewIndexingService creates a new IndexingService
func NewIndexingService(
	sources driven.SourceStore,
	states driven.IndexStateStore,
	index driven.VectorIndex,
	registry driven.NormaliserRegistry,
	services *runtime.Services,
	logger *slog.Logger,
) driving.IndexingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &indexerService{
		sources:  sources,
		states:   states,
		index:    index,
		registry: registry,
		services: services,
		logger:   logger,
	}
}

// HandleEvent processes one lifecycle event. Events carry only identity, not
// payload: the handler always re-fetches the current snapshot, so replaying a
// stale or duplicate event converges on the store's present state.
func (s *indexerService) HandleEvent(ctx context.Context, event *domain.LifecycleEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	s.logger.Debug("handling lifecycle event",
		"event_id", event.ID,
		"type", event.Type,
		"source_id", event.SourceID)

	switch event.Type {
	case domain.EventDeleted:
		return s.deleteSource(ctx, event.SourceID)
	case domain.EventCreated, domain.EventUpdated:
		return s.indexSource(ctx, event.SourceID)
	default:
		return fmt.Errorf("unknown event type %q: %w", event.Type, domain.ErrInvalidInput)
	}
}

// indexSource re-normalises, re-embeds and re-indexes one source from its
// current snapshot.
func (s *indexerService) indexSource(ctx context.Context, sourceID string) error {
	doc, err := s.sources.Get(ctx, sourceID)
	if errors.Is(err, domain.ErrSourceNotFound) {
		// The source vanished between event and processing; an implicit delete
		return s.deleteSource(ctx, sourceID)
	}
	if err != nil {
		return fmt.Errorf("fetch source %s: %w", sourceID, err)
	}

	normaliser := s.registry.Get(doc.Kind)
	if normaliser == nil {
		return fmt.Errorf("no normaliser for kind %q: %w", doc.Kind, domain.ErrInvalidInput)
	}

	chunks := normaliser.Normalise(doc)
	if len(chunks) == 0 {
		// Blank documents are never indexed. Remove whatever an earlier
		// non-blank version may have written.
		return s.deleteSource(ctx, sourceID)
	}

	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return s.markFailed(ctx, sourceID, domain.ErrEmbeddingUnavailable)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	embedCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	vectors, err := embedder.Embed(embedCtx, texts)
	cancel()
	if err != nil {
		return s.markFailed(ctx, sourceID, fmt.Errorf("embed source %s: %w", sourceID, err))
	}
	modelVersion := embedder.ModelVersion()

	entries := make([]*domain.IndexEntry, len(chunks))
	newIDs := make([]string, len(chunks))
	for i, chunk := range chunks {
		entries[i] = &domain.IndexEntry{
			ChunkID:      chunk.ID,
			SourceID:     doc.SourceID,
			Kind:         doc.Kind,
			ParentTaskID: doc.ParentTaskID,
			Text:         chunk.Text,
			Embedding:    vectors[i],
			ModelVersion: modelVersion,
			Metadata:     doc.Metadata,
		}
		newIDs[i] = chunk.ID
	}

	// Stage the new chunk set before deleting stale entries
	if err := s.index.UpsertBatch(ctx, entries); err != nil {
		return s.markFailed(ctx, sourceID, fmt.Errorf("upsert source %s: %w", sourceID, err))
	}

	prev, err := s.states.Get(ctx, sourceID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("read index state %s: %w", sourceID, err)
	}
	if prev != nil {
		if stale := prev.StaleChunkIDs(newIDs); len(stale) > 0 {
			if err := s.index.DeleteByChunkIDs(ctx, stale); err != nil {
				return s.markFailed(ctx, sourceID, fmt.Errorf("delete stale chunks %s: %w", sourceID, err))
			}
		}
	}

	now := time.Now().UTC()
	state := &domain.IndexState{
		SourceID:      sourceID,
		ChunkIDs:      newIDs,
		Status:        domain.IndexStatusIndexed,
		ModelVersion:  modelVersion,
		LastIndexedAt: &now,
	}
	if err := s.states.Save(ctx, state); err != nil {
		return fmt.Errorf("save index state %s: %w", sourceID, err)
	}

	s.logger.Info("source indexed",
		"source_id", sourceID,
		"chunks", len(newIDs),
		"model_version", modelVersion)
	return nil
}

// deleteSource removes every trace of a source from the index and side table.
func (s *indexerService) deleteSource(ctx context.Context, sourceID string) error {
	if err := s.index.DeleteBySourceID(ctx, sourceID); err != nil {
		return fmt.Errorf("delete source %s: %w", sourceID, err)
	}
	if err := s.states.Delete(ctx, sourceID); err != nil {
		return fmt.Errorf("delete index state %s: %w", sourceID, err)
	}

	s.logger.Info("source removed from index", "source_id", sourceID)
	return nil
}

// markFailed records the failure in the side table and returns the original
// error so the caller can retry. State persistence here is best-effort.
func (s *indexerService) markFailed(ctx context.Context, sourceID string, cause error) error {
	state := &domain.IndexState{
		SourceID: sourceID,
		Status:   domain.IndexStatusFailed,
		Error:    cause.Error(),
	}
	if prev, err := s.states.Get(ctx, sourceID); err == nil {
		// Keep the last good chunk set so stale entries stay deletable
		state.ChunkIDs = prev.ChunkIDs
		state.ModelVersion = prev.ModelVersion
		state.LastIndexedAt = prev.LastIndexedAt
	}
	if err := s.states.Save(ctx, state); err != nil {
		s.logger.Error("failed to record index failure", "source_id", sourceID, "error", err)
	}
	return cause
}

// ReindexAll rebuilds the index from the source store. Sources already
// indexed under the current model version are skipped, which makes an
// interrupted reindex resumable. Only one reindex runs at a time.
func (s *indexerService) ReindexAll(ctx context.Context) (*domain.ReindexStats, error) {
	if !s.reindexing.CompareAndSwap(false, true) {
		return nil, domain.ErrReindexInProgress
	}
	defer s.reindexing.Store(false)

	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	currentModel := embedder.ModelVersion()

	ids, err := s.sources.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	stats := &domain.ReindexStats{Sources: len(ids)}
	start := time.Now()

	for _, sourceID := range ids {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		if state, err := s.states.Get(ctx, sourceID); err == nil &&
			state.Status == domain.IndexStatusIndexed && state.ModelVersion == currentModel {
			stats.Skipped++
			continue
		}

		if err := s.indexSource(ctx, sourceID); err != nil {
			s.logger.Warn("reindex failed for source", "source_id", sourceID, "error", err)
			stats.Failed++
			continue
		}
		stats.Indexed++
		if state, err := s.states.Get(ctx, sourceID); err == nil {
			stats.ChunksWritten += len(state.ChunkIDs)
		}
	}

	s.logger.Info("reindex complete",
		"sources", stats.Sources,
		"indexed", stats.Indexed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"took", time.Since(start))
	return stats, nil
}

// RetryFailed re-runs indexing for sources currently marked failed.
func (s *indexerService) RetryFailed(ctx context.Context) (*domain.ReindexStats, error) {
	ids, err := s.states.ListByStatus(ctx, domain.IndexStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("list failed sources: %w", err)
	}

	stats := &domain.ReindexStats{Sources: len(ids)}
	for _, sourceID := range ids {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if err := s.indexSource(ctx, sourceID); err != nil {
			stats.Failed++
			continue
		}
		stats.Indexed++
	}
	return stats, nil
}

// IndexStatus returns the per-source indexing state.
func (s *indexerService) IndexStatus(ctx context.Context, sourceID string) (*domain.IndexState, error) {
	return s.states.Get(ctx, sourceID)
}
