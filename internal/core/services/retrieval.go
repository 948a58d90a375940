package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driving"
	"github.com/taskgenie-labs/recall-core/internal/runtime"
)

// overfetchFactor is how many extra candidates are pulled from the index
// before reranking, so that recency blending and score thresholds still leave
// topK results to return.
const overfetchFactor = 2

// Ensure retrievalService implements RetrievalService
var _ driving.RetrievalService = (*retrievalService)(nil)

// retrievalService implements the RetrievalService interface
type retrievalService struct {
	index    driven.VectorIndex
	services *runtime.Services // Dynamic embedding service
	logger   *slog.Logger
}

// NewRetrievalService creates a new RetrievalService.
// The embedding service is accessed dynamically via runtime.Services.
func NewRetrievalService(
	index driven.VectorIndex,
	services *runtime.Services,
	logger *slog.Logger,
) driving.RetrievalService {
	if logger == nil {
		logger = slog.Default()
	}
	return &retrievalService{
		index:    index,
		services: services,
		logger:   logger,
	}
}

// Search embeds the query and returns the top-k filtered, reranked matches.
func (s *retrievalService) Search(ctx context.Context, query string, opts domain.QueryOptions) ([]*domain.RetrievalResult, error) {
	start := time.Now()

	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("blank query: %w", domain.ErrInvalidQuery)
	}
	if err := opts.Filters.Validate(); err != nil {
		return nil, err
	}
	opts = opts.Normalized()

	// Embedding is required: there is no text-search fallback, a degraded
	// answer would be worse than a clear error here.
	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	vector, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.index.Query(ctx, vector, opts.TopK*overfetchFactor, opts.Filters)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	results = rerank(results, opts)

	s.logger.Debug("search complete",
		"results", len(results),
		"top_k", opts.TopK,
		"took", time.Since(start))

	return results, nil
}

// RetrieveContext runs Search then Assemble in one call.
func (s *retrievalService) RetrieveContext(ctx context.Context, query string, opts domain.QueryOptions, budget domain.ContextBudget) (*domain.AssembledContext, error) {
	results, err := s.Search(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	return s.Assemble(results, budget), nil
}

// rerank blends recency into similarity scores, applies the score floor and
// cuts the overfetched candidate list back to topK.
//
// Ordering is fully deterministic: ties on score break by recency, then
// source id, then chunk id, so the same index state always yields the same
// result order.
func rerank(results []*domain.RetrievalResult, opts domain.QueryOptions) []*domain.RetrievalResult {
	now := time.Now()

	if opts.RecencyWeight > 0 {
		for _, r := range results {
			r.Score *= 1 + opts.RecencyWeight*freshness(now, r.UpdatedAt)
		}
	}

	if opts.MinScore > 0 {
		kept := results[:0]
		for _, r := range results {
			if r.Score >= opts.MinScore {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		return a.ChunkID < b.ChunkID
	})

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results
}

// freshness maps document age to (0, 1]: 1 for just-updated, decaying towards
// 0 as the document ages.
func freshness(now, updatedAt time.Time) float64 {
	if updatedAt.IsZero() || updatedAt.After(now) {
		return 1
	}
	ageDays := now.Sub(updatedAt).Hours() / 24
	return 1 / (1 + ageDays)
}
