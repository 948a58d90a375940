package driving

import (
	"context"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

// RetrievalService handles semantic retrieval and context assembly
type RetrievalService interface {
	// Search embeds the query and returns the top-k filtered matches.
	// Returns domain.ErrInvalidQuery for a blank query and
	// domain.ErrEmbeddingUnavailable when the embedding backend is down.
	Search(ctx context.Context, query string, opts domain.QueryOptions) ([]*domain.RetrievalResult, error)

	// Assemble packs retrieval results into a budget-bounded context block
	Assemble(results []*domain.RetrievalResult, budget domain.ContextBudget) *domain.AssembledContext

	// RetrieveContext runs Search then Assemble in one call
	RetrieveContext(ctx context.Context, query string, opts domain.QueryOptions, budget domain.ContextBudget) (*domain.AssembledContext, error)
}
