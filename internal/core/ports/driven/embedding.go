package driven

import "context"

// EmbeddingService generates text embeddings.
//
// Implementations must be deterministic for identical input and model
// version, return domain.ErrEmptyText for blank input (blank documents are
// never indexed), and wrap backend failures in domain.ErrEmbeddingUnavailable
// so callers can distinguish retryable outages from caller errors.
type EmbeddingService interface {
	// Embed generates embeddings for multiple texts, index-aligned with input
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a search query
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimensions returns the embedding dimension size.
	// Constant for the lifetime of one vector collection.
	Dimensions() int

	// ModelVersion identifies the embedding model. Entries written under a
	// different version require a reindex, never a partial update.
	ModelVersion() string

	// HealthCheck verifies the embedding backend is available
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the embedding service
	Close() error
}
