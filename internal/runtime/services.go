package runtime

import (
	"context"
	"sync"

	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven"
)

// Services holds references to dynamically configurable services.
// The embedding service can be swapped at runtime (e.g. switching from the
// local model to a hosted one), which is why consumers fetch it per call
// instead of holding a reference.
// Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Dynamic service (can be nil when no embedding backend is configured)
	embeddingService driven.EmbeddingService
}

// NewServices creates a new Services registry
func NewServices() *Services {
	return &Services{}
}

// EmbeddingService returns the current embedding service (may be nil)
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingService
}

// SetEmbeddingService updates the embedding service.
// Closes the old service if present.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
	}
	s.embeddingService = svc
}

// ValidateAndSetEmbedding validates connectivity before setting the
// embedding service. A swap to a different model version requires a reindex
// before queries make sense again; that is the caller's responsibility.
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}

	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetEmbeddingService(svc)
	return nil
}

// Close shuts down all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
		s.embeddingService = nil
	}
	return nil
}
