package normalisers

import (
	"sync"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry implements NormaliserRegistry keyed by source kind.
type Registry struct {
	mu          sync.RWMutex
	normalisers map[domain.SourceKind]driven.Normaliser
}

// NewRegistry creates a new normaliser registry.
func NewRegistry() *Registry {
	return &Registry{
		normalisers: make(map[domain.SourceKind]driven.Normaliser),
	}
}

// Register registers a normaliser for a source kind, replacing any previous
// registration for the same kind.
func (r *Registry) Register(kind domain.SourceKind, normaliser driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.normalisers[kind] = normaliser
}

// Get retrieves the normaliser for a source kind.
// Returns nil if no normaliser is registered for the kind.
func (r *Registry) Get(kind domain.SourceKind) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.normalisers[kind]
}

// Kinds returns all registered source kinds.
func (r *Registry) Kinds() []domain.SourceKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]domain.SourceKind, 0, len(r.normalisers))
	for kind := range r.normalisers {
		kinds = append(kinds, kind)
	}
	return kinds
}

// DefaultRegistry creates a registry with the built-in normalisers
// pre-registered.
func DefaultRegistry(config ChunkConfig) *Registry {
	r := NewRegistry()
	r.Register(domain.SourceKindTask, NewTaskNormaliser(config))
	r.Register(domain.SourceKindAttachment, NewAttachmentNormaliser(config))
	return r
}
