package driven

import "github.com/taskgenie-labs/recall-core/internal/core/domain"

// Normaliser converts a source document into its ordered chunk sequence.
//
// Determinism requirement: normalising the same document twice with unchanged
// text yields identical chunk ids, so re-indexing is idempotent.
type Normaliser interface {
	// Normalise returns the document's chunks in position order.
	// A blank document yields zero chunks.
	Normalise(doc *domain.SourceDocument) []domain.Chunk
}

// NormaliserRegistry resolves the normaliser for a source kind.
type NormaliserRegistry interface {
	// Get returns the normaliser for the kind, or nil if none is registered
	Get(kind domain.SourceKind) Normaliser
}
