package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Chunk is a bounded slice of a SourceDocument's text - the unit that gets
// embedded and indexed. A chunk never spans two source documents.
type Chunk struct {
	ID        string `json:"id"`
	SourceID  string `json:"source_id"`
	Position  int    `json:"position"` // Chunk position within document
	Text      string `json:"text"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
}

// ChunkID derives the deterministic chunk identifier from the source id and
// the chunk position. Re-normalising unchanged text yields the same ids, which
// is what makes re-indexing idempotent.
func ChunkID(sourceID string, position int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", sourceID, position)))
	return hex.EncodeToString(sum[:16])
}

// IndexEntry is the unit stored in the vector collection: one embedded chunk
// plus the metadata needed to filter and to resolve results back to sources.
type IndexEntry struct {
	ChunkID      string     `json:"chunk_id"`
	SourceID     string     `json:"source_id"`
	Kind         SourceKind `json:"kind"`
	ParentTaskID string     `json:"parent_task_id,omitempty"`
	Text         string     `json:"text"`
	Embedding    []float32  `json:"embedding"`
	ModelVersion string     `json:"model_version"`
	Metadata     Metadata   `json:"metadata"`
}
