package domain

import "time"

// IndexStatus tracks per-document indexing progress.
type IndexStatus string

const (
	IndexStatusPending IndexStatus = "pending"
	IndexStatusIndexed IndexStatus = "indexed"
	IndexStatusFailed  IndexStatus = "failed"
)

// IndexState is the side table row for one source: which chunk ids the index
// currently holds for it, when it was last indexed, and with which embedding
// model. The chunk id set is what update diffs are computed against.
type IndexState struct {
	SourceID      string      `json:"source_id"`
	ChunkIDs      []string    `json:"chunk_ids"`
	Status        IndexStatus `json:"status"`
	ModelVersion  string      `json:"model_version"`
	LastIndexedAt *time.Time  `json:"last_indexed_at,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// StaleChunkIDs returns the previously recorded chunk ids that are absent
// from next - the set the pipeline must delete after an update shrinks a
// document.
func (s *IndexState) StaleChunkIDs(next []string) []string {
	keep := make(map[string]bool, len(next))
	for _, id := range next {
		keep[id] = true
	}
	var stale []string
	for _, id := range s.ChunkIDs {
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	return stale
}

// ReindexStats summarises a batch (re)index run.
type ReindexStats struct {
	Sources       int `json:"sources"`
	Indexed       int `json:"indexed"`
	Skipped       int `json:"skipped"`
	Failed        int `json:"failed"`
	ChunksWritten int `json:"chunks_written"`
}
