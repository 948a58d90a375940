package domain

import "time"

// Filters restricts a similarity query to entries whose metadata matches every
// set field. Zero-value fields are ignored.
type Filters struct {
	Status         Status         `json:"status,omitempty"`
	ExcludeStatus  Status         `json:"exclude_status,omitempty"`
	Priority       Priority       `json:"priority,omitempty"`
	Kind           SourceKind     `json:"kind,omitempty"`
	AttachmentType AttachmentType `json:"attachment_type,omitempty"`
	ParentTaskID   string         `json:"parent_task_id,omitempty"`
	DueBefore      *time.Time     `json:"due_before,omitempty"`
	DueAfter       *time.Time     `json:"due_after,omitempty"`
}

// Validate rejects filter values outside the closed vocabularies.
func (f Filters) Validate() error {
	if f.Status != "" && !ValidStatus(f.Status) {
		return ErrInvalidQuery
	}
	if f.ExcludeStatus != "" && !ValidStatus(f.ExcludeStatus) {
		return ErrInvalidQuery
	}
	if f.Priority != "" && !ValidPriority(f.Priority) {
		return ErrInvalidQuery
	}
	if f.Kind != "" && f.Kind != SourceKindTask && f.Kind != SourceKindAttachment {
		return ErrInvalidQuery
	}
	return nil
}

// Match reports whether the entry's metadata satisfies every set filter field.
func (f Filters) Match(e *IndexEntry) bool {
	if f.Status != "" && e.Metadata.Status != f.Status {
		return false
	}
	if f.ExcludeStatus != "" && e.Metadata.Status == f.ExcludeStatus {
		return false
	}
	if f.Priority != "" && e.Metadata.Priority != f.Priority {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.AttachmentType != "" && e.Metadata.AttachmentType != f.AttachmentType {
		return false
	}
	if f.ParentTaskID != "" && e.ParentTaskID != f.ParentTaskID {
		return false
	}
	if f.DueBefore != nil {
		if e.Metadata.ETA == nil || e.Metadata.ETA.After(*f.DueBefore) {
			return false
		}
	}
	if f.DueAfter != nil {
		if e.Metadata.ETA == nil || e.Metadata.ETA.Before(*f.DueAfter) {
			return false
		}
	}
	return true
}

// QueryOptions tunes a similarity query.
type QueryOptions struct {
	// TopK is the number of results to return. Defaults to DefaultTopK.
	TopK int `json:"top_k,omitempty"`

	// Filters restricts candidates by metadata before ranking
	Filters Filters `json:"filters,omitempty"`

	// RecencyWeight blends recency into the similarity score.
	// 0 means rank purely by similarity.
	RecencyWeight float64 `json:"recency_weight,omitempty"`

	// MinScore drops results scoring below the threshold
	MinScore float64 `json:"min_score,omitempty"`
}

// DefaultTopK is the result count when the caller does not set one.
const DefaultTopK = 10

// Normalized returns a copy with defaults applied.
func (o QueryOptions) Normalized() QueryOptions {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	return o
}

// RetrievalResult is one ranked hit from a similarity query. Ephemeral,
// produced per query and never persisted.
type RetrievalResult struct {
	ChunkID      string     `json:"chunk_id"`
	SourceID     string     `json:"source_id"`
	Kind         SourceKind `json:"kind"`
	ParentTaskID string     `json:"parent_task_id,omitempty"`
	Text         string     `json:"text"`
	Score        float64    `json:"score"`
	Metadata     Metadata   `json:"metadata"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
