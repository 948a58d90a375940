package domain

import "time"

// SourceKind identifies what kind of record a SourceDocument was derived from.
type SourceKind string

const (
	SourceKindTask       SourceKind = "task"
	SourceKindAttachment SourceKind = "attachment"
)

// Status is the task status vocabulary. The schema is closed on purpose so
// filter matching is statically checkable.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Priority is the task priority vocabulary.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// AttachmentType identifies where cached attachment content came from.
type AttachmentType string

const (
	AttachmentTypeEmail    AttachmentType = "email"
	AttachmentTypeGitHub   AttachmentType = "github"
	AttachmentTypeDocument AttachmentType = "document"
)

// Metadata is the searchable metadata copied from the source record at
// normalisation time. It travels with every index entry so queries can filter
// without touching the source store.
type Metadata struct {
	Status         Status         `json:"status,omitempty"`
	Priority       Priority       `json:"priority,omitempty"`
	ETA            *time.Time     `json:"eta,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	AttachmentType AttachmentType `json:"attachment_type,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// SourceDocument is a read-only snapshot of a task or cached attachment as
// handed over by the external task store. The retrieval engine never mutates
// it and must tolerate it being stale.
type SourceDocument struct {
	SourceID     string     `json:"source_id"`
	Kind         SourceKind `json:"kind"`
	ParentTaskID string     `json:"parent_task_id,omitempty"` // set for attachments
	Title        string     `json:"title"`
	Text         string     `json:"text"`
	Metadata     Metadata   `json:"metadata"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ValidStatus reports whether s is part of the closed status vocabulary.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ValidPriority reports whether p is part of the closed priority vocabulary.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}
