package domain

import "time"

// EventType indicates what happened to a source document in the task store.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// LifecycleEvent is one create/update/delete notification from the external
// task store. Events are consumed by the indexing worker as a pull-based
// queue, which keeps ordering and retry semantics explicit.
type LifecycleEvent struct {
	ID           string     `json:"id"`
	Type         EventType  `json:"type"`
	SourceID     string     `json:"source_id"`
	Kind         SourceKind `json:"kind"`
	ParentTaskID string     `json:"parent_task_id,omitempty"`
	EnqueuedAt   time.Time  `json:"enqueued_at"`
	Attempts     int        `json:"attempts"`
	LastError    string     `json:"last_error,omitempty"`
}

// MaxEventAttempts caps redelivery of a failing event before it is parked.
const MaxEventAttempts = 5

// CanRetry reports whether the event may be redelivered after a failure.
func (e *LifecycleEvent) CanRetry() bool {
	return e.Attempts < MaxEventAttempts
}

// Validate checks the event is well formed before it enters the queue.
func (e *LifecycleEvent) Validate() error {
	if e.SourceID == "" {
		return ErrInvalidInput
	}
	switch e.Type {
	case EventCreated, EventUpdated, EventDeleted:
	default:
		return ErrInvalidInput
	}
	switch e.Kind {
	case SourceKindTask, SourceKindAttachment:
	default:
		return ErrInvalidInput
	}
	return nil
}
