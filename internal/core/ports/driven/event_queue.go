package driven

import (
	"context"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

// EventQueue carries lifecycle events from the task store to the indexing
// worker. Delivery is at-least-once: a consumer must Ack on success or Nack
// on failure, and unacknowledged deliveries are eventually reclaimed.
type EventQueue interface {
	// Publish appends an event to the queue
	Publish(ctx context.Context, event *domain.LifecycleEvent) error

	// Dequeue retrieves the next event, waiting up to timeout seconds.
	// Returns nil, nil when no event is available in time.
	Dequeue(ctx context.Context, timeout int) (*domain.LifecycleEvent, error)

	// Ack acknowledges successful processing of an event
	Ack(ctx context.Context, eventID string) error

	// Nack reports failed processing. The event is redelivered until its
	// attempt budget is exhausted, then parked.
	Nack(ctx context.Context, eventID string, reason string) error

	// Ping checks if the queue backend is healthy
	Ping(ctx context.Context) error

	// Close cleans up resources
	Close() error
}
