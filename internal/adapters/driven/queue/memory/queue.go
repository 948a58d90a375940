// Package memory provides an in-process event queue for running without
// Redis. Delivery guarantees match the Redis queue within a single process:
// at-least-once, retry budget, dead parking. Events are lost on restart.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EventQueue = (*Queue)(nil)

// Queue is a mutex-guarded in-memory event queue.
type Queue struct {
	mu       sync.Mutex
	pending  []*domain.LifecycleEvent
	inflight map[string]*domain.LifecycleEvent
	dead     []*domain.LifecycleEvent
	notify   chan struct{}
}

// NewQueue creates a new in-memory event queue.
func NewQueue() *Queue {
	return &Queue{
		inflight: make(map[string]*domain.LifecycleEvent),
		notify:   make(chan struct{}, 1),
	}
}

// Publish appends an event to the queue.
func (q *Queue) Publish(ctx context.Context, event *domain.LifecycleEvent) error {
	if event == nil {
		return errors.New("event is required")
	}
	if err := event.Validate(); err != nil {
		return err
	}
	if event.ID == "" {
		event.ID = fmt.Sprintf("%s-%s-%d", event.Type, event.SourceID, time.Now().UnixNano())
	}
	if event.EnqueuedAt.IsZero() {
		event.EnqueuedAt = time.Now().UTC()
	}

	q.mu.Lock()
	q.pending = append(q.pending, event)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue retrieves the next event, waiting up to timeout seconds.
// Returns nil, nil when no event is available in time.
func (q *Queue) Dequeue(ctx context.Context, timeout int) (*domain.LifecycleEvent, error) {
	deadline := time.After(time.Duration(timeout) * time.Second)

	for {
		if event := q.pop(); event != nil {
			return event, nil
		}

		select {
		case <-ctx.Done():
			return nil, nil
		case <-deadline:
			return nil, nil
		case <-q.notify:
		}
	}
}

func (q *Queue) pop() *domain.LifecycleEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	event := q.pending[0]
	q.pending = q.pending[1:]
	q.inflight[event.ID] = event
	return event
}

// Ack acknowledges successful processing of an event.
func (q *Queue) Ack(ctx context.Context, eventID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, eventID)
	return nil
}

// Nack reports failed processing. The event is re-enqueued until its attempt
// budget is exhausted, then parked on the dead list.
func (q *Queue) Nack(ctx context.Context, eventID string, reason string) error {
	q.mu.Lock()
	event, ok := q.inflight[eventID]
	if !ok {
		q.mu.Unlock()
		return errors.New("event not found")
	}
	delete(q.inflight, eventID)

	event.Attempts++
	event.LastError = reason
	if event.CanRetry() {
		q.pending = append(q.pending, event)
	} else {
		q.dead = append(q.dead, event)
	}
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Dead returns the events that exhausted their retry budget.
func (q *Queue) Dead() []*domain.LifecycleEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*domain.LifecycleEvent(nil), q.dead...)
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return nil
}

// Close cleans up resources.
func (q *Queue) Close() error {
	return nil
}
