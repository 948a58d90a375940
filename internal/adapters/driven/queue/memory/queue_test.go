package memory

import (
	"context"
	"testing"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

func testEvent(id, sourceID string) *domain.LifecycleEvent {
	return &domain.LifecycleEvent{
		ID:       id,
		Type:     domain.EventCreated,
		SourceID: sourceID,
		Kind:     domain.SourceKindTask,
	}
}

func TestQueue_PublishDequeueAck(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	if err := q.Publish(ctx, testEvent("evt-1", "task-1")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	event, err := q.Dequeue(ctx, 1)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if event == nil || event.ID != "evt-1" {
		t.Fatalf("unexpected event: %+v", event)
	}

	if err := q.Ack(ctx, event.ID); err != nil {
		t.Fatalf("ack: %v", err)
	}

	if next, _ := q.Dequeue(ctx, 0); next != nil {
		t.Errorf("expected empty queue, got %+v", next)
	}
}

func TestQueue_NackRedelivers(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	_ = q.Publish(ctx, testEvent("evt-1", "task-1"))
	event, _ := q.Dequeue(ctx, 1)

	if err := q.Nack(ctx, event.ID, "transient failure"); err != nil {
		t.Fatalf("nack: %v", err)
	}

	redelivered, _ := q.Dequeue(ctx, 1)
	if redelivered == nil {
		t.Fatal("expected redelivery")
	}
	if redelivered.Attempts != 1 || redelivered.LastError != "transient failure" {
		t.Errorf("expected failure recorded, got %+v", redelivered)
	}
}

func TestQueue_ExhaustedEventGoesDead(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	_ = q.Publish(ctx, testEvent("evt-1", "task-1"))

	for i := 0; i < domain.MaxEventAttempts; i++ {
		event, _ := q.Dequeue(ctx, 1)
		if event == nil {
			t.Fatalf("expected redelivery on attempt %d", i)
		}
		_ = q.Nack(ctx, event.ID, "still failing")
	}

	if event, _ := q.Dequeue(ctx, 0); event != nil {
		t.Errorf("expected event parked, got %+v", event)
	}
	if len(q.Dead()) != 1 {
		t.Errorf("expected 1 dead event, got %d", len(q.Dead()))
	}
}

func TestQueue_RejectsInvalidEvent(t *testing.T) {
	q := NewQueue()

	if err := q.Publish(context.Background(), &domain.LifecycleEvent{Type: "bogus"}); err == nil {
		t.Error("expected validation error")
	}
}
