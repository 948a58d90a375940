package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven"
)

const (
	// Stream names
	eventStream = "recall:events"
	eventGroup  = "recall:indexers"
	deadStream  = "recall:events:dead"

	// Key prefixes
	eventKeyPrefix = "recall:event:"

	// Default consumer name prefix
	consumerPrefix = "indexer-"

	// Claim timeout - how long before an event is considered abandoned
	claimTimeout = 5 * time.Minute

	// Event data TTL, long enough to outlive any retry cycle
	eventTTL = 24 * time.Hour
)

// Verify interface compliance
var _ driven.EventQueue = (*Queue)(nil)

// Queue implements EventQueue using Redis Streams.
// Consumer groups give at-least-once delivery: an event stays pending until
// acked, and events abandoned by a dead consumer are reclaimed after a
// timeout. Events that exhaust their retry budget are parked on a dead
// stream for inspection instead of being dropped.
type Queue struct {
	client       *redis.Client
	consumerName string
}

// NewQueue creates a new Redis-backed event queue.
// The consumerName should be unique per worker instance (e.g., hostname + PID).
func NewQueue(client *redis.Client, consumerName string) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerName == "" {
		consumerName = fmt.Sprintf("%s%d", consumerPrefix, time.Now().UnixNano())
	}

	q := &Queue{
		client:       client,
		consumerName: consumerName,
	}

	// Create consumer group if it doesn't exist
	ctx := context.Background()
	err := q.client.XGroupCreateMkStream(ctx, eventStream, eventGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return q, nil
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

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, eventKeyPrefix+event.ID, data, eventTTL)
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: eventStream,
		Values: map[string]interface{}{
			"event_id":  event.ID,
			"type":      string(event.Type),
			"source_id": event.SourceID,
		},
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Dequeue retrieves the next event, waiting up to timeout seconds.
// Returns nil, nil when no event is available in time.
func (q *Queue) Dequeue(ctx context.Context, timeout int) (*domain.LifecycleEvent, error) {
	// Try to claim abandoned events first
	event, err := q.claimAbandonedEvent(ctx)
	if err == nil && event != nil {
		return event, nil
	}

	blockDuration := time.Duration(timeout) * time.Second

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    eventGroup,
		Consumer: q.consumerName,
		Streams:  []string{eventStream, ">"},
		Count:    1,
		Block:    blockDuration,
	}).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // No events available
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	return q.loadMessage(ctx, streams[0].Messages[0])
}

// loadMessage resolves a stream message to its event payload and records the
// message id for later ack/nack. Malformed messages are acked and skipped.
func (q *Queue) loadMessage(ctx context.Context, msg redis.XMessage) (*domain.LifecycleEvent, error) {
	eventID, ok := msg.Values["event_id"].(string)
	if !ok {
		q.client.XAck(ctx, eventStream, eventGroup, msg.ID)
		q.client.XDel(ctx, eventStream, msg.ID)
		return nil, nil
	}

	event, err := q.getEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event data: %w", err)
	}
	if event == nil {
		// Event data expired, nothing to process
		q.client.XAck(ctx, eventStream, eventGroup, msg.ID)
		q.client.XDel(ctx, eventStream, msg.ID)
		return nil, nil
	}

	q.client.Set(ctx, eventKeyPrefix+eventID+":msg", msg.ID, eventTTL)
	return event, nil
}

// Ack acknowledges successful processing of an event.
func (q *Queue) Ack(ctx context.Context, eventID string) error {
	msgID, err := q.client.Get(ctx, eventKeyPrefix+eventID+":msg").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get message ID: %w", err)
	}

	pipe := q.client.Pipeline()
	if msgID != "" {
		pipe.XAck(ctx, eventStream, eventGroup, msgID)
		pipe.XDel(ctx, eventStream, msgID)
	}
	pipe.Del(ctx, eventKeyPrefix+eventID)
	pipe.Del(ctx, eventKeyPrefix+eventID+":msg")

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to ack event: %w", err)
	}
	return nil
}

// Nack reports failed processing. The event is re-enqueued until its attempt
// budget is exhausted, then parked on the dead stream.
func (q *Queue) Nack(ctx context.Context, eventID string, reason string) error {
	event, err := q.getEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return errors.New("event not found")
	}

	msgID, _ := q.client.Get(ctx, eventKeyPrefix+eventID+":msg").Result()

	event.Attempts++
	event.LastError = reason
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pipe := q.client.Pipeline()

	// Acknowledge the current delivery; redelivery happens via re-add
	if msgID != "" {
		pipe.XAck(ctx, eventStream, eventGroup, msgID)
		pipe.XDel(ctx, eventStream, msgID)
	}
	pipe.Del(ctx, eventKeyPrefix+eventID+":msg")

	if event.CanRetry() {
		pipe.Set(ctx, eventKeyPrefix+eventID, data, eventTTL)
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: eventStream,
			Values: map[string]interface{}{
				"event_id":  event.ID,
				"type":      string(event.Type),
				"source_id": event.SourceID,
			},
		})
	} else {
		pipe.Del(ctx, eventKeyPrefix+eventID)
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: deadStream,
			Values: map[string]interface{}{
				"event":  string(data),
				"reason": reason,
			},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to nack event: %w", err)
	}
	return nil
}

// getEvent retrieves an event payload by ID.
func (q *Queue) getEvent(ctx context.Context, eventID string) (*domain.LifecycleEvent, error) {
	data, err := q.client.Get(ctx, eventKeyPrefix+eventID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	var event domain.LifecycleEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &event, nil
}

// claimAbandonedEvent tries to claim an event abandoned by another consumer.
func (q *Queue) claimAbandonedEvent(ctx context.Context) (*domain.LifecycleEvent, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: eventStream,
		Group:  eventGroup,
		Start:  "-",
		End:    "+",
		Count:  10,
		Idle:   claimTimeout,
	}).Result()
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   eventStream,
			Group:    eventGroup,
			Consumer: q.consumerName,
			MinIdle:  claimTimeout,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}

		event, err := q.loadMessage(ctx, claimed[0])
		if err != nil || event == nil {
			continue
		}
		return event, nil
	}

	return nil, nil
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close cleans up resources.
func (q *Queue) Close() error {
	// Redis client is shared, don't close it here
	return nil
}

func isGroupExistsError(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}
