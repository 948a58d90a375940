package mocks

import (
	"context"
	"sync"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

// MockEventQueue is a mock implementation of EventQueue for testing
type MockEventQueue struct {
	mu      sync.Mutex
	pending []*domain.LifecycleEvent
	acked   []string
	nacked  map[string]string
}

// NewMockEventQueue creates a new MockEventQueue
func NewMockEventQueue() *MockEventQueue {
	return &MockEventQueue{
		nacked: make(map[string]string),
	}
}

func (m *MockEventQueue) Publish(ctx context.Context, event *domain.LifecycleEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, event)
	return nil
}

func (m *MockEventQueue) Dequeue(ctx context.Context, timeout int) (*domain.LifecycleEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return nil, nil
	}
	event := m.pending[0]
	m.pending = m.pending[1:]
	return event, nil
}

func (m *MockEventQueue) Ack(ctx context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, eventID)
	return nil
}

func (m *MockEventQueue) Nack(ctx context.Context, eventID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nacked[eventID] = reason
	return nil
}

func (m *MockEventQueue) Ping(ctx context.Context) error {
	return nil
}

func (m *MockEventQueue) Close() error {
	return nil
}

// Helper methods for testing

func (m *MockEventQueue) Acked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.acked...)
}

func (m *MockEventQueue) NackReason(eventID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nacked[eventID]
}

func (m *MockEventQueue) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
