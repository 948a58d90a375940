package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driving"
)

// Worker consumes lifecycle events from the event queue and feeds them to
// the indexing service.
type Worker struct {
	queue    driven.EventQueue
	indexing driving.IndexingService
	logger   *slog.Logger

	// Configuration
	concurrency    int
	dequeueTimeout int // seconds

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config holds configuration for the worker.
type Config struct {
	Queue          driven.EventQueue
	Indexing       driving.IndexingService
	Logger         *slog.Logger
	Concurrency    int // Number of concurrent event processors
	DequeueTimeout int // Seconds to wait for an event before checking again
}

// New creates a new indexing worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	return &Worker{
		queue:          cfg.Queue,
		indexing:       cfg.Indexing,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("indexing worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("indexing worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	<-w.doneCh
}

// processLoop is the main processing loop for one worker goroutine.
// Events for different sources may be processed concurrently; the pipeline's
// fetch-current-snapshot semantics keep that safe.
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Info("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info("worker stop signal received")
			return
		default:
		}

		event, err := w.queue.Dequeue(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue event", "error", err)
			time.Sleep(time.Second) // Back off on error
			continue
		}

		if event == nil {
			continue
		}

		w.processEvent(ctx, event, logger)
	}
}

// processEvent handles one lifecycle event and acks or nacks it.
func (w *Worker) processEvent(ctx context.Context, event *domain.LifecycleEvent, logger *slog.Logger) {
	logger = logger.With("event_id", event.ID, "event_type", event.Type, "source_id", event.SourceID)
	logger.Info("processing event")

	startTime := time.Now()
	err := w.indexing.HandleEvent(ctx, event)
	duration := time.Since(startTime)

	if err != nil {
		logger.Error("event processing failed",
			"duration", duration,
			"attempts", event.Attempts,
			"error", err,
		)

		if nackErr := w.queue.Nack(ctx, event.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack event", "nack_error", nackErr)
		}
		return
	}

	logger.Info("event processed", "duration", duration)

	if ackErr := w.queue.Ack(ctx, event.ID); ackErr != nil {
		logger.Error("failed to ack event", "ack_error", ackErr)
	}
}

// Health reports the worker and queue state.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	if err := w.queue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
