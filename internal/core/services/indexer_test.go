package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven/mocks"
	"github.com/taskgenie-labs/recall-core/internal/normalisers"
	"github.com/taskgenie-labs/recall-core/internal/runtime"
)

type indexerFixture struct {
	svc      *indexerService
	sources  *mocks.MockSourceStore
	states   *mocks.MockIndexStateStore
	index    *mocks.MockVectorIndex
	embedder *mocks.MockEmbeddingService
}

func newTestIndexer(t *testing.T) *indexerFixture {
	t.Helper()
	f := &indexerFixture{
		sources:  mocks.NewMockSourceStore(),
		states:   mocks.NewMockIndexStateStore(),
		index:    mocks.NewMockVectorIndex(),
		embedder: mocks.NewMockEmbeddingService(),
	}
	services := runtime.NewServices()
	services.SetEmbeddingService(f.embedder)
	registry := normalisers.DefaultRegistry(normalisers.ChunkConfig{
		MaxChunkSize:      80,
		Overlap:           10,
		PreserveSentences: true,
	})
	f.svc = NewIndexingService(f.sources, f.states, f.index, registry, services, nil).(*indexerService)
	return f
}

func taskDoc(sourceID, title, text string) *domain.SourceDocument {
	return &domain.SourceDocument{
		SourceID: sourceID,
		Kind:     domain.SourceKindTask,
		Title:    title,
		Text:     text,
		Metadata: domain.Metadata{Status: domain.StatusPending, Priority: domain.PriorityMedium},
	}
}

func createdEvent(sourceID string) *domain.LifecycleEvent {
	return &domain.LifecycleEvent{
		ID:       "evt-" + sourceID,
		Type:     domain.EventCreated,
		SourceID: sourceID,
		Kind:     domain.SourceKindTask,
	}
}

func TestHandleEvent_CreatedIndexesSource(t *testing.T) {
	f := newTestIndexer(t)
	f.sources.Put(taskDoc("task-1", "Fix login bug", "Users see 500 errors."))

	if err := f.svc.HandleEvent(context.Background(), createdEvent("task-1")); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	state, err := f.states.Get(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Status != domain.IndexStatusIndexed {
		t.Errorf("expected indexed, got %s", state.Status)
	}
	if len(state.ChunkIDs) == 0 {
		t.Fatal("expected chunk ids recorded")
	}
	if state.ModelVersion != f.embedder.ModelVersion() {
		t.Errorf("expected model version stamped, got %q", state.ModelVersion)
	}

	count, _ := f.index.Count(context.Background())
	if count != int64(len(state.ChunkIDs)) {
		t.Errorf("index holds %d entries, state records %d", count, len(state.ChunkIDs))
	}
	entry := f.index.Get(state.ChunkIDs[0])
	if entry == nil {
		t.Fatal("recorded chunk id missing from index")
	}
	if entry.Metadata.Status != domain.StatusPending {
		t.Errorf("entry metadata not denormalised: %+v", entry.Metadata)
	}
}

func TestHandleEvent_UpdateRemovesStaleChunks(t *testing.T) {
	f := newTestIndexer(t)
	long := strings.Repeat("A full sentence about deployment problems. ", 10)
	f.sources.Put(taskDoc("task-1", "Deploy pipeline", long))

	if err := f.svc.HandleEvent(context.Background(), createdEvent("task-1")); err != nil {
		t.Fatalf("initial index: %v", err)
	}
	before, _ := f.states.Get(context.Background(), "task-1")
	if len(before.ChunkIDs) < 2 {
		t.Fatalf("test needs a multi-chunk document, got %d chunks", len(before.ChunkIDs))
	}

	// Shrink the document: chunk count drops, stale ids must go
	f.sources.Put(taskDoc("task-1", "Deploy pipeline", "Short now."))
	event := createdEvent("task-1")
	event.Type = domain.EventUpdated
	if err := f.svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("update: %v", err)
	}

	after, _ := f.states.Get(context.Background(), "task-1")
	if len(after.ChunkIDs) >= len(before.ChunkIDs) {
		t.Fatalf("expected fewer chunks after shrink: %d -> %d", len(before.ChunkIDs), len(after.ChunkIDs))
	}
	count, _ := f.index.Count(context.Background())
	if count != int64(len(after.ChunkIDs)) {
		t.Errorf("stale chunks left behind: index has %d, state records %d", count, len(after.ChunkIDs))
	}
}

func TestHandleEvent_DeletedRemovesEverything(t *testing.T) {
	f := newTestIndexer(t)
	f.sources.Put(taskDoc("task-1", "Fix login bug", "Details."))

	if err := f.svc.HandleEvent(context.Background(), createdEvent("task-1")); err != nil {
		t.Fatalf("index: %v", err)
	}

	event := createdEvent("task-1")
	event.Type = domain.EventDeleted
	if err := f.svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("delete: %v", err)
	}

	count, _ := f.index.Count(context.Background())
	if count != 0 {
		t.Errorf("expected empty index, got %d entries", count)
	}
	if _, err := f.states.Get(context.Background(), "task-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected state removed, got %v", err)
	}
}

func TestHandleEvent_MissingSourceIsImplicitDelete(t *testing.T) {
	f := newTestIndexer(t)
	f.sources.Put(taskDoc("task-1", "Fix login bug", "Details."))
	if err := f.svc.HandleEvent(context.Background(), createdEvent("task-1")); err != nil {
		t.Fatalf("index: %v", err)
	}

	// Source vanishes before the update event is processed
	f.sources.Remove("task-1")
	event := createdEvent("task-1")
	event.Type = domain.EventUpdated
	if err := f.svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected implicit delete, got %v", err)
	}

	count, _ := f.index.Count(context.Background())
	if count != 0 {
		t.Errorf("expected entries removed, got %d", count)
	}
}

func TestHandleEvent_BlankDocumentNeverIndexed(t *testing.T) {
	f := newTestIndexer(t)
	f.sources.Put(&domain.SourceDocument{SourceID: "task-1", Kind: domain.SourceKindTask})

	if err := f.svc.HandleEvent(context.Background(), createdEvent("task-1")); err != nil {
		t.Fatalf("handle: %v", err)
	}

	count, _ := f.index.Count(context.Background())
	if count != 0 {
		t.Errorf("blank document produced %d entries", count)
	}
}

func TestHandleEvent_Idempotent(t *testing.T) {
	f := newTestIndexer(t)
	f.sources.Put(taskDoc("task-1", "Fix login bug", "Details."))

	if err := f.svc.HandleEvent(context.Background(), createdEvent("task-1")); err != nil {
		t.Fatalf("first: %v", err)
	}
	first, _ := f.index.Count(context.Background())

	// At-least-once delivery: the same event arrives again
	if err := f.svc.HandleEvent(context.Background(), createdEvent("task-1")); err != nil {
		t.Fatalf("replay: %v", err)
	}
	second, _ := f.index.Count(context.Background())

	if first != second {
		t.Errorf("replay changed entry count: %d -> %d", first, second)
	}
}

func TestHandleEvent_EmbeddingFailureMarksFailed(t *testing.T) {
	f := newTestIndexer(t)
	f.sources.Put(taskDoc("task-1", "Fix login bug", "Details."))
	f.embedder.SetFailNext(true)

	err := f.svc.HandleEvent(context.Background(), createdEvent("task-1"))
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}

	state, err := f.states.Get(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Status != domain.IndexStatusFailed {
		t.Errorf("expected failed status, got %s", state.Status)
	}
	if state.Error == "" {
		t.Error("expected error recorded")
	}
}

func TestRetryFailed_RecoversAfterOutage(t *testing.T) {
	f := newTestIndexer(t)
	f.sources.Put(taskDoc("task-1", "Fix login bug", "Details."))
	f.embedder.SetFailNext(true)
	_ = f.svc.HandleEvent(context.Background(), createdEvent("task-1"))

	stats, err := f.svc.RetryFailed(context.Background())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if stats.Indexed != 1 || stats.Failed != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	state, _ := f.states.Get(context.Background(), "task-1")
	if state.Status != domain.IndexStatusIndexed {
		t.Errorf("expected recovery to indexed, got %s", state.Status)
	}
}

func TestReindexAll_SkipsCurrentModel(t *testing.T) {
	f := newTestIndexer(t)
	f.sources.Put(taskDoc("task-1", "Fix login bug", "Details."))
	f.sources.Put(taskDoc("task-2", "Write report", "Numbers."))

	if err := f.svc.HandleEvent(context.Background(), createdEvent("task-1")); err != nil {
		t.Fatalf("index: %v", err)
	}

	stats, err := f.svc.ReindexAll(context.Background())
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if stats.Sources != 2 {
		t.Errorf("expected 2 sources, got %d", stats.Sources)
	}
	if stats.Skipped != 1 {
		t.Errorf("expected task-1 skipped, got %d skipped", stats.Skipped)
	}
	if stats.Indexed != 1 {
		t.Errorf("expected task-2 indexed, got %d indexed", stats.Indexed)
	}
}

func TestReindexAll_ModelVersionChangeRebuildsAll(t *testing.T) {
	f := newTestIndexer(t)
	f.sources.Put(taskDoc("task-1", "Fix login bug", "Details."))
	if err := f.svc.HandleEvent(context.Background(), createdEvent("task-1")); err != nil {
		t.Fatalf("index: %v", err)
	}

	f.embedder.SetModelVersion("mock-embedding-v2")

	stats, err := f.svc.ReindexAll(context.Background())
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if stats.Indexed != 1 || stats.Skipped != 0 {
		t.Errorf("expected rebuild under new model, got %+v", stats)
	}

	state, _ := f.states.Get(context.Background(), "task-1")
	if state.ModelVersion != "mock-embedding-v2" {
		t.Errorf("expected new model version, got %s", state.ModelVersion)
	}
}

func TestIndexStatus_UnknownSource(t *testing.T) {
	f := newTestIndexer(t)

	_, err := f.svc.IndexStatus(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
