package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/taskgenie-labs/recall-core/internal/adapters/driven/auth"
	"github.com/taskgenie-labs/recall-core/internal/core/domain"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven/mocks"
	"github.com/taskgenie-labs/recall-core/internal/core/services"
	"github.com/taskgenie-labs/recall-core/internal/normalisers"
	"github.com/taskgenie-labs/recall-core/internal/runtime"
)

type fixture struct {
	server   *Server
	sources  *mocks.MockSourceStore
	states   *mocks.MockIndexStateStore
	index    *mocks.MockVectorIndex
	queue    *mocks.MockEventQueue
	embedder *mocks.MockEmbeddingService

	adminToken  string
	clientToken string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		sources:  mocks.NewMockSourceStore(),
		states:   mocks.NewMockIndexStateStore(),
		index:    mocks.NewMockVectorIndex(),
		queue:    mocks.NewMockEventQueue(),
		embedder: mocks.NewMockEmbeddingService(),
	}

	rt := runtime.NewServices()
	rt.SetEmbeddingService(f.embedder)

	registry := normalisers.DefaultRegistry(normalisers.DefaultChunkConfig())

	authService := services.NewAuthService(auth.NewAdapter("test-secret"), nil)
	retrievalService := services.NewRetrievalService(f.index, rt, nil)
	indexingService := services.NewIndexingService(f.sources, f.states, f.index, registry, rt, nil)

	f.server = NewServer(
		DefaultConfig(),
		authService,
		retrievalService,
		indexingService,
		f.sources,
		f.sources,
		f.queue,
		nil,
		nil,
	)

	var err error
	f.adminToken, err = authService.IssueToken(context.Background(), "owner", domain.RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("issue admin token: %v", err)
	}
	f.clientToken, err = authService.IssueToken(context.Background(), "agent", domain.RoleClient, time.Hour)
	if err != nil {
		t.Fatalf("issue client token: %v", err)
	}

	return f
}

func (f *fixture) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) indexDocument(t *testing.T, doc *domain.SourceDocument) {
	t.Helper()

	f.sources.Put(doc)
	err := f.server.indexingService.HandleEvent(context.Background(), &domain.LifecycleEvent{
		ID:       "evt-" + doc.SourceID,
		Type:     domain.EventCreated,
		SourceID: doc.SourceID,
		Kind:     doc.Kind,
	})
	if err != nil {
		t.Fatalf("index %s: %v", doc.SourceID, err)
	}
}

func taskDoc(id, title, text string) *domain.SourceDocument {
	return &domain.SourceDocument{
		SourceID: id,
		Kind:     domain.SourceKindTask,
		Title:    title,
		Text:     text,
		Metadata: domain.Metadata{
			Status:   domain.StatusPending,
			Priority: domain.PriorityMedium,
		},
		UpdatedAt: time.Now().UTC(),
	}
}

func TestHandleHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandleReady(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/ready", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandleSearch_RequiresAuth(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/search", "", searchRequest{Query: "login"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestHandleSearch_ReturnsRankedResults(t *testing.T) {
	f := newFixture(t)
	f.indexDocument(t, taskDoc("task-1", "Fix login bug", "Users cannot log in after the last deploy."))
	f.indexDocument(t, taskDoc("task-2", "Write release notes", "Summarise the quarterly changes."))

	rec := f.request(t, http.MethodPost, "/api/v1/search", f.clientToken, searchRequest{Query: "login broken"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count == 0 {
		t.Fatal("expected results")
	}
	if resp.Results[0].SourceID != "task-1" {
		t.Errorf("expected task-1 first, got %s", resp.Results[0].SourceID)
	}
}

func TestHandleSearch_BlankQuery(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/search", f.clientToken, searchRequest{Query: "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSearch_EmbeddingUnavailable(t *testing.T) {
	f := newFixture(t)
	f.embedder.SetFailNext(true)

	rec := f.request(t, http.MethodPost, "/api/v1/search", f.clientToken, searchRequest{Query: "login"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestHandleSearch_InvalidFilter(t *testing.T) {
	f := newFixture(t)

	req := searchRequest{Query: "login", Filters: domain.Filters{Status: "archived"}}
	rec := f.request(t, http.MethodPost, "/api/v1/search", f.clientToken, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleRetrieveContext(t *testing.T) {
	f := newFixture(t)
	f.indexDocument(t, taskDoc("task-1", "Fix login bug", "Users cannot log in after the last deploy."))

	req := contextRequest{
		searchRequest: searchRequest{Query: "login"},
		Budget:        &domain.ContextBudget{MaxUnits: 200, PerSourceCap: 200, Policy: domain.TruncateHead},
	}
	rec := f.request(t, http.MethodPost, "/api/v1/context", f.clientToken, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.AssembledContext
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) == 0 {
		t.Fatal("expected context items")
	}
	if resp.Units > 200 {
		t.Errorf("expected at most 200 units, got %d", resp.Units)
	}
}

func TestHandleRetrieveContext_RejectsBadPolicy(t *testing.T) {
	f := newFixture(t)

	req := contextRequest{
		searchRequest: searchRequest{Query: "login"},
		Budget:        &domain.ContextBudget{MaxUnits: 100, Policy: "middle"},
	}
	rec := f.request(t, http.MethodPost, "/api/v1/context", f.clientToken, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleUpsertSource_QueuesEvent(t *testing.T) {
	f := newFixture(t)

	req := upsertSourceRequest{
		Kind:  domain.SourceKindTask,
		Title: "Fix login bug",
		Text:  "Users cannot log in.",
	}
	rec := f.request(t, http.MethodPut, "/api/v1/sources/task-1", f.clientToken, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	if _, err := f.sources.Get(context.Background(), "task-1"); err != nil {
		t.Errorf("expected snapshot stored: %v", err)
	}
	if f.queue.PendingCount() != 1 {
		t.Errorf("expected 1 queued event, got %d", f.queue.PendingCount())
	}

	event, _ := f.queue.Dequeue(context.Background(), 0)
	if event.Type != domain.EventCreated {
		t.Errorf("expected created event for a new source, got %s", event.Type)
	}
}

func TestHandleUpsertSource_ExistingSourceIsUpdate(t *testing.T) {
	f := newFixture(t)
	f.sources.Put(taskDoc("task-1", "Fix login bug", "Users cannot log in."))

	req := upsertSourceRequest{
		Kind:  domain.SourceKindTask,
		Title: "Fix login bug",
		Text:  "Root cause found in the session middleware.",
	}
	rec := f.request(t, http.MethodPut, "/api/v1/sources/task-1", f.clientToken, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	event, _ := f.queue.Dequeue(context.Background(), 0)
	if event.Type != domain.EventUpdated {
		t.Errorf("expected updated event, got %s", event.Type)
	}
}

func TestHandleUpsertSource_RejectsUnknownKind(t *testing.T) {
	f := newFixture(t)

	req := upsertSourceRequest{Kind: "calendar", Title: "x", Text: "y"}
	rec := f.request(t, http.MethodPut, "/api/v1/sources/task-1", f.clientToken, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleDeleteSource_QueuesDeletion(t *testing.T) {
	f := newFixture(t)
	f.sources.Put(taskDoc("task-1", "Fix login bug", "Users cannot log in."))

	rec := f.request(t, http.MethodDelete, "/api/v1/sources/task-1", f.clientToken, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	if _, err := f.sources.Get(context.Background(), "task-1"); err == nil {
		t.Error("expected snapshot removed")
	}

	event, _ := f.queue.Dequeue(context.Background(), 0)
	if event == nil || event.Type != domain.EventDeleted {
		t.Errorf("expected deleted event, got %+v", event)
	}
}

func TestHandleIndexStatus(t *testing.T) {
	f := newFixture(t)
	f.indexDocument(t, taskDoc("task-1", "Fix login bug", "Users cannot log in."))

	rec := f.request(t, http.MethodGet, "/api/v1/sources/task-1/index", f.clientToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var state domain.IndexState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if state.Status != domain.IndexStatusIndexed {
		t.Errorf("expected indexed, got %s", state.Status)
	}
}

func TestHandleIndexStatus_UnknownSource(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/api/v1/sources/ghost/index", f.clientToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleReindex_AdminOnly(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/admin/reindex", f.clientToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestHandleReindex(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.sources.Put(taskDoc(fmt.Sprintf("task-%d", i), "Task", "Some work to do."))
	}

	rec := f.request(t, http.MethodPost, "/api/v1/admin/reindex", f.adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var stats domain.ReindexStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if stats.Indexed != 3 {
		t.Errorf("expected 3 indexed, got %d", stats.Indexed)
	}
}

func TestHandleRetryFailed(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/admin/retry-failed", f.adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
