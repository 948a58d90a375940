package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse represents a simple status response
type StatusResponse struct {
	Status string `json:"status"`
}

// Health endpoints

// handleHealth returns liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady checks the snapshot store and queue connections.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	if s.queue != nil {
		if err := s.queue.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "queue unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Retrieval endpoints

type searchRequest struct {
	Query         string         `json:"query"`
	TopK          int            `json:"top_k"`
	Filters       domain.Filters `json:"filters"`
	RecencyWeight float64        `json:"recency_weight"`
	MinScore      float64        `json:"min_score"`
}

func (req searchRequest) options() domain.QueryOptions {
	return domain.QueryOptions{
		TopK:          req.TopK,
		Filters:       req.Filters,
		RecencyWeight: req.RecencyWeight,
		MinScore:      req.MinScore,
	}
}

type searchResponse struct {
	Results []*domain.RetrievalResult `json:"results"`
	Count   int                       `json:"count"`
}

// handleSearch runs a filtered similarity query and returns ranked excerpts.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := s.retrievalService.Search(r.Context(), req.Query, req.options())
	if err != nil {
		writeRetrievalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Results: results, Count: len(results)})
}

type contextRequest struct {
	searchRequest
	Budget *domain.ContextBudget `json:"budget"`
}

// handleRetrieveContext runs a query and packs the results into a
// budget-bounded context block.
func (s *Server) handleRetrieveContext(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	budget := domain.DefaultContextBudget()
	if req.Budget != nil {
		budget = *req.Budget
		if budget.Policy == "" {
			budget.Policy = domain.TruncateSentence
		}
		if budget.Policy != domain.TruncateHead && budget.Policy != domain.TruncateSentence {
			writeError(w, http.StatusBadRequest, "unknown truncation policy")
			return
		}
		if budget.MaxUnits <= 0 {
			writeError(w, http.StatusBadRequest, "max_units must be positive")
			return
		}
	}

	assembled, err := s.retrievalService.RetrieveContext(r.Context(), req.Query, req.options(), budget)
	if err != nil {
		writeRetrievalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, assembled)
}

// Source lifecycle endpoints

type upsertSourceRequest struct {
	Kind         domain.SourceKind `json:"kind"`
	ParentTaskID string            `json:"parent_task_id,omitempty"`
	Title        string            `json:"title"`
	Text         string            `json:"text"`
	Metadata     domain.Metadata   `json:"metadata"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type eventResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

// handleUpsertSource stores a snapshot and enqueues a lifecycle event.
// Indexing happens asynchronously; the index status endpoint reports progress.
func (s *Server) handleUpsertSource(w http.ResponseWriter, r *http.Request) {
	sourceID := r.PathValue("id")
	if sourceID == "" {
		writeError(w, http.StatusBadRequest, "missing source id")
		return
	}

	var req upsertSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Kind != domain.SourceKindTask && req.Kind != domain.SourceKindAttachment {
		writeError(w, http.StatusBadRequest, "unknown source kind")
		return
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = time.Now().UTC()
	}

	eventType := domain.EventUpdated
	if _, err := s.sources.Get(r.Context(), sourceID); errors.Is(err, domain.ErrSourceNotFound) {
		eventType = domain.EventCreated
	}

	doc := &domain.SourceDocument{
		SourceID:     sourceID,
		Kind:         req.Kind,
		ParentTaskID: req.ParentTaskID,
		Title:        req.Title,
		Text:         req.Text,
		Metadata:     req.Metadata,
		UpdatedAt:    req.UpdatedAt,
	}
	if err := s.writer.Save(r.Context(), doc); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store snapshot")
		return
	}

	event := &domain.LifecycleEvent{
		Type:         eventType,
		SourceID:     sourceID,
		Kind:         req.Kind,
		ParentTaskID: req.ParentTaskID,
	}
	if err := s.queue.Publish(r.Context(), event); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to enqueue event")
		return
	}

	writeJSON(w, http.StatusAccepted, eventResponse{Status: "queued", EventID: event.ID})
}

// handleDeleteSource removes a snapshot and enqueues a deletion event.
func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	sourceID := r.PathValue("id")
	if sourceID == "" {
		writeError(w, http.StatusBadRequest, "missing source id")
		return
	}

	// Resolve the kind from the snapshot before it goes away. For a source
	// that was never stored the indexer only needs the id, so task is fine.
	kind := domain.SourceKindTask
	if doc, err := s.sources.Get(r.Context(), sourceID); err == nil {
		kind = doc.Kind
	}

	if err := s.writer.Delete(r.Context(), sourceID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete snapshot")
		return
	}

	event := &domain.LifecycleEvent{
		Type:     domain.EventDeleted,
		SourceID: sourceID,
		Kind:     kind,
	}
	if err := s.queue.Publish(r.Context(), event); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to enqueue event")
		return
	}

	writeJSON(w, http.StatusAccepted, eventResponse{Status: "queued", EventID: event.ID})
}

// handleIndexStatus returns the per-source indexing state.
func (s *Server) handleIndexStatus(w http.ResponseWriter, r *http.Request) {
	sourceID := r.PathValue("id")
	if sourceID == "" {
		writeError(w, http.StatusBadRequest, "missing source id")
		return
	}

	state, err := s.indexingService.IndexStatus(r.Context(), sourceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "source not indexed")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get index status")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// Admin endpoints

// handleReindex rebuilds the index for every known source.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	stats, err := s.indexingService.ReindexAll(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrReindexInProgress) {
			writeError(w, http.StatusConflict, "reindex already in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, "reindex failed")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleRetryFailed re-runs indexing for sources marked failed.
func (s *Server) handleRetryFailed(w http.ResponseWriter, r *http.Request) {
	stats, err := s.indexingService.RetryFailed(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "retry failed")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Helper functions

func writeRetrievalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, "invalid query")
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		writeError(w, http.StatusServiceUnavailable, "embedding backend unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "search failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
