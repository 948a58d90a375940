package memindex

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

func entry(chunkID, sourceID, text string, vector []float32) *domain.IndexEntry {
	return &domain.IndexEntry{
		ChunkID:   chunkID,
		SourceID:  sourceID,
		Kind:      domain.SourceKindTask,
		Text:      text,
		Embedding: vector,
	}
}

func TestIndex_UpsertReplacesByChunkID(t *testing.T) {
	idx := New()
	ctx := context.Background()

	if err := idx.Upsert(ctx, entry("c-1", "s-1", "old", []float32{1, 0})); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := idx.Upsert(ctx, entry("c-1", "s-1", "new", []float32{0, 1})); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	count, _ := idx.Count(ctx)
	if count != 1 {
		t.Fatalf("expected 1 entry, got %d", count)
	}

	results, err := idx.Query(ctx, []float32{0, 1}, 10, domain.Filters{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if results[0].Text != "new" {
		t.Errorf("expected replaced entry, got %q", results[0].Text)
	}
}

func TestIndex_QueryRanksByCosine(t *testing.T) {
	idx := New()
	ctx := context.Background()

	_ = idx.Upsert(ctx, entry("c-1", "s-1", "aligned", []float32{1, 0, 0}))
	_ = idx.Upsert(ctx, entry("c-2", "s-2", "orthogonal", []float32{0, 1, 0}))
	_ = idx.Upsert(ctx, entry("c-3", "s-3", "partial", []float32{1, 1, 0}))

	results, err := idx.Query(ctx, []float32{1, 0, 0}, 10, domain.Filters{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if results[0].ChunkID != "c-1" {
		t.Errorf("expected aligned vector first, got %s", results[0].ChunkID)
	}
	if results[1].ChunkID != "c-3" {
		t.Errorf("expected partial match second, got %s", results[1].ChunkID)
	}
	if results[0].Score <= results[1].Score || results[1].Score <= results[2].Score {
		t.Errorf("scores not descending: %f, %f, %f", results[0].Score, results[1].Score, results[2].Score)
	}
}

func TestIndex_QueryTopK(t *testing.T) {
	idx := New()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_ = idx.Upsert(ctx, entry(fmt.Sprintf("c-%d", i), "s-1", "text", []float32{1, float32(i)}))
	}

	results, err := idx.Query(ctx, []float32{1, 0}, 3, domain.Filters{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestIndex_QueryFilters(t *testing.T) {
	idx := New()
	ctx := context.Background()

	pending := entry("c-1", "s-1", "pending task", []float32{1, 0})
	pending.Metadata = domain.Metadata{Status: domain.StatusPending, Priority: domain.PriorityHigh}
	done := entry("c-2", "s-2", "completed task", []float32{1, 0})
	done.Metadata = domain.Metadata{Status: domain.StatusCompleted}
	_ = idx.Upsert(ctx, pending)
	_ = idx.Upsert(ctx, done)

	results, err := idx.Query(ctx, []float32{1, 0}, 10, domain.Filters{Status: domain.StatusPending})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != "c-1" {
		t.Errorf("expected only pending entry, got %d results", len(results))
	}

	results, _ = idx.Query(ctx, []float32{1, 0}, 10, domain.Filters{ExcludeStatus: domain.StatusCompleted})
	if len(results) != 1 || results[0].ChunkID != "c-1" {
		t.Errorf("exclude filter failed, got %d results", len(results))
	}
}

func TestIndex_QueryDueFilters(t *testing.T) {
	idx := New()
	ctx := context.Background()

	soon := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	cutoff := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	withETA := entry("c-1", "s-1", "due soon", []float32{1})
	withETA.Metadata = domain.Metadata{ETA: &soon}
	lateETA := entry("c-2", "s-2", "due later", []float32{1})
	lateETA.Metadata = domain.Metadata{ETA: &later}
	noETA := entry("c-3", "s-3", "no deadline", []float32{1})
	_ = idx.Upsert(ctx, withETA)
	_ = idx.Upsert(ctx, lateETA)
	_ = idx.Upsert(ctx, noETA)

	results, err := idx.Query(ctx, []float32{1}, 10, domain.Filters{DueBefore: &cutoff})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != "c-1" {
		t.Errorf("due_before should match only c-1, got %d results", len(results))
	}
}

func TestIndex_DeleteBySourceID(t *testing.T) {
	idx := New()
	ctx := context.Background()

	_ = idx.Upsert(ctx, entry("c-1", "s-1", "a", []float32{1}))
	_ = idx.Upsert(ctx, entry("c-2", "s-1", "b", []float32{1}))
	_ = idx.Upsert(ctx, entry("c-3", "s-2", "c", []float32{1}))

	if err := idx.DeleteBySourceID(ctx, "s-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	count, _ := idx.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 entry left, got %d", count)
	}
	results, _ := idx.Query(ctx, []float32{1}, 10, domain.Filters{})
	for _, r := range results {
		if r.SourceID == "s-1" {
			t.Error("deleted source still queryable")
		}
	}
}

func TestIndex_DeleteMissingIDsIsNoError(t *testing.T) {
	idx := New()

	if err := idx.DeleteByChunkIDs(context.Background(), []string{"nope"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := idx.DeleteBySourceID(context.Background(), "nope"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIndex_ConcurrentReadersAndWriters(t *testing.T) {
	idx := New()
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := fmt.Sprintf("c-%d-%d", worker, j)
				_ = idx.Upsert(ctx, entry(id, fmt.Sprintf("s-%d", worker), "text", []float32{1, float32(j)}))
				_, _ = idx.Query(ctx, []float32{1, 0}, 5, domain.Filters{})
				if j%10 == 0 {
					_ = idx.DeleteBySourceID(ctx, fmt.Sprintf("s-%d", worker))
				}
			}
		}(i)
	}
	wg.Wait()

	// Last writer wins for a contested chunk id
	_ = idx.Upsert(ctx, entry("contested", "s-x", "final", []float32{1}))
	results, _ := idx.Query(ctx, []float32{1}, 1000, domain.Filters{})
	found := false
	for _, r := range results {
		if r.ChunkID == "contested" && r.Text == "final" {
			found = true
		}
	}
	if !found {
		t.Error("contested entry lost")
	}
}
