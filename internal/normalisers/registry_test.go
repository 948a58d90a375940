package normalisers

import (
	"strings"
	"testing"
	"time"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

func TestRegistry_GetRegisteredKind(t *testing.T) {
	r := DefaultRegistry(DefaultChunkConfig())

	if r.Get(domain.SourceKindTask) == nil {
		t.Error("expected task normaliser")
	}
	if r.Get(domain.SourceKindAttachment) == nil {
		t.Error("expected attachment normaliser")
	}
	if r.Get(domain.SourceKind("unknown")) != nil {
		t.Error("expected nil for unknown kind")
	}
}

func TestTaskNormaliser_TitleAndMetadataLeadFirstChunk(t *testing.T) {
	n := NewTaskNormaliser(DefaultChunkConfig())
	eta := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	chunks := n.Normalise(&domain.SourceDocument{
		SourceID: "task-1",
		Kind:     domain.SourceKindTask,
		Title:    "Fix login bug",
		Text:     "Users report 500 errors on the login endpoint.",
		Metadata: domain.Metadata{
			Status:   domain.StatusPending,
			Priority: domain.PriorityHigh,
			ETA:      &eta,
			Tags:     []string{"auth", "backend"},
		},
	})

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	text := chunks[0].Text
	if !strings.HasPrefix(text, "Fix login bug") {
		t.Errorf("title should lead the chunk, got %q", text)
	}
	for _, want := range []string{"status: pending", "priority: high", "due: 2026-09-15", "tags: auth, backend", "500 errors"} {
		if !strings.Contains(text, want) {
			t.Errorf("chunk missing %q: %q", want, text)
		}
	}
}

func TestTaskNormaliser_BlankDocument(t *testing.T) {
	n := NewTaskNormaliser(DefaultChunkConfig())

	chunks := n.Normalise(&domain.SourceDocument{
		SourceID: "task-2",
		Kind:     domain.SourceKindTask,
	})

	if len(chunks) != 0 {
		t.Errorf("expected no chunks for blank document, got %d", len(chunks))
	}
}

func TestAttachmentNormaliser_IncludesType(t *testing.T) {
	n := NewAttachmentNormaliser(DefaultChunkConfig())

	chunks := n.Normalise(&domain.SourceDocument{
		SourceID:     "att-1",
		Kind:         domain.SourceKindAttachment,
		ParentTaskID: "task-1",
		Title:        "Re: login outage",
		Text:         "Customer confirms the issue started after the last deploy.",
		Metadata: domain.Metadata{
			AttachmentType: domain.AttachmentTypeEmail,
		},
	})

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "type: email") {
		t.Errorf("chunk missing attachment type: %q", chunks[0].Text)
	}
	if chunks[0].SourceID != "att-1" {
		t.Errorf("unexpected source id %s", chunks[0].SourceID)
	}
}

func TestNormalisers_StableChunkIDsAcrossMetadataChange(t *testing.T) {
	n := NewTaskNormaliser(DefaultChunkConfig())
	doc := &domain.SourceDocument{
		SourceID: "task-3",
		Kind:     domain.SourceKindTask,
		Title:    "Write quarterly report",
		Text:     "Collect numbers from finance and draft the summary.",
		Metadata: domain.Metadata{Status: domain.StatusPending},
	}

	first := n.Normalise(doc)

	// A metadata-only change rewrites the summary line, so the chunk text and
	// therefore the embedding change, but ids stay position-derived.
	doc.Metadata.Status = domain.StatusInProgress
	second := n.Normalise(doc)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	if first[0].ID != second[0].ID {
		t.Errorf("chunk ids should be position-derived and stable: %s vs %s", first[0].ID, second[0].ID)
	}
	if first[0].Text == second[0].Text {
		t.Error("expected text to reflect metadata change")
	}
}
