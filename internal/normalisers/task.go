package normalisers

import (
	"strings"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

// TaskNormaliser converts a task snapshot into chunks. The title and a short
// metadata summary lead the canonical text so they always land in the first
// chunk, where they matter most for short tasks.
type TaskNormaliser struct {
	chunker *Chunker
}

// NewTaskNormaliser creates a new TaskNormaliser.
func NewTaskNormaliser(config ChunkConfig) *TaskNormaliser {
	return &TaskNormaliser{chunker: NewChunker(config)}
}

func (n *TaskNormaliser) Normalise(doc *domain.SourceDocument) []domain.Chunk {
	var b strings.Builder

	if title := strings.TrimSpace(doc.Title); title != "" {
		b.WriteString(title)
	}

	if summary := metadataSummary(doc.Metadata); summary != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(summary)
	}

	if text := strings.TrimSpace(doc.Text); text != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}

	return n.chunker.Split(doc.SourceID, b.String())
}

// metadataSummary renders the filterable fields as a single searchable line,
// e.g. "status: pending | priority: high | tags: auth, backend".
func metadataSummary(m domain.Metadata) string {
	var parts []string
	if m.Status != "" {
		parts = append(parts, "status: "+string(m.Status))
	}
	if m.Priority != "" {
		parts = append(parts, "priority: "+string(m.Priority))
	}
	if m.ETA != nil {
		parts = append(parts, "due: "+m.ETA.Format("2006-01-02"))
	}
	if len(m.Tags) > 0 {
		parts = append(parts, "tags: "+strings.Join(m.Tags, ", "))
	}
	return strings.Join(parts, " | ")
}
