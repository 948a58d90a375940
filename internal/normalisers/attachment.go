package normalisers

import (
	"strings"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

// AttachmentNormaliser converts an attachment snapshot (email, github issue,
// document) into chunks. Attachment bodies are typically longer than task
// descriptions, so this is where the chunker's overlap actually earns its
// keep.
type AttachmentNormaliser struct {
	chunker *Chunker
}

// NewAttachmentNormaliser creates a new AttachmentNormaliser.
func NewAttachmentNormaliser(config ChunkConfig) *AttachmentNormaliser {
	return &AttachmentNormaliser{chunker: NewChunker(config)}
}

func (n *AttachmentNormaliser) Normalise(doc *domain.SourceDocument) []domain.Chunk {
	var b strings.Builder

	if title := strings.TrimSpace(doc.Title); title != "" {
		b.WriteString(title)
	}

	if doc.Metadata.AttachmentType != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("type: " + string(doc.Metadata.AttachmentType))
	}

	if text := strings.TrimSpace(doc.Text); text != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}

	return n.chunker.Split(doc.SourceID, b.String())
}
