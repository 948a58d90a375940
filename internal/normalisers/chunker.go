package normalisers

import (
	"strings"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

// ChunkConfig configures the chunker behavior.
type ChunkConfig struct {
	// MaxChunkSize is the maximum characters per chunk
	MaxChunkSize int

	// Overlap is the character overlap between chunks
	Overlap int

	// PreserveSentences tries to break at sentence boundaries
	PreserveSentences bool

	// PreserveParagraphs tries to break at paragraph boundaries
	PreserveParagraphs bool
}

// DefaultChunkConfig returns sensible defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChunkSize:       1000,
		Overlap:            200,
		PreserveSentences:  true,
		PreserveParagraphs: true,
	}
}

// Chunker splits normalised text into overlapping chunks with stable,
// position-derived ids. Same input text yields the same chunk ids, which
// keeps re-indexing idempotent.
type Chunker struct {
	config ChunkConfig
}

// NewChunker creates a new chunker with the given config.
func NewChunker(config ChunkConfig) *Chunker {
	return &Chunker{config: config}
}

// Split splits text into chunks for a source. Blank text yields no chunks.
func (c *Chunker) Split(sourceID string, text string) []domain.Chunk {
	text = cleanText(text)
	if text == "" {
		return nil
	}

	if len(text) <= c.config.MaxChunkSize {
		return []domain.Chunk{{
			ID:        domain.ChunkID(sourceID, 0),
			SourceID:  sourceID,
			Position:  0,
			Text:      text,
			StartChar: 0,
			EndChar:   len(text),
		}}
	}

	var chunks []domain.Chunk
	start := 0
	position := 0

	for start < len(text) {
		end := start + c.config.MaxChunkSize
		if end > len(text) {
			end = len(text)
		}

		if end < len(text) {
			breakPoint := c.findBreakPoint(text, start, end)
			if breakPoint > start {
				end = breakPoint
			}
		}

		chunks = append(chunks, domain.Chunk{
			ID:        domain.ChunkID(sourceID, position),
			SourceID:  sourceID,
			Position:  position,
			Text:      text[start:end],
			StartChar: start,
			EndChar:   end,
		})
		position++

		if end >= len(text) {
			break
		}

		// Move start with overlap, ensuring we always advance
		nextStart := end - c.config.Overlap
		if nextStart <= start {
			nextStart = start + 1
		}
		start = nextStart
	}

	return chunks
}

// findBreakPoint finds a good break point for chunking.
func (c *Chunker) findBreakPoint(text string, start, maxEnd int) int {
	searchStart := maxEnd - 100
	if searchStart < start {
		searchStart = start
	}

	searchText := text[searchStart:maxEnd]

	// Prefer a paragraph boundary (double newline)
	if c.config.PreserveParagraphs {
		if idx := strings.LastIndex(searchText, "\n\n"); idx != -1 {
			return searchStart + idx + 2
		}
	}

	// Then a sentence boundary
	if c.config.PreserveSentences {
		sentenceEnders := []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}
		bestIdx := -1

		for _, ender := range sentenceEnders {
			if idx := strings.LastIndex(searchText, ender); idx != -1 {
				endPos := idx + len(ender)
				if endPos > bestIdx {
					bestIdx = endPos
				}
			}
		}

		if bestIdx > 0 {
			return searchStart + bestIdx
		}
	}

	// Then a word boundary
	if idx := strings.LastIndex(searchText, " "); idx != -1 {
		return searchStart + idx + 1
	}

	return maxEnd
}

// cleanText normalises line endings, collapses runs of blank lines and trims
// the result.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text)
}
