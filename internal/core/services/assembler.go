package services

import (
	"strings"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

// Assemble packs ranked results into a context block without exceeding the
// budget. Pure function of its inputs: the same results and budget always
// produce a byte-identical block.
//
// Results are consumed in rank order. A result that does not fit entirely is
// truncated to the remaining allowance; a result with no allowance left is
// recorded in Dropped rather than silently discarded, so callers can tell the
// model what it is not seeing.
func (s *retrievalService) Assemble(results []*domain.RetrievalResult, budget domain.ContextBudget) *domain.AssembledContext {
	if budget.MaxUnits <= 0 {
		budget = domain.DefaultContextBudget()
	}

	assembled := &domain.AssembledContext{}
	perSource := make(map[string]int)
	droppedSeen := make(map[string]bool)
	drop := func(sourceID string) {
		if !droppedSeen[sourceID] {
			droppedSeen[sourceID] = true
			assembled.Dropped = append(assembled.Dropped, sourceID)
		}
	}

	for _, r := range results {
		allowance := budget.MaxUnits - assembled.Units
		if budget.PerSourceCap > 0 {
			if sourceAllowance := budget.PerSourceCap - perSource[r.SourceID]; sourceAllowance < allowance {
				allowance = sourceAllowance
			}
		}
		if allowance <= 0 {
			drop(r.SourceID)
			continue
		}

		text := r.Text
		truncated := false
		if units(text) > allowance {
			text = truncate(text, allowance, budget.Policy)
			truncated = true
			if text == "" {
				drop(r.SourceID)
				continue
			}
		}

		used := units(text)
		assembled.Items = append(assembled.Items, domain.ContextItem{
			SourceID:  r.SourceID,
			ChunkID:   r.ChunkID,
			Text:      text,
			Truncated: truncated,
		})
		assembled.Units += used
		perSource[r.SourceID] += used
	}

	return assembled
}

// units counts budget units in text. Units are runes, not bytes, so
// multi-byte text does not get over-charged.
func units(text string) int {
	return len([]rune(text))
}

// truncate cuts text down to at most maxUnits runes according to policy.
func truncate(text string, maxUnits int, policy domain.TruncationPolicy) string {
	runes := []rune(text)
	if len(runes) <= maxUnits {
		return text
	}
	head := string(runes[:maxUnits])

	if policy == domain.TruncateSentence {
		if cut := lastSentenceEnd(head); cut > 0 {
			return strings.TrimRight(head[:cut], " \n")
		}
		// No sentence boundary fits, fall back to a word boundary
		if idx := strings.LastIndexByte(head, ' '); idx > 0 {
			return strings.TrimRight(head[:idx], " \n")
		}
	}

	return head
}

// lastSentenceEnd returns the byte offset just after the last sentence ender
// in text, or 0 if there is none.
func lastSentenceEnd(text string) int {
	best := 0
	for _, ender := range []string{". ", "! ", "? ", ".\n", "!\n", "?\n"} {
		if idx := strings.LastIndex(text, ender); idx != -1 && idx+1 > best {
			best = idx + 1
		}
	}
	if best == 0 {
		// Sentence ender at the very end of the cut
		switch {
		case strings.HasSuffix(text, "."), strings.HasSuffix(text, "!"), strings.HasSuffix(text, "?"):
			best = len(text)
		}
	}
	return best
}
