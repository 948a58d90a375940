package domain

// TruncationPolicy decides where a partially fitting excerpt is cut.
type TruncationPolicy string

const (
	// TruncateHead cuts at exactly the remaining budget.
	TruncateHead TruncationPolicy = "head"

	// TruncateSentence cuts at the last sentence end that still fits.
	TruncateSentence TruncationPolicy = "sentence"
)

// ContextBudget bounds the assembled context block.
// Units are runes of excerpt text.
type ContextBudget struct {
	// MaxUnits is the total budget for all excerpts combined.
	MaxUnits int `json:"max_units"`

	// PerSourceCap limits how many units a single source_id may consume.
	// Zero means no per-source cap.
	PerSourceCap int `json:"per_source_cap"`

	// Policy selects the truncation boundary for partial fits.
	Policy TruncationPolicy `json:"policy"`
}

// DefaultContextBudget returns sensible defaults for prompt injection.
func DefaultContextBudget() ContextBudget {
	return ContextBudget{
		MaxUnits:     4000,
		PerSourceCap: 1500,
		Policy:       TruncateSentence,
	}
}

// ContextItem is one excerpt included in the assembled block.
type ContextItem struct {
	SourceID  string `json:"source_id"`
	ChunkID   string `json:"chunk_id"`
	Text      string `json:"text"`
	Truncated bool   `json:"truncated"`
}

// AssembledContext is the ordered, budget-bounded context block plus the
// citations used and the sources dropped for budget reasons. Ephemeral,
// recomputed per query.
type AssembledContext struct {
	Items   []ContextItem `json:"items"`
	Dropped []string      `json:"dropped,omitempty"` // source_ids that did not fit
	Units   int           `json:"units"`             // total excerpt runes used
}

// SourceIDs returns the distinct source ids cited by the block, in item order.
func (c *AssembledContext) SourceIDs() []string {
	seen := make(map[string]bool, len(c.Items))
	var ids []string
	for _, item := range c.Items {
		if !seen[item.SourceID] {
			seen[item.SourceID] = true
			ids = append(ids, item.SourceID)
		}
	}
	return ids
}
