package memory

import (
	"math"
	"strings"

	"github.com/convergio/convergio-go/core"
)

// defaultImportanceKeywords are content markers that raise an entry's score
// by 0.1 per distinct match.
var defaultImportanceKeywords = []string{
	"important", "critical", "urgent", "deadline", "decision",
	"approved", "rejected", "budget", "revenue", "target",
	"risk", "escalate", "remember", "preference", "confidential",
}

// defaultTypeBias seeds the score per memory type. Preferences and
// relationships stay useful far longer than a passing conversational turn,
// so they start higher.
var defaultTypeBias = map[core.MemoryType]float64{
	core.MemoryTypePreferences:   0.3,
	core.MemoryTypeRelationships: 0.25,
	core.MemoryTypeKnowledge:     0.2,
	core.MemoryTypeContext:       0.1,
	core.MemoryTypeConversation:  0.05,
}

// ImportanceScorerOptions configure an ImportanceScorer.
type ImportanceScorerOptions struct {
	// Keywords raise the score by 0.1 per match.
	Keywords []string
	// TypeBias is the base score per memory type.
	TypeBias map[core.MemoryType]float64
}

// ImportanceScorer assigns a creation-time importance score to memory
// content using additive keyword and shape heuristics. Scores are capped at
// 1.0 and stored verbatim on the entry; retrieval never rescores them.
type ImportanceScorer struct {
	keywords []string
	typeBias map[core.MemoryType]float64
}

// NewImportanceScorer creates a scorer with the default keyword set and
// type biases.
func NewImportanceScorer(optFns ...func(o *ImportanceScorerOptions)) *ImportanceScorer {
	opts := ImportanceScorerOptions{
		Keywords: defaultImportanceKeywords,
		TypeBias: defaultTypeBias,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ImportanceScorer{keywords: opts.Keywords, typeBias: opts.TypeBias}
}

// Score evaluates content for the given memory type and metadata. The
// result is always in [0, 1].
func (s *ImportanceScorer) Score(memType core.MemoryType, content string, metadata map[string]string) float64 {
	score := s.typeBias[memType]
	lower := strings.ToLower(content)

	if len(content) > 100 {
		score += 0.1
	} else if len(content) > 50 {
		score += 0.05
	}

	for _, kw := range s.keywords {
		if strings.Contains(lower, kw) {
			score += 0.1
		}
	}

	if strings.Contains(content, "?") {
		score += 0.05
	}
	if strings.Contains(content, "!") {
		score += 0.05
	}

	switch metadata["priority"] {
	case "high":
		score += 0.2
	case "medium":
		score += 0.1
	}

	return math.Min(score, 1.0)
}
