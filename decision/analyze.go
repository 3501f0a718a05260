package decision

import (
	"regexp"
	"strings"
)

// Traits is the pure classification of one message against the pattern
// families the planner cares about. No field depends on anything but the
// message text.
type Traits struct {
	// Realtime: the message asks about "now" (latest, current, breaking).
	Realtime bool

	// HasDate: the message references an explicit period (year, quarter,
	// fiscal year, month name).
	HasDate bool

	// Factual: the message asks for verifiable facts or statistics.
	Factual bool

	// CompanyFinancial: the message pairs a company reference with a
	// financial metric.
	CompanyFinancial bool

	// GeneralKnowledge: the message asks for an explanation of a general
	// concept rather than a specific fact lookup.
	GeneralKnowledge bool

	// InternalData: the message references internal entities (talent,
	// projects, engagements, "our data").
	InternalData bool

	// SimilaritySearch: the message asks for similar or related documents.
	SimilaritySearch bool
}

var (
	realtimeTerms = []string{
		"latest", "current", "right now", "today", "breaking",
		"real-time", "realtime", "as of now", "this week", "recent",
	}
	factualTerms = []string{
		"how many", "how much", "statistics", "figure", "number of",
		"percentage", "what is the", "what was the", "when did", "who is",
	}
	companyTerms = []string{
		"microsoft", "apple", "google", "amazon", "meta", "nvidia",
		"company", "corporation", "inc.", "their stock", "competitor",
	}
	financialMetricTerms = []string{
		"revenue", "earnings", "profit", "income", "market cap", "stock price",
		"valuation", "margin", "ebitda", "guidance",
	}
	generalKnowledgeTerms = []string{
		"explain", "how does", "how do", "what does it mean", "why do",
		"describe", "overview of", "definition of", "teach me", "how it works",
	}
	internalEntityTerms = []string{
		"talent", "employee", "headcount", "our team", "our project",
		"engagement", "our client", "our data", "internal",
	}
	similarityTerms = []string{
		"similar", "related", "find documents", "like this", "resembles",
	}

	// Years 1990-2099, quarters, fiscal years, and month names count as
	// explicit date references.
	dateRe = regexp.MustCompile(`(?i)\b(19|20)\d{2}\b|\bq[1-4]\b|\bfy\s?\d{2,4}\b|\b(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
)

// Analyze classifies a message. Pure and deterministic.
func Analyze(message string) Traits {
	lower := strings.ToLower(message)

	t := Traits{
		Realtime:         containsAny(lower, realtimeTerms),
		HasDate:          dateRe.MatchString(message),
		Factual:          containsAny(lower, factualTerms),
		GeneralKnowledge: containsAny(lower, generalKnowledgeTerms),
		InternalData:     containsAny(lower, internalEntityTerms),
		SimilaritySearch: containsAny(lower, similarityTerms),
	}
	t.CompanyFinancial = containsAny(lower, companyTerms) && containsAny(lower, financialMetricTerms)
	return t
}

func containsAny(lower string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
