package router

import "strings"

// multiAgentPatterns are phrasings that ask for several perspectives, so a
// single agent would shortchange the answer.
var multiAgentPatterns = []string{
	"compare", "versus", " vs ", "pros and cons", "trade-off", "tradeoffs",
	"team opinion", "what does the team", "discuss", "debate",
	"different perspectives", "multiple perspectives", "weigh in",
}

// ShouldUseSingleAgent reports whether one agent suffices for the query.
// It returns false when the query matches comparison or discussion
// patterns. Pure function of the query text.
func ShouldUseSingleAgent(query string) bool {
	lower := strings.ToLower(query)
	for _, p := range multiAgentPatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}

// complexityFloors maps query patterns to the minimum number of turns the
// runner should allow, so multi-step deliberation is not truncated to a
// single exchange. Checked in order; the highest matching floor wins.
var complexityFloors = []struct {
	pattern string
	turns   int
}{
	{"comprehensive", 5},
	{"roadmap", 4},
	{"forecast", 4},
	{"strategy", 4},
	{"plan", 3},
	{"analyze", 3},
	{"analysis", 3},
	{"evaluate", 3},
	{"compare", 2},
	{"review", 2},
	{"assess", 2},
}

// MinimumTurns returns the turn floor for a query: 2-5 for deliberative
// phrasings, 1 otherwise. Feeds the runner's turn budget alongside the
// decision plan's maximum.
func MinimumTurns(query string) int {
	lower := strings.ToLower(query)
	floor := 1
	for _, cf := range complexityFloors {
		if strings.Contains(lower, cf.pattern) && cf.turns > floor {
			floor = cf.turns
		}
	}
	return floor
}
