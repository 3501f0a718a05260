package rag

import (
	"fmt"
	"strings"
	"unicode"
)

// AntonymPair names a family of opposing terms. Single-word terms match
// whole tokens only, so "no" never fires inside "nobody"; multi-word terms
// like "not approved" match by substring on the normalized text. Negative
// terms are checked first: an entry saying "not approved" lands on the
// negative side even though it contains "approved".
type AntonymPair struct {
	Name     string
	Positive []string
	Negative []string
}

// DefaultAntonymPairs covers the decision vocabulary that tends to flip
// between turns of a group discussion.
func DefaultAntonymPairs() []AntonymPair {
	return []AntonymPair{
		{
			Name:     "approve/reject",
			Positive: []string{"approve", "approved", "accept", "accepted"},
			Negative: []string{"not approved", "reject", "rejected", "denied", "declined"},
		},
		{
			Name:     "increase/decrease",
			Positive: []string{"increase", "increased", "raise", "grow"},
			Negative: []string{"decrease", "decreased", "reduce", "cut", "shrink"},
		},
		{
			Name:     "yes/no",
			Positive: []string{"yes"},
			Negative: []string{"no"},
		},
		{
			Name:     "enable/disable",
			Positive: []string{"enable", "enabled"},
			Negative: []string{"disable", "disabled"},
		},
	}
}

// Conflict records one opposing term family found across two turns. Indices
// refer to the scanned window: history entries first, the current message
// last.
type Conflict struct {
	Pair          string
	PositiveIndex int
	NegativeIndex int
}

// ConflictInsight renders the advisory line surfaced to the agent when the
// detector finds anything.
func ConflictInsight(conflicts []Conflict) string {
	if len(conflicts) == 0 {
		return ""
	}
	return fmt.Sprintf("Detected %d potential conflicts across recent turns", len(conflicts))
}

// ConflictDetectorOptions configure a ConflictDetector.
type ConflictDetectorOptions struct {
	// Pairs are the term families to scan for. Defaults to
	// DefaultAntonymPairs.
	Pairs []AntonymPair

	// Window is how many of the most recent history entries to scan.
	// Defaults to 6.
	Window int
}

// ConflictDetector is a heuristic safety net: it scans recent turns for
// opposing decision terms and surfaces a hint, nothing more. It never
// blocks a turn.
type ConflictDetector struct {
	pairs  []AntonymPair
	window int
}

// NewConflictDetector creates a ConflictDetector.
func NewConflictDetector(optFns ...func(o *ConflictDetectorOptions)) *ConflictDetector {
	opts := ConflictDetectorOptions{
		Pairs:  DefaultAntonymPairs(),
		Window: 6,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &ConflictDetector{
		pairs:  opts.Pairs,
		window: opts.Window,
	}
}

// Detect scans the most recent window of history entries plus the current
// message and reports at most one conflict per term family. Entries older
// than the window are ignored.
func (d *ConflictDetector) Detect(history []string, current string) []Conflict {
	start := len(history) - d.window
	if start < 0 {
		start = 0
	}

	entries := make([]string, 0, d.window+1)
	entries = append(entries, history[start:]...)
	if current != "" {
		entries = append(entries, current)
	}

	if len(entries) < 2 {
		return nil
	}

	sides := make([]int, len(entries))

	var conflicts []Conflict
	for _, pair := range d.pairs {
		for i, entry := range entries {
			sides[i] = pair.side(entry)
		}

		posIdx, negIdx := -1, -1
		for i, side := range sides {
			if side > 0 && posIdx < 0 {
				posIdx = i
			}
			if side < 0 && negIdx < 0 {
				negIdx = i
			}
		}

		if posIdx >= 0 && negIdx >= 0 {
			conflicts = append(conflicts, Conflict{
				Pair:          pair.Name,
				PositiveIndex: posIdx,
				NegativeIndex: negIdx,
			})
		}
	}

	return conflicts
}

// side reports which side of the pair the text lands on: +1 positive,
// -1 negative, 0 neither. Negative terms win when both would match.
func (p AntonymPair) side(text string) int {
	normalized := strings.ToLower(text)
	tokens := tokenSet(normalized)

	if containsAnyTerm(normalized, tokens, p.Negative) {
		return -1
	}
	if containsAnyTerm(normalized, tokens, p.Positive) {
		return 1
	}
	return 0
}

func containsAnyTerm(normalized string, tokens map[string]struct{}, terms []string) bool {
	for _, term := range terms {
		if strings.ContainsRune(term, ' ') {
			if strings.Contains(normalized, term) {
				return true
			}
			continue
		}
		if _, ok := tokens[term]; ok {
			return true
		}
	}
	return false
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
