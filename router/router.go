// Package router decides which agent(s) should handle an incoming message.
//
// Selection is deliberately heuristic: case-insensitive keyword scoring
// against each agent's profile, an explicit-hint override, and domain
// fallbacks when nothing scores. The functions here are pure over their
// inputs so routing stays unit-testable without any I/O.
package router

import (
	"sort"
	"strings"

	"github.com/convergio/convergio-go/agent"
	"github.com/convergio/convergio-go/core"
	"github.com/convergio/convergio-go/logging"
)

// Fallbacks names the agent keys used when keyword scoring finds nothing:
// financial phrasing routes to Financial, technical phrasing to Technical,
// everything else to Coordinator.
type Fallbacks struct {
	Financial   string
	Technical   string
	Coordinator string
}

// DefaultFallbacks routes to the standard roster.
func DefaultFallbacks() Fallbacks {
	return Fallbacks{
		Financial:   agent.KeyCFO,
		Technical:   agent.KeyTechArchitect,
		Coordinator: agent.KeyChiefOfStaff,
	}
}

// Options configure a Router.
type Options struct {
	Profiles  agent.Profiles
	Fallbacks Fallbacks
	Logger    logging.Logger
}

// Router scores queries against agent profiles and picks a handler.
type Router struct {
	profiles  agent.Profiles
	fallbacks Fallbacks
	logger    logging.Logger
}

// New creates a Router over the default profile table.
func New(optFns ...func(o *Options)) *Router {
	opts := Options{
		Profiles:  agent.DefaultProfiles(),
		Fallbacks: DefaultFallbacks(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{
		profiles:  opts.Profiles,
		fallbacks: opts.Fallbacks,
		logger:    logging.OrNoop(opts.Logger),
	}
}

// Decision explains a selection for the orchestration result's routing trail.
type Decision struct {
	AgentKey string  `json:"agent_key"`
	Score    float64 `json:"score"`
	Reason   string  `json:"reason"`
}

// Select picks the agent for a query. An explicit hint naming an available
// agent (case-insensitive) always wins over scoring. Otherwise each
// available agent scores 2 points per profile keyword found in the query
// plus its priority bonus; the highest score wins, with equal scores
// resolved lexicographically by agent key so selection is deterministic.
// When no agent scores, domain fallbacks apply. Returns nil only when
// available is empty.
func (r *Router) Select(query string, available []core.AgentMetadata, hint string) (*core.AgentMetadata, *Decision) {
	if len(available) == 0 {
		return nil, nil
	}

	if hint != "" {
		for i := range available {
			if strings.EqualFold(available[i].Name, hint) || strings.EqualFold(available[i].Key, hint) {
				r.logger.Debug("router selected hinted agent", "agent", available[i].Key)
				return &available[i], &Decision{
					AgentKey: available[i].Key,
					Reason:   "explicit user selection",
				}
			}
		}
	}

	// Stable score order regardless of input ordering.
	sorted := make([]core.AgentMetadata, len(available))
	copy(sorted, available)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	lower := strings.ToLower(query)

	var (
		best      *core.AgentMetadata
		bestScore float64
	)
	for i := range sorted {
		score := r.score(lower, sorted[i])
		if score > bestScore {
			bestScore = score
			best = &sorted[i]
		}
	}

	if best != nil {
		r.logger.Debug("router selected agent by score", "agent", best.Key, "score", bestScore)
		return best, &Decision{
			AgentKey: best.Key,
			Score:    bestScore,
			Reason:   "keyword match",
		}
	}

	key, reason := r.fallbackKey(lower)
	for i := range sorted {
		if sorted[i].Key == key {
			r.logger.Debug("router selected fallback agent", "agent", key, "reason", reason)
			return &sorted[i], &Decision{AgentKey: key, Reason: reason}
		}
	}

	// Fallback agent not in the available set: take the first by key so the
	// conversation still gets a handler.
	r.logger.Warn("router fallback agent unavailable, using first by key", "wanted", key)
	return &sorted[0], &Decision{AgentKey: sorted[0].Key, Reason: "first available"}
}

// Panel picks up to n agents for a multi-perspective exchange: every agent
// with a positive keyword score, in descending score order with equal scores
// resolved lexicographically by key. When fewer than two agents score, seats
// are filled in key order so a discussion always has a counterpart.
func (r *Router) Panel(query string, available []core.AgentMetadata, n int) []core.AgentMetadata {
	if len(available) == 0 || n <= 0 {
		return nil
	}

	sorted := make([]core.AgentMetadata, len(available))
	copy(sorted, available)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	lower := strings.ToLower(query)

	type scored struct {
		agent core.AgentMetadata
		score float64
	}
	candidates := make([]scored, 0, len(sorted))
	for _, a := range sorted {
		candidates = append(candidates, scored{agent: a, score: r.score(lower, a)})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	var panel []core.AgentMetadata
	for _, c := range candidates {
		if len(panel) == n {
			break
		}
		if c.score > 0 {
			panel = append(panel, c.agent)
		}
	}

	if len(panel) < 2 {
		for _, c := range candidates {
			if len(panel) >= 2 || len(panel) == n {
				break
			}
			if c.score == 0 {
				panel = append(panel, c.agent)
			}
		}
	}

	r.logger.Debug("router panel selected", "agents", len(panel))
	return panel
}

// score computes 2 points per matched keyword plus the profile's priority
// bonus. Agents without a profile fall back to their expertise keywords with
// no bonus, so externally loaded rosters still route.
func (r *Router) score(lowerQuery string, a core.AgentMetadata) float64 {
	keywords := a.ExpertiseKeywords
	var priority float64
	if prof, ok := r.profiles.For(a.Key); ok {
		keywords = prof.Keywords
		priority = prof.Priority
	}

	matches := 0
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lowerQuery, strings.ToLower(kw)) {
			matches++
		}
	}
	if matches == 0 {
		return 0
	}
	return 2*float64(matches) + priority
}

var (
	financialTerms = []string{
		"money", "payment", "invoice", "salary", "tax", "accounting",
		"budget", "cost", "revenue", "profit", "financial",
	}
	technicalTerms = []string{
		"code", "software", "bug", "deploy", "server", "cloud",
		"architecture", "technical", "engineering", "database",
	}
)

func (r *Router) fallbackKey(lowerQuery string) (string, string) {
	for _, term := range financialTerms {
		if strings.Contains(lowerQuery, term) {
			return r.fallbacks.Financial, "financial domain fallback"
		}
	}
	for _, term := range technicalTerms {
		if strings.Contains(lowerQuery, term) {
			return r.fallbacks.Technical, "technical domain fallback"
		}
	}
	return r.fallbacks.Coordinator, "coordinator fallback"
}
