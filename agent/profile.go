package agent

import "github.com/convergio/convergio-go/core"

// RetrievalFilter tunes memory retrieval for one agent: how many facts to
// keep, which memory types are mandatory or off-limits, and multiplicative
// score boosts for keywords the agent cares about.
type RetrievalFilter struct {
	// MaxFacts caps the survivors after ranking. Zero means no agent cap.
	MaxFacts int

	// RequiredTypes, when set, drops every context whose memory type is
	// not listed.
	RequiredTypes []core.MemoryType

	// ExcludedTypes drops contexts of the listed types.
	ExcludedTypes []core.MemoryType

	// KeywordBoosts multiplies a context's composite score once per matched
	// keyword (case-insensitive substring). Values above 1 promote, below 1
	// demote.
	KeywordBoosts map[string]float64
}

// Zero reports whether the filter has no effect.
func (f RetrievalFilter) Zero() bool {
	return f.MaxFacts == 0 && len(f.RequiredTypes) == 0 &&
		len(f.ExcludedTypes) == 0 && len(f.KeywordBoosts) == 0
}

// Profile is the orchestration-side behavior table for one agent key. The
// router scores queries against Keywords and Priority; the per-turn injector
// frames messages with Focus and Considerations; the retrieval pipeline
// applies the Retrieval filter. Keeping this a typed table (instead of
// dispatching on name strings scattered through the code) means a typo in an
// agent key surfaces as a missing profile, not an agent silently running
// with zero tools.
type Profile struct {
	// Keywords feed the router's match score (2 points per hit).
	Keywords []string

	// Priority is the router's additive bonus, breaking near-ties toward
	// agents with broader mandates.
	Priority float64

	// Tools the agent may call during a run.
	Tools []string

	// Focus is the one-line "Focus Area" appended to injected context.
	Focus string

	// Considerations are the aspects the agent is asked to weigh.
	Considerations []string

	// Retrieval filters this agent's memory retrieval.
	Retrieval RetrievalFilter
}

// Profiles maps agent keys to their behavior profiles.
type Profiles map[string]Profile

// For returns the profile for an agent key.
func (p Profiles) For(key string) (Profile, bool) {
	prof, ok := p[key]
	return prof, ok
}

// Well-known agent keys used by the default roster and the router's domain
// fallbacks. Deployments with custom rosters supply their own profile table
// and fallback keys.
const (
	KeyChiefOfStaff   = "ali-chief-of-staff"
	KeyCFO            = "amy-cfo"
	KeyTechArchitect  = "baccio-tech-architect"
	KeyProjectManager = "davide-project-manager"
	KeySecurityExpert = "luca-security-expert"
	KeyMarketing      = "sofia-marketing-strategist"
	KeyStartupAdvisor = "sam-startup-advisor"
)

// DefaultProfiles returns the built-in behavior table for the standard
// Convergio roster.
func DefaultProfiles() Profiles {
	return Profiles{
		KeyChiefOfStaff: {
			Keywords: []string{
				"coordinate", "orchestrate", "strategy", "strategic", "plan",
				"overview", "summary", "priorities", "organize", "team",
			},
			Priority: 2,
			Tools:    []string{"web_search", "vector_search", "business_intelligence"},
			Focus:    "strategic coordination and overall business alignment",
			Considerations: []string{
				"cross-functional dependencies", "stakeholder alignment", "execution priorities",
			},
			Retrieval: RetrievalFilter{
				MaxFacts: 8,
				KeywordBoosts: map[string]float64{
					"strategy": 1.3, "decision": 1.2, "priority": 1.2,
				},
			},
		},
		KeyCFO: {
			Keywords: []string{
				"budget", "cost", "revenue", "financial", "finance", "forecast",
				"profit", "margin", "roi", "expense", "cash", "quarterly",
			},
			Priority: 1.5,
			Tools:    []string{"web_search", "analytics", "business_intelligence"},
			Focus:    "financial implications",
			Considerations: []string{
				"costs", "ROI", "budget impact",
			},
			Retrieval: RetrievalFilter{
				MaxFacts: 6,
				KeywordBoosts: map[string]float64{
					"budget": 1.5, "cost": 1.4, "revenue": 1.4, "forecast": 1.2,
				},
			},
		},
		KeyTechArchitect: {
			Keywords: []string{
				"architecture", "technical", "system", "design", "scalability",
				"infrastructure", "api", "database", "integration", "performance",
			},
			Priority: 1.5,
			Tools:    []string{"web_search", "vector_search"},
			Focus:    "technical architecture and system design",
			Considerations: []string{
				"scalability", "maintainability", "integration complexity",
			},
			Retrieval: RetrievalFilter{
				MaxFacts:      6,
				ExcludedTypes: []core.MemoryType{core.MemoryTypeRelationships},
				KeywordBoosts: map[string]float64{
					"architecture": 1.4, "performance": 1.3, "scalability": 1.3,
				},
			},
		},
		KeyProjectManager: {
			Keywords: []string{
				"project", "timeline", "milestone", "deadline", "delivery",
				"schedule", "scope", "task", "sprint", "resource",
			},
			Priority: 1,
			Tools:    []string{"talent_query", "analytics"},
			Focus:    "delivery timelines and resourcing",
			Considerations: []string{
				"schedule risk", "scope changes", "team capacity",
			},
			Retrieval: RetrievalFilter{
				MaxFacts: 6,
				KeywordBoosts: map[string]float64{
					"deadline": 1.4, "milestone": 1.3, "blocker": 1.3,
				},
			},
		},
		KeySecurityExpert: {
			Keywords: []string{
				"security", "vulnerability", "compliance", "risk", "audit",
				"encryption", "breach", "threat", "privacy", "access",
			},
			Priority: 1.5,
			Tools:    []string{"web_search", "vector_search"},
			Focus:    "security posture and risk exposure",
			Considerations: []string{
				"threat surface", "compliance requirements", "data protection",
			},
			Retrieval: RetrievalFilter{
				MaxFacts:      5,
				ExcludedTypes: []core.MemoryType{core.MemoryTypeRelationships},
				KeywordBoosts: map[string]float64{
					"security": 1.5, "vulnerability": 1.5, "compliance": 1.3,
				},
			},
		},
		KeyMarketing: {
			Keywords: []string{
				"marketing", "brand", "campaign", "customer", "market",
				"positioning", "audience", "growth", "engagement", "launch",
			},
			Priority: 1,
			Tools:    []string{"web_search", "analytics"},
			Focus:    "market positioning and customer impact",
			Considerations: []string{
				"brand consistency", "audience fit", "channel mix",
			},
			Retrieval: RetrievalFilter{
				MaxFacts: 6,
				KeywordBoosts: map[string]float64{
					"customer": 1.3, "campaign": 1.3, "brand": 1.2,
				},
			},
		},
		KeyStartupAdvisor: {
			Keywords: []string{
				"startup", "mvp", "fundraising", "investor", "pitch",
				"product-market", "runway", "valuation", "seed", "venture",
			},
			Priority: 1,
			Tools:    []string{"web_search", "business_intelligence"},
			Focus:    "venture strategy and product-market fit",
			Considerations: []string{
				"runway", "validation speed", "investor expectations",
			},
			Retrieval: RetrievalFilter{
				MaxFacts: 6,
				KeywordBoosts: map[string]float64{
					"fundraising": 1.4, "investor": 1.3, "mvp": 1.2,
				},
			},
		},
	}
}

// DefaultRoster returns metadata matching DefaultProfiles, usable as a
// working agent set when no external loader is wired.
func DefaultRoster() []core.AgentMetadata {
	profiles := DefaultProfiles()
	roster := []core.AgentMetadata{
		{
			Key:         KeyChiefOfStaff,
			Name:        "Ali",
			Description: "Chief of staff coordinating the agent panel and owning strategic synthesis.",
			Persona:     "You are Ali, the chief of staff. You coordinate specialists, synthesize their input and keep answers decision-ready.",
			Tier:        core.TierStrategic,
		},
		{
			Key:         KeyCFO,
			Name:        "Amy",
			Description: "Chief financial officer covering budgets, forecasts and financial analysis.",
			Persona:     "You are Amy, the CFO. You reason about costs, revenue, budgets and financial risk with concrete numbers.",
			Tier:        core.TierStrategic,
		},
		{
			Key:         KeyTechArchitect,
			Name:        "Baccio",
			Description: "Technology architect covering system design, scalability and integrations.",
			Persona:     "You are Baccio, the technology architect. You design systems, weigh trade-offs and flag integration risk.",
			Tier:        core.TierStrategic,
		},
		{
			Key:         KeyProjectManager,
			Name:        "Davide",
			Description: "Project manager covering timelines, scope and delivery.",
			Persona:     "You are Davide, the project manager. You track milestones, surface schedule risk and keep scope honest.",
			Tier:        core.TierOperational,
		},
		{
			Key:         KeySecurityExpert,
			Name:        "Luca",
			Description: "Security expert covering vulnerabilities, compliance and risk.",
			Persona:     "You are Luca, the security expert. You assess threat surface, compliance gaps and data protection.",
			Tier:        core.TierOperational,
		},
		{
			Key:         KeyMarketing,
			Name:        "Sofia",
			Description: "Marketing strategist covering positioning, campaigns and growth.",
			Persona:     "You are Sofia, the marketing strategist. You think in audiences, channels and brand consistency.",
			Tier:        core.TierOperational,
		},
		{
			Key:         KeyStartupAdvisor,
			Name:        "Sam",
			Description: "Startup advisor covering venture strategy, fundraising and MVPs.",
			Persona:     "You are Sam, the startup advisor. You optimize for validation speed, runway and investor readiness.",
			Tier:        core.TierSupport,
		},
	}
	for i := range roster {
		if prof, ok := profiles[roster[i].Key]; ok {
			roster[i].Tools = append([]string(nil), prof.Tools...)
			roster[i].ExpertiseKeywords = append([]string(nil), prof.Keywords...)
		}
	}
	return roster
}
