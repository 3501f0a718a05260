// Package decision computes a per-message execution plan: which external
// data sources a query needs, which tools to expose, the model to use, the
// turn ceiling and the budget slice. The plan is independent of which agent
// ends up executing it.
package decision

import (
	"github.com/convergio/convergio-go/internal/util"
	"github.com/convergio/convergio-go/logging"
)

// Source identifies an external capability a query needs.
type Source string

// Known sources, in the priority order they are appended to plans. LLM
// reasoning is always available as the final fallback.
const (
	SourceWeb      Source = "web"
	SourceVector   Source = "vector"
	SourceDatabase Source = "database"
	SourceLLM      Source = "llm"
)

// MinBudgetUSD floors every plan's budget so a tiny global limit cannot
// produce degenerate zero-budget runs.
const MinBudgetUSD = 0.5

// Plan is the per-message execution policy. Sources always end with
// SourceLLM and Tools carries no duplicates.
type Plan struct {
	Sources        []Source          `json:"sources"`
	Tools          []string          `json:"tools"`
	Model          string            `json:"model"`
	MaxTurns       int               `json:"max_turns"`
	BudgetUSD      float64           `json:"budget_usd"`
	Rationale      string            `json:"rationale"`
	Confidence     float64           `json:"confidence"`
	NeedsWebSearch bool              `json:"needs_web_search"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// HasSource reports whether the plan requires the given source.
func (p *Plan) HasSource(s Source) bool {
	for _, src := range p.Sources {
		if src == s {
			return true
		}
	}
	return false
}

// Options configure the decision engine.
type Options struct {
	// Model is the completion model id attached to every plan.
	Model string

	// MaxTurns is the global turn ceiling attached to every plan. It is
	// configuration, not a per-message decision.
	MaxTurns int

	// TotalBudgetUSD is the global spend ceiling; each conversation is
	// allotted at most 10% of it.
	TotalBudgetUSD float64

	Logger logging.Logger
}

// Engine plans message execution.
type Engine struct {
	model       string
	maxTurns    int
	totalBudget float64
	logger      logging.Logger
}

// NewEngine creates a decision engine.
func NewEngine(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Model:          "gpt-4o-mini",
		MaxTurns:       10,
		TotalBudgetUSD: 50,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{
		model:       opts.Model,
		maxTurns:    opts.MaxTurns,
		totalBudget: opts.TotalBudgetUSD,
		logger:      logging.OrNoop(opts.Logger),
	}
}

// toolsBySource maps a required source to the tools that serve it, in the
// order they should be offered.
var toolsBySource = map[Source][]string{
	SourceWeb:      {"web_search"},
	SourceVector:   {"vector_search"},
	SourceDatabase: {"talent_query", "analytics"},
}

// Plan computes the execution plan for a message. The policy is applied in
// priority order, first match wins:
//
//  1. realtime or explicitly dated query: web required, confidence 0.9
//  2. company + financial metric: web required, confidence 0.85
//  3. factual but not general knowledge: web and vector suggested, 0.7
//  4. general knowledge / explanatory: no external source, 0.8
//  5. no strong signal: LLM-only reasoning
//
// Independently, internal-entity references append a database source and
// similarity phrasing appends vector search. SourceLLM is always appended
// last.
func (e *Engine) Plan(message string, context map[string]string) *Plan {
	traits := Analyze(message)

	var (
		sources    []Source
		rationale  string
		confidence float64
		needsWeb   bool
	)

	switch {
	case traits.Realtime || traits.HasDate:
		sources = append(sources, SourceWeb)
		rationale = "realtime or dated query requires fresh web data"
		confidence = 0.9
		needsWeb = true
	case traits.CompanyFinancial:
		sources = append(sources, SourceWeb)
		rationale = "company financial metrics require web lookup"
		confidence = 0.85
		needsWeb = true
	case traits.Factual && !traits.GeneralKnowledge:
		sources = append(sources, SourceWeb, SourceVector)
		rationale = "factual query benefits from web and vector search"
		confidence = 0.7
		needsWeb = true
	case traits.GeneralKnowledge:
		rationale = "general knowledge query answerable from model reasoning"
		confidence = 0.8
	default:
		rationale = "no strong signal, defaulting to model reasoning"
		confidence = 0.5
	}

	if traits.InternalData {
		sources = append(sources, SourceDatabase)
		rationale += "; internal entities require database access"
	}
	if traits.SimilaritySearch {
		sources = append(sources, SourceVector)
		rationale += "; similarity phrasing requires vector search"
	}

	// Reasoning is always the final fallback.
	sources = append(sources, SourceLLM)
	sources = uniqueSources(sources)

	var tools []string
	for _, src := range sources {
		tools = append(tools, toolsBySource[src]...)
	}
	if traits.CompanyFinancial {
		tools = append(tools, "business_intelligence")
	}
	tools = util.UniqueStrings(tools)

	plan := &Plan{
		Sources:        sources,
		Tools:          tools,
		Model:          e.model,
		MaxTurns:       e.maxTurns,
		BudgetUSD:      e.budget(),
		Rationale:      rationale,
		Confidence:     confidence,
		NeedsWebSearch: needsWeb,
	}
	if len(context) > 0 {
		plan.Metadata = make(map[string]string, len(context))
		for k, v := range context {
			plan.Metadata[k] = v
		}
	}

	e.logger.Debug("decision plan computed",
		"sources", len(plan.Sources),
		"tools", len(plan.Tools),
		"confidence", plan.Confidence,
		"needs_web", plan.NeedsWebSearch,
	)
	return plan
}

// budget allots 10% of the global ceiling per conversation, floored at
// MinBudgetUSD and never above the ceiling itself.
func (e *Engine) budget() float64 {
	b := 0.1 * e.totalBudget
	if b > e.totalBudget {
		b = e.totalBudget
	}
	if b < MinBudgetUSD {
		b = MinBudgetUSD
	}
	return b
}

func uniqueSources(sources []Source) []Source {
	seen := make(map[Source]struct{}, len(sources))
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	// llm stays last even after dedup removed a duplicate ahead of it.
	for i, s := range out {
		if s == SourceLLM && i != len(out)-1 {
			out = append(append(out[:i], out[i+1:]...), SourceLLM)
			break
		}
	}
	return out
}
