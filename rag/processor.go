// Package rag scores stored memories against the current query and renders
// the survivors as injectable context. The pipeline is retrieve, score,
// threshold, filter, dedup, rank, truncate; every stage degrades instead of
// failing, so a conversation never stalls on a retrieval hiccup.
package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/convergio/convergio-go/agent"
	"github.com/convergio/convergio-go/core"
	"github.com/convergio/convergio-go/embedding"
	"github.com/convergio/convergio-go/internal/cache"
	"github.com/convergio/convergio-go/internal/util"
	"github.com/convergio/convergio-go/logging"
)

const (
	// defaultLimit bounds how many contexts a retrieval returns when the
	// caller does not say.
	defaultLimit = 5

	// maxItemChars truncates each formatted context item.
	maxItemChars = 300
)

// Query is one retrieval request against the memory store.
type Query struct {
	// UserID scopes retrieval; required.
	UserID string

	// AgentKey pulls in the agent's own relationship and preference
	// memories as extra candidates. Optional.
	AgentKey string

	// AgentTier feeds the dynamic threshold. Empty means operational.
	AgentTier core.AgentTier

	// Text is what the contexts are scored against.
	Text string

	// Limit caps survivors; <= 0 means the default of 5.
	Limit int

	// Threshold is the caller's floor. The effective bar is the larger of
	// this and the computed dynamic threshold.
	Threshold float64

	// TurnNumber relaxes the dynamic threshold as a conversation runs.
	TurnNumber int

	// Weights overrides the processor's blend for this call.
	Weights *Weights

	// Filter applies the agent's retrieval tuning.
	Filter agent.RetrievalFilter

	// IncludeConversationHistory retrieves conversation and context
	// memories; IncludeKnowledgeBase retrieves knowledge and relationship
	// memories. Neither set means both.
	IncludeConversationHistory bool
	IncludeKnowledgeBase       bool
}

// memoryTypes derives the primary retrieval types from the query flags.
func (q Query) memoryTypes() []core.MemoryType {
	if !q.IncludeConversationHistory && !q.IncludeKnowledgeBase {
		return []core.MemoryType{
			core.MemoryTypeConversation, core.MemoryTypeContext,
			core.MemoryTypeKnowledge, core.MemoryTypeRelationships,
		}
	}

	var types []core.MemoryType
	if q.IncludeConversationHistory {
		types = append(types, core.MemoryTypeConversation, core.MemoryTypeContext)
	}
	if q.IncludeKnowledgeBase {
		types = append(types, core.MemoryTypeKnowledge, core.MemoryTypeRelationships)
	}
	return types
}

// ProcessorOptions configure a Processor.
type ProcessorOptions struct {
	// Weights is the default composite blend. Defaults to DefaultWeights.
	Weights Weights

	// RelationshipWeights scores the agent's relationship/preference
	// extras. Defaults to RelationshipWeights().
	RelationshipWeights Weights

	// Threshold computes the per-turn relevance bar.
	Threshold DynamicThreshold

	// OverFetchFactor retrieves factor*limit candidates so scoring has
	// slack to discard. Defaults to 2.
	OverFetchFactor int

	// CacheTTL bounds how long formatted results are reused. Defaults to
	// 5 minutes; <= 0 disables the cache.
	CacheTTL time.Duration

	// SemanticDedup switches duplicate removal from exact content hashing
	// to embedding similarity at SemanticThreshold (default 0.85).
	SemanticDedup     bool
	SemanticThreshold float64

	// Logger receives retrieval telemetry. Defaults to a no-op.
	Logger logging.Logger
}

// Processor turns memory entries into ranked, deduplicated, formatted
// context. Safe for concurrent use.
type Processor struct {
	store    core.MemoryStore
	embedder embedding.Provider
	options  ProcessorOptions
	logger   logging.Logger
	cache    *cache.Expiring[string, string]
	now      func() time.Time
}

// NewProcessor creates a Processor over the given store. The embedder is
// optional: without one (or when embedding fails) relevance falls back to
// token overlap.
func NewProcessor(store core.MemoryStore, embedder embedding.Provider, optFns ...func(o *ProcessorOptions)) *Processor {
	options := ProcessorOptions{
		Weights:             DefaultWeights(),
		RelationshipWeights: RelationshipWeights(),
		Threshold:           DefaultDynamicThreshold(),
		OverFetchFactor:     2,
		CacheTTL:            5 * time.Minute,
		SemanticThreshold:   0.85,
	}

	for _, fn := range optFns {
		fn(&options)
	}

	if options.OverFetchFactor < 1 {
		options.OverFetchFactor = 1
	}

	return &Processor{
		store:    store,
		embedder: embedder,
		options:  options,
		logger:   logging.OrNoop(options.Logger),
		cache:    cache.New[string, string](options.CacheTTL),
		now:      time.Now,
	}
}

// BuildMemoryContext retrieves, scores and formats context for the query as
// a single text block. It returns "" with a nil error when nothing clears
// the bar: missing context is a normal outcome, not a failure. Formatted
// results are cached per (user, query, agent, memory types).
func (p *Processor) BuildMemoryContext(ctx context.Context, q Query) (string, error) {
	key := p.cacheKey(q)
	if cached, ok := p.cache.Get(key); ok {
		return cached, nil
	}

	contexts, err := p.Retrieve(ctx, q)
	if err != nil {
		return "", err
	}
	if len(contexts) == 0 {
		return "", nil
	}

	formatted := FormatContexts(contexts)
	p.cache.Set(key, formatted)

	return formatted, nil
}

// Retrieve runs the retrieval pipeline and returns the surviving contexts
// ranked by composite score, at most q.Limit of them. Survivor access
// counts are reinforced in the store.
func (p *Processor) Retrieve(ctx context.Context, q Query) ([]Context, error) {
	started := time.Now()

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	weights := p.options.Weights
	if q.Weights != nil {
		weights = *q.Weights
	}

	queryEmbedding := p.embedQuery(ctx, q.Text)

	primary, err := p.store.Search(ctx, core.MemoryQuery{
		UserID: q.UserID,
		Types:  q.memoryTypes(),
		Limit:  limit * p.options.OverFetchFactor,
	})
	if err != nil {
		return nil, fmt.Errorf("rag: search memories: %w", err)
	}

	now := p.now()
	bar := math.Max(q.Threshold, p.options.Threshold.Calculate(q.AgentTier, q.TurnNumber))

	candidates := len(primary)
	seen := make(map[string]struct{}, len(primary))
	contexts := make([]Context, 0, len(primary))

	for _, entry := range primary {
		seen[entry.ID] = struct{}{}
		if c := p.score(entry, q.Text, queryEmbedding, weights, now); c.CompositeScore > bar {
			contexts = append(contexts, c)
		}
	}

	// The agent's own relationship and preference memories join the pool
	// with an importance-heavy blend: who the user is matters more to these
	// than how well they match the current question.
	if q.AgentKey != "" {
		extras, err := p.store.Search(ctx, core.MemoryQuery{
			UserID:  q.UserID,
			AgentID: q.AgentKey,
			Types:   []core.MemoryType{core.MemoryTypeRelationships, core.MemoryTypePreferences},
			Limit:   limit,
		})
		if err != nil {
			return nil, fmt.Errorf("rag: search agent memories: %w", err)
		}

		for _, entry := range extras {
			if _, ok := seen[entry.ID]; ok {
				continue
			}
			seen[entry.ID] = struct{}{}
			candidates++

			if c := p.score(entry, q.Text, queryEmbedding, p.options.RelationshipWeights, now); c.CompositeScore > bar {
				contexts = append(contexts, c)
			}
		}
	}

	contexts = applyFilter(contexts, q.Filter)

	sort.SliceStable(contexts, func(i, j int) bool {
		return contexts[i].CompositeScore > contexts[j].CompositeScore
	})

	if p.options.SemanticDedup {
		contexts = DedupSemantic(ctx, p.embedder, contexts, p.options.SemanticThreshold)
	} else {
		contexts = DedupExact(contexts)
	}

	if q.Filter.MaxFacts > 0 && q.Filter.MaxFacts < limit {
		limit = q.Filter.MaxFacts
	}
	if len(contexts) > limit {
		contexts = contexts[:limit]
	}

	p.touch(ctx, q.UserID, contexts, now)

	p.logger.Debug("rag.retrieval",
		"agent", q.AgentKey,
		"turn", q.TurnNumber,
		"candidates", candidates,
		"survivors", len(contexts),
		"quality", averageComposite(contexts),
		"duration", time.Since(started),
	)

	return contexts, nil
}

func (p *Processor) cacheKey(q Query) string {
	types := q.memoryTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}

	return strings.Join([]string{
		q.UserID,
		util.ContentHash(q.Text),
		q.AgentKey,
		strings.Join(names, ","),
	}, "|")
}

// embedQuery returns the query embedding or nil, never an error: scoring
// falls back to token overlap when embeddings are unavailable.
func (p *Processor) embedQuery(ctx context.Context, text string) []float64 {
	if p.embedder == nil || text == "" {
		return nil
	}

	emb, err := p.embedder.Embed(ctx, text)
	if err != nil {
		p.logger.Warn("rag.embed_query_failed", "error", err)
		return nil
	}
	return emb
}

func (p *Processor) score(entry *core.MemoryEntry, query string, queryEmbedding []float64, w Weights, now time.Time) Context {
	relevance := relevanceScore(query, queryEmbedding, entry)
	importance := util.Clamp(entry.ImportanceScore, 0, 1)
	recency := RecencyScore(entry.CreatedAt, now)

	return Context{
		ID:              entry.ID,
		Content:         entry.Content,
		RelevanceScore:  relevance,
		ImportanceScore: importance,
		RecencyScore:    recency,
		CompositeScore:  w.Composite(relevance, importance, recency),
		SourceAgent:     entry.AgentID,
		MemoryType:      entry.Type,
		ConversationID:  entry.ConversationID,
		Timestamp:       entry.CreatedAt,
	}
}

func relevanceScore(query string, queryEmbedding []float64, entry *core.MemoryEntry) float64 {
	if len(queryEmbedding) > 0 && len(entry.Embedding) > 0 {
		return util.Clamp(embedding.CosineSimilarity(queryEmbedding, entry.Embedding), 0, 1)
	}
	return embedding.TokenOverlapRatio(query, entry.Content)
}

// applyFilter enforces the agent's type constraints and keyword boosts.
// MaxFacts is applied later, at truncation.
func applyFilter(contexts []Context, f agent.RetrievalFilter) []Context {
	if f.Zero() {
		return contexts
	}

	out := contexts[:0]
	for _, c := range contexts {
		if len(f.RequiredTypes) > 0 && !containsType(f.RequiredTypes, c.MemoryType) {
			continue
		}
		if containsType(f.ExcludedTypes, c.MemoryType) {
			continue
		}

		if len(f.KeywordBoosts) > 0 {
			lower := strings.ToLower(c.Content)
			boost := 1.0
			for kw, mult := range f.KeywordBoosts {
				if strings.Contains(lower, strings.ToLower(kw)) {
					boost *= mult
				}
			}
			c.CompositeScore = util.Clamp(c.CompositeScore*boost, 0, 1)
		}

		out = append(out, c)
	}
	return out
}

func containsType(types []core.MemoryType, t core.MemoryType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// touch reinforces survivor access counts. Failures are logged and
// swallowed: reinforcement is bookkeeping, not part of the result.
func (p *Processor) touch(ctx context.Context, userID string, contexts []Context, at time.Time) {
	if len(contexts) == 0 {
		return
	}

	ids := make([]string, len(contexts))
	for i, c := range contexts {
		ids[i] = c.ID
	}

	if err := p.store.Touch(ctx, userID, ids, at); err != nil {
		p.logger.Warn("rag.touch_failed", "user_id", userID, "error", err)
	}
}

// typeOrder fixes the section order of formatted output.
var typeOrder = []core.MemoryType{
	core.MemoryTypeConversation,
	core.MemoryTypeContext,
	core.MemoryTypeKnowledge,
	core.MemoryTypeRelationships,
	core.MemoryTypePreferences,
}

var typeHeadings = map[core.MemoryType]string{
	core.MemoryTypeConversation:  "Conversation history",
	core.MemoryTypeContext:       "Working context",
	core.MemoryTypeKnowledge:     "Knowledge base",
	core.MemoryTypeRelationships: "Relationships",
	core.MemoryTypePreferences:   "Preferences",
}

// FormatContexts renders ranked contexts as one text block grouped by
// memory type, each item truncated with its relevance and importance, and a
// closing quality line. Returns "" for an empty slice.
func FormatContexts(contexts []Context) string {
	if len(contexts) == 0 {
		return ""
	}

	grouped := make(map[core.MemoryType][]Context)
	for _, c := range contexts {
		grouped[c.MemoryType] = append(grouped[c.MemoryType], c)
	}

	var b strings.Builder
	b.WriteString("Relevant context from memory:\n")

	writeGroup := func(heading string, group []Context) {
		fmt.Fprintf(&b, "\n%s:\n", heading)
		for _, c := range group {
			fmt.Fprintf(&b, "- %s (relevance %.2f, importance %.2f)\n",
				util.Truncate(c.Content, maxItemChars), c.RelevanceScore, c.ImportanceScore)
		}
	}

	for _, t := range typeOrder {
		if group, ok := grouped[t]; ok {
			writeGroup(typeHeadings[t], group)
			delete(grouped, t)
		}
	}

	// Custom memory types a store may carry render under their raw name.
	if len(grouped) > 0 {
		rest := make([]string, 0, len(grouped))
		for t := range grouped {
			rest = append(rest, string(t))
		}
		sort.Strings(rest)
		for _, name := range rest {
			writeGroup(name, grouped[core.MemoryType(name)])
		}
	}

	fmt.Fprintf(&b, "\nContext quality: %.2f across %d items.",
		averageComposite(contexts), len(contexts))

	return b.String()
}

func averageComposite(contexts []Context) float64 {
	if len(contexts) == 0 {
		return 0
	}

	sum := 0.0
	for _, c := range contexts {
		sum += c.CompositeScore
	}
	return sum / float64(len(contexts))
}
