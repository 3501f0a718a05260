package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/convergio/convergio-go/core"
	"github.com/convergio/convergio-go/embedding"
	"github.com/convergio/convergio-go/internal/util"
)

// Builtin tool names. The decision engine derives these from a plan's data
// sources; keeping the strings here makes registrations and plans line up.
const (
	WebSearchToolName            = "web_search"
	VectorSearchToolName         = "vector_search"
	TalentQueryToolName          = "talent_query"
	AnalyticsToolName            = "analytics"
	BusinessIntelligenceToolName = "business_intelligence"
)

// SearchFunc performs a web search and returns rendered result text.
type SearchFunc func(ctx context.Context, query string, maxResults int) (string, error)

// QueryFunc answers a natural-language question against a backing system
// (talent directory, analytics warehouse, BI layer).
type QueryFunc func(ctx context.Context, question string) (string, error)

// NewWebSearchTool exposes a web search backend as the web_search tool. A
// nil backend yields a descriptive execution error instead of a panic, so a
// plan that requests web data degrades gracefully when no search provider
// is configured.
func NewWebSearchTool(search SearchFunc) *FunctionTool {
	return NewFunctionTool(
		WebSearchToolName,
		"Search the web for current information. Use for realtime, dated, or fast-moving topics the model cannot answer from memory.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query",
				},
				"max_results": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results to return (default 5)",
				},
			},
			"required": []string{"query"},
		},
		func(tc *Context, args map[string]any) (any, error) {
			if search == nil {
				return nil, fmt.Errorf("web search backend not configured")
			}
			query, _ := args["query"].(string)
			return search(tc.Context(), query, intArg(args, "max_results", 5))
		},
	)
}

// NewVectorSearchTool exposes semantic memory search as the vector_search
// tool. The query is embedded and matched against the user's stored
// memories, preferring server-side similarity ranking when the store
// supports it.
func NewVectorSearchTool(store core.MemoryStore, embedder embedding.Provider) *FunctionTool {
	return NewFunctionTool(
		VectorSearchToolName,
		"Search stored memories and documents by meaning. Use to recall prior conversations, decisions, and knowledge related to a topic.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to look for",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of matches (default 5)",
				},
				"memory_type": map[string]any{
					"type":        "string",
					"description": "Restrict to one memory type",
					"enum": []any{
						string(core.MemoryTypeConversation),
						string(core.MemoryTypeContext),
						string(core.MemoryTypeKnowledge),
						string(core.MemoryTypeRelationships),
						string(core.MemoryTypePreferences),
					},
				},
			},
			"required": []string{"query"},
		},
		func(tc *Context, args map[string]any) (any, error) {
			if store == nil || embedder == nil {
				return nil, fmt.Errorf("memory store or embedding provider not configured")
			}

			query, _ := args["query"].(string)
			limit := intArg(args, "limit", 5)

			q := core.MemoryQuery{UserID: tc.UserID(), Limit: limit}
			if mt, ok := args["memory_type"].(string); ok && mt != "" {
				q.Types = []core.MemoryType{core.MemoryType(mt)}
			}

			matches, err := searchSimilar(tc.Context(), store, embedder, query, q)
			if err != nil {
				return nil, err
			}
			return formatMatches(matches), nil
		},
	)
}

// NewTalentQueryTool exposes the people directory as the talent_query tool.
func NewTalentQueryTool(query QueryFunc) *FunctionTool {
	return newQueryTool(
		TalentQueryToolName,
		"Query the talent directory: people, roles, skills, staffing, and availability.",
		"talent directory backend not configured",
		query,
	)
}

// NewAnalyticsTool exposes the analytics warehouse as the analytics tool.
func NewAnalyticsTool(query QueryFunc) *FunctionTool {
	return newQueryTool(
		AnalyticsToolName,
		"Query internal analytics: engagement metrics, utilization, project and operational indicators.",
		"analytics backend not configured",
		query,
	)
}

// NewBusinessIntelligenceTool exposes the BI layer as the
// business_intelligence tool.
func NewBusinessIntelligenceTool(query QueryFunc) *FunctionTool {
	return newQueryTool(
		BusinessIntelligenceToolName,
		"Look up company and market intelligence: financial metrics, competitor data, and industry benchmarks.",
		"business intelligence backend not configured",
		query,
	)
}

func newQueryTool(name, description, missingMsg string, query QueryFunc) *FunctionTool {
	return NewFunctionTool(
		name,
		description,
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "Natural language question",
				},
			},
			"required": []string{"question"},
		},
		func(tc *Context, args map[string]any) (any, error) {
			if query == nil {
				return nil, fmt.Errorf("%s", missingMsg)
			}
			question, _ := args["question"].(string)
			return query(tc.Context(), question)
		},
	)
}

// searchSimilar ranks the user's memories against the query embedding,
// using the store's server-side similarity search when available and
// falling back to a filtered scan scored client-side.
func searchSimilar(ctx context.Context, store core.MemoryStore, embedder embedding.Provider, query string, q core.MemoryQuery) ([]core.ScoredEntry, error) {
	vec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if vs, ok := store.(core.VectorSearcher); ok {
		return vs.SearchSimilar(ctx, vec, q)
	}

	limit := q.Limit
	q.Limit = 0
	entries, err := store.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	scored := make([]core.ScoredEntry, 0, len(entries))
	for _, e := range entries {
		sim := embedding.CosineSimilarity(vec, e.Embedding)
		if len(e.Embedding) == 0 {
			sim = embedding.TokenOverlapRatio(query, e.Content)
		}
		scored = append(scored, core.ScoredEntry{Entry: e, Similarity: sim})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func formatMatches(matches []core.ScoredEntry) string {
	if len(matches) == 0 {
		return "No matching memories found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d matching memories:\n", len(matches))
	for i, m := range matches {
		fmt.Fprintf(&b, "%d. [%s] %s (similarity %.2f)\n",
			i+1, m.Entry.Type, util.Truncate(m.Entry.Content, 200), m.Similarity)
	}
	return strings.TrimRight(b.String(), "\n")
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return def
}
