package rag

import (
	"context"

	"github.com/convergio/convergio-go/embedding"
	"github.com/convergio/convergio-go/internal/util"
)

// DedupExact drops contexts whose normalized content (lowercased, whitespace
// collapsed) hashes to one already seen. Input is expected ranked by
// composite score descending, so the highest-scored representative of each
// cluster survives. Idempotent.
func DedupExact(contexts []Context) []Context {
	if len(contexts) < 2 {
		return contexts
	}

	seen := make(map[string]struct{}, len(contexts))
	out := make([]Context, 0, len(contexts))

	for _, c := range contexts {
		h := util.ContentHash(c.Content)
		if _, ok := seen[h]; ok {
			continue
		}

		seen[h] = struct{}{}
		out = append(out, c)
	}

	return out
}

// DedupSemantic clusters contexts whose embeddings score at or above
// threshold against an already-kept context and keeps only the
// highest-ranked representative. Input is expected ranked descending.
// When the provider is nil or embedding fails it falls back to exact
// dedup rather than dropping anything wholesale. Idempotent: survivors
// are pairwise below the threshold, so a second pass keeps them all.
func DedupSemantic(ctx context.Context, provider embedding.Provider, contexts []Context, threshold float64) []Context {
	if len(contexts) < 2 {
		return contexts
	}

	if provider == nil {
		return DedupExact(contexts)
	}

	texts := make([]string, len(contexts))
	for i, c := range contexts {
		texts[i] = c.Content
	}

	embeddings, err := provider.EmbedBatch(ctx, texts)
	if err != nil || len(embeddings) != len(contexts) {
		return DedupExact(contexts)
	}

	kept := make([]int, 0, len(contexts))
	out := make([]Context, 0, len(contexts))

	for i, c := range contexts {
		dup := false
		for _, j := range kept {
			if embedding.CosineSimilarity(embeddings[i], embeddings[j]) >= threshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}

		kept = append(kept, i)
		out = append(out, c)
	}

	return out
}
