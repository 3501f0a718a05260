// Package embedding defines the embedding provider abstraction used by the
// retrieval pipeline, similarity helpers, and a deterministic in-memory
// provider for tests and offline use.
package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
)

// Provider generates fixed-length vector representations of text.
type Provider interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the vector length this provider produces.
	Dimensions() int
}

// CosineSimilarity returns the cosine similarity of two vectors in [-1, 1].
// Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// TokenOverlapRatio is the fallback relevance measure used when an embedding
// call fails: the fraction of distinct query tokens present in the content,
// case-insensitive. Returns a score in [0, 1].
func TokenOverlapRatio(query, content string) float64 {
	queryTokens := strings.Fields(strings.ToLower(query))
	if len(queryTokens) == 0 {
		return 0
	}

	contentTokens := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(content)) {
		contentTokens[tok] = struct{}{}
	}

	distinct := make(map[string]struct{}, len(queryTokens))
	matched := 0
	for _, tok := range queryTokens {
		if _, seen := distinct[tok]; seen {
			continue
		}
		distinct[tok] = struct{}{}
		if _, ok := contentTokens[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(distinct))
}

// MockProvider is a deterministic bag-of-words embedder for tests and
// offline development: each token is hashed into a dimension, so texts
// sharing tokens produce similar vectors. When Err is set, every call
// fails with it.
type MockProvider struct {
	Dim   int
	Err   error
	Calls int

	mu sync.Mutex
}

// NewMockProvider creates a mock provider with the given dimensionality.
func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 64
	}
	return &MockProvider{Dim: dim}
}

// Embed returns a normalized deterministic vector for text.
func (m *MockProvider) Embed(_ context.Context, text string) ([]float64, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	vec := make([]float64, m.Dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[int(h.Sum32())%m.Dim]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text sequentially.
func (m *MockProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		vec, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the configured vector length.
func (m *MockProvider) Dimensions() int { return m.Dim }
