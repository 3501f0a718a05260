// Package openai provides an embedding.Provider backed by the OpenAI
// Embeddings API using the official client.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/convergio/convergio-go/embedding"
)

// Options configure the OpenAI embedding provider.
type Options struct {
	Model      openai.EmbeddingModel
	Dimensions int
}

// Provider wraps the OpenAI Embeddings API behind embedding.Provider.
type Provider struct {
	client *openai.Client
	opts   Options
}

var _ embedding.Provider = (*Provider)(nil)

// NewProvider creates a provider using a client configured from the
// environment (OPENAI_API_KEY).
func NewProvider(optFns ...func(o *Options)) *Provider {
	client := openai.NewClient()
	return NewProviderFromClient(&client, optFns...)
}

// NewProviderFromClient creates a provider from an existing client.
func NewProviderFromClient(client *openai.Client, optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:      openai.EmbeddingModelTextEmbedding3Small,
		Dimensions: 1536,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

// Embed returns the embedding vector for a single text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts in one API call, preserving input order.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: p.opts.Model,
	}
	if p.opts.Dimensions > 0 {
		params.Dimensions = openai.Int(int64(p.opts.Dimensions))
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings error: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Dimensions returns the configured vector length.
func (p *Provider) Dimensions() int { return p.opts.Dimensions }
