// Package openai implements retrieval.Embedder with the OpenAI embeddings API.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/agentrelay/retrieval"
)

// Options configure the embedder.
type Options struct {
	Model      string
	Dimensions int
	APIKey     string
	BaseURL    string
}

// Embedder calls the OpenAI embeddings endpoint.
type Embedder struct {
	client *openai.Client
	opts   Options
}

var _ retrieval.Embedder = (*Embedder)(nil)

// NewEmbedder creates an embedder. The API key falls back to OPENAI_API_KEY.
func NewEmbedder(optFns ...func(o *Options)) *Embedder {
	opts := Options{Model: string(openai.EmbeddingModelTextEmbedding3Small), Dimensions: 1536}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := openai.NewClient(clientOpts...)

	return &Embedder{client: &client, opts: opts}
}

// Dimensions returns the requested vector size.
func (e *Embedder) Dimensions() int { return e.opts.Dimensions }

// Embed implements retrieval.Embedder. Results are ordered like texts.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      openai.EmbeddingModel(e.opts.Model),
		Dimensions: openai.Int(int64(e.opts.Dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings error: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))

	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("openai embeddings returned index %d out of range", d.Index)
		}

		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}

		out[d.Index] = vec
	}

	return out, nil
}
