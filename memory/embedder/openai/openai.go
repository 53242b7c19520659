// Package openai embeds text through an OpenAI-compatible embeddings
// endpoint. It works against api.openai.com and against any local server
// speaking the same protocol (Ollama, LocalAI, vLLM).
package openai

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

const (
	// DefaultModel is text-embedding-3-small.
	DefaultModel = string(chromem.EmbeddingModelOpenAI3Small)

	// DefaultDimensions is the output size of text-embedding-3-small.
	DefaultDimensions = 1536
)

// Embedder calls an OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	fn         chromem.EmbeddingFunc
	dimensions int
}

// Option configures the embedder.
type Option func(*config)

type config struct {
	baseURL    string
	model      string
	dimensions int
}

// WithBaseURL points the embedder at a compatible server other than
// api.openai.com.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithModel overrides the embedding model.
func WithModel(model string, dimensions int) Option {
	return func(c *config) {
		c.model = model
		c.dimensions = dimensions
	}
}

// New creates an embedder authenticated by apiKey.
func New(apiKey string, opts ...Option) *Embedder {
	cfg := &config{
		model:      DefaultModel,
		dimensions: DefaultDimensions,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var fn chromem.EmbeddingFunc
	if cfg.baseURL != "" {
		normalized := true
		fn = chromem.NewEmbeddingFuncOpenAICompat(cfg.baseURL, apiKey, cfg.model, &normalized)
	} else {
		fn = chromem.NewEmbeddingFuncOpenAI(apiKey, chromem.EmbeddingModelOpenAI(cfg.model))
	}

	return &Embedder{fn: fn, dimensions: cfg.dimensions}
}

// Embed returns the embedding for one text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.fn(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return vec, nil
}

// EmbedBatch embeds each text in order. The underlying endpoint is called
// once per text.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embed batch item %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}
