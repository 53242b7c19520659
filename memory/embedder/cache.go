// Package embedder provides shared embedder infrastructure. Concrete
// implementations live in the subpackages.
package embedder

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/arvolve/arx-go-sdk/core"
)

// Cached wraps an embedder with an in-process read-through cache keyed by
// the exact input text. Embedding calls are the dominant cost of retrieval;
// repeated queries and re-indexed chunks hit the cache instead of the API.
type Cached struct {
	inner core.Embedder
	cache *ristretto.Cache
}

// NewCached wraps inner with a cache of roughly maxEntries vectors.
func NewCached(inner core.Embedder, maxEntries int64) (*Cached, error) {
	if maxEntries < 1 {
		maxEntries = 1 << 14
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Embed returns a cached vector when present, delegating otherwise.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, vec, 1)
	return vec, nil
}

// EmbedBatch serves cache hits locally and delegates only the misses in a
// single batch call, preserving input order.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			if vec, ok := v.([]float32); ok {
				out[i] = vec
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) > 0 {
		vecs, err := c.inner.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(missTexts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
		}
		for j, idx := range missIdx {
			out[idx] = vecs[j]
			c.cache.Set(missTexts[j], vecs[j], 1)
		}
	}

	return out, nil
}

// Dimensions returns the wrapped embedder's dimensionality.
func (c *Cached) Dimensions() int {
	return c.inner.Dimensions()
}

// Close releases the cache.
func (c *Cached) Close() {
	c.cache.Close()
}
