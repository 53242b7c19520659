package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvolve/arx-go-sdk/memory/embedder/mock"
)

func TestCachedMatchesInner(t *testing.T) {
	inner := mock.New()
	cached, err := NewCached(inner, 128)
	require.NoError(t, err)
	defer cached.Close()

	ctx := context.Background()
	want, err := inner.Embed(ctx, "same text")
	require.NoError(t, err)

	// Two calls, cold and possibly warm; both must match the inner embedder.
	got1, err := cached.Embed(ctx, "same text")
	require.NoError(t, err)
	got2, err := cached.Embed(ctx, "same text")
	require.NoError(t, err)
	assert.Equal(t, want, got1)
	assert.Equal(t, want, got2)
	assert.Equal(t, inner.Dimensions(), cached.Dimensions())
}

func TestCachedBatchPreservesOrder(t *testing.T) {
	inner := mock.New()
	cached, err := NewCached(inner, 128)
	require.NoError(t, err)
	defer cached.Close()

	ctx := context.Background()
	texts := []string{"alpha", "beta", "gamma"}

	// Warm one entry so the batch mixes hits and misses.
	_, err = cached.Embed(ctx, "beta")
	require.NoError(t, err)

	got, err := cached.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i, text := range texts {
		want, err := inner.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, want, got[i], "index %d", i)
	}
}
