package mock

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedDeterministic(t *testing.T) {
	e := New()
	ctx := context.Background()

	a1, err := e.Embed(ctx, "hello world")
	require.NoError(t, err)
	a2, err := e.Embed(ctx, "hello world")
	require.NoError(t, err)
	assert.Equal(t, a1, a2)

	b, err := e.Embed(ctx, "something else")
	require.NoError(t, err)
	assert.NotEqual(t, a1, b)
}

func TestEmbedUnitNorm(t *testing.T) {
	e := New()
	vec, err := e.Embed(context.Background(), "normalize me")
	require.NoError(t, err)
	require.Len(t, vec, e.Dimensions())

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestEmbedBatchOrder(t *testing.T) {
	e := NewWithDimensions(16)
	ctx := context.Background()

	vecs, err := e.EmbedBatch(ctx, []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	single, err := e.Embed(ctx, "two")
	require.NoError(t, err)
	assert.Equal(t, single, vecs[1])
	assert.Len(t, vecs[0], 16)
}
