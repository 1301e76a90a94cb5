package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_Deterministic(t *testing.T) {
	ctx := context.Background()
	e := NewStaticEmbedder()

	first, err := e.Embed(ctx, "forest fire damage assessment")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "forest fire damage assessment")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, StaticDimensions)
}

func TestStaticEmbedder_UnitLength(t *testing.T) {
	e := NewStaticEmbedder()

	vec, err := e.Embed(context.Background(), "watershed boundary dataset")
	require.NoError(t, err)

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-5)
}

func TestStaticEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	e := NewStaticEmbedder()

	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	require.Len(t, vec, StaticDimensions)
	for _, v := range vec {
		assert.Equal(t, float32(0), v)
	}
}

func TestStaticEmbedder_DistinctTextsDiffer(t *testing.T) {
	ctx := context.Background()
	e := NewStaticEmbedder()

	a, err := e.Embed(ctx, "timber harvest records")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "trail network geometry")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestStaticEmbedder_EmbedBatch(t *testing.T) {
	ctx := context.Background()
	e := NewStaticEmbedder()

	batch, err := e.EmbedBatch(ctx, []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, batch, 2)

	single, err := e.Embed(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, single, batch[0])

	empty, err := e.EmbedBatch(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStaticEmbedder_Close(t *testing.T) {
	ctx := context.Background()
	e := NewStaticEmbedder()

	assert.True(t, e.Available(ctx))
	require.NoError(t, e.Close())
	assert.False(t, e.Available(ctx))

	_, err := e.Embed(ctx, "anything")
	assert.Error(t, err)
}
