package hash

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

	a, err := e.Embed(ctx, "my name is Ada")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "my name is Ada")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, e.Dimensions())
}

func TestEmbedDistinctTexts(t *testing.T) {
	e := New()
	ctx := context.Background()

	a, err := e.Embed(ctx, "coffee")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "tea")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestEmbedUnitLength(t *testing.T) {
	e := New()

	vec, err := e.Embed(context.Background(), "some arbitrary text")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-4)
}
