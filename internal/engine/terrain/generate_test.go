package terrain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDeterministic(t *testing.T) {
	opts := GenerateOptions{Size: 33, Roughness: 0.5, HeightScale: 20, GridStep: 2, Seed: 42}

	a, err := Generate(opts)
	require.NoError(t, err)
	b, err := Generate(opts)
	require.NoError(t, err)
	assert.Equal(t, a.heights, b.heights)

	w, d := a.GridDimensions()
	assert.Equal(t, 33, w)
	assert.Equal(t, 33, d)

	lo, hi := a.HeightRange()
	assert.Less(t, lo, hi, "terrain should not be flat")

	opts.Seed = 7
	c, err := Generate(opts)
	require.NoError(t, err)
	assert.NotEqual(t, a.heights, c.heights)
}

func TestGenerateRejectsBadSize(t *testing.T) {
	for _, size := range []int{0, 1, 10, 32} {
		_, err := Generate(GenerateOptions{Size: size})
		assert.Error(t, err, "size %d", size)
	}
}
