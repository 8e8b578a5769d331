package terrain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorRamp(t *testing.T) {
	r, err := NewColorRamp([]RampKey{
		{Height: 10, Color: [3]float32{1, 1, 1}},
		{Height: 0, Color: [3]float32{0, 0, 0}},
	})
	require.NoError(t, err)

	assert.Equal(t, [3]float32{0, 0, 0}, r.Color(-5))
	assert.Equal(t, [3]float32{1, 1, 1}, r.Color(50))
	assert.Equal(t, [3]float32{0.5, 0.5, 0.5}, r.Color(5))
	assert.Equal(t, float32(0), r.Keys()[0].Height)
}

func TestColorRampEmpty(t *testing.T) {
	_, err := NewColorRamp(nil)
	assert.ErrorIs(t, err, ErrEmptyRamp)
}

func TestDefaultColorRampEnds(t *testing.T) {
	r := DefaultColorRamp(0, 100)
	assert.Equal(t, [3]float32{1, 1, 1}, r.Color(100))
	assert.Equal(t, [3]float32{0.10, 0.20, 0.60}, r.Color(0))
}
