package terrain

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/roamscape/pkg/formats"
)

func TestHeightfieldHeightAt(t *testing.T) {
	h := NewHeightfield(3, 2, 2, 4)
	h.Set(2, 1, 7)

	v, err := h.HeightAt(2, 1)
	require.NoError(t, err)
	assert.Equal(t, float32(7), v)

	w, d := h.GridDimensions()
	assert.Equal(t, 3, w)
	assert.Equal(t, 2, d)

	for _, c := range [][2]int{{-1, 0}, {0, -1}, {3, 0}, {0, 2}} {
		v, err := h.HeightAt(c[0], c[1])
		assert.ErrorIs(t, err, ErrOutOfRange, "coord %v", c)
		assert.True(t, math32.IsNaN(v))
	}
}

func TestWorldPosition(t *testing.T) {
	h := NewHeightfield(3, 3, 2, 5)
	h.Set(1, 2, 3)

	p, err := WorldPosition(h, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, float32(2), p.X)
	assert.Equal(t, float32(3), p.Y)
	assert.Equal(t, float32(10), p.Z)

	_, err = WorldPosition(h, 5, 5)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestInterpolatedHeight(t *testing.T) {
	h := NewHeightfield(2, 2, 1, 1)
	h.Set(0, 0, 0)
	h.Set(1, 0, 4)
	h.Set(0, 1, 8)
	h.Set(1, 1, 12)

	assert.InDelta(t, 0, h.InterpolatedHeight(0, 0), 1e-6)
	assert.InDelta(t, 2, h.InterpolatedHeight(0.5, 0), 1e-6)
	assert.InDelta(t, 6, h.InterpolatedHeight(0.5, 0.5), 1e-6)
	// clamped outside the grid
	assert.InDelta(t, 12, h.InterpolatedHeight(9, 9), 1e-6)
	assert.InDelta(t, 0, h.InterpolatedHeight(-3, -3), 1e-6)
}

func TestHeightfieldFormat(t *testing.T) {
	h := NewHeightfield(5, 5, 1, 1)
	assert.Equal(t, VertexFormat(0), FormatOf(h))

	h.SetTextured(true)
	h.SetColorRamp(DefaultColorRamp(0, 1))
	f := FormatOf(h)
	assert.True(t, f.HasTexture())
	assert.True(t, f.HasColor())

	assert.Equal(t, [2]float32{1, 0.5}, h.TexCoordAt(4, 2))
}

func TestHeightRange(t *testing.T) {
	h := NewHeightfield(2, 2, 1, 1)
	h.Set(0, 0, -3)
	h.Set(1, 1, 9)

	lo, hi := h.HeightRange()
	assert.Equal(t, float32(-3), lo)
	assert.Equal(t, float32(9), hi)
}

func TestFromBT(t *testing.T) {
	bt := &formats.BT{
		Columns: 3,
		Rows:    2,
		Left:    100,
		Right:   110,
		Bottom:  0,
		Top:     4,
		Heights: []float32{1, 2, 3, 4, 5, 6},
	}

	h := FromBT(bt)
	w, d := h.GridDimensions()
	assert.Equal(t, 3, w)
	assert.Equal(t, 2, d)

	dx, dy := h.GridStep()
	assert.Equal(t, float32(5), dx)
	assert.Equal(t, float32(4), dy)

	// column 1, row 1 is the fourth stored sample
	v, err := h.HeightAt(1, 1)
	require.NoError(t, err)
	assert.Equal(t, float32(4), v)
}

func TestCrop(t *testing.T) {
	h := NewHeightfield(4, 3, 2, 2)
	for y := range 3 {
		for x := range 4 {
			h.Set(x, y, float32(y*10+x))
		}
	}
	h.SetTextured(true)

	c := h.Crop(3, 2)
	w, d := c.GridDimensions()
	assert.Equal(t, 3, w)
	assert.Equal(t, 2, d)
	assert.Equal(t, FormatTexture, c.Format())

	v, err := c.HeightAt(2, 1)
	require.NoError(t, err)
	assert.Equal(t, float32(12), v)
	_, err = c.HeightAt(3, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)

	w, d = h.Crop(10, 10).GridDimensions()
	assert.Equal(t, 4, w)
	assert.Equal(t, 3, d)
}
