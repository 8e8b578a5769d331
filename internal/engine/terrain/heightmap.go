package terrain

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/roamscape/pkg/formats"
)

// Heightfield is an in-memory HeightSource backed by a row-major sample grid.
type Heightfield struct {
	width, depth int
	stepX, stepY float32
	heights      []float32

	ramp     *ColorRamp
	textured bool
}

// NewHeightfield creates a flat heightfield of width x depth samples.
func NewHeightfield(width, depth int, stepX, stepY float32) *Heightfield {
	return &Heightfield{
		width:   width,
		depth:   depth,
		stepX:   stepX,
		stepY:   stepY,
		heights: make([]float32, width*depth),
	}
}

// FromBT builds a heightfield from a parsed BT file.
// Columns map to grid X and rows to grid Y, both starting at the south-west corner.
func FromBT(bt *formats.BT) *Heightfield {
	cols, rows := int(bt.Columns), int(bt.Rows)
	stepX, stepY := float32(1), float32(1)
	if cols > 1 {
		stepX = float32((bt.Right - bt.Left) / float64(cols-1))
	}
	if rows > 1 {
		stepY = float32((bt.Top - bt.Bottom) / float64(rows-1))
	}

	h := NewHeightfield(cols, rows, stepX, stepY)
	for x := range cols {
		for y := range rows {
			h.Set(x, y, bt.HeightAt(x, y))
		}
	}
	return h
}

// Crop returns the south-west width x depth corner of the grid as a new
// heightfield with the same steps and attributes. Sizes are clamped to the
// grid.
func (h *Heightfield) Crop(width, depth int) *Heightfield {
	width = min(max(width, 0), h.width)
	depth = min(max(depth, 0), h.depth)
	c := NewHeightfield(width, depth, h.stepX, h.stepY)
	for y := range depth {
		copy(c.heights[y*width:(y+1)*width], h.heights[y*h.width:])
	}
	c.ramp = h.ramp
	c.textured = h.textured
	return c
}

// Set stores the height of a sample. Out-of-range coordinates are ignored.
func (h *Heightfield) Set(gridX, gridY int, v float32) {
	if !h.inRange(gridX, gridY) {
		return
	}
	h.heights[gridY*h.width+gridX] = v
}

// HeightAt returns the height of a sample.
func (h *Heightfield) HeightAt(gridX, gridY int) (float32, error) {
	if !h.inRange(gridX, gridY) {
		return math32.NaN(), fmt.Errorf("%w: (%d, %d) outside %dx%d", ErrOutOfRange, gridX, gridY, h.width, h.depth)
	}
	return h.heights[gridY*h.width+gridX], nil
}

// GridStep returns the world distance between adjacent samples.
func (h *Heightfield) GridStep() (dx, dy float32) {
	return h.stepX, h.stepY
}

// GridDimensions returns the number of samples along X and Y.
func (h *Heightfield) GridDimensions() (width, depth int) {
	return h.width, h.depth
}

// HeightRange returns the lowest and highest stored sample.
func (h *Heightfield) HeightRange() (minH, maxH float32) {
	if len(h.heights) == 0 {
		return 0, 0
	}
	minH, maxH = h.heights[0], h.heights[0]
	for _, v := range h.heights[1:] {
		minH = math32.Min(minH, v)
		maxH = math32.Max(maxH, v)
	}
	return minH, maxH
}

// SetColorRamp enables per-vertex colours derived from height.
func (h *Heightfield) SetColorRamp(r *ColorRamp) {
	h.ramp = r
}

// SetTextured enables texture coordinates spanning the whole grid once.
func (h *Heightfield) SetTextured(on bool) {
	h.textured = on
}

// Format implements AttributeSource.
func (h *Heightfield) Format() VertexFormat {
	var f VertexFormat
	if h.textured {
		f |= FormatTexture
	}
	if h.ramp != nil {
		f |= FormatColor
	}
	return f
}

// TexCoordAt implements AttributeSource.
func (h *Heightfield) TexCoordAt(gridX, gridY int) [2]float32 {
	var st [2]float32
	if h.width > 1 {
		st[0] = float32(gridX) / float32(h.width-1)
	}
	if h.depth > 1 {
		st[1] = float32(gridY) / float32(h.depth-1)
	}
	return st
}

// ColorAt implements AttributeSource.
func (h *Heightfield) ColorAt(gridX, gridY int) [3]float32 {
	if h.ramp == nil || !h.inRange(gridX, gridY) {
		return [3]float32{1, 1, 1}
	}
	return h.ramp.Color(h.heights[gridY*h.width+gridX])
}

// InterpolatedHeight returns the bilinearly interpolated height at a world
// position, clamped to the grid edges.
func (h *Heightfield) InterpolatedHeight(worldX, worldZ float32) float32 {
	if h.width < 2 || h.depth < 2 {
		if len(h.heights) > 0 {
			return h.heights[0]
		}
		return 0
	}

	fx := clampf(worldX/h.stepX, 0, float32(h.width-1))
	fz := clampf(worldZ/h.stepY, 0, float32(h.depth-1))

	x0 := min(int(fx), h.width-2)
	z0 := min(int(fz), h.depth-2)
	tx := fx - float32(x0)
	tz := fz - float32(z0)

	h00 := h.heights[z0*h.width+x0]
	h10 := h.heights[z0*h.width+x0+1]
	h01 := h.heights[(z0+1)*h.width+x0]
	h11 := h.heights[(z0+1)*h.width+x0+1]

	south := h00*(1-tx) + h10*tx
	north := h01*(1-tx) + h11*tx
	return south*(1-tz) + north*tz
}

func (h *Heightfield) inRange(x, y int) bool {
	return x >= 0 && y >= 0 && x < h.width && y < h.depth
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
