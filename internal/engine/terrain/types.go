// Package terrain defines the height data consumed by the LOD engine and the
// vertex buffers it hands to renderers.
package terrain

import (
	"errors"

	"github.com/Faultbox/roamscape/pkg/math"
)

// ErrOutOfRange is returned by height sources for grid coordinates outside the grid.
var ErrOutOfRange = errors.New("grid coordinate out of range")

// HeightSource supplies read-only grid height data.
// HeightAt must fail for coordinates outside GridDimensions instead of clamping.
type HeightSource interface {
	HeightAt(gridX, gridY int) (float32, error)
	GridStep() (dx, dy float32)
	GridDimensions() (width, depth int)
}

// VertexFormat is a set of optional vertex attributes.
type VertexFormat uint8

// Optional vertex attributes.
const (
	FormatTexture VertexFormat = 1 << iota
	FormatColor
)

// HasTexture reports whether texture coordinates are present.
func (f VertexFormat) HasTexture() bool { return f&FormatTexture != 0 }

// HasColor reports whether per-vertex colours are present.
func (f VertexFormat) HasColor() bool { return f&FormatColor != 0 }

// AttributeSource is implemented by height sources that can also supply
// texture coordinates or colours. Only the attributes named by Format are queried.
type AttributeSource interface {
	Format() VertexFormat
	TexCoordAt(gridX, gridY int) [2]float32
	ColorAt(gridX, gridY int) [3]float32
}

// FormatOf returns the vertex attributes a source can supply.
func FormatOf(src HeightSource) VertexFormat {
	if a, ok := src.(AttributeSource); ok {
		return a.Format()
	}
	return 0
}

// WorldPosition samples the source and maps a grid coordinate to world space.
// X runs along the grid columns, Z along the rows and Y is height.
func WorldPosition(src HeightSource, gridX, gridY int) (math.Vec3, error) {
	h, err := src.HeightAt(gridX, gridY)
	if err != nil {
		return math.Vec3{}, err
	}
	dx, dy := src.GridStep()
	return math.Vec3{X: float32(gridX) * dx, Y: h, Z: float32(gridY) * dy}, nil
}

// Appearance is an opaque per-tile material binding.
type Appearance any

// AppearanceGenerator creates the material for a tile the first time it enters view.
type AppearanceGenerator interface {
	CreateAppearance(tileX, tileY int) Appearance
}

// PatchSpan describes the slice of a VertexBuffer produced by one patch.
type PatchSpan struct {
	TileX, TileY  int
	FirstVertex   int
	TriangleCount int
	Appearance    Appearance
}

// VertexBuffer is an unindexed triangle soup: three vertices per triangle,
// counter-clockwise when seen from above (+Y).
type VertexBuffer struct {
	Format        VertexFormat
	Positions     []float32 // xyz per vertex
	TexCoords     []float32 // st per vertex, only with FormatTexture
	Colors        []float32 // rgb per vertex, only with FormatColor
	TriangleCount int
	Spans         []PatchSpan
}

// Reset empties the buffer, keeping its capacity.
func (b *VertexBuffer) Reset(format VertexFormat) {
	b.Format = format
	b.Positions = b.Positions[:0]
	b.TexCoords = b.TexCoords[:0]
	b.Colors = b.Colors[:0]
	b.TriangleCount = 0
	b.Spans = b.Spans[:0]
}

// VertexCount returns the number of vertices in the buffer.
func (b *VertexBuffer) VertexCount() int {
	return len(b.Positions) / 3
}

// AddVertex appends one vertex. Attributes absent from the format are ignored.
func (b *VertexBuffer) AddVertex(p math.Vec3, st [2]float32, rgb [3]float32) {
	b.Positions = append(b.Positions, p.X, p.Y, p.Z)
	if b.Format.HasTexture() {
		b.TexCoords = append(b.TexCoords, st[0], st[1])
	}
	if b.Format.HasColor() {
		b.Colors = append(b.Colors, rgb[0], rgb[1], rgb[2])
	}
}

// Position returns vertex i.
func (b *VertexBuffer) Position(i int) math.Vec3 {
	return math.Vec3{X: b.Positions[i*3], Y: b.Positions[i*3+1], Z: b.Positions[i*3+2]}
}

// RenderSink accepts the flattened geometry once per frame.
type RenderSink interface {
	Submit(buf *VertexBuffer, triangleCount int) error
}
