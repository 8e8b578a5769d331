package math

import (
	gomath "math"

	"github.com/chewxy/math32"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min Vec3
	Max Vec3
}

// EmptyAABB returns an inverted box that any Extend call will replace.
func EmptyAABB() AABB {
	return AABB{
		Min: Vec3{gomath.MaxFloat32, gomath.MaxFloat32, gomath.MaxFloat32},
		Max: Vec3{-gomath.MaxFloat32, -gomath.MaxFloat32, -gomath.MaxFloat32},
	}
}

// Extend grows the box to contain p.
func (b AABB) Extend(p Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns the smallest box containing both boxes.
func (b AABB) Union(other AABB) AABB {
	return AABB{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

// Overlaps reports whether the two boxes intersect.
func (b AABB) Overlaps(other AABB) bool {
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y &&
		b.Min.Z <= other.Max.Z && b.Max.Z >= other.Min.Z
}

// Distance returns the distance from p to the closest point of the box,
// zero when p is inside.
func (b AABB) Distance(p Vec3) float32 {
	dx := math32.Max(math32.Max(b.Min.X-p.X, 0), p.X-b.Max.X)
	dy := math32.Max(math32.Max(b.Min.Y-p.Y, 0), p.Y-b.Max.Y)
	dz := math32.Max(math32.Max(b.Min.Z-p.Z, 0), p.Z-b.Max.Z)
	return math32.Sqrt(dx*dx + dy*dy + dz*dz)
}
