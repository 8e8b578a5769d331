// Package camera provides the orbiting fly-by camera used to drive the
// landscape view.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/roamscape/pkg/math"
)

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	// Center point to orbit around
	Center math.Vec3

	// Spherical coordinates
	Distance  float32 // Distance from center
	RotationX float32 // Pitch (vertical angle, radians)
	RotationY float32 // Yaw (horizontal angle, radians)

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// OrbitSpeed is the yaw change per Advance call, in radians.
	OrbitSpeed float32

	// Lens
	FovY      float32
	Aspect    float32
	Near, Far float32
}

// NewOrbitCamera creates a new orbit camera with default settings.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:    200.0,
		RotationX:   0.5,
		RotationY:   0.0,
		MinDistance: 1.0,
		MaxDistance: 5000.0,
		MinPitch:    0.05,
		MaxPitch:    1.5,
		OrbitSpeed:  0.02,
		FovY:        math32.Pi / 3,
		Aspect:      4.0 / 3,
		Near:        1,
		Far:         2000,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	sinP, cosP := math32.Sincos(c.RotationX)
	sinY, cosY := math32.Sincos(c.RotationY)
	return c.Center.Add(math.Vec3{
		X: c.Distance * cosP * sinY,
		Y: c.Distance * sinP,
		Z: c.Distance * cosP * cosY,
	})
}

// Direction returns the unit view direction, from the eye towards the center.
func (c *OrbitCamera) Direction() math.Vec3 {
	return c.Center.Sub(c.Position()).Normalize()
}

// Advance moves the camera one step along its orbit.
func (c *OrbitCamera) Advance() {
	c.RotationY += c.OrbitSpeed
	if c.RotationY > 2*math32.Pi {
		c.RotationY -= 2 * math32.Pi
	}
}

// SetDistance moves the camera along its current bearing, within the
// distance limits.
func (c *OrbitCamera) SetDistance(d float32) {
	c.Distance = clamp(d, c.MinDistance, c.MaxDistance)
}

// SetHeight tilts the orbit so the eye sits h above the center, within the
// pitch limits.
func (c *OrbitCamera) SetHeight(h float32) {
	c.RotationX = clamp(math32.Atan2(h, c.Distance), c.MinPitch, c.MaxPitch)
}

// FitToBounds centers the orbit on a box and backs off far enough to see it.
func (c *OrbitCamera) FitToBounds(box math.AABB) {
	c.Center = box.Min.Midpoint(box.Max)

	size := box.Max.Sub(box.Min)
	c.SetDistance(math32.Max(size.X, size.Z) * 0.75)
	c.RotationX = clamp(0.6, c.MinPitch, c.MaxPitch) // Look down at ~35 degrees
	c.RotationY = 0.0
}

// Projections returns one projection per viewport for a window split into
// equal side-by-side columns. Each viewport keeps the vertical field of view
// and gets the matching slice of the horizontal extent, so together they
// cover what a single viewport would.
func (c *OrbitCamera) Projections(viewports int) []math.Mat4 {
	if viewports < 1 {
		viewports = 1
	}
	top := c.Near * math32.Tan(c.FovY/2)
	right := top * c.Aspect
	width := 2 * right / float32(viewports)

	out := make([]math.Mat4, viewports)
	for i := range out {
		l := -right + float32(i)*width
		out[i] = math.Frustum(l, l+width, -top, top, c.Near, c.Far)
	}
	return out
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
