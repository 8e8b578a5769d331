package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/roamscape/pkg/math"
)

func TestOrbitCameraLooksAtCenter(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = math.Vec3{X: 10, Y: 0, Z: 20}
	c.Distance = 50

	for range 10 {
		c.Advance()
		pos := c.Position()
		assert.InDelta(t, 50, pos.Distance(c.Center), 1e-3)

		got := pos.Add(c.Direction().Scale(50))
		assert.InDelta(t, c.Center.X, got.X, 1e-3)
		assert.InDelta(t, c.Center.Y, got.Y, 1e-3)
		assert.InDelta(t, c.Center.Z, got.Z, 1e-3)
	}
}

func TestOrbitCameraClamps(t *testing.T) {
	c := NewOrbitCamera()
	c.SetDistance(0)
	assert.Equal(t, c.MinDistance, c.Distance)
	c.SetDistance(1e6)
	assert.Equal(t, c.MaxDistance, c.Distance)

	c.SetDistance(100)
	c.SetHeight(1e6)
	assert.Equal(t, c.MaxPitch, c.RotationX)
	c.SetHeight(-10)
	assert.Equal(t, c.MinPitch, c.RotationX)
}

func TestSetHeightPlacesEye(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = math.Vec3{X: 5, Y: 2, Z: 5}
	c.SetDistance(100)
	c.SetHeight(40)

	pos := c.Position()
	assert.InDelta(t, 100, pos.Distance(c.Center), 1e-3)
	// The eye sits at the requested height over the ground distance.
	ground := math32.Hypot(pos.X-c.Center.X, pos.Z-c.Center.Z)
	assert.InDelta(t, 40.0/100, (pos.Y-c.Center.Y)/ground, 1e-4)
}

func TestFitToBounds(t *testing.T) {
	c := NewOrbitCamera()
	c.FitToBounds(math.AABB{Min: math.Vec3{}, Max: math.Vec3{X: 256, Y: 40, Z: 128}})

	assert.Equal(t, math.Vec3{X: 128, Y: 20, Z: 64}, c.Center)
	assert.InDelta(t, 192, c.Distance, 1e-3)
	assert.Greater(t, c.Position().Y, c.Center.Y)
}

func TestProjectionsSplitHorizontalExtent(t *testing.T) {
	c := NewOrbitCamera()
	c.FovY = math32.Pi / 2
	c.Aspect = 2

	single := c.Projections(1)
	require.Len(t, single, 1)
	want := math.Perspective(c.FovY, c.Aspect, c.Near, c.Far)
	for i := range want {
		assert.InDelta(t, want[i], single[0][i], 1e-5, "element %d", i)
	}

	split := c.Projections(2)
	require.Len(t, split, 2)
	// A point straight ahead and slightly left lands in the left viewport only.
	p := math.Vec4{-0.5, 0, -10, 1}
	left, right := split[0].MulVec4(p), split[1].MulVec4(p)
	assert.LessOrEqual(t, math32.Abs(left[0]/left[3]), float32(1))
	assert.Greater(t, math32.Abs(right[0]/right[3]), float32(1))
}
