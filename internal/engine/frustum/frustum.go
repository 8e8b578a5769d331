// Package frustum classifies points, triangles and boxes against the union
// of one or more camera view volumes.
package frustum

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/roamscape/pkg/math"
)

// Visibility is the result of a frustum test.
type Visibility uint8

// Visibility values.
const (
	Out Visibility = iota
	In
)

// String returns "IN" or "OUT".
func (v Visibility) String() string {
	if v == In {
		return "IN"
	}
	return "OUT"
}

// ErrNoViewports is returned by Recompute when called without matrices.
var ErrNoViewports = errors.New("frustum: no viewports")

// DegenerateCameraError reports a view-projection matrix that cannot be
// inverted into a usable view volume. The previous planes stay in effect.
type DegenerateCameraError struct {
	Viewport int
	Reason   string
}

func (e *DegenerateCameraError) Error() string {
	return fmt.Sprintf("degenerate camera in viewport %d: %s", e.Viewport, e.Reason)
}

// Plane sides, in the order planes are stored.
const (
	Left = iota
	Right
	Top
	Bottom
	Near
	Far
	planeCount
)

// Points lying this far outside a plane still count as inside.
const planeEpsilon = 1e-4

// Plane is n·p + D = 0 with the normal pointing into the view volume.
type Plane struct {
	Normal math.Vec3
	D      float32
}

// Distance returns the signed distance of p, positive inside.
func (p Plane) Distance(v math.Vec3) float32 {
	return p.Normal.Dot(v) + p.D
}

// Clip-space cube corners. Indices 0-3 lie on one depth face and 4-7 on the
// other; the plane quadruples below depend on this order.
var ndcCorners = [8]math.Vec4{
	{-1, -1, 1, 1},
	{-1, 1, 1, 1},
	{1, 1, 1, 1},
	{1, -1, 1, 1},
	{-1, -1, -1, 1},
	{-1, 1, -1, 1},
	{1, 1, -1, 1},
	{1, -1, -1, 1},
}

var planeCorners = [planeCount][3]int{
	Left:   {0, 4, 5},
	Right:  {3, 2, 6},
	Top:    {1, 5, 6},
	Bottom: {0, 3, 7},
	Near:   {0, 1, 2},
	Far:    {4, 7, 6},
}

type volume struct {
	corners [8]math.Vec3
	planes  [planeCount]Plane
	bounds  math.AABB
}

// Frustum holds the view volumes of every viewport.
// The zero value has no volume and classifies everything as In.
type Frustum struct {
	volumes []volume
	bounds  math.AABB
}

// New creates an empty frustum.
func New() *Frustum {
	return &Frustum{}
}

// Viewports returns the number of view volumes currently held.
func (f *Frustum) Viewports() int {
	return len(f.volumes)
}

// Recompute rebuilds the planes from one view-projection matrix per viewport.
// Nothing is changed unless every viewport succeeds.
func (f *Frustum) Recompute(viewProj ...math.Mat4) error {
	if len(viewProj) == 0 {
		return ErrNoViewports
	}

	volumes := make([]volume, len(viewProj))
	bounds := math.EmptyAABB()
	for i, m := range viewProj {
		v, err := buildVolume(m)
		if err != nil {
			return &DegenerateCameraError{Viewport: i, Reason: err.Error()}
		}
		volumes[i] = v
		bounds = bounds.Union(v.bounds)
	}

	f.volumes = volumes
	f.bounds = bounds
	return nil
}

func buildVolume(viewProj math.Mat4) (volume, error) {
	inv, ok := viewProj.Inverse()
	if !ok {
		return volume{}, errors.New("view-projection matrix is singular")
	}

	var v volume
	v.bounds = math.EmptyAABB()
	var centre math.Vec3
	for i, c := range ndcCorners {
		p := inv.MulVec4(c)
		w := p[3]
		if w == 0 || math32.IsNaN(w) || math32.IsInf(w, 0) {
			return volume{}, fmt.Errorf("corner %d has w=%v", i, w)
		}
		pt := math.Vec3{X: p[0] / w, Y: p[1] / w, Z: p[2] / w}
		if !pt.IsFinite() {
			return volume{}, fmt.Errorf("corner %d is not finite", i)
		}
		v.corners[i] = pt
		v.bounds = v.bounds.Extend(pt)
		centre = centre.Add(pt)
	}
	centre = centre.Scale(1.0 / 8)

	for side, idx := range planeCorners {
		p1, p2, p3 := v.corners[idx[0]], v.corners[idx[1]], v.corners[idx[2]]
		n := p2.Sub(p1).Cross(p3.Sub(p1))
		if n.Length() == 0 || !n.IsFinite() {
			return volume{}, fmt.Errorf("plane %d is degenerate", side)
		}
		n = n.Normalize()
		pl := Plane{Normal: n, D: -n.Dot(p1)}
		// Handedness of the matrix decides the winding; keep normals inward.
		if pl.Distance(centre) < 0 {
			pl = Plane{Normal: n.Scale(-1), D: -pl.D}
		}
		v.planes[side] = pl
	}
	return v, nil
}

// BoundingBox returns the box enclosing every viewport's corners.
func (f *Frustum) BoundingBox() math.AABB {
	return f.bounds
}

// Planes returns the planes of viewport i.
func (f *Frustum) Planes(i int) [planeCount]Plane {
	return f.volumes[i].planes
}

// Corners returns the world-space corners of viewport i.
func (f *Frustum) Corners(i int) [8]math.Vec3 {
	return f.volumes[i].corners
}

// ClassifyPoint reports In when p lies inside any viewport's volume.
func (f *Frustum) ClassifyPoint(p math.Vec3) Visibility {
	if len(f.volumes) == 0 {
		return In
	}
	for i := range f.volumes {
		if f.volumes[i].containsPoint(p) {
			return In
		}
	}
	return Out
}

// ClassifyTriangle is conservative: it may report In for a hidden triangle
// but never Out for one that intersects any volume.
func (f *Frustum) ClassifyTriangle(a, b, c math.Vec3) Visibility {
	if len(f.volumes) == 0 {
		return In
	}

	centre := a.Add(b).Add(c).Scale(1.0 / 3)
	radius := math32.Max(centre.Distance(a), math32.Max(centre.Distance(b), centre.Distance(c)))
	if f.bounds.Distance(centre) > radius {
		return Out
	}

	for i := range f.volumes {
		if !f.volumes[i].separatesTriangle(a, b, c) {
			return In
		}
	}
	return Out
}

// ClassifyBox reports Out only when the box is outside every volume.
func (f *Frustum) ClassifyBox(box math.AABB) Visibility {
	if len(f.volumes) == 0 {
		return In
	}
	if !f.bounds.Overlaps(box) {
		return Out
	}
	for i := range f.volumes {
		if f.volumes[i].touchesBox(box) {
			return In
		}
	}
	return Out
}

func (v *volume) containsPoint(p math.Vec3) bool {
	for _, pl := range v.planes {
		if pl.Distance(p) < -planeEpsilon {
			return false
		}
	}
	return true
}

// separatesTriangle reports whether one plane has all three vertices outside.
func (v *volume) separatesTriangle(a, b, c math.Vec3) bool {
	for _, pl := range v.planes {
		if pl.Distance(a) < -planeEpsilon &&
			pl.Distance(b) < -planeEpsilon &&
			pl.Distance(c) < -planeEpsilon {
			return true
		}
	}
	return false
}

func (v *volume) touchesBox(box math.AABB) bool {
	if !v.bounds.Overlaps(box) {
		return false
	}
	for _, pl := range v.planes {
		// corner furthest along the normal
		p := box.Min
		if pl.Normal.X >= 0 {
			p.X = box.Max.X
		}
		if pl.Normal.Y >= 0 {
			p.Y = box.Max.Y
		}
		if pl.Normal.Z >= 0 {
			p.Z = box.Max.Z
		}
		if pl.Distance(p) < -planeEpsilon {
			return false
		}
	}
	return true
}
