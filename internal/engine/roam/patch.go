package roam

import (
	"github.com/Faultbox/roamscape/internal/engine/frustum"
	"github.com/Faultbox/roamscape/internal/engine/terrain"
	"github.com/Faultbox/roamscape/pkg/math"
)

// Patch is one square tile of the landscape with its own triangle tree.
type Patch struct {
	TileX, TileY int

	tree       *TriangleTree
	bounds     math.AABB
	vis        frustum.Visibility
	appearance terrain.Appearance
	seen       bool
}

// Tree returns the patch's triangle tree.
func (p *Patch) Tree() *TriangleTree {
	return p.tree
}

// Bounds returns the world-space box around every sample of the patch.
func (p *Patch) Bounds() math.AABB {
	return p.bounds
}

// Visibility returns the patch-level classification from the last SetView.
func (p *Patch) Visibility() frustum.Visibility {
	return p.vis
}

// Appearance returns the material created when the patch first came into view.
func (p *Patch) Appearance() terrain.Appearance {
	return p.appearance
}

// computeBounds scans the patch samples. Failed samples are skipped.
func (p *Patch) computeBounds(src terrain.HeightSource) {
	x0, y0 := p.tree.Origin()
	size := p.tree.Size()
	box := math.EmptyAABB()
	for y := y0; y <= y0+size; y++ {
		for x := x0; x <= x0+size; x++ {
			v, err := terrain.WorldPosition(src, x, y)
			if err != nil || !v.IsFinite() {
				continue
			}
			box = box.Extend(v)
		}
	}
	p.bounds = box
}

// stitch links the root triangles of horizontally and vertically adjacent
// patches so splits propagate across patch borders.
func stitch(a *Arena, patches []*Patch, cols, rows int) {
	at := func(px, py int) *TriangleTree {
		return patches[py*cols+px].tree
	}
	for py := range rows {
		for px := range cols {
			t := at(px, py)
			nw := a.node(t.roots[halfNW])
			if px > 0 {
				west := at(px-1, py)
				nw.leftN = west.roots[halfSE]
				a.node(west.roots[halfSE]).leftN = t.roots[halfNW]
			}
			if py+1 < rows {
				north := at(px, py+1)
				nw.rightN = north.roots[halfSE]
				a.node(north.roots[halfSE]).rightN = t.roots[halfNW]
			}
		}
	}
}
