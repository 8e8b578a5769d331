package roam

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/roamscape/internal/engine/terrain"
)

// varianceTree holds, for each splittable node of one root triangle, the
// largest height error found anywhere in its subtree. Entries are indexed
// like a binary heap: the root is 1 and the children of i are 2i and 2i+1.
type varianceTree []float32

// buildVarianceTree computes the tree for a root triangle of a patch of the
// given size. Failed height samples contribute no error.
func buildVarianceTree(src terrain.HeightSource, size int, left, right, apex gridPoint) varianceTree {
	vt := make(varianceTree, size*size)
	sample := func(p gridPoint) (float32, bool) {
		h, err := src.HeightAt(int(p.X), int(p.Y))
		if err != nil || math32.IsNaN(h) {
			return 0, false
		}
		return h, true
	}

	var walk func(idx int, l, r, a gridPoint) float32
	walk = func(idx int, l, r, a gridPoint) float32 {
		if (l.X+r.X)%2 != 0 || (l.Y+r.Y)%2 != 0 {
			return 0
		}
		s := l.mid(r)

		var v float32
		hl, okL := sample(l)
		hr, okR := sample(r)
		hs, okS := sample(s)
		if okL && okR && okS {
			v = math32.Abs(hs - (hl+hr)/2)
		}

		v = math32.Max(v, walk(idx*2, a, l, s))
		v = math32.Max(v, walk(idx*2+1, r, a, s))
		if idx < len(vt) {
			vt[idx] = v
		}
		return v
	}
	walk(1, left, right, apex)
	return vt
}

// at returns the variance for a heap index, zero past the finest level.
func (vt varianceTree) at(idx uint32) float32 {
	if int(idx) >= len(vt) {
		return 0
	}
	return vt[idx]
}
