package roam

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/Faultbox/roamscape/internal/engine/terrain"
)

func flatSource(size int) *terrain.Heightfield {
	return terrain.NewHeightfield(size, size, 1, 1)
}

func rampSource(size int) *terrain.Heightfield {
	h := terrain.NewHeightfield(size, size, 1, 1)
	for y := range size {
		for x := range size {
			h.Set(x, y, float32((x*7+y*13)%11))
		}
	}
	return h
}

var errStubSample = errors.New("stub sample failure")

// failingSource fails height queries at one grid point.
type failingSource struct {
	*terrain.Heightfield
	failX, failY int
}

func (s *failingSource) HeightAt(x, y int) (float32, error) {
	if x == s.failX && y == s.failY {
		return 0, errStubSample
	}
	return s.Heightfield.HeightAt(x, y)
}

func keyOf(n *node) string {
	return fmt.Sprintf("%v-%v-%v", n.left, n.right, n.apex)
}

func neighbourKey(a *Arena, id NodeID) string {
	if id == NilNode {
		return "nil"
	}
	return keyOf(a.node(id))
}

// leafSnapshot describes every leaf and its links by grid coordinates.
func leafSnapshot(f *forest) []string {
	var out []string
	for _, t := range f.trees {
		for id := range t.Leaves() {
			n := f.arena.node(id)
			out = append(out, fmt.Sprintf("%s base=%s left=%s right=%s",
				keyOf(n),
				neighbourKey(f.arena, n.base),
				neighbourKey(f.arena, n.leftN),
				neighbourKey(f.arena, n.rightN)))
		}
	}
	slices.Sort(out)
	return out
}

// internalSet returns the grid keys of every internal node.
func internalSet(f *forest) map[string]bool {
	set := make(map[string]bool)
	for _, t := range f.trees {
		stack := []NodeID{t.roots[halfNW], t.roots[halfSE]}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n := f.arena.node(id)
			if n.isLeaf() {
				continue
			}
			set[keyOf(n)] = true
			stack = append(stack, n.leftChild, n.rightChild)
		}
	}
	return set
}

func findLeaf(t *testing.T, f *forest, left, right gridPoint) NodeID {
	t.Helper()
	for _, tree := range f.trees {
		for id := range tree.Leaves() {
			n := f.arena.node(id)
			if n.left == left && n.right == right {
				return id
			}
		}
	}
	t.Fatalf("no leaf with hypotenuse %v-%v", left, right)
	return NilNode
}

// onSegmentInterior reports whether p lies strictly between a and b.
func onSegmentInterior(p, a, b gridPoint) bool {
	abx, aby := int64(b.X-a.X), int64(b.Y-a.Y)
	apx, apy := int64(p.X-a.X), int64(p.Y-a.Y)
	if abx*apy-aby*apx != 0 {
		return false
	}
	dot := abx*apx + aby*apy
	return dot > 0 && dot < abx*abx+aby*aby
}

// requireCrackFree fails when any leaf vertex lies inside another leaf's
// edge, which is exactly a T-junction.
func requireCrackFree(t *testing.T, f *forest) {
	t.Helper()
	type edge struct{ a, b gridPoint }
	var edges []edge
	vertices := make(map[gridPoint]bool)
	leaves := 0
	for _, tree := range f.trees {
		for id := range tree.Leaves() {
			n := f.arena.node(id)
			edges = append(edges, edge{n.left, n.right}, edge{n.apex, n.left}, edge{n.apex, n.right})
			vertices[n.left], vertices[n.right], vertices[n.apex] = true, true, true
			leaves++
		}
	}
	if leaves != f.leaves {
		t.Fatalf("leaf counter %d, walked %d leaves", f.leaves, leaves)
	}
	for _, e := range edges {
		for v := range vertices {
			if onSegmentInterior(v, e.a, e.b) {
				t.Fatalf("T-junction: vertex %v inside edge %v-%v", v, e.a, e.b)
			}
		}
	}
}
