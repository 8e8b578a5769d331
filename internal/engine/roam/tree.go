package roam

import (
	"fmt"
	"iter"

	"github.com/chewxy/math32"

	"github.com/Faultbox/roamscape/internal/engine/frustum"
	"github.com/Faultbox/roamscape/internal/engine/terrain"
	"github.com/Faultbox/roamscape/pkg/math"
)

// Root halves of a patch.
const (
	halfNW = iota
	halfSE
)

// minPriorityDistance keeps priorities finite when the eye touches a hypotenuse.
const minPriorityDistance = 1e-3

// tracker is notified of every change in leaf and diamond membership so
// the candidate queues stay in step with the trees.
type tracker interface {
	leafAdded(id NodeID)
	leafRemoved(id NodeID)
	diamondAdded(rep NodeID)
	diamondRemoved(rep NodeID)
}

type nopTracker struct{}

func (nopTracker) leafAdded(NodeID)      {}
func (nopTracker) leafRemoved(NodeID)    {}
func (nopTracker) diamondAdded(NodeID)   {}
func (nopTracker) diamondRemoved(NodeID) {}

// forest is the state shared by all trees of a landscape. Splits may
// cross patch borders, so every tree reaches its neighbours through it.
type forest struct {
	arena   *Arena
	src     terrain.HeightSource
	trees   []*TriangleTree
	tracker tracker
	frustum *frustum.Frustum

	detailScale float32
	sizeWeight  float32
	debug       bool
	leaves      int
}

// TriangleTree is the adaptive triangulation of one square patch, rooted
// at two right triangles that share the patch diagonal.
type TriangleTree struct {
	f        *forest
	index    int32
	originX  int
	originY  int
	size     int
	roots    [2]NodeID
	variance [2]varianceTree
}

// NewTriangleTree builds a standalone tree for the patch of the given size
// whose south-west corner is at grid (originX, originY).
func NewTriangleTree(arena *Arena, src terrain.HeightSource, originX, originY, size int) (*TriangleTree, error) {
	f := &forest{arena: arena, src: src, tracker: nopTracker{}, detailScale: 1}
	return f.addTree(originX, originY, size)
}

func (f *forest) addTree(originX, originY, size int) (*TriangleTree, error) {
	t := &TriangleTree{
		f:       f,
		index:   int32(len(f.trees)),
		originX: originX,
		originY: originY,
		size:    size,
	}

	x0, y0 := int32(originX), int32(originY)
	x1, y1 := x0+int32(size), y0+int32(size)
	corners := [2][3]gridPoint{
		halfNW: {{x0, y0}, {x1, y1}, {x0, y1}},
		halfSE: {{x1, y1}, {x0, y0}, {x1, y0}},
	}

	for half, c := range corners {
		var pos [3]math.Vec3
		for i, p := range c {
			v, err := f.position(p)
			if err != nil {
				return nil, err
			}
			pos[i] = v
		}

		id := f.arena.alloc()
		n := f.arena.node(id)
		n.left, n.right, n.apex = c[0], c[1], c[2]
		n.pos = pos
		n.patch = t.index
		n.half = uint8(half)
		n.varIndex = 1
		n.vis = frustum.In
		t.roots[half] = id
		t.variance[half] = buildVarianceTree(f.src, size, c[0], c[1], c[2])
	}

	nw, se := f.arena.node(t.roots[halfNW]), f.arena.node(t.roots[halfSE])
	nw.base = t.roots[halfSE]
	se.base = t.roots[halfNW]
	f.leaves += 2

	f.trees = append(f.trees, t)
	return t, nil
}

func (f *forest) position(p gridPoint) (math.Vec3, error) {
	v, err := terrain.WorldPosition(f.src, int(p.X), int(p.Y))
	if err == nil && !v.IsFinite() {
		err = fmt.Errorf("height is not finite")
	}
	if err != nil {
		return math.Vec3{}, &HeightSampleError{GridX: int(p.X), GridY: int(p.Y), Err: err}
	}
	return v, nil
}

// Roots returns the north-west and south-east root triangles.
func (t *TriangleTree) Roots() [2]NodeID {
	return t.roots
}

// Origin returns the grid coordinate of the patch's south-west corner.
func (t *TriangleTree) Origin() (x, y int) {
	return t.originX, t.originY
}

// Size returns the patch edge length in grid cells.
func (t *TriangleTree) Size() int {
	return t.size
}

// IsLeaf reports whether the node has no children.
func (t *TriangleTree) IsLeaf(id NodeID) bool {
	return t.f.arena.node(id).isLeaf()
}

// Children returns the node's children, NilNode for a leaf.
func (t *TriangleTree) Children(id NodeID) (left, right NodeID) {
	n := t.f.arena.node(id)
	return n.leftChild, n.rightChild
}

// Base returns the node across the hypotenuse.
func (t *TriangleTree) Base(id NodeID) NodeID {
	return t.f.arena.node(id).base
}

// Visibility returns the cached frustum classification.
func (t *TriangleTree) Visibility(id NodeID) frustum.Visibility {
	return t.f.arena.node(id).vis
}

// Vertices returns the world positions in emission order: left, apex, right.
func (t *TriangleTree) Vertices(id NodeID) (a, b, c math.Vec3) {
	n := t.f.arena.node(id)
	return n.pos[0], n.pos[2], n.pos[1]
}

// Leaves yields every leaf of the tree. The sequence can be restarted.
func (t *TriangleTree) Leaves() iter.Seq[NodeID] {
	return t.walkLeaves(false)
}

// VisibleLeaves yields the leaves whose cached visibility is In.
func (t *TriangleTree) VisibleLeaves() iter.Seq[NodeID] {
	return t.walkLeaves(true)
}

func (t *TriangleTree) walkLeaves(visibleOnly bool) iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		a := t.f.arena
		stack := []NodeID{t.roots[halfSE], t.roots[halfNW]}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n := a.node(id)
			if !n.isLeaf() {
				stack = append(stack, n.rightChild, n.leftChild)
				continue
			}
			if visibleOnly && n.vis != frustum.In {
				continue
			}
			if !yield(id) {
				return
			}
		}
	}
}

// Priority estimates the screen-space error of a node seen from eye:
// detailScale * (variance + sizeWeight * hypotenuse) / distance, with the
// distance measured to the hypotenuse midpoint.
func (t *TriangleTree) Priority(id NodeID, eye math.Vec3) float32 {
	return t.f.priority(id, eye)
}

func (f *forest) priority(id NodeID, eye math.Vec3) float32 {
	n := f.arena.node(id)
	if !n.splittable() {
		return 0
	}
	v := f.trees[n.patch].variance[n.half].at(n.varIndex)
	hyp := n.pos[0].Distance(n.pos[1])
	d := math32.Max(eye.Distance(n.pos[0].Midpoint(n.pos[1])), minPriorityDistance)
	return f.detailScale * (v + f.sizeWeight*hyp) / d
}

// SplitCost returns how many triangles Split(id) would split, counting
// every forced split of coarser neighbours.
func (t *TriangleTree) SplitCost(id NodeID) int {
	return t.f.splitCost(id)
}

func (f *forest) splitCost(id NodeID) int {
	cost := 0
	for {
		n := f.arena.node(id)
		if n.base == NilNode {
			return cost + 1
		}
		if f.arena.node(n.base).base == id {
			return cost + 2
		}
		cost += 2
		id = n.base
	}
}

// Split splits a leaf, first force-splitting coarser base neighbours so the
// shared edge never carries a T-junction. It returns the number of
// triangles split. Every midpoint is sampled before anything changes, so
// on a HeightSampleError the mesh is left as it was.
func (t *TriangleTree) Split(id NodeID) (int, error) {
	return t.f.split(id)
}

func (f *forest) split(id NodeID) (int, error) {
	n := f.arena.node(id)
	if !n.inUse || !n.isLeaf() {
		return 0, f.invalid(fmt.Errorf("%w: node %d is not a leaf", ErrInvalidSplit, id))
	}
	if !n.splittable() {
		return 0, f.invalid(fmt.Errorf("%w: node %d is at the finest level", ErrInvalidSplit, id))
	}

	s := n.left.mid(n.right)
	mid, err := f.position(s)
	if err != nil {
		return 0, err
	}

	count := 0
	if b := n.base; b != NilNode && f.arena.node(b).base != id {
		if !f.arena.node(b).isLeaf() {
			return 0, f.invalid(fmt.Errorf("%w: coarser neighbour %d of node %d is not a leaf", ErrInvalidSplit, b, id))
		}
		c, err := f.split(b)
		count += c
		if err != nil {
			return count, err
		}
	}

	b := f.arena.node(id).base
	if b == NilNode {
		f.split2(id, s, mid)
		f.tracker.diamondAdded(id)
		return count + 1, nil
	}
	if bn := f.arena.node(b); bn.base != id || !bn.isLeaf() {
		return count, f.invalid(fmt.Errorf("%w: diamond partner of node %d unresolved", ErrInvalidSplit, id))
	}

	f.split2(id, s, mid)
	f.split2(b, s, mid)

	tn, bn := f.arena.node(id), f.arena.node(b)
	f.arena.node(tn.leftChild).rightN = bn.rightChild
	f.arena.node(tn.rightChild).leftN = bn.leftChild
	f.arena.node(bn.leftChild).rightN = tn.rightChild
	f.arena.node(bn.rightChild).leftN = tn.leftChild

	f.tracker.diamondAdded(f.diamondRep(id))
	return count + 2, nil
}

// split2 turns one leaf into two children without touching its base.
func (f *forest) split2(id NodeID, s gridPoint, mid math.Vec3) {
	if p := f.arena.node(id).parent; p != NilNode {
		f.tracker.diamondRemoved(f.diamondRep(p))
	}

	lc, rc := f.arena.alloc(), f.arena.alloc()
	n := f.arena.node(id)
	l, r := f.arena.node(lc), f.arena.node(rc)

	l.left, l.right, l.apex = n.apex, n.left, s
	l.pos = [3]math.Vec3{n.pos[2], n.pos[0], mid}
	r.left, r.right, r.apex = n.right, n.apex, s
	r.pos = [3]math.Vec3{n.pos[1], n.pos[2], mid}

	for i, c := range []*node{l, r} {
		c.parent = id
		c.patch = n.patch
		c.half = n.half
		c.depth = n.depth + 1
		c.varIndex = n.varIndex*2 + uint32(i)
		c.vis = frustum.Out
		if n.vis == frustum.In {
			c.vis = f.classify(c)
		}
	}

	l.leftN = rc
	r.rightN = lc
	l.base = n.leftN
	r.base = n.rightN
	n.leftChild, n.rightChild = lc, rc

	f.relink(n.leftN, id, lc)
	f.relink(n.rightN, id, rc)
	f.leaves++

	f.tracker.leafRemoved(id)
	f.tracker.leafAdded(lc)
	f.tracker.leafAdded(rc)
}

// relink points whichever link of nb referenced from at to.
func (f *forest) relink(nb, from, to NodeID) {
	if nb == NilNode {
		return
	}
	n := f.arena.node(nb)
	switch from {
	case n.base:
		n.base = to
	case n.leftN:
		n.leftN = to
	case n.rightN:
		n.rightN = to
	}
}

func (f *forest) classify(n *node) frustum.Visibility {
	if f.frustum == nil {
		return frustum.In
	}
	return f.frustum.ClassifyTriangle(n.pos[0], n.pos[1], n.pos[2])
}

func (f *forest) invalid(err error) error {
	if f.debug {
		panic(err)
	}
	return err
}

// Merge collapses the diamond that id belongs to, restoring id and its base
// partner to leaves. id must be an internal node whose children are leaves.
// It returns the number of triangles merged, or ErrMergeSkipped when the
// diamond is not ready.
func (t *TriangleTree) Merge(id NodeID) (int, error) {
	return t.f.merge(id)
}

func (f *forest) merge(id NodeID) (int, error) {
	n := f.arena.node(id)
	if !n.inUse || !f.isDiamond(id) {
		return 0, fmt.Errorf("%w: node %d", ErrMergeSkipped, id)
	}

	f.tracker.diamondRemoved(f.diamondRep(id))

	b := n.base
	f.merge1(id)
	count := 1
	if b != NilNode {
		f.merge1(b)
		count++
	}

	f.checkDiamond(f.arena.node(id).parent)
	if b != NilNode {
		f.checkDiamond(f.arena.node(b).parent)
	}
	return count, nil
}

// merge1 removes the children of one node.
func (f *forest) merge1(id NodeID) {
	n := f.arena.node(id)
	lc, rc := n.leftChild, n.rightChild
	l, r := f.arena.node(lc), f.arena.node(rc)

	f.relink(l.base, lc, id)
	f.relink(r.base, rc, id)
	n.leftN = l.base
	n.rightN = r.base
	n.leftChild, n.rightChild = NilNode, NilNode

	f.tracker.leafRemoved(lc)
	f.tracker.leafRemoved(rc)
	f.arena.release(lc)
	f.arena.release(rc)
	f.leaves--

	f.tracker.leafAdded(id)
}

// isDiamond reports whether id and its base can be merged: both internal,
// each other's base, and all four children leaves.
func (f *forest) isDiamond(id NodeID) bool {
	if !f.hasLeafChildren(id) {
		return false
	}
	b := f.arena.node(id).base
	if b == NilNode {
		return true
	}
	return f.arena.node(b).base == id && f.hasLeafChildren(b)
}

func (f *forest) hasLeafChildren(id NodeID) bool {
	n := f.arena.node(id)
	if n.isLeaf() {
		return false
	}
	return f.arena.node(n.leftChild).isLeaf() && f.arena.node(n.rightChild).isLeaf()
}

func (f *forest) checkDiamond(id NodeID) {
	if id == NilNode || !f.isDiamond(id) {
		return
	}
	f.tracker.diamondAdded(f.diamondRep(id))
}

// diamondRep picks the node that stands for a diamond in the merge queue.
func (f *forest) diamondRep(id NodeID) NodeID {
	if b := f.arena.node(id).base; b != NilNode && b < id && f.arena.node(b).base == id {
		return b
	}
	return id
}
