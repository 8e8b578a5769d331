package roam

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/roamscape/internal/engine/terrain"
	"github.com/Faultbox/roamscape/pkg/math"
)

func newTree(t *testing.T, src terrain.HeightSource, size int) *TriangleTree {
	t.Helper()
	tree, err := NewTriangleTree(NewArena(64), src, 0, 0, size)
	require.NoError(t, err)
	return tree
}

func TestNewTriangleTreeRoots(t *testing.T) {
	tree := newTree(t, flatSource(5), 4)
	a := tree.f.arena

	roots := tree.Roots()
	nw, se := a.node(roots[0]), a.node(roots[1])
	assert.Equal(t, gridPoint{0, 0}, nw.left)
	assert.Equal(t, gridPoint{4, 4}, nw.right)
	assert.Equal(t, gridPoint{0, 4}, nw.apex)
	assert.Equal(t, gridPoint{4, 4}, se.left)
	assert.Equal(t, gridPoint{0, 0}, se.right)
	assert.Equal(t, gridPoint{4, 0}, se.apex)

	assert.Equal(t, roots[1], tree.Base(roots[0]))
	assert.Equal(t, roots[0], tree.Base(roots[1]))
	assert.True(t, tree.IsLeaf(roots[0]))
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 2, tree.SplitCost(roots[0]))
}

func TestSplitWindingFacesUp(t *testing.T) {
	tree := newTree(t, rampSource(9), 8)
	_, err := tree.Split(tree.Roots()[0])
	require.NoError(t, err)

	for id := range tree.Leaves() {
		a, b, c := tree.Vertices(id)
		normal := b.Sub(a).Cross(c.Sub(a))
		assert.Greater(t, normal.Y, float32(0), "leaf %d winds clockwise", id)
	}
}

func TestSplitRootDiamond(t *testing.T) {
	tree := newTree(t, flatSource(5), 4)
	roots := tree.Roots()

	n, err := tree.Split(roots[0])
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, tree.IsLeaf(roots[0]))
	assert.False(t, tree.IsLeaf(roots[1]))
	assert.Equal(t, 4, tree.f.leaves)
	requireCrackFree(t, tree.f)

	var total float32
	for id := range tree.Leaves() {
		total += math.TriangleArea(tree.Vertices(id))
	}
	assert.InDelta(t, 16, total, 1e-4)
}

func TestSplitMergeInverse(t *testing.T) {
	tree := newTree(t, rampSource(9), 8)
	f := tree.f
	roots := tree.Roots()

	before := leafSnapshot(f)
	nodes := f.arena.Len()

	_, err := tree.Split(roots[0])
	require.NoError(t, err)
	n, err := tree.Merge(roots[0])
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, before, leafSnapshot(f))
	assert.Equal(t, nodes, f.arena.Len())

	// A boundary leaf has no base partner and merges on its own.
	_, err = tree.Split(roots[0])
	require.NoError(t, err)
	edge := findLeaf(t, f, gridPoint{0, 8}, gridPoint{0, 0})
	before = leafSnapshot(f)

	n, err = tree.Split(edge)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = tree.Merge(edge)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, before, leafSnapshot(f))
}

func TestForceSplitPropagation(t *testing.T) {
	tree := newTree(t, rampSource(9), 8)
	f := tree.f

	_, err := tree.Split(tree.Roots()[0])
	require.NoError(t, err)

	south := findLeaf(t, f, gridPoint{0, 0}, gridPoint{8, 0})
	n, err := tree.Split(south)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	inner := findLeaf(t, f, gridPoint{4, 4}, gridPoint{0, 0})
	assert.Equal(t, 3, tree.SplitCost(inner))
	n, err = tree.Split(inner)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	requireCrackFree(t, f)

	// This leaf's base is one level coarser and that base's base is
	// coarser again.
	deep := findLeaf(t, f, gridPoint{4, 0}, gridPoint{4, 4})
	base := tree.Base(deep)
	baseOfBase := tree.Base(base)
	require.NotEqual(t, NilNode, base)
	require.NotEqual(t, NilNode, baseOfBase)
	assert.NotEqual(t, deep, tree.Base(base))
	assert.NotEqual(t, base, tree.Base(baseOfBase))
	assert.Equal(t, 5, tree.SplitCost(deep))

	n, err = tree.Split(deep)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.False(t, tree.IsLeaf(base), "coarser base should have been force-split")
	assert.False(t, tree.IsLeaf(baseOfBase), "base of base should have been force-split")
	requireCrackFree(t, f)
}

func TestSplitAcrossPatches(t *testing.T) {
	l, err := NewLandscape(rampSource(9), Options{PatchSize: 4})
	require.NoError(t, err)
	f := l.forest

	// The west edge of patch (1, 0) is a leg of patch (0, 0)'s SE root.
	west := findLeaf(t, f, gridPoint{4, 4}, gridPoint{0, 0})
	leaf := findLeaf(t, f, gridPoint{4, 0}, gridPoint{8, 4})
	n, err := l.Patch(1, 0).Tree().Split(leaf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = l.Patch(1, 0).Tree().Split(findLeaf(t, f, gridPoint{4, 4}, gridPoint{4, 0}))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.False(t, l.Patch(0, 0).Tree().IsLeaf(west))
	requireCrackFree(t, f)
}

func TestInvalidSplit(t *testing.T) {
	tree := newTree(t, flatSource(3), 2)
	roots := tree.Roots()

	_, err := tree.Split(roots[0])
	require.NoError(t, err)

	_, err = tree.Split(roots[0])
	assert.ErrorIs(t, err, ErrInvalidSplit)

	for _, id := range slices.Collect(tree.Leaves()) {
		_, err := tree.Split(id)
		require.NoError(t, err)
	}
	// Legs of length one cannot be split any further.
	for _, id := range slices.Collect(tree.Leaves()) {
		_, err := tree.Split(id)
		assert.ErrorIs(t, err, ErrInvalidSplit)
	}

	tree.f.debug = true
	assert.Panics(t, func() { _, _ = tree.Split(roots[1]) })
}

func TestMergeSkipped(t *testing.T) {
	tree := newTree(t, flatSource(9), 8)
	f := tree.f
	roots := tree.Roots()

	_, err := tree.Merge(roots[0])
	assert.ErrorIs(t, err, ErrMergeSkipped, "a leaf cannot merge")

	_, err = tree.Split(roots[0])
	require.NoError(t, err)
	_, err = tree.Split(findLeaf(t, f, gridPoint{0, 8}, gridPoint{0, 0}))
	require.NoError(t, err)

	before := leafSnapshot(f)
	_, err = tree.Merge(roots[0])
	assert.ErrorIs(t, err, ErrMergeSkipped, "a child is still split")
	assert.Equal(t, before, leafSnapshot(f))
}

func TestSplitHeightSampleError(t *testing.T) {
	src := &failingSource{Heightfield: flatSource(5), failX: 2, failY: 2}
	tree := newTree(t, src, 4)
	f := tree.f
	before := leafSnapshot(f)

	n, err := tree.Split(tree.Roots()[0])
	assert.Equal(t, 0, n)

	var hse *HeightSampleError
	require.True(t, errors.As(err, &hse))
	assert.Equal(t, 2, hse.GridX)
	assert.Equal(t, 2, hse.GridY)
	assert.ErrorIs(t, err, errStubSample)

	assert.True(t, tree.IsLeaf(tree.Roots()[0]))
	assert.Equal(t, before, leafSnapshot(f))
	assert.Equal(t, 2, f.arena.Len())
}

func TestForcedSplitChainIsAtomic(t *testing.T) {
	src := &failingSource{Heightfield: rampSource(9), failX: -1, failY: -1}
	tree := newTree(t, src, 8)
	f := tree.f

	_, err := tree.Split(tree.Roots()[0])
	require.NoError(t, err)
	_, err = tree.Split(findLeaf(t, f, gridPoint{0, 0}, gridPoint{8, 0}))
	require.NoError(t, err)
	_, err = tree.Split(findLeaf(t, f, gridPoint{4, 4}, gridPoint{0, 0}))
	require.NoError(t, err)

	deep := findLeaf(t, f, gridPoint{4, 0}, gridPoint{4, 4})
	base := tree.Base(deep)
	baseOfBase := tree.Base(base)
	require.Equal(t, 5, tree.SplitCost(deep))

	// Fail each coarser midpoint of the chain in turn. The whole chain
	// must be rejected before any node is touched.
	for _, id := range []NodeID{deep, base, baseOfBase} {
		n := f.arena.node(id)
		mid := n.left.mid(n.right)
		src.failX, src.failY = int(mid.X), int(mid.Y)

		before := leafSnapshot(f)
		nodes := f.arena.Len()

		split, err := tree.Split(deep)
		var hse *HeightSampleError
		require.True(t, errors.As(err, &hse), "midpoint %v", mid)
		assert.Equal(t, src.failX, hse.GridX)
		assert.Equal(t, src.failY, hse.GridY)
		assert.Zero(t, split)
		assert.Equal(t, before, leafSnapshot(f), "midpoint %v", mid)
		assert.Equal(t, nodes, f.arena.Len())
		assert.True(t, tree.IsLeaf(deep))
		requireCrackFree(t, f)
	}

	src.failX, src.failY = -1, -1
	n, err := tree.Split(deep)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	requireCrackFree(t, f)
}

func TestVarianceTree(t *testing.T) {
	h := flatSource(5)
	h.Set(2, 2, 6)
	vt := buildVarianceTree(h, 4, gridPoint{0, 0}, gridPoint{4, 4}, gridPoint{0, 4})

	assert.InDelta(t, 6, vt.at(1), 1e-6)
	assert.Len(t, vt, 16)
	assert.Equal(t, float32(0), vt.at(1000))

	flat := buildVarianceTree(flatSource(5), 4, gridPoint{0, 0}, gridPoint{4, 4}, gridPoint{0, 4})
	for i, v := range flat {
		assert.Zero(t, v, "index %d", i)
	}
}

func TestPriorityFallsWithDistance(t *testing.T) {
	tree := newTree(t, rampSource(9), 8)
	tree.f.sizeWeight = 1
	root := tree.Roots()[0]

	near := tree.Priority(root, math.Vec3{X: 4, Y: 10, Z: 4})
	far := tree.Priority(root, math.Vec3{X: 4, Y: 100, Z: 4})
	assert.Greater(t, near, far)
	assert.Greater(t, far, float32(0))
}
