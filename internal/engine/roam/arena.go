// Package roam maintains view-dependent terrain triangulations as binary
// triangle trees that are split and merged incrementally every frame.
package roam

import (
	"github.com/Faultbox/roamscape/internal/engine/frustum"
	"github.com/Faultbox/roamscape/pkg/math"
)

// NodeID is a handle to a node stored in an Arena.
type NodeID int32

// NilNode is the null handle.
const NilNode NodeID = -1

// gridPoint is a vertex referenced by its index into the height grid.
type gridPoint struct {
	X, Y int32
}

func (p gridPoint) mid(q gridPoint) gridPoint {
	return gridPoint{(p.X + q.X) / 2, (p.Y + q.Y) / 2}
}

// node is one triangle of the bintree. The hypotenuse runs from left to
// right, apex is the right-angle corner.
type node struct {
	left, right, apex gridPoint
	pos               [3]math.Vec3 // world positions of left, right, apex

	parent                NodeID
	leftChild, rightChild NodeID
	base                  NodeID // across the hypotenuse
	leftN                 NodeID // across apex-left
	rightN                NodeID // across apex-right

	patch    int32
	half     uint8  // root the node descends from
	depth    uint8
	varIndex uint32 // heap index in the variance tree of its root

	vis           frustum.Visibility
	priority      float32 // as a split candidate
	mergePriority float32 // of the diamond this node represents
	splitSlot     int32   // position in the split queue, -1 when absent
	mergeSlot     int32   // position in the merge queue, -1 when absent
	inUse         bool
}

func (n *node) isLeaf() bool {
	return n.leftChild == NilNode
}

// splittable reports whether the hypotenuse midpoint lies on the grid.
func (n *node) splittable() bool {
	return (n.left.X+n.right.X)%2 == 0 && (n.left.Y+n.right.Y)%2 == 0
}

// Arena is flat storage for the nodes of every tree of a landscape.
// Released nodes are recycled through a free list.
type Arena struct {
	nodes []node
	free  []NodeID
	live  int
}

// NewArena creates an arena with room for capacity nodes before growing.
func NewArena(capacity int) *Arena {
	return &Arena{nodes: make([]node, 0, capacity)}
}

// Len returns the number of nodes in use.
func (a *Arena) Len() int {
	return a.live
}

// Cap returns the number of slots allocated so far.
func (a *Arena) Cap() int {
	return len(a.nodes)
}

func (a *Arena) alloc() NodeID {
	var id NodeID
	if n := len(a.free); n > 0 {
		id = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		id = NodeID(len(a.nodes))
		a.nodes = append(a.nodes, node{})
	}
	a.nodes[id] = node{
		parent:     NilNode,
		leftChild:  NilNode,
		rightChild: NilNode,
		base:       NilNode,
		leftN:      NilNode,
		rightN:     NilNode,
		splitSlot:  -1,
		mergeSlot:  -1,
		inUse:      true,
	}
	a.live++
	return id
}

func (a *Arena) release(id NodeID) {
	a.nodes[id] = node{}
	a.free = append(a.free, id)
	a.live--
}

// node returns a pointer that is only valid until the next alloc.
func (a *Arena) node(id NodeID) *node {
	return &a.nodes[id]
}
