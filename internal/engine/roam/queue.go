package roam

import "container/heap"

// splitQueue is a max-heap of leaves keyed by node priority. Each queued
// node records its heap position in splitSlot.
type splitQueue struct {
	arena *Arena
	items []NodeID
}

func (q *splitQueue) Len() int { return len(q.items) }

func (q *splitQueue) Less(i, j int) bool {
	return q.arena.node(q.items[i]).priority > q.arena.node(q.items[j]).priority
}

func (q *splitQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.arena.node(q.items[i]).splitSlot = int32(i)
	q.arena.node(q.items[j]).splitSlot = int32(j)
}

func (q *splitQueue) Push(x any) {
	id := x.(NodeID)
	q.arena.node(id).splitSlot = int32(len(q.items))
	q.items = append(q.items, id)
}

func (q *splitQueue) Pop() any {
	id := q.items[len(q.items)-1]
	q.items = q.items[:len(q.items)-1]
	q.arena.node(id).splitSlot = -1
	return id
}

// insert adds or repositions a node with the given priority.
func (q *splitQueue) insert(id NodeID, priority float32) {
	n := q.arena.node(id)
	n.priority = priority
	if n.splitSlot >= 0 {
		heap.Fix(q, int(n.splitSlot))
		return
	}
	heap.Push(q, id)
}

func (q *splitQueue) remove(id NodeID) {
	if slot := q.arena.node(id).splitSlot; slot >= 0 {
		heap.Remove(q, int(slot))
	}
}

func (q *splitQueue) peek() NodeID {
	return q.items[0]
}

func (q *splitQueue) pop() NodeID {
	return heap.Pop(q).(NodeID)
}

func (q *splitQueue) reset() {
	for _, id := range q.items {
		q.arena.node(id).splitSlot = -1
	}
	q.items = q.items[:0]
}

// mergeQueue is a min-heap of diamond representatives keyed by diamond
// priority, with heap positions recorded in mergeSlot.
type mergeQueue struct {
	arena *Arena
	items []NodeID
}

func (q *mergeQueue) Len() int { return len(q.items) }

func (q *mergeQueue) Less(i, j int) bool {
	return q.arena.node(q.items[i]).mergePriority < q.arena.node(q.items[j]).mergePriority
}

func (q *mergeQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.arena.node(q.items[i]).mergeSlot = int32(i)
	q.arena.node(q.items[j]).mergeSlot = int32(j)
}

func (q *mergeQueue) Push(x any) {
	id := x.(NodeID)
	q.arena.node(id).mergeSlot = int32(len(q.items))
	q.items = append(q.items, id)
}

func (q *mergeQueue) Pop() any {
	id := q.items[len(q.items)-1]
	q.items = q.items[:len(q.items)-1]
	q.arena.node(id).mergeSlot = -1
	return id
}

func (q *mergeQueue) insert(rep NodeID, priority float32) {
	n := q.arena.node(rep)
	n.mergePriority = priority
	if n.mergeSlot >= 0 {
		heap.Fix(q, int(n.mergeSlot))
		return
	}
	heap.Push(q, rep)
}

func (q *mergeQueue) remove(rep NodeID) {
	if slot := q.arena.node(rep).mergeSlot; slot >= 0 {
		heap.Remove(q, int(slot))
	}
}

func (q *mergeQueue) peek() (NodeID, float32) {
	id := q.items[0]
	return id, q.arena.node(id).mergePriority
}

func (q *mergeQueue) pop() NodeID {
	return heap.Pop(q).(NodeID)
}

func (q *mergeQueue) reset() {
	for _, id := range q.items {
		q.arena.node(id).mergeSlot = -1
	}
	q.items = q.items[:0]
}
