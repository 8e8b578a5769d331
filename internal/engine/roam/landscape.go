package roam

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/roamscape/internal/engine/frustum"
	"github.com/Faultbox/roamscape/internal/engine/terrain"
	"github.com/Faultbox/roamscape/pkg/math"
)

// Options configures a Landscape.
type Options struct {
	// PatchSize is the patch edge in grid cells, a power of two.
	PatchSize int

	// Priority = DetailScale * (variance + SizeWeight * hypotenuse) / distance.
	DetailScale float32
	SizeWeight  float32

	// Leaves above SplitThreshold are split, diamonds below it are merged.
	SplitThreshold float32

	// Projections holds one projection matrix per viewport.
	Projections []math.Mat4

	Appearance terrain.AppearanceGenerator
	Sink       terrain.RenderSink
	Logger     *zap.Logger

	// Debug panics on invalid split requests instead of returning an error.
	Debug bool
}

// DefaultOptions returns options suitable for a single 60 degree viewport.
func DefaultOptions() Options {
	return Options{
		PatchSize:      16,
		DetailScale:    1,
		SizeWeight:     0.1,
		SplitThreshold: 0.02,
		Projections:    []math.Mat4{math.Perspective(math32.Pi/3, 4.0/3, 1, 2000)},
	}
}

// FrameStats summarises one UpdateFrame call.
type FrameStats struct {
	Splits        int // triangles split, forced splits included
	Merges        int // triangles merged
	SkippedMerges int
	Deferred      int // split candidates left for a later frame
	Triangles     int // leaves after the update
	SplitQueue    int
	MergeQueue    int
}

// Landscape drives the split and merge loop over a grid of patches that
// share one arena and one pair of candidate queues. It is not safe for
// concurrent use.
type Landscape struct {
	opts    Options
	log     *zap.Logger
	src     terrain.HeightSource
	format  terrain.VertexFormat
	attrs   terrain.AttributeSource
	forest  *forest
	patches []*Patch
	cols    int
	rows    int

	frustum *frustum.Frustum
	eye     math.Vec3
	viewSet bool

	splits *splitQueue
	merges *mergeQueue
	buf    terrain.VertexBuffer
}

// NewLandscape tiles the height source with patches. The grid dimensions
// minus one must be multiples of opts.PatchSize.
func NewLandscape(src terrain.HeightSource, opts Options) (*Landscape, error) {
	p := opts.PatchSize
	if p < 2 || bits.OnesCount(uint(p)) != 1 {
		return nil, fmt.Errorf("patch size %d is not a power of two >= 2", p)
	}
	w, d := src.GridDimensions()
	if w < p+1 || d < p+1 || (w-1)%p != 0 || (d-1)%p != 0 {
		return nil, fmt.Errorf("grid %dx%d cannot be tiled by patches of %d cells", w, d, p)
	}
	if len(opts.Projections) == 0 {
		opts.Projections = DefaultOptions().Projections
	}
	if opts.DetailScale == 0 {
		opts.DetailScale = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	cols, rows := (w-1)/p, (d-1)/p
	arena := NewArena(cols * rows * 64)
	l := &Landscape{
		opts:    opts,
		log:     opts.Logger,
		src:     src,
		format:  terrain.FormatOf(src),
		cols:    cols,
		rows:    rows,
		frustum: frustum.New(),
		splits:  &splitQueue{arena: arena},
		merges:  &mergeQueue{arena: arena},
	}
	if a, ok := src.(terrain.AttributeSource); ok {
		l.attrs = a
	}

	l.forest = &forest{
		arena:       arena,
		src:         src,
		tracker:     l,
		frustum:     l.frustum,
		detailScale: opts.DetailScale,
		sizeWeight:  opts.SizeWeight,
		debug:       opts.Debug,
	}

	for py := range rows {
		for px := range cols {
			t, err := l.forest.addTree(px*p, py*p, p)
			if err != nil {
				return nil, fmt.Errorf("patch (%d, %d): %w", px, py, err)
			}
			patch := &Patch{TileX: px, TileY: py, tree: t, vis: frustum.In}
			patch.computeBounds(src)
			l.patches = append(l.patches, patch)
		}
	}
	stitch(arena, l.patches, cols, rows)

	l.log.Debug("landscape created",
		zap.Int("cols", cols),
		zap.Int("rows", rows),
		zap.Int("patch_size", p),
		zap.Int("triangles", l.forest.leaves))
	return l, nil
}

// Patches returns the patches in row-major order, south to north.
func (l *Landscape) Patches() []*Patch {
	return l.patches
}

// Patch returns the patch at tile coordinates, or nil.
func (l *Landscape) Patch(tileX, tileY int) *Patch {
	if tileX < 0 || tileY < 0 || tileX >= l.cols || tileY >= l.rows {
		return nil
	}
	return l.patches[tileY*l.cols+tileX]
}

// Frustum returns the view volume used for classification.
func (l *Landscape) Frustum() *frustum.Frustum {
	return l.frustum
}

// TriangleCount returns the number of leaves across all patches.
func (l *Landscape) TriangleCount() int {
	return l.forest.leaves
}

// SetProjections replaces the per-viewport projection matrices used by the
// next SetView.
func (l *Landscape) SetProjections(projections ...math.Mat4) {
	if len(projections) > 0 {
		l.opts.Projections = projections
	}
}

// SetTuning changes the priority weights and the split threshold. Queued
// priorities pick up the change at the next SetView.
func (l *Landscape) SetTuning(detailScale, sizeWeight, splitThreshold float32) {
	if detailScale == 0 {
		detailScale = 1
	}
	l.opts.DetailScale = detailScale
	l.opts.SizeWeight = sizeWeight
	l.opts.SplitThreshold = splitThreshold
	l.forest.detailScale = detailScale
	l.forest.sizeWeight = sizeWeight
}

// SetView moves the camera. It recomputes the frustum, reclassifies every
// patch and rebuilds both candidate queues. On a DegenerateCameraError the
// previous view stays in effect.
func (l *Landscape) SetView(position, direction math.Vec3) error {
	if direction.Length() == 0 || !direction.IsFinite() || !position.IsFinite() {
		err := &frustum.DegenerateCameraError{Viewport: 0, Reason: "invalid camera position or direction"}
		l.log.Warn("keeping previous view", zap.Error(err))
		return err
	}

	dir := direction.Normalize()
	up := math.Vec3{Y: 1}
	if math32.Abs(dir.Dot(up)) > 0.999 {
		up = math.Vec3{Z: -1}
	}
	view := math.LookAt(position, position.Add(dir), up)

	viewProj := make([]math.Mat4, len(l.opts.Projections))
	for i, proj := range l.opts.Projections {
		viewProj[i] = proj.Mul(view)
	}
	if err := l.frustum.Recompute(viewProj...); err != nil {
		var dce *frustum.DegenerateCameraError
		if errors.As(err, &dce) {
			l.log.Warn("keeping previous frustum", zap.Int("viewport", dce.Viewport), zap.String("reason", dce.Reason))
		}
		return err
	}

	l.eye = position
	l.viewSet = true
	l.refresh()
	return nil
}

// refresh reclassifies all nodes and refills the queues.
func (l *Landscape) refresh() {
	l.splits.reset()
	l.merges.reset()

	for _, p := range l.patches {
		p.vis = l.frustum.ClassifyBox(p.bounds)
		if p.vis == frustum.In && !p.seen {
			p.seen = true
			if l.opts.Appearance != nil {
				p.appearance = l.opts.Appearance.CreateAppearance(p.TileX, p.TileY)
			}
		}
		for _, root := range p.tree.roots {
			l.classifyTree(root, p.vis)
		}
	}

	// Diamonds can span two patches, so queue only once every node has
	// its new visibility.
	a := l.forest.arena
	for _, p := range l.patches {
		stack := []NodeID{p.tree.roots[halfNW], p.tree.roots[halfSE]}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n := a.node(id)
			if n.isLeaf() {
				l.leafAdded(id)
				continue
			}
			stack = append(stack, n.leftChild, n.rightChild)
			if l.forest.isDiamond(id) && l.forest.diamondRep(id) == id {
				l.diamondAdded(id)
			}
		}
	}
}

// classifyTree sets the visibility of a subtree. Children of an Out node
// are Out without testing.
func (l *Landscape) classifyTree(root NodeID, parentVis frustum.Visibility) {
	a := l.forest.arena
	type item struct {
		id  NodeID
		vis frustum.Visibility
	}
	stack := []item{{root, parentVis}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := a.node(it.id)
		if it.vis == frustum.Out {
			n.vis = frustum.Out
		} else {
			n.vis = l.frustum.ClassifyTriangle(n.pos[0], n.pos[1], n.pos[2])
		}
		if !n.isLeaf() {
			stack = append(stack, item{n.leftChild, n.vis}, item{n.rightChild, n.vis})
		}
	}
}

// UpdateFrame merges over-detailed diamonds and splits the highest priority
// leaves. Splits and merges each change at most maxTriangleDelta triangles.
// Failures of individual candidates are joined into the returned error and
// never stop the frame.
//
// A candidate whose cost exceeds the remaining budget is deferred, not
// partially applied. Splitting or merging a paired diamond always changes
// two triangles, so with maxTriangleDelta == 1 only unpaired leaves on the
// terrain border can move.
func (l *Landscape) UpdateFrame(maxTriangleDelta int) (FrameStats, error) {
	var stats FrameStats
	var errs []error
	if !l.viewSet {
		stats.Triangles = l.forest.leaves
		return stats, nil
	}

	threshold := l.opts.SplitThreshold
	a := l.forest.arena

	for l.merges.Len() > 0 {
		rep, prio := l.merges.peek()
		if prio >= threshold {
			break
		}
		cost := 2
		if a.node(rep).base == NilNode {
			cost = 1
		}
		if stats.Merges+cost > maxTriangleDelta {
			break
		}
		l.merges.pop()
		n, err := l.forest.merge(rep)
		if errors.Is(err, ErrMergeSkipped) {
			stats.SkippedMerges++
			continue
		}
		stats.Merges += n
	}

	var deferred []NodeID
	for l.splits.Len() > 0 && stats.Splits < maxTriangleDelta {
		id := l.splits.peek()
		if a.node(id).priority <= threshold {
			break
		}
		l.splits.pop()
		if stats.Splits+l.forest.splitCost(id) > maxTriangleDelta {
			deferred = append(deferred, id)
			continue
		}

		n, err := l.forest.split(id)
		stats.Splits += n
		if err != nil {
			var hse *HeightSampleError
			if errors.As(err, &hse) {
				l.log.Warn("split aborted", zap.Int("grid_x", hse.GridX), zap.Int("grid_y", hse.GridY), zap.Error(hse.Err))
			}
			errs = append(errs, err)
			deferred = append(deferred, id)
		}
	}
	for _, id := range deferred {
		if n := a.node(id); n.inUse && n.isLeaf() && n.splitSlot < 0 {
			l.leafAdded(id)
		}
	}

	stats.Deferred = len(deferred)
	stats.Triangles = l.forest.leaves
	stats.SplitQueue = l.splits.Len()
	stats.MergeQueue = l.merges.Len()

	l.log.Debug("frame updated",
		zap.Int("splits", stats.Splits),
		zap.Int("merges", stats.Merges),
		zap.Int("skipped_merges", stats.SkippedMerges),
		zap.Int("deferred", stats.Deferred),
		zap.Int("triangles", stats.Triangles),
		zap.Int("split_queue", stats.SplitQueue),
		zap.Int("merge_queue", stats.MergeQueue))

	return stats, errors.Join(errs...)
}

// EmitGeometry flattens the visible leaves of every patch into one vertex
// buffer and submits it to the configured sink. The buffer is reused by the
// next call.
func (l *Landscape) EmitGeometry() (*terrain.VertexBuffer, error) {
	buf := &l.buf
	buf.Reset(l.format)
	a := l.forest.arena

	for _, p := range l.patches {
		span := terrain.PatchSpan{
			TileX:       p.TileX,
			TileY:       p.TileY,
			FirstVertex: buf.VertexCount(),
			Appearance:  p.appearance,
		}
		if p.vis == frustum.In {
			for id := range p.tree.VisibleLeaves() {
				n := a.node(id)
				l.addVertex(buf, n.left, n.pos[0])
				l.addVertex(buf, n.apex, n.pos[2])
				l.addVertex(buf, n.right, n.pos[1])
				span.TriangleCount++
			}
		}
		buf.TriangleCount += span.TriangleCount
		buf.Spans = append(buf.Spans, span)
	}

	if l.opts.Sink != nil {
		if err := l.opts.Sink.Submit(buf, buf.TriangleCount); err != nil {
			return buf, fmt.Errorf("submitting geometry: %w", err)
		}
	}
	return buf, nil
}

func (l *Landscape) addVertex(buf *terrain.VertexBuffer, g gridPoint, pos math.Vec3) {
	var st [2]float32
	var rgb [3]float32
	if l.attrs != nil {
		if l.format.HasTexture() {
			st = l.attrs.TexCoordAt(int(g.X), int(g.Y))
		}
		if l.format.HasColor() {
			rgb = l.attrs.ColorAt(int(g.X), int(g.Y))
		}
	}
	buf.AddVertex(pos, st, rgb)
}

// leafAdded queues a visible, splittable leaf.
func (l *Landscape) leafAdded(id NodeID) {
	if !l.viewSet {
		return
	}
	n := l.forest.arena.node(id)
	if n.vis != frustum.In || !n.splittable() {
		return
	}
	l.splits.insert(id, l.forest.priority(id, l.eye))
}

func (l *Landscape) leafRemoved(id NodeID) {
	l.splits.remove(id)
}

// diamondAdded queues a mergeable diamond. Its priority is the larger of
// the two halves; a diamond with no visible half merges first.
func (l *Landscape) diamondAdded(rep NodeID) {
	if !l.viewSet {
		return
	}
	f := l.forest
	prio := math32.Inf(-1)
	for _, id := range []NodeID{rep, f.arena.node(rep).base} {
		if id == NilNode || f.arena.node(id).vis != frustum.In {
			continue
		}
		prio = math32.Max(prio, f.priority(id, l.eye))
	}
	l.merges.insert(rep, prio)
}

func (l *Landscape) diamondRemoved(rep NodeID) {
	l.merges.remove(rep)
}
