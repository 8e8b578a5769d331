package render

import (
	"go.uber.org/zap"

	"github.com/Faultbox/roamscape/internal/engine/terrain"
	"github.com/Faultbox/roamscape/pkg/math"
)

// StatsSink logs per-frame triangle counts instead of drawing anything.
type StatsSink struct {
	log   *zap.Logger
	every int

	Frames        int
	LastTriangles int
	MinTriangles  int
	MaxTriangles  int
	// LastArea is the surface area of the last frame's triangles.
	LastArea float32
	total    int
}

// NewStatsSink logs a summary line every `every` frames at info level.
// Each frame is logged at debug level.
func NewStatsSink(log *zap.Logger, every int) *StatsSink {
	if log == nil {
		log = zap.NewNop()
	}
	if every < 1 {
		every = 1
	}
	return &StatsSink{log: log, every: every}
}

// Submit implements terrain.RenderSink.
func (s *StatsSink) Submit(buf *terrain.VertexBuffer, triangleCount int) error {
	s.Frames++
	s.LastTriangles = triangleCount
	s.total += triangleCount
	if s.Frames == 1 || triangleCount < s.MinTriangles {
		s.MinTriangles = triangleCount
	}
	s.MaxTriangles = max(s.MaxTriangles, triangleCount)

	s.LastArea = 0
	for t := range min(triangleCount, buf.VertexCount()/3) {
		s.LastArea += math.TriangleArea(buf.Position(t*3), buf.Position(t*3+1), buf.Position(t*3+2))
	}

	visible := 0
	for _, span := range buf.Spans {
		if span.TriangleCount > 0 {
			visible++
		}
	}

	s.log.Debug("frame submitted",
		zap.Int("frame", s.Frames),
		zap.Int("triangles", triangleCount),
		zap.Int("vertices", buf.VertexCount()),
		zap.Float32("area", s.LastArea),
		zap.Int("visible_patches", visible),
		zap.Int("patches", len(buf.Spans)))

	if s.Frames%s.every == 0 {
		s.log.Info("render stats",
			zap.Int("frames", s.Frames),
			zap.Int("triangles", triangleCount),
			zap.Int("min", s.MinTriangles),
			zap.Int("max", s.MaxTriangles),
			zap.Float64("mean", s.Mean()))
	}
	return nil
}

// Mean returns the average triangle count per submitted frame.
func (s *StatsSink) Mean() float64 {
	if s.Frames == 0 {
		return 0
	}
	return float64(s.total) / float64(s.Frames)
}
