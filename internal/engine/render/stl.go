package render

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Faultbox/roamscape/internal/engine/terrain"
	"github.com/Faultbox/roamscape/pkg/math"
)

// STLSink writes the last submitted frame as an ASCII STL solid.
// The file is rewritten on every Submit.
type STLSink struct {
	Path string
	Name string // solid name, defaults to "terrain"
}

// NewSTLSink creates a sink writing to path.
func NewSTLSink(path string) *STLSink {
	return &STLSink{Path: path, Name: "terrain"}
}

// Submit implements terrain.RenderSink.
func (s *STLSink) Submit(buf *terrain.VertexBuffer, triangleCount int) error {
	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}

	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("creating stl file: %w", err)
	}
	if err := WriteSTL(f, s.Name, buf, triangleCount); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteSTL writes the first triangleCount triangles of buf as ASCII STL.
// The buffer is Y-up; STL consumers expect Z-up, so Y and Z are swapped and
// the vertex order reversed to keep outward normals.
func WriteSTL(w io.Writer, name string, buf *terrain.VertexBuffer, triangleCount int) error {
	if name == "" {
		name = "terrain"
	}
	if limit := buf.VertexCount() / 3; triangleCount > limit {
		return fmt.Errorf("triangle count %d exceeds buffer of %d", triangleCount, limit)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "solid %s\n", name)
	for i := range triangleCount {
		a := zUp(buf.Position(i * 3))
		b := zUp(buf.Position(i*3 + 1))
		c := zUp(buf.Position(i*3 + 2))
		a, c = c, a

		n := b.Sub(a).Cross(c.Sub(a)).Normalize()
		fmt.Fprintf(bw, "  facet normal %g %g %g\n", n.X, n.Y, n.Z)
		fmt.Fprintf(bw, "    outer loop\n")
		for _, v := range [3]math.Vec3{a, b, c} {
			fmt.Fprintf(bw, "      vertex %g %g %g\n", v.X, v.Y, v.Z)
		}
		fmt.Fprintf(bw, "    endloop\n")
		fmt.Fprintf(bw, "  endfacet\n")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)
	return bw.Flush()
}

func zUp(v math.Vec3) math.Vec3 {
	return math.Vec3{X: v.X, Y: v.Z, Z: v.Y}
}
