// Package render provides RenderSink implementations for headless use:
// frame statistics, STL export and top-down PNG previews.
package render

import (
	"github.com/Faultbox/roamscape/internal/engine/terrain"
)

// Multi fans one frame out to several sinks. It stops at the first error.
type Multi []terrain.RenderSink

// Submit implements terrain.RenderSink.
func (m Multi) Submit(buf *terrain.VertexBuffer, triangleCount int) error {
	for _, s := range m {
		if err := s.Submit(buf, triangleCount); err != nil {
			return err
		}
	}
	return nil
}
