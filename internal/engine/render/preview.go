package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"github.com/chewxy/math32"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/Faultbox/roamscape/internal/engine/terrain"
	"github.com/Faultbox/roamscape/pkg/math"
)

var (
	previewBackground = color.RGBA{R: 26, G: 26, B: 38, A: 255}
	previewLabel      = color.RGBA{R: 255, G: 220, B: 0, A: 255}
)

// PreviewSink saves a top-down wireframe of the emitted mesh as PNG, which
// makes the distribution of detail across the terrain easy to inspect.
// North (+Z) is at the top of the image.
type PreviewSink struct {
	outputDir string
	prefix    string

	// Extent is the world area mapped onto the image.
	Extent        math.AABB
	Width, Height int
	// Every saves one image per Every frames.
	Every int
	// Label stamps the frame number and triangle count in the top-left corner.
	Label bool

	frame int
	last  string
}

// NewPreviewSink creates a preview sink covering extent.
func NewPreviewSink(outputDir, prefix string, extent math.AABB) *PreviewSink {
	return &PreviewSink{
		outputDir: outputDir,
		prefix:    prefix,
		Extent:    extent,
		Width:     512,
		Height:    512,
		Every:     1,
		Label:     true,
	}
}

// LastFile returns the path of the most recently written image.
func (ps *PreviewSink) LastFile() string {
	return ps.last
}

// Submit implements terrain.RenderSink.
func (ps *PreviewSink) Submit(buf *terrain.VertexBuffer, triangleCount int) error {
	ps.frame++
	if ps.Every > 1 && (ps.frame-1)%ps.Every != 0 {
		return nil
	}

	img := ps.Rasterize(buf, triangleCount)
	if ps.Label {
		drawLabel(img, fmt.Sprintf("frame %d  %d tris", ps.frame, triangleCount))
	}

	// Create output directory if needed
	if ps.outputDir != "" {
		if err := os.MkdirAll(ps.outputDir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := fmt.Sprintf("%s_%04d.png", ps.prefix, ps.frame)
	if ps.outputDir != "" {
		filename = filepath.Join(ps.outputDir, filename)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	ps.last = filename
	return nil
}

// Rasterize draws the triangle edges into a new image.
func (ps *PreviewSink) Rasterize(buf *terrain.VertexBuffer, triangleCount int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, ps.Width, ps.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(previewBackground), image.Point{}, draw.Src)

	sizeX := ps.Extent.Max.X - ps.Extent.Min.X
	sizeZ := ps.Extent.Max.Z - ps.Extent.Min.Z
	if sizeX <= 0 || sizeZ <= 0 {
		return img
	}
	// Vertices land on pixel centres.
	toPixel := func(v math.Vec3) [2]float32 {
		return [2]float32{
			(v.X-ps.Extent.Min.X)/sizeX*float32(ps.Width-1) + 0.5,
			(ps.Extent.Max.Z-v.Z)/sizeZ*float32(ps.Height-1) + 0.5,
		}
	}

	ras := vector.NewRasterizer(ps.Width, ps.Height)
	triangleCount = min(triangleCount, buf.VertexCount()/3)
	for t := range triangleCount {
		c := color.RGBA{R: 255, G: 255, B: 255, A: 255}
		if buf.Format.HasColor() {
			rgb := buf.Colors[t*9 : t*9+3]
			c = color.RGBA{R: unit8(rgb[0]), G: unit8(rgb[1]), B: unit8(rgb[2]), A: 255}
		}
		var p [3][2]float32
		for k := range p {
			p[k] = toPixel(buf.Position(t*3 + k))
		}

		r := image.Rect(
			int(math32.Floor(min(p[0][0], p[1][0], p[2][0])))-1,
			int(math32.Floor(min(p[0][1], p[1][1], p[2][1])))-1,
			int(math32.Ceil(max(p[0][0], p[1][0], p[2][0])))+1,
			int(math32.Ceil(max(p[0][1], p[1][1], p[2][1])))+1,
		).Intersect(img.Bounds())
		if r.Empty() {
			continue
		}

		ras.Reset(r.Dx(), r.Dy())
		origin := [2]float32{float32(r.Min.X), float32(r.Min.Y)}
		for k := range p {
			edge(ras, sub2(p[k], origin), sub2(p[(k+1)%3], origin))
		}
		ras.Draw(img, r, image.NewUniform(c), image.Point{})
	}
	return img
}

// edge adds a one pixel wide stroke from a to b with square caps. Every
// stroke winds the same way, so overlapping strokes never cancel.
func edge(ras *vector.Rasterizer, a, b [2]float32) {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l := math32.Hypot(dx, dy)
	if l == 0 {
		dx, dy, l = 1, 0, 1
	}
	// Half-width along the edge (u) and across it (n).
	ux, uy := dx/l*0.5, dy/l*0.5
	nx, ny := -uy, ux

	ras.MoveTo(a[0]-ux+nx, a[1]-uy+ny)
	ras.LineTo(b[0]+ux+nx, b[1]+uy+ny)
	ras.LineTo(b[0]+ux-nx, b[1]+uy-ny)
	ras.LineTo(a[0]-ux-nx, a[1]-uy-ny)
	ras.ClosePath()
}

func sub2(a, b [2]float32) [2]float32 {
	return [2]float32{a[0] - b[0], a[1] - b[1]}
}

func drawLabel(img *image.RGBA, text string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(previewLabel),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, 13),
	}
	d.DrawString(text)
}

func unit8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
