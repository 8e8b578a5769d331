package terrain

import (
	"fmt"
	"math/bits"
	"math/rand/v2"
)

// GenerateOptions controls the fractal heightfield generator.
type GenerateOptions struct {
	Size        int     // samples per side, must be 2^n+1
	Roughness   float32 // amplitude decay per level, usually in (0, 1]
	HeightScale float32 // initial displacement amplitude
	GridStep    float32 // world distance between samples
	Seed        uint64
}

// Generate builds a square heightfield with the diamond-square algorithm.
// The same options always produce the same terrain.
func Generate(opts GenerateOptions) (*Heightfield, error) {
	n := opts.Size - 1
	if n < 1 || bits.OnesCount(uint(n)) != 1 {
		return nil, fmt.Errorf("generate: size %d is not 2^n+1", opts.Size)
	}
	step := opts.GridStep
	if step <= 0 {
		step = 1
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	jitter := func(amp float32) float32 {
		return (rng.Float32()*2 - 1) * amp
	}

	size := opts.Size
	h := NewHeightfield(size, size, step, step)
	get := func(x, y int) float32 { return h.heights[y*size+x] }
	set := func(x, y int, v float32) { h.heights[y*size+x] = v }

	amp := opts.HeightScale
	for _, c := range [][2]int{{0, 0}, {n, 0}, {0, n}, {n, n}} {
		set(c[0], c[1], jitter(amp))
	}

	for side := n; side > 1; side /= 2 {
		half := side / 2

		// Diamond step: centre of each square.
		for y := half; y < n; y += side {
			for x := half; x < n; x += side {
				avg := (get(x-half, y-half) + get(x+half, y-half) +
					get(x-half, y+half) + get(x+half, y+half)) / 4
				set(x, y, avg+jitter(amp))
			}
		}

		// Square step: edge midpoints, averaging the in-range neighbours.
		for y := 0; y <= n; y += half {
			start := half
			if (y/half)%2 == 1 {
				start = 0
			}
			for x := start; x <= n; x += side {
				var sum float32
				var cnt int
				for _, d := range [][2]int{{-half, 0}, {half, 0}, {0, -half}, {0, half}} {
					nx, ny := x+d[0], y+d[1]
					if nx < 0 || ny < 0 || nx > n || ny > n {
						continue
					}
					sum += get(nx, ny)
					cnt++
				}
				set(x, y, sum/float32(cnt)+jitter(amp))
			}
		}

		amp *= opts.Roughness
	}

	return h, nil
}
