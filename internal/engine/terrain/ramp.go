package terrain

import (
	"errors"
	"slices"
)

// ErrEmptyRamp is returned when a colour ramp has no keys.
var ErrEmptyRamp = errors.New("colour ramp has no keys")

// RampKey is a colour pinned to a height.
type RampKey struct {
	Height float32    `yaml:"height" toml:"height"`
	Color  [3]float32 `yaml:"color" toml:"color"`
}

// ColorRamp maps heights to colours by linear interpolation between keys.
// Heights below the first key or above the last one take the end colour.
type ColorRamp struct {
	keys []RampKey
}

// NewColorRamp creates a ramp from keys in any order.
func NewColorRamp(keys []RampKey) (*ColorRamp, error) {
	if len(keys) == 0 {
		return nil, ErrEmptyRamp
	}
	sorted := slices.Clone(keys)
	slices.SortStableFunc(sorted, func(a, b RampKey) int {
		switch {
		case a.Height < b.Height:
			return -1
		case a.Height > b.Height:
			return 1
		}
		return 0
	})
	return &ColorRamp{keys: sorted}, nil
}

// DefaultColorRamp returns a water-to-snow ramp spanning [minH, maxH].
func DefaultColorRamp(minH, maxH float32) *ColorRamp {
	span := maxH - minH
	at := func(f float32) float32 { return minH + span*f }
	r, _ := NewColorRamp([]RampKey{
		{Height: at(0), Color: [3]float32{0.10, 0.20, 0.60}},
		{Height: at(0.25), Color: [3]float32{0.80, 0.75, 0.50}},
		{Height: at(0.45), Color: [3]float32{0.20, 0.55, 0.20}},
		{Height: at(0.75), Color: [3]float32{0.45, 0.40, 0.35}},
		{Height: at(1), Color: [3]float32{1, 1, 1}},
	})
	return r
}

// Keys returns the ramp keys in ascending height order.
func (r *ColorRamp) Keys() []RampKey {
	return slices.Clone(r.keys)
}

// Color returns the colour for a height.
func (r *ColorRamp) Color(h float32) [3]float32 {
	first, last := r.keys[0], r.keys[len(r.keys)-1]
	if h <= first.Height {
		return first.Color
	}
	if h >= last.Height {
		return last.Color
	}

	i, _ := slices.BinarySearchFunc(r.keys, h, func(k RampKey, t float32) int {
		switch {
		case k.Height < t:
			return -1
		case k.Height > t:
			return 1
		}
		return 0
	})
	lo, hi := r.keys[i-1], r.keys[i]
	if hi.Height == h {
		return hi.Color
	}

	t := (h - lo.Height) / (hi.Height - lo.Height)
	var c [3]float32
	for j := range c {
		c[j] = lo.Color[j] + (hi.Color[j]-lo.Color[j])*t
	}
	return c
}
