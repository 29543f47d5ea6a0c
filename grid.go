package peakfinder

import (
	"fmt"
	"math"
	"slices"
)

// A Grid is an immutable raster of elevation samples stored in row-major
// order.
type Grid struct {
	width   int
	height  int
	samples []float64
	min     float64
	max     float64
}

// NewGrid returns a new Grid of the given dimensions. samples is copied and
// must contain width*height finite values.
func NewGrid(width, height int, samples []float64) (*Grid, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%dx%d: %w", width, height, ErrInvalidConfiguration)
	}
	if len(samples) != width*height {
		return nil, fmt.Errorf("got %d samples, expected %d", len(samples), width*height)
	}
	g := &Grid{
		width:   width,
		height:  height,
		samples: slices.Clone(samples),
		min:     math.Inf(1),
		max:     math.Inf(-1),
	}
	for i, sample := range g.samples {
		if math.IsNaN(sample) || math.IsInf(sample, 0) {
			return nil, fmt.Errorf("(%d, %d): %v: %w", i%width, i/width, sample, ErrInvalidSample)
		}
		g.min = min(g.min, sample)
		g.max = max(g.max, sample)
	}
	return g, nil
}

// NewGridFunc returns a new Grid whose samples are given by f.
func NewGridFunc(width, height int, f func(x, y int) float64) (*Grid, error) {
	samples := make([]float64, 0, max(width*height, 0))
	for y := range height {
		for x := range width {
			samples = append(samples, f(x, y))
		}
	}
	return NewGrid(width, height, samples)
}

// Width returns g's width.
func (g *Grid) Width() int {
	return g.width
}

// Height returns g's height.
func (g *Grid) Height() int {
	return g.height
}

// At returns the sample at (x, y). It panics if (x, y) is outside g.
func (g *Grid) At(x, y int) float64 {
	if x < 0 || g.width <= x || y < 0 || g.height <= y {
		panic(fmt.Sprintf("(%d, %d) outside %dx%d grid", x, y, g.width, g.height))
	}
	return g.samples[y*g.width+x]
}

// Contains returns whether coord is inside g.
func (g *Grid) Contains(coord Coord) bool {
	return 0 <= coord.X && coord.X < g.width && 0 <= coord.Y && coord.Y < g.height
}

// Min returns g's smallest sample, or +Inf if g is empty.
func (g *Grid) Min() float64 {
	return g.min
}

// Max returns g's largest sample, or -Inf if g is empty.
func (g *Grid) Max() float64 {
	return g.max
}

// row returns the samples in row y. The caller must not modify them.
func (g *Grid) row(y int) []float64 {
	return g.samples[y*g.width : (y+1)*g.width]
}
