// Package peakfinder finds topographically significant peaks in elevation
// rasters.
//
// A peak is a local maximum that survives two filters: prominence, the height
// of the peak above the lowest point on the straight line to its nearest
// strictly higher candidate, and dominance, the distance in pixels to the
// nearest retained peak at least as high.
package peakfinder

import (
	"context"
	"math"

	"github.com/paulmach/orb"
)

// A Coord is a pixel coordinate. X is the column and Y is the row.
type Coord struct {
	X int
	Y int
}

// A TileCoord is a tile coordinate.
type TileCoord struct {
	C int // Column.
	R int // Row.
}

// A Peak is a retained peak. Dominance is +Inf for a peak with no peer at
// least as high.
type Peak struct {
	Coord
	Height     float64
	Prominence float64
	Dominance  float64
}

// UnboundedDominance reports whether p has no peer at least as high.
func (p Peak) UnboundedDominance() bool {
	return math.IsInf(p.Dominance, 1)
}

// A Source returns elevation samples at world coordinates. Missing samples
// are represented by NaNs.
type Source interface {
	Samples(ctx context.Context, points []orb.Point) ([]float64, error)
	Scale() (float64, float64)
}

// less reports whether a sorts before b in row-major order.
func less(a, b Coord) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

// distance returns the Euclidean distance between a and b in pixels.
func distance(a, b Coord) float64 {
	return math.Sqrt(float64(squaredDistance(a, b)))
}

func squaredDistance(a, b Coord) int {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}
