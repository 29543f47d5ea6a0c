package peakfinder

import "slices"

// Line returns the cells of the 8-connected digital straight line from p1 to
// p2, inclusive of both endpoints, using Bresenham's integer algorithm.
//
// The line is always rasterized from the endpoint that is first in row-major
// order, so swapping p1 and p2 reverses the result without changing the set
// of cells.
//
// Line is used to approximate the saddle between two peaks by the lowest cell
// on the straight segment between them rather than by the lowest cell on the
// best connecting path. On non-convex terrain this can overestimate
// prominence.
func Line(p1, p2 Coord) []Coord {
	if less(p2, p1) {
		line := bresenham(p2, p1)
		slices.Reverse(line)
		return line
	}
	return bresenham(p1, p2)
}

func bresenham(p0, p1 Coord) []Coord {
	dx, sx := abs(p1.X-p0.X), sign(p1.X-p0.X)
	dy, sy := -abs(p1.Y-p0.Y), sign(p1.Y-p0.Y)
	line := make([]Coord, 0, max(dx, -dy)+1)
	e := dx + dy
	for x, y := p0.X, p0.Y; ; {
		line = append(line, Coord{X: x, Y: y})
		if x == p1.X && y == p1.Y {
			return line
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	default:
		return 0
	}
}
