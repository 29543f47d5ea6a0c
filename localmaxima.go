package peakfinder

// FindLocalMaxima returns the coordinates of the cells in g that are equal to
// the maximum of the windowSize×windowSize neighborhood centered on them,
// excluding cells equal to g's global minimum, which is treated as background.
// Neighborhoods are clamped to g's bounds. windowSize must be odd and at least
// three. Grids smaller than the window in either dimension have no local
// maxima. Every cell on a plateau at a local maximum is returned. The result
// is in row-major order.
func FindLocalMaxima(g *Grid, windowSize int) ([]Coord, error) {
	if err := validateWindowSize(windowSize); err != nil {
		return nil, err
	}
	width, height := g.width, g.height
	if width < windowSize || height < windowSize {
		return nil, nil
	}

	// The window maximum is separable: take the maximum along each row, then
	// the maximum of those along each column.
	radius := windowSize / 2
	deque := make([]int, 0, max(width, height))
	rowMax := make([]float64, width*height)
	for y := range height {
		slidingMax(rowMax[y*width:], g.samples[y*width:], width, 1, radius, deque)
	}
	windowMax := make([]float64, width*height)
	for x := range width {
		slidingMax(windowMax[x:], rowMax[x:], height, width, radius, deque)
	}

	var localMaxima []Coord
	for i, sample := range g.samples {
		if sample == windowMax[i] && sample != g.min {
			localMaxima = append(localMaxima, Coord{X: i % width, Y: i / width})
		}
	}
	return localMaxima, nil
}

// slidingMax sets dst[i*stride] to the maximum of src[j*stride] for all j in
// [i-radius, i+radius] clamped to [0, n). It uses a monotonic deque of
// indexes, so each element is pushed and popped at most once. deque is
// scratch space with capacity of at least n.
func slidingMax(dst, src []float64, n, stride, radius int, deque []int) {
	deque = deque[:0]
	head := 0
	next := 0
	for i := range n {
		for last := min(i+radius, n-1); next <= last; next++ {
			value := src[next*stride]
			for len(deque) > head && src[deque[len(deque)-1]*stride] <= value {
				deque = deque[:len(deque)-1]
			}
			deque = append(deque, next)
		}
		for deque[head] < i-radius {
			head++
		}
		dst[i*stride] = src[deque[head]*stride]
	}
}
