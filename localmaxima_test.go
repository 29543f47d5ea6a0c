package peakfinder_test

import (
	"errors"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-peakfinder"
)

func TestFindLocalMaxima(t *testing.T) {
	for _, tc := range []struct {
		name       string
		width      int
		height     int
		samples    []float64
		windowSize int
		expected   []peakfinder.Coord
	}{
		{
			name:   "increasing",
			width:  4,
			height: 3,
			samples: []float64{
				0, 1, 2, 3,
				4, 5, 6, 7,
				8, 9, 10, 11,
			},
			windowSize: 3,
			expected: []peakfinder.Coord{
				{X: 3, Y: 2},
			},
		},
		{
			name:   "flat",
			width:  3,
			height: 3,
			samples: []float64{
				7, 7, 7,
				7, 7, 7,
				7, 7, 7,
			},
			windowSize: 3,
		},
		{
			name:   "two_peaks",
			width:  5,
			height: 5,
			samples: []float64{
				0, 0, 0, 0, 0,
				0, 3, 0, 0, 0,
				0, 0, 0, 0, 0,
				0, 0, 0, 5, 0,
				0, 0, 0, 0, 0,
			},
			windowSize: 3,
			expected: []peakfinder.Coord{
				{X: 1, Y: 1},
				{X: 3, Y: 3},
			},
		},
		{
			name:   "two_peaks_large_window",
			width:  5,
			height: 5,
			samples: []float64{
				0, 0, 0, 0, 0,
				0, 3, 0, 0, 0,
				0, 0, 0, 0, 0,
				0, 0, 0, 5, 0,
				0, 0, 0, 0, 0,
			},
			windowSize: 5,
			expected: []peakfinder.Coord{
				{X: 3, Y: 3},
			},
		},
		{
			name:   "plateau",
			width:  4,
			height: 3,
			samples: []float64{
				1, 1, 1, 1,
				1, 4, 4, 1,
				1, 1, 1, 1,
			},
			windowSize: 3,
			expected: []peakfinder.Coord{
				{X: 1, Y: 1},
				{X: 2, Y: 1},
			},
		},
		{
			name:   "negative",
			width:  3,
			height: 3,
			samples: []float64{
				-9, -9, -9,
				-9, -2, -9,
				-9, -9, -9,
			},
			windowSize: 3,
			expected: []peakfinder.Coord{
				{X: 1, Y: 1},
			},
		},
		{
			name:       "narrower_than_window",
			width:      2,
			height:     5,
			samples:    []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
			windowSize: 3,
		},
		{
			name:       "shorter_than_window",
			width:      5,
			height:     3,
			samples:    []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14},
			windowSize: 5,
		},
		{
			name:       "empty",
			windowSize: 3,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			grid, err := peakfinder.NewGrid(tc.width, tc.height, tc.samples)
			assert.NoError(t, err)
			actual, err := peakfinder.FindLocalMaxima(grid, tc.windowSize)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestFindLocalMaxima_InvalidWindowSize(t *testing.T) {
	grid, err := peakfinder.NewGrid(5, 5, make([]float64, 25))
	assert.NoError(t, err)
	for _, windowSize := range []int{-1, 0, 1, 2, 4, 10} {
		t.Run(strconv.Itoa(windowSize), func(t *testing.T) {
			_, err := peakfinder.FindLocalMaxima(grid, windowSize)
			assert.True(t, errors.Is(err, peakfinder.ErrInvalidConfiguration))
			var configurationError *peakfinder.ConfigurationError
			assert.True(t, errors.As(err, &configurationError))
			assert.Equal(t, "window size", configurationError.Option)
		})
	}
}

func TestFindLocalMaxima_Random(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := range 32 {
		width := 3 + r.IntN(30)
		height := 3 + r.IntN(30)
		grid, err := peakfinder.NewGridFunc(width, height, func(int, int) float64 {
			return float64(r.IntN(8))
		})
		assert.NoError(t, err)
		for _, windowSize := range []int{3, 5, 7} {
			t.Run(strconv.Itoa(i)+"_"+strconv.Itoa(windowSize), func(t *testing.T) {
				actual, err := peakfinder.FindLocalMaxima(grid, windowSize)
				assert.NoError(t, err)
				assert.Equal(t, bruteForceLocalMaxima(grid, windowSize), actual)
			})
		}
	}
}

func TestFindLocalMaxima_WindowSizeMonotonic(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	grid, err := peakfinder.NewGridFunc(64, 48, func(int, int) float64 {
		return r.Float64() * 1000
	})
	assert.NoError(t, err)
	var prev []peakfinder.Coord
	for windowSize := 3; windowSize <= 15; windowSize += 2 {
		localMaxima, err := peakfinder.FindLocalMaxima(grid, windowSize)
		assert.NoError(t, err)
		if prev != nil {
			set := make(map[peakfinder.Coord]struct{}, len(prev))
			for _, coord := range prev {
				set[coord] = struct{}{}
			}
			for _, coord := range localMaxima {
				_, ok := set[coord]
				assert.True(t, ok, "%v at window size %d", coord, windowSize)
			}
		}
		prev = localMaxima
	}
}

// bruteForceLocalMaxima returns the local maxima of g by examining every
// window directly.
func bruteForceLocalMaxima(g *peakfinder.Grid, windowSize int) []peakfinder.Coord {
	if g.Width() < windowSize || g.Height() < windowSize {
		return nil
	}
	radius := windowSize / 2
	var localMaxima []peakfinder.Coord
	for y := range g.Height() {
	X:
		for x := range g.Width() {
			sample := g.At(x, y)
			if sample == g.Min() {
				continue
			}
			for wy := max(y-radius, 0); wy <= min(y+radius, g.Height()-1); wy++ {
				for wx := max(x-radius, 0); wx <= min(x+radius, g.Width()-1); wx++ {
					if g.At(wx, wy) > sample {
						continue X
					}
				}
			}
			localMaxima = append(localMaxima, peakfinder.Coord{X: x, Y: y})
		}
	}
	return localMaxima
}
