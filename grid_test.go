package peakfinder_test

import (
	"errors"
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-peakfinder"
)

func TestNewGrid(t *testing.T) {
	grid, err := peakfinder.NewGrid(3, 2, []float64{
		1, 2, 3,
		4, 5, -6,
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, grid.Width())
	assert.Equal(t, 2, grid.Height())
	assert.Equal(t, 2.0, grid.At(1, 0))
	assert.Equal(t, -6.0, grid.At(2, 1))
	assert.Equal(t, -6.0, grid.Min())
	assert.Equal(t, 5.0, grid.Max())
	assert.True(t, grid.Contains(peakfinder.Coord{X: 2, Y: 1}))
	assert.False(t, grid.Contains(peakfinder.Coord{X: 3, Y: 0}))
	assert.False(t, grid.Contains(peakfinder.Coord{X: 0, Y: -1}))
}

func TestNewGrid_Copies(t *testing.T) {
	samples := []float64{1, 2, 3, 4}
	grid, err := peakfinder.NewGrid(2, 2, samples)
	assert.NoError(t, err)
	samples[0] = 100
	assert.Equal(t, 1.0, grid.At(0, 0))
}

func TestNewGrid_Errors(t *testing.T) {
	for _, tc := range []struct {
		name          string
		width         int
		height        int
		samples       []float64
		expectedIsErr error
	}{
		{
			name:    "short",
			width:   2,
			height:  2,
			samples: []float64{1, 2, 3},
		},
		{
			name:          "nan",
			width:         2,
			height:        1,
			samples:       []float64{1, math.NaN()},
			expectedIsErr: peakfinder.ErrInvalidSample,
		},
		{
			name:          "inf",
			width:         1,
			height:        1,
			samples:       []float64{math.Inf(-1)},
			expectedIsErr: peakfinder.ErrInvalidSample,
		},
		{
			name:          "negative",
			width:         -1,
			height:        0,
			expectedIsErr: peakfinder.ErrInvalidConfiguration,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := peakfinder.NewGrid(tc.width, tc.height, tc.samples)
			assert.Error(t, err)
			if tc.expectedIsErr != nil {
				assert.True(t, errors.Is(err, tc.expectedIsErr))
			}
		})
	}
}

func TestGrid_AtOutside(t *testing.T) {
	grid, err := peakfinder.NewGrid(2, 2, []float64{1, 2, 3, 4})
	assert.NoError(t, err)
	assert.Panics(t, func() {
		grid.At(2, 0)
	})
	assert.Panics(t, func() {
		grid.At(0, -1)
	})
}

func TestNewGridFunc(t *testing.T) {
	grid, err := peakfinder.NewGridFunc(4, 3, func(x, y int) float64 {
		return float64(10*y + x)
	})
	assert.NoError(t, err)
	assert.Equal(t, 23.0, grid.At(3, 2))
	assert.Equal(t, 0.0, grid.Min())
	assert.Equal(t, 23.0, grid.Max())
}

func TestNewGrid_Empty(t *testing.T) {
	grid, err := peakfinder.NewGrid(0, 0, nil)
	assert.NoError(t, err)
	assert.True(t, math.IsInf(grid.Min(), 1))
}
