package peakfinder_test

import (
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/paulmach/orb"

	"github.com/twpayne/go-peakfinder"
)

func TestGeoreference_PixelToWorld(t *testing.T) {
	georeference := peakfinder.Georeference{
		SRID:    3035,
		OriginX: 4000000,
		OriginY: 3000000,
		ScaleX:  25,
		ScaleY:  25,
		Width:   100,
		Height:  80,
	}

	assert.Equal(t, orb.Point{4000012.5, 2999987.5}, georeference.PixelToWorld(peakfinder.Coord{X: 0, Y: 0}))
	assert.Equal(t, orb.Point{4002487.5, 2998012.5}, georeference.PixelToWorld(peakfinder.Coord{X: 99, Y: 79}))

	coord, ok := georeference.WorldToPixel(orb.Point{4000030, 2999970})
	assert.True(t, ok)
	assert.Equal(t, peakfinder.Coord{X: 1, Y: 1}, coord)

	_, ok = georeference.WorldToPixel(orb.Point{3999999, 2999970})
	assert.False(t, ok)
	_, ok = georeference.WorldToPixel(orb.Point{4000030, 2998000})
	assert.False(t, ok)

	assert.Equal(t, orb.Bound{
		Min: orb.Point{4000000, 2998000},
		Max: orb.Point{4002500, 3000000},
	}, georeference.Bound())

	for _, coord := range []peakfinder.Coord{{X: 0, Y: 0}, {X: 17, Y: 42}, {X: 99, Y: 79}} {
		actual, ok := georeference.WorldToPixel(georeference.PixelToWorld(coord))
		assert.True(t, ok)
		assert.Equal(t, coord, actual)
	}
}

func TestGeoreference_MetresPerPixel(t *testing.T) {
	projected := peakfinder.Georeference{
		SRID:   3035,
		ScaleX: 25,
		ScaleY: 30,
		Width:  10,
		Height: 10,
	}
	metresPerPixelX, metresPerPixelY := projected.MetresPerPixel()
	assert.Equal(t, 25.0, metresPerPixelX)
	assert.Equal(t, 30.0, metresPerPixelY)
	assert.Equal(t, 100.0, projected.DominancePixels(3000))
	assert.Equal(t, 3000.0, projected.DominanceMetres(100))

	arcSecond := 1.0 / 3600
	geographic := peakfinder.Georeference{
		SRID:       peakfinder.SRIDWGS84,
		Geographic: true,
		OriginX:    7,
		OriginY:    60 + 1.5*arcSecond,
		ScaleX:     arcSecond,
		ScaleY:     arcSecond,
		Width:      2,
		Height:     2,
	}
	metresPerPixelX, metresPerPixelY = geographic.MetresPerPixel()
	assert.True(t, math.Abs(metresPerPixelX-15.461) < 0.01, "%f", metresPerPixelX)
	assert.True(t, math.Abs(metresPerPixelY-30.922) < 0.01, "%f", metresPerPixelY)
}

func TestWGS84Transformer(t *testing.T) {
	transformer, err := peakfinder.NewWGS84Transformer(3035)
	assert.NoError(t, err)
	defer transformer.Close()

	point, err := transformer.Transform(orb.Point{4321000, 3210000})
	assert.NoError(t, err)
	assert.True(t, math.Abs(point.Lon()-10) < 1e-9, "%f", point.Lon())
	assert.True(t, math.Abs(point.Lat()-52) < 1e-9, "%f", point.Lat())

	identity, err := peakfinder.NewWGS84Transformer(peakfinder.SRIDWGS84)
	assert.NoError(t, err)
	defer identity.Close()
	point, err = identity.Transform(orb.Point{6.8652, 45.8326})
	assert.NoError(t, err)
	assert.Equal(t, orb.Point{6.8652, 45.8326}, point)

	_, err = peakfinder.NewWGS84Transformer(0)
	assert.Error(t, err)
}
