package peakfinder

import (
	"fmt"
	"io/fs"
	"slices"

	"github.com/paulmach/orb"
)

// SRIDETRS89LAEA is the EPSG code of the ETRS89 Lambert Azimuthal Equal Area
// CRS used by EU-DEM.
const SRIDETRS89LAEA = 3035

// NewEUDEM returns a GeoTIFFTileSet for the EU-DEM v1.1 tiles in fsys. Each
// tile covers 1000km×1000km at 25m resolution.
func NewEUDEM(fsys fs.FS, options ...GeoTIFFTileSetOption) (*GeoTIFFTileSet, error) {
	return NewGeoTIFFTileSet(slices.Concat(
		[]GeoTIFFTileSetOption{
			WithFS(fsys),
			WithSRID(SRIDETRS89LAEA),
			WithScale(25, 25),
			WithTileCoordFunc(eudemTileCoord),
			WithTileFilenameFunc(func(tileCoord TileCoord) string {
				return fmt.Sprintf("eu_dem_v11_E%02dN%02d.TIF", tileCoord.C, tileCoord.R)
			}),
		},
		options,
	)...)
}

func eudemTileCoord(point orb.Point) (TileCoord, bool) {
	if point[0] < 0 || point[1] < 0 {
		return TileCoord{}, false
	}
	return TileCoord{
		C: 10 * (int(point[0]) / 1000000),
		R: 10 * (int(point[1]) / 1000000),
	}, true
}
