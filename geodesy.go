package peakfinder

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/twpayne/go-proj/v10"
)

// SRIDWGS84 is the EPSG code of WGS84 longitudes and latitudes.
const SRIDWGS84 = 4326

var errUnknownCRS = errors.New("unknown CRS")

// A Georeference maps pixel coordinates of a north-up raster to world
// coordinates. Projected CRSs are assumed to have metre units.
type Georeference struct {
	SRID       int
	Geographic bool
	OriginX    float64 // World X of the left edge of column 0.
	OriginY    float64 // World Y of the top edge of row 0.
	ScaleX     float64 // World units per column.
	ScaleY     float64 // World units per row.
	Width      int
	Height     int
}

// PixelToWorld returns the world coordinates of the center of the pixel at
// coord.
func (r *Georeference) PixelToWorld(coord Coord) orb.Point {
	return orb.Point{
		r.OriginX + (float64(coord.X)+0.5)*r.ScaleX,
		r.OriginY - (float64(coord.Y)+0.5)*r.ScaleY,
	}
}

// WorldToPixel returns the pixel containing point and whether it is inside
// the raster.
func (r *Georeference) WorldToPixel(point orb.Point) (Coord, bool) {
	coord := Coord{
		X: int(math.Floor((point[0] - r.OriginX) / r.ScaleX)),
		Y: int(math.Floor((r.OriginY - point[1]) / r.ScaleY)),
	}
	ok := 0 <= coord.X && coord.X < r.Width && 0 <= coord.Y && coord.Y < r.Height
	return coord, ok
}

// Bound returns the world bounds of the raster.
func (r *Georeference) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{r.OriginX, r.OriginY - float64(r.Height)*r.ScaleY},
		Max: orb.Point{r.OriginX + float64(r.Width)*r.ScaleX, r.OriginY},
	}
}

// MetresPerPixel returns the horizontal and vertical size of a pixel in
// metres. For geographic CRSs it is measured at the center of the raster.
func (r *Georeference) MetresPerPixel() (float64, float64) {
	if !r.Geographic {
		return r.ScaleX, r.ScaleY
	}
	center := r.PixelToWorld(Coord{X: r.Width / 2, Y: r.Height / 2})
	dx := geo.DistanceHaversine(center, orb.Point{center[0] + r.ScaleX, center[1]})
	dy := geo.DistanceHaversine(center, orb.Point{center[0], center[1] + r.ScaleY})
	return dx, dy
}

// DominancePixels converts a dominance threshold in metres to pixels using the
// vertical resolution.
func (r *Georeference) DominancePixels(metres float64) float64 {
	_, metresPerPixel := r.MetresPerPixel()
	return metres / metresPerPixel
}

// DominanceMetres converts a dominance in pixels to metres using the vertical
// resolution.
func (r *Georeference) DominanceMetres(pixels float64) float64 {
	_, metresPerPixel := r.MetresPerPixel()
	return pixels * metresPerPixel
}

// A WGS84Transformer transforms world coordinates to WGS84 longitudes and
// latitudes.
type WGS84Transformer struct {
	pj *proj.PJ
}

// NewWGS84Transformer returns a new WGS84Transformer from the CRS with the
// given EPSG code.
func NewWGS84Transformer(srid int) (*WGS84Transformer, error) {
	switch srid {
	case 0:
		return nil, errUnknownCRS
	case SRIDWGS84:
		return &WGS84Transformer{}, nil
	}
	pj, err := proj.NewCRSToCRS(fmt.Sprintf("EPSG:%d", srid), fmt.Sprintf("EPSG:%d", SRIDWGS84), nil)
	if err != nil {
		return nil, err
	}
	defer pj.Destroy()
	// Use easting, northing and longitude, latitude axis order regardless of
	// what the EPSG definitions say.
	normalizedPJ, err := pj.NormalizeForVisualization()
	if err != nil {
		return nil, err
	}
	return &WGS84Transformer{
		pj: normalizedPJ,
	}, nil
}

// Transform returns the longitude and latitude of point.
func (t *WGS84Transformer) Transform(point orb.Point) (orb.Point, error) {
	if t.pj == nil {
		return point, nil
	}
	coord, err := t.pj.Forward(proj.NewCoord(point[0], point[1], 0, 0))
	if err != nil {
		return orb.Point{}, err
	}
	return orb.Point{coord[0], coord[1]}, nil
}

// Close releases the resources held by t.
func (t *WGS84Transformer) Close() {
	if t.pj != nil {
		t.pj.Destroy()
	}
}
