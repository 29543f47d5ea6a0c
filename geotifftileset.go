package peakfinder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
)

// A TileCoordFunc returns the tile coordinate for a world point.
type TileCoordFunc func(orb.Point) (TileCoord, bool)

// A TileFilenameFunc returns the tile filename for a tile coordinate.
type TileFilenameFunc func(TileCoord) string

// A GeoTIFFTileSet is a set of GeoTIFF tiles that share a CRS and a scale.
type GeoTIFFTileSet struct {
	mutex            sync.Mutex
	fsys             fs.FS
	srid             int
	tileCoordFunc    TileCoordFunc
	tileFilenameFunc TileFilenameFunc
	missingTiles     sync.Map
	geoTIFFOptions   []GeoTIFFOption
	cacheSize        int
	scaleX           float64
	scaleY           float64
	geoTIFFCache     *lru.Cache[TileCoord, *GeoTIFF]
}

// A GeoTIFFTileSetOption sets an option on a GeoTIFFTileSet.
type GeoTIFFTileSetOption func(*GeoTIFFTileSet)

// NewGeoTIFFTileSet returns a new GeoTIFFTileSet with the given options.
func NewGeoTIFFTileSet(options ...GeoTIFFTileSetOption) (*GeoTIFFTileSet, error) {
	s := &GeoTIFFTileSet{
		cacheSize: 32,
	}
	for _, option := range options {
		option(s)
	}
	if s.fsys == nil || s.tileCoordFunc == nil || s.tileFilenameFunc == nil {
		return nil, &ConfigurationError{Option: "tile set", Value: nil, Reason: "filesystem, tile coord func, and tile filename func are required"}
	}
	if s.scaleX <= 0 || s.scaleY <= 0 {
		return nil, &ConfigurationError{Option: "scale", Value: [2]float64{s.scaleX, s.scaleY}, Reason: "must be positive"}
	}

	var err error
	s.geoTIFFCache, err = lru.NewWithEvict(s.cacheSize, func(key TileCoord, value *GeoTIFF) {
		if value != nil {
			_ = value.Close()
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func WithCacheSize(cacheSize int) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.cacheSize = cacheSize
	}
}

func WithFS(fsys fs.FS) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.fsys = fsys
	}
}

func WithGeoTIFFOptions(geoTIFFOptions ...GeoTIFFOption) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.geoTIFFOptions = geoTIFFOptions
	}
}

func WithTileCoordFunc(tileCoordFunc TileCoordFunc) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.tileCoordFunc = tileCoordFunc
	}
}

func WithSRID(srid int) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.srid = srid
	}
}

func WithScale(scaleX, scaleY float64) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.scaleX = scaleX
		s.scaleY = scaleY
	}
}

func WithTileFilenameFunc(tileFilenameFunc TileFilenameFunc) GeoTIFFTileSetOption {
	return func(s *GeoTIFFTileSet) {
		s.tileFilenameFunc = tileFilenameFunc
	}
}

// Samples returns the samples at points. Missing samples are represented by
// NaNs.
func (s *GeoTIFFTileSet) Samples(ctx context.Context, points []orb.Point) ([]float64, error) {
	samples := make([]float64, len(points))

	// Group indexes by tile coord.
	type groupStruct struct {
		points  []orb.Point
		indexes []int
	}
	groupsByTileCoord := make(map[TileCoord]*groupStruct)
	for index, point := range points {
		tileCoord, ok := s.tileCoordFunc(point)
		if !ok {
			samples[index] = math.NaN()
			continue
		}
		group, ok := groupsByTileCoord[tileCoord]
		if !ok {
			group = &groupStruct{}
			groupsByTileCoord[tileCoord] = group
		}
		group.points = append(group.points, point)
		group.indexes = append(group.indexes, index)
	}

	// Populate samples one tile at a time.
	for tileCoord, group := range groupsByTileCoord {
		tile, err := s.getTileCached(tileCoord)
		if err != nil {
			return nil, err
		}
		if tile == nil {
			for _, index := range group.indexes {
				samples[index] = math.NaN()
			}
			continue
		}
		tileSamples, err := tile.Samples(ctx, group.points)
		if err != nil {
			return nil, err
		}
		for tileIndex, index := range group.indexes {
			samples[index] = tileSamples[tileIndex]
		}
	}

	return samples, nil
}

// SRID returns s's SRID.
func (s *GeoTIFFTileSet) SRID() int {
	return s.srid
}

// Scale returns s's scale.
func (s *GeoTIFFTileSet) Scale() (float64, float64) {
	return s.scaleX, s.scaleY
}

// Close closes all of s's open tiles.
func (s *GeoTIFFTileSet) Close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.geoTIFFCache.Purge()
}

// getTile returns the tile at the given tile coordinate.
func (s *GeoTIFFTileSet) getTile(tileCoord TileCoord) (*GeoTIFF, error) {
	filename := s.tileFilenameFunc(tileCoord)
	switch geoTIFF, err := OpenGeoTIFF(s.fsys, filename, s.geoTIFFOptions...); {
	case errors.Is(err, fs.ErrNotExist):
		s.missingTiles.Store(tileCoord, struct{}{})
		missingTileCacheMisses.Inc()
		return nil, nil
	case err != nil:
		return nil, err
	default:
		return geoTIFF, nil
	}
}

// getTileCached returns the tile at the give tile coordinate, using the cache
// if possible.
func (s *GeoTIFFTileSet) getTileCached(tileCoord TileCoord) (*GeoTIFF, error) {
	if _, ok := s.missingTiles.Load(tileCoord); ok {
		missingTileCacheHits.Inc()
		return nil, nil
	}

	if tile, ok := s.geoTIFFCache.Get(tileCoord); ok {
		tileCacheHits.Inc()
		return tile, nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.missingTiles.Load(tileCoord); ok {
		missingTileCacheHits.Inc()
		return nil, nil
	}

	if tile, ok := s.geoTIFFCache.Get(tileCoord); ok {
		tileCacheHits.Inc()
		return tile, nil
	}

	tileCacheMisses.Inc()

	tile, err := s.getTile(tileCoord)
	if err != nil {
		return nil, err
	}
	if tile == nil {
		return nil, nil
	}

	if eviction := s.geoTIFFCache.Add(tileCoord, tile); eviction {
		tileCacheEvictions.Inc()
	}

	return tile, nil
}

// ReadGrid reads the samples of source inside bound into a Grid, sampling at
// source's scale. No-data samples are replaced by the smallest valid sample.
func ReadGrid(ctx context.Context, source Source, bound orb.Bound) (*Grid, Georeference, error) {
	scaleX, scaleY := source.Scale()
	georeference := Georeference{
		OriginX: bound.Min[0],
		OriginY: bound.Max[1],
		ScaleX:  scaleX,
		ScaleY:  scaleY,
		Width:   int(math.Ceil((bound.Max[0] - bound.Min[0]) / scaleX)),
		Height:  int(math.Ceil((bound.Max[1] - bound.Min[1]) / scaleY)),
	}
	switch source := source.(type) {
	case interface{ Georeference() Georeference }:
		georeference.SRID = source.Georeference().SRID
		georeference.Geographic = source.Georeference().Geographic
	case interface{ SRID() int }:
		georeference.SRID = source.SRID()
		georeference.Geographic = georeference.SRID == SRIDWGS84
	}
	if georeference.Width <= 0 || georeference.Height <= 0 {
		return nil, Georeference{}, fmt.Errorf("%v: empty bound", bound)
	}

	points := make([]orb.Point, 0, georeference.Width*georeference.Height)
	for y := range georeference.Height {
		for x := range georeference.Width {
			points = append(points, georeference.PixelToWorld(Coord{X: x, Y: y}))
		}
	}
	samples, err := source.Samples(ctx, points)
	if err != nil {
		return nil, Georeference{}, err
	}
	grid, err := newGridFillingNoData(georeference.Width, georeference.Height, samples)
	if err != nil {
		return nil, Georeference{}, err
	}
	return grid, georeference, nil
}
