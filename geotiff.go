package peakfinder

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/google/tiff"
	_ "github.com/google/tiff/bigtiff"
	_ "github.com/google/tiff/geotiff"
	"github.com/maypok86/otter/v2"
	"github.com/paulmach/orb"
	"golang.org/x/image/tiff/lzw"
)

// TIFF compression, predictor, and sample format values.
const (
	compressionNone = 1
	compressionLZW  = 5

	predictorNone       = 1
	predictorHorizontal = 2

	sampleFormatUint  = 1
	sampleFormatInt   = 2
	sampleFormatFloat = 3
)

var errShortRead = errors.New("short read")

// A GeoTIFF is an open single-band GeoTIFF file. Strips are treated as tiles
// that span the full image width.
type GeoTIFF struct {
	file               *os.File
	byteOrder          binary.ByteOrder
	imageWidth         int
	imageLength        int
	tileWidth          int
	tileLength         int
	tilesAcross        int
	tilesDown          int
	tileOffsets        []uint64
	tileByteCounts     []uint64
	striped            bool
	compression        int
	predictor          int
	bytesPerSample     int
	decodeSample       func([]byte) float64
	noData             float64
	tileCacheSizeBytes int
	tileSamplesCache   *otter.Cache[TileCoord, []float64]
	georeference       Georeference
	citation           string
}

// A GeoTIFFOption sets an option on a GeoTIFF.
type GeoTIFFOption func(*GeoTIFF)

// A geoTIFFIFD is a struct into which github.com/google/tiff can unmarshal an
// IFD.
type geoTIFFIFD struct {
	ImageWidth                uint16    `tiff:"field,tag=256"`
	ImageLength               uint16    `tiff:"field,tag=257"`
	BitsPerSample             uint16    `tiff:"field,tag=258"`
	Compression               uint16    `tiff:"field,tag=259"`
	PhotometricInterpretation uint16    `tiff:"field,tag=262"`
	StripOffsets              []uint64  `tiff:"field,tag=273"`
	SamplesPerPixel           uint16    `tiff:"field,tag=277"`
	RowsPerStrip              uint16    `tiff:"field,tag=278"`
	StripByteCounts           []uint64  `tiff:"field,tag=279"`
	PlanarConfiguration       uint16    `tiff:"field,tag=284"`
	Predictor                 uint16    `tiff:"field,tag=317"`
	TileWidth                 uint16    `tiff:"field,tag=322"`
	TileLength                uint16    `tiff:"field,tag=323"`
	TileOffsets               []uint64  `tiff:"field,tag=324"`
	TileByteCounts            []uint64  `tiff:"field,tag=325"`
	SampleFormat              uint16    `tiff:"field,tag=339"`
	ModelPixelScaleTag        []float64 `tiff:"field,tag=33550"`
	ModelTiepointTag          []float64 `tiff:"field,tag=33922"`
	GeoKeyDirectoryTag        []uint16  `tiff:"field,tag=34735"`
	GeoDoubleParamsTag        []float64 `tiff:"field,tag=34736"`
	GeoASCIIParamsTag         string    `tiff:"field,tag=34737"`
	GDALNoData                string    `tiff:"field,tag=42113"`
}

// OpenGeoTIFF opens the GeoTIFF filename in fsys.
func OpenGeoTIFF(fsys fs.FS, filename string, options ...GeoTIFFOption) (*GeoTIFF, error) {
	var err error
	ok := false

	g := &GeoTIFF{
		noData:             math.NaN(),
		tileCacheSizeBytes: 128 << 20, // 128MB.
	}
	for _, option := range options {
		option(g)
	}

	file, err := fsys.Open(filename)
	if err != nil {
		return nil, err
	}
	if _, ok := file.(*os.File); !ok {
		_ = file.Close()
		return nil, errors.ErrUnsupported
	}
	g.file = file.(*os.File)
	defer func() {
		if !ok {
			_ = g.file.Close()
		}
	}()

	header := make([]byte, 2)
	if _, err := g.file.ReadAt(header, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	switch string(header) {
	case "II":
		g.byteOrder = binary.LittleEndian
	case "MM":
		g.byteOrder = binary.BigEndian
	default:
		return nil, fmt.Errorf("%s: not a TIFF file", filename)
	}

	tiffTIFF, err := tiff.Parse(g.file, tiff.GetTagSpace("GeoTIFF"), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	if len(tiffTIFF.IFDs()) < 1 {
		return nil, fmt.Errorf("%s: no IFDs", filename)
	}

	var ifd geoTIFFIFD
	if err := tiff.UnmarshalIFD(tiffTIFF.IFDs()[0], &ifd); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	if err := g.setLayout(&ifd); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if err := g.setGeoreference(&ifd); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	if noData := strings.Trim(ifd.GDALNoData, "\x00 "); noData != "" {
		g.noData, err = strconv.ParseFloat(noData, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: GDAL_NODATA: %w", filename, err)
		}
	}

	tileSizeBytes := g.tileWidth * g.tileLength * 8
	tileCacheCount := max(g.tileCacheSizeBytes/tileSizeBytes, 1)
	g.tileSamplesCache, err = otter.New(&otter.Options[TileCoord, []float64]{
		MaximumSize: tileCacheCount,
	})
	if err != nil {
		return nil, err
	}

	ok = true
	return g, nil
}

// WithTileCacheSize sets the size of the decoded tile cache, in bytes.
func WithTileCacheSize(tileCacheSize int) GeoTIFFOption {
	return func(g *GeoTIFF) {
		g.tileCacheSizeBytes = tileCacheSize
	}
}

// setLayout sets g's sample layout from ifd.
func (g *GeoTIFF) setLayout(ifd *geoTIFFIFD) error {
	if ifd.SamplesPerPixel > 1 ||
		ifd.PlanarConfiguration > 1 ||
		ifd.PhotometricInterpretation > 1 {
		return errors.ErrUnsupported
	}

	switch ifd.Compression {
	case 0, compressionNone:
		g.compression = compressionNone
	case compressionLZW:
		g.compression = compressionLZW
	default:
		return fmt.Errorf("compression %d: %w", ifd.Compression, errors.ErrUnsupported)
	}

	switch sampleFormat := max(ifd.SampleFormat, sampleFormatUint); {
	case sampleFormat == sampleFormatFloat && ifd.BitsPerSample == 32:
		g.decodeSample = func(b []byte) float64 {
			return float64(math.Float32frombits(g.byteOrder.Uint32(b)))
		}
	case sampleFormat == sampleFormatFloat && ifd.BitsPerSample == 64:
		g.decodeSample = func(b []byte) float64 {
			return math.Float64frombits(g.byteOrder.Uint64(b))
		}
	case sampleFormat == sampleFormatInt && ifd.BitsPerSample == 16:
		g.decodeSample = func(b []byte) float64 {
			return float64(int16(g.byteOrder.Uint16(b)))
		}
	case sampleFormat == sampleFormatInt && ifd.BitsPerSample == 32:
		g.decodeSample = func(b []byte) float64 {
			return float64(int32(g.byteOrder.Uint32(b)))
		}
	case sampleFormat == sampleFormatUint && ifd.BitsPerSample == 8:
		g.decodeSample = func(b []byte) float64 {
			return float64(b[0])
		}
	case sampleFormat == sampleFormatUint && ifd.BitsPerSample == 16:
		g.decodeSample = func(b []byte) float64 {
			return float64(g.byteOrder.Uint16(b))
		}
	default:
		return fmt.Errorf("%d-bit sample format %d: %w", ifd.BitsPerSample, sampleFormat, errors.ErrUnsupported)
	}
	g.bytesPerSample = int(ifd.BitsPerSample) / 8

	switch g.predictor = int(max(ifd.Predictor, predictorNone)); {
	case g.predictor == predictorNone:
	case g.predictor == predictorHorizontal && ifd.SampleFormat != sampleFormatFloat:
	default:
		return fmt.Errorf("predictor %d: %w", g.predictor, errors.ErrUnsupported)
	}

	g.imageWidth = int(ifd.ImageWidth)
	g.imageLength = int(ifd.ImageLength)
	if g.imageWidth == 0 || g.imageLength == 0 {
		return errors.New("empty image")
	}
	if ifd.TileWidth != 0 && ifd.TileLength != 0 {
		g.tileWidth = int(ifd.TileWidth)
		g.tileLength = int(ifd.TileLength)
		g.tileOffsets = ifd.TileOffsets
		g.tileByteCounts = ifd.TileByteCounts
	} else {
		g.striped = true
		g.tileWidth = g.imageWidth
		g.tileLength = int(ifd.RowsPerStrip)
		if g.tileLength == 0 || g.tileLength > g.imageLength {
			g.tileLength = g.imageLength
		}
		g.tileOffsets = ifd.StripOffsets
		g.tileByteCounts = ifd.StripByteCounts
	}
	g.tilesAcross = (g.imageWidth + g.tileWidth - 1) / g.tileWidth
	g.tilesDown = (g.imageLength + g.tileLength - 1) / g.tileLength
	tilesPerImage := g.tilesAcross * g.tilesDown
	if len(g.tileByteCounts) != tilesPerImage || len(g.tileOffsets) != tilesPerImage {
		return errors.New("incorrect number of tile byte counts or offsets")
	}
	return nil
}

// setGeoreference sets g's georeference from ifd.
func (g *GeoTIFF) setGeoreference(ifd *geoTIFFIFD) error {
	if len(ifd.ModelPixelScaleTag) != 3 || len(ifd.ModelTiepointTag) != 6 {
		return errors.ErrUnsupported
	}
	scaleX, scaleY := ifd.ModelPixelScaleTag[0], ifd.ModelPixelScaleTag[1]
	if scaleX <= 0 || scaleY <= 0 {
		return errors.ErrUnsupported
	}
	i, j := ifd.ModelTiepointTag[0], ifd.ModelTiepointTag[1]
	x, y := ifd.ModelTiepointTag[3], ifd.ModelTiepointTag[4]
	g.georeference = Georeference{
		OriginX: x - i*scaleX,
		OriginY: y + j*scaleY,
		ScaleX:  scaleX,
		ScaleY:  scaleY,
		Width:   g.imageWidth,
		Height:  g.imageLength,
	}

	if len(ifd.GeoKeyDirectoryTag) == 0 {
		return nil
	}
	parsedGeoKeys, err := ParseGeoKeys(ifd.GeoKeyDirectoryTag, ifd.GeoDoubleParamsTag, []byte(ifd.GeoASCIIParamsTag))
	if err != nil {
		return err
	}
	g.georeference.SRID, _ = parsedGeoKeys.SRID()
	g.georeference.Geographic = parsedGeoKeys.Geographic()
	if parsedGeoKeys.PixelIsPoint() {
		g.georeference.OriginX -= scaleX / 2
		g.georeference.OriginY += scaleY / 2
	}
	g.citation = parsedGeoKeys.Citation()
	return nil
}

// Close closes g.
func (g *GeoTIFF) Close() error {
	return g.file.Close()
}

// Georeference returns g's georeference.
func (g *GeoTIFF) Georeference() Georeference {
	return g.georeference
}

// Citation returns g's CRS citation, if any.
func (g *GeoTIFF) Citation() string {
	return g.citation
}

// Scale returns g's world units per pixel.
func (g *GeoTIFF) Scale() (float64, float64) {
	return g.georeference.ScaleX, g.georeference.ScaleY
}

// Grid reads all of g's samples into a Grid. No-data samples are replaced by
// the smallest valid sample so that they are treated as background.
func (g *GeoTIFF) Grid(ctx context.Context) (*Grid, error) {
	samples := make([]float64, g.imageWidth*g.imageLength)
	for r := range g.tilesDown {
		for c := range g.tilesAcross {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			tileSamples, err := g.getTileSamplesCached(ctx, TileCoord{C: c, R: r})
			if err != nil {
				return nil, err
			}
			x0, y0 := c*g.tileWidth, r*g.tileLength
			columns := min(g.tileWidth, g.imageWidth-x0)
			for y := y0; y < min(y0+g.tileLength, g.imageLength); y++ {
				row := tileSamples[(y-y0)*g.tileWidth : (y-y0)*g.tileWidth+columns]
				copy(samples[y*g.imageWidth+x0:], row)
			}
		}
	}
	return newGridFillingNoData(g.imageWidth, g.imageLength, samples)
}

// Sample returns the sample at coord, or NaN if coord is outside g or is
// no-data.
func (g *GeoTIFF) Sample(ctx context.Context, coord Coord) (float64, error) {
	tileCoord, ok := g.tileCoord(coord)
	if !ok {
		return math.NaN(), nil
	}
	tileSamples, err := g.getTileSamplesCached(ctx, tileCoord)
	if err != nil {
		return 0, err
	}
	return g.tileSample(tileSamples, coord), nil
}

// Samples returns the samples at world points. It is significantly faster
// than calling [Sample] for each point.
func (g *GeoTIFF) Samples(ctx context.Context, points []orb.Point) ([]float64, error) {
	samples := make([]float64, len(points))
	coords := make([]Coord, len(points))

	// Group indexes by tile coord.
	indexesByTileCoord := make(map[TileCoord][]int)
	for index, point := range points {
		coord, ok := g.georeference.WorldToPixel(point)
		if !ok {
			samples[index] = math.NaN()
			continue
		}
		coords[index] = coord
		tileCoord, _ := g.tileCoord(coord)
		indexesByTileCoord[tileCoord] = append(indexesByTileCoord[tileCoord], index)
	}

	// Populate samples one tile at a time.
	for tileCoord, indexes := range indexesByTileCoord {
		slices.Sort(indexes)
		tileSamples, err := g.getTileSamplesCached(ctx, tileCoord)
		if err != nil {
			return nil, err
		}
		for _, index := range indexes {
			samples[index] = g.tileSample(tileSamples, coords[index])
		}
	}

	return samples, nil
}

// getCompressedTileData returns the compressed data for the tile at tileCoord.
func (g *GeoTIFF) getCompressedTileData(tileCoord TileCoord) ([]byte, error) {
	tileIndex := tileCoord.C + g.tilesAcross*tileCoord.R
	tileByteCount := g.tileByteCounts[tileIndex]
	tileOffset := g.tileOffsets[tileIndex]
	compressedData := make([]byte, tileByteCount)
	switch n, err := g.file.ReadAt(compressedData, int64(tileOffset)); {
	case n == int(tileByteCount):
		return compressedData, nil
	case err != nil && !errors.Is(err, io.EOF):
		return nil, err
	default:
		return nil, errShortRead
	}
}

// decompressTileData decompresses compressedData into size bytes.
func (g *GeoTIFF) decompressTileData(compressedData []byte, size int) ([]byte, error) {
	if g.compression == compressionNone {
		if len(compressedData) < size {
			return nil, errShortRead
		}
		return compressedData[:size], nil
	}
	tileData := make([]byte, size)
	r := lzw.NewReader(bytes.NewReader(compressedData), lzw.MSB, 8)
	defer r.Close()
	if _, err := io.ReadFull(r, tileData); err != nil {
		return nil, err
	}
	return tileData, nil
}

// undoHorizontalDifferencing reverses the TIFF horizontal differencing
// predictor in place.
func (g *GeoTIFF) undoHorizontalDifferencing(tileData []byte) {
	bps := g.bytesPerSample
	rowBytes := g.tileWidth * bps
	for row := 0; row+rowBytes <= len(tileData); row += rowBytes {
		for i := row + bps; i < row+rowBytes; i += bps {
			switch bps {
			case 1:
				tileData[i] += tileData[i-1]
			case 2:
				g.byteOrder.PutUint16(tileData[i:], g.byteOrder.Uint16(tileData[i:])+g.byteOrder.Uint16(tileData[i-2:]))
			case 4:
				g.byteOrder.PutUint32(tileData[i:], g.byteOrder.Uint32(tileData[i:])+g.byteOrder.Uint32(tileData[i-4:]))
			}
		}
	}
}

// decodeTileData decodes tileData, converting no-data samples to NaN.
func (g *GeoTIFF) decodeTileData(tileData []byte) []float64 {
	tileSamples := make([]float64, g.tileWidth*g.tileLength)
	for i := range len(tileData) / g.bytesPerSample {
		sample := g.decodeSample(tileData[i*g.bytesPerSample : (i+1)*g.bytesPerSample])
		if sample == g.noData {
			sample = math.NaN()
		}
		tileSamples[i] = sample
	}
	return tileSamples
}

// getTileSamples returns the tile samples at tileCoord.
func (g *GeoTIFF) getTileSamples(ctx context.Context, tileCoord TileCoord) ([]float64, error) {
	// Retrieve the compressed tile data.
	compressedTileData, err := g.getCompressedTileData(tileCoord)
	if err != nil {
		return nil, err
	}

	// The last strip may be shorter than the others.
	rows := g.tileLength
	if g.striped {
		rows = min(rows, g.imageLength-tileCoord.R*g.tileLength)
	}

	// Decompress the tile data and decode it.
	tileData, err := g.decompressTileData(compressedTileData, g.tileWidth*rows*g.bytesPerSample)
	if err != nil {
		return nil, err
	}
	if g.predictor == predictorHorizontal {
		g.undoHorizontalDifferencing(tileData)
	}
	return g.decodeTileData(tileData), nil
}

// getTileSamplesCached returns the tile at tileCoord using g's cache.
func (g *GeoTIFF) getTileSamplesCached(ctx context.Context, tileCoord TileCoord) ([]float64, error) {
	return g.tileSamplesCache.Get(ctx, tileCoord, otter.LoaderFunc[TileCoord, []float64](g.getTileSamples))
}

// tileCoord returns the tile coord for coord.
func (g *GeoTIFF) tileCoord(coord Coord) (TileCoord, bool) {
	if coord.X < 0 || g.imageWidth <= coord.X || coord.Y < 0 || g.imageLength <= coord.Y {
		return TileCoord{}, false
	}
	return TileCoord{
		C: coord.X / g.tileWidth,
		R: coord.Y / g.tileLength,
	}, true
}

// tileSample returns the sample from tileSamples at coord.
func (g *GeoTIFF) tileSample(tileSamples []float64, coord Coord) float64 {
	return tileSamples[coord.X%g.tileWidth+(coord.Y%g.tileLength)*g.tileWidth]
}

// newGridFillingNoData returns a new Grid from samples, replacing NaNs with
// the smallest valid sample.
func newGridFillingNoData(width, height int, samples []float64) (*Grid, error) {
	minSample := math.Inf(1)
	for _, sample := range samples {
		if !math.IsNaN(sample) {
			minSample = min(minSample, sample)
		}
	}
	if math.IsInf(minSample, 1) {
		return nil, ErrNoValidSamples
	}
	for i, sample := range samples {
		if math.IsNaN(sample) {
			samples[i] = minSample
		}
	}
	return NewGrid(width, height, samples)
}
