package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/paulmach/orb"

	"github.com/twpayne/go-peakfinder"
)

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flagSet := flag.NewFlagSet("peakfinder", flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	configFile := flagSet.String("config", "", "path to YAML configuration file")
	euDEMPath := flagSet.String("eu-dem-path", os.Getenv("EU_DEM_PATH"), "path to EU-DEM data")
	bbox := flagSet.String("bbox", "", "EU-DEM bounding box minx,miny,maxx,maxy in EPSG:3035 metres")
	preset := flagSet.String("preset", "", "threshold preset, one of "+presetNames())
	windowSize := flagSet.Int("window", peakfinder.DefaultWindowSize, "local maximum window size")
	prominence := flagSet.Float64("prominence", 0, "minimum prominence in metres")
	dominance := flagSet.Float64("dominance", 0, "minimum dominance in metres")
	dominancePixels := flagSet.Float64("dominance-pixels", 0, "minimum dominance in pixels, overrides -dominance")
	imageScale := flagSet.Float64("image-scale", 1, "metres per pixel of image heightmaps")
	tileCacheSize := flagSet.String("tile-cache-size", "128MB", "GeoTIFF decoded tile cache size")
	concurrency := flagSet.Int("concurrency", runtime.GOMAXPROCS(0), "maximum goroutines per stage")
	format := flagSet.String("format", "", "output format, one of "+strings.Join(formats, ", "))
	limit := flagSet.Int("limit", 0, "maximum number of peaks to output, zero for all")
	verbose := flagSet.Bool("v", false, "log progress to stderr")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	config := defaultConfig()
	if *configFile != "" {
		var err error
		if config, err = LoadConfig(*configFile); err != nil {
			return err
		}
	}
	if config.EUDEMPath == "" {
		config.EUDEMPath = *euDEMPath
	}
	if config.Concurrency == 0 {
		config.Concurrency = *concurrency
	}
	var err error
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "eu-dem-path":
			config.EUDEMPath = *euDEMPath
		case "bbox":
			config.BBox, err = parseBBox(*bbox)
		case "preset":
			config.Preset = *preset
		case "window":
			config.WindowSize = *windowSize
		case "prominence":
			config.Prominence = *prominence
		case "dominance":
			config.Dominance = *dominance
		case "dominance-pixels":
			config.DominancePixels = *dominancePixels
		case "image-scale":
			config.ImageScale = *imageScale
		case "tile-cache-size":
			config.TileCacheSize = *tileCacheSize
		case "concurrency":
			config.Concurrency = *concurrency
		case "format":
			config.Format = *format
		case "limit":
			config.Limit = *limit
		case "v":
			config.Verbose = *verbose
		}
	})
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Format == "" {
		config.Format = defaultFormat(stdout)
	}

	logf := func(string, ...any) {}
	if config.Verbose {
		logf = log.New(stderr, "peakfinder: ", log.LstdFlags).Printf
	}

	var grid *peakfinder.Grid
	var georeference peakfinder.Georeference
	switch {
	case flagSet.NArg() == 1:
		grid, georeference, err = readFile(ctx, config, flagSet.Arg(0), logf)
	case flagSet.NArg() == 0 && config.EUDEMPath != "" && len(config.BBox) == 4:
		grid, georeference, err = readEUDEM(ctx, config, logf)
	default:
		return errors.New("syntax: peakfinder [flags] FILE or peakfinder -eu-dem-path DIR -bbox minx,miny,maxx,maxy")
	}
	if err != nil {
		return err
	}

	prominenceThreshold, dominanceThresholdMetres, err := config.Thresholds()
	if err != nil {
		return err
	}
	dominanceThresholdPixels := config.DominancePixels
	if dominanceThresholdPixels == 0 {
		dominanceThresholdPixels = georeference.DominancePixels(dominanceThresholdMetres)
	}

	detector, err := peakfinder.NewDetector(
		peakfinder.WithWindowSize(config.WindowSize),
		peakfinder.WithProminenceThreshold(prominenceThreshold),
		peakfinder.WithDominanceThreshold(dominanceThresholdPixels),
		peakfinder.WithConcurrency(config.Concurrency),
		peakfinder.WithLogf(logf),
	)
	if err != nil {
		return err
	}
	peaks, err := detector.Detect(ctx, grid)
	if err != nil {
		return err
	}
	if config.Limit > 0 && len(peaks) > config.Limit {
		peaks = peaks[:config.Limit]
	}

	var transformer *peakfinder.WGS84Transformer
	if georeference.SRID != 0 {
		transformer, err = peakfinder.NewWGS84Transformer(georeference.SRID)
		if err != nil {
			return err
		}
		defer transformer.Close()
	}
	records, err := newPeakRecords(peaks, &georeference, transformer)
	if err != nil {
		return err
	}
	return writeRecords(stdout, config.Format, records)
}

// readFile reads a GeoTIFF or an image heightmap.
func readFile(ctx context.Context, config *Config, filename string, logf func(string, ...any)) (*peakfinder.Grid, peakfinder.Georeference, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tif", ".tiff":
		tileCacheSizeBytes, err := config.tileCacheSizeBytes()
		if err != nil {
			return nil, peakfinder.Georeference{}, err
		}
		geoTIFF, err := peakfinder.OpenGeoTIFF(
			os.DirFS(filepath.Dir(filename)),
			filepath.Base(filename),
			peakfinder.WithTileCacheSize(tileCacheSizeBytes),
		)
		if err != nil {
			return nil, peakfinder.Georeference{}, err
		}
		defer geoTIFF.Close()
		georeference := geoTIFF.Georeference()
		logf("%s: %dx%d, EPSG:%d, %s tile cache", filename, georeference.Width, georeference.Height, georeference.SRID, humanize.Bytes(uint64(tileCacheSizeBytes)))
		grid, err := geoTIFF.Grid(ctx)
		if err != nil {
			return nil, peakfinder.Georeference{}, err
		}
		return grid, georeference, nil
	default:
		grid, err := peakfinder.LoadImage(filename)
		if err != nil {
			return nil, peakfinder.Georeference{}, err
		}
		logf("%s: %dx%d heightmap at %gm per pixel", filename, grid.Width(), grid.Height(), config.ImageScale)
		return grid, peakfinder.ImageGeoreference(grid.Width(), grid.Height(), config.ImageScale), nil
	}
}

// readEUDEM reads the samples inside config's bounding box from EU-DEM.
func readEUDEM(ctx context.Context, config *Config, logf func(string, ...any)) (*peakfinder.Grid, peakfinder.Georeference, error) {
	tileCacheSizeBytes, err := config.tileCacheSizeBytes()
	if err != nil {
		return nil, peakfinder.Georeference{}, err
	}
	euDEM, err := peakfinder.NewEUDEM(
		os.DirFS(config.EUDEMPath),
		peakfinder.WithGeoTIFFOptions(peakfinder.WithTileCacheSize(tileCacheSizeBytes)),
	)
	if err != nil {
		return nil, peakfinder.Georeference{}, err
	}
	defer euDEM.Close()
	bound := orb.Bound{
		Min: orb.Point{config.BBox[0], config.BBox[1]},
		Max: orb.Point{config.BBox[2], config.BBox[3]},
	}
	logf("reading EU-DEM %v from %s", bound, config.EUDEMPath)
	return peakfinder.ReadGrid(ctx, euDEM, bound)
}

func parseBBox(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 4 {
		return nil, fmt.Errorf("%s: bbox must be minx,miny,maxx,maxy", s)
	}
	bbox := make([]float64, 0, 4)
	for _, field := range fields {
		value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s, err)
		}
		bbox = append(bbox, value)
	}
	return bbox, nil
}

// defaultFormat returns table if w is a terminal and csv otherwise.
func defaultFormat(w io.Writer) string {
	if file, ok := w.(*os.File); ok && isatty.IsTerminal(file.Fd()) {
		return "table"
	}
	return "csv"
}

func presetNames() string {
	var names []string
	for _, preset := range peakfinder.Presets() {
		names = append(names, preset.Name)
	}
	return strings.Join(names, ", ")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
