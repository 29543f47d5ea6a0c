package peakfinder

import (
	"context"
	"runtime"
	"time"
)

// DefaultWindowSize is the default local maximum window size.
const DefaultWindowSize = 3

// A Detector detects peaks in grids. It holds no state between calls and is
// safe for concurrent use.
type Detector struct {
	windowSize          int
	prominenceThreshold float64
	dominanceThreshold  float64
	concurrency         int
	logf                func(format string, args ...any)
}

// A DetectorOption sets an option on a Detector.
type DetectorOption func(*Detector)

// NewDetector returns a new Detector with the given options. It returns a
// *ConfigurationError if any option is invalid.
func NewDetector(options ...DetectorOption) (*Detector, error) {
	d := &Detector{
		windowSize:  DefaultWindowSize,
		concurrency: runtime.GOMAXPROCS(0),
		logf:        func(string, ...any) {},
	}
	for _, option := range options {
		option(d)
	}
	if err := validateWindowSize(d.windowSize); err != nil {
		return nil, err
	}
	if err := validateThreshold("prominence threshold", d.prominenceThreshold); err != nil {
		return nil, err
	}
	if err := validateThreshold("dominance threshold", d.dominanceThreshold); err != nil {
		return nil, err
	}
	if d.concurrency < 1 {
		return nil, &ConfigurationError{Option: "concurrency", Value: d.concurrency, Reason: "must be at least 1"}
	}
	return d, nil
}

// WithWindowSize sets the size of the square local maximum window. It must be
// odd and at least three.
func WithWindowSize(windowSize int) DetectorOption {
	return func(d *Detector) {
		d.windowSize = windowSize
	}
}

// WithProminenceThreshold sets the minimum prominence, in elevation units.
func WithProminenceThreshold(prominenceThreshold float64) DetectorOption {
	return func(d *Detector) {
		d.prominenceThreshold = prominenceThreshold
	}
}

// WithDominanceThreshold sets the minimum dominance, in pixels.
func WithDominanceThreshold(dominanceThreshold float64) DetectorOption {
	return func(d *Detector) {
		d.dominanceThreshold = dominanceThreshold
	}
}

// WithConcurrency sets the maximum number of goroutines used per stage.
func WithConcurrency(concurrency int) DetectorOption {
	return func(d *Detector) {
		d.concurrency = concurrency
	}
}

// WithLogf sets the function used to log progress. A nil logf disables
// logging.
func WithLogf(logf func(format string, args ...any)) DetectorOption {
	return func(d *Detector) {
		if logf == nil {
			logf = func(string, ...any) {}
		}
		d.logf = logf
	}
}

// WindowSize returns d's window size.
func (d *Detector) WindowSize() int {
	return d.windowSize
}

// ProminenceThreshold returns d's prominence threshold.
func (d *Detector) ProminenceThreshold() float64 {
	return d.prominenceThreshold
}

// DominanceThreshold returns d's dominance threshold in pixels.
func (d *Detector) DominanceThreshold() float64 {
	return d.dominanceThreshold
}

// Detect returns the peaks in g sorted by descending height, with ties broken
// in row-major order. The result depends only on g and d's thresholds.
func (d *Detector) Detect(ctx context.Context, g *Grid) ([]Peak, error) {
	start := time.Now()

	candidates, err := FindLocalMaxima(g, d.windowSize)
	if err != nil {
		return nil, err
	}
	candidatesTotal.Add(float64(len(candidates)))
	d.logf("found %d local maxima in %dx%d grid with window size %d", len(candidates), g.width, g.height, d.windowSize)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prominentPeaks, err := filterProminence(ctx, g, candidates, d.prominenceThreshold, d.concurrency)
	if err != nil {
		return nil, err
	}
	prominenceRejectionsTotal.Add(float64(len(candidates) - len(prominentPeaks)))
	d.logf("%d of %d candidates have prominence >= %g", len(prominentPeaks), len(candidates), d.prominenceThreshold)

	peaks, err := filterDominance(ctx, prominentPeaks, d.dominanceThreshold, d.concurrency)
	if err != nil {
		return nil, err
	}
	dominanceRejectionsTotal.Add(float64(len(prominentPeaks) - len(peaks)))
	peaksTotal.Add(float64(len(peaks)))
	d.logf("%d of %d peaks have dominance >= %g pixels", len(peaks), len(prominentPeaks), d.dominanceThreshold)

	elapsed := time.Since(start)
	detectDurationSeconds.Observe(elapsed.Seconds())
	d.logf("detected %d peaks in %s", len(peaks), elapsed)

	return peaks, nil
}

// DetectPeaks returns the peaks in g using a Detector with the given window
// size, prominence threshold in elevation units, and dominance threshold in
// pixels.
func DetectPeaks(ctx context.Context, g *Grid, windowSize int, prominenceThreshold, dominanceThresholdPixels float64) ([]Peak, error) {
	d, err := NewDetector(
		WithWindowSize(windowSize),
		WithProminenceThreshold(prominenceThreshold),
		WithDominanceThreshold(dominanceThresholdPixels),
	)
	if err != nil {
		return nil, err
	}
	return d.Detect(ctx, g)
}
