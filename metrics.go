package peakfinder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	candidatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peakfinder_candidates_total",
		Help: "The total number of local maxima found",
	})
	prominenceRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peakfinder_prominence_rejections_total",
		Help: "The total number of candidates rejected by the prominence filter",
	})
	dominanceRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peakfinder_dominance_rejections_total",
		Help: "The total number of peaks rejected by the dominance filter",
	})
	peaksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peakfinder_peaks_total",
		Help: "The total number of peaks retained",
	})
	detectDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "peakfinder_detect_duration_seconds",
		Help:    "The time taken to detect peaks in a grid",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})
	missingTileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peakfinder_missing_tile_cache_hits_total",
		Help: "The total number of hits on the missing tile cache",
	})
	missingTileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peakfinder_missing_tile_cache_misses_total",
		Help: "The total number of misses on the missing tile cache",
	})
	tileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peakfinder_tile_cache_hits_total",
		Help: "The total number of hits on the open tile cache",
	})
	tileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peakfinder_tile_cache_misses_total",
		Help: "The total number of misses on the open tile cache",
	})
	tileCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peakfinder_tile_cache_evictions_total",
		Help: "The total number of evictions from the open tile cache",
	})
)
