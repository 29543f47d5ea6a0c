package peakfinder

import (
	"context"
	"math"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// FilterDominance returns the peaks whose dominance, in pixels, is at least
// threshold, sorted by descending height with ties broken in row-major order.
//
// The dominance of a peak is the distance to the nearest peak ranked before it
// with a height greater than or equal to its own. Peaks of equal height ranked
// earlier count, unlike in [FilterProminence]. The highest peak has a
// dominance of +Inf.
func FilterDominance(ctx context.Context, peaks []Peak, threshold float64) ([]Peak, error) {
	if err := validateThreshold("dominance threshold", threshold); err != nil {
		return nil, err
	}
	return filterDominance(ctx, peaks, threshold, runtime.GOMAXPROCS(0))
}

func filterDominance(ctx context.Context, peaks []Peak, threshold float64, concurrency int) ([]Peak, error) {
	if len(peaks) == 0 {
		return nil, nil
	}

	ranked := slices.Clone(peaks)
	slices.SortStableFunc(ranked, func(a, b Peak) int {
		return compareRank(a.Coord, a.Height, b.Coord, b.Height)
	})

	dominances := make([]float64, len(ranked))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for i := range ranked {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			dominances[i] = dominance(ranked, i)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	retained := ranked[:0]
	for i, peak := range ranked {
		if dominances[i] >= threshold {
			peak.Dominance = dominances[i]
			retained = append(retained, peak)
		}
	}
	return slices.Clip(retained), nil
}

// dominance returns the distance from ranked[i] to the nearest peak ranked
// before it that is at least as high.
func dominance(ranked []Peak, i int) float64 {
	peak := ranked[i]
	nearest := math.Inf(1)
	for _, higher := range ranked[:i] {
		if higher.Height >= peak.Height {
			nearest = min(nearest, distance(peak.Coord, higher.Coord))
		}
	}
	return nearest
}
