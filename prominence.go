package peakfinder

import (
	"cmp"
	"context"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// A candidate is a local maximum with its height.
type candidate struct {
	Coord
	height float64
}

// FilterProminence returns the candidates whose prominence is at least
// threshold, sorted by descending height with ties broken in row-major order.
//
// The prominence of a candidate with no strictly higher candidate is its
// height. Otherwise it is its height minus the lowest sample on the [Line]
// to the nearest strictly higher candidate. The returned peaks have zero
// dominance.
func FilterProminence(ctx context.Context, g *Grid, candidates []Coord, threshold float64) ([]Peak, error) {
	if err := validateThreshold("prominence threshold", threshold); err != nil {
		return nil, err
	}
	return filterProminence(ctx, g, candidates, threshold, runtime.GOMAXPROCS(0))
}

func filterProminence(ctx context.Context, g *Grid, candidates []Coord, threshold float64, concurrency int) ([]Peak, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	ranked := rankCandidates(g, candidates)
	index := newHigherIndex(ranked)

	prominences := make([]float64, len(ranked))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for rank := range ranked {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			prominences[rank] = prominence(g, index, rank)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var peaks []Peak
	for rank, c := range ranked {
		if prominences[rank] >= threshold {
			peaks = append(peaks, Peak{
				Coord:      c.Coord,
				Height:     c.height,
				Prominence: prominences[rank],
			})
		}
	}
	return peaks, nil
}

// prominence returns the prominence of the candidate at rank.
func prominence(g *Grid, index *higherIndex, rank int) float64 {
	c := index.ranked[rank]
	reference, ok := index.nearestHigher(rank)
	if !ok {
		return c.height
	}
	saddle := c.height
	for _, coord := range Line(c.Coord, index.ranked[reference].Coord) {
		saddle = min(saddle, g.At(coord.X, coord.Y))
	}
	return c.height - saddle
}

// rankCandidates returns coords with their heights in rank order.
func rankCandidates(g *Grid, coords []Coord) []candidate {
	ranked := make([]candidate, len(coords))
	for i, coord := range coords {
		ranked[i] = candidate{
			Coord:  coord,
			height: g.At(coord.X, coord.Y),
		}
	}
	slices.SortFunc(ranked, func(a, b candidate) int {
		return compareRank(a.Coord, a.height, b.Coord, b.height)
	})
	return ranked
}

// compareRank orders by descending height, then by row, then by column.
func compareRank(a Coord, aHeight float64, b Coord, bHeight float64) int {
	if c := cmp.Compare(bHeight, aHeight); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.X, b.X)
}
