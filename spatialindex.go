package peakfinder

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// initialNearestSetSize is the number of neighbors first requested when
// searching for a strictly higher candidate.
const initialNearestSetSize = 8

// A higherIndex finds, for each ranked candidate, the nearest candidate with a
// strictly greater height. It is built once and is safe for concurrent
// queries.
type higherIndex struct {
	ranked []candidate
	tree   *kdtree.Tree
}

// A candidatePoint is a kd-tree point that refers to a ranked candidate.
type candidatePoint struct {
	Coord
	rank int
}

type candidatePoints []candidatePoint

// A candidatePlane sorts candidatePoints along a single dimension.
type candidatePlane struct {
	candidatePoints
	dim kdtree.Dim
}

func newHigherIndex(ranked []candidate) *higherIndex {
	points := make(candidatePoints, len(ranked))
	for rank, c := range ranked {
		points[rank] = candidatePoint{Coord: c.Coord, rank: rank}
	}
	return &higherIndex{
		ranked: ranked,
		tree:   kdtree.New(points, false),
	}
}

// nearestHigher returns the rank of the candidate nearest to ranked[rank] with
// a strictly greater height. Equidistant candidates are resolved by rank. It
// returns false if no candidate is strictly higher.
//
// The tree is queried for the k nearest neighbors with k doubling until a
// strictly higher candidate is found that is strictly closer than the
// furthest neighbor returned, which guarantees that no equidistant candidate
// was cut off.
func (x *higherIndex) nearestHigher(rank int) (int, bool) {
	c := x.ranked[rank]
	if c.height >= x.ranked[0].height {
		return 0, false
	}
	query := candidatePoint{Coord: c.Coord, rank: rank}
	for k := min(initialNearestSetSize, len(x.ranked)); ; k = min(2*k, len(x.ranked)) {
		keeper := kdtree.NewNKeeper(k)
		x.tree.NearestSet(keeper, query)
		best, bestDist, maxDist := -1, math.Inf(1), 0.0
		for _, cd := range keeper.Heap {
			if cd.Comparable == nil {
				continue
			}
			maxDist = max(maxDist, cd.Dist)
			p := cd.Comparable.(candidatePoint)
			if x.ranked[p.rank].height <= c.height {
				continue
			}
			if cd.Dist < bestDist || cd.Dist == bestDist && p.rank < best {
				best, bestDist = p.rank, cd.Dist
			}
		}
		if best >= 0 && (bestDist < maxDist || k == len(x.ranked)) {
			return best, true
		}
		if k == len(x.ranked) {
			return 0, false
		}
	}
}

func (p candidatePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(candidatePoint)
	switch d {
	case 0:
		return float64(p.X - q.X)
	case 1:
		return float64(p.Y - q.Y)
	default:
		panic("illegal dimension")
	}
}

func (p candidatePoint) Dims() int {
	return 2
}

// Distance returns the squared Euclidean distance between p and c.
func (p candidatePoint) Distance(c kdtree.Comparable) float64 {
	return float64(squaredDistance(p.Coord, c.(candidatePoint).Coord))
}

func (p candidatePoints) Index(i int) kdtree.Comparable {
	return p[i]
}

func (p candidatePoints) Len() int {
	return len(p)
}

func (p candidatePoints) Pivot(d kdtree.Dim) int {
	return candidatePlane{candidatePoints: p, dim: d}.Pivot()
}

func (p candidatePoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

func (p candidatePlane) Less(i, j int) bool {
	if p.dim == 0 {
		return p.candidatePoints[i].X < p.candidatePoints[j].X
	}
	return p.candidatePoints[i].Y < p.candidatePoints[j].Y
}

func (p candidatePlane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (p candidatePlane) Slice(start, end int) kdtree.SortSlicer {
	return candidatePlane{candidatePoints: p.candidatePoints[start:end], dim: p.dim}
}

func (p candidatePlane) Swap(i, j int) {
	p.candidatePoints[i], p.candidatePoints[j] = p.candidatePoints[j], p.candidatePoints[i]
}
