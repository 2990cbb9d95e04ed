package spatial

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/notargets/meshfit/utils"
	"gonum.org/v1/gonum/spatial/kdtree"
)

const minQueriesPerWorker = 512

var ErrEmptyPointSet = errors.New("spatial index needs at least one point")

// Index answers nearest neighbour queries over a fixed point set. Sets of
// more than one point are held in a k-d tree, a single point set is kept
// unindexed and every query returns that point. The point set cannot change
// after construction, build a new Index instead.
type Index struct {
	points [][]float64
	dims   int
	tree   *kdtree.Tree
}

func NewIndex(points [][]float64) (idx *Index, err error) {
	if len(points) == 0 {
		return nil, ErrEmptyPointSet
	}
	idx = &Index{dims: len(points[0]), points: make([][]float64, len(points))}
	if idx.dims == 0 {
		return nil, fmt.Errorf("%w: points have no components", ErrEmptyPointSet)
	}
	pts := make(indexedPoints, len(points))
	for i, p := range points {
		if len(p) != idx.dims {
			return nil, fmt.Errorf("point %d has %d components, expected %d", i, len(p), idx.dims)
		}
		idx.points[i] = append([]float64{}, p...)
		pts[i] = indexedPoint{X: idx.points[i], Index: i}
	}
	if len(points) > 1 {
		// kdtree.New reorders pts, the copy in idx.points keeps insertion order
		idx.tree = kdtree.New(pts, false)
	}
	return
}

func (idx *Index) Len() int  { return len(idx.points) }
func (idx *Index) Dims() int { return idx.dims }

func (idx *Index) IsIndexed() bool { return idx.tree != nil }

// Point returns the stored point at insertion index i
func (idx *Index) Point(i int) []float64 { return idx.points[i] }

// Query returns the distances and insertion indices of the k points nearest
// x, in ascending distance, ties broken by lower insertion index
func (idx *Index) Query(x []float64, k int) (dist []float64, ids []int) {
	if len(x) != idx.dims {
		panic(fmt.Errorf("query point has %d components, index has %d", len(x), idx.dims))
	}
	if k > len(idx.points) {
		k = len(idx.points)
	}
	if k <= 0 {
		return
	}
	var found []kdtree.ComparableDist
	if idx.tree == nil {
		found = []kdtree.ComparableDist{{
			Comparable: indexedPoint{X: idx.points[0], Index: 0},
			Dist:       sqDist(x, idx.points[0]),
		}}
	} else {
		q := indexedPoint{X: x, Index: -1}
		nk := kdtree.NewNKeeper(k)
		idx.tree.NearestSet(nk, q)
		found = collect(nk.Heap)
		if len(found) == k {
			// Everything as close as the k-th point, so ties can be ordered by
			// insertion index
			kth := found[len(found)-1].Dist
			dk := kdtree.NewDistKeeper(kth*(1+1.e-12) + 1.e-300)
			idx.tree.NearestSet(dk, q)
			if ties := collect(dk.Heap); len(ties) >= k {
				found = ties
			}
		}
	}
	if len(found) > k {
		found = found[:k]
	}
	dist = make([]float64, len(found))
	ids = make([]int, len(found))
	for i, c := range found {
		dist[i] = math.Sqrt(c.Dist)
		ids[i] = c.Comparable.(indexedPoint).Index
	}
	return
}

// Nearest is Query with k = 1
func (idx *Index) Nearest(x []float64) (dist float64, id int) {
	d, ii := idx.Query(x, 1)
	return d[0], ii[0]
}

// NearestAll queries every row of X on the calling goroutine. Batches big
// enough to give at least two CPUs minQueriesPerWorker queries each are
// split across them, the call still returns only when every query is done.
func (idx *Index) NearestAll(X [][]float64) (dist []float64, ids []int) {
	dist = make([]float64, len(X))
	ids = make([]int, len(X))
	query := func(_, kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			dist[i], ids[i] = idx.Nearest(X[i])
		}
	}
	if len(X) < 2*minQueriesPerWorker {
		query(0, 0, len(X))
		return
	}
	utils.NewPartitionMap(utils.ParallelDegree(len(X), minQueriesPerWorker), len(X)).Run(query)
	return
}

// collect drops keeper sentinels and sorts by (distance, insertion index)
func collect(h kdtree.Heap) (found []kdtree.ComparableDist) {
	for _, c := range h {
		if c.Comparable != nil {
			found = append(found, c)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].Dist != found[j].Dist {
			return found[i].Dist < found[j].Dist
		}
		return found[i].Comparable.(indexedPoint).Index < found[j].Comparable.(indexedPoint).Index
	})
	return
}

func sqDist(a, b []float64) (d float64) {
	for i := range a {
		dx := a[i] - b[i]
		d += dx * dx
	}
	return
}
