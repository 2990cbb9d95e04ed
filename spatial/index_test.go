package spatial

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshfit/utils"
)

func TestIndex(t *testing.T) {
	{
		_, err := NewIndex(nil)
		assert.True(t, errors.Is(err, ErrEmptyPointSet))
		_, err = NewIndex([][]float64{{0, 0}, {1}})
		assert.Error(t, err)
	}
	// A single point is never indexed and answers every query
	{
		idx, err := NewIndex([][]float64{{1, 2}})
		require.NoError(t, err)
		assert.False(t, idx.IsIndexed())
		d, id := idx.Nearest([]float64{4, 6})
		assert.Equal(t, 0, id)
		assert.InDelta(t, 5., d, 1.e-14)
		dist, ids := idx.Query([]float64{0, 0}, 3)
		assert.Equal(t, []int{0}, ids)
		assert.Equal(t, 1, len(dist))
	}
	{
		pts := [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {0.5, 0.5}}
		idx, err := NewIndex(pts)
		require.NoError(t, err)
		assert.True(t, idx.IsIndexed())
		assert.Equal(t, 5, idx.Len())
		assert.Equal(t, 2, idx.Dims())
		// The caller's slice may change without affecting the index
		pts[4][0] = 100
		assert.Equal(t, []float64{0.5, 0.5}, idx.Point(4))

		d, id := idx.Nearest([]float64{0.45, 0.55})
		assert.Equal(t, 4, id)
		assert.InDelta(t, math.Sqrt(0.005), d, 1.e-14)

		dist, ids := idx.Query([]float64{0.9, 0.2}, 3)
		assert.Equal(t, []int{1, 4, 3}, ids)
		assert.True(t, sort.Float64sAreSorted(dist))

		_, ids = idx.NearestAll([][]float64{{-1, -1}, {2, 2}})
		assert.Equal(t, []int{0, 3}, ids)
		assert.Panics(t, func() { idx.Nearest([]float64{0}) })
	}
}

func TestIndexTies(t *testing.T) {
	// Every corner of the square is equidistant from the centre
	pts := [][]float64{{1, 1}, {0, 1}, {1, 0}, {0, 0}}
	idx, err := NewIndex(pts)
	require.NoError(t, err)
	_, id := idx.Nearest([]float64{0.5, 0.5})
	assert.Equal(t, 0, id)
	dist, ids := idx.Query([]float64{0.5, 0.5}, 3)
	assert.Equal(t, []int{0, 1, 2}, ids)
	for _, d := range dist {
		assert.InDelta(t, math.Sqrt(0.5), d, 1.e-14)
	}
	// Duplicate points resolve to the first inserted
	idx, err = NewIndex([][]float64{{3, 3}, {1, 1}, {2, 2}, {1, 1}, {1, 1}})
	require.NoError(t, err)
	_, id = idx.Nearest([]float64{1, 1})
	assert.Equal(t, 1, id)
	_, ids = idx.Query([]float64{1.1, 1.1}, 2)
	assert.Equal(t, []int{1, 3}, ids)
}

func TestIndexBruteForce(t *testing.T) {
	var (
		rng = rand.New(rand.NewSource(42))
		N   = 500
		pts = make([][]float64, N)
	)
	for i := range pts {
		pts[i] = []float64{rng.Float64(), rng.Float64(), rng.Float64()}
	}
	idx, err := NewIndex(pts)
	require.NoError(t, err)
	for q := 0; q < 50; q++ {
		x := []float64{rng.Float64(), rng.Float64(), rng.Float64()}
		order := make([]int, N)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool {
			return sqDist(x, pts[order[i]]) < sqDist(x, pts[order[j]])
		})
		dist, ids := idx.Query(x, 4)
		require.Equal(t, order[:4], ids)
		for i, id := range ids {
			assert.InDelta(t, math.Sqrt(sqDist(x, pts[id])), dist[i], 1.e-14)
		}
	}
}

func TestNearestAllSmallBatch(t *testing.T) {
	// Batches the fit loop produces stay on one worker
	assert.Equal(t, 1, utils.ParallelDegree(2*minQueriesPerWorker-1, minQueriesPerWorker))
	idx, err := NewIndex([][]float64{{0, 0}, {1, 0}, {0, 1}})
	require.NoError(t, err)
	dist, ids := idx.NearestAll([][]float64{{0.9, 0.1}, {0.1, 0.8}, {0, 0}})
	assert.Equal(t, []int{1, 2, 0}, ids)
	assert.InDeltaSlice(t, []float64{math.Sqrt(0.02), math.Sqrt(0.05), 0}, dist, 1.e-12)
	dist, ids = idx.NearestAll(nil)
	assert.Empty(t, dist)
	assert.Empty(t, ids)
}

func TestNearestAllBatch(t *testing.T) {
	var (
		rng = rand.New(rand.NewSource(7))
		pts = make([][]float64, 200)
		X   = make([][]float64, 4*minQueriesPerWorker+3)
	)
	for i := range pts {
		pts[i] = []float64{rng.Float64(), rng.Float64()}
	}
	for i := range X {
		X[i] = []float64{rng.Float64(), rng.Float64()}
	}
	idx, err := NewIndex(pts)
	require.NoError(t, err)
	dist, ids := idx.NearestAll(X)
	require.Len(t, ids, len(X))
	for i, x := range X {
		d, id := idx.Nearest(x)
		assert.Equal(t, id, ids[i])
		assert.Equal(t, d, dist[i])
	}
}
