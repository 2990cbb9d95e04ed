package spatial

import "gonum.org/v1/gonum/spatial/kdtree"

// indexedPoint is a kdtree.Comparable that remembers its insertion index
type indexedPoint struct {
	X     []float64
	Index int
}

func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	return p.X[d] - q.X[d]
}

func (p indexedPoint) Dims() int { return len(p.X) }

// Distance is the squared Euclidean distance, as the tree expects
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	return sqDist(p.X, c.(indexedPoint).X)
}

type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p indexedPoints) Len() int                      { return len(p) }
func (p indexedPoints) Pivot(d kdtree.Dim) int {
	return plane{indexedPoints: p, Dim: d}.Pivot()
}
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane sorts indexedPoints along one dimension for median partitioning
type plane struct {
	kdtree.Dim
	indexedPoints
}

func (p plane) Less(i, j int) bool {
	return p.indexedPoints[i].X[p.Dim] < p.indexedPoints[j].X[p.Dim]
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.indexedPoints = p.indexedPoints[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.indexedPoints[i], p.indexedPoints[j] = p.indexedPoints[j], p.indexedPoints[i]
}
