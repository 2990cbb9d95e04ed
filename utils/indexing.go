package utils

import (
	"fmt"
	"sort"
)

// Index is a list of integer offsets into a vector, typically global mesh
// parameter indices or matrix rows.
type Index []int

func NewIndex(N int) (I Index) {
	return make(Index, N)
}

func NewRange(rmin, rmax int) (r Index) {
	var (
		size = rmax - rmin + 1 // INCLUSIVE RANGE
	)
	if size < 0 {
		size = 0
	}
	r = make(Index, size)
	for i := range r {
		r[i] = i + rmin
	}
	return
}

func (I Index) Copy() (r Index) {
	r = make(Index, len(I))
	copy(r, I)
	return
}

func (I Index) Add(val int) (r Index) {
	r = make(Index, len(I))
	for i, v := range I {
		r[i] = v + val
	}
	return
}

// SortedUnique returns the ascending, de-duplicated contents of I
func (I Index) SortedUnique() (r Index) {
	if len(I) == 0 {
		return Index{}
	}
	r = I.Copy()
	sort.Ints(r)
	var j int
	for i := 1; i < len(r); i++ {
		if r[i] != r[j] {
			j++
			r[j] = r[i]
		}
	}
	return r[:j+1]
}

// IsStrictlyIncreasing is true when every entry is larger than its predecessor
func (I Index) IsStrictlyIncreasing() bool {
	for i := 1; i < len(I); i++ {
		if I[i] <= I[i-1] {
			return false
		}
	}
	return true
}

// Lookup maps each value in I to its position
func (I Index) Lookup() (m map[int]int) {
	m = make(map[int]int, len(I))
	for i, val := range I {
		m[val] = i
	}
	return
}

// Gather returns V[I]
func (I Index) Gather(V []float64) (r []float64) {
	r = make([]float64, len(I))
	for i, ind := range I {
		r[i] = V[ind]
	}
	return
}

// Scatter performs V[I] = vals
func (I Index) Scatter(V, vals []float64) (err error) {
	if len(I) != len(vals) {
		err = fmt.Errorf("length of index and values are not equal: len(I) = %v, len(Val) = %v", len(I), len(vals))
		return
	}
	for i, ind := range I {
		V[ind] = vals[i]
	}
	return
}
