package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex(t *testing.T) {
	assert.Equal(t, Index{2, 3, 4}, NewRange(2, 4))
	assert.Equal(t, 0, len(NewRange(3, 2)))
	assert.Equal(t, Index{1, 3, 7}, Index{7, 3, 1, 3, 7}.SortedUnique())
	assert.True(t, Index{1, 3, 7}.IsStrictlyIncreasing())
	assert.False(t, Index{1, 3, 3}.IsStrictlyIncreasing())
	assert.Equal(t, map[int]int{5: 0, 9: 1}, Index{5, 9}.Lookup())
	assert.Equal(t, Index{6, 10}, Index{5, 9}.Add(1))

	V := []float64{10, 11, 12, 13}
	I := Index{3, 1}
	assert.Equal(t, []float64{13, 11}, I.Gather(V))
	require.NoError(t, I.Scatter(V, []float64{-3, -1}))
	assert.Equal(t, []float64{10, -1, 12, -3}, V)
	assert.Error(t, I.Scatter(V, []float64{1}))
}

func TestArrayHelpers(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, Linspace(0, 1, 3))
	assert.Equal(t, []float64{0.5}, Linspace(0, 1, 1))
	assert.Equal(t, []float64{2, 2}, ConstArray(2, 2))
	assert.Equal(t, 25., SqDist([]float64{0, 0}, []float64{3, 4}))
	X := [][]float64{{1, 2, 3}, {4, 5, 6}}
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, Flatten(X))
	assert.Equal(t, X, Reshape(Flatten(X), 3))
	assert.True(t, IsNan([]float64{1, math.NaN()}))
	assert.False(t, IsNan([][]float64{{1}, {2}}))
}

func TestSparseAssembly(t *testing.T) {
	A := NewDOK(3, 2)
	A.AddAt(0, 0, 1)
	A.AddAt(0, 0, 1) // accumulates
	A.AddAt(2, 1, 3)
	assert.Equal(t, 2., A.At(0, 0))
	assert.Panics(t, func() { A.AddAt(3, 0, 1) })
	ro := A.SetReadOnly("A")
	assert.Panics(t, func() { ro.AddAt(0, 0, 1) })

	C := A.ToCSC()
	assert.Equal(t, 2, C.NNZ())
	assert.Equal(t, []float64{2, 0, 3}, C.MulVec(nil, []float64{1, 1}))
	assert.Equal(t, []float64{2, 6}, C.MulTransVec(nil, []float64{1, 1, 2}))
	assert.Equal(t, 3., C.ToDense().At(2, 1))

	R := A.ToCSR()
	assert.Equal(t, []float64{4, 0, 3}, R.MulVec(nil, []float64{2, 1}))

	// Empty dimensions do not allocate
	E := NewDOK(0, 4).ToCSC()
	assert.Nil(t, E.M)
	assert.Equal(t, []float64{0, 0, 0, 0}, E.MulTransVec(nil, nil))
}
