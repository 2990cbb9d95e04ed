package basis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestJacobiNodes(t *testing.T) {
	X := JacobiGL(0, 0, 2)
	assert.InDeltaSlice(t, []float64{-1, 0, 1}, X, 1.e-14)
	X = JacobiGL(0, 0, 3)
	assert.InDelta(t, -0.4472135954999579, X[1], 1.e-12)
	// Gauss quadrature of order N integrates polynomials of degree 2N+1
	{
		r, w := JacobiGQ(0, 0, 2)
		assert.InDelta(t, 2., floats.Sum(w), 1.e-12)
		var x4 float64
		for i := range r {
			x4 += w[i] * r[i] * r[i] * r[i] * r[i]
		}
		assert.InDelta(t, 0.4, x4, 1.e-12)
	}
}

func TestLagrange(t *testing.T) {
	for N := 1; N <= 4; N++ {
		l := NewLagrange(N)
		require.Equal(t, N+1, l.Np())
		assert.InDelta(t, 0., l.Nodes[0], 1.e-14)
		assert.InDelta(t, 1., l.Nodes[N], 1.e-14)
		// Kronecker delta at the nodes
		for i, xi := range l.Nodes {
			phi := l.Weights(xi)
			for j := range phi {
				expected := 0.
				if i == j {
					expected = 1.
				}
				assert.InDeltaf(t, expected, phi[j], 1.e-12, "N=%d, node %d, phi_%d", N, i, j)
			}
		}
		// Partition of unity, derivatives sum to zero
		for _, xi := range []float64{0.13, 0.5, 0.77} {
			assert.InDelta(t, 1., floats.Sum(l.Weights(xi)), 1.e-12)
			assert.InDelta(t, 0., floats.Sum(l.Derivatives(xi)), 1.e-10)
		}
	}
	// Linear basis
	{
		l := NewLagrange(1)
		assert.InDeltaSlice(t, []float64{0.75, 0.25}, l.Weights(0.25), 1.e-14)
		assert.InDeltaSlice(t, []float64{-1, 1}, l.Derivatives(0.25), 1.e-14)
	}
	// Quadratic basis reproduces x^2 from its nodal values
	{
		l := NewLagrange(2)
		xi := 0.3
		phi := l.Weights(xi)
		dphi := l.Derivatives(xi)
		var x2, dx2 float64
		for j, node := range l.Nodes {
			x2 += phi[j] * node * node
			dx2 += dphi[j] * node * node
		}
		assert.InDelta(t, xi*xi, x2, 1.e-13)
		assert.InDelta(t, 2*xi, dx2, 1.e-12)
	}
	assert.Panics(t, func() { NewLagrange(0) })
}

func TestTensor(t *testing.T) {
	{
		order, err := ParseBasis("L3")
		assert.NoError(t, err)
		assert.Equal(t, 3, order)
		for _, label := range []string{"H3", "L0", "L9", "Lx", ""} {
			_, err = ParseBasis(label)
			assert.Truef(t, errors.Is(err, ErrUnknownBasis), "label %q", label)
		}
		_, err = NewTensor(nil)
		assert.True(t, errors.Is(err, ErrUnknownBasis))
		_, err = NewTensor([]string{"L1", "L1", "L1", "L1"})
		assert.True(t, errors.Is(err, ErrUnknownBasis))
	}
	{
		tb, err := NewTensor([]string{"L1", "L2"})
		require.NoError(t, err)
		assert.Equal(t, 2, tb.Dims())
		assert.Equal(t, 6, tb.NumNodes)
		// First direction runs fastest
		assert.Equal(t, []float64{1, 0}, tb.NodeXi(1))
		assert.Equal(t, []float64{0, 0.5}, tb.NodeXi(2))
		for i := 0; i < tb.NumNodes; i++ {
			w := tb.Weights(tb.NodeXi(i))
			for j := range w {
				expected := 0.
				if i == j {
					expected = 1.
				}
				assert.InDelta(t, expected, w[j], 1.e-12)
			}
		}
		xi := []float64{0.3, 0.6}
		assert.InDelta(t, 1., floats.Sum(tb.Weights(xi)), 1.e-12)
		for dir := 0; dir < 2; dir++ {
			assert.InDelta(t, 0., floats.Sum(tb.Derivatives(xi, dir)), 1.e-10)
		}
		// d/dxi0 of xi0 interpolated from the nodes is 1
		var dx float64
		dw := tb.Derivatives(xi, 0)
		for i := range dw {
			dx += dw[i] * tb.NodeXi(i)[0]
		}
		assert.InDelta(t, 1., dx, 1.e-12)
		assert.Panics(t, func() { tb.Weights([]float64{0.5}) })
	}
}
