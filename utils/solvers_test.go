package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func denseToCSC(nr, nc int, data []float64) CSC {
	A := NewDOK(nr, nc)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			if v := data[i*nc+j]; v != 0 {
				A.AddAt(i, j, v)
			}
		}
	}
	return A.ToCSC()
}

func TestLSQR(t *testing.T) {
	// Overdetermined and consistent
	{
		A := denseToCSC(3, 2, []float64{
			1, 0,
			0, 1,
			1, 1,
		})
		r := LSQR(A, []float64{1, 2, 3}, LSQRSettings{})
		require.Equal(t, 2, len(r.X))
		assert.InDeltaf(t, 1., r.X[0], 1.e-9, "stop: %s", r.Stop.Print())
		assert.InDeltaf(t, 2., r.X[1], 1.e-9, "stop: %s", r.Stop.Print())
		assert.InDelta(t, 0., r.RNorm, 1.e-9)
	}
	// Overdetermined and inconsistent, compare with the normal equations
	{
		data := []float64{
			1, 1,
			1, 2,
			1, 3,
			1, 4,
		}
		b := []float64{6, 5, 7, 10}
		r := LSQR(denseToCSC(4, 2, data), b, LSQRSettings{})
		var x mat.VecDense
		require.NoError(t, x.SolveVec(mat.NewDense(4, 2, data), mat.NewVecDense(4, b)))
		assert.InDelta(t, x.AtVec(0), r.X[0], 1.e-8)
		assert.InDelta(t, x.AtVec(1), r.X[1], 1.e-8)
		assert.InDelta(t, 3.5, r.X[0], 1.e-8)
		assert.InDelta(t, 1.4, r.X[1], 1.e-8)
	}
	// Rank deficient, the minimum norm solution
	{
		A := denseToCSC(2, 2, []float64{
			1, 1,
			1, 1,
		})
		r := LSQR(A, []float64{2, 2}, LSQRSettings{})
		assert.InDelta(t, 1., r.X[0], 1.e-9)
		assert.InDelta(t, 1., r.X[1], 1.e-9)
	}
	// Zero right hand side
	{
		A := denseToCSC(2, 2, []float64{2, 0, 0, 3})
		r := LSQR(A, []float64{0, 0}, LSQRSettings{})
		assert.Equal(t, LSQRZeroSolution, r.Stop)
		assert.Equal(t, []float64{0, 0}, r.X)
	}
}

func TestPseudoInverse(t *testing.T) {
	{
		Ainv, rank, err := PseudoInverse(mat.NewDense(2, 2, []float64{2, 2, 2, 2}), 0)
		require.NoError(t, err)
		assert.Equal(t, 1, rank)
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				assert.InDelta(t, 0.25, Ainv.At(i, j), 1.e-12)
			}
		}
	}
	{
		// Tall full rank: pinv(A) A = I
		A := mat.NewDense(3, 2, []float64{1, 0, 0, 2, 1, 1})
		Ainv, rank, err := PseudoInverse(A, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, rank)
		r, c := Ainv.Dims()
		assert.Equal(t, 2, r)
		assert.Equal(t, 3, c)
		var I mat.Dense
		I.Mul(Ainv, A)
		assert.True(t, mat.EqualApprox(&I, mat.NewDiagDense(2, []float64{1, 1}), 1.e-12))
	}
	{
		Ainv, rank, err := PseudoInverse(&mat.Dense{}, 0)
		assert.NoError(t, err)
		assert.Equal(t, 0, rank)
		assert.NotNil(t, Ainv)
	}
}

func TestLevenbergMarquardt(t *testing.T) {
	var (
		T = Linspace(0, 2, 21)
		Y = make([]float64, len(T))
	)
	for i, tt := range T {
		Y[i] = 2 * math.Exp(-1.5*tt)
	}
	f := func(dst, x []float64) {
		for i, tt := range T {
			dst[i] = x[0]*math.Exp(x[1]*tt) - Y[i]
		}
	}
	r := LevenbergMarquardt(f, len(T), []float64{1, 0}, NLLSSettings{})
	assert.Truef(t, r.Converged, "status: %s", r.Status)
	assert.InDelta(t, 2., r.X[0], 1.e-5)
	assert.InDelta(t, -1.5, r.X[1], 1.e-5)
	assert.Less(t, r.Cost, 1.e-10)
	// The start vector is left alone
	x0 := []float64{1, 0}
	_ = LevenbergMarquardt(f, len(T), x0, NLLSSettings{MaxFev: 5})
	assert.Equal(t, []float64{1, 0}, x0)
	// Nothing to vary
	r = LevenbergMarquardt(func(dst, x []float64) { dst[0] = 3 }, 1, nil, NLLSSettings{})
	assert.True(t, r.Converged)
	assert.Equal(t, 9., r.Cost)
}

func TestMinimizeLBFGS(t *testing.T) {
	// Rosenbrock as a sum of squares
	f := func(dst, x []float64) {
		dst[0] = 10 * (x[1] - x[0]*x[0])
		dst[1] = 1 - x[0]
	}
	r := MinimizeLBFGS(f, 2, []float64{-1.2, 1}, NLLSSettings{Ftol: 1.e-14, MaxFev: 20000})
	assert.InDeltaf(t, 1., r.X[0], 1.e-3, "status: %s", r.Status)
	assert.InDeltaf(t, 1., r.X[1], 1.e-3, "status: %s", r.Status)
	assert.Less(t, r.Cost, 1.e-6)
}
