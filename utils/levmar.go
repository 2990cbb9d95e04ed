package utils

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ResidualFunc fills dst with the residual vector at x. It must not modify x.
type ResidualFunc func(dst, x []float64)

type NLLSSettings struct {
	Ftol   float64 // Relative reduction in the sum of squares
	Xtol   float64 // Relative change in x
	Gtol   float64 // Max norm of the gradient J^T r
	MaxFev int     // Function evaluation budget, 0 gives 200*(n+1)
	Step   float64 // Finite difference step, 0 uses the fd default
}

func (s *NLLSSettings) setDefaults(n int) {
	if s.Ftol <= 0 {
		s.Ftol = 1.49012e-08
	}
	if s.Xtol <= 0 {
		s.Xtol = 1.49012e-08
	}
	if s.MaxFev <= 0 {
		s.MaxFev = 200 * (n + 1)
	}
}

type NLLSResult struct {
	X          []float64
	Cost       float64 // Sum of squared residuals at X
	FuncEvals  int
	Iterations int
	Converged  bool
	Status     string
}

// LevenbergMarquardt minimizes sum(f(x)^2) over x, with m residuals, using a
// central difference Jacobian and Marquardt diagonal scaling of the damping.
// Central differences keep directions the residuals are flat in at zero
// slope, a forward difference there reports a slope of the step size.
func LevenbergMarquardt(f ResidualFunc, m int, x0 []float64, s NLLSSettings) (r NLLSResult) {
	var (
		n      = len(x0)
		x      = make([]float64, n)
		res    = make([]float64, m)
		resNew = make([]float64, m)
		xNew   = make([]float64, n)
		lambda = 1.e-3
	)
	s.setDefaults(n)
	copy(x, x0)
	f(res, x)
	r.FuncEvals = 1
	cost := floats.Dot(res, res)
	if n == 0 || m == 0 {
		r.X, r.Cost, r.Converged, r.Status = x, cost, true, "empty problem"
		return
	}
	var (
		J        = mat.NewDense(m, n, nil)
		JtJ      = mat.NewSymDense(n, nil)
		H        = mat.NewSymDense(n, nil)
		g        = mat.NewVecDense(n, nil)
		delta    mat.VecDense
		chol     mat.Cholesky
		jSetting = &fd.JacobianSettings{Formula: fd.Central, Step: s.Step}
	)
OUTER:
	for r.FuncEvals < s.MaxFev {
		r.Iterations++
		fd.Jacobian(J, f, x, jSetting)
		r.FuncEvals += 2 * n
		JtJ.SymOuterK(1, J.T())
		g.MulVec(J.T(), mat.NewVecDense(m, res))
		if s.Gtol > 0 && mat.Norm(g, math.Inf(1)) <= s.Gtol {
			r.Converged, r.Status = true, "gradient below Gtol"
			break
		}
		for {
			H.CopySym(JtJ)
			for i := 0; i < n; i++ {
				d := JtJ.At(i, i)
				if d < 1.e-12 {
					d = 1.e-12
				}
				H.SetSym(i, i, d*(1+lambda))
			}
			if ok := chol.Factorize(H); !ok || chol.SolveVecTo(&delta, g) != nil {
				lambda *= 10
				if lambda > 1.e16 {
					r.Status = "damped normal equations are not positive definite"
					break OUTER
				}
				continue
			}
			dx := delta.RawVector().Data
			for i := range xNew {
				xNew[i] = x[i] - dx[i]
			}
			f(resNew, xNew)
			r.FuncEvals++
			costNew := floats.Dot(resNew, resNew)
			stepNorm := floats.Norm(dx, 2)
			xNorm := floats.Norm(x, 2)
			if costNew < cost {
				// Predicted reduction of the linearized model |r - J dx|^2
				var Jdx mat.VecDense
				Jdx.MulVec(J, &delta)
				pred := 2*mat.Dot(g, &delta) - mat.Dot(&Jdx, &Jdx)
				actual := cost - costNew
				copy(x, xNew)
				res, resNew = resNew, res
				cost = costNew
				lambda = math.Max(lambda/10, 1.e-12)
				switch {
				case actual <= s.Ftol*cost && pred <= s.Ftol*cost:
					r.Converged, r.Status = true, "relative reduction in the sum of squares is at most Ftol"
					break OUTER
				case stepNorm <= s.Xtol*(xNorm+s.Xtol):
					r.Converged, r.Status = true, "relative change in x is at most Xtol"
					break OUTER
				}
				break
			}
			if stepNorm <= s.Xtol*(xNorm+s.Xtol) {
				r.Converged, r.Status = true, "relative change in x is at most Xtol"
				break OUTER
			}
			lambda *= 10
			if r.FuncEvals >= s.MaxFev {
				break OUTER
			}
		}
	}
	if r.Status == "" {
		r.Status = "function evaluation limit reached"
	}
	r.X, r.Cost = x, cost
	return
}
