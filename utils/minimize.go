package utils

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// MinimizeLBFGS minimizes sum(f(x)^2) with gonum's L-BFGS and a central
// difference gradient. It is cheaper per step than LevenbergMarquardt for
// large parameter counts, since no m x n Jacobian is formed.
func MinimizeLBFGS(f ResidualFunc, m int, x0 []float64, s NLLSSettings) (r NLLSResult) {
	var (
		n   = len(x0)
		res = make([]float64, m)
	)
	s.setDefaults(n)
	cost := func(x []float64) float64 {
		f(res, x)
		r.FuncEvals++
		return floats.Dot(res, res)
	}
	if n == 0 || m == 0 {
		r.X, r.Cost, r.Converged, r.Status = append([]float64{}, x0...), cost(x0), true, "empty problem"
		return
	}
	problem := optimize.Problem{
		Func: cost,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, cost, x, &fd.Settings{Formula: fd.Central, Step: s.Step})
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations:   s.MaxFev,
		GradientThreshold: s.Gtol,
		Converger: &optimize.FunctionConverge{
			Relative:   s.Ftol,
			Iterations: 10,
		},
	}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if result == nil {
		r.X, r.Cost = append([]float64{}, x0...), cost(x0)
		if err != nil {
			r.Status = err.Error()
		}
		return
	}
	r.X = result.X
	r.Cost = result.F
	r.Iterations = result.MajorIterations
	r.Status = result.Status.String()
	switch result.Status {
	case optimize.FunctionEvaluationLimit, optimize.IterationLimit, optimize.RuntimeLimit, optimize.Failure:
	default:
		r.Converged = err == nil
	}
	if err != nil {
		r.Status = err.Error()
	}
	return
}
