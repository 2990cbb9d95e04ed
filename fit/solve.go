package fit

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/meshfit/utils"
)

// Solve iterates the linear fit: each iteration re-associates closest point
// rows with the data, solves the weighted least squares system and writes
// the solution back into the mesh. It stops when the RMS error changes by
// no more than tol, when the RMS error grows after the first iteration, or
// after maxIterations. A run that has not converged is not an error, the
// caller judges the returned RMS error and f.Iterations.
func (f *Fit) Solve(mesh Mesh, maxIterations int, tol float64) (rms float64, err error) {
	var (
		td, ts time.Duration
		params []float64
	)
	f.Iterations = 0
	f.RMSHistory = nil
	if !f.generated {
		return 0, fmt.Errorf("solve: %w, call UpdateFromMesh first", ErrUnresolvedBinding)
	}
	if f.numRows == 0 {
		return 0, nil
	}
	params = mesh.ParameterSubvector(f.ParamIDs)
	f.updatePointData(params)
	rms0 := f.ComputeRMSErr()
	f.RMSHistory = append(f.RMSHistory, rms0)

	drms := math.Inf(1)
	for drms > tol && f.Iterations < maxIterations {
		f.Iterations++
		t0 := time.Now()
		var Xd []float64
		if Xd, err = f.rowValues(mesh); err != nil {
			return rms0, err
		}
		for i := range Xd {
			Xd[i] *= f.W[i]
		}
		t1 := time.Now()
		x := f.solveLinear(Xd, params)
		if utils.IsNan(x) {
			return rms0, fmt.Errorf("solve iteration %d produced NaN parameters", f.Iterations)
		}
		if err = mesh.SetParameterSubvector(f.ParamIDs, x); err != nil {
			return rms0, err
		}
		params = x
		t2 := time.Now()
		f.updatePointData(params)
		rms1 := f.ComputeRMSErr()
		f.RMSHistory = append(f.RMSHistory, rms1)
		drms = math.Abs(rms0 - rms1)
		t3 := time.Now()
		td += t1.Sub(t0) + t3.Sub(t2)
		ts += t2.Sub(t1)
		if f.Iterations > 1 && rms1 > rms0 {
			if f.Output {
				fmt.Printf("RMS err increased from %8.5e to %8.5e at iteration %d, stopping\n", rms0, rms1, f.Iterations)
			}
			rms0 = rms1
			break
		}
		rms0 = rms1
	}
	if f.Output {
		fmt.Printf("Solve time: %4.2fs, (%4.2fs, %4.2fs)\n", (ts + td).Seconds(), ts.Seconds(), td.Seconds())
		if rms0 < 1.e-2 {
			fmt.Printf("RMS err: %4.3e (iterations = %d)\n", rms0, f.Iterations)
		} else {
			fmt.Printf("RMS err: %4.3f (iterations = %d)\n", rms0, f.Iterations)
		}
	}
	return rms0, nil
}

// solveLinear solves A x = b in the least squares sense, either with the
// precomputed pseudo-inverse or LSQR. With WarmStart the solve is for the
// minimum norm correction to x0. Columns of A that are entirely zero are
// left at x0.
func (f *Fit) solveLinear(b, x0 []float64) (x []float64) {
	var (
		rhs = b
		n   = len(f.ParamIDs)
	)
	x = make([]float64, n)
	if f.WarmStart {
		Ax := f.A.MulVec(nil, x0)
		rhs = make([]float64, len(b))
		for i := range b {
			rhs[i] = b[i] - Ax[i]
		}
		copy(x, x0)
	}
	var dx []float64
	if f.svdInvA != nil {
		var v mat.VecDense
		v.MulVec(f.svdInvA, mat.NewVecDense(len(rhs), rhs))
		dx = v.RawVector().Data
	} else {
		f.LastLSQR = utils.LSQR(f.A, rhs, f.LSQR)
		dx = f.LastLSQR.X
	}
	for i := range x {
		if !f.fitted[i] {
			// Unselected components of field selected bindings
			x[i] = x0[i]
			continue
		}
		x[i] += dx[i]
	}
	return
}
