package utils

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// LinearOperator is the matrix free view LSQR needs of A
type LinearOperator interface {
	Dims() (r, c int)
	MulVec(dst, x []float64) []float64
	MulTransVec(dst, y []float64) []float64
}

type LSQRSettings struct {
	Atol, Btol float64 // Relative error tolerances on A and b
	Conlim     float64 // Stop when the estimated condition number exceeds this
	IterLim    int     // Defaults to 2*ncols, never below 20
}

type LSQRStop uint8

const (
	LSQRZeroSolution    LSQRStop = iota // x = 0 is the exact solution
	LSQRConsistent                      // A x = b solved to Atol/Btol
	LSQRLeastSquares                    // least squares solution to Atol
	LSQRConditionLimit                  // condition estimate exceeded Conlim
	LSQRConsistentEps                   // A x = b solved to machine precision
	LSQRLeastSquaresEps                 // least squares solution to machine precision
	LSQRConditionEps                    // condition estimate exceeded 1/eps
	LSQRIterationLimit
)

var lsqrStopNames = []string{
	"x = 0 is a solution",
	"Ax - b is small enough, given atol, btol",
	"the least-squares solution is good enough, given atol",
	"the estimate of cond(A) has exceeded conlim",
	"Ax - b is small enough for this machine",
	"the least-squares solution is good enough for this machine",
	"cond(A) seems to be too large for this machine",
	"the iteration limit has been reached",
}

func (s LSQRStop) Print() string { return lsqrStopNames[s] }

type LSQRResult struct {
	X          []float64
	Stop       LSQRStop
	Iterations int
	RNorm      float64 // ||b - Ax||
	ARNorm     float64 // ||A^T (b - Ax)||
	ANorm      float64 // Frobenius norm estimate of A
	ACond      float64 // Condition number estimate of A
	XNorm      float64
}

// LSQR finds the minimum norm x minimizing ||A x - b||, following Paige and
// Saunders (ACM TOMS 8, 1982). A rank deficient A yields the minimum norm
// least squares solution, there is no failure mode.
func LSQR(A LinearOperator, b []float64, s LSQRSettings) (r LSQRResult) {
	var (
		m, n = A.Dims()
		eps  = math.Nextafter(1, 2) - 1
	)
	if s.Atol == 0 {
		s.Atol = 1.e-10
	}
	if s.Btol == 0 {
		s.Btol = 1.e-10
	}
	if s.Conlim == 0 {
		s.Conlim = 1.e8
	}
	if s.IterLim == 0 {
		s.IterLim = 2 * n
		if s.IterLim < 20 {
			s.IterLim = 20
		}
	}
	r.X = make([]float64, n)
	if m == 0 || n == 0 {
		return
	}
	var (
		u       = make([]float64, m)
		v       = make([]float64, n)
		w       = make([]float64, n)
		tmpM    = make([]float64, m)
		tmpN    = make([]float64, n)
		x       = r.X
		ctol    = 1. / s.Conlim
		alpha   float64
		beta    float64
		bnorm   float64
		anorm   float64
		acond   float64
		ddnorm  float64
		xxnorm  float64
		xnorm   float64
		z       float64
		cs2     = -1.
		sn2     = 0.
		rnorm   float64
		arnorm  float64
		rhobar  float64
		phibar  float64
		itn     int
		istop   LSQRStop
		stopped bool
	)
	copy(u, b)
	bnorm = floats.Norm(u, 2)
	beta = bnorm
	if beta > 0 {
		floats.Scale(1/beta, u)
		A.MulTransVec(v, u)
		alpha = floats.Norm(v, 2)
	}
	if alpha > 0 {
		floats.Scale(1/alpha, v)
	}
	copy(w, v)
	rhobar, phibar = alpha, beta
	rnorm = beta
	arnorm = alpha * beta
	if arnorm == 0 {
		r.Stop, r.RNorm = LSQRZeroSolution, rnorm
		return
	}

	for itn < s.IterLim {
		itn++
		// Continue the bidiagonalization
		A.MulVec(tmpM, v)
		for i := range u {
			u[i] = tmpM[i] - alpha*u[i]
		}
		beta = floats.Norm(u, 2)
		if beta > 0 {
			floats.Scale(1/beta, u)
			anorm = math.Sqrt(anorm*anorm + alpha*alpha + beta*beta)
			A.MulTransVec(tmpN, u)
			for i := range v {
				v[i] = tmpN[i] - beta*v[i]
			}
			alpha = floats.Norm(v, 2)
			if alpha > 0 {
				floats.Scale(1/alpha, v)
			}
		}

		// Plane rotation to eliminate the subdiagonal of the lower bidiagonal
		rho := math.Hypot(rhobar, beta)
		cs := rhobar / rho
		sn := beta / rho
		theta := sn * alpha
		rhobar = -cs * alpha
		phi := cs * phibar
		phibar = sn * phibar
		tau := sn * phi

		// Update x and w
		t1 := phi / rho
		t2 := -theta / rho
		var dknorm float64
		for i := range w {
			dk := w[i] / rho
			dknorm += dk * dk
			x[i] += t1 * w[i]
			w[i] = v[i] + t2*w[i]
		}
		ddnorm += dknorm

		// Estimate ||x|| using a second plane rotation
		delta := sn2 * rho
		gambar := -cs2 * rho
		rhs := phi - delta*z
		zbar := rhs / gambar
		xnorm = math.Sqrt(xxnorm + zbar*zbar)
		gamma := math.Hypot(gambar, theta)
		cs2 = gambar / gamma
		sn2 = theta / gamma
		z = rhs / gamma
		xxnorm += z * z

		acond = anorm * math.Sqrt(ddnorm)
		rnorm = phibar
		arnorm = alpha * math.Abs(tau)

		var (
			test1 = rnorm / bnorm
			test2 = arnorm / (anorm*rnorm + eps)
			test3 = 1. / (acond + eps)
			t1x   = test1 / (1 + anorm*xnorm/bnorm)
			rtol  = s.Btol + s.Atol*anorm*xnorm/bnorm
		)
		switch {
		case test1 <= rtol:
			istop, stopped = LSQRConsistent, true
		case test2 <= s.Atol:
			istop, stopped = LSQRLeastSquares, true
		case test3 <= ctol:
			istop, stopped = LSQRConditionLimit, true
		case 1+t1x <= 1:
			istop, stopped = LSQRConsistentEps, true
		case 1+test2 <= 1:
			istop, stopped = LSQRLeastSquaresEps, true
		case 1+test3 <= 1:
			istop, stopped = LSQRConditionEps, true
		case itn >= s.IterLim:
			istop, stopped = LSQRIterationLimit, true
		}
		if stopped {
			break
		}
	}
	r.Stop = istop
	r.Iterations = itn
	r.RNorm = rnorm
	r.ARNorm = arnorm
	r.ANorm = anorm
	r.ACond = acond
	r.XNorm = xnorm
	return
}
