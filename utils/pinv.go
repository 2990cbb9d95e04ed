package utils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// PseudoInverse returns the Moore-Penrose inverse of A from a thin SVD,
// singular values below rcond*max(s) are treated as zero. Rank is the number
// of singular values retained.
func PseudoInverse(A mat.Matrix, rcond float64) (Ainv *mat.Dense, rank int, err error) {
	var (
		nr, nc = A.Dims()
		svd    mat.SVD
		U, V   mat.Dense
	)
	if nr == 0 || nc == 0 {
		return &mat.Dense{}, 0, nil
	}
	if rcond <= 0 {
		rcond = 1.e-12
	}
	if ok := svd.Factorize(A, mat.SVDThin); !ok {
		err = fmt.Errorf("singular value decomposition failed to converge for %d x %d matrix", nr, nc)
		return
	}
	s := svd.Values(nil)
	svd.UTo(&U)
	svd.VTo(&V)
	cutoff := rcond * s[0]
	// Ainv = V * diag(1/s) * U^T, scaling the columns of V in place
	for j, sv := range s {
		scale := 0.
		if sv > cutoff {
			scale = 1. / sv
			rank++
		}
		for i := 0; i < nc; i++ {
			V.Set(i, j, V.At(i, j)*scale)
		}
	}
	Ainv = mat.NewDense(nc, nr, nil)
	Ainv.Mul(&V, U.T())
	return
}
