package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// DOK is the assembly format: entries accumulate in a map and the finished
// matrix is compressed with ToCSC or ToCSR
type DOK struct {
	M        *sparse.DOK
	nr, nc   int
	readOnly bool
	name     string
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		nr:   nr,
		nc:   nc,
		name: "unnamed - hint: pass a variable name to SetReadOnly()",
	}
	if nr > 0 && nc > 0 {
		R.M = sparse.NewDOK(nr, nc)
	}
	return
}

func (m DOK) Dims() (r, c int) { return m.nr, m.nc }
func (m DOK) At(i, j int) float64 {
	if m.M == nil {
		panic(fmt.Errorf("index out of range for empty matrix \"%v\": (%d,%d)", m.name, i, j))
	}
	return m.M.At(i, j)
}

func (m DOK) SetReadOnly(name ...string) DOK {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return m
}

// AddAt accumulates val into (i,j), A[i,j] += val
func (m DOK) AddAt(i, j int, val float64) {
	m.checkWritable()
	if i < 0 || i >= m.nr || j < 0 || j >= m.nc {
		panic(fmt.Errorf("index out of range for matrix \"%v\" of dims (%d,%d): (%d,%d)", m.name, m.nr, m.nc, i, j))
	}
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m DOK) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

func (m DOK) ToCSC() CSC {
	R := CSC{nr: m.nr, nc: m.nc, name: m.name}
	if m.M != nil {
		R.M = m.M.ToCSC()
	}
	return R
}

func (m DOK) ToCSR() CSR {
	R := CSR{nr: m.nr, nc: m.nc, name: m.name}
	if m.M != nil {
		R.M = m.M.ToCSR()
	}
	return R
}

// CSC is the solve format for the fit design matrix, column access is cheap
// for A^T y products and column scaling
type CSC struct {
	M      *sparse.CSC
	nr, nc int
	name   string
}

func (m CSC) Dims() (r, c int) { return m.nr, m.nc }
func (m CSC) At(i, j int) float64 {
	if m.M == nil {
		return 0
	}
	return m.M.At(i, j)
}

func (m CSC) NNZ() int {
	if m.M == nil {
		return 0
	}
	return len(m.M.RawMatrix().Data)
}

// MulVec computes dst = A x, allocating dst when nil
func (m CSC) MulVec(dst, x []float64) []float64 {
	dst = zeroed(dst, m.nr)
	if m.M == nil {
		return dst
	}
	raw := m.M.RawMatrix()
	for j := 0; j < m.nc; j++ {
		xj := x[j]
		if xj == 0 {
			continue
		}
		for k := raw.Indptr[j]; k < raw.Indptr[j+1]; k++ {
			dst[raw.Ind[k]] += raw.Data[k] * xj
		}
	}
	return dst
}

// MulTransVec computes dst = A^T y, allocating dst when nil
func (m CSC) MulTransVec(dst, y []float64) []float64 {
	dst = zeroed(dst, m.nc)
	if m.M == nil {
		return dst
	}
	raw := m.M.RawMatrix()
	for j := 0; j < m.nc; j++ {
		var sum float64
		for k := raw.Indptr[j]; k < raw.Indptr[j+1]; k++ {
			sum += raw.Data[k] * y[raw.Ind[k]]
		}
		dst[j] = sum
	}
	return dst
}

func (m CSC) ToDense() (A *mat.Dense) {
	if m.nr == 0 || m.nc == 0 {
		return &mat.Dense{}
	}
	A = mat.NewDense(m.nr, m.nc, nil)
	if m.M == nil {
		return
	}
	raw := m.M.RawMatrix()
	for j := 0; j < m.nc; j++ {
		for k := raw.Indptr[j]; k < raw.Indptr[j+1]; k++ {
			A.Set(raw.Ind[k], j, A.At(raw.Ind[k], j)+raw.Data[k])
		}
	}
	return
}

// CSR holds row restricted operators, e.g. the per data source map from
// fit columns to mesh implied point coordinates
type CSR struct {
	M      *sparse.CSR
	nr, nc int
	name   string
}

func (m CSR) Dims() (r, c int) { return m.nr, m.nc }
func (m CSR) At(i, j int) float64 {
	if m.M == nil {
		return 0
	}
	return m.M.At(i, j)
}

// MulVec computes dst = A x, allocating dst when nil
func (m CSR) MulVec(dst, x []float64) []float64 {
	dst = zeroed(dst, m.nr)
	if m.M == nil {
		return dst
	}
	raw := m.M.RawMatrix()
	for i := 0; i < m.nr; i++ {
		var sum float64
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			sum += raw.Data[k] * x[raw.Ind[k]]
		}
		dst[i] = sum
	}
	return dst
}

func zeroed(dst []float64, n int) []float64 {
	if len(dst) != n {
		return make([]float64, n)
	}
	for i := range dst {
		dst[i] = 0
	}
	return dst
}
