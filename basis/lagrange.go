package basis

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var ErrUnknownBasis = errors.New("unknown basis")

// Lagrange is a nodal basis of order N on the unit interval [0,1]. The nodes
// are the Gauss-Lobatto points, so orders 1 and 2 are equispaced.
type Lagrange struct {
	N     int
	Nodes []float64
	Vinv  *mat.Dense
}

func NewLagrange(N int) (l *Lagrange) {
	if N < 1 {
		panic(fmt.Errorf("lagrange basis order must be at least 1, have %d", N))
	}
	r := JacobiGL(0, 0, N)
	V := Vandermonde1D(N, r)
	l = &Lagrange{N: N, Nodes: make([]float64, N+1), Vinv: mat.NewDense(N+1, N+1, nil)}
	if err := l.Vinv.Inverse(V); err != nil {
		panic(err)
	}
	for i, ri := range r {
		l.Nodes[i] = 0.5 * (ri + 1)
	}
	return
}

func (l *Lagrange) Np() int { return l.N + 1 }

// Weights returns phi_j(xi), the value of each nodal shape function at xi
func (l *Lagrange) Weights(xi float64) (phi []float64) {
	r := []float64{2*xi - 1}
	p := make([]float64, l.N+1)
	for k := range p {
		p[k] = JacobiP(r, 0, 0, k)[0]
	}
	return l.project(p)
}

// Derivatives returns d(phi_j)/d(xi)
func (l *Lagrange) Derivatives(xi float64) (dphi []float64) {
	r := []float64{2*xi - 1}
	dp := make([]float64, l.N+1)
	for k := range dp {
		dp[k] = 2 * GradJacobiP(r, 0, 0, k)[0] // dr/dxi = 2
	}
	return l.project(dp)
}

// phi = Vinv^T p
func (l *Lagrange) project(p []float64) (phi []float64) {
	phi = make([]float64, l.N+1)
	for j := range phi {
		var sum float64
		for k, pk := range p {
			sum += l.Vinv.At(k, j) * pk
		}
		phi[j] = sum
	}
	return
}

// ParseBasis converts a basis label like "L1" or "L3" into its order
func ParseBasis(label string) (order int, err error) {
	if !strings.HasPrefix(label, "L") {
		err = fmt.Errorf("%w: %q", ErrUnknownBasis, label)
		return
	}
	if order, err = strconv.Atoi(label[1:]); err != nil || order < 1 || order > 8 {
		err = fmt.Errorf("%w: %q", ErrUnknownBasis, label)
	}
	return
}

// Tensor is the tensor product of 1D Lagrange bases, one per parametric
// direction. Local node numbering runs fastest in the first direction.
type Tensor struct {
	Labels   []string
	Bases    []*Lagrange
	NumNodes int
}

func NewTensor(labels []string) (t *Tensor, err error) {
	if len(labels) == 0 || len(labels) > 3 {
		err = fmt.Errorf("%w: element basis needs 1 to 3 directions, have %v", ErrUnknownBasis, labels)
		return
	}
	t = &Tensor{Labels: labels, NumNodes: 1}
	for _, label := range labels {
		var order int
		if order, err = ParseBasis(label); err != nil {
			return nil, err
		}
		t.Bases = append(t.Bases, NewLagrange(order))
		t.NumNodes *= order + 1
	}
	return
}

func (t *Tensor) Dims() int { return len(t.Bases) }

// Weights returns the shape function values for each local node at xi
func (t *Tensor) Weights(xi []float64) (w []float64) {
	return t.combine(xi, -1)
}

// Derivatives returns the shape function derivatives along direction dir
func (t *Tensor) Derivatives(xi []float64, dir int) (dw []float64) {
	return t.combine(xi, dir)
}

func (t *Tensor) combine(xi []float64, dir int) (w []float64) {
	if len(xi) != len(t.Bases) {
		panic(fmt.Errorf("xi has %d coordinates, basis %v needs %d", len(xi), t.Labels, len(t.Bases)))
	}
	w = []float64{1}
	// Build up from the slowest direction so the first index runs fastest
	for d := len(t.Bases) - 1; d >= 0; d-- {
		var phi []float64
		if d == dir {
			phi = t.Bases[d].Derivatives(xi[d])
		} else {
			phi = t.Bases[d].Weights(xi[d])
		}
		next := make([]float64, 0, len(w)*len(phi))
		for _, wo := range w {
			for _, p := range phi {
				next = append(next, wo*p)
			}
		}
		w = next
	}
	return
}

// NodeXi is the parametric location of local node i
func (t *Tensor) NodeXi(i int) (xi []float64) {
	xi = make([]float64, len(t.Bases))
	for d, b := range t.Bases {
		xi[d] = b.Nodes[i%b.Np()]
		i /= b.Np()
	}
	return
}
