package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	projectMaxIter = 25
	projectTol     = 1.e-12
)

// ProjectElement returns the parametric coordinate of the point on the
// infinite extension of 1D element elem closest to x. The result is not
// clamped to [0,1], callers decide what an out of range projection means.
func (m *Mesh) ProjectElement(elem int, x []float64) (xi float64, err error) {
	var (
		el     *Element
		x0, x1 []float64
	)
	if el, err = m.Element(elem); err != nil {
		return
	}
	if el.Basis.Dims() != 1 {
		err = fmt.Errorf("%w: projection needs a 1D element, element %d has %d directions", ErrBadXi, elem, el.Basis.Dims())
		return
	}
	if len(x) != m.Dims {
		err = fmt.Errorf("point has %d components, mesh has %d", len(x), m.Dims)
		return
	}
	if x0, err = m.EvaluateElement(elem, []float64{0}); err != nil {
		return
	}
	if x1, err = m.EvaluateElement(elem, []float64{1}); err != nil {
		return
	}
	// Chord projection, exact for linear elements
	chord := make([]float64, m.Dims)
	floats.SubTo(chord, x1, x0)
	rel := make([]float64, m.Dims)
	floats.SubTo(rel, x, x0)
	cc := floats.Dot(chord, chord)
	if cc == 0 {
		return 0, nil
	}
	xi = floats.Dot(rel, chord) / cc
	if el.Basis.Bases[0].N == 1 {
		return
	}
	// Gauss-Newton refinement of (X(xi) - x) . X'(xi) = 0 for curved elements
	for iter := 0; iter < projectMaxIter; iter++ {
		var xe, dxe []float64
		if xe, err = m.EvaluateElement(elem, []float64{xi}); err != nil {
			return
		}
		if dxe, err = m.EvaluateDerivative(elem, []float64{xi}, 0); err != nil {
			return
		}
		floats.Sub(xe, x)
		den := floats.Dot(dxe, dxe)
		if den == 0 {
			return
		}
		step := floats.Dot(xe, dxe) / den
		xi -= step
		if math.Abs(step) < projectTol {
			return
		}
	}
	return
}
