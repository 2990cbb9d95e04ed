package mesh

import (
	"errors"
	"fmt"
	"sort"

	"github.com/notargets/meshfit/basis"
	"github.com/notargets/meshfit/utils"
)

var (
	ErrUnknownNode    = errors.New("unknown node")
	ErrUnknownElement = errors.New("unknown element")
	ErrBadXi          = errors.New("parametric coordinate has wrong dimension")
	ErrNotGenerated   = errors.New("mesh has not been generated")
)

// Node holds the global parameter offsets of each field component. Field 0
// is the coordinate field, further fields are optional (e.g. derivatives).
type Node struct {
	ID     int
	Values [][]float64 // initial values, [field][component]
	Params [][]int     // global parameter indices, [field][component]
}

type Element struct {
	ID    int
	Basis *basis.Tensor
	Nodes []int
}

// Mesh is a nodal Lagrange mesh whose geometry is the parameter vector P.
// Only the coordinate field (field 0) of each node is interpolated over
// elements.
type Mesh struct {
	Label     string
	Dims      int // components of the coordinate field
	P         []float64
	nodes     map[int]*Node
	nodeIDs   []int
	elements  map[int]*Element
	elemIDs   []int
	fixed     map[int]bool
	generated bool
}

func NewMesh(label string, dims int) (m *Mesh) {
	return &Mesh{
		Label:    label,
		Dims:     dims,
		nodes:    make(map[int]*Node),
		elements: make(map[int]*Element),
		fixed:    make(map[int]bool),
	}
}

// AddNode registers a node with its field values. The first field must
// have Dims components.
func (m *Mesh) AddNode(id int, fields ...[]float64) (err error) {
	if _, present := m.nodes[id]; present {
		return fmt.Errorf("node %d already exists", id)
	}
	if len(fields) == 0 || len(fields[0]) != m.Dims {
		return fmt.Errorf("node %d coordinate field must have %d components", id, m.Dims)
	}
	nd := &Node{ID: id}
	for _, f := range fields {
		nd.Values = append(nd.Values, append([]float64{}, f...))
	}
	m.nodes[id] = nd
	m.nodeIDs = append(m.nodeIDs, id)
	m.generated = false
	return
}

func (m *Mesh) AddElement(id int, basisLabels []string, nodeIDs []int) (err error) {
	if _, present := m.elements[id]; present {
		return fmt.Errorf("element %d already exists", id)
	}
	var t *basis.Tensor
	if t, err = basis.NewTensor(basisLabels); err != nil {
		return
	}
	if len(nodeIDs) != t.NumNodes {
		return fmt.Errorf("element %d basis %v needs %d nodes, have %d", id, basisLabels, t.NumNodes, len(nodeIDs))
	}
	m.elements[id] = &Element{ID: id, Basis: t, Nodes: append([]int{}, nodeIDs...)}
	m.elemIDs = append(m.elemIDs, id)
	m.generated = false
	return
}

// Generate assigns global parameter indices to every node field component
// in node insertion order and loads the initial values into P
func (m *Mesh) Generate() (err error) {
	for _, eid := range m.elemIDs {
		for _, nid := range m.elements[eid].Nodes {
			if _, ok := m.nodes[nid]; !ok {
				return fmt.Errorf("element %d: %w %d", eid, ErrUnknownNode, nid)
			}
		}
	}
	var P []float64
	for _, nid := range m.nodeIDs {
		nd := m.nodes[nid]
		nd.Params = make([][]int, len(nd.Values))
		for f, vals := range nd.Values {
			nd.Params[f] = utils.NewRange(len(P), len(P)+len(vals)-1)
			P = append(P, vals...)
		}
	}
	m.P = P
	m.generated = true
	return
}

func (m *Mesh) IsGenerated() bool { return m.generated }

func (m *Mesh) NumParameters() int { return len(m.P) }

func (m *Mesh) NodeIDs() []int { return append([]int{}, m.nodeIDs...) }

func (m *Mesh) ElementIDs() []int { return append([]int{}, m.elemIDs...) }

func (m *Mesh) Element(id int) (el *Element, err error) {
	var ok bool
	if !m.generated {
		return nil, ErrNotGenerated
	}
	if el, ok = m.elements[id]; !ok {
		err = fmt.Errorf("%w %d", ErrUnknownElement, id)
	}
	return
}

func (m *Mesh) node(id int) (nd *Node, err error) {
	var ok bool
	if !m.generated {
		return nil, ErrNotGenerated
	}
	if nd, ok = m.nodes[id]; !ok {
		err = fmt.Errorf("%w %d", ErrUnknownNode, id)
	}
	return
}

func (m *Mesh) ElementDims(id int) (dims int, err error) {
	var el *Element
	if el, err = m.Element(id); err != nil {
		return
	}
	return el.Basis.Dims(), nil
}

func (m *Mesh) ParameterSubvector(ids []int) []float64 {
	return utils.Index(ids).Gather(m.P)
}

func (m *Mesh) SetParameterSubvector(ids []int, vals []float64) error {
	return utils.Index(ids).Scatter(m.P, vals)
}

// NodeParameterIndex returns the global parameter index of one node field component
func (m *Mesh) NodeParameterIndex(node, field, comp int) (ind int, err error) {
	var nd *Node
	if nd, err = m.node(node); err != nil {
		return
	}
	if field < 0 || field >= len(nd.Params) || comp < 0 || comp >= len(nd.Params[field]) {
		err = fmt.Errorf("node %d has no field %d component %d", node, field, comp)
		return
	}
	return nd.Params[field][comp], nil
}

// NodeValues returns the current values of a node field
func (m *Mesh) NodeValues(node, field int) (vals []float64, err error) {
	var nd *Node
	if nd, err = m.node(node); err != nil {
		return
	}
	if field < 0 || field >= len(nd.Params) {
		err = fmt.Errorf("node %d has no field %d", node, field)
		return
	}
	return m.ParameterSubvector(nd.Params[field]), nil
}

// ShapeWeights returns, for each coordinate component, the global parameter
// indices the element interpolates at xi, and the shared shape function
// weights applied to them
func (m *Mesh) ShapeWeights(elem int, xi []float64) (ids [][]int, weights []float64, err error) {
	var el *Element
	if el, err = m.Element(elem); err != nil {
		return
	}
	if len(xi) != el.Basis.Dims() {
		err = fmt.Errorf("%w: element %d needs %d, have %d", ErrBadXi, elem, el.Basis.Dims(), len(xi))
		return
	}
	ids = make([][]int, m.Dims)
	for c := range ids {
		ids[c] = make([]int, len(el.Nodes))
		for i, nid := range el.Nodes {
			ids[c][i] = m.nodes[nid].Params[0][c]
		}
	}
	weights = el.Basis.Weights(xi)
	return
}

// EvaluateElement returns the world position of parametric point xi
func (m *Mesh) EvaluateElement(elem int, xi []float64) (x []float64, err error) {
	var (
		ids [][]int
		w   []float64
	)
	if ids, w, err = m.ShapeWeights(elem, xi); err != nil {
		return
	}
	x = make([]float64, m.Dims)
	for c := range x {
		for i, pid := range ids[c] {
			x[c] += w[i] * m.P[pid]
		}
	}
	return
}

// EvaluateDerivative returns dx/dxi along parametric direction dir
func (m *Mesh) EvaluateDerivative(elem int, xi []float64, dir int) (dx []float64, err error) {
	var el *Element
	if el, err = m.Element(elem); err != nil {
		return
	}
	if len(xi) != el.Basis.Dims() || dir < 0 || dir >= el.Basis.Dims() {
		err = fmt.Errorf("%w: element %d, direction %d", ErrBadXi, elem, dir)
		return
	}
	dw := el.Basis.Derivatives(xi, dir)
	dx = make([]float64, m.Dims)
	for c := range dx {
		for i, nid := range el.Nodes {
			dx[c] += dw[i] * m.P[m.nodes[nid].Params[0][c]]
		}
	}
	return
}

// FixNode removes every parameter of a node field from the free variables
func (m *Mesh) FixNode(node, field int) (err error) {
	var nd *Node
	if nd, err = m.node(node); err != nil {
		return
	}
	if field < 0 || field >= len(nd.Params) {
		return fmt.Errorf("node %d has no field %d", node, field)
	}
	for _, pid := range nd.Params[field] {
		m.fixed[pid] = true
	}
	return
}

// NodeFixed reports whether every parameter of a node field is fixed
func (m *Mesh) NodeFixed(node, field int) (fixed bool, err error) {
	var nd *Node
	if nd, err = m.node(node); err != nil {
		return
	}
	if field < 0 || field >= len(nd.Params) {
		return false, fmt.Errorf("node %d has no field %d", node, field)
	}
	for _, pid := range nd.Params[field] {
		if !m.fixed[pid] {
			return false, nil
		}
	}
	return true, nil
}

func (m *Mesh) FixParameter(pid int) {
	m.fixed[pid] = true
}

// FreeParameters lists the non-fixed global parameter indices, ascending
func (m *Mesh) FreeParameters() (ids utils.Index) {
	for pid := range m.P {
		if !m.fixed[pid] {
			ids = append(ids, pid)
		}
	}
	return
}

// FixedParameters lists the fixed global parameter indices, ascending
func (m *Mesh) FixedParameters() (ids utils.Index) {
	for pid := range m.fixed {
		ids = append(ids, pid)
	}
	sort.Ints(ids)
	return
}

// Variables returns the free parameters, the vector a nonlinear fit varies
func (m *Mesh) Variables() []float64 {
	return m.FreeParameters().Gather(m.P)
}

func (m *Mesh) SetVariables(x []float64) error {
	return m.FreeParameters().Scatter(m.P, x)
}
