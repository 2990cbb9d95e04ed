package fit

import (
	"fmt"

	"github.com/notargets/meshfit/utils"
)

// NearestPoint as a data index associates a binding with the data point
// closest to it, re-evaluated every solve iteration
const NearestPoint = -1

// Binding generates one or more rows of the fit's linear system
type Binding interface {
	DataLabel() string
	// DataIndex is the fixed data point row, or NearestPoint
	DataIndex() int
	Weight() float64
	// Resolve caches the parameter indices and weights for the current
	// mesh topology. It must be called again after a topology change.
	Resolve(mesh Mesh) error
	IsResolved() bool
	// RowCount is the number of matrix rows, one per bound field
	RowCount() int
	// FieldID is the data component that matrix row 'row' is fitted to
	FieldID(row int) int
	// RowTerms are the global parameter indices and unweighted coefficients of a row
	RowTerms(row int) (ids []int, weights []float64)
	GlobalIndices() utils.Index
	Invalidate()
}

type bindingBase struct {
	data      string
	dataIndex int
	weight    float64
}

func (b *bindingBase) DataLabel() string { return b.data }
func (b *bindingBase) DataIndex() int    { return b.dataIndex }
func (b *bindingBase) Weight() float64   { return b.weight }

// ElementBinding ties the mesh point at parametric coordinate Xi of an
// element to data, one row per selected coordinate component
type ElementBinding struct {
	bindingBase
	ElementID int
	Xi        []float64
	fields    []int // nil selects every component
	// Resolved state
	paramIDs     [][]int
	paramWeights []float64
	resolved     bool
	// Rows of this binding in its data source's closest point operator
	dataRow int
}

func NewElementBinding(elem int, xi []float64, data string, dataIndex int, fields []int, weight float64) (b *ElementBinding) {
	b = &ElementBinding{
		bindingBase: bindingBase{data: data, dataIndex: dataIndex, weight: weight},
		ElementID:   elem,
		Xi:          append([]float64{}, xi...),
		dataRow:     -1,
	}
	if fields != nil {
		b.fields = append([]int{}, fields...)
	}
	return
}

func (b *ElementBinding) Resolve(mesh Mesh) (err error) {
	var (
		ids [][]int
		w   []float64
	)
	b.resolved = false
	if ids, w, err = mesh.ShapeWeights(b.ElementID, b.Xi); err != nil {
		return fmt.Errorf("element binding %d at %v: %w", b.ElementID, b.Xi, err)
	}
	for _, f := range b.fields {
		if f < 0 || f >= len(ids) {
			return fmt.Errorf("%w: element %d has %d components, field %d selected",
				ErrShapeMismatch, b.ElementID, len(ids), f)
		}
	}
	b.paramIDs, b.paramWeights = ids, w
	b.resolved = true
	return
}

func (b *ElementBinding) IsResolved() bool { return b.resolved }

func (b *ElementBinding) Invalidate() {
	b.resolved = false
	b.paramIDs, b.paramWeights = nil, nil
	b.dataRow = -1
}

func (b *ElementBinding) mustBeResolved() {
	if !b.resolved {
		panic(fmt.Errorf("element %d xi %v: %w", b.ElementID, b.Xi, ErrUnresolvedBinding))
	}
}

// NumComponents is the number of coordinate components the element
// interpolates, independent of the field selection
func (b *ElementBinding) NumComponents() int {
	b.mustBeResolved()
	return len(b.paramIDs)
}

func (b *ElementBinding) Fields() []int {
	if b.fields != nil {
		return b.fields
	}
	if !b.resolved {
		return nil
	}
	return utils.NewRange(0, len(b.paramIDs)-1)
}

func (b *ElementBinding) RowCount() int {
	if b.fields != nil {
		return len(b.fields)
	}
	return b.NumComponents()
}

func (b *ElementBinding) FieldID(row int) int {
	if b.fields != nil {
		return b.fields[row]
	}
	return row
}

func (b *ElementBinding) RowTerms(row int) (ids []int, weights []float64) {
	b.mustBeResolved()
	return b.paramIDs[b.FieldID(row)], b.paramWeights
}

// ComponentTerms are the parameter ids and weights of one coordinate component
func (b *ElementBinding) ComponentTerms(comp int) (ids []int, weights []float64) {
	b.mustBeResolved()
	return b.paramIDs[comp], b.paramWeights
}

func (b *ElementBinding) GlobalIndices() (I utils.Index) {
	b.mustBeResolved()
	for _, ids := range b.paramIDs {
		I = append(I, ids...)
	}
	return
}

// NodeBinding ties a single node field component, a single mesh parameter,
// to one data value
type NodeBinding struct {
	bindingBase
	NodeID, Field, Component int
	paramID                  int
	resolved                 bool
}

func NewNodeBinding(node, field, comp int, data string, dataIndex int, weight float64) *NodeBinding {
	return &NodeBinding{
		bindingBase: bindingBase{data: data, dataIndex: dataIndex, weight: weight},
		NodeID:      node,
		Field:       field,
		Component:   comp,
		paramID:     -1,
	}
}

func (b *NodeBinding) Resolve(mesh Mesh) (err error) {
	b.resolved = false
	if b.paramID, err = mesh.NodeParameterIndex(b.NodeID, b.Field, b.Component); err != nil {
		return fmt.Errorf("node binding %d/%d/%d: %w", b.NodeID, b.Field, b.Component, err)
	}
	b.resolved = true
	return
}

func (b *NodeBinding) IsResolved() bool { return b.resolved }

func (b *NodeBinding) Invalidate() {
	b.resolved = false
	b.paramID = -1
}

func (b *NodeBinding) RowCount() int { return 1 }

// FieldID is the component, which selects the data column for multi
// component data
func (b *NodeBinding) FieldID(int) int { return b.Component }

func (b *NodeBinding) RowTerms(int) (ids []int, weights []float64) {
	if !b.resolved {
		panic(fmt.Errorf("node %d field %d component %d: %w", b.NodeID, b.Field, b.Component, ErrUnresolvedBinding))
	}
	return []int{b.paramID}, []float64{1}
}

func (b *NodeBinding) GlobalIndices() utils.Index {
	ids, _ := b.RowTerms(0)
	return ids
}
