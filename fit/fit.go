package fit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/meshfit/utils"
)

type SolverType uint8

const (
	SolverLSQR SolverType = iota
	SolverSVD
)

var SolverNames = map[string]SolverType{
	"lsqr": SolverLSQR,
	"svd":  SolverSVD,
}

func (s SolverType) Print() string {
	for name, st := range SolverNames {
		if st == s {
			return name
		}
	}
	return "unknown"
}

func NewSolverType(label string) (s SolverType, err error) {
	var ok bool
	if s, ok = SolverNames[label]; !ok {
		err = fmt.Errorf("%w: solver %q", ErrUnknownMethod, label)
	}
	return
}

// RowRef locates the binding and data field a matrix row was generated from
type RowRef struct {
	Binding int
	Field   int
}

// Fit assembles bindings between a mesh and data sources into a sparse
// weighted least squares system and iterates it to convergence
type Fit struct {
	Output    bool               // Print timing and convergence
	WarmStart bool               // Solve for a correction to the current parameters
	LSQR      utils.LSQRSettings // Iterative solver tolerances
	RCond     float64            // Relative singular value cutoff for InvertMatrix

	bindings     []Binding
	data         map[string]*DataSource
	dataOrder    []string
	labelCounter int

	A         utils.CSC   // Design matrix, rows x ParamIDs
	W         []float64   // Row weights
	ParamIDs  utils.Index // Global parameter index of each column
	colIndex  map[int]int
	fitted    []bool // Columns with a nonzero entry in A
	rowMap    []RowRef
	numRows   int
	generated bool
	svdInvA   *mat.Dense

	Iterations int       // Iterations taken by the last Solve
	RMSHistory []float64 // RMS error before the first and after each iteration
	LastLSQR   utils.LSQRResult
}

func NewFit() *Fit {
	return &Fit{
		WarmStart: true,
		data:      make(map[string]*DataSource),
	}
}

// SetData registers a point cloud under label
func (f *Fit) SetData(label string, points [][]float64) (err error) {
	var d *DataSource
	if d, err = NewDataSource(label, points); err != nil {
		return
	}
	return f.addSource(d)
}

// SetScalarData registers a constant under label
func (f *Fit) SetScalarData(label string, value float64) error {
	return f.addSource(NewScalarDataSource(label, value))
}

func (f *Fit) addSource(d *DataSource) error {
	if _, present := f.data[d.Label]; present {
		return fmt.Errorf("%w: %q", ErrDuplicateDataSource, d.Label)
	}
	f.data[d.Label] = d
	f.dataOrder = append(f.dataOrder, d.Label)
	f.generated = false
	return nil
}

func (f *Fit) Data(label string) (d *DataSource, err error) {
	var ok bool
	if d, ok = f.data[label]; !ok {
		err = fmt.Errorf("%w: %q", ErrUnknownDataSource, label)
	}
	return
}

func (f *Fit) DataLabels() []string { return append([]string{}, f.dataOrder...) }

// DeleteAllData removes every data source, bindings are kept
func (f *Fit) DeleteAllData() {
	f.data = make(map[string]*DataSource)
	f.dataOrder = nil
	f.generated = false
}

// Clear removes all bindings and data
func (f *Fit) Clear() {
	f.bindings = nil
	f.DeleteAllData()
	f.A, f.W, f.ParamIDs, f.rowMap, f.numRows = utils.CSC{}, nil, nil, nil, 0
	f.fitted = nil
	f.svdInvA = nil
}

// anonymousLabel generates a deterministic, unused data label
func (f *Fit) anonymousLabel(prefix string) (label string) {
	for {
		f.labelCounter++
		label = fmt.Sprintf("_%s_%d", prefix, f.labelCounter)
		if _, present := f.data[label]; !present {
			return
		}
	}
}

func (f *Fit) Bindings() []Binding { return f.bindings }

// AddBinding appends a binding, validating its data association
func (f *Fit) AddBinding(b Binding) (err error) {
	var d *DataSource
	if d, err = f.Data(b.DataLabel()); err != nil {
		return
	}
	if err = d.checkIndex(b.DataIndex()); err != nil {
		return
	}
	switch bb := b.(type) {
	case *ElementBinding:
		if len(bb.Xi) < 1 || len(bb.Xi) > 3 {
			return fmt.Errorf("%w: element %d xi %v must have 1 to 3 coordinates", ErrShapeMismatch, bb.ElementID, bb.Xi)
		}
		for _, fld := range bb.fields {
			if _, err = d.column(fld); err != nil {
				return
			}
		}
	case *NodeBinding:
		if _, err = d.column(bb.Component); err != nil {
			return
		}
	}
	f.bindings = append(f.bindings, b)
	f.generated = false
	return
}

// AddElementBinding binds the point xi of element elem to data label. Use
// NearestPoint as dataIndex for closest point association and nil fields
// to bind every coordinate component.
func (f *Fit) AddElementBinding(elem int, xi []float64, label string, dataIndex int, fields []int, weight float64) error {
	return f.AddBinding(NewElementBinding(elem, xi, label, dataIndex, fields, weight))
}

// BindElementPoint binds the point xi of element elem to its own anonymous
// data source built from points, returning the generated label
func (f *Fit) BindElementPoint(elem int, xi []float64, points [][]float64, dataIndex int, fields []int, weight float64) (label string, err error) {
	label = f.anonymousLabel(fmt.Sprintf("%d", elem))
	if err = f.SetData(label, points); err != nil {
		return
	}
	err = f.AddElementBinding(elem, xi, label, dataIndex, fields, weight)
	return
}

// AddNodeBinding binds one node field component to data label
func (f *Fit) AddNodeBinding(node, field, comp int, label string, dataIndex int, weight float64) error {
	return f.AddBinding(NewNodeBinding(node, field, comp, label, dataIndex, weight))
}

// BindNodeValue binds the same field component of each node to an
// anonymous constant, returning the generated label
func (f *Fit) BindNodeValue(nodes []int, field, comp int, value float64, weight float64) (label string, err error) {
	if len(nodes) == 0 {
		return "", fmt.Errorf("bind node value: %w", ErrNoNodes)
	}
	label = f.anonymousLabel(fmt.Sprintf("%d_%d_%d", nodes[0], field, comp))
	if err = f.SetScalarData(label, value); err != nil {
		return
	}
	for _, nid := range nodes {
		if err = f.AddNodeBinding(nid, field, comp, label, NearestPoint, weight); err != nil {
			return
		}
	}
	return
}

func (f *Fit) NumRows() int { return f.numRows }
func (f *Fit) NumDOF() int  { return len(f.ParamIDs) }

// RowMap returns the binding and data field of each matrix row
func (f *Fit) RowMap() []RowRef { return f.rowMap }

// UpdateFromMesh resolves every binding against the mesh topology, then
// regenerates the design matrix and the closest point operators
func (f *Fit) UpdateFromMesh(mesh Mesh) (err error) {
	for i, b := range f.bindings {
		if err = b.Resolve(mesh); err != nil {
			return fmt.Errorf("binding %d: %w", i, err)
		}
	}
	if err = f.GenerateMatrix(); err != nil {
		return
	}
	return f.GenerateFastData()
}

// GenerateMatrix assembles the weighted design matrix over the sorted,
// de-duplicated set of parameters the bindings reference
func (f *Fit) GenerateMatrix() (err error) {
	var pids utils.Index
	f.generated = false
	f.svdInvA = nil
	f.numRows = 0
	for i, b := range f.bindings {
		if !b.IsResolved() {
			return fmt.Errorf("binding %d: %w", i, ErrUnresolvedBinding)
		}
		f.numRows += b.RowCount()
		pids = append(pids, b.GlobalIndices()...)
	}
	f.ParamIDs = pids.SortedUnique()
	f.colIndex = f.ParamIDs.Lookup()
	f.W = utils.ConstArray(f.numRows, 1)
	f.rowMap = make([]RowRef, 0, f.numRows)

	A := utils.NewDOK(f.numRows, len(f.ParamIDs))
	f.fitted = make([]bool, len(f.ParamIDs))
	var row int
	for bi, b := range f.bindings {
		bw := b.Weight()
		d := f.data[b.DataLabel()]
		if d == nil {
			return fmt.Errorf("binding %d: %w: %q", bi, ErrUnknownDataSource, b.DataLabel())
		}
		for r := 0; r < b.RowCount(); r++ {
			if _, err = d.column(b.FieldID(r)); err != nil {
				return fmt.Errorf("binding %d: %w", bi, err)
			}
			ids, weights := b.RowTerms(r)
			for i, pid := range ids {
				if w := weights[i] * bw; w != 0 {
					A.AddAt(row, f.colIndex[pid], w)
					f.fitted[f.colIndex[pid]] = true
				}
			}
			f.W[row] = bw
			f.rowMap = append(f.rowMap, RowRef{Binding: bi, Field: b.FieldID(r)})
			row++
		}
	}
	f.A = A.SetReadOnly("A").ToCSC()
	f.generated = true
	return
}

// GenerateFastData builds, for every indexed data source, the operator from
// fit columns to the mesh points of its closest point element bindings
func (f *Fit) GenerateFastData() (err error) {
	if !f.generated {
		return fmt.Errorf("generate fast data: %w, call GenerateMatrix first", ErrUnresolvedBinding)
	}
	numRows := make(map[string]int)
	for _, b := range f.bindings {
		if eb, ok := b.(*ElementBinding); ok && eb.DataIndex() == NearestPoint {
			numRows[eb.DataLabel()] += eb.NumComponents()
		}
	}
	for _, label := range f.dataOrder {
		d := f.data[label]
		d.resetPhi()
		if d.IsIndexed() && numRows[label] > 0 {
			d.initPhi(numRows[label], len(f.ParamIDs))
		}
	}
	for _, b := range f.bindings {
		eb, ok := b.(*ElementBinding)
		if !ok || eb.DataIndex() != NearestPoint {
			continue
		}
		eb.dataRow = -1
		d := f.data[eb.DataLabel()]
		if d == nil {
			return fmt.Errorf("%w: %q", ErrUnknownDataSource, eb.DataLabel())
		}
		if !d.IsIndexed() {
			continue
		}
		if err = d.addBinding(eb, f.colIndex); err != nil {
			return
		}
	}
	for _, label := range f.dataOrder {
		if d := f.data[label]; d.HasAssociations() {
			d.finalizePhi()
		}
	}
	return
}

// InvertMatrix precomputes the pseudo-inverse of A, so later solves on the
// same topology are a single matrix vector product. Regenerating the matrix
// discards it.
func (f *Fit) InvertMatrix() (err error) {
	var rank int
	if !f.generated {
		return fmt.Errorf("invert matrix: %w", ErrUnresolvedBinding)
	}
	if f.svdInvA, rank, err = utils.PseudoInverse(f.A.ToDense(), f.RCond); err != nil {
		f.svdInvA = nil
		return
	}
	if f.Output {
		fmt.Printf("Pseudo-inverse of %d x %d design matrix, rank %d\n", f.numRows, len(f.ParamIDs), rank)
	}
	return
}

func (f *Fit) IsInverted() bool { return f.svdInvA != nil }

// Solver reports which linear solve the next Solve will use
func (f *Fit) Solver() SolverType {
	if f.svdInvA != nil {
		return SolverSVD
	}
	return SolverLSQR
}

// rowValues returns the target value of every row, unweighted
func (f *Fit) rowValues(mesh Mesh) (Xd []float64, err error) {
	Xd = make([]float64, f.numRows)
	for r, ref := range f.rowMap {
		if Xd[r], err = f.rowValue(f.bindings[ref.Binding], ref.Field, mesh); err != nil {
			return
		}
	}
	return
}

func (f *Fit) rowValue(b Binding, field int, mesh Mesh) (val float64, err error) {
	d := f.data[b.DataLabel()]
	if d == nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDataSource, b.DataLabel())
	}
	if b.DataIndex() != NearestPoint || !d.IsIndexed() {
		return d.Value(b.DataIndex(), field), nil
	}
	switch bb := b.(type) {
	case *ElementBinding:
		return d.matched(bb, field), nil
	case *NodeBinding:
		var x []float64
		if x, err = mesh.NodeValues(bb.NodeID, bb.Field); err != nil {
			return
		}
		if len(x) != d.Dims {
			return 0, fmt.Errorf("%w: node %d field %d has %d components, data %q has %d",
				ErrShapeMismatch, bb.NodeID, bb.Field, len(x), d.Label, d.Dims)
		}
		return d.FindClosest(x)[field], nil
	}
	return 0, fmt.Errorf("unsupported binding type %T", b)
}

func (f *Fit) updatePointData(params []float64) {
	for _, label := range f.dataOrder {
		f.data[label].UpdatePointData(params)
	}
}

// ComputeRMSErr combines the closest point statistics of every source
func (f *Fit) ComputeRMSErr() float64 {
	var (
		errSqrSum float64
		numErr    int
	)
	for _, label := range f.dataOrder {
		if s, n, ok := f.data[label].ErrorStats(); ok {
			errSqrSum += s
			numErr += n
		}
	}
	if numErr > 0 {
		return math.Sqrt(errSqrSum / float64(numErr))
	}
	return math.Sqrt(errSqrSum)
}
