package fit

import (
	"fmt"

	"github.com/notargets/meshfit/spatial"
	"github.com/notargets/meshfit/utils"
)

// DataSource is a labelled, immutable set of observed points. Sources of
// more than one point are spatially indexed so element bindings can be
// associated with their closest observation.
type DataSource struct {
	Label  string
	Values [][]float64 // [point][component]
	Dims   int
	scalar bool
	index  *spatial.Index
	// Closest point association state, rebuilt by the fit after each
	// matrix generation
	phiDOK    utils.DOK
	phi       utils.CSR
	rowInd    int
	bound     []*ElementBinding
	xc        []float64 // matched observation per phi row
	errSqrSum float64
	numErr    int
	hasErr    bool
}

func NewDataSource(label string, points [][]float64) (d *DataSource, err error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%q: %w", label, ErrEmptyData)
	}
	d = &DataSource{Label: label, Dims: len(points[0]), Values: make([][]float64, len(points))}
	for i, p := range points {
		if len(p) != d.Dims || d.Dims == 0 {
			return nil, fmt.Errorf("%w: %q point %d has %d components, expected %d",
				ErrShapeMismatch, label, i, len(p), d.Dims)
		}
		d.Values[i] = append([]float64{}, p...)
	}
	if utils.IsNan(d.Values) {
		return nil, fmt.Errorf("data source %q contains NaN", label)
	}
	if len(points) > 1 {
		if d.index, err = spatial.NewIndex(d.Values); err != nil {
			return nil, err
		}
	}
	return
}

// NewScalarDataSource is a constant broadcast to every row bound to it
func NewScalarDataSource(label string, value float64) *DataSource {
	return &DataSource{Label: label, Values: [][]float64{{value}}, Dims: 1, scalar: true}
}

func (d *DataSource) Len() int        { return len(d.Values) }
func (d *DataSource) IsScalar() bool  { return d.scalar }
func (d *DataSource) IsIndexed() bool { return d.index != nil }

// Index exposes the spatial index, nil for single point sources
func (d *DataSource) Index() *spatial.Index { return d.index }

// column maps a requested component onto this source, single component
// sources broadcast their only column
func (d *DataSource) column(comp int) (col int, err error) {
	if d.Dims == 1 {
		return 0, nil
	}
	if comp < 0 || comp >= d.Dims {
		err = fmt.Errorf("%w: data %q has %d components, component %d requested",
			ErrShapeMismatch, d.Label, d.Dims, comp)
	}
	return comp, err
}

func (d *DataSource) checkIndex(index int) error {
	if index != NearestPoint && (index < 0 || index >= len(d.Values)) {
		return fmt.Errorf("%w: data %q has %d points, index %d requested",
			ErrShapeMismatch, d.Label, len(d.Values), index)
	}
	return nil
}

// Value returns component comp of point index
func (d *DataSource) Value(index, comp int) float64 {
	col, err := d.column(comp)
	if err != nil {
		panic(err)
	}
	if d.scalar || len(d.Values) == 1 {
		index = 0
	}
	return d.Values[index][col]
}

// FindClosest returns the stored point nearest x. Single point and scalar
// sources return their only point.
func (d *DataSource) FindClosest(x []float64) []float64 {
	if d.index == nil {
		return d.Values[0]
	}
	_, id := d.index.Nearest(x)
	return d.Values[id]
}

// initPhi sizes the closest point operator for nrows mesh implied
// coordinates over ncols fit columns
func (d *DataSource) initPhi(nrows, ncols int) {
	d.phiDOK = utils.NewDOK(nrows, ncols)
	d.rowInd = 0
	d.bound = nil
	d.xc = nil
	d.hasErr = false
}

func (d *DataSource) resetPhi() {
	d.initPhi(0, 0)
	d.phi = utils.CSR{}
}

func (d *DataSource) addBinding(b *ElementBinding, colIndex map[int]int) (err error) {
	if b.NumComponents() != d.Dims {
		return fmt.Errorf("%w: element %d interpolates %d components, data %q has %d",
			ErrShapeMismatch, b.ElementID, b.NumComponents(), d.Label, d.Dims)
	}
	b.dataRow = d.rowInd
	for c := 0; c < b.NumComponents(); c++ {
		ids, w := b.ComponentTerms(c)
		for i, pid := range ids {
			d.phiDOK.AddAt(d.rowInd, colIndex[pid], w[i])
		}
		d.rowInd++
	}
	d.bound = append(d.bound, b)
	return
}

func (d *DataSource) finalizePhi() {
	d.phi = d.phiDOK.SetReadOnly("phi_" + d.Label).ToCSR()
}

// HasAssociations is true when element bindings are matched to this source
// by closest point
func (d *DataSource) HasAssociations() bool { return len(d.bound) > 0 }

// UpdatePointData evaluates the mesh implied points of every closest point
// row from the fit column parameters, matches each to its nearest
// observation and accumulates the squared match distances. Sources with no
// closest point rows are left untouched.
func (d *DataSource) UpdatePointData(params []float64) {
	if d.index == nil || len(d.bound) == 0 {
		return
	}
	xd := d.phi.MulVec(nil, params)
	dist, ids := d.index.NearestAll(utils.Reshape(xd, d.Dims))
	if len(d.xc) != len(xd) {
		d.xc = make([]float64, len(xd))
	}
	d.errSqrSum = 0
	for i, id := range ids {
		copy(d.xc[i*d.Dims:(i+1)*d.Dims], d.Values[id])
		d.errSqrSum += dist[i] * dist[i]
	}
	d.numErr = len(ids)
	d.hasErr = true
}

// matched returns component comp of the observation matched to binding b
func (d *DataSource) matched(b *ElementBinding, comp int) float64 {
	return d.xc[b.dataRow+comp]
}

// ErrorStats are the squared distance sum and match count of the last
// UpdatePointData, ok is false when no matching has happened
func (d *DataSource) ErrorStats() (errSqrSum float64, numErr int, ok bool) {
	return d.errSqrSum, d.numErr, d.hasErr
}
