package fit

import (
	"fmt"

	"github.com/notargets/meshfit/spatial"
	"github.com/notargets/meshfit/utils"
)

// Objective maps a free parameter vector to per sample squared errors. The
// nonlinear solver minimizes the sum of squares of the returned vector, whose
// length must not depend on params.
type Objective interface {
	Residuals(params []float64) []float64
}

type Direction uint8

const (
	MeshToDataClosest Direction = iota
	DataToMeshClosest
	DataToMeshProjected
)

var DirectionNames = map[string]Direction{
	"m2dc":                   MeshToDataClosest,
	"mesh_to_data_closest":   MeshToDataClosest,
	"d2mc":                   DataToMeshClosest,
	"data_to_mesh_closest":   DataToMeshClosest,
	"d2mp":                   DataToMeshProjected,
	"data_to_mesh_project":   DataToMeshProjected,
	"data_to_mesh_projected": DataToMeshProjected,
}

var directionPrintNames = []string{"mesh_to_data_closest", "data_to_mesh_closest", "data_to_mesh_projected"}

func (d Direction) Print() string {
	if int(d) < len(directionPrintNames) {
		return directionPrintNames[d]
	}
	return "unknown"
}

func NewDirection(label string) (d Direction, err error) {
	var ok bool
	if d, ok = DirectionNames[label]; !ok {
		err = fmt.Errorf("%w: %q", ErrUnknownDirection, label)
	}
	return
}

// SampleGrid returns n^dims parametric points on a uniform grid over the
// unit cube, first coordinate running fastest
func SampleGrid(dims, n int) (Xi [][]float64) {
	line := utils.Linspace(0, 1, n)
	Xi = [][]float64{{}}
	for d := 0; d < dims; d++ {
		next := make([][]float64, 0, len(Xi)*len(line))
		for _, v := range line {
			for _, xi := range Xi {
				next = append(next, append(append([]float64{}, xi...), v))
			}
		}
		Xi = next
	}
	return
}

// meshSampler evaluates every element of the mesh at a fixed parametric grid
type meshSampler struct {
	mesh  FreeformMesh
	elems []int
	grids [][][]float64 // per element
	X     [][]float64
	Dims  int // coordinate components of a sampled point
}

func newMeshSampler(mesh FreeformMesh, resolution int) (s *meshSampler, err error) {
	if resolution < 1 {
		resolution = 1
	}
	s = &meshSampler{mesh: mesh, elems: mesh.ElementIDs()}
	grids := make(map[int][][]float64)
	var numSamples int
	for _, eid := range s.elems {
		var dims int
		if dims, err = mesh.ElementDims(eid); err != nil {
			return
		}
		if _, ok := grids[dims]; !ok {
			grids[dims] = SampleGrid(dims, resolution)
		}
		s.grids = append(s.grids, grids[dims])
		numSamples += len(grids[dims])
	}
	if numSamples == 0 {
		return nil, fmt.Errorf("mesh has no elements to sample")
	}
	if s.Dims, err = coordinateDims(mesh, s.elems[0], s.grids[0][0]); err != nil {
		return nil, err
	}
	s.X = make([][]float64, numSamples)
	return
}

func coordinateDims(mesh Mesh, elem int, xi []float64) (dims int, err error) {
	var x []float64
	if x, err = mesh.EvaluateElement(elem, xi); err != nil {
		return
	}
	return len(x), nil
}

// checkDims rejects data whose points do not have dims components
func checkDims(data [][]float64, dims int) error {
	for i, x := range data {
		if len(x) != dims {
			return fmt.Errorf("%w: data point %d has %d components, mesh points have %d",
				ErrShapeMismatch, i, len(x), dims)
		}
	}
	return nil
}

func (s *meshSampler) sample(params []float64) [][]float64 {
	if err := s.mesh.SetVariables(params); err != nil {
		panic(err)
	}
	var ind int
	for i, eid := range s.elems {
		for _, xi := range s.grids[i] {
			x, err := s.mesh.EvaluateElement(eid, xi)
			if err != nil {
				panic(err)
			}
			s.X[ind] = x
			ind++
		}
	}
	return s.X
}

// MeshToDataObjective pulls every sampled mesh point toward its closest
// data point. The data index is built once, so evaluation is cheap, but
// data regions no mesh sample is near are not penalized.
type MeshToDataObjective struct {
	sampler *meshSampler
	index   *spatial.Index
}

func NewMeshToDataObjective(mesh FreeformMesh, data [][]float64, resolution int) (o *MeshToDataObjective, err error) {
	o = &MeshToDataObjective{}
	if o.sampler, err = newMeshSampler(mesh, resolution); err != nil {
		return nil, err
	}
	if err = checkDims(data, o.sampler.Dims); err != nil {
		return nil, err
	}
	if o.index, err = spatial.NewIndex(data); err != nil {
		return nil, err
	}
	return
}

func (o *MeshToDataObjective) NumSamples() int { return len(o.sampler.X) }

func (o *MeshToDataObjective) Residuals(params []float64) (err []float64) {
	X := o.sampler.sample(params)
	dist, _ := o.index.NearestAll(X)
	err = make([]float64, len(dist))
	for i, d := range dist {
		err[i] = d * d
	}
	return
}

// DataToMeshObjective pulls the mesh toward every data point through the
// closest mesh sample. The index over mesh samples is rebuilt on every
// evaluation, which dominates the cost, in exchange uncovered data is
// penalized.
type DataToMeshObjective struct {
	sampler *meshSampler
	data    [][]float64
	Err     []float64 // distances of the last evaluation
}

func NewDataToMeshObjective(mesh FreeformMesh, data [][]float64, resolution int) (o *DataToMeshObjective, err error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	o = &DataToMeshObjective{data: data}
	if o.sampler, err = newMeshSampler(mesh, resolution); err != nil {
		return nil, err
	}
	if err = checkDims(data, o.sampler.Dims); err != nil {
		return nil, err
	}
	return
}

func (o *DataToMeshObjective) Residuals(params []float64) (err []float64) {
	X := o.sampler.sample(params)
	index, e := spatial.NewIndex(X)
	if e != nil {
		panic(e)
	}
	o.Err, _ = index.NearestAll(o.data)
	err = make([]float64, len(o.Err))
	for i, d := range o.Err {
		err[i] = d * d
	}
	return
}

// ProjectionObjective measures each data point against its projection onto
// one of two adjacent 1D elements
type ProjectionObjective struct {
	mesh     FreeformMesh
	proj     Projector
	Elements [2]int
	data     [][]float64
}

func NewProjectionObjective(mesh FreeformMesh, data [][]float64, elements [2]int) (o *ProjectionObjective, err error) {
	var (
		proj Projector
		ok   bool
	)
	if proj, ok = mesh.(Projector); !ok {
		return nil, fmt.Errorf("%w: mesh %T cannot project onto elements", ErrUnknownDirection, mesh)
	}
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	for _, eid := range elements {
		var dims int
		if dims, err = mesh.ElementDims(eid); err != nil {
			return
		}
		if dims != 1 {
			return nil, fmt.Errorf("%w: projection needs 1D elements, element %d has %d directions", ErrShapeMismatch, eid, dims)
		}
	}
	var dims int
	if dims, err = coordinateDims(mesh, elements[0], []float64{0.5}); err != nil {
		return
	}
	if err = checkDims(data, dims); err != nil {
		return nil, err
	}
	return &ProjectionObjective{mesh: mesh, proj: proj, Elements: elements, data: data}, nil
}

// ChooseProjection picks between the projections xi1 and xi2 onto the first
// and second element. An in range projection wins, the first element first.
// Otherwise the element whose projection lies the smaller distance outside
// [0,1] is chosen and its xi clamped to that endpoint, ties going to the
// first element.
func ChooseProjection(xi1, xi2 float64) (which int, xi float64) {
	switch {
	case 0 <= xi1 && xi1 <= 1:
		return 0, xi1
	case 0 <= xi2 && xi2 <= 1:
		return 1, xi2
	}
	e1, c1 := outOfRange(xi1)
	e2, c2 := outOfRange(xi2)
	if e2*e2 < e1*e1 {
		return 1, c2
	}
	return 0, c1
}

func outOfRange(xi float64) (excess, clamped float64) {
	if xi < 0 {
		return -xi, 0
	}
	return xi - 1, 1
}

// Associate returns the element and parametric coordinate data point xd is
// measured against for the current mesh
func (o *ProjectionObjective) Associate(xd []float64) (elem int, xi float64, err error) {
	var xi1, xi2 float64
	if xi1, err = o.proj.ProjectElement(o.Elements[0], xd); err != nil {
		return
	}
	if xi2, err = o.proj.ProjectElement(o.Elements[1], xd); err != nil {
		return
	}
	which, xi := ChooseProjection(xi1, xi2)
	return o.Elements[which], xi, nil
}

func (o *ProjectionObjective) Residuals(params []float64) (err []float64) {
	if e := o.mesh.SetVariables(params); e != nil {
		panic(e)
	}
	err = make([]float64, len(o.data))
	for i, xd := range o.data {
		elem, xi, e := o.Associate(xd)
		if e != nil {
			panic(e)
		}
		x, e := o.mesh.EvaluateElement(elem, []float64{xi})
		if e != nil {
			panic(e)
		}
		err[i] = utils.SqDist(x, xd)
	}
	return
}

// NewObjective builds the objective for a fit direction
func NewObjective(dir Direction, mesh FreeformMesh, data [][]float64, s OptimizeSettings) (obj Objective, err error) {
	s.setDefaults()
	switch dir {
	case MeshToDataClosest:
		var o *MeshToDataObjective
		if o, err = NewMeshToDataObjective(mesh, data, s.SampleResolution); err == nil {
			obj = o
		}
	case DataToMeshClosest:
		var o *DataToMeshObjective
		if o, err = NewDataToMeshObjective(mesh, data, s.SampleResolution); err == nil {
			obj = o
		}
	case DataToMeshProjected:
		var o *ProjectionObjective
		if o, err = NewProjectionObjective(mesh, data, s.ProjectElements); err == nil {
			obj = o
		}
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownDirection, dir)
	}
	return
}
