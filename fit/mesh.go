package fit

// Mesh is the deformable geometry a Fit reads shape functions from and
// writes solved parameters back into. A Mesh must only be mutated by one Fit
// at a time, for the duration of one Solve or Optimize call.
type Mesh interface {
	ParameterSubvector(ids []int) []float64
	SetParameterSubvector(ids []int, vals []float64) error
	EvaluateElement(elem int, xi []float64) ([]float64, error)
	// ShapeWeights returns the global parameter indices per coordinate
	// component and the shape function weights shared by all components
	ShapeWeights(elem int, xi []float64) (ids [][]int, weights []float64, err error)
	NodeParameterIndex(node, field, comp int) (int, error)
	NodeValues(node, field int) ([]float64, error)
}

// FreeformMesh is a Mesh whose whole free parameter vector can be varied,
// as the closest point objectives require
type FreeformMesh interface {
	Mesh
	ElementIDs() []int
	ElementDims(elem int) (int, error)
	Variables() []float64
	SetVariables(x []float64) error
}

// Projector finds the parametric coordinate on a 1D element nearest a point
type Projector interface {
	ProjectElement(elem int, x []float64) (float64, error)
}
