package fit

import (
	"fmt"
	"time"

	"github.com/notargets/meshfit/utils"
)

type NonlinearMethod uint8

const (
	LevenbergMarquardt NonlinearMethod = iota
	LBFGS
)

var NonlinearMethodNames = map[string]NonlinearMethod{
	"levmar": LevenbergMarquardt,
	"lm":     LevenbergMarquardt,
	"lbfgs":  LBFGS,
}

func (m NonlinearMethod) Print() string {
	switch m {
	case LevenbergMarquardt:
		return "levmar"
	case LBFGS:
		return "lbfgs"
	}
	return "unknown"
}

func NewNonlinearMethod(label string) (m NonlinearMethod, err error) {
	var ok bool
	if m, ok = NonlinearMethodNames[label]; !ok {
		err = fmt.Errorf("%w: nonlinear method %q", ErrUnknownMethod, label)
	}
	return
}

type OptimizeSettings struct {
	Ftol, Xtol       float64
	MaxFev           int // 0 lets the method pick its budget
	Step             float64
	Method           NonlinearMethod
	SampleResolution int    // Parametric samples per element direction
	ProjectElements  [2]int // Adjacent 1D elements for DataToMeshProjected
}

func (s *OptimizeSettings) setDefaults() {
	if s.Ftol <= 0 {
		s.Ftol = 1.e-9
	}
	if s.Xtol <= 0 {
		s.Xtol = 1.e-9
	}
	if s.SampleResolution <= 0 {
		s.SampleResolution = 5
	}
}

type OptimizeResult struct {
	utils.NLLSResult
	Elapsed time.Duration
}

// Optimize fits every free parameter of the mesh to the data cloud with the
// closest point objective for dir, leaving the mesh at the optimum
func (f *Fit) Optimize(mesh FreeformMesh, dir Direction, data [][]float64, s OptimizeSettings) (r OptimizeResult, err error) {
	var obj Objective
	if obj, err = NewObjective(dir, mesh, data, s); err != nil {
		return
	}
	if f.Output {
		fmt.Printf("Optimizing %s over %d points\n", dir.Print(), len(data))
	}
	return f.OptimizeObjective(mesh, obj, s)
}

// OptimizeObjective minimizes the sum of squares of any objective over the
// free parameters of the mesh
func (f *Fit) OptimizeObjective(mesh FreeformMesh, obj Objective, s OptimizeSettings) (r OptimizeResult, err error) {
	s.setDefaults()
	x0 := mesh.Variables()
	m := len(obj.Residuals(x0))
	residuals := func(dst, x []float64) { copy(dst, obj.Residuals(x)) }
	settings := utils.NLLSSettings{Ftol: s.Ftol, Xtol: s.Xtol, MaxFev: s.MaxFev, Step: s.Step}
	t0 := time.Now()
	switch s.Method {
	case LevenbergMarquardt:
		r.NLLSResult = utils.LevenbergMarquardt(residuals, m, x0, settings)
	case LBFGS:
		r.NLLSResult = utils.MinimizeLBFGS(residuals, m, x0, settings)
	default:
		return r, fmt.Errorf("%w: %d", ErrUnknownMethod, s.Method)
	}
	r.Elapsed = time.Since(t0)
	if utils.IsNan(r.X) {
		return r, fmt.Errorf("optimize produced NaN parameters: %s", r.Status)
	}
	if err = mesh.SetVariables(r.X); err != nil {
		return
	}
	if f.Output {
		fmt.Printf("Fit Time: %v\n", r.Elapsed)
		fmt.Printf("Cost = %8.5e, function evaluations = %d, %s\n", r.Cost, r.FuncEvals, r.Status)
	}
	return
}
