package InputParameters

import (
	"fmt"
	"sort"

	"github.com/ghodss/yaml"

	"github.com/notargets/meshfit/fit"
)

// Parameters obtained from the YAML input file
type FitParameters struct {
	Title            string             `json:"Title"`
	Mode             string             `json:"Mode"`   // solve | optimize
	Solver           string             `json:"Solver"` // lsqr | svd
	WarmStart        *bool              `json:"WarmStart,omitempty"`
	MaxIterations    *int               `json:"MaxIterations,omitempty"`
	Tolerance        float64            `json:"Tolerance"`
	Direction        string             `json:"Direction"`
	NonlinearMethod  string             `json:"NonlinearMethod"`
	Ftol             float64            `json:"Ftol"`
	Xtol             float64            `json:"Xtol"`
	MaxFunctionEvals int                `json:"MaxFunctionEvals"`
	SampleResolution int                `json:"SampleResolution"`
	ProjectElements  [2]int             `json:"ProjectElements"`
	OptimizeData     string             `json:"OptimizeData"` // data label fitted in optimize mode
	Data             map[string]string  `json:"Data"`         // label -> point file
	ScalarData       map[string]float64 `json:"ScalarData"`
	ElementBindings  []ElementBinding   `json:"ElementBindings"`
	NodeBindings     []NodeBinding      `json:"NodeBindings"`
	GridBindings     []GridBinding      `json:"GridBindings"`
	OutputFile       string             `json:"OutputFile"`
}

// ElementBinding ties the world position of Xi on Element to a data point.
// A nil Index associates the closest data point on every update.
type ElementBinding struct {
	Element int       `json:"Element"`
	Xi      []float64 `json:"Xi"`
	Data    string    `json:"Data"`
	Index   *int      `json:"Index,omitempty"`
	Fields  []int     `json:"Fields,omitempty"`
	Weight  float64   `json:"Weight"`
}

type NodeBinding struct {
	Nodes     []int    `json:"Nodes"`
	Field     int      `json:"Field"`
	Component int      `json:"Component"`
	Data      string   `json:"Data,omitempty"`
	Index     *int     `json:"Index,omitempty"`
	Value     *float64 `json:"Value,omitempty"`
	Weight    float64  `json:"Weight"`
}

// GridBinding binds a Resolution^d grid of parametric points on every listed
// element (all elements when empty) to the closest points of Data
type GridBinding struct {
	Elements   []int   `json:"Elements,omitempty"`
	Resolution int     `json:"Resolution"`
	Data       string  `json:"Data"`
	Weight     float64 `json:"Weight"`
}

func (fp *FitParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, fp); err != nil {
		return
	}
	fp.SetDefaults()
	return fp.Validate()
}

func (fp *FitParameters) SetDefaults() {
	if fp.Mode == "" {
		fp.Mode = "solve"
	}
	if fp.Solver == "" {
		fp.Solver = "lsqr"
	}
	if fp.WarmStart == nil {
		ws := true
		fp.WarmStart = &ws
	}
	if fp.MaxIterations == nil {
		it := 10
		fp.MaxIterations = &it
	}
	if fp.Tolerance == 0 {
		fp.Tolerance = 1.e-9
	}
	if fp.Direction == "" {
		fp.Direction = "m2dc"
	}
	if fp.NonlinearMethod == "" {
		fp.NonlinearMethod = "levmar"
	}
	if fp.SampleResolution == 0 {
		fp.SampleResolution = 5
	}
	for i := range fp.ElementBindings {
		if fp.ElementBindings[i].Weight == 0 {
			fp.ElementBindings[i].Weight = 1
		}
	}
	for i := range fp.NodeBindings {
		if fp.NodeBindings[i].Weight == 0 {
			fp.NodeBindings[i].Weight = 1
		}
	}
	for i := range fp.GridBindings {
		if fp.GridBindings[i].Weight == 0 {
			fp.GridBindings[i].Weight = 1
		}
		if fp.GridBindings[i].Resolution == 0 {
			fp.GridBindings[i].Resolution = fp.SampleResolution
		}
	}
}

func (fp *FitParameters) Validate() (err error) {
	if fp.Iterations() < 0 {
		return fmt.Errorf("MaxIterations must not be negative, have %d", fp.Iterations())
	}
	switch fp.Mode {
	case "solve", "optimize":
	default:
		return fmt.Errorf("unknown Mode %q, use solve or optimize", fp.Mode)
	}
	if fp.Mode == "optimize" && len(fp.OptimizeData) == 0 {
		return fmt.Errorf("optimize mode needs an OptimizeData label")
	}
	if _, err = fit.NewSolverType(fp.Solver); err != nil {
		return
	}
	if _, err = fit.NewDirection(fp.Direction); err != nil {
		return
	}
	if _, err = fit.NewNonlinearMethod(fp.NonlinearMethod); err != nil {
		return
	}
	for i, nb := range fp.NodeBindings {
		if (nb.Data == "") == (nb.Value == nil) {
			return fmt.Errorf("node binding %d needs exactly one of Data or Value", i)
		}
	}
	for i, eb := range fp.ElementBindings {
		if eb.Data == "" {
			return fmt.Errorf("element binding %d has no Data label", i)
		}
	}
	for i, gb := range fp.GridBindings {
		if gb.Data == "" || gb.Resolution < 1 {
			return fmt.Errorf("grid binding %d needs a Data label and a positive Resolution", i)
		}
	}
	return
}

// OptimizeSettings collects the nonlinear fit settings
func (fp *FitParameters) OptimizeSettings() (s fit.OptimizeSettings, err error) {
	if s.Method, err = fit.NewNonlinearMethod(fp.NonlinearMethod); err != nil {
		return
	}
	s.Ftol, s.Xtol = fp.Ftol, fp.Xtol
	s.MaxFev = fp.MaxFunctionEvals
	s.SampleResolution = fp.SampleResolution
	s.ProjectElements = fp.ProjectElements
	return
}

// Iterations is MaxIterations, zero runs no solve iterations
func (fp *FitParameters) Iterations() int {
	if fp.MaxIterations == nil {
		return 0
	}
	return *fp.MaxIterations
}

func (fp *FitParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", fp.Title)
	fmt.Printf("[%s]\t\t\t= Mode\n", fp.Mode)
	if fp.Mode == "optimize" {
		fmt.Printf("[%s]\t\t\t= Direction\n", fp.Direction)
		fmt.Printf("[%s]\t\t= Nonlinear Method\n", fp.NonlinearMethod)
		fmt.Printf("%8.3e\t\t= Ftol\n", fp.Ftol)
		fmt.Printf("[%d]\t\t\t\t= Sample Resolution\n", fp.SampleResolution)
	} else {
		fmt.Printf("[%s]\t\t\t= Solver\n", fp.Solver)
		fmt.Printf("[%v]\t\t\t= Warm Start\n", fp.WarmStart != nil && *fp.WarmStart)
		fmt.Printf("[%d]\t\t\t\t= Max Iterations\n", fp.Iterations())
		fmt.Printf("%8.3e\t\t= Tolerance\n", fp.Tolerance)
	}
	keys := make([]string, 0, len(fp.Data))
	for k := range fp.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("Data[%s] = %s\n", key, fp.Data[key])
	}
	fmt.Printf("%d element, %d node, %d grid bindings\n",
		len(fp.ElementBindings), len(fp.NodeBindings), len(fp.GridBindings))
}
