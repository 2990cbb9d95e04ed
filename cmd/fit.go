/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/meshfit/InputParameters"
	"github.com/notargets/meshfit/fit"
	"github.com/notargets/meshfit/mesh"
	"github.com/notargets/meshfit/readfiles"
	"github.com/notargets/meshfit/utils"
)

type FitJob struct {
	MeshFile   string
	ParamFile  string
	OutputFile string
	Verbose    bool
	Perf       bool
}

// FitCmd represents the fit command
var FitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit a mesh to data as described by an input parameters file",
	Long: `
Reads a YAML mesh and a YAML parameters file naming the data sources and
bindings, fits the mesh and writes it back out.

meshfit fit -M mesh.yaml -I params.yaml -o fitted.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		var err error
		job := &FitJob{}
		if job.MeshFile, err = cmd.Flags().GetString("meshFile"); err != nil {
			panic(err)
		}
		if job.ParamFile, err = cmd.Flags().GetString("inputParametersFile"); err != nil {
			panic(err)
		}
		job.OutputFile, _ = cmd.Flags().GetString("outputFile")
		job.Verbose = viper.GetBool("verbose")
		job.Perf = viper.GetBool("perf")
		if err = processFitInput(job); err != nil {
			fmt.Printf("error: %s\n", err)
			os.Exit(1)
		}
		if err = RunFitJob(job); err != nil {
			fmt.Printf("error: %s\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(FitCmd)
	FitCmd.Flags().StringP("meshFile", "M", "", "YAML mesh file")
	FitCmd.Flags().StringP("inputParametersFile", "I", "", "YAML file of fit parameters, data sources and bindings")
	FitCmd.Flags().StringP("outputFile", "o", "", "where to write the fitted mesh, overrides OutputFile")
}

func processFitInput(job *FitJob) (err error) {
	if len(job.MeshFile) == 0 {
		return fmt.Errorf("must supply a mesh file (-M, --meshFile)")
	}
	if len(job.ParamFile) == 0 {
		exampleFile := `
########################################
Title: "Test Case"
Mode: solve # or optimize
Solver: lsqr
MaxIterations: 10
Data:
  cloud: cloud.txt
GridBindings:
  - {Data: cloud, Resolution: 5}
NodeBindings:
  - {Nodes: [1], Field: 0, Component: 2, Value: 0.}
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		return fmt.Errorf("must supply an input parameters file (-I, --inputParametersFile)")
	}
	return
}

// ReadFitParameters parses a parameters file, letting config file and flag
// values of the iteration controls override it
func ReadFitParameters(filename string) (fp *InputParameters.FitParameters, err error) {
	var data []byte
	if data, err = os.ReadFile(filename); err != nil {
		return
	}
	fp = &InputParameters.FitParameters{}
	if err = fp.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if viper.IsSet("maxIterations") {
		it := viper.GetInt("maxIterations")
		fp.MaxIterations = &it
	}
	if viper.IsSet("tolerance") {
		fp.Tolerance = viper.GetFloat64("tolerance")
	}
	return
}

func RunFitJob(job *FitJob) (err error) {
	var (
		m  *mesh.Mesh
		fp *InputParameters.FitParameters
		f  *fit.Fit
	)
	if m, err = readfiles.ReadMesh(job.MeshFile, job.Verbose); err != nil {
		return
	}
	if fp, err = ReadFitParameters(job.ParamFile); err != nil {
		return
	}
	if job.Verbose {
		fp.Print()
	}
	if f, err = NewFitFromParameters(m, fp, filepath.Dir(job.ParamFile)); err != nil {
		return
	}
	f.Output = job.Verbose
	if err = measure(job.Perf, func() error { return RunFit(m, f, fp) }); err != nil {
		return
	}
	if job.Verbose {
		fmt.Println(utils.GetMemUsage())
	}
	out := fp.OutputFile
	if len(out) != 0 && !filepath.IsAbs(out) {
		out = filepath.Join(filepath.Dir(job.ParamFile), out)
	}
	if len(job.OutputFile) != 0 {
		out = job.OutputFile
	}
	if len(out) != 0 {
		if err = readfiles.WriteMesh(out, m); err != nil {
			return
		}
		if job.Verbose {
			fmt.Printf("Wrote fitted mesh to [%s]\n", out)
		}
	}
	return
}

// NewFitFromParameters loads the data sources and adds the bindings of fp.
// Relative point file names are resolved against baseDir.
func NewFitFromParameters(m *mesh.Mesh, fp *InputParameters.FitParameters, baseDir string) (f *fit.Fit, err error) {
	f = fit.NewFit()
	f.WarmStart = fp.WarmStart == nil || *fp.WarmStart
	labels := make([]string, 0, len(fp.Data))
	for label := range fp.Data {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fname := fp.Data[label]
		if !filepath.IsAbs(fname) {
			fname = filepath.Join(baseDir, fname)
		}
		var points [][]float64
		if points, err = readfiles.ReadPoints(fname, false); err != nil {
			return
		}
		if err = f.SetData(label, points); err != nil {
			return
		}
	}
	labels = labels[:0]
	for label := range fp.ScalarData {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if err = f.SetScalarData(label, fp.ScalarData[label]); err != nil {
			return
		}
	}
	for _, eb := range fp.ElementBindings {
		index := fit.NearestPoint
		if eb.Index != nil {
			index = *eb.Index
		}
		if err = f.AddElementBinding(eb.Element, eb.Xi, eb.Data, index, eb.Fields, eb.Weight); err != nil {
			return
		}
	}
	for _, nb := range fp.NodeBindings {
		if nb.Value != nil {
			if _, err = f.BindNodeValue(nb.Nodes, nb.Field, nb.Component, *nb.Value, nb.Weight); err != nil {
				return
			}
			continue
		}
		index := fit.NearestPoint
		if nb.Index != nil {
			index = *nb.Index
		}
		for _, nid := range nb.Nodes {
			if err = f.AddNodeBinding(nid, nb.Field, nb.Component, nb.Data, index, nb.Weight); err != nil {
				return
			}
		}
	}
	for _, gb := range fp.GridBindings {
		if err = bindGrid(f, m, gb); err != nil {
			return
		}
	}
	return
}

func bindGrid(f *fit.Fit, m *mesh.Mesh, gb InputParameters.GridBinding) (err error) {
	elems := gb.Elements
	if len(elems) == 0 {
		elems = m.ElementIDs()
	}
	for _, eid := range elems {
		var dims int
		if dims, err = m.ElementDims(eid); err != nil {
			return
		}
		for _, xi := range fit.SampleGrid(dims, gb.Resolution) {
			if err = f.AddElementBinding(eid, xi, gb.Data, fit.NearestPoint, nil, gb.Weight); err != nil {
				return
			}
		}
	}
	return
}

// RunFit runs the linear solve or the nonlinear optimisation fp asks for
func RunFit(m *mesh.Mesh, f *fit.Fit, fp *InputParameters.FitParameters) (err error) {
	if fp.Mode == "optimize" {
		return runOptimize(m, f, fp)
	}
	var solver fit.SolverType
	if solver, err = fit.NewSolverType(fp.Solver); err != nil {
		return
	}
	if err = f.UpdateFromMesh(m); err != nil {
		return
	}
	if solver == fit.SolverSVD {
		if err = f.InvertMatrix(); err != nil {
			return
		}
	}
	_, err = f.Solve(m, fp.Iterations(), fp.Tolerance)
	return
}

func runOptimize(m *mesh.Mesh, f *fit.Fit, fp *InputParameters.FitParameters) (err error) {
	var (
		dir fit.Direction
		s   fit.OptimizeSettings
		d   *fit.DataSource
	)
	if dir, err = fit.NewDirection(fp.Direction); err != nil {
		return
	}
	if s, err = fp.OptimizeSettings(); err != nil {
		return
	}
	if d, err = f.Data(fp.OptimizeData); err != nil {
		return
	}
	_, err = f.Optimize(m, dir, d.Values, s)
	return
}
