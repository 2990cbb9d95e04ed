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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/meshfit/fit"
	"github.com/notargets/meshfit/mesh"
	"github.com/notargets/meshfit/readfiles"
)

type OptimizeJob struct {
	MeshFile, DataFile, OutputFile string
	Direction                      fit.Direction
	Settings                       fit.OptimizeSettings
	Verbose, Perf                  bool
}

// OptimizeCmd represents the optimize command
var OptimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Closest point fit of a mesh to a point cloud",
	Long: `
Moves every free node of the mesh to minimise the closest point distances
between the mesh and a point cloud.

meshfit optimize -M mesh.yaml -D cloud.txt --direction m2dc -o fitted.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		job, err := newOptimizeJob(cmd)
		if err == nil {
			err = RunOptimizeJob(job)
		}
		if err != nil {
			fmt.Printf("error: %s\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(OptimizeCmd)
	OptimizeCmd.Flags().StringP("meshFile", "M", "", "YAML mesh file")
	OptimizeCmd.Flags().StringP("dataFile", "D", "", "point cloud, one point per line")
	OptimizeCmd.Flags().StringP("outputFile", "o", "", "where to write the fitted mesh")
	OptimizeCmd.Flags().String("direction", "m2dc", "m2dc, d2mc or d2mp")
	OptimizeCmd.Flags().String("method", "levmar", "levmar or lbfgs")
	OptimizeCmd.Flags().IntP("resolution", "r", 5, "parametric samples per element direction")
	OptimizeCmd.Flags().IntSlice("elements", []int{1, 2}, "the two adjacent 1D elements used by d2mp")
	OptimizeCmd.Flags().Float64("ftol", 1.e-9, "relative cost reduction below which the fit stops")
	OptimizeCmd.Flags().Int("maxFev", 0, "maximum residual evaluations, 0 picks a default")
}

func newOptimizeJob(cmd *cobra.Command) (job *OptimizeJob, err error) {
	var (
		label string
		elems []int
	)
	flags := cmd.Flags()
	job = &OptimizeJob{Verbose: viper.GetBool("verbose"), Perf: viper.GetBool("perf")}
	job.MeshFile, _ = flags.GetString("meshFile")
	job.DataFile, _ = flags.GetString("dataFile")
	job.OutputFile, _ = flags.GetString("outputFile")
	if len(job.MeshFile) == 0 || len(job.DataFile) == 0 {
		return nil, fmt.Errorf("must supply a mesh file (-M) and a data file (-D)")
	}
	label, _ = flags.GetString("direction")
	if job.Direction, err = fit.NewDirection(label); err != nil {
		return
	}
	label, _ = flags.GetString("method")
	if job.Settings.Method, err = fit.NewNonlinearMethod(label); err != nil {
		return
	}
	job.Settings.SampleResolution, _ = flags.GetInt("resolution")
	job.Settings.Ftol, _ = flags.GetFloat64("ftol")
	job.Settings.MaxFev, _ = flags.GetInt("maxFev")
	if elems, _ = flags.GetIntSlice("elements"); len(elems) != 2 {
		return nil, fmt.Errorf("--elements needs exactly two element ids, have %v", elems)
	}
	job.Settings.ProjectElements = [2]int{elems[0], elems[1]}
	return
}

func RunOptimizeJob(job *OptimizeJob) (err error) {
	var (
		m      *mesh.Mesh
		points [][]float64
	)
	if m, err = readfiles.ReadMesh(job.MeshFile, job.Verbose); err != nil {
		return
	}
	if points, err = readfiles.ReadPoints(job.DataFile, job.Verbose); err != nil {
		return
	}
	f := fit.NewFit()
	f.Output = job.Verbose
	err = measure(job.Perf, func() (err error) {
		_, err = f.Optimize(m, job.Direction, points, job.Settings)
		return
	})
	if err != nil {
		return
	}
	if len(job.OutputFile) != 0 {
		err = readfiles.WriteMesh(job.OutputFile, m)
	}
	return
}
