package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshfit/InputParameters"
	"github.com/notargets/meshfit/readfiles"
)

const quadMeshYAML = `
Label: quad
Nodes:
  - {ID: 1, Values: [[0, 0, 0]]}
  - {ID: 2, Values: [[1, 0, 0]]}
  - {ID: 3, Values: [[0, 1, 0]]}
  - {ID: 4, Values: [[1, 1, 0]]}
Elements:
  - {ID: 1, Basis: [L1, L1], Nodes: [1, 2, 3, 4]}
`

func writeCase(t *testing.T, params string) (dir string) {
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mesh.yaml"), []byte(quadMeshYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "params.yaml"), []byte(params), 0644))
	var cloud []byte
	for _, y := range []string{"0", "0.25", "0.5", "0.75", "1"} {
		for _, x := range []string{"0", "0.25", "0.5", "0.75", "1"} {
			cloud = append(cloud, []byte(x+" "+y+" 0.5\n")...)
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cloud.txt"), cloud, 0644))
	return
}

func TestRunFitJob(t *testing.T) {
	// Grid bindings lift the element onto the cloud
	{
		dir := writeCase(t, `
Title: lift
Data:
  cloud: cloud.txt
GridBindings:
  - {Data: cloud, Resolution: 3}
OutputFile: fitted.yaml
`)
		job := &FitJob{
			MeshFile:  filepath.Join(dir, "mesh.yaml"),
			ParamFile: filepath.Join(dir, "params.yaml"),
			Verbose:   true,
		}
		require.NoError(t, processFitInput(job))
		require.NoError(t, RunFitJob(job))
		// OutputFile is relative to the parameters file
		m, err := readfiles.ReadMesh(filepath.Join(dir, "fitted.yaml"), false)
		require.NoError(t, err)
		for i, nid := range m.NodeIDs() {
			vals, _ := m.NodeValues(nid, 0)
			assert.InDeltaf(t, 0.5, vals[2], 1.e-8, "node %d", nid)
			assert.InDelta(t, float64(i%2), vals[0], 1.e-8)
		}
	}
	{
		dir := writeCase(t, `
Solver: svd
Data:
  cloud: cloud.txt
GridBindings:
  - {Data: cloud, Resolution: 3}
NodeBindings:
  - {Nodes: [1], Component: 0, Value: -0.5, Weight: 10}
`)
		out := filepath.Join(dir, "out.yaml")
		job := &FitJob{
			MeshFile:   filepath.Join(dir, "mesh.yaml"),
			ParamFile:  filepath.Join(dir, "params.yaml"),
			OutputFile: out,
		}
		require.NoError(t, RunFitJob(job))
		m, err := readfiles.ReadMesh(out, false)
		require.NoError(t, err)
		for _, nid := range m.NodeIDs() {
			vals, _ := m.NodeValues(nid, 0)
			assert.InDeltaf(t, 0.5, vals[2], 1.e-6, "node %d", nid)
		}
		// The heavily weighted constant pulls the corner outward
		vals, _ := m.NodeValues(1, 0)
		assert.Less(t, vals[0], -0.25)
	}
	assert.Error(t, processFitInput(&FitJob{ParamFile: "params.yaml"}))
	assert.Error(t, processFitInput(&FitJob{MeshFile: "mesh.yaml"}))
}

func TestNewFitFromParameters(t *testing.T) {
	dir := writeCase(t, "")
	m, err := readfiles.ReadMesh(filepath.Join(dir, "mesh.yaml"), false)
	require.NoError(t, err)
	index := 12
	fp := &InputParameters.FitParameters{
		Data:       map[string]string{"cloud": "cloud.txt"},
		ScalarData: map[string]float64{"zero": 0},
		ElementBindings: []InputParameters.ElementBinding{
			{Element: 1, Xi: []float64{0.5, 0.5}, Data: "cloud", Index: &index},
		},
		NodeBindings: []InputParameters.NodeBinding{
			{Nodes: []int{1, 2}, Component: 0, Data: "zero"},
		},
		GridBindings: []InputParameters.GridBinding{
			{Elements: []int{1}, Resolution: 2, Data: "cloud"},
		},
	}
	fp.SetDefaults()
	require.NoError(t, fp.Validate())
	f, err := NewFitFromParameters(m, fp, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"cloud", "zero"}, f.DataLabels())
	assert.Equal(t, 1+2+4, len(f.Bindings()))
	require.NoError(t, f.UpdateFromMesh(m))
	assert.Equal(t, 3+2+12, f.NumRows())

	fp.Data["cloud"] = "missing.txt"
	_, err = NewFitFromParameters(m, fp, dir)
	assert.Error(t, err)
}
