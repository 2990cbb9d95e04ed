package InputParameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitParameters(t *testing.T) {
	{
		input := `
Title: "Plane fit"
Solver: svd
WarmStart: false
Data:
  cloud: cloud.txt
ScalarData:
  zero: 0.
ElementBindings:
  - {Element: 1, Xi: [0.5, 0.5], Data: cloud, Index: 4, Weight: 2}
NodeBindings:
  - {Nodes: [1, 2], Field: 0, Component: 2, Value: 0.5}
  - {Nodes: [3], Component: 1, Data: zero}
GridBindings:
  - {Data: cloud}
`
		fp := &FitParameters{}
		require.NoError(t, fp.Parse([]byte(input)))
		assert.Equal(t, "Plane fit", fp.Title)
		assert.Equal(t, "solve", fp.Mode)
		assert.Equal(t, "svd", fp.Solver)
		require.NotNil(t, fp.WarmStart)
		assert.False(t, *fp.WarmStart)
		assert.Equal(t, 10, fp.Iterations())
		assert.Equal(t, 1.e-9, fp.Tolerance)
		assert.Equal(t, "cloud.txt", fp.Data["cloud"])
		assert.Equal(t, 0., fp.ScalarData["zero"])
		require.Equal(t, 1, len(fp.ElementBindings))
		eb := fp.ElementBindings[0]
		assert.Equal(t, []float64{0.5, 0.5}, eb.Xi)
		require.NotNil(t, eb.Index)
		assert.Equal(t, 4, *eb.Index)
		assert.Equal(t, 2., eb.Weight)
		require.Equal(t, 2, len(fp.NodeBindings))
		assert.Equal(t, []int{1, 2}, fp.NodeBindings[0].Nodes)
		assert.Equal(t, 0.5, *fp.NodeBindings[0].Value)
		assert.Equal(t, 1., fp.NodeBindings[0].Weight)
		assert.Nil(t, fp.NodeBindings[1].Value)
		assert.Nil(t, fp.NodeBindings[1].Index)
		// Grid resolution defaults to the sample resolution
		assert.Equal(t, 5, fp.GridBindings[0].Resolution)
		fp.Print()
	}
	{
		fp := &FitParameters{}
		require.NoError(t, fp.Parse([]byte("Mode: optimize\nOptimizeData: cloud\nDirection: d2mp\nNonlinearMethod: lbfgs\nProjectElements: [3, 4]\n")))
		s, err := fp.OptimizeSettings()
		require.NoError(t, err)
		assert.Equal(t, [2]int{3, 4}, s.ProjectElements)
		assert.Equal(t, 5, s.SampleResolution)
		assert.True(t, *fp.WarmStart)
		fp.Print()
	}
	{ // Zero iterations is kept, not defaulted
		fp := &FitParameters{}
		require.NoError(t, fp.Parse([]byte("MaxIterations: 0\n")))
		require.NotNil(t, fp.MaxIterations)
		assert.Equal(t, 0, fp.Iterations())
	}
	for _, bad := range []string{
		"Mode: extrapolate",
		"Solver: cholesky",
		"Mode: optimize\nOptimizeData: cloud\nDirection: up",
		"Mode: optimize\nOptimizeData: cloud\nNonlinearMethod: newton",
		"Mode: optimize",
		"NodeBindings:\n  - {Nodes: [1], Data: cloud, Value: 1}",
		"NodeBindings:\n  - {Nodes: [1]}",
		"ElementBindings:\n  - {Element: 1, Xi: [0.5]}",
		"Title: [unterminated",
		"MaxIterations: -1",
	} {
		fp := &FitParameters{}
		assert.Errorf(t, fp.Parse([]byte(bad)), "input %q", bad)
	}
}
