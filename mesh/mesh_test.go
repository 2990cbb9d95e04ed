package mesh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitQuad is a bilinear element on the unit square at z = 0
func unitQuad(t *testing.T) (m *Mesh) {
	m = NewMesh("quad", 3)
	require.NoError(t, m.AddNode(1, []float64{0, 0, 0}))
	require.NoError(t, m.AddNode(2, []float64{1, 0, 0}))
	require.NoError(t, m.AddNode(3, []float64{0, 1, 0}))
	require.NoError(t, m.AddNode(4, []float64{1, 1, 0}))
	require.NoError(t, m.AddElement(1, []string{"L1", "L1"}, []int{1, 2, 3, 4}))
	require.NoError(t, m.Generate())
	return
}

func TestMesh(t *testing.T) {
	m := unitQuad(t)
	assert.True(t, m.IsGenerated())
	assert.Equal(t, 12, m.NumParameters())
	assert.Equal(t, []int{1, 2, 3, 4}, m.NodeIDs())
	assert.Equal(t, []int{1}, m.ElementIDs())
	dims, err := m.ElementDims(1)
	assert.NoError(t, err)
	assert.Equal(t, 2, dims)
	{
		x, err := m.EvaluateElement(1, []float64{0.5, 0.5})
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{0.5, 0.5, 0}, x, 1.e-14)
		x, err = m.EvaluateElement(1, []float64{1, 0})
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{1, 0, 0}, x, 1.e-14)
		dx, err := m.EvaluateDerivative(1, []float64{0.2, 0.7}, 1)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{0, 1, 0}, dx, 1.e-12)
	}
	{
		ind, err := m.NodeParameterIndex(3, 0, 1)
		require.NoError(t, err)
		assert.Equal(t, 7, ind)
		ids, w, err := m.ShapeWeights(1, []float64{0.25, 0})
		require.NoError(t, err)
		assert.Equal(t, [][]int{{0, 3, 6, 9}, {1, 4, 7, 10}, {2, 5, 8, 11}}, ids)
		assert.InDeltaSlice(t, []float64{0.75, 0.25, 0, 0}, w, 1.e-14)
	}
	// Moving parameters moves the interpolated geometry
	{
		require.NoError(t, m.SetParameterSubvector([]int{2, 5, 8, 11}, []float64{1, 1, 1, 1}))
		x, _ := m.EvaluateElement(1, []float64{0.3, 0.3})
		assert.InDelta(t, 1., x[2], 1.e-14)
		vals, err := m.NodeValues(4, 0)
		assert.NoError(t, err)
		assert.Equal(t, []float64{1, 1, 1}, vals)
	}
	// Errors
	{
		_, err := m.EvaluateElement(9, []float64{0, 0})
		assert.True(t, errors.Is(err, ErrUnknownElement))
		_, err = m.EvaluateElement(1, []float64{0})
		assert.True(t, errors.Is(err, ErrBadXi))
		_, err = m.NodeValues(9, 0)
		assert.True(t, errors.Is(err, ErrUnknownNode))
		_, err = m.NodeParameterIndex(1, 1, 0)
		assert.Error(t, err)
		assert.Error(t, m.AddNode(1, []float64{0, 0, 0}))
		assert.Error(t, m.AddNode(5, []float64{0, 0}))
		assert.Error(t, m.AddElement(2, []string{"L1", "L1"}, []int{1, 2, 3}))
		assert.Error(t, m.AddElement(1, []string{"L1"}, []int{1, 2}))
	}
	// Adding topology invalidates the parameter layout
	{
		require.NoError(t, m.AddNode(5, []float64{2, 0, 0}))
		assert.False(t, m.IsGenerated())
		_, err := m.Element(1)
		assert.True(t, errors.Is(err, ErrNotGenerated))
		require.NoError(t, m.AddElement(2, []string{"L1"}, []int{2, 6}))
		assert.True(t, errors.Is(m.Generate(), ErrUnknownNode))
	}
}

func TestMeshFieldsAndFixedParameters(t *testing.T) {
	m := NewMesh("line", 2)
	require.NoError(t, m.AddNode(1, []float64{0, 0}, []float64{1, 0}))
	require.NoError(t, m.AddNode(2, []float64{1, 0}))
	require.NoError(t, m.AddElement(1, []string{"L1"}, []int{1, 2}))
	require.NoError(t, m.Generate())
	assert.Equal(t, 6, m.NumParameters())
	ind, err := m.NodeParameterIndex(1, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, ind)
	ind, _ = m.NodeParameterIndex(2, 0, 1)
	assert.Equal(t, 5, ind)

	require.NoError(t, m.FixNode(1, 0))
	assert.Equal(t, []int{0, 1}, []int(m.FixedParameters()))
	assert.Equal(t, []int{2, 3, 4, 5}, []int(m.FreeParameters()))
	assert.Equal(t, []float64{1, 0, 1, 0}, m.Variables())
	require.NoError(t, m.SetVariables([]float64{5, 6, 2, 3}))
	assert.Equal(t, []float64{0, 0, 5, 6, 2, 3}, m.P)
	assert.Error(t, m.SetVariables([]float64{1}))
	m.FixParameter(5)
	assert.Equal(t, []float64{5, 6, 2}, m.Variables())
	assert.Error(t, m.FixNode(2, 1))
	fixed, err := m.NodeFixed(1, 0)
	require.NoError(t, err)
	assert.True(t, fixed)
	fixed, _ = m.NodeFixed(1, 1)
	assert.False(t, fixed)
	// One of two parameters fixed is not a fixed node
	fixed, _ = m.NodeFixed(2, 0)
	assert.False(t, fixed)
	_, err = m.NodeFixed(2, 1)
	assert.Error(t, err)
	_, err = m.NodeFixed(9, 0)
	assert.Error(t, err)
}

func TestProjectElement(t *testing.T) {
	{
		m := NewMesh("line", 2)
		require.NoError(t, m.AddNode(1, []float64{0, 0}))
		require.NoError(t, m.AddNode(2, []float64{2, 0}))
		require.NoError(t, m.AddElement(1, []string{"L1"}, []int{1, 2}))
		require.NoError(t, m.Generate())
		xi, err := m.ProjectElement(1, []float64{0.5, 3})
		require.NoError(t, err)
		assert.InDelta(t, 0.25, xi, 1.e-14)
		// Unclamped beyond the ends
		xi, _ = m.ProjectElement(1, []float64{3, -1})
		assert.InDelta(t, 1.5, xi, 1.e-14)
		xi, _ = m.ProjectElement(1, []float64{-1, 0})
		assert.InDelta(t, -0.5, xi, 1.e-14)
		_, err = m.ProjectElement(1, []float64{0, 0, 0})
		assert.Error(t, err)
	}
	// Quadratic element with x = xi^2
	{
		m := NewMesh("curve", 2)
		require.NoError(t, m.AddNode(1, []float64{0, 0}))
		require.NoError(t, m.AddNode(2, []float64{0.25, 0}))
		require.NoError(t, m.AddNode(3, []float64{1, 0}))
		require.NoError(t, m.AddElement(1, []string{"L2"}, []int{1, 2, 3}))
		require.NoError(t, m.Generate())
		xi, err := m.ProjectElement(1, []float64{0.49, 0})
		require.NoError(t, err)
		assert.InDelta(t, 0.7, xi, 1.e-9)
	}
	{
		m := unitQuad(t)
		_, err := m.ProjectElement(1, []float64{0, 0, 0})
		assert.True(t, errors.Is(err, ErrBadXi))
	}
}
