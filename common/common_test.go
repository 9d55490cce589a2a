package common

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orthoressyco/optiml/write"
)

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Optimal", Optimal.String())
	assert.Equal(t, "Stopped", Stopped.String())
	assert.Equal(t, "Running", Continue.String())
	assert.Equal(t, "UnregisteredStatus", Status(99).String())
	assert.True(t, Optimal.Converged())
	assert.True(t, ObjChangeTol.Converged())
	assert.False(t, Stopped.Converged())
	assert.False(t, Failure.Converged())
}

func TestCommonIterationBudget(t *testing.T) {
	s := DefaultSettings()
	s.MaximumIterations = 3
	c := NewCommon()
	require.NoError(t, c.Init(s))
	for i := 0; i < 3; i++ {
		assert.Equal(t, Continue, c.Status())
		require.NoError(t, c.Iterate(2))
	}
	assert.Equal(t, Stopped, c.Status())

	r, err := c.Result(Stopped)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Iterations)
	assert.Equal(t, 6, r.FunctionEvaluations)
	assert.Equal(t, Stopped, r.Status)
}

func TestCommonEvaluationBudget(t *testing.T) {
	s := DefaultSettings()
	s.MaximumFunctionEvaluations = 4
	c := NewCommon()
	require.NoError(t, c.Init(s))
	c.AddEvaluations(3)
	assert.Equal(t, Continue, c.Status())
	require.NoError(t, c.Iterate(1))
	assert.Equal(t, Stopped, c.Status())
}

func TestCommonTrace(t *testing.T) {
	var buf bytes.Buffer
	s := DefaultSettings()
	s.Settings = &write.Settings{Writers: []write.Writer{{Writer: &buf, Type: write.Logger}}}
	c := NewCommon()
	require.NoError(t, c.Init(s))
	require.NoError(t, c.Iterate(1))
	_, err := c.Result(Optimal)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Iter,FnEval", lines[0])
	assert.Equal(t, "1,1", lines[1])
}

func TestUniToler(t *testing.T) {
	var tol UniToler
	tol.Init(1e-3, -1, 0, 1)
	assert.False(t, tol.AbsConverged())
	tol.Add(1e-4)
	assert.True(t, tol.AbsConverged())
	assert.False(t, tol.RelConverged())

	tol.Init(math.NaN(), 1e-2, 3, 10)
	assert.False(t, tol.AbsConverged())
	tol.Add(5)
	assert.False(t, tol.RelConverged(), "window not filled yet")
	tol.Add(5.001)
	tol.Add(5.002)
	assert.True(t, tol.RelConverged())
}

func TestConvergence(t *testing.T) {
	var c Convergence
	c.Init(DefaultTolerances(1e-6), 3, 1)
	assert.Equal(t, Continue, c.Status())
	c.Iterate(1e-7, 2)
	assert.Equal(t, Optimal, c.Status())

	tol := DefaultTolerances(math.NaN())
	tol.ObjRelTol = 1e-3
	tol.ObjRelWindow = 2
	c.Init(tol, 3, 1)
	c.Iterate(1, 3)
	c.Iterate(1, 3)
	assert.Equal(t, ObjChangeTol, c.Status())
}

func TestConfigError(t *testing.T) {
	err := CheckUnitInterval("momentum", 1)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "momentum")
	assert.NoError(t, CheckUnitInterval("momentum", 0))
	assert.Error(t, CheckUnitInterval("decay", -0.1))
	assert.Error(t, CheckUnitInterval("decay", math.NaN()))
}
