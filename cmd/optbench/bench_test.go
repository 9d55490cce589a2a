package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orthoressyco/optiml/common"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBenchMethods(t *testing.T) {
	for _, test := range []struct {
		args []string
	}{
		{[]string{"--method", "bfgs"}},
		{[]string{"--method", "lbfgs", "--function", "rosenbrock", "--dim", "4", "--max-iter", "500"}},
		{[]string{"--method", "steepest", "--function", "quad1"}},
		{[]string{"--method", "gd", "--step", "0.1", "--epochs", "5000", "--momentum", "nesterov"}},
		{[]string{"--method", "adam", "--step", "0.05", "--epochs", "5000"}},
	} {
		out, err := execute(t, test.args...)
		require.NoError(t, err, "args %v", test.args)
		assert.Contains(t, out, "status=", "args %v", test.args)
		assert.Contains(t, out, "|x-x*|=", "args %v", test.args)
	}
}

func TestBenchLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")
	_, err := execute(t, "--method", "bfgs", "--log", path)
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "Iter,FnEval,Obj,GradNorm"), lines[0])
}

func TestBenchErrors(t *testing.T) {
	_, err := execute(t, "--method", "newton")
	assert.True(t, common.IsConfigError(err))
	_, err = execute(t, "--function", "himmelblau")
	assert.True(t, common.IsConfigError(err))
	_, err = execute(t, "--function", "rosenbrock", "--dim", "1")
	assert.True(t, common.IsConfigError(err))
	_, err = execute(t, "--method", "gd", "--momentum", "sideways")
	assert.Error(t, err)
	_, err = execute(t, "boxqp", "--solver", "simplex")
	assert.True(t, common.IsConfigError(err))
}

func TestBoxQP(t *testing.T) {
	for _, solver := range []string{"activeset", "interior", "projected"} {
		out, err := execute(t, "boxqp", "--n", "10", "--seed", "3", "--solver", solver)
		require.NoError(t, err, solver)
		assert.Contains(t, out, "solver="+solver)
		assert.Contains(t, out, "kkt=")
	}
}
