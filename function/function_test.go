package function

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/functions"
)

func checkGradient(t *testing.T, name string, f Function, x []float64, tol float64) {
	t.Helper()
	got := make([]float64, f.Dim())
	f.Jacobian(got, x)
	want := fd.Gradient(nil, f.Function, x, &fd.Settings{Formula: fd.Central})
	assert.True(t, floats.EqualApprox(got, want, tol), "%s: gradient %v, finite difference %v", name, got, want)
}

func TestQuadraticOptima(t *testing.T) {
	for _, test := range []struct {
		name  string
		f     *Quadratic
		xStar []float64
		fStar float64
	}{
		{"quad1", Quad1(), []float64{-2.1875, -1.5625}, -14.84375},
		{"quad2", Quad2(), []float64{-4.0625, -3.4375}, -28.90625},
		{"quad5", Quad5(), []float64{-3.7625, -3.7375}, -28.15625},
	} {
		assert.True(t, floats.EqualApprox(test.f.XStar(), test.xStar, 1e-10), test.name)
		assert.InDelta(t, test.fStar, test.f.FStar(), 1e-10, test.name)

		g := make([]float64, 2)
		test.f.Jacobian(g, test.xStar)
		assert.Less(t, floats.Norm(g, 2), 1e-10, test.name)
		checkGradient(t, test.name, test.f, []float64{0.3, -1.2}, 1e-6)
	}
}

func TestQuadraticSingular(t *testing.T) {
	f, err := NewQuadratic(mat.NewSymDense(2, []float64{1, 1, 1, 1}), []float64{1, 0})
	require.NoError(t, err)
	assert.Nil(t, f.XStar())

	_, err = NewQuadratic(mat.NewSymDense(2, nil), []float64{1})
	assert.Error(t, err)
}

func TestRosenbrock(t *testing.T) {
	r := Rosenbrock{N: 4}
	var oracle functions.ExtendedRosenbrock
	x := []float64{-1.2, 1, 0.3, 2}
	assert.InDelta(t, oracle.Func(x), r.Function(x), 1e-12)

	want := make([]float64, 4)
	oracle.Grad(want, x)
	got := make([]float64, 4)
	r.Jacobian(got, x)
	assert.True(t, floats.EqualApprox(got, want, 1e-10))

	h := mat.NewSymDense(4, nil)
	r.Hessian(h, x)
	hfd := mat.NewSymDense(4, nil)
	fd.Hessian(hfd, r.Function, x, &fd.Settings{Formula: fd.Central})
	assert.True(t, mat.EqualApprox(h, hfd, 1e-3))

	assert.Equal(t, 0.0, r.Function(r.XStar()))
	r.Jacobian(got, r.XStar())
	assert.Equal(t, []float64{0, 0, 0, 0}, got)
}

func TestBoxQuadratic(t *testing.T) {
	_, err := NewBoxQuadratic(mat.NewSymDense(2, []float64{2, 0, 0, 2}), []float64{1, 1}, []float64{1, 0})
	assert.Error(t, err, "zero upper bound")

	b, err := NewBoxQuadratic(mat.NewSymDense(2, []float64{2, 0, 0, 2}), []float64{1, 1}, []float64{1, 2})
	require.NoError(t, err)
	assert.True(t, b.Feasible([]float64{0, 2}, 0))
	assert.False(t, b.Feasible([]float64{-1e-3, 1}, 1e-6))

	dst := make([]float64, 2)
	b.Project(dst, []float64{-3, 5})
	assert.Equal(t, []float64{0, 2}, dst)

	var _ Bounded = b
	var _ Hessianer = b
	_, isOptimum := interface{}(b).(Optimum)
	assert.False(t, isOptimum)
}

func TestRandomBoxQuadratic(t *testing.T) {
	opts := DefaultRandomBoxOptions()
	a, err := NewRandomBoxQuadratic(6, 3, opts)
	require.NoError(t, err)
	b, err := NewRandomBoxQuadratic(6, 3, opts)
	require.NoError(t, err)
	assert.Equal(t, a.Upper(), b.Upper())
	assert.Equal(t, a.Quad.Linear(), b.Quad.Linear())

	var chol mat.Cholesky
	assert.True(t, chol.Factorize(a.Quad.Q), "Q must be positive definite")
	for _, u := range a.Upper() {
		assert.True(t, u >= 1 && u <= opts.MaxUpper)
	}
	checkGradient(t, "random box", a, a.Upper(), 1e-6)

	_, err = NewRandomBoxQuadratic(0, 1, opts)
	assert.Error(t, err)
}

func TestLagrangianDual(t *testing.T) {
	// The unconstrained minimizer (0.5, 0.25) lies inside the box, so the
	// dual minimum is at zero multipliers.
	box, err := NewBoxQuadratic(mat.NewSymDense(2, []float64{2, 0, 0, 4}), []float64{-1, -1}, []float64{1, 1})
	require.NoError(t, err)
	d, err := NewLagrangianDual(box)
	require.NoError(t, err)
	require.Equal(t, 4, d.Dim())

	lambda := make([]float64, 4)
	x := make([]float64, 2)
	d.Primal(x, lambda)
	assert.True(t, floats.EqualApprox(x, []float64{0.5, 0.25}, 1e-12))
	assert.InDelta(t, -box.Function(x), d.Function(lambda), 1e-12)

	checkGradient(t, "dual", d, []float64{0.3, 0.1, 0.7, 0.2}, 1e-6)

	// Weak duality: every multiplier gives a lower bound on the primal.
	lambda = []float64{0.1, 2, 0.5, 0.3}
	assert.GreaterOrEqual(t, d.Function(lambda), -box.Function(x))

	singular, err := NewBoxQuadratic(mat.NewSymDense(2, []float64{1, 1, 1, 1}), []float64{1, 1}, []float64{1, 1})
	require.NoError(t, err)
	_, err = NewLagrangianDual(singular)
	assert.Error(t, err)
}

func TestLeastSquares(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 0,
		1, 1,
		1, 2,
		1, 3,
	})
	y := []float64{1, 3, 5, 7}
	f, err := NewLeastSquares(X, y)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Size())
	assert.InDelta(t, 0, f.Function([]float64{1, 2}), 1e-14)

	w := []float64{0.5, -0.3}
	checkGradient(t, "least squares", f, w, 1e-6)

	// Each single-sample batch averages to the full objective.
	var sum float64
	for i := 0; i < f.Size(); i++ {
		sum += f.BatchFunction(w, []int{i})
	}
	assert.InDelta(t, f.Function(w), sum/4, 1e-12)

	_, err = NewLeastSquares(X, y[:3])
	assert.Error(t, err)
}

func TestCrossEntropy(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, -2,
		1, -1,
		1, 1,
		1, 2,
	})
	f, err := NewCrossEntropy(X, []float64{0, 0, 1, 1}, 0.1)
	require.NoError(t, err)
	checkGradient(t, "cross entropy", f, []float64{0.2, 0.7}, 1e-6)

	g := make([]float64, 2)
	f.BatchJacobian(g, []float64{0.2, 0.7}, []int{1, 3})
	want := fd.Gradient(nil, func(w []float64) float64 {
		return f.BatchFunction(w, []int{1, 3})
	}, []float64{0.2, 0.7}, &fd.Settings{Formula: fd.Central})
	assert.True(t, floats.EqualApprox(g, want, 1e-6))

	assert.InDelta(t, 0.5, Sigmoid(0), 1e-15)
	assert.InDelta(t, 1, Sigmoid(800), 1e-15)
	assert.InDelta(t, 0, Sigmoid(-800), 1e-15)

	_, err = NewCrossEntropy(X, []float64{0, 2, 1, 1}, 0)
	assert.Error(t, err)
}
