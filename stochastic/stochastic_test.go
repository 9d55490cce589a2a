package stochastic

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/orthoressyco/optiml/common"
	"github.com/orthoressyco/optiml/function"
	"github.com/orthoressyco/optiml/write"
)

func mustRule(r Rule, err error) Rule {
	if err != nil {
		panic(err)
	}
	return r
}

func relErr(x, want []float64) float64 {
	var m float64
	for i := range x {
		m = math.Max(m, math.Abs(x[i]-want[i])/math.Abs(want[i]))
	}
	return m
}

type quadTest struct {
	name     string
	rule     Rule
	step     float64
	momentum MomentumType
}

func quadTests() []quadTest {
	adaGrad := mustRule(NewAdaGrad(1e-8))
	rms := mustRule(NewRMSProp(0.9))
	return []quadTest{
		{"GD", GradientDescent{}, 0.1, NoMomentum},
		{"GD standard", GradientDescent{}, 0.01, Standard},
		{"GD nesterov", GradientDescent{}, 0.01, Nesterov},
		{"AdaGrad", adaGrad, 1, NoMomentum},
		{"AdaGrad standard", adaGrad, 0.1, Standard},
		{"AdaGrad nesterov", adaGrad, 0.1, Nesterov},
		{"RMSProp", rms, 0.01, NoMomentum},
		{"RMSProp standard", rms, 0.001, Standard},
		{"RMSProp nesterov", rms, 0.001, Nesterov},
		{"AdaMax", DefaultAdaMax(), 0.1, NoMomentum},
		{"AdaMax standard", DefaultAdaMax(), 0.01, Standard},
		{"AdaMax nesterov", DefaultAdaMax(), 0.01, Nesterov},
		{"Adam", DefaultAdam(), 0.1, NoMomentum},
	}
}

func TestQuadratics(t *testing.T) {
	for _, test := range quadTests() {
		for _, f := range []*function.Quadratic{function.Quad1(), function.Quad2()} {
			s := DefaultSettings()
			s.StepSize = test.step
			s.MomentumType = test.momentum
			s.Momentum = 0.9
			opt, err := New(test.rule, s)
			require.NoError(t, err, test.name)

			res, err := opt.Minimize(f, []float64{0, 0})
			require.NoError(t, err, test.name)
			assert.Less(t, relErr(res.X, f.XStar()), 1e-2, "%s: got %v want %v", test.name, res.X, f.XStar())
			assert.InDelta(t, f.FStar(), res.F, 1e-2*math.Abs(f.FStar()), test.name)
		}
	}
}

func TestGradientDescentIsOptimal(t *testing.T) {
	f := function.Quad1()
	s := DefaultSettings()
	s.StepSize = 0.1
	opt, err := New(GradientDescent{}, s)
	require.NoError(t, err)
	res, err := opt.Minimize(f, []float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, common.Optimal, res.Status)
	assert.Less(t, relErr(res.X, f.XStar()), 1e-6)
	assert.Equal(t, res.Iterations+1, res.Epochs)
}

func TestEpochBudget(t *testing.T) {
	s := DefaultSettings()
	s.StepSize = 1e-4
	s.Epochs = 10
	opt, err := New(GradientDescent{}, s)
	require.NoError(t, err)
	res, err := opt.Minimize(function.Quad1(), []float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, common.Stopped, res.Status)
	assert.Equal(t, 10, res.Epochs)
	assert.Equal(t, 9, res.Iterations)
}

func TestIterationBudget(t *testing.T) {
	s := DefaultSettings()
	s.StepSize = 1e-4
	s.MaximumIterations = 5
	opt, err := New(GradientDescent{}, s)
	require.NoError(t, err)
	res, err := opt.Minimize(function.Quad1(), []float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, common.Stopped, res.Status)
	assert.Equal(t, 5, res.Iterations)
}

func TestCallbackStops(t *testing.T) {
	var calls int
	s := DefaultSettings()
	s.Callback = func(batch []int, x []float64) bool {
		calls++
		return calls == 5
	}
	opt, err := New(GradientDescent{}, s)
	require.NoError(t, err)
	res, err := opt.Minimize(function.Quad2(), []float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, common.Stopped, res.Status)
	assert.Equal(t, 5, calls)
	assert.Equal(t, 4, res.Iterations)
}

func lineData(t *testing.T) *function.LeastSquares {
	X := mat.NewDense(4, 2, []float64{
		1, 0,
		1, 1,
		1, 2,
		1, 3,
	})
	f, err := function.NewLeastSquares(X, []float64{1, 3, 5, 7})
	require.NoError(t, err)
	return f
}

func TestMiniBatch(t *testing.T) {
	f := lineData(t)
	s := DefaultSettings()
	s.StepSize = 0.1
	s.BatchSize = 2
	s.Epochs = 2000
	s.Seed = 3

	var sizes []int
	s.Callback = func(batch []int, x []float64) bool {
		sizes = append(sizes, len(batch))
		return false
	}
	opt, err := New(GradientDescent{}, s)
	require.NoError(t, err)
	res, err := opt.Minimize(f, []float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, common.Optimal, res.Status)
	assert.InDelta(t, 1, res.X[0], 1e-4)
	assert.InDelta(t, 2, res.X[1], 1e-4)
	for _, n := range sizes {
		assert.Equal(t, 2, n)
	}
	assert.Equal(t, (res.Iterations+1)/2, res.Epochs)
}

func TestDeterministic(t *testing.T) {
	f := lineData(t)
	s := DefaultSettings()
	s.StepSize = 0.05
	s.BatchSize = 1
	s.Epochs = 20
	s.Seed = 42
	s.MomentumType = Nesterov
	s.Momentum = 0.5
	opt, err := New(DefaultAdam(), s)
	require.NoError(t, err)

	a, err := opt.Minimize(f, []float64{0.5, 0.5})
	require.NoError(t, err)
	b, err := opt.Minimize(f, []float64{0.5, 0.5})
	require.NoError(t, err)
	assert.Equal(t, a.X, b.X)
	assert.Equal(t, a.Iterations, b.Iterations)
}

func TestBatcher(t *testing.T) {
	b := newBatcher(5, 2, true, 1)
	for pass := 0; pass < 3; pass++ {
		seen := make(map[int]bool)
		var ends int
		for k := 0; k < 3; k++ {
			batch, end := b.next()
			for _, i := range batch {
				seen[i] = true
			}
			if end {
				ends++
				assert.Len(t, batch, 1)
			}
		}
		assert.Len(t, seen, 5)
		assert.Equal(t, 1, ends)
	}

	full := newBatcher(5, 0, true, 1)
	batch, end := full.next()
	assert.Nil(t, batch)
	assert.True(t, end)

	ordered := newBatcher(4, 3, false, 1)
	batch, end = ordered.next()
	assert.Equal(t, []int{0, 1, 2}, batch)
	assert.False(t, end)
	batch, end = ordered.next()
	assert.Equal(t, []int{3}, batch)
	assert.True(t, end)
}

func TestConfigErrors(t *testing.T) {
	for _, decay := range []float64{-0.1, 1, 1.5} {
		_, err := NewRMSProp(decay)
		assert.True(t, common.IsConfigError(err), "decay %v", decay)
	}
	_, err := NewAdaMax(0.9, 1, 1e-8)
	assert.True(t, common.IsConfigError(err))
	_, err = NewAdam(-0.5, 0.9, 1e-8)
	assert.True(t, common.IsConfigError(err))
	_, err = NewAdaGrad(-1)
	assert.True(t, common.IsConfigError(err))

	_, err = ParseMomentumType("heavy")
	assert.True(t, common.IsConfigError(err))
	m, err := ParseMomentumType("nesterov")
	require.NoError(t, err)
	assert.Equal(t, Nesterov, m)
	assert.Equal(t, "standard", Standard.String())

	for _, modify := range []func(*Settings){
		func(s *Settings) { s.Momentum = 1 },
		func(s *Settings) { s.Momentum = -0.2 },
		func(s *Settings) { s.MomentumType = MomentumType(7) },
		func(s *Settings) { s.StepSize = 0 },
		func(s *Settings) { s.Epochs = 0 },
		func(s *Settings) { s.BatchSize = -1 },
	} {
		s := DefaultSettings()
		modify(s)
		_, err := New(GradientDescent{}, s)
		assert.True(t, common.IsConfigError(err))
	}

	opt, err := New(GradientDescent{}, nil)
	require.NoError(t, err)
	_, err = opt.Minimize(function.Quad1(), []float64{0})
	assert.Error(t, err)
}

func boxDual(t *testing.T) *function.LagrangianDual {
	box, err := function.NewBoxQuadratic(
		mat.NewSymDense(2, []float64{2, 0.5, 0.5, 1}),
		[]float64{-4, 1},
		[]float64{1, 1},
	)
	require.NoError(t, err)
	d, err := function.NewLagrangianDual(box)
	require.NoError(t, err)
	return d
}

func TestLagrangianDual(t *testing.T) {
	d := boxDual(t)
	for _, test := range []quadTest{
		{"GD", GradientDescent{}, 0.1, NoMomentum},
		{"GD standard", GradientDescent{}, 0.05, Standard},
		{"GD nesterov", GradientDescent{}, 0.05, Nesterov},
		{"AdaGrad", mustRule(NewAdaGrad(1e-8)), 0.5, NoMomentum},
		{"RMSProp", mustRule(NewRMSProp(0.9)), 0.05, NoMomentum},
		{"AdaMax", DefaultAdaMax(), 0.1, NoMomentum},
	} {
		s := DefaultSettings()
		s.StepSize = test.step
		s.Epochs = 2000
		s.MomentumType = test.momentum
		s.Callback = func(batch []int, lambda []float64) bool {
			for _, l := range lambda {
				require.GreaterOrEqual(t, l, 0.0, test.name)
			}
			return false
		}
		opt, err := New(test.rule, s)
		require.NoError(t, err, test.name)
		res, err := opt.Minimize(d, make([]float64, 4))
		require.NoError(t, err, test.name)
		assert.Equal(t, common.Optimal, res.Status, test.name)
		for _, l := range res.X {
			assert.GreaterOrEqual(t, l, 0.0, test.name)
		}

		x := make([]float64, 2)
		d.Primal(x, res.X)
		d.Box().Project(x, x)
		assert.InDelta(t, 1, x[0], 1e-5, test.name)
		assert.InDelta(t, 0, x[1], 1e-5, test.name)
	}

	opt, err := New(GradientDescent{}, nil)
	require.NoError(t, err)
	_, err = opt.Minimize(d, []float64{0, -1, 0, 0})
	assert.True(t, common.IsConfigError(err))
}

func TestProjectStep(t *testing.T) {
	x := []float64{0, 1, 2}
	step := []float64{-1, -2, 1}
	projectStep(step, x, nil)
	assert.Equal(t, []float64{0, -1, 0.5}, step)

	g := make([]float64, 3)
	projectGradient(g, []float64{0, 0, 1}, []float64{1, -1, 1}, nil)
	assert.Equal(t, []float64{0, -1, 1}, g)

	upper := []float64{1, 3, 4}
	step = []float64{1, 4, -1}
	projectStep(step, []float64{1, 1, 2}, upper)
	assert.Equal(t, []float64{0, 2, -0.5}, step)

	projectGradient(g, []float64{1, 1, 4}, []float64{-1, -1, 1}, upper)
	assert.Equal(t, []float64{0, -1, 1}, g)
}

func TestBoundedBox(t *testing.T) {
	box, err := function.NewBoxQuadratic(
		mat.NewSymDense(2, []float64{2, 0.5, 0.5, 1}),
		[]float64{-4, 1},
		[]float64{1, 1},
	)
	require.NoError(t, err)
	for _, test := range []quadTest{
		{"GD", GradientDescent{}, 0.1, NoMomentum},
		{"GD standard", GradientDescent{}, 0.05, Standard},
		{"AdaMax", DefaultAdaMax(), 0.1, NoMomentum},
	} {
		s := DefaultSettings()
		s.StepSize = test.step
		s.Epochs = 2000
		s.MomentumType = test.momentum
		s.Callback = func(batch []int, x []float64) bool {
			for i, xi := range x {
				require.GreaterOrEqual(t, xi, 0.0, test.name)
				require.LessOrEqual(t, xi, box.Upper()[i], test.name)
			}
			return false
		}
		opt, err := New(test.rule, s)
		require.NoError(t, err, test.name)
		res, err := opt.Minimize(box, []float64{0, 0})
		require.NoError(t, err, test.name)
		assert.Equal(t, common.Optimal, res.Status, test.name)
		assert.InDelta(t, 1, res.X[0], 1e-9, test.name)
		assert.InDelta(t, 0, res.X[1], 1e-9, test.name)
	}

	opt, err := New(GradientDescent{}, nil)
	require.NoError(t, err)
	_, err = opt.Minimize(box, []float64{0, 2})
	assert.True(t, common.IsConfigError(err))
}

func TestSettingsAreCopied(t *testing.T) {
	s := DefaultSettings()
	s.StepSize = 0.1
	opt, err := New(GradientDescent{}, s)
	require.NoError(t, err)

	var buf bytes.Buffer
	s.MaximumIterations = 1
	s.Writers = append(s.Writers, write.Writer{Writer: &buf, Type: write.Logger})
	s.StepSize = 10

	got := opt.Settings()
	assert.Equal(t, -1, got.MaximumIterations)
	assert.Empty(t, got.Writers)
	assert.Equal(t, 0.1, got.StepSize)

	got.MaximumIterations = 1
	assert.Equal(t, -1, opt.Settings().MaximumIterations)

	res, err := opt.Minimize(function.Quad1(), []float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, common.Optimal, res.Status)
	assert.Zero(t, buf.Len())
}
