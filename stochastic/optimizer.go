// Package stochastic implements first order optimizers that iterate over
// (mini-)batches of an objective: plain gradient descent and the adaptive
// rules AdaGrad, RMSProp, AdaMax and Adam, each optionally combined with
// standard or Nesterov momentum.
//
// When the objective is a function.Dual the variables are Lagrange
// multipliers and every step is projected so that they stay non-negative.
// A function.Bounded objective is projected onto its box 0 <= x <= Upper()
// the same way.
package stochastic

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/orthoressyco/optiml/common"
	"github.com/orthoressyco/optiml/function"
	"github.com/orthoressyco/optiml/write"
)

const (
	// boundTol is the distance from a bound at which a variable is treated
	// as being at it.
	boundTol = 1e-12
	// roundTol absorbs rounding when a projected step lands exactly on a
	// bound.
	roundTol = 1e-10
)

// Result is the outcome of a run.
type Result struct {
	*common.Result
	X      []float64 // Final iterate
	F      float64   // Full objective at X
	G      []float64 // Full gradient at X
	Epochs int       // Completed passes over the data
}

// Optimizer minimizes objectives with a step rule and momentum. An
// Optimizer holds configuration only and may run concurrently.
type Optimizer struct {
	rule     Rule
	settings Settings
}

// New validates the settings and returns an Optimizer using rule. A nil
// settings uses DefaultSettings.
func New(rule Rule, settings *Settings) (*Optimizer, error) {
	if rule == nil {
		return nil, errors.New("stochastic: nil rule")
	}
	if settings == nil {
		settings = DefaultSettings()
	}
	if err := settings.validate(); err != nil {
		return nil, err
	}
	s := *settings
	if s.Settings == nil {
		s.Settings = common.DefaultSettings()
	} else {
		s.Settings = copyCommon(s.Settings)
	}
	return &Optimizer{rule: rule, settings: s}, nil
}

// Settings returns a copy of the optimizer settings. The embedded common
// settings are copied too.
func (o *Optimizer) Settings() Settings {
	s := o.settings
	s.Settings = copyCommon(s.Settings)
	return s
}

// copyCommon copies cs down to its list of writers, so that later changes by
// the caller do not reach a running optimizer.
func copyCommon(cs *common.Settings) *common.Settings {
	c := *cs
	if c.Settings != nil {
		w := *c.Settings
		w.Writers = append([]write.Writer(nil), w.Writers...)
		c.Settings = &w
	}
	return &c
}

// run is the state of one call to Minimize.
type run struct {
	*common.Common
	conv common.Convergence

	epoch int
	f     float64
	gnorm float64
}

func (r *run) AppendWriteData(v []*write.Value) []*write.Value {
	v = append(v, &write.Value{Heading: "Epoch", Value: r.epoch})
	v = append(v, &write.Value{Heading: "Obj", Value: r.f})
	v = append(v, &write.Value{Heading: "GradNorm", Value: r.gnorm})
	return v
}

// Minimize runs the optimizer on f from x0, which is not modified. Each call
// owns its iterate, velocity and step rule state.
func (o *Optimizer) Minimize(f function.Function, x0 []float64) (*Result, error) {
	n := f.Dim()
	if len(x0) != n {
		return nil, errors.Errorf("stochastic: initial point has length %d, want %d", len(x0), n)
	}
	_, dual := f.(function.Dual)
	var upper []float64
	if b, ok := f.(function.Bounded); ok {
		upper = b.Upper()
	}
	projected := dual || upper != nil
	for i, v := range x0 {
		if projected && v < 0 {
			return nil, common.NewConfigError(fmt.Sprintf("initial point %d", i), v, "must not be negative")
		}
		if upper != nil && v > upper[i] {
			return nil, common.NewConfigError(fmt.Sprintf("initial point %d", i), v, "must not exceed the upper bound")
		}
	}

	s := &o.settings
	r := &run{Common: common.NewCommon()}
	r.AddDataAdder(r)
	if err := r.Init(s.Settings); err != nil {
		return nil, err
	}
	r.conv.Init(common.Tolerances{
		GradAbsTol:   s.Eps,
		ObjRelTol:    s.ObjRelTol,
		ObjRelWindow: s.ObjRelWindow,
	}, math.Inf(1), math.Inf(1))

	batched, isBatched := f.(function.Batched)
	var batches *batcher
	if isBatched {
		batches = newBatcher(batched.Size(), s.BatchSize, s.Shuffle, s.Seed)
	} else {
		batches = newBatcher(0, 0, false, 0)
	}
	eval := func(x []float64, batch []int) float64 {
		if batch == nil {
			return f.Function(x)
		}
		return batched.BatchFunction(x, batch)
	}
	grad := func(dst, x []float64, batch []int) {
		if batch == nil {
			f.Jacobian(dst, x)
			return
		}
		batched.BatchJacobian(dst, x, batch)
	}

	stepper := o.rule.NewStepper(n)
	x := append([]float64(nil), x0...)
	v := make([]float64, n)
	xe := make([]float64, n)
	g := make([]float64, n)
	pg := make([]float64, n)
	d := make([]float64, n)
	step := make([]float64, n)

	var status common.Status
	for {
		batch, end := batches.next()

		xeval := x
		if s.MomentumType == Nesterov {
			floats.AddScaledTo(xe, x, s.Momentum, v)
			xeval = xe
		}
		r.f = eval(xeval, batch)
		r.AddEvaluations(1)

		if s.Callback != nil && s.Callback(batch, x) {
			status = common.Stopped
			break
		}
		if end {
			r.epoch++
			if r.epoch >= s.Epochs {
				status = common.Stopped
				break
			}
		}

		grad(g, xeval, batch)
		gnorm := g
		if projected {
			projectGradient(pg, x, g, upper)
			gnorm = pg
		}
		r.gnorm = floats.Norm(gnorm, 2)
		if math.IsNaN(r.gnorm) || math.IsNaN(r.f) {
			status = common.Failure
			break
		}
		r.conv.Iterate(r.gnorm, r.f)
		if status = common.CheckStatus(&r.conv, r.Common); status != common.Continue {
			break
		}

		stepper.Direction(d, g)
		switch s.MomentumType {
		case NoMomentum:
			floats.ScaleTo(step, s.StepSize, d)
		default:
			floats.Scale(s.Momentum, v)
			floats.AddScaled(v, s.StepSize, d)
			copy(step, v)
		}
		if projected {
			projectStep(step, x, upper)
			if s.MomentumType != NoMomentum {
				copy(v, step)
			}
		}
		floats.Add(x, step)
		if projected {
			clean(x, upper)
		}

		if err := r.Iterate(0); err != nil {
			return nil, err
		}
	}

	if projected {
		for i, xi := range x {
			if xi < 0 || (upper != nil && xi > upper[i]) {
				panic(fmt.Sprintf("stochastic: variable %d is infeasible (%v) after projection", i, xi))
			}
		}
	}

	res := &Result{
		X:      x,
		G:      make([]float64, n),
		Epochs: r.epoch,
	}
	res.F = f.Function(x)
	f.Jacobian(res.G, x)
	r.AddEvaluations(1)
	cr, err := r.Result(status)
	res.Result = cr
	if status == common.Failure && err == nil {
		err = errors.New("stochastic: objective or gradient is NaN")
	}
	return res, err
}

// projectGradient zeroes the gradient components that could only be
// decreased by moving a variable at a bound out of the box. A nil upper
// means the variables are only bounded below by zero.
func projectGradient(dst, x, g, upper []float64) {
	for i, gi := range g {
		if x[i] <= boundTol && gi > 0 {
			dst[i] = 0
			continue
		}
		if upper != nil && x[i] >= upper[i]-boundTol && gi < 0 {
			dst[i] = 0
			continue
		}
		dst[i] = gi
	}
}

// projectStep makes step feasible for the box. Components pushing a
// variable at a bound out of the box are dropped, and the whole step is
// shortened to the largest length keeping every variable inside.
func projectStep(step, x, upper []float64) {
	maxT := 1.0
	for i, si := range step {
		var t float64
		switch {
		case si < 0:
			if x[i] <= boundTol {
				step[i] = 0
				continue
			}
			t = -x[i] / si
		case si > 0 && upper != nil:
			if x[i] >= upper[i]-boundTol {
				step[i] = 0
				continue
			}
			t = (upper[i] - x[i]) / si
		default:
			continue
		}
		if t < maxT {
			maxT = t
		}
	}
	if maxT < 1 {
		floats.Scale(maxT, step)
	}
}

// clean moves values that rounding left just outside the box onto the
// bound.
func clean(x, upper []float64) {
	for i, xi := range x {
		if xi < 0 && xi > -roundTol {
			x[i] = 0
		}
		if upper != nil && xi > upper[i] && xi < upper[i]+roundTol {
			x[i] = upper[i]
		}
	}
}
