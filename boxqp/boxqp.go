// Package boxqp solves convex box-constrained quadratic programs
//
//	min 1/2 xᵀQx + qᵀx  s.t. 0 <= x <= u
//
// with an active-set method, a primal-dual interior point method, projected
// gradient, or a stochastic optimizer on the Lagrangian dual. Equality adds a
// single linear equality constraint on top of any of them.
package boxqp

import (
	"math"

	"github.com/orthoressyco/optiml/common"
	"github.com/orthoressyco/optiml/function"
	"github.com/orthoressyco/optiml/write"
)

// Settings configures the box solvers.
type Settings struct {
	*common.Settings
	// Eps is the optimality threshold of the methods that test one: the
	// duality gap and dual residual of InteriorPoint, the projected
	// gradient of ProjectedGradient. ActiveSet is exact up to its fixed
	// bound tolerance.
	Eps float64
}

// DefaultSettings returns settings allowing 1000 iterations with Eps = 1e-8.
func DefaultSettings() *Settings {
	s := common.DefaultSettings()
	s.MaximumIterations = 1000
	return &Settings{
		Settings: s,
		Eps:      1e-8,
	}
}

func settingsOrDefault(s *Settings) *Settings {
	if s == nil {
		return DefaultSettings()
	}
	if s.Settings == nil {
		c := *s
		c.Settings = DefaultSettings().Settings
		return &c
	}
	return s
}

// Result is the outcome of a box solver.
type Result struct {
	*common.Result
	X []float64 // Best point found, always inside the box
	F float64   // Objective at X
}

// Solver minimizes box-constrained quadratics.
type Solver interface {
	Minimize(p *function.BoxQuadratic) (*Result, error)
}

var (
	_ Solver = (*ActiveSet)(nil)
	_ Solver = (*InteriorPoint)(nil)
	_ Solver = (*ProjectedGradient)(nil)
	_ Solver = (*DualSolver)(nil)
)

// KKTResidual measures how far x is from solving p: the infinity norm of the
// projected gradient x - P(x - ∇f(x)) plus the largest bound violation. It is
// zero exactly at the solution.
func KKTResidual(p *function.BoxQuadratic, x []float64) float64 {
	n := p.Dim()
	g := make([]float64, n)
	p.Jacobian(g, x)
	u := p.Upper()
	var res, viol float64
	for i, xi := range x {
		proj := math.Min(u[i], math.Max(0, xi-g[i]))
		res = math.Max(res, math.Abs(xi-proj))
		viol = math.Max(viol, math.Max(-xi, xi-u[i]))
	}
	return res + viol
}

// tracker writes the objective and one solver specific column to the trace.
type tracker struct {
	*common.Common
	f       float64
	heading string
	value   float64
}

func newTracker(heading string) *tracker {
	t := &tracker{Common: common.NewCommon(), heading: heading}
	t.AddDataAdder(t)
	return t
}

func (t *tracker) AppendWriteData(v []*write.Value) []*write.Value {
	v = append(v, &write.Value{Heading: "Obj", Value: t.f})
	v = append(v, &write.Value{Heading: t.heading, Value: t.value})
	return v
}

func (t *tracker) result(p *function.BoxQuadratic, x []float64, status common.Status) (*Result, error) {
	res := &Result{X: x, F: p.Function(x)}
	t.f = res.F
	cr, err := t.Result(status)
	res.Result = cr
	return res, err
}

func middle(p *function.BoxQuadratic) []float64 {
	x := make([]float64, p.Dim())
	for i, u := range p.Upper() {
		x[i] = u / 2
	}
	return x
}
