package boxqp

import (
	"github.com/pkg/errors"

	"github.com/orthoressyco/optiml/function"
	"github.com/orthoressyco/optiml/stochastic"
)

// DualSolver minimizes the Lagrangian dual of the program with a stochastic
// optimizer, starting from zero multipliers, and returns the primal point of
// the final multipliers projected onto the box. Q must be positive definite.
type DualSolver struct {
	Optimizer *stochastic.Optimizer
}

// NewDualSolver returns a DualSolver running rule with settings.
func NewDualSolver(rule stochastic.Rule, settings *stochastic.Settings) (*DualSolver, error) {
	opt, err := stochastic.New(rule, settings)
	if err != nil {
		return nil, err
	}
	return &DualSolver{Optimizer: opt}, nil
}

// Minimize implements Solver.
func (d *DualSolver) Minimize(p *function.BoxQuadratic) (*Result, error) {
	if d.Optimizer == nil {
		return nil, errors.New("dualsolver: nil optimizer")
	}
	dual, err := function.NewLagrangianDual(p)
	if err != nil {
		return nil, err
	}
	sr, err := d.Optimizer.Minimize(dual, make([]float64, dual.Dim()))
	if sr == nil {
		return nil, err
	}
	x := make([]float64, p.Dim())
	dual.Primal(x, sr.X)
	p.Project(x, x)
	return &Result{
		Result: sr.Result,
		X:      x,
		F:      p.Function(x),
	}, err
}
