package boxqp

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/orthoressyco/optiml/common"
	"github.com/orthoressyco/optiml/function"
)

// ErrInfeasible is returned when the equality constraint could not be
// satisfied within tolerance.
var ErrInfeasible = errors.New("boxqp: equality constraint not satisfied")

// ErrSubproblem is returned when a box subproblem ends without converging.
// The multiplier update is only valid at exact subproblem minimizers.
var ErrSubproblem = errors.New("boxqp: box subproblem did not converge")

// Equality solves
//
//	min 1/2 xᵀQx + qᵀx  s.t. 0 <= x <= u, aᵀx = b
//
// by the method of multipliers. Each outer iteration minimizes the augmented
// Lagrangian
//
//	1/2 xᵀ(Q + ρaaᵀ)x + (q + (μ - ρb)a)ᵀx
//
// over the box with Solver, then updates μ += ρ(aᵀx - b). Every subproblem
// must be solved to convergence, so the budget of Solver has to allow it.
type Equality struct {
	// Solver solves the box subproblems. Nil uses an ActiveSet with default
	// settings.
	Solver Solver
	// Rho is the penalty parameter ρ. Zero uses 10.
	Rho float64
	// Tol is the accepted equality residual |aᵀx - b|. Zero uses 1e-8.
	Tol float64
	// MaxOuter bounds the number of multiplier updates. Zero uses 100.
	MaxOuter int
}

// EqualityResult adds the equality multiplier to Result.
type EqualityResult struct {
	*Result
	Multiplier float64 // μ at termination
	Residual   float64 // aᵀx - b
	Outer      int     // Number of box subproblems solved
}

// Minimize solves p with the extra constraint aᵀx = b. When the residual does
// not reach Tol the best point is returned with status Infeasible together
// with ErrInfeasible. A subproblem that stops early ends the run with its
// status and ErrSubproblem.
func (e *Equality) Minimize(p *function.BoxQuadratic, a []float64, b float64) (*EqualityResult, error) {
	n := p.Dim()
	if len(a) != n {
		return nil, errors.Errorf("equality: constraint has length %d, want %d", len(a), n)
	}
	solver := e.Solver
	if solver == nil {
		solver = &ActiveSet{}
	}
	rho := e.Rho
	if rho == 0 {
		rho = 10
	}
	if rho < 0 {
		return nil, common.NewConfigError("rho", rho, "must be positive")
	}
	tol := e.Tol
	if tol == 0 {
		tol = 1e-8
	}
	maxOuter := e.MaxOuter
	if maxOuter == 0 {
		maxOuter = 100
	}

	aug := mat.NewSymDense(n, nil)
	aug.SymRankOne(p.Quad.Q, rho, mat.NewVecDense(n, a))
	lin := make([]float64, n)

	var (
		mu    float64
		inner *Result
		resid float64
		total common.Result
	)
	for outer := 1; outer <= maxOuter; outer++ {
		floats.AddScaledTo(lin, p.Quad.Linear(), mu-rho*b, a)
		sub, err := function.NewBoxQuadratic(aug, lin, p.Upper())
		if err != nil {
			return nil, err
		}
		res, err := solver.Minimize(sub)
		if res != nil {
			inner = res
			total.Iterations += res.Iterations
			total.FunctionEvaluations += res.FunctionEvaluations
			total.Runtime += res.Runtime
		}
		if err != nil {
			return e.result(p, inner, &total, common.Failure, mu, resid, outer), errors.Wrap(err, "equality: box subproblem")
		}
		resid = floats.Dot(a, res.X) - b
		if !res.Status.Converged() {
			return e.result(p, inner, &total, res.Status, mu, resid, outer),
				errors.Wrapf(ErrSubproblem, "equality: outer iteration %d ended %v", outer, res.Status)
		}
		if math.Abs(resid) <= tol {
			return e.result(p, inner, &total, res.Status, mu, resid, outer), nil
		}
		mu += rho * resid
	}
	return e.result(p, inner, &total, common.Infeasible, mu, resid, maxOuter), ErrInfeasible
}

func (e *Equality) result(p *function.BoxQuadratic, inner *Result, total *common.Result, status common.Status, mu, resid float64, outer int) *EqualityResult {
	total.Status = status
	res := &EqualityResult{
		Result:     &Result{Result: total},
		Multiplier: mu,
		Residual:   resid,
		Outer:      outer,
	}
	if inner != nil {
		res.X = inner.X
		res.F = p.Function(inner.X)
	}
	return res
}
