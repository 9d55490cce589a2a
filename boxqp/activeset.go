package boxqp

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/orthoressyco/optiml/common"
	"github.com/orthoressyco/optiml/function"
)

// boundTol is the distance at which a coordinate is treated as sitting on
// its bound, and the gradient magnitude below which a bound is not released.
const boundTol = 1e-12

const (
	// condLimit is the condition number of Q_AA above which the restricted
	// system is solved through its eigendecomposition.
	condLimit = 1e10
	// nullTol is the eigenvalue, relative to the largest, below which an
	// eigenvector of Q_AA is treated as a null direction.
	nullTol = 1e-10
	// rayTol is the relative size of the null space part of the linear term
	// above which the free subproblem is unbounded.
	rayTol = 1e-9
)

// ActiveSet is the primal active-set method. It starts from the middle of
// the box with every coordinate free and keeps a partition of the
// coordinates into lower-bound, upper-bound and free sets. Each iteration
// minimizes the objective over the free coordinates with the others fixed
// at their bounds, then either moves there and releases one bound whose
// multiplier has the wrong sign, or steps towards it until new bounds are
// hit. Bounds are released in increasing index order, lower bounds first,
// which prevents cycling.
//
// Q must be positive semi-definite. When Q_AA is singular and the
// objective is unbounded below over the free coordinates, the method steps
// along the null space direction of steepest descent to the first bound;
// otherwise it moves towards the free minimizer closest to x.
type ActiveSet struct {
	Settings *Settings
}

type activeSetRun struct {
	p    *function.BoxQuadratic
	n    int
	x    []float64
	xs   []float64
	dir  []float64
	g    []float64
	part partition
}

func newActiveSetRun(p *function.BoxQuadratic) *activeSetRun {
	n := p.Dim()
	return &activeSetRun{
		p:    p,
		n:    n,
		x:    middle(p),
		xs:   make([]float64, n),
		dir:  make([]float64, n),
		g:    make([]float64, n),
		part: newPartition(n),
	}
}

// Minimize implements Solver.
func (a *ActiveSet) Minimize(p *function.BoxQuadratic) (*Result, error) {
	s := settingsOrDefault(a.Settings)
	r := newActiveSetRun(p)
	t := newTracker("Bound")
	if err := t.Init(s.Settings); err != nil {
		return nil, err
	}
	t.f = p.Function(r.x)

	var status common.Status
	var solveErr error
	for {
		if status = t.Status(); status != common.Continue {
			break
		}
		status, solveErr = r.iterate()
		if solveErr != nil {
			break
		}
		if err := r.part.validate(r.n); err != nil {
			panic(err)
		}
		if status != common.Continue {
			break
		}
		t.f = p.Function(r.x)
		t.value = float64(len(r.part.lower) + len(r.part.upper))
		if err := t.Iterate(1); err != nil {
			return nil, err
		}
	}
	res, err := t.result(p, r.x, status)
	if solveErr != nil {
		return res, solveErr
	}
	return res, err
}

// iterate performs one transition of the partition. It returns Optimal when
// no bound can be released.
func (r *activeSetRun) iterate() (common.Status, error) {
	unbounded, err := r.solveFree()
	if err != nil {
		return common.Failure, err
	}
	if unbounded {
		r.moveTowards(math.Inf(1))
		return common.Continue, nil
	}
	u := r.p.Upper()
	feasible := true
	for _, i := range r.part.free {
		if r.xs[i] < -boundTol || r.xs[i] > u[i]+boundTol {
			feasible = false
			break
		}
	}

	if feasible {
		r.p.Project(r.x, r.xs)
		r.p.Jacobian(r.g, r.x)
		for _, i := range r.part.lower {
			if r.g[i] < -boundTol {
				r.part.move(i, &r.part.lower, &r.part.free)
				return common.Continue, nil
			}
		}
		for _, i := range r.part.upper {
			if r.g[i] > boundTol {
				r.part.move(i, &r.part.upper, &r.part.free)
				return common.Continue, nil
			}
		}
		return common.Optimal, nil
	}

	// The restricted minimizer is outside the box: the direction towards it
	// is a descent direction, follow it to the first bound.
	for _, i := range r.part.free {
		r.dir[i] = r.xs[i] - r.x[i]
	}
	r.moveTowards(1)
	return common.Continue, nil
}

// moveTowards moves the free coordinates along dir by the largest step up
// to maxT that stays in the box, and fixes the coordinates that reach a
// bound.
func (r *activeSetRun) moveTowards(maxT float64) {
	u := r.p.Upper()
	for _, i := range r.part.free {
		d := r.dir[i]
		switch {
		case d > 0:
			if t := (u[i] - r.x[i]) / d; t < maxT {
				maxT = t
			}
		case d < 0:
			if t := -r.x[i] / d; t < maxT {
				maxT = t
			}
		}
	}
	for _, i := range r.part.free {
		r.x[i] += maxT * r.dir[i]
	}
	for _, i := range append([]int(nil), r.part.free...) {
		switch {
		case r.x[i] <= boundTol:
			r.x[i] = 0
			r.part.move(i, &r.part.free, &r.part.lower)
		case r.x[i] >= u[i]-boundTol:
			r.x[i] = u[i]
			r.part.move(i, &r.part.free, &r.part.upper)
		}
	}
}

// solveFree stores into xs the minimizer over the free coordinates with the
// bound coordinates fixed:
//
//	x_A = -Q_AA⁻¹ (q_A + Q_AU u_U)
//
// It reports true, with the descent direction in dir, when no minimizer
// exists.
func (r *activeSetRun) solveFree() (bool, error) {
	u := r.p.Upper()
	q := r.p.Quad.Linear()
	Q := r.p.Quad.Q
	for i := range r.xs {
		r.xs[i] = 0
	}
	for _, i := range r.part.upper {
		r.xs[i] = u[i]
	}
	free := r.part.free
	if len(free) == 0 {
		return false, nil
	}

	rhs := make([]float64, len(free))
	for k, i := range free {
		v := q[i]
		for _, j := range r.part.upper {
			v += Q.At(i, j) * u[j]
		}
		rhs[k] = -v
	}
	qaa := mat.NewSymDense(len(free), nil)
	qaa.SubsetSym(Q, free)
	var chol mat.Cholesky
	if !chol.Factorize(qaa) || chol.Cond() > condLimit {
		return r.solveSingular(qaa, rhs)
	}
	sol := mat.NewVecDense(len(free), nil)
	if err := chol.SolveVecTo(sol, mat.NewVecDense(len(free), rhs)); err != nil {
		return false, errors.Wrap(err, "activeset: solving restricted system")
	}
	for k, i := range free {
		r.xs[i] = sol.AtVec(k)
	}
	return false, nil
}

// solveSingular solves Q_AA x_A = rhs through the eigendecomposition of a
// singular or badly conditioned Q_AA. If rhs has a part in the null space,
// the objective decreases without bound along that part, which is stored in
// dir. Otherwise xs receives the solution closest to the current x.
func (r *activeSetRun) solveSingular(qaa *mat.SymDense, rhs []float64) (bool, error) {
	nf := len(rhs)
	var eig mat.EigenSym
	if !eig.Factorize(qaa, true) {
		return false, errors.Errorf("activeset: eigendecomposition on %d free coordinates failed", nf)
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	scale := math.Max(1, math.Max(math.Abs(floats.Min(vals)), math.Abs(floats.Max(vals))))
	if floats.Min(vals) < -nullTol*scale {
		return false, errors.Errorf("activeset: restricted system on %d free coordinates is not positive semi-definite", nf)
	}

	free := r.part.free
	b := mat.NewVecDense(nf, rhs)
	xa := mat.NewVecDense(nf, nil)
	for k, i := range free {
		xa.SetVec(k, r.x[i])
	}
	null := mat.NewVecDense(nf, nil)
	sol := mat.NewVecDense(nf, nil)
	for j, lambda := range vals {
		v := vecs.ColView(j)
		if lambda <= nullTol*scale {
			null.AddScaledVec(null, mat.Dot(v, b), v)
			sol.AddScaledVec(sol, mat.Dot(v, xa), v)
			continue
		}
		sol.AddScaledVec(sol, mat.Dot(v, b)/lambda, v)
	}

	if floats.Norm(null.RawVector().Data, math.Inf(1)) > rayTol*math.Max(1, floats.Norm(rhs, math.Inf(1))) {
		for k, i := range free {
			r.dir[i] = null.AtVec(k)
		}
		return true, nil
	}
	for k, i := range free {
		r.xs[i] = sol.AtVec(k)
	}
	return false, nil
}
