package boxqp

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/orthoressyco/optiml/common"
	"github.com/orthoressyco/optiml/function"
)

// ProjectedGradient moves along d = P(x - ∇f(x)) - x, the projected
// gradient direction, with an exact line search on [0, 1]. Every point of
// that segment is feasible. It stops when |d|∞ < Eps.
type ProjectedGradient struct {
	Settings *Settings
}

// Minimize implements Solver.
func (pg *ProjectedGradient) Minimize(p *function.BoxQuadratic) (*Result, error) {
	s := settingsOrDefault(pg.Settings)
	n := p.Dim()
	Q := p.Quad.Q

	t := newTracker("PGNorm")
	if err := t.Init(s.Settings); err != nil {
		return nil, err
	}

	x := middle(p)
	g := make([]float64, n)
	d := make([]float64, n)
	qd := mat.NewVecDense(n, nil)
	dv := mat.NewVecDense(n, d)

	var status common.Status
	for {
		p.Jacobian(g, x)
		floats.SubTo(d, x, g)
		p.Project(d, d)
		floats.Sub(d, x)
		t.f = p.Function(x)
		t.value = floats.Norm(d, math.Inf(1))

		if t.value < s.Eps {
			status = common.Optimal
			break
		}
		if status = t.Status(); status != common.Continue {
			break
		}

		// Minimize f(x + αd) over α in [0, 1].
		alpha := 1.0
		qd.MulVec(Q, dv)
		if curv := mat.Dot(dv, qd); curv > 0 {
			alpha = math.Min(1, -floats.Dot(g, d)/curv)
		}
		floats.AddScaled(x, alpha, d)
		p.Project(x, x)

		if err := t.Iterate(1); err != nil {
			return nil, err
		}
	}
	return t.result(p, x, status)
}
