package boxqp

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/orthoressyco/optiml/common"
	"github.com/orthoressyco/optiml/function"
)

// InteriorPoint is a primal-dual interior point method. It keeps x strictly
// inside the box together with positive multipliers zl for x >= 0 and zu for
// x <= u, and takes damped Newton steps on the perturbed optimality
// conditions
//
//	Qx + q - zl + zu = 0
//	x ⊙ zl = μ
//	(u - x) ⊙ zu = μ
//
// with μ shrunk to a tenth of the average complementarity at every iteration.
// It stops when both the duality gap and the dual residual are below Eps.
type InteriorPoint struct {
	Settings *Settings
}

const (
	centering = 0.1
	// stepBack keeps the iterates strictly interior.
	stepBack = 0.995
)

// Minimize implements Solver.
func (ip *InteriorPoint) Minimize(p *function.BoxQuadratic) (*Result, error) {
	s := settingsOrDefault(ip.Settings)
	n := p.Dim()
	u := p.Upper()
	Q := p.Quad.Q

	t := newTracker("Gap")
	if err := t.Init(s.Settings); err != nil {
		return nil, err
	}

	x := middle(p)
	zl := make([]float64, n)
	zu := make([]float64, n)
	for i := range zl {
		zl[i] = 1
		zu[i] = 1
	}
	sl := make([]float64, n) // u - x
	g := make([]float64, n)
	rd := make([]float64, n)
	rhs := make([]float64, n)
	dzl := make([]float64, n)
	dzu := make([]float64, n)
	h := mat.NewSymDense(n, nil)
	dx := mat.NewVecDense(n, nil)
	var chol mat.Cholesky

	var status common.Status
	for {
		floats.SubTo(sl, u, x)
		p.Jacobian(g, x)
		floats.SubTo(rd, g, zl)
		floats.Add(rd, zu)
		gap := floats.Dot(x, zl) + floats.Dot(sl, zu)
		t.f = p.Function(x)
		t.value = gap

		if gap <= s.Eps && floats.Norm(rd, math.Inf(1)) <= s.Eps {
			status = common.Optimal
			break
		}
		if status = t.Status(); status != common.Continue {
			break
		}

		mu := centering * gap / float64(2*n)
		h.CopySym(Q)
		for i := 0; i < n; i++ {
			h.SetSym(i, i, h.At(i, i)+zl[i]/x[i]+zu[i]/sl[i])
			rhs[i] = -g[i] + mu/x[i] - mu/sl[i]
		}
		if !chol.Factorize(h) {
			status = common.Failure
			res, _ := t.result(p, x, status)
			return res, errors.New("interiorpoint: newton system is not positive definite")
		}
		if err := chol.SolveVecTo(dx, mat.NewVecDense(n, rhs)); err != nil {
			if _, ok := err.(mat.Condition); !ok {
				status = common.Failure
				res, _ := t.result(p, x, status)
				return res, errors.Wrap(err, "interiorpoint: solving newton system")
			}
		}

		alpha := math.Inf(1)
		for i := 0; i < n; i++ {
			d := dx.AtVec(i)
			dzl[i] = mu/x[i] - zl[i] - zl[i]/x[i]*d
			dzu[i] = mu/sl[i] - zu[i] + zu[i]/sl[i]*d
			alpha = math.Min(alpha, maxStep(x[i], d))
			alpha = math.Min(alpha, maxStep(sl[i], -d))
			alpha = math.Min(alpha, maxStep(zl[i], dzl[i]))
			alpha = math.Min(alpha, maxStep(zu[i], dzu[i]))
		}
		alpha = math.Min(1, stepBack*alpha)

		floats.AddScaled(x, alpha, dx.RawVector().Data)
		floats.AddScaled(zl, alpha, dzl)
		floats.AddScaled(zu, alpha, dzu)

		if err := t.Iterate(1); err != nil {
			return nil, err
		}
	}
	// The iterate is interior; the projection only removes rounding.
	p.Project(x, x)
	return t.result(p, x, status)
}

// maxStep returns the largest α with v + α·d >= 0.
func maxStep(v, d float64) float64 {
	if d >= 0 {
		return math.Inf(1)
	}
	return -v / d
}
