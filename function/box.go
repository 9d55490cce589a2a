package function

import (
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// BoxQuadratic is the box-constrained quadratic program
//
//	min 1/2 xᵀQx + qᵀx  s.t. 0 <= x <= u
//
// with Q symmetric positive semi-definite and u > 0.
type BoxQuadratic struct {
	Quad  *Quadratic
	upper []float64
}

// NewBoxQuadratic returns the box-constrained program with upper bounds u.
// Every bound must be strictly positive.
func NewBoxQuadratic(Q mat.Symmetric, q, u []float64) (*BoxQuadratic, error) {
	quad, err := NewQuadratic(Q, q)
	if err != nil {
		return nil, err
	}
	if len(u) != len(q) {
		return nil, errors.Errorf("function: bounds have length %d, want %d", len(u), len(q))
	}
	for i, v := range u {
		if !(v > 0) {
			return nil, errors.Errorf("function: upper bound %d is %v, must be positive", i, v)
		}
	}
	return &BoxQuadratic{
		Quad:  quad,
		upper: append([]float64(nil), u...),
	}, nil
}

// RandomBoxOptions configures NewRandomBoxQuadratic.
type RandomBoxOptions struct {
	// Ridge is added to the diagonal of Q.
	Ridge float64
	// MaxUpper bounds the upper bounds, drawn uniformly in [1, MaxUpper].
	MaxUpper float64
	// Active controls where the unconstrained minimizer z is drawn: each
	// coordinate is uniform in [-Active·u, (1+Active)·u], so larger values
	// leave more bounds active at the solution.
	Active float64
}

// DefaultRandomBoxOptions returns options producing a well conditioned
// problem whose unconstrained minimizer leaves the box in about half of the
// coordinates.
func DefaultRandomBoxOptions() RandomBoxOptions {
	return RandomBoxOptions{
		Ridge:    0.1,
		MaxUpper: 10,
		Active:   0.5,
	}
}

// NewRandomBoxQuadratic generates a convex box-constrained quadratic of
// dimension n from seed. Q = GᵀG/n + Ridge·I with G standard normal, and
// q = -Qz for a random unconstrained minimizer z.
func NewRandomBoxQuadratic(n int, seed int64, opts RandomBoxOptions) (*BoxQuadratic, error) {
	if n < 1 {
		return nil, errors.Errorf("function: dimension %d must be positive", n)
	}
	if opts.MaxUpper < 1 {
		return nil, errors.Errorf("function: MaxUpper %v must be at least 1", opts.MaxUpper)
	}
	rnd := rand.New(rand.NewSource(seed))

	g := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			g.Set(i, j, rnd.NormFloat64())
		}
	}
	var Q mat.SymDense
	Q.SymOuterK(1/float64(n), g.T())
	for i := 0; i < n; i++ {
		Q.SetSym(i, i, Q.At(i, i)+opts.Ridge)
	}

	u := make([]float64, n)
	z := make([]float64, n)
	for i := range u {
		u[i] = 1 + rnd.Float64()*(opts.MaxUpper-1)
		z[i] = -opts.Active*u[i] + rnd.Float64()*(1+2*opts.Active)*u[i]
	}
	q := make([]float64, n)
	mat.NewVecDense(n, q).MulVec(&Q, mat.NewVecDense(n, z))
	floats.Scale(-1, q)

	return NewBoxQuadratic(&Q, q, u)
}

// Dim implements Function.
func (b *BoxQuadratic) Dim() int {
	return b.Quad.Dim()
}

// Function implements Function.
func (b *BoxQuadratic) Function(x []float64) float64 {
	return b.Quad.Function(x)
}

// Jacobian implements Function.
func (b *BoxQuadratic) Jacobian(dst, x []float64) {
	b.Quad.Jacobian(dst, x)
}

// Hessian implements Hessianer.
func (b *BoxQuadratic) Hessian(dst *mat.SymDense, x []float64) {
	b.Quad.Hessian(dst, x)
}

// Upper implements Bounded. The returned slice must not be modified.
func (b *BoxQuadratic) Upper() []float64 {
	return b.upper
}

// Feasible reports whether 0 - tol <= x <= u + tol.
func (b *BoxQuadratic) Feasible(x []float64, tol float64) bool {
	for i, v := range x {
		if v < -tol || v > b.upper[i]+tol {
			return false
		}
	}
	return true
}

// Project stores the projection of x onto the box into dst.
func (b *BoxQuadratic) Project(dst, x []float64) {
	for i, v := range x {
		switch {
		case v < 0:
			dst[i] = 0
		case v > b.upper[i]:
			dst[i] = b.upper[i]
		default:
			dst[i] = v
		}
	}
}
