package function

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LagrangianDual is the dual of a box-constrained quadratic with positive
// definite Q, written as a minimization over the multipliers of the bound
// constraints. The variables are λ = [λ_l; λ_u] of length 2n, both
// non-negative, and
//
//	x(λ) = Q⁻¹(λ_l - λ_u - q)
//	F(λ) = 1/2 x(λ)ᵀQx(λ) + λ_uᵀu
//
// F is the negated Lagrangian dual function, so its minimum equals minus the
// optimal value of the primal program.
type LagrangianDual struct {
	box  *BoxQuadratic
	chol mat.Cholesky
}

// NewLagrangianDual factorizes Q once. It fails when Q is not positive
// definite.
func NewLagrangianDual(box *BoxQuadratic) (*LagrangianDual, error) {
	d := &LagrangianDual{box: box}
	if ok := d.chol.Factorize(box.Quad.Q); !ok {
		return nil, errors.New("function: lagrangian dual needs a positive definite Q")
	}
	return d, nil
}

// Box returns the primal program.
func (d *LagrangianDual) Box() *BoxQuadratic {
	return d.box
}

// Dim implements Function.
func (d *LagrangianDual) Dim() int {
	return 2 * d.box.Dim()
}

// Primal implements Dual. The result is not clipped to the box.
func (d *LagrangianDual) Primal(dst, lambda []float64) {
	checkDim(d, lambda)
	n := d.box.Dim()
	rhs := make([]float64, n)
	floats.SubTo(rhs, lambda[:n], lambda[n:])
	floats.Sub(rhs, d.box.Quad.Linear())
	if err := d.chol.SolveVecTo(mat.NewVecDense(n, dst), mat.NewVecDense(n, rhs)); err != nil {
		// A Condition error still carries the solution.
		if _, ok := err.(mat.Condition); !ok {
			panic(err)
		}
	}
}

// Function implements Function.
func (d *LagrangianDual) Function(lambda []float64) float64 {
	n := d.box.Dim()
	x := make([]float64, n)
	d.Primal(x, lambda)
	xv := mat.NewVecDense(n, x)
	return 0.5*mat.Inner(xv, d.box.Quad.Q, xv) + floats.Dot(lambda[n:], d.box.Upper())
}

// Jacobian implements Function. The gradient is [x(λ); u - x(λ)].
func (d *LagrangianDual) Jacobian(dst, lambda []float64) {
	n := d.box.Dim()
	if len(dst) != 2*n {
		panic("function: dimension mismatch")
	}
	d.Primal(dst[:n], lambda)
	floats.SubTo(dst[n:], d.box.Upper(), dst[:n])
}
