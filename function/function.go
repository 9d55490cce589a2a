// Package function defines the objective functions minimized by the
// optimizers, together with a set of reference problems carrying their known
// optima for testing and benchmarking.
//
// An objective is immutable once constructed and may be read by any number of
// concurrent runs. Gradients are always supplied by the function.
package function

import "gonum.org/v1/gonum/mat"

// Function is an objective that can be minimized by first order methods.
type Function interface {
	// Dim returns the dimension of the domain.
	Dim() int
	// Function returns the value at x.
	Function(x []float64) float64
	// Jacobian stores the gradient at x into dst.
	Jacobian(dst, x []float64)
}

// Hessianer is implemented by objectives that can evaluate their Hessian.
type Hessianer interface {
	Hessian(dst *mat.SymDense, x []float64)
}

// Bounded is implemented by objectives defined on the box 0 <= x <= Upper().
type Bounded interface {
	Upper() []float64
}

// Optimum is implemented by objectives whose minimizer is known. It is used by
// tests and benchmarks only, never by an optimizer.
type Optimum interface {
	XStar() []float64
	FStar() float64
}

// Batched is an objective formed as the mean of per-sample terms. The
// optimizers evaluate it on subsets of the samples.
type Batched interface {
	Function
	// Size returns the number of samples.
	Size() int
	// BatchFunction returns the objective restricted to the samples in idx.
	BatchFunction(x []float64, idx []int) float64
	// BatchJacobian stores the gradient of BatchFunction into dst.
	BatchJacobian(dst, x []float64, idx []int)
}

// Dual is implemented by Lagrangian dual objectives whose variables are
// multipliers constrained to be non-negative. The stochastic optimizer
// projects its steps when minimizing a Dual.
type Dual interface {
	Function
	// Primal stores the primal point associated with the multipliers lambda
	// into dst.
	Primal(dst, lambda []float64)
}

func checkDim(f Function, x []float64) {
	if len(x) != f.Dim() {
		panic("function: dimension mismatch")
	}
}
