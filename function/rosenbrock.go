package function

import "gonum.org/v1/gonum/mat"

// Rosenbrock is the extended Rosenbrock function
//
//	f(x) = sum_i 100(x_{i+1} - x_i²)² + (1 - x_i)²
//
// in N >= 2 dimensions. The minimum is 0 at x = (1, ..., 1).
type Rosenbrock struct {
	N int
}

// Dim implements Function.
func (r Rosenbrock) Dim() int {
	return r.N
}

// Function implements Function.
func (r Rosenbrock) Function(x []float64) (sum float64) {
	checkDim(r, x)
	for i := 0; i < len(x)-1; i++ {
		a := 1 - x[i]
		b := x[i+1] - x[i]*x[i]
		sum += a*a + 100*b*b
	}
	return sum
}

// Jacobian implements Function.
func (r Rosenbrock) Jacobian(dst, x []float64) {
	checkDim(r, x)
	if len(dst) != len(x) {
		panic("function: dimension mismatch")
	}
	for i := range dst {
		dst[i] = 0
	}
	for i := 0; i < len(x)-1; i++ {
		b := x[i+1] - x[i]*x[i]
		dst[i] += -2*(1-x[i]) - 400*b*x[i]
		dst[i+1] += 200 * b
	}
}

// Hessian implements Hessianer.
func (r Rosenbrock) Hessian(dst *mat.SymDense, x []float64) {
	checkDim(r, x)
	n := len(x)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst.SetSym(i, j, 0)
		}
	}
	for i := 0; i < n-1; i++ {
		dst.SetSym(i, i, dst.At(i, i)+2-400*x[i+1]+1200*x[i]*x[i])
		dst.SetSym(i, i+1, -400*x[i])
		dst.SetSym(i+1, i+1, dst.At(i+1, i+1)+200)
	}
}

// XStar implements Optimum.
func (r Rosenbrock) XStar() []float64 {
	x := make([]float64, r.N)
	for i := range x {
		x[i] = 1
	}
	return x
}

// FStar implements Optimum.
func (r Rosenbrock) FStar() float64 {
	return 0
}
