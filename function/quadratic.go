package function

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Quadratic is the function
//
//	f(x) = 1/2 xᵀQx + qᵀx
//
// with Q symmetric positive semi-definite.
type Quadratic struct {
	Q *mat.SymDense
	q []float64

	xStar []float64
	fStar float64
}

// NewQuadratic returns the quadratic with matrix Q and linear term q. The
// arguments are copied. When Q is positive definite the minimizer is computed
// once and reported by XStar.
func NewQuadratic(Q mat.Symmetric, q []float64) (*Quadratic, error) {
	n := Q.SymmetricDim()
	if n == 0 {
		return nil, errors.New("function: empty quadratic")
	}
	if len(q) != n {
		return nil, errors.Errorf("function: linear term has length %d, want %d", len(q), n)
	}
	f := &Quadratic{
		Q: mat.NewSymDense(n, nil),
		q: make([]float64, n),
	}
	f.Q.CopySym(Q)
	copy(f.q, q)

	var chol mat.Cholesky
	if chol.Factorize(f.Q) {
		xs := mat.NewVecDense(n, nil)
		negQ := make([]float64, n)
		floats.ScaleTo(negQ, -1, f.q)
		if err := chol.SolveVecTo(xs, mat.NewVecDense(n, negQ)); err == nil {
			f.xStar = xs.RawVector().Data
			f.fStar = f.Function(f.xStar)
		}
	}
	return f, nil
}

// Dim implements Function.
func (f *Quadratic) Dim() int {
	return len(f.q)
}

// Linear returns the linear term q. It must not be modified.
func (f *Quadratic) Linear() []float64 {
	return f.q
}

// Function implements Function.
func (f *Quadratic) Function(x []float64) float64 {
	checkDim(f, x)
	xv := mat.NewVecDense(len(x), x)
	return 0.5*mat.Inner(xv, f.Q, xv) + floats.Dot(f.q, x)
}

// Jacobian implements Function. dst must not share memory with x.
func (f *Quadratic) Jacobian(dst, x []float64) {
	checkDim(f, x)
	n := len(x)
	if len(dst) != n {
		panic("function: dimension mismatch")
	}
	mat.NewVecDense(n, dst).MulVec(f.Q, mat.NewVecDense(n, x))
	floats.Add(dst, f.q)
}

// Hessian implements Hessianer.
func (f *Quadratic) Hessian(dst *mat.SymDense, x []float64) {
	dst.CopySym(f.Q)
}

// XStar returns the unconstrained minimizer, or nil if Q is singular.
func (f *Quadratic) XStar() []float64 {
	if f.xStar == nil {
		return nil
	}
	return append([]float64(nil), f.xStar...)
}

// FStar returns the minimum value. It is meaningless when XStar is nil.
func (f *Quadratic) FStar() float64 {
	return f.fStar
}

func mustQuadratic(data []float64, q []float64) *Quadratic {
	f, err := NewQuadratic(mat.NewSymDense(len(q), data), q)
	if err != nil {
		panic(err)
	}
	return f
}

// Quad1 is a well conditioned two dimensional quadratic, eigenvalues 4 and 8.
func Quad1() *Quadratic {
	return mustQuadratic([]float64{6, -2, -2, 6}, []float64{10, 5})
}

// Quad2 has eigenvalues 2 and 8.
func Quad2() *Quadratic {
	return mustQuadratic([]float64{5, -3, -3, 5}, []float64{10, 5})
}

// Quad5 is ill conditioned, eigenvalues 2 and 200.
func Quad5() *Quadratic {
	return mustQuadratic([]float64{101, -99, -99, 101}, []float64{10, 5})
}
