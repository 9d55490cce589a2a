package function

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LeastSquares is the mean squared error of a linear model
//
//	f(w) = 1/m sum_i 1/2 (x_iᵀw - y_i)²
//
// over the rows x_i of X.
type LeastSquares struct {
	X *mat.Dense
	Y []float64
}

// NewLeastSquares checks that X and y agree in their number of samples.
func NewLeastSquares(X *mat.Dense, y []float64) (*LeastSquares, error) {
	if err := checkData(X, y); err != nil {
		return nil, err
	}
	return &LeastSquares{X: X, Y: y}, nil
}

func checkData(X *mat.Dense, y []float64) error {
	if X == nil || X.IsEmpty() {
		return errors.New("function: empty design matrix")
	}
	if m, _ := X.Dims(); m != len(y) {
		return errors.Errorf("function: %d samples but %d targets", m, len(y))
	}
	return nil
}

// Dim implements Function.
func (l *LeastSquares) Dim() int {
	_, c := l.X.Dims()
	return c
}

// Size implements Batched.
func (l *LeastSquares) Size() int {
	return len(l.Y)
}

// Function implements Function.
func (l *LeastSquares) Function(w []float64) float64 {
	return l.BatchFunction(w, nil)
}

// Jacobian implements Function.
func (l *LeastSquares) Jacobian(dst, w []float64) {
	l.BatchJacobian(dst, w, nil)
}

// BatchFunction implements Batched. A nil idx selects every sample.
func (l *LeastSquares) BatchFunction(w []float64, idx []int) float64 {
	checkDim(l, w)
	var sum float64
	n := forEach(len(l.Y), idx, func(i int) {
		r := floats.Dot(l.X.RawRowView(i), w) - l.Y[i]
		sum += 0.5 * r * r
	})
	return sum / float64(n)
}

// BatchJacobian implements Batched. A nil idx selects every sample.
func (l *LeastSquares) BatchJacobian(dst, w []float64, idx []int) {
	checkDim(l, w)
	for i := range dst {
		dst[i] = 0
	}
	n := forEach(len(l.Y), idx, func(i int) {
		row := l.X.RawRowView(i)
		floats.AddScaled(dst, floats.Dot(row, w)-l.Y[i], row)
	})
	floats.Scale(1/float64(n), dst)
}

// CrossEntropy is the mean logistic loss of a linear model with labels in
// {0, 1}, plus an optional ridge term
//
//	f(w) = 1/m sum_i [log(1 + exp(z_i)) - y_i z_i] + Lambda/2 |w|²,  z_i = x_iᵀw
type CrossEntropy struct {
	X      *mat.Dense
	Y      []float64
	Lambda float64
}

// NewCrossEntropy checks the data and that every label is 0 or 1.
func NewCrossEntropy(X *mat.Dense, y []float64, lambda float64) (*CrossEntropy, error) {
	if err := checkData(X, y); err != nil {
		return nil, err
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return nil, errors.Errorf("function: label %d is %v, want 0 or 1", i, v)
		}
	}
	if lambda < 0 {
		return nil, errors.Errorf("function: negative regularization %v", lambda)
	}
	return &CrossEntropy{X: X, Y: y, Lambda: lambda}, nil
}

// Dim implements Function.
func (c *CrossEntropy) Dim() int {
	_, d := c.X.Dims()
	return d
}

// Size implements Batched.
func (c *CrossEntropy) Size() int {
	return len(c.Y)
}

// Function implements Function.
func (c *CrossEntropy) Function(w []float64) float64 {
	return c.BatchFunction(w, nil)
}

// Jacobian implements Function.
func (c *CrossEntropy) Jacobian(dst, w []float64) {
	c.BatchJacobian(dst, w, nil)
}

// BatchFunction implements Batched. A nil idx selects every sample.
func (c *CrossEntropy) BatchFunction(w []float64, idx []int) float64 {
	checkDim(c, w)
	var sum float64
	n := forEach(len(c.Y), idx, func(i int) {
		z := floats.Dot(c.X.RawRowView(i), w)
		sum += softplus(z) - c.Y[i]*z
	})
	reg := 0.5 * c.Lambda * floats.Dot(w, w)
	return sum/float64(n) + reg
}

// BatchJacobian implements Batched. A nil idx selects every sample.
func (c *CrossEntropy) BatchJacobian(dst, w []float64, idx []int) {
	checkDim(c, w)
	for i := range dst {
		dst[i] = 0
	}
	n := forEach(len(c.Y), idx, func(i int) {
		row := c.X.RawRowView(i)
		floats.AddScaled(dst, Sigmoid(floats.Dot(row, w))-c.Y[i], row)
	})
	floats.Scale(1/float64(n), dst)
	floats.AddScaled(dst, c.Lambda, w)
}

// Sigmoid returns 1/(1+exp(-z)).
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus returns log(1+exp(z)) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

// forEach calls fn for every index in idx, or for 0..m-1 when idx is nil,
// and returns the number of calls.
func forEach(m int, idx []int, fn func(i int)) int {
	if idx == nil {
		for i := 0; i < m; i++ {
			fn(i)
		}
		return m
	}
	for _, i := range idx {
		fn(i)
	}
	return len(idx)
}
