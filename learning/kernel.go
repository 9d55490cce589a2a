package learning

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Kernel is a positive semi-definite inner product between samples.
type Kernel interface {
	Eval(a, b []float64) float64
}

// Linear is aᵀb.
type Linear struct{}

func (Linear) Eval(a, b []float64) float64 { return floats.Dot(a, b) }

// Polynomial is (Gamma·aᵀb + Coef0)^Degree. Zero Degree uses 3 and zero
// Gamma uses 1.
type Polynomial struct {
	Degree int
	Gamma  float64
	Coef0  float64
}

func (p Polynomial) Eval(a, b []float64) float64 {
	d := p.Degree
	if d == 0 {
		d = 3
	}
	g := p.Gamma
	if g == 0 {
		g = 1
	}
	return math.Pow(g*floats.Dot(a, b)+p.Coef0, float64(d))
}

// RBF is exp(-Gamma·|a - b|²). Zero Gamma uses 1.
type RBF struct {
	Gamma float64
}

func (r RBF) Eval(a, b []float64) float64 {
	g := r.Gamma
	if g == 0 {
		g = 1
	}
	d := floats.Distance(a, b, 2)
	return math.Exp(-g * d * d)
}

// Gram returns the matrix of kernel values between the rows of X.
func Gram(k Kernel, X *mat.Dense) *mat.SymDense {
	m, _ := X.Dims()
	K := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			K.SetSym(i, j, k.Eval(X.RawRowView(i), X.RawRowView(j)))
		}
	}
	return K
}
