package linesearch

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// bisection brackets a zero of φ' by doubling the step until the derivative
// changes sign or the objective increases, then halves the bracket.
type bisection struct {
	step float64

	minStep float64
	minObj  float64
	minGrad float64

	maxStep float64
	maxObj  float64
	maxGrad float64
}

func (b *bisection) init(initStep, initObj, initGrad float64) {
	b.step = initStep

	b.minStep = 0
	b.minObj = initObj
	b.minGrad = initGrad

	b.maxStep = math.Inf(1)
	b.maxObj = math.Inf(1)
	b.maxGrad = math.Inf(1)
}

// update records φ and φ' at the current step and chooses the next one.
func (b *bisection) update(obj, grad float64) {
	if math.IsInf(b.maxStep, 1) || b.maxGrad < 0 {
		// The minimum is not bracketed yet.
		switch {
		case grad > 0:
			b.setMax(obj, grad)
		case scalar.EqualWithinAbsOrRel(b.minObj, obj, 1e-15, 1e-15):
			// Indistinguishable objectives. Trust the negative derivative.
			fallthrough
		case obj < b.minObj:
			b.setMin(obj, grad)
			if math.IsInf(b.maxStep, 1) {
				b.step *= 2
				return
			}
		default:
			// The objective went up while still descending, so a local
			// minimum was skipped.
			b.setMax(obj, grad)
		}
		b.step = (b.minStep + b.maxStep) / 2
		return
	}
	if grad < 0 {
		b.setMin(obj, grad)
	} else {
		b.setMax(obj, grad)
	}
	b.step = (b.minStep + b.maxStep) / 2
}

func (b *bisection) setMin(obj, grad float64) {
	b.minStep = b.step
	b.minObj = obj
	b.minGrad = grad
}

func (b *bisection) setMax(obj, grad float64) {
	b.maxStep = b.step
	b.maxObj = obj
	b.maxGrad = grad
}
