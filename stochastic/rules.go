package stochastic

import (
	"math"

	"github.com/orthoressyco/optiml/common"
)

// Rule is a step rule. A Rule holds configuration only; the per-coordinate
// state of one run lives in the Stepper it creates, so a Rule may be shared
// by concurrent runs.
type Rule interface {
	NewStepper(dim int) Stepper
}

// Stepper computes the scaled descent direction d for a gradient g. The
// optimizer then steps by η·d, combined with the momentum velocity.
type Stepper interface {
	Direction(dst, g []float64)
}

var (
	_ Rule = GradientDescent{}
	_ Rule = AdaGrad{}
	_ Rule = RMSProp{}
	_ Rule = AdaMax{}
	_ Rule = Adam{}
)

// GradientDescent uses the negative gradient as direction.
type GradientDescent struct{}

func (GradientDescent) NewStepper(dim int) Stepper { return gradientStepper{} }

type gradientStepper struct{}

func (gradientStepper) Direction(dst, g []float64) {
	for i, v := range g {
		dst[i] = -v
	}
}

// AdaGrad scales every coordinate by the root of its accumulated squared
// gradients
//
//	G += g ⊙ g
//	d = -g / (√G + Offset)
type AdaGrad struct {
	Offset float64
}

// NewAdaGrad returns an AdaGrad rule. offset guards the division and must not
// be negative.
func NewAdaGrad(offset float64) (AdaGrad, error) {
	if offset < 0 {
		return AdaGrad{}, common.NewConfigError("offset", offset, "must not be negative")
	}
	return AdaGrad{Offset: offset}, nil
}

func (a AdaGrad) NewStepper(dim int) Stepper {
	return &adaGradStepper{offset: a.Offset, acc: make([]float64, dim)}
}

type adaGradStepper struct {
	offset float64
	acc    []float64
}

func (a *adaGradStepper) Direction(dst, g []float64) {
	for i, v := range g {
		a.acc[i] += v * v
		dst[i] = -v / (math.Sqrt(a.acc[i]) + a.offset)
	}
}

// RMSProp scales every coordinate by the root of an exponential moving
// average of its squared gradients
//
//	G = Decay·G + (1-Decay)·g ⊙ g
//	d = -g / √G
//
// The average starts at one so the first steps are not blown up.
type RMSProp struct {
	Decay float64
}

// NewRMSProp returns an RMSProp rule. decay must lie in [0, 1).
func NewRMSProp(decay float64) (RMSProp, error) {
	if err := common.CheckUnitInterval("decay", decay); err != nil {
		return RMSProp{}, err
	}
	return RMSProp{Decay: decay}, nil
}

func (r RMSProp) NewStepper(dim int) Stepper {
	acc := make([]float64, dim)
	for i := range acc {
		acc[i] = 1
	}
	return &rmsPropStepper{decay: r.Decay, acc: acc}
}

type rmsPropStepper struct {
	decay float64
	acc   []float64
}

func (r *rmsPropStepper) Direction(dst, g []float64) {
	for i, v := range g {
		r.acc[i] = r.decay*r.acc[i] + (1-r.decay)*v*v
		dst[i] = -v / math.Sqrt(r.acc[i])
	}
}

// AdaMax is the infinity norm variant of Adam
//
//	m = β1·m + (1-β1)·g
//	u = max(β2·u, |g|)
//	d = -m̂ / (u + Offset),  m̂ = m / (1-β1ᵗ)
type AdaMax struct {
	Beta1, Beta2 float64
	Offset       float64
}

// NewAdaMax returns an AdaMax rule. Both decay rates must lie in [0, 1).
func NewAdaMax(beta1, beta2, offset float64) (AdaMax, error) {
	if err := checkBetas(beta1, beta2, offset); err != nil {
		return AdaMax{}, err
	}
	return AdaMax{Beta1: beta1, Beta2: beta2, Offset: offset}, nil
}

// DefaultAdaMax returns AdaMax with β1 = 0.9, β2 = 0.999.
func DefaultAdaMax() AdaMax {
	return AdaMax{Beta1: 0.9, Beta2: 0.999, Offset: 1e-8}
}

func checkBetas(beta1, beta2, offset float64) error {
	if err := common.CheckUnitInterval("beta1", beta1); err != nil {
		return err
	}
	if err := common.CheckUnitInterval("beta2", beta2); err != nil {
		return err
	}
	if offset < 0 {
		return common.NewConfigError("offset", offset, "must not be negative")
	}
	return nil
}

func (a AdaMax) NewStepper(dim int) Stepper {
	return &adaMaxStepper{
		AdaMax: a,
		pow1:   1,
		m:      make([]float64, dim),
		u:      make([]float64, dim),
	}
}

type adaMaxStepper struct {
	AdaMax
	pow1 float64
	m    []float64
	u    []float64
}

func (a *adaMaxStepper) Direction(dst, g []float64) {
	a.pow1 *= a.Beta1
	for i, v := range g {
		a.m[i] = a.Beta1*a.m[i] + (1-a.Beta1)*v
		a.u[i] = math.Max(a.Beta2*a.u[i], math.Abs(v))
		mhat := a.m[i] / (1 - a.pow1)
		dst[i] = -mhat / (a.u[i] + a.Offset)
	}
}

// Adam keeps bias corrected moving averages of the gradient and of its square
//
//	m = β1·m + (1-β1)·g
//	ν = β2·ν + (1-β2)·g ⊙ g
//	d = -m̂ / (√ν̂ + Offset)
type Adam struct {
	Beta1, Beta2 float64
	Offset       float64
}

// NewAdam returns an Adam rule. Both decay rates must lie in [0, 1).
func NewAdam(beta1, beta2, offset float64) (Adam, error) {
	if err := checkBetas(beta1, beta2, offset); err != nil {
		return Adam{}, err
	}
	return Adam{Beta1: beta1, Beta2: beta2, Offset: offset}, nil
}

// DefaultAdam returns Adam with β1 = 0.9, β2 = 0.999.
func DefaultAdam() Adam {
	return Adam{Beta1: 0.9, Beta2: 0.999, Offset: 1e-8}
}

func (a Adam) NewStepper(dim int) Stepper {
	return &adamStepper{
		Adam: a,
		pow1: 1,
		pow2: 1,
		m:    make([]float64, dim),
		nu:   make([]float64, dim),
	}
}

type adamStepper struct {
	Adam
	pow1, pow2 float64
	m, nu      []float64
}

func (a *adamStepper) Direction(dst, g []float64) {
	a.pow1 *= a.Beta1
	a.pow2 *= a.Beta2
	for i, v := range g {
		a.m[i] = a.Beta1*a.m[i] + (1-a.Beta1)*v
		a.nu[i] = a.Beta2*a.nu[i] + (1-a.Beta2)*v*v
		mhat := a.m[i] / (1 - a.pow1)
		nuhat := a.nu[i] / (1 - a.pow2)
		dst[i] = -mhat / (math.Sqrt(nuhat) + a.Offset)
	}
}
