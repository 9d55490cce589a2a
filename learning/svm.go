package learning

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/orthoressyco/optiml/boxqp"
	"github.com/orthoressyco/optiml/common"
	"github.com/orthoressyco/optiml/function"
	"github.com/orthoressyco/optiml/stochastic"
)

// supportTol is the multiplier above which a sample is a support vector.
const supportTol = 1e-6

// BinarySVM is a soft-margin support vector classifier for labels -1 and +1.
// Fit solves the dual
//
//	min 1/2 αᵀPα - 1ᵀα  s.t. 0 <= α <= C, yᵀα = 0,  P = K ⊙ yyᵀ
//
// with Solver. P is only positive semi-definite, so Solver must accept a
// singular Hessian, as ActiveSet and InteriorPoint do.
//
// When Optimizer is set Fit instead absorbs the intercept into the kernel and
// solves
//
//	min 1/2 αᵀP'α - 1ᵀα  s.t. 0 <= α <= C,  P' = (K + 1) ⊙ yyᵀ
//
// with the stochastic optimizer projected onto the box. There is no
// equality constraint and the intercept is b = Σ α_i y_i.
type BinarySVM struct {
	Kernel Kernel // Nil uses Linear.
	C      float64 // Zero uses 1.
	// Solver handles the equality constraint and the box. Nil uses an
	// Equality wrapper over ActiveSet.
	Solver *boxqp.Equality
	// Optimizer, when set, trains the bias-absorbed dual instead. It must
	// reach Optimal or ObjChangeTol within its epoch budget.
	Optimizer *stochastic.Optimizer

	// Set by Fit.
	SupportX   *mat.Dense
	SupportY   []float64
	Alpha      []float64 // Multipliers of the support vectors
	W          []float64 // Primal weights, linear kernel only
	B          float64   // Intercept
	Result     *boxqp.EqualityResult
	DualResult *stochastic.Result // Set instead of Result when Optimizer is used
}

func (s *BinarySVM) kernel() Kernel {
	if s.Kernel == nil {
		return Linear{}
	}
	return s.Kernel
}

func (s *BinarySVM) c() float64 {
	if s.C == 0 {
		return 1
	}
	return s.C
}

// Fit trains the classifier on d. Every target must be -1 or +1 and both
// must occur.
func (s *BinarySVM) Fit(d *Dataset) error {
	if s.C < 0 {
		return common.NewConfigError("C", s.C, "must be positive")
	}
	if s.Solver != nil && s.Optimizer != nil {
		return common.NewConfigError("Optimizer", "set", "Solver and Optimizer are exclusive")
	}
	if s.Solver != nil {
		if _, ok := s.Solver.Solver.(*boxqp.DualSolver); ok {
			return common.NewConfigError("Solver", "DualSolver", "the dual Hessian is only semi-definite, set Optimizer instead")
		}
	}
	var pos, neg bool
	for i, y := range d.Y {
		switch y {
		case 1:
			pos = true
		case -1:
			neg = true
		default:
			return errors.Errorf("binarysvm: label %v of sample %d is not -1 or +1", y, i)
		}
	}
	if !pos || !neg {
		return errors.New("binarysvm: both classes are needed")
	}

	m := d.Len()
	C := s.c()
	k := s.kernel()
	K := Gram(k, d.X)
	var offset float64
	if s.Optimizer != nil {
		offset = 1
	}
	P := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			P.SetSym(i, j, (K.At(i, j)+offset)*d.Y[i]*d.Y[j])
		}
	}
	q := make([]float64, m)
	u := make([]float64, m)
	for i := range q {
		q[i] = -1
		u[i] = C
	}
	p, err := function.NewBoxQuadratic(P, q, u)
	if err != nil {
		return err
	}

	var alpha []float64
	s.Result, s.DualResult = nil, nil
	if s.Optimizer != nil {
		res, err := s.Optimizer.Minimize(p, make([]float64, m))
		if err != nil {
			return errors.Wrap(err, "binarysvm: solving dual")
		}
		if !res.Status.Converged() {
			return errors.Errorf("binarysvm: stochastic dual ended %v after %d epochs", res.Status, res.Epochs)
		}
		s.DualResult = res
		alpha = res.X
	} else {
		solver := s.Solver
		if solver == nil {
			solver = &boxqp.Equality{}
		}
		res, err := solver.Minimize(p, d.Y, 0)
		if err != nil {
			return errors.Wrap(err, "binarysvm: solving dual")
		}
		s.Result = res
		alpha = res.X
	}

	var sv []int
	for i, a := range alpha {
		if a > supportTol {
			sv = append(sv, i)
		}
	}
	if len(sv) == 0 {
		return errors.New("binarysvm: no support vectors")
	}
	support := d.Subset(sv)
	s.SupportX = support.X
	s.SupportY = support.Y
	s.Alpha = make([]float64, len(sv))
	for k, i := range sv {
		s.Alpha[k] = alpha[i]
	}

	s.W = nil
	if _, ok := k.(Linear); ok {
		_, c := d.X.Dims()
		s.W = make([]float64, c)
		for i := range sv {
			floats.AddScaled(s.W, s.Alpha[i]*s.SupportY[i], support.Row(i))
		}
	}

	s.B = 0
	if s.Optimizer != nil {
		s.B = floats.Dot(s.Alpha, s.SupportY)
		return nil
	}
	// The intercept averages y_s - Σ α_i y_i K(x_i, x_s) over the support
	// vectors strictly inside the box, or over all of them when every
	// multiplier is at C.
	var resid []float64
	for i, a := range s.Alpha {
		if a < C-supportTol {
			resid = append(resid, s.SupportY[i]-s.Decision(support.Row(i)))
		}
	}
	if len(resid) == 0 {
		for i := range s.Alpha {
			resid = append(resid, s.SupportY[i]-s.Decision(support.Row(i)))
		}
	}
	s.B = stat.Mean(resid, nil)
	return nil
}

// NumSupport returns the number of support vectors.
func (s *BinarySVM) NumSupport() int {
	return len(s.Alpha)
}

// Decision returns the signed distance score of x, positive for the +1
// class.
func (s *BinarySVM) Decision(x []float64) float64 {
	if s.W != nil {
		return floats.Dot(s.W, x) + s.B
	}
	k := s.kernel()
	sum := s.B
	for i, a := range s.Alpha {
		sum += a * s.SupportY[i] * k.Eval(s.SupportX.RawRowView(i), x)
	}
	return sum
}

// Predict returns +1 when the decision score is non-negative and -1
// otherwise.
func (s *BinarySVM) Predict(x []float64) float64 {
	if s.Decision(x) >= 0 {
		return 1
	}
	return -1
}

// Score returns the accuracy on d.
func (s *BinarySVM) Score(d *Dataset) float64 {
	return 1 - ErrorRate(s, d)
}
