// Package linesearch finds step sizes along a descent direction that
// satisfy the Wolfe conditions.
package linesearch

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/orthoressyco/optiml/common"
	"github.com/orthoressyco/optiml/function"
)

// WolfeType selects the curvature condition.
type WolfeType int

const (
	// Strong requires |φ'(α)| <= c2|φ'(0)|.
	Strong WolfeType = iota
	// Weak requires φ'(α) >= c2φ'(0).
	Weak
)

// Settings configures a line search.
type Settings struct {
	FunConst  float64 // Sufficient decrease constant c1
	GradConst float64 // Curvature constant c2
	Type      WolfeType
	MaxEvals  int // Evaluations allowed per search
}

// DefaultSettings returns strong Wolfe conditions with c1 = 1e-4 and
// c2 = 0.9 and 100 evaluations per search.
func DefaultSettings() *Settings {
	return &Settings{
		FunConst:  1e-4,
		GradConst: 0.9,
		Type:      Strong,
		MaxEvals:  100,
	}
}

// Validate checks 0 <= c1 < c2 < 1.
func (s *Settings) Validate() error {
	if s.Type != Strong && s.Type != Weak {
		return common.NewConfigError("wolfe type", int(s.Type), "unknown")
	}
	if s.FunConst < 0 {
		return common.NewConfigError("wolfe function constant", s.FunConst, "must not be negative")
	}
	if !(s.GradConst > s.FunConst && s.GradConst < 1) {
		return common.NewConfigError("wolfe gradient constant", s.GradConst, "must be in (c1, 1)")
	}
	if s.MaxEvals < 1 {
		return common.NewConfigError("line search evaluations", s.MaxEvals, "must be positive")
	}
	return nil
}

// WolfeConditions tests a step α against the sufficient decrease and
// curvature conditions of φ(α) = f(x + αd).
type WolfeConditions struct {
	funConst  float64
	gradConst float64
	t         WolfeType

	initObj  float64
	initGrad float64

	currObj  float64
	currGrad float64
	step     float64
}

// Init sets φ(0) and φ'(0). initGrad must be negative.
func (w *WolfeConditions) Init(s *Settings, initObj, initGrad float64) {
	w.funConst = s.FunConst
	w.gradConst = s.GradConst
	w.t = s.Type

	w.initObj = initObj
	w.initGrad = initGrad
	w.currObj = initObj
	w.currGrad = initGrad
	w.step = 0
}

// Iterate records φ(step) and φ'(step).
func (w *WolfeConditions) Iterate(step, obj, grad float64) {
	if step < 0 {
		panic("wolfe: negative step")
	}
	w.step = step
	w.currObj = obj
	w.currGrad = grad
}

// Met reports whether the last step satisfies both conditions.
func (w *WolfeConditions) Met() bool {
	if w.step == 0 {
		return false
	}
	if w.currObj > w.initObj+w.funConst*w.step*w.initGrad {
		return false
	}
	switch w.t {
	case Strong:
		return math.Abs(w.currGrad) <= w.gradConst*math.Abs(w.initGrad)
	case Weak:
		return w.currGrad >= w.gradConst*w.initGrad
	default:
		panic("wolfe: unknown type")
	}
}

// NotConverged is returned when the evaluation budget ran out before a step
// met the Wolfe conditions. The accompanying Result holds the lowest point
// evaluated.
type NotConverged struct {
	Evaluations int
	Step        float64
}

func (n *NotConverged) Error() string {
	return fmt.Sprintf("linesearch: wolfe conditions not met after %d evaluations (step %v)", n.Evaluations, n.Step)
}

// Result is the point found by a line search.
type Result struct {
	X           []float64
	F           float64
	G           []float64
	Step        float64
	Evaluations int
}

// InitialStep returns the first trial step, min(1, 2.02(f - fPrev)/φ'(0)),
// which predicts the same decrease as the previous iteration. Non-positive
// predictions fall back to 1.
func InitialStep(obj, prevObj, dirGrad float64) float64 {
	step := math.Min(1, 1.01*2*(obj-prevObj)/dirGrad)
	if !(step > 0) {
		return 1
	}
	return step
}

// Search looks for a step along dir from x, where f(x) = obj and ∇f(x) = grad,
// starting the bracketing at initStep. dir must be a descent direction.
// The slices passed in are not modified.
func Search(s *Settings, f function.Function, dir, x []float64, obj float64, grad []float64, initStep float64) (*Result, error) {
	n := len(x)
	if len(dir) != n || len(grad) != n {
		return nil, errors.New("linesearch: length mismatch")
	}
	if s == nil {
		s = DefaultSettings()
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	dirGrad := floats.Dot(dir, grad)
	if !(dirGrad < 0) {
		return nil, errors.Errorf("linesearch: not a descent direction (directional derivative %v)", dirGrad)
	}
	if !(initStep > 0) {
		initStep = 1
	}

	var wolfe WolfeConditions
	wolfe.Init(s, obj, dirGrad)
	var b bisection
	b.init(initStep, obj, dirGrad)

	curr := make([]float64, n)
	currGrad := make([]float64, n)
	best := &Result{
		X: append([]float64(nil), x...),
		F: obj,
		G: append([]float64(nil), grad...),
	}
	for evals := 1; evals <= s.MaxEvals; evals++ {
		step := b.step
		floats.AddScaledTo(curr, x, step, dir)
		fc := f.Function(curr)
		f.Jacobian(currGrad, curr)
		gc := floats.Dot(dir, currGrad)

		best.Evaluations = evals
		if fc < best.F {
			copy(best.X, curr)
			copy(best.G, currGrad)
			best.F = fc
			best.Step = step
		}

		wolfe.Iterate(step, fc, gc)
		if wolfe.Met() {
			copy(best.X, curr)
			copy(best.G, currGrad)
			best.F = fc
			best.Step = step
			return best, nil
		}
		b.update(fc, gc)
	}
	return best, &NotConverged{Evaluations: s.MaxEvals, Step: b.step}
}
