package common

import "math"

// UniToler is a type for checking the convergence of a variable with either
// relative or absolute convergence values.
type UniToler struct {
	hist   []float64
	last   int  // Index of the last value added
	filled bool // Has the history been populated fully at least once

	absTol float64
	relTol float64

	recent float64
}

// Init initializes the UniToler. relativeWindow is the stencil for comparing
// values with the relative tolerance. A NaN absolute tolerance or a
// non-positive relative tolerance disables the corresponding test.
func (t *UniToler) Init(absTol, relTol float64, relativeWindow int, initVal float64) {
	if relTol > 0 {
		if relativeWindow < 2 {
			relativeWindow = 2
		}
		if cap(t.hist) < relativeWindow {
			t.hist = make([]float64, relativeWindow)
		} else {
			t.hist = t.hist[:relativeWindow]
		}
		t.last = 0
		t.hist[0] = initVal
	}
	t.recent = initVal
	t.relTol = relTol
	t.absTol = absTol
	t.filled = false
}

// Add adds a new value to the toler (after an iteration).
func (t *UniToler) Add(v float64) {
	t.recent = v
	if t.relTol > 0 {
		t.last++
		if t.last == len(t.hist) {
			t.last = 0
			t.filled = true
		}
		t.hist[t.last] = v
	}
}

// AbsConverged returns true if the most recent value is strictly below the
// absolute tolerance.
func (t *UniToler) AbsConverged() bool {
	if math.IsNaN(t.absTol) {
		return false
	}
	return t.recent < t.absTol
}

// RelConverged returns true if the absolute difference between the most
// recent value and the value added relativeWindow-1 times ago is less than
// the relative tolerance. It is false until the window has been filled.
func (t *UniToler) RelConverged() bool {
	if t.relTol <= 0 || !t.filled {
		return false
	}
	recent := t.hist[t.last]

	prevInd := t.last + 1
	if prevInd == len(t.hist) {
		prevInd = 0
	}
	previous := t.hist[prevInd]

	return math.Abs(previous-recent) < t.relTol
}

// Tolerances configures the convergence tests shared by the gradient-based
// drivers.
type Tolerances struct {
	GradAbsTol   float64 // Optimal once the gradient norm is below this. NaN disables.
	ObjRelTol    float64 // ObjChangeTol once the objective moves less than this over the window. <= 0 disables.
	ObjRelWindow int     // Window for the objective change test.
}

// DefaultTolerances returns a gradient tolerance of eps with the objective
// change test disabled.
func DefaultTolerances(eps float64) Tolerances {
	return Tolerances{
		GradAbsTol:   eps,
		ObjRelTol:    -1,
		ObjRelWindow: 5,
	}
}

// Convergence tracks a gradient norm and an objective value through a run.
type Convergence struct {
	grad UniToler
	obj  UniToler
}

// Init resets the tracked values for a new run.
func (c *Convergence) Init(tol Tolerances, initObj, initGradNorm float64) {
	c.grad.Init(tol.GradAbsTol, -1, 0, initGradNorm)
	c.obj.Init(math.NaN(), tol.ObjRelTol, tol.ObjRelWindow, initObj)
}

// Iterate records the values reached by an iteration.
func (c *Convergence) Iterate(gradNorm, obj float64) {
	c.grad.Add(gradNorm)
	c.obj.Add(obj)
}

// Status implements Statuser.
func (c *Convergence) Status() Status {
	if c.grad.AbsConverged() {
		return Optimal
	}
	if c.obj.RelConverged() {
		return ObjChangeTol
	}
	return Continue
}
