// Package unconstrained minimizes smooth functions with line search
// methods: steepest descent, heavy ball momentum, BFGS and L-BFGS.
package unconstrained

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/orthoressyco/optiml/common"
	"github.com/orthoressyco/optiml/function"
	"github.com/orthoressyco/optiml/linesearch"
	"github.com/orthoressyco/optiml/write"
)

// Method produces search directions. A Method holds configuration only; the
// state of a run lives in the Directioner it creates.
type Method interface {
	NewDirectioner(dim int) Directioner
}

// Directioner computes the search direction of each iteration.
type Directioner interface {
	// Init stores the first direction from x with gradient g in dir.
	Init(dir, x, g []float64)
	// Next is called after every accepted step with the new point and
	// gradient and stores the next direction in dir.
	Next(dir, x, g []float64)
}

// Settings configures Minimize.
type Settings struct {
	*common.Settings
	common.Tolerances
	Linesearch *linesearch.Settings
}

// DefaultSettings stops at a gradient norm of 1e-6 with no budget limits.
func DefaultSettings() *Settings {
	return &Settings{
		Settings:   common.DefaultSettings(),
		Tolerances: common.DefaultTolerances(1e-6),
		Linesearch: linesearch.DefaultSettings(),
	}
}

// Result is the outcome of Minimize.
type Result struct {
	*common.Result
	X []float64
	F float64
	G []float64
}

// stallTol is the directional derivative, relative to the objective, below
// which a failed line search is put down to rounding.
const stallTol = 1e-12

func stalled(dirGrad, f float64) bool {
	return math.Abs(dirGrad) <= stallTol*math.Max(1, math.Abs(f))
}

type helper struct {
	*common.Common
	conv common.Convergence

	f     float64
	gnorm float64
}

func (h *helper) AppendWriteData(v []*write.Value) []*write.Value {
	v = append(v, &write.Value{Heading: "Obj", Value: h.f})
	v = append(v, &write.Value{Heading: "GradNorm", Value: h.gnorm})
	return v
}

// Minimize minimizes f from x0 with method. A nil method uses BFGS and nil
// settings use DefaultSettings. x0 is not modified. A line search that
// cannot decrease f because the directional derivative is lost in rounding
// ends the run with ObjChangeTol.
func Minimize(f function.Function, x0 []float64, method Method, settings *Settings) (*Result, error) {
	n := f.Dim()
	if len(x0) != n {
		return nil, errors.Errorf("unconstrained: initial point has length %d, want %d", len(x0), n)
	}
	if method == nil {
		method = &BFGS{}
	}
	if settings == nil {
		settings = DefaultSettings()
	}
	ls := settings.Linesearch
	if ls == nil {
		ls = linesearch.DefaultSettings()
	}
	if err := ls.Validate(); err != nil {
		return nil, err
	}

	h := &helper{Common: common.NewCommon()}
	h.AddDataAdder(h)
	if err := h.Init(settings.Settings); err != nil {
		return nil, err
	}

	x := append([]float64(nil), x0...)
	g := make([]float64, n)
	dir := make([]float64, n)
	h.f = f.Function(x)
	f.Jacobian(g, x)
	h.AddEvaluations(1)
	h.gnorm = floats.Norm(g, 2)
	h.conv.Init(settings.Tolerances, h.f, h.gnorm)

	d := method.NewDirectioner(n)
	d.Init(dir, x, g)
	prevObj := h.f + 5000

	var (
		status common.Status
		err    error
	)
	for {
		if math.IsNaN(h.f) || math.IsNaN(h.gnorm) {
			status = common.Failure
			err = errors.New("unconstrained: objective or gradient is NaN")
			break
		}
		if status = common.CheckStatus(&h.conv, h.Common); status != common.Continue {
			break
		}

		dirGrad := floats.Dot(dir, g)
		if !(dirGrad < 0) {
			floats.ScaleTo(dir, -1, g)
			dirGrad = -h.gnorm * h.gnorm
		}
		res, lerr := linesearch.Search(ls, f, dir, x, h.f, g, linesearch.InitialStep(h.f, prevObj, dirGrad))
		if lerr != nil {
			var nc *linesearch.NotConverged
			if res != nil && errors.As(lerr, &nc) && !(res.F < h.f) && stalled(dirGrad, h.f) {
				// Rounding hides any decrease along dir.
				h.AddEvaluations(res.Evaluations)
				status = common.ObjChangeTol
				break
			}
			if res == nil || !errors.As(lerr, &nc) || !(res.F < h.f) {
				status = common.Failure
				err = errors.Wrap(lerr, "unconstrained")
				if res != nil {
					h.AddEvaluations(res.Evaluations)
				}
				break
			}
		}

		prevObj = h.f
		copy(x, res.X)
		copy(g, res.G)
		h.f = res.F
		h.gnorm = floats.Norm(g, 2)
		h.conv.Iterate(h.gnorm, h.f)
		if ierr := h.Iterate(res.Evaluations); ierr != nil {
			return nil, ierr
		}
		d.Next(dir, x, g)
	}

	cr, rerr := h.Result(status)
	if err == nil {
		err = rerr
	}
	return &Result{
		Result: cr,
		X:      x,
		F:      h.f,
		G:      g,
	}, err
}
