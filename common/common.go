package common

import (
	"time"

	"github.com/orthoressyco/optiml/write"
)

// Settings is a set of options available to all optimizers.
type Settings struct {
	MaximumIterations          int           // Maximum number of major iterations, -1 for no limit
	MaximumFunctionEvaluations int           // Maximum number of function evaluations, -1 for no limit
	MaximumRuntime             time.Duration // Maximum runtime, -1 for no limit
	*write.Settings
}

// DefaultSettings returns settings with no budget limits and no writers.
func DefaultSettings() *Settings {
	return &Settings{
		MaximumIterations:          -1,
		MaximumFunctionEvaluations: -1,
		MaximumRuntime:             -1,
		Settings:                   &write.Settings{},
	}
}

// Result is the bookkeeping part of an optimization result.
type Result struct {
	Iterations          int           // Total number of iterations taken by the optimizer
	FunctionEvaluations int           // Total number of function evaluations
	Runtime             time.Duration // Total runtime elapsed during the optimization
	Status              Status        // How did the optimizer end
}

// Common tracks the iteration budget and the trace display of one run.
// A Common must not be shared between concurrent runs.
type Common struct {
	iter      int
	funEvals  int
	startTime time.Time

	settings *Settings

	*write.Display
}

// NewCommon creates a new Common and adds itself to the display.
func NewCommon() *Common {
	c := &Common{
		Display: write.NewDisplay(),
	}
	c.AddDataAdder(c)
	return c
}

// Init initializes all of the values in common at the start of a run.
// Init must be called after every DataAdder has been registered.
func (c *Common) Init(settings *Settings) error {
	if settings == nil {
		settings = DefaultSettings()
	}
	c.iter = 0
	c.funEvals = 0
	c.startTime = time.Now()
	c.settings = settings

	ws := settings.Settings
	if ws == nil {
		ws = &write.Settings{}
	}
	return c.Display.Init(ws)
}

// AppendWriteData implements write.DataAdder.
func (c *Common) AppendWriteData(d []*write.Value) []*write.Value {
	d = append(d, &write.Value{Heading: "Iter", Value: c.iter})
	d = append(d, &write.Value{Heading: "FnEval", Value: c.funEvals})
	return d
}

// Status reports Stopped once any budget in the settings is exhausted.
func (c *Common) Status() Status {
	s := c.settings
	if s.MaximumIterations > -1 && c.iter >= s.MaximumIterations {
		return Stopped
	}
	if s.MaximumFunctionEvaluations > -1 && c.funEvals >= s.MaximumFunctionEvaluations {
		return Stopped
	}
	if s.MaximumRuntime > -1 && time.Since(c.startTime) > s.MaximumRuntime {
		return Stopped
	}
	return Continue
}

// AddEvaluations counts function evaluations that happen outside Iterate.
func (c *Common) AddEvaluations(n int) {
	c.funEvals += n
}

// Iterations returns the number of completed iterations.
func (c *Common) Iterations() int {
	return c.iter
}

// Iterate increments the iteration counter, adds the function evaluations
// of the iteration and writes the trace.
func (c *Common) Iterate(nFunEvals int) error {
	c.iter++
	c.funEvals += nFunEvals
	return c.Display.Iterate()
}

// Result returns the bookkeeping results of the run and writes the final
// row of the trace.
func (c *Common) Result(status Status) (*Result, error) {
	r := &Result{
		Iterations:          c.iter,
		FunctionEvaluations: c.funEvals,
		Runtime:             time.Since(c.startTime),
		Status:              status,
	}
	return r, c.Display.Finish(status.String())
}
