package common

// Statuser is implemented by anything that can decide whether a run
// should keep going.
type Statuser interface {
	Status() Status
}

// CheckStatus checks a variadic number of Statusers and returns the first
// status that is not Continue.
func CheckStatus(cs ...Statuser) Status {
	for _, val := range cs {
		c := val.Status()
		if c != Continue {
			return c
		}
	}
	return Continue
}

// Status expresses whether an optimizer has finished.
// Zero means the run is still going and the optimizer should continue.
// Positive values indicate convergence, negative values indicate the run
// ended without a proof of optimality (budget exhausted, stopped by a
// callback, numerical failure).
type Status int

const (
	// Continue is the status of a running optimizer.
	Continue Status = iota
	// Optimal means the optimality measure of the method (gradient norm,
	// projected gradient, KKT multipliers, duality gap) fell below its
	// threshold.
	Optimal
	// ObjChangeTol means the objective stopped changing over the configured
	// window.
	ObjChangeTol
)

const (
	_ = iota
	// Stopped means the iteration, epoch, evaluation or runtime budget was
	// exhausted, or a callback asked to stop. The result is the best point
	// found, not necessarily an optimum.
	Stopped Status = -1 * iota
	// Failure means a numerical failure (singular system, NaN step).
	Failure
	// Infeasible means the constraints could not be satisfied to tolerance.
	Infeasible
)

var statusStrings = map[Status]string{
	Continue:     "Running",
	Optimal:      "Optimal",
	ObjChangeTol: "ObjChangeTol",
	Stopped:      "Stopped",
	Failure:      "Failure",
	Infeasible:   "Infeasible",
}

func (s Status) String() string {
	str, ok := statusStrings[s]
	if !ok {
		return "UnregisteredStatus"
	}
	return str
}

// Converged reports whether the status is a successful termination.
func (s Status) Converged() bool {
	return s > 0
}
