package stochastic

import (
	"github.com/orthoressyco/optiml/common"
)

// MomentumType selects how the step of an iteration is combined with the
// velocity carried over from the previous iterations.
type MomentumType int

const (
	// NoMomentum steps by the scaled direction alone.
	NoMomentum MomentumType = iota
	// Standard (heavy ball) momentum:
	//
	//	v = βv + η·d
	//	x = x + v
	Standard
	// Nesterov momentum evaluates the objective and gradient at the
	// look-ahead point x + βv before updating v as in Standard.
	Nesterov
)

var momentumNames = map[MomentumType]string{
	NoMomentum: "none",
	Standard:   "standard",
	Nesterov:   "nesterov",
}

func (m MomentumType) String() string {
	if s, ok := momentumNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseMomentumType returns the momentum type named s, one of "none",
// "standard" or "nesterov".
func ParseMomentumType(s string) (MomentumType, error) {
	for m, name := range momentumNames {
		if name == s {
			return m, nil
		}
	}
	return 0, common.NewConfigError("momentum type", s, "want none, standard or nesterov")
}

// Callback is called once per batch with the batch indices (nil for the full
// data set) and the current iterate, which must not be modified. Returning
// true stops the run.
type Callback func(batch []int, x []float64) (stop bool)

// Settings configures an Optimizer.
type Settings struct {
	*common.Settings

	// StepSize is the learning rate η. It must be positive.
	StepSize float64
	// BatchSize is the number of samples per batch when the objective is
	// function.Batched. Zero selects the full batch.
	BatchSize int
	// Epochs is the number of passes over the data before the run stops.
	Epochs int
	// Eps is the gradient norm below which the run is optimal.
	Eps float64
	// ObjRelTol stops the run with ObjChangeTol once the objective changes
	// less than this over ObjRelWindow iterations. Non-positive disables it.
	ObjRelTol    float64
	ObjRelWindow int

	MomentumType MomentumType
	// Momentum is the velocity decay β in [0, 1).
	Momentum float64

	// Shuffle permutes the samples at the start of every epoch.
	Shuffle bool
	// Seed seeds the shuffling of one run. Runs with equal settings and seed
	// produce identical iterates.
	Seed int64

	Callback Callback
}

// DefaultSettings returns the default settings: full batch, 1000 epochs,
// step size 0.01 and no momentum.
func DefaultSettings() *Settings {
	return &Settings{
		Settings:     common.DefaultSettings(),
		StepSize:     0.01,
		Epochs:       1000,
		Eps:          1e-6,
		ObjRelTol:    -1,
		ObjRelWindow: 5,
		MomentumType: NoMomentum,
		Momentum:     0.9,
		Shuffle:      true,
	}
}

func (s *Settings) validate() error {
	if !(s.StepSize > 0) {
		return common.NewConfigError("step size", s.StepSize, "must be positive")
	}
	if s.Epochs < 1 {
		return common.NewConfigError("epochs", s.Epochs, "must be at least 1")
	}
	if s.BatchSize < 0 {
		return common.NewConfigError("batch size", s.BatchSize, "must not be negative")
	}
	if s.Eps < 0 {
		return common.NewConfigError("eps", s.Eps, "must not be negative")
	}
	if _, ok := momentumNames[s.MomentumType]; !ok {
		return common.NewConfigError("momentum type", int(s.MomentumType), "unknown")
	}
	return common.CheckUnitInterval("momentum", s.Momentum)
}
