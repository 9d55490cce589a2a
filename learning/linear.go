package learning

import (
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/orthoressyco/optiml/function"
	"github.com/orthoressyco/optiml/stochastic"
)

// defaultOptimizer is full-batch gradient descent with step 0.01 for 100
// epochs.
func defaultOptimizer() *stochastic.Optimizer {
	s := stochastic.DefaultSettings()
	s.StepSize = 0.01
	s.Epochs = 100
	opt, err := stochastic.New(stochastic.GradientDescent{}, s)
	if err != nil {
		panic(err)
	}
	return opt
}

// initialWeights draws n weights uniformly from [-0.5, 0.5).
func initialWeights(n int, seed int64) []float64 {
	rnd := rand.New(rand.NewSource(seed))
	w := make([]float64, n)
	for i := range w {
		w[i] = rnd.Float64() - 0.5
	}
	return w
}

// LinearLearner is a least squares linear model with an intercept. The
// weights start uniformly in [-0.5, 0.5), seeded by the optimizer's Seed.
type LinearLearner struct {
	// Optimizer minimizes the mean squared error. Nil uses 100 epochs of
	// gradient descent with step 0.01.
	Optimizer *stochastic.Optimizer

	W      []float64 // Intercept first
	Result *stochastic.Result
}

// Fit trains the model on d.
func (l *LinearLearner) Fit(d *Dataset) error {
	opt := l.Optimizer
	if opt == nil {
		opt = defaultOptimizer()
	}
	f, err := function.NewLeastSquares(withBias(d.X), d.Y)
	if err != nil {
		return err
	}
	res, err := opt.Minimize(f, initialWeights(f.Dim(), opt.Settings().Seed))
	if err != nil {
		return errors.Wrap(err, "linearlearner")
	}
	l.W = res.X
	l.Result = res
	return nil
}

// Predict returns w₀ + wᵀx.
func (l *LinearLearner) Predict(x []float64) float64 {
	return l.W[0] + floats.Dot(l.W[1:], x)
}

// LogisticLearner is a logistic regression with an intercept for targets
// 0 and 1.
type LogisticLearner struct {
	// Optimizer minimizes the mean cross entropy. Nil uses 100 epochs of
	// gradient descent with step 0.01.
	Optimizer *stochastic.Optimizer
	// Lambda is the ridge penalty on the weights. Separable data needs a
	// positive Lambda for the weights to stay finite.
	Lambda float64

	W      []float64 // Intercept first
	Result *stochastic.Result
}

// Fit trains the model on d.
func (l *LogisticLearner) Fit(d *Dataset) error {
	opt := l.Optimizer
	if opt == nil {
		opt = defaultOptimizer()
	}
	f, err := function.NewCrossEntropy(withBias(d.X), d.Y, l.Lambda)
	if err != nil {
		return err
	}
	res, err := opt.Minimize(f, initialWeights(f.Dim(), opt.Settings().Seed))
	if err != nil {
		return errors.Wrap(err, "logisticlearner")
	}
	l.W = res.X
	l.Result = res
	return nil
}

// Probability returns the modelled probability that x belongs to class 1.
func (l *LogisticLearner) Probability(x []float64) float64 {
	return function.Sigmoid(l.W[0] + floats.Dot(l.W[1:], x))
}

// Predict returns 1 when the probability is at least 1/2 and 0 otherwise.
func (l *LogisticLearner) Predict(x []float64) float64 {
	if l.Probability(x) >= 0.5 {
		return 1
	}
	return 0
}

// Score returns the accuracy on d.
func (l *LogisticLearner) Score(d *Dataset) float64 {
	return 1 - ErrorRate(l, d)
}
