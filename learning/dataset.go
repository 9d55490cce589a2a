// Package learning trains classifiers and regressors on top of the
// optimizers: support vector machines solved as box-constrained quadratic
// programs, linear and logistic models fitted with a stochastic optimizer,
// and AdaBoost ensembles combined by weighted majority.
package learning

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Dataset holds one sample per row of X and its target in Y.
type Dataset struct {
	X *mat.Dense
	Y []float64
}

// NewDataset checks that X has one row per target.
func NewDataset(X *mat.Dense, y []float64) (*Dataset, error) {
	if X == nil || X.IsEmpty() {
		return nil, errors.New("learning: empty dataset")
	}
	if m, _ := X.Dims(); m != len(y) {
		return nil, errors.Errorf("learning: %d samples but %d targets", m, len(y))
	}
	return &Dataset{X: X, Y: y}, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.Y) }

// Row returns sample i. The slice shares storage with X.
func (d *Dataset) Row(i int) []float64 { return d.X.RawRowView(i) }

// Subset copies the samples at idx into a new Dataset.
func (d *Dataset) Subset(idx []int) *Dataset {
	_, c := d.X.Dims()
	X := mat.NewDense(len(idx), c, nil)
	y := make([]float64, len(idx))
	for k, i := range idx {
		X.SetRow(k, d.Row(i))
		y[k] = d.Y[i]
	}
	return &Dataset{X: X, Y: y}
}

// Classes returns the distinct targets in increasing order.
func (d *Dataset) Classes() []float64 {
	seen := make(map[float64]bool)
	var classes []float64
	for _, v := range d.Y {
		if !seen[v] {
			seen[v] = true
			classes = append(classes, v)
		}
	}
	sort.Float64s(classes)
	return classes
}

// withBias returns X with a leading column of ones.
func withBias(X *mat.Dense) *mat.Dense {
	r, c := X.Dims()
	b := mat.NewDense(r, c+1, nil)
	for i := 0; i < r; i++ {
		b.Set(i, 0, 1)
	}
	b.Slice(0, r, 1, c+1).(*mat.Dense).Copy(X)
	return b
}

// Predictor maps a sample to a target.
type Predictor interface {
	Predict(x []float64) float64
}

// ErrorRate returns the fraction of samples of d that p gets wrong.
func ErrorRate(p Predictor, d *Dataset) float64 {
	var wrong int
	for i, y := range d.Y {
		if p.Predict(d.Row(i)) != y {
			wrong++
		}
	}
	return float64(wrong) / float64(d.Len())
}
