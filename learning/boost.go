package learning

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/orthoressyco/optiml/common"
)

// WeightedTrainer fits a predictor to d where sample i carries weight w[i].
// The weights sum to one.
type WeightedTrainer func(d *Dataset, w []float64) (Predictor, error)

// ClipError clamps an error rate into [eps, 1-eps] so that rates of exactly
// 0 or 1 can be used in ratios and logarithms.
func ClipError(err, eps float64) float64 {
	return math.Min(math.Max(err, eps), 1-eps)
}

// WeightedMajority predicts the value with the largest total weight among
// the predictions of its members. Ties go to the value predicted first.
type WeightedMajority struct {
	Predictors []Predictor
	Weights    []float64
}

func (wm *WeightedMajority) Predict(x []float64) float64 {
	var (
		values []float64
		totals []float64
	)
	for k, p := range wm.Predictors {
		v := p.Predict(x)
		found := false
		for i, seen := range values {
			if seen == v {
				totals[i] += wm.Weights[k]
				found = true
				break
			}
		}
		if !found {
			values = append(values, v)
			totals = append(totals, wm.Weights[k])
		}
	}
	if len(values) == 0 {
		panic("weightedmajority: no predictors")
	}
	best := 0
	for i, t := range totals {
		if t > totals[best] {
			best = i
		}
	}
	return values[best]
}

// AdaBoost trains rounds hypotheses with train, reweighting the samples
// after each round towards those the hypothesis got wrong, and combines
// them by weighted majority with weights log((1-e)/e). Error rates are
// clipped to [1/(2m), 1-1/(2m)] for m samples.
func AdaBoost(train WeightedTrainer, d *Dataset, rounds int) (*WeightedMajority, error) {
	if rounds < 1 {
		return nil, common.NewConfigError("rounds", rounds, "must be positive")
	}
	m := d.Len()
	eps := 1 / float64(2*m)
	w := make([]float64, m)
	for i := range w {
		w[i] = 1 / float64(m)
	}
	wrong := make([]float64, m)

	ens := &WeightedMajority{}
	for k := 0; k < rounds; k++ {
		h, err := train(d, append([]float64(nil), w...))
		if err != nil {
			return nil, errors.Wrapf(err, "adaboost: round %d", k)
		}
		for i, y := range d.Y {
			wrong[i] = 0
			if h.Predict(d.Row(i)) != y {
				wrong[i] = 1
			}
		}
		e := ClipError(stat.Mean(wrong, w), eps)
		for i := range w {
			if wrong[i] == 0 {
				w[i] *= e / (1 - e)
			}
		}
		floats.Scale(1/floats.Sum(w), w)

		ens.Predictors = append(ens.Predictors, h)
		ens.Weights = append(ens.Weights, math.Log((1-e)/e))
	}
	return ens, nil
}
