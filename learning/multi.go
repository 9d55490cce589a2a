package learning

import (
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/orthoressyco/optiml/boxqp"
	"github.com/orthoressyco/optiml/common"
	"github.com/orthoressyco/optiml/stochastic"
)

// DecisionFunction selects how MultiSVM reduces to binary problems.
type DecisionFunction int

const (
	// OneVsRest trains one classifier per class against all others and
	// predicts the class with the highest decision score.
	OneVsRest DecisionFunction = iota
	// OneVsOne trains one classifier per pair of classes and predicts the
	// class with the most votes.
	OneVsOne
)

var decisionNames = map[DecisionFunction]string{
	OneVsRest: "ovr",
	OneVsOne:  "ovo",
}

func (f DecisionFunction) String() string {
	if s, ok := decisionNames[f]; ok {
		return s
	}
	return "unknown"
}

// ParseDecisionFunction resolves "ovr" or "ovo".
func ParseDecisionFunction(s string) (DecisionFunction, error) {
	for f, name := range decisionNames {
		if name == s {
			return f, nil
		}
	}
	return 0, common.NewConfigError("decision function", s, "must be ovr or ovo")
}

// MultiSVM is a multi-class classifier built from BinarySVMs.
type MultiSVM struct {
	// Solver and Optimizer configure every binary classifier as the fields
	// of BinarySVM do. Each classifier gets its own copy of Solver.
	Solver    *boxqp.Equality
	Optimizer *stochastic.Optimizer

	kernel   Kernel
	c        float64
	decision DecisionFunction

	classes     []float64
	classifiers []*BinarySVM
	// pairs[k] holds the class indices (negative, positive) of
	// classifiers[k] in OneVsOne mode.
	pairs [][2]int
}

// NewMultiSVM validates the configuration. A nil kernel uses Linear and a
// zero C uses 1.
func NewMultiSVM(kernel Kernel, decision DecisionFunction, C float64) (*MultiSVM, error) {
	if _, ok := decisionNames[decision]; !ok {
		return nil, common.NewConfigError("decision function", int(decision), "unknown")
	}
	if C < 0 {
		return nil, common.NewConfigError("C", C, "must be positive")
	}
	return &MultiSVM{kernel: kernel, c: C, decision: decision}, nil
}

// Classes returns the labels seen by Fit in increasing order.
func (m *MultiSVM) Classes() []float64 { return m.classes }

// Classifiers returns the trained binary classifiers.
func (m *MultiSVM) Classifiers() []*BinarySVM { return m.classifiers }

// Fit trains one fresh BinarySVM per subproblem. The subproblems are
// independent and are solved concurrently.
func (m *MultiSVM) Fit(d *Dataset) error {
	classes := d.Classes()
	if len(classes) < 2 {
		return errors.New("multisvm: at least two classes are needed")
	}
	var (
		subsets []*Dataset
		pairs   [][2]int
	)
	switch m.decision {
	case OneVsRest:
		for _, c := range classes {
			sub := &Dataset{X: d.X, Y: make([]float64, d.Len())}
			for i, y := range d.Y {
				sub.Y[i] = -1
				if y == c {
					sub.Y[i] = 1
				}
			}
			subsets = append(subsets, sub)
		}
	case OneVsOne:
		for i := range classes {
			for j := i + 1; j < len(classes); j++ {
				var idx []int
				for k, y := range d.Y {
					if y == classes[i] || y == classes[j] {
						idx = append(idx, k)
					}
				}
				sub := d.Subset(idx)
				for k, y := range sub.Y {
					sub.Y[k] = 1
					if y == classes[i] {
						sub.Y[k] = -1
					}
				}
				subsets = append(subsets, sub)
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}

	classifiers := make([]*BinarySVM, len(subsets))
	var g errgroup.Group
	for k, sub := range subsets {
		k, sub := k, sub
		g.Go(func() error {
			clf := &BinarySVM{Kernel: m.kernel, C: m.c, Optimizer: m.Optimizer}
			if m.Solver != nil {
				eq := *m.Solver
				clf.Solver = &eq
			}
			if err := clf.Fit(sub); err != nil {
				return errors.Wrapf(err, "multisvm: classifier %d", k)
			}
			classifiers[k] = clf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	m.classes = classes
	m.classifiers = classifiers
	m.pairs = pairs
	return nil
}

// Predict returns the predicted class label of x. Ties go to the lowest
// class.
func (m *MultiSVM) Predict(x []float64) float64 {
	if len(m.classifiers) == 0 {
		panic("multisvm: predict before fit")
	}
	score := make([]float64, len(m.classes))
	switch m.decision {
	case OneVsRest:
		for i, clf := range m.classifiers {
			score[i] = clf.Decision(x)
		}
	case OneVsOne:
		for k, clf := range m.classifiers {
			if v := clf.Decision(x); v < 0 {
				score[m.pairs[k][0]]++
			} else if v > 0 {
				score[m.pairs[k][1]]++
			}
		}
	}
	best := 0
	for i, v := range score {
		if v > score[best] {
			best = i
		}
	}
	return m.classes[best]
}

// Score returns the accuracy on d.
func (m *MultiSVM) Score(d *Dataset) float64 {
	return 1 - ErrorRate(m, d)
}
