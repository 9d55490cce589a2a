package boxqp

import (
	"sort"

	"github.com/pkg/errors"
)

// indexSet is an ordered set of coordinates.
type indexSet []int

func (s indexSet) contains(i int) bool {
	k := sort.SearchInts(s, i)
	return k < len(s) && s[k] == i
}

func (s *indexSet) insert(i int) {
	k := sort.SearchInts(*s, i)
	if k < len(*s) && (*s)[k] == i {
		return
	}
	*s = append(*s, 0)
	copy((*s)[k+1:], (*s)[k:])
	(*s)[k] = i
}

func (s *indexSet) remove(i int) bool {
	k := sort.SearchInts(*s, i)
	if k == len(*s) || (*s)[k] != i {
		return false
	}
	*s = append((*s)[:k], (*s)[k+1:]...)
	return true
}

// partition splits the coordinates into those at the lower bound, those at
// the upper bound and the free ones.
type partition struct {
	lower, upper, free indexSet
}

func newPartition(n int) partition {
	p := partition{free: make(indexSet, n)}
	for i := range p.free {
		p.free[i] = i
	}
	return p
}

// move transfers i between two sets of the partition. It panics if i is not
// in from.
func (p *partition) move(i int, from, to *indexSet) {
	if !from.remove(i) {
		panic("boxqp: moving an index that is not in its set")
	}
	to.insert(i)
}

// validate checks that the three sets are disjoint and cover 0..n-1.
func (p *partition) validate(n int) error {
	if got := len(p.lower) + len(p.upper) + len(p.free); got != n {
		return errors.Errorf("boxqp: partition holds %d indices, want %d", got, n)
	}
	seen := make([]bool, n)
	for _, set := range []indexSet{p.lower, p.upper, p.free} {
		for _, i := range set {
			if i < 0 || i >= n {
				return errors.Errorf("boxqp: index %d out of range", i)
			}
			if seen[i] {
				return errors.Errorf("boxqp: index %d in two sets", i)
			}
			seen[i] = true
		}
	}
	return nil
}
