package stochastic

import "math/rand"

// batcher cuts the samples into consecutive batches, permuting them at the
// start of every pass when shuffling. The generator is owned by one run.
type batcher struct {
	idx  []int
	size int
	pos  int
	rnd  *rand.Rand
}

// newBatcher returns a batcher over m samples. A size of zero, or one that
// covers every sample, yields the full batch as a nil slice.
func newBatcher(m, size int, shuffle bool, seed int64) *batcher {
	b := &batcher{}
	if size == 0 || size >= m {
		return b
	}
	b.size = size
	b.idx = make([]int, m)
	for i := range b.idx {
		b.idx[i] = i
	}
	if shuffle {
		b.rnd = rand.New(rand.NewSource(seed))
	}
	return b
}

// next returns the next batch and whether it completes a pass over the data.
func (b *batcher) next() (batch []int, end bool) {
	if b.idx == nil {
		return nil, true
	}
	if b.pos == 0 && b.rnd != nil {
		b.rnd.Shuffle(len(b.idx), func(i, j int) {
			b.idx[i], b.idx[j] = b.idx[j], b.idx[i]
		})
	}
	hi := b.pos + b.size
	if hi >= len(b.idx) {
		hi = len(b.idx)
	}
	batch = b.idx[b.pos:hi]
	b.pos = hi
	if b.pos == len(b.idx) {
		b.pos = 0
		return batch, true
	}
	return batch, false
}
