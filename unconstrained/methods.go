package unconstrained

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SteepestDescent searches along -∇f.
type SteepestDescent struct{}

func (SteepestDescent) NewDirectioner(int) Directioner { return steepest{} }

type steepest struct{}

func (steepest) Init(dir, x, g []float64) { floats.ScaleTo(dir, -1, g) }
func (steepest) Next(dir, x, g []float64) { floats.ScaleTo(dir, -1, g) }

// HeavyBall adds the previous step to the negative gradient,
//
//	d_k = -∇f(x_k) + β(x_k - x_{k-1}).
//
// Directions that are not descent directions are replaced by -∇f.
type HeavyBall struct {
	Momentum float64 // β. Zero uses 0.5.
}

func (hb *HeavyBall) NewDirectioner(dim int) Directioner {
	beta := hb.Momentum
	if beta == 0 {
		beta = 0.5
	}
	return &heavyBall{beta: beta, prev: make([]float64, dim)}
}

type heavyBall struct {
	beta float64
	prev []float64
}

func (h *heavyBall) Init(dir, x, g []float64) {
	copy(h.prev, x)
	floats.ScaleTo(dir, -1, g)
}

func (h *heavyBall) Next(dir, x, g []float64) {
	floats.SubTo(dir, x, h.prev)
	floats.Scale(h.beta, dir)
	floats.AddScaled(dir, -1, g)
	if floats.Dot(dir, g) >= 0 {
		floats.ScaleTo(dir, -1, g)
	}
	copy(h.prev, x)
}

// BFGS keeps a dense approximation of the inverse Hessian, starting from
// the identity.
type BFGS struct{}

func (BFGS) NewDirectioner(dim int) Directioner {
	return &bfgs{
		invHess: mat.NewSymDense(dim, nil),
		x:       make([]float64, dim),
		g:       make([]float64, dim),
		s:       make([]float64, dim),
		y:       make([]float64, dim),
		hy:      mat.NewVecDense(dim, nil),
	}
}

type bfgs struct {
	invHess *mat.SymDense
	x, g    []float64
	s, y    []float64
	hy      *mat.VecDense
}

func (b *bfgs) Init(dir, x, g []float64) {
	for i := range x {
		b.invHess.SetSym(i, i, 1)
	}
	copy(b.x, x)
	copy(b.g, g)
	b.direction(dir)
}

func (b *bfgs) Next(dir, x, g []float64) {
	// s_k = x_{k+1} - x_k, y_k = g_{k+1} - g_k
	floats.SubTo(b.s, x, b.x)
	floats.SubTo(b.y, g, b.g)
	copy(b.x, x)
	copy(b.g, g)

	sy := floats.Dot(b.s, b.y)
	if sy > 0 {
		// H+ = H + (sᵀy + yᵀHy)/(sᵀy)² ssᵀ - (Hysᵀ + syᵀH)/sᵀy
		sv := mat.NewVecDense(len(b.s), b.s)
		b.hy.MulVec(b.invHess, mat.NewVecDense(len(b.y), b.y))
		yhy := floats.Dot(b.y, b.hy.RawVector().Data)
		b.invHess.RankTwo(b.invHess, -1/sy, b.hy, sv)
		b.invHess.SymRankOne(b.invHess, (sy+yhy)/(sy*sy), sv)
	}
	b.direction(dir)
}

func (b *bfgs) direction(dir []float64) {
	d := mat.NewVecDense(len(dir), dir)
	d.MulVec(b.invHess, mat.NewVecDense(len(b.g), b.g))
	floats.Scale(-1, dir)
}

// LBFGS approximates the inverse Hessian from the last Memory steps with the
// two-loop recursion.
type LBFGS struct {
	Memory int // Zero uses 30.
}

func (l *LBFGS) NewDirectioner(dim int) Directioner {
	m := l.Memory
	if m == 0 {
		m = 30
	}
	lb := &lbfgs{
		memory:     m,
		x:          make([]float64, dim),
		g:          make([]float64, dim),
		s:          make([]float64, dim),
		y:          make([]float64, dim),
		sHist:      make([][]float64, m),
		yHist:      make([][]float64, m),
		invRhoHist: make([]float64, m),
		alpha:      make([]float64, m),
	}
	for i := 0; i < m; i++ {
		lb.sHist[i] = make([]float64, dim)
		lb.yHist[i] = make([]float64, dim)
	}
	return lb
}

type lbfgs struct {
	memory  int
	counter int // Slot for the next pair
	stored  int // Pairs held, at most memory
	x, g    []float64
	s, y    []float64

	sHist      [][]float64
	yHist      [][]float64
	invRhoHist []float64 // yᵀs
	alpha      []float64
}

func (l *lbfgs) Init(dir, x, g []float64) {
	l.counter = 0
	l.stored = 0
	copy(l.x, x)
	copy(l.g, g)
	floats.ScaleTo(dir, -1, g)
}

func (l *lbfgs) Next(dir, x, g []float64) {
	floats.SubTo(l.s, x, l.x)
	floats.SubTo(l.y, g, l.g)
	copy(l.x, x)
	copy(l.g, g)

	// Pairs without positive curvature are skipped.
	if sy := floats.Dot(l.s, l.y); sy > 0 {
		copy(l.sHist[l.counter], l.s)
		copy(l.yHist[l.counter], l.y)
		l.invRhoHist[l.counter] = sy
		l.counter++
		if l.counter == l.memory {
			l.counter = 0
		}
		if l.stored < l.memory {
			l.stored++
		}
	}

	floats.ScaleTo(dir, -1, g)
	if l.stored == 0 {
		return
	}
	// Newest pair first.
	for i := 0; i < l.stored; i++ {
		ind := l.index(i)
		l.alpha[ind] = floats.Dot(l.sHist[ind], dir) / l.invRhoHist[ind]
		floats.AddScaled(dir, -l.alpha[ind], l.yHist[ind])
	}
	newest := l.index(0)
	gamma := l.invRhoHist[newest] / floats.Dot(l.yHist[newest], l.yHist[newest])
	floats.Scale(gamma, dir)
	for i := l.stored - 1; i >= 0; i-- {
		ind := l.index(i)
		beta := floats.Dot(l.yHist[ind], dir) / l.invRhoHist[ind]
		floats.AddScaled(dir, l.alpha[ind]-beta, l.sHist[ind])
	}
}

// index returns the slot of the pair stored i updates ago.
func (l *lbfgs) index(i int) int {
	ind := l.counter - 1 - i
	if ind < 0 {
		ind += l.memory
	}
	return ind
}
