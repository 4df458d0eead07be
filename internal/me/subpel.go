package me

import "github.com/deepteams/motion/internal/mc"

// Sub-sample patterns in quarter samples.
var (
	// halfRing1 holds the eight half-sample neighbours.
	halfRing1 = [8][2]int32{
		{-2, 0}, {0, 2}, {2, 0}, {0, -2}, {-2, 2}, {2, 2}, {-2, -2}, {2, -2},
	}
	// halfRing2 holds the sixteen positions two half samples away.
	halfRing2 = [16][2]int32{
		{-4, -4}, {-2, -4}, {0, -4}, {2, -4}, {4, -4},
		{4, -2}, {4, 0}, {4, 2}, {4, 4},
		{2, 4}, {0, 4}, {-2, 4}, {-4, 4},
		{-4, 2}, {-4, 0}, {-4, -2},
	}
	quarter8 = [8][2]int32{
		{-1, 0}, {0, 1}, {1, 0}, {0, -1}, {-1, 1}, {1, 1}, {-1, -1}, {1, -1},
	}
)

// subpel refines st around its integer best. Integer precision checks the
// eight full-sample neighbours; otherwise the half-sample rings are searched
// around the integer best and, for quarter precision, the quarter-sample
// neighbours around the half-sample best.
func (s *Searcher) subpel(st *searchState) {
	if s.cfg.Precision == PrecisionInteger {
		c := st.best
		for _, o := range square8 {
			s.tryInt(st, point{c.x + o[0], c.y + o[1]})
		}
		return
	}

	c := st.mv
	for _, o := range halfRing1 {
		s.trySub(st, mc.MV{X: c.X + o[0], Y: c.Y + o[1]})
	}
	if s.cfg.SubpelRings > 1 {
		for _, o := range halfRing2 {
			s.trySub(st, mc.MV{X: c.X + o[0], Y: c.Y + o[1]})
		}
	}
	if s.cfg.Precision == PrecisionQuarter {
		c = st.mv
		for _, o := range quarter8 {
			s.trySub(st, mc.MV{X: c.X + o[0], Y: c.Y + o[1]})
		}
	}
}

// trySub evaluates a fractional vector through the motion compensator. The
// vector is clamped for addressing; the unclamped vector keeps selecting the
// filter phase and is the one whose bits are counted.
func (s *Searcher) trySub(st *searchState, mv mc.MV) bool {
	b := s.blk
	pair := mc.MVPair{Original: mv, Clamped: mc.Clamp(b.X, b.Y, b.W, b.H, s.picW, s.picH, mv)}
	s.evals++
	s.comp.Luma(s.pred, b.W, s.ref, b.X, b.Y, b.W, b.H, pair)
	d := s.dist(s.org, b.W, s.pred, 0, b.W, b.W, b.H)
	if s.bi {
		d >>= 1
	}
	r, bits := s.rate(mv)
	if c := uint64(d) + r; c < st.cost {
		st.mv = mv
		st.cost, st.dist, st.bits = c, d, bits
		return true
	}
	return false
}
