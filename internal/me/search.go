// Package me implements block motion estimation: an expanding diamond search
// with optional raster and refinement stages, sub-sample refinement through
// the motion compensator and a joint bi-prediction refinement. Costs are
// distortion plus a lambda-weighted estimate of the vector bits.
package me

import (
	"fmt"

	"github.com/deepteams/motion/internal/dsp"
	"github.com/deepteams/motion/internal/mc"
	"github.com/deepteams/motion/internal/picture"
	"github.com/deepteams/motion/internal/pool"
)

// Block is a rectangle of the current picture in luma samples.
type Block struct {
	X, Y, W, H int
}

func (b Block) String() string { return fmt.Sprintf("%dx%d@(%d,%d)", b.W, b.H, b.X, b.Y) }

// RefList is an ordered list of reference pictures. All pictures must have
// the current picture's dimensions and be padded with Extend.
type RefList []*picture.Picture

// Result is the outcome of a uni-prediction search.
type Result struct {
	MV          mc.MV // quarter samples, relative to the block
	RefIdx      int
	Cost        uint64
	Dist        uint32
	MVBits      int // vector difference and reference index bits
	Evaluations int
}

// Integer diamond patterns. Offsets are scaled by step >> meidx.
var (
	diamond8 = [8][2]int{
		{-2, 0}, {-1, 1}, {0, 2}, {1, 1}, {2, 0}, {1, -1}, {0, -2}, {-1, -1},
	}
	diamond16 = [16][2]int{
		{-4, 0}, {-3, 1}, {-2, 2}, {-1, 3}, {0, 4}, {1, 3}, {2, 2}, {3, 1},
		{4, 0}, {3, -1}, {2, -2}, {1, -3}, {0, -4}, {-1, -3}, {-2, -2}, {-3, -1},
	}
	square8 = [8][2]int{
		{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1},
	}
)

// localRadius is the half-width of the rectangular neighbourhood every
// uni-prediction diamond search starts with.
const localRadius = 2

// point is a block position in full luma samples.
type point struct{ x, y int }

// window is an inclusive rectangle of legal block positions.
type window struct{ x0, y0, x1, y1 int }

func (w window) contains(p point) bool {
	return p.x >= w.x0 && p.x <= w.x1 && p.y >= w.y0 && p.y <= w.y1
}

// searchState is the per-reference state of one block search.
type searchState struct {
	best     point  // integer stages
	mv       mc.MV  // sub-sample stage
	cost     uint64 // CostMax until the first trial
	dist     uint32
	bits     int // own vector bits, without the held bi-prediction list
	notFound int
	bestStep int
}

// Searcher runs block searches. It owns every scratch buffer a search needs,
// so each concurrent worker must use its own Searcher. A Searcher only reads
// the pictures it is given.
type Searcher struct {
	cfg    SearchConfig
	lambda uint32
	comp   *mc.Compensator
	dist   dsp.DistFunc

	base  []int16  // original block
	biOrg []int16  // 2*original - held prediction
	pred  []uint16 // sub-sample trial prediction
	held  []uint16 // prediction of the list held fixed in bi refinement

	// Per-reference search context.
	org        []int16
	ref        *picture.Plane
	blk        Block
	win        window
	mvp        mc.MV
	refIdx     int
	numRefs    int
	bi         bool
	heldBits   int
	evals      int
	picW, picH int
}

// NewSearcher returns a searcher. cfg must be valid.
func NewSearcher(cfg SearchConfig, kernels *dsp.KernelSet, be *dsp.Backend) *Searcher {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	n := picture.MaxCUSize * picture.MaxCUSize
	return &Searcher{
		cfg:   cfg,
		comp:  mc.NewCompensator(kernels, be),
		dist:  be.Dist(cfg.Metric),
		base:  pool.GetInt16(n),
		biOrg: pool.GetInt16(n),
		pred:  pool.GetUint16(n),
		held:  pool.GetUint16(n),
	}
}

// Release returns the scratch buffers to the pool. The searcher must not be
// used afterwards.
func (s *Searcher) Release() {
	pool.PutInt16(s.base)
	pool.PutInt16(s.biOrg)
	pool.PutUint16(s.pred)
	pool.PutUint16(s.held)
	s.base, s.biOrg, s.pred, s.held = nil, nil, nil, nil
}

// Config returns the search configuration.
func (s *Searcher) Config() SearchConfig { return s.cfg }

// SetLambda sets the fixed-point motion lambda used by later searches.
func (s *Searcher) SetLambda(lambda uint32) { s.lambda = lambda }

// Lambda returns the current motion lambda.
func (s *Searcher) Lambda() uint32 { return s.lambda }

// Compensator returns the searcher's motion compensator.
func (s *Searcher) Compensator() *mc.Compensator { return s.comp }

func mustf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("me: "+format, args...))
	}
}

// load copies the original block of cur into the signed scratch buffer.
func (s *Searcher) load(cur *picture.Picture, b Block) {
	mustf(b.W >= 4 && b.H >= 4 && b.W <= picture.MaxCUSize && b.H <= picture.MaxCUSize && b.W&3 == 0 && b.H&3 == 0,
		"unsupported block size %v", b)
	mustf(b.X >= 0 && b.Y >= 0 && b.X+b.W <= cur.Width() && b.Y+b.H <= cur.Height(),
		"block %v outside the %dx%d picture", b, cur.Width(), cur.Height())
	s.blk = b
	s.picW, s.picH = cur.Width(), cur.Height()
	for y := 0; y < b.H; y++ {
		row := cur.Y.Pix[cur.Y.Offset(b.X, b.Y+y):]
		dst := s.base[y*b.W : (y+1)*b.W]
		for x := range dst {
			dst[x] = int16(row[x])
		}
	}
	s.org = s.base
}

// Search finds the best vector for block b of cur among the references of
// refs selected by refIdx (all references when refIdx is empty). mvp is the
// vector predictor the vector difference is coded against.
func (s *Searcher) Search(cur *picture.Picture, refs RefList, b Block, refIdx []int, mvp mc.MV) Result {
	mustf(len(refs) > 0 && len(refs) <= MaxRefs, "%d references (must be 1-%d)", len(refs), MaxRefs)
	s.load(cur, b)
	s.bi = false
	s.heldBits = 0
	s.evals = 0

	best := Result{Cost: CostMax}
	search := func(ri int) {
		mustf(ri >= 0 && ri < len(refs), "reference index %d of %d", ri, len(refs))
		st := s.searchRef(refs[ri], ri, len(refs), mvp, mvp)
		if st.cost < best.Cost {
			best = Result{MV: st.mv, RefIdx: ri, Cost: st.cost, Dist: st.dist, MVBits: st.bits}
		}
	}
	if len(refIdx) == 0 {
		for ri := range refs {
			search(ri)
		}
	} else {
		for _, ri := range refIdx {
			search(ri)
		}
	}
	best.Evaluations = s.evals
	return best
}

// searchRef runs the stage sequence against one reference: a diamond search
// around start, the raster and refinement stages for uni-prediction, then
// sub-sample refinement.
func (s *Searcher) searchRef(ref *picture.Picture, refIdx, numRefs int, mvp, start mc.MV) searchState {
	mustf(ref.Width() == s.picW && ref.Height() == s.picH,
		"reference %dx%d differs from the %dx%d picture", ref.Width(), ref.Height(), s.picW, s.picH)
	s.ref = ref.Y
	s.refIdx, s.numRefs = refIdx, numRefs
	s.mvp = mvp

	center := s.limit(point{
		x: s.blk.X + int((int64(start.X)+2)>>2),
		y: s.blk.Y + int((int64(start.Y)+2)>>2),
	})
	s.centerWindow(center)

	st := searchState{cost: CostMax}
	s.tryInt(&st, center)
	s.diamond(&st, s.cfg.MaxFirstSearchSteps)

	if !s.bi {
		if s.cfg.RasterEnabled && st.bestStep > s.cfg.RasterThreshold {
			s.raster(&st)
		}
		if s.cfg.RefineEnabled {
			for round := 0; round < maxRefineRounds && st.bestStep > s.cfg.RefineThreshold; round++ {
				prev := st.best
				s.diamond(&st, s.cfg.MaxRefineSearchSteps)
				if st.best == prev {
					break
				}
			}
		}
	}
	s.subpel(&st)
	return st
}

// centerWindow sets the legal range to the search range around c.
func (s *Searcher) centerWindow(c point) {
	r := s.cfg.MaxSearchRange
	if s.bi {
		r = s.cfg.BiSearchRange
	}
	lo := s.limit(point{c.x - r, c.y - r})
	hi := s.limit(point{c.x + r, c.y + r})
	s.win = window{lo.x, lo.y, hi.x, hi.y}
}

// limit clips a block position to the legal integer search area.
func (s *Searcher) limit(p point) point {
	const minClip = -picture.MaxCUSize + 1
	p.x = min(max(p.x, minClip), s.picW-1)
	p.y = min(max(p.y, minClip), s.picH-1)
	return p
}

// rate returns the rate term of vector mv and its own bits.
func (s *Searcher) rate(mv mc.MV) (uint64, int) {
	bits := mvdDiffBits(int64(mv.X)-int64(s.mvp.X)) + mvdDiffBits(int64(mv.Y)-int64(s.mvp.Y)) +
		RefIdxBits(s.numRefs, s.refIdx)
	return MVCost(s.lambda, bits+s.heldBits), bits
}

// tryInt evaluates the block at full-sample position p and reports whether
// it became the new best. Positions outside the window are rejected.
func (s *Searcher) tryInt(st *searchState, p point) bool {
	if !s.win.contains(p) {
		return false
	}
	s.evals++
	mv := mc.MV{X: int32(p.x-s.blk.X) << 2, Y: int32(p.y-s.blk.Y) << 2}
	d := s.dist(s.org, s.blk.W, s.ref.Pix, s.ref.Offset(p.x, p.y), s.ref.Stride, s.blk.W, s.blk.H)
	if s.bi {
		d >>= 1
	}
	r, bits := s.rate(mv)
	if c := uint64(d) + r; c < st.cost {
		st.best, st.mv = p, mv
		st.cost, st.dist, st.bits = c, d, bits
		return true
	}
	return false
}

// diamond runs the expanding diamond search around st.best. The first pass
// scans the rectangular neighbourhood of the best position and re-centres the
// legal range on the result; the following passes evaluate an 8- or 16-point
// diamond of radius step, doubling step each pass. It stops after maxSteps
// consecutive passes without improvement or once step exceeds the search
// range. Bi-prediction runs the first pass only.
func (s *Searcher) diamond(st *searchState, maxSteps int) {
	st.bestStep = 0
	st.notFound = 0

	r := localRadius
	if s.bi {
		r = s.cfg.BiSearchRange
	}
	c := st.best
	for y := c.y - r; y <= c.y+r; y++ {
		for x := c.x - r; x <= c.x+r; x++ {
			if s.tryInt(st, point{x, y}) {
				st.bestStep = 2
			}
		}
	}
	if s.bi {
		return
	}

	c = st.best
	s.centerWindow(c)
	for step := 4; step <= s.cfg.MaxSearchRange; step <<= 1 {
		found := false
		if step <= 8 {
			for _, o := range diamond8 {
				found = s.tryInt(st, point{c.x + (step*o[0])>>1, c.y + (step*o[1])>>1}) || found
			}
		} else {
			for _, o := range diamond16 {
				found = s.tryInt(st, point{c.x + (step*o[0])>>2, c.y + (step*o[1])>>2}) || found
			}
		}
		if found {
			st.bestStep = step
			st.notFound = 0
			c = st.best
			continue
		}
		st.notFound++
		if st.notFound >= maxSteps {
			break
		}
	}
}

// raster sweeps a coarse grid over the window, then refines the best grid
// point with 3x3 neighbourhoods while halving the step down to one sample.
// Farther references use a coarser grid, capped at half the window so the
// grid still reaches the middle of the window.
func (s *Searcher) raster(st *searchState) {
	step := max(s.cfg.RasterStep, min(s.blk.W, s.blk.H)/2) * (s.refIdx + 1)
	stepX := min(step, max(1, (s.win.x1-s.win.x0)/2))
	stepY := min(step, max(1, (s.win.y1-s.win.y0)/2))
	for y := s.win.y0; y <= s.win.y1; y += stepY {
		for x := s.win.x0; x <= s.win.x1; x += stepX {
			if s.tryInt(st, point{x, y}) {
				st.bestStep = step
			}
		}
	}
	for step >>= 1; step >= 1; step >>= 1 {
		c := st.best
		for _, o := range square8 {
			if s.tryInt(st, point{c.x + o[0]*step, c.y + o[1]*step}) {
				st.bestStep = step
			}
		}
	}
}
