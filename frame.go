package motion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deepteams/motion/internal/dsp"
	"github.com/deepteams/motion/internal/field"
	"github.com/deepteams/motion/internal/logging"
	"github.com/deepteams/motion/internal/me"
)

// defaultMaxWorkers caps the automatic worker count. Rows are pipelined, so
// more workers than this mostly wait on the row above.
const defaultMaxWorkers = 6

// EstimateFrame estimates the motion of every block of cur against the
// references of both lists and returns the resulting field. Each block is
// searched in every populated list and, when both are populated, refined
// jointly; the mode with the lowest cost is kept.
//
// Blocks are processed in raster order within a row while rows run
// concurrently, each row staying two blocks behind the row above. The
// vector predictor of a block is the median of its left, top and top-right
// neighbours, so the field does not depend on the number of workers.
//
// Picture dimensions must be multiples of 8. A nil opts selects
// DefaultOptions. Cancellation is checked before every row.
func EstimateFrame(ctx context.Context, cur *Picture, refs [2]RefList, opts *Options) (*Field, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := checkFrame(cur, refs, opts); err != nil {
		return nil, err
	}
	be, err := dsp.BackendByName(opts.Backend)
	if err != nil {
		return nil, err
	}
	log := logging.OrDiscard(opts.Logger)

	f := field.New(cur.Width(), cur.Height(), opts.BlockSize, cur.POC)
	numWorkers := opts.ResolvedWorkers(f.Rows)

	start := time.Now()
	log.Debug("estimating frame",
		"poc", cur.POC,
		"size", fmt.Sprintf("%dx%d", cur.Width(), cur.Height()),
		"blocks", len(f.Blocks),
		"refs", fmt.Sprintf("%d/%d", len(refs[0]), len(refs[1])),
		"workers", numWorkers)

	fe := &frameEstimator{
		ctx:  ctx,
		cur:  cur,
		refs: refs,
		bi:   len(refs[0]) > 0 && len(refs[1]) > 0 && !opts.DisableBi,
		f:    f,
		rs:   newRowSync(f.Rows),
		log:  log,
	}
	lambda := opts.ResolvedLambda()
	evals := make([]uint64, numWorkers)

	var wg sync.WaitGroup
	for wi := 0; wi < numWorkers; wi++ {
		wg.Add(1)
		go func(wi int) {
			defer wg.Done()
			s := me.NewSearcher(opts.Search, dsp.DefaultKernels(), be)
			defer s.Release()
			s.SetLambda(lambda)
			for {
				by := int(fe.nextRow.Add(1) - 1)
				if by >= f.Rows {
					return
				}
				evals[wi] += fe.estimateRow(s, by)
			}
		}(wi)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("motion: frame %d: %w", cur.POC, err)
	}
	for _, n := range evals {
		f.Evaluations += n
	}
	log.Debug("frame estimated",
		"poc", cur.POC,
		"evaluations", f.Evaluations,
		"elapsed", time.Since(start))
	return f, nil
}

func checkFrame(cur *Picture, refs [2]RefList, opts *Options) error {
	if cur.BitDepth() != opts.BitDepth {
		return fmt.Errorf("%w: picture has %d bits, options %d", ErrBitDepth, cur.BitDepth(), opts.BitDepth)
	}
	if cur.Width()&7 != 0 || cur.Height()&7 != 0 {
		return fmt.Errorf("%w: %dx%d (must be multiples of 8)", ErrFrameSize, cur.Width(), cur.Height())
	}
	if len(refs[0]) == 0 && len(refs[1]) == 0 {
		return ErrNoReference
	}
	for l, list := range refs {
		if len(list) > me.MaxRefs {
			return fmt.Errorf("motion: invalid list %d with %d references (must be at most %d)", l, len(list), me.MaxRefs)
		}
		for i, r := range list {
			if r == nil {
				return fmt.Errorf("%w: list %d entry %d is nil", ErrNoReference, l, i)
			}
			if r.Width() != cur.Width() || r.Height() != cur.Height() {
				return fmt.Errorf("%w: list %d reference %d is %dx%d, picture is %dx%d",
					ErrFrameSize, l, i, r.Width(), r.Height(), cur.Width(), cur.Height())
			}
			if r.BitDepth() != cur.BitDepth() {
				return fmt.Errorf("%w: list %d reference %d has %d bits, picture %d",
					ErrBitDepth, l, i, r.BitDepth(), cur.BitDepth())
			}
		}
	}
	return nil
}

// frameEstimator is the state shared by the workers of one EstimateFrame
// call. Every block of f is written by exactly one worker; rs orders those
// writes before the reads of the row below.
type frameEstimator struct {
	ctx     context.Context
	cur     *Picture
	refs    [2]RefList
	bi      bool
	f       *Field
	rs      *rowSync
	nextRow atomic.Int32
	log     *slog.Logger
}

// estimateRow estimates row by and returns the number of cost evaluations.
// After cancellation the row is marked complete without being searched so
// workers waiting on it can drain.
func (fe *frameEstimator) estimateRow(s *me.Searcher, by int) uint64 {
	cols := fe.f.Cols
	if fe.ctx.Err() != nil {
		fe.rs.signal(by, int32(cols))
		return 0
	}
	var evals uint64
	for bx := 0; bx < cols; bx++ {
		if by > 0 {
			fe.rs.waitFor(by-1, int32(min(bx+2, cols)))
		}
		evals += fe.estimateBlock(s, bx, by)
		fe.rs.signal(by, int32(bx+1))
	}
	fe.log.Debug("row estimated", "poc", fe.cur.POC, "row", by, "evaluations", evals)
	return evals
}

func (fe *frameEstimator) estimateBlock(s *me.Searcher, bx, by int) uint64 {
	x, y, w, h := fe.f.Rect(bx, by)
	b := Block{X: x, Y: y, W: w, H: h}

	var (
		uni   [2]Result
		mvp   [2]MV
		have  [2]bool
		evals uint64
	)
	for l, list := range fe.refs {
		if len(list) == 0 {
			continue
		}
		mvp[l] = predictor(fe.f, bx, by, l)
		uni[l] = s.Search(fe.cur, list, b, nil, mvp[l])
		have[l] = true
		evals += uint64(uni[l].Evaluations)
	}

	m := fe.f.At(bx, by)
	*m = field.BlockMotion{}
	l := 0
	if !have[0] || (have[1] && uni[1].Cost < uni[0].Cost) {
		l = 1
	}
	m.Mode = field.ModeL0
	if l == 1 {
		m.Mode = field.ModeL1
	}
	m.RefIdx[l] = int8(uni[l].RefIdx)
	m.MV[l] = uni[l].MV
	m.Cost = saturate(uni[l].Cost)
	m.Dist = uni[l].Dist

	if fe.bi {
		res := s.SearchBi(fe.cur, fe.refs, b, mvp, uni)
		evals += uint64(res.Evaluations)
		if res.Improved {
			m.Mode = field.ModeBi
			m.RefIdx = [2]int8{int8(res.RefIdx[0]), int8(res.RefIdx[1])}
			m.MV = res.MV
			m.Cost = saturate(res.Cost)
			m.Dist = res.Dist
		}
	}
	return evals
}

func saturate(c uint64) uint32 {
	return uint32(min(c, uint64(^uint32(0))))
}

// predictor returns the list l vector predictor of block (bx, by): the
// component-wise median of the left (A), top (B) and top-right (C)
// neighbours, with the top-left neighbour standing in for C at the right
// edge. Neighbours outside the field or not predicting from list l count as
// zero vectors. When only A exists its vector is used directly.
func predictor(f *Field, bx, by, l int) MV {
	vec := func(x, y int) (MV, bool) {
		if x < 0 || y < 0 || x >= f.Cols {
			return MV{}, false
		}
		m := f.At(x, y)
		if !m.Mode.Uses(l) {
			return MV{}, true
		}
		return m.MV[l], true
	}
	a, okA := vec(bx-1, by)
	b, okB := vec(bx, by-1)
	c, okC := vec(bx+1, by-1)
	if !okC {
		c, okC = vec(bx-1, by-1)
	}
	if okA && !okB && !okC {
		return a
	}
	return MV{X: median3(a.X, b.X, c.X), Y: median3(a.Y, b.Y, c.Y)}
}

func median3(a, b, c int32) int32 {
	return a + b + c - min(a, b, c) - max(a, b, c)
}

// rowSync orders the rows of a frame: a worker waits until the row above
// has completed enough blocks before it reads their vectors.
type rowSync struct {
	rows []rowState
}

// rowState is padded to a full cache line to prevent false sharing.
type rowState struct {
	done    atomic.Int32
	waiters atomic.Int32
	mu      sync.Mutex
	cond    *sync.Cond
	_       [8]byte
}

func newRowSync(rows int) *rowSync {
	rs := &rowSync{rows: make([]rowState, rows)}
	for i := range rs.rows {
		rs.rows[i].cond = sync.NewCond(&rs.rows[i].mu)
	}
	return rs
}

// waitFor blocks until row y has completed at least needed blocks.
func (rs *rowSync) waitFor(y int, needed int32) {
	r := &rs.rows[y]
	if r.done.Load() >= needed {
		return
	}
	r.waiters.Add(1)
	r.mu.Lock()
	for r.done.Load() < needed {
		r.cond.Wait()
	}
	r.mu.Unlock()
	r.waiters.Add(-1)
}

// signal records that row y has completed done blocks and wakes waiters.
func (rs *rowSync) signal(y int, done int32) {
	r := &rs.rows[y]
	r.done.Store(done)
	if r.waiters.Load() > 0 {
		r.mu.Lock()
		r.mu.Unlock()
		r.cond.Broadcast()
	}
}
