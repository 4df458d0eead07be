package motion

import (
	"fmt"

	"github.com/deepteams/motion/internal/dsp"
	"github.com/deepteams/motion/internal/field"
	"github.com/deepteams/motion/internal/mc"
	"github.com/deepteams/motion/internal/me"
	"github.com/deepteams/motion/internal/picture"
)

type (
	// MV is a motion vector in quarter luma samples.
	MV = mc.MV
	// Picture is a padded picture. References must be padded with Extend
	// after their samples change.
	Picture = picture.Picture
	// Block is a rectangle of the current picture in luma samples.
	Block = me.Block
	// RefList is an ordered list of reference pictures.
	RefList = me.RefList
	// Result is the outcome of a uni-prediction search.
	Result = me.Result
	// BiResult is the outcome of a joint bi-prediction refinement.
	BiResult = me.BiResult
	// SearchConfig selects the search stages and ranges.
	SearchConfig = me.SearchConfig
	// Prediction is a block-sized prediction of every plane.
	Prediction = mc.Prediction
	// Field is the motion of one frame on a block grid.
	Field = field.Field
	// BlockMotion is the decision for one block of a Field.
	BlockMotion = field.BlockMotion
)

// Chroma formats for NewPicture.
const (
	Chroma420 = picture.Chroma420
	Chroma400 = picture.Chroma400
)

// NewPicture allocates a zeroed padded picture.
func NewPicture(width, height, bitDepth int, format picture.ChromaFormat) *Picture {
	return picture.New(width, height, bitDepth, format)
}

// NewPrediction allocates a prediction buffer for a w x h block.
func NewPrediction(w, h int, chroma bool) *Prediction {
	return mc.NewPrediction(w, h, chroma)
}

// LambdaFromQP returns the fixed-point motion lambda for a quantizer.
func LambdaFromQP(qp, bitDepth int) uint32 { return me.LambdaFromQP(qp, bitDepth) }

// Estimator searches and predicts single blocks. It owns scratch buffers and
// must not be used from several goroutines at once; create one Estimator per
// goroutine. Methods panic on contract violations such as a block outside
// the picture or a reference index out of range.
type Estimator struct {
	opts     Options
	backend  *dsp.Backend
	searcher *me.Searcher
	tmp      [2]*mc.Prediction
}

// NewEstimator validates opts and returns an estimator. A nil opts selects
// DefaultOptions.
func NewEstimator(opts *Options) (*Estimator, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	be, err := dsp.BackendByName(opts.Backend)
	if err != nil {
		return nil, err
	}
	s := me.NewSearcher(opts.Search, dsp.DefaultKernels(), be)
	s.SetLambda(opts.ResolvedLambda())
	return &Estimator{
		opts:     *opts,
		backend:  be,
		searcher: s,
	}, nil
}

// Close releases the scratch buffers. The estimator must not be used
// afterwards.
func (e *Estimator) Close() {
	if e.searcher != nil {
		e.searcher.Release()
		e.searcher = nil
	}
}

// Lambda returns the motion lambda in use.
func (e *Estimator) Lambda() uint32 { return e.searcher.Lambda() }

// SetLambda overrides the motion lambda, for example when the quantizer
// changes between pictures.
func (e *Estimator) SetLambda(lambda uint32) { e.searcher.SetLambda(lambda) }

// MotionSearch finds the best vector and reference for block b of cur. Only
// the references of refs listed in refIdx are searched; an empty refIdx
// searches them all. mvp is the predictor vector differences are coded
// against. The result never has a cost above the cost of the search center.
func (e *Estimator) MotionSearch(cur *Picture, refs RefList, b Block, refIdx []int, mvp MV) Result {
	e.checkPictures(cur, refs)
	return e.searcher.Search(cur, refs, b, refIdx, mvp)
}

// MotionSearchBi jointly refines a vector pair for block b starting from
// the uni-prediction results of both lists. The returned cost never exceeds
// the better uni-prediction cost.
func (e *Estimator) MotionSearchBi(cur *Picture, refs [2]RefList, b Block, mvp [2]MV, uni [2]Result) BiResult {
	e.checkPictures(cur, refs[0])
	e.checkPictures(cur, refs[1])
	if e.opts.DisableBi {
		return e.searcher.SearchBi(cur, [2]RefList{}, b, mvp, uni)
	}
	return e.searcher.SearchBi(cur, refs, b, mvp, uni)
}

// MotionCompensate predicts block b of every plane from ref displaced by
// mv. The vector is clamped to the padded area for addressing while its
// fractional part selects the filter phase.
func (e *Estimator) MotionCompensate(dst *Prediction, ref *Picture, b Block, mv MV) {
	e.searcher.Compensator().Predict(dst, ref, b.X, b.Y, b.W, b.H, mv)
}

// MotionCompensateBi predicts block b from one reference of each list and
// averages the two predictions into dst.
func (e *Estimator) MotionCompensateBi(dst *Prediction, refs [2]*Picture, b Block, mv [2]MV) {
	for l := range e.tmp {
		if e.tmp[l] == nil {
			e.tmp[l] = mc.NewPrediction(b.W, b.H, refs[l].HasChroma())
		}
		e.MotionCompensate(e.tmp[l], refs[l], b, mv[l])
	}
	mc.Blend(e.backend, dst, e.tmp[0], e.tmp[1])
}

func (e *Estimator) checkPictures(cur *Picture, refs RefList) {
	if cur.BitDepth() != e.opts.BitDepth {
		panic(fmt.Sprintf("motion: %d-bit picture with %d-bit options", cur.BitDepth(), e.opts.BitDepth))
	}
	for i, r := range refs {
		if r.Width() != cur.Width() || r.Height() != cur.Height() || r.BitDepth() != cur.BitDepth() {
			panic(fmt.Sprintf("motion: reference %d is %dx%d %d-bit, picture is %dx%d %d-bit",
				i, r.Width(), r.Height(), r.BitDepth(), cur.Width(), cur.Height(), cur.BitDepth()))
		}
	}
}
