package mc

import "github.com/deepteams/motion/internal/dsp"

// Prediction is a block-sized prediction buffer. Y is W x H with stride W;
// Cb and Cr are (W/2) x (H/2) with stride W/2 and are nil for luma-only
// predictions. Every sample is overwritten before it is read.
type Prediction struct {
	Y, Cb, Cr []uint16
	W, H      int
}

// NewPrediction allocates a prediction for a w x h block.
func NewPrediction(w, h int, chroma bool) *Prediction {
	p := &Prediction{}
	p.Reset(w, h, chroma)
	return p
}

// Reset resizes p, reusing its storage when large enough.
func (p *Prediction) Reset(w, h int, chroma bool) {
	p.W, p.H = w, h
	p.Y = grow(p.Y, w*h)
	if chroma {
		p.Cb = grow(p.Cb, (w/2)*(h/2))
		p.Cr = grow(p.Cr, (w/2)*(h/2))
	} else {
		p.Cb, p.Cr = nil, nil
	}
}

func grow(b []uint16, n int) []uint16 {
	if cap(b) < n {
		return make([]uint16, n)
	}
	return b[:n]
}

// Blend writes the bi-prediction (p0 + p1 + 1) >> 1 of two single-list
// predictions of the same block into dst.
func Blend(be *dsp.Backend, dst, p0, p1 *Prediction) {
	chroma := p0.Cb != nil && p1.Cb != nil
	dst.Reset(p0.W, p0.H, chroma)
	be.Average(dst.Y, p0.Y, p1.Y)
	if chroma {
		be.Average(dst.Cb, p0.Cb, p1.Cb)
		be.Average(dst.Cr, p0.Cr, p1.Cr)
	}
}
