package mc

import (
	"fmt"

	"github.com/deepteams/motion/internal/dsp"
	"github.com/deepteams/motion/internal/picture"
)

// Kind is the filter combination a fractional phase requires.
type Kind uint8

const (
	Copy Kind = iota
	HorizontalOnly
	VerticalOnly
	TwoPass
)

func (k Kind) String() string {
	switch k {
	case Copy:
		return "copy"
	case HorizontalOnly:
		return "horizontal"
	case VerticalOnly:
		return "vertical"
	case TwoPass:
		return "two-pass"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// SelectKind returns the filter combination for the fractional phases dx, dy.
func SelectKind(dx, dy int) Kind {
	switch {
	case dx == 0 && dy == 0:
		return Copy
	case dy == 0:
		return HorizontalOnly
	case dx == 0:
		return VerticalOnly
	default:
		return TwoPass
	}
}

// Compensator produces motion-compensated blocks. It owns the two-pass
// intermediate buffer, so a Compensator must not be shared by goroutines.
type Compensator struct {
	kernels *dsp.KernelSet
	be      *dsp.Backend
	tmp     []int16
}

// NewCompensator returns a compensator using the given kernels and backend.
func NewCompensator(kernels *dsp.KernelSet, be *dsp.Backend) *Compensator {
	return &Compensator{
		kernels: kernels,
		be:      be,
		tmp:     make([]int16, dsp.TwoPassTempSize(picture.MaxCUSize, picture.MaxCUSize, dsp.LumaTaps)),
	}
}

// Backend returns the compensator's kernel set.
func (c *Compensator) Backend() *dsp.Backend { return c.be }

// Luma predicts the w x h luma block at (x, y) into dst. The reference is
// addressed with mv.Clamped; the filter phase comes from mv.Original.
func (c *Compensator) Luma(dst []uint16, dstStride int, ref *picture.Plane, x, y, w, h int, mv MVPair) {
	// Positions in 1/16 sample.
	gx := (int32(x)<<2 + mv.Clamped.X) << 2
	gy := (int32(y)<<2 + mv.Clamped.Y) << 2
	dx := int(mv.Original.X<<2) & (dsp.LumaPhases - 1)
	dy := int(mv.Original.Y<<2) & (dsp.LumaPhases - 1)
	c.block(dst, dstStride, ref, int(gx>>4), int(gy>>4), w, h, dsp.LumaTaps,
		c.kernels.LumaKernel(dx), c.kernels.LumaKernel(dy), SelectKind(dx, dy))
}

// Chroma predicts a w x h block of a 4:2:0 chroma plane for the luma block
// at (x, y). w and h are chroma dimensions. The luma vector in 1/16 luma
// sample is the chroma vector in 1/32 chroma sample. An odd luma position
// lands between chroma samples and adds half a sample to the phase.
func (c *Compensator) Chroma(dst []uint16, dstStride int, ref *picture.Plane, x, y, w, h int, mv MVPair) {
	gx := (int32(x)<<2 + mv.Clamped.X) << 2
	gy := (int32(y)<<2 + mv.Clamped.Y) << 2
	dx := int(int32(x)<<4+mv.Original.X<<2) & (dsp.ChromaPhases - 1)
	dy := int(int32(y)<<4+mv.Original.Y<<2) & (dsp.ChromaPhases - 1)
	c.block(dst, dstStride, ref, int(gx>>5), int(gy>>5), w, h, dsp.ChromaTaps,
		c.kernels.ChromaKernel(dx), c.kernels.ChromaKernel(dy), SelectKind(dx, dy))
}

// block dispatches one prediction. (ix, iy) is the full-sample position of
// the block in the reference; the read origin is moved back by taps/2-1
// along every filtered axis so the kernel is centred.
func (c *Compensator) block(dst []uint16, dstStride int, ref *picture.Plane, ix, iy, w, h, taps int,
	kx, ky []int16, kind Kind) {
	checkWindow(ref, ix, iy, w, h, taps)
	off := ref.Offset(ix, iy)
	back := taps/2 - 1
	switch kind {
	case Copy:
		c.be.Copy(dst, dstStride, ref.Pix, off, ref.Stride, w, h)
	case HorizontalOnly:
		c.be.FilterH(dst, dstStride, ref.Pix, off-back, ref.Stride, w, h, kx, ref.BitDepth)
	case VerticalOnly:
		c.be.FilterV(dst, dstStride, ref.Pix, off-back*ref.Stride, ref.Stride, w, h, ky, ref.BitDepth)
	case TwoPass:
		if n := dsp.TwoPassTempSize(w, h, taps); len(c.tmp) < n {
			c.tmp = make([]int16, n)
		}
		c.be.FilterHV(dst, dstStride, ref.Pix, off-back*ref.Stride-back, ref.Stride, w, h, kx, ky, ref.BitDepth, c.tmp)
	}
}

// checkWindow panics when the filter support of a block leaves the padded
// plane. Callers clamp vectors first, so this only fires on misuse.
func checkWindow(ref *picture.Plane, ix, iy, w, h, taps int) {
	back := taps/2 - 1
	fwd := taps / 2
	if ix-back < -ref.Pad || iy-back < -ref.Pad ||
		ix+w-1+fwd >= ref.Width+ref.Pad || iy+h-1+fwd >= ref.Height+ref.Pad {
		panic(fmt.Sprintf("mc: %dx%d block at (%d,%d) reads outside the padded %dx%d plane (pad %d)",
			w, h, ix, iy, ref.Width, ref.Height, ref.Pad))
	}
}

// Predict clamps mv for the w x h block at (x, y) and predicts every plane of
// ref into dst.
func (c *Compensator) Predict(dst *Prediction, ref *picture.Picture, x, y, w, h int, mv MV) {
	pair := MVPair{Original: mv, Clamped: Clamp(x, y, w, h, ref.Width(), ref.Height(), mv)}
	dst.Reset(w, h, ref.HasChroma())
	c.Luma(dst.Y, w, ref.Y, x, y, w, h, pair)
	if ref.HasChroma() {
		c.Chroma(dst.Cb, w/2, ref.Cb, x, y, w/2, h/2, pair)
		c.Chroma(dst.Cr, w/2, ref.Cr, x, y, w/2, h/2, pair)
	}
}
