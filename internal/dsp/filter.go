package dsp

// sample is the set of element types the interpolation passes read and write:
// uint16 for picture samples and int16 for the two-pass intermediate.
type sample interface {
	~uint16 | ~int16
}

// Filter1D returns the unnormalized dot product of coeffs with the samples at
// src[off], src[off+step], src[off+2*step], ... No rounding or shift is
// applied; the int32 accumulator cannot overflow for 12-bit input.
func Filter1D[S sample](src []S, off, step int, coeffs []int16) int32 {
	var sum int32
	for i, c := range coeffs {
		sum += int32(src[off+i*step]) * int32(c)
	}
	return sum
}

// Interpolate filters a w x h region whose first filter input is src[srcOff].
// Taps are gathered along step (1 for horizontal, the source stride for
// vertical). Each output is (Filter1D + offset) >> shift and is clipped to
// [0, maxVal] when maxVal >= 0. Intermediate passes pass maxVal = -1.
func Interpolate[S, D sample](dst []D, dstStride int, src []S, srcOff, srcStride, step, w, h int,
	coeffs []int16, shift uint, offset, maxVal int32) {
	for y := 0; y < h; y++ {
		so := srcOff + y*srcStride
		do := y * dstStride
		row := dst[do : do+w]
		for x := range row {
			v := (Filter1D(src, so+x, step, coeffs) + offset) >> shift
			if maxVal >= 0 {
				row[x] = D(ClipSample(v, maxVal))
			} else {
				row[x] = D(v)
			}
		}
	}
}

// TwoPassShifts returns the horizontal and vertical shifts of the separable
// filter at bitDepth. Their sum is always 12, twice FilterShift.
func TwoPassShifts(bitDepth int) (shift1, shift2 uint) {
	return uint(min(4, bitDepth-8)), uint(max(8, 20-bitDepth))
}

// TwoPassTempSize returns the int16 scratch length a two-pass filter of a
// w x h block needs with the given tap count.
func TwoPassTempSize(w, h, taps int) int {
	return (w + taps - 1) * (h + taps - 1)
}

// copyBlock copies a w x h block. Rows are copied with the builtin; blocks
// narrower than 4 samples go element by element.
func copyBlock(dst []uint16, dstStride int, src []uint16, srcOff, srcStride, w, h int) {
	if w&3 != 0 {
		for y := 0; y < h; y++ {
			so, do := srcOff+y*srcStride, y*dstStride
			for x := 0; x < w; x++ {
				dst[do+x] = src[so+x]
			}
		}
		return
	}
	for y := 0; y < h; y++ {
		so, do := srcOff+y*srcStride, y*dstStride
		copy(dst[do:do+w], src[so:so+w])
	}
}

// filterH applies a single horizontal pass with final rounding and clipping.
// srcOff addresses the leftmost tap of the first output sample.
func filterH(dst []uint16, dstStride int, src []uint16, srcOff, srcStride, w, h int, coeffs []int16, bitDepth int) {
	Interpolate(dst, dstStride, src, srcOff, srcStride, 1, w, h,
		coeffs, FilterShift, 1<<(FilterShift-1), MaxSample(bitDepth))
}

// filterV applies a single vertical pass with final rounding and clipping.
// srcOff addresses the topmost tap of the first output sample.
func filterV(dst []uint16, dstStride int, src []uint16, srcOff, srcStride, w, h int, coeffs []int16, bitDepth int) {
	Interpolate(dst, dstStride, src, srcOff, srcStride, srcStride, w, h,
		coeffs, FilterShift, 1<<(FilterShift-1), MaxSample(bitDepth))
}

// filterHV runs the horizontal pass into the signed intermediate tmp (no
// clip, reduced shift, no rounding offset) and the vertical pass from tmp
// into dst (rounded, clipped). srcOff addresses the top-left tap.
func filterHV(dst []uint16, dstStride int, src []uint16, srcOff, srcStride, w, h int,
	cx, cy []int16, bitDepth int, tmp []int16) {
	shift1, shift2 := TwoPassShifts(bitDepth)
	rows := h + len(cy) - 1
	tmp = tmp[:w*rows]
	Interpolate(tmp, w, src, srcOff, srcStride, 1, w, rows, cx, shift1, 0, -1)
	Interpolate(dst, dstStride, tmp, 0, w, w, w, h, cy, shift2, 1<<(shift2-1), MaxSample(bitDepth))
}
