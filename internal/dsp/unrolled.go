package dsp

// Unrolled kernels. Same arithmetic as the reference kernels with the tap
// loop expanded for 8 and 4 taps, so the compiler keeps coefficients in
// registers and hoists bounds checks out of the inner loop.

func hpassUnrolled[S, D sample](dst []D, dstStride int, src []S, srcOff, srcStride, w, h int,
	coeffs []int16, shift uint, offset, maxVal int32) {
	switch len(coeffs) {
	case 8:
		c0, c1, c2, c3 := int32(coeffs[0]), int32(coeffs[1]), int32(coeffs[2]), int32(coeffs[3])
		c4, c5, c6, c7 := int32(coeffs[4]), int32(coeffs[5]), int32(coeffs[6]), int32(coeffs[7])
		for y := 0; y < h; y++ {
			so := srcOff + y*srcStride
			s := src[so : so+w+7]
			d := dst[y*dstStride : y*dstStride+w]
			for x := range d {
				t := s[x : x+8 : x+8]
				v := c0*int32(t[0]) + c1*int32(t[1]) + c2*int32(t[2]) + c3*int32(t[3]) +
					c4*int32(t[4]) + c5*int32(t[5]) + c6*int32(t[6]) + c7*int32(t[7])
				v = (v + offset) >> shift
				if maxVal >= 0 {
					d[x] = D(ClipSample(v, maxVal))
				} else {
					d[x] = D(v)
				}
			}
		}
	case 4:
		c0, c1, c2, c3 := int32(coeffs[0]), int32(coeffs[1]), int32(coeffs[2]), int32(coeffs[3])
		for y := 0; y < h; y++ {
			so := srcOff + y*srcStride
			s := src[so : so+w+3]
			d := dst[y*dstStride : y*dstStride+w]
			for x := range d {
				t := s[x : x+4 : x+4]
				v := c0*int32(t[0]) + c1*int32(t[1]) + c2*int32(t[2]) + c3*int32(t[3])
				v = (v + offset) >> shift
				if maxVal >= 0 {
					d[x] = D(ClipSample(v, maxVal))
				} else {
					d[x] = D(v)
				}
			}
		}
	default:
		Interpolate(dst, dstStride, src, srcOff, srcStride, 1, w, h, coeffs, shift, offset, maxVal)
	}
}

func vpassUnrolled[S, D sample](dst []D, dstStride int, src []S, srcOff, srcStride, w, h int,
	coeffs []int16, shift uint, offset, maxVal int32) {
	switch len(coeffs) {
	case 8:
		c0, c1, c2, c3 := int32(coeffs[0]), int32(coeffs[1]), int32(coeffs[2]), int32(coeffs[3])
		c4, c5, c6, c7 := int32(coeffs[4]), int32(coeffs[5]), int32(coeffs[6]), int32(coeffs[7])
		for y := 0; y < h; y++ {
			so := srcOff + y*srcStride
			r0 := src[so : so+w]
			r1 := src[so+srcStride : so+srcStride+w]
			r2 := src[so+2*srcStride : so+2*srcStride+w]
			r3 := src[so+3*srcStride : so+3*srcStride+w]
			r4 := src[so+4*srcStride : so+4*srcStride+w]
			r5 := src[so+5*srcStride : so+5*srcStride+w]
			r6 := src[so+6*srcStride : so+6*srcStride+w]
			r7 := src[so+7*srcStride : so+7*srcStride+w]
			d := dst[y*dstStride : y*dstStride+w]
			for x := range d {
				v := c0*int32(r0[x]) + c1*int32(r1[x]) + c2*int32(r2[x]) + c3*int32(r3[x]) +
					c4*int32(r4[x]) + c5*int32(r5[x]) + c6*int32(r6[x]) + c7*int32(r7[x])
				v = (v + offset) >> shift
				if maxVal >= 0 {
					d[x] = D(ClipSample(v, maxVal))
				} else {
					d[x] = D(v)
				}
			}
		}
	case 4:
		c0, c1, c2, c3 := int32(coeffs[0]), int32(coeffs[1]), int32(coeffs[2]), int32(coeffs[3])
		for y := 0; y < h; y++ {
			so := srcOff + y*srcStride
			r0 := src[so : so+w]
			r1 := src[so+srcStride : so+srcStride+w]
			r2 := src[so+2*srcStride : so+2*srcStride+w]
			r3 := src[so+3*srcStride : so+3*srcStride+w]
			d := dst[y*dstStride : y*dstStride+w]
			for x := range d {
				v := c0*int32(r0[x]) + c1*int32(r1[x]) + c2*int32(r2[x]) + c3*int32(r3[x])
				v = (v + offset) >> shift
				if maxVal >= 0 {
					d[x] = D(ClipSample(v, maxVal))
				} else {
					d[x] = D(v)
				}
			}
		}
	default:
		Interpolate(dst, dstStride, src, srcOff, srcStride, srcStride, w, h, coeffs, shift, offset, maxVal)
	}
}

func filterHUnrolled(dst []uint16, dstStride int, src []uint16, srcOff, srcStride, w, h int, coeffs []int16, bitDepth int) {
	hpassUnrolled(dst, dstStride, src, srcOff, srcStride, w, h,
		coeffs, FilterShift, 1<<(FilterShift-1), MaxSample(bitDepth))
}

func filterVUnrolled(dst []uint16, dstStride int, src []uint16, srcOff, srcStride, w, h int, coeffs []int16, bitDepth int) {
	vpassUnrolled(dst, dstStride, src, srcOff, srcStride, w, h,
		coeffs, FilterShift, 1<<(FilterShift-1), MaxSample(bitDepth))
}

func filterHVUnrolled(dst []uint16, dstStride int, src []uint16, srcOff, srcStride, w, h int,
	cx, cy []int16, bitDepth int, tmp []int16) {
	shift1, shift2 := TwoPassShifts(bitDepth)
	rows := h + len(cy) - 1
	tmp = tmp[:w*rows]
	hpassUnrolled(tmp, w, src, srcOff, srcStride, w, rows, cx, shift1, 0, -1)
	vpassUnrolled(dst, dstStride, tmp, 0, w, w, h, cy, shift2, 1<<(shift2-1), MaxSample(bitDepth))
}

// sadUnrolled processes four samples per iteration with a scalar tail.
func sadUnrolled(org []int16, orgStride int, ref []uint16, refOff, refStride, w, h int) uint32 {
	var sum uint32
	n4 := w &^ 3
	for y := 0; y < h; y++ {
		o := org[y*orgStride : y*orgStride+w]
		r := ref[refOff+y*refStride : refOff+y*refStride+w]
		x := 0
		for ; x < n4; x += 4 {
			oo := o[x : x+4 : x+4]
			rr := r[x : x+4 : x+4]
			sum += absDiff(int32(oo[0]), int32(rr[0])) +
				absDiff(int32(oo[1]), int32(rr[1])) +
				absDiff(int32(oo[2]), int32(rr[2])) +
				absDiff(int32(oo[3]), int32(rr[3]))
		}
		for ; x < w; x++ {
			sum += absDiff(int32(o[x]), int32(r[x]))
		}
	}
	return sum
}

func averageUnrolled(dst, a, b []uint16) {
	n := len(a)
	b = b[:n]
	dst = dst[:n]
	i := 0
	for ; i+4 <= n; i += 4 {
		aa := a[i : i+4 : i+4]
		bb := b[i : i+4 : i+4]
		dd := dst[i : i+4 : i+4]
		dd[0] = uint16((uint32(aa[0]) + uint32(bb[0]) + 1) >> 1)
		dd[1] = uint16((uint32(aa[1]) + uint32(bb[1]) + 1) >> 1)
		dd[2] = uint16((uint32(aa[2]) + uint32(bb[2]) + 1) >> 1)
		dd[3] = uint16((uint32(aa[3]) + uint32(bb[3]) + 1) >> 1)
	}
	for ; i < n; i++ {
		dst[i] = uint16((uint32(a[i]) + uint32(b[i]) + 1) >> 1)
	}
}
