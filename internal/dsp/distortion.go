package dsp

// DistFunc measures the distortion between a signed original block and a
// w x h region of reference samples starting at ref[refOff]. The original is
// signed so the same kernels serve plain originals and the doubled
// bi-prediction original (2*org - other prediction).
type DistFunc func(org []int16, orgStride int, ref []uint16, refOff, refStride, w, h int) uint32

// sad returns the sum of absolute differences.
func sad(org []int16, orgStride int, ref []uint16, refOff, refStride, w, h int) uint32 {
	var sum uint32
	for y := 0; y < h; y++ {
		o := org[y*orgStride : y*orgStride+w]
		r := ref[refOff+y*refStride : refOff+y*refStride+w]
		for x := range o {
			sum += absDiff(int32(o[x]), int32(r[x]))
		}
	}
	return sum
}

// satd returns the sum of absolute Hadamard-transformed differences. Blocks
// whose dimensions are multiples of 8 use the 8x8 transform, others the 4x4
// one. Dimensions must be multiples of 4.
func satd(org []int16, orgStride int, ref []uint16, refOff, refStride, w, h int) uint32 {
	var sum uint32
	if w&7 == 0 && h&7 == 0 {
		for y := 0; y < h; y += 8 {
			for x := 0; x < w; x += 8 {
				sum += hadamard8x8(org[y*orgStride+x:], orgStride, ref[refOff+y*refStride+x:], refStride)
			}
		}
		return sum
	}
	for y := 0; y < h; y += 4 {
		for x := 0; x < w; x += 4 {
			sum += hadamard4x4(org[y*orgStride+x:], orgStride, ref[refOff+y*refStride+x:], refStride)
		}
	}
	return sum
}

// hadamard4x4 transforms the 4x4 difference block and returns the
// normalized sum of absolute coefficients.
func hadamard4x4(org []int16, orgStride int, ref []uint16, refStride int) uint32 {
	var tmp [16]int32

	// Horizontal pass.
	for i := 0; i < 4; i++ {
		o := org[i*orgStride:]
		r := ref[i*refStride:]
		d0 := int32(o[0]) - int32(r[0])
		d1 := int32(o[1]) - int32(r[1])
		d2 := int32(o[2]) - int32(r[2])
		d3 := int32(o[3]) - int32(r[3])
		a0 := d0 + d2
		a1 := d1 + d3
		a2 := d1 - d3
		a3 := d0 - d2
		tmp[0+i*4] = a0 + a1
		tmp[1+i*4] = a3 + a2
		tmp[2+i*4] = a3 - a2
		tmp[3+i*4] = a0 - a1
	}

	// Vertical pass.
	var sum uint32
	for i := 0; i < 4; i++ {
		a0 := tmp[0*4+i] + tmp[2*4+i]
		a1 := tmp[1*4+i] + tmp[3*4+i]
		a2 := tmp[1*4+i] - tmp[3*4+i]
		a3 := tmp[0*4+i] - tmp[2*4+i]
		sum += absDiff(a0+a1, 0) + absDiff(a3+a2, 0) + absDiff(a3-a2, 0) + absDiff(a0-a1, 0)
	}
	return (sum + 1) >> 1
}

// hadamard8x8 is the 8x8 counterpart of hadamard4x4.
func hadamard8x8(org []int16, orgStride int, ref []uint16, refStride int) uint32 {
	var m [64]int32
	for i := 0; i < 8; i++ {
		o := org[i*orgStride:]
		r := ref[i*refStride:]
		var d [8]int32
		for j := range d {
			d[j] = int32(o[j]) - int32(r[j])
		}
		butterfly8(d[:], 1)
		copy(m[i*8:i*8+8], d[:])
	}
	var sum uint32
	var col [8]int32
	for j := 0; j < 8; j++ {
		for i := range col {
			col[i] = m[i*8+j]
		}
		butterfly8(col[:], 1)
		for _, v := range col {
			sum += absDiff(v, 0)
		}
	}
	return (sum + 2) >> 2
}

// butterfly8 applies an in-place unnormalized 8-point Walsh-Hadamard
// transform to v[0], v[step], ..., v[7*step].
func butterfly8(v []int32, step int) {
	for half := 4; half >= 1; half >>= 1 {
		for base := 0; base < 8; base += 2 * half {
			for k := base; k < base+half; k++ {
				a, b := v[k*step], v[(k+half)*step]
				v[k*step], v[(k+half)*step] = a+b, a-b
			}
		}
	}
}

// average writes the rounded mean of a and b into dst.
func average(dst, a, b []uint16) {
	b = b[:len(a)]
	dst = dst[:len(a)]
	for i := range a {
		dst[i] = uint16((uint32(a[i]) + uint32(b[i]) + 1) >> 1)
	}
}
