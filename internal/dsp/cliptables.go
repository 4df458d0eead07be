// Package dsp provides the fixed-point sample kernels of the motion pipeline:
// fractional-sample interpolation filters, block copy, bi-prediction averaging
// and block distortion metrics. Samples are stored as uint16 for every
// supported bit depth (8, 10 and 12).
package dsp

// Supported sample bit depths.
const (
	MinBitDepth = 8
	MaxBitDepth = 12
)

// MaxSample returns the largest sample value representable at bitDepth.
func MaxSample(bitDepth int) int32 {
	return int32(1)<<uint(bitDepth) - 1
}

// ClipSample clips v to [0, maxVal].
// Uses unsigned comparison for a single-branch hot path when v is in range.
func ClipSample(v, maxVal int32) uint16 {
	if uint32(v) <= uint32(maxVal) {
		return uint16(v)
	}
	if v < 0 {
		return 0
	}
	return uint16(maxVal)
}

// absDiff returns |a-b| for two signed sample values.
func absDiff(a, b int32) uint32 {
	d := a - b
	// Arithmetic right shift: d>>31 is 0 for positive, -1 for negative.
	m := d >> 31
	return uint32((d ^ m) - m)
}
