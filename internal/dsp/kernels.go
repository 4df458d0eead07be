package dsp

// Tap counts and phase resolutions of the interpolation filters.
const (
	LumaTaps     = 8
	ChromaTaps   = 4
	LumaPhases   = 16 // 1/16 sample
	ChromaPhases = 32 // 1/32 sample

	// FilterShift is log2 of the sum of every kernel row.
	FilterShift = 6
)

// KernelSet holds the fractional-sample interpolation kernels. Row 0 of each
// table is the identity kernel; full-sample positions are copied instead of
// filtered, so row 0 is only used by tests. A KernelSet is never mutated after
// construction and may be shared by any number of goroutines.
type KernelSet struct {
	Luma   [LumaPhases][LumaTaps]int16
	Chroma [ChromaPhases][ChromaTaps]int16
}

var defaultKernels = KernelSet{
	Luma: [LumaPhases][LumaTaps]int16{
		{0, 0, 0, 64, 0, 0, 0, 0},
		{0, 1, -3, 63, 4, -2, 1, 0},
		{-1, 2, -5, 62, 8, -3, 1, 0},
		{-1, 3, -8, 60, 13, -4, 1, 0},
		{-1, 4, -10, 58, 17, -5, 1, 0},
		{-1, 4, -11, 52, 26, -8, 3, -1},
		{-1, 3, -9, 47, 31, -10, 4, -1},
		{-1, 4, -11, 45, 34, -10, 4, -1},
		{-1, 4, -11, 40, 40, -11, 4, -1},
		{-1, 4, -10, 34, 45, -11, 4, -1},
		{-1, 4, -10, 31, 47, -9, 3, -1},
		{-1, 3, -8, 26, 52, -11, 4, -1},
		{0, 1, -5, 17, 58, -10, 4, -1},
		{0, 1, -4, 13, 60, -8, 3, -1},
		{0, 1, -3, 8, 62, -5, 2, -1},
		{0, 1, -2, 4, 63, -3, 1, 0},
	},
	Chroma: [ChromaPhases][ChromaTaps]int16{
		{0, 64, 0, 0},
		{-1, 63, 2, 0},
		{-2, 62, 4, 0},
		{-2, 60, 7, -1},
		{-2, 58, 10, -2},
		{-3, 57, 12, -2},
		{-4, 56, 14, -2},
		{-4, 55, 15, -2},
		{-4, 54, 16, -2},
		{-5, 53, 18, -2},
		{-6, 52, 20, -2},
		{-6, 49, 24, -3},
		{-6, 46, 28, -4},
		{-5, 44, 29, -4},
		{-4, 42, 30, -4},
		{-4, 39, 33, -4},
		{-4, 36, 36, -4},
		{-4, 33, 39, -4},
		{-4, 30, 42, -4},
		{-4, 29, 44, -5},
		{-4, 28, 46, -6},
		{-3, 24, 49, -6},
		{-2, 20, 52, -6},
		{-2, 18, 53, -5},
		{-2, 16, 54, -4},
		{-2, 15, 55, -4},
		{-2, 14, 56, -4},
		{-2, 12, 57, -3},
		{-2, 10, 58, -2},
		{-1, 7, 60, -2},
		{0, 4, 62, -2},
		{0, 2, 63, -1},
	},
}

// DefaultKernels returns the process-wide kernel set.
func DefaultKernels() *KernelSet {
	return &defaultKernels
}

// LumaKernel returns the 8-tap kernel for a 1/16 sample phase.
func (k *KernelSet) LumaKernel(phase int) []int16 {
	return k.Luma[phase&(LumaPhases-1)][:]
}

// ChromaKernel returns the 4-tap kernel for a 1/32 sample phase.
func (k *KernelSet) ChromaKernel(phase int) []int16 {
	return k.Chroma[phase&(ChromaPhases-1)][:]
}
