package dsp

import (
	"fmt"
	"log/slog"

	"golang.org/x/sys/cpu"
)

// CopyFunc copies a w x h block of samples starting at src[srcOff].
type CopyFunc func(dst []uint16, dstStride int, src []uint16, srcOff, srcStride, w, h int)

// FilterFunc applies one rounded, clipped interpolation pass. The tap count
// is len(coeffs) and srcOff addresses the first tap of the first output.
type FilterFunc func(dst []uint16, dstStride int, src []uint16, srcOff, srcStride, w, h int, coeffs []int16, bitDepth int)

// TwoPassFunc applies the separable horizontal-then-vertical filter through
// the int16 scratch tmp, which must hold TwoPassTempSize(w, h, len(cy)).
type TwoPassFunc func(dst []uint16, dstStride int, src []uint16, srcOff, srcStride, w, h int, cx, cy []int16, bitDepth int, tmp []int16)

// Backend is a set of kernels sharing one numeric contract. Every backend
// produces bit-identical output; they differ only in speed. Backends are
// immutable and are handed explicitly to the compensator and the searcher.
type Backend struct {
	Name     string
	Copy     CopyFunc
	FilterH  FilterFunc
	FilterV  FilterFunc
	FilterHV TwoPassFunc
	SAD      DistFunc
	SATD     DistFunc
	Average  func(dst, a, b []uint16)
}

// Backend names accepted by BackendByName.
const (
	BackendAuto     = "auto"
	BackendScalar   = "scalar"
	BackendUnrolled = "unrolled"
)

var scalarBackend = Backend{
	Name:     BackendScalar,
	Copy:     copyBlock,
	FilterH:  filterH,
	FilterV:  filterV,
	FilterHV: filterHV,
	SAD:      sad,
	SATD:     satd,
	Average:  average,
}

var unrolledBackend = Backend{
	Name:     BackendUnrolled,
	Copy:     copyBlock,
	FilterH:  filterHUnrolled,
	FilterV:  filterVUnrolled,
	FilterHV: filterHVUnrolled,
	SAD:      sadUnrolled,
	SATD:     satd,
	Average:  averageUnrolled,
}

// ScalarBackend returns the reference kernels.
func ScalarBackend() *Backend { return &scalarBackend }

// UnrolledBackend returns the kernels with tap loops and row loops unrolled
// for the 8-tap and 4-tap filters.
func UnrolledBackend() *Backend { return &unrolledBackend }

// DetectBackend picks the fastest backend for the running CPU. Wide
// out-of-order cores (AVX2 on x86, ASIMD on arm64) profit from the unrolled
// kernels; everything else uses the scalar ones.
func DetectBackend() *Backend {
	if cpu.X86.HasAVX2 {
		slog.Debug("motion kernels initialized", "backend", BackendUnrolled, "cpu", "AVX2")
		return &unrolledBackend
	}
	if cpu.ARM64.HasASIMD {
		slog.Debug("motion kernels initialized", "backend", BackendUnrolled, "cpu", "ASIMD")
		return &unrolledBackend
	}
	slog.Debug("motion kernels initialized", "backend", BackendScalar)
	return &scalarBackend
}

// BackendByName resolves a backend name. The empty string and "auto" select
// DetectBackend.
func BackendByName(name string) (*Backend, error) {
	switch name {
	case "", BackendAuto:
		return DetectBackend(), nil
	case BackendScalar:
		return &scalarBackend, nil
	case BackendUnrolled:
		return &unrolledBackend, nil
	}
	return nil, fmt.Errorf("dsp: unknown backend %q (must be auto, scalar or unrolled)", name)
}

// Metric selects the block distortion measure.
type Metric int

const (
	MetricSAD Metric = iota
	MetricSATD
)

func (m Metric) String() string {
	switch m {
	case MetricSAD:
		return "sad"
	case MetricSATD:
		return "satd"
	default:
		return fmt.Sprintf("Metric(%d)", int(m))
	}
}

// Dist returns the backend's kernel for metric m.
func (b *Backend) Dist(m Metric) DistFunc {
	if m == MetricSATD {
		return b.SATD
	}
	return b.SAD
}
