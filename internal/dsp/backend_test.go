package dsp

import (
	"math/rand"
	"testing"
)

// Backend conformance tests: every backend must produce results identical to
// the scalar reference kernels.

// makeRandSamples creates a random sample buffer seeded by rng.
func makeRandSamples(rng *rand.Rand, size, bitDepth int) []uint16 {
	buf := make([]uint16, size)
	maxVal := int(MaxSample(bitDepth))
	for i := range buf {
		buf[i] = uint16(rng.Intn(maxVal + 1))
	}
	return buf
}

func makeRandOrg(rng *rand.Rand, size, bitDepth int) []int16 {
	buf := make([]int16, size)
	maxVal := int(MaxSample(bitDepth))
	for i := range buf {
		// Doubled originals minus a prediction span [-max, 2*max].
		buf[i] = int16(rng.Intn(3*maxVal+1) - maxVal)
	}
	return buf
}

var blockSizes = [][2]int{{4, 4}, {8, 4}, {4, 8}, {8, 8}, {16, 8}, {16, 16}, {32, 16}, {64, 64}, {12, 4}}

func TestFilterConformance(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	k := DefaultKernels()
	ref, unr := ScalarBackend(), UnrolledBackend()
	for _, bd := range []int{8, 10, 12} {
		for _, sz := range blockSizes {
			w, h := sz[0], sz[1]
			stride := w + 16
			src := makeRandSamples(rng, stride*(h+16), bd)
			for iter := 0; iter < 20; iter++ {
				lp := 1 + rng.Intn(LumaPhases-1)
				cp := 1 + rng.Intn(ChromaPhases-1)
				for _, taps := range [][2][]int16{
					{k.LumaKernel(lp), k.LumaKernel(1 + rng.Intn(LumaPhases-1))},
					{k.ChromaKernel(cp), k.ChromaKernel(1 + rng.Intn(ChromaPhases-1))},
				} {
					cx, cy := taps[0], taps[1]
					a := make([]uint16, w*h)
					b := make([]uint16, w*h)

					ref.FilterH(a, w, src, 0, stride, w, h, cx, bd)
					unr.FilterH(b, w, src, 0, stride, w, h, cx, bd)
					assertSamplesEqual(t, "FilterH", a, b)

					ref.FilterV(a, w, src, 0, stride, w, h, cy, bd)
					unr.FilterV(b, w, src, 0, stride, w, h, cy, bd)
					assertSamplesEqual(t, "FilterV", a, b)

					tmp := make([]int16, TwoPassTempSize(w, h, len(cy)))
					ref.FilterHV(a, w, src, 0, stride, w, h, cx, cy, bd, tmp)
					unr.FilterHV(b, w, src, 0, stride, w, h, cx, cy, bd, tmp)
					assertSamplesEqual(t, "FilterHV", a, b)
				}
			}
		}
	}
}

func TestDistortionConformance(t *testing.T) {
	rng := rand.New(rand.NewSource(43))
	ref, unr := ScalarBackend(), UnrolledBackend()
	for iter := 0; iter < 500; iter++ {
		sz := blockSizes[rng.Intn(len(blockSizes))]
		w, h := sz[0], sz[1]
		bd := 8 + 2*rng.Intn(3)
		org := makeRandOrg(rng, w*h, bd)
		stride := w + 5
		plane := makeRandSamples(rng, stride*h+3, bd)
		if got, want := unr.SAD(org, w, plane, 3, stride, w, h), ref.SAD(org, w, plane, 3, stride, w, h); got != want {
			t.Fatalf("iter %d %dx%d: SAD unrolled=%d scalar=%d", iter, w, h, got, want)
		}
		if got, want := unr.SATD(org, w, plane, 3, stride, w, h), ref.SATD(org, w, plane, 3, stride, w, h); got != want {
			t.Fatalf("iter %d %dx%d: SATD unrolled=%d scalar=%d", iter, w, h, got, want)
		}
	}
}

func TestAverageConformance(t *testing.T) {
	rng := rand.New(rand.NewSource(44))
	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(300)
		a := makeRandSamples(rng, n, 12)
		b := makeRandSamples(rng, n, 12)
		want := make([]uint16, n)
		got := make([]uint16, n)
		ScalarBackend().Average(want, a, b)
		UnrolledBackend().Average(got, a, b)
		assertSamplesEqual(t, "Average", want, got)
		for i := range want {
			if e := uint16((int(a[i]) + int(b[i]) + 1) / 2); want[i] != e {
				t.Fatalf("Average[%d] = %d, want %d", i, want[i], e)
			}
		}
	}
}

func TestBackendByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"scalar", BackendScalar, false},
		{"unrolled", BackendUnrolled, false},
		{"", "", false},
		{"auto", "", false},
		{"avx512", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be, err := BackendByName(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("BackendByName(%q) succeeded, want error", tt.name)
				}
				return
			}
			if err != nil {
				t.Fatalf("BackendByName(%q): %v", tt.name, err)
			}
			if tt.want != "" && be.Name != tt.want {
				t.Errorf("BackendByName(%q).Name = %q, want %q", tt.name, be.Name, tt.want)
			}
		})
	}
}

func assertSamplesEqual(t *testing.T, what string, want, got []uint16) {
	t.Helper()
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("%s: sample %d: scalar=%d other=%d", what, i, want[i], got[i])
		}
	}
}
