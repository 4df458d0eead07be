package me

import (
	"math"

	"github.com/deepteams/motion/internal/bitio"
	"github.com/deepteams/motion/internal/mc"
)

// CostMax marks a trial that is out of range and must not be selected.
const CostMax = uint64(math.MaxUint32)

// MaxRefs is the largest number of active references per list.
const MaxRefs = 16

// LambdaShift is the fixed-point precision of motion lambdas.
const LambdaShift = 16

// mvdTableRange bounds the precomputed vector-difference bit lengths. The
// table covers (-mvdTableRange, mvdTableRange].
const mvdTableRange = 2048

var (
	mvdBits    [2 * mvdTableRange]uint8 // index v + mvdTableRange - 1
	refIdxBits [MaxRefs + 1][MaxRefs]uint8
)

func init() {
	for v := -mvdTableRange + 1; v <= mvdTableRange; v++ {
		mvdBits[v+mvdTableRange-1] = uint8(bitio.SELen(int64(v)))
	}
	for n := 0; n <= MaxRefs; n++ {
		for j := 0; j < MaxRefs; j++ {
			switch {
			case n <= 1:
				refIdxBits[n][j] = 0
			case j < n-1:
				refIdxBits[n][j] = uint8(j + 1)
			default:
				refIdxBits[n][j] = uint8(j)
			}
		}
	}
}

// mvdComponentBits returns the estimated bit length of one vector difference
// component in quarter samples.
func mvdComponentBits(v int32) int {
	if v > -mvdTableRange && v <= mvdTableRange {
		return int(mvdBits[v+mvdTableRange-1])
	}
	return bitio.SELen(int64(v))
}

// mvdDiffBits is mvdComponentBits for a difference of two int32 components.
func mvdDiffBits(v int64) int {
	if v > -mvdTableRange && v <= mvdTableRange {
		return int(mvdBits[v+mvdTableRange-1])
	}
	return bitio.SELen(v)
}

// RefIdxBits returns the truncated-unary length of refIdx among numRefs
// active references.
func RefIdxBits(numRefs, refIdx int) int {
	return int(refIdxBits[numRefs][refIdx])
}

// MVBits estimates the bits needed to code the vector difference mvd and the
// reference index.
func MVBits(mvd mc.MV, numRefs, refIdx int) int {
	return mvdComponentBits(mvd.X) + mvdComponentBits(mvd.Y) + RefIdxBits(numRefs, refIdx)
}

// MVCost converts a bit estimate to distortion units: lambda*bits/2^16,
// rounded.
func MVCost(lambda uint32, bits int) uint64 {
	return (uint64(lambda)*uint64(bits) + 1<<(LambdaShift-1)) >> LambdaShift
}

// LambdaFromQP returns the motion lambda for a quantizer in fixed point. The
// mode-decision lambda 0.57*2^((qp-12)/3) is taken at the bit-depth adjusted
// quantizer; the motion lambda is its square root since distortion is
// measured in absolute rather than squared differences.
func LambdaFromQP(qp, bitDepth int) uint32 {
	q := float64(qp + 6*(bitDepth-8))
	lambda := 0.57 * math.Pow(2, (q-12)/3)
	return uint32(math.Floor(math.Sqrt(lambda) * (1 << LambdaShift)))
}
