package bitio

import (
	"errors"
	"math/bits"
)

// Exp-Golomb codes are written as n-1 zero bits, a one bit and the low n-1
// bits of v+1, where n is the bit length of v+1. Their lengths equal those
// of the ue(v) and se(v) codes of video bitstreams.

// MaxUE is the largest value WriteUE accepts.
const MaxUE = 1<<33 - 2

// maxPrefix bounds the zero run of a valid code.
const maxPrefix = 32

var (
	ErrOverrun      = errors.New("bitio: read past end of data")
	ErrFieldTooWide = errors.New("bitio: bit field too wide")
	ErrBadCode      = errors.New("bitio: invalid Exp-Golomb code")
)

// UELen returns the length of the unsigned code of v.
func UELen(v uint64) int {
	return 2*bits.Len64(v+1) - 1
}

// SELen returns the length of the signed code of v, |v| < 2^32.
func SELen(v int64) int {
	return UELen(seCodeNum(v))
}

func seCodeNum(v int64) uint64 {
	if v > 0 {
		return uint64(v)*2 - 1
	}
	return uint64(-v) * 2
}

// WriteUE writes v (at most MaxUE) as an unsigned Exp-Golomb code.
func (bw *Writer) WriteUE(v uint64) {
	v++
	n := bits.Len64(v) - 1
	bw.WriteBits(0, n)
	bw.WriteBits(1, 1)
	bw.WriteBits(uint32(v), n)
}

// WriteSE writes v, |v| < 2^32, as a signed Exp-Golomb code. Positive values
// map to odd code numbers.
func (bw *Writer) WriteSE(v int64) {
	bw.WriteUE(seCodeNum(v))
}

// ReadUE reads an unsigned Exp-Golomb code.
func (br *Reader) ReadUE() uint64 {
	n := 0
	for br.ReadBit() == 0 {
		if br.eos {
			return 0
		}
		if n++; n > maxPrefix {
			br.fail(ErrBadCode)
			return 0
		}
	}
	suffix := uint64(br.ReadBits(min(n, maxNumBitRead)))
	if n > maxNumBitRead {
		suffix |= uint64(br.ReadBits(n-maxNumBitRead)) << maxNumBitRead
	}
	return (1<<uint(n) | suffix) - 1
}

// ReadSE reads a signed Exp-Golomb code.
func (br *Reader) ReadSE() int64 {
	c := br.ReadUE()
	if c&1 == 1 {
		return int64(c+1) / 2
	}
	return -int64(c / 2)
}
