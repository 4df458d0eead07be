// Package bitio writes and reads LSB-first bit streams of raw fields and
// Exp-Golomb codes.
package bitio

import "encoding/binary"

const (
	// writerBits is the number of bits flushed at a time.
	writerBits = 32
	// writerBytes is the number of bytes written per flush.
	writerBytes = 4
)

// Writer packs bit fields into a byte slice, least significant bit first.
//
// Bits are accumulated in a 64-bit register and flushed 32 bits at a time in
// little-endian byte order, the layout Reader expects.
type Writer struct {
	bits uint64 // bit accumulator
	used int    // number of bits used in accumulator
	buf  []byte
	cur  int // write position in buf
}

// NewWriter creates a Writer with room for expectedSize bytes.
func NewWriter(expectedSize int) *Writer {
	if expectedSize < 1024 {
		expectedSize = 1024
	}
	expectedSize = ((expectedSize >> 10) + 1) << 10
	return &Writer{buf: make([]byte, expectedSize)}
}

// WriteBits writes the low nBits (0..32) of v.
func (bw *Writer) WriteBits(v uint32, nBits int) {
	if nBits == 0 {
		return
	}
	if bw.used >= writerBits {
		bw.flushBits()
	}
	bw.bits |= (uint64(v) & (1<<uint(nBits) - 1)) << uint(bw.used)
	bw.used += nBits
}

// flushBits moves the low 32 bits of the accumulator to the buffer.
func (bw *Writer) flushBits() {
	bw.grow(writerBytes)
	binary.LittleEndian.PutUint32(bw.buf[bw.cur:], uint32(bw.bits))
	bw.cur += writerBytes
	bw.bits >>= writerBits
	bw.used -= writerBits
}

// grow ensures at least n bytes of capacity remain at bw.cur.
func (bw *Writer) grow(n int) {
	if bw.cur+n <= len(bw.buf) {
		return
	}
	newSize := max(len(bw.buf)*3/2, bw.cur+n)
	newSize = ((newSize >> 10) + 1) << 10
	tmp := make([]byte, newSize)
	copy(tmp, bw.buf[:bw.cur])
	bw.buf = tmp
}

// Finish flushes the remaining bits, zero-padding the last byte, and returns
// the encoded bytes.
func (bw *Writer) Finish() []byte {
	for bw.used >= writerBits {
		bw.flushBits()
	}
	bw.grow((bw.used + 7) >> 3)
	for bw.used > 0 {
		bw.buf[bw.cur] = byte(bw.bits)
		bw.cur++
		bw.bits >>= 8
		bw.used -= 8
	}
	bw.used = 0
	bw.bits = 0
	return bw.buf[:bw.cur]
}

// NumBits returns the number of bits written so far.
func (bw *Writer) NumBits() int {
	return bw.cur*8 + bw.used
}

// NumBytes returns the number of encoded bytes, including any partial
// byte in the accumulator.
func (bw *Writer) NumBytes() int {
	return bw.cur + (bw.used+7)/8
}
