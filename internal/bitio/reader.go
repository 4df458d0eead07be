package bitio

const (
	// maxNumBitRead is the largest field a single ReadBits call returns.
	maxNumBitRead = 24
	// lBits is the size of the prefetch register.
	lBits = 64
)

// Reader unpacks the bit fields a Writer produced.
//
// It keeps a 64-bit window over the source and refills it a byte at a time
// so that at least 56 bits are ready while input remains. Bits past the end
// of the input read as zero and mark the stream as overrun.
type Reader struct {
	val    uint64 // prefetched bits
	buf    []byte
	pos    int // byte position in buf
	bitPos int // bit position inside val
	read   int // bits consumed
	eos    bool
	err    error
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	br := &Reader{buf: data}
	n := min(len(data), 8)
	for i := 0; i < n; i++ {
		br.val |= uint64(data[i]) << uint(8*i)
	}
	br.pos = n
	return br
}

// shiftBytes loads bytes into val until bitPos < 8 or the input ends.
func (br *Reader) shiftBytes() {
	for br.bitPos >= 8 && br.pos < len(br.buf) {
		br.val >>= 8
		br.val |= uint64(br.buf[br.pos]) << (lBits - 8)
		br.pos++
		br.bitPos -= 8
	}
	if br.bitPos >= lBits {
		// Past the end: keep shifts defined, the remaining reads are zero.
		br.val = 0
		br.bitPos = 0
	}
}

// ReadBits reads nBits (0..24). Zero is returned once the stream is overrun.
func (br *Reader) ReadBits(nBits int) uint32 {
	if nBits < 0 || nBits > maxNumBitRead {
		br.fail(ErrFieldTooWide)
		return 0
	}
	if br.eos {
		return 0
	}
	br.read += nBits
	if br.read > 8*len(br.buf) {
		br.eos = true
		return 0
	}
	v := uint32(br.val>>uint(br.bitPos)) & (1<<uint(nBits) - 1)
	br.bitPos += nBits
	br.shiftBytes()
	return v
}

// ReadBit reads a single bit.
func (br *Reader) ReadBit() uint32 {
	return br.ReadBits(1)
}

// NumBits returns the number of bits consumed.
func (br *Reader) NumBits() int {
	return min(br.read, 8*len(br.buf))
}

// IsEndOfStream reports whether a read went past the end of the input.
func (br *Reader) IsEndOfStream() bool {
	return br.eos
}

func (br *Reader) fail(err error) {
	if br.err == nil {
		br.err = err
	}
}

// Err returns the first decoding error: ErrOverrun after reading past the
// end of the input, or the error of a malformed code.
func (br *Reader) Err() error {
	if br.err != nil {
		return br.err
	}
	if br.eos {
		return ErrOverrun
	}
	return nil
}
