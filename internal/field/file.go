package field

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/deepteams/motion/internal/bitio"
	"github.com/deepteams/motion/internal/mc"
)

// A motion-field file is an 8-byte header (FourCC "GMEF", little-endian
// version) followed by chunks. Each chunk is a FourCC tag, a little-endian
// payload size and the payload, padded to an even length. A "FRAM" chunk
// holds a frame header and the zstd-compressed block records of one field.
// Unknown chunks are skipped.
//
// Block records form an LSB-first bit stream in raster order. Each record
// is ue(mode), then for every list the mode uses ue(refIdx) and the vector
// as se(dx) se(dy) against the last vector of that list in the same block
// row, then ue(cost) and ue(dist).

// FourCC creates a FourCC value from four bytes (little-endian).
func FourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

var (
	FourCCFile  = FourCC('G', 'M', 'E', 'F')
	FourCCFrame = FourCC('F', 'R', 'A', 'M')
)

const (
	Version         = 1
	fileHeaderSize  = 8
	chunkHeaderSize = 8
	frameHeaderSize = 28
	minRecordBits   = 6
	minBlockSize    = 4
	maxBlockSize    = 128
	maxRecordBytes  = 1 << 24
	maxChunkPayload = 1<<31 - 1
)

// Common errors.
var (
	ErrInvalidHeader = errors.New("field: invalid file header")
	ErrVersion       = errors.New("field: unsupported version")
	ErrTruncated     = errors.New("field: truncated data")
	ErrTooLarge      = errors.New("field: chunk too large")
	ErrCorrupt       = errors.New("field: corrupt frame")
)

// PaddedSize returns the payload size padded to an even number of bytes.
func PaddedSize(size uint32) uint32 {
	return size + (size & 1)
}

// FourCCString returns a human-readable string for a FourCC value.
func FourCCString(fourcc uint32) string {
	b := [4]byte{byte(fourcc), byte(fourcc >> 8), byte(fourcc >> 16), byte(fourcc >> 24)}
	return string(b[:])
}

var zstdEncPool = sync.Pool{
	New: func() any {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		return enc
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxRecordBytes))
		return dec
	},
}

func compressZstd(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc := zstdEncPool.Get().(*zstd.Encoder)
	enc.Reset(&buf)
	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		zstdEncPool.Put(enc)
		return nil, err
	}
	if err := enc.Close(); err != nil {
		zstdEncPool.Put(enc)
		return nil, err
	}
	zstdEncPool.Put(enc)
	return buf.Bytes(), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	dec := zstdDecPool.Get().(*zstd.Decoder)
	if err := dec.Reset(bytes.NewReader(data)); err != nil {
		zstdDecPool.Put(dec)
		return nil, err
	}
	var out bytes.Buffer
	if _, err := out.ReadFrom(dec); err != nil {
		zstdDecPool.Put(dec)
		return nil, err
	}
	zstdDecPool.Put(dec)
	return out.Bytes(), nil
}

// Writer writes motion fields to a file.
type Writer struct {
	w      io.Writer
	frames int
}

// NewWriter writes the file header and returns a writer.
func NewWriter(w io.Writer) (*Writer, error) {
	var hdr [fileHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], FourCCFile)
	binary.LittleEndian.PutUint32(hdr[4:8], Version)
	if _, err := w.Write(hdr[:]); err != nil {
		return nil, fmt.Errorf("field: writing header: %w", err)
	}
	return &Writer{w: w}, nil
}

// Frames returns the number of fields written.
func (w *Writer) Frames() int { return w.frames }

// WriteField appends f as one chunk.
func (w *Writer) WriteField(f *Field) error {
	if len(f.Blocks) != f.Cols*f.Rows {
		return fmt.Errorf("%w: %d blocks on a %dx%d grid", ErrCorrupt, len(f.Blocks), f.Cols, f.Rows)
	}
	records, err := encodeBlocks(f)
	if err != nil {
		return err
	}
	packed, err := compressZstd(records)
	if err != nil {
		return fmt.Errorf("field: compressing frame %d: %w", f.POC, err)
	}

	size := frameHeaderSize + len(packed)
	if size > maxChunkPayload {
		return ErrTooLarge
	}
	buf := make([]byte, chunkHeaderSize+PaddedSize(uint32(size)))
	binary.LittleEndian.PutUint32(buf[0:4], FourCCFrame)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(size))
	hdr := buf[chunkHeaderSize:]
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(int32(f.POC)))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(f.Width))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(f.Height))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(f.BlockSize))
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(len(f.Blocks)))
	binary.LittleEndian.PutUint64(hdr[20:28], f.Evaluations)
	copy(hdr[frameHeaderSize:], packed)

	if _, err := w.w.Write(buf); err != nil {
		return fmt.Errorf("field: writing frame %d: %w", f.POC, err)
	}
	w.frames++
	return nil
}

func encodeBlocks(f *Field) ([]byte, error) {
	bw := bitio.NewWriter(len(f.Blocks) * 8)
	for y := 0; y < f.Rows; y++ {
		var last [2]mc.MV
		for x := 0; x < f.Cols; x++ {
			m := &f.Blocks[y*f.Cols+x]
			if m.Mode > ModeBi {
				return nil, fmt.Errorf("%w: block (%d,%d) has %v", ErrCorrupt, x, y, m.Mode)
			}
			bw.WriteUE(uint64(m.Mode))
			for l := 0; l < 2; l++ {
				if !m.Mode.Uses(l) {
					continue
				}
				if m.RefIdx[l] < 0 {
					return nil, fmt.Errorf("%w: block (%d,%d) has reference index %d", ErrCorrupt, x, y, m.RefIdx[l])
				}
				bw.WriteUE(uint64(m.RefIdx[l]))
				bw.WriteSE(int64(m.MV[l].X) - int64(last[l].X))
				bw.WriteSE(int64(m.MV[l].Y) - int64(last[l].Y))
				last[l] = m.MV[l]
			}
			bw.WriteUE(uint64(m.Cost))
			bw.WriteUE(uint64(m.Dist))
		}
	}
	return bw.Finish(), nil
}

func decodeBlocks(f *Field, data []byte) error {
	br := bitio.NewReader(data)
	for y := 0; y < f.Rows; y++ {
		var last [2]mc.MV
		for x := 0; x < f.Cols; x++ {
			m := &f.Blocks[y*f.Cols+x]
			mode := br.ReadUE()
			if mode > uint64(ModeBi) {
				return fmt.Errorf("%w: block (%d,%d) mode %d", ErrCorrupt, x, y, mode)
			}
			m.Mode = Mode(mode)
			for l := 0; l < 2; l++ {
				if !m.Mode.Uses(l) {
					continue
				}
				ref := br.ReadUE()
				dx := int64(last[l].X) + br.ReadSE()
				dy := int64(last[l].Y) + br.ReadSE()
				if ref > math.MaxInt8 || dx != int64(int32(dx)) || dy != int64(int32(dy)) {
					return fmt.Errorf("%w: block (%d,%d) list %d out of range", ErrCorrupt, x, y, l)
				}
				m.RefIdx[l] = int8(ref)
				m.MV[l] = mc.MV{X: int32(dx), Y: int32(dy)}
				last[l] = m.MV[l]
			}
			cost, dist := br.ReadUE(), br.ReadUE()
			if cost > math.MaxUint32 || dist > math.MaxUint32 {
				return fmt.Errorf("%w: block (%d,%d) cost out of range", ErrCorrupt, x, y)
			}
			m.Cost, m.Dist = uint32(cost), uint32(dist)
			if err := br.Err(); err != nil {
				return fmt.Errorf("%w: block (%d,%d): %w", ErrCorrupt, x, y, err)
			}
		}
	}
	if (len(data)*8 - br.NumBits()) >= 8 {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(data)-(br.NumBits()+7)/8)
	}
	return nil
}

// Reader reads motion fields from a file.
type Reader struct {
	r io.Reader
}

// NewReader validates the file header and returns a reader.
func NewReader(r io.Reader) (*Reader, error) {
	var hdr [fileHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, fmt.Errorf("field: reading header: %w", err)
	}
	if binary.LittleEndian.Uint32(hdr[0:4]) != FourCCFile {
		return nil, ErrInvalidHeader
	}
	if v := binary.LittleEndian.Uint32(hdr[4:8]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, v)
	}
	return &Reader{r: r}, nil
}

// ReadField returns the next field, or io.EOF after the last one.
func (r *Reader) ReadField() (*Field, error) {
	for {
		fourcc, payload, err := r.readChunk()
		if err != nil {
			return nil, err
		}
		if fourcc != FourCCFrame {
			continue
		}
		return parseFrame(payload)
	}
}

func (r *Reader) readChunk() (uint32, []byte, error) {
	var hdr [chunkHeaderSize]byte
	if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, ErrTruncated
		}
		return 0, nil, fmt.Errorf("field: reading chunk header: %w", err)
	}
	fourcc := binary.LittleEndian.Uint32(hdr[0:4])
	size := binary.LittleEndian.Uint32(hdr[4:8])
	if size > maxChunkPayload {
		return 0, nil, ErrTooLarge
	}
	// The payload buffer grows with the bytes actually read, so a header
	// claiming a large size cannot force a large allocation.
	n := int64(PaddedSize(size))
	if fourcc != FourCCFrame {
		if _, err := io.CopyN(io.Discard, r.r, n); err != nil {
			return 0, nil, chunkError(fourcc, err)
		}
		return fourcc, nil, nil
	}
	var payload bytes.Buffer
	if _, err := io.CopyN(&payload, r.r, n); err != nil {
		return 0, nil, chunkError(fourcc, err)
	}
	return fourcc, payload.Bytes()[:size], nil
}

func chunkError(fourcc uint32, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return fmt.Errorf("field: reading %s chunk: %w", FourCCString(fourcc), err)
}

func parseFrame(payload []byte) (*Field, error) {
	if len(payload) < frameHeaderSize {
		return nil, ErrTruncated
	}
	poc := int(int32(binary.LittleEndian.Uint32(payload[0:4])))
	width := int(binary.LittleEndian.Uint32(payload[4:8]))
	height := int(binary.LittleEndian.Uint32(payload[8:12]))
	blockSize := int(binary.LittleEndian.Uint32(payload[12:16]))
	count := int(binary.LittleEndian.Uint32(payload[16:20]))
	if width <= 0 || height <= 0 || width > 1<<16 || height > 1<<16 || blockSize < minBlockSize || blockSize > maxBlockSize {
		return nil, fmt.Errorf("%w: %dx%d blocks of %d", ErrCorrupt, width, height, blockSize)
	}
	cols := (width + blockSize - 1) / blockSize
	rows := (height + blockSize - 1) / blockSize
	if count != cols*rows {
		return nil, fmt.Errorf("%w: %d blocks, want %d", ErrCorrupt, count, cols*rows)
	}

	records, err := decompressZstd(payload[frameHeaderSize:])
	if err != nil {
		return nil, fmt.Errorf("field: frame %d: %w", poc, err)
	}
	if count*minRecordBits > len(records)*8 {
		return nil, fmt.Errorf("%w: %d record bytes for %d blocks", ErrCorrupt, len(records), count)
	}
	f := New(width, height, blockSize, poc)
	f.Evaluations = binary.LittleEndian.Uint64(payload[20:28])
	if err := decodeBlocks(f, records); err != nil {
		return nil, fmt.Errorf("field: frame %d: %w", poc, err)
	}
	return f, nil
}
