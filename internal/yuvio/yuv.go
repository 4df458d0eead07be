// Package yuvio reads and writes raw planar YUV sequences and converts still
// images into pictures.
//
// Samples are stored one byte each at 8 bits and as 16-bit little-endian
// words above 8 bits. Frames hold the luma plane followed, for 4:2:0, by the
// two quarter-size chroma planes.
package yuvio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/deepteams/motion/internal/dsp"
	"github.com/deepteams/motion/internal/picture"
	"github.com/deepteams/motion/internal/pool"
)

// ErrFormat is wrapped by every invalid Format error.
var ErrFormat = errors.New("yuvio: invalid format")

// Format describes the layout of a raw sequence.
type Format struct {
	Width, Height int
	BitDepth      int
	Chroma        picture.ChromaFormat
}

// Validate reports whether the format can be read.
func (f Format) Validate() error {
	switch {
	case f.Width <= 0 || f.Height <= 0:
		return fmt.Errorf("%w: dimensions %dx%d", ErrFormat, f.Width, f.Height)
	case f.BitDepth < dsp.MinBitDepth || f.BitDepth > dsp.MaxBitDepth:
		return fmt.Errorf("%w: bit depth %d (must be %d-%d)", ErrFormat, f.BitDepth, dsp.MinBitDepth, dsp.MaxBitDepth)
	case f.Chroma == picture.Chroma420 && (f.Width&1 != 0 || f.Height&1 != 0):
		return fmt.Errorf("%w: 4:2:0 needs even dimensions, got %dx%d", ErrFormat, f.Width, f.Height)
	case f.Chroma != picture.Chroma420 && f.Chroma != picture.Chroma400:
		return fmt.Errorf("%w: %v", ErrFormat, f.Chroma)
	}
	return nil
}

func (f Format) sampleBytes() int {
	if f.BitDepth > 8 {
		return 2
	}
	return 1
}

// FrameSize returns the size of one frame in bytes.
func (f Format) FrameSize() int {
	n := f.Width * f.Height
	if f.Chroma == picture.Chroma420 {
		n += 2 * (f.Width / 2) * (f.Height / 2)
	}
	return n * f.sampleBytes()
}

// NewPicture allocates a picture matching the format.
func (f Format) NewPicture() *picture.Picture {
	return picture.New(f.Width, f.Height, f.BitDepth, f.Chroma)
}

func (f Format) matches(pic *picture.Picture) bool {
	return pic.Width() == f.Width && pic.Height() == f.Height &&
		pic.BitDepth() == f.BitDepth && pic.Format == f.Chroma
}

func planes(pic *picture.Picture) []*picture.Plane {
	if pic.HasChroma() {
		return []*picture.Plane{pic.Y, pic.Cb, pic.Cr}
	}
	return []*picture.Plane{pic.Y}
}

// Reader reads consecutive frames of a raw sequence.
type Reader struct {
	r      io.Reader
	format Format
	buf    []byte
	frames int
}

// NewReader returns a reader for frames of format f.
func NewReader(r io.Reader, f Format) (*Reader, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &Reader{r: r, format: f, buf: pool.Get(f.FrameSize())}, nil
}

// Format returns the sequence format.
func (r *Reader) Format() Format { return r.format }

// Frames returns the number of frames read so far.
func (r *Reader) Frames() int { return r.frames }

// ReadFrame reads the next frame into pic and pads its borders. It returns
// io.EOF when the sequence ended on a frame boundary and
// io.ErrUnexpectedEOF for a truncated frame. Samples above the bit depth are
// clipped.
func (r *Reader) ReadFrame(pic *picture.Picture) error {
	if r.buf == nil {
		return errors.New("yuvio: read from closed reader")
	}
	if !r.format.matches(pic) {
		return fmt.Errorf("yuvio: picture %dx%d does not match the %dx%d sequence", pic.Width(), pic.Height(), r.format.Width, r.format.Height)
	}
	if _, err := io.ReadFull(r.r, r.buf); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("yuvio: frame %d: %w", r.frames, err)
	}

	maxVal := dsp.MaxSample(r.format.BitDepth)
	wide := r.format.sampleBytes() == 2
	off := 0
	for _, p := range planes(pic) {
		for y := 0; y < p.Height; y++ {
			row := p.Row(y)
			if wide {
				for x := range row {
					row[x] = dsp.ClipSample(int32(binary.LittleEndian.Uint16(r.buf[off:])), maxVal)
					off += 2
				}
				continue
			}
			for x := range row {
				row[x] = uint16(r.buf[off])
				off++
			}
		}
	}
	pic.Extend()
	r.frames++
	return nil
}

// Close releases the frame buffer. It does not close the underlying reader.
func (r *Reader) Close() error {
	if r.buf != nil {
		pool.Put(r.buf)
		r.buf = nil
	}
	return nil
}

// Writer writes frames of a raw sequence.
type Writer struct {
	w      io.Writer
	format Format
	buf    []byte
	frames int
}

// NewWriter returns a writer for frames of format f.
func NewWriter(w io.Writer, f Format) (*Writer, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &Writer{w: w, format: f, buf: pool.Get(f.FrameSize())}, nil
}

// WriteFrame writes the visible area of pic.
func (w *Writer) WriteFrame(pic *picture.Picture) error {
	if w.buf == nil {
		return errors.New("yuvio: write to closed writer")
	}
	if !w.format.matches(pic) {
		return fmt.Errorf("yuvio: picture %dx%d does not match the %dx%d sequence", pic.Width(), pic.Height(), w.format.Width, w.format.Height)
	}
	wide := w.format.sampleBytes() == 2
	off := 0
	for _, p := range planes(pic) {
		for y := 0; y < p.Height; y++ {
			for _, v := range p.Row(y) {
				if wide {
					binary.LittleEndian.PutUint16(w.buf[off:], v)
					off += 2
				} else {
					w.buf[off] = byte(v)
					off++
				}
			}
		}
	}
	if _, err := w.w.Write(w.buf); err != nil {
		return fmt.Errorf("yuvio: frame %d: %w", w.frames, err)
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written.
func (w *Writer) Frames() int { return w.frames }

// Close releases the frame buffer. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.buf != nil {
		pool.Put(w.buf)
		w.buf = nil
	}
	return nil
}
