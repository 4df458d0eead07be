// Package picture holds padded sample planes and the pictures built from
// them. Reference pictures are padded by replicating their border samples so
// motion compensation can read outside the visible area without bounds logic.
package picture

import "fmt"

// MaxCUSize is the largest coding unit edge. Motion vectors may point up to
// one MaxCUSize outside the picture.
const MaxCUSize = 128

// Border widths. They cover MaxCUSize of vector overshoot plus the filter
// support on both sides.
const (
	PadLuma   = MaxCUSize + 16
	PadChroma = MaxCUSize/2 + 8
)

// ChromaFormat is the chroma subsampling of a picture.
type ChromaFormat int

const (
	Chroma420 ChromaFormat = iota
	Chroma400              // luma only
)

func (f ChromaFormat) String() string {
	switch f {
	case Chroma420:
		return "4:2:0"
	case Chroma400:
		return "4:0:0"
	default:
		return fmt.Sprintf("ChromaFormat(%d)", int(f))
	}
}

// Plane is a padded 2-D grid of samples. Pix holds (Width+2*Pad) x
// (Height+2*Pad) samples; picture coordinate (0, 0) is at Offset(0, 0).
type Plane struct {
	Pix      []uint16
	Stride   int
	Width    int
	Height   int
	Pad      int
	BitDepth int
}

// NewPlane allocates a zeroed plane.
func NewPlane(width, height, pad, bitDepth int) *Plane {
	stride := width + 2*pad
	return &Plane{
		Pix:      make([]uint16, stride*(height+2*pad)),
		Stride:   stride,
		Width:    width,
		Height:   height,
		Pad:      pad,
		BitDepth: bitDepth,
	}
}

// Offset returns the index in Pix of picture coordinate (x, y). Coordinates
// may be negative down to -Pad.
func (p *Plane) Offset(x, y int) int {
	return (y+p.Pad)*p.Stride + x + p.Pad
}

// At returns the sample at (x, y).
func (p *Plane) At(x, y int) uint16 {
	return p.Pix[p.Offset(x, y)]
}

// Set stores v at (x, y).
func (p *Plane) Set(x, y int, v uint16) {
	p.Pix[p.Offset(x, y)] = v
}

// Row returns the visible samples of row y.
func (p *Plane) Row(y int) []uint16 {
	o := p.Offset(0, y)
	return p.Pix[o : o+p.Width]
}

// Extend replicates the edge samples into the border. It must be called
// after the visible area is filled and before the plane is used as a
// motion-compensation reference.
func (p *Plane) Extend() {
	for y := 0; y < p.Height; y++ {
		row := p.Pix[(y+p.Pad)*p.Stride : (y+p.Pad+1)*p.Stride]
		left, right := row[p.Pad], row[p.Pad+p.Width-1]
		for x := 0; x < p.Pad; x++ {
			row[x] = left
			row[p.Pad+p.Width+x] = right
		}
	}
	top := p.Pix[p.Pad*p.Stride : (p.Pad+1)*p.Stride]
	bottom := p.Pix[(p.Pad+p.Height-1)*p.Stride : (p.Pad+p.Height)*p.Stride]
	for y := 0; y < p.Pad; y++ {
		copy(p.Pix[y*p.Stride:(y+1)*p.Stride], top)
		copy(p.Pix[(p.Pad+p.Height+y)*p.Stride:(p.Pad+p.Height+y+1)*p.Stride], bottom)
	}
}

// Picture is a frame of one luma and, for 4:2:0, two chroma planes.
type Picture struct {
	Y, Cb, Cr *Plane
	Format    ChromaFormat
	// POC is the picture order count. It is carried for callers and never
	// read by motion search.
	POC int
}

// New allocates a zeroed picture. Width and height must be even for 4:2:0.
func New(width, height, bitDepth int, format ChromaFormat) *Picture {
	pic := &Picture{
		Y:      NewPlane(width, height, PadLuma, bitDepth),
		Format: format,
	}
	if format == Chroma420 {
		pic.Cb = NewPlane(width/2, height/2, PadChroma, bitDepth)
		pic.Cr = NewPlane(width/2, height/2, PadChroma, bitDepth)
	}
	return pic
}

// Width returns the luma width.
func (p *Picture) Width() int { return p.Y.Width }

// Height returns the luma height.
func (p *Picture) Height() int { return p.Y.Height }

// BitDepth returns the sample bit depth.
func (p *Picture) BitDepth() int { return p.Y.BitDepth }

// HasChroma reports whether the picture carries chroma planes.
func (p *Picture) HasChroma() bool { return p.Cb != nil }

// Extend pads every plane of the picture.
func (p *Picture) Extend() {
	p.Y.Extend()
	if p.HasChroma() {
		p.Cb.Extend()
		p.Cr.Extend()
	}
}
