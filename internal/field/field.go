// Package field holds per-block motion decisions for a frame and stores them
// in compressed motion-field files.
package field

import (
	"fmt"

	"github.com/deepteams/motion/internal/mc"
)

// Mode is the prediction chosen for a block.
type Mode uint8

const (
	ModeL0 Mode = iota // uni-prediction from list 0
	ModeL1             // uni-prediction from list 1
	ModeBi             // average of one reference from each list
)

func (m Mode) String() string {
	switch m {
	case ModeL0:
		return "L0"
	case ModeL1:
		return "L1"
	case ModeBi:
		return "Bi"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// Uses reports whether the mode predicts from list l.
func (m Mode) Uses(l int) bool {
	switch m {
	case ModeL0:
		return l == 0
	case ModeL1:
		return l == 1
	}
	return m == ModeBi
}

// BlockMotion is the decision for one block. Vectors and reference indices
// of lists the mode does not use are zero.
type BlockMotion struct {
	Mode   Mode
	RefIdx [2]int8
	MV     [2]mc.MV
	Cost   uint32 // saturated
	Dist   uint32
}

// Field is the motion of one frame on a regular block grid. Edge blocks may
// be smaller than BlockSize.
type Field struct {
	POC           int
	Width, Height int
	BlockSize     int
	Cols, Rows    int
	Blocks        []BlockMotion // row-major

	// Evaluations is the number of cost evaluations the estimate took.
	Evaluations uint64
}

// New allocates a zeroed field covering a width x height picture.
func New(width, height, blockSize, poc int) *Field {
	cols := (width + blockSize - 1) / blockSize
	rows := (height + blockSize - 1) / blockSize
	return &Field{
		POC:       poc,
		Width:     width,
		Height:    height,
		BlockSize: blockSize,
		Cols:      cols,
		Rows:      rows,
		Blocks:    make([]BlockMotion, cols*rows),
	}
}

// At returns the block at grid position (bx, by).
func (f *Field) At(bx, by int) *BlockMotion {
	return &f.Blocks[by*f.Cols+bx]
}

// Rect returns the luma rectangle of block (bx, by), clipped to the picture.
func (f *Field) Rect(bx, by int) (x, y, w, h int) {
	x, y = bx*f.BlockSize, by*f.BlockSize
	return x, y, min(f.BlockSize, f.Width-x), min(f.BlockSize, f.Height-y)
}

// Stats summarises a field.
type Stats struct {
	Blocks     int
	Modes      [3]int
	ZeroBlocks int    // blocks whose used vectors are all zero
	TotalCost  uint64 // sum of block costs
	TotalDist  uint64
	MeanAbsMV  float64 // mean |x|+|y| over used vectors, quarter samples
}

// Stats computes summary statistics.
func (f *Field) Stats() Stats {
	s := Stats{Blocks: len(f.Blocks)}
	var mvSum, mvCount uint64
	for i := range f.Blocks {
		b := &f.Blocks[i]
		if int(b.Mode) < len(s.Modes) {
			s.Modes[b.Mode]++
		}
		s.TotalCost += uint64(b.Cost)
		s.TotalDist += uint64(b.Dist)
		zero := true
		for l := 0; l < 2; l++ {
			if !b.Mode.Uses(l) {
				continue
			}
			mv := b.MV[l]
			mvSum += uint64(abs32(mv.X)) + uint64(abs32(mv.Y))
			mvCount++
			zero = zero && mv.IsZero()
		}
		if zero {
			s.ZeroBlocks++
		}
	}
	if mvCount > 0 {
		s.MeanAbsMV = float64(mvSum) / float64(mvCount)
	}
	return s
}

func abs32(v int32) int64 {
	if v < 0 {
		return -int64(v)
	}
	return int64(v)
}
