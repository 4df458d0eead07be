// Package mc implements fractional-sample motion compensation: motion vector
// range clamping, filter selection from the fractional vector phase, block
// prediction for luma and 4:2:0 chroma, and bi-prediction blending.
package mc

import (
	"fmt"

	"github.com/deepteams/motion/internal/picture"
)

// MV is a motion vector in quarter-sample units, relative to the top-left
// sample of the block it belongs to.
type MV struct {
	X, Y int32
}

// Add returns m + o.
func (m MV) Add(o MV) MV { return MV{m.X + o.X, m.Y + o.Y} }

// Sub returns m - o.
func (m MV) Sub(o MV) MV { return MV{m.X - o.X, m.Y - o.Y} }

// IsZero reports whether both components are zero.
func (m MV) IsZero() bool { return m.X == 0 && m.Y == 0 }

// IsFullSample reports whether the vector has no fractional part.
func (m MV) IsFullSample() bool { return m.X&3 == 0 && m.Y&3 == 0 }

func (m MV) String() string { return fmt.Sprintf("(%d,%d)", m.X, m.Y) }

// MVPair carries a vector before and after range clamping. The clamped
// vector addresses the reference; the original selects the filter phase, so
// vectors that only differ outside the legal window interpolate alike.
type MVPair struct {
	Original MV
	Clamped  MV
}

// Pair returns the pair for a vector that needs no clamping.
func Pair(mv MV) MVPair { return MVPair{Original: mv, Clamped: mv} }

// Clamp restricts mv so that a w x h block at (x, y) addresses reference
// samples no further than picture.MaxCUSize outside a picW x picH picture.
// The lower bound is applied before the upper bound; Clamp is idempotent.
func Clamp(x, y, w, h, picW, picH int, mv MV) MV {
	return MV{
		X: clampComponent(x, w, picW, mv.X),
		Y: clampComponent(y, h, picH, mv.Y),
	}
}

// clampComponent works in int64 so that vectors near the int32 limits
// cannot wrap to the opposite edge.
func clampComponent(pos, size, picDim int, mv int32) int32 {
	const lo = -picture.MaxCUSize << 2
	hi := int64(picDim-1+picture.MaxCUSize) << 2
	p := int64(pos) << 2
	s := int64(size) << 2
	v := int64(mv)
	if p+v < lo {
		v = lo - p
	}
	if p+v+s-4 > hi {
		v = hi - p - s + 4
	}
	return int32(v)
}

// ClampPair clamps the vectors of both reference lists. Entries whose valid
// flag is false are passed through unchanged.
func ClampPair(x, y, w, h, picW, picH int, mv [2]MV, valid [2]bool) [2]MVPair {
	var out [2]MVPair
	for i := range mv {
		out[i] = Pair(mv[i])
		if valid[i] {
			out[i].Clamped = Clamp(x, y, w, h, picW, picH, mv[i])
		}
	}
	return out
}
