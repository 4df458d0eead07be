package me

import (
	"testing"

	"github.com/deepteams/motion/internal/bitio"
	"github.com/deepteams/motion/internal/mc"
)

func TestMVDBitsTable(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 2, -2, 4, -4, 8, mvdTableRange, -mvdTableRange + 1} {
		if got, want := mvdComponentBits(v), bitio.SELen(int64(v)); got != want {
			t.Errorf("mvdComponentBits(%d) = %d, want %d", v, got, want)
		}
	}
	if got := mvdComponentBits(3); got != 5 {
		t.Errorf("mvdComponentBits(3) = %d, want 5", got)
	}
}

func TestMVDBitsMonotonic(t *testing.T) {
	prev := mvdComponentBits(0)
	for v := int32(1); v <= 3*mvdTableRange; v++ {
		pos, neg := mvdComponentBits(v), mvdComponentBits(-v)
		if pos < prev || neg < prev {
			t.Fatalf("bits(%d)=%d bits(%d)=%d below bits(%d)=%d", v, pos, -v, neg, v-1, prev)
		}
		prev = min(pos, neg)
	}
}

func TestRefIdxBits(t *testing.T) {
	tests := []struct {
		numRefs int
		want    []int
	}{
		{1, []int{0}},
		{2, []int{1, 1}},
		{3, []int{1, 2, 2}},
		{4, []int{1, 2, 3, 3}},
	}
	for _, tt := range tests {
		for j, want := range tt.want {
			if got := RefIdxBits(tt.numRefs, j); got != want {
				t.Errorf("RefIdxBits(%d, %d) = %d, want %d", tt.numRefs, j, got, want)
			}
		}
	}
}

func TestMVBitsMinimalAtPredictor(t *testing.T) {
	zero := MVBits(mc.MV{}, 1, 0)
	if zero != 2 {
		t.Fatalf("MVBits(0) = %d, want 2", zero)
	}
	for _, mvd := range []mc.MV{{X: 1, Y: 0}, {X: 0, Y: -1}, {X: -4, Y: 4}, {X: 300, Y: -5000}} {
		if b := MVBits(mvd, 1, 0); b <= zero {
			t.Errorf("MVBits(%v) = %d, want > %d", mvd, b, zero)
		}
	}
}

func TestMVCost(t *testing.T) {
	tests := []struct {
		lambda uint32
		bits   int
		want   uint64
	}{
		{0, 100, 0},
		{1 << LambdaShift, 5, 5},
		{1 << (LambdaShift - 1), 1, 1},
		{1 << (LambdaShift - 2), 1, 0},
		{3 << LambdaShift, 7, 21},
	}
	for _, tt := range tests {
		if got := MVCost(tt.lambda, tt.bits); got != tt.want {
			t.Errorf("MVCost(%d, %d) = %d, want %d", tt.lambda, tt.bits, got, tt.want)
		}
	}
}

func TestLambdaFromQP(t *testing.T) {
	tests := []struct {
		qp, bitDepth int
		want         uint32
	}{
		{12, 8, 49478},
		{32, 8, 498712},
		{22, 10, 628338},
	}
	for _, tt := range tests {
		if got := LambdaFromQP(tt.qp, tt.bitDepth); got != tt.want {
			t.Errorf("LambdaFromQP(%d, %d) = %d, want %d", tt.qp, tt.bitDepth, got, tt.want)
		}
	}
	prev := uint32(0)
	for qp := 0; qp <= 51; qp++ {
		l := LambdaFromQP(qp, 8)
		if l <= prev {
			t.Fatalf("LambdaFromQP(%d) = %d not above %d", qp, l, prev)
		}
		prev = l
	}
}
