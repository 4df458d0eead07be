package bitio

import (
	"errors"
	"math/rand"
	"testing"
)

func TestBitsRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	type field struct {
		v uint32
		n int
	}
	var fields []field
	w := NewWriter(0)
	total := 0
	for i := 0; i < 5000; i++ {
		n := rng.Intn(maxNumBitRead + 1)
		v := rng.Uint32() & (1<<uint(n) - 1)
		fields = append(fields, field{v, n})
		w.WriteBits(v, n)
		total += n
	}
	if w.NumBits() != total {
		t.Fatalf("NumBits = %d, want %d", w.NumBits(), total)
	}
	data := w.Finish()
	if len(data) != (total+7)/8 {
		t.Fatalf("Finish returned %d bytes, want %d", len(data), (total+7)/8)
	}

	r := NewReader(data)
	for i, f := range fields {
		if got := r.ReadBits(f.n); got != f.v {
			t.Fatalf("field %d: ReadBits(%d) = %#x, want %#x", i, f.n, got, f.v)
		}
	}
	if err := r.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}
}

func TestWriteBitsMasksValue(t *testing.T) {
	w := NewWriter(0)
	w.WriteBits(0xff, 3)
	w.WriteBits(0, 5)
	if got := w.Finish(); len(got) != 1 || got[0] != 0x07 {
		t.Fatalf("Finish = %#v, want [0x07]", got)
	}
}

func TestCodeLengths(t *testing.T) {
	tests := []struct {
		v    int64
		ue   int
		se   int
		code []byte // ue(v) bytes
	}{
		{0, 1, 1, []byte{0x01}},
		{1, 3, 3, []byte{0x02}},
		{2, 3, 5, []byte{0x06}},
		{3, 5, 5, []byte{0x04}},
		{4, 5, 7, []byte{0x0c}},
		{8, 7, 9, []byte{0x18}},
	}
	for _, tt := range tests {
		if got := UELen(uint64(tt.v)); got != tt.ue {
			t.Errorf("UELen(%d) = %d, want %d", tt.v, got, tt.ue)
		}
		if got := SELen(tt.v); got != tt.se {
			t.Errorf("SELen(%d) = %d, want %d", tt.v, got, tt.se)
		}
		if got := SELen(-tt.v); got != tt.se {
			t.Errorf("SELen(%d) = %d, want %d", -tt.v, got, tt.se)
		}
		w := NewWriter(0)
		w.WriteUE(uint64(tt.v))
		if w.NumBits() != tt.ue {
			t.Errorf("WriteUE(%d) wrote %d bits", tt.v, w.NumBits())
		}
		if got := w.Finish(); string(got) != string(tt.code) {
			t.Errorf("WriteUE(%d) = %#v, want %#v", tt.v, got, tt.code)
		}
	}
}

func TestExpGolombRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	ues := []uint64{0, 1, 2, 1<<24 - 1, 1 << 24, 1<<32 - 1, 1 << 32, MaxUE}
	ses := []int64{0, 1, -1, 1<<31 - 1, -1 << 31, 1<<32 - 1, -(1<<32 - 1)}
	for i := 0; i < 2000; i++ {
		ues = append(ues, uint64(rng.Int63n(MaxUE+1)))
		ses = append(ses, rng.Int63n(1<<33-1)-(1<<32-1))
	}

	w := NewWriter(0)
	bitsWant := 0
	for i := range ues {
		w.WriteUE(ues[i])
		bitsWant += UELen(ues[i])
		if i < len(ses) {
			w.WriteSE(ses[i])
			bitsWant += SELen(ses[i])
		}
	}
	if w.NumBits() != bitsWant {
		t.Fatalf("NumBits = %d, lengths sum to %d", w.NumBits(), bitsWant)
	}

	r := NewReader(w.Finish())
	for i := range ues {
		if got := r.ReadUE(); got != ues[i] {
			t.Fatalf("code %d: ReadUE = %d, want %d", i, got, ues[i])
		}
		if i < len(ses) {
			if got := r.ReadSE(); got != ses[i] {
				t.Fatalf("code %d: ReadSE = %d, want %d", i, got, ses[i])
			}
		}
	}
	if err := r.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}
}

func TestReaderErrors(t *testing.T) {
	t.Run("overrun", func(t *testing.T) {
		r := NewReader([]byte{0xff})
		r.ReadBits(8)
		if r.Err() != nil {
			t.Fatalf("Err after exact read = %v", r.Err())
		}
		if got := r.ReadBits(1); got != 0 || !errors.Is(r.Err(), ErrOverrun) {
			t.Fatalf("ReadBits past end = %d, err %v", got, r.Err())
		}
	})
	t.Run("truncated code", func(t *testing.T) {
		r := NewReader([]byte{0x00})
		if got := r.ReadUE(); got != 0 || !errors.Is(r.Err(), ErrOverrun) {
			t.Fatalf("ReadUE = %d, err %v", got, r.Err())
		}
	})
	t.Run("long prefix", func(t *testing.T) {
		r := NewReader(make([]byte, 16))
		r.ReadUE()
		if !errors.Is(r.Err(), ErrBadCode) {
			t.Fatalf("Err = %v, want ErrBadCode", r.Err())
		}
	})
	t.Run("wide field", func(t *testing.T) {
		r := NewReader(make([]byte, 8))
		r.ReadBits(maxNumBitRead + 1)
		if !errors.Is(r.Err(), ErrFieldTooWide) {
			t.Fatalf("Err = %v, want ErrFieldTooWide", r.Err())
		}
	})
}
