package field

import (
	"bytes"
	"math/rand"
	"testing"
)

// FuzzReadField checks that arbitrary files never panic the reader and that
// every field it accepts survives a rewrite.
func FuzzReadField(f *testing.F) {
	rng := rand.New(rand.NewSource(9))
	for _, dims := range [][3]int{{16, 16, 8}, {40, 24, 16}, {8, 8, 4}} {
		var buf bytes.Buffer
		w, _ := NewWriter(&buf)
		w.WriteField(randomField(rng, dims[0], dims[1], dims[2], 1))
		f.Add(buf.Bytes())
	}
	f.Add([]byte("GMEF\x01\x00\x00\x00"))

	f.Fuzz(func(t *testing.T, data []byte) {
		r, err := NewReader(bytes.NewReader(data))
		if err != nil {
			return
		}
		for i := 0; i < 4; i++ {
			got, err := r.ReadField()
			if err != nil {
				return
			}
			var buf bytes.Buffer
			w, _ := NewWriter(&buf)
			if err := w.WriteField(got); err != nil {
				t.Fatalf("rewriting accepted field: %v", err)
			}
			again, err := mustReader(t, &buf).ReadField()
			if err != nil {
				t.Fatalf("reading rewritten field: %v", err)
			}
			for j := range got.Blocks {
				if again.Blocks[j] != got.Blocks[j] {
					t.Fatalf("block %d changed on rewrite: %+v -> %+v", j, got.Blocks[j], again.Blocks[j])
				}
			}
		}
	})
}

func mustReader(t *testing.T, buf *bytes.Buffer) *Reader {
	t.Helper()
	r, err := NewReader(buf)
	if err != nil {
		t.Fatal(err)
	}
	return r
}
