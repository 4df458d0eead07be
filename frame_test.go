package motion

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/deepteams/motion/internal/field"
)

func TestEstimateFrameTranslation(t *testing.T) {
	ref := fillPicture(64, 64, Chroma400, texture)
	cur := shifted(64, 64)
	cur.POC = 5

	for _, workers := range []int{1, 3} {
		opts := DefaultOptions()
		opts.Workers = workers
		f, err := EstimateFrame(context.Background(), cur, [2]RefList{{ref}}, opts)
		if err != nil {
			t.Fatal(err)
		}
		if f.POC != 5 || f.Cols != 4 || f.Rows != 4 {
			t.Fatalf("field poc %d grid %dx%d", f.POC, f.Cols, f.Rows)
		}
		want := MV{X: 12, Y: -8}
		for i, b := range f.Blocks {
			if b.Mode != field.ModeL0 || b.MV[0] != want || b.Dist != 0 {
				t.Errorf("workers %d block %d: %v %v dist %d, want L0 %v dist 0", workers, i, b.Mode, b.MV[0], b.Dist, want)
			}
		}
		if f.Evaluations == 0 {
			t.Error("no evaluations counted")
		}
	}
}

// biPictures returns a flat current picture and two references that deviate
// from it by the same noise with opposite signs. Every uni-prediction costs
// the same at every integer vector; the average of the references is exact.
func biPictures(w, h int) (*Picture, *Picture, *Picture) {
	rng := rand.New(rand.NewSource(7))
	dev := make([]int, w*h)
	for i := range dev {
		dev[i] = 20 * (2*rng.Intn(2) - 1)
	}
	cur := NewPicture(w, h, 8, Chroma400)
	ref0 := NewPicture(w, h, 8, Chroma400)
	ref1 := NewPicture(w, h, 8, Chroma400)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := dev[y*w+x]
			cur.Y.Set(x, y, 128)
			ref0.Y.Set(x, y, uint16(128+d))
			ref1.Y.Set(x, y, uint16(128-d))
		}
	}
	for _, p := range []*Picture{cur, ref0, ref1} {
		p.Extend()
	}
	return cur, ref0, ref1
}

func TestEstimateFrameChoosesBi(t *testing.T) {
	cur, ref0, ref1 := biPictures(32, 32)
	tests := []struct {
		name      string
		disableBi bool
		mode      field.Mode
	}{
		{"bi", false, field.ModeBi},
		{"bi disabled", true, field.ModeL0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Search.Precision = PrecisionInteger
			opts.DisableBi = tt.disableBi
			f, err := EstimateFrame(context.Background(), cur, [2]RefList{{ref0}, {ref1}}, opts)
			if err != nil {
				t.Fatal(err)
			}
			for i, b := range f.Blocks {
				if b.Mode != tt.mode || !b.MV[0].IsZero() || !b.MV[1].IsZero() {
					t.Fatalf("block %d: %+v, want %v with zero vectors", i, b, tt.mode)
				}
				if tt.mode == field.ModeBi && b.Dist != 0 {
					t.Errorf("block %d: bi dist %d", i, b.Dist)
				}
			}
		})
	}
}

func TestEstimateFrameIndependentOfWorkers(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const w, h = 96, 64
	noisy := func(dx, dy int) *Picture {
		return fillPicture(w, h, Chroma400, func(x, y int) uint16 {
			return texture(x+dx, y+dy) + uint16(rng.Intn(9))
		})
	}
	cur := noisy(0, 0)
	refs := [2]RefList{{noisy(2, -1), noisy(-5, 3)}, {noisy(-1, 1)}}

	var want *Field
	for _, workers := range []int{1, 2, 4, 0} {
		opts := DefaultOptions()
		opts.Workers = workers
		opts.BlockSize = 8
		f, err := EstimateFrame(context.Background(), cur, refs, opts)
		if err != nil {
			t.Fatal(err)
		}
		if want == nil {
			want = f
			continue
		}
		if f.Evaluations != want.Evaluations {
			t.Errorf("workers %d: %d evaluations, want %d", workers, f.Evaluations, want.Evaluations)
		}
		for i := range f.Blocks {
			if f.Blocks[i] != want.Blocks[i] {
				t.Fatalf("workers %d block %d: %+v, want %+v", workers, i, f.Blocks[i], want.Blocks[i])
			}
		}
	}
}

func TestEstimateFrameErrors(t *testing.T) {
	cur := NewPicture(32, 32, 8, Chroma400)
	ref := NewPicture(32, 32, 8, Chroma400)
	tests := []struct {
		name string
		cur  *Picture
		refs [2]RefList
		opts func(*Options)
		want error
	}{
		{"no reference", cur, [2]RefList{}, nil, ErrNoReference},
		{"nil reference", cur, [2]RefList{{nil}}, nil, ErrNoReference},
		{"odd size", NewPicture(36, 32, 8, Chroma400), [2]RefList{{NewPicture(36, 32, 8, Chroma400)}}, nil, ErrFrameSize},
		{"reference size", cur, [2]RefList{{ref}, {NewPicture(32, 40, 8, Chroma400)}}, nil, ErrFrameSize},
		{"reference bit depth", cur, [2]RefList{{NewPicture(32, 32, 10, Chroma400)}}, nil, ErrBitDepth},
		{"options bit depth", cur, [2]RefList{{ref}}, func(o *Options) { o.BitDepth = 10 }, ErrBitDepth},
		{"options block size", cur, [2]RefList{{ref}}, func(o *Options) { o.BlockSize = 3 }, ErrBlockSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			if tt.opts != nil {
				tt.opts(opts)
			}
			f, err := EstimateFrame(context.Background(), tt.cur, tt.refs, opts)
			if !errors.Is(err, tt.want) || f != nil {
				t.Fatalf("EstimateFrame = %v, %v; want %v", f, err, tt.want)
			}
		})
	}

	refs := make(RefList, 17)
	for i := range refs {
		refs[i] = ref
	}
	if _, err := EstimateFrame(context.Background(), cur, [2]RefList{refs}, nil); err == nil {
		t.Error("EstimateFrame accepted 17 references")
	}
}

func TestEstimateFrameCancelled(t *testing.T) {
	ref := fillPicture(64, 64, Chroma400, texture)
	cur := shifted(64, 64)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := EstimateFrame(ctx, cur, [2]RefList{{ref}}, nil)
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("EstimateFrame = %v, want context.Canceled", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("EstimateFrame did not return after cancellation")
	}
}

func TestPredictor(t *testing.T) {
	f := field.New(48, 32, 16, 0) // 3x2 blocks
	set := func(bx, by int, mode field.Mode, mv MV) {
		b := f.At(bx, by)
		b.Mode = mode
		b.MV = [2]MV{}
		for l := 0; l < 2; l++ {
			if mode.Uses(l) {
				b.MV[l] = mv
			}
		}
	}
	set(0, 0, field.ModeL0, MV{X: 4, Y: 8})
	set(1, 0, field.ModeL0, MV{X: -12, Y: 2})
	set(2, 0, field.ModeBi, MV{X: 6, Y: -6})
	set(0, 1, field.ModeL1, MV{X: 40, Y: 40})
	set(1, 1, field.ModeL0, MV{X: 1, Y: 1})

	tests := []struct {
		name   string
		bx, by int
		list   int
		want   MV
	}{
		{"first block", 0, 0, 0, MV{}},
		{"first row uses left", 1, 0, 0, MV{X: 4, Y: 8}},
		{"left edge", 0, 1, 0, MV{X: 0, Y: 2}},                // median(0, (4,8), (-12,2))
		{"left not in list", 1, 1, 0, MV{}},                   // median(0, (-12,2), (6,-6))
		{"right edge uses top-left", 2, 1, 0, MV{X: 1, Y: 1}}, // median((1,1), (6,-6), (-12,2))
		{"list 1", 1, 1, 1, MV{X: 6, Y: 0}},                   // median((40,40), 0, (6,-6))
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := predictor(f, tt.bx, tt.by, tt.list); got != tt.want {
				t.Errorf("predictor(%d,%d,L%d) = %v, want %v", tt.bx, tt.by, tt.list, got, tt.want)
			}
		})
	}
}

func TestRowSync(t *testing.T) {
	rs := newRowSync(2)
	var wg sync.WaitGroup
	var seen int32
	wg.Add(1)
	go func() {
		defer wg.Done()
		rs.waitFor(0, 3)
		seen = rs.rows[0].done.Load()
	}()
	for i := int32(1); i <= 3; i++ {
		time.Sleep(time.Millisecond)
		rs.signal(0, i)
	}
	wg.Wait()
	if seen < 3 {
		t.Fatalf("waitFor returned after %d blocks", seen)
	}
	rs.waitFor(1, 0)
}

func BenchmarkEstimateFrame(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	noisy := func(dx, dy int) *Picture {
		return fillPicture(320, 192, Chroma400, func(x, y int) uint16 {
			return texture(x+dx, y+dy) + uint16(rng.Intn(5))
		})
	}
	cur := noisy(0, 0)
	refs := [2]RefList{{noisy(3, -2)}, {noisy(-2, 1)}}
	opts := DefaultOptions()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := EstimateFrame(context.Background(), cur, refs, opts); err != nil {
			b.Fatal(err)
		}
	}
}
