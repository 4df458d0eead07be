package pool

import (
	"sync"
	"testing"
)

func TestBucketIndex(t *testing.T) {
	tests := []struct {
		size       int
		wantBucket int
	}{
		{1, 0},
		{256, 0},
		{257, 1},
		{1024, 1},
		{4097, 3},
		{16384, 3},
		{65537, 5},
		{262145, 6},
		{2 * Size1M, 6},
	}
	for _, tt := range tests {
		if idx := bucketIndex(tt.size); idx != tt.wantBucket {
			t.Errorf("bucketIndex(%d) = %d, want %d", tt.size, idx, tt.wantBucket)
		}
	}
}

func TestGetLengthAndCapacity(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		minCap int
	}{
		{"zero", 0, Size256},
		{"small", 100, Size256},
		{"block 16x16", 256, Size256},
		{"block 128x128", 128 * 128, Size16K},
		{"1080p luma", 1920 * 1080, 1920 * 1080},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := GetUint16(tt.size)
			if len(u) != tt.size || cap(u) < tt.minCap {
				t.Errorf("GetUint16(%d): len %d cap %d", tt.size, len(u), cap(u))
			}
			PutUint16(u)

			s := GetInt16(tt.size)
			if len(s) != tt.size || cap(s) < tt.minCap {
				t.Errorf("GetInt16(%d): len %d cap %d", tt.size, len(s), cap(s))
			}
			PutInt16(s)

			b := Get(tt.size)
			if len(b) != tt.size || cap(b) < tt.minCap {
				t.Errorf("Get(%d): len %d cap %d", tt.size, len(b), cap(b))
			}
			Put(b)
		})
	}
}

func TestPutSmallAndNil(t *testing.T) {
	PutUint16(make([]uint16, 10))
	PutInt16(nil)
	Put(nil)
	if s := GetUint16(Size256); len(s) != Size256 {
		t.Fatalf("GetUint16 after small Put: len = %d", len(s))
	}
}

func TestConcurrency(t *testing.T) {
	const goroutines = 16
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				for _, size := range []int{128, 2048, 16384, 70000} {
					s := GetUint16(size)
					for j := range s {
						s[j] = uint16(j)
					}
					PutUint16(s)
				}
			}
		}()
	}
	wg.Wait()
}

func BenchmarkGetUint16(b *testing.B) {
	for i := 0; i < b.N; i++ {
		PutUint16(GetUint16(128 * 128))
	}
}
