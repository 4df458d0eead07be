// Package pool provides bucketed sync.Pool instances for the scratch buffers
// of motion search and frame I/O. Buffers are organized by element-count
// class to minimize waste. Pooled buffers are not cleared.
package pool

import "sync"

// Size classes, in elements.
const (
	Size256  = 256
	Size1K   = 1024
	Size4K   = 4096
	Size16K  = 16384
	Size64K  = 65536
	Size256K = 262144
	Size1M   = 1048576
)

const numBuckets = 7

var sizes = [numBuckets]int{Size256, Size1K, Size4K, Size16K, Size64K, Size256K, Size1M}

// bucketIndex returns the pool index for a given element count.
func bucketIndex(size int) int {
	switch {
	case size <= Size256:
		return 0
	case size <= Size1K:
		return 1
	case size <= Size4K:
		return 2
	case size <= Size16K:
		return 3
	case size <= Size64K:
		return 4
	case size <= Size256K:
		return 5
	default:
		return 6
	}
}

// bucketed is a set of size-class pools for slices of T.
type bucketed[T any] struct {
	pools [numBuckets]sync.Pool
}

func newBucketed[T any]() *bucketed[T] {
	b := &bucketed[T]{}
	for i := range b.pools {
		sz := sizes[i]
		b.pools[i].New = func() any {
			s := make([]T, sz)
			return &s
		}
	}
	return b
}

func (b *bucketed[T]) get(size int) []T {
	sp := b.pools[bucketIndex(size)].Get().(*[]T)
	s := *sp
	if cap(s) < size {
		s = make([]T, size)
		*sp = s
		return s
	}
	return s[:size]
}

func (b *bucketed[T]) put(s []T) {
	c := cap(s)
	if c < Size256 {
		return
	}
	s = s[:c]
	b.pools[bucketIndex(c)].Put(&s)
}

var (
	bytePool   = newBucketed[byte]()
	uint16Pool = newBucketed[uint16]()
	int16Pool  = newBucketed[int16]()
)

// Get returns a byte slice of length size from the pool. The caller must
// call Put when done.
func Get(size int) []byte { return bytePool.get(size) }

// Put returns a byte slice obtained from Get. Slices smaller than Size256
// are dropped.
func Put(b []byte) { bytePool.put(b) }

// GetUint16 returns a sample slice of length size from the pool.
func GetUint16(size int) []uint16 { return uint16Pool.get(size) }

// PutUint16 returns a slice obtained from GetUint16.
func PutUint16(s []uint16) { uint16Pool.put(s) }

// GetInt16 returns a signed slice of length size from the pool.
func GetInt16(size int) []int16 { return int16Pool.get(size) }

// PutInt16 returns a slice obtained from GetInt16.
func PutInt16(s []int16) { int16Pool.put(s) }
