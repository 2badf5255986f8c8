package sufr

import (
	"io"

	"golang.org/x/exp/mmap"
)

// ByteSource is random access storage behind an Index: either an in-memory
// buffer or a memory-mapped file paged in lazily by the OS.
type ByteSource interface {
	io.ReaderAt
	io.Closer
	Len() int
	At(i int) byte
}

var (
	_ ByteSource = memSource(nil)
	_ ByteSource = (*mmap.ReaderAt)(nil)
)

type memSource []byte

func (m memSource) Len() int      { return len(m) }
func (m memSource) At(i int) byte { return m[i] }
func (m memSource) Close() error  { return nil }

func (m memSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m)) {
		return 0, io.EOF
	}
	n := copy(p, m[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// region is a window [off, off+n) of a source. b aliases the window when
// the source is memory resident.
type region struct {
	src ByteSource
	b   []byte
	off int64
	n   int
}

func newRegion(src ByteSource, off int64, n int) region {
	r := region{src: src, off: off, n: n}
	if m, ok := src.(memSource); ok {
		r.b = m[off : off+int64(n)]
	}
	return r
}

func (r region) at(i int) byte {
	if r.b != nil {
		return r.b[i]
	}
	return r.src.At(int(r.off) + i)
}

// slice returns bytes [i, min(i+length, r.n)). Memory-resident regions return
// an alias; mapped ones copy into buf, growing it when needed.
func (r region) slice(i, length int, buf []byte) []byte {
	end := min(i+length, r.n)
	if i >= end {
		return nil
	}
	if r.b != nil {
		return r.b[i:end]
	}
	if cap(buf) < end-i {
		buf = make([]byte, end-i)
	}
	buf = buf[:end-i]
	// Bounds were validated at open; a mapped ReadAt inside them cannot fail.
	_, _ = r.src.ReadAt(buf, r.off+int64(i))
	return buf
}

// intArray is a read-only view of suffix or LCP entries.
type intArray interface {
	Len() int
	At(i int) uint64
}

type sliceArray[T offset] []T

func (s sliceArray[T]) Len() int        { return len(s) }
func (s sliceArray[T]) At(i int) uint64 { return uint64(s[i]) }

// encodedArray decodes fixed-width little-endian entries from a region.
type encodedArray struct {
	r     region
	width int
	n     int
}

func (e encodedArray) Len() int { return e.n }

func (e encodedArray) At(i int) uint64 {
	p := i * e.width
	var v uint64
	if e.r.b != nil {
		for k := e.width - 1; k >= 0; k-- {
			v = v<<8 | uint64(e.r.b[p+k])
		}
		return v
	}
	for k := e.width - 1; k >= 0; k-- {
		v = v<<8 | uint64(e.r.at(p+k))
	}
	return v
}
