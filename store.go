package sufr

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/exp/mmap"
)

const writeBufSize = 1 << 20

// WriteTo serializes the index: header, sequence, suffix array, LCP array,
// record table.
func (x *Index) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriterSize(cw, writeBufSize)

	hdr, err := x.Header.MarshalBinary()
	if err != nil {
		return cw.n, err
	}
	if _, err := bw.Write(hdr); err != nil {
		return cw.n, err
	}

	var buf []byte
	for off := 0; off < x.text.n; off += writeBufSize {
		buf = x.text.slice(off, writeBufSize, buf)
		if _, err := bw.Write(buf); err != nil {
			return cw.n, err
		}
	}
	if err := bw.WriteByte(Sentinel); err != nil {
		return cw.n, err
	}

	width := int(x.Header.IntWidth)
	for _, a := range []intArray{x.sa, x.lcp} {
		if err := writeArray(bw, a, width); err != nil {
			return cw.n, err
		}
	}
	if _, err := bw.Write(appendRecords(nil, x.Records)); err != nil {
		return cw.n, err
	}
	if err := bw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

func writeArray(w io.Writer, a intArray, width int) error {
	buf := make([]byte, 0, 64*1024)
	for i := range a.Len() {
		if width == 4 {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(a.At(i)))
		} else {
			buf = binary.LittleEndian.AppendUint64(buf, a.At(i))
		}
		if len(buf)+width > cap(buf) {
			if _, err := w.Write(buf); err != nil {
				return err
			}
			buf = buf[:0]
		}
	}
	_, err := w.Write(buf)
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// ctxWriter fails the next Write once ctx is done.
type ctxWriter struct {
	ctx context.Context
	w   io.Writer
}

func (cw *ctxWriter) Write(p []byte) (int, error) {
	if err := cw.ctx.Err(); err != nil {
		return 0, err
	}
	return cw.w.Write(p)
}

// Write stores the index at path. Bytes go to a temporary file in the same
// directory that is synced and renamed over path, so a failed or cancelled
// write never leaves a partial artifact behind.
func Write(ctx context.Context, x *Index, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".sufr-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if _, err := x.WriteTo(&ctxWriter{ctx: ctx, w: tmp}); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	_ = syncDir(dir)
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// Open memory-maps a stored index. Arrays are paged in on access, so the
// artifact may be much larger than available memory.
func Open(path string) (*Index, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	x, err := openSource(r, false)
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return x, nil
}

// Load reads a stored index fully into memory.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	x, err := openSource(memSource(data), true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return x, nil
}

// OpenSource opens an index stored in an arbitrary byte source.
func OpenSource(src ByteSource) (*Index, error) {
	_, memory := src.(memSource)
	return openSource(src, memory)
}

func openSource(src ByteSource, memory bool) (*Index, error) {
	if src.Len() < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, shorter than the header", ErrCorruptIndex, src.Len())
	}
	hb := make([]byte, HeaderSize)
	if _, err := src.ReadAt(hb, 0); err != nil {
		return nil, err
	}
	var h Header
	if err := h.UnmarshalBinary(hb); err != nil {
		return nil, err
	}
	if err := h.checkSize(int64(src.Len())); err != nil {
		return nil, err
	}
	alphabet, err := AlphabetByID(h.Alphabet)
	if err != nil {
		return nil, err
	}

	n := int(h.Length)
	if src.At(int(h.seqOffset())+n-1) != Sentinel {
		return nil, fmt.Errorf("%w: sequence does not end with the sentinel", ErrCorruptIndex)
	}
	rb := make([]byte, h.RecordsLen)
	if _, err := src.ReadAt(rb, h.recordsOffset()); err != nil && err != io.EOF {
		return nil, err
	}
	records, err := parseRecords(rb, h.NumRecords)
	if err != nil {
		return nil, err
	}

	width := int(h.IntWidth)
	return &Index{
		Header:   h,
		Records:  records,
		alphabet: alphabet,
		src:      src,
		text:     newRegion(src, h.seqOffset(), n-1),
		sa:       encodedArray{r: newRegion(src, h.saOffset(), n*width), width: width, n: n},
		lcp:      encodedArray{r: newRegion(src, h.lcpOffset(), n*width), width: width, n: n},
		memory:   memory,
	}, nil
}
