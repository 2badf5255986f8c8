package sufr

import (
	"fmt"
	"sync"

	"github.com/viniciusth/rmq"
	"github.com/zeebo/wyhash"
)

// Index is a stored suffix array: the sequence, its suffix and LCP arrays
// and the header describing them. It is never modified after construction
// or loading, so all query methods are safe for concurrent use.
type Index struct {
	Header  Header
	Records []Record

	alphabet *Alphabet
	src      ByteSource
	text     region // sequence without the sentinel
	sa       intArray
	lcp      intArray
	memory   bool

	rmqOnce sync.Once
	lcpInts []int
	lcpRMQ  *rmq.RMQHybridNaive[int]

	listOnce  sync.Once
	recordIdx []int
	prev      []int
	prevRMQ   *rmq.RMQHybridNaive[int]
}

func newIndex[T offset](m *Merged[T]) *Index {
	pre := m.pre
	n := pre.Len()
	h := Header{
		Version:      FormatVersion,
		IntWidth:     intWidth(n),
		Length:       uint64(n),
		AlphabetSize: uint32(pre.Alphabet.Size()),
		Alphabet:     pre.Alphabet.ID,
		Sentinel:     Sentinel,
		Ignore:       pre.Alphabet.Ignore,
		Partitions:   uint32(m.Partitions),
		Trimmed:      uint64(pre.Trimmed),
		NumRecords:   uint64(len(pre.Records)),
		RecordsLen:   uint64(len(appendRecords(nil, pre.Records))),
		Checksum:     wyhash.Hash(pre.Seq, 0),
	}
	if pre.Trimmed > 0 {
		h.Flags |= FlagTrimmed
	}
	if pre.Alphabet.Masked() {
		h.Flags |= FlagSoftMask
	}
	src := memSource(pre.Seq)
	return &Index{
		Header:   h,
		Records:  pre.Records,
		alphabet: pre.Alphabet.unmasked(),
		src:      src,
		text:     newRegion(src, 0, n-1),
		sa:       sliceArray[T](m.SA),
		lcp:      sliceArray[T](m.LCP),
		memory:   true,
	}
}

// Len is the sequence length, sentinel included.
func (x *Index) Len() int { return int(x.Header.Length) }

func (x *Index) Alphabet() *Alphabet { return x.alphabet }

// Trimmed is the length of the leading ignore-run removed before indexing.
func (x *Index) Trimmed() int { return int(x.Header.Trimmed) }

func (x *Index) Partitions() int { return int(x.Header.Partitions) }

// Suffix returns SA[rank], the offset of the suffix with the given rank.
func (x *Index) Suffix(rank int) int { return int(x.sa.At(rank)) }

// LCP returns LCP[rank].
func (x *Index) LCP(rank int) int { return int(x.lcp.At(rank)) }

// Memory reports whether every array is resident in memory.
func (x *Index) Memory() bool { return x.memory }

// Sequence returns the indexed sequence with its sentinel. Memory-resident
// indexes return their internal buffer, which must not be modified.
func (x *Index) Sequence() []byte {
	if x.memory {
		if m, ok := x.src.(memSource); ok && x.text.off == 0 {
			return m[:x.Len()]
		}
	}
	seq := make([]byte, x.Len())
	copy(seq, x.text.slice(0, x.text.n, nil))
	seq[len(seq)-1] = Sentinel
	return seq
}

func (x *Index) SuffixArray() []uint64 { return materialize(x.sa) }

func (x *Index) LCPArray() []uint64 { return materialize(x.lcp) }

func materialize(a intArray) []uint64 {
	out := make([]uint64, a.Len())
	for i := range out {
		out[i] = a.At(i)
	}
	return out
}

// Matches reports whether pre is the sequence this index was built from.
func (x *Index) Matches(pre *Preprocessed) error {
	switch {
	case uint64(pre.Len()) != x.Header.Length:
		return fmt.Errorf("%w: sequence has length %d, index %d", ErrCorruptIndex, pre.Len(), x.Header.Length)
	case uint64(pre.Trimmed) != x.Header.Trimmed:
		return fmt.Errorf("%w: sequence trims %d leading symbols, index %d", ErrCorruptIndex, pre.Trimmed, x.Header.Trimmed)
	case wyhash.Hash(pre.Seq, 0) != x.Header.Checksum:
		return fmt.Errorf("%w: sequence checksum differs from the index", ErrCorruptIndex)
	}
	return nil
}

func (x *Index) Close() error {
	if x.src == nil {
		return nil
	}
	return x.src.Close()
}
