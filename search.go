package sufr

import (
	"fmt"
	"sort"

	"github.com/viniciusth/rmq"
)

// Range is a half-open interval of suffix array ranks.
type Range struct {
	Lo, Hi int
}

func (r Range) Len() int { return r.Hi - r.Lo }

func (r Range) Empty() bool { return r.Hi <= r.Lo }

// Location is one occurrence of a pattern. Offset is in the coordinates of
// the original, untrimmed input.
type Location struct {
	Rank         int
	Offset       int
	Record       string
	RecordOffset int
}

// normalize maps pattern through the index alphabet. A symbol outside the
// alphabet cannot occur in the sequence.
func (x *Index) normalize(pattern []byte) ([]byte, bool) {
	q := make([]byte, len(pattern))
	for i, c := range pattern {
		if !x.alphabet.valid[c] {
			return nil, false
		}
		q[i] = x.alphabet.table[c]
	}
	return q, true
}

// comparePattern compares p against the suffix at s, skipping the first skip
// bytes already known to match. It returns the sign of p versus the suffix,
// where a suffix having p as a prefix counts as equal, and the number of
// matched bytes.
func (x *Index) comparePattern(p []byte, s, skip int, buf []byte) (int, int) {
	t := x.text.slice(s+skip, len(p)-skip, buf)
	i := 0
	for i < len(t) && t[i] == p[skip+i] {
		i++
	}
	m := skip + i
	switch {
	case m == len(p):
		return 0, m
	case i == len(t):
		return 1, m
	case p[m] < t[i]:
		return -1, m
	default:
		return 1, m
	}
}

// Search returns the ranks of all suffixes that start with pattern. The
// result is empty when pattern does not occur; an empty pattern matches
// every suffix.
func (x *Index) Search(pattern []byte) Range {
	n := x.Len()
	if len(pattern) == 0 {
		return Range{0, n}
	}
	p, ok := x.normalize(pattern)
	if !ok {
		return Range{}
	}
	if x.memory {
		return x.searchLCP(p)
	}
	lo := x.bound(p, true)
	return Range{lo, x.bound(p, false)}
}

// bound binary-searches the first rank whose suffix is >= p (lower) or
// > p (upper), where a suffix starting with p equals p. Bytes shared with
// both bracketing suffixes are never compared twice.
func (x *Index) bound(p []byte, lower bool) int {
	buf := make([]byte, len(p))
	l, r := -1, x.Len()
	ml, mr := 0, 0
	for r-l > 1 {
		m := int(uint(l+r) >> 1)
		c, matched := x.comparePattern(p, x.Suffix(m), min(ml, mr), buf)
		if c < 0 || (lower && c == 0) {
			r, mr = m, matched
		} else {
			l, ml = m, matched
		}
	}
	return r
}

func (x *Index) initRMQ() {
	x.rmqOnce.Do(func() {
		x.lcpInts = make([]int, x.lcp.Len())
		for i := range x.lcpInts {
			x.lcpInts[i] = int(x.lcp.At(i))
		}
		x.lcpRMQ = rmq.NewRMQHybridNaive(x.lcpInts)
	})
}

// rangeLCP is the shared prefix length of the suffixes ranked a and b.
func (x *Index) rangeLCP(a, b int) int {
	if a > b {
		a, b = b, a
	}
	return x.lcpInts[x.lcpRMQ.Query(a+1, b)]
}

// searchLCP locates the lower bound remembering the best matched suffix so
// far; a probe sharing fewer bytes with it than were matched is decided by
// the LCP array alone. The upper bound is the first rank whose LCP range
// minimum drops below len(p).
func (x *Index) searchLCP(p []byte) Range {
	x.initRMQ()
	n := x.Len()
	bestIdx, best := -1, 0

	lo := sort.Search(n, func(i int) bool {
		if bestIdx != -1 {
			if l := x.rangeLCP(bestIdx, i); l < best {
				// i diverges from p where bestIdx still matches.
				return i > bestIdx
			}
		}
		c, m := x.comparePattern(p, x.Suffix(i), best, nil)
		bestIdx, best = i, m
		return c <= 0
	})
	if lo == n {
		return Range{n, n}
	}
	if c, _ := x.comparePattern(p, x.Suffix(lo), 0, nil); c != 0 {
		return Range{lo, lo}
	}
	hi := sort.Search(n-lo-1, func(i int) bool {
		return x.rangeLCP(lo, lo+1+i) < len(p)
	})
	return Range{lo, lo + 1 + hi}
}

// Count returns the number of occurrences of pattern.
func (x *Index) Count(pattern []byte) int {
	return x.Search(pattern).Len()
}

// Locate lists every occurrence of pattern in rank order.
func (x *Index) Locate(pattern []byte) []Location {
	r := x.Search(pattern)
	if r.Empty() {
		return nil
	}
	locs := make([]Location, 0, r.Len())
	for rank := r.Lo; rank < r.Hi; rank++ {
		off := x.Suffix(rank) + x.Trimmed()
		loc := Location{Rank: rank, Offset: off, RecordOffset: off}
		if i := x.recordOf(off); i >= 0 {
			loc.Record = x.Records[i].Name
			loc.RecordOffset = off - x.Records[i].Start
		}
		locs = append(locs, loc)
	}
	return locs
}

// Extract returns the sequence in [start, end) of the original, untrimmed
// coordinates, whose length is Trimmed()+Len(). Trimmed positions decode to
// the alphabet's ignore symbol and the last position is the sentinel.
func (x *Index) Extract(start, end int) ([]byte, error) {
	t, n := x.Trimmed(), x.Len()
	if start < 0 || end < start || end > t+n {
		return nil, fmt.Errorf("%w: [%d, %d) is outside [0, %d)", ErrOutOfRange, start, end, t+n)
	}
	out := make([]byte, end-start)
	i := start
	for ; i < end && i < t; i++ {
		out[i-start] = x.alphabet.Ignore
	}
	if i == end {
		return out, nil
	}
	s, e := i-t, end-t
	if textEnd := min(e, n-1); s < textEnd {
		copy(out[i-start:], x.text.slice(s, textEnd-s, nil))
	}
	if e == n {
		out[len(out)-1] = Sentinel
	}
	return out, nil
}

// Context is an occurrence together with the sequence around it, clamped to
// the record holding it. Seq covers [Start, End) in original coordinates and
// the match begins at Seq[SuffixOffset].
type Context struct {
	Location
	Start, End   int
	SuffixOffset int
	Seq          []byte
}

// recordBounds returns the original-coordinate extent of the record holding
// off. The last record ends before the sentinel.
func (x *Index) recordBounds(off int) (start, end int) {
	end = x.Trimmed() + x.Len() - 1
	i := x.recordOf(off)
	if i >= 0 {
		start = x.Records[i].Start
	}
	if i+1 < len(x.Records) {
		end = x.Records[i+1].Start
	}
	return start, end
}

// ExtractContext locates pattern and returns, for each occurrence in rank
// order, up to prefix symbols before it and suffix symbols from its start,
// never crossing its record. A negative suffix extends to the end of the
// record.
func (x *Index) ExtractContext(pattern []byte, prefix, suffix int) ([]Context, error) {
	if prefix < 0 {
		return nil, fmt.Errorf("%w: negative prefix length %d", ErrOutOfRange, prefix)
	}
	locs := x.Locate(pattern)
	if locs == nil {
		return nil, nil
	}
	out := make([]Context, 0, len(locs))
	for _, loc := range locs {
		lo, hi := x.recordBounds(loc.Offset)
		c := Context{Location: loc, Start: max(lo, loc.Offset-prefix), End: hi}
		if suffix >= 0 {
			c.End = min(hi, loc.Offset+suffix)
		}
		c.SuffixOffset = loc.Offset - c.Start
		seq, err := x.Extract(c.Start, c.End)
		if err != nil {
			return nil, err
		}
		c.Seq = seq
		out = append(out, c)
	}
	return out, nil
}
