package sufr

import (
	"sort"

	"github.com/viniciusth/rmq"
)

// recordOf returns the index into Records of the record holding the given
// original offset, or -1 when it precedes every record.
func (x *Index) recordOf(off int) int {
	return sort.Search(len(x.Records), func(i int) bool { return x.Records[i].Start > off }) - 1
}

// Builds the prev array for the record listing problem.
// For each rank i, prev[i] is the previous rank whose suffix lies in the same
// record, or -1 if there is none.
func (x *Index) initListing() {
	x.listOnce.Do(func() {
		n := x.Len()
		x.recordIdx = make([]int, n)
		x.prev = make([]int, n)
		last := make([]int, len(x.Records)+1)
		for i := range last {
			last[i] = -1
		}
		for i := range n {
			// Shift by one so offsets before the first record share slot 0.
			rec := x.recordOf(x.Suffix(i)+x.Trimmed()) + 1
			x.recordIdx[i] = rec - 1
			x.prev[i] = last[rec]
			last[rec] = i
		}
		x.prevRMQ = rmq.NewRMQHybridNaive(x.prev)
	})
}

// RecordMatches returns up to k distinct records containing pattern, as
// indexes into Records, without visiting every occurrence. The prev array
// and its RMQ are built on first use and take O(n) memory.
func (x *Index) RecordMatches(pattern []byte, k int) []int {
	if k <= 0 || len(x.Records) == 0 {
		return nil
	}
	r := x.Search(pattern)
	if r.Empty() {
		return nil
	}
	x.initListing()
	return x.listRecords(r.Lo, r.Lo, r.Hi-1, k, make([]int, 0, min(k, len(x.Records))))
}

// RecordNames is RecordMatches returning record names.
func (x *Index) RecordNames(pattern []byte, k int) []string {
	idx := x.RecordMatches(pattern, k)
	if idx == nil {
		return nil
	}
	names := make([]string, len(idx))
	for i, j := range idx {
		names[i] = x.Records[j].Name
	}
	return names
}

func (x *Index) listRecords(base, l, r, k int, out []int) []int {
	if k <= len(out) || l > r {
		return out
	}

	// The leftmost occurrence of a record in [base, r] has prev < base, and
	// it is the minimum of prev over any subrange containing it.
	p := x.prevRMQ.Query(l, r)
	if x.prev[p] >= base {
		return out
	}
	if rec := x.recordIdx[p]; rec >= 0 {
		out = append(out, rec)
	}
	out = x.listRecords(base, l, p-1, k, out)
	return x.listRecords(base, p+1, r, k, out)
}
