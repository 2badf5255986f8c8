package sufr

import (
	"context"
	"runtime"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/sync/errgroup"
)

const pageSize = 4096

type CheckOptions struct {
	Workers int
}

// Check verifies that the suffix array is a permutation of [0, n) in strictly
// increasing suffix order and that every LCP entry matches a recomputation
// from the sequence. It returns the *ValidationError with the smallest rank,
// so repeated runs over the same index report the same violation.
func Check(ctx context.Context, x *Index, opts CheckOptions) error {
	n := x.Len()
	for _, a := range []intArray{x.sa, x.lcp} {
		if a.Len() != n {
			return &ValidationError{Kind: ViolationLength, Expected: uint64(n), Actual: uint64(a.Len())}
		}
	}

	seen := roaring64.New()
	for i := range n {
		if i%(1<<20) == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		v := x.sa.At(i)
		if v >= uint64(n) {
			return &ValidationError{Index: i, Kind: ViolationRange, Actual: v}
		}
		if !seen.CheckedAdd(v) {
			return &ValidationError{Index: i, Kind: ViolationDuplicate, Actual: v}
		}
	}
	if v := x.lcp.At(0); v != 0 {
		return &ValidationError{Index: 0, Kind: ViolationLCP, Expected: 0, Actual: v}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	chunks := min(n-1, workers*4)
	if chunks <= 0 {
		return nil
	}
	chunkLen := (n - 1 + chunks - 1) / chunks
	found := make([]*ValidationError, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := range chunks {
		g.Go(func() error {
			lo, hi := 1+c*chunkLen, min(n, 1+(c+1)*chunkLen)
			ba, bb := make([]byte, pageSize), make([]byte, pageSize)
			for i := lo; i < hi; i++ {
				if (i-lo)%(1<<16) == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				if ve := x.checkPair(i, ba, bb); ve != nil {
					found[c] = ve
					return nil
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, ve := range found {
		if ve != nil {
			return ve
		}
	}
	return nil
}

// checkPair validates order and LCP between ranks i-1 and i.
func (x *Index) checkPair(i int, ba, bb []byte) *ValidationError {
	a, b := x.Suffix(i-1), x.Suffix(i)
	l := x.suffixLCP(a, b, ba, bb)
	end := x.text.n
	switch {
	case a+l == end:
		// a reached the sentinel first
	case b+l == end, x.text.at(a+l) > x.text.at(b+l):
		return &ValidationError{Index: i, Kind: ViolationOrder, Expected: uint64(a), Actual: uint64(b)}
	}
	if stored := x.LCP(i); stored != l {
		return &ValidationError{Index: i, Kind: ViolationLCP, Expected: uint64(l), Actual: uint64(stored)}
	}
	return nil
}

// suffixLCP is commonPrefix over the index text, paging through mapped
// storage when it is not resident.
func (x *Index) suffixLCP(a, b int, ba, bb []byte) int {
	if x.text.b != nil {
		return commonPrefix(x.text.b, a, b)
	}
	l := 0
	for {
		sa := x.text.slice(a+l, pageSize, ba)
		sb := x.text.slice(b+l, pageSize, bb)
		m := min(len(sa), len(sb))
		k := prefixLen(sa[:m], sb[:m])
		l += k
		if k < m || m < pageSize {
			return l
		}
	}
}
