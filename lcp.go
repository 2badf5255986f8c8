package sufr

import (
	"context"
	"encoding/binary"
	"math/bits"

	"golang.org/x/sync/errgroup"
)

type LCPStrategy int

const (
	// LCPDirect compares neighbours inside each band, then recomputes band boundaries.
	LCPDirect LCPStrategy = iota
	// LCPKasai uses the rank-based linear algorithm; needs an extra n-entry rank array.
	LCPKasai
)

// Merged is the fourth construction stage: the final suffix and LCP arrays.
type Merged[T offset] struct {
	pre        *Preprocessed
	SA         []T
	LCP        []T
	Partitions int
}

// commonPrefix counts the bytes shared by the suffixes at a and b.
func commonPrefix(text []byte, a, b int) int {
	return prefixLen(text[a:], text[b:])
}

func prefixLen(x, y []byte) int {
	n := min(len(x), len(y))
	i := 0
	for ; i+8 <= n; i += 8 {
		if d := binary.LittleEndian.Uint64(x[i:]) ^ binary.LittleEndian.Uint64(y[i:]); d != 0 {
			return i + bits.TrailingZeros64(d)/8
		}
	}
	for i < n && x[i] == y[i] {
		i++
	}
	return i
}

func mergeLCP[T offset](ctx context.Context, s *Sorted[T], workers int, strategy LCPStrategy, progress ProgressFunc) (*Merged[T], error) {
	text := s.pre.text()
	sa := s.SA
	m := &Merged[T]{pre: s.pre, SA: sa, Partitions: len(s.Bands)}

	if strategy == LCPKasai {
		lcp, err := kasaiLCP(ctx, text, sa)
		if err != nil {
			return nil, err
		}
		m.LCP = lcp
		if progress != nil {
			progress(StageMerged, 1, 1)
		}
		return m, nil
	}

	lcp := make([]T, len(sa))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for _, band := range s.Bands {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			end := band.Start + len(band.Offsets)
			for j := band.Start + 1; j < end; j++ {
				lcp[j] = T(commonPrefix(text, int(sa[j-1]), int(sa[j])))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Bands are contiguous in sa, so the predecessor of a band's first
	// entry is the last entry of the closest non-empty band before it.
	for i, band := range s.Bands {
		if band.Start > 0 && len(band.Offsets) > 0 {
			lcp[band.Start] = T(commonPrefix(text, int(sa[band.Start-1]), int(sa[band.Start])))
		}
		if progress != nil {
			progress(StageMerged, i+1, len(s.Bands))
		}
	}
	lcp[0] = 0
	m.LCP = lcp
	return m, nil
}

// Kasai's algorithm, O(n). lcp[r] is the shared prefix of the suffixes of
// rank r-1 and r.
func kasaiLCP[T offset](ctx context.Context, text []byte, sa []T) ([]T, error) {
	rank := make([]T, len(sa))
	for i := range sa {
		rank[sa[i]] = T(i)
	}

	lcp := make([]T, len(sa))
	l := 0
	for i := range sa {
		if i%(1<<20) == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		r := int(rank[i])
		if r == 0 {
			l = 0
			continue
		}
		j := int(sa[r-1])
		for i+l < len(text) && j+l < len(text) && text[i+l] == text[j+l] {
			l++
		}
		lcp[r] = T(l)
		if l > 0 {
			l--
		}
	}
	return lcp, nil
}
