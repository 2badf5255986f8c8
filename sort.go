package sufr

import (
	"bytes"
	"cmp"
	"context"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Sorted is the third construction stage: every band of the underlying
// Partitioned is in suffix order, so SA as a whole is the suffix array.
type Sorted[T offset] struct {
	*Partitioned[T]
}

// prefix8 packs up to 8 leading bytes of the suffix at i, big-endian,
// zero padded. Unequal prefixes order their suffixes.
func prefix8(text []byte, i int) uint64 {
	var v uint64
	end := min(i+8, len(text))
	for _, c := range text[i:end] {
		v = v<<8 | uint64(c)
	}
	return v << (8 * (8 - uint(end-i)))
}

// compareSuffixes orders the suffixes at a and b of the sentinel-free text.
// A suffix reaching the end first sorts first, so distinct offsets never
// compare equal.
func compareSuffixes(text []byte, a, b int) int {
	if pa, pb := prefix8(text, a), prefix8(text, b); pa != pb {
		return cmp.Compare(pa, pb)
	}
	return bytes.Compare(text[a:], text[b:])
}

func sortSuffixes[T offset](text []byte, offsets []T) {
	slices.SortFunc(offsets, func(a, b T) int {
		return compareSuffixes(text, int(a), int(b))
	})
}

func sortPartitions[T offset](ctx context.Context, p *Partitioned[T], workers int, progress ProgressFunc) (*Sorted[T], error) {
	text := p.pre.text()
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for _, band := range p.Bands {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sortSuffixes(text, band.Offsets)
			if progress != nil {
				progress(StageSorted, int(done.Add(1)), len(p.Bands))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Sorted[T]{p}, nil
}
