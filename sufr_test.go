package sufr

import (
	"bytes"
	"context"
	"math/rand/v2"
	"slices"
	"testing"
)

// naiveArrays sorts every suffix of seq (sentinel included) by direct
// comparison and computes neighbour LCPs.
func naiveArrays(seq []byte) (sa, lcp []uint64) {
	text := seq[:len(seq)-1]
	sa = make([]uint64, len(seq))
	for i := range sa {
		sa[i] = uint64(i)
	}
	slices.SortFunc(sa, func(a, b uint64) int {
		return bytes.Compare(text[a:], text[b:])
	})
	lcp = make([]uint64, len(seq))
	for i := 1; i < len(sa); i++ {
		lcp[i] = uint64(commonPrefix(text, int(sa[i-1]), int(sa[i])))
	}
	return sa, lcp
}

// naiveOccurrences lists, in increasing order, the offsets of text where p
// starts.
func naiveOccurrences(text, p []byte) []int {
	var occ []int
	for i := 0; i+len(p) <= len(text); i++ {
		if bytes.Equal(text[i:i+len(p)], p) {
			occ = append(occ, i)
		}
	}
	return occ
}

func randomDNA(r *rand.Rand, n int, repetitive bool) []byte {
	const dna = "ACGT"
	seq := make([]byte, n)
	if !repetitive {
		for i := range seq {
			seq[i] = dna[r.IntN(4)]
		}
		return seq
	}
	unit := make([]byte, 1+r.IntN(7))
	for i := range unit {
		unit[i] = dna[r.IntN(4)]
	}
	for i := range seq {
		seq[i] = unit[i%len(unit)]
		if r.IntN(500) == 0 {
			seq[i] = dna[r.IntN(4)]
		}
	}
	return seq
}

func mustBuild(t testing.TB, b *Builder) *Index {
	t.Helper()
	x, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return x
}
