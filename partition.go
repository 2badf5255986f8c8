package sufr

import (
	"bytes"
	"context"
	"math/rand/v2"
	"slices"
	"sort"

	"golang.org/x/sync/errgroup"
)

const (
	samplesPerBand = 64
	maxKeyLen      = 64
	sampleSeed     = 0x5eed5eed
)

type offset interface {
	~uint32 | ~uint64
}

// Partition is a lexicographic band of suffixes. Every suffix S in the band
// satisfies Lower <= S < Upper; a nil bound is unbounded.
type Partition[T offset] struct {
	Index   int
	Start   int
	Lower   []byte
	Upper   []byte
	Offsets []T
}

// Partitioned is the second construction stage. SA holds every offset
// grouped by band; each band's Offsets is a sub-slice of SA.
type Partitioned[T offset] struct {
	pre    *Preprocessed
	SA     []T
	Bands  []Partition[T]
	KeyLen int
}

// chooseSplitters samples leading keys of suffixes and returns strictly
// increasing cut keys for at most parts bands.
func chooseSplitters(text []byte, parts int) ([][]byte, int) {
	if parts <= 1 || len(text) == 0 {
		return nil, 0
	}
	s := min(len(text), parts*samplesPerBand)
	offsets := make([]int, s)
	if s == len(text) {
		for i := range offsets {
			offsets[i] = i
		}
	} else {
		rng := rand.New(rand.NewPCG(sampleSeed, uint64(len(text))))
		for i := range offsets {
			offsets[i] = rng.IntN(len(text))
		}
	}

	keys := make([][]byte, s)
	k := 1
	for {
		for i, o := range offsets {
			keys[i] = text[o:min(o+k, len(text))]
		}
		slices.SortFunc(keys, bytes.Compare)
		distinct := 1
		for i := 1; i < len(keys); i++ {
			if !bytes.Equal(keys[i-1], keys[i]) {
				distinct++
			}
		}
		if distinct >= parts || k >= maxKeyLen {
			break
		}
		k *= 2
	}

	var splitters [][]byte
	for j := 1; j < parts; j++ {
		key := keys[j*s/parts]
		if len(key) == 0 {
			continue
		}
		if n := len(splitters); n > 0 && bytes.Compare(splitters[n-1], key) >= 0 {
			continue
		}
		splitters = append(splitters, key)
	}
	return splitters, k
}

// compareKey orders the suffix at i against a cut key. A suffix having key
// as a prefix compares equal, i.e. it belongs to the band the key opens.
func compareKey(text []byte, i int, key []byte) int {
	s := text[i:]
	if len(s) > len(key) {
		s = s[:len(key)]
	}
	return bytes.Compare(s, key)
}

func bandOf(text []byte, i int, splitters [][]byte) int {
	return sort.Search(len(splitters), func(j int) bool {
		return compareKey(text, i, splitters[j]) < 0
	})
}

func partition[T offset](ctx context.Context, pre *Preprocessed, parts, workers int) (*Partitioned[T], error) {
	n := pre.Len()
	text := pre.text()
	splitters, k := chooseSplitters(text, parts)
	sa := make([]T, n)

	if len(splitters) == 0 {
		for i := range sa {
			sa[i] = T(i)
		}
		return &Partitioned[T]{
			pre:    pre,
			SA:     sa,
			Bands:  []Partition[T]{{Offsets: sa}},
			KeyLen: k,
		}, nil
	}

	bands := len(splitters) + 1
	chunks := min(n, max(1, workers)*4)
	chunkLen := (n + chunks - 1) / chunks
	counts := make([][]int, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cnt := make([]int, bands)
			for i := c * chunkLen; i < min(n, (c+1)*chunkLen); i++ {
				cnt[bandOf(text, i, splitters)]++
			}
			counts[c] = cnt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Each chunk writes its members of band b starting at pos[c][b].
	starts := make([]int, bands+1)
	pos := make([][]int, chunks)
	for c := range pos {
		pos[c] = make([]int, bands)
	}
	total := 0
	for b := range bands {
		starts[b] = total
		for c := range chunks {
			pos[c][b] = total
			total += counts[c][b]
		}
	}
	starts[bands] = total

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := pos[c]
			for i := c * chunkLen; i < min(n, (c+1)*chunkLen); i++ {
				b := bandOf(text, i, splitters)
				sa[p[b]] = T(i)
				p[b]++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Partition[T], bands)
	for b := range out {
		out[b] = Partition[T]{
			Index:   b,
			Start:   starts[b],
			Offsets: sa[starts[b]:starts[b+1]],
		}
		if b > 0 {
			out[b].Lower = splitters[b-1]
		}
		if b < len(splitters) {
			out[b].Upper = splitters[b]
		}
	}
	return &Partitioned[T]{pre: pre, SA: sa, Bands: out, KeyLen: k}, nil
}
