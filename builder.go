package sufr

import (
	"context"
	"math"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ledgerwatch/log/v3"
)

const DefaultPartitions = 16

// Stage names the construction state machine:
// Preprocessed -> Partitioned -> Sorted -> Merged -> Stored.
type Stage int

const (
	StagePreprocessed Stage = iota
	StagePartitioned
	StageSorted
	StageMerged
	StageStored
)

func (s Stage) String() string {
	switch s {
	case StagePreprocessed:
		return "preprocessed"
	case StagePartitioned:
		return "partitioned"
	case StageSorted:
		return "sorted"
	case StageMerged:
		return "merged"
	case StageStored:
		return "stored"
	default:
		return "unknown"
	}
}

// ProgressFunc is called as units of a stage complete. It may be called
// concurrently from worker goroutines.
type ProgressFunc func(stage Stage, done, total int)

// Concurrency bounds a build. Workers caps running goroutines; Partitions is
// the desired number of lexicographic bands, which only affects speed.
type Concurrency struct {
	Workers    int
	Partitions int
}

func (c Concurrency) normalize() Concurrency {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Partitions <= 0 {
		c.Partitions = DefaultPartitions
	}
	return c
}

type Builder struct {
	input    Input
	pre      PreprocessOptions
	conc     Concurrency
	lcp      LCPStrategy
	check    bool
	wide     bool
	logger   log.Logger
	progress ProgressFunc
}

func NewBuilder(in Input) *Builder {
	return &Builder{
		input:  in,
		pre:    PreprocessOptions{Alphabet: DNA},
		logger: log.Root(),
	}
}

func (b *Builder) Alphabet(a *Alphabet) *Builder {
	b.pre.Alphabet = a
	return b
}

// Removes the leading run of the alphabet's ignore symbol before indexing.
// Reported positions stay in the coordinates of the untrimmed input.
func (b *Builder) TrimLeadingIgnore() *Builder {
	b.pre.TrimLeadingIgnore = true
	return b
}

// Treats lowercase symbols as soft-masked: they are indexed as the ignore
// symbol and never match a pattern.
func (b *Builder) SoftMask() *Builder {
	b.pre.SoftMask = true
	return b
}

func (b *Builder) Concurrency(c Concurrency) *Builder {
	b.conc = c
	return b
}

func (b *Builder) Workers(n int) *Builder {
	b.conc.Workers = n
	return b
}

func (b *Builder) Partitions(n int) *Builder {
	b.conc.Partitions = n
	return b
}

// Computes the LCP array with Kasai's algorithm instead of comparing
// neighbours per band. Faster on highly repetitive input, but needs an
// extra rank array as large as the suffix array.
func (b *Builder) KasaiLCP() *Builder {
	b.lcp = LCPKasai
	return b
}

// Runs the validator on the finished index before returning it.
// Costs O(n * average LCP).
func (b *Builder) Check() *Builder {
	b.check = true
	return b
}

func (b *Builder) Logger(l log.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) Progress(fn ProgressFunc) *Builder {
	b.progress = fn
	return b
}

// Build runs the construction pipeline in memory. Nothing is written to
// disk; see Write.
func (b *Builder) Build(ctx context.Context) (*Index, error) {
	start := time.Now()
	pre, err := Preprocess(b.input, b.pre)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("preprocessed sequence", "length", pre.Len(), "trimmed", pre.Trimmed, "alphabet", pre.Alphabet.ID)
	if b.progress != nil {
		b.progress(StagePreprocessed, 1, 1)
	}

	var x *Index
	if !b.wide && uint64(pre.Len()) <= math.MaxUint32 {
		x, err = build[uint32](ctx, b, pre)
	} else {
		x, err = build[uint64](ctx, b, pre)
	}
	if err != nil {
		return nil, err
	}

	if b.check {
		t := time.Now()
		if err := Check(ctx, x, CheckOptions{Workers: b.conc.normalize().Workers}); err != nil {
			return nil, err
		}
		b.logger.Debug("validated index", "elapsed", time.Since(t))
	}
	b.logger.Info("built suffix array",
		"length", humanize.Comma(int64(pre.Len())),
		"partitions", x.Partitions(),
		"elapsed", time.Since(start))
	return x, nil
}

func build[T offset](ctx context.Context, b *Builder, pre *Preprocessed) (*Index, error) {
	conc := b.conc.normalize()

	t := time.Now()
	parted, err := partition[T](ctx, pre, conc.Partitions, conc.Workers)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("partitioned suffixes", "bands", len(parted.Bands), "keylen", parted.KeyLen, "elapsed", time.Since(t))
	if b.progress != nil {
		b.progress(StagePartitioned, 1, 1)
	}

	t = time.Now()
	sorted, err := sortPartitions(ctx, parted, conc.Workers, b.progress)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("sorted partitions", "workers", conc.Workers, "elapsed", time.Since(t))

	t = time.Now()
	merged, err := mergeLCP(ctx, sorted, conc.Workers, b.lcp, b.progress)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("built lcp array", "kasai", b.lcp == LCPKasai, "elapsed", time.Since(t))

	return newIndex(merged), nil
}
