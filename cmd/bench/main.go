package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"runtime/pprof"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ledgerwatch/log/v3"

	"github.com/viniciusth/sufr"
)

type variant struct {
	name   string
	config func(*sufr.Builder) *sufr.Builder
}

var variants = map[string]variant{
	"direct":       {name: "direct", config: func(b *sufr.Builder) *sufr.Builder { return b }},
	"kasai":        {name: "kasai", config: func(b *sufr.Builder) *sufr.Builder { return b.KasaiLCP() }},
	"single":       {name: "single", config: func(b *sufr.Builder) *sufr.Builder { return b.Partitions(1).Workers(1) }},
	"direct_check": {name: "direct_check", config: func(b *sufr.Builder) *sufr.Builder { return b.Check() }},
}

type densityType string

const (
	densityLow  densityType = "low"
	densityHigh densityType = "high"
)

type memMonitor struct {
	maxAlloc uint64
	stop     chan struct{}
}

func newMemMonitor() *memMonitor {
	mm := &memMonitor{stop: make(chan struct{})}
	go func() {
		for {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			if m.Alloc > mm.maxAlloc {
				mm.maxAlloc = m.Alloc
			}
			select {
			case <-mm.stop:
				return
			default:
				time.Sleep(10 * time.Millisecond)
			}
		}
	}()
	return mm
}

func (mm *memMonitor) Stop() uint64 {
	close(mm.stop)
	return mm.maxAlloc
}

func getCurrentAlloc() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc
}

// genSequence returns n random DNA symbols. High density input is built from
// copies of a short repeat with sparse mutations, which makes neighbouring
// suffixes share long prefixes.
func genSequence(r *rand.Rand, n int, density densityType) []byte {
	const dna = "ACGT"
	seq := make([]byte, n)
	if density != densityHigh {
		for i := range seq {
			seq[i] = dna[r.Intn(4)]
		}
		return seq
	}
	repeat := make([]byte, 1000)
	for i := range repeat {
		repeat[i] = dna[r.Intn(4)]
	}
	for i := range seq {
		seq[i] = repeat[i%len(repeat)]
		if r.Intn(10000) == 0 {
			seq[i] = dna[r.Intn(4)]
		}
	}
	return seq
}

func measureBuild(seq []byte, threads, parts int, config func(*sufr.Builder) *sufr.Builder) (time.Duration, uint64, uint64, *sufr.Index) {
	runtime.GC()
	mm := newMemMonitor()
	start := time.Now()
	builder := sufr.NewBuilder(sufr.Input{Data: seq}).Workers(threads).Partitions(parts)
	builder = config(builder)
	x, err := builder.Build(context.Background())
	if err != nil {
		panic(err)
	}
	dur := time.Since(start)
	peak := mm.Stop()
	runtime.GC()
	alloc := getCurrentAlloc()
	return dur, peak, alloc, x
}

func measureQuery(x *sufr.Index, patterns [][]byte) (time.Duration, uint64, uint64) {
	runtime.GC()
	mm := newMemMonitor()
	start := time.Now()
	for _, p := range patterns {
		_ = x.Count(p)
	}
	dur := time.Since(start)
	peak := mm.Stop()
	runtime.GC()
	alloc := getCurrentAlloc()
	return dur, peak, alloc
}

func runBenchmark(v variant, N, T, S, P, Q, runs int, density densityType) {
	for run := 0; run < runs; run++ {
		r := rand.New(rand.NewSource(int64(run)))
		seq := genSequence(r, N, density)
		bt, bp, ba, x := measureBuild(seq, T, S, v.config)

		patterns := make([][]byte, Q)
		for i := range patterns {
			start := r.Intn(N - P + 1)
			patterns[i] = seq[start : start+P]
		}
		qt, qp, qa := measureQuery(x, patterns)
		fmt.Printf("%s,%d,%d,%d,%d,%d,%s,%.0f,%d,%d,%.0f,%d,%d\n",
			v.name, N, T, S, P, Q, density,
			float64(bt.Nanoseconds()), bp, ba,
			float64(qt.Nanoseconds()), qp, qa)
		fmt.Fprintf(os.Stderr, "%s run %d: %s symbols in %s (%s/s), peak %s\n",
			v.name, run, humanize.Comma(int64(N)), bt.Round(time.Millisecond),
			humanize.SIWithDigits(float64(N)/bt.Seconds(), 1, ""), humanize.IBytes(bp))
	}
}

func main() {
	variantName := flag.String("variant", "", "Variant to benchmark")
	n := flag.Int("n", 0, "Sequence length N")
	t := flag.Int("t", runtime.NumCPU(), "Worker threads T")
	s := flag.Int("s", sufr.DefaultPartitions, "Partitions S")
	p := flag.Int("p", 0, "Pattern length P")
	q := flag.Int("q", 0, "Number of queries Q")
	runs := flag.Int("runs", 3, "Number of runs for averaging")
	d := flag.String("d", "low", "Density: low or high")
	verbose := flag.Bool("v", false, "Log construction stages")
	cpuprofile := flag.String("cpuprofile", "", "Write CPU profile to file")
	flag.Parse()

	lvl := log.LvlWarn
	if *verbose {
		lvl = log.LvlDebug
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StderrHandler))

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *variantName == "" || *n <= 0 || *p <= 0 || *q <= 0 || *p > *n {
		names := make([]string, 0, len(variants))
		for name := range variants {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Println("Usage: go run main.go -variant=<variant> -n=<N> -p=<P> -q=<Q> [-t=<T>] [-s=<S>] [-d=<density>] [-runs=<runs>]")
		fmt.Println("Available variants:", names)
		os.Exit(1)
	}

	v, ok := variants[*variantName]
	if !ok {
		fmt.Println("Invalid variant:", *variantName)
		os.Exit(1)
	}

	runBenchmark(v, *n, *t, *s, *p, *q, *runs, densityType(*d))
}
