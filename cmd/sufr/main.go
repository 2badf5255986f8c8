package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/ledgerwatch/log/v3"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/viniciusth/sufr"
	"github.com/viniciusth/sufr/internal/seqio"
)

const usage = `usage: sufr <command> [flags]

commands:
  create <sequence-file> -o <array-file>   build and store a suffix array
  check  -a <array-file> [-s <sequence-file>]
                                            validate a stored suffix array
  read   -a <array-file> [-s <sequence-file>] [-e start-end]
                                            print metadata or extract a range
  search -a <array-file> [--locate] [--records k] <pattern>...
         [--extract [--prefix n] [--suffix n]]
                                            count, locate or extract patterns
`

// usageError is reported with exit status 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{fmt.Sprintf(format, args...)}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch args[0] {
	case "create":
		err = runCreate(ctx, args[1:], stdout, stderr)
	case "check":
		err = runCheck(ctx, args[1:], stdout, stderr)
	case "read":
		err = runRead(args[1:], stdout, stderr)
	case "search":
		err = runSearch(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		err = usagef("unknown command %q", args[0])
	}

	var ue usageError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.As(err, &ue):
		fmt.Fprintf(stderr, "sufr: %s\n%s", ue.msg, usage)
		return 2
	default:
		fmt.Fprintf(stderr, "%s: %v\n", sufr.Kind(err), err)
		return 1
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseArgs parses flags that may follow positional arguments.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, usageError{err.Error()}
		}
		args = fs.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

func setupLogging(level string) error {
	lvl, err := log.LvlFromString(level)
	if err != nil {
		return usagef("invalid log level %q", level)
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StderrHandler))
	return nil
}

func runCreate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("create", stderr)
	var (
		output     string
		threads    int
		partitions int
		trim       bool
		softmask   bool
		check      bool
		kasai      bool
		alphabet   string
		level      string
		progress   bool
	)
	fs.StringVar(&output, "o", "", "output array file")
	fs.StringVar(&output, "output", "", "output array file")
	fs.IntVar(&threads, "t", 0, "worker threads (default: number of CPUs)")
	fs.IntVar(&threads, "threads", 0, "worker threads (default: number of CPUs)")
	fs.IntVar(&partitions, "n", sufr.DefaultPartitions, "number of partitions")
	fs.IntVar(&partitions, "partitions", sufr.DefaultPartitions, "number of partitions")
	fs.BoolVar(&trim, "ignore-start-n", false, "skip the leading run of N (or X for protein)")
	fs.BoolVar(&softmask, "ignore-softmask", false, "treat lowercase symbols as masked")
	fs.BoolVar(&check, "check", false, "validate the written array")
	fs.BoolVar(&kasai, "kasai", false, "build the LCP array with Kasai's algorithm")
	fs.StringVar(&alphabet, "alphabet", "dna", "sequence alphabet: dna, protein or raw")
	fs.StringVar(&level, "log", "info", "log level: crit, error, warn, info, debug or trace")
	fs.BoolVar(&progress, "progress", false, "show progress bars on stderr")

	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return usagef("create takes exactly one sequence file")
	}
	if output == "" {
		return usagef("create requires -o <array-file>")
	}
	if err := setupLogging(level); err != nil {
		return err
	}
	a, err := sufr.ParseAlphabet(alphabet)
	if err != nil {
		return usageError{err.Error()}
	}

	in, err := seqio.ReadFile(pos[0], a.Ignore)
	if err != nil {
		return err
	}
	log.Debug("read sequence file", "path", pos[0], "bytes", humanize.Comma(int64(len(in.Data))), "records", len(in.Records))

	b := sufr.NewBuilder(in).Alphabet(a).Workers(threads).Partitions(partitions)
	if trim {
		b.TrimLeadingIgnore()
	}
	if softmask {
		b.SoftMask()
	}
	if kasai {
		b.KasaiLCP()
	}
	var bars *progressBars
	if progress {
		bars = newProgressBars(stderr)
		b.Progress(bars.update)
	}
	x, err := b.Build(ctx)
	if bars != nil {
		bars.wait()
	}
	if err != nil {
		return err
	}
	if err := sufr.Write(ctx, x, output); err != nil {
		return err
	}

	if check {
		y, err := sufr.Open(output)
		if err != nil {
			return err
		}
		defer y.Close()
		if err := sufr.Check(ctx, y, sufr.CheckOptions{Workers: threads}); err != nil {
			return err
		}
	}
	fmt.Fprintf(stdout, "wrote %s: %s suffixes, %s\n", output,
		humanize.Comma(int64(x.Len())), humanize.IBytes(x.Header.FileSize()))
	return nil
}

func runCheck(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("check", stderr)
	var (
		seqFile string
		arrFile string
		threads int
	)
	fs.StringVar(&seqFile, "s", "", "sequence file the array was built from")
	fs.StringVar(&arrFile, "a", "", "array file")
	fs.IntVar(&threads, "t", 0, "worker threads (default: number of CPUs)")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if arrFile == "" && len(pos) == 1 {
		arrFile = pos[0]
	} else if len(pos) > 0 {
		return usagef("unexpected arguments %q", pos)
	}
	if arrFile == "" {
		return usagef("check requires -a <array-file>")
	}

	x, err := sufr.Open(arrFile)
	if err != nil {
		return err
	}
	defer x.Close()
	if seqFile != "" {
		if err := matchSequence(x, seqFile); err != nil {
			return err
		}
	}
	if err := sufr.Check(ctx, x, sufr.CheckOptions{Workers: threads}); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "ok: %s suffixes verified\n", humanize.Comma(int64(x.Len())))
	return nil
}

// matchSequence preprocesses seqFile the way x was built and compares it
// against the stored sequence.
func matchSequence(x *sufr.Index, seqFile string) error {
	in, err := seqio.ReadFile(seqFile, x.Alphabet().Ignore)
	if err != nil {
		return err
	}
	pre, err := sufr.Preprocess(in, sufr.PreprocessOptions{
		Alphabet:          x.Alphabet(),
		TrimLeadingIgnore: x.Header.Flags&sufr.FlagTrimmed != 0,
		SoftMask:          x.Header.Flags&sufr.FlagSoftMask != 0,
	})
	if err != nil {
		return err
	}
	return x.Matches(pre)
}

func runRead(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("read", stderr)
	var seqFile, arrFile, extract string
	fs.StringVar(&seqFile, "s", "", "sequence file the array was built from")
	fs.StringVar(&arrFile, "a", "", "array file")
	fs.StringVar(&extract, "e", "", "half-open range start-end to extract, in input coordinates")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) > 0 {
		return usagef("unexpected arguments %q", pos)
	}
	if arrFile == "" {
		return usagef("read requires -a <array-file>")
	}

	x, err := sufr.Open(arrFile)
	if err != nil {
		return err
	}
	defer x.Close()
	if seqFile != "" {
		if err := matchSequence(x, seqFile); err != nil {
			return err
		}
	}

	if extract == "" {
		printSummary(stdout, arrFile, x)
		return nil
	}
	start, end, err := parseRange(extract)
	if err != nil {
		return err
	}
	seq, err := x.Extract(start, end)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s\n", seq)
	return nil
}

func parseRange(s string) (int, int, error) {
	a, b, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, usagef("invalid range %q, want start-end", s)
	}
	start, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, usagef("invalid range start %q", a)
	}
	end, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, usagef("invalid range end %q", b)
	}
	return start, end, nil
}

func printSummary(w io.Writer, path string, x *sufr.Index) {
	h := x.Header
	fmt.Fprintf(w, "file:        %s\n", path)
	fmt.Fprintf(w, "size:        %s\n", humanize.IBytes(h.FileSize()))
	fmt.Fprintf(w, "version:     %d\n", h.Version)
	fmt.Fprintf(w, "length:      %s\n", humanize.Comma(int64(h.Length)))
	fmt.Fprintf(w, "trimmed:     %s\n", humanize.Comma(int64(h.Trimmed)))
	fmt.Fprintf(w, "alphabet:    %s (%d symbols)\n", h.Alphabet, h.AlphabetSize)
	fmt.Fprintf(w, "soft mask:   %t\n", h.Flags&sufr.FlagSoftMask != 0)
	fmt.Fprintf(w, "int width:   %d bytes\n", h.IntWidth)
	fmt.Fprintf(w, "partitions:  %d\n", h.Partitions)
	fmt.Fprintf(w, "records:     %d\n", len(x.Records))
	for _, r := range x.Records {
		fmt.Fprintf(w, "  %s\t%d\n", r.Name, r.Start)
	}
}

func runSearch(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("search", stderr)
	var (
		arrFile string
		locate  bool
		records int
		load    bool
		extract bool
		prefix  int
		suffix  int
	)
	fs.StringVar(&arrFile, "a", "", "array file")
	fs.BoolVar(&locate, "locate", false, "print every occurrence")
	fs.IntVar(&records, "records", 0, "list up to this many distinct records per pattern")
	fs.BoolVar(&load, "load", false, "read the array into memory instead of mapping it")
	fs.BoolVar(&extract, "extract", false, "print each occurrence with its context as FASTA")
	fs.IntVar(&prefix, "prefix", 0, "context symbols before each occurrence")
	fs.IntVar(&suffix, "suffix", -1, "context symbols from each occurrence start (default: to the record end)")
	patterns, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if arrFile == "" {
		return usagef("search requires -a <array-file>")
	}
	if len(patterns) == 0 {
		return usagef("search requires at least one pattern")
	}
	if prefix < 0 {
		return usagef("--prefix must not be negative")
	}

	open := sufr.Open
	if load {
		open = sufr.Load
	}
	x, err := open(arrFile)
	if err != nil {
		return err
	}
	defer x.Close()

	for _, p := range patterns {
		switch {
		case extract:
			ctxs, err := x.ExtractContext([]byte(p), prefix, suffix)
			if err != nil {
				return err
			}
			for _, c := range ctxs {
				base := c.Offset - c.RecordOffset
				fmt.Fprintf(stdout, ">%s:%d-%d %s %d\n%s\n", c.Record, c.Start-base, c.End-base, p, c.SuffixOffset, c.Seq)
			}
		case locate:
			for _, loc := range x.Locate([]byte(p)) {
				fmt.Fprintf(stdout, "%s\t%s\t%d\t%d\n", p, loc.Record, loc.RecordOffset, loc.Offset)
			}
		case records > 0:
			fmt.Fprintf(stdout, "%s\t%s\n", p, strings.Join(x.RecordNames([]byte(p), records), ","))
		default:
			fmt.Fprintf(stdout, "%s\t%d\n", p, x.Count([]byte(p)))
		}
	}
	return nil
}

// progressBars shows one bar per construction stage that reports more than
// a single unit of work.
type progressBars struct {
	mu   sync.Mutex
	p    *mpb.Progress
	bars map[sufr.Stage]*mpb.Bar
}

func newProgressBars(w io.Writer) *progressBars {
	return &progressBars{
		p:    mpb.New(mpb.WithWidth(40), mpb.WithOutput(w)),
		bars: make(map[sufr.Stage]*mpb.Bar),
	}
}

func (pb *progressBars) update(stage sufr.Stage, done, total int) {
	if total <= 1 {
		return
	}
	pb.mu.Lock()
	defer pb.mu.Unlock()
	bar, ok := pb.bars[stage]
	if !ok {
		name := stage.String() + ": "
		bar = pb.p.AddBar(int64(total),
			mpb.PrependDecorators(
				decor.Name(name, decor.WC{W: len("partitioned: "), C: decor.DindentRight}),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.Elapsed(decor.ET_STYLE_GO),
				decor.OnComplete(decor.Name(""), ". done"),
			),
		)
		pb.bars[stage] = bar
	}
	if int64(done) > bar.Current() {
		bar.SetCurrent(int64(done))
	}
}

// wait aborts unfinished bars, after a failed build, and flushes output.
func (pb *progressBars) wait() {
	pb.mu.Lock()
	for _, bar := range pb.bars {
		if !bar.Completed() {
			bar.Abort(false)
		}
	}
	pb.mu.Unlock()
	pb.p.Wait()
}
