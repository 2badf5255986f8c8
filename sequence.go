package sufr

import (
	"errors"
	"fmt"
)

// Record marks where a logical record (a FASTA entry, a chromosome) starts,
// in coordinates of the original untrimmed input.
type Record struct {
	Name  string
	Start int
}

// Input is a decoded sequence as handed over by an ingestion layer.
type Input struct {
	Data    []byte
	Records []Record
}

type PreprocessOptions struct {
	Alphabet *Alphabet
	// TrimLeadingIgnore drops the maximal leading run of Alphabet.Ignore.
	TrimLeadingIgnore bool
	// SoftMask normalizes lowercase symbols to Alphabet.Ignore.
	SoftMask bool
}

// Preprocessed is the first construction stage: a normalized sequence with
// the sentinel appended. Seq is never modified once returned.
type Preprocessed struct {
	Seq      []byte
	Alphabet *Alphabet
	Trimmed  int
	Records  []Record
}

func (p *Preprocessed) Len() int { return len(p.Seq) }

// text is the sequence without its sentinel.
func (p *Preprocessed) text() []byte { return p.Seq[:len(p.Seq)-1] }

// Preprocess normalizes in.Data through the alphabet table, optionally trims
// the leading ignore-run and appends the sentinel. in.Data is left untouched.
func Preprocess(in Input, opts PreprocessOptions) (*Preprocessed, error) {
	if len(in.Data) == 0 {
		return nil, ErrEmptySequence
	}
	a := opts.Alphabet
	if a == nil {
		a = DNA
	}
	if opts.SoftMask {
		a = a.SoftMasked()
	}

	trimmed := 0
	if opts.TrimLeadingIgnore {
		for trimmed < len(in.Data) {
			c := in.Data[trimmed]
			if !a.valid[c] || a.table[c] != a.Ignore {
				break
			}
			trimmed++
		}
		if trimmed == len(in.Data) {
			return nil, fmt.Errorf("%w: input is a single run of %q", ErrEmptySequence, a.Ignore)
		}
	}

	src := in.Data[trimmed:]
	seq := make([]byte, len(src)+1)
	if _, _, err := a.Transformer().Transform(seq[:len(src)], src, true); err != nil {
		var ae *AlphabetError
		if errors.As(err, &ae) {
			ae.Offset += trimmed
		}
		return nil, err
	}
	seq[len(src)] = Sentinel

	records, err := checkRecords(in.Records, len(in.Data))
	if err != nil {
		return nil, err
	}
	return &Preprocessed{
		Seq:      seq,
		Alphabet: a,
		Trimmed:  trimmed,
		Records:  records,
	}, nil
}

// checkRecords requires record starts to be ordered within [0, n]. A start of
// n is an empty trailing record, as a FASTA header with no sequence lines
// produces.
func checkRecords(records []Record, n int) ([]Record, error) {
	out := make([]Record, len(records))
	for i, r := range records {
		if r.Start < 0 || r.Start > n || (i > 0 && r.Start < records[i-1].Start) {
			return nil, fmt.Errorf("%w: record %q starts at %d, outside ordered range [0, %d]", ErrInvalidRecord, r.Name, r.Start, n)
		}
		out[i] = r
	}
	return out, nil
}
