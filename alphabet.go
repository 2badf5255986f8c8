package sufr

import (
	"fmt"

	"golang.org/x/text/transform"
)

// Sentinel terminates every preprocessed sequence. It is never part of an alphabet.
const Sentinel = '$'

type AlphabetID uint8

const (
	AlphabetRaw AlphabetID = iota
	AlphabetDNA
	AlphabetProtein
)

func (id AlphabetID) String() string {
	switch id {
	case AlphabetRaw:
		return "raw"
	case AlphabetDNA:
		return "dna"
	case AlphabetProtein:
		return "protein"
	default:
		return fmt.Sprintf("alphabet(%d)", uint8(id))
	}
}

// Alphabet is a symbol -> normalized symbol table. Bytes without a mapping
// are rejected during preprocessing.
type Alphabet struct {
	ID     AlphabetID
	Ignore byte
	table  [256]byte
	valid  [256]bool
	size   int
	base   *Alphabet // unmasked alphabet, set by SoftMasked
}

var (
	DNA     = newAlphabet(AlphabetDNA, 'N', "ACGTN", map[string]byte{"RYKMSWBDHV": 'N', "U": 'T'})
	Protein = newAlphabet(AlphabetProtein, 'X', "ACDEFGHIKLMNPQRSTVWYX", map[string]byte{"BZJUO*": 'X'})
	Raw     = newRawAlphabet()
)

func newAlphabet(id AlphabetID, ignore byte, symbols string, aliases map[string]byte) *Alphabet {
	a := &Alphabet{ID: id, Ignore: ignore}
	set := func(from, to byte) {
		a.table[from] = to
		a.valid[from] = true
	}
	for i := 0; i < len(symbols); i++ {
		c := symbols[i]
		set(c, c)
		set(c|0x20, c)
	}
	for from, to := range aliases {
		for i := 0; i < len(from); i++ {
			set(from[i], to)
			if from[i] >= 'A' && from[i] <= 'Z' {
				set(from[i]|0x20, to)
			}
		}
	}
	a.size = len(symbols)
	return a
}

func newRawAlphabet() *Alphabet {
	a := &Alphabet{ID: AlphabetRaw, Ignore: 'N'}
	for c := 0; c < 256; c++ {
		if c == Sentinel {
			continue
		}
		a.table[c] = byte(c)
		a.valid[c] = true
		a.size++
	}
	return a
}

// AlphabetByID returns the built-in alphabet recorded in an index header.
func AlphabetByID(id AlphabetID) (*Alphabet, error) {
	switch id {
	case AlphabetRaw:
		return Raw, nil
	case AlphabetDNA:
		return DNA, nil
	case AlphabetProtein:
		return Protein, nil
	default:
		return nil, fmt.Errorf("%w: unknown alphabet %d", ErrCorruptIndex, uint8(id))
	}
}

// ParseAlphabet resolves an alphabet name as accepted on the command line.
func ParseAlphabet(name string) (*Alphabet, error) {
	for _, a := range []*Alphabet{DNA, Protein, Raw} {
		if a.ID.String() == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("sufr: unknown alphabet %q", name)
}

// SoftMasked returns a copy of a in which lowercase letters, the soft-masked
// repeats of FASTA assemblies, normalize to the ignore symbol. Masked regions
// are then never matched and count as part of a leading ignore-run.
func (a *Alphabet) SoftMasked() *Alphabet {
	if a.base != nil {
		return a
	}
	m := *a
	m.base = a
	for c := 'a'; c <= 'z'; c++ {
		if m.valid[c] {
			m.table[c] = m.Ignore
		}
	}
	return &m
}

// Masked reports whether a was derived with SoftMasked.
func (a *Alphabet) Masked() bool { return a.base != nil }

// unmasked is the alphabet patterns are normalized with.
func (a *Alphabet) unmasked() *Alphabet {
	if a.base != nil {
		return a.base
	}
	return a
}

// Size is the number of distinct normalized symbols, sentinel excluded.
func (a *Alphabet) Size() int { return a.size }

func (a *Alphabet) Contains(c byte) bool { return a.valid[c] }

// Transformer returns a transform.Transformer applying the alphabet table.
// It fails with an *AlphabetError carrying the offset of the first unmapped byte.
func (a *Alphabet) Transformer() transform.Transformer {
	return &alphabetTransformer{a: a}
}

type alphabetTransformer struct {
	a   *Alphabet
	pos int
}

func (t *alphabetTransformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	n := min(len(dst), len(src))
	for i, c := range src[:n] {
		if !t.a.valid[c] {
			t.pos += i
			return i, i, &AlphabetError{Offset: t.pos, Symbol: c}
		}
		dst[i] = t.a.table[c]
	}
	t.pos += n
	if n < len(src) {
		return n, n, transform.ErrShortDst
	}
	return n, n, nil
}

func (t *alphabetTransformer) Reset() { t.pos = 0 }
