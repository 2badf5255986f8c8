package sufr

import (
	"errors"
	"testing"

	"golang.org/x/text/transform"
)

func TestAlphabetNormalize(t *testing.T) {
	tests := []struct {
		alphabet *Alphabet
		in, want string
	}{
		{DNA, "acgtn", "ACGTN"},
		{DNA, "RYkmU", "NNNNT"},
		{Protein, "mkv*bz", "MKVXXX"},
		{Raw, "Hello, world", "Hello, world"},
		{DNA.SoftMasked(), "ACgtRyU", "ACNNNNT"},
		{Protein.SoftMasked(), "MKvx", "MKXX"},
	}
	for _, tc := range tests {
		t.Run(tc.alphabet.ID.String()+"/"+tc.in, func(t *testing.T) {
			got, _, err := transform.String(tc.alphabet.Transformer(), tc.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSoftMasked(t *testing.T) {
	m := DNA.SoftMasked()
	if !m.Masked() || DNA.Masked() {
		t.Errorf("Masked() = %v, DNA.Masked() = %v", m.Masked(), DNA.Masked())
	}
	if m.SoftMasked() != m || m.unmasked() != DNA || m.ID != AlphabetDNA {
		t.Error("soft-masked alphabet does not keep its base")
	}
	if DNA.table['a'] != 'A' {
		t.Errorf("DNA changed: 'a' maps to %q", DNA.table['a'])
	}
	if m.Contains('?') {
		t.Error("masking widened the alphabet")
	}
}

func TestAlphabetRejects(t *testing.T) {
	tests := []struct {
		alphabet *Alphabet
		in       string
		offset   int
		symbol   byte
	}{
		{DNA, "ACGZ", 3, 'Z'},
		{DNA, "A$", 1, '$'},
		{Protein, "MK1", 2, '1'},
		{Raw, "ab$c", 2, '$'},
	}
	for _, tc := range tests {
		_, _, err := transform.String(tc.alphabet.Transformer(), tc.in)
		var ae *AlphabetError
		if !errors.As(err, &ae) {
			t.Errorf("%s %q: got %v, want *AlphabetError", tc.alphabet.ID, tc.in, err)
			continue
		}
		if ae.Offset != tc.offset || ae.Symbol != tc.symbol {
			t.Errorf("%s %q: got offset %d symbol %q, want %d %q", tc.alphabet.ID, tc.in, ae.Offset, ae.Symbol, tc.offset, tc.symbol)
		}
		if !errors.Is(err, ErrInvalidAlphabet) {
			t.Errorf("%v does not wrap ErrInvalidAlphabet", err)
		}
	}
}

func TestParseAlphabet(t *testing.T) {
	for _, a := range []*Alphabet{DNA, Protein, Raw} {
		got, err := ParseAlphabet(a.ID.String())
		if err != nil || got != a {
			t.Errorf("ParseAlphabet(%q) = %v, %v", a.ID, got, err)
		}
		byID, err := AlphabetByID(a.ID)
		if err != nil || byID != a {
			t.Errorf("AlphabetByID(%d) = %v, %v", a.ID, byID, err)
		}
	}
	if _, err := ParseAlphabet("rna"); err == nil {
		t.Error("ParseAlphabet(rna) succeeded")
	}
	if _, err := AlphabetByID(9); !errors.Is(err, ErrCorruptIndex) {
		t.Errorf("AlphabetByID(9) = %v, want ErrCorruptIndex", err)
	}
	if DNA.Size() != 5 || Protein.Size() != 21 || Raw.Size() != 255 {
		t.Errorf("sizes %d %d %d", DNA.Size(), Protein.Size(), Raw.Size())
	}
}
