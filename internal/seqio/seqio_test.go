package seqio

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dsnet/compress/bzip2"
	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/viniciusth/sufr"
)

const fasta = ">chr1 first\nACGT\nAC\r\n\n;comment\n>chr2\nGGTT\n"

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  sufr.Input
	}{
		{
			name:  "fasta",
			input: fasta,
			want: sufr.Input{
				Data:    []byte("ACGTACNGGTT"),
				Records: []sufr.Record{{Name: "chr1 first", Start: 0}, {Name: "chr2", Start: 7}},
			},
		},
		{
			name:  "fastq",
			input: "@r1\nACGT\n+\n!!!!\n@r2\nTT\n+r2\n@@\n",
			want: sufr.Input{
				Data:    []byte("ACGTNTT"),
				Records: []sufr.Record{{Name: "r1", Start: 0}, {Name: "r2", Start: 5}},
			},
		},
		{
			name:  "raw",
			input: "acgt\nnnac\n",
			want:  sufr.Input{Data: []byte("acgtnnac")},
		},
		{
			name:  "empty",
			input: "",
			want:  sufr.Input{},
		},
		{
			name:  "empty records",
			input: ">a\nACGT\n>b\n>c\nGG\n>d\n",
			want: sufr.Input{
				Data:    []byte("ACGTNNGGN"),
				Records: []sufr.Record{{Name: "a", Start: 0}, {Name: "b", Start: 5}, {Name: "c", Start: 6}, {Name: "d", Start: 9}},
			},
		},
		{
			name:  "nfc names",
			input: ">Café\nA\n",
			want: sufr.Input{
				Data:    []byte("A"),
				Records: []sufr.Record{{Name: "Café", Start: 0}},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tc.input), 'N')
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Parse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseEmptyTrailingRecord(t *testing.T) {
	in, err := Parse(strings.NewReader(">a\nACGT\n>b\n"), 'N')
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sufr.Preprocess(in, sufr.PreprocessOptions{}); err != nil {
		t.Errorf("Preprocess: %v", err)
	}
}

func TestParseMalformedFastq(t *testing.T) {
	for _, input := range []string{
		"@r1\nACGT\n",
		"@r1\nACGT\n+\n!!\n",
		"@r1\nA\n+\n!\nr2\n",
	} {
		if _, err := Parse(strings.NewReader(input), 'N'); !errors.Is(err, ErrFormat) {
			t.Errorf("Parse(%q) = %v, want ErrFormat", input, err)
		}
	}
}

func TestParseLongLine(t *testing.T) {
	line := strings.Repeat("ACGT", bufSize/2)
	got, err := Parse(strings.NewReader(">x\n"+line+"\n"), 'N')
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Data) != line {
		t.Errorf("got %d bytes, want %d", len(got.Data), len(line))
	}
}

func compress(t *testing.T, c Compression, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	var err error
	switch c {
	case None:
		return data
	case Gzip:
		w = gzip.NewWriter(&buf)
	case Zstd:
		w, err = zstd.NewWriter(&buf)
	case Xz:
		w, err = xz.NewWriter(&buf)
	case Bzip2:
		w, err = bzip2.NewWriter(&buf, nil)
	}
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadFileCompressed(t *testing.T) {
	want, err := Parse(strings.NewReader(fasta), 'N')
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	for _, c := range []Compression{None, Gzip, Zstd, Xz, Bzip2} {
		t.Run(c.String(), func(t *testing.T) {
			data := compress(t, c, []byte(fasta))
			r := bufioPeek(data)
			if got := Detect(r); got != c {
				t.Errorf("Detect = %v, want %v", got, c)
			}

			path := filepath.Join(dir, "seq."+c.String())
			if err := os.WriteFile(path, data, 0o644); err != nil {
				t.Fatal(err)
			}
			got, err := ReadFile(path, 'N')
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("ReadFile mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.fa"), 'N'); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want os.ErrNotExist", err)
	}
}

func bufioPeek(data []byte) *bufio.Reader {
	return bufio.NewReader(bytes.NewReader(data))
}
