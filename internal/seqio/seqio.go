// Package seqio reads sequence files into a sufr.Input.
//
// FASTA, FASTQ and raw text are recognised by their first byte; gzip, zstd,
// xz and bzip2 compression by their magic number.
package seqio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"golang.org/x/text/unicode/norm"

	"github.com/viniciusth/sufr"
)

type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
	Xz
	Bzip2
)

func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case Xz:
		return "xz"
	case Bzip2:
		return "bzip2"
	default:
		return "none"
	}
}

var magics = []struct {
	c     Compression
	magic []byte
}{
	{Gzip, []byte{0x1f, 0x8b}},
	{Zstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{Xz, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}},
	{Bzip2, []byte("BZh")},
}

// ErrFormat is returned for malformed FASTA or FASTQ input.
var ErrFormat = errors.New("seqio: malformed sequence file")

const bufSize = 1 << 20

// Detect reports the compression of the stream behind br without consuming it.
func Detect(br *bufio.Reader) Compression {
	head, _ := br.Peek(6)
	for _, m := range magics {
		if bytes.HasPrefix(head, m.magic) {
			return m.c
		}
	}
	return None
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

// NewReader returns a reader over the decompressed contents of r. Closing it
// releases decoder resources but does not close r.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(r, bufSize)
	switch Detect(br) {
	case Gzip:
		return gzip.NewReader(br)
	case Zstd:
		d, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	case Xz:
		x, err := xz.NewReader(br)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(x), nil
	case Bzip2:
		return bzip2.NewReader(br, nil)
	default:
		return io.NopCloser(br), nil
	}
}

// ReadFile reads and decompresses the sequence file at path. Records are
// joined with delim, so no match can span two of them unless the pattern
// contains delim itself.
func ReadFile(path string, delim byte) (sufr.Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return sufr.Input{}, err
	}
	defer f.Close()

	rc, err := NewReader(f)
	if err != nil {
		return sufr.Input{}, fmt.Errorf("%s: %w", path, err)
	}
	defer rc.Close()

	in, err := Parse(rc, delim)
	if err != nil {
		return sufr.Input{}, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

// Parse reads uncompressed FASTA, FASTQ or raw text. Raw text yields no
// records and keeps every byte but line breaks.
func Parse(r io.Reader, delim byte) (sufr.Input, error) {
	br := bufio.NewReaderSize(r, bufSize)
	first, err := br.Peek(1)
	if err == io.EOF {
		return sufr.Input{}, nil
	}
	if err != nil {
		return sufr.Input{}, err
	}
	p := &parser{br: br, delim: delim}
	switch first[0] {
	case '>':
		err = p.fasta()
	case '@':
		err = p.fastq()
	default:
		err = p.raw()
	}
	if err != nil {
		return sufr.Input{}, err
	}
	return sufr.Input{Data: p.data, Records: p.records}, nil
}

type parser struct {
	br      *bufio.Reader
	delim   byte
	data    []byte
	records []sufr.Record
	line    int
}

// next returns the next line without its line break. The slice is only
// valid until the following call.
func (p *parser) next() ([]byte, error) {
	var acc []byte
	for {
		b, err := p.br.ReadSlice('\n')
		switch {
		case err == bufio.ErrBufferFull:
			acc = append(acc, b...)
			continue
		case err == io.EOF && len(b) == 0 && acc == nil:
			return nil, io.EOF
		case err != nil && err != io.EOF:
			return nil, err
		}
		p.line++
		if acc != nil {
			b = append(acc, b...)
		}
		b = bytes.TrimSuffix(b, []byte{'\n'})
		return bytes.TrimSuffix(b, []byte{'\r'}), nil
	}
}

func (p *parser) startRecord(header []byte) {
	if len(p.records) > 0 {
		p.data = append(p.data, p.delim)
	}
	name := strings.TrimSpace(string(header))
	p.records = append(p.records, sufr.Record{
		Name:  norm.NFC.String(name),
		Start: len(p.data),
	})
}

func (p *parser) raw() error {
	for {
		line, err := p.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		p.data = append(p.data, line...)
	}
}

func (p *parser) fasta() error {
	for {
		line, err := p.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch {
		case len(line) == 0:
		case line[0] == '>':
			p.startRecord(line[1:])
		case line[0] == ';':
			// comment
		default:
			p.data = append(p.data, bytes.TrimSpace(line)...)
		}
	}
}

func (p *parser) fastq() error {
	for {
		header, err := p.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(header) == 0 {
			continue
		}
		if header[0] != '@' {
			return fmt.Errorf("%w: line %d: expected '@' header", ErrFormat, p.line)
		}
		p.startRecord(header[1:])

		seqLen := 0
		for {
			line, err := p.next()
			if err == io.EOF {
				return fmt.Errorf("%w: line %d: record without '+' separator", ErrFormat, p.line)
			}
			if err != nil {
				return err
			}
			if len(line) > 0 && line[0] == '+' {
				break
			}
			p.data = append(p.data, line...)
			seqLen += len(line)
		}
		for qual := 0; qual < seqLen; {
			line, err := p.next()
			if err == io.EOF {
				return fmt.Errorf("%w: line %d: quality shorter than sequence", ErrFormat, p.line)
			}
			if err != nil {
				return err
			}
			qual += len(line)
		}
	}
}
