package sufr

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	FormatVersion = 1
	HeaderSize    = 64

	// FlagTrimmed marks an index built with its leading ignore-run removed.
	FlagTrimmed uint16 = 1 << 0
	// FlagSoftMask marks an index built with lowercase symbols masked.
	FlagSoftMask uint16 = 1 << 1
)

var magic = [4]byte{'S', 'U', 'F', 'R'}

// Header is the fixed 64 byte prefix of a stored index:
//
//	0  magic "SUFR"      4  version u8    5  int width u8   6  flags u16
//	8  length u64        16 alphabet size u32
//	20 alphabet id u8    21 sentinel u8   22 ignore u8      23 reserved
//	24 partitions u32    28 reserved u32
//	32 trimmed u64       40 records u64   48 records bytes u64
//	56 checksum u64 (wyhash of the sequence bytes, sentinel included)
type Header struct {
	Version      uint8
	IntWidth     uint8
	Flags        uint16
	Length       uint64
	AlphabetSize uint32
	Alphabet     AlphabetID
	Sentinel     byte
	Ignore       byte
	Partitions   uint32
	Trimmed      uint64
	NumRecords   uint64
	RecordsLen   uint64
	Checksum     uint64
}

func intWidth(n int) uint8 {
	if uint64(n) <= math.MaxUint32 {
		return 4
	}
	return 8
}

// FileSize is the exact artifact size the header describes.
func (h *Header) FileSize() uint64 {
	return HeaderSize + h.Length + 2*h.Length*uint64(h.IntWidth) + h.RecordsLen
}

func (h *Header) seqOffset() int64 { return HeaderSize }
func (h *Header) saOffset() int64  { return HeaderSize + int64(h.Length) }
func (h *Header) lcpOffset() int64 {
	return h.saOffset() + int64(h.Length)*int64(h.IntWidth)
}
func (h *Header) recordsOffset() int64 {
	return h.lcpOffset() + int64(h.Length)*int64(h.IntWidth)
}

func (h *Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	copy(b[0:4], magic[:])
	b[4] = h.Version
	b[5] = h.IntWidth
	binary.LittleEndian.PutUint16(b[6:], h.Flags)
	binary.LittleEndian.PutUint64(b[8:], h.Length)
	binary.LittleEndian.PutUint32(b[16:], h.AlphabetSize)
	b[20] = byte(h.Alphabet)
	b[21] = h.Sentinel
	b[22] = h.Ignore
	binary.LittleEndian.PutUint32(b[24:], h.Partitions)
	binary.LittleEndian.PutUint64(b[32:], h.Trimmed)
	binary.LittleEndian.PutUint64(b[40:], h.NumRecords)
	binary.LittleEndian.PutUint64(b[48:], h.RecordsLen)
	binary.LittleEndian.PutUint64(b[56:], h.Checksum)
	return b, nil
}

// UnmarshalBinary decodes and sanity-checks a header. It does not know the
// artifact size; see checkSize.
func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderSize {
		return fmt.Errorf("%w: %d byte header, need %d", ErrCorruptIndex, len(b), HeaderSize)
	}
	if [4]byte(b[0:4]) != magic {
		return fmt.Errorf("%w: bad magic %q", ErrCorruptIndex, b[0:4])
	}
	h.Version = b[4]
	if h.Version > FormatVersion {
		return fmt.Errorf("%w: version %d, this reader understands up to %d", ErrUnsupportedVersion, h.Version, FormatVersion)
	}
	if h.Version == 0 {
		return fmt.Errorf("%w: version 0", ErrCorruptIndex)
	}
	h.IntWidth = b[5]
	h.Flags = binary.LittleEndian.Uint16(b[6:])
	h.Length = binary.LittleEndian.Uint64(b[8:])
	h.AlphabetSize = binary.LittleEndian.Uint32(b[16:])
	h.Alphabet = AlphabetID(b[20])
	h.Sentinel = b[21]
	h.Ignore = b[22]
	h.Partitions = binary.LittleEndian.Uint32(b[24:])
	h.Trimmed = binary.LittleEndian.Uint64(b[32:])
	h.NumRecords = binary.LittleEndian.Uint64(b[40:])
	h.RecordsLen = binary.LittleEndian.Uint64(b[48:])
	h.Checksum = binary.LittleEndian.Uint64(b[56:])

	if h.IntWidth != 4 && h.IntWidth != 8 {
		return fmt.Errorf("%w: integer width %d", ErrCorruptIndex, h.IntWidth)
	}
	if h.Length == 0 || h.Length > math.MaxInt64/32 {
		return fmt.Errorf("%w: sequence length %d", ErrCorruptIndex, h.Length)
	}
	if h.IntWidth == 4 && h.Length > math.MaxUint32 {
		return fmt.Errorf("%w: sequence length %d does not fit 4 byte entries", ErrCorruptIndex, h.Length)
	}
	if h.Sentinel != Sentinel {
		return fmt.Errorf("%w: sentinel %q", ErrCorruptIndex, h.Sentinel)
	}
	return nil
}

func (h *Header) checkSize(size int64) error {
	if h.RecordsLen > uint64(math.MaxInt64) || uint64(size) != h.FileSize() {
		return fmt.Errorf("%w: header declares %d bytes for sequence length %d, artifact has %d",
			ErrCorruptIndex, h.FileSize(), h.Length, size)
	}
	return nil
}

func appendRecords(b []byte, records []Record) []byte {
	for _, r := range records {
		b = binary.LittleEndian.AppendUint64(b, uint64(r.Start))
		b = binary.LittleEndian.AppendUint32(b, uint32(len(r.Name)))
		b = append(b, r.Name...)
	}
	return b
}

func parseRecords(b []byte, count uint64) ([]Record, error) {
	if count > uint64(len(b))/12 {
		return nil, fmt.Errorf("%w: %d records in %d bytes", ErrCorruptIndex, count, len(b))
	}
	records := make([]Record, 0, count)
	for range count {
		if len(b) < 12 {
			return nil, fmt.Errorf("%w: truncated record table", ErrCorruptIndex)
		}
		start := binary.LittleEndian.Uint64(b)
		l := binary.LittleEndian.Uint32(b[8:])
		b = b[12:]
		if uint64(len(b)) < uint64(l) {
			return nil, fmt.Errorf("%w: truncated record name", ErrCorruptIndex)
		}
		records = append(records, Record{Name: string(b[:l]), Start: int(start)})
		b = b[l:]
	}
	if len(b) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after record table", ErrCorruptIndex, len(b))
	}
	return records, nil
}
