package sufr

import (
	"errors"
	"fmt"
)

var (
	ErrEmptySequence      = errors.New("sufr: empty sequence")
	ErrInvalidAlphabet    = errors.New("sufr: symbol outside alphabet")
	ErrCorruptIndex       = errors.New("sufr: corrupt index")
	ErrUnsupportedVersion = errors.New("sufr: unsupported index version")
	ErrOutOfRange         = errors.New("sufr: interval out of range")
	ErrInvalidRecord      = errors.New("sufr: invalid record table")
	ErrValidation         = errors.New("sufr: validation failed")
)

// AlphabetError reports the first input byte the alphabet has no mapping for.
type AlphabetError struct {
	Offset int
	Symbol byte
}

func (e *AlphabetError) Error() string {
	return fmt.Sprintf("sufr: symbol %q at offset %d is outside the alphabet", e.Symbol, e.Offset)
}

func (e *AlphabetError) Unwrap() error { return ErrInvalidAlphabet }

type ViolationKind string

const (
	ViolationLength    ViolationKind = "length"
	ViolationRange     ViolationKind = "range"
	ViolationDuplicate ViolationKind = "duplicate"
	ViolationOrder     ViolationKind = "order"
	ViolationLCP       ViolationKind = "lcp"
)

// ValidationError identifies the first offending rank of a stored index.
// Actual is the offending value. Expected is the array length for length
// violations, the recomputed lcp for lcp violations and the predecessor
// suffix for order violations.
type ValidationError struct {
	Index    int
	Kind     ViolationKind
	Expected uint64
	Actual   uint64
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case ViolationLength:
		return fmt.Sprintf("sufr: validation failed: array length %d, expected %d", e.Actual, e.Expected)
	case ViolationRange:
		return fmt.Sprintf("sufr: validation failed at rank %d: suffix %d is outside the sequence", e.Index, e.Actual)
	case ViolationDuplicate:
		return fmt.Sprintf("sufr: validation failed at rank %d: suffix %d appears twice", e.Index, e.Actual)
	case ViolationOrder:
		return fmt.Sprintf("sufr: validation failed at rank %d: suffix %d is not greater than its predecessor %d", e.Index, e.Actual, e.Expected)
	default:
		return fmt.Sprintf("sufr: validation failed at rank %d: lcp %d, expected %d", e.Index, e.Actual, e.Expected)
	}
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Kind maps err onto the error taxonomy name reported by the command line.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptySequence):
		return "EmptySequence"
	case errors.Is(err, ErrInvalidAlphabet):
		return "InvalidAlphabet"
	case errors.Is(err, ErrUnsupportedVersion):
		return "UnsupportedVersion"
	case errors.Is(err, ErrCorruptIndex):
		return "CorruptIndex"
	case errors.Is(err, ErrOutOfRange):
		return "OutOfRange"
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrInvalidRecord):
		return "InvalidRecord"
	default:
		return "Error"
	}
}
