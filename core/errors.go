package core

import (
	"errors"
	"fmt"
)

// ErrMalformedObject is returned when object bytes cannot be parsed.
var ErrMalformedObject = errors.New("malformed object")

// ErrNoXRef is returned when no cross-reference data could be located.
var ErrNoXRef = errors.New("cross-reference data not found")

// SyntaxError describes a parse failure at a byte offset.
type SyntaxError struct {
	Offset int64
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Msg)
}

// Unwrap lets errors.Is match ErrMalformedObject.
func (e *SyntaxError) Unwrap() error { return ErrMalformedObject }

func syntaxErrorf(off int64, format string, args ...interface{}) error {
	return &SyntaxError{Offset: off, Msg: fmt.Sprintf(format, args...)}
}

// Limits bounds resource use while parsing and decoding untrusted input.
type Limits struct {
	// MaxDecompressedSize caps the output of a single stream filter chain.
	MaxDecompressedSize int64
	// MaxNesting caps array/dictionary nesting inside one object.
	MaxNesting int
	// MaxXRefChain caps the number of /Prev sections followed.
	MaxXRefChain int
	// MaxResolveDepth caps reference chains followed by deep resolution.
	MaxResolveDepth int
}

// DefaultLimits returns limits suitable for ordinary documents.
func DefaultLimits() Limits {
	return Limits{
		MaxDecompressedSize: 256 << 20,
		MaxNesting:          256,
		MaxXRefChain:        64,
		MaxResolveDepth:     100,
	}
}
