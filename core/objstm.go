package core

import (
	"fmt"
	"strconv"
)

// ObjectStream is a decoded /Type /ObjStm stream. It is safe for concurrent
// use since parsing never mutates it.
type ObjectStream struct {
	first   int
	extends ObjectRef
	decoded []byte
	entries []objStmEntry
}

type objStmEntry struct {
	num    int
	offset int
}

// NewObjectStream parses the header of an object stream. decoded must be
// the stream data after decryption and filtering.
func NewObjectStream(dict Dict, decoded []byte) (*ObjectStream, error) {
	if t, _ := dict.Name("Type"); t != "ObjStm" {
		return nil, fmt.Errorf("%w: stream is not an object stream (/Type %q)", ErrMalformedObject, t)
	}
	n, ok := dict.Int("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("%w: object stream has no valid /N", ErrMalformedObject)
	}
	first, ok := dict.Int("First")
	if !ok || first < 0 || int(first) > len(decoded) {
		return nil, fmt.Errorf("%w: object stream /First %d outside %d bytes", ErrMalformedObject, first, len(decoded))
	}

	os := &ObjectStream{first: int(first), decoded: decoded}
	os.extends, _ = dict.Ref("Extends")

	lex := NewLexer(decoded[:first], 0)
	for i := int64(0); i < n; i++ {
		numTok, _ := lex.Next()
		offTok, _ := lex.Next()
		if numTok.Type != TokenInteger || offTok.Type != TokenInteger {
			// A short header still leaves the entries read so far usable.
			break
		}
		num, _ := strconv.Atoi(string(numTok.Value))
		off, _ := strconv.Atoi(string(offTok.Value))
		os.entries = append(os.entries, objStmEntry{num: num, offset: off})
	}
	return os, nil
}

// N returns the number of objects listed in the header.
func (os *ObjectStream) N() int { return len(os.entries) }

// Extends returns the /Extends reference, or the zero reference.
func (os *ObjectStream) Extends() ObjectRef { return os.extends }

// ObjectNumbers lists the object numbers in header order.
func (os *ObjectStream) ObjectNumbers() []int {
	nums := make([]int, len(os.entries))
	for i, e := range os.entries {
		nums[i] = e.num
	}
	return nums
}

// ObjectAt parses the object at header position index and returns it with
// its object number.
func (os *ObjectStream) ObjectAt(index int, limits Limits) (Object, int, error) {
	if index < 0 || index >= len(os.entries) {
		return nil, 0, fmt.Errorf("%w: index %d outside object stream of %d", ErrMalformedObject, index, len(os.entries))
	}
	e := os.entries[index]
	start := os.first + e.offset
	if start >= len(os.decoded) {
		return nil, e.num, fmt.Errorf("%w: object %d offset past stream end", ErrMalformedObject, e.num)
	}
	p := NewParser(os.decoded[start:], 0)
	p.SetLimits(limits)
	obj, err := p.ParseObject()
	if err != nil {
		return nil, e.num, fmt.Errorf("object %d in object stream: %w", e.num, err)
	}
	return obj, e.num, nil
}

// Object looks up an object by number. The expected index from the xref
// entry is tried first.
func (os *ObjectStream) Object(num, hint int, limits Limits) (Object, error) {
	if hint >= 0 && hint < len(os.entries) && os.entries[hint].num == num {
		obj, _, err := os.ObjectAt(hint, limits)
		return obj, err
	}
	for i, e := range os.entries {
		if e.num == num {
			obj, _, err := os.ObjectAt(i, limits)
			return obj, err
		}
	}
	return nil, fmt.Errorf("%w: object %d not in object stream", ErrMalformedObject, num)
}
