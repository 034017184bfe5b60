package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Object is any PDF value.
type Object interface {
	Kind() Kind
	String() string
}

// Kind identifies the concrete type of an Object.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindReal
	KindString
	KindName
	KindArray
	KindDict
	KindStream
	KindRef
)

var kindNames = [...]string{"Null", "Bool", "Int", "Real", "String", "Name", "Array", "Dict", "Stream", "Ref"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Null is the PDF null object.
type Null struct{}

func (Null) Kind() Kind     { return KindNull }
func (Null) String() string { return "null" }

// Bool is a PDF boolean.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (b Bool) String() string {
	return strconv.FormatBool(bool(b))
}

// Int is a PDF integer.
type Int int64

func (Int) Kind() Kind       { return KindInt }
func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

// Real is a PDF real number.
type Real float64

func (Real) Kind() Kind       { return KindReal }
func (r Real) String() string { return strconv.FormatFloat(float64(r), 'f', -1, 64) }

// String holds the raw bytes of a literal or hexadecimal string.
type String string

func (String) Kind() Kind       { return KindString }
func (s String) String() string { return string(s) }

// Name is a PDF name without the leading slash.
type Name string

func (Name) Kind() Kind       { return KindName }
func (n Name) String() string { return "/" + string(n) }

// Array is a PDF array.
type Array []Object

func (Array) Kind() Kind { return KindArray }
func (a Array) String() string {
	parts := make([]string, len(a))
	for i, obj := range a {
		parts[i] = objectString(obj)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// At returns the element at index i, or nil when out of range.
func (a Array) At(i int) Object {
	if i < 0 || i >= len(a) {
		return nil
	}
	return a[i]
}

// Floats converts every numeric element to float64. ok is false if any
// element is not a number.
func (a Array) Floats() (vals []float64, ok bool) {
	vals = make([]float64, len(a))
	for i, obj := range a {
		f, isNum := Number(obj)
		if !isNum {
			return nil, false
		}
		vals[i] = f
	}
	return vals, true
}

// Dict is a PDF dictionary keyed by name (without slash).
type Dict map[string]Object

func (Dict) Kind() Kind { return KindDict }
func (d Dict) String() string {
	keys := d.Keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = "/" + k + " " + objectString(d[k])
	}
	return "<<" + strings.Join(parts, " ") + ">>"
}

// Get returns the value for key, or nil.
func (d Dict) Get(key string) Object { return d[key] }

// Has reports whether key is present.
func (d Dict) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Keys returns the keys in sorted order.
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Name returns a name value.
func (d Dict) Name(key string) (Name, bool) {
	n, ok := d[key].(Name)
	return n, ok
}

// Int returns an integer value. Reals with an integral value are accepted.
func (d Dict) Int(key string) (int64, bool) {
	switch v := d[key].(type) {
	case Int:
		return int64(v), true
	case Real:
		if float64(v) == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

// Float returns a numeric value as float64.
func (d Dict) Float(key string) (float64, bool) {
	return Number(d[key])
}

// Bool returns a boolean value.
func (d Dict) Bool(key string) (bool, bool) {
	b, ok := d[key].(Bool)
	return bool(b), ok
}

// Str returns a string value.
func (d Dict) Str(key string) (String, bool) {
	s, ok := d[key].(String)
	return s, ok
}

// Dict returns a direct dictionary value.
func (d Dict) Dict(key string) (Dict, bool) {
	v, ok := d[key].(Dict)
	return v, ok
}

// Array returns a direct array value.
func (d Dict) Array(key string) (Array, bool) {
	v, ok := d[key].(Array)
	return v, ok
}

// Ref returns an indirect reference value.
func (d Dict) Ref(key string) (ObjectRef, bool) {
	r, ok := d[key].(ObjectRef)
	return r, ok
}

// Clone returns a shallow copy of d.
func (d Dict) Clone() Dict {
	out := make(Dict, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Stream is a dictionary followed by raw (still filtered) bytes.
type Stream struct {
	Dict Dict
	Raw  []byte
}

func (*Stream) Kind() Kind { return KindStream }
func (s *Stream) String() string {
	return fmt.Sprintf("stream %s (%d bytes)", s.Dict.String(), len(s.Raw))
}

// Filters returns the stream filter names in application order along with
// their decode parameter dictionaries (nil entries when absent).
func (s *Stream) Filters() ([]string, []Dict, error) {
	var names []string
	switch f := s.Dict["Filter"].(type) {
	case nil, Null:
		return nil, nil, nil
	case Name:
		names = []string{string(f)}
	case Array:
		for i, item := range f {
			n, ok := item.(Name)
			if !ok {
				return nil, nil, fmt.Errorf("filter %d is %T, not a name", i, item)
			}
			names = append(names, string(n))
		}
	default:
		return nil, nil, fmt.Errorf("invalid /Filter type %T", f)
	}

	params := make([]Dict, len(names))
	switch p := s.Dict["DecodeParms"].(type) {
	case Dict:
		params[0] = p
	case Array:
		for i := range names {
			if d, ok := p.At(i).(Dict); ok {
				params[i] = d
			}
		}
	}
	return names, params, nil
}

// ObjectRef identifies an indirect object by number and generation.
type ObjectRef struct {
	Num int
	Gen int
}

func (ObjectRef) Kind() Kind { return KindRef }
func (r ObjectRef) String() string {
	return fmt.Sprintf("%d %d R", r.Num, r.Gen)
}

// IsZero reports whether r is the zero reference (object 0 is always free).
func (r ObjectRef) IsZero() bool { return r.Num == 0 && r.Gen == 0 }

// IndirectObject is a resolved indirect object.
type IndirectObject struct {
	Ref    ObjectRef
	Object Object
}

// Number returns the numeric value of an Int or Real.
func Number(obj Object) (float64, bool) {
	switch v := obj.(type) {
	case Int:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

func objectString(obj Object) string {
	if obj == nil {
		return "null"
	}
	if s, ok := obj.(String); ok {
		return "(" + string(s) + ")"
	}
	return obj.String()
}
