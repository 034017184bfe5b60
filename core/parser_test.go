package core

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func parse(t *testing.T, input string) Object {
	t.Helper()
	obj, err := NewParser([]byte(input), 0).ParseObject()
	if err != nil {
		t.Fatalf("ParseObject(%q) failed: %v", input, err)
	}
	return obj
}

func TestParseObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Object
	}{
		{"null", "null", Null{}},
		{"bool", "false", Bool(false)},
		{"int", "-17", Int(-17)},
		{"real", "3.25", Real(3.25)},
		{"malformed real", "1.2.3", Real(1.2)},
		{"name", "/Font", Name("Font")},
		{"string", "(hi)", String("hi")},
		{"ref", "12 0 R", ObjectRef{Num: 12}},
		{"array with refs", "[1 2 R 3 4]", Array{ObjectRef{Num: 1, Gen: 2}, Int(3), Int(4)}},
		{"dict", "<< /Type /Page /Count 3 /Kids [4 0 R] >>", Dict{
			"Type":  Name("Page"),
			"Count": Int(3),
			"Kids":  Array{ObjectRef{Num: 4}},
		}},
		{"null values dropped", "<< /A null /B 1 >>", Dict{"B": Int(1)}},
		{"nested", "<< /D << /E [[1] (x)] >> >>", Dict{"D": Dict{"E": Array{Array{Int(1)}, String("x")}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parse(t, tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseObjectEOF(t *testing.T) {
	_, err := NewParser([]byte("   "), 0).ParseObject()
	if err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, input := range []string{"<< /A 1", "[1 2", "<< 1 2 >>", "endobj"} {
		t.Run(input, func(t *testing.T) {
			_, err := NewParser([]byte(input), 0).ParseObject()
			if !errors.Is(err, ErrMalformedObject) {
				t.Fatalf("expected ErrMalformedObject, got %v", err)
			}
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected *SyntaxError, got %T", err)
			}
		})
	}
}

func TestParseNestingLimit(t *testing.T) {
	p := NewParser([]byte(strings.Repeat("[", 20)+strings.Repeat("]", 20)), 0)
	p.SetLimits(Limits{MaxNesting: 10})
	if _, err := p.ParseObject(); !errors.Is(err, ErrMalformedObject) {
		t.Fatalf("expected nesting error, got %v", err)
	}
}

func TestParseIndirect(t *testing.T) {
	ind, err := NewParser([]byte("7 1 obj\n<< /A 1 >>\nendobj"), 0).ParseIndirect()
	if err != nil {
		t.Fatalf("ParseIndirect failed: %v", err)
	}
	if ind.Ref != (ObjectRef{Num: 7, Gen: 1}) {
		t.Errorf("Ref = %v", ind.Ref)
	}
	if diff := cmp.Diff(Dict{"A": Int(1)}, ind.Object); diff != "" {
		t.Errorf("object mismatch:\n%s", diff)
	}
}

type lengthResolver map[ObjectRef]Object

func (r lengthResolver) ResolveReference(ref ObjectRef) (Object, error) {
	if obj, ok := r[ref]; ok {
		return obj, nil
	}
	return nil, errors.New("not found")
}

func TestParseStream(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		resolver ReferenceResolver
		want     string
	}{
		{"direct length", "1 0 obj\n<< /Length 5 >>\nstream\nhello\nendstream\nendobj", nil, "hello"},
		{"CRLF after keyword", "1 0 obj\n<< /Length 5 >>\nstream\r\nhello\r\nendstream\nendobj", nil, "hello"},
		{"wrong length", "1 0 obj\n<< /Length 2 >>\nstream\nhello\nendstream\nendobj", nil, "hello"},
		{"missing length", "1 0 obj\n<< >>\nstream\nhello world\nendstream\nendobj", nil, "hello world"},
		{"indirect length", "1 0 obj\n<< /Length 9 0 R >>\nstream\nab\x00cd\nendstream\nendobj",
			lengthResolver{{Num: 9}: Int(5)}, "ab\x00cd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser([]byte(tt.input), 0)
			if tt.resolver != nil {
				p.SetReferenceResolver(tt.resolver)
			}
			ind, err := p.ParseIndirect()
			if err != nil {
				t.Fatalf("ParseIndirect failed: %v", err)
			}
			s, ok := ind.Object.(*Stream)
			if !ok {
				t.Fatalf("expected stream, got %T", ind.Object)
			}
			if string(s.Raw) != tt.want {
				t.Errorf("Raw = %q, want %q", s.Raw, tt.want)
			}
		})
	}
}

func TestParseStreamWithoutEnd(t *testing.T) {
	_, err := NewParser([]byte("1 0 obj\n<< >>\nstream\nabc"), 0).ParseIndirect()
	if !errors.Is(err, ErrMalformedObject) {
		t.Fatalf("expected ErrMalformedObject, got %v", err)
	}
}
