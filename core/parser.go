package core

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// ReferenceResolver resolves indirect references met while parsing, which
// is needed when a stream's /Length is itself an indirect object.
type ReferenceResolver interface {
	ResolveReference(ref ObjectRef) (Object, error)
}

// Parser builds PDF objects from a Lexer.
type Parser struct {
	lex      *Lexer
	resolver ReferenceResolver
	limits   Limits
	depth    int
}

// NewParser creates a parser over data whose first byte sits at file offset
// base.
func NewParser(data []byte, base int64) *Parser {
	return &Parser{lex: NewLexer(data, base), limits: DefaultLimits()}
}

// SetReferenceResolver installs the resolver used for indirect stream lengths.
func (p *Parser) SetReferenceResolver(r ReferenceResolver) { p.resolver = r }

// SetLimits replaces the parser limits.
func (p *Parser) SetLimits(l Limits) { p.limits = l }

// Lexer exposes the underlying lexer.
func (p *Parser) Lexer() *Lexer { return p.lex }

// ParseObject parses the next direct object. Indirect references are
// returned as ObjectRef values. io.EOF is returned at end of input.
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.lex.Next()
	if err != nil {
		return nil, err
	}
	return p.objectFrom(tok)
}

func (p *Parser) objectFrom(tok Token) (Object, error) {
	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF
	case TokenInteger:
		return p.integerOrRef(tok)
	case TokenReal:
		return parseReal(tok.Value), nil
	case TokenString, TokenHexString:
		return String(tok.Value), nil
	case TokenName:
		return Name(tok.Value), nil
	case TokenArrayStart:
		return p.array(tok.Pos)
	case TokenDictStart:
		return p.dict(tok.Pos)
	case TokenKeyword:
		switch string(tok.Value) {
		case "null":
			return Null{}, nil
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return nil, syntaxErrorf(tok.Pos, "unexpected keyword %q", tok.Value)
	}
	return nil, syntaxErrorf(tok.Pos, "unexpected token %q", tok.Value)
}

// integerOrRef looks ahead for the "num gen R" pattern.
func (p *Parser) integerOrRef(first Token) (Object, error) {
	n, err := strconv.ParseInt(string(first.Value), 10, 64)
	if err != nil {
		return parseReal(first.Value), nil
	}
	save := p.lex.Pos()
	second, err := p.lex.Next()
	if err == nil && second.Type == TokenInteger {
		third, err := p.lex.Next()
		if err == nil && third.is(TokenKeyword, "R") {
			gen, _ := strconv.Atoi(string(second.Value))
			return ObjectRef{Num: int(n), Gen: gen}, nil
		}
	}
	p.lex.Seek(save)
	return Int(n), nil
}

func (p *Parser) enter(pos int64) error {
	p.depth++
	if p.limits.MaxNesting > 0 && p.depth > p.limits.MaxNesting {
		return syntaxErrorf(pos, "nesting deeper than %d", p.limits.MaxNesting)
	}
	return nil
}

func (p *Parser) array(pos int64) (Object, error) {
	if err := p.enter(pos); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	arr := Array{}
	for {
		tok, err := p.lex.Next()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			return arr, nil
		case TokenEOF:
			return nil, syntaxErrorf(pos, "unterminated array")
		case TokenDictEnd:
			// Recover from a stray ">>" inside an array.
			return arr, nil
		}
		obj, err := p.objectFrom(tok)
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) dict(pos int64) (Object, error) {
	if err := p.enter(pos); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	d := Dict{}
	for {
		tok, err := p.lex.Next()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenDictEnd:
			return d, nil
		case TokenEOF:
			return nil, syntaxErrorf(pos, "unterminated dictionary")
		case TokenName:
		default:
			return nil, syntaxErrorf(tok.Pos, "dictionary key must be a name, got %q", tok.Value)
		}
		key := string(tok.Value)

		valTok, err := p.lex.Next()
		if err != nil {
			return nil, err
		}
		if valTok.Type == TokenDictEnd {
			// "/Key >>" with a missing value: treat as null and close.
			return d, nil
		}
		val, err := p.objectFrom(valTok)
		if err != nil {
			return nil, fmt.Errorf("value for /%s: %w", key, err)
		}
		if _, isNull := val.(Null); !isNull {
			d[key] = val
		}
	}
}

// ParseIndirect parses "num gen obj ... endobj" at the current position,
// including a trailing stream body.
func (p *Parser) ParseIndirect() (*IndirectObject, error) {
	start := p.lex.offset()
	numTok, err := p.lex.Next()
	if err != nil {
		return nil, err
	}
	genTok, err := p.lex.Next()
	if err != nil {
		return nil, err
	}
	objTok, err := p.lex.Next()
	if err != nil {
		return nil, err
	}
	if numTok.Type != TokenInteger || genTok.Type != TokenInteger || !objTok.is(TokenKeyword, "obj") {
		return nil, syntaxErrorf(start, "expected object header, got %q %q %q", numTok.Value, genTok.Value, objTok.Value)
	}
	num, _ := strconv.Atoi(string(numTok.Value))
	gen, _ := strconv.Atoi(string(genTok.Value))
	ref := ObjectRef{Num: num, Gen: gen}

	tok, err := p.lex.Next()
	if err != nil {
		return nil, err
	}
	var obj Object
	if tok.is(TokenKeyword, "endobj") {
		return &IndirectObject{Ref: ref, Object: Null{}}, nil
	}
	obj, err = p.objectFrom(tok)
	if err != nil {
		return nil, fmt.Errorf("object %v: %w", ref, err)
	}

	next, err := p.lex.Peek()
	if err != nil {
		return nil, err
	}
	if next.is(TokenKeyword, "stream") {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, syntaxErrorf(next.Pos, "stream keyword after %s", obj.Kind())
		}
		p.lex.Next()
		stream, err := p.streamBody(dict)
		if err != nil {
			return nil, fmt.Errorf("object %v: %w", ref, err)
		}
		obj = stream
		next, _ = p.lex.Peek()
	}
	if next.is(TokenKeyword, "endobj") {
		p.lex.Next()
	}
	return &IndirectObject{Ref: ref, Object: obj}, nil
}

// streamBody reads stream data after the "stream" keyword. When /Length is
// missing or wrong the data is delimited by searching for "endstream".
func (p *Parser) streamBody(dict Dict) (*Stream, error) {
	p.lex.SkipEOL()
	data := p.lex.Data()
	start := p.lex.Pos()

	length := int64(-1)
	switch v := dict["Length"].(type) {
	case Int:
		length = int64(v)
	case ObjectRef:
		if p.resolver != nil {
			if obj, err := p.resolver.ResolveReference(v); err == nil {
				if n, ok := obj.(Int); ok {
					length = int64(n)
				}
			}
		}
	}

	if length >= 0 && start+int(length) <= len(data) {
		end := start + int(length)
		p.lex.Seek(end)
		if tok, err := p.lex.Peek(); err == nil && tok.is(TokenKeyword, "endstream") {
			p.lex.Next()
			return &Stream{Dict: dict, Raw: data[start:end]}, nil
		}
	}

	idx := bytes.Index(data[start:], []byte("endstream"))
	if idx < 0 {
		return nil, syntaxErrorf(p.lex.base+int64(start), "stream without endstream")
	}
	end := start + idx
	p.lex.Seek(end + len("endstream"))
	if end > start && data[end-1] == '\n' {
		end--
	}
	if end > start && data[end-1] == '\r' {
		end--
	}
	return &Stream{Dict: dict, Raw: data[start:end]}, nil
}

func parseReal(b []byte) Real {
	f, err := strconv.ParseFloat(string(b), 64)
	if err == nil {
		return Real(f)
	}
	// Salvage a leading numeric prefix of malformed numbers such as "1.2.3".
	for n := len(b) - 1; n > 0; n-- {
		if f, err := strconv.ParseFloat(string(b[:n]), 64); err == nil {
			return Real(f)
		}
	}
	return 0
}
