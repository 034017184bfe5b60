package core

import (
	"bytes"
)

// TokenType classifies a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenKeyword     // true, false, null, obj, endobj, stream, R, xref, trailer, ...
	TokenInteger     // 123
	TokenReal        // 3.14
	TokenString      // (hello)
	TokenHexString   // <48656C6C6F>
	TokenName        // /Type
	TokenArrayStart  // [
	TokenArrayEnd    // ]
	TokenDictStart   // <<
	TokenDictEnd     // >>
)

// Token is one lexical unit. Value holds the decoded payload for strings and
// names and the literal text for everything else.
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int64
}

func (t Token) is(typ TokenType, val string) bool {
	return t.Type == typ && string(t.Value) == val
}

// Lexer splits PDF bytes into tokens. It works over an in-memory buffer so
// callers can reposition it freely.
type Lexer struct {
	data []byte
	pos  int
	base int64
}

// NewLexer creates a lexer over data. base is the file offset of data[0] and
// is only used for reported positions.
func NewLexer(data []byte, base int64) *Lexer {
	return &Lexer{data: data, base: base}
}

// Pos returns the current offset relative to the start of the buffer.
func (l *Lexer) Pos() int { return l.pos }

// Seek moves to buffer offset pos.
func (l *Lexer) Seek(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(l.data) {
		pos = len(l.data)
	}
	l.pos = pos
}

// Data returns the underlying buffer.
func (l *Lexer) Data() []byte { return l.data }

func (l *Lexer) offset() int64 { return l.base + int64(l.pos) }

// SkipSpace skips whitespace and comments.
func (l *Lexer) SkipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if IsWhitespace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// Next returns the next token.
func (l *Lexer) Next() (Token, error) {
	l.SkipSpace()
	start := l.offset()
	if l.pos >= len(l.data) {
		return Token{Type: TokenEOF, Pos: start}, nil
	}

	c := l.data[l.pos]
	switch c {
	case '[':
		l.pos++
		return Token{Type: TokenArrayStart, Value: []byte{'['}, Pos: start}, nil
	case ']':
		l.pos++
		return Token{Type: TokenArrayEnd, Value: []byte{']'}, Pos: start}, nil
	case '(':
		return l.literalString()
	case '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.pos += 2
			return Token{Type: TokenDictStart, Value: []byte("<<"), Pos: start}, nil
		}
		return l.hexString()
	case '>':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '>' {
			l.pos += 2
			return Token{Type: TokenDictEnd, Value: []byte(">>"), Pos: start}, nil
		}
		return Token{}, syntaxErrorf(start, "unexpected '>'")
	case '/':
		return l.name(), nil
	case ')', '{', '}':
		l.pos++
		return Token{Type: TokenKeyword, Value: []byte{c}, Pos: start}, nil
	}

	if IsDigit(c) || c == '-' || c == '+' || c == '.' {
		return l.number(), nil
	}
	return l.keyword(), nil
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (Token, error) {
	save := l.pos
	tok, err := l.Next()
	l.pos = save
	return tok, err
}

func (l *Lexer) literalString() (Token, error) {
	start := l.offset()
	l.pos++ // (
	var buf bytes.Buffer
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			buf.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				return Token{Type: TokenString, Value: buf.Bytes(), Pos: start}, nil
			}
			buf.WriteByte(c)
		case '\\':
			if l.pos >= len(l.data) {
				break
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			case '0', '1', '2', '3', '4', '5', '6', '7':
				v := int(e - '0')
				for i := 0; i < 2 && l.pos < len(l.data) && isOctal(l.data[l.pos]); i++ {
					v = v*8 + int(l.data[l.pos]-'0')
					l.pos++
				}
				buf.WriteByte(byte(v))
			default:
				buf.WriteByte(e)
			}
		default:
			buf.WriteByte(c)
		}
	}
	return Token{}, syntaxErrorf(start, "unterminated string")
}

func (l *Lexer) hexString() (Token, error) {
	start := l.offset()
	l.pos++ // <
	out := make([]byte, 0, 16)
	var hi byte
	half := false
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			if half {
				out = append(out, hi<<4)
			}
			return Token{Type: TokenHexString, Value: out, Pos: start}, nil
		}
		if IsWhitespace(c) {
			continue
		}
		v, ok := hexNibble(c)
		if !ok {
			return Token{}, syntaxErrorf(l.offset()-1, "invalid hex digit %q", c)
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	return Token{}, syntaxErrorf(start, "unterminated hex string")
}

func (l *Lexer) name() Token {
	start := l.offset()
	l.pos++ // /
	var buf bytes.Buffer
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if IsWhitespace(c) || IsDelimiter(c) {
			break
		}
		l.pos++
		if c == '#' && l.pos+1 < len(l.data) {
			h1, ok1 := hexNibble(l.data[l.pos])
			h2, ok2 := hexNibble(l.data[l.pos+1])
			if ok1 && ok2 {
				buf.WriteByte(h1<<4 | h2)
				l.pos += 2
				continue
			}
		}
		buf.WriteByte(c)
	}
	return Token{Type: TokenName, Value: buf.Bytes(), Pos: start}
}

func (l *Lexer) number() Token {
	start := l.pos
	isReal := false
	if c := l.data[l.pos]; c == '-' || c == '+' {
		l.pos++
	}
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if c == '.' && !isReal {
			isReal = true
		} else if !IsDigit(c) {
			break
		}
		l.pos++
	}
	// Tolerate junk like "--5" or "1.2.3" by swallowing the regular run.
	for l.pos < len(l.data) && !IsWhitespace(l.data[l.pos]) && !IsDelimiter(l.data[l.pos]) {
		if c := l.data[l.pos]; c == '.' || c == '-' || IsDigit(c) {
			isReal = true
			l.pos++
			continue
		}
		break
	}
	typ := TokenInteger
	if isReal {
		typ = TokenReal
	}
	return Token{Type: typ, Value: l.data[start:l.pos], Pos: l.base + int64(start)}
}

func (l *Lexer) keyword() Token {
	start := l.pos
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if IsWhitespace(c) || IsDelimiter(c) {
			break
		}
		l.pos++
	}
	if l.pos == start {
		l.pos++
	}
	return Token{Type: TokenKeyword, Value: l.data[start:l.pos], Pos: l.base + int64(start)}
}

// SkipEOL consumes a single end-of-line marker (LF, CR LF or a lone CR).
func (l *Lexer) SkipEOL() {
	if l.pos < len(l.data) && l.data[l.pos] == '\r' {
		l.pos++
	}
	if l.pos < len(l.data) && l.data[l.pos] == '\n' {
		l.pos++
	}
}

// IsWhitespace reports whether c is PDF whitespace.
func IsWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == 0
}

// IsDelimiter reports whether c is a PDF delimiter.
func IsDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// IsDigit reports whether c is an ASCII digit.
func IsDigit(c byte) bool { return c >= '0' && c <= '9' }

func isOctal(c byte) bool { return c >= '0' && c <= '7' }

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
