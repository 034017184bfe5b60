package font

import (
	"bytes"
	"strconv"
	"unicode/utf16"

	"github.com/tsawler/pagedecode/core"
)

// CMap maps character codes to Unicode text (ToUnicode CMaps) or to CIDs
// (encoding CMaps embedded in Type0 fonts). Codes are split into 1 to 4
// bytes using the codespace ranges.
type CMap struct {
	Name string
	// Vertical is set by /WMode 1.
	Vertical bool

	codespace []codespaceRange
	chars     map[codeKey]string
	ranges    []bfRange
	cidChars  map[codeKey]int
	cidRanges []cidRange
}

type codeKey struct {
	code uint32
	n    int
}

type codespaceRange struct {
	low, high uint32
	n         int
}

// bfRange maps [low, high] to dst with its last rune incremented per code.
type bfRange struct {
	low, high uint32
	n         int
	dst       []rune
}

type cidRange struct {
	low, high uint32
	n         int
	cid       int
}

// NewCMap returns an empty CMap.
func NewCMap() *CMap {
	return &CMap{chars: make(map[codeKey]string), cidChars: make(map[codeKey]int)}
}

// maxCMapArray bounds the destination arrays of bfrange entries.
const maxCMapArray = 1 << 16

// ParseCMap parses CMap program text. Unparseable entries are skipped, so
// the result is always usable.
func ParseCMap(data []byte) *CMap {
	cm := NewCMap()
	lex := core.NewLexer(data, 0)
	var prev []core.Token
	for {
		tok, err := lex.Next()
		if err != nil {
			// Skip one byte past the bad token.
			lex.Seek(lex.Pos() + 1)
			continue
		}
		if tok.Type == core.TokenEOF {
			return cm
		}
		if tok.Type != core.TokenKeyword {
			prev = append(prev, tok)
			if len(prev) > 4 {
				prev = prev[1:]
			}
			continue
		}
		switch string(tok.Value) {
		case "begincodespacerange":
			cm.readCodespace(lex)
		case "beginbfchar":
			cm.readBfChar(lex)
		case "beginbfrange":
			cm.readBfRange(lex)
		case "begincidchar":
			cm.readCIDChar(lex)
		case "begincidrange":
			cm.readCIDRange(lex)
		case "def":
			if len(prev) >= 2 && prev[len(prev)-2].Type == core.TokenName {
				key, val := string(prev[len(prev)-2].Value), prev[len(prev)-1]
				switch {
				case key == "WMode" && val.Type == core.TokenInteger:
					cm.Vertical = string(val.Value) == "1"
				case key == "CMapName" && val.Type == core.TokenName:
					cm.Name = string(val.Value)
				}
			}
		}
		prev = prev[:0]
	}
}

// section reads tokens up to the keyword end and groups them into entries
// of the given arity. Arrays are flattened into a single entry element.
func section(lex *core.Lexer, end string, arity int, fn func([]entryTok)) {
	var cur []entryTok
	for {
		tok, err := lex.Next()
		if err != nil || tok.Type == core.TokenEOF {
			return
		}
		if tok.Type == core.TokenKeyword && string(tok.Value) == end {
			return
		}
		var e entryTok
		if tok.Type == core.TokenArrayStart {
			e.array = readArray(lex)
		} else {
			e.tok = tok
		}
		cur = append(cur, e)
		if len(cur) == arity {
			fn(cur)
			cur = cur[:0]
		}
	}
}

type entryTok struct {
	tok   core.Token
	array []core.Token
}

func readArray(lex *core.Lexer) []core.Token {
	var out []core.Token
	for {
		tok, err := lex.Next()
		if err != nil || tok.Type == core.TokenEOF || tok.Type == core.TokenArrayEnd {
			return out
		}
		if len(out) < maxCMapArray {
			out = append(out, tok)
		}
	}
}

func codeOf(t core.Token) (uint32, int, bool) {
	if t.Type != core.TokenHexString && t.Type != core.TokenString {
		return 0, 0, false
	}
	b := t.Value
	if len(b) == 0 || len(b) > 4 {
		return 0, 0, false
	}
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v, len(b), true
}

func (cm *CMap) readCodespace(lex *core.Lexer) {
	section(lex, "endcodespacerange", 2, func(e []entryTok) {
		lo, n, ok1 := codeOf(e[0].tok)
		hi, m, ok2 := codeOf(e[1].tok)
		if ok1 && ok2 && n == m {
			cm.codespace = append(cm.codespace, codespaceRange{low: lo, high: hi, n: n})
		}
	})
}

func (cm *CMap) readBfChar(lex *core.Lexer) {
	section(lex, "endbfchar", 2, func(e []entryTok) {
		code, n, ok := codeOf(e[0].tok)
		if !ok {
			return
		}
		if s, ok := destination(e[1].tok); ok {
			cm.chars[codeKey{code, n}] = s
		}
	})
}

func (cm *CMap) readBfRange(lex *core.Lexer) {
	section(lex, "endbfrange", 3, func(e []entryTok) {
		lo, n, ok1 := codeOf(e[0].tok)
		hi, m, ok2 := codeOf(e[1].tok)
		if !ok1 || !ok2 || n != m || hi < lo {
			return
		}
		if e[2].array != nil {
			for i, t := range e[2].array {
				code := lo + uint32(i)
				if code > hi {
					break
				}
				if s, ok := destination(t); ok {
					cm.chars[codeKey{code, n}] = s
				}
			}
			return
		}
		if s, ok := destination(e[2].tok); ok && s != "" {
			cm.ranges = append(cm.ranges, bfRange{low: lo, high: hi, n: n, dst: []rune(s)})
		}
	})
}

func (cm *CMap) readCIDChar(lex *core.Lexer) {
	section(lex, "endcidchar", 2, func(e []entryTok) {
		code, n, ok := codeOf(e[0].tok)
		cid, err := strconv.Atoi(string(e[1].tok.Value))
		if ok && err == nil && e[1].tok.Type == core.TokenInteger {
			cm.cidChars[codeKey{code, n}] = cid
		}
	})
}

func (cm *CMap) readCIDRange(lex *core.Lexer) {
	section(lex, "endcidrange", 3, func(e []entryTok) {
		lo, n, ok1 := codeOf(e[0].tok)
		hi, m, ok2 := codeOf(e[1].tok)
		cid, err := strconv.Atoi(string(e[2].tok.Value))
		if ok1 && ok2 && n == m && hi >= lo && err == nil {
			cm.cidRanges = append(cm.cidRanges, cidRange{low: lo, high: hi, n: n, cid: cid})
		}
	})
}

// destination decodes a bfchar/bfrange target: UTF-16BE bytes or a glyph
// name.
func destination(t core.Token) (string, bool) {
	switch t.Type {
	case core.TokenHexString, core.TokenString:
		return decodeUTF16BE(t.Value), true
	case core.TokenName:
		return GlyphText(string(t.Value))
	}
	return "", false
}

func decodeUTF16BE(b []byte) string {
	if len(b) == 1 {
		return string(rune(b[0]))
	}
	if bytes.HasPrefix(b, []byte{0xfe, 0xff}) {
		b = b[2:]
	}
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return string(utf16.Decode(units))
}

// HasCodespace reports whether the CMap declares codespace ranges.
func (cm *CMap) HasCodespace() bool { return cm != nil && len(cm.codespace) > 0 }

// NextCode splits the next character code from data. Without codespace
// ranges the code is defaultLen bytes long. It always consumes at least one
// byte of non-empty data.
func (cm *CMap) NextCode(data []byte, defaultLen int) (code uint32, n int) {
	if len(data) == 0 {
		return 0, 0
	}
	if cm.HasCodespace() {
		var v uint32
		for n := 1; n <= 4 && n <= len(data); n++ {
			v = v<<8 | uint32(data[n-1])
			for _, r := range cm.codespace {
				if r.n == n && v >= r.low && v <= r.high {
					return v, n
				}
			}
		}
		// Not in any range: consume the shortest declared length.
		shortest := 4
		for _, r := range cm.codespace {
			shortest = min(shortest, r.n)
		}
		defaultLen = shortest
	}
	defaultLen = max(1, min(defaultLen, len(data)))
	var v uint32
	for _, c := range data[:defaultLen] {
		v = v<<8 | uint32(c)
	}
	return v, defaultLen
}

// Lookup returns the Unicode text for a code of n bytes.
func (cm *CMap) Lookup(code uint32, n int) (string, bool) {
	if cm == nil {
		return "", false
	}
	if s, ok := cm.chars[codeKey{code, n}]; ok {
		return s, true
	}
	for _, r := range cm.ranges {
		if r.n == n && code >= r.low && code <= r.high {
			dst := append([]rune(nil), r.dst...)
			dst[len(dst)-1] += rune(code - r.low)
			return string(dst), true
		}
	}
	return "", false
}

// CID returns the CID for a code of n bytes.
func (cm *CMap) CID(code uint32, n int) (int, bool) {
	if cm == nil {
		return 0, false
	}
	if c, ok := cm.cidChars[codeKey{code, n}]; ok {
		return c, true
	}
	for _, r := range cm.cidRanges {
		if r.n == n && code >= r.low && code <= r.high {
			return r.cid + int(code-r.low), true
		}
	}
	return 0, false
}

// LookupString decodes data with the CMap. Codes without a mapping are
// dropped.
func (cm *CMap) LookupString(data []byte) string {
	var buf bytes.Buffer
	for len(data) > 0 {
		code, n := cm.NextCode(data, 1)
		if s, ok := cm.Lookup(code, n); ok {
			buf.WriteString(s)
		}
		data = data[n:]
	}
	return buf.String()
}

// IdentityCMap is the predefined Identity-H/V encoding: two-byte codes equal
// to their CIDs.
func IdentityCMap(vertical bool) *CMap {
	cm := NewCMap()
	cm.Vertical = vertical
	cm.Name = "Identity-H"
	if vertical {
		cm.Name = "Identity-V"
	}
	cm.codespace = []codespaceRange{{low: 0, high: 0xFFFF, n: 2}}
	cm.cidRanges = []cidRange{{low: 0, high: 0xFFFF, n: 2, cid: 0}}
	return cm
}
