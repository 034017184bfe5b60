package font

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"

	"github.com/tsawler/pagedecode/core"
)

// Encoding maps single-byte character codes of a simple font to Unicode.
type Encoding struct {
	name  string
	table [256]rune
	// names holds the glyph name per code where one is known.
	names [256]string
}

// Name returns the encoding name, such as "WinAnsiEncoding".
func (e *Encoding) Name() string { return e.name }

// Decode returns the rune for code b, or 0 when the code is unmapped.
func (e *Encoding) Decode(b byte) rune { return e.table[b] }

// GlyphName returns the glyph name for code b when known.
func (e *Encoding) GlyphName(b byte) string { return e.names[b] }

// DecodeString decodes every byte of data, skipping unmapped codes.
func (e *Encoding) DecodeString(data []byte) string {
	var sb strings.Builder
	for _, b := range data {
		if r := e.table[b]; r != 0 {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

var (
	// StandardEncoding is Adobe's standard Latin text encoding, the default
	// for Type 1 fonts.
	StandardEncoding = fromNames("StandardEncoding", &standardNames)
	// WinAnsiEncoding is Windows code page 1252.
	WinAnsiEncoding = fromCharmap("WinAnsiEncoding", charmap.Windows1252)
	// MacRomanEncoding is the classic Mac OS Roman encoding.
	MacRomanEncoding = fromCharmap("MacRomanEncoding", charmap.Macintosh)
	// PDFDocEncoding is the encoding of PDF text strings.
	PDFDocEncoding = fromFunc("PDFDocEncoding", core.PDFDocRune)
	// SymbolEncoding is the built-in encoding of the Symbol font.
	SymbolEncoding = fromNames("SymbolEncoding", &symbolNames)
)

func fromCharmap(name string, cm *charmap.Charmap) *Encoding {
	e := &Encoding{name: name}
	for i := 32; i < 256; i++ {
		r := cm.DecodeByte(byte(i))
		if r == 0x7F || r >= 0x80 && r < 0xA0 || r == 0xFFFD {
			continue
		}
		e.table[i] = r
	}
	// PDF maps the undefined Windows codes and DEL to the bullet.
	if name == "WinAnsiEncoding" {
		for _, c := range []byte{0x7F, 0x81, 0x8D, 0x8F, 0x90, 0x9D} {
			e.table[c] = '•'
		}
		e.table[0xA0] = ' '
	}
	return e
}

func fromFunc(name string, fn func(byte) rune) *Encoding {
	e := &Encoding{name: name}
	for i := 0; i < 256; i++ {
		if r := fn(byte(i)); r != 0xFFFD {
			e.table[i] = r
		}
	}
	return e
}

func fromNames(name string, names *[256]string) *Encoding {
	e := &Encoding{name: name, names: *names}
	for i, n := range names {
		if n == "" {
			continue
		}
		if r, ok := glyphNames[n]; ok {
			e.table[i] = r
		}
	}
	return e
}

// GetEncoding returns the predefined encoding with the given name, falling
// back to StandardEncoding.
func GetEncoding(name string) *Encoding {
	switch name {
	case "WinAnsiEncoding":
		return WinAnsiEncoding
	case "MacRomanEncoding", "MacExpertEncoding":
		return MacRomanEncoding
	case "PDFDocEncoding":
		return PDFDocEncoding
	case "SymbolEncoding":
		return SymbolEncoding
	}
	return StandardEncoding
}

// NewCustomEncoding overlays rune mappings on base.
func NewCustomEncoding(base *Encoding, differences map[byte]rune) *Encoding {
	e := &Encoding{name: base.name + "+custom", table: base.table, names: base.names}
	for code, r := range differences {
		e.table[code] = r
		e.names[code] = ""
	}
	return e
}

// NewCustomEncodingFromGlyphs overlays glyph names on base, as a
// /Differences array does. Names with no Unicode value leave the code
// unmapped.
func NewCustomEncodingFromGlyphs(base *Encoding, differences map[byte]string) *Encoding {
	e := &Encoding{name: base.name + "+custom", table: base.table, names: base.names}
	for code, name := range differences {
		e.names[code] = name
		e.table[code] = 0
		if s, ok := GlyphText(name); ok {
			if rs := []rune(s); len(rs) == 1 {
				e.table[code] = rs[0]
			}
		}
	}
	return e
}

// ParseDifferences reads a /Differences array into a code to glyph name map.
func ParseDifferences(arr core.Array) map[byte]string {
	out := make(map[byte]string)
	code := -1
	for _, item := range arr {
		switch v := item.(type) {
		case core.Int:
			code = int(v)
		case core.Real:
			code = int(v)
		case core.Name:
			if code >= 0 && code < 256 {
				out[byte(code)] = string(v)
			}
			code++
		}
	}
	return out
}

// NormalizeUnicode returns s in NFC form.
func NormalizeUnicode(s string) string {
	return norm.NFC.String(s)
}

var standardNames = [256]string{
	32: "space", "exclam", "quotedbl", "numbersign", "dollar", "percent", "ampersand", "quoteright",
	"parenleft", "parenright", "asterisk", "plus", "comma", "hyphen", "period", "slash",
	"zero", "one", "two", "three", "four", "five", "six", "seven",
	"eight", "nine", "colon", "semicolon", "less", "equal", "greater", "question",
	"at", "A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M", "N", "O",
	"P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z",
	"bracketleft", "backslash", "bracketright", "asciicircum", "underscore",
	"quoteleft", "a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n", "o",
	"p", "q", "r", "s", "t", "u", "v", "w", "x", "y", "z",
	"braceleft", "bar", "braceright", "asciitilde",
	161: "exclamdown", "cent", "sterling", "fraction", "yen", "florin", "section",
	"currency", "quotesingle", "quotedblleft", "guillemotleft", "guilsinglleft",
	"guilsinglright", "fi", "fl",
	177: "endash", "dagger", "daggerdbl", "periodcentered",
	182: "paragraph", "bullet", "quotesinglbase", "quotedblbase", "quotedblright",
	"guillemotright", "ellipsis", "perthousand",
	191: "questiondown",
	193: "grave", "acute", "circumflex", "tilde", "macron", "breve", "dotaccent", "dieresis",
	202: "ring", "cedilla",
	205: "hungarumlaut", "ogonek", "caron", "emdash",
	225: "AE",
	227: "ordfeminine",
	232: "Lslash", "Oslash", "OE", "ordmasculine",
	241: "ae",
	245: "dotlessi",
	248: "lslash", "oslash", "oe", "germandbls",
}

var symbolNames = [256]string{
	32: "space", "exclam", "universal", "numbersign", "existential", "percent", "ampersand", "suchthat",
	"parenleft", "parenright", "asteriskmath", "plus", "comma", "minus", "period", "slash",
	"zero", "one", "two", "three", "four", "five", "six", "seven",
	"eight", "nine", "colon", "semicolon", "less", "equal", "greater", "question",
	"congruent", "Alpha", "Beta", "Chi", "Delta", "Epsilon", "Phi", "Gamma",
	"Eta", "Iota", "theta1", "Kappa", "Lambda", "Mu", "Nu", "Omicron",
	"Pi", "Theta", "Rho", "Sigma", "Tau", "Upsilon", "sigma1", "Omega",
	"Xi", "Psi", "Zeta", "bracketleft", "therefore", "bracketright", "perpendicular", "underscore",
	"radicalex", "alpha", "beta", "chi", "delta", "epsilon", "phi", "gamma",
	"eta", "iota", "phi1", "kappa", "lambda", "mu", "nu", "omicron",
	"pi", "theta", "rho", "sigma", "tau", "upsilon", "omega1", "omega",
	"xi", "psi", "zeta", "braceleft", "bar", "braceright", "similar",
	160: "Euro", "Upsilon1", "minute", "lessequal", "fraction", "infinity", "florin", "club",
	"diamond", "heart", "spade", "arrowboth", "arrowleft", "arrowup", "arrowright", "arrowdown",
	"degree", "plusminus", "second", "greaterequal", "multiply", "proportional", "partialdiff", "bullet",
	"divide", "notequal", "equivalence", "approxequal", "ellipsis",
	192: "aleph", "Ifraktur", "Rfraktur", "weierstrass", "circlemultiply", "circleplus", "emptyset",
	"intersection", "union", "propersuperset", "reflexsuperset", "notsubset", "propersubset",
	"reflexsubset", "element", "notelement", "angle", "gradient",
	214: "radical", "dotmath", "logicalnot", "logicaland", "logicalor",
	224: "lozenge",
	229: "summation",
	242: "integral",
}
