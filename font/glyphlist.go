package font

import (
	"strconv"
	"strings"
)

// GlyphText maps a glyph name to its Unicode text. Besides the names in the
// glyph list it understands uniXXXX sequences, uXXXX[XX], ligatures joined
// with underscores, and suffixes after a period (a.sc, one.oldstyle).
func GlyphText(name string) (string, bool) {
	if r, ok := glyphNames[name]; ok {
		return string(r), true
	}
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
		if r, ok := glyphNames[name]; ok {
			return string(r), true
		}
	}
	if strings.Contains(name, "_") {
		var sb strings.Builder
		for _, part := range strings.Split(name, "_") {
			s, ok := GlyphText(part)
			if !ok {
				return "", false
			}
			sb.WriteString(s)
		}
		return sb.String(), true
	}
	if hex, ok := strings.CutPrefix(name, "uni"); ok && len(hex) >= 4 && len(hex)%4 == 0 {
		var sb strings.Builder
		for i := 0; i < len(hex); i += 4 {
			v, err := strconv.ParseUint(hex[i:i+4], 16, 16)
			if err != nil || v >= 0xD800 && v <= 0xDFFF {
				return "", false
			}
			sb.WriteRune(rune(v))
		}
		return sb.String(), true
	}
	if hex, ok := strings.CutPrefix(name, "u"); ok && len(hex) >= 4 && len(hex) <= 6 {
		v, err := strconv.ParseUint(hex, 16, 32)
		if err == nil && v <= 0x10FFFF && (v < 0xD800 || v > 0xDFFF) {
			return string(rune(v)), true
		}
	}
	return "", false
}

// glyphNames is the subset of the Adobe Glyph List covering Latin, Greek,
// punctuation, ligatures and the symbols found in the standard encodings.
var glyphNames = map[string]rune{
	"space": ' ', "exclam": '!', "quotedbl": '"', "numbersign": '#', "dollar": '$',
	"percent": '%', "ampersand": '&', "quotesingle": '\'', "parenleft": '(',
	"parenright": ')', "asterisk": '*', "plus": '+', "comma": ',', "hyphen": '-',
	"period": '.', "slash": '/', "zero": '0', "one": '1', "two": '2', "three": '3',
	"four": '4', "five": '5', "six": '6', "seven": '7', "eight": '8', "nine": '9',
	"colon": ':', "semicolon": ';', "less": '<', "equal": '=', "greater": '>',
	"question": '?', "at": '@', "bracketleft": '[', "backslash": '\\',
	"bracketright": ']', "asciicircum": '^', "underscore": '_', "grave": '`',
	"braceleft": '{', "bar": '|', "braceright": '}', "asciitilde": '~',

	"A": 'A', "B": 'B', "C": 'C', "D": 'D', "E": 'E', "F": 'F', "G": 'G', "H": 'H',
	"I": 'I', "J": 'J', "K": 'K', "L": 'L', "M": 'M', "N": 'N', "O": 'O', "P": 'P',
	"Q": 'Q', "R": 'R', "S": 'S', "T": 'T', "U": 'U', "V": 'V', "W": 'W', "X": 'X',
	"Y": 'Y', "Z": 'Z',
	"a": 'a', "b": 'b', "c": 'c', "d": 'd', "e": 'e', "f": 'f', "g": 'g', "h": 'h',
	"i": 'i', "j": 'j', "k": 'k', "l": 'l', "m": 'm', "n": 'n', "o": 'o', "p": 'p',
	"q": 'q', "r": 'r', "s": 's', "t": 't', "u": 'u', "v": 'v', "w": 'w', "x": 'x',
	"y": 'y', "z": 'z',

	"exclamdown": '¡', "cent": '¢', "sterling": '£', "currency": '¤', "yen": '¥',
	"brokenbar": '¦', "section": '§', "dieresis": '¨', "copyright": '©',
	"ordfeminine": 'ª', "guillemotleft": '«', "logicalnot": '¬', "registered": '®',
	"macron": '¯', "degree": '°', "plusminus": '±', "twosuperior": '²',
	"threesuperior": '³', "acute": '´', "mu": 'µ', "paragraph": '¶',
	"periodcentered": '·', "cedilla": '¸', "onesuperior": '¹', "ordmasculine": 'º',
	"guillemotright": '»', "onequarter": '¼', "onehalf": '½', "threequarters": '¾',
	"questiondown": '¿', "multiply": '×', "divide": '÷', "softhyphen": '\u00ad',
	"nbspace": '\u00a0',

	"Agrave": 'À', "Aacute": 'Á', "Acircumflex": 'Â', "Atilde": 'Ã', "Adieresis": 'Ä',
	"Aring": 'Å', "AE": 'Æ', "Ccedilla": 'Ç', "Egrave": 'È', "Eacute": 'É',
	"Ecircumflex": 'Ê', "Edieresis": 'Ë', "Igrave": 'Ì', "Iacute": 'Í',
	"Icircumflex": 'Î', "Idieresis": 'Ï', "Eth": 'Ð', "Ntilde": 'Ñ', "Ograve": 'Ò',
	"Oacute": 'Ó', "Ocircumflex": 'Ô', "Otilde": 'Õ', "Odieresis": 'Ö',
	"Oslash": 'Ø', "Ugrave": 'Ù', "Uacute": 'Ú', "Ucircumflex": 'Û',
	"Udieresis": 'Ü', "Yacute": 'Ý', "Thorn": 'Þ', "germandbls": 'ß',
	"agrave": 'à', "aacute": 'á', "acircumflex": 'â', "atilde": 'ã', "adieresis": 'ä',
	"aring": 'å', "ae": 'æ', "ccedilla": 'ç', "egrave": 'è', "eacute": 'é',
	"ecircumflex": 'ê', "edieresis": 'ë', "igrave": 'ì', "iacute": 'í',
	"icircumflex": 'î', "idieresis": 'ï', "eth": 'ð', "ntilde": 'ñ', "ograve": 'ò',
	"oacute": 'ó', "ocircumflex": 'ô', "otilde": 'õ', "odieresis": 'ö',
	"oslash": 'ø', "ugrave": 'ù', "uacute": 'ú', "ucircumflex": 'û',
	"udieresis": 'ü', "yacute": 'ý', "thorn": 'þ', "ydieresis": 'ÿ',

	"Amacron": 'Ā', "amacron": 'ā', "Abreve": 'Ă', "abreve": 'ă', "Aogonek": 'Ą',
	"aogonek": 'ą', "Cacute": 'Ć', "cacute": 'ć', "Ccaron": 'Č', "ccaron": 'č',
	"Dcaron": 'Ď', "dcaron": 'ď', "Dcroat": 'Đ', "dcroat": 'đ', "Emacron": 'Ē',
	"emacron": 'ē', "Edotaccent": 'Ė', "edotaccent": 'ė', "Eogonek": 'Ę',
	"eogonek": 'ę', "Ecaron": 'Ě', "ecaron": 'ě', "Gbreve": 'Ğ', "gbreve": 'ğ',
	"Gcommaaccent": 'Ģ', "gcommaaccent": 'ģ', "Imacron": 'Ī', "imacron": 'ī',
	"Iogonek": 'Į', "iogonek": 'į', "Idotaccent": 'İ', "dotlessi": 'ı',
	"Kcommaaccent": 'Ķ', "kcommaaccent": 'ķ', "Lacute": 'Ĺ', "lacute": 'ĺ',
	"Lcommaaccent": 'Ļ', "lcommaaccent": 'ļ', "Lcaron": 'Ľ', "lcaron": 'ľ',
	"Lslash": 'Ł', "lslash": 'ł', "Nacute": 'Ń', "nacute": 'ń', "Ncommaaccent": 'Ņ',
	"ncommaaccent": 'ņ', "Ncaron": 'Ň', "ncaron": 'ň', "Omacron": 'Ō',
	"omacron": 'ō', "Ohungarumlaut": 'Ő', "ohungarumlaut": 'ő', "OE": 'Œ',
	"oe": 'œ', "Racute": 'Ŕ', "racute": 'ŕ', "Rcommaaccent": 'Ŗ',
	"rcommaaccent": 'ŗ', "Rcaron": 'Ř', "rcaron": 'ř', "Sacute": 'Ś', "sacute": 'ś',
	"Scedilla": 'Ş', "scedilla": 'ş', "Scaron": 'Š', "scaron": 'š',
	"Tcommaaccent": 'Ţ', "tcommaaccent": 'ţ', "Tcaron": 'Ť', "tcaron": 'ť',
	"Umacron": 'Ū', "umacron": 'ū', "Uring": 'Ů', "uring": 'ů',
	"Uhungarumlaut": 'Ű', "uhungarumlaut": 'ű', "Uogonek": 'Ų', "uogonek": 'ų',
	"Ydieresis": 'Ÿ', "Zacute": 'Ź', "zacute": 'ź', "Zdotaccent": 'Ż',
	"zdotaccent": 'ż', "Zcaron": 'Ž', "zcaron": 'ž', "florin": 'ƒ',

	"circumflex": 'ˆ', "caron": 'ˇ', "breve": '˘', "dotaccent": '˙', "ring": '˚',
	"ogonek": '˛', "tilde": '˜', "hungarumlaut": '˝',

	"endash": '–', "emdash": '—', "quoteleft": '‘', "quoteright": '’',
	"quotesinglbase": '‚', "quotedblleft": '“', "quotedblright": '”',
	"quotedblbase": '„', "dagger": '†', "daggerdbl": '‡', "bullet": '•',
	"ellipsis": '…', "perthousand": '‰', "guilsinglleft": '‹',
	"guilsinglright": '›', "fraction": '⁄', "Euro": '€', "trademark": '™',
	"minus": '−', "fi": 'ﬁ', "fl": 'ﬂ', "ff": 'ﬀ', "ffi": 'ﬃ', "ffl": 'ﬄ',
	"lozenge": '◊', "notequal": '≠', "lessequal": '≤', "greaterequal": '≥',
	"infinity": '∞', "partialdiff": '∂', "summation": '∑', "product": '∏',
	"integral": '∫', "radical": '√', "approxequal": '≈', "Delta": 'Δ',
	"Omega": 'Ω', "pi": 'π', "mu1": 'µ', "dotmath": '⋅', "universal": '∀',
	"existential": '∃', "suchthat": '∋', "asteriskmath": '∗', "congruent": '≅',
	"therefore": '∴', "perpendicular": '⊥', "similar": '∼', "arrowleft": '←',
	"arrowright": '→', "arrowup": '↑', "arrowdown": '↓', "arrowboth": '↔',
	"element": '∈', "notelement": '∉', "intersection": '∩', "union": '∪',
	"propersubset": '⊂', "propersuperset": '⊃', "reflexsubset": '⊆',
	"reflexsuperset": '⊇', "logicaland": '∧', "logicalor": '∨', "emptyset": '∅',
	"gradient": '∇', "angle": '∠', "equivalence": '≡', "proportional": '∝',
	"club": '♣', "diamond": '♦', "heart": '♥', "spade": '♠', "aleph": 'ℵ',
	"weierstrass": '℘', "Ifraktur": 'ℑ', "Rfraktur": 'ℜ', "minute": '′',
	"second": '″', "circlemultiply": '⊗', "circleplus": '⊕',

	"Alpha": 'Α', "Beta": 'Β', "Gamma": 'Γ', "Epsilon": 'Ε', "Zeta": 'Ζ',
	"Eta": 'Η', "Theta": 'Θ', "Iota": 'Ι', "Kappa": 'Κ', "Lambda": 'Λ', "Mu": 'Μ',
	"Nu": 'Ν', "Xi": 'Ξ', "Omicron": 'Ο', "Pi": 'Π', "Rho": 'Ρ', "Sigma": 'Σ',
	"Tau": 'Τ', "Upsilon": 'Υ', "Phi": 'Φ', "Chi": 'Χ', "Psi": 'Ψ',
	"alpha": 'α', "beta": 'β', "gamma": 'γ', "delta": 'δ', "epsilon": 'ε',
	"zeta": 'ζ', "eta": 'η', "theta": 'θ', "iota": 'ι', "kappa": 'κ',
	"lambda": 'λ', "nu": 'ν', "xi": 'ξ', "omicron": 'ο', "rho": 'ρ',
	"sigma1": 'ς', "sigma": 'σ', "tau": 'τ', "upsilon": 'υ', "phi": 'φ',
	"chi": 'χ', "psi": 'ψ', "omega": 'ω', "theta1": 'ϑ', "Upsilon1": 'ϒ',
	"phi1": 'ϕ', "omega1": 'ϖ',

	"a1": '✁', "a2": '✂', "a3": '✃', "a4": '✄', "a5": '☎', "a10": '✡',
	"a12": '☛', "a13": '☞', "a20": '✔', "a22": '✖', "a71": '●', "a72": '❍',
	"a73": '■', "a109": '♠', "a110": '♥', "a111": '♦', "a112": '♣',
}
