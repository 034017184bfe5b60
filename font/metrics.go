package font

import "strings"

// Widths of the standard 14 fonts in 1000ths of an em for the printable
// ASCII range, indexed from the space character.
var (
	helveticaASCII = [95]float64{
		278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
		1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
		333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
		556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
	}
	helveticaBoldASCII = [95]float64{
		278, 333, 474, 556, 556, 889, 722, 238, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 333, 333, 584, 584, 584, 611,
		975, 722, 722, 722, 722, 667, 611, 778, 722, 278, 556, 722, 611, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 333, 278, 333, 584, 556,
		333, 556, 611, 556, 611, 556, 333, 611, 611, 278, 278, 556, 278, 889, 611, 611,
		611, 611, 389, 556, 333, 611, 556, 778, 556, 556, 500, 389, 280, 389, 584,
	}
	timesASCII = [95]float64{
		250, 333, 408, 500, 500, 833, 778, 180, 333, 333, 500, 564, 250, 333, 250, 278,
		500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 278, 278, 564, 564, 564, 444,
		921, 722, 667, 667, 722, 611, 556, 722, 722, 333, 389, 722, 611, 889, 722, 722,
		556, 722, 667, 556, 611, 722, 722, 944, 722, 722, 611, 333, 278, 333, 469, 500,
		333, 444, 500, 444, 500, 444, 333, 500, 500, 278, 278, 500, 278, 778, 500, 500,
		500, 500, 333, 389, 278, 500, 500, 722, 500, 500, 444, 480, 200, 480, 541,
	}
	timesBoldASCII = [95]float64{
		250, 333, 555, 500, 500, 1000, 833, 278, 333, 333, 500, 570, 250, 333, 250, 278,
		500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 333, 333, 570, 570, 570, 500,
		930, 722, 667, 722, 722, 667, 611, 778, 778, 389, 500, 778, 667, 944, 722, 778,
		611, 778, 722, 556, 667, 722, 722, 1000, 722, 722, 667, 333, 278, 333, 581, 500,
		333, 500, 556, 444, 556, 444, 333, 500, 556, 278, 333, 556, 278, 833, 556, 500,
		556, 556, 444, 389, 333, 556, 500, 722, 500, 500, 444, 394, 220, 394, 520,
	}
)

type standardMetrics struct {
	ascii *[95]float64
	// fixed is the advance of every glyph of a monospaced font.
	fixed float64
	extra map[rune]float64
}

var (
	sansExtra  = map[rune]float64{'‘': 222, '’': 222, '“': 333, '”': 333, '–': 556, '—': 1000, '•': 350, '…': 1000, '€': 556}
	serifExtra = map[rune]float64{'‘': 333, '’': 333, '“': 444, '”': 444, '–': 500, '—': 1000, '•': 350, '…': 1000, '€': 500}
)

// Oblique and italic faces share the upright widths.
var standardFonts = map[string]standardMetrics{
	"Helvetica":             {ascii: &helveticaASCII, extra: sansExtra},
	"Helvetica-Oblique":     {ascii: &helveticaASCII, extra: sansExtra},
	"Helvetica-Bold":        {ascii: &helveticaBoldASCII, extra: sansExtra},
	"Helvetica-BoldOblique": {ascii: &helveticaBoldASCII, extra: sansExtra},
	"Times-Roman":           {ascii: &timesASCII, extra: serifExtra},
	"Times-Italic":          {ascii: &timesASCII, extra: serifExtra},
	"Times-Bold":            {ascii: &timesBoldASCII, extra: serifExtra},
	"Times-BoldItalic":      {ascii: &timesBoldASCII, extra: serifExtra},
	"Courier":               {fixed: 600},
	"Courier-Oblique":       {fixed: 600},
	"Courier-Bold":          {fixed: 600},
	"Courier-BoldOblique":   {fixed: 600},
	"Symbol":                {fixed: 500},
	"ZapfDingbats":          {fixed: 500},
}

// standardAliases maps common names of metric-compatible fonts to their
// standard 14 equivalent.
var standardAliases = map[string]string{
	"Arial":                    "Helvetica",
	"ArialMT":                  "Helvetica",
	"Arial,Bold":               "Helvetica-Bold",
	"Arial-BoldMT":             "Helvetica-Bold",
	"Arial,Italic":             "Helvetica-Oblique",
	"Arial-ItalicMT":           "Helvetica-Oblique",
	"Arial,BoldItalic":         "Helvetica-BoldOblique",
	"Arial-BoldItalicMT":       "Helvetica-BoldOblique",
	"TimesNewRoman":            "Times-Roman",
	"TimesNewRomanPSMT":        "Times-Roman",
	"TimesNewRoman,Bold":       "Times-Bold",
	"TimesNewRomanPS-BoldMT":   "Times-Bold",
	"TimesNewRoman,Italic":     "Times-Italic",
	"TimesNewRomanPS-ItalicMT": "Times-Italic",
	"CourierNew":               "Courier",
	"CourierNewPSMT":           "Courier",
	"CourierNew,Bold":          "Courier-Bold",
	"CourierNewPS-BoldMT":      "Courier-Bold",
}

// StandardFontName returns the standard 14 font that base names, after
// removing a subset prefix and resolving common aliases.
func StandardFontName(base string) (string, bool) {
	base = stripSubset(base)
	if _, ok := standardFonts[base]; ok {
		return base, true
	}
	if alias, ok := standardAliases[strings.ReplaceAll(base, " ", "")]; ok {
		return alias, true
	}
	return "", false
}

// IsStandardFont reports whether base names one of the standard 14 fonts or
// a metric-compatible alias.
func IsStandardFont(base string) bool {
	_, ok := StandardFontName(base)
	return ok
}

// StandardWidth returns the advance of r in a standard 14 font.
func StandardWidth(name string, r rune) (float64, bool) {
	m, ok := standardFonts[name]
	if !ok {
		return 0, false
	}
	if m.fixed > 0 {
		return m.fixed, true
	}
	if r >= ' ' && r <= '~' {
		return m.ascii[r-' '], true
	}
	w, ok := m.extra[r]
	return w, ok
}

// IsSubsetName reports whether name carries a subset tag such as "ABCDEF+".
func IsSubsetName(name string) bool {
	if len(name) < 8 || name[6] != '+' {
		return false
	}
	for i := 0; i < 6; i++ {
		if name[i] < 'A' || name[i] > 'Z' {
			return false
		}
	}
	return true
}

func stripSubset(name string) string {
	if IsSubsetName(name) {
		return name[7:]
	}
	return name
}
