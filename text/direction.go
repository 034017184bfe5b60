package text

import (
	"unicode"

	"github.com/tsawler/pagedecode/interpreter"
)

// Direction represents the writing direction of text.
type Direction int

const (
	// LTR (Left-to-Right) for Latin, Cyrillic, CJK, etc.
	LTR Direction = iota
	// RTL (Right-to-Left) for Arabic, Hebrew, etc.
	RTL
	// Neutral for numbers, punctuation, etc.
	Neutral
)

// String returns "LTR", "RTL" or "Neutral".
func (d Direction) String() string {
	switch d {
	case LTR:
		return "LTR"
	case RTL:
		return "RTL"
	case Neutral:
		return "Neutral"
	default:
		return "Unknown"
	}
}

// rtlScripts are the scripts written right to left.
var rtlScripts = []*unicode.RangeTable{
	unicode.Arabic,
	unicode.Hebrew,
	unicode.Syriac,
	unicode.Thaana,
	unicode.Nko,
	unicode.Samaritan,
	unicode.Mandaic,
}

// DetectDirection returns the dominant direction of text: the direction
// with more strong characters, or Neutral when there are none.
func DetectDirection(text string) Direction {
	ltr, rtl := countDirections(text)
	switch {
	case ltr == 0 && rtl == 0:
		return Neutral
	case rtl > ltr:
		return RTL
	}
	return LTR
}

func countDirections(text string) (ltr, rtl int) {
	for _, r := range text {
		switch GetCharDirection(r) {
		case LTR:
			ltr++
		case RTL:
			rtl++
		}
	}
	return ltr, rtl
}

// GetCharDirection returns the inherent direction of r. Digits,
// punctuation, white space and symbols are Neutral.
func GetCharDirection(r rune) Direction {
	if unicode.IsDigit(r) || unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
		return Neutral
	}
	if unicode.In(r, rtlScripts...) {
		return RTL
	}
	// Presentation forms are outside the script tables' core blocks.
	if (r >= 0xFB1D && r <= 0xFDFF) || (r >= 0xFE70 && r <= 0xFEFF) {
		return RTL
	}
	return LTR
}

// lineDirection is the dominant direction over the runs of a line,
// defaulting to LTR.
func lineDirection(runs []*interpreter.GlyphRun) Direction {
	ltr, rtl := 0, 0
	for _, r := range runs {
		l, rt := countDirections(r.Text)
		ltr += l
		rtl += rt
	}
	if rtl > ltr {
		return RTL
	}
	return LTR
}
