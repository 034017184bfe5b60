package core

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// pdfDocHigh maps PDFDocEncoding bytes 0x80 to 0xA0 where they differ from
// Latin-1. Zero entries are undefined.
var pdfDocHigh = [...]rune{
	0x2022, 0x2020, 0x2021, 0x2026, 0x2014, 0x2013, 0x0192, 0x2044,
	0x2039, 0x203a, 0x2212, 0x2030, 0x201e, 0x201c, 0x201d, 0x2018,
	0x2019, 0x201a, 0x2122, 0xfb01, 0xfb02, 0x0141, 0x0152, 0x0160,
	0x0178, 0x017d, 0x0131, 0x0142, 0x0153, 0x0161, 0x017e, 0,
	0x20ac,
}

// pdfDocLow covers the accents at 0x18 to 0x1F.
var pdfDocLow = [...]rune{0x02d8, 0x02c7, 0x02c6, 0x02d9, 0x02dd, 0x02db, 0x02da, 0x02dc}

// PDFDocRune maps one PDFDocEncoding byte to Unicode. Undefined codes map
// to U+FFFD.
func PDFDocRune(b byte) rune {
	switch {
	case b >= 0x18 && b <= 0x1f:
		return pdfDocLow[b-0x18]
	case b >= 0x80 && b <= 0xa0:
		if r := pdfDocHigh[b-0x80]; r != 0 {
			return r
		}
		return utf8.RuneError
	case b == 0xad:
		return utf8.RuneError
	}
	return rune(b)
}

// DecodeTextString decodes a PDF text string: UTF-16 with a byte order
// mark, UTF-8 with a BOM, or PDFDocEncoding otherwise.
func DecodeTextString(s []byte) string {
	switch {
	case bytes.HasPrefix(s, []byte{0xfe, 0xff}):
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(s)
		if err == nil {
			return string(out)
		}
	case bytes.HasPrefix(s, []byte{0xff, 0xfe}):
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(s)
		if err == nil {
			return string(out)
		}
	case bytes.HasPrefix(s, []byte{0xef, 0xbb, 0xbf}):
		return strings.ToValidUTF8(string(s[3:]), "�")
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		b.WriteRune(PDFDocRune(c))
	}
	return b.String()
}
