package font

import (
	"strings"
	"unicode/utf8"
)

// Font is a loaded font resource ready to decode shown strings.
type Font struct {
	desc *Descriptor
	src  *GlyphSource
	std  string
}

// NewFont pairs a descriptor with the glyph source chosen for it. A nil
// source is replaced by DefaultSource.
func NewFont(d *Descriptor, src *GlyphSource) *Font {
	if src == nil {
		src = DefaultSource()
	}
	std, _ := StandardFontName(d.BaseFont)
	return &Font{desc: d, src: src, std: std}
}

// Descriptor returns the font's descriptor.
func (f *Font) Descriptor() *Descriptor { return f.desc }

// Source returns the glyph source used to measure and draw glyphs.
func (f *Font) Source() *GlyphSource { return f.src }

// Vertical reports whether the font uses vertical writing mode.
func (f *Font) Vertical() bool {
	return f.desc.IsComposite() && f.desc.CMap != nil && f.desc.CMap.Vertical
}

// Glyph is one character code of a shown string.
type Glyph struct {
	Code  uint32
	Bytes int
	CID   int
	Text  string
	// Width is the horizontal advance in 1000ths of text space units, or
	// the vertical advance for vertical fonts.
	Width float64
	// Space is set for the single-byte code 32, which receives word
	// spacing.
	Space bool
}

// Decode splits data into character codes.
func (f *Font) Decode(data []byte) []Glyph {
	if f.desc.IsComposite() {
		return f.decodeComposite(data)
	}
	out := make([]Glyph, 0, len(data))
	for len(data) > 0 {
		code := uint32(data[0])
		out = append(out, Glyph{
			Code:  code,
			Bytes: 1,
			CID:   int(code),
			Text:  f.simpleText(code),
			Width: f.simpleWidth(code),
			Space: code == 32,
		})
		data = data[1:]
	}
	return out
}

func (f *Font) decodeComposite(data []byte) []Glyph {
	cm := f.desc.CMap
	if cm == nil {
		cm = IdentityCMap(false)
	}
	vertical := cm.Vertical
	out := make([]Glyph, 0, len(data)/2)
	for len(data) > 0 {
		code, n := cm.NextCode(data, 2)
		cid, ok := cm.CID(code, n)
		if !ok {
			cid = 0
		}
		text, ok := f.desc.ToUnicode.Lookup(code, n)
		if !ok {
			text = f.cidText(cid)
		}
		w := f.cidWidth(cid)
		if vertical {
			w = f.cidVerticalAdvance(cid)
		}
		out = append(out, Glyph{
			Code:  code,
			Bytes: n,
			CID:   cid,
			Text:  text,
			Width: w,
			Space: n == 1 && code == 32,
		})
		data = data[n:]
	}
	return out
}

// simpleText maps a single-byte code. Some producers write two-byte
// ToUnicode entries for simple fonts, so both widths are tried.
func (f *Font) simpleText(code uint32) string {
	if s, ok := f.desc.ToUnicode.Lookup(code, 1); ok {
		return s
	}
	if s, ok := f.desc.ToUnicode.Lookup(code, 2); ok {
		return s
	}
	b := byte(code)
	enc := f.desc.Encoding
	if enc == nil {
		enc = StandardEncoding
	}
	if name := enc.GlyphName(b); name != "" {
		if s, ok := GlyphText(name); ok {
			return s
		}
	}
	if r := enc.Decode(b); r != 0 {
		return string(r)
	}
	return string(rune(code))
}

// cidText returns text for a CID without a ToUnicode entry. Only Unicode
// orderings carry the code point as the CID.
func (f *Font) cidText(cid int) string {
	if strings.EqualFold(f.desc.CIDSystemInfo.Ordering, "UCS") && cid > 0 {
		if r := rune(cid); utf8.ValidRune(r) {
			return string(r)
		}
	}
	return string(utf8.RuneError)
}

func (f *Font) simpleWidth(code uint32) float64 {
	d := f.desc
	if i := int(code) - d.FirstChar; i >= 0 && i < len(d.Widths) && d.Widths[i] > 0 {
		return d.Widths[i]
	}
	if d.MissingWidth > 0 {
		return d.MissingWidth
	}
	r := rune(code)
	if code < 256 && d.Encoding != nil {
		if er := d.Encoding.Decode(byte(code)); er != 0 {
			r = er
		}
	}
	if f.std != "" {
		if w, ok := StandardWidth(f.std, r); ok {
			return w
		}
	}
	if w, ok := f.src.Advance(r); ok && w > 0 {
		return w
	}
	return 500
}

func (f *Font) cidWidth(cid int) float64 {
	for _, r := range f.desc.W {
		if cid < r.StartCID || cid > r.EndCID {
			continue
		}
		if r.Widths != nil {
			return r.Widths[cid-r.StartCID]
		}
		return r.Width
	}
	return f.desc.DW
}

// cidVerticalAdvance returns the vertical displacement, which is negative
// for top-to-bottom writing.
func (f *Font) cidVerticalAdvance(cid int) float64 {
	for _, m := range f.desc.W2 {
		if cid >= m.StartCID && cid <= m.EndCID {
			return m.W1Y
		}
	}
	return f.desc.DW2[1]
}

// Text decodes data to NFC-normalized Unicode.
func (f *Font) Text(data []byte) string {
	var sb strings.Builder
	for _, g := range f.Decode(data) {
		sb.WriteString(g.Text)
	}
	return NormalizeUnicode(sb.String())
}

// Width returns the unscaled advance of data in 1000ths of an em.
func (f *Font) Width(data []byte) float64 {
	total := 0.0
	for _, g := range f.Decode(data) {
		total += g.Width
	}
	return total
}
