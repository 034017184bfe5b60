package font

import (
	"fmt"
	"sync"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// SourceKind says where a glyph source came from.
type SourceKind int

const (
	// SourceEmbedded is the font program carried by the document.
	SourceEmbedded SourceKind = iota + 1
	// SourceHandler was supplied by a registered font handler.
	SourceHandler
	// SourceSubstituted was found in the font library by a strategy.
	SourceSubstituted
	// SourceDefault is the last-resort built-in face.
	SourceDefault
)

func (k SourceKind) String() string {
	switch k {
	case SourceEmbedded:
		return "embedded"
	case SourceHandler:
		return "handler"
	case SourceSubstituted:
		return "substituted"
	case SourceDefault:
		return "default"
	}
	return "unknown"
}

// GlyphSource is a parsed outline font used to measure and draw glyphs.
// It is safe for concurrent use.
type GlyphSource struct {
	Name     string
	Kind     SourceKind
	Strategy Strategy
	// Data is the raw sfnt program.
	Data []byte

	font *sfnt.Font
	bufs sync.Pool
}

// NewGlyphSource parses an sfnt (TrueType or OpenType) program.
func NewGlyphSource(name string, kind SourceKind, data []byte) (*GlyphSource, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", name, err)
	}
	if f.UnitsPerEm() == 0 {
		return nil, fmt.Errorf("parse font %s: invalid unitsPerEm", name)
	}
	return &GlyphSource{Name: name, Kind: kind, Data: data, font: f}, nil
}

// SFNT returns the parsed font.
func (g *GlyphSource) SFNT() *sfnt.Font { return g.font }

// WithKind returns a copy of g that reports a different origin.
func (g *GlyphSource) WithKind(kind SourceKind, s Strategy) *GlyphSource {
	return &GlyphSource{Name: g.Name, Kind: kind, Strategy: s, Data: g.Data, font: g.font}
}

func (g *GlyphSource) buffer() *sfnt.Buffer {
	if b, ok := g.bufs.Get().(*sfnt.Buffer); ok {
		return b
	}
	return &sfnt.Buffer{}
}

// GlyphIndex returns the glyph for r, or false when the font has none.
func (g *GlyphSource) GlyphIndex(r rune) (sfnt.GlyphIndex, bool) {
	b := g.buffer()
	defer g.bufs.Put(b)
	gid, err := g.font.GlyphIndex(b, r)
	return gid, err == nil && gid != 0
}

// HasGlyph reports whether r maps to a non-.notdef glyph.
func (g *GlyphSource) HasGlyph(r rune) bool {
	_, ok := g.GlyphIndex(r)
	return ok
}

// GlyphAdvance returns the advance of glyph gid in 1000ths of an em.
func (g *GlyphSource) GlyphAdvance(gid sfnt.GlyphIndex) (float64, bool) {
	b := g.buffer()
	defer g.bufs.Put(b)
	upem := g.font.UnitsPerEm()
	adv, err := g.font.GlyphAdvance(b, gid, fixed.Int26_6(upem<<6), xfont.HintingNone)
	if err != nil {
		return 0, false
	}
	return float64(adv) * 1000 / (64 * float64(upem)), true
}

// Advance returns the advance of r in 1000ths of an em.
func (g *GlyphSource) Advance(r rune) (float64, bool) {
	gid, ok := g.GlyphIndex(r)
	if !ok {
		return 0, false
	}
	return g.GlyphAdvance(gid)
}

// Names reads the PostScript, family and full names from the name table.
func (g *GlyphSource) Names() (postscript, family, full string) {
	b := g.buffer()
	defer g.bufs.Put(b)
	postscript, _ = g.font.Name(b, sfnt.NameIDPostScript)
	family, _ = g.font.Name(b, sfnt.NameIDFamily)
	full, _ = g.font.Name(b, sfnt.NameIDFull)
	return postscript, family, full
}

var (
	defaultOnce   sync.Once
	defaultSource *GlyphSource
)

// DefaultSource returns the built-in Go Regular face used when nothing
// else matches.
func DefaultSource() *GlyphSource {
	defaultOnce.Do(func() {
		src, err := NewGlyphSource("Go Regular", SourceDefault, goregular.TTF)
		if err != nil {
			panic("font: built-in face: " + err.Error())
		}
		defaultSource = src
	})
	return defaultSource
}
