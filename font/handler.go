package font

import "context"

// FontHandler can supply a glyph source for a font before the library is
// searched. Returning false declines and resolution continues.
type FontHandler interface {
	SubstituteFont(ctx context.Context, d *Descriptor) (*GlyphSource, bool)
}

// FontHandlerFunc adapts a function to FontHandler.
type FontHandlerFunc func(ctx context.Context, d *Descriptor) (*GlyphSource, bool)

// SubstituteFont calls fn.
func (fn FontHandlerFunc) SubstituteFont(ctx context.Context, d *Descriptor) (*GlyphSource, bool) {
	return fn(ctx, d)
}
