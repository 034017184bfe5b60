// Package font loads PDF font resources and decides which glyph source
// draws and measures them.
//
// [LoadDescriptor] reads a font dictionary (simple, Type 3 or Type0 with
// its CIDFont) into a [Descriptor]. A [Resolver] then picks a
// [GlyphSource]: the embedded TrueType or OpenType program, a
// [FontHandler], the first [Strategy] that matches a registered font in the
// [Library], and finally the built-in Go Regular face. Resolution never
// fails.
//
// A [Font] turns shown strings into [Glyph] values with Unicode text and
// advances. Text comes from the ToUnicode [CMap], then the font encoding
// and glyph names. Widths come from /Widths or /W, then standard 14
// metrics, then glyph advances.
//
//	r := font.NewResolver(font.WithLibrary(lib))
//	f, err := r.Load(ctx, store, fontRef, font.Key{Ref: ref})
//	for _, g := range f.Decode(data) {
//		fmt.Println(g.Text, g.Width)
//	}
package font
