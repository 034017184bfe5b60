// Package graphicsstate tracks the PDF graphics state while a content
// stream is interpreted.
//
// The main type is GraphicsState, which tracks:
//   - the CTM and the clip bounding box in device space
//   - line width, cap, join and miter limit
//   - stroke and fill colors in their color spaces
//   - constant alpha from ExtGState dictionaries
//   - the text state (font, size, spacing, matrices)
//
// Operators that touch nothing but the state are executed by Apply:
//
//	gs := graphicsstate.NewGraphicsState()
//	for _, op := range ops {
//	    if err := gs.Apply(op); errors.Is(err, graphicsstate.ErrNotStateOperator) {
//	        // Tf, gs, cs, paths, text showing and XObjects need resources.
//	    }
//	}
//
// # Text State
//
// Glyph positioning follows the text rendering matrix
// [Tfs*Th 0 0 Tfs 0 Trise] x Tm x CTM. AdvanceGlyph and AdjustText move the
// text matrix after each glyph and TJ adjustment.
//
// # Paths
//
// Path collects m, l, c, v, y, h and re segments in user space. Transform
// maps a finished path to device space and PaintFor decodes the painting
// operator.
package graphicsstate
