// Package text groups the glyph runs of an interpreted page into lines.
//
// A [Grouper] reads a [interpreter.CommandStream] and returns [TextLine]
// values ordered top to bottom, then left to right:
//
//	g := text.NewGrouper(text.DefaultConfig())
//	lines := g.Group(cs)
//	fmt.Println(text.Text(lines))
//
// Two runs share a line when their baselines differ by at most
// BaselineTolerance times the larger font size and the gap between them
// is at most GapTolerance average glyph widths. Lines never modify the
// runs they reference, so Foreground and Background passes over one
// stream may run at the same time.
//
// # Spacing
//
// Line text inserts a space between runs whose gap is at least
// WordGapTolerance space widths. Lines made of one or two character runs
// use the distribution of gaps on the line instead, and lines with space
// characters in the stream trust those.
//
// # Direction
//
// Each line takes the dominant direction of its characters (see
// [DetectDirection]); RTL lines list their runs right to left.
package text
