package graphicsstate

import (
	"errors"
	"math"

	"github.com/tsawler/pagedecode/font"
	"github.com/tsawler/pagedecode/model"
)

// ErrStackUnderflow is returned by Restore without a matching Save.
var ErrStackUnderflow = errors.New("graphics state stack underflow")

// ErrStackOverflow is returned by Save beyond MaxStackDepth.
var ErrStackOverflow = errors.New("graphics state stack overflow")

// MaxStackDepth bounds nested q operators.
const MaxStackDepth = 512

// Unbounded is the clip of a fresh state.
var Unbounded = model.BBox{X: -1e9, Y: -1e9, Width: 2e9, Height: 2e9}

// GraphicsState represents the PDF graphics state
type GraphicsState struct {
	// Current Transformation Matrix
	CTM model.Matrix

	// Clip is the bounding box of the clipping path in device space.
	Clip model.BBox

	// Text state
	Text TextState

	// Graphics state stack (for q/Q operators)
	stack []GraphicsState

	// Line attributes
	LineWidth  float64
	LineCap    int
	LineJoin   int
	MiterLimit float64

	StrokeColor Color
	FillColor   Color

	// Constant alpha from ExtGState CA and ca.
	StrokeAlpha float64
	FillAlpha   float64
}

// TextState represents text-specific state
type TextState struct {
	// FontName is the resource name given to Tf.
	FontName string
	Font     *font.Font
	FontSize float64

	// Character and word spacing
	CharSpacing float64
	WordSpacing float64

	// Horizontal scaling (percentage)
	HorizontalScaling float64

	// Leading (line spacing)
	Leading float64

	// Text rendering mode
	RenderingMode int

	// Text rise
	Rise float64

	// Text matrices
	TextMatrix     model.Matrix
	TextLineMatrix model.Matrix
}

// NewGraphicsState creates a new graphics state with default values
func NewGraphicsState() *GraphicsState {
	return &GraphicsState{
		CTM:         model.Identity(),
		Clip:        Unbounded,
		LineWidth:   1.0,
		MiterLimit:  10,
		StrokeColor: Color{Space: DeviceGray, Components: []float64{0}},
		FillColor:   Color{Space: DeviceGray, Components: []float64{0}},
		StrokeAlpha: 1,
		FillAlpha:   1,
		Text: TextState{
			HorizontalScaling: 100.0,
			TextMatrix:        model.Identity(),
			TextLineMatrix:    model.Identity(),
		},
	}
}

// Clone returns a copy of the state without its save stack.
func (gs *GraphicsState) Clone() *GraphicsState {
	c := *gs
	c.stack = nil
	c.StrokeColor = gs.StrokeColor.clone()
	c.FillColor = gs.FillColor.clone()
	return &c
}

// Depth returns the number of saved states.
func (gs *GraphicsState) Depth() int { return len(gs.stack) }

// Save pushes the current graphics state onto the stack (q operator)
func (gs *GraphicsState) Save() error {
	if len(gs.stack) >= MaxStackDepth {
		return ErrStackOverflow
	}
	gs.stack = append(gs.stack, *gs.Clone())
	return nil
}

// Restore pops a graphics state from the stack (Q operator)
func (gs *GraphicsState) Restore() error {
	if len(gs.stack) == 0 {
		return ErrStackUnderflow
	}
	saved := gs.stack[len(gs.stack)-1]
	stack := gs.stack[:len(gs.stack)-1]
	*gs = saved
	gs.stack = stack
	return nil
}

// RestoreTo pops saved states until depth remain.
func (gs *GraphicsState) RestoreTo(depth int) {
	for len(gs.stack) > depth {
		_ = gs.Restore()
	}
}

// Transform applies a transformation matrix to CTM (cm operator)
func (gs *GraphicsState) Transform(m model.Matrix) {
	gs.CTM = m.Multiply(gs.CTM)
}

// ClipTo intersects the clip with a device-space box.
func (gs *GraphicsState) ClipTo(b model.BBox) {
	gs.Clip = gs.Clip.Intersection(b)
}

// SetLineWidth sets the line width (w operator)
func (gs *GraphicsState) SetLineWidth(width float64) {
	gs.LineWidth = width
}

// DeviceLineWidth is the line width scaled by the CTM.
func (gs *GraphicsState) DeviceLineWidth() float64 {
	return gs.LineWidth * math.Sqrt(math.Abs(gs.CTM[0]*gs.CTM[3]-gs.CTM[1]*gs.CTM[2]))
}

// SetStrokeColorRGB sets the stroke color (RG operator)
func (gs *GraphicsState) SetStrokeColorRGB(r, g, b float64) {
	gs.StrokeColor = Color{Space: DeviceRGB, Components: []float64{r, g, b}}
}

// SetFillColorRGB sets the fill color (rg operator)
func (gs *GraphicsState) SetFillColorRGB(r, g, b float64) {
	gs.FillColor = Color{Space: DeviceRGB, Components: []float64{r, g, b}}
}

// SetStrokeSpace selects the stroking color space and its initial color
// (CS operator).
func (gs *GraphicsState) SetStrokeSpace(cs *ColorSpace) {
	gs.StrokeColor = Color{Space: cs, Components: cs.Initial()}
}

// SetFillSpace selects the non-stroking color space (cs operator).
func (gs *GraphicsState) SetFillSpace(cs *ColorSpace) {
	gs.FillColor = Color{Space: cs, Components: cs.Initial()}
}

// SetFont sets the current font (Tf operator)
func (gs *GraphicsState) SetFont(name string, f *font.Font, size float64) {
	gs.Text.FontName = name
	gs.Text.Font = f
	gs.Text.FontSize = size
}

// SetCharSpacing sets character spacing (Tc operator)
func (gs *GraphicsState) SetCharSpacing(spacing float64) {
	gs.Text.CharSpacing = spacing
}

// SetWordSpacing sets word spacing (Tw operator)
func (gs *GraphicsState) SetWordSpacing(spacing float64) {
	gs.Text.WordSpacing = spacing
}

// SetHorizontalScaling sets horizontal scaling (Tz operator)
func (gs *GraphicsState) SetHorizontalScaling(scale float64) {
	gs.Text.HorizontalScaling = scale
}

// SetLeading sets text leading (TL operator)
func (gs *GraphicsState) SetLeading(leading float64) {
	gs.Text.Leading = leading
}

// SetRenderingMode sets text rendering mode (Tr operator)
func (gs *GraphicsState) SetRenderingMode(mode int) {
	gs.Text.RenderingMode = mode
}

// SetTextRise sets text rise (Ts operator)
func (gs *GraphicsState) SetTextRise(rise float64) {
	gs.Text.Rise = rise
}

// BeginText initializes text state (BT operator)
func (gs *GraphicsState) BeginText() {
	gs.Text.TextMatrix = model.Identity()
	gs.Text.TextLineMatrix = model.Identity()
}

// SetTextMatrix sets the text matrix (Tm operator)
func (gs *GraphicsState) SetTextMatrix(m model.Matrix) {
	gs.Text.TextMatrix = m
	gs.Text.TextLineMatrix = m
}

// TranslateText starts a new line offset from the current one (Td operator).
func (gs *GraphicsState) TranslateText(tx, ty float64) {
	gs.Text.TextLineMatrix = model.Translate(tx, ty).Multiply(gs.Text.TextLineMatrix)
	gs.Text.TextMatrix = gs.Text.TextLineMatrix
}

// TranslateTextSetLeading translates text and sets leading (TD operator)
func (gs *GraphicsState) TranslateTextSetLeading(tx, ty float64) {
	gs.SetLeading(-ty)
	gs.TranslateText(tx, ty)
}

// NextLine moves to next line (T* operator)
func (gs *GraphicsState) NextLine() {
	gs.TranslateText(0, -gs.Text.Leading)
}

// TextRenderingMatrix maps unscaled text space to device space:
// [Tfs*Th 0 0 Tfs 0 Trise] x Tm x CTM.
func (gs *GraphicsState) TextRenderingMatrix() model.Matrix {
	t := gs.Text
	th := t.HorizontalScaling / 100
	return model.Matrix{t.FontSize * th, 0, 0, t.FontSize, 0, t.Rise}.
		Multiply(t.TextMatrix).
		Multiply(gs.CTM)
}

// AdvanceGlyph moves the text matrix past one glyph whose advance is w in
// 1000ths of an em. space selects word spacing.
func (gs *GraphicsState) AdvanceGlyph(w float64, space, vertical bool) {
	t := &gs.Text
	extra := t.CharSpacing
	if space {
		extra += t.WordSpacing
	}
	if vertical {
		// Vertical advances are negative for top-to-bottom writing.
		gs.moveText(0, w/1000*t.FontSize+extra)
		return
	}
	gs.moveText((w/1000*t.FontSize+extra)*t.HorizontalScaling/100, 0)
}

// AdjustText applies a TJ number, in 1000ths of an em.
func (gs *GraphicsState) AdjustText(n float64, vertical bool) {
	t := &gs.Text
	if vertical {
		gs.moveText(0, -n/1000*t.FontSize)
		return
	}
	gs.moveText(-n/1000*t.FontSize*t.HorizontalScaling/100, 0)
}

func (gs *GraphicsState) moveText(tx, ty float64) {
	gs.Text.TextMatrix = model.Translate(tx, ty).Multiply(gs.Text.TextMatrix)
}

// GetTextPosition returns the current text position in device space
func (gs *GraphicsState) GetTextPosition() (x, y float64) {
	p := gs.TextRenderingMatrix().Transform(model.Point{})
	return p.X, p.Y
}

// GetEffectiveFontSize returns the font size accounting for text matrix transformations
// The text matrix can scale the font even when the Tf operator uses size=1
func (gs *GraphicsState) GetEffectiveFontSize() float64 {
	m := gs.Text.TextMatrix.Multiply(gs.CTM)
	return math.Abs(gs.Text.FontSize) * m.ScaleY()
}

// Invisible reports whether the text rendering mode paints nothing.
func (gs *GraphicsState) Invisible() bool {
	return gs.Text.RenderingMode == 3 || gs.Text.RenderingMode == 7
}
