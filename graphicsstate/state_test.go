package graphicsstate

import (
	"errors"
	"math"
	"testing"

	"github.com/tsawler/pagedecode/model"
)

// TestNewGraphicsState tests initial state
func TestNewGraphicsState(t *testing.T) {
	gs := NewGraphicsState()

	if gs.LineWidth != 1.0 {
		t.Errorf("expected line width 1.0, got %f", gs.LineWidth)
	}

	if gs.Text.FontSize != 0 || gs.Text.Font != nil {
		t.Errorf("expected no font, got %q size %f", gs.Text.FontName, gs.Text.FontSize)
	}

	if gs.Clip != Unbounded {
		t.Errorf("expected unbounded clip, got %+v", gs.Clip)
	}

	if gs.Text.HorizontalScaling != 100.0 {
		t.Errorf("expected horizontal scaling 100.0, got %f", gs.Text.HorizontalScaling)
	}

	// Check CTM is identity
	if !gs.CTM.IsIdentity() {
		t.Error("expected CTM to be identity matrix")
	}
}

// TestSaveRestore tests q/Q operators
func TestSaveRestore(t *testing.T) {
	gs := NewGraphicsState()

	// Modify state
	gs.SetLineWidth(2.5)
	gs.SetFont("Helvetica", nil, 14)

	// Save
	gs.Save()

	// Modify again
	gs.SetLineWidth(5.0)
	gs.SetFont("Times", nil, 18)

	if gs.LineWidth != 5.0 {
		t.Errorf("expected line width 5.0, got %f", gs.LineWidth)
	}

	// Restore
	err := gs.Restore()
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	// Check restored values
	if gs.LineWidth != 2.5 {
		t.Errorf("expected restored line width 2.5, got %f", gs.LineWidth)
	}

	if gs.Text.FontName != "Helvetica" {
		t.Errorf("expected restored font Helvetica, got %s", gs.Text.FontName)
	}

	if gs.Text.FontSize != 14 {
		t.Errorf("expected restored font size 14, got %f", gs.Text.FontSize)
	}
}

// TestRestoreUnderflow tests restore without save
func TestRestoreUnderflow(t *testing.T) {
	gs := NewGraphicsState()

	err := gs.Restore()
	if err == nil {
		t.Error("expected error on restore without save")
	}
}

// TestNestedSaveRestore tests nested q/Q
func TestNestedSaveRestore(t *testing.T) {
	gs := NewGraphicsState()

	gs.SetLineWidth(1.0)
	gs.Save() // Level 1

	gs.SetLineWidth(2.0)
	gs.Save() // Level 2

	gs.SetLineWidth(3.0)

	// Restore to level 2
	gs.Restore()
	if gs.LineWidth != 2.0 {
		t.Errorf("expected line width 2.0, got %f", gs.LineWidth)
	}

	// Restore to level 1
	gs.Restore()
	if gs.LineWidth != 1.0 {
		t.Errorf("expected line width 1.0, got %f", gs.LineWidth)
	}
}

// TestTransform tests cm operator
func TestTransform(t *testing.T) {
	gs := NewGraphicsState()

	// Apply translation
	translation := model.Translate(100, 200)
	gs.Transform(translation)

	if gs.CTM[4] != 100 || gs.CTM[5] != 200 {
		t.Errorf("expected translation (100, 200), got (%f, %f)", gs.CTM[4], gs.CTM[5])
	}
}

// TestSetFont tests Tf operator
func TestSetFont(t *testing.T) {
	gs := NewGraphicsState()

	gs.SetFont("Helvetica-Bold", nil, 24.0)

	if gs.Text.FontName != "Helvetica-Bold" {
		t.Errorf("expected font Helvetica-Bold, got %s", gs.Text.FontName)
	}

	if gs.Text.FontSize != 24.0 {
		t.Errorf("expected font size 24.0, got %f", gs.Text.FontSize)
	}
}

// TestTextSpacing tests Tc and Tw operators
func TestTextSpacing(t *testing.T) {
	gs := NewGraphicsState()

	gs.SetCharSpacing(0.5)
	gs.SetWordSpacing(1.0)

	if gs.Text.CharSpacing != 0.5 {
		t.Errorf("expected char spacing 0.5, got %f", gs.Text.CharSpacing)
	}

	if gs.Text.WordSpacing != 1.0 {
		t.Errorf("expected word spacing 1.0, got %f", gs.Text.WordSpacing)
	}
}

// TestHorizontalScaling tests Tz operator
func TestHorizontalScaling(t *testing.T) {
	gs := NewGraphicsState()

	gs.SetHorizontalScaling(80.0)

	if gs.Text.HorizontalScaling != 80.0 {
		t.Errorf("expected horizontal scaling 80.0, got %f", gs.Text.HorizontalScaling)
	}
}

// TestLeading tests TL operator
func TestLeading(t *testing.T) {
	gs := NewGraphicsState()

	gs.SetLeading(14.0)

	if gs.Text.Leading != 14.0 {
		t.Errorf("expected leading 14.0, got %f", gs.Text.Leading)
	}
}

// TestRenderingMode tests Tr operator
func TestRenderingMode(t *testing.T) {
	gs := NewGraphicsState()

	gs.SetRenderingMode(2)

	if gs.Text.RenderingMode != 2 {
		t.Errorf("expected rendering mode 2, got %d", gs.Text.RenderingMode)
	}
}

// TestTextRise tests Ts operator
func TestTextRise(t *testing.T) {
	gs := NewGraphicsState()

	gs.SetTextRise(5.0)

	if gs.Text.Rise != 5.0 {
		t.Errorf("expected text rise 5.0, got %f", gs.Text.Rise)
	}
}

// TestBeginText tests BT operator
func TestBeginText(t *testing.T) {
	gs := NewGraphicsState()

	// Modify text matrix
	gs.Text.TextMatrix = model.Matrix{1, 0, 0, 1, 100, 200}

	// Begin text should reset to identity
	gs.BeginText()

	if !gs.Text.TextMatrix.IsIdentity() {
		t.Error("expected text matrix to be identity after BT")
	}

	if !gs.Text.TextLineMatrix.IsIdentity() {
		t.Error("expected text line matrix to be identity after BT")
	}
}

// TestSetTextMatrix tests Tm operator
func TestSetTextMatrix(t *testing.T) {
	gs := NewGraphicsState()

	m := model.Matrix{1, 0, 0, 1, 72, 720}

	gs.SetTextMatrix(m)

	if gs.Text.TextMatrix != m {
		t.Error("text matrix not set correctly")
	}

	if gs.Text.TextLineMatrix != m {
		t.Error("text line matrix not set correctly")
	}
}

// TestTranslateText tests Td operator
func TestTranslateText(t *testing.T) {
	gs := NewGraphicsState()
	gs.BeginText()

	gs.TranslateText(10, 20)

	if gs.Text.TextMatrix[4] != 10 || gs.Text.TextMatrix[5] != 20 {
		t.Errorf("expected translation (10, 20), got (%f, %f)",
			gs.Text.TextMatrix[4], gs.Text.TextMatrix[5])
	}

	// Translate again
	gs.TranslateText(5, 10)

	if gs.Text.TextMatrix[4] != 15 || gs.Text.TextMatrix[5] != 30 {
		t.Errorf("expected cumulative translation (15, 30), got (%f, %f)",
			gs.Text.TextMatrix[4], gs.Text.TextMatrix[5])
	}
}

// TestTranslateTextSetLeading tests TD operator
func TestTranslateTextSetLeading(t *testing.T) {
	gs := NewGraphicsState()
	gs.BeginText()

	gs.TranslateTextSetLeading(0, -14)

	if gs.Text.Leading != 14 {
		t.Errorf("expected leading 14, got %f", gs.Text.Leading)
	}

	if gs.Text.TextMatrix[5] != -14 {
		t.Errorf("expected Y translation -14, got %f", gs.Text.TextMatrix[5])
	}
}

// TestNextLine tests T* operator
func TestNextLine(t *testing.T) {
	gs := NewGraphicsState()
	gs.BeginText()
	gs.SetLeading(14)

	initialY := gs.Text.TextMatrix[5]

	gs.NextLine()

	expectedY := initialY - 14
	if math.Abs(gs.Text.TextMatrix[5]-expectedY) > 0.001 {
		t.Errorf("expected Y %f, got %f", expectedY, gs.Text.TextMatrix[5])
	}
}




// TestGetTextPosition tests position calculation
func TestGetTextPosition(t *testing.T) {
	gs := NewGraphicsState()
	gs.BeginText()
	gs.SetTextMatrix(model.Matrix{1, 0, 0, 1, 100, 200})

	x, y := gs.GetTextPosition()

	if x != 100 || y != 200 {
		t.Errorf("expected position (100, 200), got (%f, %f)", x, y)
	}
}

// TestGetTextPositionWithCTM tests position with CTM
func TestGetTextPositionWithCTM(t *testing.T) {
	gs := NewGraphicsState()

	// Apply CTM translation
	gs.Transform(model.Translate(50, 50))

	gs.BeginText()
	gs.SetTextMatrix(model.Matrix{1, 0, 0, 1, 100, 200})

	x, y := gs.GetTextPosition()

	// Should include CTM translation
	expectedX := 150.0
	expectedY := 250.0

	if math.Abs(x-expectedX) > 0.001 || math.Abs(y-expectedY) > 0.001 {
		t.Errorf("expected position (%f, %f), got (%f, %f)", expectedX, expectedY, x, y)
	}
}


// TestLineWidth tests w operator
func TestLineWidth(t *testing.T) {
	gs := NewGraphicsState()

	gs.SetLineWidth(2.5)

	if gs.LineWidth != 2.5 {
		t.Errorf("expected line width 2.5, got %f", gs.LineWidth)
	}
}

// TestClone tests state cloning
func TestClone(t *testing.T) {
	gs := NewGraphicsState()
	gs.SetFont("Helvetica", nil, 14)
	gs.SetLineWidth(2.0)

	clone := gs.Clone()

	// Modify original
	gs.SetFont("Times", nil, 18)
	gs.SetLineWidth(3.0)

	// Clone should be unchanged
	if clone.Text.FontName != "Helvetica" {
		t.Errorf("clone font should be Helvetica, got %s", clone.Text.FontName)
	}

	if clone.Text.FontSize != 14 {
		t.Errorf("clone font size should be 14, got %f", clone.Text.FontSize)
	}

	if clone.LineWidth != 2.0 {
		t.Errorf("clone line width should be 2.0, got %f", clone.LineWidth)
	}
}


func TestSaveOverflow(t *testing.T) {
	gs := NewGraphicsState()
	for i := 0; i < MaxStackDepth; i++ {
		if err := gs.Save(); err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
	}
	if err := gs.Save(); !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("expected ErrStackOverflow, got %v", err)
	}
	gs.RestoreTo(0)
	if gs.Depth() != 0 {
		t.Errorf("expected empty stack, got %d", gs.Depth())
	}
}

func TestRestoreKeepsColorsIndependent(t *testing.T) {
	gs := NewGraphicsState()
	gs.SetFillColorRGB(1, 0, 0)
	gs.Save()
	gs.FillColor.Components[0] = 0.25
	gs.Restore()
	if gs.FillColor.Components[0] != 1 {
		t.Errorf("saved fill color was modified: %v", gs.FillColor.Components)
	}
}

func TestTransformOrder(t *testing.T) {
	gs := NewGraphicsState()
	gs.Transform(model.Translate(100, 0))
	gs.Transform(model.Scale(2, 2))

	// The later cm applies first: (10,10) scales to (20,20) then shifts.
	p := gs.CTM.Transform(model.Point{X: 10, Y: 10})
	if p.X != 120 || p.Y != 20 {
		t.Errorf("expected (120, 20), got (%f, %f)", p.X, p.Y)
	}
}

func TestTranslateTextUsesLineMatrixScale(t *testing.T) {
	gs := NewGraphicsState()
	gs.BeginText()
	gs.SetTextMatrix(model.Matrix{2, 0, 0, 2, 10, 10})
	gs.TranslateText(5, -5)

	if gs.Text.TextMatrix[4] != 20 || gs.Text.TextMatrix[5] != 0 {
		t.Errorf("expected origin (20, 0), got (%f, %f)", gs.Text.TextMatrix[4], gs.Text.TextMatrix[5])
	}
}

func TestAdvanceGlyph(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(gs *GraphicsState)
		width    float64
		space    bool
		vertical bool
		wantX    float64
		wantY    float64
	}{
		{"plain", nil, 500, false, false, 6, 0},
		{"char spacing", func(gs *GraphicsState) { gs.SetCharSpacing(1) }, 500, false, false, 7, 0},
		{"word spacing on space", func(gs *GraphicsState) { gs.SetWordSpacing(2) }, 250, true, false, 5, 0},
		{"word spacing ignored", func(gs *GraphicsState) { gs.SetWordSpacing(2) }, 250, false, false, 3, 0},
		{"horizontal scaling", func(gs *GraphicsState) { gs.SetHorizontalScaling(50) }, 500, false, false, 3, 0},
		{"vertical", nil, -1000, false, true, 0, -12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := NewGraphicsState()
			gs.BeginText()
			gs.SetFont("F1", nil, 12)
			if tt.setup != nil {
				tt.setup(gs)
			}
			gs.AdvanceGlyph(tt.width, tt.space, tt.vertical)
			x, y := gs.Text.TextMatrix[4], gs.Text.TextMatrix[5]
			if math.Abs(x-tt.wantX) > 1e-9 || math.Abs(y-tt.wantY) > 1e-9 {
				t.Errorf("got (%f, %f), want (%f, %f)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestAdjustText(t *testing.T) {
	gs := NewGraphicsState()
	gs.BeginText()
	gs.SetFont("F1", nil, 10)
	gs.AdjustText(-200, false)
	if gs.Text.TextMatrix[4] != 2 {
		t.Errorf("expected x 2, got %f", gs.Text.TextMatrix[4])
	}
	gs.AdjustText(100, true)
	if gs.Text.TextMatrix[5] != -1 {
		t.Errorf("expected y -1, got %f", gs.Text.TextMatrix[5])
	}
}

func TestTextRenderingMatrix(t *testing.T) {
	gs := NewGraphicsState()
	gs.Transform(model.Translate(0, 100))
	gs.BeginText()
	gs.SetFont("F1", nil, 10)
	gs.SetHorizontalScaling(200)
	gs.SetTextRise(3)
	gs.SetTextMatrix(model.Matrix{1, 0, 0, 1, 50, 20})

	trm := gs.TextRenderingMatrix()
	want := model.Matrix{20, 0, 0, 10, 50, 123}
	if trm != want {
		t.Errorf("got %v, want %v", trm, want)
	}
	if fs := gs.GetEffectiveFontSize(); fs != 10 {
		t.Errorf("expected effective size 10, got %f", fs)
	}
}

func TestTextFlow(t *testing.T) {
	gs := NewGraphicsState()
	gs.BeginText()
	gs.SetFont("F1", nil, 12)
	gs.TranslateText(72, 720)
	for i := 0; i < 5; i++ {
		gs.AdvanceGlyph(500, false, false)
	}
	gs.TranslateText(0, -14)

	// Td starts from the line matrix, not the advanced text matrix.
	if gs.Text.TextMatrix[4] != 72 {
		t.Errorf("expected X 72, got %f", gs.Text.TextMatrix[4])
	}
	if gs.Text.TextMatrix[5] != 706 {
		t.Errorf("expected Y position 706, got %f", gs.Text.TextMatrix[5])
	}
}

func TestClipTo(t *testing.T) {
	gs := NewGraphicsState()
	gs.ClipTo(model.NewBBox(0, 0, 100, 100))
	gs.Save()
	gs.ClipTo(model.NewBBox(50, 50, 100, 100))
	if gs.Clip != model.NewBBox(50, 50, 50, 50) {
		t.Errorf("unexpected clip %+v", gs.Clip)
	}
	gs.Restore()
	if gs.Clip != model.NewBBox(0, 0, 100, 100) {
		t.Errorf("clip not restored: %+v", gs.Clip)
	}
}

func TestDeviceLineWidth(t *testing.T) {
	gs := NewGraphicsState()
	gs.SetLineWidth(2)
	gs.Transform(model.Scale(3, 3))
	if w := gs.DeviceLineWidth(); math.Abs(w-6) > 1e-9 {
		t.Errorf("expected 6, got %f", w)
	}
}
