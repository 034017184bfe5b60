package raster

import (
	"image/color"
	"testing"

	"github.com/tsawler/pagedecode/graphicsstate"
	"github.com/tsawler/pagedecode/interpreter"
	"github.com/tsawler/pagedecode/model"
)

var (
	white = color.RGBA{255, 255, 255, 255}
	red   = color.RGBA{255, 0, 0, 255}
	blue  = color.RGBA{0, 0, 255, 255}
)

func page(cmds ...interpreter.Command) *interpreter.CommandStream {
	return &interpreter.CommandStream{Width: 20, Height: 20, Commands: cmds}
}

func rectPath(x, y, w, h float64) *graphicsstate.Path {
	p := graphicsstate.NewPath()
	p.MoveTo(x, y)
	p.LineTo(x+w, y)
	p.LineTo(x+w, y+h)
	p.LineTo(x, y+h)
	p.ClosePath()
	return p
}

var fullPage = model.NewBBox(0, 0, 20, 20)

func TestFill(t *testing.T) {
	tests := []struct {
		name string
		clip model.BBox
		x, y int
		want color.RGBA
	}{
		{"inside", fullPage, 5, 15, red},
		{"outside", fullPage, 15, 5, white},
		{"clipped away", model.NewBBox(0, 0, 5, 20), 7, 15, white},
		{"inside clip", model.NewBBox(0, 0, 5, 20), 2, 15, red},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := New().Render(page(&interpreter.PathCommand{
				Path:      rectPath(0, 0, 10, 10),
				Paint:     graphicsstate.Paint{Fill: true},
				FillColor: red,
				Clip:      tt.clip,
			}))
			if err != nil {
				t.Fatal(err)
			}
			if got := img.RGBAAt(tt.x, tt.y); got != tt.want {
				t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestStroke(t *testing.T) {
	p := graphicsstate.NewPath()
	p.MoveTo(0, 10)
	p.LineTo(20, 10)
	img, err := New().Render(page(&interpreter.PathCommand{
		Path:        p,
		Paint:       graphicsstate.Paint{Stroke: true},
		StrokeColor: blue,
		LineWidth:   4,
		Clip:        fullPage,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(10, 10); got != blue {
		t.Errorf("on the line: %v, want blue", got)
	}
	if got := img.RGBAAt(10, 2); got != white {
		t.Errorf("off the line: %v, want white", got)
	}
}

func TestImage(t *testing.T) {
	img := &interpreter.ImageData{
		Width:            2,
		Height:           1,
		BitsPerComponent: 8,
		ColorSpace:       graphicsstate.DeviceRGB,
		Data:             []byte{255, 0, 0, 0, 255, 0},
	}
	out, err := New().Render(page(&interpreter.FinalImage{
		Image:  img,
		Matrix: model.Matrix{20, 0, 0, 10, 0, 0},
		BBox:   model.NewBBox(0, 0, 20, 10),
		Alpha:  1,
	}))
	if err != nil {
		t.Fatal(err)
	}
	left, right := out.RGBAAt(2, 15), out.RGBAAt(17, 15)
	if left.R < 200 || left.G > 60 {
		t.Errorf("left half = %v, want red", left)
	}
	if right.G < 200 || right.R > 60 {
		t.Errorf("right half = %v, want green", right)
	}
	if got := out.RGBAAt(10, 5); got != white {
		t.Errorf("above the image = %v, want white", got)
	}
}

func TestText(t *testing.T) {
	run := &interpreter.GlyphRun{
		Text:     "H",
		FontSize: 16,
		Glyphs: []interpreter.PlacedGlyph{
			{Text: "H", Origin: model.Point{X: 2, Y: 4}, Size: 16, Advance: 11},
		},
	}
	img, err := New().Render(page(run))
	if err != nil {
		t.Fatal(err)
	}
	inked := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) != white {
				inked++
			}
		}
	}
	if inked == 0 {
		t.Error("glyph left no ink")
	}

	run.Invisible = true
	img, _ = New().Render(page(run))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) != white {
				t.Fatalf("invisible text drawn at (%d,%d)", x, y)
			}
		}
	}
}

func TestFormRaster(t *testing.T) {
	form := &interpreter.FormRaster{
		BBox: model.NewBBox(0, 0, 10, 20),
		Commands: []interpreter.Command{&interpreter.PathCommand{
			Path:      rectPath(0, 0, 20, 20),
			Paint:     graphicsstate.Paint{Fill: true},
			FillColor: red,
			Clip:      fullPage,
		}},
	}
	img, err := New().Render(page(form))
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(5, 5); got != red {
		t.Errorf("inside form = %v, want red", got)
	}
	if got := img.RGBAAt(15, 5); got != white {
		t.Errorf("outside form bbox = %v, want white", got)
	}
}

func TestRenderErrors(t *testing.T) {
	r := New()
	if _, err := r.Render(nil); err == nil {
		t.Error("nil stream rendered")
	}
	if _, err := r.Render(&interpreter.CommandStream{}); err == nil {
		t.Error("zero-size page rendered")
	}
}

func TestBackground(t *testing.T) {
	img, err := New(WithBackground(blue)).Render(page())
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(0, 0); got != blue {
		t.Errorf("background = %v, want blue", got)
	}
}
