package graphicsstate

import (
	"math"
	"testing"

	"github.com/tsawler/pagedecode/model"
)

// Path tests

func TestNewPath(t *testing.T) {
	p := NewPath()
	if p == nil {
		t.Fatal("NewPath returned nil")
	}
	if len(p.Segments) != 0 {
		t.Errorf("Expected empty segments, got %d", len(p.Segments))
	}
	if p.HasCurrentPoint {
		t.Error("Expected HasCurrentPoint to be false")
	}
}

func TestPath_MoveTo(t *testing.T) {
	p := NewPath()
	p.MoveTo(100, 200)

	if len(p.Segments) != 1 {
		t.Fatalf("Expected 1 segment, got %d", len(p.Segments))
	}
	if p.Segments[0].Type != PathMoveTo {
		t.Error("Expected PathMoveTo type")
	}
	if !p.HasCurrentPoint {
		t.Error("Expected HasCurrentPoint to be true")
	}
	if p.CurrentPoint.X != 100 || p.CurrentPoint.Y != 200 {
		t.Errorf("Expected current point (100, 200), got (%f, %f)", p.CurrentPoint.X, p.CurrentPoint.Y)
	}
	if p.SubpathStart.X != 100 || p.SubpathStart.Y != 200 {
		t.Errorf("Expected subpath start (100, 200), got (%f, %f)", p.SubpathStart.X, p.SubpathStart.Y)
	}
}

func TestPath_LineTo(t *testing.T) {
	t.Run("with current point", func(t *testing.T) {
		p := NewPath()
		p.MoveTo(0, 0)
		p.LineTo(100, 0)

		if len(p.Segments) != 2 {
			t.Fatalf("Expected 2 segments, got %d", len(p.Segments))
		}
		if p.Segments[1].Type != PathLineTo {
			t.Error("Expected PathLineTo type")
		}
		if p.CurrentPoint.X != 100 || p.CurrentPoint.Y != 0 {
			t.Errorf("Expected current point (100, 0), got (%f, %f)", p.CurrentPoint.X, p.CurrentPoint.Y)
		}
	})

	t.Run("without current point becomes moveto", func(t *testing.T) {
		p := NewPath()
		p.LineTo(100, 200)

		if len(p.Segments) != 1 {
			t.Fatalf("Expected 1 segment, got %d", len(p.Segments))
		}
		if p.Segments[0].Type != PathMoveTo {
			t.Error("Expected PathMoveTo type (lineto should become moveto)")
		}
		if !p.HasCurrentPoint {
			t.Error("Expected HasCurrentPoint to be true")
		}
	})
}

func TestPath_CurveTo(t *testing.T) {
	p := NewPath()
	p.MoveTo(0, 0)
	p.CurveTo(10, 20, 30, 40, 50, 60)

	if len(p.Segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(p.Segments))
	}
	if p.Segments[1].Type != PathCurveTo {
		t.Error("Expected PathCurveTo type")
	}
	if len(p.Segments[1].Points) != 3 {
		t.Errorf("Expected 3 control points, got %d", len(p.Segments[1].Points))
	}
	if p.CurrentPoint.X != 50 || p.CurrentPoint.Y != 60 {
		t.Errorf("Expected current point (50, 60), got (%f, %f)", p.CurrentPoint.X, p.CurrentPoint.Y)
	}
}

func TestPath_CurveToV(t *testing.T) {
	p := NewPath()
	p.MoveTo(0, 0)
	p.CurveToV(20, 30, 40, 50)

	if len(p.Segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(p.Segments))
	}
	// CurveToV uses current point as first control point
	if p.Segments[1].Points[0].X != 0 || p.Segments[1].Points[0].Y != 0 {
		t.Error("First control point should be current point")
	}
	if p.CurrentPoint.X != 40 || p.CurrentPoint.Y != 50 {
		t.Errorf("Expected current point (40, 50), got (%f, %f)", p.CurrentPoint.X, p.CurrentPoint.Y)
	}
}

func TestPath_CurveToY(t *testing.T) {
	p := NewPath()
	p.MoveTo(0, 0)
	p.CurveToY(10, 20, 40, 50)

	if len(p.Segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(p.Segments))
	}
	// CurveToY uses end point as second control point
	if p.Segments[1].Points[1].X != 40 || p.Segments[1].Points[1].Y != 50 {
		t.Error("Second control point should be end point")
	}
	if p.CurrentPoint.X != 40 || p.CurrentPoint.Y != 50 {
		t.Errorf("Expected current point (40, 50), got (%f, %f)", p.CurrentPoint.X, p.CurrentPoint.Y)
	}
}

func TestPath_ClosePath(t *testing.T) {
	p := NewPath()
	p.MoveTo(0, 0)
	p.LineTo(100, 0)
	p.LineTo(100, 100)
	p.ClosePath()

	if len(p.Segments) != 4 {
		t.Fatalf("Expected 4 segments, got %d", len(p.Segments))
	}
	if p.Segments[3].Type != PathClosePath {
		t.Error("Expected PathClosePath type")
	}
	// Current point should return to subpath start
	if p.CurrentPoint.X != 0 || p.CurrentPoint.Y != 0 {
		t.Errorf("Expected current point (0, 0), got (%f, %f)", p.CurrentPoint.X, p.CurrentPoint.Y)
	}
}

func TestPath_Rectangle(t *testing.T) {
	p := NewPath()
	p.Rectangle(10, 20, 100, 50)

	// Rectangle creates: moveto + 3 lineto + closepath = 5 segments
	if len(p.Segments) != 5 {
		t.Fatalf("Expected 5 segments, got %d", len(p.Segments))
	}

	// Check the sequence
	if p.Segments[0].Type != PathMoveTo {
		t.Error("Expected PathMoveTo first")
	}
	for i := 1; i <= 3; i++ {
		if p.Segments[i].Type != PathLineTo {
			t.Errorf("Expected PathLineTo at index %d", i)
		}
	}
	if p.Segments[4].Type != PathClosePath {
		t.Error("Expected PathClosePath last")
	}
}

func TestPath_Clear(t *testing.T) {
	p := NewPath()
	p.MoveTo(0, 0)
	p.LineTo(100, 100)
	p.Clear()

	if len(p.Segments) != 0 {
		t.Errorf("Expected 0 segments after clear, got %d", len(p.Segments))
	}
	if p.HasCurrentPoint {
		t.Error("Expected HasCurrentPoint to be false after clear")
	}
}

func TestPath_IsEmpty(t *testing.T) {
	p := NewPath()
	if !p.IsEmpty() {
		t.Error("Expected new path to be empty")
	}

	p.MoveTo(0, 0)
	if p.IsEmpty() {
		t.Error("Expected path with segments to not be empty")
	}
}

// Helper function tests

func TestPointsEqual(t *testing.T) {
	tests := []struct {
		name      string
		a, b      model.Point
		tolerance float64
		want      bool
	}{
		{
			name:      "equal points",
			a:         model.Point{X: 100, Y: 200},
			b:         model.Point{X: 100, Y: 200},
			tolerance: 0.1,
			want:      true,
		},
		{
			name:      "within tolerance",
			a:         model.Point{X: 100, Y: 200},
			b:         model.Point{X: 100.05, Y: 200.05},
			tolerance: 0.1,
			want:      true,
		},
		{
			name:      "outside tolerance",
			a:         model.Point{X: 100, Y: 200},
			b:         model.Point{X: 101, Y: 200},
			tolerance: 0.1,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pointsEqual(tt.a, tt.b, tt.tolerance)
			if got != tt.want {
				t.Errorf("pointsEqual() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRectangle(t *testing.T) {
	t.Run("valid rectangle", func(t *testing.T) {
		corners := []model.Point{
			{X: 0, Y: 0},
			{X: 100, Y: 0},
			{X: 100, Y: 50},
			{X: 0, Y: 50},
		}
		if !isRectangle(corners, 0.5) {
			t.Error("Expected valid rectangle")
		}
	})

	t.Run("rotated rectangle", func(t *testing.T) {
		// 45-degree rotated square
		s := math.Sqrt(2) / 2 * 100
		corners := []model.Point{
			{X: 0, Y: s},
			{X: s, Y: 0},
			{X: 2 * s, Y: s},
			{X: s, Y: 2 * s},
		}
		if !isRectangle(corners, 0.5) {
			t.Error("Expected rotated rectangle to be valid")
		}
	})

	t.Run("not a rectangle - parallelogram", func(t *testing.T) {
		corners := []model.Point{
			{X: 0, Y: 0},
			{X: 100, Y: 0},
			{X: 150, Y: 50},
			{X: 50, Y: 50},
		}
		if isRectangle(corners, 0.5) {
			t.Error("Parallelogram should not be detected as rectangle")
		}
	})

	t.Run("wrong number of corners", func(t *testing.T) {
		corners := []model.Point{
			{X: 0, Y: 0},
			{X: 100, Y: 0},
			{X: 50, Y: 50},
		}
		if isRectangle(corners, 0.5) {
			t.Error("Triangle should not be detected as rectangle")
		}
	})
}

func TestBoundingBoxFromPoints(t *testing.T) {
	t.Run("single point", func(t *testing.T) {
		points := []model.Point{{X: 100, Y: 200}}
		bbox := boundingBoxFromPoints(points)
		if bbox.X != 100 || bbox.Y != 200 {
			t.Errorf("Expected (100, 200), got (%f, %f)", bbox.X, bbox.Y)
		}
		if bbox.Width != 0 || bbox.Height != 0 {
			t.Errorf("Expected 0x0 size, got %fx%f", bbox.Width, bbox.Height)
		}
	})

	t.Run("multiple points", func(t *testing.T) {
		points := []model.Point{
			{X: 10, Y: 20},
			{X: 100, Y: 50},
			{X: 50, Y: 200},
		}
		bbox := boundingBoxFromPoints(points)
		if bbox.X != 10 {
			t.Errorf("Expected X=10, got %f", bbox.X)
		}
		if bbox.Y != 20 {
			t.Errorf("Expected Y=20, got %f", bbox.Y)
		}
		if bbox.Width != 90 {
			t.Errorf("Expected Width=90, got %f", bbox.Width)
		}
		if bbox.Height != 180 {
			t.Errorf("Expected Height=180, got %f", bbox.Height)
		}
	})

	t.Run("empty points", func(t *testing.T) {
		bbox := boundingBoxFromPoints([]model.Point{})
		if bbox.X != 0 || bbox.Y != 0 {
			t.Error("Expected empty bbox for empty points")
		}
	})
}

// Edge cases

func TestPath_CurveOperatorsWithoutCurrentPoint(t *testing.T) {
	p := NewPath()

	// CurveToV without current point should be no-op
	p.CurveToV(10, 20, 30, 40)
	if len(p.Segments) != 0 {
		t.Error("CurveToV without current point should be no-op")
	}

	// CurveToY without current point should be no-op
	p.CurveToY(10, 20, 30, 40)
	if len(p.Segments) != 0 {
		t.Error("CurveToY without current point should be no-op")
	}

	// ClosePath without current point should be no-op
	p.ClosePath()
	if len(p.Segments) != 0 {
		t.Error("ClosePath without current point should be no-op")
	}
}


func TestPath_Transform(t *testing.T) {
	p := NewPath()
	p.Rectangle(10, 10, 20, 5)

	d := p.Transform(model.Matrix{2, 0, 0, 2, 100, 0})
	if got := d.Segments[2].Points[0]; got != (model.Point{X: 160, Y: 30}) {
		t.Errorf("unexpected transformed point %+v", got)
	}
	if got := p.Segments[2].Points[0]; got != (model.Point{X: 30, Y: 15}) {
		t.Errorf("original path was modified: %+v", got)
	}
	if got := d.Bounds(); got != model.NewBBox(120, 20, 40, 10) {
		t.Errorf("unexpected bounds %+v", got)
	}
}

func TestPath_BoundsIncludesControlPoints(t *testing.T) {
	p := NewPath()
	p.MoveTo(0, 0)
	p.CurveTo(0, 50, 10, 50, 10, 0)
	if got := p.Bounds(); got != model.NewBBox(0, 0, 10, 50) {
		t.Errorf("unexpected bounds %+v", got)
	}
}

func TestPath_AsRectangle(t *testing.T) {
	tests := []struct {
		name  string
		build func(p *Path)
		want  model.BBox
		ok    bool
	}{
		{"re", func(p *Path) { p.Rectangle(10, 20, 30, 40) }, model.NewBBox(10, 20, 30, 40), true},
		{"closed by lineto", func(p *Path) {
			p.MoveTo(0, 0)
			p.LineTo(5, 0)
			p.LineTo(5, 5)
			p.LineTo(0, 5)
			p.LineTo(0, 0)
		}, model.NewBBox(0, 0, 5, 5), true},
		{"triangle", func(p *Path) {
			p.MoveTo(0, 0)
			p.LineTo(5, 0)
			p.LineTo(0, 5)
			p.ClosePath()
		}, model.BBox{}, false},
		{"rotated square", func(p *Path) {
			p.MoveTo(0, 5)
			p.LineTo(5, 0)
			p.LineTo(10, 5)
			p.LineTo(5, 10)
			p.ClosePath()
		}, model.BBox{}, false},
		{"curve", func(p *Path) {
			p.MoveTo(0, 0)
			p.CurveTo(1, 1, 2, 2, 3, 3)
			p.LineTo(0, 3)
			p.ClosePath()
		}, model.BBox{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPath()
			tt.build(p)
			got, ok := p.AsRectangle()
			if ok != tt.ok || got != tt.want {
				t.Errorf("AsRectangle() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestPaintFor(t *testing.T) {
	tests := []struct {
		op   string
		want Paint
		ok   bool
	}{
		{"S", Paint{Stroke: true}, true},
		{"s", Paint{Stroke: true, Close: true}, true},
		{"f", Paint{Fill: true}, true},
		{"F", Paint{Fill: true}, true},
		{"f*", Paint{Fill: true, EvenOdd: true}, true},
		{"B", Paint{Stroke: true, Fill: true}, true},
		{"B*", Paint{Stroke: true, Fill: true, EvenOdd: true}, true},
		{"b", Paint{Stroke: true, Fill: true, Close: true}, true},
		{"b*", Paint{Stroke: true, Fill: true, EvenOdd: true, Close: true}, true},
		{"n", Paint{}, true},
		{"re", Paint{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			got, ok := PaintFor(tt.op)
			if got != tt.want || ok != tt.ok {
				t.Errorf("PaintFor(%q) = %+v, %v; want %+v, %v", tt.op, got, ok, tt.want, tt.ok)
			}
		})
	}
}
