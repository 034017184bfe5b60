package interpreter

import (
	"github.com/tsawler/pagedecode/contentstream"
	"github.com/tsawler/pagedecode/graphicsstate"
	"github.com/tsawler/pagedecode/model"
)

// buildPath handles path construction. Points are mapped to device space
// as they are added.
func (r *run) buildPath(op contentstream.Operation) {
	ctm := r.gs.CTM
	pt := func(x, y float64) model.Point { return ctm.Transform(model.Point{X: x, Y: y}) }
	p := r.path
	switch op.Operator {
	case "m":
		v, ok := r.numbers(op, 2)
		if !ok {
			return
		}
		a := pt(v[0], v[1])
		p.MoveTo(a.X, a.Y)
	case "l":
		v, ok := r.numbers(op, 2)
		if !ok {
			return
		}
		a := pt(v[0], v[1])
		p.LineTo(a.X, a.Y)
	case "c":
		v, ok := r.numbers(op, 6)
		if !ok {
			return
		}
		a, b, c := pt(v[0], v[1]), pt(v[2], v[3]), pt(v[4], v[5])
		p.CurveTo(a.X, a.Y, b.X, b.Y, c.X, c.Y)
	case "v":
		v, ok := r.numbers(op, 4)
		if !ok {
			return
		}
		b, c := pt(v[0], v[1]), pt(v[2], v[3])
		p.CurveToV(b.X, b.Y, c.X, c.Y)
	case "y":
		v, ok := r.numbers(op, 4)
		if !ok {
			return
		}
		a, c := pt(v[0], v[1]), pt(v[2], v[3])
		p.CurveToY(a.X, a.Y, c.X, c.Y)
	case "h":
		p.ClosePath()
	case "re":
		v, ok := r.numbers(op, 4)
		if !ok {
			return
		}
		x, y, w, h := v[0], v[1], v[2], v[3]
		a, b, c, d := pt(x, y), pt(x+w, y), pt(x+w, y+h), pt(x, y+h)
		p.MoveTo(a.X, a.Y)
		p.LineTo(b.X, b.Y)
		p.LineTo(c.X, c.Y)
		p.LineTo(d.X, d.Y)
		p.ClosePath()
	}
}

// paintPath ends the current path. The clip set by a preceding W or W*
// takes effect after painting.
func (r *run) paintPath(op contentstream.Operation) {
	paint, _ := graphicsstate.PaintFor(op.Operator)
	p := r.path
	if paint.Close {
		p.ClosePath()
	}
	if (paint.Stroke || paint.Fill) && !p.IsEmpty() && !r.mode.Render.Has(RemoveRenderShapes) {
		lw := r.gs.DeviceLineWidth()
		bbox := p.Bounds()
		if paint.Stroke {
			bbox = bbox.Inset(-lw / 2)
		}
		r.emit(&PathCommand{
			Path:        p,
			Paint:       paint,
			StrokeColor: r.gs.StrokeColor.RGBA(),
			FillColor:   r.gs.FillColor.RGBA(),
			StrokeAlpha: r.gs.StrokeAlpha,
			FillAlpha:   r.gs.FillAlpha,
			LineWidth:   lw,
			BBox:        bbox,
			Clip:        r.gs.Clip,
			Seq:         r.next(),
		})
	}
	if r.clipPending {
		if !p.IsEmpty() {
			if rect, ok := p.AsRectangle(); ok {
				r.gs.ClipTo(rect)
			} else {
				r.gs.ClipTo(p.Bounds())
			}
		}
		r.clipPending = false
	}
	r.path = graphicsstate.NewPath()
}
