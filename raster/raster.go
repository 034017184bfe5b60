// Package raster composites an interpreted page into an RGBA image.
//
// Paths are filled and stroked with golang.org/x/image/vector, images are
// resampled with golang.org/x/image/draw and glyphs are drawn with
// github.com/golang/freetype. Stroking is approximated by filling a
// quadrilateral per flattened segment, and even-odd fills use the
// nonzero rule.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/tsawler/pagedecode/font"
	"github.com/tsawler/pagedecode/graphicsstate"
	"github.com/tsawler/pagedecode/interpreter"
	"github.com/tsawler/pagedecode/model"
)

// curveSteps is the number of line segments a cubic is flattened into.
const curveSteps = 16

// Renderer draws command streams. It is safe for concurrent use.
type Renderer struct {
	background color.Color
	logger     *slog.Logger

	mu       sync.Mutex
	fonts    map[*font.GlyphSource]*truetype.Font
	fallback *truetype.Font
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithBackground sets the page color. The default is white.
func WithBackground(c color.Color) Option {
	return func(r *Renderer) { r.background = c }
}

// WithLogger sets the logger for images and fonts that cannot be drawn.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		background: color.White,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		fonts:      make(map[*font.GlyphSource]*truetype.Font),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// canvas is one render target. Device y grows upward; pixel y grows
// downward from the top of the page.
type canvas struct {
	r   *Renderer
	img *image.RGBA
	h   float64
}

// Render draws cs onto a new image of the page's device size.
func (r *Renderer) Render(cs *interpreter.CommandStream) (*image.RGBA, error) {
	if cs == nil {
		return nil, fmt.Errorf("raster: nil command stream")
	}
	w, h := int(math.Ceil(cs.Width)), int(math.Ceil(cs.Height))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("raster: page size %vx%v", cs.Width, cs.Height)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.background), image.Point{}, draw.Src)
	c := &canvas{r: r, img: img, h: float64(h)}
	c.draw(cs.Commands)
	return img, nil
}

func (c *canvas) draw(cmds []interpreter.Command) {
	for _, cmd := range cmds {
		switch v := cmd.(type) {
		case *interpreter.PathCommand:
			c.path(v)
		case *interpreter.FinalImage:
			c.drawImage(v)
		case *interpreter.GlyphRun:
			c.text(v)
		case *interpreter.FormRaster:
			c.form(v)
		}
	}
}

// rect converts a device box to the pixel rectangle it covers.
func (c *canvas) rect(b model.BBox) image.Rectangle {
	if b.IsEmpty() {
		return image.Rectangle{}
	}
	r := image.Rect(
		int(math.Floor(b.Left())), int(math.Floor(c.h-b.Top())),
		int(math.Ceil(b.Right())), int(math.Ceil(c.h-b.Bottom())),
	)
	return r.Intersect(c.img.Bounds())
}

func (c *canvas) pt(p model.Point) (float32, float32) {
	return float32(p.X), float32(c.h - p.Y)
}

func (c *canvas) path(p *interpreter.PathCommand) {
	clip := c.rect(p.Clip)
	if clip.Empty() {
		return
	}
	b := c.img.Bounds()
	if p.Paint.Fill {
		z := vector.NewRasterizer(b.Dx(), b.Dy())
		c.trace(z, p.Path)
		c.paint(z, clip, p.FillColor, p.FillAlpha)
	}
	if p.Paint.Stroke {
		z := vector.NewRasterizer(b.Dx(), b.Dy())
		lw := math.Max(p.LineWidth, 1)
		for _, seg := range flatten(p.Path) {
			c.strokeSegment(z, seg[0], seg[1], lw)
		}
		c.paint(z, clip, p.StrokeColor, p.StrokeAlpha)
	}
}

func (c *canvas) trace(z *vector.Rasterizer, p *graphicsstate.Path) {
	open := false
	for _, s := range p.Segments {
		switch s.Type {
		case graphicsstate.PathMoveTo:
			if open {
				z.ClosePath()
			}
			z.MoveTo(c.pt(s.Points[0]))
			open = true
		case graphicsstate.PathLineTo:
			z.LineTo(c.pt(s.Points[0]))
		case graphicsstate.PathCurveTo:
			x1, y1 := c.pt(s.Points[0])
			x2, y2 := c.pt(s.Points[1])
			x3, y3 := c.pt(s.Points[2])
			z.CubeTo(x1, y1, x2, y2, x3, y3)
		case graphicsstate.PathClosePath:
			z.ClosePath()
			open = false
		}
	}
	if open {
		z.ClosePath()
	}
}

func (c *canvas) strokeSegment(z *vector.Rasterizer, a, b model.Point, lw float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	n := math.Hypot(dx, dy)
	if n == 0 {
		return
	}
	ox, oy := -dy/n*lw/2, dx/n*lw/2
	z.MoveTo(c.pt(model.Point{X: a.X + ox, Y: a.Y + oy}))
	z.LineTo(c.pt(model.Point{X: b.X + ox, Y: b.Y + oy}))
	z.LineTo(c.pt(model.Point{X: b.X - ox, Y: b.Y - oy}))
	z.LineTo(c.pt(model.Point{X: a.X - ox, Y: a.Y - oy}))
	z.ClosePath()
}

// paint composites the coverage of z in col over the clip rectangle.
func (c *canvas) paint(z *vector.Rasterizer, clip image.Rectangle, col color.RGBA, alpha float64) {
	mask := image.NewAlpha(c.img.Bounds())
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	src := image.NewUniform(withAlpha(col, alpha))
	draw.DrawMask(c.img, clip, src, image.Point{}, mask, clip.Min, draw.Over)
}

func withAlpha(col color.RGBA, alpha float64) color.Color {
	if alpha <= 0 || alpha >= 1 {
		return col
	}
	return color.NRGBA{R: col.R, G: col.G, B: col.B, A: uint8(alpha*255 + 0.5)}
}

// flatten returns the line segments of p with curves subdivided.
func flatten(p *graphicsstate.Path) [][2]model.Point {
	var out [][2]model.Point
	var cur, start model.Point
	for _, s := range p.Segments {
		switch s.Type {
		case graphicsstate.PathMoveTo:
			cur, start = s.Points[0], s.Points[0]
		case graphicsstate.PathLineTo:
			out = append(out, [2]model.Point{cur, s.Points[0]})
			cur = s.Points[0]
		case graphicsstate.PathCurveTo:
			p0, p1, p2, p3 := cur, s.Points[0], s.Points[1], s.Points[2]
			prev := p0
			for i := 1; i <= curveSteps; i++ {
				t := float64(i) / curveSteps
				u := 1 - t
				q := model.Point{
					X: u*u*u*p0.X + 3*u*u*t*p1.X + 3*u*t*t*p2.X + t*t*t*p3.X,
					Y: u*u*u*p0.Y + 3*u*u*t*p1.Y + 3*u*t*t*p2.Y + t*t*t*p3.Y,
				}
				out = append(out, [2]model.Point{prev, q})
				prev = q
			}
			cur = p3
		case graphicsstate.PathClosePath:
			if cur != start {
				out = append(out, [2]model.Point{cur, start})
			}
			cur = start
		}
	}
	return out
}

// drawImage draws a final image. The unit square maps to the page through the
// image matrix, with sample row 0 at the top of the square.
func (c *canvas) drawImage(fi *interpreter.FinalImage) {
	clip := c.rect(fi.BBox)
	if clip.Empty() {
		return
	}
	src, err := fi.Image.Decode()
	if err != nil {
		c.r.logger.Debug("image not drawn", "name", fi.Image.Name, "error", err)
		return
	}
	sb := src.Bounds()
	w, h := float64(sb.Dx()), float64(sb.Dy())
	m := fi.Matrix
	aff := f64.Aff3{
		m[0] / w, -m[2] / h, m[2] + m[4] - m[0]*float64(sb.Min.X)/w + m[2]*float64(sb.Min.Y)/h,
		-m[1] / w, m[3] / h, c.h - m[3] - m[5] + m[1]*float64(sb.Min.X)/w - m[3]*float64(sb.Min.Y)/h,
	}
	if aff[0]*aff[4]-aff[1]*aff[3] == 0 {
		return
	}
	var opts *draw.Options
	if fi.Alpha > 0 && fi.Alpha < 1 {
		opts = &draw.Options{SrcMask: image.NewUniform(color.Alpha{A: uint8(fi.Alpha*255 + 0.5)})}
	}
	dst := c.img.SubImage(clip).(*image.RGBA)
	draw.BiLinear.Transform(dst, aff, src, sb, draw.Over, opts)
}

func (c *canvas) text(run *interpreter.GlyphRun) {
	if run.Invisible || len(run.Glyphs) == 0 {
		return
	}
	f := c.r.ttf(run.Font.Source)
	col := color.RGBA{A: 0xff}
	if run.HasColor {
		col = run.Color
	}
	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(f)
	ctx.SetClip(c.img.Bounds())
	ctx.SetDst(c.img)
	ctx.SetSrc(image.NewUniform(col))
	for _, g := range run.Glyphs {
		if g.Text == "" || g.Size <= 0 {
			continue
		}
		ctx.SetFontSize(g.Size)
		x, y := c.pt(g.Origin)
		at := fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)}
		if _, err := ctx.DrawString(g.Text, at); err != nil {
			c.r.logger.Debug("glyph not drawn", "text", g.Text, "error", err)
		}
	}
}

// form composites the commands of a rasterized form as one layer.
func (c *canvas) form(fr *interpreter.FormRaster) {
	clip := c.rect(fr.BBox)
	if clip.Empty() {
		return
	}
	layer := &canvas{r: c.r, img: image.NewRGBA(c.img.Bounds()), h: c.h}
	layer.draw(fr.Commands)
	draw.Draw(c.img, clip, layer.img, clip.Min, draw.Over)
}

// ttf returns the parsed program of src, or the fallback font when src is
// nil or is not a TrueType program.
func (r *Renderer) ttf(src *font.GlyphSource) *truetype.Font {
	r.mu.Lock()
	defer r.mu.Unlock()
	if src != nil {
		f, ok := r.fonts[src]
		if !ok {
			var err error
			if f, err = truetype.Parse(src.Data); err != nil {
				r.logger.Debug("font not TrueType, using fallback", "font", src.Name, "error", err)
				f = nil
			}
			r.fonts[src] = f
		}
		if f != nil {
			return f
		}
	}
	if r.fallback == nil {
		r.fallback, _ = truetype.Parse(goregular.TTF)
	}
	return r.fallback
}
