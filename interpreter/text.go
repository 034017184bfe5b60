package interpreter

import (
	"fmt"
	"strings"

	"github.com/tsawler/pagedecode/contentstream"
	"github.com/tsawler/pagedecode/core"
	"github.com/tsawler/pagedecode/font"
	"github.com/tsawler/pagedecode/model"
)

// virtualSpace is the TJ displacement, in 1000ths of an em, beyond which
// a space is added to the run text.
const virtualSpace = 200

// fallbackFont stands in for a font that cannot be loaded.
func fallbackFont(name string) *font.Font {
	return font.NewFont(&font.Descriptor{ResourceName: name, Subtype: "Type1", BaseFont: "Helvetica"}, nil)
}

func (r *run) setFont(op contentstream.Operation) {
	name, ok := r.nameOperand(op, 0)
	if !ok {
		return
	}
	size, ok := r.numbers(op, 1)
	if !ok {
		return
	}
	r.gs.SetFont(string(name), r.loadFont(op, name), size[0])
}

func (r *run) loadFont(op contentstream.Operation, name core.Name) *font.Font {
	cacheKey := r.scope + "/" + string(name)
	if f, ok := r.fonts[cacheKey]; ok {
		return f
	}
	f := r.resolveFont(op, name)
	r.fonts[cacheKey] = f
	return f
}

func (r *run) resolveFont(op contentstream.Operation, name core.Name) *font.Font {
	obj, ok := r.resource("Font", name)
	if !ok {
		r.warnOp(WarnResource, op, "font %s not found", name)
		return fallbackFont(string(name))
	}
	key := font.Key{Inline: fmt.Sprintf("%s@%s", name, r.scope)}
	if ref, ok := obj.(core.ObjectRef); ok {
		key = font.Key{Ref: ref}
	}
	f, err := r.in.fonts.Load(r.ctx, r.in.store, obj, key)
	if err != nil {
		r.warnOp(WarnResource, op, "font %s: %v", name, err)
		return fallbackFont(string(name))
	}
	for _, p := range f.Descriptor().Problems {
		r.warnOp(WarnResource, op, "font %s: %s", name, p)
	}
	return f
}

func (r *run) showText(op contentstream.Operation) {
	var items []core.Object
	switch op.Operator {
	case "Tj":
		items = op.Operands
	case "TJ":
		if len(op.Operands) > 0 {
			arr, ok := op.Operands[len(op.Operands)-1].(core.Array)
			if !ok {
				r.warnOp(WarnContent, op, "operand is %s, not an array", op.Operands[len(op.Operands)-1].Kind())
				return
			}
			items = arr
		}
	case "'":
		r.gs.NextLine()
		items = op.Operands
	case "\"":
		if len(op.Operands) != 3 {
			r.warnOp(WarnContent, op, "want 3 operands, got %d", len(op.Operands))
			return
		}
		aw, ok1 := core.Number(op.Operands[0])
		ac, ok2 := core.Number(op.Operands[1])
		if !ok1 || !ok2 {
			r.warnOp(WarnContent, op, "spacing operands must be numbers")
			return
		}
		r.gs.SetWordSpacing(aw)
		r.gs.SetCharSpacing(ac)
		r.gs.NextLine()
		items = op.Operands[2:]
	}
	if len(items) == 0 {
		r.warnOp(WarnContent, op, "missing string operand")
		return
	}
	if op.Operator != "TJ" {
		if _, ok := items[len(items)-1].(core.String); !ok {
			r.warnOp(WarnContent, op, "operand is %s, not a string", items[len(items)-1].Kind())
			return
		}
		items = items[len(items)-1:]
	}

	f := r.gs.Text.Font
	if f == nil {
		r.warnOp(WarnResource, op, "no font selected")
		f = fallbackFont("")
		r.gs.Text.Font = f
		if r.gs.Text.FontName == "" {
			r.gs.Text.FontSize = 1
		}
	}
	vertical := f.Vertical()
	start := r.gs.TextRenderingMatrix()
	run := &GlyphRun{
		Font: FontRef{
			Name:     r.gs.Text.FontName,
			BaseFont: f.Descriptor().BaseFont,
			Key:      f.Descriptor().Key,
			Source:   f.Source(),
		},
		Matrix:    start,
		Origin:    start.Transform(model.Point{}),
		FontSize:  start.ScaleY(),
		Vertical:  vertical,
		Invisible: r.gs.Invisible(),
	}

	var text strings.Builder
	for _, item := range items {
		switch v := item.(type) {
		case core.String:
			for _, g := range f.Decode([]byte(v)) {
				trm := r.gs.TextRenderingMatrix()
				origin := trm.Transform(model.Point{})
				r.gs.AdvanceGlyph(g.Width, g.Space, vertical)
				end := r.gs.TextRenderingMatrix().Transform(model.Point{})
				run.Glyphs = append(run.Glyphs, PlacedGlyph{
					Code:    g.Code,
					Text:    g.Text,
					Origin:  origin,
					Size:    trm.ScaleY(),
					Advance: origin.Distance(end),
				})
				run.Codes = append(run.Codes, g.Code)
				text.WriteString(g.Text)
			}
		case core.Int, core.Real:
			n, _ := core.Number(v)
			r.gs.AdjustText(n, vertical)
			if n < -virtualSpace && !vertical && text.Len() > 0 && !strings.HasSuffix(text.String(), " ") {
				text.WriteByte(' ')
			}
		default:
			r.warnOp(WarnContent, op, "%s in text array", item.Kind())
		}
	}
	if len(run.Glyphs) == 0 || !r.mode.text() {
		return
	}

	end := r.gs.TextRenderingMatrix()
	run.Width = run.Origin.Distance(end.Transform(model.Point{}))
	run.Text = font.NormalizeUnicode(text.String())
	run.BBox = runBBox(f, start, end, vertical)
	if r.mode.Extraction.Has(TextColor) {
		c := r.gs.FillColor
		if r.gs.Text.RenderingMode == 1 {
			c = r.gs.StrokeColor
		}
		run.Color = c.RGBA()
		run.HasColor = true
	}
	run.Seq = r.next()
	r.emit(run)
}

// runBBox spans the text space box from descent to ascent between the
// run's start and end matrices.
func runBBox(f *font.Font, start, end model.Matrix, vertical bool) model.BBox {
	if vertical {
		return model.PointsBBox(
			start.Transform(model.Point{X: -0.5}),
			start.Transform(model.Point{X: 0.5}),
			end.Transform(model.Point{X: -0.5}),
			end.Transform(model.Point{X: 0.5}),
		)
	}
	d := f.Descriptor()
	asc, desc := d.Ascent/1000, d.Descent/1000
	if asc == 0 && desc == 0 {
		asc, desc = 0.75, -0.25
	}
	return model.PointsBBox(
		start.Transform(model.Point{Y: desc}),
		start.Transform(model.Point{Y: asc}),
		end.Transform(model.Point{Y: desc}),
		end.Transform(model.Point{Y: asc}),
	)
}
