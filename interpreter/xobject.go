package interpreter

import (
	"fmt"

	"github.com/tsawler/pagedecode/contentstream"
	"github.com/tsawler/pagedecode/core"
	"github.com/tsawler/pagedecode/graphicsstate"
	"github.com/tsawler/pagedecode/model"
)

func (r *run) xobject(op contentstream.Operation) error {
	name, ok := r.nameOperand(op, 0)
	if !ok {
		return nil
	}
	entry, ok := r.resource("XObject", name)
	if !ok {
		r.warnOp(WarnResource, op, "XObject %s not found", name)
		return nil
	}
	obj, err := r.in.store.ResolveObject(r.ctx, entry)
	if err != nil {
		r.warnOp(WarnResource, op, "XObject %s: %v", name, err)
		return nil
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		r.warnOp(WarnResource, op, "XObject %s is %s, not a stream", name, obj.Kind())
		return nil
	}
	ref, _ := entry.(core.ObjectRef)
	subtype, _ := stream.Dict.Name("Subtype")
	switch subtype {
	case "Image":
		if !r.mode.anyImages() {
			return nil
		}
		_, data, err := r.in.store.StreamData(r.ctx, entry)
		if err != nil {
			r.warnOp(WarnResource, op, "image %s: %v", name, err)
			return nil
		}
		img, err := r.imageData(stream, data)
		if err != nil {
			r.warnOp(WarnResource, op, "image %s: %v", name, err)
			return nil
		}
		img.Name, img.Ref = string(name), ref
		r.paintImage(img)
	case "Form":
		return r.form(op, string(name), ref, entry, stream)
	case "PS":
	default:
		r.warnOp(WarnResource, op, "XObject %s has subtype %q", name, subtype)
	}
	return nil
}

func (r *run) form(op contentstream.Operation, name string, ref core.ObjectRef, entry core.Object, stream *core.Stream) error {
	if r.mode.Render.Has(RemoveNoForms) {
		return nil
	}
	if r.depth+1 > r.in.maxFormDepth {
		return fmt.Errorf("page %d: form %s at depth %d: %w", r.page.Index, name, r.depth+1, ErrContentTooDeep)
	}
	_, data, err := r.in.store.StreamData(r.ctx, entry)
	if err != nil {
		r.warnOp(WarnResource, op, "form %s: %v", name, err)
		return nil
	}
	d := stream.Dict
	matrix := model.Identity()
	if arr, ok := d.Array("Matrix"); ok {
		if f, ok := arr.Floats(); ok && len(f) == 6 {
			matrix = model.Matrix(f)
		}
	}
	resources := r.resources
	if res, ok := d["Resources"]; ok {
		if rd, err := r.in.store.ResolveDict(r.ctx, res); err == nil {
			resources = rd
		}
	}

	base := r.gs.Depth()
	if err := r.gs.Save(); err != nil {
		r.warnOp(WarnContent, op, "form %s: %v", name, err)
		return nil
	}
	defer r.gs.RestoreTo(base)
	r.gs.Transform(matrix)

	var formBBox, deviceBBox model.BBox
	if arr, ok := d.Array("BBox"); ok {
		if f, ok := arr.Floats(); ok && len(f) == 4 {
			formBBox = model.RectBBox(f[0], f[1], f[2], f[3])
			deviceBBox = formBBox.Transform(r.gs.CTM)
			r.gs.ClipTo(deviceBBox)
		}
	}

	if r.mode.Extraction.Has(XFormMetadata) {
		r.emit(&FormCommand{
			Name:     name,
			Ref:      ref,
			FormBBox: formBBox,
			Matrix:   matrix,
			BBox:     deviceBBox,
			Depth:    r.depth + 1,
			Seq:      r.next(),
		})
	}

	savedPath, savedClip, savedCompat, savedBase := r.path, r.clipPending, r.compat, r.baseDepth
	savedSink := r.sink
	r.path, r.clipPending, r.compat, r.baseDepth = graphicsstate.NewPath(), false, 0, r.gs.Depth()
	r.depth++
	defer func() {
		r.depth--
		r.path, r.clipPending, r.compat, r.baseDepth = savedPath, savedClip, savedCompat, savedBase
		r.sink = savedSink
	}()

	var raster *FormRaster
	if r.mode.Extraction.Has(RasterizeForms) {
		raster = &FormRaster{Name: name, Ref: ref, BBox: deviceBBox, Seq: r.next()}
		r.sink = &raster.Commands
	}
	scope := fmt.Sprintf("%s/%s", r.scope, name)
	if ref.Num != 0 {
		scope = ref.String()
	}
	if err := r.execute(data, resources, scope); err != nil {
		return err
	}
	if raster != nil {
		if raster.BBox.IsEmpty() {
			for _, c := range raster.Commands {
				raster.BBox = raster.BBox.Union(c.Bounds())
			}
		}
		*savedSink = append(*savedSink, raster)
	}
	return nil
}

func (r *run) inlineImage(op contentstream.Operation) {
	if op.Image == nil || !r.mode.anyImages() {
		return
	}
	stream := &core.Stream{Dict: op.Image.Dict, Raw: op.Image.Data}
	data, err := stream.DecodeLimit(r.in.maxImage)
	if err != nil {
		r.warnOp(WarnResource, op, "inline image: %v", err)
		return
	}
	img, err := r.imageData(stream, data)
	if err != nil {
		r.warnOp(WarnResource, op, "inline image: %v", err)
		return
	}
	img.Inline = true
	r.paintImage(img)
}

// imageData reads the image dictionary. data has every filter except an
// image codec applied.
func (r *run) imageData(stream *core.Stream, data []byte) (*ImageData, error) {
	d := stream.Dict
	w, _ := d.Int("Width")
	h, _ := d.Int("Height")
	img := &ImageData{Width: int(w), Height: int(h), Data: data}
	if names, _, err := stream.Filters(); err == nil {
		for _, n := range names {
			switch n {
			case "DCTDecode", "DCT", "JPXDecode", "JBIG2Decode":
				img.Filter = n
			}
		}
	}
	img.ImageMask, _ = d.Bool("ImageMask")
	if img.ImageMask {
		img.BitsPerComponent = 1
		img.MaskColor = r.gs.FillColor.RGBA()
	} else {
		bpc, ok := d.Int("BitsPerComponent")
		if !ok {
			bpc = 8
		}
		img.BitsPerComponent = int(bpc)
		if cs, ok := d["ColorSpace"]; ok {
			space, err := r.imageColorSpace(cs)
			if err != nil {
				return nil, err
			}
			img.ColorSpace = space
		} else if img.Filter == "" {
			return nil, fmt.Errorf("no /ColorSpace")
		} else {
			img.ColorSpace = graphicsstate.DeviceRGB
		}
	}
	if arr, ok := d.Array("Decode"); ok {
		img.DecodeArray, _ = arr.Floats()
	}
	if !r.mode.Extraction.Has(CMYKImages) {
		if err := img.convertCMYK(); err != nil {
			return nil, err
		}
	}
	return img, nil
}

// imageColorSpace resolves an image color space. Inline images may name a
// /ColorSpace resource.
func (r *run) imageColorSpace(obj core.Object) (*graphicsstate.ColorSpace, error) {
	if name, ok := obj.(core.Name); ok {
		if cs := graphicsstate.DeviceSpace(name); cs != nil {
			return cs, nil
		}
		if res, ok := r.resource("ColorSpace", name); ok {
			obj = res
		}
	}
	return graphicsstate.ParseColorSpace(r.ctx, r.in.store, obj)
}

func (r *run) paintImage(img *ImageData) {
	ctm := r.gs.CTM
	placed := model.NewBBox(0, 0, 1, 1).Transform(ctm)
	visible := placed.Intersection(r.gs.Clip)
	if r.mode.Extraction.Has(RawImages) {
		r.emit(&RawImage{Image: img, Matrix: ctm, BBox: placed, Seq: r.next()})
	}
	if visible.IsEmpty() {
		return
	}
	if r.mode.finalImages() {
		r.emit(&FinalImage{Image: img, Matrix: ctm, BBox: visible, Unclipped: placed, Alpha: r.gs.FillAlpha, Seq: r.next()})
	}
	if r.mode.Extraction.Has(ClippedImages) {
		r.emit(&ClippedImage{Image: img, BBox: visible, Region: sampleRegion(ctm, visible, img.Width, img.Height), Seq: r.next()})
	}
}
