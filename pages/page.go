package pages

import (
	"github.com/tsawler/pagedecode/core"
	"github.com/tsawler/pagedecode/model"
)

// Letter is the media box assumed when a page and its ancestors have none.
var Letter = model.NewBBox(0, 0, 612, 792)

// PageHandle is a resolved page. It is immutable apart from the view
// parameters, which WithView replaces in a copy.
type PageHandle struct {
	// Index is the zero-based position in document order.
	Index int
	Ref   core.ObjectRef
	Dict  core.Dict

	MediaBox model.BBox
	CropBox  model.BBox
	// Rotate is the /Rotate value normalised to 0, 90, 180 or 270.
	Rotate    int
	Resources core.Dict
	// Contents is the unresolved /Contents entry.
	Contents core.Object
	UserUnit float64

	// ViewRotation is added to Rotate when mapping to device space.
	ViewRotation int
	// ViewScale multiplies device coordinates. Zero means 1.
	ViewScale float64
}

// WithView returns a copy of p with the given extra rotation and scale.
func (p PageHandle) WithView(rotation int, scale float64) PageHandle {
	p.ViewRotation = normalizeRotation(rotation)
	p.ViewScale = scale
	return p
}

// Rotation is the effective clockwise rotation in degrees.
func (p PageHandle) Rotation() int {
	return normalizeRotation(p.Rotate + p.ViewRotation)
}

// Scale is the effective view scale.
func (p PageHandle) Scale() float64 {
	if p.ViewScale <= 0 {
		return 1
	}
	return p.ViewScale
}

// Size returns the width and height of the visible area in points, after
// rotation but before view scaling.
func (p PageHandle) Size() (width, height float64) {
	if r := p.Rotation(); r == 90 || r == 270 {
		return p.CropBox.Height, p.CropBox.Width
	}
	return p.CropBox.Width, p.CropBox.Height
}

// DeviceMatrix maps page user space to upright, scaled device space with
// its origin at the lower left of the crop box.
func (p PageHandle) DeviceMatrix() model.Matrix {
	return model.PageMatrix(p.CropBox, p.Rotation(), p.Scale())
}

func normalizeRotation(r int) int {
	r = ((r % 360) + 360) % 360
	// /Rotate must be a multiple of 90; round anything else down.
	return r - r%90
}
