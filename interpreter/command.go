package interpreter

import (
	"image"
	"image/color"

	"github.com/tsawler/pagedecode/contentstream"
	"github.com/tsawler/pagedecode/core"
	"github.com/tsawler/pagedecode/font"
	"github.com/tsawler/pagedecode/graphicsstate"
	"github.com/tsawler/pagedecode/model"
)

// Command is one entry of a CommandStream. Coordinates are device space:
// the page after rotation, scaling and inset, origin at the lower left.
type Command interface {
	// Bounds is the device-space area the command covers.
	Bounds() model.BBox
	// Sequence is the command's position in emission order.
	Sequence() int
	command()
}

// FontRef names the font a run was shown with.
type FontRef struct {
	// Name is the resource name given to Tf.
	Name     string
	BaseFont string
	Key      font.Key
	Source   *font.GlyphSource
}

// PlacedGlyph is one character code of a run at its device position.
type PlacedGlyph struct {
	Code   uint32
	Text   string
	Origin model.Point
	// Size is the device font size at this glyph.
	Size float64
	// Advance is the device distance to the next glyph.
	Advance float64
}

// GlyphRun is the text of one show operator (Tj, TJ, ' or ").
type GlyphRun struct {
	Text  string
	Codes []uint32
	Font  FontRef
	// Matrix is the text rendering matrix at the first glyph.
	Matrix model.Matrix
	Origin model.Point
	// Width is the device advance of the whole run.
	Width    float64
	FontSize float64
	// Color is the fill color, set only when HasColor is.
	Color    color.RGBA
	HasColor bool
	BBox     model.BBox
	Seq      int
	Vertical bool
	// Invisible is set for rendering modes 3 and 7.
	Invisible bool
	Glyphs    []PlacedGlyph
}

func (r *GlyphRun) Bounds() model.BBox { return r.BBox }
func (r *GlyphRun) Sequence() int      { return r.Seq }
func (*GlyphRun) command()             {}

// Baseline is the device y of the run origin.
func (r *GlyphRun) Baseline() float64 { return r.Origin.Y }

// PathCommand is a painted path.
type PathCommand struct {
	// Path is in device space.
	Path        *graphicsstate.Path
	Paint       graphicsstate.Paint
	StrokeColor color.RGBA
	FillColor   color.RGBA
	StrokeAlpha float64
	FillAlpha   float64
	// LineWidth is in device units.
	LineWidth float64
	BBox      model.BBox
	Clip      model.BBox
	Seq       int
}

func (p *PathCommand) Bounds() model.BBox { return p.BBox }
func (p *PathCommand) Sequence() int      { return p.Seq }
func (*PathCommand) command()             {}

// RawImage is an image as stored in the file, with the matrix that maps
// the unit square onto the page.
type RawImage struct {
	Image  *ImageData
	Matrix model.Matrix
	BBox   model.BBox
	Seq    int
}

func (i *RawImage) Bounds() model.BBox { return i.BBox }
func (i *RawImage) Sequence() int      { return i.Seq }
func (*RawImage) command()             {}

// FinalImage is an image as it appears on the page: BBox is the visible
// area after the CTM and clip.
type FinalImage struct {
	Image  *ImageData
	Matrix model.Matrix
	BBox   model.BBox
	// Unclipped is the placement before clipping.
	Unclipped model.BBox
	Alpha     float64
	Seq       int
}

func (i *FinalImage) Bounds() model.BBox { return i.BBox }
func (i *FinalImage) Sequence() int      { return i.Seq }
func (*FinalImage) command()             {}

// ClippedImage is the visible part of an image in sample coordinates.
type ClippedImage struct {
	Image *ImageData
	BBox  model.BBox
	// Region is the rectangle of samples inside the clip, with the first
	// row at the top.
	Region image.Rectangle
	Seq    int
}

func (i *ClippedImage) Bounds() model.BBox { return i.BBox }
func (i *ClippedImage) Sequence() int      { return i.Seq }
func (*ClippedImage) command()             {}

// Cropped decodes the image and returns the samples inside Region.
func (i *ClippedImage) Cropped() (image.Image, error) {
	img, err := i.Image.Decode()
	if err != nil {
		return nil, err
	}
	if s, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return s.SubImage(i.Region), nil
	}
	return img, nil
}

// FormCommand records a form XObject invocation.
type FormCommand struct {
	Name string
	Ref  core.ObjectRef
	// FormBBox and Matrix are the form's /BBox and /Matrix.
	FormBBox model.BBox
	Matrix   model.Matrix
	BBox     model.BBox
	Depth    int
	Seq      int
}

func (f *FormCommand) Bounds() model.BBox { return f.BBox }
func (f *FormCommand) Sequence() int      { return f.Seq }
func (*FormCommand) command()             {}

// FormRaster holds the commands of a form that is to be composited as a
// single image.
type FormRaster struct {
	Name     string
	Ref      core.ObjectRef
	BBox     model.BBox
	Commands []Command
	Seq      int
}

func (f *FormRaster) Bounds() model.BBox { return f.BBox }
func (f *FormRaster) Sequence() int      { return f.Seq }
func (*FormRaster) command()             {}

// MarkedContent is a BMC, BDC, EMC, MP or DP operator.
type MarkedContent struct {
	Operator   string
	Tag        string
	Properties core.Dict
	Depth      int
	Seq        int
}

func (m *MarkedContent) Bounds() model.BBox { return model.BBox{} }
func (m *MarkedContent) Sequence() int      { return m.Seq }
func (*MarkedContent) command()             {}

// RawCommand is an operation recorded verbatim.
type RawCommand struct {
	Operation contentstream.Operation
	// Depth is the form nesting level the operation ran at.
	Depth int
	Seq   int
}

func (c *RawCommand) Bounds() model.BBox { return model.BBox{} }
func (c *RawCommand) Sequence() int      { return c.Seq }
func (*RawCommand) command()             {}

// CommandStream is the result of interpreting one page. It is not modified
// after Interpret returns.
type CommandStream struct {
	Page int
	// Width and Height are the device size of the page.
	Width    float64
	Height   float64
	Mode     Mode
	Commands []Command
	// Runs lists every glyph run in emission order, including those
	// nested in FormRaster commands.
	Runs     []*GlyphRun
	Warnings []Warning
}

// Images returns the final images in emission order.
func (cs *CommandStream) Images() []*FinalImage {
	var out []*FinalImage
	Walk(cs.Commands, func(c Command) {
		if img, ok := c.(*FinalImage); ok {
			out = append(out, img)
		}
	})
	return out
}

// Paths returns the painted paths in emission order.
func (cs *CommandStream) Paths() []*PathCommand {
	var out []*PathCommand
	Walk(cs.Commands, func(c Command) {
		if p, ok := c.(*PathCommand); ok {
			out = append(out, p)
		}
	})
	return out
}

// Walk calls fn for each command, descending into FormRaster commands
// after visiting them.
func Walk(cmds []Command, fn func(Command)) {
	for _, c := range cmds {
		fn(c)
		if f, ok := c.(*FormRaster); ok {
			Walk(f.Commands, fn)
		}
	}
}
