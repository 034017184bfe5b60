package interpreter

import "strings"

// ExtractionMode selects what the interpreter records for extraction.
// Flags combine with |.
type ExtractionMode int

const (
	Text          ExtractionMode = 1
	RawImages     ExtractionMode = 2
	FinalImages   ExtractionMode = 4
	RawCommands   ExtractionMode = 16
	ClippedImages ExtractionMode = 32
	TextColor     ExtractionMode = 64
	CMYKImages    ExtractionMode = 128
	XFormMetadata ExtractionMode = 256
	// RasterizeForms records each form XObject as a single FormRaster
	// command holding the form's own commands.
	RasterizeForms ExtractionMode = 1024
)

var extractionNames = []struct {
	flag ExtractionMode
	name string
}{
	{Text, "TEXT"},
	{RawImages, "RAWIMAGES"},
	{FinalImages, "FINALIMAGES"},
	{RawCommands, "RAWCOMMANDS"},
	{ClippedImages, "CLIPPEDIMAGES"},
	{TextColor, "TEXTCOLOR"},
	{CMYKImages, "CMYKIMAGES"},
	{XFormMetadata, "XFORMMETADATA"},
	{RasterizeForms, "RASTERIZE_FORMS"},
}

// Has reports whether every flag in f is set.
func (m ExtractionMode) Has(f ExtractionMode) bool { return m&f == f }

func (m ExtractionMode) String() string {
	var parts []string
	for _, e := range extractionNames {
		if m.Has(e.flag) {
			parts = append(parts, e.name)
		}
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// RenderMode selects what the interpreter produces for display.
type RenderMode int

const (
	RenderText   RenderMode = 1
	RenderImages RenderMode = 2
	// RemoveRenderShapes drops path painting from the stream.
	RemoveRenderShapes RenderMode = 16
	// RemoveNoForms skips form XObjects entirely, whatever else is set.
	RemoveNoForms RenderMode = 32
)

var renderNames = []struct {
	flag RenderMode
	name string
}{
	{RenderText, "RENDERTEXT"},
	{RenderImages, "RENDERIMAGES"},
	{RemoveRenderShapes, "REMOVE_RENDERSHAPES"},
	{RemoveNoForms, "REMOVE_NOFORMS"},
}

// Has reports whether every flag in f is set.
func (m RenderMode) Has(f RenderMode) bool { return m&f == f }

func (m RenderMode) String() string {
	var parts []string
	for _, e := range renderNames {
		if m.Has(e.flag) {
			parts = append(parts, e.name)
		}
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// Mode is the full set of parameters for one interpretation. It is a value;
// changing a session's mode never affects a decode already under way.
type Mode struct {
	Extraction ExtractionMode
	Render     RenderMode
	// Rotation is added to the page's /Rotate, in degrees clockwise.
	Rotation int
	// Scale multiplies device coordinates. Zero means 1.
	Scale float64
	// Inset shifts output coordinates right and up by this many device
	// units.
	Inset float64
}

// DefaultMode extracts and renders text and images.
func DefaultMode() Mode {
	return Mode{
		Extraction: Text | FinalImages,
		Render:     RenderText | RenderImages,
		Scale:      1,
	}
}

func (m Mode) text() bool {
	return m.Extraction.Has(Text) || m.Render.Has(RenderText)
}

func (m Mode) finalImages() bool {
	return m.Extraction.Has(FinalImages)
}

func (m Mode) anyImages() bool {
	return m.finalImages() || m.Extraction.Has(RawImages) || m.Extraction.Has(ClippedImages)
}
