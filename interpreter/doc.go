// Package interpreter executes page content streams and records what they
// draw as a CommandStream.
//
// An Interpreter is created once per document and shared by all pages:
//
//	in := interpreter.New(store, font.NewResolver())
//	cs, err := in.Interpret(ctx, page, interpreter.DefaultMode())
//	for _, run := range cs.Runs {
//	    fmt.Println(run.Origin, run.Text)
//	}
//
// # Modes
//
// A Mode combines extraction and render flags with view parameters. Text
// shows become GlyphRun commands when Text or RenderText is set, and carry
// their color only under TextColor. Path painting becomes PathCommand
// unless RemoveRenderShapes is set. Images are recorded as RawImage,
// FinalImage or ClippedImage depending on RawImages, FinalImages and
// ClippedImages; render flags never add image commands. CMYK samples
// are converted to RGB unless CMYKImages is set. Form XObjects are executed with the graphics
// state saved, unless RemoveNoForms is set; XFormMetadata records each
// invocation and RasterizeForms groups a form's commands under a
// FormRaster. RawCommands records every operation and marked content.
//
// Rotation, Scale and Inset only change output coordinates.
//
// # Errors
//
// Malformed or unknown operators and missing resources are recorded as
// Warnings and interpretation continues. Inside BX/EX unknown operators
// are ignored silently. Forms nested deeper than the limit fail the page
// with ErrContentTooDeep.
package interpreter
