package interpreter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/tsawler/pagedecode/contentstream"
	"github.com/tsawler/pagedecode/core"
	"github.com/tsawler/pagedecode/font"
	"github.com/tsawler/pagedecode/graphicsstate"
	"github.com/tsawler/pagedecode/model"
	"github.com/tsawler/pagedecode/pages"
)

var (
	// ErrContentTooDeep is returned when form XObjects nest deeper than
	// the interpreter's limit. It fails the page.
	ErrContentTooDeep = errors.New("content nested too deeply")
	// ErrContents is returned when a page's content streams cannot be read.
	ErrContents = errors.New("unreadable page contents")
)

// MaxFormDepth is the default form XObject nesting limit.
const MaxFormDepth = 16

// Store resolves objects and streams. *objstore.Store implements it.
type Store interface {
	font.Store
}

// Interpreter executes page content streams. It is safe for concurrent use;
// each Interpret call has its own graphics state.
type Interpreter struct {
	store        Store
	fonts        *font.Resolver
	maxFormDepth int
	maxImage     int64
	logger       *slog.Logger

	interpretations atomic.Int64
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithMaxFormDepth sets the form nesting limit.
func WithMaxFormDepth(depth int) Option {
	return func(in *Interpreter) {
		if depth > 0 {
			in.maxFormDepth = depth
		}
	}
}

// WithMaxInlineImage caps the decoded size of an inline image.
func WithMaxInlineImage(bytes int64) Option {
	return func(in *Interpreter) { in.maxImage = bytes }
}

// WithLogger sets the logger for recovered problems.
func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) {
		if l != nil {
			in.logger = l
		}
	}
}

// New returns an interpreter reading objects from store and fonts through
// fonts. A nil resolver gets a default one.
func New(store Store, fonts *font.Resolver, opts ...Option) *Interpreter {
	if fonts == nil {
		fonts = font.NewResolver()
	}
	in := &Interpreter{
		store:        store,
		fonts:        fonts,
		maxFormDepth: MaxFormDepth,
		maxImage:     core.DefaultLimits().MaxDecompressedSize,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Interpretations returns how many pages have been interpreted.
func (in *Interpreter) Interpretations() int64 { return in.interpretations.Load() }

// Fonts returns the interpreter's font resolver.
func (in *Interpreter) Fonts() *font.Resolver { return in.fonts }

// Interpret runs the content of page under mode. Problems inside the
// content become warnings on the result; only unreadable contents and
// ErrContentTooDeep are returned as errors.
func (in *Interpreter) Interpret(ctx context.Context, page pages.PageHandle, mode Mode) (*CommandStream, error) {
	in.interpretations.Add(1)
	view := page.WithView(mode.Rotation, mode.Scale)
	w, h := view.Size()
	scale := view.Scale()
	device := view.DeviceMatrix().Multiply(model.Translate(mode.Inset, mode.Inset))

	out := &CommandStream{
		Page:   page.Index,
		Width:  w * scale,
		Height: h * scale,
		Mode:   mode,
	}
	r := &run{
		in:    in,
		ctx:   ctx,
		page:  page,
		mode:  mode,
		gs:    graphicsstate.NewGraphicsState(),
		out:   out,
		path:  graphicsstate.NewPath(),
		fonts: make(map[string]*font.Font),
	}
	r.sink = &out.Commands
	r.gs.CTM = device
	r.gs.Clip = view.CropBox.Transform(device)

	data, err := r.contents()
	if err != nil {
		return nil, err
	}
	if err := r.execute(data, page.Resources, fmt.Sprintf("p%d", page.Index)); err != nil {
		in.logger.Error("page failed", "page", page.Index, "err", err)
		return nil, err
	}
	in.logger.Debug("page interpreted", "page", page.Index, "commands", len(out.Commands), "runs", len(out.Runs), "warnings", len(out.Warnings))
	return out, nil
}

// run is the state of one Interpret call.
type run struct {
	in   *Interpreter
	ctx  context.Context
	page pages.PageHandle
	mode Mode
	gs   *graphicsstate.GraphicsState
	out  *CommandStream
	// sink receives emitted commands; it points into a FormRaster while
	// one is being filled.
	sink *[]Command
	seq  int

	path        *graphicsstate.Path
	clipPending bool

	resources core.Dict
	scope     string
	depth     int
	// baseDepth is the graphics state depth a Q may not pop below.
	baseDepth int
	compat    int
	marked    int

	fonts map[string]*font.Font
}

func (r *run) contents() ([]byte, error) {
	p := r.page
	if p.Contents == nil {
		return nil, nil
	}
	obj, err := r.in.store.ResolveObject(r.ctx, p.Contents)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w: %v", p.Index, ErrContents, err)
	}
	var parts []core.Object
	switch v := obj.(type) {
	case core.Array:
		parts = v
	case core.Null:
		return nil, nil
	case *core.Stream:
		parts = []core.Object{p.Contents}
	default:
		return nil, fmt.Errorf("page %d: %w: /Contents is %s", p.Index, ErrContents, obj.Kind())
	}

	var out []byte
	read := 0
	for i, part := range parts {
		_, data, err := r.in.store.StreamData(r.ctx, part)
		if err != nil {
			r.warn(WarnResource, -1, "", fmt.Sprintf("content stream %d: %v", i, err))
			continue
		}
		read++
		if len(out) > 0 {
			out = append(out, '\n')
		}
		out = append(out, data...)
	}
	if read == 0 && len(parts) > 0 {
		return nil, fmt.Errorf("page %d: %w", p.Index, ErrContents)
	}
	return out, nil
}

func (r *run) execute(data []byte, resources core.Dict, scope string) error {
	savedRes, savedScope := r.resources, r.scope
	r.resources, r.scope = resources, scope
	defer func() { r.resources, r.scope = savedRes, savedScope }()

	p := contentstream.NewParser(data)
	ops, _ := p.Parse()
	for _, e := range p.Errors() {
		r.warn(WarnContent, e.Offset, "", e.Err.Error())
	}
	for _, op := range ops {
		if err := r.do(op); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) emit(c Command) {
	*r.sink = append(*r.sink, c)
	if g, ok := c.(*GlyphRun); ok {
		r.out.Runs = append(r.out.Runs, g)
	}
}

func (r *run) next() int {
	r.seq++
	return r.seq
}

func (r *run) warn(kind WarningKind, offset int, operator, msg string) {
	w := Warning{Kind: kind, Page: r.page.Index, Offset: offset, Operator: operator, Message: msg}
	r.out.Warnings = append(r.out.Warnings, w)
	r.in.logger.Warn("content problem", "page", r.page.Index, "kind", kind.String(), "op", operator, "offset", offset, "err", msg)
}

func (r *run) warnOp(kind WarningKind, op contentstream.Operation, format string, args ...any) {
	r.warn(kind, op.Offset, op.Operator, fmt.Sprintf(format, args...))
}

func (r *run) do(op contentstream.Operation) error {
	if r.mode.Extraction.Has(RawCommands) {
		r.emit(&RawCommand{Operation: op, Depth: r.depth, Seq: r.next()})
	}

	if op.Operator == "Q" && r.gs.Depth() <= r.baseDepth {
		r.warnOp(WarnContent, op, "%v", graphicsstate.ErrStackUnderflow)
		return nil
	}
	err := r.gs.Apply(op)
	if err == nil {
		return nil
	}
	if !errors.Is(err, graphicsstate.ErrNotStateOperator) {
		r.warnOp(WarnContent, op, "%v", unwrapOperand(err))
		return nil
	}

	switch op.Operator {
	case "Tf":
		r.setFont(op)
	case "gs":
		r.extGState(op)
	case "cs", "CS":
		r.colorSpace(op)
	case "m", "l", "c", "v", "y", "h", "re":
		r.buildPath(op)
	case "S", "s", "f", "F", "f*", "B", "B*", "b", "b*", "n":
		r.paintPath(op)
	case "W", "W*":
		r.clipPending = true
	case "Tj", "TJ", "'", "\"":
		r.showText(op)
	case "Do":
		return r.xobject(op)
	case "BI":
		r.inlineImage(op)
	case "BMC", "BDC", "EMC", "MP", "DP":
		r.markedContent(op)
	case "BX":
		r.compat++
	case "EX":
		if r.compat > 0 {
			r.compat--
		}
	case "sh", "d0", "d1":
		// Shadings are not evaluated; Type 3 glyph metrics need no state.
	default:
		if r.compat == 0 {
			r.warnOp(WarnContent, op, "unknown operator")
		}
	}
	return nil
}

func unwrapOperand(err error) error {
	var oe *graphicsstate.OperandError
	if errors.As(err, &oe) {
		return oe.Err
	}
	return err
}

// resource returns /category /name from the current resources.
func (r *run) resource(category string, name core.Name) (core.Object, bool) {
	if r.resources == nil {
		return nil, false
	}
	cat, err := r.in.store.ResolveDict(r.ctx, r.resources[category])
	if err != nil || cat == nil {
		return nil, false
	}
	obj, ok := cat[string(name)]
	return obj, ok
}

func (r *run) numbers(op contentstream.Operation, n int) ([]float64, bool) {
	if len(op.Operands) < n {
		r.warnOp(WarnContent, op, "want %d operands, got %d", n, len(op.Operands))
		return nil, false
	}
	out := make([]float64, n)
	for i, obj := range op.Operands[len(op.Operands)-n:] {
		v, ok := core.Number(obj)
		if !ok {
			r.warnOp(WarnContent, op, "operand %d is %s", i, obj.Kind())
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func (r *run) nameOperand(op contentstream.Operation, i int) (core.Name, bool) {
	if i < len(op.Operands) {
		if n, ok := op.Operands[i].(core.Name); ok {
			return n, true
		}
	}
	r.warnOp(WarnContent, op, "missing name operand")
	return "", false
}

func (r *run) extGState(op contentstream.Operation) {
	name, ok := r.nameOperand(op, 0)
	if !ok {
		return
	}
	obj, ok := r.resource("ExtGState", name)
	if !ok {
		r.warnOp(WarnResource, op, "ExtGState %s not found", name)
		return
	}
	d, err := r.in.store.ResolveDict(r.ctx, obj)
	if err != nil {
		r.warnOp(WarnResource, op, "ExtGState %s: %v", name, err)
		return
	}
	f, ok := r.gs.ApplyExtGState(d)
	if !ok {
		return
	}
	size, _ := core.Number(f.At(1))
	key := font.Key{Inline: fmt.Sprintf("gs:%s@%s", name, r.scope)}
	if ref, ok := f[0].(core.ObjectRef); ok {
		key = font.Key{Ref: ref}
	}
	fnt, err := r.in.fonts.Load(r.ctx, r.in.store, f[0], key)
	if err != nil {
		r.warnOp(WarnResource, op, "ExtGState %s font: %v", name, err)
		fnt = fallbackFont(string(name))
	}
	r.gs.SetFont(string(name), fnt, size)
}

func (r *run) colorSpace(op contentstream.Operation) {
	name, ok := r.nameOperand(op, 0)
	if !ok {
		return
	}
	cs := graphicsstate.DeviceSpace(name)
	if cs == nil {
		obj, found := r.resource("ColorSpace", name)
		if !found {
			r.warnOp(WarnResource, op, "color space %s not found", name)
			return
		}
		var err error
		cs, err = graphicsstate.ParseColorSpace(r.ctx, r.in.store, obj)
		if err != nil {
			r.warnOp(WarnResource, op, "color space %s: %v", name, err)
			return
		}
	}
	if op.Operator == "CS" {
		r.gs.SetStrokeSpace(cs)
	} else {
		r.gs.SetFillSpace(cs)
	}
}

func (r *run) markedContent(op contentstream.Operation) {
	m := &MarkedContent{Operator: op.Operator, Depth: r.marked}
	switch op.Operator {
	case "BMC", "BDC":
		r.marked++
	case "EMC":
		if r.marked == 0 {
			r.warnOp(WarnContent, op, "EMC without BMC")
			return
		}
		r.marked--
		m.Depth = r.marked
	}
	if !r.mode.Extraction.Has(RawCommands) {
		return
	}
	if len(op.Operands) > 0 {
		if tag, ok := op.Operands[0].(core.Name); ok {
			m.Tag = string(tag)
		}
	}
	if len(op.Operands) > 1 {
		switch p := op.Operands[1].(type) {
		case core.Dict:
			m.Properties = p
		case core.Name:
			if obj, ok := r.resource("Properties", p); ok {
				if d, err := r.in.store.ResolveDict(r.ctx, obj); err == nil {
					m.Properties = d
				}
			}
		}
	}
	m.Seq = r.next()
	r.emit(m)
}
