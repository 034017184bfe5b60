package pages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/tsawler/pagedecode/core"
	"github.com/tsawler/pagedecode/model"
)

// Store is the object access an Index needs. objstore.Store implements it.
type Store interface {
	ResolveObject(ctx context.Context, obj core.Object) (core.Object, error)
	ResolveDict(ctx context.Context, obj core.Object) (core.Dict, error)
	ResolveArray(ctx context.Context, obj core.Object) (core.Array, error)
	StreamData(ctx context.Context, obj core.Object) (*core.Stream, []byte, error)
	Trailer() core.Dict
	SetXRef(x *core.XRefTable)
	Source() core.Source
	Limits() core.Limits
}

// maxTreeDepth bounds /Kids nesting.
const maxTreeDepth = 256

// Index gives access to the pages of one document. It is safe for
// concurrent use.
type Index struct {
	store   Store
	layout  *Layout
	logger  *slog.Logger
	catalog core.Dict
	version string

	mu      sync.RWMutex
	pages   []PageHandle
	byRef   map[core.ObjectRef]int
	first   *PageHandle
	count   int
	loading bool
	loadErr error
	done    chan struct{}
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger for page tree diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) { ix.logger = l }
}

// NewIndex resolves the catalog and the page tree. For a partial linearized
// layout only the first page is resolved before returning.
func NewIndex(ctx context.Context, store Store, layout *Layout, opts ...Option) (*Index, error) {
	ix := &Index{
		store:  store,
		layout: layout,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ix)
	}

	root, ok := store.Trailer()["Root"]
	if !ok {
		return nil, fmt.Errorf("%w: trailer has no /Root", ErrMalformedDocument)
	}
	catalog, err := store.ResolveDict(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog: %w", ErrMalformedDocument, err)
	}
	ix.catalog = catalog
	ix.version = layout.Version
	if v, ok := catalog.Name("Version"); ok {
		ix.version = newerVersion(ix.version, string(v))
	}

	if !layout.Partial {
		pages, byRef, err := ix.loadTree(ctx)
		if err != nil {
			return nil, err
		}
		ix.pages, ix.byRef, ix.count = pages, byRef, len(pages)
		close(ix.done)
		return ix, nil
	}

	lin := layout.Linearization
	first, err := ix.loadLinearizedFirst(ctx, lin)
	if err != nil {
		return nil, err
	}
	ix.first = first
	ix.count = lin.PageCount
	ix.loading = true
	ix.logger.Info("linearized document, indexing first page only", "pages", lin.PageCount, "first_obj", lin.FirstPageObj)
	go ix.finishLinearized()
	return ix, nil
}

func (ix *Index) loadLinearizedFirst(ctx context.Context, lin *Linearization) (*PageHandle, error) {
	ref := core.ObjectRef{Num: lin.FirstPageObj}
	dict, err := ix.store.ResolveDict(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: first page: %w", ErrMalformedDocument, err)
	}
	// Inherited attributes come from the /Parent chain, nearest first.
	chain := []core.Dict{dict}
	seen := map[core.ObjectRef]bool{ref: true}
	for node := dict; len(chain) < maxTreeDepth; {
		pref, ok := node.Ref("Parent")
		if !ok || seen[pref] {
			break
		}
		seen[pref] = true
		parent, err := ix.store.ResolveDict(ctx, pref)
		if err != nil {
			break
		}
		chain = append(chain, parent)
		node = parent
	}
	var inh inherited
	for i := len(chain) - 1; i >= 0; i-- {
		inh = inh.update(chain[i])
	}
	h := ix.newHandle(ctx, lin.FirstPageIndex, ref, dict, inh)
	return &h, nil
}

// finishLinearized waits for the rest of the file and indexes every page.
func (ix *Index) finishLinearized() {
	ctx := context.Background()
	src := ix.store.Source()
	err := func() error {
		if err := src.Wait(ctx, math.MaxInt64); err != nil {
			return err
		}
		if e, ok := src.(interface{ Err() error }); ok && e.Err() != nil {
			return fmt.Errorf("%w: reading source: %w", ErrMalformedDocument, e.Err())
		}
		xref, err := core.LoadXRef(src.Bytes(), ix.store.Limits())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}
		ix.store.SetXRef(xref)
		pages, byRef, err := ix.loadTree(ctx)
		if err != nil {
			return err
		}
		ix.mu.Lock()
		ix.pages, ix.byRef, ix.count = pages, byRef, len(pages)
		ix.mu.Unlock()
		return nil
	}()
	if err != nil {
		ix.logger.Error("linearized load failed", "err", err)
	} else {
		ix.logger.Info("linearized document fully loaded", "pages", ix.PageCount())
	}
	ix.mu.Lock()
	ix.loading = false
	ix.loadErr = err
	ix.mu.Unlock()
	close(ix.done)
}

// inherited carries the inheritable page attributes down the tree.
type inherited struct {
	resources, mediaBox, cropBox, rotate core.Object
}

func (inh inherited) update(d core.Dict) inherited {
	if v, ok := d["Resources"]; ok {
		inh.resources = v
	}
	if v, ok := d["MediaBox"]; ok {
		inh.mediaBox = v
	}
	if v, ok := d["CropBox"]; ok {
		inh.cropBox = v
	}
	if v, ok := d["Rotate"]; ok {
		inh.rotate = v
	}
	return inh
}

func (ix *Index) loadTree(ctx context.Context) ([]PageHandle, map[core.ObjectRef]int, error) {
	root, ok := ix.catalog["Pages"]
	if !ok {
		return nil, nil, fmt.Errorf("%w: catalog has no /Pages", ErrMalformedDocument)
	}
	if _, err := ix.store.ResolveDict(ctx, root); err != nil {
		return nil, nil, fmt.Errorf("%w: page tree root: %w", ErrMalformedDocument, err)
	}
	w := &treeWalker{ix: ix, visited: make(map[core.ObjectRef]bool), byRef: make(map[core.ObjectRef]int)}
	if err := w.walk(ctx, root, inherited{}, 0); err != nil {
		return nil, nil, err
	}
	return w.pages, w.byRef, nil
}

type treeWalker struct {
	ix      *Index
	visited map[core.ObjectRef]bool
	pages   []PageHandle
	byRef   map[core.ObjectRef]int
}

// walk visits node and its descendants. Unreadable or repeated kids are
// skipped so that one broken branch does not hide the rest of the tree.
func (w *treeWalker) walk(ctx context.Context, node core.Object, inh inherited, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth > maxTreeDepth {
		w.ix.logger.Warn("page tree too deep, branch skipped", "depth", depth)
		return nil
	}
	ref, isRef := node.(core.ObjectRef)
	if isRef {
		if w.visited[ref] {
			w.ix.logger.Warn("page tree cycle, node skipped", "obj", ref.Num, "gen", ref.Gen)
			return nil
		}
		w.visited[ref] = true
	}
	dict, err := w.ix.store.ResolveDict(ctx, node)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		w.ix.logger.Warn("page tree node unreadable", "obj", ref.Num, "err", err)
		return nil
	}
	inh = inh.update(dict)

	typ, _ := dict.Name("Type")
	kids, hasKids := dict["Kids"]
	if typ == "Pages" || (typ != "Page" && hasKids) {
		arr, err := w.ix.store.ResolveArray(ctx, kids)
		if err != nil {
			w.ix.logger.Warn("page tree /Kids unreadable", "obj", ref.Num, "err", err)
			return nil
		}
		for _, kid := range arr {
			if err := w.walk(ctx, kid, inh, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	idx := len(w.pages)
	w.pages = append(w.pages, w.ix.newHandle(ctx, idx, ref, dict, inh))
	if isRef {
		w.byRef[ref] = idx
	}
	return nil
}

func (ix *Index) newHandle(ctx context.Context, index int, ref core.ObjectRef, dict core.Dict, inh inherited) PageHandle {
	h := PageHandle{Index: index, Ref: ref, Dict: dict, Contents: dict["Contents"], UserUnit: 1}

	h.MediaBox = Letter
	if box, ok := ix.box(ctx, inh.mediaBox); ok {
		h.MediaBox = box
	}
	h.CropBox = h.MediaBox
	if box, ok := ix.box(ctx, inh.cropBox); ok {
		if clipped := box.Intersection(h.MediaBox); !clipped.IsEmpty() {
			h.CropBox = clipped
		}
	}
	if v, err := ix.store.ResolveObject(ctx, inh.rotate); err == nil {
		if n, ok := core.Number(v); ok {
			h.Rotate = normalizeRotation(int(n))
		}
	}
	h.Resources = core.Dict{}
	if inh.resources != nil {
		if res, err := ix.store.ResolveDict(ctx, inh.resources); err == nil {
			h.Resources = res
		} else {
			ix.logger.Warn("page resources unreadable", "page", index, "err", err)
		}
	}
	if u, ok := dict.Float("UserUnit"); ok && u > 0 {
		h.UserUnit = u
	}
	return h
}

func (ix *Index) box(ctx context.Context, obj core.Object) (model.BBox, bool) {
	if obj == nil {
		return model.BBox{}, false
	}
	arr, err := ix.store.ResolveArray(ctx, obj)
	if err != nil || len(arr) != 4 {
		return model.BBox{}, false
	}
	var v [4]float64
	for i, item := range arr {
		item, err := ix.store.ResolveObject(ctx, item)
		if err != nil {
			return model.BBox{}, false
		}
		n, ok := core.Number(item)
		if !ok {
			return model.BBox{}, false
		}
		v[i] = n
	}
	b := model.RectBBox(v[0], v[1], v[2], v[3])
	return b, !b.IsEmpty()
}

// ResolvePageTree returns every page. While a linearized file is loading
// it waits for the full index.
func (ix *Index) ResolvePageTree(ctx context.Context) ([]PageHandle, error) {
	if err := ix.WaitFullyLoaded(ctx); err != nil {
		return nil, err
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]PageHandle(nil), ix.pages...), nil
}

// Page returns page i without blocking.
func (ix *Index) Page(i int) (PageHandle, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if i < 0 || i >= ix.count {
		return PageHandle{}, fmt.Errorf("%w: %d of %d", ErrPageRange, i, ix.count)
	}
	if ix.pages != nil {
		return ix.pages[i], nil
	}
	if ix.first != nil && ix.first.Index == i {
		return *ix.first, nil
	}
	if !ix.loading && ix.loadErr != nil {
		return PageHandle{}, ix.loadErr
	}
	return PageHandle{}, fmt.Errorf("page %d: %w", i, ErrPageNotYetAvailable)
}

// WaitPage returns page i, waiting while it is not yet available.
func (ix *Index) WaitPage(ctx context.Context, i int) (PageHandle, error) {
	for {
		h, err := ix.Page(i)
		if !errors.Is(err, ErrPageNotYetAvailable) {
			return h, err
		}
		select {
		case <-ix.done:
		case <-ctx.Done():
			return PageHandle{}, ctx.Err()
		}
	}
}

// PageCount returns the number of pages. While a linearized file loads it
// is the /N value of the linearization dictionary.
func (ix *Index) PageCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.count
}

// IsLoadingLinearized reports whether the background index of a
// linearized file is still running.
func (ix *Index) IsLoadingLinearized() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.loading
}

// IsLinearized reports whether the file carries linearization parameters.
func (ix *Index) IsLinearized() bool { return ix.layout.Linearization != nil }

// WaitFullyLoaded blocks until every page is indexed and returns the
// background load error, if any.
func (ix *Index) WaitFullyLoaded(ctx context.Context) error {
	select {
	case <-ix.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.loadErr
}

// PageFromRef returns the index of the page object ref.
func (ix *Index) PageFromRef(ref core.ObjectRef) (int, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.byRef != nil {
		i, ok := ix.byRef[ref]
		return i, ok
	}
	if ix.first != nil && ix.first.Ref == ref {
		return ix.first.Index, true
	}
	return 0, false
}

// Catalog returns the document catalog.
func (ix *Index) Catalog() core.Dict { return ix.catalog }

// Version returns the later of the header version and the catalog
// /Version entry.
func (ix *Index) Version() string { return ix.version }

// Contents returns the concatenated, decoded content streams of p. Streams
// that cannot be read are skipped; the returned error joins their failures
// and the data is still usable.
func (ix *Index) Contents(ctx context.Context, p PageHandle) ([]byte, error) {
	if p.Contents == nil {
		return nil, nil
	}
	obj, err := ix.store.ResolveObject(ctx, p.Contents)
	if err != nil {
		return nil, fmt.Errorf("page %d contents: %w", p.Index, err)
	}
	var parts []core.Object
	switch v := obj.(type) {
	case core.Array:
		parts = v
	case core.Null:
		return nil, nil
	default:
		parts = []core.Object{p.Contents}
	}

	var out []byte
	var errs []error
	for i, part := range parts {
		_, data, err := ix.store.StreamData(ctx, part)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errs = append(errs, fmt.Errorf("page %d content stream %d: %w", p.Index, i, err))
			continue
		}
		if len(out) > 0 {
			out = append(out, '\n')
		}
		out = append(out, data...)
	}
	return out, errors.Join(errs...)
}
