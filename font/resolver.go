package font

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/tsawler/pagedecode/core"
)

// Resolver chooses glyph sources for fonts and caches loaded fonts for one
// session. It is safe for concurrent use; each font key is loaded once.
type Resolver struct {
	library    *Library
	strategies []Strategy
	logger     *slog.Logger

	handlerMu sync.RWMutex
	handler   FontHandler

	group   singleflight.Group
	mu      sync.RWMutex
	fonts   map[Key]*Font
	sources map[Key]*GlyphSource

	loads       atomic.Int64
	resolutions atomic.Int64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLibrary sets the fonts available for substitution.
func WithLibrary(l *Library) Option {
	return func(r *Resolver) { r.library = l }
}

// WithStrategies sets the substitution chain, tried in order.
func WithStrategies(s ...Strategy) Option {
	return func(r *Resolver) { r.strategies = append([]Strategy(nil), s...) }
}

// WithHandler installs a font handler.
func WithHandler(h FontHandler) Option {
	return func(r *Resolver) { r.handler = h }
}

// WithLogger sets the logger for substitution decisions.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver returns a resolver with an empty library and the default
// strategy chain unless options say otherwise.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		library:    NewLibrary(),
		strategies: DefaultStrategies(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		fonts:      make(map[Key]*Font),
		sources:    make(map[Key]*GlyphSource),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.library == nil {
		r.library = NewLibrary()
	}
	return r
}

// Library returns the substitution library.
func (r *Resolver) Library() *Library { return r.library }

// SetHandler replaces the font handler. A nil handler removes it. Fonts
// already cached keep their sources.
func (r *Resolver) SetHandler(h FontHandler) {
	r.handlerMu.Lock()
	r.handler = h
	r.handlerMu.Unlock()
}

func (r *Resolver) currentHandler() FontHandler {
	r.handlerMu.RLock()
	defer r.handlerMu.RUnlock()
	return r.handler
}

// Resolve returns the glyph source for d: the embedded program, then the
// handler, then the strategy chain, then DefaultSource. It never fails.
func (r *Resolver) Resolve(ctx context.Context, d *Descriptor) *GlyphSource {
	r.mu.RLock()
	src, ok := r.sources[d.Key]
	r.mu.RUnlock()
	if ok {
		return src
	}
	v, _, _ := r.group.Do("s"+d.Key.String(), func() (interface{}, error) {
		r.mu.RLock()
		src, ok := r.sources[d.Key]
		r.mu.RUnlock()
		if ok {
			return src, nil
		}
		src = r.resolve(ctx, d)
		r.mu.Lock()
		r.sources[d.Key] = src
		r.mu.Unlock()
		return src, nil
	})
	return v.(*GlyphSource)
}

func (r *Resolver) resolve(ctx context.Context, d *Descriptor) *GlyphSource {
	r.resolutions.Add(1)
	switch d.ProgramKind {
	case ProgramTrueType, ProgramOpenType:
		src, err := NewGlyphSource(d.BaseFont, SourceEmbedded, d.Program)
		if err == nil {
			return src
		}
		d.problem("embedded program unusable: %v", err)
		r.logger.Warn("embedded font unusable", "font", d.BaseFont, "obj", d.Key.String(), "err", err)
	case ProgramType1, ProgramCFF:
		r.logger.Debug("embedded program not drawable, substituting", "font", d.BaseFont, "obj", d.Key.String())
	}

	if h := r.currentHandler(); h != nil {
		if src, ok := h.SubstituteFont(ctx, d); ok && src != nil {
			return src.WithKind(SourceHandler, 0)
		}
	}

	if r.library.Len() > 0 {
		for _, s := range r.strategies {
			if f := s.match(r.library, d); f != nil {
				r.logger.Debug("font substituted", "font", d.BaseFont, "with", f.Source.Name, "strategy", s.String())
				return f.Source.WithKind(SourceSubstituted, s)
			}
		}
	}
	r.logger.Debug("font defaulted", "font", d.BaseFont)
	return DefaultSource()
}

// Load reads the font dictionary obj and pairs it with a glyph source.
// Results are cached by key.
func (r *Resolver) Load(ctx context.Context, store Store, obj core.Object, key Key) (*Font, error) {
	r.mu.RLock()
	f, ok := r.fonts[key]
	r.mu.RUnlock()
	if ok {
		return f, nil
	}
	v, err, _ := r.group.Do("f"+key.String(), func() (interface{}, error) {
		r.mu.RLock()
		f, ok := r.fonts[key]
		r.mu.RUnlock()
		if ok {
			return f, nil
		}
		d, err := LoadDescriptor(ctx, store, obj, key)
		if err != nil {
			return nil, err
		}
		r.loads.Add(1)
		f = NewFont(d, r.Resolve(ctx, d))
		r.mu.Lock()
		r.fonts[key] = f
		r.mu.Unlock()
		return f, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	return v.(*Font), nil
}

// Loads returns how many font dictionaries have been read.
func (r *Resolver) Loads() int64 { return r.loads.Load() }

// Resolutions returns how many glyph-source decisions have been made.
func (r *Resolver) Resolutions() int64 { return r.resolutions.Load() }

// Flush drops cached fonts and sources.
func (r *Resolver) Flush() {
	r.mu.Lock()
	r.fonts = make(map[Key]*Font)
	r.sources = make(map[Key]*GlyphSource)
	r.mu.Unlock()
}
