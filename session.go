package pagedecode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"github.com/tsawler/pagedecode/core"
	"github.com/tsawler/pagedecode/font"
	"github.com/tsawler/pagedecode/interpreter"
	"github.com/tsawler/pagedecode/objstore"
	"github.com/tsawler/pagedecode/ocr"
	"github.com/tsawler/pagedecode/pages"
	"github.com/tsawler/pagedecode/raster"
	"github.com/tsawler/pagedecode/scheduler"
	"github.com/tsawler/pagedecode/security"
	"github.com/tsawler/pagedecode/text"
)

// Session is one open document. It is safe for concurrent use.
//
// A session opened without credentials for a document that needs a
// password is locked: it reports IsFileViewable false and page operations
// fail with ErrNotAuthenticated until SetEncryptionPassword succeeds.
type Session struct {
	opts     options
	logger   *slog.Logger
	src      core.Source
	layout   *pages.Layout
	store    *objstore.Store
	fonts    *font.Resolver
	interp   *interpreter.Interpreter
	grouper  *text.Grouper
	renderer *raster.Renderer
	mode     atomic.Pointer[interpreter.Mode]
	stop     context.CancelFunc

	mu       sync.RWMutex
	security *security.Handler
	sec      *security.Context
	index    *pages.Index
	sched    *scheduler.Scheduler
	handlers handlers
	closed   bool

	ocrOnce sync.Once
	ocr     *ocr.Client
	ocrErr  error
}

// Open reads the file at path and opens it.
func Open(path string, opts ...Option) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return OpenBytes(data, opts...)
}

// OpenBytes opens a document held in memory. data must not be modified
// while the session is open.
func OpenBytes(data []byte, opts ...Option) (*Session, error) {
	return OpenSource(context.Background(), core.BytesSource(data), opts...)
}

// OpenReader opens a document read from r. Reading continues in the
// background; a linearized document is usable once its first page has
// arrived.
func OpenReader(r io.Reader, opts ...Option) (*Session, error) {
	src := core.NewGrowingSource(-1)
	go src.ReadFrom(r)
	return OpenSource(context.Background(), src, opts...)
}

// OpenURL downloads a document over HTTP. The download runs until it
// completes or the session is closed; ctx bounds only the open. A
// linearized document is usable before the download completes.
func OpenURL(ctx context.Context, url string, opts ...Option) (*Session, error) {
	o := collect(opts)
	dl, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(dl, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	abort := context.AfterFunc(ctx, cancel)
	defer abort()

	resp, err := o.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}
	src := core.NewGrowingSource(resp.ContentLength)
	go func() {
		defer resp.Body.Close()
		if _, err := src.ReadFrom(resp.Body); err != nil {
			o.logger.Warn("download failed", "url", url, "err", err)
		}
	}()

	s, err := open(ctx, src, o)
	if err != nil {
		cancel()
		return nil, err
	}
	s.stop = cancel
	return s, nil
}

// OpenSource opens a document from any byte source, complete or still
// arriving.
func OpenSource(ctx context.Context, src core.Source, opts ...Option) (*Session, error) {
	return open(ctx, src, collect(opts))
}

func collect(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func open(ctx context.Context, src core.Source, o options) (*Session, error) {
	layout, err := pages.ReadLayout(ctx, src, o.limits)
	if err != nil {
		return nil, err
	}
	store := objstore.New(src, layout.XRef,
		objstore.WithCacheBudget(o.cacheBudget),
		objstore.WithStreamCacheSize(o.streamCache),
		objstore.WithLimits(o.limits),
		objstore.WithLogger(o.logger),
	)
	fonts := font.NewResolver(font.WithLibrary(o.library), font.WithLogger(o.logger))
	s := &Session{
		opts:     o,
		logger:   o.logger,
		src:      src,
		layout:   layout,
		store:    store,
		fonts:    fonts,
		interp:   interpreter.New(store, fonts, interpreter.WithMaxFormDepth(o.maxForms), interpreter.WithLogger(o.logger)),
		grouper:  text.NewGrouper(o.grouping),
		renderer: raster.New(raster.WithLogger(o.logger)),
	}
	mode := o.mode
	s.mode.Store(&mode)

	if err := s.authenticate(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sec != nil {
		if err := s.build(ctx); err != nil {
			return nil, err
		}
	}
	s.logger.Info("document opened",
		"version", layout.Version,
		"pages", s.pageCountLocked(),
		"encrypted", s.security != nil,
		"viewable", s.index != nil,
		"linearized", layout.Linearization != nil,
	)
	return s, nil
}

// authenticate installs the security context. A document that needs a
// password nobody supplied is left locked without error.
func (s *Session) authenticate(ctx context.Context) error {
	trailer := s.store.Trailer()
	enc, ok := trailer["Encrypt"]
	if !ok {
		s.sec = security.NoEncryption()
		return nil
	}
	ref, _ := enc.(core.ObjectRef)
	s.store.SetEncrypted(ref)
	dict, err := s.store.ResolveDict(ctx, enc)
	if err != nil {
		return fmt.Errorf("%w: encryption dictionary: %w", ErrMalformedDocument, err)
	}
	h, err := security.NewHandler(dict, fileID(trailer))
	if err != nil {
		return err
	}
	s.security = h

	c, err := s.credentials(h)
	if err != nil {
		var authErr *AuthenticationError
		if errors.As(err, &authErr) && !s.suppliedCredentials() {
			s.logger.Info("document locked until a password is supplied", "handler_revision", h.Revision())
			return nil
		}
		return err
	}
	s.install(c)
	return nil
}

func (s *Session) suppliedCredentials() bool {
	return s.opts.havePassword || s.opts.cert != nil || s.opts.pkcs12 != nil
}

// credentials authenticates with whatever the options supplied, falling
// back to the empty user password.
func (s *Session) credentials(h *security.Handler) (*security.Context, error) {
	cert, key := s.opts.cert, s.opts.key
	if s.opts.pkcs12 != nil {
		var err error
		if cert, key, err = security.LoadPKCS12(s.opts.pkcs12, s.opts.pkcs12Pass); err != nil {
			return nil, err
		}
	}
	if h.IsPublicKey() {
		if cert == nil {
			return nil, &AuthenticationError{FileID: fileID(s.store.Trailer()), Method: "certificate"}
		}
		return h.AuthenticateCertificate(cert, key)
	}
	return h.Authenticate(s.opts.password)
}

func (s *Session) install(c *security.Context) {
	s.sec = c
	if c.IsEncrypted() {
		s.store.SetDecrypter(c)
	}
	s.logger.Info("authenticated", "owner", c.IsOwner(), "password_supplied", c.IsPasswordSupplied())
}

func fileID(trailer core.Dict) []byte {
	ids, ok := trailer.Array("ID")
	if !ok || len(ids) == 0 {
		return nil
	}
	if id, ok := ids[0].(core.String); ok {
		return []byte(id)
	}
	return nil
}

// build indexes the pages and starts the scheduler. It is called with s.mu
// held.
func (s *Session) build(ctx context.Context) error {
	index, err := pages.NewIndex(ctx, s.store, s.layout, pages.WithLogger(s.logger))
	if err != nil {
		return err
	}
	s.index = index
	s.sched = scheduler.New(index, s.interp,
		scheduler.WithWorkers(s.opts.workers),
		scheduler.WithMode(s.currentMode),
		scheduler.WithEngine(s.engine()),
		scheduler.WithStatus(s.handlers.status),
		scheduler.WithLogger(s.logger),
	)
	return nil
}

// SetEncryptionPassword authenticates with pw. It unlocks a session opened
// without the password and can upgrade a user-password session to owner
// permissions. A rejected password returns ErrInvalidCredentials and
// leaves the session as it was.
func (s *Session) SetEncryptionPassword(ctx context.Context, pw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.security == nil {
		return nil
	}
	c, err := s.security.Authenticate(pw)
	if err != nil {
		return err
	}
	s.install(c)
	if s.index == nil {
		return s.build(ctx)
	}
	s.sched.InvalidateAll()
	return nil
}

// ready returns the scheduler and index of an unlocked, open session.
func (s *Session) ready() (*scheduler.Scheduler, *pages.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, nil, ErrClosed
	}
	if s.index == nil {
		return nil, nil, ErrNotAuthenticated
	}
	return s.sched, s.index, nil
}

func (s *Session) currentMode() interpreter.Mode { return *s.mode.Load() }

// Mode returns the mode the next decode will use.
func (s *Session) Mode() interpreter.Mode { return s.currentMode() }

// updateMode replaces the session mode with a modified copy and drops
// results decoded under the old one. Decodes already running keep the
// mode they started with.
func (s *Session) updateMode(fn func(*interpreter.Mode)) {
	for {
		old := s.mode.Load()
		next := *old
		fn(&next)
		if s.mode.CompareAndSwap(old, &next) {
			break
		}
	}
	if sched, _, err := s.ready(); err == nil {
		sched.InvalidateAll()
	}
}

// SetExtractionMode sets the extraction flags for later decodes.
func (s *Session) SetExtractionMode(m interpreter.ExtractionMode) {
	s.updateMode(func(mode *interpreter.Mode) { mode.Extraction = m })
}

// SetRenderMode sets the render flags for later decodes.
func (s *Session) SetRenderMode(m interpreter.RenderMode) {
	s.updateMode(func(mode *interpreter.Mode) { mode.Render = m })
}

// SetPageParameters sets the output scale and the rotation added to each
// page's own, in degrees clockwise.
func (s *Session) SetPageParameters(scale float64, rotation int) {
	s.updateMode(func(mode *interpreter.Mode) {
		mode.Scale = scale
		mode.Rotation = rotation
	})
}

// SetInset shifts output coordinates right and up by inset device units.
func (s *Session) SetInset(inset float64) {
	s.updateMode(func(mode *interpreter.Mode) { mode.Inset = inset })
}

// SetCacheBudget bounds the number of cached indirect objects.
func (s *Session) SetCacheBudget(entries int) { s.store.SetCacheBudget(entries) }

// SetStreamCacheSize bounds the bytes of cached decoded streams.
func (s *Session) SetStreamCacheSize(bytes int64) { s.store.SetStreamCacheSize(bytes) }

// FlushObjectValues drops every cached object and decoded stream.
func (s *Session) FlushObjectValues() { s.store.Flush() }

// CacheStats reports object cache activity.
func (s *Session) CacheStats() objstore.Stats { return s.store.Stats() }

// Close stops background work and the download of OpenURL. Decodes
// already interpreting run to completion.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sched := s.sched
	s.mu.Unlock()

	if sched != nil {
		sched.Close()
	}
	if s.stop != nil {
		s.stop()
	}
	s.store.Flush()
	s.fonts.Flush()
	s.logger.Debug("session closed")
	// Waits for a recognizer being created and stops later ones.
	s.ocrOnce.Do(func() {})
	return s.ocr.Close()
}
