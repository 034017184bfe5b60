package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tsawler/pagedecode/interpreter"
	"github.com/tsawler/pagedecode/pages"
	"github.com/tsawler/pagedecode/text"
)

// PageSource resolves page handles. *pages.Index implements it.
type PageSource interface {
	PageCount() int
	WaitPage(ctx context.Context, i int) (pages.PageHandle, error)
}

// Decoder interprets a page. *interpreter.Interpreter implements it.
type Decoder interface {
	Interpret(ctx context.Context, page pages.PageHandle, mode interpreter.Mode) (*interpreter.CommandStream, error)
}

// StatusFunc is told about every state change of a page.
type StatusFunc func(page int, state State)

// Scheduler runs page decodes. Each page has at most one decode in flight;
// callers asking for a page that is decoding join that decode.
type Scheduler struct {
	pages   PageSource
	decoder Decoder
	mode    func() interpreter.Mode
	engine  atomic.Pointer[engineBox]
	sem     *semaphore.Weighted
	logger  *slog.Logger
	prewarm bool

	base   context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	entries     map[int]*entry
	last        int
	status      StatusFunc
	events      []event
	dispatching bool
}

type event struct {
	page  int
	state State
}

type engineBox struct{ e text.Engine }

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWorkers bounds the number of concurrent background decodes. The
// default is GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithMode supplies the mode read at the start of each decode.
func WithMode(fn func() interpreter.Mode) Option {
	return func(s *Scheduler) { s.mode = fn }
}

// WithEngine sets the grouping engine used for Result.Lines.
func WithEngine(e text.Engine) Option {
	return func(s *Scheduler) { s.SetEngine(e) }
}

// WithPrewarm controls background grouping after each decode. It is on
// by default.
func WithPrewarm(on bool) Option {
	return func(s *Scheduler) { s.prewarm = on }
}

// WithStatus registers fn for state changes.
func WithStatus(fn StatusFunc) Option {
	return func(s *Scheduler) { s.status = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Scheduler decoding pages from src with d.
func New(src PageSource, d Decoder, opts ...Option) *Scheduler {
	s := &Scheduler{
		pages:   src,
		decoder: d,
		mode:    interpreter.DefaultMode,
		sem:     semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		prewarm: true,
		entries: make(map[int]*entry),
		last:    -1,
	}
	s.engine.Store(&engineBox{text.NewGrouper(text.DefaultConfig())})
	s.base, s.cancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetEngine replaces the grouping engine for later decodes. A nil engine
// restores the default Grouper.
func (s *Scheduler) SetEngine(e text.Engine) {
	if e == nil {
		e = text.NewGrouper(text.DefaultConfig())
	}
	s.engine.Store(&engineBox{e})
}

// SetStatus replaces the status handler. Calls to the handler are
// serialized and arrive in transition order.
func (s *Scheduler) SetStatus(fn StatusFunc) {
	s.mu.Lock()
	s.status = fn
	s.mu.Unlock()
}

func (s *Scheduler) checkIndex(i int) error {
	if n := s.pages.PageCount(); i < 0 || i >= n {
		return fmt.Errorf("%w: %d of %d", pages.ErrPageRange, i, n)
	}
	return nil
}

func (s *Scheduler) entry(i int) *entry {
	e, ok := s.entries[i]
	if !ok {
		e = &entry{}
		s.entries[i] = e
	}
	return e
}

// transition sets the state of page i and queues a status event. It is
// called with s.mu held and releases it.
func (s *Scheduler) transition(i int, e *entry, st State) {
	s.setState(i, e, st)
	s.dispatch()
}

func (s *Scheduler) setState(i int, e *entry, st State) {
	e.state = st
	s.events = append(s.events, event{i, st})
}

// dispatch delivers queued status events in order, with s.mu released
// while the handler runs. It is called with s.mu held and releases it.
// Only one goroutine dispatches at a time.
func (s *Scheduler) dispatch() {
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true
	for len(s.events) > 0 {
		batch, fn := s.events, s.status
		s.events = nil
		s.mu.Unlock()
		if fn != nil {
			for _, ev := range batch {
				fn(ev.page, ev.state)
			}
		}
		s.mu.Lock()
	}
	s.dispatching = false
	s.mu.Unlock()
}

// begin returns the attempt to wait on for page i, starting one when the
// page is not decoding or decoded.
func (s *Scheduler) begin(i int, background bool) (*attempt, error) {
	if err := s.base.Err(); err != nil {
		return nil, ErrClosed
	}
	if err := s.checkIndex(i); err != nil {
		return nil, err
	}
	s.mu.Lock()
	e := s.entry(i)
	if e.state == Decoding || e.state == Decoded {
		a := e.cur
		s.mu.Unlock()
		return a, nil
	}
	a := newAttempt(i)
	e.cur = a
	e.started = time.Now()
	s.transition(i, e, Decoding)
	go s.execute(i, a, background)
	return a, nil
}

// DecodePage returns the decoded page i, decoding it if needed. A failed
// page is decoded again. ctx bounds the wait; the decode itself runs to
// completion. Pages of a linearized file that have not arrived yet are
// waited for.
func (s *Scheduler) DecodePage(ctx context.Context, i int) (*Result, error) {
	a, err := s.begin(i, false)
	if err != nil {
		return nil, err
	}
	return a.wait(ctx)
}

// DecodePageInBackground starts decoding page i on the worker pool and
// returns without waiting. A page that is decoding or decoded returns a
// future for the existing result.
func (s *Scheduler) DecodePageInBackground(i int) (*Future, error) {
	a, err := s.begin(i, true)
	if err != nil {
		return nil, err
	}
	return &Future{a: a}, nil
}

// WaitForDecodingToFinish blocks until no page is decoding.
func (s *Scheduler) WaitForDecodingToFinish() {
	for {
		var pending []*attempt
		s.mu.Lock()
		for _, e := range s.entries {
			if e.state == Decoding {
				pending = append(pending, e.cur)
			}
		}
		s.mu.Unlock()
		if len(pending) == 0 {
			return
		}
		for _, a := range pending {
			<-a.done
		}
	}
}

func (s *Scheduler) execute(i int, a *attempt, background bool) {
	var (
		res *Result
		err error
	)
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("page %d: %w: %v", i, ErrPanic, p)
			s.logger.Error("decode panic", "page", i, "panic", p)
		}
		s.finish(i, a, res, err)
	}()

	ctx := s.base
	if background {
		if err = s.sem.Acquire(ctx, 1); err != nil {
			err = fmt.Errorf("page %d: %w", i, ErrClosed)
			return
		}
		defer s.sem.Release(1)
	}
	page, err := s.pages.WaitPage(ctx, i)
	if err != nil {
		err = fmt.Errorf("page %d: %w", i, err)
		return
	}
	mode := s.mode()
	s.mu.Lock()
	s.entry(i).interpretations++
	s.mu.Unlock()

	start := time.Now()
	cs, err := s.decoder.Interpret(ctx, page, mode)
	if err != nil {
		return
	}
	res = &Result{
		Page:    i,
		Stream:  cs,
		Mode:    mode,
		Elapsed: time.Since(start),
		engine:  s.engine.Load().e,
	}
	if s.prewarm {
		res.pending = s.group(res)
	}
	s.logger.Debug("page decoded", "page", i, "commands", len(cs.Commands), "warnings", len(cs.Warnings), "elapsed", res.Elapsed)
}

// group starts background grouping of res on the worker pool.
func (s *Scheduler) group(res *Result) <-chan []text.TextLine {
	if g, ok := res.engine.(*text.Grouper); ok && s.sem.TryAcquire(1) {
		ch := g.Background(res.Stream)
		out := make(chan []text.TextLine, 1)
		go func() {
			defer s.sem.Release(1)
			defer close(out)
			out <- <-ch
		}()
		return out
	}
	out := make(chan []text.TextLine, 1)
	go func() {
		defer close(out)
		if err := s.sem.Acquire(s.base, 1); err != nil {
			return
		}
		defer s.sem.Release(1)
		out <- res.engine.Group(res.Stream)
	}()
	return out
}

func (s *Scheduler) finish(i int, a *attempt, res *Result, err error) {
	s.mu.Lock()
	a.res, a.err = res, err
	e := s.entry(i)
	st := Decoded
	if err != nil {
		st = Failed
		s.logger.Warn("page decode failed", "page", i, "error", err)
	} else {
		s.last = i
	}
	if e.cur == a {
		s.setState(i, e, st)
	}
	close(a.done)
	s.dispatch()
}

// IsPageAvailable reports whether page i has finished decoding, with or
// without success.
func (s *Scheduler) IsPageAvailable(i int) bool {
	return s.State(i).Terminal()
}

// State returns the decode state of page i.
func (s *Scheduler) State(i int) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[i]; ok {
		return e.state
	}
	return NotStarted
}

// Result returns the decoded page i without decoding it.
func (s *Scheduler) Result(i int) (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[i]; ok && e.state == Decoded {
		return e.cur.res, true
	}
	return nil, false
}

// Report describes the decode state of page i, including the failure
// reason or the interpreter warnings.
func (s *Scheduler) Report(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[i]
	if !ok {
		e = &entry{}
	}
	return report(i, e)
}

// LastDecoded returns the page that most recently finished decoding
// successfully, or -1.
func (s *Scheduler) LastDecoded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// InterpretationCount returns how many times page i has been handed to
// the decoder.
func (s *Scheduler) InterpretationCount(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[i]; ok {
		return e.interpretations
	}
	return 0
}

// Invalidate drops the result of page i so the next request decodes it
// again. A page that is decoding is left alone and false is returned.
func (s *Scheduler) Invalidate(i int) bool {
	s.mu.Lock()
	e, ok := s.entries[i]
	if !ok || e.state == NotStarted {
		s.mu.Unlock()
		return true
	}
	if e.state == Decoding {
		s.mu.Unlock()
		return false
	}
	e.cur = nil
	s.transition(i, e, NotStarted)
	return true
}

// InvalidateAll drops every finished result.
func (s *Scheduler) InvalidateAll() {
	s.mu.Lock()
	var idx []int
	for i, e := range s.entries {
		if e.state.Terminal() {
			idx = append(idx, i)
		}
	}
	s.mu.Unlock()
	for _, i := range idx {
		s.Invalidate(i)
	}
}

// Close stops queued background work. Decodes already interpreting run
// to completion; new requests fail with ErrClosed.
func (s *Scheduler) Close() {
	s.cancel()
}
