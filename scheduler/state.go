package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tsawler/pagedecode/interpreter"
	"github.com/tsawler/pagedecode/text"
)

// State is the decode lifecycle of one page.
type State int

const (
	NotStarted State = iota
	Decoding
	Decoded
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Decoding:
		return "decoding"
	case Decoded:
		return "decoded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether s is Decoded or Failed.
func (s State) Terminal() bool { return s == Decoded || s == Failed }

var (
	// ErrPanic wraps a panic raised while decoding a page.
	ErrPanic = errors.New("panic during decode")
	// ErrClosed is returned once the scheduler has been closed.
	ErrClosed = errors.New("scheduler closed")
)

// Result is a decoded page.
type Result struct {
	Page    int
	Stream  *interpreter.CommandStream
	Mode    interpreter.Mode
	Elapsed time.Duration

	engine  text.Engine
	pending <-chan []text.TextLine
	once    sync.Once
	lines   []text.TextLine
}

// Lines returns the grouped text of the page. A background grouping
// started after the decode is waited for; otherwise the lines are grouped
// on the calling goroutine.
func (r *Result) Lines() []text.TextLine {
	r.once.Do(func() {
		if r.pending != nil {
			if lines, ok := <-r.pending; ok {
				r.lines = lines
				return
			}
		}
		if r.engine != nil {
			r.lines = r.engine.Group(r.Stream)
		}
	})
	return r.lines
}

// Warnings returns the interpreter warnings of the page.
func (r *Result) Warnings() []interpreter.Warning {
	if r.Stream == nil {
		return nil
	}
	return r.Stream.Warnings
}

// attempt is one decode execution. done is closed when res or err is set.
type attempt struct {
	page int
	done chan struct{}
	res  *Result
	err  error
}

func newAttempt(page int) *attempt {
	return &attempt{page: page, done: make(chan struct{})}
}

func (a *attempt) wait(ctx context.Context) (*Result, error) {
	select {
	case <-a.done:
		return a.res, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Future is the pending outcome of a background decode.
type Future struct {
	a *attempt
}

// Page returns the page index.
func (f *Future) Page() int { return f.a.page }

// Done is closed when the decode reaches a terminal state.
func (f *Future) Done() <-chan struct{} { return f.a.done }

// Wait blocks until the decode finishes or ctx is done. Cancelling ctx
// does not stop the decode.
func (f *Future) Wait(ctx context.Context) (*Result, error) { return f.a.wait(ctx) }

// entry is the scheduler's record of one page.
type entry struct {
	state           State
	cur             *attempt
	interpretations int
	started         time.Time
}

func report(page int, e *entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "page %d: %s", page+1, e.state)
	switch e.state {
	case Decoding:
		fmt.Fprintf(&sb, " for %s", time.Since(e.started).Round(time.Millisecond))
	case Failed:
		fmt.Fprintf(&sb, ": %v", e.cur.err)
	case Decoded:
		res := e.cur.res
		fmt.Fprintf(&sb, " in %s, %d commands, %d text runs", res.Elapsed.Round(time.Microsecond), len(res.Stream.Commands), len(res.Stream.Runs))
		if w := res.Warnings(); len(w) > 0 {
			fmt.Fprintf(&sb, ", %d warnings\n%s", len(w), interpreter.FormatWarnings(w))
		}
	}
	return sb.String()
}
