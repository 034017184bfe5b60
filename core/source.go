package core

import (
	"context"
	"io"
	"sync"
)

// Source supplies document bytes, possibly still arriving. Bytes returns
// the prefix available so far; callers must not modify it.
type Source interface {
	Bytes() []byte
	// Size is the expected total length, or -1 when unknown.
	Size() int64
	Complete() bool
	// Wait blocks until at least n bytes are available, the source is
	// complete, or ctx is done.
	Wait(ctx context.Context, n int64) error
}

// BytesSource is a complete in-memory document.
type BytesSource []byte

func (b BytesSource) Bytes() []byte                           { return b }
func (b BytesSource) Size() int64                             { return int64(len(b)) }
func (b BytesSource) Complete() bool                          { return true }
func (b BytesSource) Wait(ctx context.Context, n int64) error { return nil }

// GrowingSource is filled progressively, typically from a network body.
type GrowingSource struct {
	mu      sync.Mutex
	buf     []byte
	size    int64
	done    bool
	err     error
	changed chan struct{}
}

// NewGrowingSource creates an empty source. size is the expected length or -1.
func NewGrowingSource(size int64) *GrowingSource {
	g := &GrowingSource{size: size, changed: make(chan struct{})}
	if size > 0 {
		g.buf = make([]byte, 0, size)
	}
	return g
}

// Append adds bytes and wakes waiters.
func (g *GrowingSource) Append(p []byte) {
	g.mu.Lock()
	g.buf = append(g.buf, p...)
	g.notifyLocked()
	g.mu.Unlock()
}

// Finish marks the source complete. err records a transfer failure.
func (g *GrowingSource) Finish(err error) {
	g.mu.Lock()
	if !g.done {
		g.done = true
		g.err = err
		g.size = int64(len(g.buf))
		g.notifyLocked()
	}
	g.mu.Unlock()
}

func (g *GrowingSource) notifyLocked() {
	close(g.changed)
	g.changed = make(chan struct{})
}

// ReadFrom copies r into the source until EOF, then finishes it.
func (g *GrowingSource) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	buf := make([]byte, 32<<10)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			g.Append(buf[:n])
			total += int64(n)
		}
		if err == io.EOF {
			g.Finish(nil)
			return total, nil
		}
		if err != nil {
			g.Finish(err)
			return total, err
		}
	}
}

func (g *GrowingSource) Bytes() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buf[:len(g.buf):len(g.buf)]
}

func (g *GrowingSource) Size() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.size
}

func (g *GrowingSource) Complete() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done
}

// Err returns the transfer error recorded by Finish.
func (g *GrowingSource) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

func (g *GrowingSource) Wait(ctx context.Context, n int64) error {
	for {
		g.mu.Lock()
		if g.done || int64(len(g.buf)) >= n {
			g.mu.Unlock()
			return nil
		}
		ch := g.changed
		g.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
