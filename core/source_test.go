package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGrowingSourceWait(t *testing.T) {
	g := NewGrowingSource(10)
	done := make(chan error, 1)
	go func() {
		done <- g.Wait(context.Background(), 6)
	}()

	g.Append([]byte("abc"))
	select {
	case <-done:
		t.Fatal("Wait returned before enough bytes arrived")
	case <-time.After(20 * time.Millisecond):
	}
	g.Append([]byte("def"))
	if err := <-done; err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if string(g.Bytes()) != "abcdef" {
		t.Errorf("Bytes = %q", g.Bytes())
	}
	if g.Complete() {
		t.Error("source should not be complete yet")
	}
}

func TestGrowingSourceContext(t *testing.T) {
	g := NewGrowingSource(-1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := g.Wait(ctx, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestGrowingSourceReadFrom(t *testing.T) {
	g := NewGrowingSource(-1)
	n, err := g.ReadFrom(strings.NewReader("complete file"))
	if err != nil || n != 13 {
		t.Fatalf("ReadFrom = %d, %v", n, err)
	}
	if !g.Complete() || g.Size() != 13 {
		t.Errorf("Complete = %v, Size = %d", g.Complete(), g.Size())
	}
	if err := g.Wait(context.Background(), 1000); err != nil {
		t.Errorf("Wait on a finished source should return nil, got %v", err)
	}
}
