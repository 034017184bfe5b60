package pagedecode

import (
	"context"
	"fmt"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/tsawler/pagedecode/interpreter"
	"github.com/tsawler/pagedecode/ocr"
	"github.com/tsawler/pagedecode/scheduler"
	"github.com/tsawler/pagedecode/text"
)

// DecodePage decodes page i under the session mode, or returns the result
// of an earlier decode. ctx bounds the wait only.
func (s *Session) DecodePage(ctx context.Context, i int) (*scheduler.Result, error) {
	sched, _, err := s.ready()
	if err != nil {
		return nil, err
	}
	return sched.DecodePage(ctx, i)
}

// DecodePageInBackground starts decoding page i without waiting.
func (s *Session) DecodePageInBackground(i int) (*scheduler.Future, error) {
	sched, _, err := s.ready()
	if err != nil {
		return nil, err
	}
	return sched.DecodePageInBackground(i)
}

// WaitForDecodingToFinish blocks until no page is decoding.
func (s *Session) WaitForDecodingToFinish() {
	if sched, _, err := s.ready(); err == nil {
		sched.WaitForDecodingToFinish()
	}
}

// DecodeAll decodes every page on up to the configured number of workers.
// Every page is attempted; the first failure is returned.
func (s *Session) DecodeAll(ctx context.Context) error {
	sched, index, err := s.ready()
	if err != nil {
		return err
	}
	var g errgroup.Group
	n := s.opts.workers
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(n)
	for i := 0; i < index.PageCount(); i++ {
		i := i
		g.Go(func() error {
			_, err := sched.DecodePage(ctx, i)
			return err
		})
	}
	return g.Wait()
}

// IsPageAvailable reports whether page i has finished decoding.
func (s *Session) IsPageAvailable(i int) bool {
	return s.DecodeStatus(i).Terminal()
}

// DecodeStatus returns the decode state of page i.
func (s *Session) DecodeStatus(i int) scheduler.State {
	sched, _, err := s.ready()
	if err != nil {
		return scheduler.NotStarted
	}
	return sched.State(i)
}

// DecodeReport describes the decode of page i: its state and either the
// failure or the recovered warnings.
func (s *Session) DecodeReport(i int) string {
	sched, _, err := s.ready()
	if err != nil {
		return fmt.Sprintf("page %d: %v", i+1, err)
	}
	return sched.Report(i)
}

// LastPageDecoded returns the page that most recently decoded
// successfully, or -1.
func (s *Session) LastPageDecoded() int {
	sched, _, err := s.ready()
	if err != nil {
		return -1
	}
	return sched.LastDecoded()
}

// CommandStream returns the interpreted commands of page i.
func (s *Session) CommandStream(ctx context.Context, i int) (*interpreter.CommandStream, error) {
	res, err := s.DecodePage(ctx, i)
	if err != nil {
		return nil, err
	}
	return res.Stream, nil
}

// TextLines returns the grouped text lines of page i.
func (s *Session) TextLines(ctx context.Context, i int) ([]text.TextLine, error) {
	res, err := s.DecodePage(ctx, i)
	if err != nil {
		return nil, err
	}
	return res.Lines(), nil
}

// Text returns the text of page i together with the decode warnings. When
// OCR is enabled and the page has no text runs, the page is rasterized and
// recognized instead; a recognition failure is returned as a warning.
func (s *Session) Text(ctx context.Context, i int) (string, []Warning, error) {
	res, err := s.DecodePage(ctx, i)
	if err != nil {
		return "", nil, err
	}
	warnings := res.Warnings()
	if len(res.Stream.Runs) > 0 || s.opts.ocrLang == "" {
		return s.joinText(res.Lines()), warnings, nil
	}

	got, err := s.recognize(ctx, i)
	if err != nil {
		warnings = append(warnings, Warning{
			Kind:    interpreter.WarnResource,
			Page:    i,
			Offset:  -1,
			Message: fmt.Sprintf("ocr: %v", err),
		})
		return "", warnings, nil
	}
	return got, warnings, nil
}

func (s *Session) recognize(ctx context.Context, i int) (string, error) {
	s.ocrOnce.Do(func() {
		s.mu.RLock()
		closed := s.closed
		s.mu.RUnlock()
		if closed {
			s.ocrErr = ErrClosed
			return
		}
		s.ocr, s.ocrErr = ocr.New(s.opts.ocrLang)
	})
	if s.ocrErr != nil {
		return "", s.ocrErr
	}
	img, err := s.Snapshot(ctx, i)
	if err != nil {
		return "", err
	}
	return s.ocr.RecognizePage(img)
}

// Snapshot interprets page i with text colors and final images and
// composites it into an image of the page's output size. The decode does
// not replace the page's cached result.
func (s *Session) Snapshot(ctx context.Context, i int) (*image.RGBA, error) {
	_, index, err := s.ready()
	if err != nil {
		return nil, err
	}
	p, err := index.WaitPage(ctx, i)
	if err != nil {
		return nil, err
	}
	mode := s.currentMode()
	mode.Extraction |= interpreter.TextColor | interpreter.FinalImages
	mode.Render |= interpreter.RenderText | interpreter.RenderImages
	cs, err := s.interp.Interpret(ctx, p, mode)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", i, err)
	}
	return s.renderer.Render(cs)
}
