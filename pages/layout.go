package pages

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/tsawler/pagedecode/core"
)

// Linearization holds the parameters of a /Linearized dictionary.
type Linearization struct {
	Length         int64 // L, file length
	FirstPageObj   int   // O, object number of the first page
	FirstPageEnd   int64 // E, end of the first-page section
	PageCount      int   // N
	MainXRef       int64 // T, first entry of the main cross-reference table
	FirstPageIndex int   // P, usually 0
	// FirstXRef is the offset of the first-page cross-reference section
	// that follows the linearization dictionary.
	FirstXRef int64
}

// Layout describes a document before any object is resolved.
type Layout struct {
	// Version is the header version, such as "1.7".
	Version string
	// XRef is the complete table, or only the first-page section when
	// Partial is set.
	XRef          *core.XRefTable
	Linearization *Linearization
	Partial       bool
}

const headerWindow = 1024

// ReadLayout reads the header and cross-reference data of src. For a
// linearized file that is not yet complete it returns as soon as the
// first-page section is readable; otherwise it waits for the whole file.
func ReadLayout(ctx context.Context, src core.Source, limits core.Limits) (*Layout, error) {
	if err := src.Wait(ctx, headerWindow); err != nil {
		return nil, err
	}
	data := src.Bytes()
	version, headerEnd, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	layout := &Layout{Version: version}

	lin := detectLinearized(data, headerEnd)
	if lin != nil && src.Size() > 0 && lin.Length != src.Size() {
		// An incremental update invalidates the linearization hints.
		lin = nil
	}
	layout.Linearization = lin

	if lin != nil && !src.Complete() {
		if xref, err := firstPageXRef(ctx, src, lin); err == nil {
			layout.XRef = xref
			layout.Partial = true
			return layout, nil
		}
	}

	if err := src.Wait(ctx, math.MaxInt64); err != nil {
		return nil, err
	}
	if e, ok := src.(interface{ Err() error }); ok && e.Err() != nil {
		return nil, fmt.Errorf("%w: reading source: %w", ErrMalformedDocument, e.Err())
	}
	xref, err := core.LoadXRef(src.Bytes(), limits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	layout.XRef = xref
	return layout, nil
}

// parseHeader finds "%PDF-M.m" near the start of data and returns the
// version and the offset just past it.
func parseHeader(data []byte) (string, int, error) {
	window := data[:min(len(data), headerWindow)]
	idx := bytes.Index(window, []byte("%PDF-"))
	if idx < 0 {
		return "", 0, fmt.Errorf("%w: no %%PDF header", ErrMalformedDocument)
	}
	start := idx + len("%PDF-")
	end := start
	for end < len(data) && (core.IsDigit(data[end]) || data[end] == '.') {
		end++
	}
	version := string(data[start:end])
	major, _, ok := splitVersion(version)
	if !ok {
		return "", 0, fmt.Errorf("%w: bad header version %q", ErrMalformedDocument, version)
	}
	if major > 2 {
		return "", 0, fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
	}
	return version, end, nil
}

func splitVersion(v string) (major, minor int, ok bool) {
	dot := bytes.IndexByte([]byte(v), '.')
	if dot <= 0 || dot == len(v)-1 {
		return 0, 0, false
	}
	major, err1 := strconv.Atoi(v[:dot])
	minor, err2 := strconv.Atoi(v[dot+1:])
	return major, minor, err1 == nil && err2 == nil
}

// newerVersion returns whichever of a and b is the later version.
func newerVersion(a, b string) string {
	amaj, amin, aok := splitVersion(a)
	bmaj, bmin, bok := splitVersion(b)
	switch {
	case !bok:
		return a
	case !aok:
		return b
	case bmaj > amaj || bmaj == amaj && bmin > amin:
		return b
	}
	return a
}

// detectLinearized parses the first object after the header and returns
// its linearization parameters, or nil.
func detectLinearized(data []byte, from int) *Linearization {
	p := core.NewParser(data, 0)
	p.Lexer().Seek(from)
	ind, err := p.ParseIndirect()
	if err != nil {
		return nil
	}
	d, ok := ind.Object.(core.Dict)
	if !ok || !d.Has("Linearized") {
		return nil
	}
	lin := &Linearization{}
	lin.Length, _ = d.Int("L")
	o, _ := d.Int("O")
	lin.FirstPageObj = int(o)
	lin.FirstPageEnd, _ = d.Int("E")
	n, _ := d.Int("N")
	lin.PageCount = int(n)
	lin.MainXRef, _ = d.Int("T")
	pg, _ := d.Int("P")
	lin.FirstPageIndex = int(pg)
	if lin.FirstPageObj <= 0 || lin.PageCount <= 0 {
		return nil
	}

	lex := p.Lexer()
	lex.SkipSpace()
	lin.FirstXRef = int64(lex.Pos())
	return lin
}

// firstPageXRef parses the first-page section, waiting for more bytes
// while it is incomplete.
func firstPageXRef(ctx context.Context, src core.Source, lin *Linearization) (*core.XRefTable, error) {
	// The section never extends past the first page, so do not wait for
	// bytes beyond it before the first attempt.
	want := min(lin.FirstXRef+4096, max(lin.FirstPageEnd, lin.FirstXRef+1))
	for {
		if err := src.Wait(ctx, want); err != nil {
			return nil, err
		}
		data := src.Bytes()
		section, err := core.ParseXRefSection(data, lin.FirstXRef)
		if err == nil && section.Trailer.Has("Root") {
			if _, ok := section.Entries[lin.FirstPageObj]; ok {
				delete(section.Trailer, "Prev")
				return section, nil
			}
		}
		if src.Complete() || (lin.Length > 0 && int64(len(data)) >= lin.Length) {
			if err == nil {
				err = fmt.Errorf("%w: first-page section lacks the first page", ErrMalformedDocument)
			}
			return nil, err
		}
		want = max(want*2, int64(len(data))+1)
		if lin.Length > 0 {
			want = min(want, lin.Length)
		}
	}
}
