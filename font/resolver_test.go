package font

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

func testLibrary(t *testing.T) *Library {
	t.Helper()
	lib := NewLibrary()
	for _, f := range []struct {
		name, family, full string
		data               []byte
	}{
		{"GoRegular", "Go", "Go Regular", goregular.TTF},
		{"GoBold", "Go", "Go Bold", gobold.TTF},
		{"GoItalic", "Go", "Go Italic", goitalic.TTF},
		{"GoMono", "Go Mono", "Go Mono", gomono.TTF},
	} {
		if err := lib.RegisterFont(f.name, f.family, f.full, f.data); err != nil {
			t.Fatalf("RegisterFont(%s): %v", f.name, err)
		}
	}
	return lib
}

func TestStrategies(t *testing.T) {
	lib := testLibrary(t)
	tests := []struct {
		name     string
		desc     Descriptor
		strategy Strategy
		want     string
	}{
		{"file name ignores subset tag", Descriptor{BaseFont: "ABCDEF+GoBold"}, ByFileName, "GoBold"},
		{"file name normalizes separators", Descriptor{BaseFont: "go-mono"}, ByFileName, "GoMono"},
		{"postscript name", Descriptor{BaseFont: "GoItalic"}, ByPostScriptName, "GoItalic"},
		{"postscript falls back to FontName", Descriptor{BaseFont: "F1", FontName: "GoBold"}, ByPostScriptName, "GoBold"},
		{"family prefers bold", Descriptor{BaseFont: "Go,Bold"}, ByFamilyName, "GoBold"},
		{"family prefers italic", Descriptor{BaseFont: "Go", Family: "Go", Flags: FlagItalic}, ByFamilyName, "GoItalic"},
		{"family plain", Descriptor{BaseFont: "Go", Family: "Go"}, ByFamilyName, "GoRegular"},
		{"full name", Descriptor{BaseFont: "Go Mono"}, ByFullName, "GoMono"},
		{"no match", Descriptor{BaseFont: "Zapfino"}, ByFileName, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.strategy.match(lib, &tt.desc)
			name := ""
			if got != nil {
				name = got.FileName
			}
			if name != tt.want {
				t.Errorf("%v.match(%q) = %q, want %q", tt.strategy, tt.desc.BaseFont, name, tt.want)
			}
		})
	}
}

func TestPostScriptNameFamilyIfDuplicate(t *testing.T) {
	lib := NewLibrary()
	if err := lib.RegisterFont("Dup", "Alpha", "Dup Alpha", goregular.TTF); err != nil {
		t.Fatal(err)
	}
	if err := lib.RegisterFont("Dup", "Beta", "Dup Beta", gomono.TTF); err != nil {
		t.Fatal(err)
	}
	d := &Descriptor{BaseFont: "Dup", Family: "Beta"}

	if got := ByPostScriptName.match(lib, d); got == nil || got.Family != "Alpha" {
		t.Errorf("ByPostScriptName chose %+v, want the first registered", got)
	}
	if got := ByPostScriptNameFamilyIfDuplicate.match(lib, d); got == nil || got.Family != "Beta" {
		t.Errorf("ByPostScriptNameFamilyIfDuplicate chose %+v, want family Beta", got)
	}
	d = &Descriptor{BaseFont: "Missing", Family: "Alpha"}
	if got := ByPostScriptNameFamilyIfDuplicate.match(lib, d); got == nil || got.Family != "Alpha" {
		t.Errorf("family fallback chose %+v, want Alpha", got)
	}
}

func TestResolveOrder(t *testing.T) {
	ctx := context.Background()
	lib := testLibrary(t)

	t.Run("substituted", func(t *testing.T) {
		r := NewResolver(WithLibrary(lib))
		src := r.Resolve(ctx, &Descriptor{Key: Key{Inline: "a"}, BaseFont: "GoBold"})
		if src.Kind != SourceSubstituted || src.Strategy != ByFileName || src.Name != "GoBold" {
			t.Errorf("source = %s %v %v", src.Name, src.Kind, src.Strategy)
		}
	})

	t.Run("strategy order", func(t *testing.T) {
		r := NewResolver(WithLibrary(lib), WithStrategies(ByFamilyName))
		src := r.Resolve(ctx, &Descriptor{Key: Key{Inline: "b"}, BaseFont: "GoBold"})
		if src.Kind != SourceDefault {
			t.Errorf("ByFamilyName matched %q", src.Name)
		}
	})

	t.Run("handler before library", func(t *testing.T) {
		mono, err := NewGlyphSource("mono", SourceSubstituted, gomono.TTF)
		if err != nil {
			t.Fatal(err)
		}
		r := NewResolver(WithLibrary(lib), WithHandler(FontHandlerFunc(func(_ context.Context, d *Descriptor) (*GlyphSource, bool) {
			return mono, d.BaseFont == "GoBold"
		})))
		if src := r.Resolve(ctx, &Descriptor{Key: Key{Inline: "c"}, BaseFont: "GoBold"}); src.Kind != SourceHandler || src.Name != "mono" {
			t.Errorf("handler source = %s %v", src.Name, src.Kind)
		}
		if src := r.Resolve(ctx, &Descriptor{Key: Key{Inline: "d"}, BaseFont: "GoItalic"}); src.Kind != SourceSubstituted {
			t.Errorf("declined handler source = %v, want substituted", src.Kind)
		}
		r.SetHandler(nil)
		if src := r.Resolve(ctx, &Descriptor{Key: Key{Inline: "e"}, BaseFont: "GoBold"}); src.Kind != SourceSubstituted {
			t.Errorf("after SetHandler(nil) kind = %v", src.Kind)
		}
	})

	t.Run("embedded first", func(t *testing.T) {
		r := NewResolver(WithLibrary(lib))
		d := &Descriptor{Key: Key{Inline: "f"}, BaseFont: "GoBold", Program: gomono.TTF, ProgramKind: ProgramTrueType}
		if src := r.Resolve(ctx, d); src.Kind != SourceEmbedded {
			t.Errorf("kind = %v, want embedded", src.Kind)
		}
	})

	t.Run("broken program substitutes", func(t *testing.T) {
		r := NewResolver(WithLibrary(lib))
		d := &Descriptor{Key: Key{Inline: "g"}, BaseFont: "GoBold", Program: []byte("junk"), ProgramKind: ProgramTrueType}
		if src := r.Resolve(ctx, d); src.Kind != SourceSubstituted {
			t.Errorf("kind = %v, want substituted", src.Kind)
		}
		if len(d.Problems) != 1 {
			t.Errorf("problems = %q", d.Problems)
		}
	})

	t.Run("cached per key", func(t *testing.T) {
		r := NewResolver(WithLibrary(lib))
		d := &Descriptor{Key: Key{Inline: "h"}, BaseFont: "GoBold"}
		first := r.Resolve(ctx, d)
		if again := r.Resolve(ctx, d); again != first || r.Resolutions() != 1 {
			t.Errorf("second Resolve not cached: resolutions = %d", r.Resolutions())
		}
	})
}

func TestRegisterDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bold.ttf"), gobold.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.otf"), []byte("not a font"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	lib := NewLibrary()
	n, err := lib.RegisterDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || lib.Len() != 1 {
		t.Fatalf("registered %d fonts, library has %d, want 1", n, lib.Len())
	}
	f := lib.Fonts()[0]
	if f.FileName != "bold" || f.PostScriptName == "" || f.Family == "" {
		t.Errorf("registered font = %+v", f)
	}
	if got := ByFileName.match(lib, &Descriptor{BaseFont: "Bold"}); got != f {
		t.Errorf("ByFileName(Bold) = %+v", got)
	}
}

func TestGlyphSource(t *testing.T) {
	src := DefaultSource()
	if src.Kind != SourceDefault {
		t.Errorf("kind = %v", src.Kind)
	}
	if !src.HasGlyph('A') {
		t.Error("Go Regular has no glyph for A")
	}
	if src.HasGlyph('\U000E0001') {
		t.Error("Go Regular reports a glyph for a tag character")
	}
	wide, _ := src.Advance('W')
	narrow, _ := src.Advance('i')
	if wide <= narrow {
		t.Errorf("advances W=%v i=%v", wide, narrow)
	}
	if _, family, _ := src.Names(); family == "" {
		t.Error("empty family name")
	}
	if _, err := NewGlyphSource("bad", SourceEmbedded, []byte{1, 2, 3}); err == nil {
		t.Error("NewGlyphSource accepted junk")
	}
}

func TestStandardFontName(t *testing.T) {
	tests := []struct {
		in, want string
		ok       bool
	}{
		{"Helvetica", "Helvetica", true},
		{"ABCDEF+Times-Bold", "Times-Bold", true},
		{"Arial,Bold", "Helvetica-Bold", true},
		{"Times New Roman", "Times-Roman", true},
		{"abcdef+Helvetica", "", false},
		{"Garamond", "", false},
	}
	for _, tt := range tests {
		got, ok := StandardFontName(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("StandardFontName(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
