package font

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LibraryFont is one registered font with the names it can be matched by.
type LibraryFont struct {
	FileName       string
	PostScriptName string
	Family         string
	FullName       string
	Source         *GlyphSource
}

// Library holds fonts available for substitution. It is safe for
// concurrent use.
type Library struct {
	mu       sync.RWMutex
	fonts    []*LibraryFont
	byFile   map[string][]*LibraryFont
	byPS     map[string][]*LibraryFont
	byFamily map[string][]*LibraryFont
	byFull   map[string][]*LibraryFont
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{
		byFile:   make(map[string][]*LibraryFont),
		byPS:     make(map[string][]*LibraryFont),
		byFamily: make(map[string][]*LibraryFont),
		byFull:   make(map[string][]*LibraryFont),
	}
}

// RegisterFont adds an sfnt program under explicit names. name is used as
// both the PostScript name and the file name.
func (l *Library) RegisterFont(name, family, full string, data []byte) error {
	src, err := NewGlyphSource(name, SourceSubstituted, data)
	if err != nil {
		return err
	}
	l.add(&LibraryFont{FileName: name, PostScriptName: name, Family: family, FullName: full, Source: src})
	return nil
}

// RegisterFile adds a TrueType or OpenType file, reading its names from
// the font's name table.
func (l *Library) RegisterFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("register font: %w", err)
	}
	file := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	src, err := NewGlyphSource(file, SourceSubstituted, data)
	if err != nil {
		return err
	}
	ps, family, full := src.Names()
	if ps != "" {
		src.Name = ps
	}
	l.add(&LibraryFont{FileName: file, PostScriptName: ps, Family: family, FullName: full, Source: src})
	return nil
}

// RegisterDir registers every .ttf and .otf file below dir and returns how
// many were added. Unparseable files are skipped.
func (l *Library) RegisterDir(dir string) (int, error) {
	n := 0
	err := filepath.WalkDir(dir, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".ttf", ".otf":
			if l.RegisterFile(path) == nil {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (l *Library) add(f *LibraryFont) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fonts = append(l.fonts, f)
	for _, idx := range []struct {
		m   map[string][]*LibraryFont
		key string
	}{{l.byFile, f.FileName}, {l.byPS, f.PostScriptName}, {l.byFamily, f.Family}, {l.byFull, f.FullName}} {
		if k := normalizeName(idx.key); k != "" {
			idx.m[k] = append(idx.m[k], f)
		}
	}
}

// Len returns the number of registered fonts.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.fonts)
}

// Fonts returns the registered fonts in registration order.
func (l *Library) Fonts() []*LibraryFont {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*LibraryFont(nil), l.fonts...)
}

func (l *Library) lookup(m map[string][]*LibraryFont, name string) []*LibraryFont {
	k := normalizeName(name)
	if k == "" {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return m[k]
}

// normalizeName lower-cases name and drops the separators that differ
// between PDF base font names and font file names.
func normalizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', ',', '_':
			return -1
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, name)
}
