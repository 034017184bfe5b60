package font

import "strings"

// Strategy is a way of matching a font descriptor against the library.
type Strategy int

const (
	// ByFileName matches the base font name against font file names.
	ByFileName Strategy = 1
	// ByPostScriptName matches the base font name against PostScript names.
	ByPostScriptName Strategy = 2
	// ByFamilyName matches the descriptor family against family names.
	ByFamilyName Strategy = 3
	// ByFullName matches the base font name against full names.
	ByFullName Strategy = 4
	// ByPostScriptNameFamilyIfDuplicate matches PostScript names and uses
	// the family to choose among duplicates.
	ByPostScriptNameFamilyIfDuplicate Strategy = 5
)

func (s Strategy) String() string {
	switch s {
	case ByFileName:
		return "file-name"
	case ByPostScriptName:
		return "postscript-name"
	case ByFamilyName:
		return "family-name"
	case ByFullName:
		return "full-name"
	case ByPostScriptNameFamilyIfDuplicate:
		return "postscript-name-family-if-duplicate"
	}
	return "none"
}

// DefaultStrategies is the chain used when none is configured.
func DefaultStrategies() []Strategy {
	return []Strategy{ByFileName, ByPostScriptName, ByFamilyName, ByFullName}
}

// match applies one strategy and returns the chosen library font.
func (s Strategy) match(lib *Library, d *Descriptor) *LibraryFont {
	base := stripSubset(d.BaseFont)
	if base == "" {
		base = stripSubset(d.FontName)
	}
	switch s {
	case ByFileName:
		return pickStyle(lib.lookup(lib.byFile, base), d)
	case ByPostScriptName:
		if f := pickStyle(lib.lookup(lib.byPS, base), d); f != nil {
			return f
		}
		if d.FontName != "" && stripSubset(d.FontName) != base {
			return pickStyle(lib.lookup(lib.byPS, stripSubset(d.FontName)), d)
		}
	case ByFamilyName:
		return pickStyle(lib.lookup(lib.byFamily, familyOf(d)), d)
	case ByFullName:
		return pickStyle(lib.lookup(lib.byFull, base), d)
	case ByPostScriptNameFamilyIfDuplicate:
		cands := lib.lookup(lib.byPS, base)
		switch {
		case len(cands) == 1:
			return cands[0]
		case len(cands) > 1:
			family := normalizeName(familyOf(d))
			for _, c := range cands {
				if normalizeName(c.Family) == family {
					return c
				}
			}
			return pickStyle(cands, d)
		}
		return pickStyle(lib.lookup(lib.byFamily, familyOf(d)), d)
	}
	return nil
}

// familyOf returns /FontFamily or the part of the base name before the
// style suffix.
func familyOf(d *Descriptor) string {
	if d.Family != "" {
		return d.Family
	}
	base := stripSubset(d.BaseFont)
	if i := strings.IndexAny(base, "-,"); i > 0 {
		base = base[:i]
	}
	for _, suffix := range []string{"PSMT", "MT", "PS"} {
		if b, ok := strings.CutSuffix(base, suffix); ok && b != "" {
			return b
		}
	}
	return base
}

// pickStyle chooses the candidate whose bold and italic style agrees best
// with the descriptor.
func pickStyle(cands []*LibraryFont, d *Descriptor) *LibraryFont {
	if len(cands) <= 1 {
		if len(cands) == 1 {
			return cands[0]
		}
		return nil
	}
	bold, italic := d.IsBold(), d.IsItalic()
	best, bestScore := cands[0], -1
	for _, c := range cands {
		name := c.FullName + " " + c.PostScriptName
		score := 0
		if hasStyle(name, "bold", "black", "heavy") == bold {
			score += 2
		}
		if hasStyle(name, "italic", "oblique") == italic {
			score++
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

func hasStyle(name string, words ...string) bool {
	name = strings.ToLower(name)
	for _, w := range words {
		if strings.Contains(name, w) {
			return true
		}
	}
	return false
}
