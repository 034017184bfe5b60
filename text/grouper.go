package text

import (
	"math"
	"sort"
	"strings"

	"github.com/tsawler/pagedecode/interpreter"
	"github.com/tsawler/pagedecode/model"
)

// Config holds the grouping tolerances.
type Config struct {
	// BaselineTolerance is the largest baseline difference, as a fraction
	// of the larger font size, for two runs to share a line.
	BaselineTolerance float64
	// GapTolerance is the largest horizontal gap, in average glyph widths,
	// between two runs of one line.
	GapTolerance float64
	// WordGapTolerance is the smallest gap, as a fraction of the space
	// width, that separates two words.
	WordGapTolerance float64
	// ParagraphSpacing is the line distance, in font sizes, beyond which
	// Text inserts a blank line.
	ParagraphSpacing float64
	// SkipInvisible drops runs shown with an invisible rendering mode.
	SkipInvisible bool
}

// DefaultConfig returns the tolerances used when none are given.
func DefaultConfig() Config {
	return Config{
		BaselineTolerance: 0.5,
		GapTolerance:      4,
		WordGapTolerance:  0.5,
		ParagraphSpacing:  1.5,
	}
}

// TextLine is a group of runs sharing a baseline, in reading order.
type TextLine struct {
	Runs []*interpreter.GlyphRun
	BBox model.BBox
	// Baseline is the mean baseline of the runs.
	Baseline float64
	// FontSize is the largest run font size.
	FontSize  float64
	Text      string
	Direction Direction
}

// Word is a whitespace or gap delimited part of a line.
type Word struct {
	Text string
	BBox model.BBox
}

// Engine groups the runs of a command stream into lines.
type Engine interface {
	Group(cs *interpreter.CommandStream) []TextLine
}

// Joiner is implemented by engines that also join their lines into page
// text.
type Joiner interface {
	Text(lines []TextLine) string
}

// Grouper is the default Engine. It is safe for concurrent use.
type Grouper struct {
	cfg Config
}

// NewGrouper returns a Grouper. Zero tolerances take their defaults.
func NewGrouper(cfg Config) *Grouper {
	def := DefaultConfig()
	if cfg.BaselineTolerance <= 0 {
		cfg.BaselineTolerance = def.BaselineTolerance
	}
	if cfg.GapTolerance <= 0 {
		cfg.GapTolerance = def.GapTolerance
	}
	if cfg.WordGapTolerance <= 0 {
		cfg.WordGapTolerance = def.WordGapTolerance
	}
	if cfg.ParagraphSpacing <= 0 {
		cfg.ParagraphSpacing = def.ParagraphSpacing
	}
	return &Grouper{cfg: cfg}
}

// Config returns the tolerances in effect.
func (g *Grouper) Config() Config { return g.cfg }

// Foreground groups cs on the calling goroutine.
func (g *Grouper) Foreground(cs *interpreter.CommandStream) []TextLine {
	return g.Group(cs)
}

// Background groups cs on a new goroutine. The channel receives the
// lines and is then closed.
func (g *Grouper) Background(cs *interpreter.CommandStream) <-chan []TextLine {
	ch := make(chan []TextLine, 1)
	go func() {
		defer close(ch)
		ch <- g.Group(cs)
	}()
	return ch
}

// Group returns the lines of cs ordered top to bottom, then left to right.
// cs is not modified and the result shares no slices with it.
func (g *Grouper) Group(cs *interpreter.CommandStream) []TextLine {
	if cs == nil {
		return nil
	}
	runs := make([]*interpreter.GlyphRun, 0, len(cs.Runs))
	for _, r := range cs.Runs {
		if len(r.Glyphs) == 0 && r.Text == "" {
			continue
		}
		if g.cfg.SkipInvisible && r.Invisible {
			continue
		}
		runs = append(runs, r)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		a, b := runs[i], runs[j]
		if a.Origin.Y != b.Origin.Y {
			return a.Origin.Y > b.Origin.Y
		}
		if a.Origin.X != b.Origin.X {
			return a.Origin.X < b.Origin.X
		}
		return a.Seq < b.Seq
	})

	var lines []TextLine
	for len(runs) > 0 {
		band := g.band(runs)
		runs = runs[len(band):]
		for _, seg := range g.segments(band) {
			lines = append(lines, g.line(seg))
		}
	}
	return lines
}

// band returns the leading runs whose baselines are within tolerance of
// the first. Vertical runs form a band of their own.
func (g *Grouper) band(runs []*interpreter.GlyphRun) []*interpreter.GlyphRun {
	first := runs[0]
	if first.Vertical {
		return runs[:1]
	}
	n := 1
	size := first.FontSize
	for n < len(runs) {
		r := runs[n]
		if r.Vertical {
			break
		}
		tol := g.cfg.BaselineTolerance * math.Max(size, r.FontSize)
		if math.Abs(first.Origin.Y-r.Origin.Y) > tol {
			break
		}
		size = math.Max(size, r.FontSize)
		n++
	}
	return runs[:n]
}

// segments orders a band by x and splits it where the gap is wider than
// GapTolerance average glyph widths.
func (g *Grouper) segments(band []*interpreter.GlyphRun) [][]*interpreter.GlyphRun {
	sorted := make([]*interpreter.GlyphRun, len(band))
	copy(sorted, band)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Origin.X != sorted[j].Origin.X {
			return sorted[i].Origin.X < sorted[j].Origin.X
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	var out [][]*interpreter.GlyphRun
	cur := []*interpreter.GlyphRun{sorted[0]}
	width, glyphs := sorted[0].Width, len(sorted[0].Glyphs)
	end := sorted[0].Origin.X + sorted[0].Width
	for _, r := range sorted[1:] {
		avg := averageGlyphWidth(width, glyphs, r)
		if r.Origin.X-end > g.cfg.GapTolerance*avg {
			out = append(out, cur)
			cur = nil
			width, glyphs, end = 0, 0, math.Inf(-1)
		}
		cur = append(cur, r)
		width += r.Width
		glyphs += len(r.Glyphs)
		end = math.Max(end, r.Origin.X+r.Width)
	}
	return append(out, cur)
}

func averageGlyphWidth(width float64, glyphs int, next *interpreter.GlyphRun) float64 {
	width += next.Width
	glyphs += len(next.Glyphs)
	if glyphs == 0 || width <= 0 {
		return next.FontSize * 0.5
	}
	return width / float64(glyphs)
}

func (g *Grouper) line(runs []*interpreter.GlyphRun) TextLine {
	l := TextLine{Direction: lineDirection(runs)}
	if l.Direction == RTL {
		for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
			runs[i], runs[j] = runs[j], runs[i]
		}
	}
	l.Runs = runs
	sum := 0.0
	for _, r := range runs {
		l.BBox = l.BBox.Union(r.BBox)
		sum += r.Origin.Y
		l.FontSize = math.Max(l.FontSize, r.FontSize)
	}
	l.Baseline = sum / float64(len(runs))
	l.Text = g.joinRuns(runs, l.Direction)
	return l
}

// gap is the reading-order distance from the end of a to the start of b.
func gap(a, b *interpreter.GlyphRun, dir Direction) float64 {
	if dir == RTL {
		return a.Origin.X - (b.Origin.X + b.Width)
	}
	return b.Origin.X - (a.Origin.X + a.Width)
}

func (g *Grouper) joinRuns(runs []*interpreter.GlyphRun, dir Direction) string {
	m := measureLine(runs, dir)
	var sb strings.Builder
	for i, r := range runs {
		sb.WriteString(r.Text)
		if i < len(runs)-1 && g.needsSpace(r, runs[i+1], gap(r, runs[i+1], dir), m) {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// lineMetrics describes the spacing of a line. Lines whose runs are one or
// two characters long were written glyph by glyph and need gap statistics
// rather than the font's space width to find word breaks.
type lineMetrics struct {
	charLevel      bool
	explicitSpaces bool
	lowGap         float64
	typicalGap     float64
}

func measureLine(runs []*interpreter.GlyphRun, dir Direction) lineMetrics {
	var m lineMetrics
	chars := 0
	for _, r := range runs {
		chars += len([]rune(r.Text))
		if strings.TrimSpace(r.Text) == "" || strings.Contains(r.Text, " ") {
			m.explicitSpaces = true
		}
	}
	m.charLevel = float64(chars)/float64(len(runs)) <= 2

	var gaps []float64
	for i := 0; i+1 < len(runs); i++ {
		if strings.TrimSpace(runs[i].Text) == "" || strings.TrimSpace(runs[i+1].Text) == "" {
			continue
		}
		if d := gap(runs[i], runs[i+1], dir); d > 0 {
			gaps = append(gaps, d)
		}
	}
	if len(gaps) > 0 {
		sort.Float64s(gaps)
		m.lowGap = gaps[len(gaps)/10]
		m.typicalGap = gaps[len(gaps)/4]
	}
	return m
}

func (g *Grouper) needsSpace(a, b *interpreter.GlyphRun, dist float64, m lineMetrics) bool {
	if endsWithSpace(a.Text) || startsWithSpace(b.Text) {
		return false
	}
	if dist < 0 || dist < a.FontSize*0.05 {
		return false
	}
	if m.charLevel && m.explicitSpaces {
		if m.typicalGap > 0 {
			return dist >= m.typicalGap*5
		}
		return false
	}
	if m.charLevel {
		threshold := a.FontSize * 0.8
		if m.lowGap*3 > threshold {
			threshold = m.lowGap * 3
		}
		return dist >= threshold
	}
	return dist >= spaceWidth(a)*g.cfg.WordGapTolerance
}

// spaceWidth is the advance of a space glyph in r, or a quarter of the
// font size when r shows none.
func spaceWidth(r *interpreter.GlyphRun) float64 {
	for _, gl := range r.Glyphs {
		if gl.Text == " " && gl.Advance > 0 {
			return gl.Advance
		}
	}
	return r.FontSize * 0.25
}

func endsWithSpace(s string) bool {
	return s != "" && isWhitespace(s[len(s)-1])
}

func startsWithSpace(s string) bool {
	return s != "" && isWhitespace(s[0])
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// Words splits a line into words at whitespace glyphs and at gaps wider
// than WordGapTolerance space widths.
func (g *Grouper) Words(line TextLine) []Word {
	type placed struct {
		glyph interpreter.PlacedGlyph
		run   *interpreter.GlyphRun
	}
	var all []placed
	for _, r := range line.Runs {
		for _, gl := range r.Glyphs {
			all = append(all, placed{gl, r})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if line.Direction == RTL {
			return all[i].glyph.Origin.X > all[j].glyph.Origin.X
		}
		return all[i].glyph.Origin.X < all[j].glyph.Origin.X
	})

	var words []Word
	var cur Word
	var sb strings.Builder
	flush := func() {
		if sb.Len() > 0 {
			cur.Text = sb.String()
			words = append(words, cur)
		}
		cur = Word{}
		sb.Reset()
	}
	var prev *placed
	for i := range all {
		p := &all[i]
		if strings.TrimSpace(p.glyph.Text) == "" && p.glyph.Text != "" {
			flush()
			prev = nil
			continue
		}
		if prev != nil {
			var d float64
			if line.Direction == RTL {
				d = prev.glyph.Origin.X - (p.glyph.Origin.X + p.glyph.Advance)
			} else {
				d = p.glyph.Origin.X - (prev.glyph.Origin.X + prev.glyph.Advance)
			}
			if d > spaceWidth(prev.run)*g.cfg.WordGapTolerance {
				flush()
			}
		}
		sb.WriteString(p.glyph.Text)
		box := model.NewBBox(p.glyph.Origin.X, p.run.BBox.Y, p.glyph.Advance, p.run.BBox.Height)
		cur.BBox = cur.BBox.Union(box)
		prev = p
	}
	flush()
	return words
}

// Text joins lines with newlines, with a blank line where the distance
// between baselines exceeds ParagraphSpacing font sizes.
func (g *Grouper) Text(lines []TextLine) string {
	var sb strings.Builder
	for i, l := range lines {
		sb.WriteString(l.Text)
		if i == len(lines)-1 {
			break
		}
		next := lines[i+1]
		if l.FontSize > 0 && math.Abs(l.Baseline-next.Baseline) > l.FontSize*g.cfg.ParagraphSpacing {
			sb.WriteString("\n\n")
		} else {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Text joins lines with the default configuration.
func Text(lines []TextLine) string {
	return NewGrouper(DefaultConfig()).Text(lines)
}
