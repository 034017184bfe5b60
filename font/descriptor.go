package font

import (
	"context"
	"errors"
	"fmt"

	"github.com/tsawler/pagedecode/core"
	"github.com/tsawler/pagedecode/model"
)

// ErrNotAFont is returned when a resource entry is not a font dictionary.
var ErrNotAFont = errors.New("not a font dictionary")

// Store resolves objects for font loading.
type Store interface {
	ResolveObject(ctx context.Context, obj core.Object) (core.Object, error)
	ResolveDict(ctx context.Context, obj core.Object) (core.Dict, error)
	ResolveArray(ctx context.Context, obj core.Object) (core.Array, error)
	StreamData(ctx context.Context, obj core.Object) (*core.Stream, []byte, error)
}

// Key identifies a font within a session: the font dictionary's object
// reference, or for an inline dictionary its resource name and page.
type Key struct {
	Ref    core.ObjectRef
	Inline string
}

func (k Key) String() string {
	if k.Inline != "" {
		return k.Inline
	}
	return k.Ref.String()
}

// ProgramKind classifies an embedded font program.
type ProgramKind int

const (
	ProgramNone ProgramKind = iota
	// ProgramType1 is a /FontFile (PostScript Type 1) program.
	ProgramType1
	// ProgramTrueType is a /FontFile2 program.
	ProgramTrueType
	// ProgramCFF is a bare CFF /FontFile3 program (Type1C, CIDFontType0C).
	ProgramCFF
	// ProgramOpenType is a /FontFile3 /Subtype /OpenType program.
	ProgramOpenType
)

// Font descriptor flags.
const (
	FlagFixedPitch  = 1 << 0
	FlagSerif       = 1 << 1
	FlagSymbolic    = 1 << 2
	FlagScript      = 1 << 3
	FlagNonsymbolic = 1 << 5
	FlagItalic      = 1 << 6
	FlagForceBold   = 1 << 18
)

// CIDSystemInfo identifies a character collection.
type CIDSystemInfo struct {
	Registry   string
	Ordering   string
	Supplement int
}

// WidthRange is one entry of a /W array: either a constant Width for the
// CIDs StartCID..EndCID or individual Widths.
type WidthRange struct {
	StartCID int
	EndCID   int
	Width    float64
	Widths   []float64
}

// VerticalMetrics is one entry of a /W2 array.
type VerticalMetrics struct {
	StartCID int
	EndCID   int
	W1Y      float64
	VX, VY   float64
}

// Descriptor is everything known about a font resource before a glyph
// source is chosen for it.
type Descriptor struct {
	Key          Key
	ResourceName string
	Subtype      string
	BaseFont     string
	// FontName is the descriptor /FontName, usually equal to BaseFont.
	FontName string
	Family   string
	Weight   float64
	Flags    int

	ItalicAngle  float64
	Ascent       float64
	Descent      float64
	CapHeight    float64
	MissingWidth float64
	FontBBox     model.BBox

	Program     []byte
	ProgramKind ProgramKind

	// Simple fonts.
	Encoding  *Encoding
	FirstChar int
	Widths    []float64

	// Composite fonts.
	CMap          *CMap
	CIDSystemInfo CIDSystemInfo
	DW            float64
	W             []WidthRange
	DW2           [2]float64
	W2            []VerticalMetrics
	// CIDToGID maps CIDs to glyph indices; nil means identity.
	CIDToGID []uint16

	ToUnicode *CMap

	// Type 3 fonts.
	FontMatrix model.Matrix
	CharProcs  core.Dict
	Resources  core.Dict

	// Problems records recoverable defects found while loading.
	Problems []string
}

// IsComposite reports whether the font is a Type0 font.
func (d *Descriptor) IsComposite() bool { return d.Subtype == "Type0" }

// IsEmbedded reports whether the font carries its own program.
func (d *Descriptor) IsEmbedded() bool { return d.ProgramKind != ProgramNone }

// IsSymbolic reports whether the symbolic flag is set.
func (d *Descriptor) IsSymbolic() bool { return d.Flags&FlagSymbolic != 0 }

// IsBold reports whether the font looks bold from its flags, weight or name.
func (d *Descriptor) IsBold() bool {
	return d.Flags&FlagForceBold != 0 || d.Weight >= 600 || hasStyle(d.BaseFont, "bold", "black", "heavy")
}

// IsItalic reports whether the font looks italic from its flags or name.
func (d *Descriptor) IsItalic() bool {
	return d.Flags&FlagItalic != 0 || d.ItalicAngle != 0 || hasStyle(d.BaseFont, "italic", "oblique")
}

func (d *Descriptor) problem(format string, args ...any) {
	d.Problems = append(d.Problems, fmt.Sprintf(format, args...))
}

// LoadDescriptor reads the font dictionary obj. Only an unreadable or
// non-font dictionary is an error; defects inside it are recorded in
// Problems.
func LoadDescriptor(ctx context.Context, store Store, obj core.Object, key Key) (*Descriptor, error) {
	dict, err := store.ResolveDict(ctx, obj)
	if err != nil {
		return nil, fmt.Errorf("font %v: %w", key, err)
	}
	typ, _ := dict.Name("Type")
	subtype, _ := dict.Name("Subtype")
	switch subtype {
	case "Type1", "MMType1", "TrueType", "Type3", "Type0":
		if typ != "" && typ != "Font" {
			return nil, fmt.Errorf("font %v: %w", key, ErrNotAFont)
		}
	default:
		if typ != "Font" {
			return nil, fmt.Errorf("font %v: %w", key, ErrNotAFont)
		}
		subtype = "Type1"
	}
	base, _ := dict.Name("BaseFont")
	name, _ := dict.Name("Name")
	d := &Descriptor{
		Key:          key,
		ResourceName: string(name),
		Subtype:      string(subtype),
		BaseFont:     string(base),
		FontMatrix:   model.Matrix{0.001, 0, 0, 0.001, 0, 0},
		DW:           1000,
		DW2:          [2]float64{880, -1000},
	}

	if tu, ok := dict["ToUnicode"]; ok {
		if _, data, err := store.StreamData(ctx, tu); err == nil {
			d.ToUnicode = ParseCMap(data)
		} else {
			d.problem("ToUnicode unreadable: %v", err)
		}
	}

	switch d.Subtype {
	case "Type0":
		loadComposite(ctx, store, dict, d)
	case "Type3":
		loadType3(ctx, store, dict, d)
		loadSimple(ctx, store, dict, d)
	default:
		if fd, ok := dict["FontDescriptor"]; ok {
			loadFontDescriptor(ctx, store, fd, d)
		}
		loadSimple(ctx, store, dict, d)
	}
	return d, nil
}

// loadFontDescriptor reads the /FontDescriptor metrics and the embedded
// program.
func loadFontDescriptor(ctx context.Context, store Store, obj core.Object, d *Descriptor) {
	fd, err := store.ResolveDict(ctx, obj)
	if err != nil {
		d.problem("font descriptor unreadable: %v", err)
		return
	}
	if n, ok := fd.Name("FontName"); ok {
		d.FontName = string(n)
	}
	if s, ok := fd.Str("FontFamily"); ok {
		d.Family = core.DecodeTextString([]byte(s))
	}
	if f, ok := fd.Int("Flags"); ok {
		d.Flags = int(f)
	}
	d.Weight, _ = fd.Float("FontWeight")
	d.ItalicAngle, _ = fd.Float("ItalicAngle")
	d.Ascent, _ = fd.Float("Ascent")
	d.Descent, _ = fd.Float("Descent")
	d.CapHeight, _ = fd.Float("CapHeight")
	d.MissingWidth, _ = fd.Float("MissingWidth")
	if arr, err := store.ResolveArray(ctx, fd["FontBBox"]); err == nil {
		if v, ok := arr.Floats(); ok && len(v) == 4 {
			d.FontBBox = model.RectBBox(v[0], v[1], v[2], v[3])
		}
	}

	for _, entry := range []struct {
		key  string
		kind ProgramKind
	}{{"FontFile2", ProgramTrueType}, {"FontFile3", ProgramCFF}, {"FontFile", ProgramType1}} {
		ref, ok := fd[entry.key]
		if !ok {
			continue
		}
		stream, data, err := store.StreamData(ctx, ref)
		if err != nil {
			d.problem("%s unreadable: %v", entry.key, err)
			continue
		}
		d.Program, d.ProgramKind = data, entry.kind
		if entry.kind == ProgramCFF {
			if st, _ := stream.Dict.Name("Subtype"); st == "OpenType" {
				d.ProgramKind = ProgramOpenType
			}
		}
		return
	}
}

// loadSimple reads the encoding and widths of a single-byte font.
func loadSimple(ctx context.Context, store Store, dict core.Dict, d *Descriptor) {
	d.Encoding = simpleEncoding(ctx, store, dict, d)

	if fc, ok := dict.Int("FirstChar"); ok {
		d.FirstChar = int(fc)
	}
	if wobj, ok := dict["Widths"]; ok {
		arr, err := store.ResolveArray(ctx, wobj)
		if err != nil {
			d.problem("Widths unreadable: %v", err)
			return
		}
		scale := 1.0
		if d.Subtype == "Type3" {
			// Type 3 widths are in glyph space.
			scale = d.FontMatrix[0] * 1000
		}
		d.Widths = make([]float64, len(arr))
		for i, w := range arr {
			v, err := store.ResolveObject(ctx, w)
			if err != nil {
				continue
			}
			if n, ok := core.Number(v); ok {
				d.Widths[i] = n * scale
			}
		}
	}
}

func simpleEncoding(ctx context.Context, store Store, dict core.Dict, d *Descriptor) *Encoding {
	base := StandardEncoding
	std, isStd := StandardFontName(d.BaseFont)
	switch {
	case isStd && std == "Symbol":
		base = SymbolEncoding
	case d.Subtype == "TrueType" && !d.IsSymbolic():
		base = WinAnsiEncoding
	}

	obj, ok := dict["Encoding"]
	if !ok {
		return base
	}
	enc, err := store.ResolveObject(ctx, obj)
	if err != nil {
		d.problem("Encoding unreadable: %v", err)
		return base
	}
	switch v := enc.(type) {
	case core.Name:
		return GetEncoding(string(v))
	case core.Dict:
		if n, ok := v.Name("BaseEncoding"); ok {
			base = GetEncoding(string(n))
		}
		if diffs, err := store.ResolveArray(ctx, v["Differences"]); err == nil {
			return NewCustomEncodingFromGlyphs(base, ParseDifferences(diffs))
		}
	}
	return base
}

func loadType3(ctx context.Context, store Store, dict core.Dict, d *Descriptor) {
	if arr, err := store.ResolveArray(ctx, dict["FontMatrix"]); err == nil {
		if v, ok := arr.Floats(); ok && len(v) == 6 {
			copy(d.FontMatrix[:], v)
		}
	}
	if cp, err := store.ResolveDict(ctx, dict["CharProcs"]); err == nil {
		d.CharProcs = cp
	}
	if res, ok := dict["Resources"]; ok {
		if r, err := store.ResolveDict(ctx, res); err == nil {
			d.Resources = r
		}
	}
	if arr, err := store.ResolveArray(ctx, dict["FontBBox"]); err == nil {
		if v, ok := arr.Floats(); ok && len(v) == 4 {
			d.FontBBox = model.RectBBox(v[0], v[1], v[2], v[3])
		}
	}
}

// loadComposite reads a Type0 font and its descendant CIDFont.
func loadComposite(ctx context.Context, store Store, dict core.Dict, d *Descriptor) {
	d.CMap = compositeCMap(ctx, store, dict["Encoding"], d)

	kids, err := store.ResolveArray(ctx, dict["DescendantFonts"])
	if err != nil || len(kids) == 0 {
		d.problem("DescendantFonts missing")
		return
	}
	cid, err := store.ResolveDict(ctx, kids[0])
	if err != nil {
		d.problem("descendant font unreadable: %v", err)
		return
	}
	if info, err := store.ResolveDict(ctx, cid["CIDSystemInfo"]); err == nil {
		d.CIDSystemInfo.Registry = textValue(info["Registry"])
		d.CIDSystemInfo.Ordering = textValue(info["Ordering"])
		if s, ok := info.Int("Supplement"); ok {
			d.CIDSystemInfo.Supplement = int(s)
		}
	}
	if fd, ok := cid["FontDescriptor"]; ok {
		loadFontDescriptor(ctx, store, fd, d)
	}
	if dw, ok := cid.Float("DW"); ok {
		d.DW = dw
	}
	if arr, err := store.ResolveArray(ctx, cid["W"]); err == nil {
		d.W = parseW(ctx, store, arr)
	}
	if arr, err := store.ResolveArray(ctx, cid["DW2"]); err == nil {
		if v, ok := arr.Floats(); ok && len(v) == 2 {
			d.DW2 = [2]float64{v[0], v[1]}
		}
	}
	if arr, err := store.ResolveArray(ctx, cid["W2"]); err == nil {
		d.W2 = parseW2(arr)
	}
	if m, ok := cid["CIDToGIDMap"]; ok {
		if n, isName := m.(core.Name); !isName || n != "Identity" {
			if _, data, err := store.StreamData(ctx, m); err == nil {
				d.CIDToGID = make([]uint16, len(data)/2)
				for i := range d.CIDToGID {
					d.CIDToGID[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
				}
			}
		}
	}
}

func compositeCMap(ctx context.Context, store Store, obj core.Object, d *Descriptor) *CMap {
	enc, err := store.ResolveObject(ctx, obj)
	if err != nil {
		d.problem("Encoding unreadable: %v", err)
		return IdentityCMap(false)
	}
	switch v := enc.(type) {
	case core.Name:
		switch v {
		case "Identity-H", "":
			return IdentityCMap(false)
		case "Identity-V":
			return IdentityCMap(true)
		}
		// Predefined CJK CMaps are not bundled; their codes are read as
		// two-byte identity values.
		d.problem("predefined CMap %s read as identity", v)
		cm := IdentityCMap(len(v) > 2 && v[len(v)-2:] == "-V")
		cm.Name = string(v)
		return cm
	case *core.Stream:
		_, data, err := store.StreamData(ctx, obj)
		if err != nil {
			d.problem("encoding CMap unreadable: %v", err)
			return IdentityCMap(false)
		}
		cm := ParseCMap(data)
		if wm, ok := v.Dict.Int("WMode"); ok {
			cm.Vertical = wm == 1
		}
		return cm
	}
	return IdentityCMap(false)
}

// parseW reads a /W array: c [w1 w2 ...] or cfirst clast w.
func parseW(ctx context.Context, store Store, arr core.Array) []WidthRange {
	var out []WidthRange
	for i := 0; i < len(arr); {
		start, ok := core.Number(arr[i])
		if !ok || i+1 >= len(arr) {
			break
		}
		next, _ := store.ResolveObject(ctx, arr[i+1])
		if ws, ok := next.(core.Array); ok {
			widths := make([]float64, len(ws))
			for j, w := range ws {
				widths[j], _ = core.Number(w)
			}
			out = append(out, WidthRange{StartCID: int(start), EndCID: int(start) + len(widths) - 1, Widths: widths})
			i += 2
			continue
		}
		if i+2 >= len(arr) {
			break
		}
		end, ok1 := core.Number(next)
		w, ok2 := core.Number(arr[i+2])
		if ok1 && ok2 {
			out = append(out, WidthRange{StartCID: int(start), EndCID: int(end), Width: w})
		}
		i += 3
	}
	return out
}

// parseW2 reads a /W2 array: c [w1y vx vy ...] or cfirst clast w1y vx vy.
func parseW2(arr core.Array) []VerticalMetrics {
	var out []VerticalMetrics
	for i := 0; i < len(arr); {
		start, ok := core.Number(arr[i])
		if !ok || i+1 >= len(arr) {
			break
		}
		if ms, ok := arr[i+1].(core.Array); ok {
			v, _ := ms.Floats()
			for j := 0; j+2 < len(v); j += 3 {
				c := int(start) + j/3
				out = append(out, VerticalMetrics{StartCID: c, EndCID: c, W1Y: v[j], VX: v[j+1], VY: v[j+2]})
			}
			i += 2
			continue
		}
		if i+4 >= len(arr) {
			break
		}
		v, ok := arr[i+1 : i+5].Floats()
		if ok {
			out = append(out, VerticalMetrics{StartCID: int(start), EndCID: int(v[0]), W1Y: v[1], VX: v[2], VY: v[3]})
		}
		i += 5
	}
	return out
}

func textValue(obj core.Object) string {
	switch v := obj.(type) {
	case core.String:
		return string(v)
	case core.Name:
		return string(v)
	}
	return ""
}
