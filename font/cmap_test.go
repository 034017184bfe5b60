package font

import (
	"testing"
)

const cmapHeader = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
`

const cmapTrailer = `endcmap
CMapName currentdict /CMap defineresource pop
end
end
`

func TestCMapParseBfChar(t *testing.T) {
	cmap := ParseCMap([]byte(cmapHeader + `1 begincodespacerange
<0000> <FFFF>
endcodespacerange
4 beginbfchar
<0003> <0020>
<0004> <0041>
<0005> <0042>
<0006> <0043>
endbfchar
` + cmapTrailer))

	if cmap.Name != "Adobe-Identity-UCS" {
		t.Errorf("Name = %q, want Adobe-Identity-UCS", cmap.Name)
	}

	tests := []struct {
		code     uint32
		expected string
		ok       bool
	}{
		{0x0003, " ", true},
		{0x0004, "A", true},
		{0x0005, "B", true},
		{0x0006, "C", true},
		{0x0007, "", false},
	}

	for _, tt := range tests {
		result, ok := cmap.Lookup(tt.code, 2)
		if result != tt.expected || ok != tt.ok {
			t.Errorf("Lookup(%04x) = %q, %v, want %q, %v", tt.code, result, ok, tt.expected, tt.ok)
		}
	}
}

func TestCMapParseBfRange(t *testing.T) {
	cmap := ParseCMap([]byte(cmapHeader + `1 begincodespacerange
<0000> <FFFF>
endcodespacerange
2 beginbfrange
<0020> <007E> <0020>
<00A0> <00A2> <00A0>
endbfrange
` + cmapTrailer))

	tests := []struct {
		code     uint32
		expected string
	}{
		{0x0020, " "},
		{0x0041, "A"},
		{0x007E, "~"},
		{0x00A0, " "},
		{0x00A1, "¡"},
		{0x00A2, "¢"},
		{0x00A3, ""},
	}

	for _, tt := range tests {
		result, _ := cmap.Lookup(tt.code, 2)
		if result != tt.expected {
			t.Errorf("Lookup(%04x) = %q, want %q", tt.code, result, tt.expected)
		}
	}
}

func TestCMapParseBfRangeArray(t *testing.T) {
	cmap := ParseCMap([]byte(cmapHeader + `1 begincodespacerange
<0000> <FFFF>
endcodespacerange
1 beginbfrange
<0010> <0013> [<0041> <0042> <0043> <0044>]
endbfrange
` + cmapTrailer))

	for i, want := range []string{"A", "B", "C", "D"} {
		code := uint32(0x10 + i)
		if got, _ := cmap.Lookup(code, 2); got != want {
			t.Errorf("Lookup(%04x) = %q, want %q", code, got, want)
		}
	}
}

func TestCMapLookupString(t *testing.T) {
	cmap := ParseCMap([]byte(cmapHeader + `1 begincodespacerange
<0000> <FFFF>
endcodespacerange
3 beginbfchar
<0001> <0048>
<0002> <0069>
<0003> <FB01>
endbfchar
` + cmapTrailer))

	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"two codes", []byte{0, 1, 0, 2}, "Hi"},
		{"ligature", []byte{0, 3}, "ﬁ"},
		{"unmapped code dropped", []byte{0, 1, 0, 9, 0, 2}, "Hi"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cmap.LookupString(tt.input); got != tt.want {
				t.Errorf("LookupString(% x) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCMapMultiByte(t *testing.T) {
	// Mixed one- and two-byte codespaces, as in Shift-JIS style CMaps.
	cmap := ParseCMap([]byte(cmapHeader + `2 begincodespacerange
<00> <80>
<8140> <9FFC>
endcodespacerange
2 beginbfchar
<41> <0041>
<8140> <3000>
endbfchar
` + cmapTrailer))

	data := []byte{0x41, 0x81, 0x40, 0x41}
	var codes []uint32
	var lens []int
	for len(data) > 0 {
		code, n := cmap.NextCode(data, 1)
		codes = append(codes, code)
		lens = append(lens, n)
		data = data[n:]
	}
	if len(codes) != 3 || codes[0] != 0x41 || codes[1] != 0x8140 || codes[2] != 0x41 {
		t.Fatalf("codes = %x, want [41 8140 41]", codes)
	}
	if lens[1] != 2 {
		t.Errorf("second code length = %d, want 2", lens[1])
	}
	if got := cmap.LookupString([]byte{0x41, 0x81, 0x40}); got != "A\u3000" {
		t.Errorf("LookupString = %q, want %q", got, "A\u3000")
	}
}

func TestCMapNextCodeOutsideCodespace(t *testing.T) {
	cmap := ParseCMap([]byte(cmapHeader + `1 begincodespacerange
<8140> <9FFC>
endcodespacerange
` + cmapTrailer))

	code, n := cmap.NextCode([]byte{0x20, 0x20}, 1)
	if n != 2 || code != 0x2020 {
		t.Errorf("NextCode = %x, %d, want the shortest declared length 2", code, n)
	}
	if _, n := cmap.NextCode([]byte{0x20}, 1); n != 1 {
		t.Errorf("NextCode on a short tail consumed %d bytes, want 1", n)
	}
}

func TestParseToUnicodeCMapCID(t *testing.T) {
	cmap := ParseCMap([]byte(`/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CMapName /Test-V def
/WMode 1 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
1 begincidchar
<0005> 700
endcidchar
1 begincidrange
<0100> <01FF> 1000
endcidrange
` + cmapTrailer))

	if !cmap.Vertical {
		t.Error("Vertical = false, want true for /WMode 1")
	}
	tests := []struct {
		code uint32
		cid  int
		ok   bool
	}{
		{0x0005, 700, true},
		{0x0100, 1000, true},
		{0x0142, 1066, true},
		{0x0200, 0, false},
	}
	for _, tt := range tests {
		cid, ok := cmap.CID(tt.code, 2)
		if cid != tt.cid || ok != tt.ok {
			t.Errorf("CID(%04x) = %d, %v, want %d, %v", tt.code, cid, ok, tt.cid, tt.ok)
		}
	}
}

func TestCMapEmpty(t *testing.T) {
	cmap := ParseCMap([]byte(cmapHeader + cmapTrailer))
	if cmap.HasCodespace() {
		t.Error("HasCodespace() = true for a CMap without ranges")
	}
	if got := cmap.LookupString([]byte("Hello")); got != "" {
		t.Errorf("LookupString = %q, want empty", got)
	}
}

func TestCMapNil(t *testing.T) {
	var cmap *CMap
	if cmap.HasCodespace() {
		t.Error("nil CMap reports a codespace")
	}
	if _, ok := cmap.Lookup(0x41, 1); ok {
		t.Error("nil CMap Lookup returned ok")
	}
	if _, ok := cmap.CID(0x41, 1); ok {
		t.Error("nil CMap CID returned ok")
	}
}

func TestCMapGarbage(t *testing.T) {
	// Truncated and malformed input must not panic or loop.
	inputs := []string{
		"",
		"1 beginbfchar <01",
		"2 beginbfrange <00> <05> [<41> <42>",
		"begincodespacerange <0000> <FF> endcodespacerange",
		")))) <zz> beginbfchar <01> <0041> endbfchar",
	}
	for _, in := range inputs {
		ParseCMap([]byte(in))
	}
	cm := ParseCMap([]byte("begincodespacerange <0000> <FF> endcodespacerange"))
	if cm.HasCodespace() {
		t.Error("codespace with mismatched lengths was accepted")
	}
}

func TestCMapWithEmojiSurrogatePair(t *testing.T) {
	cmap := ParseCMap([]byte(`/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo <<
  /Registry (Adobe)
  /Ordering (UCS)
  /Supplement 0
>> def
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<00><FF>
endcodespacerange
1 beginbfchar
<21><d83d dc4b>
endbfchar
` + cmapTrailer))

	result, _ := cmap.Lookup(0x21, 1)
	runes := []rune(result)
	if len(runes) != 1 || runes[0] != 0x1F44B {
		t.Errorf("Lookup(0x21) = %q, want U+1F44B", result)
	}
}

func TestCMapTightPacking(t *testing.T) {
	cmap := ParseCMap([]byte(cmapHeader +
		"1 begincodespacerange\n" +
		"<00><FF>\n" +
		"endcodespacerange\n" +
		"2 beginbfrange\n" +
		"<21><21><0052>\n" +
		"<22><22><0065>\n" +
		"endbfrange\n" + cmapTrailer))

	tests := []struct {
		code     uint32
		expected string
	}{
		{0x21, "R"},
		{0x22, "e"},
	}
	for _, tt := range tests {
		if got, _ := cmap.Lookup(tt.code, 1); got != tt.expected {
			t.Errorf("Lookup(%02x) = %q, want %q", tt.code, got, tt.expected)
		}
	}
}

func TestIdentityCMap(t *testing.T) {
	h := IdentityCMap(false)
	if h.Name != "Identity-H" || h.Vertical {
		t.Errorf("IdentityCMap(false) = %s vertical=%v", h.Name, h.Vertical)
	}
	code, n := h.NextCode([]byte{0x12, 0x34, 0x56}, 1)
	if code != 0x1234 || n != 2 {
		t.Errorf("NextCode = %x, %d, want 1234, 2", code, n)
	}
	if cid, ok := h.CID(code, n); !ok || cid != 0x1234 {
		t.Errorf("CID = %d, %v, want 4660", cid, ok)
	}
	if v := IdentityCMap(true); v.Name != "Identity-V" || !v.Vertical {
		t.Errorf("IdentityCMap(true) = %s vertical=%v", v.Name, v.Vertical)
	}
}
