package text

import (
	"testing"

	"github.com/tsawler/pagedecode/interpreter"
)

func TestGetCharDirection(t *testing.T) {
	tests := []struct {
		name string
		char rune
		want Direction
	}{
		// Arabic
		{"Arabic alif", 'ا', RTL},       // U+0627
		{"Arabic baa", 'ب', RTL},        // U+0628
		{"Arabic seen", 'س', RTL},       // U+0633
		{"Arabic lam", 'ل', RTL},        // U+0644
		{"Arabic meem", 'م', RTL},       // U+0645

		// Hebrew
		{"Hebrew alef", 'א', RTL},       // U+05D0
		{"Hebrew bet", 'ב', RTL},        // U+05D1
		{"Hebrew shin", 'ש', RTL},       // U+05E9

		// Latin (LTR)
		{"Latin A", 'A', LTR},
		{"Latin a", 'a', LTR},
		{"Latin Z", 'Z', LTR},
		{"Latin é", 'é', LTR},           // U+00E9

		// Cyrillic (LTR)
		{"Cyrillic А", 'А', LTR},        // U+0410
		{"Cyrillic я", 'я', LTR},        // U+044F

		// Greek (LTR)
		{"Greek Alpha", 'Α', LTR},       // U+0391
		{"Greek Omega", 'Ω', LTR},       // U+03A9

		// CJK (LTR in modern usage)
		{"CJK 中", '中', LTR},            // U+4E2D
		{"CJK 文", '文', LTR},            // U+6587
		{"Hiragana あ", 'あ', LTR},       // U+3042
		{"Katakana ア", 'ア', LTR},       // U+30A2

		// Neutral characters
		{"Space", ' ', Neutral},
		{"Digit 0", '0', Neutral},
		{"Digit 5", '5', Neutral},
		{"Period", '.', Neutral},
		{"Comma", ',', Neutral},
		{"Exclamation", '!', Neutral},
		{"Question", '?', Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetCharDirection(tt.char)
			if got != tt.want {
				t.Errorf("GetCharDirection(%q U+%04X) = %v, want %v",
					tt.char, tt.char, got, tt.want)
			}
		})
	}
}

func TestDetectDirection(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Direction
	}{
		// Pure LTR
		{"English", "Hello World", LTR},
		{"Russian", "Привет мир", LTR},
		{"Greek", "Γεια σου κόσμε", LTR},
		{"Chinese", "你好世界", LTR},

		// Pure RTL
		{"Arabic مرحبا", "مرحبا", RTL},         // Hello
		{"Arabic السلام", "السلام عليكم", RTL}, // Peace be upon you
		{"Hebrew shalom", "שלום", RTL},         // Hello

		// Bidirectional (mixed)
		{"English with Arabic", "Hello مرحبا World", LTR},  // More English
		{"Arabic with English", "مرحبا Hello عليكم", RTL},  // More Arabic

		// Neutral only
		{"Numbers only", "12345", Neutral},
		{"Punctuation", "...", Neutral},
		{"Spaces", "   ", Neutral},

		// Empty
		{"Empty string", "", Neutral},

		// Mixed with numbers
		{"English + numbers", "Hello 123", LTR},
		{"Arabic + numbers", "مرحبا 123", RTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectDirection(tt.text)
			if got != tt.want {
				t.Errorf("DetectDirection(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestLineDirection(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  Direction
	}{
		{"latin", []string{"Hello", "World"}, LTR},
		{"hebrew", []string{"שלום", "עולם"}, RTL},
		{"majority hebrew", []string{"שלום", "עולם", "ok"}, RTL},
		{"digits default to LTR", []string{"123", "456"}, LTR},
		{"empty", nil, LTR},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var runs []*interpreter.GlyphRun
			for _, s := range tt.texts {
				runs = append(runs, &interpreter.GlyphRun{Text: s})
			}
			if got := lineDirection(runs); got != tt.want {
				t.Errorf("lineDirection(%q) = %v, want %v", tt.texts, got, tt.want)
			}
		})
	}
}

func TestDirectionString(t *testing.T) {
	for d, want := range map[Direction]string{LTR: "LTR", RTL: "RTL", Neutral: "Neutral", Direction(9): "Unknown"} {
		if got := d.String(); got != want {
			t.Errorf("Direction(%d).String() = %q, want %q", int(d), got, want)
		}
	}
}
