package interpreter

import (
	"fmt"
	"strings"
)

// WarningKind classifies a recovered problem.
type WarningKind int

const (
	// WarnContent is a malformed or unknown operator, or bad operands.
	WarnContent WarningKind = iota
	// WarnResource is a missing or unreadable font, XObject, color space or
	// ExtGState.
	WarnResource
)

func (k WarningKind) String() string {
	if k == WarnResource {
		return "resource"
	}
	return "content"
}

// Warning is a problem the interpreter recovered from. The page still
// decodes.
type Warning struct {
	Kind WarningKind
	Page int
	// Offset is the byte offset in the content stream, or -1.
	Offset   int
	Operator string
	Message  string
}

func (w Warning) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "page %d: %s", w.Page+1, w.Kind)
	if w.Operator != "" {
		fmt.Fprintf(&b, " %s", w.Operator)
	}
	if w.Offset >= 0 {
		fmt.Fprintf(&b, " at %d", w.Offset)
	}
	b.WriteString(": ")
	b.WriteString(w.Message)
	return b.String()
}

// FormatWarnings formats warnings one per line.
func FormatWarnings(warnings []Warning) string {
	if len(warnings) == 0 {
		return ""
	}
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = w.String()
	}
	return strings.Join(lines, "\n")
}
