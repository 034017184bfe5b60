//go:build !ocr

package pagedecode

import (
	"context"
	"strings"
	"testing"

	"github.com/tsawler/pagedecode/internal/pdftest"
)

func TestTextOCRFallbackWithoutTag(t *testing.T) {
	data := pdftest.SimpleDocument(pdftest.Page{Content: "0 0 m 100 100 l S"}).Bytes("/Root 1 0 R")
	s := openTest(t, data, WithOCR("eng"))

	got, warnings, err := s.Text(context.Background(), 0)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "" {
		t.Errorf("Text = %q, want empty", got)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0].Message, "ocr") {
		t.Errorf("warnings = %s", FormatWarnings(warnings))
	}
}
