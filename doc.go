// Package pagedecode opens PDF documents and decodes their pages into
// command streams, grouped text and raster snapshots.
//
// Basic usage:
//
//	s, err := pagedecode.Open("document.pdf")
//	if err != nil {
//	    // handle error
//	}
//	defer s.Close()
//	text, warnings, err := s.Text(ctx, 0)
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", pagedecode.FormatWarnings(warnings))
//	}
//
// Encrypted documents take their credentials at open time:
//
//	s, err := pagedecode.Open("secret.pdf", pagedecode.WithPassword("owner"))
//	if errors.Is(err, pagedecode.ErrInvalidCredentials) {
//	    // wrong password
//	}
//
// Pages decode on demand and at most once per mode. Changing the
// extraction or render mode drops earlier results, so the next request
// decodes again under the new mode. Background decodes, status callbacks
// and text grouping run on a bounded worker pool.
//
// The lower-level packages (objstore, security, pages, font, interpreter,
// scheduler, text, raster) can be used directly when a session is too
// coarse.
package pagedecode

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	s := pagedecode.Must(pagedecode.Open("document.pdf"))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustText is a helper that wraps a call to Text and panics if the error
// is non-nil. It discards warnings and returns just the text.
//
// Example:
//
//	text := pagedecode.MustText(s.Text(ctx, 0))
func MustText(val string, _ []Warning, err error) string {
	if err != nil {
		panic(err)
	}
	return val
}
