package pages

import "errors"

var (
	// ErrMalformedDocument is returned when the header, cross-reference
	// data, catalog or page tree root cannot be read.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrUnsupportedVersion is returned for header versions above 2.x.
	ErrUnsupportedVersion = errors.New("unsupported PDF version")
	// ErrPageNotYetAvailable is returned while a linearized file is still
	// loading and the requested page lies outside the first-page section.
	ErrPageNotYetAvailable = errors.New("page not yet available")
	// ErrPageRange is returned for page indexes outside the document.
	ErrPageRange = errors.New("page index out of range")
)
