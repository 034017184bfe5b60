package pagedecode

import (
	"errors"

	"github.com/tsawler/pagedecode/interpreter"
	"github.com/tsawler/pagedecode/objstore"
	"github.com/tsawler/pagedecode/pages"
	"github.com/tsawler/pagedecode/security"
)

// Errors returned by Open and by page operations. They are the sentinels of
// the layer that detects them, so errors.Is works with either name.
var (
	ErrInvalidCredentials    = security.ErrInvalidCredentials
	ErrUnsupportedEncryption = security.ErrUnsupportedEncryption
	ErrMalformedDocument     = pages.ErrMalformedDocument
	ErrUnsupportedVersion    = pages.ErrUnsupportedVersion
	ErrPageNotYetAvailable   = pages.ErrPageNotYetAvailable
	ErrPageRange             = pages.ErrPageRange
	ErrNotAuthenticated      = objstore.ErrNotAuthenticated
	ErrContentTooDeep        = interpreter.ErrContentTooDeep

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("session closed")
	// ErrHandlerType is returned by RegisterHandler when the handler does
	// not have the type its role requires.
	ErrHandlerType = errors.New("handler has the wrong type for its role")
)

// AuthenticationError is the error type Open returns for rejected
// credentials.
type AuthenticationError = security.AuthenticationError

// Warning is a problem recovered from while decoding a page.
type Warning = interpreter.Warning

// FormatWarnings formats warnings one per line.
func FormatWarnings(warnings []Warning) string {
	return interpreter.FormatWarnings(warnings)
}
