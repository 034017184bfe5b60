package security

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned when neither the owner nor the user
	// key can be derived from the supplied password or certificate.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnsupportedEncryption is returned for security handlers, revisions
	// or crypt filter methods this package does not implement.
	ErrUnsupportedEncryption = errors.New("unsupported encryption")
)

// AuthenticationError reports a failed authentication for a document.
type AuthenticationError struct {
	// FileID is the first element of the trailer /ID array.
	FileID []byte
	// Method is "password" or "certificate".
	Method string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication by %s failed for document %X", e.Method, e.FileID)
}

// Unwrap lets errors.Is match ErrInvalidCredentials.
func (e *AuthenticationError) Unwrap() error { return ErrInvalidCredentials }
