// Package security implements the PDF security handlers.
//
// A Handler is built from the document's /Encrypt dictionary and the first
// element of the trailer /ID array. Authenticating it with a password
// (standard handler) or a certificate and private key (public-key handler)
// yields a Context, which decrypts strings and streams of indirect objects
// and reports the document permissions.
//
//	h, err := security.NewHandler(encryptDict, fileID)
//	if err != nil {
//		return err
//	}
//	sc, err := h.Authenticate("secret")
//	if errors.Is(err, security.ErrInvalidCredentials) {
//		// ask for another password
//	}
//
// The standard handler supports revisions 2 through 6: RC4 with 40 to 128
// bit keys, AES-128 (AESV2) and AES-256 (AESV3) crypt filters, and the
// Identity filter. A Context is read-only after authentication and safe for
// concurrent use.
package security
