package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"fmt"

	"github.com/tsawler/pagedecode/core"
)

// Context is the result of a successful authentication. It is read-only
// and safe for concurrent use.
type Context struct {
	encrypted        bool
	owner            bool
	passwordSupplied bool
	perms            Permissions

	key             []byte
	stmF, strF      cryptFilter
	filters         map[string]cryptFilter
	encryptMetadata bool
}

// NoEncryption returns the context of an unencrypted document. It grants
// every permission and passes data through.
func NoEncryption() *Context {
	return &Context{perms: AllPermissions(), encryptMetadata: true}
}

// IsEncrypted reports whether the document has an /Encrypt dictionary.
func (c *Context) IsEncrypted() bool { return c.encrypted }

// IsOwner reports whether the owner password or an owner certificate was
// used. Owners hold every permission.
func (c *Context) IsOwner() bool { return c.owner }

// IsPasswordSupplied reports whether a non-empty password opened the file.
func (c *Context) IsPasswordSupplied() bool { return c.passwordSupplied }

// Permissions returns the granted rights.
func (c *Context) Permissions() Permissions { return c.perms }

// IsExtractionAllowed reports whether text and graphics may be copied out.
func (c *Context) IsExtractionAllowed() bool { return c.perms.Copy }

// IsPrintingAllowed reports whether the document may be printed at any
// quality.
func (c *Context) IsPrintingAllowed() bool { return c.perms.Print }

// DecryptString decrypts a string that belongs to indirect object ref.
func (c *Context) DecryptString(ref core.ObjectRef, data []byte) ([]byte, error) {
	if !c.encrypted {
		return data, nil
	}
	return c.apply(c.strF, ref, data)
}

// DecryptStream decrypts the raw bytes of a stream whose dictionary is
// dict. A /Crypt filter first in the chain selects a named crypt filter;
// XMP metadata stays in the clear when /EncryptMetadata is false.
func (c *Context) DecryptStream(ref core.ObjectRef, dict core.Dict, data []byte) ([]byte, error) {
	if !c.encrypted {
		return data, nil
	}
	if t, _ := dict.Name("Type"); t == "Metadata" && !c.encryptMetadata {
		return data, nil
	}
	f := c.stmF
	if name, ok := c.streamFilterName(dict); ok {
		if name == "Identity" {
			f = identityFilter
		} else if named, ok := c.filters[name]; ok {
			f = named
		} else {
			return nil, fmt.Errorf("%w: stream names undefined crypt filter /%s", ErrUnsupportedEncryption, name)
		}
	}
	return c.apply(f, ref, data)
}

// streamFilterName returns the /Name parameter of a leading /Crypt filter.
func (c *Context) streamFilterName(dict core.Dict) (string, bool) {
	s := core.Stream{Dict: dict}
	names, params, err := s.Filters()
	if err != nil || len(names) == 0 || names[0] != "Crypt" {
		return "", false
	}
	if params[0] != nil {
		if n, ok := params[0].Name("Name"); ok {
			return string(n), true
		}
	}
	return "Identity", true
}

func (c *Context) apply(f cryptFilter, ref core.ObjectRef, data []byte) ([]byte, error) {
	switch f.method {
	case methodIdentity:
		return data, nil
	case methodRC4:
		key := c.objectKey(ref, false)
		out := make([]byte, len(data))
		rc, _ := rc4.NewCipher(key)
		rc.XORKeyStream(out, data)
		return out, nil
	case methodAESV2:
		return decryptAES(c.objectKey(ref, true), data)
	case methodAESV3:
		return decryptAES(c.key, data)
	}
	return nil, fmt.Errorf("%w: crypt method %d", ErrUnsupportedEncryption, f.method)
}

// objectKey is algorithm 1: the file key extended with the object number
// and generation, hashed and truncated.
func (c *Context) objectKey(ref core.ObjectRef, aesSalt bool) []byte {
	m := md5.New()
	m.Write(c.key)
	m.Write([]byte{byte(ref.Num), byte(ref.Num >> 8), byte(ref.Num >> 16), byte(ref.Gen), byte(ref.Gen >> 8)})
	if aesSalt {
		m.Write([]byte("sAlT"))
	}
	n := min(len(c.key)+5, 16)
	return m.Sum(nil)[:n]
}

// decryptAES decrypts CBC data whose first block is the IV and strips the
// PKCS#7 padding. Trailing bytes short of a block are dropped.
func decryptAES(key, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	if len(data) < 2*aes.BlockSize {
		return nil, fmt.Errorf("%w: AES data of %d bytes", core.ErrMalformedObject, len(data))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	iv := data[:aes.BlockSize]
	body := data[aes.BlockSize:]
	body = body[:len(body)-len(body)%aes.BlockSize]
	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, body)

	pad := int(out[len(out)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(out) {
		return out, nil
	}
	for _, b := range out[len(out)-pad:] {
		if int(b) != pad {
			return out, nil
		}
	}
	return out[:len(out)-pad], nil
}
