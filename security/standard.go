package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"hash"

	"github.com/xdg-go/stringprep"
	"golang.org/x/text/encoding/charmap"

	"github.com/tsawler/pagedecode/core"
)

type handlerKind int

const (
	kindNone handlerKind = iota
	kindStandard
	kindPublicKey
)

type cipherMethod int

const (
	methodIdentity cipherMethod = iota
	methodRC4
	methodAESV2
	methodAESV3
)

type cryptFilter struct {
	method   cipherMethod
	keyBytes int
}

var identityFilter = cryptFilter{method: methodIdentity}

// Handler is a parsed /Encrypt dictionary waiting for credentials.
type Handler struct {
	kind     handlerKind
	fileID   []byte
	v, r     int
	keyBytes int

	o, u, oe, ue, perms []byte
	p                   uint32
	encryptMetadata     bool

	stmF, strF cryptFilter
	filters    map[string]cryptFilter

	subFilter  string
	recipients [][]byte
}

// NewHandler selects the security handler named by the /Filter entry of
// dict. A nil dict describes an unencrypted document.
func NewHandler(dict core.Dict, fileID []byte) (*Handler, error) {
	if dict == nil {
		return &Handler{kind: kindNone}, nil
	}
	h := &Handler{fileID: fileID, encryptMetadata: true, filters: map[string]cryptFilter{}}
	if b, ok := dict.Bool("EncryptMetadata"); ok {
		h.encryptMetadata = b
	}
	v, _ := dict.Int("V")
	h.v = int(v)
	if h.v == 0 {
		h.v = 1
	}

	filter, _ := dict.Name("Filter")
	switch filter {
	case "Standard":
		h.kind = kindStandard
	case "Adobe.PubSec":
		h.kind = kindPublicKey
	default:
		return nil, fmt.Errorf("%w: security handler /%s", ErrUnsupportedEncryption, filter)
	}

	if err := h.parseFilters(dict); err != nil {
		return nil, err
	}
	if h.kind == kindPublicKey {
		if err := h.parsePublicKey(dict); err != nil {
			return nil, err
		}
		return h, nil
	}
	if err := h.parseStandard(dict); err != nil {
		return nil, err
	}
	return h, nil
}

// parseFilters sets the file key length and the string and stream crypt
// filters from /V, /Length and, for V 4 and 5, the /CF dictionary.
func (h *Handler) parseFilters(dict core.Dict) error {
	length := int64(40)
	if n, ok := dict.Int("Length"); ok && n > 0 {
		length = n
	}
	switch h.v {
	case 1:
		h.keyBytes = 5
		h.stmF = cryptFilter{method: methodRC4, keyBytes: 5}
		h.strF = h.stmF
		return nil
	case 2:
		if length%8 != 0 || length < 40 || length > 128 {
			return fmt.Errorf("%w: key length %d bits", ErrUnsupportedEncryption, length)
		}
		h.keyBytes = int(length / 8)
		h.stmF = cryptFilter{method: methodRC4, keyBytes: h.keyBytes}
		h.strF = h.stmF
		return nil
	case 4, 5:
	default:
		return fmt.Errorf("%w: /V %d", ErrUnsupportedEncryption, h.v)
	}

	h.keyBytes = 16
	if h.v == 5 {
		h.keyBytes = 32
	}
	cf, _ := dict.Dict("CF")
	for name, obj := range cf {
		d, ok := obj.(core.Dict)
		if !ok {
			continue
		}
		f, err := h.parseCryptFilter(d)
		if err != nil {
			return fmt.Errorf("crypt filter /%s: %w", name, err)
		}
		h.filters[name] = f
		if h.kind == kindPublicKey {
			if arr, ok := d.Array("Recipients"); ok && len(h.recipients) == 0 {
				h.recipients = recipientBytes(arr)
			}
		}
	}

	var err error
	if h.stmF, err = h.lookupFilter(dict, "StmF"); err != nil {
		return err
	}
	if h.strF, err = h.lookupFilter(dict, "StrF"); err != nil {
		return err
	}
	if h.stmF.method == methodRC4 {
		h.keyBytes = h.stmF.keyBytes
	}
	return nil
}

func (h *Handler) parseCryptFilter(d core.Dict) (cryptFilter, error) {
	method, _ := d.Name("CFM")
	switch method {
	case "", "None":
		return identityFilter, nil
	case "V2":
		n := int64(h.keyBytes)
		if l, ok := d.Int("Length"); ok && l > 0 {
			n = l
			// Some writers give the length in bits.
			if n > 32 {
				n /= 8
			}
		}
		if n < 5 || n > 16 {
			return cryptFilter{}, fmt.Errorf("%w: RC4 key of %d bytes", ErrUnsupportedEncryption, n)
		}
		return cryptFilter{method: methodRC4, keyBytes: int(n)}, nil
	case "AESV2":
		return cryptFilter{method: methodAESV2, keyBytes: 16}, nil
	case "AESV3":
		return cryptFilter{method: methodAESV3, keyBytes: 32}, nil
	}
	return cryptFilter{}, fmt.Errorf("%w: /CFM /%s", ErrUnsupportedEncryption, method)
}

func (h *Handler) lookupFilter(dict core.Dict, key string) (cryptFilter, error) {
	name, ok := dict.Name(key)
	if !ok || name == "Identity" {
		return identityFilter, nil
	}
	f, ok := h.filters[string(name)]
	if !ok {
		return cryptFilter{}, fmt.Errorf("%w: /%s names undefined crypt filter /%s", ErrUnsupportedEncryption, key, name)
	}
	return f, nil
}

func (h *Handler) parseStandard(dict core.Dict) error {
	r, _ := dict.Int("R")
	h.r = int(r)
	if h.r < 2 || h.r > 6 {
		return fmt.Errorf("%w: standard handler revision %d", ErrUnsupportedEncryption, h.r)
	}
	o, _ := dict.Str("O")
	u, _ := dict.Str("U")
	h.o, h.u = []byte(o), []byte(u)
	want := 32
	if h.r >= 5 {
		want = 48
		oe, _ := dict.Str("OE")
		ue, _ := dict.Str("UE")
		perms, _ := dict.Str("Perms")
		h.oe, h.ue, h.perms = []byte(oe), []byte(ue), []byte(perms)
		if len(h.oe) < 32 || len(h.ue) < 32 {
			return fmt.Errorf("%w: /OE or /UE shorter than 32 bytes", core.ErrMalformedObject)
		}
		h.oe, h.ue = h.oe[:32], h.ue[:32]
	}
	if len(h.o) < want || len(h.u) < want {
		return fmt.Errorf("%w: /O or /U shorter than %d bytes", core.ErrMalformedObject, want)
	}
	h.o, h.u = h.o[:want], h.u[:want]
	p, ok := dict.Int("P")
	if !ok {
		return fmt.Errorf("%w: encryption dictionary has no /P", core.ErrMalformedObject)
	}
	h.p = uint32(int32(p))
	return nil
}

// IsPublicKey reports whether the document needs a certificate rather
// than a password.
func (h *Handler) IsPublicKey() bool { return h.kind == kindPublicKey }

// Revision returns /R for standard handlers and 0 otherwise.
func (h *Handler) Revision() int { return h.r }

// Authenticate tries password as the owner password and then as the user
// password. An empty password opens documents protected only by an owner
// password.
func (h *Handler) Authenticate(password string) (*Context, error) {
	switch h.kind {
	case kindNone:
		return NoEncryption(), nil
	case kindPublicKey:
		return nil, &AuthenticationError{FileID: h.fileID, Method: "password"}
	}

	var key []byte
	var owner bool
	p, meta := h.p, h.encryptMetadata
	if h.r >= 5 {
		pw := saslPassword(password)
		if key = h.ownerKeyAES(pw); key != nil {
			owner = true
		} else {
			key = h.userKeyAES(pw)
		}
		if key != nil && h.r == 6 {
			p, meta = h.checkPerms(key)
		}
	} else {
		pw := pdfDocPassword(password)
		if key = h.ownerKey(pw); key != nil {
			owner = true
		} else {
			key = h.userKey(padPassword(pw))
		}
	}
	if key == nil {
		return nil, &AuthenticationError{FileID: h.fileID, Method: "password"}
	}
	return h.newContext(key, owner, password != "", p, meta), nil
}

func (h *Handler) newContext(key []byte, owner, supplied bool, p uint32, meta bool) *Context {
	rev := h.r
	if h.kind == kindPublicKey {
		// Public-key permissions use the revision 3 bit layout.
		rev = 3
	}
	perms := permissionsFromP(p, rev)
	if owner {
		perms = AllPermissions()
	}
	return &Context{
		encrypted:        true,
		owner:            owner,
		passwordSupplied: supplied,
		perms:            perms,
		key:              key,
		stmF:             h.stmF,
		strF:             h.strF,
		filters:          h.filters,
		encryptMetadata:  meta,
	}
}

var passwordPad = []byte{
	0x28, 0xbf, 0x4e, 0x5e, 0x4e, 0x75, 0x8a, 0x41,
	0x64, 0x00, 0x4e, 0x56, 0xff, 0xfa, 0x01, 0x08,
	0x2e, 0x2e, 0x00, 0xb6, 0xd0, 0x68, 0x3e, 0x80,
	0x2f, 0x0c, 0xa9, 0xfe, 0x64, 0x53, 0x69, 0x7a,
}

func padPassword(pw []byte) []byte {
	out := make([]byte, 32)
	n := copy(out, pw)
	copy(out[n:], passwordPad)
	return out
}

// pdfDocPassword encodes a password for revisions 2 to 4, which hash
// PDFDocEncoding bytes. Characters outside Latin-1 fall back to UTF-8.
func pdfDocPassword(pw string) []byte {
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(pw))
	if err != nil {
		return []byte(pw)
	}
	return b
}

// saslPassword prepares a revision 5 or 6 password: SASLprep, UTF-8,
// truncated to 127 bytes.
func saslPassword(pw string) []byte {
	prepped, err := stringprep.SASLprep.Prepare(pw)
	if err != nil {
		prepped = pw
	}
	b := []byte(prepped)
	if len(b) > 127 {
		b = b[:127]
	}
	return b
}

// fileKey is algorithm 2: the file encryption key for a padded password.
func (h *Handler) fileKey(padded []byte) []byte {
	m := md5.New()
	m.Write(padded)
	m.Write(h.o)
	var p [4]byte
	binary.LittleEndian.PutUint32(p[:], h.p)
	m.Write(p[:])
	m.Write(h.fileID)
	if h.r >= 4 && !h.encryptMetadata {
		m.Write([]byte{0xff, 0xff, 0xff, 0xff})
	}
	sum := m.Sum(nil)
	n := h.keyBytes
	if h.r == 2 {
		n = 5
	}
	if h.r >= 3 {
		for i := 0; i < 50; i++ {
			s := md5.Sum(sum[:n])
			sum = s[:]
		}
	}
	return sum[:n]
}

// userEntry is algorithms 4 and 5: the /U value produced by key.
func (h *Handler) userEntry(key []byte) []byte {
	if h.r == 2 {
		out := make([]byte, 32)
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(out, passwordPad)
		return out
	}
	m := md5.New()
	m.Write(passwordPad)
	m.Write(h.fileID)
	out := m.Sum(nil)
	rc4Rounds(key, out, false)
	return out
}

// rc4Rounds applies the 20 RC4 passes of algorithms 5 and 7, where pass i
// uses key XOR i. Decryption runs the passes in reverse.
func rc4Rounds(key, data []byte, reverse bool) {
	tmp := make([]byte, len(key))
	for n := 0; n < 20; n++ {
		i := n
		if reverse {
			i = 19 - n
		}
		for j := range key {
			tmp[j] = key[j] ^ byte(i)
		}
		c, _ := rc4.NewCipher(tmp)
		c.XORKeyStream(data, data)
	}
}

// userKey is algorithm 6. It returns the file key when padded is the user
// password, and nil otherwise.
func (h *Handler) userKey(padded []byte) []byte {
	key := h.fileKey(padded)
	u := h.userEntry(key)
	n := 16
	if h.r == 2 {
		n = 32
	}
	if !bytes.Equal(u[:n], h.u[:n]) {
		return nil
	}
	return key
}

// ownerKey is algorithm 7: recover the user password from /O and check it.
func (h *Handler) ownerKey(pw []byte) []byte {
	sum := md5.Sum(padPassword(pw))
	k := sum[:]
	n := h.keyBytes
	if h.r == 2 {
		n = 5
	}
	if h.r >= 3 {
		for i := 0; i < 50; i++ {
			s := md5.Sum(k)
			k = s[:]
		}
	}
	k = k[:n]

	user := append([]byte(nil), h.o...)
	if h.r == 2 {
		c, _ := rc4.NewCipher(k)
		c.XORKeyStream(user, user)
	} else {
		rc4Rounds(k, user, true)
	}
	return h.userKey(user)
}

// passwordHash hashes a revision 5 or 6 password with salt and, for owner
// checks, the 48-byte /U value.
func (h *Handler) passwordHash(pw, salt, u []byte) []byte {
	if h.r == 5 {
		m := sha256.New()
		m.Write(pw)
		m.Write(salt)
		m.Write(u)
		return m.Sum(nil)
	}
	return slowHash(pw, salt, u)
}

func (h *Handler) userKeyAES(pw []byte) []byte {
	if !bytes.Equal(h.passwordHash(pw, h.u[32:40], nil), h.u[:32]) {
		return nil
	}
	return unwrapKey(h.passwordHash(pw, h.u[40:48], nil), h.ue)
}

func (h *Handler) ownerKeyAES(pw []byte) []byte {
	if !bytes.Equal(h.passwordHash(pw, h.o[32:40], h.u), h.o[:32]) {
		return nil
	}
	return unwrapKey(h.passwordHash(pw, h.o[40:48], h.u), h.oe)
}

// unwrapKey decrypts /UE or /OE: AES-256 CBC with a zero IV, no padding.
func unwrapKey(kek, wrapped []byte) []byte {
	c, err := aes.NewCipher(kek)
	if err != nil {
		return nil
	}
	out := make([]byte, 32)
	cipher.NewCBCDecrypter(c, make([]byte, aes.BlockSize)).CryptBlocks(out, wrapped)
	return out
}

// checkPerms is algorithm 13. A readable /Perms block overrides /P and
// /EncryptMetadata; a damaged one leaves them in place.
func (h *Handler) checkPerms(key []byte) (p uint32, meta bool) {
	p, meta = h.p, h.encryptMetadata
	if len(h.perms) < 16 {
		return p, meta
	}
	c, err := aes.NewCipher(key)
	if err != nil {
		return p, meta
	}
	buf := make([]byte, 16)
	c.Decrypt(buf, h.perms[:16])
	if string(buf[9:12]) != "adb" {
		return p, meta
	}
	p = binary.LittleEndian.Uint32(buf[:4])
	switch buf[8] {
	case 'T':
		meta = true
	case 'F':
		meta = false
	}
	return p, meta
}

// slowHash is algorithm 2.B, the iterated hash of revision 6.
func slowHash(pw, salt, u []byte) []byte {
	m := sha256.New()
	m.Write(pw)
	m.Write(salt)
	m.Write(u)
	k := m.Sum(nil)

	k1 := make([]byte, 0, 64*(len(pw)+64+len(u)))
	for i := 0; i < 64 || k1[len(k1)-1] > byte(i-32); i++ {
		k1 = k1[:0]
		for j := 0; j < 64; j++ {
			k1 = append(k1, pw...)
			k1 = append(k1, k...)
			k1 = append(k1, u...)
		}
		c, _ := aes.NewCipher(k[:16])
		cipher.NewCBCEncrypter(c, k[16:32]).CryptBlocks(k1, k1)

		// The first 16 bytes of E as a big-endian integer mod 3 equal the
		// sum of those bytes mod 3.
		rem := 0
		for _, b := range k1[:16] {
			rem += int(b)
		}
		var next hash.Hash
		switch rem % 3 {
		case 0:
			next = sha256.New()
		case 1:
			next = sha512.New384()
		default:
			next = sha512.New()
		}
		next.Write(k1)
		k = next.Sum(nil)
	}
	return k[:32]
}
