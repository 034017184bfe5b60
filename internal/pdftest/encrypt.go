package pdftest

import (
	"crypto/md5"
	"crypto/rc4"
	"encoding/binary"
	"fmt"
)

var pad = []byte{
	0x28, 0xbf, 0x4e, 0x5e, 0x4e, 0x75, 0x8a, 0x41,
	0x64, 0x00, 0x4e, 0x56, 0xff, 0xfa, 0x01, 0x08,
	0x2e, 0x2e, 0x00, 0xb6, 0xd0, 0x68, 0x3e, 0x80,
	0x2f, 0x0c, 0xa9, 0xfe, 0x64, 0x53, 0x69, 0x7a,
}

// RC4Security describes 128-bit RC4 standard security (V 2, R 3).
type RC4Security struct {
	// Dict is the encryption dictionary body.
	Dict string
	// ID is the first file identifier; it must appear in the trailer /ID.
	ID  []byte
	Key []byte
}

// NewRC4Security computes /O and /U for the given passwords and
// permission bits.
func NewRC4Security(user, owner string, perms int32) *RC4Security {
	id := []byte("0123456789abcdef")
	padded := func(pw string) []byte {
		out := make([]byte, 32)
		n := copy(out, pw)
		copy(out[n:], pad)
		return out
	}
	stretch := func(b []byte) []byte {
		sum := md5.Sum(b)
		k := sum[:]
		for i := 0; i < 50; i++ {
			s := md5.Sum(k[:16])
			k = s[:]
		}
		return k[:16]
	}
	rounds := func(key, data []byte) {
		tmp := make([]byte, len(key))
		for i := 0; i < 20; i++ {
			for j := range key {
				tmp[j] = key[j] ^ byte(i)
			}
			c, _ := rc4.NewCipher(tmp)
			c.XORKeyStream(data, data)
		}
	}

	if owner == "" {
		owner = user
	}
	o := padded(user)
	rounds(stretch(padded(owner)), o)

	m := md5.New()
	m.Write(padded(user))
	m.Write(o)
	var p [4]byte
	binary.LittleEndian.PutUint32(p[:], uint32(perms))
	m.Write(p[:])
	m.Write(id)
	key := m.Sum(nil)
	for i := 0; i < 50; i++ {
		s := md5.Sum(key[:16])
		key = s[:]
	}
	key = key[:16]

	h := md5.New()
	h.Write(pad)
	h.Write(id)
	u := h.Sum(nil)
	rounds(key, u)
	u = append(u, make([]byte, 16)...)

	return &RC4Security{
		Dict: fmt.Sprintf("<< /Filter /Standard /V 2 /R 3 /Length 128 /P %d /O <%X> /U <%X> >>", perms, o, u),
		ID:   id,
		Key:  key,
	}
}

// Encrypt encrypts data belonging to object num gen. It has the signature
// of Builder.Encrypt.
func (s *RC4Security) Encrypt(num, gen int, data []byte) []byte {
	m := md5.New()
	m.Write(s.Key)
	m.Write([]byte{byte(num), byte(num >> 8), byte(num >> 16), byte(gen), byte(gen >> 8)})
	c, _ := rc4.NewCipher(m.Sum(nil)[:16])
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

// Trailer returns the trailer entries for an encryption dictionary stored
// as object num.
func (s *RC4Security) Trailer(num int) string {
	return fmt.Sprintf("/Encrypt %d 0 R /ID [<%X> <%X>]", num, s.ID, s.ID)
}
