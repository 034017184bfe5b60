package security

import (
	"bytes"
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rand"
	"crypto/rc4"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/binary"
	"fmt"
	"math/big"

	"golang.org/x/crypto/pkcs12"

	"github.com/tsawler/pagedecode/core"
)

var (
	oidEnvelopedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 3}
	oidDESEDE3CBC    = asn1.ObjectIdentifier{1, 2, 840, 113549, 3, 7}
	oidRC4           = asn1.ObjectIdentifier{1, 2, 840, 113549, 3, 4}
	oidAES128CBC     = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 2}
	oidAES192CBC     = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 22}
	oidAES256CBC     = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 42}
)

type contentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,tag:0"`
}

type envelopedData struct {
	Version              int
	RecipientInfos       []recipientInfo `asn1:"set"`
	EncryptedContentInfo encryptedContentInfo
}

type recipientInfo struct {
	Version                int
	IssuerAndSerialNumber  issuerAndSerial
	KeyEncryptionAlgorithm algorithmIdentifier
	EncryptedKey           []byte
}

type issuerAndSerial struct {
	Issuer       asn1.RawValue
	SerialNumber *big.Int
}

type algorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.RawValue `asn1:"optional"`
}

type encryptedContentInfo struct {
	ContentType                asn1.ObjectIdentifier
	ContentEncryptionAlgorithm algorithmIdentifier
	EncryptedContent           []byte `asn1:"optional,tag:0"`
}

func (h *Handler) parsePublicKey(dict core.Dict) error {
	sub, _ := dict.Name("SubFilter")
	h.subFilter = string(sub)
	switch h.subFilter {
	case "adbe.pkcs7.s3", "adbe.pkcs7.s4":
		arr, _ := dict.Array("Recipients")
		h.recipients = recipientBytes(arr)
	case "adbe.pkcs7.s5":
		// Recipients were taken from the crypt filter dictionaries.
	default:
		return fmt.Errorf("%w: public-key sub-filter /%s", ErrUnsupportedEncryption, h.subFilter)
	}
	if len(h.recipients) == 0 {
		return fmt.Errorf("%w: public-key handler has no /Recipients", core.ErrMalformedObject)
	}
	return nil
}

func recipientBytes(arr core.Array) [][]byte {
	var out [][]byte
	for _, item := range arr {
		if s, ok := item.(core.String); ok {
			out = append(out, []byte(s))
		}
	}
	return out
}

// AuthenticateCertificate opens a public-key protected document with the
// recipient certificate and its private key. key must implement
// crypto.Decrypter, as *rsa.PrivateKey does.
func (h *Handler) AuthenticateCertificate(cert *x509.Certificate, key crypto.PrivateKey) (*Context, error) {
	switch h.kind {
	case kindNone:
		return NoEncryption(), nil
	case kindStandard:
		return nil, &AuthenticationError{FileID: h.fileID, Method: "certificate"}
	}
	dec, ok := key.(crypto.Decrypter)
	if cert == nil || !ok {
		return nil, &AuthenticationError{FileID: h.fileID, Method: "certificate"}
	}

	var seed []byte
	for _, r := range h.recipients {
		content, err := openEnvelope(r, cert, dec)
		if err != nil {
			continue
		}
		if len(content) >= 24 {
			seed = content
			break
		}
	}
	if seed == nil {
		return nil, &AuthenticationError{FileID: h.fileID, Method: "certificate"}
	}

	p := binary.BigEndian.Uint32(seed[20:24])
	var key256 bool
	if h.stmF.method == methodAESV3 || h.strF.method == methodAESV3 {
		key256 = true
	}

	var digest []byte
	if key256 {
		m := sha256.New()
		h.writeSeed(m, seed[:20])
		digest = m.Sum(nil)
	} else {
		m := sha1.New()
		h.writeSeed(m, seed[:20])
		digest = m.Sum(nil)
	}
	n := min(h.keyBytes, len(digest))
	// All recipients may open the file; owner rights come from the
	// permission bits.
	return h.newContext(digest[:n], false, true, p, h.encryptMetadata), nil
}

func (h *Handler) writeSeed(w interface{ Write([]byte) (int, error) }, seed []byte) {
	w.Write(seed)
	for _, r := range h.recipients {
		w.Write(r)
	}
	if !h.encryptMetadata {
		w.Write([]byte{0xff, 0xff, 0xff, 0xff})
	}
}

// openEnvelope decrypts a PKCS#7 EnvelopedData blob addressed to cert.
func openEnvelope(der []byte, cert *x509.Certificate, key crypto.Decrypter) ([]byte, error) {
	var ci contentInfo
	if _, err := asn1.Unmarshal(der, &ci); err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}
	if !ci.ContentType.Equal(oidEnvelopedData) {
		return nil, fmt.Errorf("%w: recipient is not enveloped data", ErrUnsupportedEncryption)
	}
	var env envelopedData
	if _, err := asn1.Unmarshal(ci.Content.Bytes, &env); err != nil {
		return nil, fmt.Errorf("enveloped data: %w", err)
	}

	var contentKey []byte
	for _, ri := range env.RecipientInfos {
		if !bytes.Equal(ri.IssuerAndSerialNumber.Issuer.FullBytes, cert.RawIssuer) ||
			ri.IssuerAndSerialNumber.SerialNumber.Cmp(cert.SerialNumber) != 0 {
			continue
		}
		k, err := key.Decrypt(rand.Reader, ri.EncryptedKey, nil)
		if err != nil {
			return nil, fmt.Errorf("content key: %w", err)
		}
		contentKey = k
		break
	}
	if contentKey == nil {
		return nil, ErrInvalidCredentials
	}
	return decryptContent(env.EncryptedContentInfo, contentKey)
}

func decryptContent(eci encryptedContentInfo, key []byte) ([]byte, error) {
	alg := eci.ContentEncryptionAlgorithm
	data := eci.EncryptedContent
	if alg.Algorithm.Equal(oidRC4) {
		out := make([]byte, len(data))
		c, err := rc4.NewCipher(key)
		if err != nil {
			return nil, err
		}
		c.XORKeyStream(out, data)
		return out, nil
	}

	var block cipher.Block
	var err error
	switch {
	case alg.Algorithm.Equal(oidAES128CBC), alg.Algorithm.Equal(oidAES192CBC), alg.Algorithm.Equal(oidAES256CBC):
		block, err = aes.NewCipher(key)
	case alg.Algorithm.Equal(oidDESEDE3CBC):
		block, err = des.NewTripleDESCipher(key)
	default:
		return nil, fmt.Errorf("%w: content cipher %v", ErrUnsupportedEncryption, alg.Algorithm)
	}
	if err != nil {
		return nil, err
	}
	var iv []byte
	if _, err := asn1.Unmarshal(alg.Parameters.FullBytes, &iv); err != nil || len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("%w: content cipher IV", core.ErrMalformedObject)
	}
	if len(data) == 0 || len(data)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("%w: content of %d bytes", core.ErrMalformedObject, len(data))
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	if pad := int(out[len(out)-1]); pad > 0 && pad <= block.BlockSize() {
		out = out[:len(out)-pad]
	}
	return out, nil
}

// LoadPKCS12 decodes a PKCS#12 bundle holding one certificate and its
// private key.
func LoadPKCS12(data []byte, password string) (*x509.Certificate, crypto.PrivateKey, error) {
	key, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, nil, fmt.Errorf("pkcs12: %w", err)
	}
	return cert, key, nil
}
