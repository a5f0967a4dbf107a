package application

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// FieldCipher transforms a single credential field at the document store
// boundary. Implementations must round-trip every valid UTF-8 string exactly.
type FieldCipher interface {
	Encrypt(plaintext, key string) (string, error)
	Decrypt(ciphertext, key string) (string, error)
}

// Compile-time interface satisfaction checks.
var (
	_ FieldCipher = XORCipher{}
	_ FieldCipher = SealedCipher{}
)

// XORCipher XORs the UTF-16 code units of the plaintext against the
// repeating code units of the key and base64-encodes the result. When every
// unit fits in a byte it is written as one byte, which is what the mobile
// client produces. Wider results are written as big-endian unit pairs behind
// widePrefix. It is deterministic and carries no integrity protection; a
// known plaintext reveals the key stream.
type XORCipher struct{}

// widePrefix marks XORCipher output holding two bytes per code unit. ':' is
// outside the base64 alphabet, so it never collides with single-byte output.
const widePrefix = "u16:"

// Encrypt returns base64(plaintext XOR key). Plaintext must be valid UTF-8.
func (XORCipher) Encrypt(plaintext, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	if !utf8.ValidString(plaintext) {
		return "", ErrInvalidText
	}

	units := xorUnits(utf16.Encode([]rune(plaintext)), key)
	narrow := true
	for _, u := range units {
		if u > 0xFF {
			narrow = false
			break
		}
	}

	if narrow {
		raw := make([]byte, len(units))
		for i, u := range units {
			raw[i] = byte(u)
		}
		return base64.StdEncoding.EncodeToString(raw), nil
	}

	raw := make([]byte, 2*len(units))
	for i, u := range units {
		binary.BigEndian.PutUint16(raw[2*i:], u)
	}
	return widePrefix + base64.StdEncoding.EncodeToString(raw), nil
}

// Decrypt reverses Encrypt. Input that is not valid standard base64, or wide
// input with an odd byte count, yields ErrDecode.
func (XORCipher) Decrypt(ciphertext, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	encoded, wide := strings.CutPrefix(ciphertext, widePrefix)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var units []uint16
	if wide {
		if len(raw)%2 != 0 {
			return "", fmt.Errorf("%w: odd length wide ciphertext", ErrDecode)
		}
		units = make([]uint16, len(raw)/2)
		for i := range units {
			units[i] = binary.BigEndian.Uint16(raw[2*i:])
		}
	} else {
		units = make([]uint16, len(raw))
		for i, b := range raw {
			units[i] = uint16(b)
		}
	}
	return string(utf16.Decode(xorUnits(units, key))), nil
}

// xorUnits XORs units in place against the repeating key code units.
func xorUnits(units []uint16, key string) []uint16 {
	k := utf16.Encode([]rune(key))
	for i := range units {
		units[i] ^= k[i%len(k)]
	}
	return units
}

// sealedPrefix marks ciphertexts produced by SealedCipher.
const sealedPrefix = "xc1:"

// hkdfInfo binds derived field keys to this use.
var hkdfInfo = []byte("pinvault field cipher v1")

// SealedCipher encrypts with XChaCha20-Poly1305 under a 32-byte key derived
// from the stored key string with HKDF-SHA256. Output is "xc1:" followed by
// base64(nonce || ciphertext || tag). Values without the prefix are treated
// as XORCipher output, so a store can switch ciphers without rewriting.
type SealedCipher struct{}

// Encrypt seals plaintext under a fresh random nonce.
func (SealedCipher) Encrypt(plaintext, key string) (string, error) {
	aead, err := newFieldAEAD(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a sealed value, or falls back to XORCipher for unprefixed input.
func (SealedCipher) Decrypt(ciphertext, key string) (string, error) {
	encoded, ok := strings.CutPrefix(ciphertext, sealedPrefix)
	if !ok {
		return XORCipher{}.Decrypt(ciphertext, key)
	}

	aead, err := newFieldAEAD(key)
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(data) < aead.NonceSize()+aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecode)
	}

	nonce, sealed := data[:aead.NonceSize()], data[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return string(plaintext), nil
}

func newFieldAEAD(key string) (cipher.AEAD, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	derived := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(key), nil, hkdfInfo), derived); err != nil {
		return nil, fmt.Errorf("derive field key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(derived)
	if err != nil {
		return nil, fmt.Errorf("chacha20poly1305.NewX: %w", err)
	}
	return aead, nil
}

// NewFieldCipher returns the cipher registered under name: "xor" or "xchacha".
func NewFieldCipher(name string) (FieldCipher, error) {
	switch name {
	case "", "xor":
		return XORCipher{}, nil
	case "xchacha":
		return SealedCipher{}, nil
	default:
		return nil, fmt.Errorf("unknown field cipher %q", name)
	}
}
