package krypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/Save12sttm/Vaulto/internal/fault"
)

const (
	// KeySize is the AES-256 key length.
	KeySize = 32
	// IVSize is the GCM nonce length.
	IVSize = 12
	// TagSize is the GCM authentication tag length appended to ciphertext.
	TagSize = 16
)

var (
	// ErrAuthenticationFailed reports a GCM tag that does not verify. It is
	// deliberately the same for tampered data and a wrong key.
	ErrAuthenticationFailed = fault.New(fault.Authentication, "authentication failed")
	// ErrInvalidKey reports a key that is not 32 bytes.
	ErrInvalidKey = fault.New(fault.Validation, "aes-gcm requires a 32-byte key")
)

// EncryptedPayload is the output of one encryption: ciphertext with the tag
// appended, and the IV it was sealed under.
type EncryptedPayload struct {
	Ciphertext []byte
	IV         []byte
}

// NewAEAD builds an AES-256-GCM AEAD for key.
func NewAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext under a fresh random IV.
func Seal(aead cipher.AEAD, plaintext, aad []byte) (EncryptedPayload, error) {
	iv, err := RandomBytes(IVSize)
	if err != nil {
		return EncryptedPayload{}, fmt.Errorf("generate iv: %w", err)
	}

	return EncryptedPayload{
		Ciphertext: aead.Seal(nil, iv, plaintext, aad),
		IV:         iv,
	}, nil
}

// Open verifies and decrypts p. Every malformed or unauthentic input maps to
// ErrAuthenticationFailed.
func Open(aead cipher.AEAD, p EncryptedPayload, aad []byte) ([]byte, error) {
	if len(p.IV) != IVSize || len(p.Ciphertext) < TagSize {
		return nil, ErrAuthenticationFailed
	}

	plaintext, err := aead.Open(nil, p.IV, p.Ciphertext, aad)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// EncryptAESGCM encrypts plaintext using AES-256-GCM, returning the IV and ciphertext.
func EncryptAESGCM(key, plaintext, aad []byte) (EncryptedPayload, error) {
	aead, err := NewAEAD(key)
	if err != nil {
		return EncryptedPayload{}, err
	}
	return Seal(aead, plaintext, aad)
}

// DecryptAESGCM decrypts the payload using AES-256-GCM.
func DecryptAESGCM(key []byte, p EncryptedPayload, aad []byte) ([]byte, error) {
	aead, err := NewAEAD(key)
	if err != nil {
		return nil, err
	}
	return Open(aead, p, aad)
}
