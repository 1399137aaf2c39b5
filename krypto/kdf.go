package krypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltLengthBytes is the length of every master-password salt.
	SaltLengthBytes = 32
	// PBKDF2Iterations is the fixed work factor for master-password hashing.
	PBKDF2Iterations = 100000
	// DerivedKeyLen is the 256-bit output length of DeriveHash.
	DerivedKeyLen = 32
	// KDFName identifies the derivation in persisted headers.
	KDFName = "pbkdf2-hmac-sha256"
)

// PBKDF2Params captures tunable parameters for PBKDF2-HMAC-SHA256.
type PBKDF2Params struct {
	Iterations int
	KeyLen     int
}

// DefaultPBKDF2Params returns the parameters used for master-password hashing.
func DefaultPBKDF2Params() PBKDF2Params {
	return PBKDF2Params{
		Iterations: PBKDF2Iterations,
		KeyLen:     DerivedKeyLen,
	}
}

// DeriveKeyPBKDF2 derives a key using PBKDF2-HMAC-SHA256 with the provided parameters.
func DeriveKeyPBKDF2(password, salt []byte, p PBKDF2Params) ([]byte, error) {
	if len(salt) == 0 {
		return nil, errors.New("salt is required")
	}
	if p.Iterations <= 0 {
		return nil, errors.New("iteration count must be positive")
	}
	if p.KeyLen <= 0 {
		return nil, errors.New("key length must be positive")
	}

	key := pbkdf2.Key(password, salt, p.Iterations, p.KeyLen, sha256.New)
	if len(key) != p.KeyLen {
		return nil, fmt.Errorf("derived key has unexpected length %d", len(key))
	}
	return key, nil
}

// DeriveHash derives the 256-bit master-password hash with the fixed
// iteration count. Identical inputs always yield identical output.
func DeriveHash(passphrase string, salt []byte) ([]byte, error) {
	if len(salt) != SaltLengthBytes {
		return nil, fmt.Errorf("salt must be %d bytes", SaltLengthBytes)
	}
	pw := []byte(passphrase)
	defer Wipe(pw)
	return DeriveKeyPBKDF2(pw, salt, DefaultPBKDF2Params())
}

// NewRandomSalt returns a cryptographically secure random salt of SaltLengthBytes.
func NewRandomSalt() ([]byte, error) {
	salt, err := RandomBytes(SaltLengthBytes)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}
