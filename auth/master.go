package auth

import (
	"crypto/subtle"
	"fmt"
	"unicode/utf8"

	"github.com/Save12sttm/Vaulto/internal/fault"
	"github.com/Save12sttm/Vaulto/krypto"
)

// MinMasterLength is the minimum master passphrase length in characters.
const MinMasterLength = 8

var (
	ErrMismatch                = fault.New(fault.Validation, "passwords do not match")
	ErrTooShort                = fault.New(fault.Validation, fmt.Sprintf("password must be at least %d characters", MinMasterLength))
	ErrIncorrectPassword       = fault.New(fault.Authentication, "incorrect password")
	ErrNoCredentialsConfigured = fault.New(fault.Authentication, "no master password configured")
)

// Credential is the persisted form of the master passphrase: the
// PBKDF2 output and the salt it was derived with.
type Credential struct {
	Hash []byte
	Salt []byte
}

// Empty reports whether the credential has never been configured.
func (c Credential) Empty() bool {
	return len(c.Hash) == 0 || len(c.Salt) == 0
}

// Setup checks a new passphrase against its confirmation and the length
// policy, then derives a fresh credential. Nothing is persisted here.
func Setup(passphrase, confirmation string) (Credential, error) {
	if passphrase != confirmation {
		return Credential{}, ErrMismatch
	}
	if err := ValidateMasterPassword(passphrase); err != nil {
		return Credential{}, err
	}

	salt, err := krypto.NewRandomSalt()
	if err != nil {
		return Credential{}, fmt.Errorf("setup: %w", err)
	}
	hash, err := krypto.DeriveHash(passphrase, salt)
	if err != nil {
		return Credential{}, fmt.Errorf("setup: %w", err)
	}
	return Credential{Hash: hash, Salt: salt}, nil
}

// Verify re-derives the hash for passphrase and compares it with the
// stored credential in constant time.
func Verify(passphrase string, stored Credential) error {
	if stored.Empty() {
		return ErrNoCredentialsConfigured
	}
	derived, err := krypto.DeriveHash(passphrase, stored.Salt)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	defer krypto.Wipe(derived)

	if subtle.ConstantTimeCompare(derived, stored.Hash) != 1 {
		return ErrIncorrectPassword
	}
	return nil
}

// ValidateMasterPassword applies the master password length policy.
// Length is counted in characters, not bytes.
func ValidateMasterPassword(pw string) error {
	if utf8.RuneCountInString(pw) < MinMasterLength {
		return ErrTooShort
	}
	return nil
}
