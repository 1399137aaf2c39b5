// Package keystore holds the vault key behind a capability interface.
//
// Callers ask a KeyProvider for a Key by alias and use it to encrypt and
// decrypt. The raw key bytes never leave this package: a backend persists
// them, the Keystore turns them into a cached cipher.AEAD, and the copy used
// to build it is wiped.
package keystore

import (
	"crypto/cipher"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Save12sttm/Vaulto/krypto"
)

// DefaultAlias names the vault key.
const DefaultAlias = "VaultoKeyAlias"

var (
	// ErrNotFound is returned by a Backend that has no key for the alias.
	ErrNotFound = errors.New("keystore: key not found")
	// ErrUnsupported signals the backend is not available on this platform.
	ErrUnsupported = errors.New("keystore: backend not supported on this platform")
)

// Backend persists raw key material by alias.
type Backend interface {
	Load(alias string) ([]byte, error)
	Store(alias string, key []byte) error
}

// KeyProvider hands out keys by alias, generating them on first use.
type KeyProvider interface {
	Key(alias string) (*Key, error)
}

// Key is an opaque handle for an AES-256-GCM key. Ciphertexts are bound to
// the alias through the GCM additional data.
type Key struct {
	alias string
	aead  cipher.AEAD
}

// Alias returns the name the key was requested under.
func (k *Key) Alias() string { return k.alias }

// Encrypt seals plaintext with a fresh IV.
func (k *Key) Encrypt(plaintext []byte) (krypto.EncryptedPayload, error) {
	return krypto.Seal(k.aead, plaintext, k.aad())
}

// Decrypt opens a payload produced by Encrypt under the same alias.
func (k *Key) Decrypt(p krypto.EncryptedPayload) ([]byte, error) {
	return krypto.Open(k.aead, p, k.aad())
}

func (k *Key) aad() []byte {
	return []byte("vaulto.keystore:" + k.alias)
}

// Keystore is a KeyProvider over a Backend.
type Keystore struct {
	backend Backend
	logger  *zap.Logger

	mu   sync.Mutex
	keys map[string]*Key
}

// New wraps backend. A nil logger discards output.
func New(backend Backend, logger *zap.Logger) *Keystore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Keystore{
		backend: backend,
		logger:  logger,
		keys:    make(map[string]*Key),
	}
}

// Key returns the key for alias, creating and persisting a random one if the
// backend has none yet.
func (s *Keystore) Key(alias string) (*Key, error) {
	if err := validateAlias(alias); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if k, ok := s.keys[alias]; ok {
		return k, nil
	}

	raw, err := s.backend.Load(alias)
	switch {
	case errors.Is(err, ErrNotFound):
		raw, err = krypto.RandomBytes(krypto.KeySize)
		if err != nil {
			return nil, fmt.Errorf("generate key: %w", err)
		}
		if err := s.backend.Store(alias, raw); err != nil {
			krypto.Wipe(raw)
			return nil, fmt.Errorf("store key: %w", err)
		}
		s.logger.Info("generated keystore key", zap.String("alias", alias))
	case err != nil:
		return nil, fmt.Errorf("load key: %w", err)
	}
	defer krypto.Wipe(raw)

	if len(raw) != krypto.KeySize {
		return nil, fmt.Errorf("key %q has invalid length %d", alias, len(raw))
	}
	aead, err := krypto.NewAEAD(raw)
	if err != nil {
		return nil, err
	}

	k := &Key{alias: alias, aead: aead}
	s.keys[alias] = k
	return k, nil
}

func validateAlias(alias string) error {
	if strings.TrimSpace(alias) == "" {
		return errors.New("key alias is required")
	}
	if strings.ContainsAny(alias, `/\`) || alias == "." || alias == ".." {
		return fmt.Errorf("invalid key alias %q", alias)
	}
	return nil
}

// Open builds a Keystore for the named backend: "auto", "keychain", "file"
// or "memory". Auto selects the keychain on macOS and the key file
// elsewhere. dir is only used by the file backend.
func Open(kind, dir string, logger *zap.Logger) (*Keystore, error) {
	var backend Backend
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "auto":
		if keychainAvailable {
			backend = NewKeychainBackend()
		} else {
			fb, err := NewFileBackend(dir)
			if err != nil {
				return nil, err
			}
			backend = fb
		}
	case "keychain":
		if !keychainAvailable {
			return nil, ErrUnsupported
		}
		backend = NewKeychainBackend()
	case "file":
		fb, err := NewFileBackend(dir)
		if err != nil {
			return nil, err
		}
		backend = fb
	case "memory":
		backend = NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown keystore backend %q", kind)
	}
	return New(backend, logger), nil
}
