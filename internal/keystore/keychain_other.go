//go:build !darwin

package keystore

const keychainAvailable = false

// KeychainBackend is unavailable on non-macOS platforms.
type KeychainBackend struct{}

func NewKeychainBackend() *KeychainBackend { return &KeychainBackend{} }

func (KeychainBackend) Load(string) ([]byte, error) { return nil, ErrUnsupported }

func (KeychainBackend) Store(string, []byte) error { return ErrUnsupported }
