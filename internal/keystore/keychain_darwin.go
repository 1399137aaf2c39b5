//go:build darwin

package keystore

import (
	"errors"
	"fmt"

	keychain "github.com/keybase/go-keychain"
)

const (
	keychainService = "com.example.vaulto.keystore"
	keychainLabel   = "Vaulto vault key"
)

const keychainAvailable = true

// KeychainBackend stores keys as generic passwords in the macOS Keychain.
// Items are device-local and readable only while the device is unlocked.
type KeychainBackend struct{}

func NewKeychainBackend() *KeychainBackend { return &KeychainBackend{} }

func (KeychainBackend) Load(alias string) ([]byte, error) {
	data, err := keychain.GetGenericPassword(keychainService, alias, "", "")
	if err != nil {
		if errors.Is(err, keychain.ErrorItemNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read keychain item: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	return data, nil
}

func (KeychainBackend) Store(alias string, key []byte) error {
	item := keychain.NewGenericPassword(keychainService, alias, keychainLabel, key, "")
	item.SetSynchronizable(keychain.SynchronizableNo)
	item.SetAccessible(keychain.AccessibleWhenUnlockedThisDeviceOnly)

	err := keychain.AddItem(item)
	if err == nil {
		return nil
	}
	if !errors.Is(err, keychain.ErrorDuplicateItem) {
		return fmt.Errorf("add keychain item: %w", err)
	}

	query := keychain.NewGenericPassword(keychainService, alias, "", nil, "")
	update := keychain.NewItem()
	update.SetData(key)
	if err := keychain.UpdateItem(query, update); err != nil {
		return fmt.Errorf("update keychain item: %w", err)
	}
	return nil
}
