package keystore

import (
	"bytes"
	"sync"
)

// MemoryBackend keeps keys in process memory. Intended for tests.
type MemoryBackend struct {
	mu   sync.Mutex
	keys map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{keys: make(map[string][]byte)}
}

func (b *MemoryBackend) Load(alias string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k, ok := b.keys[alias]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(k), nil
}

func (b *MemoryBackend) Store(alias string, key []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys[alias] = bytes.Clone(key)
	return nil
}
