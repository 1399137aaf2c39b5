package vault

import (
	"encoding/json"
	"fmt"

	"github.com/Save12sttm/Vaulto/krypto"
)

// Sealer encrypts and decrypts opaque blobs. *keystore.Key satisfies it.
type Sealer interface {
	Encrypt(plaintext []byte) (krypto.EncryptedPayload, error)
	Decrypt(p krypto.EncryptedPayload) ([]byte, error)
}

// SealRecord JSON-encodes r and encrypts it. The plaintext buffer is wiped
// before returning.
func SealRecord(s Sealer, r Record) (krypto.EncryptedPayload, error) {
	r.Normalize()
	plaintext, err := json.Marshal(r)
	if err != nil {
		return krypto.EncryptedPayload{}, fmt.Errorf("encode record: %w", err)
	}
	defer krypto.Wipe(plaintext)

	payload, err := s.Encrypt(plaintext)
	if err != nil {
		return krypto.EncryptedPayload{}, fmt.Errorf("encrypt record: %w", err)
	}
	return payload, nil
}

// OpenRecord reverses SealRecord. The stored id is not trusted; callers set
// ID from the row.
func OpenRecord(s Sealer, p krypto.EncryptedPayload) (Record, error) {
	plaintext, err := s.Decrypt(p)
	if err != nil {
		return Record{}, fmt.Errorf("decrypt record: %w", err)
	}
	defer krypto.Wipe(plaintext)

	var r Record
	if err := json.Unmarshal(plaintext, &r); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	r.Normalize()
	return r, nil
}
