package backup

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Save12sttm/Vaulto/krypto"
)

const (
	containerFormat = 1
	// Accepted PBKDF2 work factors when reading a container.
	minIterations = 10_000
	maxIterations = 10_000_000
)

var magic = []byte("VLTB")

// headerLen is magic, format byte, iterations, salt and IV.
const headerLen = 4 + 1 + 4 + krypto.SaltLengthBytes + krypto.IVSize

func isContainer(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}

func seal(plaintext []byte, passphrase string) ([]byte, error) {
	salt, err := krypto.NewRandomSalt()
	if err != nil {
		return nil, err
	}
	params := krypto.DefaultPBKDF2Params()
	key, err := krypto.DeriveKeyPBKDF2([]byte(passphrase), salt, params)
	if err != nil {
		return nil, fmt.Errorf("derive backup key: %w", err)
	}
	defer krypto.Wipe(key)

	aead, err := krypto.NewAEAD(key)
	if err != nil {
		return nil, err
	}
	iv, err := krypto.RandomBytes(krypto.IVSize)
	if err != nil {
		return nil, err
	}

	header := make([]byte, 0, headerLen)
	header = append(header, magic...)
	header = append(header, containerFormat)
	header = binary.BigEndian.AppendUint32(header, uint32(params.Iterations))
	header = append(header, salt...)
	header = append(header, iv...)

	out := make([]byte, len(header), len(header)+len(plaintext)+krypto.TagSize)
	copy(out, header)
	return aead.Seal(out, iv, plaintext, header), nil
}

func open(data []byte, passphrase string) ([]byte, error) {
	if len(data) < headerLen+krypto.TagSize {
		return nil, fmt.Errorf("%w: container truncated", ErrMalformedBackup)
	}
	if data[4] != containerFormat {
		return nil, fmt.Errorf("%w: unsupported container format %d", ErrMalformedBackup, data[4])
	}
	iterations := binary.BigEndian.Uint32(data[5:9])
	if iterations < minIterations || iterations > maxIterations {
		return nil, fmt.Errorf("%w: iteration count %d out of range", ErrMalformedBackup, iterations)
	}
	salt := data[9 : 9+krypto.SaltLengthBytes]
	iv := data[9+krypto.SaltLengthBytes : headerLen]

	key, err := krypto.DeriveKeyPBKDF2([]byte(passphrase), salt, krypto.PBKDF2Params{
		Iterations: int(iterations),
		KeyLen:     krypto.KeySize,
	})
	if err != nil {
		return nil, fmt.Errorf("derive backup key: %w", err)
	}
	defer krypto.Wipe(key)

	aead, err := krypto.NewAEAD(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := krypto.Open(aead, krypto.EncryptedPayload{
		Ciphertext: data[headerLen:],
		IV:         iv,
	}, data[:headerLen])
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
