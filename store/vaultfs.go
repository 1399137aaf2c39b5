// Package store persists the vault's on-disk metadata.
package store

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Save12sttm/Vaulto/auth"
	"github.com/Save12sttm/Vaulto/krypto"
)

const (
	headerFilename = "header.json"
	dbFilename     = "vault.db"

	// HeaderVersion is the only header layout this package writes.
	HeaderVersion = 1
)

// ErrNoHeader means the vault has not been set up yet.
var ErrNoHeader = errors.New("vault header not found")

// Paths locates vault artifacts on disk.
type Paths struct {
	Dir string
}

// HeaderPath resolves the header JSON path.
func (p Paths) HeaderPath() string {
	return filepath.Join(p.Dir, headerFilename)
}

// DBPath resolves the record database path.
func (p Paths) DBPath() string {
	return filepath.Join(p.Dir, dbFilename)
}

// EnsureDir creates the vault directory with owner-only permissions.
func (p Paths) EnsureDir() error {
	if p.Dir == "" {
		return errors.New("vault directory not specified")
	}
	if err := os.MkdirAll(p.Dir, 0o700); err != nil {
		return fmt.Errorf("create vault directory: %w", err)
	}
	return nil
}

// KDFConfig describes the derivation the stored hash was produced with.
type KDFConfig struct {
	Name       string `json:"name"`
	Iterations int    `json:"iterations"`
	KeyLen     int    `json:"keyLen"`
}

// Header is the content of header.json: the master credential and its
// derivation parameters. Salt and Hash are base64.
type Header struct {
	Version   int       `json:"version"`
	KDF       KDFConfig `json:"kdf"`
	Salt      string    `json:"salt"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewHeader builds a header for cred, stamped with now.
func NewHeader(cred auth.Credential, now time.Time) Header {
	now = now.UTC()
	return Header{
		Version: HeaderVersion,
		KDF: KDFConfig{
			Name:       krypto.KDFName,
			Iterations: krypto.PBKDF2Iterations,
			KeyLen:     krypto.DerivedKeyLen,
		},
		Salt:      base64.StdEncoding.EncodeToString(cred.Salt),
		Hash:      base64.StdEncoding.EncodeToString(cred.Hash),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Credential validates the header and decodes the stored credential.
func (h Header) Credential() (auth.Credential, error) {
	if h.Version != HeaderVersion {
		return auth.Credential{}, fmt.Errorf("unsupported header version %d", h.Version)
	}
	if h.KDF.Name != krypto.KDFName || h.KDF.Iterations != krypto.PBKDF2Iterations || h.KDF.KeyLen != krypto.DerivedKeyLen {
		return auth.Credential{}, fmt.Errorf("unsupported kdf %q", h.KDF.Name)
	}

	salt, err := base64.StdEncoding.DecodeString(h.Salt)
	if err != nil {
		return auth.Credential{}, fmt.Errorf("decode salt: %w", err)
	}
	hash, err := base64.StdEncoding.DecodeString(h.Hash)
	if err != nil {
		return auth.Credential{}, fmt.Errorf("decode hash: %w", err)
	}
	return auth.Credential{Hash: hash, Salt: salt}, nil
}

// LoadHeader reads header.json from disk. A missing file is ErrNoHeader.
func LoadHeader(p Paths) (Header, error) {
	var hdr Header

	data, err := os.ReadFile(p.HeaderPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return hdr, ErrNoHeader
		}
		return hdr, fmt.Errorf("read header: %w", err)
	}

	if err := json.Unmarshal(data, &hdr); err != nil {
		return hdr, fmt.Errorf("decode header: %w", err)
	}

	return hdr, nil
}

// HeaderExists reports whether header.json is present.
func HeaderExists(p Paths) (bool, error) {
	_, err := os.Stat(p.HeaderPath())
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat header: %w", err)
	}
}

// SaveHeader persists header.json atomically with restrictive permissions.
func SaveHeader(p Paths, hdr Header) error {
	if err := p.EnsureDir(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(hdr, "", "  ")
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	tmp, err := os.CreateTemp(p.Dir, "header-*.json")
	if err != nil {
		return fmt.Errorf("create temp header: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp header: %w", err)
	}

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp header: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp header: %w", err)
	}

	if err := os.Rename(tmpPath, p.HeaderPath()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace header: %w", err)
	}

	return nil
}

// ReplaceCredential swaps the credential in an existing header, keeping
// CreatedAt.
func ReplaceCredential(p Paths, cred auth.Credential, now time.Time) error {
	hdr, err := LoadHeader(p)
	if err != nil {
		return err
	}
	next := NewHeader(cred, now)
	if !hdr.CreatedAt.IsZero() {
		next.CreatedAt = hdr.CreatedAt
	}
	if err := SaveHeader(p, next); err != nil {
		return fmt.Errorf("save header: %w", err)
	}
	return nil
}
