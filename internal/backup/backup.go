// Package backup encodes vault records for export and decodes them on
// import.
//
// Two formats are produced. The plaintext format is a JSON envelope
// {version, exportDate, itemCount, items}. The encrypted format is a binary
// container:
//
//	magic "VLTB" | format 0x01 | iterations uint32 BE | salt[32] | iv[12] | ciphertext+tag
//
// The key is PBKDF2-HMAC-SHA256(passphrase, salt, iterations) and the header
// bytes before the ciphertext are the GCM additional data, so any change to
// them fails authentication.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Save12sttm/Vaulto/internal/fault"
	"github.com/Save12sttm/Vaulto/internal/totp"
	"github.com/Save12sttm/Vaulto/internal/vault"
)

// EnvelopeVersion is written to every export.
const EnvelopeVersion = 1

var (
	ErrMalformedBackup    = fault.New(fault.Format, "malformed backup")
	ErrNotEncrypted       = fault.New(fault.Format, "backup is not encrypted")
	ErrDecryptionFailed   = fault.New(fault.Authentication, "backup decryption failed")
	ErrPassphraseRequired = fault.New(fault.Validation, "backup passphrase required")
)

type envelope struct {
	Version    int            `json:"version"`
	ExportDate int64          `json:"exportDate"`
	ItemCount  int            `json:"itemCount"`
	Items      []vault.Record `json:"items"`
}

// ExportJSON returns the pretty-printed plaintext envelope for records.
func ExportJSON(records []vault.Record) ([]byte, error) {
	return encodeEnvelope(records, time.Now())
}

func encodeEnvelope(records []vault.Record, exported time.Time) ([]byte, error) {
	items := make([]vault.Record, len(records))
	for i, r := range records {
		r.Tags = append([]string{}, r.Tags...)
		if r.Category == "" {
			r.Category = vault.DefaultCategory
		}
		if r.ItemType == "" {
			r.ItemType = vault.TypePassword
		}
		items[i] = r
	}

	env := envelope{
		Version:    EnvelopeVersion,
		ExportDate: exported.UnixMilli(),
		ItemCount:  len(items),
		Items:      items,
	}
	data, err := json.MarshalIndent(env, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return data, nil
}

// ExportEncrypted returns the encrypted container for records.
func ExportEncrypted(records []vault.Record, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}
	plaintext, err := ExportJSON(records)
	if err != nil {
		return nil, err
	}
	return seal(plaintext, passphrase)
}

// ImportJSON decodes a backup strictly. Without a passphrase data must be a
// plaintext envelope; with one it must be an encrypted container.
func ImportJSON(data []byte, passphrase string) ([]vault.Record, error) {
	res, err := Import(data, ImportOptions{Passphrase: passphrase})
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// ImportOptions controls Import.
type ImportOptions struct {
	Passphrase string
	// AllowPlaintextFallback accepts a plaintext envelope even though a
	// passphrase was supplied. It never applies to an encrypted container
	// that fails to decrypt.
	AllowPlaintextFallback bool
	Logger                 *zap.Logger
}

// ImportResult is the outcome of Import.
type ImportResult struct {
	Records []vault.Record
	// Encrypted is true when the input was a container.
	Encrypted bool
	// PlaintextFallback is true when a passphrase was supplied but the
	// input was plaintext and accepted under AllowPlaintextFallback.
	PlaintextFallback bool
}

// Import decodes a backup and validates every item. Imported records have
// their IDs reset to zero.
func Import(data []byte, opts ImportOptions) (ImportResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	encrypted := isContainer(data)
	var res ImportResult

	switch {
	case opts.Passphrase == "" && encrypted:
		return res, ErrPassphraseRequired
	case opts.Passphrase == "":
		// plaintext
	case encrypted:
		plaintext, err := open(data, opts.Passphrase)
		if err != nil {
			return res, err
		}
		data = plaintext
		res.Encrypted = true
	case !opts.AllowPlaintextFallback:
		return res, ErrNotEncrypted
	default:
		logger.Warn("importing unencrypted backup although a passphrase was supplied")
		res.PlaintextFallback = true
	}

	records, err := decodeEnvelope(data)
	if err != nil {
		return ImportResult{}, err
	}
	res.Records = records
	return res, nil
}

func decodeEnvelope(data []byte) ([]vault.Record, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBackup, err)
	}
	if env.Version < 1 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedBackup, env.Version)
	}
	if env.ItemCount != len(env.Items) {
		return nil, fmt.Errorf("%w: itemCount %d does not match %d items", ErrMalformedBackup, env.ItemCount, len(env.Items))
	}

	records := make([]vault.Record, 0, len(env.Items))
	for i, r := range env.Items {
		if r.TOTPSecret != "" && !totp.ValidateSecret(r.TOTPSecret) {
			return nil, fmt.Errorf("%w: item %d has an invalid TOTP secret", ErrMalformedBackup, i)
		}
		if r.ItemType != "" && !vault.ValidItemType(r.ItemType) {
			return nil, fmt.Errorf("%w: item %d has unknown type %q", ErrMalformedBackup, i, r.ItemType)
		}
		r.ID = 0
		r.Normalize()
		records = append(records, r)
	}
	return records, nil
}

// FileName is the suggested name for a backup written at t.
func FileName(encrypted bool, t time.Time) string {
	ext := "json"
	if encrypted {
		ext = "vaulto"
	}
	return "vaulto_backup_" + t.Format("2006-01-02_15-04-05") + "." + ext
}
